// Package scan matches definitions against an input buffer.
//
// A Matcher owns a definition database and tries rules in their declared
// order at the current position of a State. The first rule whose definition
// matches a non-empty prefix produces the token.
package scan

import (
	"bytes"
	"regexp"
	"strings"
	"unicode/utf8"

	"lexgen/pkg/lexerr"
	"lexgen/pkg/lexdb"
)

// maxDepth bounds composite nesting; a deeper match means the composites
// refer to each other in a cycle.
const maxDepth = 64

// Matcher tokenizes input using the definitions of one database.
type Matcher struct {
	db      *lexdb.Database
	regexes map[lexdb.ID]*regexp.Regexp
}

func NewMatcher(db *lexdb.Database) *Matcher {
	return &Matcher{db: db, regexes: make(map[lexdb.ID]*regexp.Regexp)}
}

func (m *Matcher) Database() *lexdb.Database { return m.db }

// Lex returns the token produced by the first rule in rules that matches at
// the current position of st, and advances st past it. At end of input it
// returns an EndOfFile error; when no rule matches, a NoMatch error.
func (m *Matcher) Lex(rules []*lexdb.Rule, st *State) (Token, error) {
	if st == nil {
		return Token{}, lexerr.New(lexerr.NullInput, "nil scan state")
	}
	if st.AtEOF() {
		return Token{}, lexerr.At(lexerr.EndOfFile, st.Pos(), "end of input")
	}
	in := st.Remaining()
	for _, rule := range rules {
		d, err := m.db.LookupByID(rule.Definition)
		if err != nil {
			return Token{}, err
		}
		n, ok, err := m.match(d, in, 0)
		if err != nil {
			return Token{}, lexerr.WithPos(err, st.Pos())
		}
		if !ok || n == 0 {
			continue
		}
		tok := Token{Rule: rule, Bytes: in[:n], Pos: st.Pos(), start: st.mark()}
		st.advance(n)
		return tok, nil
	}
	r, _ := utf8.DecodeRune(in)
	return Token{}, lexerr.At(lexerr.NoMatch, st.Pos(), "no rule matches %q", r)
}

// Match reports how many bytes of in definition d matches.
func (m *Matcher) Match(d *lexdb.Definition, in []byte) (int, bool, error) {
	return m.match(d, in, 0)
}

func (m *Matcher) match(d *lexdb.Definition, in []byte, depth int) (int, bool, error) {
	if depth > maxDepth {
		return 0, false, lexerr.New(lexerr.InfiniteLoop, "composite %q nests deeper than %d", d.Name, maxDepth)
	}
	switch d.Type {
	case lexdb.Category:
		return matchCategory(d, in)
	case lexdb.Literal:
		if bytes.HasPrefix(in, d.Literal) {
			return len(d.Literal), true, nil
		}
		return 0, false, nil
	case lexdb.Regex:
		re, err := m.regex(d)
		if err != nil {
			return 0, false, err
		}
		loc := re.FindIndex(in)
		if loc == nil || loc[0] != 0 {
			return 0, false, nil
		}
		return loc[1], true, nil
	case lexdb.Composite:
		return m.matchComposite(d, in, depth)
	}
	return 0, false, lexerr.New(lexerr.DefinitionType, "definition %q has type %s", d.Name, d.Type)
}

func matchCategory(d *lexdb.Definition, in []byte) (int, bool, error) {
	n, count := 0, 0
	for n < len(in) && (d.Max == lexdb.Unbounded || count < d.Max) {
		r, size := utf8.DecodeRune(in[n:])
		if !d.Mask.Matches(r) {
			break
		}
		n += size
		count++
	}
	return n, count >= d.Min, nil
}

func (m *Matcher) matchComposite(d *lexdb.Definition, in []byte, depth int) (int, bool, error) {
	switch d.Multiplicity {
	case lexdb.Sequence:
		total := 0
		for i := range d.Refs {
			n, ok, err := m.matchReference(m.db.Reference(d, i), in[total:], depth)
			if err != nil || !ok {
				return 0, false, err
			}
			total += n
		}
		return total, true, nil
	case lexdb.Alternation:
		for i := range d.Refs {
			n, ok, err := m.matchReference(m.db.Reference(d, i), in, depth)
			if err != nil {
				return 0, false, err
			}
			if ok {
				return n, true, nil
			}
		}
		return 0, false, nil
	}
	return 0, false, lexerr.New(lexerr.BadMultiType, "composite %q has multiplicity %d", d.Name, int(d.Multiplicity))
}

// matchReference repeats the referenced definition greedily between the
// reference's bounds.
func (m *Matcher) matchReference(ref *lexdb.Reference, in []byte, depth int) (int, bool, error) {
	if ref.Resolved == 0 {
		e := lexerr.New(lexerr.NotFound, "unresolved reference")
		e.Name = ref.Target
		return 0, false, e
	}
	target, err := m.db.LookupByID(ref.Resolved)
	if err != nil {
		return 0, false, err
	}
	total, count := 0, 0
	for ref.Max == lexdb.Unbounded || count < ref.Max {
		n, ok, err := m.match(target, in[total:], depth+1)
		if err != nil {
			return 0, false, err
		}
		if !ok {
			break
		}
		total += n
		count++
		if n == 0 {
			// An empty match repeats forever; one is enough.
			break
		}
	}
	return total, count >= ref.Min, nil
}

func (m *Matcher) regex(d *lexdb.Definition) (*regexp.Regexp, error) {
	if re, ok := m.regexes[d.ID]; ok {
		return re, nil
	}
	re, err := Compile(d.Pattern)
	if err != nil {
		e := lexerr.Wrap(lexerr.BadToken, err, "regex %q of definition %q", d.Pattern, d.Name)
		e.Pos = d.Pos
		return nil, e
	}
	m.regexes[d.ID] = re
	return re, nil
}

// Compile compiles a lex-file pattern anchored at the start of the input.
// Besides the RE2 syntax it accepts \h for horizontal whitespace.
func Compile(pattern string) (*regexp.Regexp, error) {
	re, err := regexp.Compile(`\A(?:` + translate(pattern) + `)`)
	if err != nil {
		return nil, err
	}
	re.Longest()
	return re, nil
}

func translate(pattern string) string {
	var sb strings.Builder
	inClass := false
	for i := 0; i < len(pattern); i++ {
		c := pattern[i]
		switch {
		case c == '\\' && i+1 < len(pattern):
			next := pattern[i+1]
			i++
			if next == 'h' {
				if inClass {
					sb.WriteString(`\t\p{Zs}`)
				} else {
					sb.WriteString(`[\t\p{Zs}]`)
				}
				continue
			}
			sb.WriteByte(c)
			sb.WriteByte(next)
		case c == '[' && !inClass:
			inClass = true
			sb.WriteByte(c)
			// A ']' right after '[' or '[^' is a literal.
			if i+1 < len(pattern) && pattern[i+1] == '^' {
				sb.WriteByte('^')
				i++
			}
			if i+1 < len(pattern) && pattern[i+1] == ']' {
				sb.WriteByte(']')
				i++
			}
		case c == ']' && inClass:
			inClass = false
			sb.WriteByte(c)
		default:
			sb.WriteByte(c)
		}
	}
	return sb.String()
}
