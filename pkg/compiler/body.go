package compiler

import (
	"errors"
	"regexp"

	"github.com/edwingeng/deque"

	"lexgen/pkg/lexerr"
	"lexgen/pkg/lexdb"
	"lexgen/pkg/scan"
)

const (
	// maxBodyTokens bounds the tokens one definition or rule body may span.
	maxBodyTokens = 1000000
	// historySize is the number of distinct recent states kept for errors.
	historySize = 8
)

// repetition matches the rest of a {m}, {m,} or {m,n} regex quantifier
// after its opening brace.
var repetition = regexp.MustCompile(`^[0-9]+(,[0-9]*)?\}`)

type pendingRef struct {
	target   string
	min, max int
	pos      lexerr.Pos
}

// bodyResult is what a completed body leaves behind.
type bodyResult struct {
	def        *lexdb.Definition
	action     []byte
	hasAction  bool
	unresolved *lexdb.Unresolved
}

// bodyParser reads one definition or rule body. It decides the variant of
// the definition on the fly from the first token after the name.
type bodyParser struct {
	c           *Compiler
	name        string
	namePos     lexerr.Pos
	ruleContext bool

	state   parseState
	history deque.Deque

	variant      lexdb.Type
	literal      []byte
	regex        []byte
	space        []byte
	refs         []pendingRef
	multiplicity lexdb.Multiplicity
	action       []byte
	hasAction    bool
	depth        int
}

func newBodyParser(c *Compiler, name string, namePos lexerr.Pos, ruleContext bool) *bodyParser {
	p := &bodyParser{
		c:           c,
		name:        name,
		namePos:     namePos,
		ruleContext: ruleContext,
		state:       stateDefinition,
		history:     deque.NewDeque(),
	}
	if ruleContext {
		p.state = stateDefinitionBody
	}
	p.remember(p.state)
	return p
}

// remember records s in the history ring unless it repeats the last entry.
func (p *bodyParser) remember(s parseState) {
	if p.history.Len() > 0 && p.history.Back().(parseState) == s {
		return
	}
	p.history.PushBack(s)
	for p.history.Len() > historySize {
		p.history.PopFront()
	}
}

// trace drains the history ring, oldest state first.
func (p *bodyParser) trace() []string {
	var out []string
	for p.history.Len() > 0 {
		out = append(out, p.history.PopFront().(parseState).String())
	}
	return out
}

func (p *bodyParser) fail(kind lexerr.Kind, tok scan.Token, format string, args ...any) error {
	e := lexerr.At(kind, tok.Pos, format, args...)
	e.Trace = p.trace()
	return e
}

func (p *bodyParser) rules() []*lexdb.Rule {
	if table[p.state].lexicon == useSingle {
		return p.c.lexicon.Single
	}
	return p.c.lexicon.All
}

// run pumps tokens through the transition table until Complete or Error.
func (p *bodyParser) run() (*bodyResult, error) {
	for i := 0; ; i++ {
		if i >= maxBodyTokens {
			return nil, lexerr.At(lexerr.InfiniteLoop, p.c.st.Pos(), "body of %q spans more than %d tokens", p.name, maxBodyTokens)
		}
		tok, err := p.c.lexicon.Lex(p.rules(), p.c.st)
		if errors.Is(err, lexerr.EndOfFile) {
			return p.endOfFile(tok)
		}
		if errors.Is(err, lexerr.NoMatch) {
			e := lexerr.At(lexerr.BadToken, p.c.st.Pos(), "unexpected input in %s", p.state)
			e.Trace = p.trace()
			return nil, e
		}
		if err != nil {
			return nil, err
		}
		if err := p.step(tok); err != nil {
			return nil, err
		}
		switch p.state {
		case stateComplete:
			return p.complete()
		case stateError:
			return nil, p.fail(lexerr.State, tok, "reached %s without a diagnostic", p.state)
		}
	}
}

// endOfFile completes a body whose last line has no newline, when a newline
// would have completed it.
func (p *bodyParser) endOfFile(tok scan.Token) (*bodyResult, error) {
	t, ok := lookup(p.state, Newline)
	if ok && t.next == stateComplete && p.state != stateRule {
		p.state = stateComplete
		p.remember(p.state)
		return p.complete()
	}
	tok.Pos = p.c.st.Pos()
	if p.state == stateRule {
		return nil, p.fail(lexerr.BadToken, tok, "unterminated action code for %q", p.name)
	}
	if p.state == stateLiteral || p.state == stateLiteralBackslash {
		return nil, p.fail(lexerr.BadToken, tok, "unterminated quote in %q", p.name)
	}
	return nil, p.fail(lexerr.UnresolvedDefinition, tok, "end of file inside the body of %q", p.name)
}

// step fires the transition for tok.
func (p *bodyParser) step(tok scan.Token) error {
	tt := TypeOf(tok)
	t, ok := lookup(p.state, tt)
	if !ok {
		return p.fail(lexerr.State, tok, "no transition from %s on %s", p.state, tt)
	}
	next, err := p.apply(t, tok)
	if err != nil {
		return err
	}
	p.state = next
	p.remember(next)
	return nil
}

// apply runs the side effect of t and returns the state to move to.
func (p *bodyParser) apply(t transition, tok scan.Token) (parseState, error) {
	switch t.do {
	case doNothing, doComplete:
	case doReject:
		p.remember(stateError)
		if p.state == stateLiteral {
			return stateError, p.fail(lexerr.BadToken, tok, "unterminated quote in %q", p.name)
		}
		return stateError, p.fail(lexerr.BadToken, tok, "unexpected %s %q in %s", TypeOf(tok), tok.Bytes, p.state)
	case doOpenLiteral:
		p.variant = lexdb.Literal
		p.literal = p.literal[:0]
	case doAppendLiteral:
		p.literal = append(p.literal, tok.Bytes...)
	case doAppendRegex:
		p.variant = lexdb.Regex
		p.regex = append(p.regex, tok.Bytes...)
	case doSaveSpace:
		p.space = append(p.space[:0], tok.Bytes...)
	case doResumeRegex:
		p.regex = append(p.regex, p.space...)
		p.regex = append(p.regex, tok.Bytes...)
		p.space = p.space[:0]
	case doStartComposite:
		p.variant = lexdb.Composite
		p.multiplicity = lexdb.Sequence
		p.refs = append(p.refs, pendingRef{target: tok.Text(), min: 1, max: 1, pos: tok.Pos})
	case doAppendReference:
		p.refs = append(p.refs, pendingRef{target: tok.Text(), min: 1, max: 1, pos: tok.Pos})
	case doStar:
		p.refs[len(p.refs)-1].min, p.refs[len(p.refs)-1].max = 0, lexdb.Unbounded
	case doPlus:
		p.refs[len(p.refs)-1].min, p.refs[len(p.refs)-1].max = 1, lexdb.Unbounded
	case doAlternate:
		if len(p.refs) != 1 {
			return stateError, p.fail(lexerr.BadToken, tok, "%q mixes a sequence with an alternation", p.name)
		}
		p.multiplicity = lexdb.Alternation
	case doOpenAction:
		if !p.ruleContext {
			return stateError, p.fail(lexerr.BadToken, tok, "action code in the definitions section for %q", p.name)
		}
		p.hasAction = true
		p.depth = 1
	case doRegexBrace:
		// Outside a rule, or when it opens a quantifier, the brace is
		// part of the pattern.
		if !p.ruleContext || repetition.Match(p.c.st.Remaining()) {
			p.regex = append(p.regex, tok.Bytes...)
			return stateRegex, nil
		}
		p.hasAction = true
		p.depth = 1
	case doNestAction:
		p.depth++
		p.action = append(p.action, tok.Bytes...)
	case doCloseAction:
		p.depth--
		if p.depth < 0 {
			return stateError, p.fail(lexerr.BadToken, tok, "unbalanced '}' in action code of %q", p.name)
		}
		if p.depth == 0 {
			return stateComplete, nil
		}
		p.action = append(p.action, tok.Bytes...)
	case doAppendAction:
		p.action = append(p.action, tok.Bytes...)
	default:
		return stateError, p.fail(lexerr.State, tok, "unknown action %d in %s", int(t.do), p.state)
	}
	return t.next, nil
}

// complete inserts the definition the body described.
func (p *bodyParser) complete() (*bodyResult, error) {
	db := p.c.db
	var (
		d   *lexdb.Definition
		err error
	)
	switch p.variant {
	case lexdb.Literal:
		d, err = db.InsertLiteral(p.name, p.literal)
	case lexdb.Regex:
		d, err = db.InsertRegex(p.name, string(p.regex))
	case lexdb.Composite:
		d, err = db.InsertComposite(p.name, p.multiplicity)
		if err == nil {
			for _, r := range p.refs {
				var ref *lexdb.Reference
				ref, err = db.AppendReference(d.ID, r.target, r.min, r.max)
				if err != nil {
					break
				}
				ref.Pos = r.pos
			}
		}
	default:
		err = lexerr.New(lexerr.DefinitionType, "body of %q has no variant", p.name)
	}
	if err != nil {
		return nil, lexerr.WithPos(err, p.namePos)
	}
	d.Pos = p.namePos

	res := &bodyResult{def: d, action: p.action, hasAction: p.hasAction}
	if d.Type == lexdb.Composite {
		// Names defined further down bind on a later pass, so an
		// unresolved reference here is not yet an error.
		res.unresolved, err = db.ResolveComposite(d)
		if err != nil {
			return nil, err
		}
	}
	return res, nil
}
