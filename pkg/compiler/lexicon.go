package compiler

import (
	"fmt"

	"lexgen/pkg/lexdb"
	"lexgen/pkg/scan"
)

// TokenType identifies a meta-token of the lex-file grammar.
type TokenType int

const (
	NoToken TokenType = iota // sentinel: not a meta-token

	PercentPercent // %%
	PercentOpen    // %{
	PercentClose   // %}
	Quote          // "
	Or             // |
	LBrace         // {
	RBrace         // }
	Star           // *
	Plus           // +
	Backslash      // \
	Identifier     // [_\p{L}][_\p{L}\p{N}]*
	Space          // horizontal whitespace run
	Newline        // \n or \r\n
	NotBackslash   // any single character but a backslash
	Any            // any single character
	ToEndOfLine    // everything up to the next vertical space

	numTokenTypes
)

var tokenNames = [...]string{
	NoToken:        "NoToken",
	PercentPercent: "PERCENT_PERCENT",
	PercentOpen:    "PERCENT_OPEN",
	PercentClose:   "PERCENT_CLOSE",
	Quote:          "QUOTE",
	Or:             "OR",
	LBrace:         "LBRACE",
	RBrace:         "RBRACE",
	Star:           "STAR",
	Plus:           "PLUS",
	Backslash:      "BACKSLASH",
	Identifier:     "IDENTIFIER",
	Space:          "SPACE",
	Newline:        "NEWLINE",
	NotBackslash:   "NOT_BACKSLASH",
	Any:            "ANY",
	ToEndOfLine:    "TO_END_OF_LINE",
}

func (tt TokenType) String() string {
	if int(tt) >= 0 && int(tt) < len(tokenNames) {
		return tokenNames[tt]
	}
	return fmt.Sprintf("TokenType(%d)", int(tt))
}

type metaToken struct {
	tt      TokenType
	literal string
	pattern string
}

// metaTokens is declared in TokenType order, so rule IDs equal token types.
var metaTokens = []metaToken{
	{tt: PercentPercent, literal: "%%"},
	{tt: PercentOpen, literal: "%{"},
	{tt: PercentClose, literal: "%}"},
	{tt: Quote, literal: `"`},
	{tt: Or, literal: "|"},
	{tt: LBrace, literal: "{"},
	{tt: RBrace, literal: "}"},
	{tt: Star, literal: "*"},
	{tt: Plus, literal: "+"},
	{tt: Backslash, literal: `\`},
	{tt: Identifier, pattern: `[_\p{L}][_\p{L}\p{N}]*`},
	{tt: Space, pattern: `[\h]+`},
	{tt: Newline, pattern: `\r\n|\n`},
	{tt: NotBackslash, pattern: `[^\\]`},
	{tt: Any, pattern: `(?s:.)`},
	{tt: ToEndOfLine, pattern: `[^\n\v\f\r\x{85}\x{2028}\x{2029}]+`},
}

// Lexicon is the fixed set of meta-token rules used to read a lex file.
// It is read-only once built.
type Lexicon struct {
	matcher *scan.Matcher

	// All tries every meta-token in declared order.
	All []*lexdb.Rule
	// Line reads whole lines inside verbatim blocks and indented code.
	Line []*lexdb.Rule
	// Single takes exactly one character, for the byte after a backslash.
	Single []*lexdb.Rule
}

// NewLexicon builds the bootstrap lexicon.
func NewLexicon() (*Lexicon, error) {
	db := lexdb.NewEmpty(lexdb.DefaultLimits())
	lx := &Lexicon{matcher: scan.NewMatcher(db)}
	rules := make(map[TokenType]*lexdb.Rule, len(metaTokens))
	for _, mt := range metaTokens {
		var (
			d   *lexdb.Definition
			err error
		)
		name := mt.tt.String()
		if mt.literal != "" {
			d, err = db.InsertLiteral(name, []byte(mt.literal))
		} else {
			d, err = db.InsertRegex(name, mt.pattern)
		}
		if err != nil {
			return nil, fmt.Errorf("lexicon %s: %w", name, err)
		}
		r, err := db.AddRule(name, d.ID, nil)
		if err != nil {
			return nil, fmt.Errorf("lexicon %s: %w", name, err)
		}
		if TokenType(r.ID) != mt.tt {
			return nil, fmt.Errorf("lexicon %s: rule id %d out of order", name, r.ID)
		}
		rules[mt.tt] = r
		lx.All = append(lx.All, r)
	}
	lx.Line = []*lexdb.Rule{rules[PercentClose], rules[ToEndOfLine], rules[Newline]}
	lx.Single = []*lexdb.Rule{rules[Any]}
	return lx, nil
}

// TypeOf maps a token produced by the lexicon back to its meta-token type.
func TypeOf(tok scan.Token) TokenType {
	if tok.Rule == nil || tok.Rule.ID <= 0 || tok.Rule.ID >= int(numTokenTypes) {
		return NoToken
	}
	return TokenType(tok.Rule.ID)
}

// Lex reads the next meta-token of st using rules from this lexicon.
func (lx *Lexicon) Lex(rules []*lexdb.Rule, st *scan.State) (scan.Token, error) {
	return lx.matcher.Lex(rules, st)
}
