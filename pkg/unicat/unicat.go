// Package unicat classifies runes by Unicode general category.
//
// A Mask holds one bit per general category so that a single definition can
// accept several categories at once (for example every letter category).
package unicat

import (
	"fmt"
	"strings"
	"unicode"
)

// Mask is a set of Unicode general categories.
type Mask uint64

const (
	Lu Mask = 1 << iota // letter, uppercase
	Ll                  // letter, lowercase
	Lt                  // letter, titlecase
	Lm                  // letter, modifier
	Lo                  // letter, other
	Mn                  // mark, nonspacing
	Mc                  // mark, spacing combining
	Me                  // mark, enclosing
	Nd                  // number, decimal digit
	Nl                  // number, letter
	No                  // number, other
	Pc                  // punctuation, connector
	Pd                  // punctuation, dash
	Ps                  // punctuation, open
	Pe                  // punctuation, close
	Pi                  // punctuation, initial quote
	Pf                  // punctuation, final quote
	Po                  // punctuation, other
	Sm                  // symbol, math
	Sc                  // symbol, currency
	Sk                  // symbol, modifier
	So                  // symbol, other
	Zs                  // separator, space
	Zl                  // separator, line
	Zp                  // separator, paragraph
	Cc                  // other, control
	Cf                  // other, format
	Cs                  // other, surrogate
	Co                  // other, private use
	Cn                  // other, not assigned

	// Tab and the vertical space controls are Cc but the lex grammar
	// treats them as whitespace, so they get bits of their own.
	Tab
	VerticalControl
)

const (
	Letter      = Lu | Ll | Lt | Lm | Lo
	Mark        = Mn | Mc | Me
	Number      = Nd | Nl | No
	Punctuation = Pc | Pd | Ps | Pe | Pi | Pf | Po
	Symbol      = Sm | Sc | Sk | So
	Separator   = Zs | Zl | Zp
	Other       = Cc | Cf | Cs | Co | Cn

	HorizontalSpace = Zs | Tab
	VerticalSpace   = Zl | Zp | VerticalControl
)

type table struct {
	mask  Mask
	code  string
	table *unicode.RangeTable
}

// tables is ordered so the first hit is the rune's general category.
var tables = []table{
	{Lu, "Lu", unicode.Lu},
	{Ll, "Ll", unicode.Ll},
	{Lt, "Lt", unicode.Lt},
	{Lm, "Lm", unicode.Lm},
	{Lo, "Lo", unicode.Lo},
	{Mn, "Mn", unicode.Mn},
	{Mc, "Mc", unicode.Mc},
	{Me, "Me", unicode.Me},
	{Nd, "Nd", unicode.Nd},
	{Nl, "Nl", unicode.Nl},
	{No, "No", unicode.No},
	{Pc, "Pc", unicode.Pc},
	{Pd, "Pd", unicode.Pd},
	{Ps, "Ps", unicode.Ps},
	{Pe, "Pe", unicode.Pe},
	{Pi, "Pi", unicode.Pi},
	{Pf, "Pf", unicode.Pf},
	{Po, "Po", unicode.Po},
	{Sm, "Sm", unicode.Sm},
	{Sc, "Sc", unicode.Sc},
	{Sk, "Sk", unicode.Sk},
	{So, "So", unicode.So},
	{Zs, "Zs", unicode.Zs},
	{Zl, "Zl", unicode.Zl},
	{Zp, "Zp", unicode.Zp},
	{Cc, "Cc", unicode.Cc},
	{Cf, "Cf", unicode.Cf},
	{Cs, "Cs", unicode.Cs},
	{Co, "Co", unicode.Co},
}

// Of returns the category bits of r. Tab and the vertical controls
// (\n \v \f \r and U+0085) carry their extra bit alongside Cc.
func Of(r rune) Mask {
	var m Mask
	switch r {
	case '\t':
		m |= Tab
	case '\n', '\v', '\f', '\r', 0x85:
		m |= VerticalControl
	}
	if r < 0x80 {
		// ASCII fast path.
		switch {
		case 'A' <= r && r <= 'Z':
			return m | Lu
		case 'a' <= r && r <= 'z':
			return m | Ll
		case '0' <= r && r <= '9':
			return m | Nd
		case r == ' ':
			return m | Zs
		}
	}
	for _, t := range tables {
		if unicode.Is(t.table, r) {
			return m | t.mask
		}
	}
	return m | Cn
}

// Matches reports whether r belongs to any category in m.
func (m Mask) Matches(r rune) bool {
	return Of(r)&m != 0
}

func (m Mask) String() string {
	if m == 0 {
		return "none"
	}
	var parts []string
	for _, t := range tables {
		if m&t.mask != 0 {
			parts = append(parts, t.code)
		}
	}
	if m&Cn != 0 {
		parts = append(parts, "Cn")
	}
	if m&Tab != 0 {
		parts = append(parts, "Tab")
	}
	if m&VerticalControl != 0 {
		parts = append(parts, "VerticalControl")
	}
	return strings.Join(parts, "|")
}

// Category is one of the pre-loaded named categories.
type Category struct {
	Name string
	Mask Mask
}

// Categories lists the named categories every definition database starts
// with: one per general category followed by the aggregates.
var Categories = []Category{
	{"LETTER_UPPERCASE", Lu},
	{"LETTER_LOWERCASE", Ll},
	{"LETTER_TITLECASE", Lt},
	{"LETTER_MODIFIER", Lm},
	{"LETTER_OTHER", Lo},
	{"MARK_NONSPACING", Mn},
	{"MARK_SPACING_COMBINING", Mc},
	{"MARK_ENCLOSING", Me},
	{"NUMBER_DECIMAL_DIGIT", Nd},
	{"NUMBER_LETTER", Nl},
	{"NUMBER_OTHER", No},
	{"PUNCTUATION_CONNECTOR", Pc},
	{"PUNCTUATION_DASH", Pd},
	{"PUNCTUATION_OPEN", Ps},
	{"PUNCTUATION_CLOSE", Pe},
	{"PUNCTUATION_INITIAL_QUOTE", Pi},
	{"PUNCTUATION_FINAL_QUOTE", Pf},
	{"PUNCTUATION_OTHER", Po},
	{"SYMBOL_MATH", Sm},
	{"SYMBOL_CURRENCY", Sc},
	{"SYMBOL_MODIFIER", Sk},
	{"SYMBOL_OTHER", So},
	{"SEPARATOR_SPACE", Zs},
	{"SEPARATOR_LINE", Zl},
	{"SEPARATOR_PARAGRAPH", Zp},
	{"OTHER_CONTROL", Cc},
	{"OTHER_FORMAT", Cf},
	{"OTHER_SURROGATE", Cs},
	{"OTHER_PRIVATE_USE", Co},
	{"OTHER_NOT_ASSIGNED", Cn},
	{"LETTER", Letter},
	{"MARK", Mark},
	{"NUMBER", Number},
	{"PUNCTUATION", Punctuation},
	{"SYMBOL", Symbol},
	{"SEPARATOR", Separator},
	{"OTHER", Other},
	{"HORIZONTAL_SPACE", HorizontalSpace},
	{"VERTICAL_SPACE", VerticalSpace},
}

// Lookup returns the pre-loaded category called name.
func Lookup(name string) (Category, error) {
	for _, c := range Categories {
		if c.Name == name {
			return c, nil
		}
	}
	return Category{}, fmt.Errorf("unknown category %q", name)
}
