package lexdb

import (
	"fmt"

	"lexgen/pkg/lexerr"
	"lexgen/pkg/unicat"
)

// ID identifies a definition for the life of a database. Zero is never a
// valid ID.
type ID int

// Type is the variant tag of a definition.
type Type int

const (
	Category Type = iota + 1
	Literal
	Regex
	Composite
)

var typeNames = [...]string{
	Category:  "category",
	Literal:   "literal",
	Regex:     "regex",
	Composite: "composite",
}

func (t Type) String() string {
	if int(t) > 0 && int(t) < len(typeNames) {
		return typeNames[t]
	}
	return fmt.Sprintf("Type(%d)", int(t))
}

// Multiplicity says how the references of a composite combine.
type Multiplicity int

const (
	Sequence Multiplicity = iota + 1
	Alternation
)

func (m Multiplicity) String() string {
	switch m {
	case Sequence:
		return "sequence"
	case Alternation:
		return "alternation"
	}
	return fmt.Sprintf("Multiplicity(%d)", int(m))
}

// Unbounded is the max repetition count meaning "no upper limit".
const Unbounded = -1

// Definition is a named pattern. Only the fields of its Type are set.
type Definition struct {
	ID   ID
	Name string
	Type Type
	Pos  lexerr.Pos

	// Category
	Mask     unicat.Mask
	Min, Max int

	// Literal
	Literal []byte

	// Regex
	Pattern string

	// Composite
	Multiplicity Multiplicity
	Refs         []int // indexes into Database.References
}

func (d *Definition) String() string {
	switch d.Type {
	case Category:
		return fmt.Sprintf("%d %s category %s {%d,%s}", d.ID, d.Name, d.Mask, d.Min, bound(d.Max))
	case Literal:
		return fmt.Sprintf("%d %s literal %q", d.ID, d.Name, d.Literal)
	case Regex:
		return fmt.Sprintf("%d %s regex %s", d.ID, d.Name, d.Pattern)
	case Composite:
		return fmt.Sprintf("%d %s %s of %d", d.ID, d.Name, d.Multiplicity, len(d.Refs))
	}
	return fmt.Sprintf("%d %s %s", d.ID, d.Name, d.Type)
}

// Reference is one element of a composite's ordered list.
type Reference struct {
	Index    int // position in Database.References
	Parent   ID  // the composite owning this reference
	Target   string
	Resolved ID // zero until resolution binds it
	Min, Max int
	Pos      lexerr.Pos
}

func (r *Reference) String() string {
	target := "<unresolved>"
	if r.Resolved != 0 {
		target = fmt.Sprintf("#%d", r.Resolved)
	}
	return fmt.Sprintf("%s{%d,%s} -> %s", r.Target, r.Min, bound(r.Max), target)
}

// Rule pairs a definition with the action code run when it matches.
type Rule struct {
	ID         int // 1-based, in input order
	Name       string
	Definition ID
	Action     []byte
	Pos        lexerr.Pos
}

func bound(n int) string {
	if n == Unbounded {
		return "inf"
	}
	return fmt.Sprint(n)
}
