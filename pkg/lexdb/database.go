package lexdb

import (
	"fmt"
	"strings"

	"github.com/ahrtr/gocontainer/set"
	"golang.org/x/text/unicode/norm"

	"lexgen/pkg/lexerr"
	"lexgen/pkg/unicat"
)

// Limits caps the size of a database. Exceeding a count is
// MaxLengthExceeded, an oversized name or payload is BadLength.
type Limits struct {
	MaxDefinitions   int
	MaxRules         int
	MaxReferences    int
	MaxNameLength    int
	MaxPayloadLength int
	MaxActionLength  int
}

func DefaultLimits() Limits {
	return Limits{
		MaxDefinitions:   4096,
		MaxRules:         4096,
		MaxReferences:    16384,
		MaxNameLength:    256,
		MaxPayloadLength: 65536,
		MaxActionLength:  1 << 20,
	}
}

// Database is the append-only table of definitions, references and rules.
//
// Every definition ever inserted stays in defs, indexed by ID-1. The names
// index points at the live definition of each name; a redefinition moves the
// index to the new ID and retires the old one. Traversal order is insertion
// order restricted to live definitions.
type Database struct {
	limits     Limits
	defs       []*Definition
	names      map[string]ID
	retired    set.Interface
	References []*Reference
	Rules      []*Rule
	categories int
}

// New returns a database pre-loaded with the named Unicode categories.
func New(limits Limits) (*Database, error) {
	db := NewEmpty(limits)
	for _, c := range unicat.Categories {
		if _, err := db.InsertCategory(c.Name, c.Mask, 1, 1); err != nil {
			return nil, err
		}
	}
	db.categories = len(db.defs)
	return db, nil
}

// NewEmpty returns a database without the pre-loaded categories.
func NewEmpty(limits Limits) *Database {
	return &Database{
		limits:  limits,
		names:   make(map[string]ID),
		retired: set.New(),
	}
}

func (db *Database) Limits() Limits { return db.limits }

// NumPreloaded is the number of categories inserted by New.
func (db *Database) NumPreloaded() int { return db.categories }

func (db *Database) checkName(name string) error {
	if name == "" {
		return lexerr.New(lexerr.BadLength, "empty definition name")
	}
	if db.limits.MaxNameLength > 0 && len(name) > db.limits.MaxNameLength {
		return lexerr.New(lexerr.BadLength, "definition name %.32q... longer than %d bytes", name, db.limits.MaxNameLength)
	}
	return nil
}

func (db *Database) checkPayload(what string, n int) error {
	if n == 0 {
		return lexerr.New(lexerr.BadLength, "empty %s", what)
	}
	if db.limits.MaxPayloadLength > 0 && n > db.limits.MaxPayloadLength {
		return lexerr.New(lexerr.BadLength, "%s of %d bytes exceeds %d", what, n, db.limits.MaxPayloadLength)
	}
	return nil
}

// insert appends d, assigns its ID and makes it the live definition of its
// name, retiring any previous one.
func (db *Database) insert(d *Definition) (*Definition, error) {
	d.Name = norm.NFC.String(d.Name)
	if err := db.checkName(d.Name); err != nil {
		return nil, err
	}
	if db.limits.MaxDefinitions > 0 && len(db.defs) >= db.limits.MaxDefinitions {
		return nil, lexerr.New(lexerr.MaxLengthExceeded, "more than %d definitions", db.limits.MaxDefinitions)
	}
	d.ID = ID(len(db.defs) + 1)
	if old, ok := db.names[d.Name]; ok {
		db.retired.Add(old)
	}
	db.defs = append(db.defs, d)
	db.names[d.Name] = d.ID
	return d, nil
}

func (db *Database) InsertCategory(name string, mask unicat.Mask, min, max int) (*Definition, error) {
	if mask == 0 {
		return nil, lexerr.New(lexerr.NullInput, "category %q has an empty mask", name)
	}
	if min < 0 || (max != Unbounded && max < min) {
		return nil, lexerr.New(lexerr.BadLength, "category %q has bad bounds {%d,%d}", name, min, max)
	}
	return db.insert(&Definition{Name: name, Type: Category, Mask: mask, Min: min, Max: max})
}

func (db *Database) InsertLiteral(name string, literal []byte) (*Definition, error) {
	if err := db.checkPayload("literal", len(literal)); err != nil {
		return nil, err
	}
	return db.insert(&Definition{Name: name, Type: Literal, Literal: append([]byte(nil), literal...)})
}

func (db *Database) InsertRegex(name, pattern string) (*Definition, error) {
	if err := db.checkPayload("regex", len(pattern)); err != nil {
		return nil, err
	}
	return db.insert(&Definition{Name: name, Type: Regex, Pattern: pattern})
}

func (db *Database) InsertComposite(name string, kind Multiplicity) (*Definition, error) {
	if kind != Sequence && kind != Alternation {
		return nil, lexerr.New(lexerr.BadMultiType, "composite %q has multiplicity %d", name, int(kind))
	}
	return db.insert(&Definition{Name: name, Type: Composite, Multiplicity: kind})
}

// AppendReference adds a reference to the tail of a composite's list.
func (db *Database) AppendReference(composite ID, target string, min, max int) (*Reference, error) {
	d, err := db.LookupByID(composite)
	if err != nil {
		return nil, err
	}
	if d.Type != Composite {
		return nil, lexerr.New(lexerr.DefinitionType, "definition %q is a %s, not a composite", d.Name, d.Type)
	}
	target = norm.NFC.String(target)
	if err := db.checkName(target); err != nil {
		return nil, err
	}
	if db.limits.MaxReferences > 0 && len(db.References) >= db.limits.MaxReferences {
		return nil, lexerr.New(lexerr.MaxLengthExceeded, "more than %d references", db.limits.MaxReferences)
	}
	ref := &Reference{
		Index:  len(db.References),
		Parent: composite,
		Target: target,
		Min:    min,
		Max:    max,
	}
	db.References = append(db.References, ref)
	d.Refs = append(d.Refs, ref.Index)
	return ref, nil
}

// Reference returns the i-th reference of composite d.
func (db *Database) Reference(d *Definition, i int) *Reference {
	return db.References[d.Refs[i]]
}

// AddRule registers a rule bound to def. Rule IDs are 1-based in insertion order.
func (db *Database) AddRule(name string, def ID, action []byte) (*Rule, error) {
	if _, err := db.LookupByID(def); err != nil {
		return nil, err
	}
	if db.limits.MaxRules > 0 && len(db.Rules) >= db.limits.MaxRules {
		return nil, lexerr.New(lexerr.MaxLengthExceeded, "more than %d rules", db.limits.MaxRules)
	}
	if db.limits.MaxActionLength > 0 && len(action) > db.limits.MaxActionLength {
		return nil, lexerr.New(lexerr.BadLength, "action code of %d bytes exceeds %d", len(action), db.limits.MaxActionLength)
	}
	r := &Rule{
		ID:         len(db.Rules) + 1,
		Name:       name,
		Definition: def,
		Action:     append([]byte(nil), action...),
	}
	db.Rules = append(db.Rules, r)
	return r, nil
}

// LookupByName returns the live definition of name, or nil.
func (db *Database) LookupByName(name string) *Definition {
	id, ok := db.names[norm.NFC.String(name)]
	if !ok {
		return nil
	}
	return db.defs[id-1]
}

// LookupByID returns any definition ever inserted, live or retired.
func (db *Database) LookupByID(id ID) (*Definition, error) {
	if id <= 0 || int(id) > len(db.defs) {
		return nil, lexerr.New(lexerr.NotFound, "no definition with id %d", id)
	}
	return db.defs[id-1], nil
}

// IsLive reports whether id is the current definition of its name.
func (db *Database) IsLive(id ID) bool {
	return id > 0 && int(id) <= len(db.defs) && !db.retired.Contains(id)
}

// NumInserted counts every definition ever inserted, retired ones included.
func (db *Database) NumInserted() int { return len(db.defs) }

// NumDefinitions counts the live definitions.
func (db *Database) NumDefinitions() int { return len(db.names) }

// NumRetired counts definitions unlinked by a later one of the same name.
func (db *Database) NumRetired() int { return db.retired.Size() }

// Count returns the number of live definitions of type t.
func (db *Database) Count(t Type) int {
	n := 0
	db.Walk(func(d *Definition) bool {
		if d.Type == t {
			n++
		}
		return true
	})
	return n
}

// Walk calls fn for each live definition in insertion order until fn
// returns false.
func (db *Database) Walk(fn func(d *Definition) bool) {
	for _, d := range db.defs {
		if db.retired.Contains(d.ID) {
			continue
		}
		if !fn(d) {
			return
		}
	}
}

// Definitions returns the live definitions in traversal order.
func (db *Database) Definitions() []*Definition {
	out := make([]*Definition, 0, len(db.names))
	db.Walk(func(d *Definition) bool {
		out = append(out, d)
		return true
	})
	return out
}

// Prev returns the live definition preceding id in traversal order, or nil
// for the first one. IDs only grow, so walking backwards always terminates.
func (db *Database) Prev(id ID) *Definition {
	for i := int(id) - 2; i >= 0; i-- {
		if !db.retired.Contains(db.defs[i].ID) {
			return db.defs[i]
		}
	}
	return nil
}

// String returns a deterministically ordered dump of the live database.
func (db *Database) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Definitions (%d live, %d retired):\n", db.NumDefinitions(), db.NumRetired())
	db.Walk(func(d *Definition) bool {
		if int(d.ID) <= db.categories {
			return true
		}
		fmt.Fprintf(&sb, "  %s\n", d)
		for i := range d.Refs {
			fmt.Fprintf(&sb, "    %s\n", db.Reference(d, i))
		}
		return true
	})
	if len(db.Rules) > 0 {
		sb.WriteString("Rules:\n")
		for _, r := range db.Rules {
			fmt.Fprintf(&sb, "  %d %s -> #%d %q\n", r.ID, r.Name, r.Definition, r.Action)
		}
	} else {
		sb.WriteString("Rules: (empty)\n")
	}
	return sb.String()
}
