package lexdb

import (
	"lexgen/pkg/lexerr"
)

// Unresolved describes a reference that has no live definition.
type Unresolved struct {
	Composite *Definition
	Reference *Reference
}

// ResolveComposite binds every reference of d to the live definition of its
// target name. It returns the first reference left unbound, or nil.
func (db *Database) ResolveComposite(d *Definition) (*Unresolved, error) {
	if d == nil {
		return nil, lexerr.New(lexerr.NullInput, "resolve of a nil composite")
	}
	if d.Type != Composite {
		return nil, lexerr.New(lexerr.DefinitionType, "definition %q is a %s, not a composite", d.Name, d.Type)
	}
	var first *Unresolved
	for i := range d.Refs {
		ref := db.Reference(d, i)
		ref.Resolved = 0
		if target := db.LookupByName(ref.Target); target != nil {
			ref.Resolved = target.ID
			continue
		}
		if first == nil {
			first = &Unresolved{Composite: d, Reference: ref}
		}
	}
	return first, nil
}

// Resolve binds the references of every live composite in insertion order
// and fails with NotFound on the first one that cannot be bound.
func (db *Database) Resolve() error {
	var err error
	db.Walk(func(d *Definition) bool {
		if d.Type != Composite {
			return true
		}
		var u *Unresolved
		u, err = db.ResolveComposite(d)
		if err == nil && u != nil {
			err = u.Err()
		}
		return err == nil
	})
	return err
}

// Err converts u into a NotFound error positioned at the reference, or at
// the composite when the reference position is unknown.
func (u *Unresolved) Err() error {
	pos := u.Reference.Pos
	if !pos.IsValid() {
		pos = u.Composite.Pos
	}
	e := lexerr.At(lexerr.NotFound, pos, "composite %q references an undefined name", u.Composite.Name)
	e.Name = u.Reference.Target
	return e
}
