// Package codegen serializes a resolved definition database as C source:
// static storage sized to the database, an init function rebuilding the
// database in insertion order, and a dispatch switch running each rule's
// action code.
package codegen

import (
	"io"
	"strconv"
	"strings"

	"lexgen/pkg/lexerr"
	"lexgen/pkg/lexdb"
)

// Options describe the banner written above the generated code.
type Options struct {
	Source      string // lex file name
	Fingerprint string // hex digest of the lex file
}

// CodeGen walks a database and emits the generated section.
type CodeGen struct {
	db   *lexdb.Database
	w    *Writer
	opts Options

	// declared totals, from the storage declarations
	totals map[lexdb.Type]int
	// running counts, per variant
	counts map[lexdb.Type]int

	numRefs int
	refBase map[lexdb.ID]int // first emitted reference index of a composite
}

var arrays = map[lexdb.Type]struct{ ctype, name string }{
	lexdb.Category:  {"lex_category_definition", "lex_categories"},
	lexdb.Literal:   {"lex_literal_definition", "lex_literals"},
	lexdb.Regex:     {"lex_regex_definition", "lex_regexes"},
	lexdb.Composite: {"lex_composite_definition", "lex_composites"},
}

var variants = []lexdb.Type{lexdb.Category, lexdb.Literal, lexdb.Regex, lexdb.Composite}

func newCodeGen(db *lexdb.Database, w io.Writer, opts Options) *CodeGen {
	return &CodeGen{
		db:      db,
		w:       NewWriter(w),
		opts:    opts,
		totals:  make(map[lexdb.Type]int),
		counts:  make(map[lexdb.Type]int),
		refBase: make(map[lexdb.ID]int),
	}
}

// Emit writes the generated section for db to w and returns the number of
// bytes written. Every composite of db must already be resolved.
func Emit(w io.Writer, db *lexdb.Database, opts Options) (int64, error) {
	if db == nil || w == nil {
		return 0, lexerr.New(lexerr.NullInput, "emit needs a database and a writer")
	}
	cg := newCodeGen(db, w, opts)
	if err := cg.emit(); err != nil {
		return cg.w.Written(), err
	}
	return cg.w.Written(), cg.w.Err()
}

// Generate returns the generated section as a string.
func Generate(db *lexdb.Database, opts Options) (string, error) {
	var sb strings.Builder
	if _, err := Emit(&sb, db, opts); err != nil {
		return "", err
	}
	return sb.String(), nil
}

func (cg *CodeGen) emit() error {
	cg.banner()
	if err := cg.declarations(); err != nil {
		return err
	}
	if err := cg.initFunction(); err != nil {
		return err
	}
	if err := cg.dispatch(); err != nil {
		return err
	}
	return cg.w.Err()
}

func (cg *CodeGen) banner() {
	source, _ := PrintableEscape([]byte(cg.opts.Source), 0, CommentMode)
	cg.w.Line("")
	if cg.opts.Fingerprint != "" {
		cg.w.Line("/* Generated by lexgen from %s (blake3 %s). Do not edit. */", source, cg.opts.Fingerprint)
	} else {
		cg.w.Line("/* Generated by lexgen from %s. Do not edit. */", source)
	}
	cg.w.Line("")
}

// declarations sizes one static array per variant, one for references and
// one for rules.
func (cg *CodeGen) declarations() error {
	for _, t := range variants {
		cg.totals[t] = cg.db.Count(t)
	}
	var err error
	cg.db.Walk(func(d *lexdb.Definition) bool {
		if d.Type != lexdb.Composite {
			return true
		}
		cg.refBase[d.ID] = cg.numRefs
		cg.numRefs += len(d.Refs)
		if cg.numRefs > cg.db.Limits().MaxReferences && cg.db.Limits().MaxReferences > 0 {
			err = lexerr.New(lexerr.MaxLengthExceeded, "more than %d references", cg.db.Limits().MaxReferences)
			return false
		}
		return true
	})
	if err != nil {
		return err
	}

	for _, t := range variants {
		if n := cg.totals[t]; n > 0 {
			a := arrays[t]
			cg.w.Line("static %s %s[%d];", a.ctype, a.name, n)
		}
	}
	if cg.numRefs > 0 {
		cg.w.Line("static lex_reference lex_references[%d];", cg.numRefs)
	}
	if n := len(cg.db.Rules); n > 0 {
		cg.w.Line("static lex_rule lex_rules[%d];", n)
	}
	cg.w.Line("")
	return nil
}

func (cg *CodeGen) initFunction() error {
	w := cg.w
	w.Line("int lex_initialize(lex_database *db)")
	w.Line("{")
	w.Indent()
	if cg.db.NumDefinitions() > 0 {
		w.Line("lex_definition *previous = NULL;")
	}
	if len(cg.db.Rules) > 0 {
		w.Line("lex_definition *definition;")
		w.Line("lex_rule *rule = NULL;")
	}
	if cg.numRefs > 0 {
		w.Line("const char *unresolved = NULL;")
	}
	if cg.db.NumDefinitions() > 0 {
		w.Line("int error;")
	}
	w.Line("")
	w.Line("db->first_definition = NULL;")
	w.Line("db->first_rule = NULL;")

	if err := cg.definitions(); err != nil {
		return err
	}
	if err := cg.resolveSteps(); err != nil {
		return err
	}
	if err := cg.rules(); err != nil {
		return err
	}

	w.Line("return LEX_OK;")
	w.Dedent()
	w.Line("}")
	w.Line("")
	return nil
}

// definitions emits one init call per live definition in traversal order,
// checking the walk against the declared totals.
func (cg *CodeGen) definitions() error {
	total := cg.db.NumDefinitions()
	emitted := 0
	var prev *lexdb.Definition
	var err error
	cg.db.Walk(func(d *lexdb.Definition) bool {
		if emitted >= total {
			err = lexerr.New(lexerr.InfiniteLoop, "definition %q found after the declared %d", d.Name, total)
			return false
		}
		if want := cg.db.Prev(d.ID); want != prev {
			err = lexerr.New(lexerr.State, "definition %q is out of traversal order", d.Name)
			return false
		}
		err = cg.definition(d, emitted == 0)
		emitted++
		prev = d
		return err == nil
	})
	if err != nil {
		return err
	}
	if emitted != total {
		return lexerr.New(lexerr.InfiniteLoop, "definition list ended after %d of %d", emitted, total)
	}
	for _, t := range variants {
		if cg.counts[t] != cg.totals[t] {
			return lexerr.New(lexerr.State, "emitted %d %s definitions, declared %d", cg.counts[t], t, cg.totals[t])
		}
	}
	return nil
}

func (cg *CodeGen) definition(d *lexdb.Definition, first bool) error {
	a, ok := arrays[d.Type]
	if !ok {
		return lexerr.New(lexerr.DefinitionType, "definition %q has type %s", d.Name, d.Type)
	}
	index := cg.counts[d.Type]
	if index >= cg.totals[d.Type] {
		return lexerr.New(lexerr.InfiniteLoop, "more %s definitions than the declared %d", d.Type, cg.totals[d.Type])
	}
	cg.counts[d.Type]++

	name, err := PrintableEscape([]byte(d.Name), cg.db.Limits().MaxNameLength, StringMode)
	if err != nil {
		return err
	}
	elem := a.name + "[" + strconv.Itoa(index) + "]"
	w := cg.w
	w.Line("")
	switch d.Type {
	case lexdb.Category:
		w.Line("error = lex_category_init(&%s, previous, %d, \"%s\", UINT64_C(0x%x), %d, %s);",
			elem, d.ID, name, uint64(d.Mask), d.Min, bound(d.Max))
	case lexdb.Literal:
		lit, err := PrintableEscape(d.Literal, cg.db.Limits().MaxPayloadLength, StringMode)
		if err != nil {
			return err
		}
		w.Line("error = lex_literal_init(&%s, previous, %d, \"%s\", \"%s\", %d);",
			elem, d.ID, name, lit, len(d.Literal))
	case lexdb.Regex:
		pat, err := PrintableEscape([]byte(d.Pattern), cg.db.Limits().MaxPayloadLength, StringMode)
		if err != nil {
			return err
		}
		w.Line("error = lex_regex_init(&%s, previous, %d, \"%s\", \"%s\");", elem, d.ID, name, pat)
	case lexdb.Composite:
		kind, err := multiplicity(d)
		if err != nil {
			return err
		}
		w.Line("error = lex_composite_init(&%s, previous, %d, \"%s\", %s);", elem, d.ID, name, kind)
	}
	cg.check()
	w.Line("previous = (lex_definition *) &%s;", elem)
	if first {
		w.Line("db->first_definition = previous;")
	}
	if d.Type == lexdb.Composite {
		return cg.references(d, elem)
	}
	return nil
}

// references links each reference to its composite and to the reference
// before it.
func (cg *CodeGen) references(d *lexdb.Definition, parent string) error {
	w := cg.w
	base := cg.refBase[d.ID]
	for i := range d.Refs {
		ref := cg.db.Reference(d, i)
		target, err := PrintableEscape([]byte(ref.Target), cg.db.Limits().MaxNameLength, StringMode)
		if err != nil {
			return err
		}
		before := "NULL"
		if i > 0 {
			before = "&lex_references[" + strconv.Itoa(base+i-1) + "]"
		}
		w.Line("error = lex_reference_init(&lex_references[%d], &%s, %s, \"%s\", %d, %s);",
			base+i, parent, before, target, ref.Min, bound(ref.Max))
		cg.check()
	}
	return nil
}

// resolveSteps binds composite references at run time once every
// definition exists, reporting the offending name like the compiler does.
func (cg *CodeGen) resolveSteps() error {
	if cg.totals[lexdb.Composite] == 0 {
		return nil
	}
	w := cg.w
	index := 0
	var err error
	cg.db.Walk(func(d *lexdb.Definition) bool {
		if d.Type != lexdb.Composite {
			return true
		}
		if index >= cg.totals[lexdb.Composite] {
			err = lexerr.New(lexerr.InfiniteLoop, "more composites than the declared %d", cg.totals[lexdb.Composite])
			return false
		}
		for i := range d.Refs {
			if cg.db.Reference(d, i).Resolved == 0 {
				u := &lexdb.Unresolved{Composite: d, Reference: cg.db.Reference(d, i)}
				err = u.Err()
				return false
			}
		}
		w.Line("")
		w.Line("error = lex_composite_resolve(db, &lex_composites[%d], &unresolved);", index)
		w.Line("if (error != LEX_OK) {")
		w.Indent()
		w.Line(`fprintf(stderr, "ERROR unresolved reference \"%%s\"\n", unresolved);`)
		w.Line("return LEX_ERROR_NOT_FOUND;")
		w.Dedent()
		w.Line("}")
		index++
		return true
	})
	return err
}

// rules binds each rule to its definition by compile-time id.
func (cg *CodeGen) rules() error {
	w := cg.w
	for i, r := range cg.db.Rules {
		if r.ID != i+1 {
			return lexerr.New(lexerr.State, "rule %q has id %d at position %d", r.Name, r.ID, i+1)
		}
		if !cg.db.IsLive(r.Definition) {
			d, _ := cg.db.LookupByID(r.Definition)
			e := lexerr.At(lexerr.NotFound, r.Pos, "rule %s is bound to a redefined definition", r.Name)
			if d != nil {
				e.Name = d.Name
			}
			return e
		}
		name, err := PrintableEscape([]byte(r.Name), cg.db.Limits().MaxNameLength, StringMode)
		if err != nil {
			return err
		}
		before := "rule"
		w.Line("")
		w.Line("definition = lex_definition_find_by_id(db, %d);", r.Definition)
		w.Line("if (definition == NULL)")
		w.Indent()
		w.Line("return LEX_ERROR_NOT_FOUND;")
		w.Dedent()
		w.Line("error = lex_rule_init(&lex_rules[%d], %s, %d, \"%s\", definition);", i, before, r.ID, name)
		cg.check()
		w.Line("rule = &lex_rules[%d];", i)
		if i == 0 {
			w.Line("db->first_rule = rule;")
		}
	}
	w.Line("")
	return nil
}

// dispatch emits the switch on rule identity. Each arm holds the rule's
// action code verbatim; an empty action returns the rule id.
func (cg *CodeGen) dispatch() error {
	w := cg.w
	w.Line("int lex_dispatch(lex_token *token)")
	w.Line("{")
	w.Indent()
	w.Line("switch (token->rule->id) {")
	for _, r := range cg.db.Rules {
		d, err := cg.db.LookupByID(r.Definition)
		if err != nil {
			return err
		}
		comment, _ := PrintableEscape([]byte(r.Name+": "+d.Name), 0, CommentMode)
		w.Line("case %d: /* %s */", r.ID, comment)
		w.Indent()
		if len(strings.TrimSpace(string(r.Action))) == 0 {
			w.Line("return %d;", r.ID)
		} else {
			w.Line("{")
			w.Raw(r.Action)
			w.Raw([]byte("\n"))
			w.Line("}")
			w.Line("break;")
		}
		w.Dedent()
	}
	w.Line("default:")
	w.Indent()
	w.Line("return LEX_ERROR_RULE;")
	w.Dedent()
	w.Line("}")
	w.Line("return LEX_OK;")
	w.Dedent()
	w.Line("}")
	return nil
}

func (cg *CodeGen) check() {
	cg.w.Line("if (error != LEX_OK)")
	cg.w.Indent()
	cg.w.Line("return error;")
	cg.w.Dedent()
}

func multiplicity(d *lexdb.Definition) (string, error) {
	switch d.Multiplicity {
	case lexdb.Sequence:
		return "LEX_SEQUENCE", nil
	case lexdb.Alternation:
		return "LEX_ALTERNATION", nil
	}
	return "", lexerr.New(lexerr.BadMultiType, "composite %q has multiplicity %d", d.Name, int(d.Multiplicity))
}

func bound(n int) string {
	if n == lexdb.Unbounded {
		return "LEX_UNBOUNDED"
	}
	return strconv.Itoa(n)
}
