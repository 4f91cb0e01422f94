package codegen

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"lexgen/pkg/compiler"
	"lexgen/pkg/lexdb"
	"lexgen/pkg/lexerr"
)

const sample = "DIGIT [0-9]\n" +
	"A \"a\"\n" +
	"TOK A DIGIT*\n" +
	"%%\n" +
	"NUM DIGIT+ { return 7; }\n" +
	"\"+\"\n"

func database(t *testing.T, src string) *lexdb.Database {
	t.Helper()
	var out bytes.Buffer
	c, err := compiler.New([]byte(src), &out, lexdb.DefaultLimits(), nil)
	if err != nil {
		t.Fatalf("compiler.New() error = %v", err)
	}
	if err := c.Run(); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	db := c.Database()
	if err := db.Resolve(); err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	return db
}

func generate(t *testing.T, db *lexdb.Database) string {
	t.Helper()
	code, err := Generate(db, Options{Source: "sample.lex", Fingerprint: "abc123"})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	return code
}

func TestGenerate_Lines(t *testing.T) {
	code := generate(t, database(t, sample))

	expected := []string{
		"/* Generated by lexgen from sample.lex (blake3 abc123). Do not edit. */",
		"static lex_category_definition lex_categories[39];",
		"static lex_literal_definition lex_literals[2];",
		"static lex_regex_definition lex_regexes[1];",
		"static lex_composite_definition lex_composites[2];",
		"static lex_reference lex_references[3];",
		"static lex_rule lex_rules[2];",
		"int lex_initialize(lex_database *db)",
		"db->first_definition = NULL;",
		`error = lex_regex_init(&lex_regexes[0], previous, 40, "DIGIT", "[0-9]");`,
		`error = lex_literal_init(&lex_literals[0], previous, 41, "A", "a", 1);`,
		`error = lex_composite_init(&lex_composites[0], previous, 42, "TOK", LEX_SEQUENCE);`,
		`error = lex_reference_init(&lex_references[0], &lex_composites[0], NULL, "A", 1, 1);`,
		`error = lex_reference_init(&lex_references[1], &lex_composites[0], &lex_references[0], "DIGIT", 0, LEX_UNBOUNDED);`,
		`error = lex_composite_init(&lex_composites[1], previous, 43, "NUM", LEX_SEQUENCE);`,
		`error = lex_reference_init(&lex_references[2], &lex_composites[1], NULL, "DIGIT", 1, LEX_UNBOUNDED);`,
		`error = lex_literal_init(&lex_literals[1], previous, 44, "rule_2", "+", 1);`,
		"previous = (lex_definition *) &lex_categories[0];",
		"error = lex_composite_resolve(db, &lex_composites[1], &unresolved);",
		`fprintf(stderr, "ERROR unresolved reference \"%s\"\n", unresolved);`,
		"definition = lex_definition_find_by_id(db, 43);",
		`error = lex_rule_init(&lex_rules[0], rule, 1, "rule_1", definition);`,
		`error = lex_rule_init(&lex_rules[1], rule, 2, "rule_2", definition);`,
		"int lex_dispatch(lex_token *token)",
		"case 1: /* rule_1: NUM */",
		"case 2: /* rule_2: rule_2 */",
		"return 2;",
		" return 7; ",
		"return LEX_ERROR_RULE;",
	}
	for _, want := range expected {
		if !strings.Contains(code, want) {
			t.Errorf("generated code lacks %q", want)
		}
	}
	if strings.Contains(code, "lex_reference *reference;") {
		t.Errorf("unused reference local declared")
	}
	if !strings.Contains(code, "UINT64_C(0x") {
		t.Errorf("category masks are not written as UINT64_C constants")
	}
}

func TestGenerate_Counts(t *testing.T) {
	db := database(t, sample)
	code := generate(t, db)

	tests := []struct {
		text  string
		count int
	}{
		{"case ", len(db.Rules)},
		{"db->first_definition = previous;", 1},
		{"db->first_rule = rule;", 1},
		{"lex_composite_resolve(", 2},
		{"lex_category_init(", 39},
		{"lex_rule_init(", 2},
		{"break;", 1},
	}
	for _, tt := range tests {
		if got := strings.Count(code, tt.text); got != tt.count {
			t.Errorf("%q appears %d times, expected %d", tt.text, got, tt.count)
		}
	}
}

func TestGenerate_TraversalOrder(t *testing.T) {
	code := generate(t, database(t, "B \"b\"\nA \"a\"\nB \"bb\"\nC A\n"))

	order := []string{`41, "A"`, `42, "B"`, `43, "C"`}
	last := -1
	for _, want := range order {
		i := strings.Index(code, want)
		if i < 0 {
			t.Fatalf("generated code lacks %q", want)
		}
		if i < last {
			t.Errorf("%q is emitted out of insertion order", want)
		}
		last = i
	}
	if strings.Contains(code, `40, "B"`) {
		t.Errorf("redefined definition is still emitted")
	}
	if !strings.Contains(code, "static lex_literal_definition lex_literals[2];") {
		t.Errorf("literal storage is not sized to the live definitions")
	}
}

func TestGenerate_NoRules(t *testing.T) {
	db := lexdb.NewEmpty(lexdb.DefaultLimits())
	code := generate(t, db)

	if strings.Contains(code, "static ") {
		t.Errorf("empty database declares storage:\n%s", code)
	}
	for _, absent := range []string{"lex_definition *previous", "int error;", "lex_definition *definition;", "const char *unresolved", "case "} {
		if strings.Contains(code, absent) {
			t.Errorf("empty database emits %q", absent)
		}
	}
	if !strings.Contains(code, "return LEX_OK;") {
		t.Errorf("init function does not return LEX_OK")
	}
}

func TestGenerate_Alternation(t *testing.T) {
	code := generate(t, database(t, "A \"a\"\nB \"b\"\nT A | B+\n"))
	if !strings.Contains(code, `"T", LEX_ALTERNATION);`) {
		t.Errorf("alternation composite not emitted:\n%s", code)
	}
}

func TestGenerate_Escaping(t *testing.T) {
	code := generate(t, database(t, "Q \"a\\\"?\\\\\"\n%%\nR Q { s = \"*/\"; }\n"))

	if !strings.Contains(code, `"Q", "a\"\077\\", 4);`) {
		t.Errorf("literal is not escaped:\n%s", code)
	}
	if !strings.Contains(code, `s = "*/";`) {
		t.Errorf("action code was altered")
	}
}

func TestEmit_Errors(t *testing.T) {
	var buf bytes.Buffer
	if _, err := Emit(&buf, nil, Options{}); !errors.Is(err, lexerr.NullInput) {
		t.Errorf("Emit(nil db) error = %v, expected NullInput", err)
	}
	if _, err := Emit(nil, lexdb.NewEmpty(lexdb.DefaultLimits()), Options{}); !errors.Is(err, lexerr.NullInput) {
		t.Errorf("Emit(nil writer) error = %v, expected NullInput", err)
	}

	t.Run("Unresolved reference", func(t *testing.T) {
		db := lexdb.NewEmpty(lexdb.DefaultLimits())
		d, err := db.InsertComposite("T", lexdb.Sequence)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := db.AppendReference(d.ID, "MISSING", 1, 1); err != nil {
			t.Fatal(err)
		}
		_, err = Generate(db, Options{})
		if !errors.Is(err, lexerr.NotFound) {
			t.Fatalf("Generate() error = %v, expected NotFound", err)
		}
		var e *lexerr.Error
		if !errors.As(err, &e) || e.Name != "MISSING" {
			t.Errorf("error names %v, expected MISSING", err)
		}
	})

	t.Run("Rule bound to a redefined definition", func(t *testing.T) {
		db := lexdb.NewEmpty(lexdb.DefaultLimits())
		x, err := db.InsertLiteral("X", []byte("x"))
		if err != nil {
			t.Fatal(err)
		}
		if _, err := db.AddRule("rule_1", x.ID, nil); err != nil {
			t.Fatal(err)
		}
		if _, err := db.InsertLiteral("X", []byte("y")); err != nil {
			t.Fatal(err)
		}
		_, err = Generate(db, Options{})
		var e *lexerr.Error
		if !errors.As(err, &e) || e.Kind != lexerr.NotFound || e.Name != "X" {
			t.Errorf("Generate() error = %v, expected NotFound naming X", err)
		}
	})

}

type failingWriter struct{ after int }

func (f *failingWriter) Write(p []byte) (int, error) {
	if f.after <= 0 {
		return 0, errors.New("disk full")
	}
	f.after--
	return len(p), nil
}

func TestEmit_WriteFailure(t *testing.T) {
	db := database(t, sample)
	n, err := Emit(&failingWriter{after: 3}, db, Options{Source: "sample.lex"})
	if !errors.Is(err, lexerr.FileWrite) {
		t.Fatalf("Emit() error = %v, expected FileWrite", err)
	}
	if n <= 0 {
		t.Errorf("Emit() reported %d bytes before the failure", n)
	}
}

func TestWriter(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	w.Line("a {")
	w.Indent()
	w.Line("b = %d;", 1)
	w.Indent()
	w.Line("")
	w.Line("c;")
	w.Dedent()
	w.Dedent()
	w.Dedent()
	w.Raw([]byte("raw\n"))
	w.Line("}")

	expected := "a {\n\tb = 1;\n\n\t\tc;\nraw\n}\n"
	if buf.String() != expected {
		t.Errorf("output = %q, expected %q", buf.String(), expected)
	}
	if w.Written() != int64(len(expected)) {
		t.Errorf("Written() = %d, expected %d", w.Written(), len(expected))
	}
	if w.Err() != nil {
		t.Errorf("Err() = %v", w.Err())
	}
}

func TestWriter_StickyError(t *testing.T) {
	fw := &failingWriter{after: 1}
	w := NewWriter(fw)
	w.Line("one")
	w.Line("two")
	w.Line("three")

	if !errors.Is(w.Err(), lexerr.FileWrite) {
		t.Fatalf("Err() = %v, expected FileWrite", w.Err())
	}
	if w.Written() != 4 {
		t.Errorf("Written() = %d, expected 4", w.Written())
	}
}
