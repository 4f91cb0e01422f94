package generate

import (
	"bytes"
	"errors"
	"log"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"lexgen/pkg/lexerr"
	"lexgen/pkg/vfs"
)

const lexSource = "%{\n" +
	"#include <ctype.h>\n" +
	"%}\n" +
	"DIGIT [0-9]\n" +
	"%%\n" +
	"NUMBER DIGIT+ { return 1; }\n" +
	"%%\n" +
	"int user_code;\n"

// fixture writes a lex file and the C and C++ templates into a temporary
// directory and returns the lex file path.
func fixture(t *testing.T, src string) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"scanner.lex": src,
		"head.c":      "/* HEAD */\n",
		"tail.c":      "/* TAIL */\n",
		"head.cc":     "// HEAD\n",
		"tail.cc":     "// TAIL\n",
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return filepath.Join(dir, "scanner.lex")
}

func TestGenerate_Order(t *testing.T) {
	lexPath := fixture(t, lexSource)
	disk := vfs.NewVirtualDisk(0)
	var logs bytes.Buffer

	res, err := Generate(Options{
		Language:    "c",
		LexPath:     lexPath,
		TemplateDir: filepath.Dir(lexPath),
		Disk:        disk,
		Logger:      log.New(&logs, "", 0),
	})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	expectedPath := filepath.Join(filepath.Dir(lexPath), "scanner.c")
	if res.OutputPath != expectedPath {
		t.Errorf("OutputPath = %q, expected %q", res.OutputPath, expectedPath)
	}
	data, err := disk.Read(res.OutputPath)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	out := string(data)
	if res.Bytes != int64(len(data)) {
		t.Errorf("Bytes = %d, file holds %d", res.Bytes, len(data))
	}

	order := []string{
		"/* HEAD */",
		"#include <ctype.h>",
		"(blake3 " + res.Fingerprint + ")",
		"int lex_initialize(lex_database *db)",
		"int lex_dispatch(lex_token *token)",
		"int user_code;",
		"/* TAIL */",
	}
	last := -1
	for _, want := range order {
		i := strings.Index(out, want)
		if i < 0 {
			t.Fatalf("output lacks %q:\n%s", want, out)
		}
		if i <= last {
			t.Errorf("%q is out of order", want)
		}
		last = i
	}
	if !strings.HasPrefix(out, "/* HEAD */\n") || !strings.HasSuffix(out, "/* TAIL */\n") {
		t.Errorf("templates do not frame the output")
	}
	if strings.Contains(out, "%{") || strings.Contains(out, "%%") {
		t.Errorf("section markers leaked into the output")
	}

	src, _ := os.ReadFile(lexPath)
	if res.Fingerprint != Fingerprint(src) || len(res.Fingerprint) != 64 {
		t.Errorf("Fingerprint = %q", res.Fingerprint)
	}
	if res.Database == nil || res.Database.LookupByName("NUMBER") == nil {
		t.Errorf("result database lacks the rule definition")
	}
	if !strings.Contains(logs.String(), "writing "+expectedPath) {
		t.Errorf("log does not name the output file:\n%s", logs.String())
	}
}

func TestGenerate_CPlusPlus(t *testing.T) {
	lexPath := fixture(t, lexSource)
	disk := vfs.NewVirtualDisk(0)
	out := filepath.Join(t.TempDir(), "gen", "lexer.cc")

	res, err := Generate(Options{
		Language:    "C++",
		LexPath:     lexPath,
		TemplateDir: filepath.Dir(lexPath),
		OutputPath:  out,
		Disk:        disk,
	})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	data, _ := disk.Read(out)
	if !strings.HasPrefix(string(data), "// HEAD\n") || !strings.HasSuffix(string(data), "// TAIL\n") {
		t.Errorf("C++ templates not used:\n%s", data)
	}
	if res.OutputPath != out {
		t.Errorf("OutputPath = %q, expected %q", res.OutputPath, out)
	}
}

func TestGenerate_OSDisk(t *testing.T) {
	lexPath := fixture(t, lexSource)
	res, err := Generate(Options{Language: "c", LexPath: lexPath, TemplateDir: filepath.Dir(lexPath)})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	info, err := os.Stat(res.OutputPath)
	if err != nil {
		t.Fatalf("output file missing: %v", err)
	}
	if info.Size() != res.Bytes {
		t.Errorf("file size %d, reported %d", info.Size(), res.Bytes)
	}
}

func TestGenerate_Errors(t *testing.T) {
	tests := []struct {
		name     string
		src      string
		language string
		noLex    bool
		tmplDir  string
		kind     lexerr.Kind
	}{
		{name: "Unknown language", src: lexSource, language: "pascal", kind: lexerr.NotFound},
		{name: "No lex file", src: lexSource, language: "c", noLex: true, kind: lexerr.NullInput},
		{name: "Empty lex file", src: "", language: "c", kind: lexerr.BadLength},
		{name: "Missing templates", src: lexSource, language: "c", tmplDir: "nowhere", kind: lexerr.FileOpen},
		{name: "Syntax error", src: "A \"abc\n", language: "c", kind: lexerr.BadToken},
		{name: "Unresolved reference", src: "A \"a\"\nB A MISSING\n", language: "c", kind: lexerr.NotFound},
		{name: "Forward reference from a rule", src: "%%\nR LATER\n", language: "c", kind: lexerr.NotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lexPath := fixture(t, tt.src)
			dir := filepath.Dir(lexPath)
			tmplDir := dir
			if tt.tmplDir != "" {
				tmplDir = filepath.Join(dir, tt.tmplDir)
			}
			opts := Options{Language: tt.language, LexPath: lexPath, TemplateDir: tmplDir}
			if tt.noLex {
				opts.LexPath = ""
			}

			disk := vfs.NewVirtualDisk(0)
			opts.Disk = disk
			res, err := Generate(opts)
			if !errors.Is(err, tt.kind) {
				t.Fatalf("Generate() error = %v, expected %s", err, tt.kind)
			}
			if res != nil {
				t.Errorf("Generate() returned a result with an error")
			}
			if files := disk.List(); len(files) != 0 {
				t.Errorf("output left behind on the virtual disk: %v", files)
			}

			opts.Disk = nil
			if _, err := Generate(opts); !errors.Is(err, tt.kind) {
				t.Fatalf("Generate() on the host disk error = %v, expected %s", err, tt.kind)
			}
			if _, err := os.Stat(filepath.Join(dir, "scanner.c")); !os.IsNotExist(err) {
				t.Errorf("output left behind on the host disk: %v", err)
			}
		})
	}
}

func TestGenerate_UnresolvedNamesTarget(t *testing.T) {
	lexPath := fixture(t, "A \"a\"\nB A MISSING\n")
	_, err := Generate(Options{Language: "c", LexPath: lexPath, TemplateDir: filepath.Dir(lexPath), Disk: vfs.NewVirtualDisk(0)})

	var e *lexerr.Error
	if !errors.As(err, &e) {
		t.Fatalf("Generate() error = %v, expected a *lexerr.Error", err)
	}
	if e.Name != "MISSING" || e.Pos.Line != 2 || e.Pos.Column != 5 {
		t.Errorf("error = %+v, expected MISSING at [2.5]", e)
	}
}

func TestGenerate_QuotaExceeded(t *testing.T) {
	lexPath := fixture(t, lexSource)
	disk := vfs.NewVirtualDisk(64)
	_, err := Generate(Options{Language: "c", LexPath: lexPath, TemplateDir: filepath.Dir(lexPath), Disk: disk})

	if !errors.Is(err, lexerr.FileWrite) || !errors.Is(err, vfs.ErrQuotaExceeded) {
		t.Fatalf("Generate() error = %v, expected a FileWrite quota failure", err)
	}
	if files := disk.List(); len(files) != 0 {
		t.Errorf("partial output left behind: %v", files)
	}
	if disk.UsedBytes != 0 {
		t.Errorf("UsedBytes = %d after removal", disk.UsedBytes)
	}
}

func TestOutputPath(t *testing.T) {
	tests := []struct {
		lexPath  string
		ext      string
		expected string
	}{
		{"scanner.lex", ".c", "scanner.c"},
		{"dir/scanner.l", ".cc", "dir/scanner.cc"},
		{"scanner", ".c", "scanner.c"},
		{"a.b/scanner.lex", ".c", "a.b/scanner.c"},
	}
	for _, tt := range tests {
		if got := OutputPath(tt.lexPath, tt.ext); got != tt.expected {
			t.Errorf("OutputPath(%q, %q) = %q, expected %q", tt.lexPath, tt.ext, got, tt.expected)
		}
	}
}

func TestExtension(t *testing.T) {
	if got := Languages(); !reflect.DeepEqual(got, []string{"c", "c++", "cpp"}) {
		t.Errorf("Languages() = %v", got)
	}
	for lang, ext := range map[string]string{"c": ".c", "C": ".c", "c++": ".cc", "cpp": ".cc"} {
		got, err := Extension(lang)
		if err != nil || got != ext {
			t.Errorf("Extension(%q) = %q, %v, expected %q", lang, got, err, ext)
		}
	}
	_, err := Extension("rust")
	var e *lexerr.Error
	if !errors.As(err, &e) || e.Kind != lexerr.NotFound || e.Name != "rust" {
		t.Errorf("Extension(\"rust\") error = %v", err)
	}
}
