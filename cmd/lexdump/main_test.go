package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"lexgen/pkg/lexerr"
)

func TestRun_Sample(t *testing.T) {
	var out bytes.Buffer
	if err := run(cli{Tokens: true}, &out); err != nil {
		t.Fatalf("run() error = %v", err)
	}
	for _, want := range []string{"Tokens", "PERCENT_PERCENT", "Database", "TOK", "Generated code", "LEX_ALTERNATION", "return 3;"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("dump lacks %q", want)
		}
	}
}

func TestRun_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.l")
	if err := os.WriteFile(path, []byte("%%\nBAD MISSING\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	var out bytes.Buffer
	err := run(cli{LexFile: path}, &out)
	if lexerr.KindOf(err) != lexerr.NotFound {
		t.Fatalf("run() error = %v, expected NotFound", err)
	}
	if strings.Contains(out.String(), "Tokens") {
		t.Errorf("token dump printed with Tokens off")
	}
	if !strings.Contains(out.String(), "Database") {
		t.Errorf("database not dumped before the error")
	}
}
