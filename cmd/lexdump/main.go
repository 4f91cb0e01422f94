// Command lexdump prints the stages of compiling a lex file: the meta-token
// stream, the definition database and the generated section.
package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/alecthomas/kong"
	"github.com/fatih/color"

	"lexgen/pkg/codegen"
	"lexgen/pkg/compiler"
	"lexgen/pkg/generate"
	"lexgen/pkg/lexdb"
	"lexgen/pkg/lexerr"
	"lexgen/pkg/mmap"
	"lexgen/pkg/scan"
)

const testSource = `DIGIT [0-9]
ALPHA [A-Za-z]
%%
TOK ALPHA | DIGIT { return 3; }
%%
`

type cli struct {
	Tokens  bool   `help:"Dump the meta-token stream" default:"true" negatable:""`
	Verbose bool   `short:"v" help:"Log compiler progress to stderr"`
	NoColor bool   `help:"Disable colored headings" env:"NO_COLOR"`
	LexFile string `arg:"" optional:"" help:"Lex file to dump (default: a built-in sample)"`
}

func main() {
	var params cli
	kong.Parse(&params, kong.Name("lexdump"))
	if params.NoColor {
		color.NoColor = true
	}

	if err := run(params, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "lexdump:", err)
		os.Exit(1)
	}
}

func run(params cli, w io.Writer) error {
	src := []byte(testSource)
	name := "sample.l"
	if params.LexFile != "" {
		buf, err := mmap.Map(params.LexFile)
		if err != nil {
			return err
		}
		defer buf.Unmap()
		src = buf.Bytes
		name = filepath.Base(params.LexFile)
	}
	heading := color.New(color.FgCyan, color.Bold).SprintFunc()

	fmt.Fprintf(w, "%s\n%s\n", heading("Source"), src)

	if params.Tokens {
		tokens, err := dumpTokens(src)
		fmt.Fprintf(w, "%s (%d)\n", heading("Tokens"), len(tokens))
		for _, tok := range tokens {
			fmt.Fprintf(w, "  %s\n", tok)
		}
		fmt.Fprintln(w)
		if err != nil {
			return err
		}
	}

	logger := log.New(io.Discard, "", 0)
	if params.Verbose {
		logger = log.New(os.Stderr, "lexdump: ", 0)
	}
	var passthrough bytes.Buffer
	c, err := compiler.New(src, &passthrough, lexdb.DefaultLimits(), logger)
	if err != nil {
		return err
	}
	runErr := c.Run()
	if runErr == nil {
		runErr = c.Database().Resolve()
	}

	fmt.Fprintln(w, heading("Database"))
	fmt.Fprint(w, c.Database())
	fmt.Fprintln(w)
	if runErr != nil {
		return runErr
	}

	fmt.Fprintln(w, heading("Verbatim code"))
	fmt.Fprint(w, passthrough.String())
	fmt.Fprintln(w)

	out, err := codegen.Generate(c.Database(), codegen.Options{Source: name, Fingerprint: generate.Fingerprint(src)})
	if err != nil {
		return err
	}
	fmt.Fprintln(w, heading("Generated code"))
	fmt.Fprint(w, out)
	fmt.Fprintf(w, "\n%s\n%s", heading("User code"), c.UserCode())
	return nil
}

// dumpTokens splits src into meta-tokens using every rule of the lexicon.
func dumpTokens(src []byte) ([]scan.Token, error) {
	lx, err := compiler.NewLexicon()
	if err != nil {
		return nil, err
	}
	st := scan.NewState(src)
	var tokens []scan.Token
	for {
		tok, err := lx.Lex(lx.All, st)
		if errors.Is(err, lexerr.EndOfFile) {
			return tokens, nil
		}
		if err != nil {
			return tokens, err
		}
		tokens = append(tokens, tok)
	}
}
