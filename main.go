// Command lexgen compiles a lex file into a lexical analyzer.
package main

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/alecthomas/kong"
	"github.com/fatih/color"

	"lexgen/pkg/generate"
	"lexgen/pkg/lexerr"
	"lexgen/pkg/utils"
	"lexgen/pkg/vfs"
)

type cli struct {
	Lang      string `short:"l" help:"Target language (c, c++, cpp)" env:"LEXGEN_LANG" default:"c"`
	Templates string `short:"t" help:"Directory holding the head and tail templates" env:"LEXGEN_TEMPLATES" default:"templates"`
	Out       string `short:"o" help:"Output file (default: the lex file with the language extension)"`
	Verbose   bool   `short:"v" help:"Log progress to stderr"`
	NoColor   bool   `help:"Disable colored diagnostics" env:"NO_COLOR"`
	DryRun    bool   `help:"Generate in memory and print the result to stdout"`
	LexFile   string `arg:"" help:"Lex file to compile" type:"existingfile"`
}

func main() {
	var params cli
	kong.Parse(&params,
		kong.Name("lexgen"),
		kong.Description("Compile a lex file into a lexical analyzer."),
	)
	if params.NoColor {
		color.NoColor = true
	}

	if err := run(params, os.Stdout, os.Stderr); err != nil {
		printError(os.Stderr, err)
		os.Exit(1)
	}
}

func run(params cli, stdout, stderr io.Writer) error {
	lexPath, lexDir, err := utils.GetPathInfo(params.LexFile)
	if err != nil {
		return lexerr.Wrap(lexerr.FileOpen, err, "resolving %s", params.LexFile)
	}
	opts := generate.Options{
		Language:    params.Lang,
		LexPath:     lexPath,
		TemplateDir: utils.FindDir(params.Templates, lexDir),
		OutputPath:  params.Out,
	}
	logger := log.New(io.Discard, "", 0)
	if params.Verbose {
		logger = log.New(stderr, "lexgen: ", 0)
	}
	opts.Logger = logger

	var mem *vfs.VirtualDisk
	if params.DryRun {
		mem = vfs.NewVirtualDisk(0)
		opts.Disk = mem
	}

	res, err := generate.Generate(opts)
	if err != nil {
		return err
	}

	if mem != nil {
		data, err := mem.Read(res.OutputPath)
		if err != nil {
			return lexerr.Wrap(lexerr.FileDescriptor, err, "reading %s back", res.OutputPath)
		}
		reportDryRun(logger, mem)
		_, err = stdout.Write(data)
		return err
	}
	fmt.Fprintf(stdout, "generated %d bytes -> %s\n", res.Bytes, res.OutputPath)
	return nil
}

// reportDryRun logs what the in-memory disk holds after a dry run.
func reportDryRun(logger *log.Logger, mem *vfs.VirtualDisk) {
	for _, name := range mem.List() {
		size, err := mem.Size(name)
		if err != nil {
			continue
		}
		logger.Printf("dry run: %s (%d bytes, not written)", name, size)
	}
	logger.Printf("dry run: %d bytes of %d used", mem.Quota-mem.FreeSpace(), mem.Quota)
}

// printError renders err as "ERROR <kind> [line.column]: message".
func printError(w io.Writer, err error) {
	red := color.New(color.FgRed, color.Bold).SprintFunc()
	var e *lexerr.Error
	if errors.As(err, &e) {
		fmt.Fprintf(w, "%s %s\n", red("ERROR"), e)
		return
	}
	fmt.Fprintf(w, "%s %v\n", red("ERROR"), err)
}
