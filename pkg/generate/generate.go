// Package generate turns a lex file into a target-language source file:
// head template, verbatim code from the lex file, the generated section,
// user code and tail template, in that order.
package generate

import (
	"encoding/hex"
	"errors"
	"io"
	"log"
	"path/filepath"
	"sort"
	"strings"

	"github.com/zeebo/blake3"

	"lexgen/pkg/codegen"
	"lexgen/pkg/compiler"
	"lexgen/pkg/lexdb"
	"lexgen/pkg/lexerr"
	"lexgen/pkg/mmap"
	"lexgen/pkg/vfs"
)

// languages maps a target language to the extension of its templates and
// output file.
var languages = map[string]string{
	"c":   ".c",
	"c++": ".cc",
	"cpp": ".cc",
}

// Extension returns the file extension of language.
func Extension(language string) (string, error) {
	ext, ok := languages[strings.ToLower(language)]
	if !ok {
		e := lexerr.New(lexerr.NotFound, "unknown target language (known: %s)", strings.Join(Languages(), ", "))
		e.Name = language
		return "", e
	}
	return ext, nil
}

// Languages lists the known target languages in sorted order.
func Languages() []string {
	out := make([]string, 0, len(languages))
	for l := range languages {
		out = append(out, l)
	}
	sort.Strings(out)
	return out
}

// Options configure one generation.
type Options struct {
	Language    string
	LexPath     string
	TemplateDir string
	// OutputPath defaults to LexPath with the language extension.
	OutputPath string
	// Disk receives the output file; nil means the host file system.
	Disk   vfs.Disk
	Logger *log.Logger
	// Limits of the definition database; the zero value means DefaultLimits.
	Limits lexdb.Limits
}

// Result describes a successful generation.
type Result struct {
	OutputPath  string
	Bytes       int64
	Fingerprint string
	Database    *lexdb.Database
}

// OutputPath returns the default output path for lexPath and ext.
func OutputPath(lexPath, ext string) string {
	if old := filepath.Ext(lexPath); old != "" {
		return strings.TrimSuffix(lexPath, old) + ext
	}
	return lexPath + ext
}

// Fingerprint returns the hex blake3 digest of src.
func Fingerprint(src []byte) string {
	sum := blake3.Sum256(src)
	return hex.EncodeToString(sum[:])
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

// Generate compiles opts.LexPath and writes the output file. On any failure
// the output file is removed and every mapping is released.
func Generate(opts Options) (res *Result, err error) {
	if opts.LexPath == "" {
		return nil, lexerr.New(lexerr.NullInput, "no lex file given")
	}
	ext, err := Extension(opts.Language)
	if err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	disk := opts.Disk
	if disk == nil {
		disk = vfs.OSDisk{}
	}
	limits := opts.Limits
	if limits == (lexdb.Limits{}) {
		limits = lexdb.DefaultLimits()
	}
	output := opts.OutputPath
	if output == "" {
		output = OutputPath(opts.LexPath, ext)
	}

	var buffers []*mmap.Buffer
	defer func() {
		for _, b := range buffers {
			if uerr := b.Unmap(); uerr != nil && err == nil {
				err = uerr
			}
		}
	}()
	load := func(path string) ([]byte, error) {
		b, err := mmap.Map(path)
		if err != nil {
			return nil, err
		}
		buffers = append(buffers, b)
		return b.Bytes, nil
	}

	src, err := load(opts.LexPath)
	if err != nil {
		return nil, err
	}
	if len(src) == 0 {
		return nil, lexerr.New(lexerr.BadLength, "%s is empty", opts.LexPath)
	}
	head, err := load(filepath.Join(opts.TemplateDir, "head"+ext))
	if err != nil {
		return nil, err
	}
	tail, err := load(filepath.Join(opts.TemplateDir, "tail"+ext))
	if err != nil {
		return nil, err
	}

	f, err := disk.Create(output)
	if err != nil {
		return nil, lexerr.Wrap(lexerr.FileOpen, err, "creating %s", output)
	}
	logger.Printf("writing %s", output)
	closed := false
	defer func() {
		if err == nil {
			return
		}
		if !closed {
			_ = f.Close()
		}
		if rerr := disk.Remove(output); rerr != nil {
			logger.Printf("removing %s: %v", output, rerr)
		}
		res = nil
	}()

	out := &countingWriter{w: f}
	fingerprint := Fingerprint(src)
	db, err := emit(out, src, head, tail, opts.LexPath, fingerprint, limits, logger)
	if err != nil {
		return nil, err
	}
	closed = true
	if err := f.Close(); err != nil {
		return nil, lexerr.Wrap(lexerr.FileDescriptor, err, "closing %s", output)
	}
	logger.Printf("wrote %d bytes, blake3 %s", out.n, fingerprint)

	return &Result{
		OutputPath:  output,
		Bytes:       out.n,
		Fingerprint: fingerprint,
		Database:    db,
	}, nil
}

func emit(out io.Writer, src, head, tail []byte, lexPath, fingerprint string, limits lexdb.Limits, logger *log.Logger) (*lexdb.Database, error) {
	if err := write(out, head, "head template"); err != nil {
		return nil, err
	}
	c, err := compiler.New(src, out, limits, logger)
	if err != nil {
		return nil, err
	}
	if err := c.Run(); err != nil {
		return nil, err
	}
	db := c.Database()
	// Composites of the rules section may name definitions that follow them.
	if err := db.Resolve(); err != nil {
		return nil, err
	}
	opts := codegen.Options{Source: filepath.Base(lexPath), Fingerprint: fingerprint}
	if _, err := codegen.Emit(out, db, opts); err != nil {
		return nil, err
	}
	if err := write(out, c.UserCode(), "user code"); err != nil {
		return nil, err
	}
	if err := write(out, tail, "tail template"); err != nil {
		return nil, err
	}
	return db, nil
}

func write(w io.Writer, b []byte, what string) error {
	if len(b) == 0 {
		return nil
	}
	if _, err := w.Write(b); err != nil {
		var e *lexerr.Error
		if errors.As(err, &e) {
			return err
		}
		return lexerr.Wrap(lexerr.FileWrite, err, "writing %s", what)
	}
	return nil
}
