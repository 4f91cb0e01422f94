package codegen

import (
	"fmt"
	"io"
	"strings"

	"lexgen/pkg/lexerr"
)

// Writer emits indented source lines. The first write error sticks and
// turns every later call into a no-op.
type Writer struct {
	w      io.Writer
	indent int
	n      int64
	err    error
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

func (w *Writer) write(s string) {
	if w.err != nil {
		return
	}
	n, err := io.WriteString(w.w, s)
	w.n += int64(n)
	if err != nil {
		w.err = lexerr.Wrap(lexerr.FileWrite, err, "writing generated code")
	}
}

// Line writes one formatted line at the current indentation. An empty
// format writes a blank line.
func (w *Writer) Line(format string, args ...any) {
	if format == "" {
		w.write("\n")
		return
	}
	w.write(strings.Repeat("\t", w.indent) + fmt.Sprintf(format, args...) + "\n")
}

// Raw writes b unchanged.
func (w *Writer) Raw(b []byte) {
	w.write(string(b))
}

func (w *Writer) Indent() { w.indent++ }

func (w *Writer) Dedent() {
	if w.indent > 0 {
		w.indent--
	}
}

// Written is the number of bytes written so far.
func (w *Writer) Written() int64 { return w.n }

func (w *Writer) Err() error { return w.err }
