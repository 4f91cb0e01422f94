package scan

import (
	"fmt"
	"unicode/utf8"

	"github.com/rivo/uniseg"

	"lexgen/pkg/lexerr"
	"lexgen/pkg/lexdb"
)

// State is a read position in an input buffer. Counters advance together
// as tokens are consumed.
type State struct {
	src []byte

	Byte     int // 0-based byte offset
	Char     int // characters consumed
	Grapheme int // grapheme clusters consumed
	Line     int // 1-based
	Column   int // 1-based, in characters
}

func NewState(src []byte) *State {
	return &State{src: src, Line: 1, Column: 1}
}

// Pos returns the current position for diagnostics.
func (s *State) Pos() lexerr.Pos {
	return lexerr.Pos{Line: s.Line, Column: s.Column, Byte: s.Byte}
}

// AtEOF reports whether every byte has been consumed.
func (s *State) AtEOF() bool { return s.Byte >= len(s.src) }

// Remaining returns the unconsumed input.
func (s *State) Remaining() []byte { return s.src[s.Byte:] }

// Source returns the whole input buffer.
func (s *State) Source() []byte { return s.src }

// advance consumes n bytes, updating every counter.
func (s *State) advance(n int) {
	b := s.src[s.Byte : s.Byte+n]
	for i := 0; i < len(b); {
		r, size := utf8.DecodeRune(b[i:])
		i += size
		s.Char++
		if r == '\n' {
			s.Line++
			s.Column = 1
		} else {
			s.Column++
		}
	}
	state := -1
	for rest := b; len(rest) > 0; {
		_, rest, _, state = uniseg.FirstGraphemeCluster(rest, state)
		s.Grapheme++
	}
	s.Byte += n
}

// Skip consumes everything that is left and returns it.
func (s *State) Skip() []byte {
	rest := s.Remaining()
	s.advance(len(rest))
	return rest
}

type mark struct {
	byteOff, char, grapheme, line, column int
}

func (s *State) mark() mark {
	return mark{s.Byte, s.Char, s.Grapheme, s.Line, s.Column}
}

// Token is one match of a rule against the input.
type Token struct {
	Rule  *lexdb.Rule
	Bytes []byte
	Pos   lexerr.Pos
	start mark
}

func (t Token) Text() string { return string(t.Bytes) }

func (t Token) String() string {
	name := "<nil>"
	if t.Rule != nil {
		name = t.Rule.Name
	}
	return fmt.Sprintf("%-14s %-16q %s", name, t.Bytes, t.Pos)
}

// Rewind moves s back to the start of tok so it is read again.
func (s *State) Rewind(tok Token) {
	s.Byte = tok.start.byteOff
	s.Char = tok.start.char
	s.Grapheme = tok.start.grapheme
	s.Line = tok.start.line
	s.Column = tok.start.column
}
