// Package lexerr defines the error kinds reported by the lex-file compiler.
//
// Every failure carries a Kind. Callers test for a kind with errors.Is:
//
//	if errors.Is(err, lexerr.NotFound) { ... }
package lexerr

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a compiler failure.
type Kind int

const (
	NullInput Kind = iota + 1
	BadLength
	MaxLengthExceeded
	BadToken
	State
	UnresolvedDefinition
	NotFound
	InfiniteLoop
	FileOpen
	FileWrite
	FileDescriptor
	DefinitionType
	BadMultiType
	EndOfFile
	NoMatch
)

var kindNames = [...]string{
	NullInput:            "NullInput",
	BadLength:            "BadLength",
	MaxLengthExceeded:    "MaxLengthExceeded",
	BadToken:             "BadToken",
	State:                "State",
	UnresolvedDefinition: "UnresolvedDefinition",
	NotFound:             "NotFound",
	InfiniteLoop:         "InfiniteLoop",
	FileOpen:             "FileOpen",
	FileWrite:            "FileWrite",
	FileDescriptor:       "FileDescriptor",
	DefinitionType:       "DefinitionType",
	BadMultiType:         "BadMultiType",
	EndOfFile:            "EndOfFile",
	NoMatch:              "NoMatch",
}

func (k Kind) String() string {
	if int(k) > 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Error makes a bare Kind usable as a target for errors.Is.
func (k Kind) Error() string { return k.String() }

// Pos is a location in the lex file. The zero value means unknown.
type Pos struct {
	Line   int // 1-based
	Column int // 1-based, in characters
	Byte   int // 0-based offset
}

func (p Pos) IsValid() bool { return p.Line > 0 }

func (p Pos) String() string {
	return fmt.Sprintf("[%d.%d]", p.Line, p.Column)
}

// Error is the concrete error returned by every compiler package.
type Error struct {
	Kind  Kind
	Pos   Pos
	Msg   string
	Name  string   // offending reference or definition name, if any
	Trace []string // recent parser states, oldest first
	Err   error    // underlying cause
}

func (e *Error) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Kind.String())
	if e.Pos.IsValid() {
		sb.WriteString(" ")
		sb.WriteString(e.Pos.String())
	}
	if e.Msg != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Msg)
	}
	if e.Name != "" {
		fmt.Fprintf(&sb, ": reference %q", e.Name)
	}
	if e.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}
	if len(e.Trace) > 0 {
		sb.WriteString(" (states: ")
		sb.WriteString(strings.Join(e.Trace, " -> "))
		sb.WriteString(")")
	}
	return sb.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is the same Kind, so that errors.Is works with
// both Kind values and other *Error values of the same kind.
func (e *Error) Is(target error) bool {
	switch t := target.(type) {
	case Kind:
		return e.Kind == t
	case *Error:
		return e.Kind == t.Kind
	}
	return false
}

func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

func At(kind Kind, pos Pos, format string, args ...any) *Error {
	return &Error{Kind: kind, Pos: pos, Msg: fmt.Sprintf(format, args...)}
}

func Wrap(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: err}
}

// KindOf extracts the kind of err, or 0 when err carries none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	var k Kind
	if errors.As(err, &k) {
		return k
	}
	return 0
}

// WithPos fills in the position of err when it is an *Error without one.
func WithPos(err error, pos Pos) error {
	var e *Error
	if errors.As(err, &e) && !e.Pos.IsValid() {
		e.Pos = pos
	}
	return err
}
