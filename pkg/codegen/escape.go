package codegen

import (
	"fmt"
	"strings"

	"lexgen/pkg/lexerr"
)

// EscapeMode selects the context an escaped string is written into.
type EscapeMode int

const (
	// StringMode renders the body of a double-quoted string literal.
	StringMode EscapeMode = iota
	// CommentMode renders text safe inside a block comment.
	CommentMode
)

// PrintableEscape renders src so it can be placed in generated source.
// In StringMode every byte round-trips: printable ASCII is kept, the
// delimiters and control bytes become escapes and everything else,
// including UTF-8 sequences, is written as three-digit octal. Question
// marks are escaped too so no trigraph can form.
func PrintableEscape(src []byte, maxBytes int, mode EscapeMode) (string, error) {
	if src == nil {
		return "", lexerr.New(lexerr.NullInput, "nil escape source")
	}
	if maxBytes > 0 && len(src) > maxBytes {
		return "", lexerr.New(lexerr.BadLength, "%d bytes to escape exceed %d", len(src), maxBytes)
	}
	switch mode {
	case StringMode:
		return escapeString(src), nil
	case CommentMode:
		return escapeComment(src), nil
	}
	return "", lexerr.New(lexerr.State, "unknown escape mode %d", int(mode))
}

func escapeString(src []byte) string {
	var sb strings.Builder
	sb.Grow(len(src))
	for _, b := range src {
		switch b {
		case '"':
			sb.WriteString(`\"`)
		case '\\':
			sb.WriteString(`\\`)
		case '\n':
			sb.WriteString(`\n`)
		case '\t':
			sb.WriteString(`\t`)
		case '\r':
			sb.WriteString(`\r`)
		case '?':
			sb.WriteString(`\077`)
		default:
			if b >= 0x20 && b < 0x7f {
				sb.WriteByte(b)
			} else {
				fmt.Fprintf(&sb, `\%03o`, b)
			}
		}
	}
	return sb.String()
}

func escapeComment(src []byte) string {
	var sb strings.Builder
	for i, b := range src {
		switch {
		case b == '/' && i > 0 && src[i-1] == '*':
			// Break up "*/" so the comment stays open.
			sb.WriteString(" /")
		case b >= 0x20 && b < 0x7f:
			sb.WriteByte(b)
		default:
			sb.WriteByte('.')
		}
	}
	return sb.String()
}
