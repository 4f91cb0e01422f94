package compiler

import (
	"errors"
	"fmt"
	"io"
	"log"

	"lexgen/pkg/lexerr"
	"lexgen/pkg/lexdb"
	"lexgen/pkg/scan"
)

// maxFileTokens bounds the line-level tokens read from one lex file.
const maxFileTokens = 10000000

type section int

const (
	sectionDefinitions section = iota
	sectionRules
	sectionUserCode
	sectionDone
)

func (s section) String() string {
	switch s {
	case sectionDefinitions:
		return "definitions"
	case sectionRules:
		return "rules"
	case sectionUserCode:
		return "user code"
	}
	return "done"
}

// Compiler holds every piece of state for one compile of a lex file.
type Compiler struct {
	lexicon *Lexicon
	db      *lexdb.Database
	st      *scan.State
	out     io.Writer
	log     *log.Logger

	section  section
	inBlock  bool
	blockPos lexerr.Pos
	userCode []byte
}

// New prepares a compile of src. Verbatim blocks and indented lines of the
// definitions and rules sections are written to out as they are read.
func New(src []byte, out io.Writer, limits lexdb.Limits, logger *log.Logger) (*Compiler, error) {
	if src == nil {
		return nil, lexerr.New(lexerr.NullInput, "nil lex source")
	}
	if out == nil {
		return nil, lexerr.New(lexerr.NullInput, "nil passthrough writer")
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	lexicon, err := NewLexicon()
	if err != nil {
		return nil, err
	}
	db, err := lexdb.New(limits)
	if err != nil {
		return nil, err
	}
	return &Compiler{
		lexicon: lexicon,
		db:      db,
		st:      scan.NewState(src),
		out:     out,
		log:     logger,
	}, nil
}

// Database returns the definitions and rules read so far.
func (c *Compiler) Database() *lexdb.Database { return c.db }

// UserCode returns the bytes of the third section, copied unchanged.
func (c *Compiler) UserCode() []byte { return c.userCode }

func (c *Compiler) lex(rules []*lexdb.Rule) (scan.Token, TokenType, error) {
	tok, err := c.lexicon.Lex(rules, c.st)
	if err != nil {
		return tok, NoToken, err
	}
	return tok, TypeOf(tok), nil
}

func (c *Compiler) write(b []byte) error {
	if _, err := c.out.Write(b); err != nil {
		return lexerr.Wrap(lexerr.FileWrite, err, "writing verbatim code")
	}
	return nil
}

// Run reads the whole lex file. Composites of the definitions section are
// resolved when the section ends.
func (c *Compiler) Run() error {
	for i := 0; c.section != sectionDone; i++ {
		if i >= maxFileTokens {
			return lexerr.At(lexerr.InfiniteLoop, c.st.Pos(), "more than %d lines", maxFileTokens)
		}
		var err error
		switch {
		case c.section == sectionUserCode:
			c.userCode = c.st.Skip()
			c.log.Printf("user code: %d bytes", len(c.userCode))
			c.section = sectionDone
		case c.inBlock:
			err = c.blockLine()
		default:
			err = c.line()
		}
		if errors.Is(err, lexerr.EndOfFile) {
			return c.endOfFile()
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (c *Compiler) endOfFile() error {
	if c.inBlock {
		return lexerr.At(lexerr.BadToken, c.blockPos, "%%{ block is never closed")
	}
	if c.section == sectionDefinitions {
		if err := c.endDefinitions(); err != nil {
			return err
		}
	}
	c.section = sectionDone
	return nil
}

// line dispatches on the first token of a line outside a verbatim block.
func (c *Compiler) line() error {
	tok, tt, err := c.lex(c.lexicon.All)
	if err != nil {
		return err
	}
	switch tt {
	case Newline:
		return nil
	case PercentOpen:
		if err := c.expectEndOfLine("%{"); err != nil {
			return err
		}
		c.inBlock = true
		c.blockPos = tok.Pos
		return nil
	case PercentClose:
		return lexerr.At(lexerr.BadToken, tok.Pos, "%%} outside a %%{ block")
	case Space:
		return c.indented(tok)
	case PercentPercent:
		if err := c.expectNewline(tok); err != nil {
			return err
		}
		return c.nextSection()
	case Identifier:
		if c.section == sectionDefinitions {
			return c.definition(tok)
		}
		return c.namedRule(tok)
	}
	if c.section == sectionRules {
		c.st.Rewind(tok)
		return c.anonymousRule(tok.Pos)
	}
	return lexerr.At(lexerr.BadToken, tok.Pos, "unexpected %s %q in the %s section", tt, tok.Bytes, c.section)
}

func (c *Compiler) nextSection() error {
	switch c.section {
	case sectionDefinitions:
		if err := c.endDefinitions(); err != nil {
			return err
		}
		c.section = sectionRules
	case sectionRules:
		c.log.Printf("rules: %d", len(c.db.Rules))
		c.section = sectionUserCode
	}
	return nil
}

func (c *Compiler) endDefinitions() error {
	c.log.Printf("definitions: %d live, %d retired", c.db.NumDefinitions()-c.db.NumPreloaded(), c.db.NumRetired())
	return c.db.Resolve()
}

// expectNewline requires the token after a %% divider to be a newline.
func (c *Compiler) expectNewline(divider scan.Token) error {
	tok, tt, err := c.lex(c.lexicon.All)
	if errors.Is(err, lexerr.EndOfFile) {
		return lexerr.At(lexerr.BadToken, c.st.Pos(), "%%%% must be followed by a newline")
	}
	if err != nil {
		return err
	}
	if tt != Newline {
		return lexerr.At(lexerr.BadToken, tok.Pos, "%%%% followed by %q instead of a newline", tok.Bytes)
	}
	return nil
}

// expectEndOfLine accepts trailing spaces and then a newline or end of file.
func (c *Compiler) expectEndOfLine(after string) error {
	for {
		tok, tt, err := c.lex(c.lexicon.All)
		if errors.Is(err, lexerr.EndOfFile) {
			return nil
		}
		if err != nil {
			return err
		}
		switch tt {
		case Newline:
			return nil
		case Space:
			continue
		}
		return lexerr.At(lexerr.BadToken, tok.Pos, "unexpected %q after %s", tok.Bytes, after)
	}
}

// indented copies a line that starts with horizontal space to the output.
func (c *Compiler) indented(space scan.Token) error {
	if err := c.write(space.Bytes); err != nil {
		return err
	}
	return c.copyRestOfLine()
}

func (c *Compiler) copyRestOfLine() error {
	for {
		tok, tt, err := c.lex(c.lexicon.Line)
		if errors.Is(err, lexerr.EndOfFile) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := c.write(tok.Bytes); err != nil {
			return err
		}
		if tt == Newline {
			return nil
		}
	}
}

// blockLine copies one line of a %{ %} block, or closes the block.
func (c *Compiler) blockLine() error {
	tok, tt, err := c.lex(c.lexicon.Line)
	if err != nil {
		return err
	}
	switch tt {
	case PercentClose:
		c.inBlock = false
		return c.expectEndOfLine("%}")
	case Newline:
		return c.write(tok.Bytes)
	}
	if err := c.write(tok.Bytes); err != nil {
		return err
	}
	return c.copyRestOfLine()
}

func (c *Compiler) definition(name scan.Token) error {
	p := newBodyParser(c, name.Text(), name.Pos, false)
	res, err := p.run()
	if err != nil {
		return err
	}
	c.noteUnresolved(res)
	return nil
}

// namedRule reads "NAME body { action }". A name followed by nothing but an
// action, a quantifier, an alternation or the end of the line names no new
// definition: the line is a rule over the definition it references.
func (c *Compiler) namedRule(name scan.Token) error {
	tok, tt, err := c.lex(c.lexicon.All)
	if errors.Is(err, lexerr.EndOfFile) {
		return c.referenceRule(name)
	}
	if err != nil {
		return err
	}
	if referencesOnly(tt) {
		return c.referenceRule(name)
	}
	if tt != Space {
		return lexerr.At(lexerr.BadToken, tok.Pos, "expected space after rule name %q, got %q", name.Bytes, tok.Bytes)
	}

	next, tt, err := c.lex(c.lexicon.All)
	if errors.Is(err, lexerr.EndOfFile) || (err == nil && referencesOnly(tt)) {
		return c.referenceRule(name)
	}
	if err != nil {
		return err
	}
	c.st.Rewind(next)
	return c.rule(name.Text(), name.Pos)
}

// referencesOnly reports whether tt, read right after a leading name, ends
// or continues a composite body instead of starting one.
func referencesOnly(tt TokenType) bool {
	switch tt {
	case LBrace, Newline, Or, Star, Plus:
		return true
	}
	return false
}

// referenceRule rereads the line from name as an anonymous rule.
func (c *Compiler) referenceRule(name scan.Token) error {
	c.st.Rewind(name)
	return c.anonymousRule(name.Pos)
}

// anonymousRule reads a rule line without a name; its definition is named
// after the rule.
func (c *Compiler) anonymousRule(pos lexerr.Pos) error {
	return c.rule(ruleName(len(c.db.Rules)+1), pos)
}

func ruleName(k int) string { return fmt.Sprintf("rule_%d", k) }

func (c *Compiler) rule(defName string, pos lexerr.Pos) error {
	p := newBodyParser(c, defName, pos, true)
	res, err := p.run()
	if err != nil {
		return err
	}
	c.noteUnresolved(res)
	r, err := c.db.AddRule(ruleName(len(c.db.Rules)+1), res.def.ID, res.action)
	if err != nil {
		return lexerr.WithPos(err, pos)
	}
	r.Pos = pos
	if res.hasAction {
		return c.finishRuleLine()
	}
	return nil
}

// finishRuleLine consumes what follows the closing brace of an action.
func (c *Compiler) finishRuleLine() error {
	return c.expectEndOfLine("action code")
}

func (c *Compiler) noteUnresolved(res *bodyResult) {
	if res.unresolved == nil {
		return
	}
	u := res.unresolved
	c.log.Printf("%s: %q references %q, not defined yet", u.Reference.Pos, u.Composite.Name, u.Reference.Target)
}
