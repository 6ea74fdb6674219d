// Package parser reads style files using Participle v2.
// Grammar is defined as Go structs with tags; a style is parsed one command at
// a time so a syntax error only costs the command it occurs in.
package parser

import (
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// Command: NAME {group} {group} ...
type Command struct {
	Pos    lexer.Position
	EndPos lexer.Position

	Name string   `@Ident`
	Args []*Group `@@*`
}

// Group: { item* }
type Group struct {
	Pos   lexer.Position
	Items []*Item `"{" @@* "}"`
}

// Item: #int | "string" | 'name | name | {group}
type Item struct {
	Pos     lexer.Position
	Integer *string `  @Integer`
	String  *string `| @String`
	Quoted  *string `| Quote @Ident`
	Ident   *string `| @Ident`
	Group   *Group  `| @@`
}

// Style lexer definition
var styleLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Whitespace", Pattern: `[\s]+`},
	{Name: "Comment", Pattern: `%[^\n]*`},

	{Name: "Integer", Pattern: `#[+-]?[0-9]+`},
	{Name: "String", Pattern: `"[^"\n]*"`},
	{Name: "Quote", Pattern: `'`},
	{Name: "Punct", Pattern: `[{}]`},

	// Function names may contain anything but whitespace and the delimiters
	// below; they may not start with a digit.
	{Name: "Ident", Pattern: `[^\s"#%'(){},0-9][^\s"#%'(){},]*`},

	// Anything else is a token of its own so that errors stay local.
	{Name: "Other", Pattern: `.`},
})

// Parser parses a single command and leaves the rest of the input alone.
var Parser = participle.MustBuild[Command](
	participle.Lexer(styleLexer),
	participle.Elide("Whitespace", "Comment"),
	participle.UseLookahead(2),
)

// SyntaxError is a command that could not be parsed.
type SyntaxError struct {
	Pos lexer.Position
	Msg string
}

func (e *SyntaxError) Error() string { return e.Msg }

// Parse splits a style file into its commands. Parsing continues after a
// syntax error at the first blank line that follows it.
func Parse(filename, src string) ([]*Command, []*SyntaxError) {
	var (
		cmds []*Command
		errs []*SyntaxError
	)
	off, line := 0, 1
	for {
		off, line = skipBlank(src, off, line)
		if off >= len(src) {
			return cmds, errs
		}
		cmd, err := Parser.ParseString(filename, src[off:], participle.AllowTrailing(true))
		if err != nil {
			pos := lexer.Position{Filename: filename, Line: line}
			msg := err.Error()
			if perr, ok := err.(participle.Error); ok {
				pos = shift(perr.Position(), off, line)
				msg = perr.Message()
			}
			errs = append(errs, &SyntaxError{Pos: pos, Msg: msg})
			off, line = nextBlankLine(src, pos.Offset, pos.Line)
			continue
		}
		cmd.relocate(off, line)
		cmds = append(cmds, cmd)
		if cmd.EndPos.Offset <= off {
			// Nothing consumed; cannot happen for a command with a name.
			off, line = nextBlankLine(src, off, line)
			continue
		}
		off, line = cmd.EndPos.Offset, cmd.EndPos.Line
	}
}

// skipBlank moves past whitespace and comments.
func skipBlank(src string, off, line int) (int, int) {
	for off < len(src) {
		switch c := src[off]; {
		case c == '\n':
			line++
			off++
		case c == ' ' || c == '\t' || c == '\r' || c == '\f' || c == '\v':
			off++
		case c == '%':
			nl := strings.IndexByte(src[off:], '\n')
			if nl < 0 {
				return len(src), line
			}
			off += nl
		default:
			return off, line
		}
	}
	return off, line
}

// nextBlankLine returns the start of the first empty line after the line
// holding off.
func nextBlankLine(src string, off, line int) (int, int) {
	for {
		nl := strings.IndexByte(src[off:], '\n')
		if nl < 0 {
			return len(src), line
		}
		off += nl + 1
		line++
		end := strings.IndexByte(src[off:], '\n')
		rest := src[off:]
		if end >= 0 {
			rest = rest[:end]
		}
		if strings.TrimSpace(rest) == "" {
			return off, line
		}
	}
}

// shift turns a position inside src[off:] into one inside src. Columns are
// left as parsed.
func shift(p lexer.Position, off, line int) lexer.Position {
	p.Offset += off
	p.Line += line - 1
	return p
}

func (c *Command) relocate(off, line int) {
	c.Pos = shift(c.Pos, off, line)
	c.EndPos = shift(c.EndPos, off, line)
	for _, g := range c.Args {
		g.relocate(off, line)
	}
}

func (g *Group) relocate(off, line int) {
	g.Pos = shift(g.Pos, off, line)
	for _, it := range g.Items {
		it.Pos = shift(it.Pos, off, line)
		if it.Group != nil {
			it.Group.relocate(off, line)
		}
	}
}

// Text returns the string literal without its quotes.
func (it *Item) Text() string {
	s := *it.String
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	return s
}

// Int returns the value of an integer literal.
func (it *Item) Int() (int32, error) {
	v, err := strconv.ParseInt(strings.TrimPrefix(*it.Integer, "#"), 10, 32)
	return int32(v), err
}

// Idents returns the names in a group, in order. ok is false when the group
// holds anything other than plain names.
func (g *Group) Idents() (names []string, ok bool) {
	for _, it := range g.Items {
		if it.Ident == nil {
			return names, false
		}
		names = append(names, *it.Ident)
	}
	return names, true
}
