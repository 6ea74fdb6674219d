package interpreter

import (
	"fmt"

	"github.com/psilLang/bibvm/pkg/buffer"
	"github.com/psilLang/bibvm/pkg/lex"
)

// Output lines longer than maxPrintLine are broken at whitespace, never
// before column minPrintLine.
const (
	maxPrintLine = 79
	minPrintLine = 3
)

func builtinWrite(i *Interpreter) error {
	s, ok := i.popStr()
	if !ok {
		return nil
	}
	return i.addOut(i.Pool.Str(s))
}

func builtinNewline(i *Interpreter) error {
	return i.flushLine()
}

// Lines returns the number of lines written to the output.
func (i *Interpreter) Lines() int { return i.outLines }

// Finish writes out whatever remains of the current output line.
func (i *Interpreter) Finish() error {
	if i.Bufs.Len(buffer.Out) == 0 {
		return nil
	}
	return i.flushLine()
}

// addOut appends s to the output line, writing out full lines as they form.
func (i *Interpreter) addOut(s []byte) error {
	b := i.Bufs
	if err := b.AppendBytes(buffer.Out, s); err != nil {
		return err
	}
	for b.Len(buffer.Out) > maxPrintLine {
		out := b.Content(buffer.Out)
		end := len(out)
		p := maxPrintLine
		for p >= minPrintLine && !lex.IsWhite(out[p]) {
			p--
		}
		if p == minPrintLine-1 {
			// No blank early enough; break at the first one after the limit.
			p = maxPrintLine + 1
			for p < end && !lex.IsWhite(out[p]) {
				p++
			}
			if p == end {
				return nil
			}
			for p+1 < end && lex.IsWhite(out[p+1]) {
				p++
			}
		}
		tail := append([]byte("  "), out[p+1:end]...)
		b.SetLen(buffer.Out, p)
		if err := i.flushLine(); err != nil {
			return err
		}
		if err := b.Load(buffer.Out, tail); err != nil {
			return err
		}
	}
	return nil
}

// flushLine writes the output buffer without trailing blanks and empties it.
// An empty buffer writes an empty line; a blank one writes nothing.
func (i *Interpreter) flushLine() error {
	b := i.Bufs
	out := b.Content(buffer.Out)
	if len(out) > 0 {
		n := len(out)
		for n > 0 && lex.IsWhite(out[n-1]) {
			n--
		}
		if n == 0 {
			b.SetLen(buffer.Out, 0)
			return nil
		}
		out = out[:n]
	}
	if _, err := fmt.Fprintf(i.Output, "%s\n", out); err != nil {
		return fmt.Errorf("writing bibliography: %w", err)
	}
	i.outLines++
	b.SetLen(buffer.Out, 0)
	return nil
}
