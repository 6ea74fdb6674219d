// Package history tracks the severity of a run and delivers diagnostics to the
// transcript and the terminal.
package history

import (
	"fmt"
	"io"

	"github.com/psilLang/bibvm/pkg/lex"
)

// History is the worst severity reached so far. It is never downgraded.
type History int

const (
	Spotless History = iota
	WarningIssued
	ErrorIssued
	FatalError
	Aborted
)

func (h History) String() string {
	switch h {
	case Spotless:
		return "spotless"
	case WarningIssued:
		return "warning issued"
	case ErrorIssued:
		return "error issued"
	case FatalError:
		return "fatal error"
	case Aborted:
		return "aborted"
	}
	return fmt.Sprintf("history(%d)", int(h))
}

// Result is the outcome of processing one statement or one entry.
type Result int

const (
	// Error propagates and abandons the enclosing pass.
	Error Result = iota
	// Recover abandons the current statement; the run continues.
	Recover
	Ok
)

// Position locates a message in an input file.
type Position struct {
	File string
	Line int
}

func (p Position) String() string {
	return fmt.Sprintf("--line %d of file %s", p.Line, p.File)
}

// Reporter writes diagnostics and keeps the severity counters.
type Reporter struct {
	log  io.Writer
	term io.Writer

	history  History
	warnings int
	errors   int
}

// NewReporter creates a reporter. Either writer may be nil.
func NewReporter(log, term io.Writer) *Reporter {
	if log == nil {
		log = io.Discard
	}
	if term == nil {
		term = io.Discard
	}
	return &Reporter{log: log, term: term}
}

// Print writes to the transcript and the terminal.
func (r *Reporter) Print(format string, args ...any) {
	s := fmt.Sprintf(format, args...)
	io.WriteString(r.log, s)
	io.WriteString(r.term, s)
}

// Log writes to the transcript only.
func (r *Reporter) Log(format string, args ...any) {
	fmt.Fprintf(r.log, format, args...)
}

// BadInputLine shows line split at pos, the part after pos on a second line
// indented to where it stood.
func (r *Reporter) BadInputLine(line []byte, pos int) {
	if pos > len(line) {
		pos = len(line)
	}
	show := func(b []byte) []byte {
		out := make([]byte, len(b))
		for k, c := range b {
			if lex.IsWhite(c) {
				c = lex.Space
			}
			out[k] = c
		}
		return out
	}
	r.Print(" : %s\n", show(line[:pos]))
	r.Print(" : %*s%s\n", pos, "", show(line[pos:]))
	k := 0
	for k < pos && lex.IsWhite(line[k]) {
		k++
	}
	if k == pos {
		r.Print("(Error may have been on previous line)\n")
	}
}

// Skipping ends an error message for a command that is abandoned.
func (r *Reporter) Skipping(what string) {
	r.Print("I'm skipping whatever remains of this %s\n", what)
	r.MarkError()
}

// MarkWarning raises the history to WarningIssued and counts the warning.
func (r *Reporter) MarkWarning() {
	r.warnings++
	r.raise(WarningIssued)
}

// MarkError raises the history to ErrorIssued and counts the error.
func (r *Reporter) MarkError() {
	r.errors++
	r.raise(ErrorIssued)
}

// MarkFatal raises the history to FatalError.
func (r *Reporter) MarkFatal() { r.raise(FatalError) }

// Abort raises the history to Aborted.
func (r *Reporter) Abort() { r.raise(Aborted) }

func (r *Reporter) raise(h History) {
	if h > r.history {
		r.history = h
	}
}

// History returns the worst severity reached.
func (r *Reporter) History() History { return r.history }

// Warnings returns the number of warnings issued.
func (r *Reporter) Warnings() int { return r.warnings }

// Errors returns the number of error messages issued.
func (r *Reporter) Errors() int { return r.errors }

// Summary returns the closing line for the transcript, or "" when spotless.
func (r *Reporter) Summary() string {
	switch r.history {
	case WarningIssued:
		if r.warnings == 1 {
			return "(There was 1 warning)"
		}
		return fmt.Sprintf("(There were %d warnings)", r.warnings)
	case ErrorIssued:
		if r.errors == 1 {
			return "(There was 1 error message)"
		}
		return fmt.Sprintf("(There were %d error messages)", r.errors)
	case FatalError:
		return "(That was a fatal error)"
	case Aborted:
		return "(The run was aborted)"
	}
	return ""
}
