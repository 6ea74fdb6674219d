// Package auxfile reads the citation list: \citation, \bibdata, \bibstyle and
// \@input commands of an auxiliary file and the files it includes.
package auxfile

import (
	"fmt"
	"io/fs"
	"strings"

	"github.com/tliron/commonlog"

	"github.com/psilLang/bibvm/pkg/buffer"
	"github.com/psilLang/bibvm/pkg/cite"
	"github.com/psilLang/bibvm/pkg/history"
	"github.com/psilLang/bibvm/pkg/input"
	"github.com/psilLang/bibvm/pkg/lex"
	"github.com/psilLang/bibvm/pkg/pool"
	"github.com/psilLang/bibvm/pkg/scanner"
)

var log = commonlog.GetLogger("bibvm.aux")

// MaxDepth is the deepest \@input nesting allowed.
const MaxDepth = 20

const (
	cmdBibData = iota
	cmdBibStyle
	cmdCitation
	cmdInput
)

// Result is what the citation list names besides the citations themselves.
type Result struct {
	// Style is the style file name, extension included, or "" when none was usable.
	Style string
	// BibFiles are the database file names, extension included, in order.
	BibFiles []string

	StyleSeen    bool
	BibSeen      bool
	CitationSeen bool
}

// Reader reads auxiliary files from FS.
type Reader struct {
	FS     fs.FS
	Pool   *pool.Pool
	Bufs   *buffer.Buffers
	Cites  *cite.Registry
	Report *history.Reporter

	res   Result
	stack []auxFile
}

type auxFile struct {
	name string
	in   *input.Reader
	f    fs.File
}

// Read processes name and every file it includes, registering citations as
// it goes. Recoverable problems are reported; only fatal ones are returned.
func (r *Reader) Read(name string) (*Result, error) {
	for code, cmd := range []string{`\bibdata`, `\bibstyle`, `\citation`, `\@input`} {
		loc, _, err := r.Pool.LookupString(cmd, pool.AuxCommand, true)
		if err != nil {
			return nil, err
		}
		r.Pool.SetInfo(loc, int32(code))
	}
	if _, _, err := r.Pool.LookupString(name, pool.AuxFile, true); err != nil {
		return nil, err
	}
	f, err := r.FS.Open(name)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", name, err)
	}
	r.Report.Print("The top-level auxiliary file: %s\n", name)
	r.push(name, f)

	for len(r.stack) > 0 {
		top := &r.stack[len(r.stack)-1]
		ok, err := top.in.ReadLine(r.Bufs)
		if err != nil {
			r.closeAll()
			return nil, fmt.Errorf("reading %s: %w", top.name, err)
		}
		if !ok {
			top.f.Close()
			r.stack = r.stack[:len(r.stack)-1]
			continue
		}
		if err := r.command(); err != nil {
			r.closeAll()
			return nil, err
		}
	}
	r.finalChecks(name)
	return &r.res, nil
}

func (r *Reader) push(name string, f fs.File) {
	r.stack = append(r.stack, auxFile{name: name, in: input.NewReader(f), f: f})
}

func (r *Reader) closeAll() {
	for _, a := range r.stack {
		a.f.Close()
	}
	r.stack = nil
}

func (r *Reader) current() *auxFile { return &r.stack[len(r.stack)-1] }

// auxErr reports a problem with the current line and abandons the command.
func (r *Reader) auxErr(sc *scanner.Scanner, format string, args ...any) {
	a := r.current()
	r.Report.Print(format, args...)
	r.Report.Print("---line %d of file %s\n", a.in.Line(), a.name)
	r.Report.BadInputLine(sc.Line(), sc.Pos())
	r.Report.Skipping("command")
}

func (r *Reader) command() error {
	sc := scanner.New(r.Bufs)
	if !sc.Scan1(lex.LeftBrace) {
		return nil
	}
	loc, found, _ := r.Pool.Lookup(sc.Token(), pool.AuxCommand, false)
	if !found {
		return nil
	}
	switch r.Pool.Info(loc) {
	case cmdBibData:
		return r.bibData(sc)
	case cmdBibStyle:
		return r.bibStyle(sc)
	case cmdCitation:
		return r.citation(sc)
	case cmdInput:
		return r.include(sc)
	}
	return nil
}

// argument scans one argument ending at one of the given characters and
// checks it for blanks and trailing text. ok is false when it was reported.
func (r *Reader) argument(sc *scanner.Scanner, comma bool) ([]byte, bool) {
	var found bool
	if comma {
		found = sc.Scan2White(lex.RightBrace, lex.Comma)
	} else {
		found = sc.Scan1White(lex.RightBrace)
	}
	if !found {
		r.auxErr(sc, "No \"%c\"", lex.RightBrace)
		return nil, false
	}
	if lex.IsWhite(sc.Char()) {
		r.auxErr(sc, "White space in argument")
		return nil, false
	}
	if sc.Last() > sc.Pos()+1 && sc.Char() == lex.RightBrace {
		r.auxErr(sc, "Stuff after \"%c\"", lex.RightBrace)
		return nil, false
	}
	return sc.Token(), true
}

func (r *Reader) bibData(sc *scanner.Scanner) error {
	if r.res.BibSeen {
		r.auxErr(sc, "Illegal, another \\bibdata command")
		return nil
	}
	r.res.BibSeen = true
	for sc.Char() != lex.RightBrace {
		sc.Advance()
		arg, ok := r.argument(sc, true)
		if !ok {
			return nil
		}
		_, found, err := r.Pool.Lookup(arg, pool.BibFile, true)
		if err != nil {
			return err
		}
		name := string(arg) + ".bib"
		if found {
			r.auxErr(sc, "This database file appears more than once: %s", name)
			return nil
		}
		if _, err := fs.Stat(r.FS, name); err != nil {
			r.auxErr(sc, "I couldn't open database file %s", name)
			return nil
		}
		r.res.BibFiles = append(r.res.BibFiles, name)
	}
	return nil
}

func (r *Reader) bibStyle(sc *scanner.Scanner) error {
	if r.res.StyleSeen {
		r.auxErr(sc, "Illegal, another \\bibstyle command")
		return nil
	}
	r.res.StyleSeen = true
	sc.Advance()
	arg, ok := r.argument(sc, false)
	if !ok {
		return nil
	}
	if _, _, err := r.Pool.Lookup(arg, pool.BstFile, true); err != nil {
		return err
	}
	name := string(arg) + ".bst"
	if _, err := fs.Stat(r.FS, name); err != nil {
		r.auxErr(sc, "I couldn't open style file %s", name)
		return nil
	}
	r.res.Style = name
	r.Report.Print("The style file: %s\n", name)
	return nil
}

func (r *Reader) citation(sc *scanner.Scanner) error {
	r.res.CitationSeen = true
	for sc.Char() != lex.RightBrace {
		sc.Advance()
		key, ok := r.argument(sc, true)
		if !ok {
			return nil
		}
		if len(key) == 1 && key[0] == '*' {
			if r.Cites.AllEntries {
				r.auxErr(sc, "Multiple inclusions of entire database")
				return nil
			}
			r.Cites.MarkAll()
			continue
		}
		earlier, outcome, err := r.Cites.Register(key)
		if err != nil {
			return err
		}
		switch outcome {
		case cite.Added:
			log.Debugf("cite %q", key)
		case cite.CaseDuplicate:
			r.auxErr(sc, "Case mismatch error between cite keys %s and %s\n",
				key, r.Pool.Str(r.Cites.Key(earlier)))
			return nil
		}
	}
	return nil
}

func (r *Reader) include(sc *scanner.Scanner) error {
	if len(r.stack) >= MaxDepth {
		return history.Overflow(history.StackOverflow, "auxiliary file depth", MaxDepth)
	}
	sc.Advance()
	arg, ok := r.argument(sc, false)
	if !ok {
		return nil
	}
	name := string(arg)
	if !strings.HasSuffix(name, ".aux") {
		r.auxErr(sc, "%s has a wrong extension", name)
		return nil
	}
	_, found, err := r.Pool.Lookup(arg, pool.AuxFile, true)
	if err != nil {
		return err
	}
	if found {
		r.auxErr(sc, "Already encountered file %s", name)
		return nil
	}
	f, err := r.FS.Open(name)
	if err != nil {
		r.auxErr(sc, "I couldn't open auxiliary file %s", name)
		return nil
	}
	r.Report.Print("A level-%d auxiliary file: %s\n", len(r.stack), name)
	r.push(name, f)
	return nil
}

func (r *Reader) finalChecks(name string) {
	missing := func(what string) {
		r.Report.Print("I found no %s---while reading file %s\n", what, name)
		r.Report.MarkError()
	}
	switch {
	case !r.res.CitationSeen:
		missing(`\citation commands`)
	case r.Cites.Len() == 0 && !r.Cites.AllEntries:
		missing("citations")
	}
	switch {
	case !r.res.BibSeen:
		missing(`\bibdata command`)
	case len(r.res.BibFiles) == 0:
		missing("database files")
	}
	switch {
	case !r.res.StyleSeen:
		missing(`\bibstyle command`)
	case r.res.Style == "":
		missing("style file")
	}
}
