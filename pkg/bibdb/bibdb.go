// Package bibdb reads bibliography databases: entries, @string macros,
// @preamble text and @comment, and resolves cross references between entries.
package bibdb

import (
	"fmt"
	"io/fs"

	"github.com/tliron/commonlog"

	"github.com/psilLang/bibvm/pkg/buffer"
	"github.com/psilLang/bibvm/pkg/cite"
	"github.com/psilLang/bibvm/pkg/entry"
	"github.com/psilLang/bibvm/pkg/history"
	"github.com/psilLang/bibvm/pkg/input"
	"github.com/psilLang/bibvm/pkg/lex"
	"github.com/psilLang/bibvm/pkg/pool"
	"github.com/psilLang/bibvm/pkg/scanner"
	"github.com/psilLang/bibvm/pkg/types"
)

var log = commonlog.GetLogger("bibvm.bib")

const (
	cmdComment = iota
	cmdPreamble
	cmdString
)

// Reader loads database files into the citation registry and field table.
type Reader struct {
	FS      fs.FS
	Pool    *pool.Pool
	Bufs    *buffer.Buffers
	Cites   *cite.Registry
	Entries *entry.Store
	Report  *history.Reporter

	// CrossrefField is the field number of crossref.
	CrossrefField int
	// MinCrossrefs is how often a parent must be cross-referenced to be
	// included on its own.
	MinCrossrefs int

	// Preamble collects @preamble text in database order.
	Preamble []types.StrNumber

	file string
	in   *input.Reader
	sc   *scanner.Scanner
	err  error

	// abandoned is set when the current entry or command was given up.
	abandoned bool

	// quiet is set during repeat passes, except while storing a new entry.
	quiet  bool
	repeat bool
	stored int

	atCommand  bool
	command    int32
	curMacro   types.HashPointer
	outerDelim byte
	storeField bool
	storeEntry bool
	entryCite  cite.CiteNumber
	fieldLoc   types.HashPointer
}

// Read loads every file in order, repeating the scan while cross-referenced
// entries are still missing and the previous pass found new ones. It then
// resolves cross references and fixes the output list.
func (r *Reader) Read(files []string) error {
	for code, cmd := range []string{"comment", "preamble", "string"} {
		loc, _, err := r.Pool.LookupString(cmd, pool.BibCommand, true)
		if err != nil {
			return err
		}
		r.Pool.SetInfo(loc, int32(code))
	}
	r.sc = scanner.New(r.Bufs)
	r.Cites.OldNumCites = cite.CiteNumber(r.Cites.Len())

	for pass := 0; ; pass++ {
		r.repeat = pass > 0
		r.quiet = r.repeat
		r.stored = 0
		for n, name := range files {
			if !r.repeat {
				r.Report.Print("Database file #%d: %s\n", n+1, name)
			}
			if err := r.readFile(name); err != nil {
				return err
			}
		}
		log.Debugf("pass %d stored %d entries", pass, r.stored)
		if !r.pendingTargets() || (r.repeat && r.stored == 0) {
			break
		}
	}
	r.quiet = false
	r.Entries.GrowFields(r.Cites.Len())
	r.inherit()
	r.subtract()
	r.finalList()
	return nil
}

func (r *Reader) pendingTargets() bool {
	for n := r.Cites.OldNumCites; int(n) < r.Cites.Len(); n++ {
		if r.Cites.Type(n) == types.Empty {
			return true
		}
	}
	return false
}

func (r *Reader) readFile(name string) error {
	f, err := r.FS.Open(name)
	if err != nil {
		return fmt.Errorf("opening %s: %w", name, err)
	}
	defer f.Close()
	r.file = name
	r.in = input.NewReader(f)
	r.Bufs.SetLen(buffer.Base, 0)
	r.sc.SetPos(0)
	skipped := 0
	for r.findAt() {
		switch r.next() {
		case history.Error:
			return r.err
		case history.Recover:
			skipped++
		}
	}
	if skipped > 0 {
		log.Debugf("%s: %d entries or commands skipped", name, skipped)
	}
	return r.err
}

// === Diagnostics ===

func (r *Reader) fail(err error) {
	if r.err == nil {
		r.err = err
	}
}

func (r *Reader) print(format string, args ...any) {
	if !r.quiet {
		r.Report.Print(format, args...)
	}
}

func (r *Reader) pos() history.Position {
	return history.Position{File: r.file, Line: r.in.Line()}
}

// errPrint ends an error message and abandons the entry or command.
func (r *Reader) errPrint() {
	r.abandoned = true
	if r.quiet {
		return
	}
	r.Report.Print("-%s\n", r.pos())
	r.Report.BadInputLine(r.sc.Line(), r.sc.Pos())
	if r.atCommand {
		r.Report.Skipping("command")
	} else {
		r.Report.Skipping("entry")
	}
}

// warnPrint ends a warning message.
func (r *Reader) warnPrint() {
	if r.quiet {
		return
	}
	r.Report.Print("%s\n", r.pos())
	r.Report.MarkWarning()
}

func (r *Reader) eatPrint() {
	r.print("Illegal end of database file")
	r.errPrint()
}

func (r *Reader) oneOfTwo(c1, c2 byte) {
	r.print("I was expecting a `%c' or a `%c'", c1, c2)
	r.errPrint()
}

// idCheck reports a badly ended identifier. It returns false if it did.
func (r *Reader) idCheck(res scanner.Result, what string) bool {
	if res == scanner.WhitespaceAdjacent || res == scanner.SpecifiedCharAdjacent {
		return true
	}
	if res == scanner.IDNull {
		r.print("You're missing ")
	} else {
		r.print("\"%c\" immediately follows ", r.sc.Char())
	}
	r.print("%s", what)
	r.errPrint()
	return false
}

// === Scanning ===

func (r *Reader) nextLine() bool {
	ok, err := r.in.ReadLine(r.Bufs)
	if err != nil {
		r.fail(err)
		return false
	}
	return ok
}

// eatWhite skips blanks and blank lines. It returns false at end of file.
func (r *Reader) eatWhite() bool {
	for !r.sc.ScanWhiteSpace() {
		if !r.nextLine() {
			return false
		}
	}
	return true
}

// lowerToken folds the current token in place.
func (r *Reader) lowerToken() []byte {
	r.Bufs.LowerCase(buffer.Base, r.sc.Start(), r.sc.TokenLen())
	return r.sc.Token()
}

// findAt moves past the next '@'. It returns false at end of file.
func (r *Reader) findAt() bool {
	for !r.sc.Scan1(lex.At) {
		if !r.nextLine() {
			return false
		}
	}
	r.sc.Advance()
	return true
}

// next processes the command or entry following an '@'.
func (r *Reader) next() history.Result {
	r.atCommand = false
	r.abandoned = false
	if !r.eatWhite() {
		r.eatPrint()
		return r.outcome()
	}
	if !r.idCheck(r.sc.ScanIdentifier(lex.LeftBrace, lex.LeftParen, lex.LeftParen), "an entry type") {
		return r.outcome()
	}
	typ := r.lowerToken()
	if loc, found, _ := r.Pool.Lookup(typ, pool.BibCommand, false); found {
		r.atCommand = true
		r.command = r.Pool.Info(loc)
		switch r.command {
		case cmdPreamble:
			r.preamble()
		case cmdString:
			r.macro()
		}
		return r.outcome()
	}
	r.entry(typ)
	return r.outcome()
}

func (r *Reader) outcome() history.Result {
	switch {
	case r.err != nil:
		return history.Error
	case r.abandoned:
		return history.Recover
	}
	return history.Ok
}

// openDelim reads the opening delimiter of a command or entry body.
func (r *Reader) openDelim() bool {
	if !r.eatWhite() {
		r.eatPrint()
		return false
	}
	switch r.sc.Char() {
	case lex.LeftBrace:
		r.outerDelim = lex.RightBrace
	case lex.LeftParen:
		r.outerDelim = lex.RightParen
	default:
		r.oneOfTwo(lex.LeftBrace, lex.LeftParen)
		return false
	}
	r.sc.Advance()
	if !r.eatWhite() {
		r.eatPrint()
		return false
	}
	return true
}

func (r *Reader) closeDelim(what string) {
	if r.sc.Char() != r.outerDelim {
		r.print("Missing \"%c\" in %s command", r.outerDelim, what)
		r.errPrint()
		return
	}
	r.sc.Advance()
}

func (r *Reader) preamble() {
	if !r.openDelim() {
		return
	}
	r.storeField = !r.repeat
	if !r.fieldValue() {
		return
	}
	r.closeDelim("preamble")
}

func (r *Reader) macro() {
	if !r.openDelim() {
		return
	}
	if !r.idCheck(r.sc.ScanIdentifier(lex.Equals, lex.Equals, lex.Equals), "a string name") {
		return
	}
	loc, _, err := r.Pool.Lookup(r.lowerToken(), pool.Macro, true)
	if err != nil {
		r.fail(err)
		return
	}
	r.curMacro = loc
	r.Pool.SetInfo(loc, int32(r.Pool.Text(loc)))
	if !r.eatWhite() {
		r.eatPrint()
		return
	}
	if r.sc.Char() != lex.Equals {
		r.print("I was expecting an \"=\"")
		r.errPrint()
		return
	}
	r.sc.Advance()
	if !r.eatWhite() {
		r.eatPrint()
		return
	}
	r.storeField = true
	if !r.fieldValue() {
		return
	}
	r.closeDelim("string")
}

func (r *Reader) entry(typ []byte) {
	typeLoc, found, _ := r.Pool.Lookup(typ, pool.BstFn, false)
	typeExists := found && r.Pool.Class(typeLoc) == types.FnWizard

	if !r.openDelim() {
		return
	}
	if r.outerDelim == lex.RightParen {
		r.sc.Scan1White(lex.Comma)
	} else {
		r.sc.Scan2White(lex.Comma, lex.RightBrace)
	}
	key := append([]byte(nil), r.sc.Token()...)
	n, known := r.Cites.Lookup(key)

	r.storeEntry = true
	switch {
	case known && r.Cites.Type(n) != types.Empty:
		if r.repeat {
			r.storeEntry = false
			break
		}
		r.print("Repeated entry")
		r.errPrint()
		return
	case known:
		if n >= r.Cites.OldNumCites && !r.exactCite(key) {
			if err := r.Cites.Rekey(n, key); err != nil {
				r.fail(err)
				return
			}
		}
	case r.Cites.AllEntries && !r.repeat:
		var err error
		if n, err = r.Cites.AddDatabaseCite(key); err != nil {
			r.fail(err)
			return
		}
		r.Entries.GrowFields(r.Cites.Len())
	default:
		r.storeEntry = false
	}
	r.entryCite = n

	if r.storeEntry {
		r.quiet = false
		r.stored++
		if typeExists {
			r.Cites.SetType(n, typeLoc)
		} else {
			r.Cites.SetType(n, types.Undefined)
			r.print("Warning--entry type for \"%s\" isn't style-file defined\n", key)
			r.warnPrint()
		}
		r.Cites.SetExists(n, true)
		r.Entries.GrowFields(int(n) + 1)
	}
	r.fields()
	r.quiet = r.repeat
}

// exactCite reports whether key is registered with exactly this spelling.
func (r *Reader) exactCite(key []byte) bool {
	_, found, _ := r.Pool.Lookup(key, pool.Cite, false)
	return found
}

func (r *Reader) fields() {
	if !r.eatWhite() {
		r.eatPrint()
		return
	}
	for r.sc.Char() != r.outerDelim {
		if r.sc.Char() != lex.Comma {
			r.oneOfTwo(lex.Comma, r.outerDelim)
			return
		}
		r.sc.Advance()
		if !r.eatWhite() {
			r.eatPrint()
			return
		}
		if r.sc.Char() == r.outerDelim {
			break
		}
		if !r.idCheck(r.sc.ScanIdentifier(lex.Equals, lex.Equals, lex.Equals), "a field name") {
			return
		}
		r.storeField = false
		if r.storeEntry {
			loc, found, _ := r.Pool.Lookup(r.lowerToken(), pool.BstFn, false)
			if found && r.Pool.Class(loc) == types.FnField {
				r.storeField = true
				r.fieldLoc = loc
			}
		}
		if !r.eatWhite() {
			r.eatPrint()
			return
		}
		if r.sc.Char() != lex.Equals {
			r.print("I was expecting an \"=\"")
			r.errPrint()
			return
		}
		r.sc.Advance()
		if !r.eatWhite() {
			r.eatPrint()
			return
		}
		if !r.fieldValue() {
			return
		}
	}
	r.sc.Advance()
}
