package bibdb

import (
	"github.com/psilLang/bibvm/pkg/buffer"
	"github.com/psilLang/bibvm/pkg/lex"
	"github.com/psilLang/bibvm/pkg/pool"
	"github.com/psilLang/bibvm/pkg/types"
)

// Field values are assembled in the Ex buffer: whitespace runs, line ends
// included, collapse to one space.

func (r *Reader) add(c byte) bool {
	if err := r.Bufs.Append(buffer.Ex, c); err != nil {
		r.fail(err)
		return false
	}
	return true
}

func (r *Reader) lastIsSpace() bool {
	n := r.Bufs.Len(buffer.Ex)
	return n > 0 && r.Bufs.At(buffer.Ex, n-1) == lex.Space
}

// compressWhite adds a single space for the blanks at the cursor, reading
// further lines as needed. It returns false at end of file.
func (r *Reader) compressWhite() bool {
	if r.storeField && (r.Bufs.Len(buffer.Ex) == 0 || !r.lastIsSpace()) {
		if !r.add(lex.Space) {
			return false
		}
	}
	return r.eatWhite()
}

// fieldValue scans a value made of '#'-joined parts and stores it when the
// field, macro or preamble is wanted.
func (r *Reader) fieldValue() bool {
	r.Bufs.SetLen(buffer.Ex, 0)
	if !r.fieldToken() {
		return false
	}
	for r.sc.Char() == lex.Concat {
		r.sc.Advance()
		if !r.eatWhite() {
			r.eatPrint()
			return false
		}
		if !r.fieldToken() {
			return false
		}
	}
	if r.storeField {
		r.storeValue()
	}
	return r.err == nil
}

// fieldToken scans one part of a value and the whitespace after it.
func (r *Reader) fieldToken() bool {
	switch c := r.sc.Char(); {
	case c == lex.LeftBrace:
		if !r.balanced(lex.RightBrace) {
			return false
		}
	case c == lex.DoubleQuote:
		if !r.balanced(lex.DoubleQuote) {
			return false
		}
	case lex.Of(c) == lex.Numeric:
		r.sc.ScanNonnegInteger()
		if r.storeField {
			if err := r.Bufs.AppendBytes(buffer.Ex, r.sc.Token()); err != nil {
				r.fail(err)
				return false
			}
		}
	default:
		res := r.sc.ScanIdentifier(lex.Comma, r.outerDelim, lex.Concat)
		if !r.idCheck(res, "a field part") {
			return false
		}
		if r.storeField && !r.expandMacro() {
			return false
		}
	}
	if !r.eatWhite() {
		r.eatPrint()
		return false
	}
	return true
}

// expandMacro appends the text of the macro named by the current token.
func (r *Reader) expandMacro() bool {
	name := r.lowerToken()
	loc, found, _ := r.Pool.Lookup(name, pool.Macro, false)
	switch {
	case !found:
		r.macroWarn(name, "undefined")
		return true
	case r.atCommand && r.command == cmdString && loc == r.curMacro:
		r.macroWarn(name, "used in its own definition")
		return true
	}
	text := r.Pool.Str(types.StrNumber(r.Pool.Info(loc)))
	p := 0
	if r.Bufs.Len(buffer.Ex) == 0 && len(text) > 0 && lex.IsWhite(text[0]) {
		if !r.add(lex.Space) {
			return false
		}
		for p < len(text) && lex.IsWhite(text[p]) {
			p++
		}
	}
	for ; p < len(text); p++ {
		switch {
		case !lex.IsWhite(text[p]):
			if !r.add(text[p]) {
				return false
			}
		case !r.lastIsSpace():
			if !r.add(lex.Space) {
				return false
			}
		}
	}
	return true
}

func (r *Reader) macroWarn(name []byte, what string) {
	r.print("Warning--string name \"%s\" is %s\n", name, what)
	r.warnPrint()
}

// balanced scans a quoted or braced part ending at delim. Inside nested
// braces the delimiter is ordinary text.
func (r *Reader) balanced(delim byte) bool {
	r.sc.Advance()
	level := 0
	for {
		if r.sc.AtEnd() || lex.IsWhite(r.sc.Char()) {
			if !r.compressWhite() {
				r.eatPrint()
				return false
			}
			continue
		}
		c := r.sc.Char()
		switch {
		case level == 0 && c == delim:
			r.sc.Advance()
			return true
		case c == lex.LeftBrace:
			level++
		case c == lex.RightBrace:
			if level == 0 {
				r.print("Unbalanced braces")
				r.errPrint()
				return false
			}
			level--
		}
		if r.storeField && !r.add(c) {
			return false
		}
		r.sc.Advance()
	}
}

// storeValue enters the assembled value into the pool and hands it to the
// preamble, the macro being defined or the entry's field.
func (r *Reader) storeValue() {
	val := r.Bufs.Content(buffer.Ex)
	if !r.atCommand {
		if n := len(val); n > 0 && val[n-1] == lex.Space {
			val = val[:n-1]
		}
		if len(val) > 0 && val[0] == lex.Space {
			val = val[1:]
		}
	}
	loc, _, err := r.Pool.Lookup(val, pool.Text, true)
	if err != nil {
		r.fail(err)
		return
	}
	r.Pool.SetClass(loc, types.FnStrLit)
	s := r.Pool.Text(loc)

	if r.atCommand {
		switch r.command {
		case cmdPreamble:
			r.Preamble = append(r.Preamble, s)
		case cmdString:
			r.Pool.SetInfo(r.curMacro, int32(s))
		}
		return
	}

	field := int(r.Pool.Info(r.fieldLoc))
	c := int(r.entryCite)
	if r.Entries.Field(c, field) != types.Missing {
		r.print("Warning--I'm ignoring %s's extra \"%s\" field\n",
			r.Pool.Str(r.Cites.Key(r.entryCite)), r.Pool.Str(r.Pool.Text(r.fieldLoc)))
		r.warnPrint()
		return
	}
	r.Entries.SetField(c, field, s)
	if field == r.CrossrefField && !r.Cites.AllEntries {
		r.schedule(val)
	}
}

// schedule counts a cross reference to target, adding the target to the
// citation list when it was not cited.
func (r *Reader) schedule(target []byte) {
	if n, known := r.Cites.Lookup(target); known {
		if n >= r.Cites.OldNumCites {
			r.Cites.SetInfo(n, r.Cites.Info(n)+1)
		}
		return
	}
	key := append([]byte(nil), target...)
	n, err := r.Cites.AddDatabaseCite(key)
	if err != nil {
		r.fail(err)
		return
	}
	r.Cites.SetInfo(n, 1)
	log.Debugf("cross reference to %q scheduled", key)
}
