package interpreter

import (
	"github.com/psilLang/bibvm/pkg/buffer"
	"github.com/psilLang/bibvm/pkg/lex"
	"github.com/psilLang/bibvm/pkg/types"
)

// longToken is the number of text characters above which a name part is
// separated by a space rather than a tie.
const longToken = 3

// scanForAnd advances p past the next top-level " and " in ex and returns the
// position after "and", or len(ex) when there is none.
func (i *Interpreter) scanForAnd(ex []byte, p int, src types.StrNumber) int {
	level := 0
	precedingWhite := false
	for p < len(ex) {
		switch ex[p] {
		case 'a', 'A':
			p++
			if precedingWhite && p <= len(ex)-3 &&
				(ex[p] == 'n' || ex[p] == 'N') && (ex[p+1] == 'd' || ex[p+1] == 'D') &&
				lex.IsWhite(ex[p+2]) {
				return p + 2
			}
			precedingWhite = false
		case lex.LeftBrace:
			level++
			p++
			for level > 0 && p < len(ex) {
				if ex[p] == lex.RightBrace {
					level--
				} else if ex[p] == lex.LeftBrace {
					level++
				}
				p++
			}
			precedingWhite = false
		case lex.RightBrace:
			if level == 0 {
				i.unbalanced(src)
			} else {
				level--
			}
			p++
			precedingWhite = false
		default:
			precedingWhite = lex.IsWhite(ex[p])
			p++
		}
	}
	if level > 0 {
		i.unbalanced(src)
	}
	return p
}

func builtinNumNames(i *Interpreter) error {
	s, ok := i.popStr()
	if !ok {
		return i.Push(types.Integer(0))
	}
	ex, err := i.loadEx(s)
	if err != nil {
		return err
	}
	var n int32
	for p := 0; p < len(ex); n++ {
		p = i.scanForAnd(ex, p, s)
	}
	return i.Push(types.Integer(n))
}

// nameParts holds the token ranges of the four parts of a name.
type nameParts struct {
	firstStart, firstEnd int
	vonStart, vonEnd     int
	lastEnd              int
	jrEnd                int
}

// nameTokens is a name split into tokens inside the Sv buffer.
type nameTokens struct {
	i   *Interpreter
	n   int
	sv  []byte
	sep []byte
}

func (t *nameTokens) tok(k int) []byte {
	return t.sv[t.i.Bufs.NameTok(k):t.i.Bufs.NameTok(k+1)]
}

func builtinFormatName(i *Interpreter) error {
	a, b, c := i.Pop3()
	format, ok := a.(types.String)
	if !ok {
		i.wrongType(a, types.StkString)
		return i.pushNull()
	}
	which, ok := b.(types.Integer)
	if !ok {
		i.wrongType(b, types.StkInteger)
		return i.pushNull()
	}
	names, ok := c.(types.String)
	if !ok {
		i.wrongType(c, types.StkString)
		return i.pushNull()
	}
	src := types.StrNumber(names)
	ex, err := i.loadEx(src)
	if err != nil {
		return err
	}

	// Isolate the requested name.
	var num int32
	start, p := 0, 0
	for num < int32(which) && p < len(ex) {
		num++
		start = p
		p = i.scanForAnd(ex, p, src)
	}
	if num > 0 && p < len(ex) {
		p -= 4
	}
	if which < 1 || num < int32(which) {
		if which == 1 {
			i.Report.Print("There is no name in \"%s", ex)
		} else {
			i.Report.Print("There aren't %d names in \"%s", int32(which), ex)
		}
		i.exWarn("\"")
	}
trim:
	for p > start {
		switch lex.Of(ex[p-1]) {
		case lex.Whitespace, lex.Sep:
			p--
		default:
			if ex[p-1] != lex.Comma {
				break trim
			}
			i.Report.Print("Name %d in \"%s", int32(which), ex)
			i.exWarn("\" has a comma at the end")
			p--
		}
	}

	toks, commas, err := i.tokenizeName(ex[start:p], int32(which), ex)
	if err != nil {
		return err
	}
	parts := toks.parts(commas)

	out, err := i.formatName(i.Pool.Str(types.StrNumber(format)), types.StrNumber(format), toks, parts)
	if err != nil {
		return err
	}
	return i.PushString(out)
}

// tokenizeName splits a single name into tokens in the Sv buffer, recording
// separators in the NameSep buffer. It returns the token boundaries and the
// token indices at which commas occurred.
func (i *Interpreter) tokenizeName(name []byte, which int32, whole []byte) (*nameTokens, []int, error) {
	b := i.Bufs
	if err := b.Ensure(buffer.Sv, len(name)+1); err != nil {
		return nil, nil, err
	}
	if err := b.Ensure(buffer.NameSep, len(name)+1); err != nil {
		return nil, nil, err
	}
	sv := b.Bytes(buffer.Sv)
	sep := b.Bytes(buffer.NameSep)

	var commas []int
	bf, numTokens := 0, 0
	starting := true
	newToken := func() error {
		if err := b.SetNameTok(numTokens, bf); err != nil {
			return err
		}
		numTokens++
		return nil
	}
	for x := 0; x < len(name); {
		switch c := name[x]; {
		case c == lex.Comma:
			if len(commas) == 2 {
				i.Report.Print("Too many commas in name %d of \"%s", which, whole)
				i.exWarn("\"")
			} else {
				commas = append(commas, numTokens)
				sep[numTokens] = lex.Comma
			}
			x++
			starting = true
		case c == lex.LeftBrace:
			level := 1
			if starting {
				if err := newToken(); err != nil {
					return nil, nil, err
				}
			}
			sv[bf] = c
			bf++
			x++
			for level > 0 && x < len(name) {
				if name[x] == lex.RightBrace {
					level--
				} else if name[x] == lex.LeftBrace {
					level++
				}
				sv[bf] = name[x]
				bf++
				x++
			}
			starting = false
		case c == lex.RightBrace:
			if starting {
				if err := newToken(); err != nil {
					return nil, nil, err
				}
			}
			i.Report.Print("Name %d of \"%s", which, whole)
			i.exWarn("\" isn't brace balanced")
			x++
			starting = false
		case lex.IsWhite(c):
			if !starting {
				sep[numTokens] = lex.Space
			}
			x++
			starting = true
		case lex.Of(c) == lex.Sep:
			if !starting {
				sep[numTokens] = c
			}
			x++
			starting = true
		default:
			if starting {
				if err := newToken(); err != nil {
					return nil, nil, err
				}
			}
			sv[bf] = c
			bf++
			x++
			starting = false
		}
	}
	if err := b.SetNameTok(numTokens, bf); err != nil {
		return nil, nil, err
	}
	b.SetLen(buffer.Sv, bf)
	return &nameTokens{i: i, n: numTokens, sv: b.Bytes(buffer.Sv), sep: b.Bytes(buffer.NameSep)}, commas, nil
}

// vonToken reports whether token k starts with a lower-case letter, looking
// inside braces and special characters the way the name grammar requires.
func (t *nameTokens) vonToken(k int) bool {
	s := t.tok(k)
	level := 0
	for p := 0; p < len(s); {
		switch c := s[p]; {
		case c >= 'A' && c <= 'Z':
			return false
		case c >= 'a' && c <= 'z':
			return true
		case c == lex.LeftBrace:
			level++
			p++
			if p+2 < len(s) && s[p] == lex.Backslash {
				p++
				y := p
				for p < len(s) && lex.IsAlpha(s[p]) {
					p++
				}
				if code, ok := t.i.controlSeq(s[y:p]); ok {
					switch code {
					case csOEUpper, csAEUpper, csAAUpper, csOUpper, csLUpper:
						return false
					default:
						return true
					}
				}
				for p < len(s) && level > 0 {
					switch c := s[p]; {
					case c >= 'A' && c <= 'Z':
						return false
					case c >= 'a' && c <= 'z':
						return true
					case c == lex.RightBrace:
						level--
					case c == lex.LeftBrace:
						level++
					}
					p++
				}
				return false
			}
			for level > 0 && p < len(s) {
				if s[p] == lex.RightBrace {
					level--
				} else if s[p] == lex.LeftBrace {
					level++
				}
				p++
			}
		default:
			p++
		}
	}
	return false
}

// vonEndsLastStarts finds the end of the von part searching back from the
// last token of the last part.
func (t *nameTokens) vonEndsLastStarts(np *nameParts) {
	np.vonEnd = np.lastEnd - 1
	for np.vonEnd > np.vonStart {
		if t.vonToken(np.vonEnd - 1) {
			return
		}
		np.vonEnd--
	}
}

func (t *nameTokens) parts(commas []int) nameParts {
	var np nameParts
	switch len(commas) {
	case 0:
		np.lastEnd = t.n
		np.jrEnd = np.lastEnd
		for np.vonStart = 0; np.vonStart < np.lastEnd-1; np.vonStart++ {
			if t.vonToken(np.vonStart) {
				t.vonEndsLastStarts(&np)
				np.firstEnd = np.vonStart
				return np
			}
		}
		for np.vonStart > 0 {
			if c := t.sep[np.vonStart]; lex.Of(c) != lex.Sep || c == lex.Tie {
				break
			}
			np.vonStart--
		}
		np.vonEnd = np.vonStart
		np.firstEnd = np.vonStart
	case 1:
		np.lastEnd = commas[0]
		np.jrEnd = np.lastEnd
		np.firstStart = np.jrEnd
		np.firstEnd = t.n
		t.vonEndsLastStarts(&np)
	default:
		np.lastEnd = commas[0]
		np.jrEnd = commas[1]
		np.firstStart = np.jrEnd
		np.firstEnd = t.n
		t.vonEndsLastStarts(&np)
	}
	return np
}

// enoughTextChars reports whether out[from:] holds at least n text characters.
func enoughTextChars(out []byte, from, n int) bool {
	count, level := 0, 0
	for y := from; y < len(out) && count < n; {
		y++
		if out[y-1] == lex.LeftBrace {
			level++
			if level == 1 && y < len(out) && out[y] == lex.Backslash {
				y++
				for y < len(out) && level > 0 {
					if out[y] == lex.RightBrace {
						level--
					} else if out[y] == lex.LeftBrace {
						level++
					}
					y++
				}
			}
		} else if out[y-1] == lex.RightBrace {
			level--
		}
		count++
	}
	return count >= n
}

// formatName renders the name held in toks according to format.
func (i *Interpreter) formatName(format []byte, fmtStr types.StrNumber, toks *nameTokens, np nameParts) ([]byte, error) {
	b := i.Bufs
	b.SetLen(buffer.Ex, 0)
	emit := func(c byte) error { return b.Append(buffer.Ex, c) }
	out := func() []byte { return b.Content(buffer.Ex) }

	complain := func() {
		i.Report.Print("The format string \"%s", format)
		i.exWarn("\" has an illegal brace-level-1 letter")
	}
	skipNested := func(p, level int) (int, int) {
		for level > 1 && p < len(format) {
			if format[p] == lex.RightBrace {
				level--
			} else if format[p] == lex.LeftBrace {
				level++
			}
			p++
		}
		return p, level
	}

	level := 0
	for p := 0; p < len(format); {
		switch format[p] {
		case lex.LeftBrace:
			level++
			p++
			groupStart := p
			alphaFound, double, endOfGroup, toWrite := false, false, false, true
			var cur, last int
			for !endOfGroup && p < len(format) {
				switch c := format[p]; {
				case lex.IsAlpha(c):
					p++
					if alphaFound {
						complain()
						toWrite = false
					} else {
						next := byte(0)
						if p < len(format) {
							next = format[p]
						}
						switch c {
						case 'f', 'F':
							cur, last = np.firstStart, np.firstEnd
							double = next == 'f' || next == 'F'
						case 'v', 'V':
							cur, last = np.vonStart, np.vonEnd
							double = next == 'v' || next == 'V'
						case 'l', 'L':
							cur, last = np.vonEnd, np.lastEnd
							double = next == 'l' || next == 'L'
						case 'j', 'J':
							cur, last = np.lastEnd, np.jrEnd
							double = next == 'j' || next == 'J'
						default:
							complain()
							toWrite = false
						}
						if cur == last {
							toWrite = false
						}
						if double {
							p++
						}
					}
					alphaFound = true
				case c == lex.RightBrace:
					level--
					p++
					endOfGroup = true
				case c == lex.LeftBrace:
					level++
					p++
					p, level = skipNested(p, level)
				default:
					p++
				}
			}
			if endOfGroup && toWrite {
				if err := i.formatPart(format, groupStart, toks, cur, last, double, emit, out); err != nil {
					return nil, err
				}
			}
		case lex.RightBrace:
			i.unbalanced(fmtStr)
			p++
		default:
			if err := emit(format[p]); err != nil {
				return nil, err
			}
			p++
		}
	}
	if level > 0 {
		i.unbalanced(fmtStr)
	}
	return out(), nil
}

// formatPart writes one brace-level-1 group of a format string, the group's
// text starting at p.
func (i *Interpreter) formatPart(format []byte, p int, toks *nameTokens, cur, last int, double bool,
	emit func(byte) error, out func() []byte) error {
	partStart := len(out())
	level := 1
	for level > 0 {
		switch c := format[p]; {
		case lex.IsAlpha(c) && level == 1:
			p++
			if double {
				p++
			}
			useDefault := true
			var sepFrom, sepTo int
			if p < len(format) && format[p] == lex.LeftBrace {
				useDefault = false
				level++
				p++
				sepFrom = p
				for level > 1 && p < len(format) {
					if format[p] == lex.RightBrace {
						level--
					} else if format[p] == lex.LeftBrace {
						level++
					}
					p++
				}
				sepTo = p - 1
			}
			for cur < last {
				tok := toks.tok(cur)
				if double {
					for _, tc := range tok {
						if err := emit(tc); err != nil {
							return err
						}
					}
				} else if err := abbreviate(tok, emit); err != nil {
					return err
				}
				cur++
				if cur >= last {
					break
				}
				if !useDefault {
					for _, sc := range format[sepFrom:sepTo] {
						if err := emit(sc); err != nil {
							return err
						}
					}
					continue
				}
				if !double {
					if err := emit(lex.Period); err != nil {
						return err
					}
				}
				sep := toks.sep[cur]
				switch {
				case lex.Of(sep) == lex.Sep:
				case cur == last-1 || !enoughTextChars(out(), partStart, longToken):
					sep = lex.Tie
				default:
					sep = lex.Space
				}
				if err := emit(sep); err != nil {
					return err
				}
			}
		case c == lex.RightBrace:
			level--
			p++
			if level > 0 {
				if err := emit(lex.RightBrace); err != nil {
					return err
				}
			}
		case c == lex.LeftBrace:
			level++
			p++
			if err := emit(lex.LeftBrace); err != nil {
				return err
			}
		default:
			if err := emit(c); err != nil {
				return err
			}
			p++
		}
	}

	// A tie ending the part is discretionary.
	o := out()
	if len(o) > partStart && o[len(o)-1] == lex.Tie {
		n := len(o) - 1
		if n > 0 && o[n-1] == lex.Tie {
			i.Bufs.SetLen(buffer.Ex, n)
		} else if enoughTextChars(o[:n], partStart, longToken) {
			o[n] = lex.Space
		}
	}
	return nil
}

// abbreviate writes the first letter of tok, or its leading special character.
func abbreviate(tok []byte, emit func(byte) error) error {
	for p := 0; p < len(tok); p++ {
		if lex.IsAlpha(tok[p]) {
			return emit(tok[p])
		}
		if tok[p] == lex.LeftBrace && p+1 < len(tok) && tok[p+1] == lex.Backslash {
			if err := emit(lex.LeftBrace); err != nil {
				return err
			}
			if err := emit(lex.Backslash); err != nil {
				return err
			}
			level := 1
			for p += 2; p < len(tok) && level > 0; p++ {
				if tok[p] == lex.RightBrace {
					level--
				} else if tok[p] == lex.LeftBrace {
					level++
				}
				if err := emit(tok[p]); err != nil {
					return err
				}
			}
			return nil
		}
	}
	return nil
}
