package interpreter

import (
	"github.com/psilLang/bibvm/pkg/buffer"
	"github.com/psilLang/bibvm/pkg/lex"
	"github.com/psilLang/bibvm/pkg/pool"
	"github.com/psilLang/bibvm/pkg/types"
)

// Control sequences that name accented or foreign characters.
const (
	csI = iota
	csJ
	csOE
	csOEUpper
	csAE
	csAEUpper
	csAA
	csAAUpper
	csO
	csOUpper
	csL
	csLUpper
	csSS
)

var controlSeqs = []struct {
	name string
	code int
}{
	{"i", csI}, {"j", csJ},
	{"oe", csOE}, {"OE", csOEUpper},
	{"ae", csAE}, {"AE", csAEUpper},
	{"aa", csAA}, {"AA", csAAUpper},
	{"o", csO}, {"O", csOUpper},
	{"l", csL}, {"L", csLUpper},
	{"ss", csSS},
}

func (i *Interpreter) controlSeq(name []byte) (int, bool) {
	loc, found, _ := i.Pool.Lookup(name, pool.ControlSeq, false)
	if !found {
		return 0, false
	}
	return int(i.Pool.Info(loc)), true
}

// loadEx copies s into the expression buffer and returns its contents.
func (i *Interpreter) loadEx(s types.StrNumber) ([]byte, error) {
	if err := i.Bufs.Load(buffer.Ex, i.Pool.Str(s)); err != nil {
		return nil, err
	}
	return i.Bufs.Content(buffer.Ex), nil
}

func (i *Interpreter) unbalanced(s types.StrNumber) {
	i.mildWarn("Warning--\"%s\" isn't a brace-balanced string", i.Pool.Str(s))
}

// === add.period$ ===

func builtinAddPeriod(i *Interpreter) error {
	s, ok := i.popStr()
	if !ok {
		return i.pushNull()
	}
	b := i.Pool.Str(s)
	if len(b) == 0 {
		return i.pushNull()
	}
	p := len(b)
	for p > 0 && b[p-1] == lex.RightBrace {
		p--
	}
	if p > 0 {
		switch b[p-1] {
		case '.', '?', '!':
			return i.Push(types.String(s))
		}
	}
	out := make([]byte, 0, len(b)+1)
	out = append(append(out, b...), lex.Period)
	return i.PushString(out)
}

// === change.case$ ===

type conversion int

const (
	titleLowers conversion = iota
	allLowers
	allUppers
	badConversion
)

func builtinChangeCase(i *Interpreter) error {
	a, b := i.Pop2()
	spec, ok := a.(types.String)
	if !ok {
		i.wrongType(a, types.StkString)
		return i.pushNull()
	}
	str, ok := b.(types.String)
	if !ok {
		i.wrongType(b, types.StkString)
		return i.pushNull()
	}
	conv := badConversion
	if sb := i.Pool.Str(types.StrNumber(spec)); len(sb) == 1 {
		switch sb[0] {
		case 't', 'T':
			conv = titleLowers
		case 'l', 'L':
			conv = allLowers
		case 'u', 'U':
			conv = allUppers
		}
	}
	if conv == badConversion {
		i.exWarn("%s is an illegal case-conversion string", i.Pool.Str(types.StrNumber(spec)))
	}
	ex, err := i.loadEx(types.StrNumber(str))
	if err != nil {
		return err
	}
	ex = i.changeCase(ex, conv, types.StrNumber(str))
	return i.PushString(ex)
}

func convertRun(ex []byte, from, to int, conv conversion) {
	switch conv {
	case titleLowers, allLowers:
		for k := from; k < to; k++ {
			ex[k] = lex.ToLower(ex[k])
		}
	case allUppers:
		for k := from; k < to; k++ {
			ex[k] = lex.ToUpper(ex[k])
		}
	}
}

func (i *Interpreter) changeCase(ex []byte, conv conversion, src types.StrNumber) []byte {
	level := 0
	prevColon := false
	n := len(ex)
	for p := 0; p < n; p++ {
		switch {
		case ex[p] == lex.LeftBrace:
			level++
			if level == 1 && p+4 <= n && ex[p+1] == lex.Backslash &&
				(conv != titleLowers || (p != 0 && !(prevColon && lex.IsWhite(ex[p-1])))) {
				p, n, level = i.convertSpecial(ex, p, n, level, conv)
			}
			prevColon = false
		case ex[p] == lex.RightBrace:
			if level == 0 {
				i.unbalanced(src)
			} else {
				level--
			}
			prevColon = false
		case level == 0:
			switch conv {
			case titleLowers:
				if p != 0 && !(prevColon && lex.IsWhite(ex[p-1])) {
					ex[p] = lex.ToLower(ex[p])
				}
				if ex[p] == lex.Colon {
					prevColon = true
				} else if !lex.IsWhite(ex[p]) {
					prevColon = false
				}
			case allLowers:
				ex[p] = lex.ToLower(ex[p])
			case allUppers:
				ex[p] = lex.ToUpper(ex[p])
			}
		}
	}
	if level > 0 {
		i.unbalanced(src)
	}
	return ex[:n]
}

// convertSpecial converts a special character starting at the brace at p.
// It returns the position of its last character, the possibly shortened
// length and the brace level.
func (i *Interpreter) convertSpecial(ex []byte, p, n, level int, conv conversion) (int, int, int) {
	p++
	for p < n && level > 0 {
		p++
		x := p
		for p < n && lex.IsAlpha(ex[p]) {
			p++
		}
		if code, ok := i.controlSeq(ex[x:p]); ok {
			switch conv {
			case titleLowers, allLowers:
				switch code {
				case csLUpper, csOUpper, csOEUpper, csAEUpper, csAAUpper:
					convertRun(ex, x, p, allLowers)
				}
			case allUppers:
				switch code {
				case csL, csO, csOE, csAE, csAA:
					convertRun(ex, x, p, allUppers)
				case csI, csJ, csSS:
					// Drop the backslash and the blanks after the name.
					convertRun(ex, x, p, allUppers)
					copy(ex[x-1:], ex[x:p])
					x = p - 1
					for p < n && lex.IsWhite(ex[p]) {
						p++
					}
					copy(ex[x:], ex[p:n])
					n -= p - x
					p = x
				}
			}
		}
		x = p
		for p < n && level > 0 && ex[p] != lex.Backslash {
			if ex[p] == lex.RightBrace {
				level--
			} else if ex[p] == lex.LeftBrace {
				level++
			}
			p++
		}
		convertRun(ex, x, p, conv)
	}
	return p - 1, n, level
}

// === purify$ ===

func builtinPurify(i *Interpreter) error {
	s, ok := i.popStr()
	if !ok {
		return i.pushNull()
	}
	ex, err := i.loadEx(s)
	if err != nil {
		return err
	}
	level, x, n := 0, 0, len(ex)
	for p := 0; p < n; p++ {
		switch lex.Of(ex[p]) {
		case lex.Whitespace, lex.Sep:
			ex[x] = lex.Space
			x++
		case lex.Alpha, lex.Numeric:
			ex[x] = ex[p]
			x++
		default:
			switch ex[p] {
			case lex.LeftBrace:
				level++
				if level == 1 && p+1 < n && ex[p+1] == lex.Backslash {
					p++
					for p < n && level > 0 {
						p++
						y := p
						for p < n && lex.IsAlpha(ex[p]) {
							p++
						}
						if code, ok := i.controlSeq(ex[y:p]); ok {
							ex[x] = ex[y]
							x++
							switch code {
							case csOE, csOEUpper, csAE, csAEUpper, csSS:
								ex[x] = ex[y+1]
								x++
							}
						}
						for p < n && level > 0 && ex[p] != lex.Backslash {
							switch lex.Of(ex[p]) {
							case lex.Alpha, lex.Numeric:
								ex[x] = ex[p]
								x++
							default:
								if ex[p] == lex.RightBrace {
									level--
								} else if ex[p] == lex.LeftBrace {
									level++
								}
							}
							p++
						}
					}
					p--
				}
			case lex.RightBrace:
				if level > 0 {
					level--
				}
			}
		}
	}
	return i.PushString(ex[:x])
}

// === substring$ ===

func builtinSubstring(i *Interpreter) error {
	a, b, c := i.Pop3()
	length, ok := a.(types.Integer)
	if !ok {
		i.wrongType(a, types.StkInteger)
		return i.pushNull()
	}
	start, ok := b.(types.Integer)
	if !ok {
		i.wrongType(b, types.StkInteger)
		return i.pushNull()
	}
	str, ok := c.(types.String)
	if !ok {
		i.wrongType(c, types.StkString)
		return i.pushNull()
	}
	s := i.Pool.Str(types.StrNumber(str))
	n := int32(len(s))
	if length >= types.Integer(n) && (start == 1 || start == -1) {
		return i.Push(str)
	}
	if length <= 0 || start == 0 || int32(start) > n || int32(start) < -n {
		return i.pushNull()
	}
	l, st := int32(length), int32(start)
	var from, to int32
	if st > 0 {
		if l > n-(st-1) {
			l = n - (st - 1)
		}
		from = st - 1
		to = from + l
	} else {
		st = -st
		if l > n-(st-1) {
			l = n - (st - 1)
		}
		to = n - (st - 1)
		from = to - l
	}
	return i.PushString(append([]byte(nil), s[from:to]...))
}

// === text.length$ and text.prefix$ ===

// textChars walks s counting text characters, a special character counting as
// one, and stops after limit of them. It returns the end position and the
// brace level there.
func textChars(s []byte, limit int) (count, end, level int) {
	p := 0
	for p < len(s) && count < limit {
		p++
		switch s[p-1] {
		case lex.LeftBrace:
			level++
			if level == 1 && p < len(s) && s[p] == lex.Backslash {
				p++
				for p < len(s) && level > 0 {
					if s[p] == lex.RightBrace {
						level--
					} else if s[p] == lex.LeftBrace {
						level++
					}
					p++
				}
				count++
			}
		case lex.RightBrace:
			if level > 0 {
				level--
			}
		default:
			count++
		}
	}
	return count, p, level
}

func builtinTextLength(i *Interpreter) error {
	s, ok := i.popStr()
	if !ok {
		return i.Push(types.Integer(0))
	}
	b := i.Pool.Str(s)
	count, _, _ := textChars(b, len(b)+1)
	return i.Push(types.Integer(count))
}

func builtinTextPrefix(i *Interpreter) error {
	a, b := i.Pop2()
	limit, ok := a.(types.Integer)
	if !ok {
		i.wrongType(a, types.StkInteger)
		return i.pushNull()
	}
	str, ok := b.(types.String)
	if !ok {
		i.wrongType(b, types.StkString)
		return i.pushNull()
	}
	if limit <= 0 {
		return i.pushNull()
	}
	s := i.Pool.Str(types.StrNumber(str))
	_, end, level := textChars(s, int(limit))
	out := make([]byte, 0, end+level)
	out = append(out, s[:end]...)
	for ; level > 0; level-- {
		out = append(out, lex.RightBrace)
	}
	return i.PushString(out)
}

// === width$ ===

func builtinWidth(i *Interpreter) error {
	s, ok := i.popStr()
	if !ok {
		return i.Push(types.Integer(0))
	}
	ex, err := i.loadEx(s)
	if err != nil {
		return err
	}
	var width int32
	level, n := 0, len(ex)
	for p := 0; p < n; p++ {
		switch ex[p] {
		case lex.LeftBrace:
			level++
			if level != 1 || p+1 >= n || ex[p+1] != lex.Backslash {
				width += lex.Width(lex.LeftBrace)
				continue
			}
			p++
			for p < n && level > 0 {
				p++
				x := p
				for p < n && lex.IsAlpha(ex[p]) {
					p++
				}
				if p < n && p == x {
					p++
				} else if code, ok := i.controlSeq(ex[x:p]); ok {
					switch code {
					case csSS:
						width += lex.SSWidth
					case csAE:
						width += lex.AEWidth
					case csOE:
						width += lex.OEWidth
					case csAEUpper:
						width += lex.UpperAEWidth
					case csOEUpper:
						width += lex.UpperOEWidth
					default:
						width += lex.Width(ex[x])
					}
				}
				for p < n && lex.IsWhite(ex[p]) {
					p++
				}
				for p < n && level > 0 && ex[p] != lex.Backslash {
					if ex[p] == lex.RightBrace {
						level--
					} else if ex[p] == lex.LeftBrace {
						level++
					} else {
						width += lex.Width(ex[p])
					}
					p++
				}
			}
			p--
		case lex.RightBrace:
			if level == 0 {
				i.unbalanced(s)
			} else {
				level--
			}
			width += lex.Width(lex.RightBrace)
		default:
			width += lex.Width(ex[p])
		}
	}
	if level > 0 {
		i.unbalanced(s)
	}
	return i.Push(types.Integer(width))
}
