// Package interpreter - builtins.go contains the built-in functions
package interpreter

import (
	"strconv"

	"github.com/psilLang/bibvm/pkg/lex"
	"github.com/psilLang/bibvm/pkg/pool"
	"github.com/psilLang/bibvm/pkg/types"
)

// RegisterBuiltins registers all built-in functions
func (i *Interpreter) RegisterBuiltins() error {
	for _, b := range []builtin{
		// Comparison and arithmetic
		{"=", builtinEquals},
		{">", builtinGreater},
		{"<", builtinLess},
		{"+", builtinPlus},
		{"-", builtinMinus},
		{"*", builtinConcat},
		{":=", builtinGets},

		{"add.period$", builtinAddPeriod},
		{"call.type$", builtinCallType},
		{"change.case$", builtinChangeCase},
		{"chr.to.int$", builtinChrToInt},
		{"cite$", builtinCite},
		{"duplicate$", builtinDuplicate},
		{"empty$", builtinEmpty},
		{"format.name$", builtinFormatName},
		{"if$", builtinIf},
		{"int.to.chr$", builtinIntToChr},
		{"int.to.str$", builtinIntToStr},
		{"missing$", builtinMissing},
		{"newline$", builtinNewline},
		{"num.names$", builtinNumNames},
		{"pop$", builtinPop},
		{"preamble$", builtinPreamble},
		{"purify$", builtinPurify},
		{"quote$", builtinQuote},
		{"skip$", builtinSkip},
		{"stack$", builtinStack},
		{"substring$", builtinSubstring},
		{"swap$", builtinSwap},
		{"text.length$", builtinTextLength},
		{"text.prefix$", builtinTextPrefix},
		{"top$", builtinTop},
		{"type$", builtinType},
		{"warning$", builtinWarning},
		{"while$", builtinWhile},
		{"width$", builtinWidth},
		{"write$", builtinWrite},
	} {
		if err := i.registerBuiltin(b.name, b.fn); err != nil {
			return err
		}
	}
	return nil
}

func (i *Interpreter) registerBuiltin(name string, fn func(*Interpreter) error) error {
	loc, _, err := i.Pool.LookupString(name, pool.BstFn, true)
	if err != nil {
		return err
	}
	i.Pool.SetClass(loc, types.FnBuiltin)
	i.Pool.SetInfo(loc, int32(len(i.builtins)))
	i.builtins = append(i.builtins, builtin{name: name, fn: fn})
	return nil
}

func (i *Interpreter) pushBool(b bool) error {
	if b {
		return i.Push(types.Integer(1))
	}
	return i.Push(types.Integer(0))
}

func (i *Interpreter) pushNull() error { return i.Push(types.String(i.sNull)) }

// === Comparison and arithmetic ===

func builtinEquals(i *Interpreter) error {
	a, b := i.Pop2()
	if a.Type() != b.Type() {
		if a.Type() != types.StkIllegal && b.Type() != types.StkIllegal {
			i.Report.Print("%s, %s\n", i.describe(a), i.describe(b))
			i.exWarn("---they aren't the same literal types")
		}
		return i.Push(types.Integer(0))
	}
	switch a := a.(type) {
	case types.Integer:
		return i.pushBool(a == b.(types.Integer))
	case types.String:
		return i.pushBool(i.Pool.EqStr(types.StrNumber(a), types.StrNumber(b.(types.String))))
	case types.Illegal:
		return i.Push(types.Integer(0))
	}
	i.exWarn("%s, not an integer or a string,", i.describe(a))
	return i.Push(types.Integer(0))
}

// intOp pops two integers and pushes op(second, top), or 0 on a type error.
func (i *Interpreter) intOp(op func(x, y int32) int32) error {
	a, b := i.Pop2()
	y, ok := a.(types.Integer)
	if !ok {
		i.wrongType(a, types.StkInteger)
		return i.Push(types.Integer(0))
	}
	x, ok := b.(types.Integer)
	if !ok {
		i.wrongType(b, types.StkInteger)
		return i.Push(types.Integer(0))
	}
	return i.Push(types.Integer(op(int32(x), int32(y))))
}

func builtinGreater(i *Interpreter) error {
	return i.intOp(func(x, y int32) int32 { return boolInt(x > y) })
}

func builtinLess(i *Interpreter) error {
	return i.intOp(func(x, y int32) int32 { return boolInt(x < y) })
}

func builtinPlus(i *Interpreter) error {
	return i.intOp(func(x, y int32) int32 { return x + y })
}

func builtinMinus(i *Interpreter) error {
	return i.intOp(func(x, y int32) int32 { return x - y })
}

func boolInt(b bool) int32 {
	if b {
		return 1
	}
	return 0
}

func builtinConcat(i *Interpreter) error {
	a, b := i.Pop2()
	s1, ok := a.(types.String)
	if !ok {
		i.wrongType(a, types.StkString)
		return i.pushNull()
	}
	s2, ok := b.(types.String)
	if !ok {
		i.wrongType(b, types.StkString)
		return i.pushNull()
	}
	p2 := i.Pool.Str(types.StrNumber(s2))
	p1 := i.Pool.Str(types.StrNumber(s1))
	switch {
	case len(p1) == 0:
		return i.Push(s2)
	case len(p2) == 0:
		return i.Push(s1)
	}
	joined := make([]byte, 0, len(p1)+len(p2))
	joined = append(append(joined, p2...), p1...)
	return i.PushString(joined)
}

func builtinGets(i *Interpreter) error {
	a, b := i.Pop2()
	f, ok := a.(types.Function)
	if !ok {
		i.wrongType(a, types.StkFunction)
		return nil
	}
	loc := types.HashPointer(f)
	info := int(i.Pool.Info(loc))
	class := i.Pool.Class(loc)
	if !i.MessWithEntries && (class == types.FnIntEntryVar || class == types.FnStrEntryVar) {
		i.cantMessWithEntries()
		return nil
	}
	switch class {
	case types.FnIntEntryVar:
		n, ok := b.(types.Integer)
		if !ok {
			i.wrongType(b, types.StkInteger)
			return nil
		}
		i.Entries.SetInt(int(i.CitePtr), info, int32(n))
	case types.FnStrEntryVar:
		s, ok := b.(types.String)
		if !ok {
			i.wrongType(b, types.StkString)
			return nil
		}
		if i.Entries.SetStr(int(i.CitePtr), info, i.Pool.Str(types.StrNumber(s))) {
			i.mildWarn("Warning--you've exceeded %d, the entry-string-size,\n", i.Entries.EntStrSize())
			i.Report.Print("*Please notify the bibstyle designer*\n")
		}
	case types.FnIntGlobalVar:
		n, ok := b.(types.Integer)
		if !ok {
			i.wrongType(b, types.StkInteger)
			return nil
		}
		i.Pool.SetInfo(loc, int32(n))
	case types.FnStrGlobalVar:
		s, ok := b.(types.String)
		if !ok {
			i.wrongType(b, types.StkString)
			return nil
		}
		if types.StrNumber(s) < i.cmdStrPtr {
			i.Entries.SetGlobRef(info, types.StrNumber(s))
			return nil
		}
		if i.Entries.SetGlobBytes(info, i.Pool.Str(types.StrNumber(s))) {
			i.mildWarn("Warning--you've exceeded %d, the global-string-size,\n", i.Entries.GlobStrSize())
			i.Report.Print("*Please notify the bibstyle designer*\n")
		}
	default:
		i.Report.Print("You can't assign to type %s", class)
		i.exWarn(", a nonvariable function class")
	}
	return nil
}

// === Entry access ===

func builtinCite(i *Interpreter) error {
	if !i.MessWithEntries {
		i.cantMessWithEntries()
		return nil
	}
	return i.Push(types.String(i.Cites.Key(i.CitePtr)))
}

func builtinType(i *Interpreter) error {
	if !i.MessWithEntries {
		i.cantMessWithEntries()
		return nil
	}
	t := i.Cites.Type(i.CitePtr)
	if t == types.Undefined || t == types.Empty {
		return i.pushNull()
	}
	return i.Push(types.String(i.Pool.Text(t)))
}

func builtinPreamble(i *Interpreter) error {
	var joined []byte
	for _, s := range i.Preamble {
		joined = append(joined, i.Pool.Str(s)...)
	}
	return i.PushString(joined)
}

// === Tests ===

func builtinEmpty(i *Interpreter) error {
	v := i.Pop()
	switch v := v.(type) {
	case types.String:
		for _, c := range i.Pool.Str(types.StrNumber(v)) {
			if !lex.IsWhite(c) {
				return i.Push(types.Integer(0))
			}
		}
		return i.Push(types.Integer(1))
	case types.MissingField:
		return i.Push(types.Integer(1))
	case types.Illegal:
		return i.Push(types.Integer(0))
	}
	i.exWarn("%s, not a string or missing field,", i.describe(v))
	return i.Push(types.Integer(0))
}

func builtinMissing(i *Interpreter) error {
	v := i.Pop()
	switch v.(type) {
	case types.String, types.Illegal:
		return i.Push(types.Integer(0))
	case types.MissingField:
		return i.Push(types.Integer(1))
	}
	i.exWarn("%s, not a string or missing field,", i.describe(v))
	return i.Push(types.Integer(0))
}

// === Conversions ===

func builtinChrToInt(i *Interpreter) error {
	s, ok := i.popStr()
	if !ok {
		return i.Push(types.Integer(0))
	}
	b := i.Pool.Str(s)
	if len(b) != 1 {
		i.exWarn("\"%s\" isn't a single character", b)
		return i.Push(types.Integer(0))
	}
	return i.Push(types.Integer(b[0]))
}

func builtinIntToChr(i *Interpreter) error {
	n, ok := i.popInt()
	if !ok {
		return i.pushNull()
	}
	if n < 0 || n > 127 {
		i.exWarn("%d isn't valid ASCII", n)
		return i.pushNull()
	}
	return i.PushString([]byte{byte(n)})
}

func builtinIntToStr(i *Interpreter) error {
	n, ok := i.popInt()
	if !ok {
		return i.pushNull()
	}
	return i.PushString(strconv.AppendInt(nil, int64(n), 10))
}

func builtinQuote(i *Interpreter) error {
	return i.PushString([]byte{lex.DoubleQuote})
}

// === Stack manipulation ===

func builtinDuplicate(i *Interpreter) error {
	v := i.Pop()
	if err := i.Push(v); err != nil {
		return err
	}
	return i.Push(v)
}

func builtinPop(i *Interpreter) error {
	i.Pop()
	return nil
}

func builtinSwap(i *Interpreter) error {
	a, b := i.Pop2()
	if err := i.Push(a); err != nil {
		return err
	}
	return i.Push(b)
}

func builtinSkip(*Interpreter) error { return nil }

func builtinStack(i *Interpreter) error {
	i.popWholeStack()
	return nil
}

func builtinTop(i *Interpreter) error {
	i.printLit(i.Pop())
	return nil
}

func builtinWarning(i *Interpreter) error {
	s, ok := i.popStr()
	if !ok {
		return nil
	}
	i.Report.Print("Warning--")
	i.printLit(types.String(s))
	i.Report.MarkWarning()
	return nil
}
