// Package interpreter - combinators.go contains the control flow builtins
package interpreter

import (
	"github.com/psilLang/bibvm/pkg/types"
)

// if$ - int {then} {else} if$
// Runs then when int is positive, else otherwise.
func builtinIf(i *Interpreter) error {
	a, b, c := i.Pop3()
	elseFn, ok := a.(types.Function)
	if !ok {
		i.wrongType(a, types.StkFunction)
		return nil
	}
	thenFn, ok := b.(types.Function)
	if !ok {
		i.wrongType(b, types.StkFunction)
		return nil
	}
	cond, ok := c.(types.Integer)
	if !ok {
		i.wrongType(c, types.StkInteger)
		return nil
	}
	if cond > 0 {
		return i.ExecuteFn(types.HashPointer(thenFn))
	}
	return i.ExecuteFn(types.HashPointer(elseFn))
}

// while$ - {cond} {body} while$
// Runs cond; as long as it leaves a positive integer, runs body and repeats.
func builtinWhile(i *Interpreter) error {
	a, b := i.Pop2()
	body, ok := a.(types.Function)
	if !ok {
		i.wrongType(a, types.StkFunction)
		return nil
	}
	cond, ok := b.(types.Function)
	if !ok {
		i.wrongType(b, types.StkFunction)
		return nil
	}
	for {
		if err := i.ExecuteFn(types.HashPointer(cond)); err != nil {
			return err
		}
		n, ok := i.popInt()
		if !ok || n <= 0 {
			return nil
		}
		if err := i.ExecuteFn(types.HashPointer(body)); err != nil {
			return err
		}
	}
}

// call.type$ runs the function named after the current entry's type, or
// default.type for types the style doesn't define.
func builtinCallType(i *Interpreter) error {
	if !i.MessWithEntries {
		i.cantMessWithEntries()
		return nil
	}
	switch t := i.Cites.Type(i.CitePtr); t {
	case types.Empty:
		return nil
	case types.Undefined:
		if i.Pool.Class(i.defaultType) == types.FnUndefined {
			return nil
		}
		return i.ExecuteFn(i.defaultType)
	default:
		return i.ExecuteFn(t)
	}
}
