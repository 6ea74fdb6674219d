package interpreter

import (
	"strconv"
	"strings"

	"github.com/psilLang/bibvm/pkg/history"
	"github.com/psilLang/bibvm/pkg/parser"
	"github.com/psilLang/bibvm/pkg/pool"
	"github.com/psilLang/bibvm/pkg/types"
)

// Lookup finds the style function called name, ignoring case. ok is false
// when the name has never been defined.
func (i *Interpreter) Lookup(name string) (types.HashPointer, bool) {
	loc, found, _ := i.Pool.LookupString(strings.ToLower(name), pool.BstFn, false)
	if !found || i.Pool.Class(loc) == types.FnUndefined {
		return loc, false
	}
	return loc, true
}

// Declare enters name into the function table. It reports whether the name
// was already defined, in which case nothing changes.
func (i *Interpreter) Declare(name string, class types.FnClass, info int32) (types.HashPointer, bool, error) {
	loc, _, err := i.Pool.LookupString(strings.ToLower(name), pool.BstFn, true)
	if err != nil {
		return 0, false, err
	}
	if i.Pool.Class(loc) != types.FnUndefined {
		return loc, true, nil
	}
	i.Pool.SetClass(loc, class)
	i.Pool.SetInfo(loc, info)
	return loc, false, nil
}

// Define compiles body as the wizard function at loc. The name is usable
// inside its own body. Unknown functions are reported and left out.
func (i *Interpreter) Define(loc types.HashPointer, body *parser.Group) error {
	i.Pool.SetClass(loc, types.FnWizard)
	return i.compile(loc, body)
}

func (i *Interpreter) compile(loc types.HashPointer, body *parser.Group) error {
	var code []types.HashPointer
	for _, it := range body.Items {
		pos := history.Position{File: i.Where.File, Line: it.Pos.Line}
		switch {
		case it.Integer != nil:
			v, err := it.Int()
			if err != nil {
				i.Report.Print("%s isn't a valid integer-%s\n", *it.Integer, pos)
				i.Report.MarkError()
				continue
			}
			lit, _, err := i.Pool.LookupString(strconv.Itoa(int(v)), pool.Integer, true)
			if err != nil {
				return err
			}
			i.Pool.SetClass(lit, types.FnIntLit)
			i.Pool.SetInfo(lit, v)
			code = append(code, lit)
		case it.String != nil:
			lit, _, err := i.Pool.LookupString(it.Text(), pool.Text, true)
			if err != nil {
				return err
			}
			i.Pool.SetClass(lit, types.FnStrLit)
			code = append(code, lit)
		case it.Quoted != nil:
			fn, ok := i.Lookup(*it.Quoted)
			if !ok {
				i.unknownFunction(*it.Quoted, pos)
				continue
			}
			code = append(code, types.QuoteNextFn, fn)
		case it.Ident != nil:
			fn, ok := i.Lookup(*it.Ident)
			if !ok {
				i.unknownFunction(*it.Ident, pos)
				continue
			}
			code = append(code, fn)
		case it.Group != nil:
			name := "'" + strconv.Itoa(i.implFnNum)
			i.implFnNum++
			impl, _, err := i.Pool.LookupString(name, pool.BstFn, true)
			if err != nil {
				return err
			}
			i.Pool.SetClass(impl, types.FnWizard)
			if err := i.compile(impl, it.Group); err != nil {
				return err
			}
			code = append(code, types.QuoteNextFn, impl)
		}
	}
	i.Pool.SetInfo(loc, int32(len(i.Wizard)))
	i.Wizard = append(i.Wizard, code...)
	i.Wizard = append(i.Wizard, types.EndOfDef)
	return nil
}

func (i *Interpreter) unknownFunction(name string, pos history.Position) {
	i.Report.Print("%s is an unknown function-%s\n", name, pos)
	i.Report.MarkError()
}
