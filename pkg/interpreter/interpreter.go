// Package interpreter provides the style execution engine.
// It manages the literal stack, the compiled function bodies and the
// per-entry binding used while iterating over citations.
package interpreter

import (
	"fmt"
	"io"

	"github.com/psilLang/bibvm/pkg/buffer"
	"github.com/psilLang/bibvm/pkg/cite"
	"github.com/psilLang/bibvm/pkg/entry"
	"github.com/psilLang/bibvm/pkg/history"
	"github.com/psilLang/bibvm/pkg/pool"
	"github.com/psilLang/bibvm/pkg/types"
)

// maxDepth bounds the nesting of function calls.
const maxDepth = 1 << 14

type builtin struct {
	name string
	fn   func(*Interpreter) error
}

// Config wires an interpreter to the state of a run.
type Config struct {
	Pool    *pool.Pool
	Bufs    *buffer.Buffers
	Cites   *cite.Registry
	Entries *entry.Store
	Report  *history.Reporter

	// Output receives the formatted bibliography.
	Output io.Writer

	// StackSize is the initial capacity of the literal stack, MaxStack its ceiling.
	StackSize int
	MaxStack  int
}

// Interpreter is the style execution engine
type Interpreter struct {
	Pool    *pool.Pool
	Bufs    *buffer.Buffers
	Cites   *cite.Registry
	Entries *entry.Store
	Report  *history.Reporter

	// Stack is the literal stack
	Stack    []types.Value
	maxStack int

	// Wizard holds every compiled function body; each ends with types.EndOfDef.
	Wizard []types.HashPointer

	// MessWithEntries is set while executing on behalf of CitePtr.
	MessWithEntries bool
	CitePtr         cite.CiteNumber

	// Where locates the style command being executed.
	Where history.Position

	// Preamble collects @preamble strings in database order.
	Preamble []types.StrNumber

	// Output writer for the formatted bibliography
	Output   io.Writer
	outLines int

	builtins  []builtin
	cmdStrPtr types.StrNumber
	depth     int
	implFnNum int

	sNull       types.StrNumber
	defaultType types.HashPointer
	sortKeyNum  int
	crossrefNum int
}

// New creates an interpreter with the builtins and predefined names registered.
func New(c Config) (*Interpreter, error) {
	if c.StackSize <= 0 {
		c.StackSize = 100
	}
	if c.MaxStack < c.StackSize {
		c.MaxStack = c.StackSize
	}
	interp := &Interpreter{
		Pool:     c.Pool,
		Bufs:     c.Bufs,
		Cites:    c.Cites,
		Entries:  c.Entries,
		Report:   c.Report,
		Stack:    make([]types.Value, 0, c.StackSize),
		maxStack: c.MaxStack,
		Output:   c.Output,
	}
	if interp.Output == nil {
		interp.Output = io.Discard
	}
	if err := interp.RegisterBuiltins(); err != nil {
		return nil, err
	}
	if err := interp.predefine(); err != nil {
		return nil, err
	}
	interp.cmdStrPtr = interp.Pool.StrPtr()
	return interp, nil
}

func (i *Interpreter) predefine() error {
	loc, _, err := i.Pool.LookupString("", pool.Text, true)
	if err != nil {
		return err
	}
	i.sNull = i.Pool.Text(loc)

	if i.defaultType, _, err = i.Pool.LookupString("default.type", pool.BstFn, true); err != nil {
		return err
	}

	if loc, _, err = i.Pool.LookupString("crossref", pool.BstFn, true); err != nil {
		return err
	}
	i.crossrefNum = i.Entries.AddField()
	i.Pool.SetClass(loc, types.FnField)
	i.Pool.SetInfo(loc, int32(i.crossrefNum))

	if loc, _, err = i.Pool.LookupString("sort.key$", pool.BstFn, true); err != nil {
		return err
	}
	i.sortKeyNum = i.Entries.AddEntStr()
	i.Pool.SetClass(loc, types.FnStrEntryVar)
	i.Pool.SetInfo(loc, int32(i.sortKeyNum))

	for _, g := range []struct {
		name string
		v    int
	}{
		{"entry.max$", i.Entries.EntStrSize()},
		{"global.max$", i.Entries.GlobStrSize()},
	} {
		if loc, _, err = i.Pool.LookupString(g.name, pool.BstFn, true); err != nil {
			return err
		}
		i.Pool.SetClass(loc, types.FnIntGlobalVar)
		i.Pool.SetInfo(loc, int32(g.v))
	}

	for _, cs := range controlSeqs {
		if loc, _, err = i.Pool.LookupString(cs.name, pool.ControlSeq, true); err != nil {
			return err
		}
		i.Pool.SetInfo(loc, int32(cs.code))
	}
	return nil
}

// CrossrefField returns the field number of crossref.
func (i *Interpreter) CrossrefField() int { return i.crossrefNum }

// SortKey returns the sort key of cite c.
func (i *Interpreter) SortKey(c cite.CiteNumber) []byte {
	return i.Entries.Str(int(c), i.sortKeyNum)
}

// DefaultType returns the location of default.type.
func (i *Interpreter) DefaultType() types.HashPointer { return i.defaultType }

// === Stack ===

// Push pushes a value onto the literal stack.
func (i *Interpreter) Push(v types.Value) error {
	if len(i.Stack) >= i.maxStack {
		return history.Overflow(history.StackOverflow, "literal-stack", i.maxStack)
	}
	i.Stack = append(i.Stack, v)
	return nil
}

// PushString makes a temporary string of s and pushes it.
func (i *Interpreter) PushString(s []byte) error {
	n, err := i.Pool.MakeString(s)
	if err != nil {
		return err
	}
	return i.Push(types.String(n))
}

// Pop removes and returns the top value. Popping an empty stack is reported
// and yields types.Illegal.
func (i *Interpreter) Pop() types.Value {
	if len(i.Stack) == 0 {
		i.exWarn("You can't pop an empty literal stack")
		return types.Illegal{}
	}
	v := i.Stack[len(i.Stack)-1]
	i.Stack = i.Stack[:len(i.Stack)-1]
	return v
}

// Pop2 pops the top two values; a is the former top.
func (i *Interpreter) Pop2() (a, b types.Value) {
	a = i.Pop()
	b = i.Pop()
	return a, b
}

// Pop3 pops the top three values; a is the former top.
func (i *Interpreter) Pop3() (a, b, c types.Value) {
	a = i.Pop()
	b = i.Pop()
	c = i.Pop()
	return a, b, c
}

// popInt pops an integer, reporting any other kind.
func (i *Interpreter) popInt() (int32, bool) {
	v := i.Pop()
	n, ok := v.(types.Integer)
	if !ok {
		i.wrongType(v, types.StkInteger)
		return 0, false
	}
	return int32(n), true
}

// popStr pops a string, reporting any other kind.
func (i *Interpreter) popStr() (types.StrNumber, bool) {
	v := i.Pop()
	s, ok := v.(types.String)
	if !ok {
		i.wrongType(v, types.StkString)
		return 0, false
	}
	return types.StrNumber(s), true
}

// popFn pops a function, reporting any other kind.
func (i *Interpreter) popFn() (types.HashPointer, bool) {
	v := i.Pop()
	f, ok := v.(types.Function)
	if !ok {
		i.wrongType(v, types.StkFunction)
		return 0, false
	}
	return types.HashPointer(f), true
}

// === Execution ===

// ExecuteFn runs the function at loc.
func (i *Interpreter) ExecuteFn(loc types.HashPointer) error {
	if i.depth >= maxDepth {
		return history.Overflow(history.StackOverflow, "function nesting", maxDepth)
	}
	i.depth++
	defer func() { i.depth-- }()

	info := i.Pool.Info(loc)
	switch i.Pool.Class(loc) {
	case types.FnBuiltin:
		return i.builtins[info].fn(i)
	case types.FnWizard:
		return i.executeBody(int(info))
	case types.FnIntLit:
		return i.Push(types.Integer(info))
	case types.FnStrLit:
		return i.Push(types.String(i.Pool.Text(loc)))
	case types.FnField:
		if !i.MessWithEntries {
			i.cantMessWithEntries()
			return nil
		}
		v := i.Entries.Field(int(i.CitePtr), int(info))
		if v == types.Missing {
			return i.Push(types.MissingField(i.Pool.Text(loc)))
		}
		return i.Push(types.String(v))
	case types.FnIntEntryVar:
		if !i.MessWithEntries {
			i.cantMessWithEntries()
			return nil
		}
		return i.Push(types.Integer(i.Entries.Int(int(i.CitePtr), int(info))))
	case types.FnStrEntryVar:
		if !i.MessWithEntries {
			i.cantMessWithEntries()
			return nil
		}
		return i.PushString(i.Entries.Str(int(i.CitePtr), int(info)))
	case types.FnIntGlobalVar:
		return i.Push(types.Integer(info))
	case types.FnStrGlobalVar:
		if ref := i.Entries.GlobRef(int(info)); ref != types.Missing {
			return i.Push(types.String(ref))
		}
		return i.PushString(i.Entries.GlobBytes(int(info)))
	}
	return history.Confused("Unknown function class")
}

func (i *Interpreter) executeBody(pc int) error {
	for i.Wizard[pc] != types.EndOfDef {
		if i.Wizard[pc] == types.QuoteNextFn {
			pc++
			if err := i.Push(types.Function(i.Wizard[pc])); err != nil {
				return err
			}
		} else if err := i.ExecuteFn(i.Wizard[pc]); err != nil {
			return err
		}
		pc++
	}
	return nil
}

// BeginCommand marks the start of a style command executed at pos.
func (i *Interpreter) BeginCommand(pos history.Position) {
	i.Where = pos
	i.cmdStrPtr = i.Pool.StrPtr()
	i.MessWithEntries = false
}

// ExecuteForEntry runs loc bound to cite c. Temporary strings are released
// afterwards when nothing on the stack can refer to them.
func (i *Interpreter) ExecuteForEntry(loc types.HashPointer, c cite.CiteNumber) error {
	i.CitePtr = c
	i.MessWithEntries = true
	defer func() { i.MessWithEntries = false }()
	if err := i.ExecuteFn(loc); err != nil {
		return err
	}
	if len(i.Stack) == 0 {
		i.Pool.Truncate(i.cmdStrPtr)
	}
	return nil
}

// EndCommand checks that a command left the stack empty, then releases every
// temporary string.
func (i *Interpreter) EndCommand() {
	if len(i.Stack) != 0 {
		i.Report.Print("ptr=%d, stack=\n", len(i.Stack))
		i.popWholeStack()
		i.exWarn("---the literal stack isn't empty")
	}
	i.Pool.Truncate(i.cmdStrPtr)
}

// === Diagnostics ===

func (i *Interpreter) fnName(loc types.HashPointer) string {
	return i.Pool.String(i.Pool.Text(loc))
}

func (i *Interpreter) exWarnPrint() {
	if i.MessWithEntries {
		i.Report.Print(" for entry %s", i.Pool.Str(i.Cites.Key(i.CitePtr)))
	}
	i.Report.Print("\nwhile executing%s\n", i.Where)
	i.Report.MarkError()
}

// exWarn reports an execution error and lets execution continue.
func (i *Interpreter) exWarn(format string, args ...any) {
	i.Report.Print(format, args...)
	i.exWarnPrint()
}

// mildWarn reports an execution warning.
func (i *Interpreter) mildWarn(format string, args ...any) {
	i.Report.Print(format, args...)
	if i.MessWithEntries {
		i.Report.Print(" for entry %s", i.Pool.Str(i.Cites.Key(i.CitePtr)))
	}
	i.Report.Print("\nwhile executing%s\n", i.Where)
	i.Report.MarkWarning()
}

func (i *Interpreter) cantMessWithEntries() {
	i.exWarn("You can't mess with entries here")
}

// describe returns the message fragment naming a stack value and its kind.
func (i *Interpreter) describe(v types.Value) string {
	switch v := v.(type) {
	case types.Integer:
		return fmt.Sprintf("%d is an integer literal", int32(v))
	case types.String:
		return fmt.Sprintf("\"%s\" is a string literal", i.Pool.Str(types.StrNumber(v)))
	case types.Function:
		return fmt.Sprintf("`%s' is a function literal", i.fnName(types.HashPointer(v)))
	case types.MissingField:
		return fmt.Sprintf("`%s' is a missing field", i.Pool.Str(types.StrNumber(v)))
	}
	return ""
}

// wrongType reports that v is not of kind want. Illegal values were already
// reported when they were produced and pass silently.
func (i *Interpreter) wrongType(v types.Value, want types.StkType) {
	if _, ok := v.(types.Illegal); ok {
		return
	}
	var tail string
	switch want {
	case types.StkInteger:
		tail = ", not an integer,"
	case types.StkString:
		tail = ", not a string,"
	case types.StkFunction:
		tail = ", not a function,"
	}
	i.exWarn("%s%s", i.describe(v), tail)
}

// printLit writes a stack value on a line of its own.
func (i *Interpreter) printLit(v types.Value) {
	switch v := v.(type) {
	case types.Integer:
		i.Report.Print("%d\n", int32(v))
	case types.String:
		i.Report.Print("%s\n", i.Pool.Str(types.StrNumber(v)))
	case types.Function:
		i.Report.Print("%s\n", i.fnName(types.HashPointer(v)))
	case types.MissingField:
		i.Report.Print("%s\n", i.Pool.Str(types.StrNumber(v)))
	default:
		i.Report.Print("Empty literal\n")
	}
}

func (i *Interpreter) popWholeStack() {
	for len(i.Stack) > 0 {
		i.printLit(i.Pop())
	}
}

// StackString returns a string representation of the stack
func (i *Interpreter) StackString() string {
	if len(i.Stack) == 0 {
		return "[]"
	}
	s := "[ "
	for _, v := range i.Stack {
		s += v.String() + " "
	}
	return s + "]"
}
