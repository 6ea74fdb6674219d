// Package types defines the core value types for the style VM.
// All values that can exist on the literal stack implement the Value interface.
package types

import (
	"fmt"
)

// StrNumber is the stable handle of a string in the string pool.
type StrNumber int

// HashPointer is the location of an entry in the pool's hash table.
// Every function, literal and variable of a style program is a hash entry.
type HashPointer int

// Sentinel locations used inside compiled function bodies.
const (
	// EndOfDef terminates a wizard function body.
	EndOfDef HashPointer = -1
	// QuoteNextFn marks that the following body item is pushed, not executed.
	QuoteNextFn HashPointer = -2
	// Undefined is stored as the type of an entry whose type the style doesn't define.
	Undefined HashPointer = -3
	// Empty is stored as the type of a citation that has no database entry (yet).
	Empty HashPointer = -4
)

// Missing marks a field cell that has no value.
const Missing StrNumber = -1

// FnClass is the class of a style function. It is fixed at first definition.
type FnClass uint8

const (
	FnBuiltin FnClass = iota
	FnWizard
	FnIntLit
	FnStrLit
	FnField
	FnIntEntryVar
	FnStrEntryVar
	FnIntGlobalVar
	FnStrGlobalVar
	// FnUndefined is the class of a name that has been looked up but never defined.
	FnUndefined
)

var fnClassNames = [...]string{
	FnBuiltin:      "built-in",
	FnWizard:       "wizard-defined",
	FnIntLit:       "integer-literal",
	FnStrLit:       "string-literal",
	FnField:        "field",
	FnIntEntryVar:  "integer-entry-variable",
	FnStrEntryVar:  "string-entry-variable",
	FnIntGlobalVar: "integer-global-variable",
	FnStrGlobalVar: "string-global-variable",
	FnUndefined:    "undefined",
}

func (c FnClass) String() string {
	if int(c) < len(fnClassNames) {
		return fnClassNames[c]
	}
	return fmt.Sprintf("fnclass(%d)", int(c))
}

// StkType is the kind of a value on the literal stack.
type StkType uint8

const (
	StkInteger StkType = iota
	StkString
	StkFunction
	StkMissing
	StkIllegal
)

var stkNames = [...]string{
	StkInteger:  "integer",
	StkString:   "string",
	StkFunction: "function",
	StkMissing:  "missing field",
	StkIllegal:  "illegal",
}

func (t StkType) String() string {
	if int(t) < len(stkNames) {
		return stkNames[t]
	}
	return fmt.Sprintf("stktype(%d)", int(t))
}

// Value is the interface all stack values implement.
type Value interface {
	// String returns a debugging representation
	String() string
	// Type returns the stack kind
	Type() StkType
	// Equal checks equality with another value
	Equal(other Value) bool
}

// Integer is a 32-bit integer literal.
type Integer int32

func (n Integer) String() string { return fmt.Sprintf("%d", int32(n)) }
func (n Integer) Type() StkType  { return StkInteger }

func (n Integer) Equal(other Value) bool {
	if o, ok := other.(Integer); ok {
		return n == o
	}
	return false
}

// String is a string literal, held as a pool handle.
type String StrNumber

func (s String) String() string { return fmt.Sprintf("str#%d", int(s)) }
func (s String) Type() StkType  { return StkString }

func (s String) Equal(other Value) bool {
	if o, ok := other.(String); ok {
		return s == o
	}
	return false
}

// Function is a reference to a style function (a hash entry).
type Function HashPointer

func (f Function) String() string { return fmt.Sprintf("fn#%d", int(f)) }
func (f Function) Type() StkType  { return StkFunction }

func (f Function) Equal(other Value) bool {
	if o, ok := other.(Function); ok {
		return f == o
	}
	return false
}

// MissingField is pushed for a field that the current entry lacks.
// It carries the field's name.
type MissingField StrNumber

func (m MissingField) String() string { return fmt.Sprintf("missing#%d", int(m)) }
func (m MissingField) Type() StkType  { return StkMissing }

func (m MissingField) Equal(other Value) bool {
	if o, ok := other.(MissingField); ok {
		return m == o
	}
	return false
}

// Illegal is the poison value produced by popping an empty stack or by
// ill-typed operations. Consumers treat it as unusable without reporting again.
type Illegal struct{}

func (Illegal) String() string { return "<illegal>" }
func (Illegal) Type() StkType  { return StkIllegal }

func (Illegal) Equal(other Value) bool {
	_, ok := other.(Illegal)
	return ok
}
