// Package entry holds per-citation data: database fields, entry integer and
// string variables, and the global string variables of a style.
package entry

import (
	"github.com/psilLang/bibvm/pkg/history"
	"github.com/psilLang/bibvm/pkg/types"
)

// Limits bound the string variables.
type Limits struct {
	// EntStrSize is the maximum length of an entry string value.
	EntStrSize int
	// GlobStrSize is the maximum length of a global string value.
	GlobStrSize int
	// MaxGlobStrs is the maximum number of global string variables.
	MaxGlobStrs int
}

type globStr struct {
	buf []byte
	// ref is a pool string shared instead of a copy, or types.Missing.
	ref types.StrNumber
}

// Store is the field and variable storage of one run.
type Store struct {
	numFields  int
	numEntInts int
	numEntStrs int

	fields []types.StrNumber
	ints   []int32
	strs   [][]byte
	glob   []globStr

	limits Limits
}

// New creates an empty store.
func New(limits Limits) *Store {
	return &Store{limits: limits}
}

// AddField declares a new field and returns its index.
func (s *Store) AddField() int {
	s.numFields++
	return s.numFields - 1
}

// AddEntInt declares a new entry integer variable and returns its index.
func (s *Store) AddEntInt() int {
	s.numEntInts++
	return s.numEntInts - 1
}

// AddEntStr declares a new entry string variable and returns its index.
func (s *Store) AddEntStr() int {
	s.numEntStrs++
	return s.numEntStrs - 1
}

// AddGlobStr declares a new global string variable and returns its index.
func (s *Store) AddGlobStr() (int, error) {
	if len(s.glob) >= s.limits.MaxGlobStrs {
		return 0, history.Overflow(history.PoolOverflow, "number of string global-variables", s.limits.MaxGlobStrs)
	}
	s.glob = append(s.glob, globStr{ref: types.Missing})
	return len(s.glob) - 1, nil
}

// NumFields returns the number of declared fields.
func (s *Store) NumFields() int { return s.numFields }

// NumEntInts returns the number of entry integer variables.
func (s *Store) NumEntInts() int { return s.numEntInts }

// NumEntStrs returns the number of entry string variables.
func (s *Store) NumEntStrs() int { return s.numEntStrs }

// NumGlobStrs returns the number of global string variables.
func (s *Store) NumGlobStrs() int { return len(s.glob) }

// EntStrSize returns the entry string ceiling.
func (s *Store) EntStrSize() int { return s.limits.EntStrSize }

// GlobStrSize returns the global string ceiling.
func (s *Store) GlobStrSize() int { return s.limits.GlobStrSize }

// GrowFields makes room for the fields of numCites citations. New cells are Missing.
func (s *Store) GrowFields(numCites int) {
	want := numCites * s.numFields
	for len(s.fields) < want {
		s.fields = append(s.fields, types.Missing)
	}
}

// Field returns field f of cite c, or types.Missing.
func (s *Store) Field(c, f int) types.StrNumber {
	i := c*s.numFields + f
	if i >= len(s.fields) {
		return types.Missing
	}
	return s.fields[i]
}

// SetField stores v as field f of cite c.
func (s *Store) SetField(c, f int, v types.StrNumber) {
	s.GrowFields(c + 1)
	s.fields[c*s.numFields+f] = v
}

// Allocate sizes the entry variable pools for numCites citations. Integers
// start at zero and strings empty.
func (s *Store) Allocate(numCites int) {
	s.ints = make([]int32, numCites*s.numEntInts)
	s.strs = make([][]byte, numCites*s.numEntStrs)
	s.GrowFields(numCites)
}

// Int returns entry integer i of cite c.
func (s *Store) Int(c, i int) int32 { return s.ints[c*s.numEntInts+i] }

// SetInt sets entry integer i of cite c.
func (s *Store) SetInt(c, i int, v int32) { s.ints[c*s.numEntInts+i] = v }

// Str returns entry string i of cite c.
func (s *Store) Str(c, i int) []byte { return s.strs[c*s.numEntStrs+i] }

// SetStr sets entry string i of cite c, truncating v to the entry string
// ceiling. It reports whether truncation happened.
func (s *Store) SetStr(c, i int, v []byte) bool {
	truncated := false
	if len(v) > s.limits.EntStrSize {
		v = v[:s.limits.EntStrSize]
		truncated = true
	}
	cell := &s.strs[c*s.numEntStrs+i]
	*cell = append((*cell)[:0], v...)
	return truncated
}

// GlobRef returns the pool string that global string i refers to, or types.Missing
// when its value is held in the store.
func (s *Store) GlobRef(i int) types.StrNumber { return s.glob[i].ref }

// GlobBytes returns the stored value of global string i.
func (s *Store) GlobBytes(i int) []byte { return s.glob[i].buf }

// SetGlobRef makes global string i refer to the permanent pool string v.
func (s *Store) SetGlobRef(i int, v types.StrNumber) {
	s.glob[i].ref = v
	s.glob[i].buf = s.glob[i].buf[:0]
}

// SetGlobBytes copies v into global string i, truncating it to the global
// string ceiling. It reports whether truncation happened.
func (s *Store) SetGlobBytes(i int, v []byte) bool {
	truncated := false
	if len(v) > s.limits.GlobStrSize {
		v = v[:s.limits.GlobStrSize]
		truncated = true
	}
	g := &s.glob[i]
	g.ref = types.Missing
	g.buf = append(g.buf[:0], v...)
	return truncated
}
