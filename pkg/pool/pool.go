// Package pool implements the string pool: append-only character storage and a
// hash table that gives every (text, ilk) pair a stable location.
package pool

import (
	"bytes"
	"strconv"

	"github.com/psilLang/bibvm/pkg/history"
	"github.com/psilLang/bibvm/pkg/types"
)

// Ilk is the semantic category of an interned string.
type Ilk uint8

const (
	Text Ilk = iota
	Integer
	AuxCommand
	AuxFile
	BstCommand
	BstFile
	BibFile
	FileExt
	Cite
	LcCite
	BstFn
	BibCommand
	Macro
	ControlSeq
)

var ilkNames = [...]string{
	Text:       "text",
	Integer:    "integer",
	AuxCommand: "aux-command",
	AuxFile:    "aux-file",
	BstCommand: "bst-command",
	BstFile:    "bst-file",
	BibFile:    "bib-file",
	FileExt:    "file-ext",
	Cite:       "cite",
	LcCite:     "lc-cite",
	BstFn:      "bst-fn",
	BibCommand: "bib-command",
	Macro:      "macro",
	ControlSeq: "control-seq",
}

func (i Ilk) String() string {
	if int(i) < len(ilkNames) {
		return ilkNames[i]
	}
	return "ilk(" + strconv.Itoa(int(i)) + ")"
}

// Entry is one live slot of the hash table.
type Entry struct {
	Text  types.StrNumber
	Ilk   Ilk
	Info  int32
	Class types.FnClass
}

// Limits are the hard ceilings of a pool.
type Limits struct {
	// PoolSize is the maximum number of characters stored.
	PoolSize int
	// MaxStrings is the maximum number of strings and of hash entries.
	MaxStrings int
}

type key struct {
	text string
	ilk  Ilk
}

// Pool is the string pool of one run.
type Pool struct {
	chars  []byte
	starts []int

	entries []Entry
	index   map[key]types.HashPointer
	byText  map[string]types.StrNumber

	// hashedTop is one past the highest string referenced by the hash table.
	hashedTop types.StrNumber

	limits Limits
}

// New creates an empty pool.
func New(limits Limits) *Pool {
	return &Pool{
		chars:   make([]byte, 0, 4096),
		starts:  []int{0},
		entries: make([]Entry, 0, 1024),
		index:   make(map[key]types.HashPointer),
		byText:  make(map[string]types.StrNumber),
		limits:  limits,
	}
}

// StrPtr returns the next string number to be assigned.
func (p *Pool) StrPtr() types.StrNumber { return types.StrNumber(len(p.starts) - 1) }

// Size returns the number of characters stored.
func (p *Pool) Size() int { return len(p.chars) }

// Str returns the bytes of s. The slice must not be retained across pool mutation.
func (p *Pool) Str(s types.StrNumber) []byte {
	if s < 0 || int(s) >= len(p.starts)-1 {
		return nil
	}
	return p.chars[p.starts[s]:p.starts[s+1]]
}

// String returns a copy of s.
func (p *Pool) String(s types.StrNumber) string { return string(p.Str(s)) }

// Len returns the length of s.
func (p *Pool) Len(s types.StrNumber) int { return len(p.Str(s)) }

// MakeString appends text as a new unhashed string.
func (p *Pool) MakeString(text []byte) (types.StrNumber, error) {
	if len(p.chars)+len(text) > p.limits.PoolSize {
		return 0, history.Overflow(history.PoolOverflow, "pool", p.limits.PoolSize)
	}
	if len(p.starts) > p.limits.MaxStrings {
		return 0, history.Overflow(history.PoolOverflow, "number of strings", p.limits.MaxStrings)
	}
	p.chars = append(p.chars, text...)
	p.starts = append(p.starts, len(p.chars))
	return p.StrPtr() - 1, nil
}

// Truncate releases every string numbered s or above. Strings referenced by
// the hash table are never released.
func (p *Pool) Truncate(s types.StrNumber) {
	if s < p.hashedTop {
		s = p.hashedTop
	}
	if s >= p.StrPtr() {
		return
	}
	p.chars = p.chars[:p.starts[s]]
	p.starts = p.starts[:s+1]
}

// Lookup finds text under ilk. When insert is true and the pair is absent a new
// entry is created. When insert is false and the pair is absent, the returned
// location is where it would have been inserted and nothing is mutated.
func (p *Pool) Lookup(text []byte, ilk Ilk, insert bool) (types.HashPointer, bool, error) {
	k := key{text: string(text), ilk: ilk}
	if loc, ok := p.index[k]; ok {
		return loc, true, nil
	}
	loc := types.HashPointer(len(p.entries))
	if !insert {
		return loc, false, nil
	}
	if len(p.entries) >= p.limits.MaxStrings {
		return 0, false, history.Overflow(history.PoolOverflow, "hash", p.limits.MaxStrings)
	}
	s, ok := p.byText[k.text]
	if !ok {
		var err error
		s, err = p.MakeString(text)
		if err != nil {
			return 0, false, err
		}
		p.byText[k.text] = s
	}
	if s+1 > p.hashedTop {
		p.hashedTop = s + 1
	}
	p.entries = append(p.entries, Entry{Text: s, Ilk: ilk, Class: types.FnUndefined})
	p.index[k] = loc
	return loc, false, nil
}

// LookupString is Lookup for a Go string.
func (p *Pool) LookupString(text string, ilk Ilk, insert bool) (types.HashPointer, bool, error) {
	return p.Lookup([]byte(text), ilk, insert)
}

// Entry returns the hash entry at loc.
func (p *Pool) Entry(loc types.HashPointer) *Entry { return &p.entries[loc] }

// Text returns the string number stored at loc.
func (p *Pool) Text(loc types.HashPointer) types.StrNumber { return p.entries[loc].Text }

// Info returns the ilk-dependent payload of loc.
func (p *Pool) Info(loc types.HashPointer) int32 { return p.entries[loc].Info }

// SetInfo sets the ilk-dependent payload of loc.
func (p *Pool) SetInfo(loc types.HashPointer, v int32) { p.entries[loc].Info = v }

// Class returns the function class of loc.
func (p *Pool) Class(loc types.HashPointer) types.FnClass { return p.entries[loc].Class }

// SetClass sets the function class of loc.
func (p *Pool) SetClass(loc types.HashPointer, c types.FnClass) { p.entries[loc].Class = c }

// NumEntries returns the number of hash entries.
func (p *Pool) NumEntries() int { return len(p.entries) }

// EqBuf reports whether s equals buf byte for byte.
func (p *Pool) EqBuf(s types.StrNumber, buf []byte) bool {
	return bytes.Equal(p.Str(s), buf)
}

// EqStr reports whether two strings have identical contents.
func (p *Pool) EqStr(a, b types.StrNumber) bool {
	return a == b || bytes.Equal(p.Str(a), p.Str(b))
}
