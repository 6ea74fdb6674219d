// Package buffer provides the scratch character regions used while scanning,
// splitting names, checking braces and composing output.
package buffer

import (
	"github.com/psilLang/bibvm/pkg/history"
	"github.com/psilLang/bibvm/pkg/lex"
)

// Kind selects one of the scratch regions.
type Kind int

const (
	// Base holds the current input line. Offset 1 is the token start, offset 2 the cursor.
	Base Kind = iota
	// Sv holds the tokens of a name being formatted.
	Sv
	// Ex is the expression buffer used by string builtins. Offset 1 is its cursor.
	Ex
	// Out composes the current output line.
	Out
	// NameSep holds the separator preceding each name token.
	NameSep
	numKinds
)

var kindNames = [...]string{"buffer", "sv_buffer", "ex_buf", "out_buf", "name_sep_char"}

func (k Kind) String() string { return kindNames[k] }

type region struct {
	data    []byte
	length  int
	offsets [2]int
}

// Buffers is the set of scratch regions of one run.
type Buffers struct {
	regions [numKinds]region
	nameTok []int

	step int
	max  int
}

// New allocates every region with size bytes. Regions grow in steps of size
// and never beyond max.
func New(size, max int) *Buffers {
	b := &Buffers{step: size, max: max}
	for i := range b.regions {
		b.regions[i].data = make([]byte, size)
	}
	b.nameTok = make([]int, size)
	return b
}

// Cap returns the allocated size of region k.
func (b *Buffers) Cap(k Kind) int { return len(b.regions[k].data) }

// Bytes returns the whole allocated region k.
func (b *Buffers) Bytes(k Kind) []byte { return b.regions[k].data }

// Content returns the initialized part of region k.
func (b *Buffers) Content(k Kind) []byte {
	r := &b.regions[k]
	return r.data[:r.length]
}

// Len returns the logical length of region k.
func (b *Buffers) Len(k Kind) int { return b.regions[k].length }

// SetLen sets the logical length of region k.
func (b *Buffers) SetLen(k Kind, n int) { b.regions[k].length = n }

// At returns the byte at pos of region k.
func (b *Buffers) At(k Kind, pos int) byte { return b.regions[k].data[pos] }

// Set stores c at pos of region k.
func (b *Buffers) Set(k Kind, pos int, c byte) { b.regions[k].data[pos] = c }

// Offset returns cursor n (1 or 2) of region k.
func (b *Buffers) Offset(k Kind, n int) int { return b.regions[k].offsets[n-1] }

// SetOffset sets cursor n (1 or 2) of region k.
func (b *Buffers) SetOffset(k Kind, n, v int) { b.regions[k].offsets[n-1] = v }

// Ensure grows region k so that it holds at least n bytes.
func (b *Buffers) Ensure(k Kind, n int) error {
	r := &b.regions[k]
	if n <= len(r.data) {
		return nil
	}
	if n > b.max {
		return history.Overflow(history.BufferOverflow, k.String(), b.max)
	}
	size := len(r.data)
	for size < n {
		size += b.step
	}
	if size > b.max {
		size = b.max
	}
	grown := make([]byte, size)
	copy(grown, r.data)
	r.data = grown
	if k == Sv && len(b.nameTok) < size {
		tok := make([]int, size)
		copy(tok, b.nameTok)
		b.nameTok = tok
	}
	return nil
}

// Append adds c at the logical end of region k.
func (b *Buffers) Append(k Kind, c byte) error {
	r := &b.regions[k]
	if err := b.Ensure(k, r.length+1); err != nil {
		return err
	}
	r.data[r.length] = c
	r.length++
	return nil
}

// AppendBytes adds s at the logical end of region k.
func (b *Buffers) AppendBytes(k Kind, s []byte) error {
	r := &b.regions[k]
	if err := b.Ensure(k, r.length+len(s)); err != nil {
		return err
	}
	copy(r.data[r.length:], s)
	r.length += len(s)
	return nil
}

// Load replaces the content of region k with s.
func (b *Buffers) Load(k Kind, s []byte) error {
	b.regions[k].length = 0
	return b.AppendBytes(k, s)
}

// NameTok returns the start of name token i in the Sv region.
func (b *Buffers) NameTok(i int) int { return b.nameTok[i] }

// SetNameTok records the start of name token i.
func (b *Buffers) SetNameTok(i, v int) error {
	if i >= len(b.nameTok) {
		if err := b.Ensure(Sv, i+1); err != nil {
			return err
		}
	}
	b.nameTok[i] = v
	return nil
}

// LowerCase folds [ptr, ptr+n) of region k to lower case in place.
func (b *Buffers) LowerCase(k Kind, ptr, n int) {
	d := b.regions[k].data
	for i := ptr; i < ptr+n; i++ {
		d[i] = lex.ToLower(d[i])
	}
}

// UpperCase folds [ptr, ptr+n) of region k to upper case in place.
func (b *Buffers) UpperCase(k Kind, ptr, n int) {
	d := b.regions[k].data
	for i := ptr; i < ptr+n; i++ {
		d[i] = lex.ToUpper(d[i])
	}
}

// IntToASCII writes the decimal form of v into region k starting at begin and
// returns the position just past the last digit.
func (b *Buffers) IntToASCII(v int32, k Kind, begin int) (int, error) {
	n := int64(v)
	var digits [12]byte
	i := len(digits)
	neg := n < 0
	if neg {
		n = -n
	}
	for {
		i--
		digits[i] = byte('0' + n%10)
		n /= 10
		if n == 0 {
			break
		}
	}
	if neg {
		i--
		digits[i] = '-'
	}
	end := begin + len(digits) - i
	if err := b.Ensure(k, end); err != nil {
		return 0, err
	}
	copy(b.regions[k].data[begin:], digits[i:])
	return end, nil
}
