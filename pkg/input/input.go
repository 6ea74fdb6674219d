// Package input reads text files line by line into the primary buffer.
package input

import (
	"bufio"
	"errors"
	"io"

	"github.com/psilLang/bibvm/pkg/buffer"
	"github.com/psilLang/bibvm/pkg/lex"
)

// Reader fills buffer.Base with one line at a time.
type Reader struct {
	r    *bufio.Reader
	eof  bool
	line int
}

// NewReader wraps r.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: bufio.NewReader(r)}
}

// Line returns the number of the last line read (1-based).
func (rd *Reader) Line() int { return rd.line }

// EOF reports whether the input is exhausted.
func (rd *Reader) EOF() bool {
	if rd.eof {
		return true
	}
	if _, err := rd.r.Peek(1); err != nil {
		rd.eof = true
	}
	return rd.eof
}

// ReadLine loads the next line into the Base buffer, without its line ending
// and trailing whitespace, and resets the buffer cursors. It returns false when
// no line is left.
func (rd *Reader) ReadLine(b *buffer.Buffers) (bool, error) {
	if rd.EOF() {
		return false, nil
	}
	raw, err := rd.r.ReadSlice('\n')
	var line []byte
	for errors.Is(err, bufio.ErrBufferFull) {
		line = append(line, raw...)
		raw, err = rd.r.ReadSlice('\n')
	}
	line = append(line, raw...)
	if err != nil {
		if !errors.Is(err, io.EOF) {
			return false, err
		}
		rd.eof = true
	}
	n := len(line)
	for n > 0 && (line[n-1] == '\n' || line[n-1] == '\r') {
		n--
	}
	for n > 0 && lex.IsWhite(line[n-1]) {
		n--
	}
	if err := b.Load(buffer.Base, line[:n]); err != nil {
		return false, err
	}
	b.SetOffset(buffer.Base, 1, 0)
	b.SetOffset(buffer.Base, 2, 0)
	rd.line++
	return true, nil
}
