// Package scanner implements the cursor operations over the primary buffer.
// Nothing here reports diagnostics: every operation tells the caller what it
// found and leaves the cursor where it stopped.
package scanner

import (
	"github.com/psilLang/bibvm/pkg/buffer"
	"github.com/psilLang/bibvm/pkg/lex"
)

// Result describes how ScanIdentifier ended.
type Result int

const (
	// IDNull means no identifier characters were found.
	IDNull Result = iota
	// SpecifiedCharAdjacent means the identifier ended at one of the requested characters.
	SpecifiedCharAdjacent
	// OtherCharAdjacent means the identifier ended at some other character.
	OtherCharAdjacent
	// WhitespaceAdjacent means the identifier ended at whitespace or end of line.
	WhitespaceAdjacent
)

func (r Result) String() string {
	switch r {
	case IDNull:
		return "id null"
	case SpecifiedCharAdjacent:
		return "specified char adjacent"
	case OtherCharAdjacent:
		return "other char adjacent"
	case WhitespaceAdjacent:
		return "white adjacent"
	}
	return "scan result"
}

// Scanner moves over buffer.Base. Offset 1 is the token start, offset 2 the cursor.
type Scanner struct {
	b *buffer.Buffers
}

// New creates a scanner over b.
func New(b *buffer.Buffers) *Scanner { return &Scanner{b: b} }

// Pos returns the cursor.
func (s *Scanner) Pos() int { return s.b.Offset(buffer.Base, 2) }

// SetPos moves the cursor.
func (s *Scanner) SetPos(p int) { s.b.SetOffset(buffer.Base, 2, p) }

// Start returns the token start.
func (s *Scanner) Start() int { return s.b.Offset(buffer.Base, 1) }

// SetStart moves the token start.
func (s *Scanner) SetStart(p int) { s.b.SetOffset(buffer.Base, 1, p) }

// Last returns the end of the current line.
func (s *Scanner) Last() int { return s.b.Len(buffer.Base) }

// AtEnd reports whether the cursor is at the end of the line.
func (s *Scanner) AtEnd() bool { return s.Pos() >= s.Last() }

// Char returns the character under the cursor, or 0 at end of line.
func (s *Scanner) Char() byte {
	if s.AtEnd() {
		return 0
	}
	return s.b.At(buffer.Base, s.Pos())
}

// Advance moves the cursor one character.
func (s *Scanner) Advance() { s.SetPos(s.Pos() + 1) }

// Token returns the bytes in [start, cursor).
func (s *Scanner) Token() []byte {
	return s.b.Bytes(buffer.Base)[s.Start():s.Pos()]
}

// TokenLen returns cursor - start.
func (s *Scanner) TokenLen() int { return s.Pos() - s.Start() }

// Line returns the whole current line.
func (s *Scanner) Line() []byte { return s.b.Content(buffer.Base) }

func (s *Scanner) scanUntil(stop func(c byte) bool) bool {
	s.SetStart(s.Pos())
	p, last := s.Pos(), s.Last()
	buf := s.b.Bytes(buffer.Base)
	for p < last && !stop(buf[p]) {
		p++
	}
	s.SetPos(p)
	return p < last
}

// Scan1 scans up to c1. It reports whether c1 was found before end of line.
func (s *Scanner) Scan1(c1 byte) bool {
	return s.scanUntil(func(c byte) bool { return c == c1 })
}

// Scan1White scans up to c1 or whitespace.
func (s *Scanner) Scan1White(c1 byte) bool {
	return s.scanUntil(func(c byte) bool { return c == c1 || lex.IsWhite(c) })
}

// Scan2 scans up to c1 or c2.
func (s *Scanner) Scan2(c1, c2 byte) bool {
	return s.scanUntil(func(c byte) bool { return c == c1 || c == c2 })
}

// Scan2White scans up to c1, c2 or whitespace.
func (s *Scanner) Scan2White(c1, c2 byte) bool {
	return s.scanUntil(func(c byte) bool { return c == c1 || c == c2 || lex.IsWhite(c) })
}

// Scan3 scans up to c1, c2 or c3.
func (s *Scanner) Scan3(c1, c2, c3 byte) bool {
	return s.scanUntil(func(c byte) bool { return c == c1 || c == c2 || c == c3 })
}

// ScanAlpha scans a run of alphabetic characters and reports whether it is nonempty.
func (s *Scanner) ScanAlpha() bool {
	s.scanUntil(func(c byte) bool { return !lex.IsAlpha(c) })
	return s.TokenLen() > 0
}

// ScanWhiteSpace skips whitespace and reports whether a non-white character
// remains on the line.
func (s *Scanner) ScanWhiteSpace() bool {
	p, last := s.Pos(), s.Last()
	buf := s.b.Bytes(buffer.Base)
	for p < last && lex.IsWhite(buf[p]) {
		p++
	}
	s.SetPos(p)
	return p < last
}

// ScanIdentifier scans an identifier that does not start with a digit and
// reports which of the four endings occurred.
func (s *Scanner) ScanIdentifier(c1, c2, c3 byte) Result {
	s.SetStart(s.Pos())
	p, last := s.Pos(), s.Last()
	buf := s.b.Bytes(buffer.Base)
	if p < last && lex.Of(buf[p]) != lex.Numeric {
		for p < last && lex.IsLegalID(buf[p]) {
			p++
		}
	}
	s.SetPos(p)
	switch {
	case s.TokenLen() == 0:
		return IDNull
	case p >= last || lex.IsWhite(buf[p]):
		return WhitespaceAdjacent
	case buf[p] == c1 || buf[p] == c2 || buf[p] == c3:
		return SpecifiedCharAdjacent
	default:
		return OtherCharAdjacent
	}
}

// ScanNonnegInteger scans a run of digits.
func (s *Scanner) ScanNonnegInteger() (int32, bool) {
	s.SetStart(s.Pos())
	p, last := s.Pos(), s.Last()
	buf := s.b.Bytes(buffer.Base)
	var v int32
	for p < last && lex.Of(buf[p]) == lex.Numeric {
		v = v*10 + int32(buf[p]-'0')
		p++
	}
	s.SetPos(p)
	return v, s.TokenLen() > 0
}

// ScanInteger scans an optionally signed run of digits.
func (s *Scanner) ScanInteger() (int32, bool) {
	start := s.Pos()
	neg := false
	if c := s.Char(); c == '-' || c == '+' {
		neg = c == '-'
		s.Advance()
	}
	v, ok := s.ScanNonnegInteger()
	s.SetStart(start)
	if !ok {
		return 0, false
	}
	if neg {
		v = -v
	}
	return v, true
}
