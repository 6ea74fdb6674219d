// Package lex holds the fixed character tables shared by every scanner:
// lexical classes, identifier legality and cmr10 character widths.
package lex

import "strconv"

// Class is the lexical class of a byte.
type Class uint8

const (
	Illegal Class = iota
	Whitespace
	Alpha
	Numeric
	Sep
	Other
)

var classNames = [...]string{
	Illegal:    "Illegal",
	Whitespace: "Whitespace",
	Alpha:      "Alpha",
	Numeric:    "Numeric",
	Sep:        "Sep",
	Other:      "Other",
}

func (c Class) String() string {
	if int(c) < len(classNames) {
		return classNames[c]
	}
	return "class(" + strconv.Itoa(int(c)) + ")"
}

// Characters with a fixed meaning in aux, bib and bst text.
const (
	Tab         = '\t'
	Space       = ' '
	Tie         = '~'
	Hyphen      = '-'
	Comma       = ','
	Period      = '.'
	Colon       = ':'
	Backslash   = '\\'
	LeftBrace   = '{'
	RightBrace  = '}'
	LeftParen   = '('
	RightParen  = ')'
	DoubleQuote = '"'
	SingleQuote = '\''
	Concat      = '#'
	Equals      = '='
	At          = '@'
	Comment     = '%'
)

// Widths of the special characters that have no single-byte slot.
const (
	SSWidth      = 500
	AEWidth      = 722
	OEWidth      = 778
	UpperAEWidth = 903
	UpperOEWidth = 1014
)

var (
	classes   [256]Class
	legalID   [256]bool
	charWidth [256]int32
)

func init() {
	for c := 0; c < 256; c++ {
		switch {
		case c < 0x20 || c == 0x7f:
			classes[c] = Illegal
		case c >= 0x80:
			classes[c] = Alpha
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
			classes[c] = Alpha
		case c >= '0' && c <= '9':
			classes[c] = Numeric
		default:
			classes[c] = Other
		}
	}
	classes[Tab] = Whitespace
	classes[Space] = Whitespace
	classes[Tie] = Sep
	classes[Hyphen] = Sep

	for c := 0; c < 256; c++ {
		legalID[c] = classes[c] != Illegal && classes[c] != Whitespace
	}
	for _, c := range []byte{'"', '#', '%', '\'', '(', ')', ',', '=', '{', '}'} {
		legalID[c] = false
	}

	widths := map[byte]int32{
		' ': 278, '!': 278, '"': 500, '#': 833, '$': 500, '%': 833, '&': 778,
		'\'': 278, '(': 389, ')': 389, '*': 500, '+': 778, ',': 278, '-': 333,
		'.': 278, '/': 500, ':': 278, ';': 278, '<': 278, '=': 778, '>': 472,
		'?': 472, '@': 778, '[': 278, '\\': 500, ']': 278, '^': 500, '_': 278,
		'`': 278, '{': 500, '|': 1000, '}': 500, '~': 500,
		'A': 750, 'B': 708, 'C': 722, 'D': 764, 'E': 681, 'F': 653, 'G': 785,
		'H': 750, 'I': 361, 'J': 514, 'K': 778, 'L': 625, 'M': 917, 'N': 750,
		'O': 778, 'P': 681, 'Q': 778, 'R': 736, 'S': 556, 'T': 722, 'U': 750,
		'V': 750, 'W': 1028, 'X': 750, 'Y': 750, 'Z': 611,
		'a': 500, 'b': 556, 'c': 444, 'd': 556, 'e': 444, 'f': 306, 'g': 500,
		'h': 556, 'i': 278, 'j': 306, 'k': 528, 'l': 278, 'm': 833, 'n': 556,
		'o': 500, 'p': 556, 'q': 528, 'r': 392, 's': 394, 't': 389, 'u': 556,
		'v': 528, 'w': 722, 'x': 528, 'y': 528, 'z': 444,
	}
	for c := byte('0'); c <= '9'; c++ {
		widths[c] = 500
	}
	for c, w := range widths {
		charWidth[c] = w
	}
}

// Of returns the lexical class of c.
func Of(c byte) Class { return classes[c] }

// IsWhite reports whether c is whitespace.
func IsWhite(c byte) bool { return classes[c] == Whitespace }

// IsAlpha reports whether c is alphabetic.
func IsAlpha(c byte) bool { return classes[c] == Alpha }

// IsLegalID reports whether c may appear in an identifier.
func IsLegalID(c byte) bool { return legalID[c] }

// Width returns the cmr10 width of c in thousandths of an em.
func Width(c byte) int32 { return charWidth[c] }

// ToLower folds ASCII upper-case letters; other bytes are unchanged.
func ToLower(c byte) byte {
	if c >= 'A' && c <= 'Z' {
		return c + ('a' - 'A')
	}
	return c
}

// ToUpper folds ASCII lower-case letters; other bytes are unchanged.
func ToUpper(c byte) byte {
	if c >= 'a' && c <= 'z' {
		return c - ('a' - 'A')
	}
	return c
}

// LowerBytes returns a lower-cased copy of b.
func LowerBytes(b []byte) []byte {
	out := make([]byte, len(b))
	for i, c := range b {
		out[i] = ToLower(c)
	}
	return out
}
