package lex

import "testing"

func TestClasses(t *testing.T) {
	tests := []struct {
		c    byte
		want Class
	}{
		{' ', Whitespace},
		{'\t', Whitespace},
		{'a', Alpha},
		{'Z', Alpha},
		{0xe9, Alpha},
		{'7', Numeric},
		{'~', Sep},
		{'-', Sep},
		{'{', Other},
		{0x07, Illegal},
	}
	for _, tt := range tests {
		if got := Of(tt.c); got != tt.want {
			t.Errorf("Of(%q): expected %s, got %s", tt.c, tt.want, got)
		}
	}
}

func TestLegalID(t *testing.T) {
	for _, c := range []byte("abcXYZ019.$:-+*<>!?") {
		if !IsLegalID(c) {
			t.Errorf("Expected %q to be legal in identifiers", c)
		}
	}
	for _, c := range []byte("\"#%'(),={} \t") {
		if IsLegalID(c) {
			t.Errorf("Expected %q to be illegal in identifiers", c)
		}
	}
}

func TestWidths(t *testing.T) {
	tests := []struct {
		c    byte
		want int32
	}{
		{'a', 500},
		{'W', 1028},
		{'0', 500},
		{' ', 278},
		{0x07, 0},
	}
	for _, tt := range tests {
		if got := Width(tt.c); got != tt.want {
			t.Errorf("Width(%q): expected %d, got %d", tt.c, tt.want, got)
		}
	}
}

func TestCaseConversion(t *testing.T) {
	if got := string(LowerBytes([]byte("MiXeD 123 {É}"))); got != "mixed 123 {É}" {
		t.Errorf("Expected only ASCII letters to fold, got %q", got)
	}
	if ToUpper('q') != 'Q' || ToUpper('{') != '{' {
		t.Error("Expected ToUpper to fold letters only")
	}
}
