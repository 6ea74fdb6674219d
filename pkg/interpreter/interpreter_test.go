package interpreter

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/psilLang/bibvm/pkg/buffer"
	"github.com/psilLang/bibvm/pkg/cite"
	"github.com/psilLang/bibvm/pkg/entry"
	"github.com/psilLang/bibvm/pkg/history"
	"github.com/psilLang/bibvm/pkg/parser"
	"github.com/psilLang/bibvm/pkg/pool"
	"github.com/psilLang/bibvm/pkg/types"
)

type harness struct {
	*Interpreter
	out *bytes.Buffer
	log *bytes.Buffer
	n   int
}

// Helper to create an interpreter over fresh run state
func newHarness(t *testing.T) *harness {
	t.Helper()
	p := pool.New(pool.Limits{PoolSize: 1 << 20, MaxStrings: 1 << 16})
	var out, log bytes.Buffer
	interp, err := New(Config{
		Pool:      p,
		Bufs:      buffer.New(100, 10000),
		Cites:     cite.New(p, 100),
		Entries:   entry.New(entry.Limits{EntStrSize: 250, GlobStrSize: 20000, MaxGlobStrs: 10}),
		Report:    history.NewReporter(&log, nil),
		Output:    &out,
		StackSize: 10,
		MaxStack:  50,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	interp.BeginCommand(history.Position{File: "test.bst", Line: 1})
	return &harness{Interpreter: interp, out: &out, log: &log}
}

// Helper to compile body as a fresh function and run it
func (h *harness) run(t *testing.T, body string) {
	t.Helper()
	h.n++
	name := fmt.Sprintf("test%d", h.n)
	cmds, errs := parser.Parse("test.bst", "FUNCTION {"+name+"} {"+body+"}")
	if len(errs) > 0 {
		t.Fatalf("Parse error: %s", errs[0].Msg)
	}
	loc, already, err := h.Declare(name, types.FnWizard, 0)
	if err != nil || already {
		t.Fatalf("Declare %s: already=%v err=%v", name, already, err)
	}
	if err := h.Define(loc, cmds[0].Args[1]); err != nil {
		t.Fatalf("Define: %v", err)
	}
	if err := h.ExecuteFn(loc); err != nil {
		t.Fatalf("Runtime error: %v", err)
	}
}

// Helper to render the stack, strings quoted
func (h *harness) stack() string {
	var parts []string
	for _, v := range h.Stack {
		switch v := v.(type) {
		case types.String:
			parts = append(parts, fmt.Sprintf("%q", h.Pool.Str(types.StrNumber(v))))
		default:
			parts = append(parts, v.String())
		}
	}
	return strings.Join(parts, " ")
}

func TestArithmeticAndComparison(t *testing.T) {
	tests := []struct {
		code     string
		expected string
	}{
		{"#2 #3 +", "5"},
		{"#10 #4 -", "6"},
		{"#-3 #1 +", "-2"},
		{"#3 #2 >", "1"},
		{"#3 #2 <", "0"},
		{"#7 #7 =", "1"},
		{`"ab" "ab" =`, "1"},
		{`"ab" "cd" =`, "0"},
		{`"ab" "cd" *`, `"abcd"`},
		{`"" "cd" *`, `"cd"`},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			h := newHarness(t)
			h.run(t, tt.code)
			if got := h.stack(); got != tt.expected {
				t.Errorf("Expected %s, got %s", tt.expected, got)
			}
			if h.Report.Errors() != 0 {
				t.Errorf("Unexpected errors:\n%s", h.log)
			}
		})
	}
}

func TestStackOperations(t *testing.T) {
	tests := []struct {
		code     string
		expected string
	}{
		{"#1 #2 #3", "1 2 3"},
		{"#1 duplicate$", "1 1"},
		{"#1 #2 pop$", "1"},
		{"#1 #2 swap$", "2 1"},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			h := newHarness(t)
			h.run(t, tt.code)
			if got := h.stack(); got != tt.expected {
				t.Errorf("Expected %s, got %s", tt.expected, got)
			}
		})
	}

	t.Run("quoted function", func(t *testing.T) {
		h := newHarness(t)
		h.run(t, "'skip$")
		loc, _ := h.Lookup("skip$")
		if len(h.Stack) != 1 || !h.Stack[0].Equal(types.Function(loc)) {
			t.Errorf("Expected skip$ function literal, got %s", h.stack())
		}
	})
}

func TestPopEmptyStack(t *testing.T) {
	h := newHarness(t)
	if v := h.Pop(); v.Type() != types.StkIllegal {
		t.Errorf("Expected illegal value, got %s", v)
	}
	if h.Report.Errors() != 1 {
		t.Errorf("Expected 1 error, got %d", h.Report.Errors())
	}
	if !strings.Contains(h.log.String(), "You can't pop an empty literal stack") {
		t.Errorf("Missing message in log:\n%s", h.log)
	}
}

func TestTypeMismatchRecovers(t *testing.T) {
	h := newHarness(t)
	h.run(t, `"a" #1 + #2 #3 +`)
	if got := h.stack(); got != "0 5" {
		t.Errorf("Expected 0 5, got %s", got)
	}
	if h.Report.Errors() != 1 {
		t.Errorf("Expected 1 error, got %d", h.Report.Errors())
	}
	if !strings.Contains(h.log.String(), `"a" is a string literal, not an integer,`) {
		t.Errorf("Missing message in log:\n%s", h.log)
	}
}

func TestEqualsMixedTypes(t *testing.T) {
	h := newHarness(t)
	h.run(t, `#1 "1" =`)
	if got := h.stack(); got != "0" {
		t.Errorf("Expected 0, got %s", got)
	}
	if !strings.Contains(h.log.String(), "---they aren't the same literal types") {
		t.Errorf("Missing message in log:\n%s", h.log)
	}
}

func TestControlFlow(t *testing.T) {
	h := newHarness(t)
	if _, _, err := h.Declare("x", types.FnIntGlobalVar, 0); err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		code     string
		expected string
	}{
		{`#1 {"yes"} {"no"} if$`, `"yes"`},
		{`#0 {"yes"} {"no"} if$`, `"no"`},
		{`#0 'x := { x #5 < } { x #1 + 'x := } while$ x`, "5"},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			h.Stack = h.Stack[:0]
			h.run(t, tt.code)
			if got := h.stack(); got != tt.expected {
				t.Errorf("Expected %s, got %s", tt.expected, got)
			}
		})
	}
}

func TestStringBuiltins(t *testing.T) {
	tests := []struct {
		code     string
		expected string
	}{
		{`"Hello" add.period$`, `"Hello."`},
		{`"Hi!" add.period$`, `"Hi!"`},
		{`"{Hi.}" add.period$`, `"{Hi.}"`},
		{`"Hello World" "t" change.case$`, `"Hello world"`},
		{`"A Title: The Sub" "t" change.case$`, `"A title: The sub"`},
		{`"The {NASA} way" "l" change.case$`, `"the {NASA} way"`},
		{`"hello" "u" change.case$`, `"HELLO"`},
		{`"A" chr.to.int$`, "65"},
		{`#65 int.to.chr$`, `"A"`},
		{`#-42 int.to.str$`, `"-42"`},
		{`quote$`, `"\""`},
		{`"{\'E}cole" purify$`, `"Ecole"`},
		{`"Hello-World~x" purify$`, `"Hello World x"`},
		{`"abcdef" #2 #3 substring$`, `"bcd"`},
		{`"abcdef" #-1 #2 substring$`, `"ef"`},
		{`"abcdef" #1 #10 substring$`, `"abcdef"`},
		{`"abcdef" #9 #2 substring$`, `""`},
		{`"{\'e}t{\'e}" text.length$`, "3"},
		{`"abcdef" #3 text.prefix$`, `"abc"`},
		{`"{ab}cd" #1 text.prefix$`, `"{a}"`},
		{`"a" width$`, "500"},
		{`"" empty$ "  " empty$ "x" empty$`, "1 1 0"},
		{`"A and B and C" num.names$`, "3"},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			h := newHarness(t)
			h.run(t, tt.code)
			if got := h.stack(); got != tt.expected {
				t.Errorf("Expected %s, got %s", tt.expected, got)
			}
			if h.Report.Errors() != 0 {
				t.Errorf("Unexpected errors:\n%s", h.log)
			}
		})
	}
}

func TestFormatName(t *testing.T) {
	tests := []struct {
		names    string
		which    int
		format   string
		expected string
	}{
		{"Donald E. Knuth", 1, "{ll}", "Knuth"},
		{"Donald E. Knuth", 1, "{ff}", "Donald~E."},
		{"Donald E. Knuth", 1, "{f.}", "D.~E."},
		{"Knuth, Donald E.", 1, "{ll}, {ff}", "Knuth, Donald~E."},
		{"Ludwig van Beethoven", 1, "{vv~}{ll}", "van Beethoven"},
		{"Ludwig van Beethoven", 1, "{ff}", "Ludwig"},
		{"Doe, Jr., John", 1, "{ll}{, jj}", "Doe, Jr."},
		{"Alice Smith and Bob Jones", 2, "{ll}", "Jones"},
	}

	for _, tt := range tests {
		t.Run(tt.names+"/"+tt.format, func(t *testing.T) {
			h := newHarness(t)
			h.run(t, fmt.Sprintf("%q #%d %q format.name$", tt.names, tt.which, tt.format))
			if got, want := h.stack(), fmt.Sprintf("%q", tt.expected); got != want {
				t.Errorf("Expected %s, got %s", want, got)
			}
		})
	}
}

func TestFormatNameOutOfRange(t *testing.T) {
	tests := []struct {
		which    int
		expected string
		message  string
	}{
		{0, "", "There aren't 0 names in \"Alice Smith and Bob Jones\""},
		{-1, "", "There aren't -1 names in \"Alice Smith and Bob Jones\""},
		{3, "Jones", "There aren't 3 names in \"Alice Smith and Bob Jones\""},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.which), func(t *testing.T) {
			h := newHarness(t)
			h.run(t, fmt.Sprintf("\"Alice Smith and Bob Jones\" #%d \"{ll}\" format.name$", tt.which))
			if got, want := h.stack(), fmt.Sprintf("%q", tt.expected); got != want {
				t.Errorf("Expected %s, got %s", want, got)
			}
			if !strings.Contains(h.log.String(), tt.message) {
				t.Errorf("Expected %q in log:\n%s", tt.message, h.log)
			}
			if h.Report.Errors() != 1 {
				t.Errorf("Expected 1 error, got %d", h.Report.Errors())
			}
		})
	}
}

func TestGlobalStringAssignment(t *testing.T) {
	h := newHarness(t)
	n, err := h.Entries.AddGlobStr()
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := h.Declare("s", types.FnStrGlobalVar, int32(n)); err != nil {
		t.Fatal(err)
	}
	h.run(t, `"abc" "def" * 's := s`)
	if got := h.stack(); got != `"abcdef"` {
		t.Errorf("Expected \"abcdef\", got %s", got)
	}
}

func TestAssignToNonVariable(t *testing.T) {
	h := newHarness(t)
	h.run(t, `#1 'skip$ :=`)
	if !strings.Contains(h.log.String(), "You can't assign to type built-in, a nonvariable function class") {
		t.Errorf("Missing message in log:\n%s", h.log)
	}
}

func TestEntryAccessOutsideIteration(t *testing.T) {
	h := newHarness(t)
	h.run(t, `cite$`)
	if len(h.Stack) != 0 {
		t.Errorf("Expected empty stack, got %s", h.stack())
	}
	if !strings.Contains(h.log.String(), "You can't mess with entries here") {
		t.Errorf("Missing message in log:\n%s", h.log)
	}
}

func TestUnknownFunctionIsSkipped(t *testing.T) {
	h := newHarness(t)
	h.run(t, `#1 nosuch$ #2`)
	if got := h.stack(); got != "1 2" {
		t.Errorf("Expected 1 2, got %s", got)
	}
	if !strings.Contains(h.log.String(), "nosuch$ is an unknown function") {
		t.Errorf("Missing message in log:\n%s", h.log)
	}
}

func TestEndCommandEmptiesStack(t *testing.T) {
	h := newHarness(t)
	h.run(t, `#1 "x"`)
	h.EndCommand()
	if len(h.Stack) != 0 {
		t.Errorf("Expected empty stack, got %s", h.stack())
	}
	if !strings.Contains(h.log.String(), "---the literal stack isn't empty") {
		t.Errorf("Missing message in log:\n%s", h.log)
	}
}

func TestStackOverflowIsFatal(t *testing.T) {
	h := newHarness(t)
	h.n++
	cmds, _ := parser.Parse("test.bst", "FUNCTION {loop} { #1 #1 #1 #1 #1 #1 #1 #1 #1 #1 #1 #1 #1 #1 #1 #1 #1 #1 #1 #1 #1 #1 #1 #1 #1 #1 #1 #1 #1 #1 #1 #1 #1 #1 #1 #1 #1 #1 #1 #1 #1 #1 #1 #1 #1 #1 #1 #1 #1 #1 #1 }")
	loc, _, _ := h.Declare("loop", types.FnWizard, 0)
	if err := h.Define(loc, cmds[0].Args[1]); err != nil {
		t.Fatal(err)
	}
	err := h.ExecuteFn(loc)
	fe, ok := history.IsFatal(err)
	if !ok || fe.Kind != history.StackOverflow {
		t.Fatalf("Expected stack overflow, got %v", err)
	}
}

func TestOutputLineBreaking(t *testing.T) {
	h := newHarness(t)
	word := strings.Repeat("x", 9) + " "
	h.run(t, fmt.Sprintf("%q write$ newline$", strings.Repeat(word, 12)))
	lines := strings.Split(strings.TrimSuffix(h.out.String(), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("Expected 2 lines, got %q", h.out.String())
	}
	if len(lines[0]) > maxPrintLine {
		t.Errorf("First line too long: %d", len(lines[0]))
	}
	if !strings.HasPrefix(lines[1], "  x") {
		t.Errorf("Continuation not indented: %q", lines[1])
	}
}

func TestNewlineOnEmptyBuffer(t *testing.T) {
	h := newHarness(t)
	h.run(t, `newline$ "a" write$ newline$`)
	if got := h.out.String(); got != "\na\n" {
		t.Errorf("Expected %q, got %q", "\na\n", got)
	}
}
