package engine

import (
	"bytes"
	"fmt"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/psilLang/bibvm/pkg/config"
	"github.com/psilLang/bibvm/pkg/history"
)

const refs = `@book{a, title = {Alpha}}
@book{b, title = {Beta}}
@misc{1, title = {One}}
@article{2, title = {Two}}
`

// Helper to build a job from an aux file body and a style program
func job(aux, style string) fstest.MapFS {
	return fstest.MapFS{
		"job.aux":   {Data: []byte(aux)},
		"refs.bib":  {Data: []byte(refs)},
		"style.bst": {Data: []byte(style)},
	}
}

type result struct {
	history history.History
	err     error
	out     string
	log     string
}

// Helper to run a job and collect its output
func runJob(t *testing.T, cfg *config.Config, fsys fstest.MapFS) result {
	t.Helper()
	var out, log bytes.Buffer
	e := New(cfg, Options{FS: fsys, Output: &out, Log: &log})
	h, err := e.Run("job")
	return result{history: h, err: err, out: out.String(), log: log.String()}
}

func TestSortedBibliography(t *testing.T) {
	style := `
% print every key, sorted
ENTRY { title } {} {}

FUNCTION {book} { cite$ write$ newline$ }
FUNCTION {presort} { cite$ 'sort.key$ := }

READ
ITERATE {presort}
SORT
ITERATE {call.type$}
`
	r := runJob(t, nil, job("\\citation{b}\n\\citation{a}\n\\bibdata{refs}\n\\bibstyle{style}\n", style))
	if r.err != nil {
		t.Fatalf("Run: %v", r.err)
	}
	if r.out != "a\nb\n" {
		t.Errorf("Expected %q, got %q", "a\nb\n", r.out)
	}
	if r.history != history.Spotless {
		t.Errorf("Expected spotless, got %s:\n%s", r.history, r.log)
	}
	for _, want := range []string{
		"The top-level auxiliary file: job.aux",
		"The style file: style.bst",
		"Database file #1: refs.bib",
	} {
		if !strings.Contains(r.log, want) {
			t.Errorf("Expected %q in log:\n%s", want, r.log)
		}
	}
}

func TestVerboseStatistics(t *testing.T) {
	style := "ENTRY {} {} {}\nFUNCTION {book} { cite$ write$ newline$ }\nREAD\nITERATE {call.type$}\n"
	aux := "\\citation{b}\n\\citation{a}\n\\bibdata{refs}\n\\bibstyle{style}\n"

	quiet := runJob(t, nil, job(aux, style))
	if strings.Contains(quiet.log, "You've used") {
		t.Errorf("Expected no statistics without verbose:\n%s", quiet.log)
	}

	cfg := config.Default()
	cfg.Verbose = true
	r := runJob(t, cfg, job(aux, style))
	if r.history != history.Spotless {
		t.Errorf("Expected spotless, got %s:\n%s", r.history, r.log)
	}
	want := fmt.Sprintf("You've used 2 entries of %d,", cfg.Limits.MaxCites)
	if !strings.Contains(r.log, want) {
		t.Errorf("Expected %q in log:\n%s", want, r.log)
	}
	if !strings.Contains(r.log, "and 2 lines of bibliography") {
		t.Errorf("Expected the output line count in log:\n%s", r.log)
	}
}

func TestReverseAndFields(t *testing.T) {
	style := `ENTRY { title } {} {}
READ
FUNCTION {show} { title write$ newline$ }
REVERSE {show}
`
	r := runJob(t, nil, job("\\citation{a,b}\n\\bibdata{refs}\n\\bibstyle{style}\n", style))
	if r.out != "Beta\nAlpha\n" {
		t.Errorf("Expected %q, got %q", "Beta\nAlpha\n", r.out)
	}
}

func TestDefaultType(t *testing.T) {
	style := `ENTRY {} {} {}
FUNCTION {default.type} { cite$ write$ newline$ }
READ
ITERATE {call.type$}
`
	r := runJob(t, nil, job("\\citation{1}\n\\citation{2}\n\\bibdata{refs}\n\\bibstyle{style}\n", style))
	if r.out != "1\n2\n" {
		t.Errorf("Expected %q, got %q", "1\n2\n", r.out)
	}
	if r.history != history.WarningIssued {
		t.Errorf("Expected warning issued, got %s", r.history)
	}
	if !strings.Contains(r.log, "(There were 2 warnings)") {
		t.Errorf("Expected warning summary in log:\n%s", r.log)
	}
}

func TestPreambleAndMacros(t *testing.T) {
	fsys := job("\\citation{m}\n\\bibdata{refs}\n\\bibstyle{style}\n", `ENTRY { note } {} {}
MACRO {jan} {"January"}
FUNCTION {book} { note write$ newline$ }
READ
FUNCTION {begin} { preamble$ write$ newline$ }
EXECUTE {begin}
ITERATE {call.type$}
`)
	fsys["refs.bib"] = &fstest.MapFile{Data: []byte(`@preamble{"\relax"}
@book{m, note = jan # " 1"}
`)}
	r := runJob(t, nil, fsys)
	if r.out != "\\relax\nJanuary 1\n" {
		t.Errorf("Expected %q, got %q", "\\relax\nJanuary 1\n", r.out)
	}
	if r.history != history.Spotless {
		t.Errorf("Expected spotless, got %s:\n%s", r.history, r.log)
	}
}

func TestStyleErrors(t *testing.T) {
	tests := []struct {
		name    string
		style   string
		message string
	}{
		{"illegal command", "ENTRY {}{}{}\nFOO {x}\nREAD\n", "FOO is an illegal style-file command"},
		{"no read", "ENTRY {}{}{}\n", "the style file style.bst has no read command"},
		{"read before entry", "READ\n", "Illegal, read command before entry command"},
		{"unknown function", "ENTRY {}{}{}\nREAD\nEXECUTE {nothing}\n", "nothing is an unknown function"},
		{"missing argument", "ENTRY {}{}\nREAD\n", "\"{\" is missing in command: entry"},
		{"redefinition", "ENTRY {}{}{}\nINTEGERS {n}\nSTRINGS {n}\nREAD\n", "n is already a type \"integer-global-variable\" function name"},
		{"macro after read", "ENTRY {}{}{}\nREAD\nMACRO {x} {\"y\"}\n", "Illegal, macro command after read command"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := runJob(t, nil, job("\\citation{a}\n\\bibdata{refs}\n\\bibstyle{style}\n", tt.style))
			if r.err != nil {
				t.Fatalf("Run: %v", r.err)
			}
			if !strings.Contains(r.log, tt.message) {
				t.Errorf("Expected %q in log:\n%s", tt.message, r.log)
			}
			if r.history != history.ErrorIssued {
				t.Errorf("Expected error issued, got %s", r.history)
			}
		})
	}
}

func TestFatalErrorDiscardsOutput(t *testing.T) {
	cfg := config.Default()
	cfg.Limits.LitStackSize = 1
	cfg.Limits.MaxLitStack = 2
	style := `ENTRY {} {} {}
READ
FUNCTION {hello} { "x" write$ newline$ }
EXECUTE {hello}
FUNCTION {deep} { #1 #2 #3 }
EXECUTE {deep}
`
	r := runJob(t, cfg, job("\\citation{a}\n\\bibdata{refs}\n\\bibstyle{style}\n", style))
	if r.err != nil {
		t.Fatalf("Run: %v", r.err)
	}
	if r.history != history.FatalError {
		t.Errorf("Expected fatal error, got %s", r.history)
	}
	if r.out != "" {
		t.Errorf("Expected no output, got %q", r.out)
	}
	if !strings.Contains(r.log, "(That was a fatal error)") {
		t.Errorf("Expected fatal summary in log:\n%s", r.log)
	}
}

func TestMissingAuxFile(t *testing.T) {
	var log bytes.Buffer
	e := New(nil, Options{FS: fstest.MapFS{}, Log: &log})
	h, err := e.Run("nothere.aux")
	if err == nil {
		t.Fatal("Expected an error")
	}
	if h != history.Aborted {
		t.Errorf("Expected aborted, got %s", h)
	}
}

func TestAuxProblems(t *testing.T) {
	tests := []struct {
		name    string
		aux     string
		message string
	}{
		{"no citations", "\\bibdata{refs}\n\\bibstyle{style}\n", "I found no \\citation commands"},
		{"no style", "\\citation{a}\n\\bibdata{refs}\n", "I found no \\bibstyle command"},
		{"missing database", "\\citation{a}\n\\bibdata{other}\n\\bibstyle{style}\n", "I couldn't open database file other.bib"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := runJob(t, nil, job(tt.aux, "ENTRY {}{}{}\nREAD\n"))
			if !strings.Contains(r.log, tt.message) {
				t.Errorf("Expected %q in log:\n%s", tt.message, r.log)
			}
			if r.history != history.ErrorIssued {
				t.Errorf("Expected error issued, got %s", r.history)
			}
		})
	}
}
