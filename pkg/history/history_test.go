package history

import (
	"bytes"
	"errors"
	"fmt"
	"testing"
)

func TestHistoryNeverDowngrades(t *testing.T) {
	r := NewReporter(nil, nil)
	r.MarkError()
	r.MarkWarning()
	if r.History() != ErrorIssued {
		t.Errorf("Expected error issued, got %s", r.History())
	}
	if r.Warnings() != 1 || r.Errors() != 1 {
		t.Errorf("Expected 1 warning and 1 error, got %d and %d", r.Warnings(), r.Errors())
	}
	r.MarkFatal()
	r.MarkError()
	if r.History() != FatalError {
		t.Errorf("Expected fatal error, got %s", r.History())
	}
}

func TestSummary(t *testing.T) {
	tests := []struct {
		name string
		mark func(*Reporter)
		want string
	}{
		{"spotless", func(*Reporter) {}, ""},
		{"one warning", func(r *Reporter) { r.MarkWarning() }, "(There was 1 warning)"},
		{"warnings", func(r *Reporter) { r.MarkWarning(); r.MarkWarning() }, "(There were 2 warnings)"},
		{"errors", func(r *Reporter) { r.MarkWarning(); r.MarkError(); r.MarkError() }, "(There were 2 error messages)"},
		{"fatal", func(r *Reporter) { r.MarkFatal() }, "(That was a fatal error)"},
		{"aborted", func(r *Reporter) { r.Abort() }, "(The run was aborted)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewReporter(nil, nil)
			tt.mark(r)
			if got := r.Summary(); got != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestPrintAndLog(t *testing.T) {
	var log, term bytes.Buffer
	r := NewReporter(&log, &term)
	r.Print("both %d\n", 1)
	r.Log("log only\n")
	if log.String() != "both 1\nlog only\n" {
		t.Errorf("Unexpected log %q", log.String())
	}
	if term.String() != "both 1\n" {
		t.Errorf("Unexpected terminal output %q", term.String())
	}
}

func TestBadInputLine(t *testing.T) {
	var log bytes.Buffer
	r := NewReporter(&log, nil)
	r.BadInputLine([]byte("title\t= {x"), 6)
	want := " : title \n :       = {x\n"
	if log.String() != want {
		t.Errorf("Expected %q, got %q", want, log.String())
	}

	log.Reset()
	r.BadInputLine([]byte("  x"), 2)
	if !bytes.Contains(log.Bytes(), []byte("(Error may have been on previous line)")) {
		t.Errorf("Expected the previous-line hint, got %q", log.String())
	}
}

func TestSkippingMarksError(t *testing.T) {
	var log bytes.Buffer
	r := NewReporter(&log, nil)
	r.Skipping("entry")
	if log.String() != "I'm skipping whatever remains of this entry\n" {
		t.Errorf("Unexpected message %q", log.String())
	}
	if r.History() != ErrorIssued {
		t.Errorf("Expected error issued, got %s", r.History())
	}
}

func TestFatalErrors(t *testing.T) {
	err := fmt.Errorf("reading style: %w", Overflow(StackOverflow, "literal-stack", 100))
	fe, ok := IsFatal(err)
	if !ok {
		t.Fatal("Expected a wrapped fatal error to be found")
	}
	if fe.Kind != StackOverflow {
		t.Errorf("Expected stack overflow, got %s", fe.Kind)
	}
	if fe.Error() != "Sorry---you've exceeded the literal-stack size 100" {
		t.Errorf("Unexpected message %q", fe.Error())
	}
	if got := Confused("Unknown function class").Error(); got != "Unknown function class---this can't happen" {
		t.Errorf("Unexpected message %q", got)
	}
	if _, ok := IsFatal(errors.New("plain")); ok {
		t.Error("Expected a plain error not to be fatal")
	}
}
