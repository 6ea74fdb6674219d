package entry

import (
	"testing"

	"github.com/psilLang/bibvm/pkg/types"
)

func TestFields(t *testing.T) {
	s := New(Limits{EntStrSize: 10, GlobStrSize: 10, MaxGlobStrs: 2})
	author, title := s.AddField(), s.AddField()
	if author != 0 || title != 1 {
		t.Fatalf("Expected fields 0 and 1, got %d and %d", author, title)
	}
	if s.Field(3, title) != types.Missing {
		t.Error("Expected fields of unseen cites to be missing")
	}
	s.SetField(2, title, 7)
	if s.Field(2, title) != 7 {
		t.Errorf("Expected 7, got %d", s.Field(2, title))
	}
	if s.Field(2, author) != types.Missing || s.Field(0, title) != types.Missing {
		t.Error("Expected other cells to stay missing")
	}
}

func TestEntryVariables(t *testing.T) {
	s := New(Limits{EntStrSize: 4, GlobStrSize: 10, MaxGlobStrs: 2})
	n := s.AddEntInt()
	label := s.AddEntStr()
	s.Allocate(3)

	s.SetInt(2, n, 42)
	if s.Int(2, n) != 42 || s.Int(1, n) != 0 {
		t.Errorf("Expected 42 and 0, got %d and %d", s.Int(2, n), s.Int(1, n))
	}
	if s.SetStr(1, label, []byte("abc")) {
		t.Error("Expected no truncation")
	}
	if !s.SetStr(0, label, []byte("abcdef")) {
		t.Error("Expected truncation")
	}
	if got := string(s.Str(0, label)); got != "abcd" {
		t.Errorf("Expected abcd, got %q", got)
	}
	if got := string(s.Str(1, label)); got != "abc" {
		t.Errorf("Expected abc, got %q", got)
	}
}

func TestGlobalStrings(t *testing.T) {
	s := New(Limits{EntStrSize: 4, GlobStrSize: 5, MaxGlobStrs: 1})
	g, err := s.AddGlobStr()
	if err != nil {
		t.Fatalf("AddGlobStr: %v", err)
	}
	if s.GlobRef(g) != types.Missing {
		t.Errorf("Expected a new global to hold no reference, got %d", s.GlobRef(g))
	}
	if _, err := s.AddGlobStr(); err == nil {
		t.Error("Expected an error past the global string limit")
	}

	s.SetGlobRef(g, 9)
	if s.GlobRef(g) != 9 {
		t.Errorf("Expected reference 9, got %d", s.GlobRef(g))
	}
	if !s.SetGlobBytes(g, []byte("too long")) {
		t.Error("Expected truncation")
	}
	if s.GlobRef(g) != types.Missing {
		t.Error("Expected the reference to be dropped")
	}
	if got := string(s.GlobBytes(g)); got != "too l" {
		t.Errorf("Expected %q, got %q", "too l", got)
	}
}
