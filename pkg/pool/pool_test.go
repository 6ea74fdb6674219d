package pool

import (
	"testing"

	"github.com/psilLang/bibvm/pkg/history"
	"github.com/psilLang/bibvm/pkg/types"
)

func newPool() *Pool {
	return New(Limits{PoolSize: 1000, MaxStrings: 100})
}

func TestLookupInsertsOnce(t *testing.T) {
	p := newPool()
	loc, found, err := p.LookupString("article", BstFn, true)
	if err != nil || found {
		t.Fatalf("Expected a fresh entry, got found=%v err=%v", found, err)
	}
	again, found, err := p.LookupString("article", BstFn, true)
	if err != nil || !found {
		t.Fatalf("Expected the entry to be found, got found=%v err=%v", found, err)
	}
	if again != loc {
		t.Errorf("Expected location %d, got %d", loc, again)
	}
	if p.Class(loc) != types.FnUndefined {
		t.Errorf("Expected a new entry to be undefined, got %s", p.Class(loc))
	}
	if got := p.String(p.Text(loc)); got != "article" {
		t.Errorf("Expected article, got %s", got)
	}
}

func TestIlksAreSeparate(t *testing.T) {
	p := newPool()
	fn, _, _ := p.LookupString("title", BstFn, true)
	p.SetInfo(fn, 7)
	text, found, _ := p.LookupString("title", Text, true)
	if found {
		t.Fatal("Expected a different ilk to get its own entry")
	}
	if text == fn {
		t.Errorf("Expected distinct locations, both are %d", fn)
	}
	if p.Info(text) != 0 {
		t.Errorf("Expected fresh info, got %d", p.Info(text))
	}
	if p.Text(text) != p.Text(fn) {
		t.Errorf("Expected the characters to be shared, got strings %d and %d", p.Text(text), p.Text(fn))
	}
}

func TestLookupWithoutInsert(t *testing.T) {
	p := newPool()
	n := p.NumEntries()
	if _, found, err := p.LookupString("nothing", Macro, false); found || err != nil {
		t.Fatalf("Expected a miss, got found=%v err=%v", found, err)
	}
	if p.NumEntries() != n {
		t.Errorf("Expected no new entries, got %d", p.NumEntries()-n)
	}
}

func TestTruncateKeepsHashedStrings(t *testing.T) {
	p := newPool()
	mark := p.StrPtr()
	tmp, _ := p.MakeString([]byte("temporary"))
	loc, _, _ := p.LookupString("kept", Text, true)
	p.MakeString([]byte("scratch"))

	p.Truncate(mark)
	if got := p.String(p.Text(loc)); got != "kept" {
		t.Errorf("Expected kept, got %q", got)
	}
	if got := p.String(tmp); got != "temporary" {
		t.Errorf("Expected strings below a hashed one to survive, got %q", got)
	}
	if p.StrPtr() != p.Text(loc)+1 {
		t.Errorf("Expected the scratch string to be released, next string is %d", p.StrPtr())
	}
}

func TestOverflowIsFatal(t *testing.T) {
	tests := []struct {
		name   string
		limits Limits
	}{
		{"characters", Limits{PoolSize: 10, MaxStrings: 100}},
		{"strings", Limits{PoolSize: 1000, MaxStrings: 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := New(tt.limits)
			var err error
			for k := 0; k < 5 && err == nil; k++ {
				_, err = p.MakeString([]byte("abcd"))
			}
			fe, ok := history.IsFatal(err)
			if !ok {
				t.Fatalf("Expected a fatal error, got %v", err)
			}
			if fe.Kind != history.PoolOverflow {
				t.Errorf("Expected pool overflow, got %s", fe.Kind)
			}
		})
	}
}

func TestEqStr(t *testing.T) {
	p := newPool()
	a, _ := p.MakeString([]byte("same"))
	b, _ := p.MakeString([]byte("same"))
	c, _ := p.MakeString([]byte("other"))
	if !p.EqStr(a, b) {
		t.Error("Expected equal contents to compare equal")
	}
	if p.EqStr(a, c) {
		t.Error("Expected different contents to differ")
	}
	if !p.EqBuf(c, []byte("other")) {
		t.Error("Expected EqBuf to match")
	}
}
