package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParse(t *testing.T) {
	c, err := Parse("bibvm.toml", `
min_crossrefs = 3
verbose = true

[limits]
max_cites = 50
lit_stack_size = 10
`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if c.MinCrossrefs != 3 || !c.Verbose {
		t.Errorf("Expected min_crossrefs 3 and verbose, got %d and %v", c.MinCrossrefs, c.Verbose)
	}
	if c.Limits.MaxCites != 50 || c.Limits.LitStackSize != 10 {
		t.Errorf("Expected the limits to be read, got %+v", c.Limits)
	}
	if c.Limits.PoolSize != Default().Limits.PoolSize {
		t.Errorf("Expected unset limits to keep their defaults, got pool size %d", c.Limits.PoolSize)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"unknown key", "min_crosrefs = 3\n", "unknown key min_crosrefs"},
		{"unknown limit", "[limits]\nstack = 3\n", "unknown key limits.stack"},
		{"bad syntax", "min_crossrefs = \n", "parse error in bibvm.toml"},
		{"wrong type", "min_crossrefs = \"two\"\n", "parse error in bibvm.toml"},
		{"too small", "min_crossrefs = 0\n", "min_crossrefs must be at least 1"},
		{"negative limit", "[limits]\nmax_cites = -1\n", "limits.max_cites must be positive"},
		{"max below base", "[limits]\nbuf_size = 500\nmax_buf_size = 100\n", "limits.max_buf_size 100 is below buf_size 500"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse("bibvm.toml", tt.text)
			if err == nil {
				t.Fatal("Expected an error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Expected %q in %q", tt.want, err.Error())
			}
		})
	}
}

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Errorf("Expected the defaults to be valid, got %v", err)
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bibvm.toml")
	if err := os.WriteFile(path, []byte("min_crossrefs = 5\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.MinCrossrefs != 5 {
		t.Errorf("Expected 5, got %d", c.MinCrossrefs)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Error("Expected an error for a missing file")
	}
}
