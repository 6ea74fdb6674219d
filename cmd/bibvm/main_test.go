package main

import (
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/psilLang/bibvm/pkg/history"
)

// Helper to parse args into fresh options
func parseOptions(t *testing.T, args ...string) (*options, *flag.FlagSet) {
	t.Helper()
	var o options
	fs := flag.NewFlagSet("bibvm", flag.ContinueOnError)
	o.register(fs)
	if err := fs.Parse(args); err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return &o, fs
}

func TestFlagsOverrideConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bibvm.toml")
	if err := os.WriteFile(path, []byte("min_crossrefs = 5\nverbose = true\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name         string
		args         []string
		minCrossrefs int
		verbose      bool
	}{
		{"config only", []string{"-config", path}, 5, true},
		{"explicit default", []string{"-config", path, "-min-crossrefs", "2"}, 2, true},
		{"verbose off", []string{"-config", path, "-verbose=false"}, 5, false},
		{"no config", []string{"-min-crossrefs", "3"}, 3, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o, fs := parseOptions(t, tt.args...)
			cfg, err := o.load(fs)
			if err != nil {
				t.Fatalf("load: %v", err)
			}
			if cfg.MinCrossrefs != tt.minCrossrefs {
				t.Errorf("Expected min_crossrefs %d, got %d", tt.minCrossrefs, cfg.MinCrossrefs)
			}
			if cfg.Verbose != tt.verbose {
				t.Errorf("Expected verbose %v, got %v", tt.verbose, cfg.Verbose)
			}
		})
	}
}

func TestZeroMinCrossrefsIsRejected(t *testing.T) {
	o, fs := parseOptions(t, "-min-crossrefs", "0")
	if _, err := o.load(fs); err == nil {
		t.Error("Expected min-crossrefs 0 to be rejected")
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		h    history.History
		want int
	}{
		{history.Spotless, 0},
		{history.WarningIssued, 0},
		{history.ErrorIssued, 1},
		{history.FatalError, 2},
		{history.Aborted, 3},
	}
	for _, tt := range tests {
		if got := exitCode(tt.h); got != tt.want {
			t.Errorf("%s: expected exit code %d, got %d", tt.h, tt.want, got)
		}
	}
}
