// Package config handles bibvm.toml run configuration.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Config is the configuration of one run. The engine only reads it.
type Config struct {
	// MinCrossrefs is how often an uncited entry must be cross-referenced
	// to be listed on its own.
	MinCrossrefs int  `toml:"min_crossrefs"`
	Verbose      bool `toml:"verbose"`

	Limits Limits `toml:"limits"`
}

// Limits are the resource ceilings. Exceeding one is a fatal error.
type Limits struct {
	PoolSize     int `toml:"pool_size"`
	MaxStrings   int `toml:"max_strings"`
	BufSize      int `toml:"buf_size"`
	MaxBufSize   int `toml:"max_buf_size"`
	LitStackSize int `toml:"lit_stack_size"`
	MaxLitStack  int `toml:"max_lit_stack"`
	EntStrSize   int `toml:"ent_str_size"`
	GlobStrSize  int `toml:"glob_str_size"`
	MaxGlobStrs  int `toml:"max_glob_strs"`
	MaxCites     int `toml:"max_cites"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		MinCrossrefs: 2,
		Limits: Limits{
			PoolSize:     65000 * 100,
			MaxStrings:   35307 * 10,
			BufSize:      20000,
			MaxBufSize:   20000 * 50,
			LitStackSize: 100,
			MaxLitStack:  100 * 1000,
			EntStrSize:   250,
			GlobStrSize:  20000,
			MaxGlobStrs:  10 * 1000,
			MaxCites:     750 * 1000,
		},
	}
}

// Load parses the file at path on top of the defaults. Keys missing from the
// file keep their default values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}
	return Parse(path, string(data))
}

// Parse reads configuration text named name.
func Parse(name, text string) (*Config, error) {
	c := Default()
	md, err := toml.Decode(text, c)
	if err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", name, err)
	}
	if undec := md.Undecoded(); len(undec) > 0 {
		return nil, fmt.Errorf("%s: unknown key %s", name, undec[0])
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return c, nil
}

// Validate checks that every limit is usable.
func (c *Config) Validate() error {
	if c.MinCrossrefs < 1 {
		return fmt.Errorf("min_crossrefs must be at least 1, got %d", c.MinCrossrefs)
	}
	l := c.Limits
	for _, v := range []struct {
		name string
		n    int
	}{
		{"pool_size", l.PoolSize},
		{"max_strings", l.MaxStrings},
		{"buf_size", l.BufSize},
		{"lit_stack_size", l.LitStackSize},
		{"ent_str_size", l.EntStrSize},
		{"glob_str_size", l.GlobStrSize},
		{"max_glob_strs", l.MaxGlobStrs},
		{"max_cites", l.MaxCites},
	} {
		if v.n <= 0 {
			return fmt.Errorf("limits.%s must be positive, got %d", v.name, v.n)
		}
	}
	if l.MaxBufSize < l.BufSize {
		return fmt.Errorf("limits.max_buf_size %d is below buf_size %d", l.MaxBufSize, l.BufSize)
	}
	if l.MaxLitStack < l.LitStackSize {
		return fmt.Errorf("limits.max_lit_stack %d is below lit_stack_size %d", l.MaxLitStack, l.LitStackSize)
	}
	return nil
}
