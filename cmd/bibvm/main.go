// bibvm - formats bibliographies from an auxiliary file, a style program and
// bibliography databases
package main

import (
	"bytes"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/tliron/commonlog"

	"github.com/psilLang/bibvm/pkg/config"
	"github.com/psilLang/bibvm/pkg/engine"
	"github.com/psilLang/bibvm/pkg/history"

	_ "github.com/tliron/commonlog/simple"
)

// options are the command-line settings layered over the configuration.
type options struct {
	config       string
	minCrossrefs int
	verbose      bool
}

func (o *options) register(fs *flag.FlagSet) {
	fs.StringVar(&o.config, "config", "", "Read settings from this TOML file")
	fs.IntVar(&o.minCrossrefs, "min-crossrefs", 2, "Include entries cross-referenced at least this often")
	fs.BoolVar(&o.verbose, "verbose", false, "Trace processing on stderr and record statistics in the log")
}

func main() {
	var opts options
	opts.register(flag.CommandLine)
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags] name[.aux]\n", filepath.Base(os.Args[0]))
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(exitCode(history.Aborted))
	}

	cfg, err := opts.load(flag.CommandLine)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitCode(history.Aborted))
	}
	if cfg.Verbose {
		commonlog.Configure(2, nil)
	} else {
		commonlog.Configure(0, nil)
	}

	os.Exit(exitCode(run(cfg, flag.Arg(0))))
}

// load reads the configuration file, if any, and applies the flags set in fs.
func (o *options) load(fs *flag.FlagSet) (*config.Config, error) {
	cfg := config.Default()
	if o.config != "" {
		var err error
		if cfg, err = config.Load(o.config); err != nil {
			return nil, err
		}
	}
	o.apply(fs, cfg)
	return cfg, cfg.Validate()
}

// apply overrides cfg with the flags given explicitly in fs.
func (o *options) apply(fs *flag.FlagSet, cfg *config.Config) {
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "min-crossrefs":
			cfg.MinCrossrefs = o.minCrossrefs
		case "verbose":
			cfg.Verbose = o.verbose
		}
	})
}

// run processes one job, writing name.bbl and name.blg next to name.aux.
func run(cfg *config.Config, arg string) history.History {
	base := strings.TrimSuffix(arg, ".aux")
	dir, name := filepath.Split(base)
	if dir == "" {
		dir = "."
	}

	var blg, bbl bytes.Buffer
	e := engine.New(cfg, engine.Options{
		FS:     os.DirFS(dir),
		Output: &bbl,
		Log:    &blg,
		Term:   os.Stdout,
	})
	h, err := e.Run(name + ".aux")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}

	if h < history.FatalError {
		if err := os.WriteFile(base+".bbl", bbl.Bytes(), 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			h = history.Aborted
		}
	}
	if err := os.WriteFile(base+".blg", blg.Bytes(), 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	printSummary(h, blg.Bytes())
	return h
}

// printSummary repeats the transcript's closing line on the terminal.
func printSummary(h history.History, transcript []byte) {
	lines := strings.Split(strings.TrimRight(string(transcript), "\n"), "\n")
	last := lines[len(lines)-1]
	if !strings.HasPrefix(last, "(") {
		return
	}
	switch h {
	case history.WarningIssued:
		fmt.Println(color.YellowString(last))
	case history.ErrorIssued:
		fmt.Println(color.RedString(last))
	default:
		fmt.Println(color.New(color.FgRed, color.Bold).Sprint(last))
	}
}

func exitCode(h history.History) int {
	switch h {
	case history.Spotless, history.WarningIssued:
		return 0
	case history.ErrorIssued:
		return 1
	case history.FatalError:
		return 2
	}
	return 3
}
