// Package engine runs one bibliography job: it reads the citation list, loads
// and executes the style program over the databases, and writes the formatted
// bibliography.
package engine

import (
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"strings"

	"github.com/tliron/commonlog"

	"github.com/psilLang/bibvm/pkg/auxfile"
	"github.com/psilLang/bibvm/pkg/buffer"
	"github.com/psilLang/bibvm/pkg/cite"
	"github.com/psilLang/bibvm/pkg/config"
	"github.com/psilLang/bibvm/pkg/entry"
	"github.com/psilLang/bibvm/pkg/history"
	"github.com/psilLang/bibvm/pkg/interpreter"
	"github.com/psilLang/bibvm/pkg/pool"
)

var log = commonlog.GetLogger("bibvm.engine")

// Options connect an engine to its files.
type Options struct {
	// FS holds the auxiliary, style and database files.
	FS fs.FS
	// Output receives the bibliography. Nothing is written after a fatal error.
	Output io.Writer
	// Log receives the full transcript, Term the messages meant for the user.
	Log  io.Writer
	Term io.Writer
}

// Engine runs jobs with one configuration. Every Run starts from fresh state.
type Engine struct {
	cfg  *config.Config
	opts Options
}

// New creates an engine. A nil cfg means config.Default().
func New(cfg *config.Config, opts Options) *Engine {
	if cfg == nil {
		cfg = config.Default()
	}
	return &Engine{cfg: cfg, opts: opts}
}

// run is the state of one job.
type run struct {
	cfg     *config.Config
	fsys    fs.FS
	report  *history.Reporter
	pool    *pool.Pool
	bufs    *buffer.Buffers
	cites   *cite.Registry
	entries *entry.Store
	interp  *interpreter.Interpreter

	style    string
	bibFiles []string

	entrySeen bool
	readSeen  bool

	// err is the cause of the last command that ended in history.Error.
	err error
}

// Run processes auxName (".aux" is added when missing) and returns the worst
// severity reached. The error is non-nil only when the job could not start or
// the bibliography could not be written.
func (e *Engine) Run(auxName string) (history.History, error) {
	if !strings.HasSuffix(auxName, ".aux") {
		auxName += ".aux"
	}
	report := history.NewReporter(e.opts.Log, e.opts.Term)
	var bbl bytes.Buffer

	r, err := e.newRun(report, &bbl)
	if err == nil {
		err = r.execute(auxName)
	}
	if err == nil && e.cfg.Verbose {
		r.statistics()
	}
	if err != nil {
		if fe, ok := history.IsFatal(err); ok {
			report.Print("%s\n", fe)
			report.MarkFatal()
		} else {
			report.Print("%s\n", err)
			report.Abort()
			e.summary(report)
			return report.History(), err
		}
	}
	e.summary(report)
	if report.History() >= history.FatalError {
		return report.History(), nil
	}
	if e.opts.Output != nil {
		if _, err := e.opts.Output.Write(bbl.Bytes()); err != nil {
			return report.History(), fmt.Errorf("writing bibliography: %w", err)
		}
	}
	return report.History(), nil
}

func (e *Engine) summary(report *history.Reporter) {
	if s := report.Summary(); s != "" {
		report.Log("%s\n", s)
	}
}

// statistics records how much of each capacity the run used.
func (r *run) statistics() {
	l := r.cfg.Limits
	r.report.Log("You've used %d entries of %d,\n", r.cites.Len(), l.MaxCites)
	r.report.Log("            %d strings of %d,\n", int(r.pool.StrPtr()), l.MaxStrings)
	r.report.Log("            %d string characters of %d,\n", r.pool.Size(), l.PoolSize)
	r.report.Log("and %d lines of bibliography\n", r.interp.Lines())
}

func (e *Engine) newRun(report *history.Reporter, out io.Writer) (*run, error) {
	l := e.cfg.Limits
	r := &run{
		cfg:     e.cfg,
		fsys:    e.opts.FS,
		report:  report,
		pool:    pool.New(pool.Limits{PoolSize: l.PoolSize, MaxStrings: l.MaxStrings}),
		bufs:    buffer.New(l.BufSize, l.MaxBufSize),
		entries: entry.New(entry.Limits{EntStrSize: l.EntStrSize, GlobStrSize: l.GlobStrSize, MaxGlobStrs: l.MaxGlobStrs}),
	}
	r.cites = cite.New(r.pool, l.MaxCites)
	interp, err := interpreter.New(interpreter.Config{
		Pool:      r.pool,
		Bufs:      r.bufs,
		Cites:     r.cites,
		Entries:   r.entries,
		Report:    report,
		Output:    out,
		StackSize: l.LitStackSize,
		MaxStack:  l.MaxLitStack,
	})
	if err != nil {
		return nil, err
	}
	r.interp = interp
	return r, nil
}

func (r *run) execute(auxName string) error {
	if r.fsys == nil {
		return fmt.Errorf("no input files")
	}
	aux := &auxfile.Reader{FS: r.fsys, Pool: r.pool, Bufs: r.bufs, Cites: r.cites, Report: r.report}
	res, err := aux.Read(auxName)
	if err != nil {
		return err
	}
	r.bibFiles = res.BibFiles
	r.style = res.Style
	log.Debugf("%d citations, %d databases, style %q", r.cites.Len(), len(r.bibFiles), r.style)
	if r.style == "" {
		return nil
	}

	src, err := fs.ReadFile(r.fsys, r.style)
	if err != nil {
		return fmt.Errorf("reading %s: %w", r.style, err)
	}
	if err := r.runStyle(string(src)); err != nil {
		return err
	}
	return r.interp.Finish()
}
