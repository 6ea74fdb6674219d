package engine

import (
	"slices"
	"strings"

	"github.com/psilLang/bibvm/pkg/bibdb"
	"github.com/psilLang/bibvm/pkg/cite"
	"github.com/psilLang/bibvm/pkg/history"
	"github.com/psilLang/bibvm/pkg/parser"
	"github.com/psilLang/bibvm/pkg/pool"
	"github.com/psilLang/bibvm/pkg/types"
)

const (
	cmdEntry = iota
	cmdExecute
	cmdFunction
	cmdIntegers
	cmdIterate
	cmdMacro
	cmdRead
	cmdReverse
	cmdSort
	cmdStrings
)

var styleCommands = []struct {
	name string
	args int
	run  func(*run, *parser.Command) error
}{
	cmdEntry:    {"entry", 3, (*run).entry},
	cmdExecute:  {"execute", 1, (*run).executeCmd},
	cmdFunction: {"function", 2, (*run).function},
	cmdIntegers: {"integers", 1, (*run).integers},
	cmdIterate:  {"iterate", 1, (*run).iterate},
	cmdMacro:    {"macro", 2, (*run).macro},
	cmdRead:     {"read", 0, (*run).read},
	cmdReverse:  {"reverse", 1, (*run).reverse},
	cmdSort:     {"sort", 0, (*run).sort},
	cmdStrings:  {"strings", 1, (*run).stringVars},
}

// styleErr reports a problem with a style command, which is then abandoned.
type styleErr struct{ msg string }

func (e *styleErr) Error() string { return e.msg }

func bad(msg string) error { return &styleErr{msg} }

func (r *run) pos(line int) history.Position {
	return history.Position{File: r.style, Line: line}
}

// runStyle parses the style and executes its commands in order.
func (r *run) runStyle(src string) error {
	for code, c := range styleCommands {
		loc, _, err := r.pool.LookupString(c.name, pool.BstCommand, true)
		if err != nil {
			return err
		}
		r.pool.SetInfo(loc, int32(code))
	}

	cmds, errs := parser.Parse(r.style, src)
	for _, cmd := range cmds {
		for len(errs) > 0 && errs[0].Pos.Offset < cmd.Pos.Offset {
			r.syntaxErr(errs[0])
			errs = errs[1:]
		}
		if r.command(cmd) == history.Error {
			return r.err
		}
	}
	for _, e := range errs {
		r.syntaxErr(e)
	}
	if !r.readSeen {
		r.report.Print("Illegal, the style file %s has no read command\n", r.style)
		r.report.MarkError()
	}
	return nil
}

func (r *run) syntaxErr(e *parser.SyntaxError) {
	r.report.Print("%s-%s\n", e.Msg, r.pos(e.Pos.Line))
	r.report.Skipping("command")
}

// command runs one style command. A command abandoned after a diagnostic
// yields Recover; Error leaves the cause in r.err.
func (r *run) command(cmd *parser.Command) history.Result {
	pos := r.pos(cmd.Pos.Line)
	loc, found, _ := r.pool.Lookup([]byte(strings.ToLower(cmd.Name)), pool.BstCommand, false)
	if !found {
		r.report.Print("%s is an illegal style-file command%s\n", cmd.Name, pos)
		r.report.Skipping("command")
		return history.Recover
	}
	c := styleCommands[r.pool.Info(loc)]
	log.Debugf("%s at line %d", c.name, cmd.Pos.Line)

	var err error
	switch {
	case len(cmd.Args) < c.args:
		err = bad("\"{\" is missing in command: " + c.name)
	case len(cmd.Args) > c.args:
		err = bad("Stuff after the arguments of command: " + c.name)
	default:
		r.interp.BeginCommand(pos)
		err = c.run(r, cmd)
	}
	if err == nil {
		return history.Ok
	}
	if se, ok := err.(*styleErr); ok {
		r.report.Print("%s%s\n", se.msg, pos)
		r.report.Skipping("command")
		return history.Recover
	}
	r.err = err
	return history.Error
}

// names returns the identifiers of a group, lower-cased.
func names(g *parser.Group, cmd string) ([]string, error) {
	ids, ok := g.Idents()
	if !ok {
		return nil, bad("Only function names may appear in command: " + cmd)
	}
	for k := range ids {
		ids[k] = strings.ToLower(ids[k])
	}
	return ids, nil
}

// single returns the one identifier of a group.
func single(g *parser.Group, cmd string) (string, error) {
	ids, err := names(g, cmd)
	if err != nil {
		return "", err
	}
	if len(ids) != 1 {
		return "", bad("Exactly one function name is needed in command: " + cmd)
	}
	return ids[0], nil
}

// declare enters name with class and info, reporting an earlier definition.
func (r *run) declare(name string, class types.FnClass, info int32) (types.HashPointer, error) {
	loc, already, err := r.interp.Declare(name, class, info)
	if err != nil {
		return 0, err
	}
	if already {
		return 0, bad(name + " is already a type \"" + r.pool.Class(loc).String() + "\" function name")
	}
	return loc, nil
}

func (r *run) entry(cmd *parser.Command) error {
	if r.entrySeen {
		return bad("Illegal, another entry command")
	}
	if r.readSeen {
		return bad("Illegal, entry command after read command")
	}
	r.entrySeen = true
	var groups [3][]string
	for k := range groups {
		ids, err := names(cmd.Args[k], "entry")
		if err != nil {
			return err
		}
		groups[k] = ids
	}
	for _, f := range groups[0] {
		if _, err := r.declare(f, types.FnField, int32(r.entries.NumFields())); err != nil {
			return err
		}
		r.entries.AddField()
	}
	for _, v := range groups[1] {
		if _, err := r.declare(v, types.FnIntEntryVar, int32(r.entries.NumEntInts())); err != nil {
			return err
		}
		r.entries.AddEntInt()
	}
	for _, v := range groups[2] {
		if _, err := r.declare(v, types.FnStrEntryVar, int32(r.entries.NumEntStrs())); err != nil {
			return err
		}
		r.entries.AddEntStr()
	}
	return nil
}

func (r *run) function(cmd *parser.Command) error {
	name, err := single(cmd.Args[0], "function")
	if err != nil {
		return err
	}
	loc, err := r.declare(name, types.FnWizard, 0)
	if err != nil {
		return err
	}
	return r.interp.Define(loc, cmd.Args[1])
}

func (r *run) integers(cmd *parser.Command) error {
	ids, err := names(cmd.Args[0], "integers")
	if err != nil {
		return err
	}
	for _, v := range ids {
		if _, err := r.declare(v, types.FnIntGlobalVar, 0); err != nil {
			return err
		}
	}
	return nil
}

func (r *run) stringVars(cmd *parser.Command) error {
	ids, err := names(cmd.Args[0], "strings")
	if err != nil {
		return err
	}
	for _, v := range ids {
		n, err := r.entries.AddGlobStr()
		if err != nil {
			return err
		}
		if _, err := r.declare(v, types.FnStrGlobalVar, int32(n)); err != nil {
			return err
		}
	}
	return nil
}

func (r *run) macro(cmd *parser.Command) error {
	if r.readSeen {
		return bad("Illegal, macro command after read command")
	}
	name, err := single(cmd.Args[0], "macro")
	if err != nil {
		return err
	}
	items := cmd.Args[1].Items
	if len(items) != 1 || items[0].String == nil {
		return bad("A macro definition must be a single string")
	}
	loc, found, err := r.pool.LookupString(name, pool.Macro, true)
	if err != nil {
		return err
	}
	if found {
		return bad(name + " is already defined as a macro")
	}
	def, _, err := r.pool.LookupString(items[0].Text(), pool.Text, true)
	if err != nil {
		return err
	}
	r.pool.SetClass(def, types.FnStrLit)
	r.pool.SetInfo(loc, int32(r.pool.Text(def)))
	return nil
}

func (r *run) read(*parser.Command) error {
	if r.readSeen {
		return bad("Illegal, another read command")
	}
	if !r.entrySeen {
		return bad("Illegal, read command before entry command")
	}
	r.readSeen = true
	db := &bibdb.Reader{
		FS:            r.fsys,
		Pool:          r.pool,
		Bufs:          r.bufs,
		Cites:         r.cites,
		Entries:       r.entries,
		Report:        r.report,
		CrossrefField: r.interp.CrossrefField(),
		MinCrossrefs:  r.cfg.MinCrossrefs,
	}
	if err := db.Read(r.bibFiles); err != nil {
		return err
	}
	r.entries.Allocate(r.cites.Len())
	r.interp.Preamble = db.Preamble
	log.Debugf("%d entries in the bibliography", len(r.cites.Final()))
	return nil
}

// callee looks up the single function named by a command argument.
func (r *run) callee(cmd *parser.Command, what string) (types.HashPointer, error) {
	if !r.readSeen {
		return 0, bad("Illegal, " + what + " command before read command")
	}
	name, err := single(cmd.Args[0], what)
	if err != nil {
		return 0, err
	}
	loc, ok := r.interp.Lookup(name)
	if !ok {
		return 0, bad(name + " is an unknown function")
	}
	if c := r.pool.Class(loc); c != types.FnBuiltin && c != types.FnWizard {
		return 0, bad(name + " has bad function type " + c.String())
	}
	return loc, nil
}

func (r *run) executeCmd(cmd *parser.Command) error {
	loc, err := r.callee(cmd, "execute")
	if err != nil {
		return err
	}
	if err := r.interp.ExecuteFn(loc); err != nil {
		return err
	}
	r.interp.EndCommand()
	return nil
}

func (r *run) iterate(cmd *parser.Command) error {
	loc, err := r.callee(cmd, "iterate")
	if err != nil {
		return err
	}
	return r.forEach(loc, r.cites.Final())
}

func (r *run) reverse(cmd *parser.Command) error {
	loc, err := r.callee(cmd, "reverse")
	if err != nil {
		return err
	}
	list := slices.Clone(r.cites.Final())
	slices.Reverse(list)
	return r.forEach(loc, list)
}

func (r *run) forEach(loc types.HashPointer, list []cite.CiteNumber) error {
	for _, c := range list {
		if err := r.interp.ExecuteForEntry(loc, c); err != nil {
			return err
		}
	}
	r.interp.EndCommand()
	return nil
}

func (r *run) sort(*parser.Command) error {
	if !r.readSeen {
		return bad("Illegal, sort command before read command")
	}
	r.cites.Sort(r.interp.SortKey)
	return nil
}
