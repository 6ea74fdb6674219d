// Package cite keeps the ordered registry of cited keys and their metadata.
package cite

import (
	"bytes"
	"slices"

	"github.com/psilLang/bibvm/pkg/history"
	"github.com/psilLang/bibvm/pkg/lex"
	"github.com/psilLang/bibvm/pkg/pool"
	"github.com/psilLang/bibvm/pkg/types"
)

// CiteNumber is the index of a key in the registry.
type CiteNumber int

// Outcome tells how Register treated a key.
type Outcome int

const (
	Added Outcome = iota
	// Duplicate means the exact key was already registered.
	Duplicate
	// CaseDuplicate means a key differing only in case was already registered.
	CaseDuplicate
)

// Locs is the result of looking a key up under both its exact and its
// lower-cased form.
type Locs struct {
	CiteLoc   types.HashPointer
	LcCiteLoc types.HashPointer
	CiteFound bool
	LcFound   bool
}

// Registry is the ordered list of cited keys.
type Registry struct {
	pool *pool.Pool

	keys   []types.StrNumber
	info   []int32
	typ    []types.HashPointer
	exists []bool

	// AllEntries is set once a wildcard citation has been seen.
	AllEntries bool
	// AllMarker is the index at which the wildcard citation appeared.
	AllMarker CiteNumber
	// OldNumCites is the number of explicit citations, fixed when database reading starts.
	OldNumCites CiteNumber

	final []CiteNumber
	max   int
}

// New creates an empty registry holding at most max keys.
func New(p *pool.Pool, max int) *Registry {
	return &Registry{pool: p, max: max}
}

// Len returns the number of registered keys.
func (r *Registry) Len() int { return len(r.keys) }

// Key returns the key string of cite n.
func (r *Registry) Key(n CiteNumber) types.StrNumber { return r.keys[n] }

// Type returns the entry type location of cite n, or types.Empty / types.Undefined.
func (r *Registry) Type(n CiteNumber) types.HashPointer { return r.typ[n] }

// SetType records the entry type of cite n.
func (r *Registry) SetType(n CiteNumber, t types.HashPointer) { r.typ[n] = t }

// Info returns the crossref count of cite n.
func (r *Registry) Info(n CiteNumber) int32 { return r.info[n] }

// SetInfo sets the crossref count of cite n.
func (r *Registry) SetInfo(n CiteNumber, v int32) { r.info[n] = v }

// Exists reports whether database data was found for cite n.
func (r *Registry) Exists(n CiteNumber) bool { return r.exists[n] }

// SetExists marks cite n as found in the database.
func (r *Registry) SetExists(n CiteNumber, v bool) { r.exists[n] = v }

// MarkAll records a wildcard citation.
func (r *Registry) MarkAll() {
	if !r.AllEntries {
		r.AllEntries = true
		r.AllMarker = CiteNumber(len(r.keys))
	}
}

// Find looks key up under its exact and lower-cased forms.
func (r *Registry) Find(key []byte) Locs {
	var l Locs
	l.CiteLoc, l.CiteFound, _ = r.pool.Lookup(key, pool.Cite, false)
	l.LcCiteLoc, l.LcFound, _ = r.pool.Lookup(lex.LowerBytes(key), pool.LcCite, false)
	return l
}

// Lookup returns the cite number registered for key, matching case-insensitively.
func (r *Registry) Lookup(key []byte) (CiteNumber, bool) {
	l := r.Find(key)
	if !l.LcFound {
		return 0, false
	}
	return CiteNumber(r.pool.Info(types.HashPointer(r.pool.Info(l.LcCiteLoc)))), true
}

// Register appends key unless it is already present. An exact duplicate keeps
// only its first slot. A key that matches an earlier one only after case
// folding gets its own slot and is reported as CaseDuplicate together with the
// earlier cite.
func (r *Registry) Register(key []byte) (CiteNumber, Outcome, error) {
	loc, found, err := r.pool.Lookup(key, pool.Cite, false)
	if err != nil {
		return 0, Added, err
	}
	if found {
		return CiteNumber(r.pool.Info(loc)), Duplicate, nil
	}
	lcLoc, lcFound, err := r.pool.Lookup(lex.LowerBytes(key), pool.LcCite, true)
	if err != nil {
		return 0, Added, err
	}
	if lcFound {
		earlier := CiteNumber(r.pool.Info(types.HashPointer(r.pool.Info(lcLoc))))
		loc, _, err = r.pool.Lookup(key, pool.Cite, true)
		if err != nil {
			return 0, Added, err
		}
		if _, err := r.add(loc); err != nil {
			return 0, Added, err
		}
		return earlier, CaseDuplicate, nil
	}
	loc, _, err = r.pool.Lookup(key, pool.Cite, true)
	if err != nil {
		return 0, Added, err
	}
	r.pool.SetInfo(lcLoc, int32(loc))
	n, err := r.add(loc)
	return n, Added, err
}

// AddDatabaseCite appends a key discovered while reading the database, either
// through a wildcard citation or as a crossref target.
func (r *Registry) AddDatabaseCite(key []byte) (CiteNumber, error) {
	loc, _, err := r.pool.Lookup(key, pool.Cite, true)
	if err != nil {
		return 0, err
	}
	lcLoc, _, err := r.pool.Lookup(lex.LowerBytes(key), pool.LcCite, true)
	if err != nil {
		return 0, err
	}
	r.pool.SetInfo(lcLoc, int32(loc))
	return r.add(loc)
}

// Rekey replaces the key of cite n by a spelling differing only in case, as
// found on the database entry itself.
func (r *Registry) Rekey(n CiteNumber, key []byte) error {
	loc, _, err := r.pool.Lookup(key, pool.Cite, true)
	if err != nil {
		return err
	}
	lcLoc, _, err := r.pool.Lookup(lex.LowerBytes(key), pool.LcCite, true)
	if err != nil {
		return err
	}
	r.pool.SetInfo(lcLoc, int32(loc))
	r.pool.SetInfo(loc, int32(n))
	r.keys[n] = r.pool.Text(loc)
	return nil
}

func (r *Registry) add(loc types.HashPointer) (CiteNumber, error) {
	if len(r.keys) >= r.max {
		return 0, history.Overflow(history.PoolOverflow, "number of cites", r.max)
	}
	n := CiteNumber(len(r.keys))
	r.pool.SetInfo(loc, int32(n))
	r.keys = append(r.keys, r.pool.Text(loc))
	r.info = append(r.info, 0)
	r.typ = append(r.typ, types.Empty)
	r.exists = append(r.exists, false)
	return n, nil
}

// Final returns the citations that make it into the bibliography, in output order.
func (r *Registry) Final() []CiteNumber { return r.final }

// SetFinal replaces the output list.
func (r *Registry) SetFinal(list []CiteNumber) { r.final = list }

// Sort orders the output list by key, breaking ties by registry index.
func (r *Registry) Sort(key func(CiteNumber) []byte) {
	slices.SortStableFunc(r.final, func(a, b CiteNumber) int {
		if c := bytes.Compare(key(a), key(b)); c != 0 {
			return c
		}
		return int(a) - int(b)
	})
}
