package bibdb

import (
	"github.com/psilLang/bibvm/pkg/cite"
	"github.com/psilLang/bibvm/pkg/types"
)

// parent returns the entry named by the crossref field of c.
func (r *Reader) parent(c cite.CiteNumber) (cite.CiteNumber, types.StrNumber, bool) {
	ref := r.Entries.Field(int(c), r.CrossrefField)
	if ref == types.Missing {
		return 0, ref, false
	}
	p, known := r.Cites.Lookup(r.Pool.Str(ref))
	return p, ref, known
}

// inherit copies every field a child lacks from its nearest ancestor that
// has it, following crossref chains until they end or revisit an entry. The
// crossref field is normalized to the parent's spelling of its key.
func (r *Reader) inherit() {
	seen := make(map[cite.CiteNumber]bool)
	for c := cite.CiteNumber(0); int(c) < r.Cites.Len(); c++ {
		p, _, ok := r.parent(c)
		if !ok {
			continue
		}
		r.Entries.SetField(int(c), r.CrossrefField, r.Cites.Key(p))
		clear(seen)
		seen[c] = true
		for ok && !seen[p] {
			seen[p] = true
			for f := 0; f < r.Entries.NumFields(); f++ {
				if f == r.CrossrefField {
					continue
				}
				if r.Entries.Field(int(c), f) == types.Missing {
					r.Entries.SetField(int(c), f, r.Entries.Field(int(p), f))
				}
			}
			p, _, ok = r.parent(p)
		}
	}
}

// subtract drops cross references to entries that do not exist and to
// uncited entries referenced too few times to be listed on their own.
func (r *Reader) subtract() {
	for c := cite.CiteNumber(0); int(c) < r.Cites.Len(); c++ {
		p, ref, ok := r.parent(c)
		if ref == types.Missing {
			continue
		}
		if !ok || r.Cites.Type(p) == types.Empty {
			r.Report.Print("A bad cross reference---entry \"%s\"\nrefers to entry \"%s\", which doesn't exist\n",
				r.Pool.Str(r.Cites.Key(c)), r.Pool.Str(ref))
			r.Report.MarkError()
			r.Entries.SetField(int(c), r.CrossrefField, types.Missing)
			continue
		}
		if p >= r.Cites.OldNumCites && int(r.Cites.Info(p)) < r.MinCrossrefs {
			r.Entries.SetField(int(c), r.CrossrefField, types.Missing)
		}
	}
}

// finalList keeps every cited entry, every entry when all were cited, and
// parents referenced at least MinCrossrefs times.
func (r *Reader) finalList() {
	var list []cite.CiteNumber
	for c := cite.CiteNumber(0); int(c) < r.Cites.Len(); c++ {
		if r.Cites.Type(c) == types.Empty {
			r.Report.Print("Warning--I didn't find a database entry for \"%s\"\n", r.Pool.Str(r.Cites.Key(c)))
			r.Report.MarkWarning()
		}
		if r.Cites.AllEntries || c < r.Cites.OldNumCites || int(r.Cites.Info(c)) >= r.MinCrossrefs {
			list = append(list, c)
		}
	}
	r.Cites.SetFinal(list)
}
