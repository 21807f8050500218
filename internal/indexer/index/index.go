// Package index holds the per-shard inverted index: the builder that turns a
// shard's documents into postings, and the immutable Index that queries read.
package index

import (
	"fmt"
	"sort"
	"strings"
)

// Meta is the self-describing part of an index: what was indexed and which
// documents the shard holds, in shard order.
type Meta struct {
	Name   string   `json:"name"`
	Fields []string `json:"fields"`
	Ref    string   `json:"ref"`
	Refs   []string `json:"refs"`
}

// Index is an immutable inverted index over exactly one shard. It is safe for
// concurrent readers.
type Index struct {
	meta    Meta
	entries []TermEntry
	lookup  map[string]int
}

// New checks the structural invariants of an index and wraps it. Entries must
// be sorted by term with no duplicates, and every posting list must be
// non-empty, sorted by ref and reference only documents listed in meta.Refs.
func New(meta Meta, entries []TermEntry) (*Index, error) {
	if len(meta.Fields) == 0 {
		return nil, fmt.Errorf("index has no fields")
	}
	if meta.Ref == "" {
		return nil, fmt.Errorf("index has no ref field")
	}
	refSet := make(map[string]struct{}, len(meta.Refs))
	for _, ref := range meta.Refs {
		if ref == "" {
			return nil, fmt.Errorf("index contains an empty ref")
		}
		if _, dup := refSet[ref]; dup {
			return nil, fmt.Errorf("index contains duplicate ref %q", ref)
		}
		refSet[ref] = struct{}{}
	}
	lookup := make(map[string]int, len(entries))
	for i, e := range entries {
		if e.Term == "" {
			return nil, fmt.Errorf("index contains an empty term")
		}
		if i > 0 && entries[i-1].Term >= e.Term {
			return nil, fmt.Errorf("terms out of order at %q", e.Term)
		}
		if len(e.Postings) == 0 {
			return nil, fmt.Errorf("term %q has no postings", e.Term)
		}
		for j, p := range e.Postings {
			if _, ok := refSet[p.Ref]; !ok {
				return nil, fmt.Errorf("term %q references unknown document %q", e.Term, p.Ref)
			}
			if p.Frequency <= 0 {
				return nil, fmt.Errorf("term %q has non-positive frequency for %q", e.Term, p.Ref)
			}
			if j > 0 && e.Postings[j-1].Ref >= p.Ref {
				return nil, fmt.Errorf("postings of %q out of order", e.Term)
			}
		}
		lookup[e.Term] = i
	}
	return &Index{
		meta:    meta,
		entries: entries,
		lookup:  lookup,
	}, nil
}

// Meta returns a copy of the index metadata.
func (i *Index) Meta() Meta {
	return Meta{
		Name:   i.meta.Name,
		Fields: append([]string(nil), i.meta.Fields...),
		Ref:    i.meta.Ref,
		Refs:   append([]string(nil), i.meta.Refs...),
	}
}

func (i *Index) Fields() []string { return append([]string(nil), i.meta.Fields...) }

func (i *Index) RefField() string { return i.meta.Ref }

// Refs lists the shard's documents in shard order.
func (i *Index) Refs() []string { return append([]string(nil), i.meta.Refs...) }

func (i *Index) DocCount() int { return len(i.meta.Refs) }

func (i *Index) TermCount() int { return len(i.entries) }

// Lookup returns the postings of term, or nil. The result must not be modified.
func (i *Index) Lookup(term string) PostingList {
	idx, ok := i.lookup[term]
	if !ok {
		return nil
	}
	return i.entries[idx].Postings
}

// ScanPrefix calls fn for every term starting with prefix, in term order.
// An empty prefix matches nothing.
func (i *Index) ScanPrefix(prefix string, fn func(TermEntry)) {
	if prefix == "" {
		return
	}
	start := sort.Search(len(i.entries), func(k int) bool {
		return i.entries[k].Term >= prefix
	})
	for k := start; k < len(i.entries) && strings.HasPrefix(i.entries[k].Term, prefix); k++ {
		fn(i.entries[k])
	}
}

// Each calls fn for every term in order.
func (i *Index) Each(fn func(TermEntry)) {
	for _, e := range i.entries {
		fn(e)
	}
}
