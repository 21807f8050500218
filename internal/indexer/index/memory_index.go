package index

import (
	"fmt"
	"sort"

	"github.com/Adithya-Monish-Kumar-K/tenant-search/internal/indexer/tokenizer"
	apperrors "github.com/Adithya-Monish-Kumar-K/tenant-search/pkg/errors"
)

// MemoryIndex accumulates postings for one shard while it is being built.
// Freeze turns it into an immutable Index. It is not safe for concurrent use;
// each shard is built by a single goroutine.
type MemoryIndex struct {
	index  map[string]map[string]*Posting
	refs   []string
	refSet map[string]struct{}
}

func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{
		index:  make(map[string]map[string]*Posting),
		refSet: make(map[string]struct{}),
	}
}

// AddDocument tokenizes every text and records one occurrence per token
// against ref. A document with no tokens is still registered.
func (m *MemoryIndex) AddDocument(ref string, texts ...string) error {
	if _, dup := m.refSet[ref]; dup {
		return fmt.Errorf("%w: duplicate document ref %q in shard", apperrors.ErrInvalidInput, ref)
	}
	m.refSet[ref] = struct{}{}
	m.refs = append(m.refs, ref)

	for _, text := range texts {
		for _, token := range tokenizer.Tokenize(text) {
			docs, exists := m.index[token.Term]
			if !exists {
				docs = make(map[string]*Posting)
				m.index[token.Term] = docs
			}
			p, exists := docs[ref]
			if !exists {
				p = &Posting{Ref: ref}
				docs[ref] = p
			}
			p.Frequency++
		}
	}
	return nil
}

// Snapshot returns every term with its postings, terms ascending.
func (m *MemoryIndex) Snapshot() []TermEntry {
	entries := make([]TermEntry, 0, len(m.index))
	for term, docs := range m.index {
		entries = append(entries, TermEntry{
			Term:     term,
			Postings: sortedPostings(docs),
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Term < entries[j].Term
	})
	return entries
}

// Freeze produces the immutable Index for this shard.
func (m *MemoryIndex) Freeze(cfg Config) (*Index, error) {
	return New(Meta{
		Name:   cfg.Name,
		Fields: append([]string(nil), cfg.Fields...),
		Ref:    cfg.Ref,
		Refs:   append([]string(nil), m.refs...),
	}, m.Snapshot())
}

func sortedPostings(docs map[string]*Posting) PostingList {
	result := make(PostingList, 0, len(docs))
	for _, posting := range docs {
		result = append(result, *posting)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Ref < result[j].Ref
	})
	return result
}
