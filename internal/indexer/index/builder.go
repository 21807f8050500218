package index

import (
	"fmt"

	apperrors "github.com/Adithya-Monish-Kumar-K/tenant-search/pkg/errors"
)

// Build indexes one shard's documents. Every configured field of every
// document is tokenized and counted against the document's ref. Build has no
// side effects and reads nothing but its arguments.
func Build(docs []Document, cfg Config) (*Index, error) {
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrInvalidInput, err)
	}
	mem := NewMemoryIndex()
	texts := make([]string, len(cfg.Fields))
	for i, doc := range docs {
		ref := doc.Ref(cfg)
		if ref == "" {
			return nil, fmt.Errorf("%w: document %d has no value for ref field %q", apperrors.ErrInvalidInput, i, cfg.Ref)
		}
		for j, field := range cfg.Fields {
			texts[j] = doc[field]
		}
		if err := mem.AddDocument(ref, texts...); err != nil {
			return nil, fmt.Errorf("document %d: %w", i, err)
		}
	}
	idx, err := mem.Freeze(cfg)
	if err != nil {
		return nil, fmt.Errorf("freezing index: %w", err)
	}
	return idx, nil
}
