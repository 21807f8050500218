package index

import (
	"encoding/json"
	"fmt"
	"testing"

	apperrors "github.com/Adithya-Monish-Kumar-K/tenant-search/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() Config {
	return Config{Fields: []string{"title", "text"}, Ref: "id"}
}

func TestBuildPostings(t *testing.T) {
	docs := []Document{
		{"id": "D1", "title": "Apple", "text": "apple pie, apple tart"},
		{"id": "D2", "text": "apple sauce"},
		{"id": "D3", "text": "banana bread", "ignored": "apple"},
	}
	idx, err := Build(docs, testConfig())
	require.NoError(t, err)

	assert.Equal(t, PostingList{{Ref: "D1", Frequency: 3}, {Ref: "D2", Frequency: 1}}, idx.Lookup("apple"))
	assert.Equal(t, PostingList{{Ref: "D3", Frequency: 1}}, idx.Lookup("banana"))
	assert.Nil(t, idx.Lookup("Apple"), "terms are stored normalized")
	assert.Equal(t, []string{"D1", "D2", "D3"}, idx.Refs())
	assert.Equal(t, 3, idx.DocCount())
	assert.Equal(t, 6, idx.TermCount())
	assert.Equal(t, "documents", idx.Meta().Name)
}

func TestBuildKeepsEmptyDocuments(t *testing.T) {
	idx, err := Build([]Document{{"id": "E"}, {"id": "F", "text": "..."}}, testConfig())
	require.NoError(t, err)
	assert.Equal(t, 0, idx.TermCount())
	assert.Equal(t, []string{"E", "F"}, idx.Refs())
}

func TestBuildErrors(t *testing.T) {
	_, err := Build([]Document{{"text": "no ref"}}, testConfig())
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	_, err = Build([]Document{{"id": "A"}, {"id": "A"}}, testConfig())
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	_, err = Build(nil, Config{Ref: "id"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	_, err = Build(nil, Config{Fields: []string{"text"}, Ref: "id", ShardCapacity: -1})
	assert.Error(t, err)
}

func TestScanPrefix(t *testing.T) {
	idx, err := Build([]Document{{"id": "1", "text": "app apple application banana apt"}}, testConfig())
	require.NoError(t, err)

	var got []string
	idx.ScanPrefix("app", func(e TermEntry) { got = append(got, e.Term) })
	assert.Equal(t, []string{"app", "apple", "application"}, got)

	got = nil
	idx.ScanPrefix("", func(e TermEntry) { got = append(got, e.Term) })
	assert.Empty(t, got)
}

func TestNewRejectsBrokenStructure(t *testing.T) {
	meta := Meta{Fields: []string{"text"}, Ref: "id", Refs: []string{"a", "b"}}
	cases := map[string][]TermEntry{
		"unsorted terms":    {{Term: "z", Postings: PostingList{{Ref: "a", Frequency: 1}}}, {Term: "a", Postings: PostingList{{Ref: "a", Frequency: 1}}}},
		"unknown ref":       {{Term: "x", Postings: PostingList{{Ref: "c", Frequency: 1}}}},
		"empty postings":    {{Term: "x"}},
		"zero frequency":    {{Term: "x", Postings: PostingList{{Ref: "a", Frequency: 0}}}},
		"unsorted postings": {{Term: "x", Postings: PostingList{{Ref: "b", Frequency: 1}, {Ref: "a", Frequency: 1}}}},
	}
	for name, entries := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := New(meta, entries)
			assert.Error(t, err)
		})
	}

	_, err := New(Meta{Fields: []string{"text"}, Ref: "id", Refs: []string{"a", "a"}}, nil)
	assert.Error(t, err)
}

func TestDocumentUnmarshalJSON(t *testing.T) {
	var d Document
	require.NoError(t, json.Unmarshal([]byte(`{"id": 1042, "text": "hello", "paid": true, "note": null}`), &d))
	assert.Equal(t, Document{"id": "1042", "text": "hello", "paid": "true", "note": ""}, d)

	assert.Error(t, json.Unmarshal([]byte(`{"id": {"x": 1}}`), &d))
	assert.Error(t, json.Unmarshal([]byte(`["a"]`), &d))
	assert.Error(t, json.Unmarshal([]byte(`null`), &d))
}

func TestConfigDefaults(t *testing.T) {
	cfg := Config{Fields: []string{"text"}, Ref: "id"}.WithDefaults()
	assert.Equal(t, 1000, cfg.ShardCapacity)
	assert.Equal(t, DefaultName, cfg.Name)
	require.NoError(t, cfg.Validate())

	assert.Error(t, Config{Fields: []string{"a", "a"}, Ref: "id"}.WithDefaults().Validate())
	assert.Error(t, Config{Fields: []string{"a"}, Ref: "id", Name: "bad/name"}.WithDefaults().Validate())
}

func BenchmarkBuild(b *testing.B) {
	docs := make([]Document, 1000)
	for i := range docs {
		docs[i] = Document{"id": fmt.Sprintf("doc-%d", i), "text": "this is a benchmark document with several terms for testing the indexing performance"}
	}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := Build(docs, testConfig()); err != nil {
			b.Fatal(err)
		}
	}
}
