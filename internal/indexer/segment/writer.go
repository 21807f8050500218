// Package segment is the portable encoding of a shard's inverted index. A
// segment is self-describing: it carries the indexed fields, the ref field and
// the shard's document list alongside the term dictionary and postings, so it
// can be decoded and queried with nothing but its bytes.
//
// Layout (little-endian):
//
//	header   64 bytes  magic, version, term/doc counts, section offsets and sizes
//	postings           JSON posting list per term, back to back
//	dict               JSON []DictEntry, terms ascending
//	meta               JSON index.Meta
//	footer   8 bytes   CRC-32 (IEEE) of postings+dict+meta, magic
package segment

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"hash/crc32"

	"github.com/Adithya-Monish-Kumar-K/tenant-search/internal/indexer/index"
)

// MagicBytes identifies an encoded shard index.
const (
	MagicBytes    uint32 = 0x54534958
	FormatVersion uint32 = 1
	HeaderSize    int    = 64
	FooterSize    int    = 8
)

// SegmentHeader is the fixed header at the start of every segment. Offsets are
// absolute byte positions within the segment.
type SegmentHeader struct {
	Magic      uint32
	Version    uint32
	TermCount  uint32
	DocCount   uint32
	PostOffset int64
	PostSize   int64
	DictOffset int64
	DictSize   int64
	MetaOffset int64
	MetaSize   int64
}

// DictEntry maps a term to its postings offset (relative to the postings
// section), length, and document frequency.
type DictEntry struct {
	Term       string `json:"t"`
	PostOffset int64  `json:"o"`
	PostLen    int    `json:"l"`
	DocFreq    int    `json:"d"`
}

// Encode serialises idx.
func Encode(idx *index.Index) ([]byte, error) {
	if idx == nil {
		return nil, fmt.Errorf("cannot encode nil index")
	}
	var postings bytes.Buffer
	dict := make([]DictEntry, 0, idx.TermCount())
	var encErr error
	idx.Each(func(entry index.TermEntry) {
		if encErr != nil {
			return
		}
		data, err := json.Marshal(entry.Postings)
		if err != nil {
			encErr = fmt.Errorf("marshaling postings for term %q: %w", entry.Term, err)
			return
		}
		dict = append(dict, DictEntry{
			Term:       entry.Term,
			PostOffset: int64(postings.Len()),
			PostLen:    len(data),
			DocFreq:    len(entry.Postings),
		})
		postings.Write(data)
	})
	if encErr != nil {
		return nil, encErr
	}

	dictData, err := json.Marshal(dict)
	if err != nil {
		return nil, fmt.Errorf("marshaling dictionary: %w", err)
	}
	meta := idx.Meta()
	metaData, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("marshaling metadata: %w", err)
	}

	header := SegmentHeader{
		Magic:      MagicBytes,
		Version:    FormatVersion,
		TermCount:  uint32(len(dict)),
		DocCount:   uint32(len(meta.Refs)),
		PostOffset: int64(HeaderSize),
		PostSize:   int64(postings.Len()),
	}
	header.DictOffset = header.PostOffset + header.PostSize
	header.DictSize = int64(len(dictData))
	header.MetaOffset = header.DictOffset + header.DictSize
	header.MetaSize = int64(len(metaData))

	total := HeaderSize + postings.Len() + len(dictData) + len(metaData) + FooterSize
	out := make([]byte, 0, total)
	out = append(out, encodeHeader(header)...)
	out = append(out, postings.Bytes()...)
	out = append(out, dictData...)
	out = append(out, metaData...)

	checksum := crc32.ChecksumIEEE(out[HeaderSize:])
	footer := make([]byte, FooterSize)
	binary.LittleEndian.PutUint32(footer[0:4], checksum)
	binary.LittleEndian.PutUint32(footer[4:8], MagicBytes)
	out = append(out, footer...)
	return out, nil
}

func encodeHeader(h SegmentHeader) []byte {
	b := make([]byte, HeaderSize)
	binary.LittleEndian.PutUint32(b[0:4], h.Magic)
	binary.LittleEndian.PutUint32(b[4:8], h.Version)
	binary.LittleEndian.PutUint32(b[8:12], h.TermCount)
	binary.LittleEndian.PutUint32(b[12:16], h.DocCount)
	binary.LittleEndian.PutUint64(b[16:24], uint64(h.PostOffset))
	binary.LittleEndian.PutUint64(b[24:32], uint64(h.PostSize))
	binary.LittleEndian.PutUint64(b[32:40], uint64(h.DictOffset))
	binary.LittleEndian.PutUint64(b[40:48], uint64(h.DictSize))
	binary.LittleEndian.PutUint64(b[48:56], uint64(h.MetaOffset))
	binary.LittleEndian.PutUint64(b[56:64], uint64(h.MetaSize))
	return b
}
