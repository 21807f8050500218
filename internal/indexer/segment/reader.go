package segment

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"hash/crc32"

	"github.com/Adithya-Monish-Kumar-K/tenant-search/internal/indexer/index"
	apperrors "github.com/Adithya-Monish-Kumar-K/tenant-search/pkg/errors"
)

// Decode parses an encoded segment back into an index. Every failure wraps
// apperrors.ErrIndexDecode.
func Decode(data []byte) (*index.Index, error) {
	if len(data) < HeaderSize+FooterSize {
		return nil, decodeErr("truncated segment: %d bytes", len(data))
	}
	header, err := ReadHeader(data)
	if err != nil {
		return nil, err
	}
	bodyEnd := len(data) - FooterSize
	footer := data[bodyEnd:]
	if binary.LittleEndian.Uint32(footer[4:8]) != MagicBytes {
		return nil, decodeErr("bad footer magic")
	}
	if want, got := binary.LittleEndian.Uint32(footer[0:4]), crc32.ChecksumIEEE(data[HeaderSize:bodyEnd]); want != got {
		return nil, decodeErr("checksum mismatch: stored %08x, computed %08x", want, got)
	}

	postings, err := section(data, header.PostOffset, header.PostSize, bodyEnd)
	if err != nil {
		return nil, decodeErr("postings section: %v", err)
	}
	dictBytes, err := section(data, header.DictOffset, header.DictSize, bodyEnd)
	if err != nil {
		return nil, decodeErr("dictionary section: %v", err)
	}
	metaBytes, err := section(data, header.MetaOffset, header.MetaSize, bodyEnd)
	if err != nil {
		return nil, decodeErr("metadata section: %v", err)
	}

	var meta index.Meta
	if err := json.Unmarshal(metaBytes, &meta); err != nil {
		return nil, decodeErr("parsing metadata: %v", err)
	}
	if len(meta.Refs) != int(header.DocCount) {
		return nil, decodeErr("header declares %d documents, metadata lists %d", header.DocCount, len(meta.Refs))
	}
	var dict []DictEntry
	if err := json.Unmarshal(dictBytes, &dict); err != nil {
		return nil, decodeErr("parsing dictionary: %v", err)
	}
	if len(dict) != int(header.TermCount) {
		return nil, decodeErr("header declares %d terms, dictionary has %d", header.TermCount, len(dict))
	}

	entries := make([]index.TermEntry, 0, len(dict))
	for _, d := range dict {
		raw, err := section(postings, d.PostOffset, int64(d.PostLen), len(postings))
		if err != nil {
			return nil, decodeErr("postings for term %q: %v", d.Term, err)
		}
		var list index.PostingList
		if err := json.Unmarshal(raw, &list); err != nil {
			return nil, decodeErr("parsing postings for term %q: %v", d.Term, err)
		}
		if len(list) != d.DocFreq {
			return nil, decodeErr("term %q: dictionary declares %d postings, found %d", d.Term, d.DocFreq, len(list))
		}
		entries = append(entries, index.TermEntry{Term: d.Term, Postings: list})
	}

	idx, err := index.New(meta, entries)
	if err != nil {
		return nil, decodeErr("%v", err)
	}
	return idx, nil
}

// ReadHeader returns the header of an encoded segment without decoding the
// body. It rejects foreign data and unknown format versions.
func ReadHeader(data []byte) (SegmentHeader, error) {
	if len(data) < HeaderSize {
		return SegmentHeader{}, decodeErr("truncated header: %d bytes", len(data))
	}
	h := decodeHeader(data[:HeaderSize])
	if h.Magic != MagicBytes {
		return SegmentHeader{}, decodeErr("bad magic bytes %x", h.Magic)
	}
	if h.Version != FormatVersion {
		return SegmentHeader{}, decodeErr("unsupported format version %d", h.Version)
	}
	return h, nil
}

func decodeHeader(b []byte) SegmentHeader {
	return SegmentHeader{
		Magic:      binary.LittleEndian.Uint32(b[0:4]),
		Version:    binary.LittleEndian.Uint32(b[4:8]),
		TermCount:  binary.LittleEndian.Uint32(b[8:12]),
		DocCount:   binary.LittleEndian.Uint32(b[12:16]),
		PostOffset: int64(binary.LittleEndian.Uint64(b[16:24])),
		PostSize:   int64(binary.LittleEndian.Uint64(b[24:32])),
		DictOffset: int64(binary.LittleEndian.Uint64(b[32:40])),
		DictSize:   int64(binary.LittleEndian.Uint64(b[40:48])),
		MetaOffset: int64(binary.LittleEndian.Uint64(b[48:56])),
		MetaSize:   int64(binary.LittleEndian.Uint64(b[56:64])),
	}
}

// section slices data[off:off+size], requiring the range to end at or before
// limit.
func section(data []byte, off, size int64, limit int) ([]byte, error) {
	if off < 0 || size < 0 || off > int64(limit) || size > int64(limit)-off {
		return nil, fmt.Errorf("range [%d,+%d) outside [0,%d)", off, size, limit)
	}
	return data[off : off+size], nil
}

func decodeErr(format string, args ...any) error {
	return fmt.Errorf("%w: %s", apperrors.ErrIndexDecode, fmt.Sprintf(format, args...))
}
