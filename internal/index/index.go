// Package index holds the analyzer's knowledge base and the stores that persist it.
//
// On disk an index is a four byte magic followed by a zstd stream of a CBOR
// document encoded in core deterministic mode, so that the same index always
// produces the same bytes.
package index

import (
	"bufio"
	"bytes"
	"cmp"
	"errors"
	"fmt"
	"io"
	"maps"
	"slices"

	"github.com/fxamacker/cbor/v2"
	"github.com/klauspost/compress/zstd"

	"github.com/sevigo/build-warden/internal/core"
)

// Version is the current on-disk format version.
const Version = 1

var magic = []byte("BWIX")

// ErrFormat is returned when stored bytes are not an index.
var ErrFormat = errors.New("invalid index format")

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("index: CBOR encoder initialization failed: " + err.Error())
	}
	decMode, err = cbor.DecOptions{
		MaxMapPairs: 1 << 30,
	}.DecMode()
	if err != nil {
		panic("index: CBOR decoder initialization failed: " + err.Error())
	}
}

// Index counts how often each normalized log line has been seen.
type Index struct {
	Version   uint16            `cbor:"1,keyasint"`
	Processed uint64            `cbor:"2,keyasint"`
	Lines     map[uint64]uint32 `cbor:"3,keyasint"`
}

var _ core.Index = (*Index)(nil)

// New returns an empty index.
func New() *Index {
	return &Index{Version: Version, Lines: make(map[uint64]uint32)}
}

// Clone returns a deep copy.
func (i *Index) Clone() *Index {
	return &Index{
		Version:   i.Version,
		Processed: i.Processed,
		Lines:     maps.Clone(i.Lines),
	}
}

// Count returns how many times the line hash has been observed.
func (i *Index) Count(hash uint64) uint32 {
	return i.Lines[hash]
}

// Observe records one occurrence of the line hash, saturating at the uint32 limit.
func (i *Index) Observe(hash uint64) {
	if i.Lines == nil {
		i.Lines = make(map[uint64]uint32)
	}
	if c := i.Lines[hash]; c < ^uint32(0) {
		i.Lines[hash] = c + 1
	}
}

// Stats implements core.Index.
func (i *Index) Stats() core.IndexStats {
	return core.IndexStats{Processed: i.Processed, DistinctLines: len(i.Lines)}
}

// LineCount is one entry of Top.
type LineCount struct {
	Hash  uint64 `json:"hash" yaml:"hash"`
	Count uint32 `json:"count" yaml:"count"`
}

// Top returns the n most frequent line hashes, most frequent first.
func (i *Index) Top(n int) []LineCount {
	out := make([]LineCount, 0, len(i.Lines))
	for h, c := range i.Lines {
		out = append(out, LineCount{Hash: h, Count: c})
	}
	slices.SortFunc(out, func(a, b LineCount) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.Hash, b.Hash)
	})
	if n >= 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// Encode writes the index to w.
func (i *Index) Encode(w io.Writer) error {
	body, err := encMode.Marshal(i)
	if err != nil {
		return fmt.Errorf("encoding index: %w", err)
	}

	if _, err := w.Write(magic); err != nil {
		return err
	}
	zw, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return fmt.Errorf("creating zstd writer: %w", err)
	}
	if _, err := zw.Write(body); err != nil {
		_ = zw.Close()
		return fmt.Errorf("compressing index: %w", err)
	}
	return zw.Close()
}

// Decode reads an index written by Encode.
func Decode(r io.Reader) (*Index, error) {
	br := bufio.NewReader(r)
	head := make([]byte, len(magic))
	if _, err := io.ReadFull(br, head); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFormat, err)
	}
	if !bytes.Equal(head, magic) {
		return nil, fmt.Errorf("%w: bad magic %q", ErrFormat, head)
	}

	zr, err := zstd.NewReader(br)
	if err != nil {
		return nil, fmt.Errorf("creating zstd reader: %w", err)
	}
	defer zr.Close()

	body, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("%w: decompressing: %w", ErrFormat, err)
	}

	idx := New()
	if err := decMode.Unmarshal(body, idx); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFormat, err)
	}
	if idx.Version != Version {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrFormat, idx.Version)
	}
	if idx.Lines == nil {
		idx.Lines = make(map[uint64]uint32)
	}
	return idx, nil
}

func asIndex(idx core.Index) (*Index, error) {
	i, ok := idx.(*Index)
	if !ok || i == nil {
		return nil, fmt.Errorf("unexpected index type %T", idx)
	}
	return i, nil
}
