package vectorindex

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"hash"
	"hash/crc32"
	"io"
)

// File layout, little-endian:
//
//	magic   [4]byte "CAVX"
//	version uint16
//	kindLen uint16, kind []byte
//	dim     uint32
//	count   uint64
//	payload count*dim float32
//	crc32   uint32 (IEEE, over everything above)
const (
	magic        = "CAVX"
	codecVersion = 1
	maxKindLen   = 64
	maxDim       = 1 << 16
)

// ErrCorrupt is returned when an index file is truncated, malformed or fails
// its checksum.
var ErrCorrupt = errors.New("corrupt vector index")

// Write serializes idx to w.
func Write(w io.Writer, idx Index) error {
	bw := bufio.NewWriter(w)
	crc := crc32.NewIEEE()
	mw := io.MultiWriter(bw, crc)

	kind := idx.Kind()
	header := []any{
		[]byte(magic),
		uint16(codecVersion),
		uint16(len(kind)),
		[]byte(kind),
		uint32(idx.Dim()),
		uint64(idx.Len()),
	}
	for _, v := range header {
		if err := binary.Write(mw, binary.LittleEndian, v); err != nil {
			return fmt.Errorf("write index header: %w", err)
		}
	}
	if err := idx.encode(mw); err != nil {
		return fmt.Errorf("write index payload: %w", err)
	}
	if err := binary.Write(bw, binary.LittleEndian, crc.Sum32()); err != nil {
		return fmt.Errorf("write index checksum: %w", err)
	}
	return bw.Flush()
}

// Read deserializes an index written by Write.
func Read(r io.Reader) (Index, error) {
	br := bufio.NewReader(r)
	crc := crc32.NewIEEE()
	tr := io.TeeReader(br, crc)

	var m [4]byte
	if _, err := io.ReadFull(tr, m[:]); err != nil {
		return nil, corrupt("magic", err)
	}
	if string(m[:]) != magic {
		return nil, fmt.Errorf("%w: bad magic %q", ErrCorrupt, m[:])
	}

	var version, kindLen uint16
	if err := binary.Read(tr, binary.LittleEndian, &version); err != nil {
		return nil, corrupt("version", err)
	}
	if version != codecVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrCorrupt, version)
	}
	if err := binary.Read(tr, binary.LittleEndian, &kindLen); err != nil {
		return nil, corrupt("kind length", err)
	}
	if kindLen == 0 || kindLen > maxKindLen {
		return nil, fmt.Errorf("%w: kind length %d", ErrCorrupt, kindLen)
	}
	kind := make([]byte, kindLen)
	if _, err := io.ReadFull(tr, kind); err != nil {
		return nil, corrupt("kind", err)
	}

	var dim uint32
	var count uint64
	if err := binary.Read(tr, binary.LittleEndian, &dim); err != nil {
		return nil, corrupt("dim", err)
	}
	if err := binary.Read(tr, binary.LittleEndian, &count); err != nil {
		return nil, corrupt("count", err)
	}
	if dim == 0 || dim > maxDim {
		return nil, fmt.Errorf("%w: dimension %d", ErrCorrupt, dim)
	}

	idx, err := New(string(kind), int(dim))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if err := readVectors(tr, idx, int(dim), count); err != nil {
		return nil, err
	}
	if err := verifyChecksum(br, crc); err != nil {
		return nil, err
	}
	return idx, nil
}

// readVectors adds vectors one at a time so a lying count cannot force a huge
// allocation before the data runs out.
func readVectors(r io.Reader, idx Index, dim int, count uint64) error {
	vec := make([]float32, dim)
	for i := uint64(0); i < count; i++ {
		if err := binary.Read(r, binary.LittleEndian, vec); err != nil {
			return corrupt(fmt.Sprintf("vector %d", i), err)
		}
		if err := idx.Add(vec); err != nil {
			return fmt.Errorf("%w: %v", ErrCorrupt, err)
		}
	}
	return nil
}

func verifyChecksum(r io.Reader, crc hash.Hash32) error {
	var want uint32
	if err := binary.Read(r, binary.LittleEndian, &want); err != nil {
		return corrupt("checksum", err)
	}
	if got := crc.Sum32(); got != want {
		return fmt.Errorf("%w: checksum %08x, expected %08x", ErrCorrupt, got, want)
	}
	return nil
}

func corrupt(field string, err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%w: truncated at %s", ErrCorrupt, field)
	}
	return fmt.Errorf("read %s: %w", field, err)
}
