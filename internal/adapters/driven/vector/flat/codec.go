package flat

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"math"
)

// FileName is the artifact name used inside a cache directory.
const FileName = "vectors.idx"

// File layout, little endian:
//
//	magic   [4]byte "PQVI"
//	version uint32
//	dim     uint32
//	rows    uint32
//	data    rows*dim float32
//	crc     uint32 (IEEE over everything before it)
var magic = [4]byte{'P', 'Q', 'V', 'I'}

const (
	formatVersion = 1
	headerSize    = 16
)

// ErrInvalidFormat is returned when index bytes cannot be decoded.
var ErrInvalidFormat = errors.New("flat: invalid index file")

// WriteTo serialises the index.
func (idx *Index) WriteTo(w io.Writer) (int64, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if idx.closed {
		return 0, ErrClosed
	}

	crc := crc32.NewIEEE()
	bw := bufio.NewWriter(io.MultiWriter(w, crc))

	var header [headerSize]byte
	copy(header[0:4], magic[:])
	binary.LittleEndian.PutUint32(header[4:], formatVersion)
	binary.LittleEndian.PutUint32(header[8:], uint32(idx.dimension))
	binary.LittleEndian.PutUint32(header[12:], uint32(idx.rows))
	if _, err := bw.Write(header[:]); err != nil {
		return 0, fmt.Errorf("writing index header: %w", err)
	}

	var buf [4]byte
	for _, f := range idx.data {
		binary.LittleEndian.PutUint32(buf[:], math.Float32bits(f))
		if _, err := bw.Write(buf[:]); err != nil {
			return 0, fmt.Errorf("writing index data: %w", err)
		}
	}
	if err := bw.Flush(); err != nil {
		return 0, fmt.Errorf("writing index data: %w", err)
	}

	binary.LittleEndian.PutUint32(buf[:], crc.Sum32())
	if _, err := w.Write(buf[:]); err != nil {
		return 0, fmt.Errorf("writing index checksum: %w", err)
	}

	return int64(headerSize + 4*len(idx.data) + 4), nil
}

// Read decodes an index written by WriteTo.
// Any truncation, trailing data or checksum mismatch yields ErrInvalidFormat.
func Read(r io.Reader) (*Index, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading index: %w", err)
	}
	return Decode(raw)
}

// Decode parses serialised index bytes.
func Decode(raw []byte) (*Index, error) {
	if len(raw) < headerSize+4 {
		return nil, fmt.Errorf("%w: %d bytes is too short", ErrInvalidFormat, len(raw))
	}
	if !bytes.Equal(raw[0:4], magic[:]) {
		return nil, fmt.Errorf("%w: bad magic", ErrInvalidFormat)
	}
	if v := binary.LittleEndian.Uint32(raw[4:]); v != formatVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrInvalidFormat, v)
	}

	dim := int(binary.LittleEndian.Uint32(raw[8:]))
	rows := int(binary.LittleEndian.Uint32(raw[12:]))
	if rows > 0 && dim == 0 {
		return nil, fmt.Errorf("%w: rows without dimension", ErrInvalidFormat)
	}
	// Bound rows by the payload before multiplying.
	payload := len(raw) - headerSize - 4
	if dim > 0 && rows > payload/4/dim {
		return nil, fmt.Errorf("%w: header claims %d x %d floats in %d bytes", ErrInvalidFormat, rows, dim, payload)
	}
	if 4*dim*rows != payload {
		return nil, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidFormat, headerSize+4*dim*rows+4, len(raw))
	}

	body := raw[:len(raw)-4]
	if crc32.ChecksumIEEE(body) != binary.LittleEndian.Uint32(raw[len(raw)-4:]) {
		return nil, fmt.Errorf("%w: checksum mismatch", ErrInvalidFormat)
	}

	data := make([]float32, dim*rows)
	for i := range data {
		data[i] = math.Float32frombits(binary.LittleEndian.Uint32(body[headerSize+i*4:]))
	}

	return &Index{
		data:      data,
		dimension: dim,
		rows:      rows,
	}, nil
}
