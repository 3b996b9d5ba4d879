// Package compress frames data into independently compressed blocks.
//
// Block format: [UncompressedSize uint32][CompressedSize uint32][Data...],
// little endian. CompressedSize 0 marks a block stored as-is, used whenever
// compression saves less than 10%.
package compress

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Type identifies a compression algorithm.
type Type uint8

const (
	// None stores blocks uncompressed.
	None Type = 0
	// LZ4 is fast block compression.
	LZ4 Type = 1
	// ZSTD trades speed for a better ratio.
	ZSTD Type = 2
)

func (t Type) String() string {
	switch t {
	case None:
		return "none"
	case LZ4:
		return "lz4"
	case ZSTD:
		return "zstd"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(t))
	}
}

// Valid reports whether t is a known algorithm.
func (t Type) Valid() bool {
	return t <= ZSTD
}

// Parse parses an algorithm name.
func Parse(s string) (Type, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "none", "":
		return None, nil
	case "lz4":
		return LZ4, nil
	case "zstd":
		return ZSTD, nil
	default:
		return None, fmt.Errorf("unknown compression %q", s)
	}
}

// DefaultBlockSize is the uncompressed size of a block.
const DefaultBlockSize = 256 * 1024

const headerSize = 8

var (
	// ErrCorrupt is returned for malformed blocks.
	ErrCorrupt = errors.New("compress: corrupt block")

	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() *zstd.Encoder {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder)
	}
	enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	return enc
}

func getZstdDecoder() *zstd.Decoder {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder)
	}
	dec, _ := zstd.NewReader(nil)
	return dec
}

// Block compresses data into a single framed block.
func Block(data []byte, t Type) ([]byte, error) {
	var compressed []byte
	switch t {
	case None:
	case LZ4:
		buf := make([]byte, lz4.CompressBlockBound(len(data)))
		n, err := lz4.CompressBlock(data, buf, nil)
		if err != nil {
			return nil, fmt.Errorf("compress: lz4: %w", err)
		}
		compressed = buf[:n]
	case ZSTD:
		enc := getZstdEncoder()
		compressed = enc.EncodeAll(data, nil)
		zstdEncoderPool.Put(enc)
	default:
		return nil, fmt.Errorf("compress: unknown type %v", t)
	}

	stored := compressed
	if len(compressed) == 0 || float64(len(compressed)) > float64(len(data))*0.9 {
		stored = nil
	}

	out := make([]byte, headerSize, headerSize+max(len(stored), len(data)))
	binary.LittleEndian.PutUint32(out[0:], uint32(len(data)))
	binary.LittleEndian.PutUint32(out[4:], uint32(len(stored)))
	if stored == nil {
		return append(out, data...), nil
	}
	return append(out, stored...), nil
}

// Unblock decodes the first block in data and returns its contents and the
// number of bytes consumed.
func Unblock(data []byte, t Type) ([]byte, int, error) {
	if len(data) < headerSize {
		return nil, 0, fmt.Errorf("%w: short header", ErrCorrupt)
	}
	size := int(binary.LittleEndian.Uint32(data[0:]))
	csize := int(binary.LittleEndian.Uint32(data[4:]))

	if csize == 0 {
		if len(data) < headerSize+size {
			return nil, 0, fmt.Errorf("%w: truncated block", ErrCorrupt)
		}
		return data[headerSize : headerSize+size], headerSize + size, nil
	}
	if len(data) < headerSize+csize {
		return nil, 0, fmt.Errorf("%w: truncated compressed block", ErrCorrupt)
	}

	src := data[headerSize : headerSize+csize]
	out := make([]byte, size)
	switch t {
	case LZ4:
		n, err := lz4.UncompressBlock(src, out)
		if err != nil {
			return nil, 0, fmt.Errorf("compress: lz4: %w", err)
		}
		if n != size {
			return nil, 0, fmt.Errorf("%w: size mismatch", ErrCorrupt)
		}
	case ZSTD:
		dec := getZstdDecoder()
		decoded, err := dec.DecodeAll(src, out[:0])
		zstdDecoderPool.Put(dec)
		if err != nil {
			return nil, 0, fmt.Errorf("compress: zstd: %w", err)
		}
		if len(decoded) != size {
			return nil, 0, fmt.Errorf("%w: size mismatch", ErrCorrupt)
		}
		out = decoded
	default:
		return nil, 0, fmt.Errorf("%w: compressed block under type %v", ErrCorrupt, t)
	}
	return out, headerSize + csize, nil
}

// Writer buffers writes and emits one framed block per BlockSize bytes.
type Writer struct {
	w         io.Writer
	typ       Type
	blockSize int
	buf       *bytes.Buffer
	written   int64
}

// NewWriter creates a block writer. blockSize <= 0 selects DefaultBlockSize.
func NewWriter(w io.Writer, t Type, blockSize int) *Writer {
	if blockSize <= 0 {
		blockSize = DefaultBlockSize
	}
	return &Writer{
		w:         w,
		typ:       t,
		blockSize: blockSize,
		buf:       bytes.NewBuffer(make([]byte, 0, blockSize)),
	}
}

// Write buffers p, flushing full blocks.
func (c *Writer) Write(p []byte) (int, error) {
	total := 0
	for len(p) > 0 {
		space := c.blockSize - c.buf.Len()
		if space <= 0 {
			if err := c.Flush(); err != nil {
				return total, err
			}
			space = c.blockSize
		}

		n, _ := c.buf.Write(p[:min(len(p), space)])
		total += n
		p = p[n:]
	}
	return total, nil
}

// Flush compresses and writes the buffered block, if any.
func (c *Writer) Flush() error {
	if c.buf.Len() == 0 {
		return nil
	}

	block, err := Block(c.buf.Bytes(), c.typ)
	if err != nil {
		return err
	}

	n, err := c.w.Write(block)
	c.written += int64(n)
	if err != nil {
		return err
	}
	c.buf.Reset()
	return nil
}

// BytesWritten returns the framed bytes written so far.
func (c *Writer) BytesWritten() int64 {
	return c.written
}

// DecodeAll decodes a sequence of blocks.
func DecodeAll(data []byte, t Type) ([]byte, error) {
	var out []byte
	for len(data) > 0 {
		block, n, err := Unblock(data, t)
		if err != nil {
			return nil, err
		}
		out = append(out, block...)
		data = data[n:]
	}
	return out, nil
}

// EncodeAll frames data into blocks of blockSize.
func EncodeAll(data []byte, t Type, blockSize int) ([]byte, error) {
	var buf bytes.Buffer
	w := NewWriter(&buf, t, blockSize)
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Flush(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
