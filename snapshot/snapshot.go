// Package snapshot persists built models.
//
// A snapshot is a small binary envelope around a codec-encoded Model:
//
//	magic "ALSN" | version u16 | codec name (u8 length + bytes) |
//	compression u8 | uncompressed length u64 | CRC32C u32 | payload
//
// All integers are little endian. The checksum covers the stored payload,
// so corruption is detected before decompression.
package snapshot

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/hupe1980/artlens/blobstore"
	"github.com/hupe1980/artlens/codec"
	"github.com/hupe1980/artlens/internal/compress"
	"github.com/hupe1980/artlens/internal/hash"
	"github.com/hupe1980/artlens/resource"
)

const (
	// Magic opens every snapshot.
	Magic = "ALSN"
	// Version is the envelope format version written by this package.
	Version uint16 = 1

	// Prefix is the blob name prefix of saved models.
	Prefix = "models/"
	// Ext is the file extension of saved models.
	Ext = ".snap"

	fixedHeader = len(Magic) + 2 + 1 + 1 + 8 + 4
)

var (
	// ErrBadMagic is returned for data that is not a snapshot.
	ErrBadMagic = errors.New("snapshot: bad magic")
	// ErrUnsupportedVersion is returned for envelopes from a newer writer.
	ErrUnsupportedVersion = errors.New("snapshot: unsupported version")
	// ErrCorrupt is returned when the checksum or lengths do not match.
	ErrCorrupt = errors.New("snapshot: corrupt")
)

// Compression selects how the payload is compressed.
type Compression = compress.Type

// Supported compression types.
const (
	CompressionNone = compress.None
	CompressionLZ4  = compress.LZ4
	CompressionZSTD = compress.ZSTD
)

// ParseCompression parses "none", "lz4" or "zstd".
func ParseCompression(s string) (Compression, error) {
	return compress.Parse(s)
}

// Options controls encoding and I/O.
type Options struct {
	// Codec encodes the payload. Nil uses codec.Default.
	Codec codec.Codec
	// Compression applied to the encoded payload.
	Compression Compression
	// Controller throttles snapshot I/O. Nil means unthrottled.
	Controller *resource.Controller
}

func (o Options) codec() codec.Codec {
	if o.Codec == nil {
		return codec.Default
	}
	return o.Codec
}

// Header is the decoded envelope.
type Header struct {
	Version          uint16
	Codec            string
	Compression      Compression
	UncompressedSize uint64
	Checksum         uint32
}

// Marshal encodes m into a snapshot envelope.
func Marshal(m *Model, opts Options) ([]byte, error) {
	if m == nil {
		return nil, errors.New("snapshot: nil model")
	}
	c := opts.codec()
	if len(c.Name()) > 255 {
		return nil, fmt.Errorf("snapshot: codec name too long: %q", c.Name())
	}
	if !opts.Compression.Valid() {
		return nil, fmt.Errorf("snapshot: unknown compression %v", opts.Compression)
	}

	raw, err := c.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("snapshot: encode %s: %w", c.Name(), err)
	}

	payload := raw
	if opts.Compression != CompressionNone {
		payload, err = compress.EncodeAll(raw, opts.Compression, compress.DefaultBlockSize)
		if err != nil {
			return nil, fmt.Errorf("snapshot: compress %s: %w", opts.Compression, err)
		}
	}

	buf := make([]byte, 0, fixedHeader+len(c.Name())+len(payload))
	buf = append(buf, Magic...)
	buf = binary.LittleEndian.AppendUint16(buf, Version)
	buf = append(buf, byte(len(c.Name())))
	buf = append(buf, c.Name()...)
	buf = append(buf, byte(opts.Compression))
	buf = binary.LittleEndian.AppendUint64(buf, uint64(len(raw)))
	buf = binary.LittleEndian.AppendUint32(buf, hash.CRC32C(payload))
	buf = append(buf, payload...)
	return buf, nil
}

// ReadHeader decodes the envelope and returns the header and the stored
// payload. The checksum is verified.
func ReadHeader(data []byte) (Header, []byte, error) {
	var h Header
	if len(data) < len(Magic) || string(data[:len(Magic)]) != Magic {
		return h, nil, ErrBadMagic
	}
	if len(data) < fixedHeader {
		return h, nil, fmt.Errorf("%w: short header", ErrCorrupt)
	}

	p := len(Magic)
	h.Version = binary.LittleEndian.Uint16(data[p:])
	p += 2
	if h.Version == 0 || h.Version > Version {
		return h, nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, h.Version)
	}

	nameLen := int(data[p])
	p++
	if len(data) < fixedHeader+nameLen {
		return h, nil, fmt.Errorf("%w: short header", ErrCorrupt)
	}
	h.Codec = string(data[p : p+nameLen])
	p += nameLen

	h.Compression = Compression(data[p])
	p++
	if !h.Compression.Valid() {
		return h, nil, fmt.Errorf("%w: unknown compression %d", ErrCorrupt, uint8(h.Compression))
	}
	h.UncompressedSize = binary.LittleEndian.Uint64(data[p:])
	p += 8
	h.Checksum = binary.LittleEndian.Uint32(data[p:])
	p += 4

	payload := data[p:]
	if got := hash.CRC32C(payload); got != h.Checksum {
		return h, nil, fmt.Errorf("%w: checksum mismatch: header %08x, payload %08x", ErrCorrupt, h.Checksum, got)
	}
	return h, payload, nil
}

// Unmarshal decodes a snapshot envelope. The codec is taken from the header.
func Unmarshal(data []byte) (*Model, error) {
	h, payload, err := ReadHeader(data)
	if err != nil {
		return nil, err
	}

	c, ok := codec.ByName(h.Codec)
	if !ok {
		return nil, fmt.Errorf("snapshot: unknown codec %q", h.Codec)
	}

	raw := payload
	if h.Compression != CompressionNone {
		raw, err = compress.DecodeAll(payload, h.Compression)
		if err != nil {
			return nil, fmt.Errorf("%w: decompress: %v", ErrCorrupt, err)
		}
	}
	if uint64(len(raw)) != h.UncompressedSize {
		return nil, fmt.Errorf("%w: payload is %d bytes, header says %d", ErrCorrupt, len(raw), h.UncompressedSize)
	}

	var m Model
	if err := c.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("snapshot: decode %s: %w", h.Codec, err)
	}
	return &m, nil
}

// Encode writes m to w through the controller's I/O limiter.
func Encode(ctx context.Context, w io.Writer, m *Model, opts Options) error {
	data, err := Marshal(m, opts)
	if err != nil {
		return err
	}
	_, err = resource.NewRateLimitedWriter(ctx, w, opts.Controller).Write(data)
	return err
}

// Decode reads a whole snapshot from r through the controller's I/O limiter.
func Decode(ctx context.Context, r io.Reader, opts Options) (*Model, error) {
	data, err := io.ReadAll(resource.NewRateLimitedReader(ctx, r, opts.Controller))
	if err != nil {
		return nil, fmt.Errorf("snapshot: read: %w", err)
	}
	return Unmarshal(data)
}

// Name returns the blob name for a run id.
func Name(runID string) string {
	return Prefix + runID + Ext
}

// Save writes m under Name(m.Metadata.RunID) and then points
// blobstore.PointerName at it. It returns the blob name.
func Save(ctx context.Context, store blobstore.BlobStore, m *Model, opts Options) (string, error) {
	if m == nil || m.Metadata.RunID == "" {
		return "", errors.New("snapshot: model needs a run id")
	}

	var buf bytes.Buffer
	if err := Encode(ctx, &buf, m, opts); err != nil {
		return "", err
	}

	name := Name(m.Metadata.RunID)
	if err := store.Put(ctx, name, buf.Bytes()); err != nil {
		return "", fmt.Errorf("snapshot: put %s: %w", name, err)
	}
	if err := store.Put(ctx, blobstore.PointerName, []byte(name)); err != nil {
		return "", fmt.Errorf("snapshot: update %s: %w", blobstore.PointerName, err)
	}
	return name, nil
}

// Current returns the blob name the pointer refers to.
func Current(ctx context.Context, store blobstore.BlobStore) (string, error) {
	data, err := blobstore.ReadAll(ctx, store, blobstore.PointerName)
	if err != nil {
		return "", fmt.Errorf("snapshot: read %s: %w", blobstore.PointerName, err)
	}
	name := strings.TrimSpace(string(data))
	if name == "" {
		return "", fmt.Errorf("%w: empty %s", ErrCorrupt, blobstore.PointerName)
	}
	return name, nil
}

// Load reads the model blobstore.PointerName refers to.
func Load(ctx context.Context, store blobstore.BlobStore, opts Options) (*Model, error) {
	name, err := Current(ctx, store)
	if err != nil {
		return nil, err
	}
	return LoadNamed(ctx, store, name, opts)
}

// LoadNamed reads the model stored under name.
func LoadNamed(ctx context.Context, store blobstore.BlobStore, name string, opts Options) (*Model, error) {
	data, err := blobstore.ReadAll(ctx, store, name)
	if err != nil {
		return nil, fmt.Errorf("snapshot: read %s: %w", name, err)
	}
	m, err := Decode(ctx, bytes.NewReader(data), opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return m, nil
}

// List returns the run ids of all saved models, sorted by blob name.
func List(ctx context.Context, store blobstore.BlobStore) ([]string, error) {
	names, err := store.List(ctx, Prefix)
	if err != nil {
		return nil, fmt.Errorf("snapshot: list: %w", err)
	}
	ids := make([]string, 0, len(names))
	for _, n := range names {
		if path.Ext(n) != Ext {
			continue
		}
		ids = append(ids, strings.TrimSuffix(strings.TrimPrefix(n, Prefix), Ext))
	}
	return ids, nil
}
