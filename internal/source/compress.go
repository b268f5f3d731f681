package source

import (
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"

	"github.com/surstitch/leadboard/internal/leads"
)

// Compression is the codec a dataset or export file is wrapped in.
type Compression string

// Supported codecs.
const (
	CompressNone Compression = "none"
	CompressGzip Compression = "gzip"
	CompressZstd Compression = "zstd"
)

// ParseCompression accepts none, gzip and zstd (and their file extensions).
// Empty means none.
func ParseCompression(s string) (Compression, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return CompressNone, nil
	case "gzip", "gz":
		return CompressGzip, nil
	case "zstd", "zst":
		return CompressZstd, nil
	default:
		return CompressNone, fmt.Errorf("unknown compression %q: want none|gzip|zstd", s)
	}
}

// CompressionFor picks the codec from the extension of a file path or of
// the path component of a URL.
func CompressionFor(name string) Compression {
	if u, err := url.Parse(name); err == nil && u.Scheme != "" && u.Host != "" {
		name = u.Path
	}
	lower := strings.ToLower(name)
	switch {
	case strings.HasSuffix(lower, ".gz"), strings.HasSuffix(lower, ".gzip"):
		return CompressGzip
	case strings.HasSuffix(lower, ".zst"), strings.HasSuffix(lower, ".zstd"):
		return CompressZstd
	default:
		return CompressNone
	}
}

// Extension returns the file suffix of c, including the dot, or "".
func (c Compression) Extension() string {
	switch c {
	case CompressGzip:
		return ".gz"
	case CompressZstd:
		return ".zst"
	default:
		return ""
	}
}

// NewReader wraps r in a decompressor for c. The caller closes the result;
// closing it does not close r.
func NewReader(r io.Reader, c Compression) (io.ReadCloser, error) {
	switch c {
	case CompressGzip:
		zr, err := gzip.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("gzip: %w", err)
		}
		return zr, nil
	case CompressZstd:
		dec, err := zstd.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("zstd: %w", err)
		}
		return dec.IOReadCloser(), nil
	default:
		return io.NopCloser(r), nil
	}
}

// NewWriter wraps w in a compressor for c. Close flushes the codec but does
// not close w.
func NewWriter(w io.Writer, c Compression) (io.WriteCloser, error) {
	switch c {
	case CompressGzip:
		return gzip.NewWriter(w), nil
	case CompressZstd:
		enc, err := zstd.NewWriter(w)
		if err != nil {
			return nil, fmt.Errorf("zstd: %w", err)
		}
		return enc, nil
	default:
		return nopWriteCloser{w}, nil
	}
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

// LoadFile reads a CSV dataset from path, decompressing .gz and .zst files.
func LoadFile(path string, schema leads.Schema) (*leads.Table, error) {
	c := CompressionFor(path)
	if c == CompressNone {
		return leads.LoadFile(path, schema)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("leads: open %q: %w", path, err)
	}
	defer f.Close()

	r, err := NewReader(f, c)
	if err != nil {
		return nil, fmt.Errorf("leads: %w: %q: %v", leads.ErrMalformed, path, err)
	}
	defer r.Close()
	return leads.Load(r, schema)
}

// WriteFile writes ds as CSV to path, compressed by the path extension.
func WriteFile(path string, ds leads.Dataset) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Write(f, ds, CompressionFor(path)); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Write encodes ds as CSV to w through codec c.
func Write(w io.Writer, ds leads.Dataset, c Compression) error {
	cw, err := NewWriter(w, c)
	if err != nil {
		return err
	}
	if err := leads.WriteCSV(cw, ds); err != nil {
		cw.Close()
		return err
	}
	return cw.Close()
}
