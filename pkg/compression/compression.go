package compression

import (
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"
)

// Compressor wraps a stream in one compression format.
type Compressor interface {
	Compress(w io.Writer) (io.WriteCloser, error)
	Uncompress(r io.Reader) (io.Reader, error)
	// Extension is appended to artifact names, including the dot.
	Extension() string
}

// GetCompressor returns the compressor for a format name.
func GetCompressor(name string) (Compressor, error) {
	switch strings.ToLower(name) {
	case "gzip", "gz":
		return &GzipCompressor{}, nil
	case "zstd", "zst":
		return &ZstdCompressor{}, nil
	case "xz":
		return &XzCompressor{}, nil
	case "none", "":
		return &NoCompressor{}, nil
	default:
		return nil, fmt.Errorf("unknown compression format: %s", name)
	}
}

// Detect picks a compressor from a file name suffix, falling back to none.
func Detect(filename string) Compressor {
	lower := strings.ToLower(filename)
	switch {
	case strings.HasSuffix(lower, ".gz"), strings.HasSuffix(lower, ".gzip"):
		return &GzipCompressor{}
	case strings.HasSuffix(lower, ".zst"), strings.HasSuffix(lower, ".zstd"):
		return &ZstdCompressor{}
	case strings.HasSuffix(lower, ".xz"):
		return &XzCompressor{}
	default:
		return &NoCompressor{}
	}
}

type GzipCompressor struct{}

func (c *GzipCompressor) Compress(w io.Writer) (io.WriteCloser, error) {
	return gzip.NewWriter(w), nil
}

func (c *GzipCompressor) Uncompress(r io.Reader) (io.Reader, error) {
	return gzip.NewReader(r)
}

func (c *GzipCompressor) Extension() string { return ".gz" }

type ZstdCompressor struct{}

func (c *ZstdCompressor) Compress(w io.Writer) (io.WriteCloser, error) {
	return zstd.NewWriter(w)
}

func (c *ZstdCompressor) Uncompress(r io.Reader) (io.Reader, error) {
	d, err := zstd.NewReader(r)
	if err != nil {
		return nil, err
	}
	return &zstdReader{d: d}, nil
}

// zstdReader releases the decoder goroutines once the stream ends or on
// Close, whichever comes first.
type zstdReader struct {
	d      *zstd.Decoder
	closed bool
}

func (z *zstdReader) Read(p []byte) (int, error) {
	if z.closed {
		return 0, io.ErrClosedPipe
	}
	n, err := z.d.Read(p)
	if err != nil {
		z.Close()
	}
	return n, err
}

func (z *zstdReader) Close() error {
	if !z.closed {
		z.closed = true
		z.d.Close()
	}
	return nil
}

func (c *ZstdCompressor) Extension() string { return ".zst" }

type XzCompressor struct{}

func (c *XzCompressor) Compress(w io.Writer) (io.WriteCloser, error) {
	return xz.NewWriter(w)
}

func (c *XzCompressor) Uncompress(r io.Reader) (io.Reader, error) {
	return xz.NewReader(r)
}

func (c *XzCompressor) Extension() string { return ".xz" }

// NoCompressor passes data through unchanged.
type NoCompressor struct{}

func (c *NoCompressor) Compress(w io.Writer) (io.WriteCloser, error) {
	return nopWriteCloser{w}, nil
}

func (c *NoCompressor) Uncompress(r io.Reader) (io.Reader, error) {
	return r, nil
}

func (c *NoCompressor) Extension() string { return "" }

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }
