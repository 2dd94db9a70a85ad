// Package codec wraps output streams in an optional compression layer.
//
// The codec name is recorded in the run manifest and selects the suffix
// appended to each output file name, so readers can pick the decoder
// from the extension alone.
package codec

import (
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// ErrUnknown is returned by ByName for unsupported codec names.
var ErrUnknown = errors.New("codec: unknown codec")

// Codec compresses an output stream.
type Codec interface {
	// Wrap returns a writer that compresses into w. Closing it flushes
	// the compressed stream but does not close w.
	Wrap(w io.Writer) (io.WriteCloser, error)
	// Ext is the suffix appended to file names, empty for None.
	Ext() string
	Name() string
}

// ByName returns a built-in codec by its stable name.
func ByName(name string) (Codec, error) {
	switch name {
	case "", "none":
		return None{}, nil
	case "gzip":
		return Gzip{Level: gzip.DefaultCompression}, nil
	case "zstd":
		return Zstd{Level: zstd.SpeedDefault}, nil
	case "lz4":
		return LZ4{}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknown, name)
}

// None passes bytes through unchanged.
type None struct{}

type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error { return nil }

func (None) Wrap(w io.Writer) (io.WriteCloser, error) { return nopCloser{w}, nil }
func (None) Ext() string                              { return "" }
func (None) Name() string                             { return "none" }

// Gzip compresses with klauspost's gzip implementation.
type Gzip struct {
	Level int
}

func (g Gzip) Wrap(w io.Writer) (io.WriteCloser, error) {
	return gzip.NewWriterLevel(w, g.Level)
}
func (Gzip) Ext() string  { return ".gz" }
func (Gzip) Name() string { return "gzip" }

// Zstd compresses with zstd.
type Zstd struct {
	Level zstd.EncoderLevel
}

func (z Zstd) Wrap(w io.Writer) (io.WriteCloser, error) {
	return zstd.NewWriter(w, zstd.WithEncoderLevel(z.Level))
}
func (Zstd) Ext() string  { return ".zst" }
func (Zstd) Name() string { return "zstd" }

// LZ4 writes the lz4 frame format.
type LZ4 struct{}

func (LZ4) Wrap(w io.Writer) (io.WriteCloser, error) {
	return lz4.NewWriter(w), nil
}
func (LZ4) Ext() string  { return ".lz4" }
func (LZ4) Name() string { return "lz4" }

// Encode runs write against a compressed view of dst and closes the
// compressor.
func Encode(c Codec, dst io.Writer, write func(io.Writer) error) error {
	zw, err := c.Wrap(dst)
	if err != nil {
		return fmt.Errorf("codec %s: %w", c.Name(), err)
	}
	if err := write(zw); err != nil {
		_ = zw.Close()
		return err
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("codec %s: %w", c.Name(), err)
	}
	return nil
}
