package backup

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/zstd"
	"github.com/kjk/journal/config"
)

// Ext returns file extension of a snapshot compressed with compression
func Ext(compression string) string {
	if compression == config.CompressionBrotli {
		return ".tar.br"
	}
	return ".tar.zst"
}

func compressionFromPath(path string) (string, error) {
	switch {
	case strings.HasSuffix(path, ".tar.zst"):
		return config.CompressionZstd, nil
	case strings.HasSuffix(path, ".tar.br"):
		return config.CompressionBrotli, nil
	}
	return "", fmt.Errorf("backup: '%s' is not a .tar.zst or .tar.br file", path)
}

func newCompressWriter(w io.Writer, compression string) (io.WriteCloser, error) {
	switch compression {
	case config.CompressionBrotli:
		return brotli.NewWriterLevel(w, brotli.DefaultCompression), nil
	case config.CompressionZstd, "":
		// zstd.SpeedBestCompression is much slower and not much better
		return zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
	}
	return nil, fmt.Errorf("backup: unknown compression '%s'", compression)
}

type readCloser struct {
	io.Reader
	close func() error
}

func (rc *readCloser) Close() error {
	return rc.close()
}

// openDecompressed opens a snapshot and returns a reader of
// uncompressed data
func openDecompressed(path string) (io.ReadCloser, error) {
	compression, err := compressionFromPath(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	if compression == config.CompressionBrotli {
		return &readCloser{Reader: brotli.NewReader(f), close: f.Close}, nil
	}
	zr, err := zstd.NewReader(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	return &readCloser{Reader: zr, close: func() error {
		zr.Close()
		return f.Close()
	}}, nil
}
