package fileloader

import (
	"bytes"
	"compress/bzip2"
	"compress/gzip"
	"fmt"
	"io"
	"os"

	"github.com/ulikunitz/xz"
)

// CompressionType represents the compression format of a file
type CompressionType int

const (
	CompressionNone CompressionType = iota
	CompressionGzip
	CompressionBzip2
	CompressionXZ
)

// String returns the string representation of CompressionType
func (ct CompressionType) String() string {
	switch ct {
	case CompressionGzip:
		return "gzip"
	case CompressionBzip2:
		return "bzip2"
	case CompressionXZ:
		return "xz"
	default:
		return "none"
	}
}

var (
	gzipMagic  = []byte{0x1f, 0x8b}
	bzip2Magic = []byte{0x42, 0x5a, 0x68} // "BZh"
	xzMagic    = []byte{0xfd, 0x37, 0x7a, 0x58, 0x5a, 0x00}
)

// DecompressionResult contains the decompressed data and any warning
type DecompressionResult struct {
	Data    []byte
	Warning string // Non-empty if decompression was incomplete
}

// DetectCompression inspects the leading bytes of a file
func DetectCompression(header []byte) CompressionType {
	switch {
	case bytes.HasPrefix(header, gzipMagic):
		return CompressionGzip
	case bytes.HasPrefix(header, bzip2Magic):
		return CompressionBzip2
	case bytes.HasPrefix(header, xzMagic):
		return CompressionXZ
	}
	return CompressionNone
}

// DetectCompressionByMagic reads the first bytes of a file and detects its compression
func DetectCompressionByMagic(filePath string) (CompressionType, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return CompressionNone, err
	}
	defer f.Close()

	// XZ has the longest magic
	header := make([]byte, len(xzMagic))
	n, err := io.ReadFull(f, header)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return CompressionNone, err
	}
	return DetectCompression(header[:n]), nil
}

// newDecompressor wraps r in a reader for the given compression
func newDecompressor(r io.Reader, ct CompressionType) (io.Reader, error) {
	switch ct {
	case CompressionNone:
		return r, nil
	case CompressionGzip:
		gz, err := gzip.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("failed to create gzip reader: %w", err)
		}
		return gz, nil
	case CompressionBzip2:
		return bzip2.NewReader(r), nil
	case CompressionXZ:
		xr, err := xz.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("failed to create xz reader: %w", err)
		}
		return xr, nil
	}
	return nil, fmt.Errorf("unsupported compression type: %v", ct)
}

// Decompress reads all of r through the given compression. A stream that
// breaks off after producing data yields the partial data and a warning.
func Decompress(r io.Reader, ct CompressionType) (*DecompressionResult, error) {
	reader, err := newDecompressor(r, ct)
	if err != nil {
		return nil, err
	}
	if c, ok := reader.(io.Closer); ok {
		defer c.Close()
	}

	var buf bytes.Buffer
	_, copyErr := io.Copy(&buf, reader)
	result := &DecompressionResult{Data: buf.Bytes()}
	if copyErr != nil {
		if len(result.Data) == 0 {
			return nil, fmt.Errorf("decompression failed: %w", copyErr)
		}
		result.Warning = fmt.Sprintf("Decompression incomplete: %v. Some data may be missing.", copyErr)
	}
	return result, nil
}

// DecompressFile reads a file, decompressing it when ct is not CompressionNone
func DecompressFile(filePath string, ct CompressionType) (*DecompressionResult, error) {
	if ct == CompressionNone {
		data, err := os.ReadFile(filePath)
		if err != nil {
			return nil, err
		}
		return &DecompressionResult{Data: data}, nil
	}

	f, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Decompress(f, ct)
}
