package compression

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/dargueta/blockpress"
	"github.com/klauspost/compress/gzip"
)

// countingWriter passes writes through to an underlying stream and keeps track
// of how many bytes made it.
type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

// decompressionFailed wraps a decoder error so that it can be matched against
// [blockpress.ErrCompressorFailure] and the original cause.
func decompressionFailed(name string, err error) error {
	if err == nil {
		return nil
	}
	return blockpress.ErrCompressorFailure.Wrap(
		fmt.Errorf("%s decompression: %w", name, err),
	)
}

// CompressImage compresses data using RLE8 and gzip.
//
// The returned int64 gives the number of bytes written to the output stream. If
// an error occurred, the value is undefined and should not be used.
func CompressImage(input io.Reader, output io.Writer) (int64, error) {
	counter := &countingWriter{w: output}

	// The highest gzip level costs little extra here; inputs are a few KiB.
	gzWriter, err := gzip.NewWriterLevel(counter, gzip.BestCompression)
	if err != nil {
		return 0, err
	}

	_, err = CompressRLE8(input, gzWriter)
	if err != nil {
		gzWriter.Close()
		return counter.n, err
	}
	err = gzWriter.Close()
	return counter.n, err
}

// DecompressImage takes gzipped, RLE8-encoded data and decompresses it to the
// original raw bytes.
//
// The returned int64 gives the number of bytes written to the output (i.e. the
// decompressed size). If an error occurred, the value is undefined and should
// not be used.
func DecompressImage(input io.Reader, output io.Writer) (int64, error) {
	gzReader, err := gzip.NewReader(input)
	if err != nil {
		return 0, decompressionFailed("rle8-gzip", err)
	}
	defer gzReader.Close()

	n, err := DecompressRLE8(gzReader, output)
	return n, decompressionFailed("rle8-gzip", err)
}

// DecompressImageToBytes is a convenience wrapper around [DecompressImage] that
// returns the decompressed data in a new byte slice.
func DecompressImageToBytes(input io.Reader) ([]byte, error) {
	buffer := bytes.NewBuffer([]byte{})
	_, err := DecompressImage(input, buffer)
	if err != nil {
		return nil, err
	}
	return buffer.Bytes(), nil
}

////////////////////////////////////////////////////////////////////////////////
// Registry

var registry = map[string]func() blockpress.Compressor{
	"none":      func() blockpress.Compressor { return Identity{} },
	"zlib":      func() blockpress.Compressor { return Zlib{} },
	"gzip":      func() blockpress.Compressor { return Gzip{} },
	"deflate":   func() blockpress.Compressor { return Deflate{} },
	"zstd":      func() blockpress.Compressor { return Zstd{} },
	"lz4":       func() blockpress.Compressor { return LZ4{} },
	"xz":        func() blockpress.Compressor { return XZ{} },
	"rle8":      func() blockpress.Compressor { return RLE8{} },
	"rle8-gzip": func() blockpress.Compressor { return RLE8Gzip{} },
	"rle90":     func() blockpress.Compressor { return RLE90{} },
}

// aliases are extra names accepted by [Parse] but not reported by [Names].
var aliases = map[string]string{
	"lzma": "xz",
}

// Names returns the canonical names of all known compressors, sorted.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Parse looks up a compressor by name or alias.
func Parse(name string) (blockpress.Compressor, error) {
	name = strings.TrimSpace(name)
	if canonical, ok := aliases[name]; ok {
		name = canonical
	}

	constructor, ok := registry[name]
	if !ok {
		return nil, blockpress.ErrUnknownStrategy.WithMessage(
			fmt.Sprintf("no compressor named %q", name),
		)
	}
	return constructor(), nil
}

// CompressBytes runs `compressor` over an in-memory buffer.
func CompressBytes(compressor blockpress.Compressor, data []byte) ([]byte, error) {
	buffer := bytes.NewBuffer(make([]byte, 0, len(data)))
	_, err := compressor.Compress(bytes.NewReader(data), buffer)
	if err != nil {
		return nil, err
	}
	return buffer.Bytes(), nil
}

// DecompressBytes is the inverse of [CompressBytes].
func DecompressBytes(compressor blockpress.Compressor, data []byte) ([]byte, error) {
	buffer := bytes.NewBuffer(make([]byte, 0, len(data)))
	_, err := compressor.Decompress(bytes.NewReader(data), buffer)
	if err != nil {
		return nil, err
	}
	return buffer.Bytes(), nil
}
