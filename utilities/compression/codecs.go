package compression

import (
	"io"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"github.com/ulikunitz/xz"
)

// xzDictionarySize is far larger than anything we compress, so the whole input
// always fits in the window.
const xzDictionarySize = 1 << 20

// compressWith copies `input` through the encoder `newEncoder` wraps around
// `output`, and returns the number of compressed bytes written.
func compressWith(
	input io.Reader,
	output io.Writer,
	newEncoder func(io.Writer) (io.WriteCloser, error),
) (int64, error) {
	counter := &countingWriter{w: output}
	encoder, err := newEncoder(counter)
	if err != nil {
		return 0, err
	}

	if _, err = io.Copy(encoder, input); err != nil {
		encoder.Close()
		return counter.n, err
	}
	// Close flushes the final frame, so the count isn't complete before this.
	err = encoder.Close()
	return counter.n, err
}

// decompressWith copies the output of the decoder `newDecoder` wraps around
// `input` to `output`. Errors from the decoder are reported as compressor
// failures.
func decompressWith(
	name string,
	input io.Reader,
	output io.Writer,
	newDecoder func(io.Reader) (io.ReadCloser, error),
) (int64, error) {
	decoder, err := newDecoder(input)
	if err != nil {
		return 0, decompressionFailed(name, err)
	}
	defer decoder.Close()

	n, err := io.Copy(output, decoder)
	return n, decompressionFailed(name, err)
}

// Identity copies its input unchanged.
type Identity struct{}

func (Identity) Name() string { return "none" }

func (Identity) Compress(input io.Reader, output io.Writer) (int64, error) {
	return io.Copy(output, input)
}

func (Identity) Decompress(input io.Reader, output io.Writer) (int64, error) {
	return io.Copy(output, input)
}

// Zlib is DEFLATE with the zlib header and Adler-32 trailer.
type Zlib struct{}

func (Zlib) Name() string { return "zlib" }

func (Zlib) Compress(input io.Reader, output io.Writer) (int64, error) {
	return compressWith(input, output, func(w io.Writer) (io.WriteCloser, error) {
		return zlib.NewWriterLevel(w, zlib.BestCompression)
	})
}

func (c Zlib) Decompress(input io.Reader, output io.Writer) (int64, error) {
	return decompressWith(c.Name(), input, output, zlib.NewReader)
}

type Gzip struct{}

func (Gzip) Name() string { return "gzip" }

func (Gzip) Compress(input io.Reader, output io.Writer) (int64, error) {
	return compressWith(input, output, func(w io.Writer) (io.WriteCloser, error) {
		return gzip.NewWriterLevel(w, gzip.BestCompression)
	})
}

func (c Gzip) Decompress(input io.Reader, output io.Writer) (int64, error) {
	return decompressWith(c.Name(), input, output, func(r io.Reader) (io.ReadCloser, error) {
		return gzip.NewReader(r)
	})
}

// Deflate is raw DEFLATE with no framing at all, the smallest of the three
// DEFLATE variants.
type Deflate struct{}

func (Deflate) Name() string { return "deflate" }

func (Deflate) Compress(input io.Reader, output io.Writer) (int64, error) {
	return compressWith(input, output, func(w io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(w, flate.BestCompression)
	})
}

func (c Deflate) Decompress(input io.Reader, output io.Writer) (int64, error) {
	return decompressWith(c.Name(), input, output, func(r io.Reader) (io.ReadCloser, error) {
		return flate.NewReader(r), nil
	})
}

type Zstd struct{}

func (Zstd) Name() string { return "zstd" }

func (Zstd) Compress(input io.Reader, output io.Writer) (int64, error) {
	return compressWith(input, output, func(w io.Writer) (io.WriteCloser, error) {
		return zstd.NewWriter(
			w,
			zstd.WithEncoderLevel(zstd.SpeedBestCompression),
			zstd.WithEncoderConcurrency(1),
		)
	})
}

func (c Zstd) Decompress(input io.Reader, output io.Writer) (int64, error) {
	return decompressWith(c.Name(), input, output, func(r io.Reader) (io.ReadCloser, error) {
		decoder, err := zstd.NewReader(r, zstd.WithDecoderConcurrency(1))
		if err != nil {
			return nil, err
		}
		return decoder.IOReadCloser(), nil
	})
}

// LZ4 writes standard LZ4 frames at the highest compression level.
type LZ4 struct{}

func (LZ4) Name() string { return "lz4" }

func (LZ4) Compress(input io.Reader, output io.Writer) (int64, error) {
	return compressWith(input, output, func(w io.Writer) (io.WriteCloser, error) {
		writer := lz4.NewWriter(w)
		if err := writer.Apply(lz4.CompressionLevelOption(lz4.Level9)); err != nil {
			return nil, err
		}
		return writer, nil
	})
}

func (c LZ4) Decompress(input io.Reader, output io.Writer) (int64, error) {
	return decompressWith(c.Name(), input, output, func(r io.Reader) (io.ReadCloser, error) {
		return io.NopCloser(lz4.NewReader(r)), nil
	})
}

// XZ is LZMA2 in the .xz container. It's also registered as "lzma".
type XZ struct{}

func (XZ) Name() string { return "xz" }

func (XZ) Compress(input io.Reader, output io.Writer) (int64, error) {
	return compressWith(input, output, func(w io.Writer) (io.WriteCloser, error) {
		return xz.WriterConfig{DictCap: xzDictionarySize}.NewWriter(w)
	})
}

func (c XZ) Decompress(input io.Reader, output io.Writer) (int64, error) {
	return decompressWith(c.Name(), input, output, func(r io.Reader) (io.ReadCloser, error) {
		reader, err := xz.NewReader(r)
		if err != nil {
			return nil, err
		}
		return io.NopCloser(reader), nil
	})
}
