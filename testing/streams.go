package testing

import (
	"bytes"
	"io"
	"testing"

	"github.com/dargueta/blockpress"
	"github.com/noxer/bytewriter"
	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/bytesextra"
)

// NewSeekableBuffer returns a stream over a copy of `data`.
//
//   - Writes to the stream do not affect `data`.
//   - While the stream can be written to, its size is fixed to `len(data)`.
//     Attempting to write past the end of this buffer will trigger an error.
func NewSeekableBuffer(data []byte) io.ReadWriteSeeker {
	buffer := make([]byte, len(data))
	copy(buffer, data)
	return bytesextra.NewReadWriteSeeker(buffer)
}

// CompressIntoFixedBuffer runs `compressor` over `data`, writing into a buffer
// of exactly `capacity` bytes, and returns the used part of the buffer. It
// fails the test if the compressor errors out or reports a size that doesn't
// fit.
func CompressIntoFixedBuffer(
	t *testing.T, compressor blockpress.Compressor, data []byte, capacity int,
) []byte {
	buffer := make([]byte, capacity)
	writer := bytewriter.New(buffer)

	n, err := compressor.Compress(bytes.NewReader(data), writer)
	require.NoErrorf(t, err, "%s failed to compress %d bytes", compressor.Name(), len(data))
	require.LessOrEqual(t, n, int64(capacity), "compressed size exceeds buffer")
	return buffer[:n]
}
