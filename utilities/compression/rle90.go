package compression

import (
	"bufio"
	"errors"
	"io"

	"github.com/dargueta/blockpress"
)

// rle90Marker introduces a repeat count. The marker itself is written as the
// two bytes 90 00.
const rle90Marker = 0x90

// maxRLE90Repeat is the most extra copies one marker can express.
const maxRLE90Repeat = 255

// RLE90 is the run-length encoding used by BinHex and a number of CP/M era
// archivers. The sequence `90 n` with n > 0 repeats the previous byte n more
// times, and `90 00` is a literal 0x90 byte.
type RLE90 struct{}

func (RLE90) Name() string { return "rle90" }

func (RLE90) Compress(input io.Reader, output io.Writer) (int64, error) {
	return compressWith(input, output, func(w io.Writer) (io.WriteCloser, error) {
		return NewRLE90Writer(w), nil
	})
}

func (c RLE90) Decompress(input io.Reader, output io.Writer) (int64, error) {
	n, err := io.Copy(output, NewRLE90Reader(input))
	return n, decompressionFailed(c.Name(), err)
}

////////////////////////////////////////////////////////////////////////////////

// RLE90Reader expands RLE90-encoded data from an underlying stream.
type RLE90Reader struct {
	stream *bufio.Reader
	// lastByte is only meaningful when haveLastByte is set.
	lastByte     byte
	haveLastByte bool
	// remainingRepeatCount is how many copies of lastByte have been decoded
	// but not yet returned.
	remainingRepeatCount int
}

// NewRLE90Reader returns a reader that decompresses RLE90-encoded data from
// `rd`.
func NewRLE90Reader(rd io.Reader) *RLE90Reader {
	return &RLE90Reader{stream: bufio.NewReader(rd)}
}

func (reader *RLE90Reader) Read(p []byte) (int, error) {
	numBytesRead := 0

	for numBytesRead < len(p) {
		if reader.remainingRepeatCount > 0 {
			p[numBytesRead] = reader.lastByte
			numBytesRead++
			reader.remainingRepeatCount--
			continue
		}

		nextByte, err := reader.stream.ReadByte()
		if err != nil {
			// EOF between groups is a normal end of stream. Only return it
			// once the caller has everything we decoded.
			if errors.Is(err, io.EOF) && numBytesRead > 0 {
				return numBytesRead, nil
			}
			return numBytesRead, err
		}

		if nextByte != rle90Marker {
			reader.lastByte = nextByte
			reader.haveLastByte = true
			p[numBytesRead] = nextByte
			numBytesRead++
			continue
		}

		repeatCount, err := reader.stream.ReadByte()
		if err != nil {
			if errors.Is(err, io.EOF) {
				err = io.ErrUnexpectedEOF
			}
			return numBytesRead, err
		}

		if repeatCount == 0 {
			reader.lastByte = rle90Marker
			reader.haveLastByte = true
			p[numBytesRead] = rle90Marker
			numBytesRead++
		} else if !reader.haveLastByte {
			return numBytesRead, blockpress.ErrInvalidArgument.WithMessage(
				"RLE90 stream starts with a repeat count")
		} else {
			reader.remainingRepeatCount = int(repeatCount)
		}
	}
	return numBytesRead, nil
}

////////////////////////////////////////////////////////////////////////////////

// RLE90Writer compresses data written to it with RLE90. Runs are only written
// out once they end, so Close must be called to get the last one.
type RLE90Writer struct {
	stream io.Writer
	// lastByte is -1 if nothing has been written yet.
	lastByte          int
	lastByteRunLength int
}

func NewRLE90Writer(stream io.Writer) *RLE90Writer {
	return &RLE90Writer{stream: stream, lastByte: -1}
}

// Write buffers the current run and emits any runs `p` completes.
func (writer *RLE90Writer) Write(p []byte) (int, error) {
	for i, nextByte := range p {
		if int(nextByte) == writer.lastByte {
			writer.lastByteRunLength++
			continue
		}

		if err := writer.Flush(); err != nil {
			return i, err
		}
		writer.lastByte = int(nextByte)
		writer.lastByteRunLength = 1
	}
	return len(p), nil
}

// Flush writes out the run in progress.
func (writer *RLE90Writer) Flush() error {
	if writer.lastByte < 0 {
		return nil
	}

	value := byte(writer.lastByte)
	encoded := make([]byte, 0, 8)
	if value == rle90Marker {
		encoded = append(encoded, rle90Marker, 0)
	} else {
		encoded = append(encoded, value)
	}

	// Short runs of ordinary bytes are cheaper spelled out than as a marker,
	// but the marker byte costs two bytes either way.
	extra := writer.lastByteRunLength - 1
	if value != rle90Marker && extra <= 2 {
		for ; extra > 0; extra-- {
			encoded = append(encoded, value)
		}
	}
	for extra > 0 {
		count := extra
		if count > maxRLE90Repeat {
			count = maxRLE90Repeat
		}
		encoded = append(encoded, rle90Marker, byte(count))
		extra -= count
	}

	writer.lastByte = -1
	writer.lastByteRunLength = 0
	_, err := writer.stream.Write(encoded)
	return err
}

// Close flushes the final run. It doesn't close the underlying stream.
func (writer *RLE90Writer) Close() error {
	return writer.Flush()
}
