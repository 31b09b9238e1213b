package compression_test

import (
	"bytes"
	"io"
	"testing"

	"github.com/dargueta/blockpress"
	c "github.com/dargueta/blockpress/utilities/compression"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type rawExpectedEntry struct {
	Name     string
	Raw      []byte
	Expected []byte
}

var basicRLE90ReadTests = []rawExpectedEntry{
	{Name: "NothingRepeated", Raw: []byte{0, 0x91, 0x23, 0x4f, 0}, Expected: []byte{0, 0x91, 0x23, 0x4f, 0}},
	{Name: "RepeatedNotCompressed", Raw: []byte{0xff, 0xff, 0xff}, Expected: []byte{0xff, 0xff, 0xff}},
	{Name: "Basic", Raw: []byte{0xff, 0x90, 0x05}, Expected: []byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}},
	{Name: "BasicWithSurroundingData", Raw: []byte{0xe0, 0xff, 0x90, 0x05, 0x09}, Expected: []byte{0xe0, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0x09}},
	{Name: "EmptyOk", Raw: []byte{}, Expected: []byte{}},
	{Name: "ConsecutiveSame", Raw: []byte{0xe0, 0xff, 0x90, 0x02, 0x90, 0x03, 0x10}, Expected: []byte{0xe0, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0x10}},
	{Name: "ConsecutiveDifferent", Raw: []byte{0xe0, 0xff, 0x90, 0x03, 0x7a, 0x90, 0x04, 0x10}, Expected: []byte{0xe0, 0xff, 0xff, 0xff, 0xff, 0x7a, 0x7a, 0x7a, 0x7a, 0x7a, 0x10}},
	{Name: "Expand 0x90", Raw: []byte{0xe0, 0xff, 0x90, 0x05, 0x90, 0x00, 0x90, 0x02, 0xab}, Expected: []byte{0xe0, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0x90, 0x90, 0x90, 0xab}},
}

func TestRLE90Read__Basic(t *testing.T) {
	for _, test := range basicRLE90ReadTests {
		t.Run(
			test.Name,
			func(t *testing.T) {
				output, err := io.ReadAll(c.NewRLE90Reader(bytes.NewReader(test.Raw)))
				require.NoError(t, err)
				assert.Equal(t, test.Expected, append([]byte{}, output...))
			},
		)
	}
}

func TestRLE90Read__TinyBuffer(t *testing.T) {
	// Reading one byte at a time has to carry a pending repeat across calls.
	reader := c.NewRLE90Reader(bytes.NewReader([]byte{0x41, 0x90, 0x04, 0x42}))

	var output []byte
	buffer := make([]byte, 1)
	for {
		n, err := reader.Read(buffer)
		output = append(output, buffer[:n]...)
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
	}
	assert.Equal(t, []byte("AAAAAB"), output)
}

func TestRLE90Read__ShortReadEmptyBuffer(t *testing.T) {
	reader := c.NewRLE90Reader(bytes.NewReader([]byte{}))

	output := make([]byte, 128)
	numRead, err := reader.Read(output)
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, 0, numRead)
}

func TestRLE90Read__MarkerAtEnd(t *testing.T) {
	_, err := io.ReadAll(c.NewRLE90Reader(bytes.NewReader([]byte{0x12, 0x90})))
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestRLE90Read__StartsWithRepeat(t *testing.T) {
	_, err := io.ReadAll(c.NewRLE90Reader(bytes.NewReader([]byte{0x90, 0x03, 0x12})))
	assert.ErrorIs(t, err, blockpress.ErrInvalidArgument)
}

func TestRLE90Write(t *testing.T) {
	tests := []rawExpectedEntry{
		{Name: "empty", Raw: []byte{}, Expected: []byte{}},
		{Name: "no runs", Raw: []byte{1, 2, 3}, Expected: []byte{1, 2, 3}},
		{Name: "short run spelled out", Raw: []byte{7, 7, 7}, Expected: []byte{7, 7, 7}},
		{Name: "run", Raw: []byte{7, 7, 7, 7, 7, 1}, Expected: []byte{7, 0x90, 4, 1}},
		{Name: "marker literal", Raw: []byte{0x90}, Expected: []byte{0x90, 0}},
		{Name: "marker run", Raw: []byte{0x90, 0x90, 0x90}, Expected: []byte{0x90, 0, 0x90, 2}},
		{
			Name:     "long run",
			Raw:      bytes.Repeat([]byte{3}, 300),
			Expected: []byte{3, 0x90, 255, 0x90, 44},
		},
	}

	for _, test := range tests {
		t.Run(
			test.Name,
			func(t *testing.T) {
				var output bytes.Buffer
				writer := c.NewRLE90Writer(&output)
				n, err := writer.Write(test.Raw)
				require.NoError(t, err)
				assert.Equal(t, len(test.Raw), n)
				require.NoError(t, writer.Close())
				assert.Equal(t, test.Expected, append([]byte{}, output.Bytes()...))
			},
		)
	}
}

func TestRLE90RoundTrip__SplitWrites(t *testing.T) {
	original := append(bytes.Repeat([]byte{0x90}, 20), bytes.Repeat([]byte{5}, 600)...)
	original = append(original, 1, 2, 2, 0x90, 3)

	var compressed bytes.Buffer
	writer := c.NewRLE90Writer(&compressed)
	for i := 0; i < len(original); i += 7 {
		end := i + 7
		if end > len(original) {
			end = len(original)
		}
		_, err := writer.Write(original[i:end])
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())

	decompressed, err := io.ReadAll(c.NewRLE90Reader(&compressed))
	require.NoError(t, err)
	assert.Equal(t, original, decompressed)
}
