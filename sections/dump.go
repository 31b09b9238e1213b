package sections

import (
	"errors"
	"fmt"
	"io"

	"github.com/dargueta/blockpress"
	"github.com/dargueta/blockpress/bitpack"
	"github.com/fxamacker/cbor/v2"
)

// DumpMagic identifies a section dump. It's the first field of the header
// record.
const DumpMagic = "blockpress-dump"

// DumpVersion is the only dump format version this package reads and writes.
const DumpVersion = 1

// A dump is a CBOR sequence: one dumpHeader, then one RawSection per section
// until the end of the stream.
type dumpHeader struct {
	Magic      string `cbor:"magic"`
	Version    int    `cbor:"version"`
	Convention string `cbor:"convention"`
}

// Core deterministic encoding, so the same sections always produce
// byte-identical dumps.
var dumpEncMode cbor.EncMode

var dumpDecMode cbor.DecMode

func init() {
	var err error

	dumpEncMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("sections: CBOR encoder initialization failed: " + err.Error())
	}

	dumpDecMode, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic("sections: CBOR decoder initialization failed: " + err.Error())
	}
}

// DumpWriter writes sections to a dump stream.
type DumpWriter struct {
	encoder *cbor.Encoder
}

// NewDumpWriter writes the dump header to `w` and returns a writer for the
// sections that follow. All of them must have been packed with `conv`.
func NewDumpWriter(w io.Writer, conv bitpack.Convention) (*DumpWriter, error) {
	encoder := dumpEncMode.NewEncoder(w)
	header := dumpHeader{
		Magic:      DumpMagic,
		Version:    DumpVersion,
		Convention: conv.String(),
	}
	if err := encoder.Encode(header); err != nil {
		return nil, fmt.Errorf("failed to write dump header: %w", err)
	}
	return &DumpWriter{encoder: encoder}, nil
}

func (d *DumpWriter) Write(section RawSection) error {
	return d.encoder.Encode(section)
}

// WriteAll copies every section from `source` into the dump and returns how
// many were written.
func (d *DumpWriter) WriteAll(source Source) (int, error) {
	count := 0
	for {
		section, err := source.Next()
		if errors.Is(err, io.EOF) {
			return count, nil
		}
		if err != nil {
			return count, err
		}
		if err = d.Write(section); err != nil {
			return count, err
		}
		count++
	}
}

// DumpReader reads sections back from a dump. It implements [Source].
type DumpReader struct {
	decoder    *cbor.Decoder
	convention bitpack.Convention
}

// NewDumpReader reads and checks the dump header from `r`.
func NewDumpReader(r io.Reader) (*DumpReader, error) {
	decoder := dumpDecMode.NewDecoder(r)

	var header dumpHeader
	if err := decoder.Decode(&header); err != nil {
		return nil, blockpress.ErrInvalidArgument.Wrap(
			fmt.Errorf("failed to read dump header: %w", err),
		)
	}
	if header.Magic != DumpMagic {
		return nil, blockpress.ErrInvalidArgument.WithMessage(
			fmt.Sprintf("not a section dump: bad magic %q", header.Magic),
		)
	}
	if header.Version != DumpVersion {
		return nil, blockpress.ErrInvalidArgument.WithMessage(
			fmt.Sprintf(
				"unsupported dump version %d, expected %d",
				header.Version,
				DumpVersion,
			),
		)
	}

	conv, err := bitpack.ParseConvention(header.Convention)
	if err != nil {
		return nil, err
	}
	return &DumpReader{decoder: decoder, convention: conv}, nil
}

// Convention is the packing convention recorded in the dump header.
func (d *DumpReader) Convention() bitpack.Convention {
	return d.convention
}

func (d *DumpReader) Next() (RawSection, error) {
	var section RawSection
	err := d.decoder.Decode(&section)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return RawSection{}, io.EOF
		}
		return RawSection{}, blockpress.ErrInvalidArgument.Wrap(
			fmt.Errorf("corrupt section record: %w", err),
		)
	}
	return section, nil
}
