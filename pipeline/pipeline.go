// Package pipeline runs sections through a transformer, a coder and a byte
// compressor, optionally checks that the whole thing can be undone, and
// reports the sizes.
package pipeline

import (
	"encoding/binary"
	"fmt"
	"log/slog"

	"github.com/dargueta/blockpress"
	"github.com/dargueta/blockpress/bitpack"
	"github.com/dargueta/blockpress/coder"
	"github.com/dargueta/blockpress/sections"
	"github.com/dargueta/blockpress/transform"
	"github.com/dargueta/blockpress/utilities/compression"
	"github.com/hashicorp/go-multierror"
	"github.com/zeebo/blake3"
)

// Result describes what one pass did to one section.
type Result struct {
	Index int
	// PaletteSize is the palette size of the section as it was read.
	PaletteSize uint32
	// TransformedPaletteSize is the palette size the coder saw, after
	// escapes or delta widening.
	TransformedPaletteSize uint32
	// EncodedSize is the size of the coder output in bytes.
	EncodedSize int
	// FinalSize is the size after byte compression.
	FinalSize int
	// SideBits is the size of the trail the transforms left behind. It isn't
	// included in FinalSize.
	SideBits int
	// Digest is the BLAKE3 hash of the untransformed symbols.
	Digest [32]byte
	// Profile is the sorted symbol frequency profile, only filled in when
	// profiling is enabled.
	Profile []uint32
	// Skipped is set for sections with a palette too small to be worth
	// coding. Nothing but Index and PaletteSize is filled in.
	Skipped bool
}

// Reporter receives the result of every section processed. Record is called
// from many goroutines at once.
type Reporter interface {
	Record(result Result)
}

// Pipeline is one combination of transformer, coder and compressor.
type Pipeline struct {
	Transformer blockpress.Transformer
	Coder       blockpress.Coder
	Compressor  blockpress.Compressor
	// Convention is how the words of raw sections are packed.
	Convention bitpack.Convention
	// Verify undoes every pass and fails the section if the result doesn't
	// match its input exactly.
	Verify bool
	// CollectProfile fills in [Result.Profile].
	CollectProfile bool
	// Reporter is optional.
	Reporter Reporter
	// Logger defaults to [slog.Default] if nil.
	Logger *slog.Logger
}

// Name identifies the combination, e.g. "mtf/arithmetic/zstd".
func (p *Pipeline) Name() string {
	return fmt.Sprintf("%s/%s/%s", p.Transformer.Name(), p.Coder.Name(), p.Compressor.Name())
}

func (p *Pipeline) logger() *slog.Logger {
	if p.Logger == nil {
		return slog.Default()
	}
	return p.Logger
}

func (p *Pipeline) record(result Result) {
	if p.Reporter != nil {
		p.Reporter.Record(result)
	}
}

// ProcessRaw unpacks a section as read from disk and runs it through
// [Pipeline.ProcessSection]. Sections with a palette of one entry or less are
// skipped; the result has Skipped set.
func (p *Pipeline) ProcessRaw(raw sections.RawSection) (Result, error) {
	if raw.PaletteLen <= 1 {
		result := Result{Index: raw.Index, PaletteSize: uint32(max(raw.PaletteLen, 0)), Skipped: true}
		p.record(result)
		return result, nil
	}

	paletteSize := uint32(raw.PaletteLen)
	section := &blockpress.Section{PaletteSize: paletteSize}
	err := bitpack.UnpackBlock(raw.Words, blockpress.BitWidth(paletteSize), p.Convention, &section.Symbols)
	if err == nil {
		err = section.CheckRange()
	}
	if err != nil {
		return Result{}, &blockpress.BlockError{
			Index:       raw.Index,
			PaletteSize: paletteSize,
			Stage:       blockpress.StageUnpack,
			Err:         err,
		}
	}
	return p.ProcessSection(raw.Index, section)
}

// ProcessSection runs the pipeline over `section`, which it takes ownership of
// and modifies. Every error returned is a [*blockpress.BlockError].
func (p *Pipeline) ProcessSection(index int, section *blockpress.Section) (Result, error) {
	fail := func(stage blockpress.Stage, paletteSize uint32, err error) (Result, error) {
		return Result{}, &blockpress.BlockError{
			Index:       index,
			PaletteSize: paletteSize,
			Stage:       stage,
			Err:         err,
		}
	}

	result := Result{
		Index:       index,
		PaletteSize: section.PaletteSize,
		Digest:      Digest(&section.Symbols),
	}
	if p.CollectProfile {
		result.Profile = RankProfile(&section.Symbols, section.PaletteSize)
	}

	var original *blockpress.Section
	if p.Verify {
		original = section.Clone()
	}

	if err := p.Transformer.Transform(section); err != nil {
		return fail(blockpress.StageTransform, result.PaletteSize, err)
	}
	result.TransformedPaletteSize = section.PaletteSize
	result.SideBits = section.Trail.SizeBits()

	encoded, err := p.Coder.Encode(&section.Symbols, section.PaletteSize)
	if err != nil {
		return fail(blockpress.StageEncode, section.PaletteSize, err)
	}
	result.EncodedSize = len(encoded)

	compressed, err := compression.CompressBytes(p.Compressor, encoded)
	if err != nil {
		return fail(blockpress.StageCompress, section.PaletteSize, err)
	}
	result.FinalSize = len(compressed)

	if p.Verify {
		// Only what would actually be stored is carried over: the compressed
		// bytes, the palette size and the trail.
		restored := &blockpress.Section{
			PaletteSize: section.PaletteSize,
			Trail:       section.Trail.Clone(),
		}

		decompressed, err := compression.DecompressBytes(p.Compressor, compressed)
		if err != nil {
			return fail(blockpress.StageDecompress, restored.PaletteSize, err)
		}
		if err = p.Coder.Decode(decompressed, restored.PaletteSize, &restored.Symbols); err != nil {
			return fail(blockpress.StageDecode, restored.PaletteSize, err)
		}
		if err = p.Transformer.Reverse(restored); err != nil {
			return fail(blockpress.StageReverse, restored.PaletteSize, err)
		}
		if err = compareSections(original, restored); err != nil {
			return fail(blockpress.StageVerify, result.PaletteSize, err)
		}
	}

	p.record(result)
	return result, nil
}

func compareSections(expected, actual *blockpress.Section) error {
	if expected.PaletteSize != actual.PaletteSize {
		return blockpress.ErrVerificationFailed.WithMessage(
			fmt.Sprintf(
				"palette size is %d, expected %d", actual.PaletteSize, expected.PaletteSize),
		)
	}
	for i := range expected.Symbols {
		if expected.Symbols[i] != actual.Symbols[i] {
			return blockpress.ErrVerificationFailed.WithMessage(
				fmt.Sprintf(
					"symbol at position %d is %d, expected %d",
					i,
					actual.Symbols[i],
					expected.Symbols[i],
				),
			)
		}
	}
	if !actual.Trail.Empty() {
		return blockpress.ErrVerificationFailed.WithMessage(
			fmt.Sprintf(
				"%d flags and %d values left on the trail",
				actual.Trail.FlagCount(),
				actual.Trail.ValueCount(),
			),
		)
	}
	return nil
}

// Digest hashes the symbols of a block. Identical blocks have identical
// digests regardless of palette size.
func Digest(block *blockpress.Block) [32]byte {
	var buffer [blockpress.BlockSize * 4]byte
	for i, symbol := range block {
		binary.LittleEndian.PutUint32(buffer[i*4:], symbol)
	}
	return blake3.Sum256(buffer[:])
}

// Matrix builds a pipeline for every combination of the named transformers,
// coders and compressors, in that nesting order. Only the three components
// are set; callers fill in the rest. All unknown names are reported at once.
func Matrix(transformers, coders, compressors []string) ([]*Pipeline, error) {
	var errs *multierror.Error

	parsedTransformers := make([]blockpress.Transformer, 0, len(transformers))
	for _, name := range transformers {
		transformer, err := transform.Parse(name)
		errs = multierror.Append(errs, err)
		parsedTransformers = append(parsedTransformers, transformer)
	}
	parsedCoders := make([]blockpress.Coder, 0, len(coders))
	for _, name := range coders {
		blockCoder, err := coder.Parse(name)
		errs = multierror.Append(errs, err)
		parsedCoders = append(parsedCoders, blockCoder)
	}
	parsedCompressors := make([]blockpress.Compressor, 0, len(compressors))
	for _, name := range compressors {
		compressor, err := compression.Parse(name)
		errs = multierror.Append(errs, err)
		parsedCompressors = append(parsedCompressors, compressor)
	}
	if err := errs.ErrorOrNil(); err != nil {
		return nil, err
	}

	pipelines := make([]*Pipeline, 0, len(transformers)*len(coders)*len(compressors))
	for _, transformer := range parsedTransformers {
		for _, blockCoder := range parsedCoders {
			for _, compressor := range parsedCompressors {
				pipelines = append(pipelines, &Pipeline{
					Transformer: transformer,
					Coder:       blockCoder,
					Compressor:  compressor,
				})
			}
		}
	}
	return pipelines, nil
}
