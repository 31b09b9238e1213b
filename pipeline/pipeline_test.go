package pipeline_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/dargueta/blockpress"
	"github.com/dargueta/blockpress/bitpack"
	"github.com/dargueta/blockpress/coder"
	"github.com/dargueta/blockpress/pipeline"
	"github.com/dargueta/blockpress/sections"
	bptest "github.com/dargueta/blockpress/testing"
	"github.com/dargueta/blockpress/transform"
	"github.com/dargueta/blockpress/utilities/compression"
	"github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingReporter struct {
	lock    sync.Mutex
	results []pipeline.Result
}

func (r *recordingReporter) Record(result pipeline.Result) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.results = append(r.results, result)
}

func newPipeline(t *testing.T, transformer, blockCoder, compressor string) *pipeline.Pipeline {
	pipelines, err := pipeline.Matrix([]string{transformer}, []string{blockCoder}, []string{compressor})
	require.NoError(t, err)
	require.Len(t, pipelines, 1)
	return pipelines[0]
}

func packSection(t *testing.T, index int, section *blockpress.Section, conv bitpack.Convention) sections.RawSection {
	words, err := bitpack.PackBlock(&section.Symbols, blockpress.BitWidth(section.PaletteSize), conv)
	require.NoError(t, err)
	return sections.RawSection{Index: index, PaletteLen: int(section.PaletteSize), Words: words}
}

func TestProcessSection__VerifiedMatrix(t *testing.T) {
	pipelines, err := pipeline.Matrix(
		transform.Names(),
		[]string{"arithmetic"},
		[]string{"none", "deflate", "zstd", "rle90"},
	)
	require.NoError(t, err)
	require.Len(t, pipelines, len(transform.Names())*4)

	inputs := []*blockpress.Section{
		bptest.CreateRampSection(16),
		bptest.CreateRandomSection(6, 1, t),
		bptest.CreatePatchySection(90, 2, t),
	}

	for _, p := range pipelines {
		p.Verify = true
		t.Run(
			p.Name(),
			func(t *testing.T) {
				for i, input := range inputs {
					result, err := p.ProcessSection(i, input.Clone())
					require.NoError(t, err)
					assert.Equal(t, i, result.Index)
					assert.Equal(t, input.PaletteSize, result.PaletteSize)
					assert.Positive(t, result.FinalSize)
				}
			},
		)
	}
}

func TestProcessSection__BytewiseBaseline(t *testing.T) {
	p := newPipeline(t, "none", "bytewise", "none")
	p.Verify = true

	result, err := p.ProcessSection(0, bptest.CreateRandomSection(200, 3, t))
	require.NoError(t, err)
	assert.Equal(t, blockpress.BlockSize, result.EncodedSize)
	assert.Equal(t, blockpress.BlockSize, result.FinalSize)
	assert.Equal(t, 0, result.SideBits)
	assert.Equal(t, uint32(200), result.TransformedPaletteSize)
}

func TestProcessSection__SideChannelReported(t *testing.T) {
	p := newPipeline(t, "delta+hilbert-adaptive", "arithmetic", "none")
	p.Verify = true

	result, err := p.ProcessSection(0, bptest.CreatePatchySection(10, 4, t))
	require.NoError(t, err)
	// One palette size value and one flag.
	assert.Equal(t, 33, result.SideBits)
	assert.Equal(t, uint32(16), result.TransformedPaletteSize)
}

func TestProcessSection__EncodeFailure(t *testing.T) {
	p := newPipeline(t, "mtf-lookbehind", "bytewise", "none")

	// Escapes push the palette past what one byte can hold.
	_, err := p.ProcessSection(5, bptest.CreateRandomSection(255, 5, t))

	var blockErr *blockpress.BlockError
	require.ErrorAs(t, err, &blockErr)
	assert.Equal(t, 5, blockErr.Index)
	assert.Equal(t, blockpress.StageEncode, blockErr.Stage)
	assert.Equal(t, uint32(257), blockErr.PaletteSize)
	assert.ErrorIs(t, err, blockpress.ErrArgumentOutOfRange)
}

// forgetfulTransformer changes the section but can't change it back.
type forgetfulTransformer struct{}

func (forgetfulTransformer) Name() string { return "forgetful" }

func (forgetfulTransformer) Transform(section *blockpress.Section) error {
	section.Symbols[100] = (section.Symbols[100] + 1) % section.PaletteSize
	return nil
}

func (forgetfulTransformer) Reverse(_ *blockpress.Section) error { return nil }

func TestProcessSection__VerificationCatchesMismatch(t *testing.T) {
	p := &pipeline.Pipeline{
		Transformer: forgetfulTransformer{},
		Coder:       coder.ArithmeticCoding{},
		Compressor:  compression.Identity{},
		Verify:      true,
	}

	_, err := p.ProcessSection(0, bptest.CreateRampSection(8))

	var blockErr *blockpress.BlockError
	require.ErrorAs(t, err, &blockErr)
	assert.Equal(t, blockpress.StageVerify, blockErr.Stage)
	assert.ErrorIs(t, err, blockpress.ErrVerificationFailed)

	// Without verification nobody notices.
	p.Verify = false
	_, err = p.ProcessSection(0, bptest.CreateRampSection(8))
	assert.NoError(t, err)
}

func TestProcessRaw__Skipped(t *testing.T) {
	reporter := &recordingReporter{}
	p := newPipeline(t, "mtf", "arithmetic", "none")
	p.Reporter = reporter

	result, err := p.ProcessRaw(sections.RawSection{Index: 3, PaletteLen: 1})
	require.NoError(t, err)
	assert.True(t, result.Skipped)
	require.Len(t, reporter.results, 1)
	assert.Equal(t, 3, reporter.results[0].Index)
}

func TestProcessRaw__UnpackFailures(t *testing.T) {
	p := newPipeline(t, "none", "arithmetic", "none")
	p.Convention = bitpack.Aligned

	tests := []struct {
		Name     string
		Raw      sections.RawSection
		Expected error
	}{
		{
			"too few words",
			sections.RawSection{Index: 1, PaletteLen: 5, Words: make([]int64, 10)},
			blockpress.ErrUnderflowOnDecode,
		},
		{
			"symbol past palette",
			sections.RawSection{Index: 2, PaletteLen: 5, Words: append([]int64{0xf}, make([]int64, 255)...)},
			blockpress.ErrSymbolOutOfRange,
		},
	}

	for _, test := range tests {
		t.Run(
			test.Name,
			func(t *testing.T) {
				_, err := p.ProcessRaw(test.Raw)

				var blockErr *blockpress.BlockError
				require.ErrorAs(t, err, &blockErr)
				assert.Equal(t, test.Raw.Index, blockErr.Index)
				assert.Equal(t, blockpress.StageUnpack, blockErr.Stage)
				assert.ErrorIs(t, err, test.Expected)
			},
		)
	}
}

func TestProcessRaw__BothConventions(t *testing.T) {
	section := bptest.CreatePatchySection(40, 6, t)

	for _, conv := range []bitpack.Convention{bitpack.Spanning, bitpack.Aligned} {
		p := newPipeline(t, "hilbert+mtf", "arithmetic", "gzip")
		p.Convention = conv
		p.Verify = true

		result, err := p.ProcessRaw(packSection(t, 0, section, conv))
		require.NoError(t, err)
		assert.Equal(t, pipeline.Digest(&section.Symbols), result.Digest)
	}
}

func TestRun__CollectsFailures(t *testing.T) {
	var raw []sections.RawSection
	for i := 0; i < 30; i++ {
		raw = append(raw, packSection(t, i, bptest.CreatePatchySection(12, int64(i), t), bitpack.Aligned))
	}
	raw = append(raw, sections.RawSection{Index: 30, PaletteLen: 1})
	raw = append(raw, sections.RawSection{Index: 31, PaletteLen: 12, Words: make([]int64, 3)})
	raw = append(raw, sections.RawSection{Index: 32, PaletteLen: 70, Words: make([]int64, 2)})

	reporter := &recordingReporter{}
	p := newPipeline(t, "zorder+mtf-lookbehind", "arithmetic", "lz4")
	p.Convention = bitpack.Aligned
	p.Verify = true
	p.Reporter = reporter

	stats, err := p.Run(context.Background(), sections.NewSliceSource(raw), 4)
	assert.Equal(t, pipeline.Stats{Processed: 30, Skipped: 1, Failed: 2}, stats)
	assert.Len(t, reporter.results, 31)

	var multi *multierror.Error
	require.ErrorAs(t, err, &multi)
	require.Len(t, multi.Errors, 2)

	failedIndices := map[int]bool{}
	for _, e := range multi.Errors {
		var blockErr *blockpress.BlockError
		require.ErrorAs(t, e, &blockErr)
		failedIndices[blockErr.Index] = true
	}
	assert.Equal(t, map[int]bool{31: true, 32: true}, failedIndices)
	assert.ErrorIs(t, err, blockpress.ErrUnderflowOnDecode)
}

func TestRun__AllSucceed(t *testing.T) {
	generator := sections.NewGenerator(5, 64, bitpack.Spanning)
	p := newPipeline(t, "hilbert-adaptive+mtf", "arithmetic", "zstd")
	p.Convention = bitpack.Spanning
	p.Verify = true

	stats, err := p.Run(context.Background(), generator, 3)
	require.NoError(t, err)
	assert.Equal(t, 64, stats.Processed+stats.Skipped)
	assert.Zero(t, stats.Failed)
}

type failingSource struct{ calls int }

func (s *failingSource) Next() (sections.RawSection, error) {
	s.calls++
	if s.calls > 2 {
		return sections.RawSection{}, errors.New("disk on fire")
	}
	return sections.RawSection{Index: s.calls, PaletteLen: 1}, nil
}

func TestRun__SourceError(t *testing.T) {
	p := newPipeline(t, "none", "bytewise", "none")

	stats, err := p.Run(context.Background(), &failingSource{}, 2)
	assert.ErrorContains(t, err, "disk on fire")
	assert.Equal(t, 2, stats.Skipped)
}

func TestRun__Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := newPipeline(t, "none", "bytewise", "none")
	stats, err := p.Run(ctx, sections.NewGenerator(1, 10, bitpack.Aligned), 2)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, stats.Processed)
}

func TestRun__NoWorkers(t *testing.T) {
	p := newPipeline(t, "none", "bytewise", "none")
	_, err := p.Run(context.Background(), sections.NewSliceSource(nil), 0)
	assert.ErrorIs(t, err, blockpress.ErrArgumentOutOfRange)
}

func TestMatrix(t *testing.T) {
	pipelines, err := pipeline.Matrix(
		[]string{"none", "mtf"}, []string{"arithmetic", "bytewise"}, []string{"gzip"})
	require.NoError(t, err)

	var names []string
	for _, p := range pipelines {
		names = append(names, p.Name())
	}
	assert.Equal(
		t,
		[]string{
			"none/arithmetic/gzip",
			"none/bytewise/gzip",
			"mtf/arithmetic/gzip",
			"mtf/bytewise/gzip",
		},
		names,
	)
}

func TestMatrix__ReportsEveryUnknownName(t *testing.T) {
	_, err := pipeline.Matrix([]string{"bwt"}, []string{"arithmetic", "huffman"}, []string{"none"})

	var multi *multierror.Error
	require.ErrorAs(t, err, &multi)
	assert.Len(t, multi.Errors, 2)
	assert.ErrorIs(t, err, blockpress.ErrUnknownStrategy)
}

func TestRankProfile(t *testing.T) {
	section := bptest.CreateUniformSection(0, 4)
	for i := 0; i < 100; i++ {
		section.Symbols[i] = 2
	}
	section.Symbols[4000] = 3

	profile := pipeline.RankProfile(&section.Symbols, 4)
	assert.Equal(t, []uint32{3995, 100, 1, 0}, profile)

	var total uint32
	for _, count := range profile {
		total += count
	}
	assert.EqualValues(t, blockpress.BlockSize, total)
}

func TestDigest(t *testing.T) {
	a := bptest.CreateRampSection(16)
	b := bptest.CreateRampSection(16)
	assert.Equal(t, pipeline.Digest(&a.Symbols), pipeline.Digest(&b.Symbols))

	b.Symbols[7] = 0
	assert.NotEqual(t, pipeline.Digest(&a.Symbols), pipeline.Digest(&b.Symbols))
}
