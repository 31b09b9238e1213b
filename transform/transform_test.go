package transform_test

import (
	"fmt"
	"testing"

	"github.com/dargueta/blockpress"
	bptest "github.com/dargueta/blockpress/testing"
	"github.com/dargueta/blockpress/transform"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sectionFactory struct {
	Name   string
	Create func(t *testing.T) *blockpress.Section
}

var sectionFactories = []sectionFactory{
	{"uniform", func(t *testing.T) *blockpress.Section { return bptest.CreateUniformSection(0, 2) }},
	{"ramp16", func(t *testing.T) *blockpress.Section { return bptest.CreateRampSection(16) }},
	{"ramp3", func(t *testing.T) *blockpress.Section { return bptest.CreateRampSection(3) }},
	{"random5", func(t *testing.T) *blockpress.Section { return bptest.CreateRandomSection(5, 1, t) }},
	{"random300", func(t *testing.T) *blockpress.Section { return bptest.CreateRandomSection(300, 2, t) }},
	{"patchy7", func(t *testing.T) *blockpress.Section { return bptest.CreatePatchySection(7, 3, t) }},
	{"patchy40", func(t *testing.T) *blockpress.Section { return bptest.CreatePatchySection(40, 4, t) }},
}

var allTransformers = []string{
	"none",
	"delta",
	"mtf",
	"mtf-lookbehind",
	"zorder",
	"hilbert",
	"hilbert-adaptive",
	"hilbert+mtf",
	"zorder+delta+mtf-lookbehind",
	"hilbert-adaptive+mtf-lookbehind+hilbert-adaptive",
}

func TestRoundTrip__AllTransformers(t *testing.T) {
	for _, name := range allTransformers {
		transformer, err := transform.Parse(name)
		require.NoError(t, err)
		assert.Equal(t, name, transformer.Name())

		t.Run(
			name,
			func(tSub *testing.T) {
				for _, factory := range sectionFactories {
					tSub.Run(
						factory.Name,
						func(tSubSub *testing.T) {
							runRoundTrip(tSubSub, transformer, factory.Create(tSubSub))
						},
					)
				}
			},
		)
	}
}

func runRoundTrip(t *testing.T, transformer blockpress.Transformer, original *blockpress.Section) {
	section := original.Clone()

	require.NoError(t, transformer.Transform(section), "transform failed")
	assert.GreaterOrEqual(
		t, section.PaletteSize, original.PaletteSize, "transform shrank the palette")
	require.NoError(
		t, blockpress.CheckBlockRange(&section.Symbols, section.PaletteSize),
		"transform produced symbols outside its own palette")

	require.NoError(t, transformer.Reverse(section), "reverse failed")
	bptest.RequireSectionsEqual(t, original, section)
	assert.True(t, section.Trail.Empty(), "reverse left data on the trail")
}

func TestIdentity(t *testing.T) {
	original := bptest.CreateRandomSection(9, 10, t)
	section := original.Clone()
	require.NoError(t, transform.Identity{}.Transform(section))
	bptest.RequireSectionsEqual(t, original, section)
}

func TestDeltaLeft__Values(t *testing.T) {
	section := &blockpress.Section{PaletteSize: 5}
	copy(section.Symbols[:], []uint32{3, 3, 4, 0, 2})

	require.NoError(t, transform.DeltaLeft{}.Transform(section))
	assert.EqualValues(t, 16, section.PaletteSize, "palette should widen to 2^4")
	assert.Equal(t, []uint32{3, 0, 1, 12, 2, 14}, section.Symbols[:6])
	assert.Equal(t, 1, section.Trail.ValueCount())
}

func TestDeltaLeft__WidensToBitWidth(t *testing.T) {
	section := bptest.CreateRandomSection(100, 11, t)
	require.NoError(t, transform.DeltaLeft{}.Transform(section))
	assert.EqualValues(t, 128, section.PaletteSize)
}

func TestDeltaLeft__ReverseWithoutTrail(t *testing.T) {
	section := bptest.CreateRampSection(16)
	err := transform.DeltaLeft{}.Reverse(section)
	assert.ErrorIs(t, err, blockpress.ErrNotInvertible)
}

func TestMoveToFront__AllZeros(t *testing.T) {
	section := bptest.CreateUniformSection(0, 2)
	require.NoError(t, transform.MoveToFront{}.Transform(section))
	assert.Equal(t, bptest.CreateUniformSection(0, 2).Symbols, section.Symbols)
	assert.EqualValues(t, 2, section.PaletteSize)
}

func TestMoveToFront__Ranks(t *testing.T) {
	section := &blockpress.Section{PaletteSize: 4}
	copy(section.Symbols[:], []uint32{2, 2, 1, 2, 3, 0})

	require.NoError(t, transform.MoveToFront{}.Transform(section))
	// The rest of the block is zeros, which was last seen at rank 0.
	assert.Equal(t, []uint32{2, 0, 2, 1, 3, 3, 0, 0}, section.Symbols[:8])
}

func TestMoveToFront__RankBound(t *testing.T) {
	for _, factory := range sectionFactories {
		section := factory.Create(t)
		paletteSize := section.PaletteSize
		require.NoError(t, transform.MoveToFront{}.Transform(section))
		assert.NoErrorf(
			t,
			blockpress.CheckBlockRange(&section.Symbols, paletteSize),
			"%s: rank out of bounds",
			factory.Name,
		)
	}
}

func TestMoveToFront__SymbolOutOfRange(t *testing.T) {
	section := bptest.CreateRampSection(8)
	section.PaletteSize = 7
	err := transform.MoveToFront{}.Transform(section)
	assert.ErrorIs(t, err, blockpress.ErrSymbolOutOfRange)
}

func TestMoveToFrontLookbehind__Escapes(t *testing.T) {
	// Rows along x alternate between two values, so every z row repeats the
	// one 16 positions back and the rank of each new run start is 1.
	section := &blockpress.Section{PaletteSize: 3}
	for i := range section.Symbols {
		x, _, _ := blockpress.Coordinates(i)
		section.Symbols[i] = uint32(x % 2)
	}

	require.NoError(t, transform.MoveToFrontLookbehind{}.Transform(section))
	assert.EqualValues(t, 5, section.PaletteSize)

	// The first row has no history and is plain MTF: 0 is rank 0, 1 is rank 1,
	// and from then on each value was seen one step ago.
	assert.Equal(t, []uint32{0, 1, 1, 1}, section.Symbols[:4])
	// In the second row every non-zero rank matches 16 back.
	for i := 16; i < 32; i++ {
		assert.EqualValuesf(t, 3, section.Symbols[i], "position %d", i)
	}
}

func TestMoveToFrontLookbehind__FarEscape(t *testing.T) {
	// Two layers: y=0 is a random pattern, y=1 copies it. The near neighbour
	// never matches because rows are shifted, but the far one always does.
	section := &blockpress.Section{PaletteSize: 4}
	for i := 0; i < 256; i++ {
		section.Symbols[i] = uint32((i*7 + i/16) % 4)
	}
	for i := 256; i < 512; i++ {
		section.Symbols[i] = section.Symbols[i-256]
	}
	original := section.Clone()

	require.NoError(t, transform.MoveToFrontLookbehind{}.Transform(section))

	far := 0
	for i := 256; i < 512; i++ {
		if section.Symbols[i] == 5 {
			far++
		}
	}
	assert.Greater(t, far, 0, "expected some far escapes")

	require.NoError(t, transform.MoveToFrontLookbehind{}.Reverse(section))
	bptest.RequireSectionsEqual(t, original, section)
}

func TestMoveToFrontLookbehind__EscapeBeforeStart(t *testing.T) {
	section := &blockpress.Section{PaletteSize: 5}
	section.Symbols[3] = 3 // near escape with only 3 symbols of history
	err := transform.MoveToFrontLookbehind{}.Reverse(section)
	assert.ErrorIs(t, err, blockpress.ErrInvalidArgument)
}

func checkPermutation(t *testing.T, transformer blockpress.Transformer) []int {
	section := &blockpress.Section{PaletteSize: blockpress.BlockSize}
	for i := range section.Symbols {
		section.Symbols[i] = uint32(i)
	}
	require.NoError(t, transformer.Transform(section))

	seen := make([]bool, blockpress.BlockSize)
	order := make([]int, blockpress.BlockSize)
	for k, index := range section.Symbols {
		require.Falsef(t, seen[index], "index %d appears twice", index)
		seen[index] = true
		order[k] = int(index)
	}
	return order
}

func TestZOrder__IsMortonOrder(t *testing.T) {
	order := checkPermutation(t, transform.ZOrder())

	// The first eight cells of the curve are the 2x2x2 corner cube, x fastest.
	expected := []int{
		blockpress.Index(0, 0, 0), blockpress.Index(1, 0, 0),
		blockpress.Index(0, 0, 1), blockpress.Index(1, 0, 1),
		blockpress.Index(0, 1, 0), blockpress.Index(1, 1, 0),
		blockpress.Index(0, 1, 1), blockpress.Index(1, 1, 1),
	}
	assert.Equal(t, expected, order[:8])
	assert.Equal(t, blockpress.BlockSize-1, order[blockpress.BlockSize-1])
}

func TestHilbert__ConsecutiveCellsAreNeighbours(t *testing.T) {
	order := checkPermutation(t, transform.Hilbert())

	abs := func(v int) int {
		if v < 0 {
			return -v
		}
		return v
	}
	for k := 1; k < len(order); k++ {
		x0, y0, z0 := blockpress.Coordinates(order[k-1])
		x1, y1, z1 := blockpress.Coordinates(order[k])
		distance := abs(int(x1)-int(x0)) + abs(int(y1)-int(y0)) + abs(int(z1)-int(z0))
		require.Equalf(t, 1, distance, "cells %d and %d of the curve aren't adjacent", k-1, k)
	}
	assert.Equal(t, 0, order[0])
}

func TestHilbertAdaptive__KeepsBetterOrdering(t *testing.T) {
	// Rows along x are constant, which the linear order already exploits
	// perfectly; the curve can only do worse.
	rows := &blockpress.Section{PaletteSize: 16}
	for i := range rows.Symbols {
		_, y, z := blockpress.Coordinates(i)
		rows.Symbols[i] = uint32((y + z) % 16)
	}
	original := rows.Clone()

	require.NoError(t, transform.HilbertAdaptive{}.Transform(rows))
	assert.Equal(t, original.Symbols, rows.Symbols, "should keep the linear order")
	trail := rows.Trail.Clone()
	flag, err := trail.PopFlag()
	require.NoError(t, err)
	assert.False(t, flag)

	// A uniform block ties, and ties go to the curve.
	uniform := bptest.CreateUniformSection(1, 2)
	require.NoError(t, transform.HilbertAdaptive{}.Transform(uniform))
	flag, err = uniform.Trail.PopFlag()
	require.NoError(t, err)
	assert.True(t, flag)
}

func TestHilbertAdaptive__ReverseWithoutTrail(t *testing.T) {
	section := bptest.CreateRampSection(16)
	err := transform.HilbertAdaptive{}.Reverse(section)
	assert.ErrorIs(t, err, blockpress.ErrNotInvertible)
}

func TestChain__OrderMatters(t *testing.T) {
	forward, err := transform.Parse("hilbert+mtf")
	require.NoError(t, err)
	backward, err := transform.Parse("mtf+hilbert")
	require.NoError(t, err)

	a := bptest.CreatePatchySection(12, 99, t)
	b := a.Clone()
	require.NoError(t, forward.Transform(a))
	require.NoError(t, backward.Transform(b))
	assert.NotEqual(t, a.Symbols, b.Symbols)
}

func TestChain__EmptyIsIdentity(t *testing.T) {
	chain := transform.Chain{}
	assert.Equal(t, "none", chain.Name())

	original := bptest.CreateRandomSection(6, 5, t)
	section := original.Clone()
	require.NoError(t, chain.Transform(section))
	require.NoError(t, chain.Reverse(section))
	bptest.RequireSectionsEqual(t, original, section)
}

func TestParse__Unknown(t *testing.T) {
	for _, name := range []string{"", "bwt", "mtf+bwt"} {
		_, err := transform.Parse(name)
		assert.ErrorIsf(t, err, blockpress.ErrUnknownStrategy, "name %q", name)
	}
}

func TestNames(t *testing.T) {
	names := transform.Names()
	assert.Contains(t, names, "mtf-lookbehind")
	for _, name := range names {
		_, err := transform.Parse(name)
		assert.NoError(t, err, fmt.Sprintf("registered name %q doesn't parse", name))
	}
}
