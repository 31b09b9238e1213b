package testing

import (
	"math/rand"
	"testing"

	"github.com/dargueta/blockpress"
	"github.com/stretchr/testify/require"
)

// CreateRandomSection creates a section whose symbols are uniformly random in
// [0, paletteSize). The same seed always gives the same section.
func CreateRandomSection(paletteSize uint32, seed int64, t *testing.T) *blockpress.Section {
	require.Greaterf(t, paletteSize, uint32(0), "palette size must be positive")

	rng := rand.New(rand.NewSource(seed))
	section := &blockpress.Section{PaletteSize: paletteSize}
	for i := range section.Symbols {
		section.Symbols[i] = uint32(rng.Int63n(int64(paletteSize)))
	}
	return section
}

// CreateRampSection creates a section holding 0, 1, ..., paletteSize-1
// repeated until the block is full.
func CreateRampSection(paletteSize uint32) *blockpress.Section {
	section := &blockpress.Section{PaletteSize: paletteSize}
	for i := range section.Symbols {
		section.Symbols[i] = uint32(i) % paletteSize
	}
	return section
}

// CreateUniformSection creates a section where every symbol is `value`.
func CreateUniformSection(value, paletteSize uint32) *blockpress.Section {
	section := &blockpress.Section{PaletteSize: paletteSize}
	for i := range section.Symbols {
		section.Symbols[i] = value
	}
	return section
}

// CreatePatchySection creates a section made of 4x4x4 cubes, each filled with
// one random palette value, with a sprinkling of single-voxel noise. It looks
// a lot more like real terrain to the transforms than uniform noise does.
func CreatePatchySection(paletteSize uint32, seed int64, t *testing.T) *blockpress.Section {
	require.Greaterf(t, paletteSize, uint32(0), "palette size must be positive")

	rng := rand.New(rand.NewSource(seed))
	var cubes [64]uint32
	for i := range cubes {
		cubes[i] = uint32(rng.Int63n(int64(paletteSize)))
	}

	section := &blockpress.Section{PaletteSize: paletteSize}
	for i := range section.Symbols {
		x, y, z := blockpress.Coordinates(i)
		value := cubes[(y/4)*16+(z/4)*4+x/4]
		if rng.Intn(50) == 0 {
			value = uint32(rng.Int63n(int64(paletteSize)))
		}
		section.Symbols[i] = value
	}
	return section
}

// RequireSectionsEqual fails the test immediately if the symbols or palette
// sizes differ. It reports the first differing position rather than dumping
// two 4096-element arrays.
func RequireSectionsEqual(t *testing.T, expected, actual *blockpress.Section, msgAndArgs ...interface{}) {
	t.Helper()
	require.Equal(t, expected.PaletteSize, actual.PaletteSize, msgAndArgs...)
	for i := range expected.Symbols {
		if expected.Symbols[i] != actual.Symbols[i] {
			require.Failf(
				t,
				"symbols differ",
				"position %d: expected %d, got %d",
				i,
				expected.Symbols[i],
				actual.Symbols[i],
			)
		}
	}
}
