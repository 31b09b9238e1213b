package transform

import (
	"fmt"

	"github.com/dargueta/blockpress"
)

// DeltaLeft replaces each symbol with its difference from the symbol before it,
// modulo 2^width where width is the packed bit width of the original palette.
// The first symbol is taken relative to 0.
//
// Deltas can be anything in [0, 2^width), so the palette size is widened to
// 2^width. The original size is pushed on the trail for Reverse.
type DeltaLeft struct{}

func (DeltaLeft) Name() string { return "delta" }

func (DeltaLeft) Transform(section *blockpress.Section) error {
	width := blockpress.BitWidth(section.PaletteSize)
	if width >= blockpress.MaxBitWidth {
		return blockpress.ErrArgumentOutOfRange.WithMessage(
			fmt.Sprintf(
				"palette size %d is too large to widen to a power of two",
				section.PaletteSize,
			),
		)
	}
	mask := uint32(1)<<width - 1

	previous := uint32(0)
	for i, value := range section.Symbols {
		section.Symbols[i] = (value - previous) & mask
		previous = value
	}

	section.Trail.PushValue(section.PaletteSize)
	section.PaletteSize = uint32(1) << width
	return nil
}

// Reverse rebuilds the symbols as a running sum of the deltas.
func (DeltaLeft) Reverse(section *blockpress.Section) error {
	originalSize, err := section.Trail.PopValue()
	if err != nil {
		return err
	}

	width := blockpress.BitWidth(originalSize)
	if section.PaletteSize != uint32(1)<<width {
		return blockpress.ErrInvalidArgument.WithMessage(
			fmt.Sprintf(
				"palette size %d doesn't match recorded size %d widened to %d bits",
				section.PaletteSize,
				originalSize,
				width,
			),
		)
	}
	mask := uint32(1)<<width - 1

	previous := uint32(0)
	for i, delta := range section.Symbols {
		previous = (previous + delta) & mask
		section.Symbols[i] = previous
	}

	section.PaletteSize = originalSize
	return nil
}
