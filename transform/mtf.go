package transform

import (
	"fmt"

	"github.com/dargueta/blockpress"
)

// Lookbehind distances for [MoveToFrontLookbehind]. With the y-z-x linear
// order these are the neighbour one row back along z and the one directly
// below along y.
const (
	NearLookbehind = blockpress.SectionEdge
	FarLookbehind  = blockpress.SectionEdge * blockpress.SectionEdge
)

// rankList is the recency ranking of every palette value. Rank 0 is the value
// seen most recently.
type rankList []uint32

func newRankList(paletteSize uint32) rankList {
	ranks := make(rankList, paletteSize)
	for i := range ranks {
		ranks[i] = uint32(i)
	}
	return ranks
}

// rankOf gives the current rank of `value`, which must be in the list.
func (ranks rankList) rankOf(value uint32) int {
	for i, v := range ranks {
		if v == value {
			return i
		}
	}
	return -1
}

// promote moves the value at `rank` to the front, shifting everything ahead of
// it back by one.
func (ranks rankList) promote(rank int) {
	value := ranks[rank]
	copy(ranks[1:rank+1], ranks[:rank])
	ranks[0] = value
}

func outOfRange(value uint32, position int, paletteSize uint32) error {
	return blockpress.ErrSymbolOutOfRange.WithMessage(
		fmt.Sprintf(
			"symbol %d at position %d not in range [0, %d)",
			value,
			position,
			paletteSize,
		),
	)
}

// MoveToFront replaces each symbol with its recency rank: 0 if it repeats the
// symbol before it, small numbers if it was seen recently. The palette size is
// unchanged.
type MoveToFront struct{}

func (MoveToFront) Name() string { return "mtf" }

func (MoveToFront) Transform(section *blockpress.Section) error {
	ranks := newRankList(section.PaletteSize)
	for i, value := range section.Symbols {
		if value >= section.PaletteSize {
			return outOfRange(value, i, section.PaletteSize)
		}
		rank := ranks.rankOf(value)
		section.Symbols[i] = uint32(rank)
		ranks.promote(rank)
	}
	return nil
}

func (MoveToFront) Reverse(section *blockpress.Section) error {
	ranks := newRankList(section.PaletteSize)
	for i, rank := range section.Symbols {
		if rank >= section.PaletteSize {
			return outOfRange(rank, i, section.PaletteSize)
		}
		section.Symbols[i] = ranks[rank]
		ranks.promote(int(rank))
	}
	return nil
}

// MoveToFrontLookbehind is [MoveToFront] with two escape symbols. For a palette
// of size p, symbol p means "same value as [NearLookbehind] positions back"
// and p+1 means "same value as [FarLookbehind] positions back". An escape only
// replaces a non-zero rank, and the near match is preferred. The ranking is
// updated the same way whichever symbol is emitted.
//
// The palette size grows by two.
type MoveToFrontLookbehind struct{}

func (MoveToFrontLookbehind) Name() string { return "mtf-lookbehind" }

func (MoveToFrontLookbehind) Transform(section *blockpress.Section) error {
	paletteSize := section.PaletteSize
	nearEscape := paletteSize
	farEscape := paletteSize + 1
	history := section.Symbols
	ranks := newRankList(paletteSize)

	for i, value := range history {
		if value >= paletteSize {
			return outOfRange(value, i, paletteSize)
		}

		rank := ranks.rankOf(value)
		output := uint32(rank)
		if rank != 0 {
			if i >= NearLookbehind && history[i-NearLookbehind] == value {
				output = nearEscape
			} else if i >= FarLookbehind && history[i-FarLookbehind] == value {
				output = farEscape
			}
		}

		section.Symbols[i] = output
		ranks.promote(rank)
	}

	section.PaletteSize = paletteSize + 2
	return nil
}

func (MoveToFrontLookbehind) Reverse(section *blockpress.Section) error {
	if section.PaletteSize < 2 {
		return blockpress.ErrInvalidArgument.WithMessage(
			fmt.Sprintf(
				"palette size %d can't include the two escape symbols",
				section.PaletteSize,
			),
		)
	}

	paletteSize := section.PaletteSize - 2
	nearEscape := paletteSize
	farEscape := paletteSize + 1
	ranks := newRankList(paletteSize)

	for i, symbol := range section.Symbols {
		var rank int
		switch {
		case symbol < paletteSize:
			rank = int(symbol)
		case symbol == nearEscape && i >= NearLookbehind:
			rank = ranks.rankOf(section.Symbols[i-NearLookbehind])
		case symbol == farEscape && i >= FarLookbehind:
			rank = ranks.rankOf(section.Symbols[i-FarLookbehind])
		case symbol == nearEscape || symbol == farEscape:
			return blockpress.ErrInvalidArgument.WithMessage(
				fmt.Sprintf("lookbehind escape at position %d points before the block", i),
			)
		default:
			return outOfRange(symbol, i, section.PaletteSize)
		}

		section.Symbols[i] = ranks[rank]
		ranks.promote(rank)
	}

	section.PaletteSize = paletteSize
	return nil
}
