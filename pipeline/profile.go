package pipeline

import (
	"sort"

	"github.com/dargueta/blockpress"
)

// RankProfile counts how often each palette entry occurs in `block` and returns
// the counts from most to least frequent. Entry r is how many symbols have the
// r-th most common value. The slice always has `paletteSize` entries, so
// unused palette entries show up as trailing zeros.
func RankProfile(block *blockpress.Block, paletteSize uint32) []uint32 {
	counts := make([]uint32, paletteSize)
	for _, symbol := range block {
		if symbol < paletteSize {
			counts[symbol]++
		}
	}
	sort.Slice(counts, func(i, j int) bool { return counts[i] > counts[j] })
	return counts
}
