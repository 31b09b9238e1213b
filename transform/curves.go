package transform

import (
	"github.com/dargueta/blockpress"
)

// curveBits is the number of bits per axis of a section: 16 = 2^4.
const curveBits = 4

// permutation reorders a block so that position k of the output holds the
// voxel at linear index order[k] of the input.
type permutation struct {
	name  string
	order *[blockpress.BlockSize]uint16
}

func (p permutation) Name() string { return p.name }

func (p permutation) Transform(section *blockpress.Section) error {
	p.apply(&section.Symbols)
	return nil
}

func (p permutation) Reverse(section *blockpress.Section) error {
	p.undo(&section.Symbols)
	return nil
}

func (p permutation) apply(block *blockpress.Block) {
	source := *block
	for k, index := range p.order {
		block[k] = source[index]
	}
}

func (p permutation) undo(block *blockpress.Block) {
	source := *block
	for k, index := range p.order {
		block[index] = source[k]
	}
}

var (
	mortonOrder  [blockpress.BlockSize]uint16
	hilbertOrder [blockpress.BlockSize]uint16
)

func init() {
	for code := 0; code < blockpress.BlockSize; code++ {
		x, y, z := mortonDecode(uint(code))
		mortonOrder[code] = uint16(blockpress.Index(x, y, z))

		axes := hilbertAxes(uint32(code))
		// Most significant axis first: z, then y, then x. Z-order puts y
		// first, so the two curves differ by swapping y and z.
		hilbertOrder[code] = uint16(blockpress.Index(uint(axes[2]), uint(axes[1]), uint(axes[0])))
	}
}

// ZOrder reorders the section along the Morton curve: the position of a voxel
// is its coordinates with their bits interleaved, y most significant, then z,
// then x. The palette size is unchanged.
func ZOrder() blockpress.Transformer {
	return permutation{name: "zorder", order: &mortonOrder}
}

// Hilbert reorders the section along a 3D Hilbert curve covering the 16^3
// cube, so consecutive output symbols are always face-adjacent voxels. The
// palette size is unchanged.
func Hilbert() blockpress.Transformer {
	return permutation{name: "hilbert", order: &hilbertOrder}
}

// mortonDecode splits a 12-bit Morton code into its coordinates.
func mortonDecode(code uint) (x, y, z uint) {
	for bit := uint(0); bit < curveBits; bit++ {
		x |= ((code >> (3 * bit)) & 1) << bit
		z |= ((code >> (3*bit + 1)) & 1) << bit
		y |= ((code >> (3*bit + 2)) & 1) << bit
	}
	return
}

// hilbertAxes converts a distance along the Hilbert curve into coordinates,
// using Skilling's transpose algorithm ("Programming the Hilbert curve", 2004).
// axes[0] is the most significant axis.
func hilbertAxes(distance uint32) [3]uint32 {
	var axes [3]uint32
	const dims = 3

	// Spread the distance into transposed form: bits are dealt out to the axes
	// round-robin, most significant first.
	for k := 0; k < dims*curveBits; k++ {
		bit := (distance >> (dims*curveBits - 1 - k)) & 1
		axes[k%dims] |= bit << (curveBits - 1 - k/dims)
	}

	// Gray decode.
	t := axes[dims-1] >> 1
	for i := dims - 1; i > 0; i-- {
		axes[i] ^= axes[i-1]
	}
	axes[0] ^= t

	// Undo excess work.
	for q := uint32(2); q != 1<<curveBits; q <<= 1 {
		p := q - 1
		for i := dims - 1; i >= 0; i-- {
			if axes[i]&q != 0 {
				axes[0] ^= p
			} else {
				t = (axes[0] ^ axes[i]) & p
				axes[0] ^= t
				axes[i] ^= t
			}
		}
	}
	return axes
}

// repeatCount gives the number of positions holding the same symbol as the
// position before them.
func repeatCount(block *blockpress.Block) int {
	count := 0
	for i := 1; i < len(block); i++ {
		if block[i] == block[i-1] {
			count++
		}
	}
	return count
}

// HilbertAdaptive keeps whichever of the original order and the Hilbert order
// has more immediate repeats, preferring the Hilbert order on ties. The choice
// is pushed on the trail as one flag (true means reordered) so Reverse can
// undo it.
type HilbertAdaptive struct{}

func (HilbertAdaptive) Name() string { return "hilbert-adaptive" }

func (HilbertAdaptive) Transform(section *blockpress.Section) error {
	curve := permutation{order: &hilbertOrder}
	reordered := section.Symbols
	curve.apply(&reordered)

	useCurve := repeatCount(&reordered) >= repeatCount(&section.Symbols)
	if err := section.Trail.PushFlag(useCurve); err != nil {
		return err
	}
	if useCurve {
		section.Symbols = reordered
	}
	return nil
}

func (HilbertAdaptive) Reverse(section *blockpress.Section) error {
	useCurve, err := section.Trail.PopFlag()
	if err != nil {
		return err
	}
	if useCurve {
		curve := permutation{order: &hilbertOrder}
		curve.undo(&section.Symbols)
	}
	return nil
}
