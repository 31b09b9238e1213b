package blockpress

import (
	"fmt"
	"io"
	"math/bits"
)

const (
	// SectionEdge is the number of voxels along each axis of a section.
	SectionEdge = 16
	// BlockSize is the number of symbols in one section.
	BlockSize = SectionEdge * SectionEdge * SectionEdge

	// MinBitWidth is the smallest width the on-disk packed format ever uses,
	// regardless of how small the palette is.
	MinBitWidth = 4
	// MaxBitWidth is the largest supported width of a packed entry.
	MaxBitWidth = 32
)

// Block holds the palette indices of one section, linearized as
// `y*256 + z*16 + x`.
type Block [BlockSize]uint32

// Section is one block together with the side information that travels with
// it through a single pipeline pass.
type Section struct {
	Symbols Block
	// PaletteSize is the number of distinct values valid for Symbols. Every
	// symbol must be less than this at each stage boundary.
	PaletteSize uint32
	// Trail records what transforms need to undo themselves.
	Trail Trail
}

// Index returns the linear index of the voxel at local (x, y, z), each in
// [0, 16).
func Index(x, y, z uint) int {
	return int(y<<8 | z<<4 | x)
}

// Coordinates is the inverse of [Index].
func Coordinates(index int) (x, y, z uint) {
	x = uint(index) & 0xf
	z = (uint(index) >> 4) & 0xf
	y = (uint(index) >> 8) & 0xf
	return
}

// BitWidth gives the number of bits used to pack one entry of a palette of the
// given size: ceil(log2(paletteSize)), but never less than [MinBitWidth].
func BitWidth(paletteSize uint32) uint {
	if paletteSize <= 1 {
		return MinBitWidth
	}
	width := uint(bits.Len32(paletteSize - 1))
	if width < MinBitWidth {
		return MinBitWidth
	}
	return width
}

// CheckRange verifies that every symbol is a valid palette index. The error
// names the first offending position.
func (s *Section) CheckRange() error {
	return CheckBlockRange(&s.Symbols, s.PaletteSize)
}

// CheckBlockRange is [Section.CheckRange] for a bare block.
func CheckBlockRange(block *Block, paletteSize uint32) error {
	for i, value := range block {
		if value >= paletteSize {
			return ErrSymbolOutOfRange.WithMessage(
				fmt.Sprintf(
					"symbol %d at position %d not in range [0, %d)",
					value,
					i,
					paletteSize,
				),
			)
		}
	}
	return nil
}

// Clone returns a deep copy of the section, including its trail.
func (s *Section) Clone() *Section {
	return &Section{
		Symbols:     s.Symbols,
		PaletteSize: s.PaletteSize,
		Trail:       s.Trail.Clone(),
	}
}

// Transformer is a reversible, in-place recoding of a section.
//
// Transform may grow the palette size but never shrinks it. Reverse is called
// with the section exactly as Transform left it and must restore both the
// symbols and the palette size. Anything else a transform needs to undo its
// work goes on the section's trail.
type Transformer interface {
	Name() string
	Transform(section *Section) error
	Reverse(section *Section) error
}

// Coder entropy-codes exactly [BlockSize] symbols. The symbol count is implicit
// and never stored in the output.
type Coder interface {
	Name() string
	Encode(block *Block, paletteSize uint32) ([]byte, error)
	Decode(data []byte, paletteSize uint32, dest *Block) error
}

// Compressor is a generic byte-stream compressor applied to coder output.
//
// Both methods read the input until EOF and return the number of bytes written
// to the output. If an error occurred, the value is undefined and should not be
// used.
type Compressor interface {
	Name() string
	Compress(input io.Reader, output io.Writer) (int64, error)
	Decompress(input io.Reader, output io.Writer) (int64, error)
}
