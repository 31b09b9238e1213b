// Package bitpack converts between the packed 64-bit word arrays chunk
// sections are stored as and flat slices of palette indices.
//
// Entries are filled into each word starting from the least-significant bit.
// Two layouts exist on disk, and they are not interchangeable: see
// [Convention].
package bitpack

import (
	"fmt"

	"github.com/dargueta/blockpress"
)

// Convention selects how entries are laid out when the bit width doesn't
// divide 64 evenly. Every caller must pick one explicitly; there is no default.
type Convention int

const (
	// Spanning packs entries end to end across the whole stream. An entry may
	// straddle two words and no bits are wasted. This is the pre-1.16 layout.
	Spanning Convention = iota
	// Aligned stores floor(64 / width) entries per word. Entries never
	// straddle a word boundary and the top 64 % width bits of every word are
	// zero. This is the 1.16+ layout.
	Aligned
)

func (c Convention) String() string {
	switch c {
	case Spanning:
		return "spanning"
	case Aligned:
		return "aligned"
	default:
		return fmt.Sprintf("unknown(%d)", int(c))
	}
}

// ParseConvention parses the name returned by [Convention.String].
func ParseConvention(name string) (Convention, error) {
	switch name {
	case "spanning", "pre-1.16":
		return Spanning, nil
	case "aligned", "1.16":
		return Aligned, nil
	default:
		return 0, blockpress.ErrUnknownStrategy.WithMessage(
			fmt.Sprintf("unknown packing convention %q", name),
		)
	}
}

func (c Convention) validate() error {
	if c != Spanning && c != Aligned {
		return blockpress.ErrInvalidArgument.WithMessage(
			fmt.Sprintf("invalid packing convention %d", int(c)),
		)
	}
	return nil
}

func checkBitWidth(bitWidth uint) error {
	if bitWidth == 0 || bitWidth > blockpress.MaxBitWidth {
		return blockpress.ErrInvalidBitWidth.WithMessage(
			fmt.Sprintf(
				"width %d not in range [1, %d]", bitWidth, blockpress.MaxBitWidth),
		)
	}
	return nil
}

// WordsNeeded gives the number of 64-bit words required to hold `count`
// entries of `bitWidth` bits using the given convention. bitWidth must be
// valid.
func WordsNeeded(count int, bitWidth uint, conv Convention) int {
	if conv == Aligned {
		perWord := 64 / int(bitWidth)
		return (count + perWord - 1) / perWord
	}
	return (count*int(bitWidth) + 63) / 64
}

// Reader yields entries one at a time from a packed word array.
type Reader struct {
	words    []int64
	bitWidth uint
	mask     uint64
	conv     Convention
	// word and offset locate the next entry: the index of the word it starts
	// in and the bit offset within that word.
	word   int
	offset uint
}

// NewReader creates a [Reader] over `words`. The word slice is not copied.
func NewReader(words []int64, bitWidth uint, conv Convention) (*Reader, error) {
	if err := checkBitWidth(bitWidth); err != nil {
		return nil, err
	}
	if err := conv.validate(); err != nil {
		return nil, err
	}
	return &Reader{
		words:    words,
		bitWidth: bitWidth,
		mask:     (uint64(1) << bitWidth) - 1,
		conv:     conv,
	}, nil
}

// Next returns the next entry. It fails with [blockpress.ErrUnderflowOnDecode]
// once the words are exhausted.
func (r *Reader) Next() (uint32, error) {
	if r.conv == Aligned && r.offset+r.bitWidth > 64 {
		// Skip the padding at the top of the word.
		r.word++
		r.offset = 0
	}
	if r.word >= len(r.words) {
		return 0, blockpress.ErrUnderflowOnDecode.WithMessage(
			fmt.Sprintf("ran out of packed words after %d words", len(r.words)),
		)
	}

	value := uint64(r.words[r.word]) >> r.offset
	end := r.offset + r.bitWidth

	if end > 64 {
		// Only possible with Spanning: the high part of the entry is in the low
		// bits of the next word.
		if r.word+1 >= len(r.words) {
			return 0, blockpress.ErrUnderflowOnDecode.WithMessage(
				fmt.Sprintf(
					"entry straddles the end of the input (%d words)", len(r.words)),
			)
		}
		value |= uint64(r.words[r.word+1]) << (64 - r.offset)
		r.word++
		r.offset = end - 64
	} else if end == 64 {
		r.word++
		r.offset = 0
	} else {
		r.offset = end
	}

	return uint32(value & r.mask), nil
}

// Unpack extracts exactly `count` entries from `words`.
func Unpack(words []int64, bitWidth uint, count int, conv Convention) ([]uint32, error) {
	reader, err := NewReader(words, bitWidth, conv)
	if err != nil {
		return nil, err
	}

	needed := WordsNeeded(count, bitWidth, conv)
	if needed > len(words) {
		return nil, blockpress.ErrUnderflowOnDecode.WithMessage(
			fmt.Sprintf(
				"%d entries of %d bits need %d words, got %d",
				count,
				bitWidth,
				needed,
				len(words),
			),
		)
	}

	symbols := make([]uint32, count)
	for i := range symbols {
		symbols[i], err = reader.Next()
		if err != nil {
			return nil, err
		}
	}
	return symbols, nil
}

// UnpackBlock extracts one section's worth of entries into `dest`.
func UnpackBlock(words []int64, bitWidth uint, conv Convention, dest *blockpress.Block) error {
	symbols, err := Unpack(words, bitWidth, blockpress.BlockSize, conv)
	if err != nil {
		return err
	}
	copy(dest[:], symbols)
	return nil
}

// Pack is the exact inverse of [Unpack]. It emits the minimal number of words
// and zeroes every unused bit.
func Pack(symbols []uint32, bitWidth uint, conv Convention) ([]int64, error) {
	if err := checkBitWidth(bitWidth); err != nil {
		return nil, err
	}
	if err := conv.validate(); err != nil {
		return nil, err
	}

	limit := uint64(1) << bitWidth
	words := make([]uint64, WordsNeeded(len(symbols), bitWidth, conv))
	word := 0
	offset := uint(0)

	for i, symbol := range symbols {
		if uint64(symbol) >= limit {
			return nil, blockpress.ErrSymbolOutOfRange.WithMessage(
				fmt.Sprintf(
					"symbol %d at position %d doesn't fit in %d bits",
					symbol,
					i,
					bitWidth,
				),
			)
		}

		if conv == Aligned && offset+bitWidth > 64 {
			word++
			offset = 0
		}

		words[word] |= uint64(symbol) << offset
		end := offset + bitWidth
		if end > 64 {
			words[word+1] |= uint64(symbol) >> (64 - offset)
			word++
			offset = end - 64
		} else if end == 64 {
			word++
			offset = 0
		} else {
			offset = end
		}
	}

	packed := make([]int64, len(words))
	for i, w := range words {
		packed[i] = int64(w)
	}
	return packed, nil
}

// PackBlock packs one section.
func PackBlock(block *blockpress.Block, bitWidth uint, conv Convention) ([]int64, error) {
	return Pack(block[:], bitWidth, conv)
}
