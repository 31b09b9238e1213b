package coder

import (
	"fmt"

	"github.com/dargueta/blockpress"
)

// maxBytewisePalette is the largest palette whose symbols fit in one byte.
const maxBytewisePalette = 256

// Bytewise stores every symbol as one byte, so a block is always exactly
// [blockpress.BlockSize] bytes. It's the baseline the entropy coder is
// measured against.
type Bytewise struct{}

func (Bytewise) Name() string { return "bytewise" }

func checkBytewisePalette(paletteSize uint32) error {
	if paletteSize > maxBytewisePalette {
		return blockpress.ErrArgumentOutOfRange.WithMessage(
			fmt.Sprintf(
				"bytewise coding needs a palette of at most %d, got %d",
				maxBytewisePalette,
				paletteSize,
			),
		)
	}
	return nil
}

func (Bytewise) Encode(block *blockpress.Block, paletteSize uint32) ([]byte, error) {
	if err := checkBytewisePalette(paletteSize); err != nil {
		return nil, err
	}

	output := make([]byte, blockpress.BlockSize)
	for i, symbol := range block {
		if symbol >= paletteSize {
			return nil, blockpress.ErrSymbolOutOfRange.WithMessage(
				fmt.Sprintf(
					"symbol %d at position %d not in range [0, %d)",
					symbol,
					i,
					paletteSize,
				),
			)
		}
		output[i] = byte(symbol)
	}
	return output, nil
}

func (Bytewise) Decode(data []byte, paletteSize uint32, dest *blockpress.Block) error {
	if err := checkBytewisePalette(paletteSize); err != nil {
		return err
	}
	if len(data) < blockpress.BlockSize {
		return blockpress.ErrUnderflowOnDecode.WithMessage(
			fmt.Sprintf(
				"bytewise block needs %d bytes, got %d", blockpress.BlockSize, len(data)),
		)
	}

	for i := range dest {
		dest[i] = uint32(data[i])
	}
	return nil
}
