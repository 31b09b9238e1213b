package coder

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/dargueta/blockpress"
	"github.com/icza/bitio"
)

// Range register constants. The registers are 32 bits wide but kept in uint64
// so products of a range and a cumulative count never overflow.
const (
	precision    = 32
	wholeRange   = uint64(1) << precision
	halfRange    = wholeRange / 2
	quarterRange = wholeRange / 4

	// maxModelTotal bounds the model's total count. The range never drops
	// below a quarter after renormalizing, so as long as the total stays under
	// that, every symbol keeps a non-empty interval.
	maxModelTotal = quarterRange
)

// rangeState is everything encoder and decoder track in lockstep: the current
// interval and the adaptive model.
type rangeState struct {
	low   uint64
	high  uint64
	model *frequencyModel
}

func newRangeState(paletteSize uint32) (rangeState, error) {
	if paletteSize == 0 {
		return rangeState{}, blockpress.ErrArgumentOutOfRange.WithMessage(
			"arithmetic coding needs a palette size of at least 1")
	}
	if uint64(paletteSize)+blockpress.BlockSize >= maxModelTotal {
		return rangeState{}, blockpress.ErrArgumentOutOfRange.WithMessage(
			fmt.Sprintf("palette size %d is too large for the model", paletteSize))
	}
	return rangeState{
		low:   0,
		high:  wholeRange - 1,
		model: newFrequencyModel(paletteSize),
	}, nil
}

// narrow shrinks the interval to the part the model assigns to `symbol`, whose
// cumulative range is [symLow, symHigh), then lets the model observe it. Both
// directions call this with the same arguments in the same order.
func (s *rangeState) narrow(symbol, symLow, symHigh uint32) {
	span := s.high - s.low + 1
	total := uint64(s.model.total)
	s.high = s.low + span*uint64(symHigh)/total - 1
	s.low = s.low + span*uint64(symLow)/total
	s.model.observe(symbol)
}

// ArithmeticCoding is an adaptive order-0 arithmetic coder. Its model starts
// out uniform over the palette and counts each symbol as it's coded.
//
// The output is a bit stream padded with zeros to a whole byte. No symbol count
// or end marker is stored.
type ArithmeticCoding struct{}

func (ArithmeticCoding) Name() string { return "arithmetic" }

type arithmeticEncoder struct {
	rangeState
	out     *bitio.Writer
	pending int
}

// emit writes `bit` followed by the opposite bits deferred while the interval
// straddled the midpoint.
func (e *arithmeticEncoder) emit(bit bool) error {
	if err := e.out.WriteBool(bit); err != nil {
		return err
	}
	for ; e.pending > 0; e.pending-- {
		if err := e.out.WriteBool(!bit); err != nil {
			return err
		}
	}
	return nil
}

func (e *arithmeticEncoder) renormalize() error {
	for {
		switch {
		case e.high < halfRange:
			if err := e.emit(false); err != nil {
				return err
			}
		case e.low >= halfRange:
			if err := e.emit(true); err != nil {
				return err
			}
			e.low -= halfRange
			e.high -= halfRange
		case e.low >= quarterRange && e.high < 3*quarterRange:
			e.pending++
			e.low -= quarterRange
			e.high -= quarterRange
		default:
			return nil
		}
		e.low <<= 1
		e.high = e.high<<1 | 1
	}
}

// finish emits just enough bits to pin a value inside the final interval. Any
// bits a decoder reads past them are taken as zero, which still lands inside.
func (e *arithmeticEncoder) finish() error {
	e.pending++
	if e.low < quarterRange {
		return e.emit(false)
	}
	return e.emit(true)
}

func (ArithmeticCoding) Encode(block *blockpress.Block, paletteSize uint32) ([]byte, error) {
	state, err := newRangeState(paletteSize)
	if err != nil {
		return nil, err
	}

	var output bytes.Buffer
	encoder := arithmeticEncoder{rangeState: state, out: bitio.NewWriter(&output)}

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

		symLow, symHigh := encoder.model.interval(symbol)
		encoder.narrow(symbol, symLow, symHigh)
		if err := encoder.renormalize(); err != nil {
			return nil, err
		}
	}

	if err := encoder.finish(); err != nil {
		return nil, err
	}
	// Close pads the last partial byte with zeros.
	if err := encoder.out.Close(); err != nil {
		return nil, err
	}
	return output.Bytes(), nil
}

type arithmeticDecoder struct {
	rangeState
	in    *bitio.Reader
	value uint64
	// exhausted is set once the input runs out; every bit after that is 0.
	exhausted bool
}

func (d *arithmeticDecoder) nextBit() (uint64, error) {
	if d.exhausted {
		return 0, nil
	}
	bit, err := d.in.ReadBool()
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			d.exhausted = true
			return 0, nil
		}
		return 0, err
	}
	if bit {
		return 1, nil
	}
	return 0, nil
}

func (d *arithmeticDecoder) renormalize() error {
	for {
		switch {
		case d.high < halfRange:
		case d.low >= halfRange:
			d.value -= halfRange
			d.low -= halfRange
			d.high -= halfRange
		case d.low >= quarterRange && d.high < 3*quarterRange:
			d.value -= quarterRange
			d.low -= quarterRange
			d.high -= quarterRange
		default:
			return nil
		}
		d.low <<= 1
		d.high = d.high<<1 | 1
		bit, err := d.nextBit()
		if err != nil {
			return err
		}
		d.value = d.value<<1 | bit
	}
}

func (ArithmeticCoding) Decode(data []byte, paletteSize uint32, dest *blockpress.Block) error {
	state, err := newRangeState(paletteSize)
	if err != nil {
		return err
	}

	decoder := arithmeticDecoder{rangeState: state, in: bitio.NewReader(bytes.NewReader(data))}
	for i := 0; i < precision; i++ {
		bit, err := decoder.nextBit()
		if err != nil {
			return err
		}
		decoder.value = decoder.value<<1 | bit
	}

	for i := range dest {
		span := decoder.high - decoder.low + 1
		total := uint64(decoder.model.total)
		target := ((decoder.value-decoder.low+1)*total - 1) / span
		if target >= total {
			return blockpress.ErrInvalidArgument.WithMessage(
				fmt.Sprintf("corrupt arithmetic-coded data at symbol %d", i),
			)
		}

		symbol, symLow, symHigh := decoder.model.locate(uint32(target))
		dest[i] = symbol
		decoder.narrow(symbol, symLow, symHigh)
		if err := decoder.renormalize(); err != nil {
			return err
		}
	}
	return nil
}
