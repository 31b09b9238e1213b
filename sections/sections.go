// Package sections supplies raw chunk sections to the pipeline: from memory,
// from a CBOR dump file, or generated from a seed.
package sections

import (
	"io"
)

// RawSection is one section as it's stored on disk: a palette length and the
// packed words holding the palette indices. The words are only meaningful
// together with the packing convention of the world they came from.
type RawSection struct {
	// Index is the position of the section in its source.
	Index      int     `cbor:"index"`
	PaletteLen int     `cbor:"palette"`
	Words      []int64 `cbor:"words"`
}

// Source yields raw sections one at a time. Next returns [io.EOF] once all
// sections have been read. A Source need not be safe for concurrent use.
type Source interface {
	Next() (RawSection, error)
}

// SliceSource serves sections from memory.
type SliceSource struct {
	sections []RawSection
	position int
}

func NewSliceSource(sections []RawSection) *SliceSource {
	return &SliceSource{sections: sections}
}

func (s *SliceSource) Next() (RawSection, error) {
	if s.position >= len(s.sections) {
		return RawSection{}, io.EOF
	}
	section := s.sections[s.position]
	s.position++
	return section, nil
}

// ReadAll drains `source` into a slice.
func ReadAll(source Source) ([]RawSection, error) {
	var result []RawSection
	for {
		section, err := source.Next()
		if err == io.EOF {
			return result, nil
		}
		if err != nil {
			return result, err
		}
		result = append(result, section)
	}
}
