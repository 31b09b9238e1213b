// Package report aggregates per-section pipeline results into totals,
// per-palette-size buckets and a rank-frequency profile.
package report

import (
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/dargueta/blockpress"
	"github.com/dargueta/blockpress/pipeline"
	"github.com/dustin/go-humanize"
	"github.com/gocarina/gocsv"
)

// Bucket totals the results of all sections with the same original palette
// size.
type Bucket struct {
	PaletteSize  uint32 `csv:"palette_size"`
	Sections     int    `csv:"sections"`
	EncodedBytes int64  `csv:"encoded_bytes"`
	FinalBytes   int64  `csv:"final_bytes"`
	SideBits     int64  `csv:"side_bits"`
}

// ProfileRow is one rank of the rank-frequency profile: the total number of
// symbols, over all profiled sections, that had the rank-th most common value
// of their section.
type ProfileRow struct {
	Rank  int    `csv:"rank"`
	Count uint64 `csv:"count"`
}

// Summary is the overall result of one pipeline.
type Summary struct {
	Pipeline  string
	Processed int
	Skipped   int
	// Distinct is the number of processed sections with different contents.
	Distinct     int
	EncodedBytes int64
	FinalBytes   int64
	SideBits     int64
}

// BaselineBytes is the size of the processed sections at one byte per symbol.
func (s Summary) BaselineBytes() int64 {
	return int64(s.Processed) * blockpress.BlockSize
}

// BitsPerSymbol is the average compressed cost of one symbol, counting the
// side channel. It's 0 if nothing was processed.
func (s Summary) BitsPerSymbol() float64 {
	if s.Processed == 0 {
		return 0
	}
	totalBits := float64(s.FinalBytes*8 + s.SideBits)
	return totalBits / float64(s.Processed*blockpress.BlockSize)
}

// Accumulator collects results from a pipeline. It implements
// [pipeline.Reporter] and is safe for concurrent use.
type Accumulator struct {
	lock    sync.Mutex
	summary Summary
	buckets map[uint32]*Bucket
	profile []uint64
	digests map[[32]byte]struct{}
}

func NewAccumulator(name string) *Accumulator {
	return &Accumulator{
		summary: Summary{Pipeline: name},
		buckets: make(map[uint32]*Bucket),
		digests: make(map[[32]byte]struct{}),
	}
}

func (a *Accumulator) Record(result pipeline.Result) {
	a.lock.Lock()
	defer a.lock.Unlock()

	if result.Skipped {
		a.summary.Skipped++
		return
	}

	a.summary.Processed++
	a.summary.EncodedBytes += int64(result.EncodedSize)
	a.summary.FinalBytes += int64(result.FinalSize)
	a.summary.SideBits += int64(result.SideBits)

	bucket, ok := a.buckets[result.PaletteSize]
	if !ok {
		bucket = &Bucket{PaletteSize: result.PaletteSize}
		a.buckets[result.PaletteSize] = bucket
	}
	bucket.Sections++
	bucket.EncodedBytes += int64(result.EncodedSize)
	bucket.FinalBytes += int64(result.FinalSize)
	bucket.SideBits += int64(result.SideBits)

	if _, seen := a.digests[result.Digest]; !seen {
		a.digests[result.Digest] = struct{}{}
		a.summary.Distinct++
	}

	for len(a.profile) < len(result.Profile) {
		a.profile = append(a.profile, 0)
	}
	for rank, count := range result.Profile {
		a.profile[rank] += uint64(count)
	}
}

func (a *Accumulator) Summary() Summary {
	a.lock.Lock()
	defer a.lock.Unlock()
	return a.summary
}

// Buckets returns a copy of the buckets, sorted by palette size.
func (a *Accumulator) Buckets() []Bucket {
	a.lock.Lock()
	defer a.lock.Unlock()

	buckets := make([]Bucket, 0, len(a.buckets))
	for _, bucket := range a.buckets {
		buckets = append(buckets, *bucket)
	}
	sort.Slice(buckets, func(i, j int) bool {
		return buckets[i].PaletteSize < buckets[j].PaletteSize
	})
	return buckets
}

// Profile returns the rank-frequency profile. It's empty unless the pipeline
// collected profiles.
func (a *Accumulator) Profile() []ProfileRow {
	a.lock.Lock()
	defer a.lock.Unlock()

	rows := make([]ProfileRow, len(a.profile))
	for rank, count := range a.profile {
		rows[rank] = ProfileRow{Rank: rank, Count: count}
	}
	return rows
}

func (a *Accumulator) WriteBucketsCSV(w io.Writer) error {
	buckets := a.Buckets()
	return gocsv.Marshal(&buckets, w)
}

func (a *Accumulator) WriteProfileCSV(w io.Writer) error {
	rows := a.Profile()
	return gocsv.Marshal(&rows, w)
}

// WriteText prints a short human-readable summary.
func (a *Accumulator) WriteText(w io.Writer) error {
	summary := a.Summary()

	ratio := 0.0
	if baseline := summary.BaselineBytes(); baseline > 0 {
		ratio = float64(summary.FinalBytes) / float64(baseline) * 100
	}

	_, err := fmt.Fprintf(
		w,
		"%s\n"+
			"  sections:   %s processed, %s skipped, %s distinct\n"+
			"  encoded:    %s\n"+
			"  compressed: %s (%.2f%% of one byte per symbol)\n"+
			"  side data:  %s bits\n"+
			"  cost:       %.4f bits per symbol\n",
		summary.Pipeline,
		humanize.Comma(int64(summary.Processed)),
		humanize.Comma(int64(summary.Skipped)),
		humanize.Comma(int64(summary.Distinct)),
		humanize.Bytes(uint64(summary.EncodedBytes)),
		humanize.Bytes(uint64(summary.FinalBytes)),
		ratio,
		humanize.Comma(summary.SideBits),
		summary.BitsPerSymbol(),
	)
	return err
}
