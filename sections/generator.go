package sections

import (
	"io"

	"github.com/dargueta/blockpress"
	"github.com/dargueta/blockpress/bitpack"
)

// Materials the generator places. The palette of each section lists the ones
// it actually uses, in order of first appearance.
const (
	materialAir uint32 = iota
	materialStone
	materialDirt
	materialGrass
	materialWater
	materialSand
	materialGravel
	materialCoalOre
	materialIronOre
	materialBedrock
	numMaterials
)

// The generated world is sectionsPerAxis sections wide along X and Z and
// sectionsTall sections high. Sections are numbered X fastest, then Z, then Y,
// and the numbering wraps around once the world is full.
const (
	sectionsPerAxis = 8
	sectionsTall    = 16
	seaLevel        = 62
	// terrainCell is the spacing of the height map lattice, in voxels.
	terrainCell = 32
)

// Generator produces deterministic synthetic sections that look like simple
// overworld terrain: stone with dirt and grass on top, water below sea level,
// ore pockets and caves. It implements [Source].
type Generator struct {
	Seed       uint32
	Count      int
	Convention bitpack.Convention
	next       int
}

func NewGenerator(seed uint32, count int, conv bitpack.Convention) *Generator {
	return &Generator{Seed: seed, Count: count, Convention: conv}
}

func (g *Generator) Next() (RawSection, error) {
	if g.next >= g.Count {
		return RawSection{}, io.EOF
	}
	index := g.next
	g.next++

	section := g.Section(index)
	words, err := bitpack.PackBlock(
		&section.Symbols, blockpress.BitWidth(section.PaletteSize), g.Convention)
	if err != nil {
		return RawSection{}, err
	}
	return RawSection{Index: index, PaletteLen: int(section.PaletteSize), Words: words}, nil
}

// Section builds the unpacked section with the given number.
func (g *Generator) Section(index int) *blockpress.Section {
	cell := index % (sectionsPerAxis * sectionsPerAxis * sectionsTall)
	baseX := int32(cell%sectionsPerAxis) * blockpress.SectionEdge
	baseZ := int32((cell/sectionsPerAxis)%sectionsPerAxis) * blockpress.SectionEdge
	baseY := int32(cell/(sectionsPerAxis*sectionsPerAxis)) * blockpress.SectionEdge

	var paletteIndex [numMaterials]int
	for i := range paletteIndex {
		paletteIndex[i] = -1
	}

	section := &blockpress.Section{}
	for i := range section.Symbols {
		x, y, z := blockpress.Coordinates(i)
		material := g.materialAt(baseX+int32(x), baseY+int32(y), baseZ+int32(z))

		if paletteIndex[material] < 0 {
			paletteIndex[material] = int(section.PaletteSize)
			section.PaletteSize++
		}
		section.Symbols[i] = uint32(paletteIndex[material])
	}
	return section
}

func (g *Generator) materialAt(x, y, z int32) uint32 {
	if y == 0 {
		return materialBedrock
	}

	height := g.heightAt(x, z)
	switch {
	case y > height:
		if y <= seaLevel {
			return materialWater
		}
		return materialAir
	case y == height:
		if height <= seaLevel+1 {
			return materialSand
		}
		return materialGrass
	case y >= height-3:
		if height <= seaLevel+1 {
			return materialSand
		}
		return materialDirt
	}

	// Below the surface layers: caves first, then ore pockets inside stone.
	if y < height-6 && hash3(g.Seed^0x5eed, x>>2, y>>2, z>>2)%11 == 0 {
		return materialAir
	}
	switch pocket := hash3(g.Seed^0x0e5, x>>1, y>>1, z>>1) % 128; {
	case pocket == 0:
		return materialCoalOre
	case pocket == 1 && y < 48:
		return materialIronOre
	case pocket == 2:
		return materialGravel
	}
	return materialStone
}

// heightAt interpolates a coarse lattice of random heights between 40 and 104.
func (g *Generator) heightAt(x, z int32) int32 {
	cellX, cellZ := floorDiv(x, terrainCell), floorDiv(z, terrainCell)
	fracX := x - cellX*terrainCell
	fracZ := z - cellZ*terrainCell

	corner := func(dx, dz int32) int32 {
		return 40 + int32(hash2(g.Seed, cellX+dx, cellZ+dz)%64)
	}
	top := corner(0, 0)*(terrainCell-fracX) + corner(1, 0)*fracX
	bottom := corner(0, 1)*(terrainCell-fracX) + corner(1, 1)*fracX
	return (top*(terrainCell-fracZ) + bottom*fracZ) / (terrainCell * terrainCell)
}

func floorDiv(a, b int32) int32 {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}

// hash32 is a Murmur-style finalizer.
func hash32(x uint32) uint32 {
	x ^= x >> 16
	x *= 0x7feb352d
	x ^= x >> 15
	x *= 0x846ca68b
	x ^= x >> 16
	return x
}

func hash3(seed uint32, x, y, z int32) uint32 {
	h := seed
	h ^= uint32(x) * 0x9e3779b1
	h ^= uint32(y) * 0x85ebca6b
	h ^= uint32(z) * 0xc2b2ae35
	return hash32(h)
}

func hash2(seed uint32, x, z int32) uint32 {
	h := seed
	h ^= uint32(x) * 0x9e3779b1
	h ^= uint32(z) * 0x85ebca6b
	return hash32(h)
}
