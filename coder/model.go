package coder

// frequencyModel is an adaptive order-0 model over the symbols [0, size). Every
// symbol starts with a count of 1 and gains 1 each time it's observed.
//
// Counts are kept in a Fenwick tree so cumulative lookups stay logarithmic for
// the large palettes escape symbols and delta widening can produce.
type frequencyModel struct {
	// tree is 1-indexed; tree[i] holds the sum of the counts of the
	// lowbit(i) symbols ending at symbol i-1.
	tree  []uint32
	size  int
	total uint32
	// topStep is the largest power of two not greater than size.
	topStep int
}

func newFrequencyModel(size uint32) *frequencyModel {
	model := &frequencyModel{
		tree:  make([]uint32, size+1),
		size:  int(size),
		total: size,
	}
	for i := 1; i <= model.size; i++ {
		model.tree[i] = uint32(i & -i)
	}
	model.topStep = 1
	for model.topStep*2 <= model.size {
		model.topStep *= 2
	}
	return model
}

// cumulative gives the sum of the counts of all symbols less than `symbol`.
func (m *frequencyModel) cumulative(symbol uint32) uint32 {
	sum := uint32(0)
	for i := int(symbol); i > 0; i -= i & -i {
		sum += m.tree[i]
	}
	return sum
}

// interval gives the cumulative range [low, high) the model assigns to
// `symbol`, out of [0, total).
func (m *frequencyModel) interval(symbol uint32) (low, high uint32) {
	return m.cumulative(symbol), m.cumulative(symbol + 1)
}

// locate finds the symbol whose interval contains `target`, which must be less
// than total, and returns it together with its interval.
func (m *frequencyModel) locate(target uint32) (symbol, low, high uint32) {
	position := 0
	remaining := target
	for step := m.topStep; step > 0; step >>= 1 {
		next := position + step
		if next <= m.size && m.tree[next] <= remaining {
			position = next
			remaining -= m.tree[next]
		}
	}

	symbol = uint32(position)
	low = target - remaining
	_, high = m.interval(symbol)
	return symbol, low, high
}

// observe records one more occurrence of `symbol`. Encoder and decoder both go
// through this after every symbol, which is what keeps their models identical.
func (m *frequencyModel) observe(symbol uint32) {
	for i := int(symbol) + 1; i <= m.size; i += i & -i {
		m.tree[i]++
	}
	m.total++
}
