package lattice

// SwapIndex selects one slot of a SwapBuffer. The slot whose parity matches
// the tick holds the previous step's value; Other() is written during the tick.
type SwapIndex uint8

// SwapIndexFromTick returns the slot with parity tick mod 2.
func SwapIndexFromTick(tick uint64) SwapIndex {
	return SwapIndex(tick & 1)
}

// Other flips the parity.
func (i SwapIndex) Other() SwapIndex {
	return i ^ 1
}

// SwapBuffer holds two values of T whose roles alternate every tick.
type SwapBuffer[T any] [2]T

// Get returns the slot selected by i.
func (b *SwapBuffer[T]) Get(i SwapIndex) *T {
	return &b[i&1]
}

// Pair returns the slot selected by curr followed by the other slot. The two
// pointers never alias.
func (b *SwapBuffer[T]) Pair(curr SwapIndex) (*T, *T) {
	c := curr & 1
	return &b[c], &b[c^1]
}
