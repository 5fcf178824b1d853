package lattice

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLatticeStrides(t *testing.T) {
	l := New[float64](Pt(4, 3, 2))

	assert.Equal(t, [4]int{1, 4, 12, 24}, l.Strides())
	assert.Equal(t, 24, l.Len())
	assert.Len(t, l.Data(), 24)
}

func TestIndexRoundTrip(t *testing.T) {
	l := New[int](Pt(5, 7, 3))

	for i := 0; i < l.Len(); i++ {
		p := l.FromIndex(i)
		require.True(t, p.Within(l.Size()), "point %v out of domain", p)
		assert.Equal(t, i, l.ToIndex(p))
	}
	for p := range l.Full().Points() {
		assert.Equal(t, p, l.FromIndex(l.ToIndex(p)))
	}
}

func TestGetOutsideDomain(t *testing.T) {
	l := New[int](Pt(2, 2, 2))

	assert.Nil(t, l.Get(Pt(-1, 0, 0)))
	assert.Nil(t, l.Get(Pt(0, 2, 0)))
	assert.Nil(t, l.Get(Pt(0, 0, 5)))

	*l.Get(Pt(1, 1, 1)) = 7
	v, ok := l.At(Pt(1, 1, 1))
	assert.True(t, ok)
	assert.Equal(t, 7, v)
	assert.Equal(t, 7, l.Data()[7])

	_, ok = l.At(Pt(3, 0, 0))
	assert.False(t, ok)
}

func TestFullIterationVisitsEachCellOnce(t *testing.T) {
	l := New[int](Pt(6, 4, 3))

	seen := make(map[int]Point)
	for c, v := range l.All(l.Full()) {
		_, dup := seen[c.Index]
		require.False(t, dup, "index %d yielded twice", c.Index)
		seen[c.Index] = c.Point
		assert.Equal(t, c.Index, l.ToIndex(c.Point))
		*v++
	}

	assert.Len(t, seen, 6*4*3)
	for i, v := range l.Data() {
		assert.Equal(t, 1, v, "cell %d", i)
	}
}

func TestSubrangeIteration(t *testing.T) {
	l := New[int](Pt(8, 8, 8))
	r := Box(Pt(1, 2, 3), Pt(4, 4, 7))

	var prev = -1
	count := 0
	for c := range l.All(r) {
		assert.True(t, r.Contains(c.Point))
		assert.Greater(t, c.Index, prev, "x-fastest order")
		prev = c.Index
		count++
	}
	assert.Equal(t, 3*2*4, count)
	assert.Equal(t, r.Len(), count)
}

func TestEmptyAndClippedRanges(t *testing.T) {
	l := New[int](Pt(4, 4, 4))

	count := 0
	for range l.All(Box(Pt(2, 0, 0), Pt(2, 4, 4))) {
		count++
	}
	assert.Zero(t, count)

	count = 0
	for range l.All(Box(Pt(-3, -3, -3), Pt(2, 10, 1))) {
		count++
	}
	assert.Equal(t, 2*4*1, count)
	assert.True(t, Box(Pt(1, 1, 1), Pt(0, 5, 5)).Empty())
	assert.Zero(t, Box(Pt(1, 1, 1), Pt(0, 5, 5)).Len())
}

func TestValuesEarlyExit(t *testing.T) {
	l := New[int](Pt(3, 3, 3))
	l.Fill(2)

	n := 0
	for _, v := range l.Values(l.Full()) {
		assert.Equal(t, 2, v)
		n++
		if n == 5 {
			break
		}
	}
	assert.Equal(t, 5, n)
}

func TestNewPanicsOnEmptySize(t *testing.T) {
	assert.Panics(t, func() { New[int](Pt(0, 1, 1)) })
	assert.Panics(t, func() { New[int](Pt(1, -1, 1)) })
}

func TestSwapIndexLaws(t *testing.T) {
	for tick := uint64(0); tick < 10; tick++ {
		i := SwapIndexFromTick(tick)
		assert.Equal(t, SwapIndexFromTick(tick+1), i.Other())
		assert.Equal(t, i, i.Other().Other())
	}
}

func TestSwapBufferPair(t *testing.T) {
	var b SwapBuffer[float64]
	curr, prev := b.Pair(SwapIndexFromTick(3))
	*curr = 1
	*prev = 2

	assert.NotSame(t, curr, prev)
	assert.Equal(t, 1.0, *b.Get(1))
	assert.Equal(t, 2.0, *b.Get(0))

	curr, prev = b.Pair(SwapIndexFromTick(4))
	assert.Equal(t, 2.0, *curr)
	assert.Equal(t, 1.0, *prev)
}
