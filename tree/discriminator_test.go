package tree

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSameID(t *testing.T) {
	var d SameID
	assert.True(t, d.Same(3, 3))
	assert.False(t, d.Same(3, 4))
	assert.False(t, d.Same(NoID, NoID))
}

func TestDisjoint(t *testing.T) {
	assert.False(t, Disjoint{}.Same(3, 3))
}

func TestSharedIDs(t *testing.T) {
	d := NewSharedIDs(1, 2, 3, -4)

	assert.Equal(t, uint64(3), d.Len())
	assert.True(t, d.Same(2, 2))
	assert.False(t, d.Same(7, 7), "id outside the overlap")
	assert.False(t, d.Same(2, 3))
	assert.False(t, d.Same(-4, -4))
}

func TestCount(t *testing.T) {
	var c Count
	c.AddDistances(3)
	c.AddComparisons(2)
	c.AddDistances(1)

	assert.Equal(t, uint64(4), c.Distances())
	assert.Equal(t, uint64(2), c.Comparisons())

	c.Reset()
	assert.Zero(t, c.Distances())
	assert.Zero(t, c.Comparisons())
}
