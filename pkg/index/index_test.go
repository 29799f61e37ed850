package index

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNameIndex(t *testing.T) {
	idx := NewNameIndex()

	_, ok := idx.Get("a")
	assert.False(t, ok)

	idx.Set("a", "Personal")
	name, ok := idx.Get("a")
	assert.True(t, ok)
	assert.Equal(t, "Personal", name)

	idx.Set("b", "")
	name, ok = idx.Get("b")
	assert.True(t, ok, "misses are remembered")
	assert.Empty(t, name)

	lookups, hits := idx.Stats()
	assert.Equal(t, 3, lookups)
	assert.Equal(t, 2, hits)
	assert.Equal(t, 1, idx.Len())
}
