package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLRUCache_BasicGetPut(t *testing.T) {
	c := newLRUCache[string](3)

	c.put("a", "A")
	c.put("b", "B")

	v, ok := c.get("a")
	assert.True(t, ok)
	assert.Equal(t, "A", v)

	_, ok = c.get("missing")
	assert.False(t, ok)
}

func TestLRUCache_Eviction(t *testing.T) {
	c := newLRUCache[string](2)

	c.put("a", "A")
	c.put("b", "B")
	c.put("c", "C") // evicts "a"

	_, ok := c.get("a")
	assert.False(t, ok, "a should have been evicted")

	v, ok := c.get("b")
	assert.True(t, ok)
	assert.Equal(t, "B", v)
	assert.Equal(t, 2, c.len())
}

func TestLRUCache_AccessPromotesEntry(t *testing.T) {
	c := newLRUCache[string](2)

	c.put("a", "A")
	c.put("b", "B")
	c.get("a")
	c.put("c", "C") // evicts "b", the least recently used

	_, ok := c.get("a")
	assert.True(t, ok)
	_, ok = c.get("b")
	assert.False(t, ok)
}

func TestLRUCache_UpdateExisting(t *testing.T) {
	c := newLRUCache[string](2)

	c.put("a", "A")
	c.put("a", "A2")

	v, _ := c.get("a")
	assert.Equal(t, "A2", v)
	assert.Equal(t, 1, c.len())
}

func TestLRUCache_Disabled(t *testing.T) {
	c := newLRUCache[string](0)
	assert.Nil(t, c)

	c.put("a", "A")
	_, ok := c.get("a")
	assert.False(t, ok)
	assert.Zero(t, c.len())
}
