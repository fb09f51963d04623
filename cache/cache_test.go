package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache_GetMiss(t *testing.T) {
	c := New[string](4)
	_, _, ok := c.Get("absent")
	assert.False(t, ok)
}

func TestCache_InsertThenGet(t *testing.T) {
	c := New[string](4)
	c.Insert("a", "value", time.Minute)

	got, age, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, "value", got)
	assert.GreaterOrEqual(t, age, time.Duration(0))
}

func TestCache_ExpiresAfterTTL(t *testing.T) {
	c := New[string](4)
	c.Insert("a", "value", -time.Second) // already expired

	_, _, ok := c.Get("a")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestCache_EvictsOldestWhenFull(t *testing.T) {
	c := New[int](2)
	c.Insert("a", 1, time.Minute)
	c.Insert("b", 2, time.Minute)
	c.Insert("c", 3, time.Minute) // evicts "a", the least recently used

	_, _, ok := c.Get("a")
	assert.False(t, ok)

	_, _, ok = c.Get("b")
	assert.True(t, ok)
	_, _, ok = c.Get("c")
	assert.True(t, ok)
}

func TestCache_GetRefreshesLRUOrder(t *testing.T) {
	c := New[int](2)
	c.Insert("a", 1, time.Minute)
	c.Insert("b", 2, time.Minute)
	c.Get("a") // touch a, making b the least recently used

	c.Insert("c", 3, time.Minute)

	_, _, ok := c.Get("b")
	assert.False(t, ok)
	_, _, ok = c.Get("a")
	assert.True(t, ok)
}

func TestCache_Delete(t *testing.T) {
	c := New[int](4)
	c.Insert("a", 1, time.Minute)
	c.Delete("a")

	_, _, ok := c.Get("a")
	assert.False(t, ok)
}

func TestCache_Clear(t *testing.T) {
	c := New[int](4)
	c.Insert("a", 1, time.Minute)
	c.Insert("b", 2, time.Minute)
	c.Clear()
	assert.Equal(t, 0, c.Len())
}
