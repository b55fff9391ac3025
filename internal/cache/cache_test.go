package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemorySetGetInvalidate(t *testing.T) {
	c := NewMemory[[]string](time.Minute, "v1")

	_, ok := c.Get("org_1")
	assert.False(t, ok)

	c.Set("org_1", []string{"a", "b"}, 0)
	got, ok := c.Get("org_1")
	require.True(t, ok)
	assert.Equal(t, []string{"a", "b"}, got)

	c.Invalidate("org_1")
	_, ok = c.Get("org_1")
	assert.False(t, ok)
}

func TestMemoryExpires(t *testing.T) {
	c := NewMemory[int](time.Minute, "")
	c.Set("k", 7, 10*time.Millisecond)
	time.Sleep(30 * time.Millisecond)
	_, ok := c.Get("k")
	assert.False(t, ok)
}

func TestMemoryVersionNamespacesKeys(t *testing.T) {
	v1 := NewMemory[int](time.Minute, "v1")
	v1.Set("k", 1, 0)

	raw, ok := v1.store.Get("v1:k")
	require.True(t, ok)
	assert.Equal(t, 1, raw)

	_, ok = v1.store.Get("k")
	assert.False(t, ok)
	assert.Equal(t, "v1", v1.Version())
}

func TestNop(t *testing.T) {
	var c Cache[int] = Nop[int]{}
	c.Set("k", 1, time.Minute)
	_, ok := c.Get("k")
	assert.False(t, ok)
}
