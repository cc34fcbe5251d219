package utils_test

import (
	"testing"
	"time"

	"tracker/src/utils"

	"github.com/stretchr/testify/assert"
)

func TestCache(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	cache := utils.NewCache[int](time.Minute).WithClock(func() time.Time { return now })

	_, ok := cache.Get()
	assert.False(t, ok, "empty cache")

	cache.Set(42)
	v, ok := cache.Get()
	assert.True(t, ok)
	assert.Equal(t, 42, v)

	now = now.Add(59 * time.Second)
	_, ok = cache.Get()
	assert.True(t, ok)

	now = now.Add(time.Second)
	_, ok = cache.Get()
	assert.False(t, ok, "expired at the ttl")

	cache.Set(7)
	cache.Clear()
	v, ok = cache.Get()
	assert.False(t, ok)
	assert.Zero(t, v)
}
