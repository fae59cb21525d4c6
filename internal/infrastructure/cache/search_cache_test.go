package cache

import (
	"testing"
	"time"

	"flight-tracker-service/internal/domain/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchCache_GetSet(t *testing.T) {
	c := NewSearchCache(time.Minute)

	_, ok := c.Get("k")
	assert.False(t, ok)

	results := []entity.ScoredFlight{{Route: "LHE-BKK", Score: 40}}
	assert.True(t, c.SetIfGeneration("k", results, c.Generation()))

	got, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, results, got)

	// callers get their own slice
	got[0].Score = 1
	again, _ := c.Get("k")
	assert.Equal(t, 40.0, again[0].Score)
}

func TestSearchCache_NonPositiveTTLDisables(t *testing.T) {
	assert.Nil(t, NewSearchCache(0))
	assert.Nil(t, NewSearchCache(-time.Second))
}

func TestSearchCache_FlushRejectsStaleWrites(t *testing.T) {
	c := NewSearchCache(time.Minute)
	gen := c.Generation()

	c.Flush()
	assert.False(t, c.SetIfGeneration("k", []entity.ScoredFlight{{Route: "stale"}}, gen))
	_, ok := c.Get("k")
	assert.False(t, ok)

	assert.True(t, c.SetIfGeneration("k", []entity.ScoredFlight{{Route: "fresh"}}, c.Generation()))
	assert.Equal(t, 1, c.Len())

	c.Flush()
	assert.Zero(t, c.Len())
}

func TestSearchCache_Expiry(t *testing.T) {
	c := NewSearchCache(20 * time.Millisecond)
	c.SetIfGeneration("k", []entity.ScoredFlight{{Route: "LHE-BKK"}}, c.Generation())

	assert.Eventually(t, func() bool {
		_, ok := c.Get("k")
		return !ok
	}, time.Second, 10*time.Millisecond)
}
