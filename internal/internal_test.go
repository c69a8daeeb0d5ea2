package internal

import (
	"maps"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIterSeq2Concat(t *testing.T) {
	assert := assert.New(t)

	a := map[string]string{"MHZ": "1000000"}
	b := map[string]string{"KHZ": "1000"}

	got := map[string]string{}
	for key, value := range IterSeq2Concat(maps.All(a), maps.All(b)) {
		got[key] = value
	}

	assert.Equal(map[string]string{"MHZ": "1000000", "KHZ": "1000"}, got)

	count := 0
	for range IterSeq2Concat(maps.All(a), maps.All(b)) {
		count++
		break
	}
	assert.Equal(1, count)
}

func TestBetween(t *testing.T) {
	assert := assert.New(t)

	assert.True(Between(uint32(192_000_000), 192_000_000, 432_000_000))
	assert.True(Between(uint32(432_000_000), 192_000_000, 432_000_000))
	assert.False(Between(uint32(191_999_999), 192_000_000, 432_000_000))
	assert.False(Between(uint32(432_000_001), 192_000_000, 432_000_000))
}
