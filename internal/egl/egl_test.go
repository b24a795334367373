package egl

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBestConfigIndexPicksGreatestSamples(t *testing.T) {
	assert.Equal(t, 2, bestConfigIndex([]int32{0, 4, 8, 2}))
}

func TestBestConfigIndexTiesResolveLastSeen(t *testing.T) {
	assert.Equal(t, 2, bestConfigIndex([]int32{4, 4, 4}))
}

func TestBestConfigIndexEmpty(t *testing.T) {
	assert.Equal(t, -1, bestConfigIndex(nil))
}

func TestBestConfigIndexSingle(t *testing.T) {
	assert.Equal(t, 0, bestConfigIndex([]int32{7}))
}
