package id

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeneratorIsMonotonic(t *testing.T) {
	g, err := NewGenerator(1)
	require.NoError(t, err)

	prev := g.Next()
	for i := 0; i < 10000; i++ {
		next := g.Next()
		require.Greater(t, next, prev)
		prev = next
	}
}

func TestNewGeneratorRejectsInvalidNode(t *testing.T) {
	_, err := NewGenerator(4096)
	assert.Error(t, err)

	_, err = NewGenerator(-1)
	assert.Error(t, err)
}
