package chunking

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWordCounter(t *testing.T) {
	assert.Equal(t, 0, WordCounter{}.Count(""))
	assert.Equal(t, 3, WordCounter{}.Count(" one\ttwo\n three "))
}

func TestTiktokenCounter(t *testing.T) {
	c, err := NewTiktokenCounter("")
	if err != nil {
		t.Skipf("encoding unavailable: %v", err)
	}
	require.NotNil(t, c)

	assert.Equal(t, 0, c.Count(""))
	assert.Greater(t, c.Count("hello world"), 0)
	assert.Greater(t, c.Count("hello world, hello again"), c.Count("hello world"))
}
