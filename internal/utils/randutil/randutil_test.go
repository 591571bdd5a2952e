package randutil

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAPIKey(t *testing.T) {
	a, err := NewAPIKey(32)
	require.NoError(t, err)
	b, err := NewAPIKey(32)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(a, APIKeyPrefix))
	assert.NotEqual(t, a, b)
}

func TestMaskString(t *testing.T) {
	assert.Equal(t, "abcd****wxyz", MaskString("abcdefghwxyz", 4, 4))
	assert.Equal(t, "short", MaskString("short", 4, 4))
}
