package hashutil

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBlake3HashReaderMatchesBytes(t *testing.T) {
	data := []byte("batik parang rusak")

	fromReader, err := Blake3HashReader(bytes.NewReader(data))
	require.NoError(t, err)

	assert.Equal(t, Blake3Hash(data), fromReader)
	assert.Len(t, fromReader, 64)
}

func TestSha3256HashIsStable(t *testing.T) {
	assert.Equal(t, Sha3256Hash([]byte("key")), Sha3256Hash([]byte("key")))
	assert.NotEqual(t, Sha3256Hash([]byte("key")), Sha3256Hash([]byte("other")))
}
