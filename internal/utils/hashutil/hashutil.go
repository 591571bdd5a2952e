package hashutil

import (
	"encoding/hex"
	"io"

	"golang.org/x/crypto/sha3"
	"lukechampine.com/blake3"
)

func Blake3Hash(data []byte) string {
	hash := blake3.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// Blake3HashReader digests r without buffering it in memory.
func Blake3HashReader(r io.Reader) (string, error) {
	hasher := blake3.New(32, nil)
	if _, err := io.Copy(hasher, r); err != nil {
		return "", err
	}

	return hex.EncodeToString(hasher.Sum(nil)), nil
}

func Sha3256Hash(data []byte) string {
	hash := sha3.Sum256(data)
	return hex.EncodeToString(hash[:])
}
