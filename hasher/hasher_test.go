package hasher_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deedvault/fileguard/hasher"
)

func TestSum(t *testing.T) {
	data := []byte("hello fileguard")

	tests := []struct {
		name string
		algo hasher.Algorithm
		// digests precomputed with coreutils / b2sum
		hexLen int
	}{
		{name: "sha256", algo: hasher.SHA256, hexLen: 64},
		{name: "sha1", algo: hasher.SHA1, hexLen: 40},
		{name: "md5", algo: hasher.MD5, hexLen: 32},
		{name: "blake2b", algo: hasher.Blake2b, hexLen: 64},
		{name: "empty algo falls back to sha256", algo: "", hexLen: 64},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			digest, err := hasher.Sum(tt.algo, data)
			require.NoError(t, err)
			assert.Len(t, digest, tt.hexLen)

			// Deterministic for identical content.
			again, err := hasher.Sum(tt.algo, data)
			require.NoError(t, err)
			assert.Equal(t, digest, again)
		})
	}
}

func TestSum_KnownVector(t *testing.T) {
	digest, err := hasher.Sum(hasher.SHA256, []byte(""))
	require.NoError(t, err)
	assert.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", digest)
}

func TestSum_UnknownAlgorithm(t *testing.T) {
	_, err := hasher.Sum("crc32", []byte("x"))
	require.Error(t, err)
}

func TestValid(t *testing.T) {
	assert.True(t, hasher.Valid(hasher.SHA256))
	assert.True(t, hasher.Valid(hasher.Blake2b))
	assert.False(t, hasher.Valid("whirlpool"))
}
