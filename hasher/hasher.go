// Package hasher computes content digests for uploaded files.
//
// The algorithm is selected per upload channel. All algorithms return
// lowercase hex digests so blocklist lookups and storage-name fragments
// stay format-independent.
package hasher

import (
	"crypto/md5"  //nolint:gosec // kept for legacy blocklist compatibility
	"crypto/sha1" //nolint:gosec // kept for legacy blocklist compatibility
	"crypto/sha256"
	"encoding/hex"
	"hash"

	"github.com/code19m/errx"
	"golang.org/x/crypto/blake2b"
)

// CodeUnknownAlgorithm is returned when an unsupported algorithm is requested.
const CodeUnknownAlgorithm = "UNKNOWN_HASH_ALGORITHM"

// Algorithm identifies a supported digest algorithm.
type Algorithm string

const (
	SHA256  Algorithm = "sha256"
	SHA1    Algorithm = "sha1"
	MD5     Algorithm = "md5"
	Blake2b Algorithm = "blake2b"

	// Default is used when a channel does not set an algorithm.
	Default = SHA256
)

// Sum returns the hex digest of data using the given algorithm.
func Sum(algo Algorithm, data []byte) (string, error) {
	h, err := newHash(algo)
	if err != nil {
		return "", errx.Wrap(err)
	}
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil)), nil
}

// MustSum is like Sum but panics on an unknown algorithm.
// Intended for call sites that already validated the channel config.
func MustSum(algo Algorithm, data []byte) string {
	digest, err := Sum(algo, data)
	if err != nil {
		panic(err)
	}
	return digest
}

// Valid reports whether algo names a supported algorithm.
func Valid(algo Algorithm) bool {
	_, err := newHash(algo)
	return err == nil
}

func newHash(algo Algorithm) (hash.Hash, error) {
	switch algo {
	case SHA256, "":
		return sha256.New(), nil
	case SHA1:
		return sha1.New(), nil //nolint:gosec
	case MD5:
		return md5.New(), nil //nolint:gosec
	case Blake2b:
		h, err := blake2b.New256(nil)
		if err != nil {
			return nil, errx.Wrap(err)
		}
		return h, nil
	default:
		return nil, errx.New("unsupported hash algorithm: "+string(algo), errx.WithCode(CodeUnknownAlgorithm))
	}
}
