package apk

import (
	"crypto/sha1" //nolint:gosec // legacy mode kept for older package consumers
	"encoding/hex"
	"fmt"
	"hash"
	"io"

	"github.com/opencontainers/go-digest"
)

// HashAlgorithm identifies the digest computed over the compressed payload
// segment and recorded in the metadata's datahash field.
type HashAlgorithm string

const (
	// HashSHA256 is the default content hash algorithm.
	HashSHA256 = HashAlgorithm(digest.SHA256)

	// HashSHA1 remains selectable for consumers that predate SHA-256
	// support. New packages should not use it.
	HashSHA1 HashAlgorithm = "sha1"
)

// newHash returns a fresh hash state for the algorithm.
func (a HashAlgorithm) newHash() (hash.Hash, error) {
	switch a {
	case HashSHA256:
		return digest.SHA256.Hash(), nil
	case HashSHA1:
		return sha1.New(), nil //nolint:gosec // explicit legacy opt-in
	default:
		return nil, fmt.Errorf("%w: unknown hash algorithm %q", ErrInvalidConfig, string(a))
	}
}

// Sum computes the hex-encoded digest of r in a single streaming pass.
func (a HashAlgorithm) Sum(r io.Reader) (string, error) {
	h, err := a.newHash()
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(h, r); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
