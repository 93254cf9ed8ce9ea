// Package xxhash fingerprints cleaned page content.
package xxhash

import (
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// Hasher implements crawler.Hasher with 64-bit xxHash.
type Hasher struct{}

// New returns an xxHash hasher.
func New() *Hasher {
	return &Hasher{}
}

// Hash returns the digest as 16 lowercase hex digits.
func (h *Hasher) Hash(data []byte) (string, error) {
	s := strconv.FormatUint(xxhash.Sum64(data), 16)
	for len(s) < 16 {
		s = "0" + s
	}
	return s, nil
}
