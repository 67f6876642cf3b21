package fingerprint

import (
	"crypto/md5"
	"crypto/sha256"
	"fmt"
	"hash"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/zeebo/blake3"
)

// Algorithm names a digest function.
type Algorithm string

const (
	SHA256 Algorithm = "sha256"
	BLAKE3 Algorithm = "blake3"

	// MD5 matches checksums produced by the legacy installer script.
	MD5 Algorithm = "md5"

	// XXH64 is fast but not collision-resistant. Only use it on trusted
	// build output.
	XXH64 Algorithm = "xxh64"
)

// Default is the algorithm used when none is configured.
const Default = SHA256

// Algorithms returns every supported algorithm in display order.
func Algorithms() []Algorithm {
	return []Algorithm{SHA256, BLAKE3, MD5, XXH64}
}

// ParseAlgorithm parses an algorithm name, case-insensitively.
func ParseAlgorithm(name string) (Algorithm, error) {
	algo := Algorithm(strings.ToLower(strings.TrimSpace(name)))
	for _, known := range Algorithms() {
		if algo == known {
			return algo, nil
		}
	}
	return "", fmt.Errorf("unknown digest algorithm %q (supported: %s)", name, supportedList())
}

// CollisionResistant reports whether content equality may be inferred from
// digest equality without further checks. MD5 and XXH64 are accepted only
// when the caller explicitly allows weak digests.
func (a Algorithm) CollisionResistant() bool {
	switch a {
	case SHA256, BLAKE3:
		return true
	default:
		return false
	}
}

// String implements fmt.Stringer.
func (a Algorithm) String() string {
	return string(a)
}

func (a Algorithm) newHash() (hash.Hash, error) {
	switch a {
	case SHA256:
		return sha256.New(), nil
	case BLAKE3:
		return blake3.New(), nil
	case MD5:
		return md5.New(), nil
	case XXH64:
		return xxhash.New(), nil
	default:
		return nil, fmt.Errorf("unknown digest algorithm %q", string(a))
	}
}

func supportedList() string {
	names := make([]string, 0, len(Algorithms()))
	for _, a := range Algorithms() {
		names = append(names, string(a))
	}
	return strings.Join(names, ", ")
}
