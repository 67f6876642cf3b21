package fingerprint

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// Digest is the content identity of a file. Digests are comparable and can
// be used directly as map keys; two digests are equal only when both the
// algorithm and the sum match.
type Digest struct {
	algo Algorithm
	sum  string
}

// NewDigest wraps a raw sum produced by algo.
func NewDigest(algo Algorithm, sum []byte) Digest {
	return Digest{algo: algo, sum: string(sum)}
}

// Algorithm returns the algorithm that produced the digest.
func (d Digest) Algorithm() Algorithm {
	return d.algo
}

// Bytes returns a copy of the raw sum.
func (d Digest) Bytes() []byte {
	return []byte(d.sum)
}

// Hex returns the hex-encoded sum.
func (d Digest) Hex() string {
	return hex.EncodeToString([]byte(d.sum))
}

// String returns the canonical "<algorithm>:<hex>" form.
func (d Digest) String() string {
	if d.IsZero() {
		return ""
	}
	return string(d.algo) + ":" + d.Hex()
}

// IsZero reports whether d is the zero Digest.
func (d Digest) IsZero() bool {
	return d.algo == "" && d.sum == ""
}

// ParseDigest parses the "<algorithm>:<hex>" form produced by String.
func ParseDigest(s string) (Digest, error) {
	name, hexSum, ok := strings.Cut(s, ":")
	if !ok {
		return Digest{}, fmt.Errorf("invalid digest %q: missing algorithm prefix", s)
	}
	algo, err := ParseAlgorithm(name)
	if err != nil {
		return Digest{}, err
	}
	sum, err := hex.DecodeString(hexSum)
	if err != nil {
		return Digest{}, fmt.Errorf("invalid digest %q: %w", s, err)
	}
	h, err := algo.newHash()
	if err != nil {
		return Digest{}, err
	}
	if len(sum) != h.Size() {
		return Digest{}, fmt.Errorf("invalid %s digest: %d bytes, want %d", algo, len(sum), h.Size())
	}
	return NewDigest(algo, sum), nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Digest) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Digest) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*d = Digest{}
		return nil
	}
	parsed, err := ParseDigest(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
