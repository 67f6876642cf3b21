// Package fingerprint computes content digests for artifact files.
//
// Files are streamed through the digest in fixed-size chunks, so memory use
// is bounded regardless of file size and the result is identical to hashing
// the whole content at once.
package fingerprint

import (
	"fmt"
	"hash"
	"io"
	"os"
)

// ChunkSize is the read size used when streaming files.
const ChunkSize = 64 << 10

// Hasher computes digests. *Fingerprinter is the production implementation;
// tests substitute their own to observe or fail hashing.
type Hasher interface {
	Algorithm() Algorithm
	HashFile(path string) (Digest, error)
	HashBytes(data []byte) Digest
	NewDigester() *Digester
}

// Fingerprinter hashes files with a single algorithm.
type Fingerprinter struct {
	algo Algorithm
}

// New returns a Fingerprinter for algo.
func New(algo Algorithm) (*Fingerprinter, error) {
	if _, err := algo.newHash(); err != nil {
		return nil, err
	}
	return &Fingerprinter{algo: algo}, nil
}

// Algorithm returns the configured algorithm.
func (f *Fingerprinter) Algorithm() Algorithm {
	return f.algo
}

// HashFile streams the file at path through the digest.
func (f *Fingerprinter) HashFile(path string) (Digest, error) {
	file, err := os.Open(path)
	if err != nil {
		return Digest{}, fmt.Errorf("failed to open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	d := f.NewDigester()
	if _, err := d.ReadFrom(file); err != nil {
		return Digest{}, fmt.Errorf("failed to hash file: %w", err)
	}
	return d.Digest(), nil
}

// HashBytes computes the digest of data.
func (f *Fingerprinter) HashBytes(data []byte) Digest {
	d := f.NewDigester()
	_, _ = d.Write(data)
	return d.Digest()
}

// NewDigester returns an incremental digest writer.
func (f *Fingerprinter) NewDigester() *Digester {
	h, err := f.algo.newHash()
	if err != nil {
		// New validated the algorithm.
		panic(err)
	}
	return &Digester{algo: f.algo, h: h}
}

// Digester accumulates written bytes into a digest. It is an io.Writer so it
// can sit behind io.TeeReader or io.MultiWriter during copies.
type Digester struct {
	algo Algorithm
	h    hash.Hash
	n    uint64
}

// Write implements io.Writer.
func (d *Digester) Write(p []byte) (int, error) {
	n, err := d.h.Write(p)
	d.n += uint64(n)
	return n, err
}

// ReadFrom reads r to EOF in ChunkSize pieces.
func (d *Digester) ReadFrom(r io.Reader) (int64, error) {
	buf := make([]byte, ChunkSize)
	// Hide any WriterTo on r so the chunk size is always ours.
	return io.CopyBuffer(onlyWriter{d}, onlyReader{r}, buf)
}

// Size returns the number of bytes written so far.
func (d *Digester) Size() uint64 {
	return d.n
}

// Digest returns the digest of everything written so far.
func (d *Digester) Digest() Digest {
	return NewDigest(d.algo, d.h.Sum(nil))
}

type onlyReader struct{ io.Reader }

type onlyWriter struct{ io.Writer }
