// Package digest implements the incremental hash accumulator that cache keys
// are built from. Updates are append-ordered: the same sequence of Add calls
// always produces the same digest, and reordering them changes it. A Digest
// is owned by a single hash computation and is never reset mid-way.
package digest

import (
	"encoding/binary"
	"encoding/hex"
	"hash"
	"io"
	"strconv"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/crypto/blake2b"
)

// delimiterTag frames type-tagged sections so two different field sequences
// cannot collide by concatenation.
const delimiterTag = 0xc5

// Digest accumulates byte sequences, delimiters and integers.
type Digest struct {
	h hash.Hash
}

// New returns an empty accumulator.
func New() *Digest {
	h, err := blake2b.New256(nil)
	if err != nil {
		// Only reachable with an oversized key, and we pass none.
		panic(err)
	}
	return &Digest{h: h}
}

// Write folds p into the digest. It implements io.Writer so subprocess
// output can be streamed in directly; it never fails.
func (d *Digest) Write(p []byte) (int, error) {
	return d.h.Write(p)
}

// AddBytes folds p into the digest.
func (d *Digest) AddBytes(p []byte) {
	d.h.Write(p)
}

// AddString folds s into the digest.
func (d *Digest) AddString(s string) {
	io.WriteString(d.h, s)
}

// AddDelimiter folds a type tag for the section that follows, so that e.g. a
// "date" section and a "timestamp" section with equal payloads still produce
// different digests.
func (d *Digest) AddDelimiter(name string) {
	d.h.Write([]byte{delimiterTag})
	io.WriteString(d.h, name)
	d.h.Write([]byte{0})
}

// AddInt folds an integer in an architecture-independent form: the 64-bit
// key of its decimal rendering, big-endian. The digest never depends on host
// int width or byte order.
func (d *Digest) AddInt(i int) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], IntKey(i))
	d.h.Write(b[:])
}

// IntKey returns a 64-bit hash key for i, usable for table addressing by
// collaborators as well as by AddInt.
func IntKey(i int) uint64 {
	return xxhash.Sum64String(strconv.Itoa(i))
}

// Sum returns the hex digest of everything folded so far. It does not
// disturb the accumulator state.
func (d *Digest) Sum() string {
	return hex.EncodeToString(d.h.Sum(nil))
}
