// Package hashing computes the canonical 32-byte content hash used for
// blockHash, bodyHash, and deploy hashes. The underlying hash function is
// blake2b, keyed with a per-domain tag so a header hash, a body hash and a
// deploy-header hash are computed in separate domains. Block bodies and
// deploy bodies share the body domain.
package hashing

import (
	"encoding/binary"

	"github.com/pkg/errors"
	"golang.org/x/crypto/blake2b"

	"github.com/casper-network/casper-node/domain/consensus/model/externalapi"
)

// Domain separation tags, each 16 bytes, used as the blake2b key (which
// accepts up to 64 bytes).
var (
	headerPersonalization = [16]byte{'c', 's', 'p', 'r', '-', 'h', 'e', 'a', 'd', 'e', 'r'}
	bodyPersonalization   = [16]byte{'c', 's', 'p', 'r', '-', 'b', 'o', 'd', 'y'}
	deployPersonalization = [16]byte{'c', 's', 'p', 'r', '-', 'd', 'e', 'p', 'l', 'o', 'y'}
)

// Writer incrementally hashes data without concatenating it into a single
// buffer first.
type Writer struct {
	h hash256
}

type hash256 interface {
	Write(p []byte) (int, error)
	Sum(b []byte) []byte
}

func newWriter(personalization [16]byte) *Writer {
	h, err := blake2b.New256(personalization[:])
	if err != nil {
		// blake2b.New256 only fails on a key longer than 64 bytes; our
		// tags are 16 bytes by construction.
		panic(errors.Wrap(err, "blake2b config should never be invalid"))
	}
	return &Writer{h: h}
}

// Write feeds more bytes into the hash.
func (w *Writer) Write(p []byte) {
	_, err := w.h.Write(p)
	if err != nil {
		panic(errors.Wrap(err, "this should never happen: hash.Hash never returns an error"))
	}
}

// WriteUint64 writes v as 8 little-endian bytes.
func (w *Writer) WriteUint64(v uint64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	w.Write(buf[:])
}

// WriteUint32 writes v as 4 little-endian bytes.
func (w *Writer) WriteUint32(v uint32) {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	w.Write(buf[:])
}

// WriteHash writes a BlockHash's raw bytes.
func (w *Writer) WriteHash(h externalapi.BlockHash) {
	w.Write(h[:])
}

// WriteString writes a length-prefixed UTF-8 string.
func (w *Writer) WriteString(s string) {
	w.WriteUint32(uint32(len(s)))
	w.Write([]byte(s))
}

// Finalize returns the resulting 32-byte hash.
func (w *Writer) Finalize() externalapi.BlockHash {
	var sum externalapi.BlockHash
	copy(sum[:], w.h.Sum(sum[:0]))
	return sum
}

// NewHeaderWriter starts a header-domain hash.
func NewHeaderWriter() *Writer { return newWriter(headerPersonalization) }

// NewBodyWriter starts a body-domain hash.
func NewBodyWriter() *Writer { return newWriter(bodyPersonalization) }

// NewDeployWriter starts a deploy-domain hash.
func NewDeployWriter() *Writer { return newWriter(deployPersonalization) }
