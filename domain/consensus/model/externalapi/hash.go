package externalapi

import (
	"encoding/hex"
	"sort"

	"github.com/pkg/errors"
)

// BlockHashSize is the length in bytes of a BlockHash.
const BlockHashSize = 32

// BlockHash is the content-addressed, fixed-length identifier of a Message.
type BlockHash [BlockHashSize]byte

// ZeroHash is used in place of a parent/justification reference that the
// genesis-like message doesn't have.
var ZeroHash BlockHash

// NewBlockHashFromSlice builds a BlockHash from a byte slice, failing if the
// slice isn't exactly BlockHashSize bytes long.
func NewBlockHashFromSlice(b []byte) (BlockHash, error) {
	var h BlockHash
	if len(b) != BlockHashSize {
		return h, errors.Errorf("invalid hash length: want %d, got %d", BlockHashSize, len(b))
	}
	copy(h[:], b)
	return h, nil
}

// NewBlockHashFromString decodes a hex-encoded BlockHash.
func NewBlockHashFromString(s string) (BlockHash, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return BlockHash{}, errors.WithStack(err)
	}
	return NewBlockHashFromSlice(b)
}

// String returns the hex encoding of the hash.
func (h BlockHash) String() string {
	return hex.EncodeToString(h[:])
}

// IsZero reports whether h is the zero hash.
func (h BlockHash) IsZero() bool {
	return h == ZeroHash
}

// Less defines a total order over hashes, used for deterministic
// tie-breaking: picking the two witnesses of an Equivocated variant, and
// ordering messages within a topological-sort rank group.
func (h BlockHash) Less(other BlockHash) bool {
	for i := range h {
		if h[i] != other[i] {
			return h[i] < other[i]
		}
	}
	return false
}

// SortBlockHashes sorts hashes in place in ascending order.
func SortBlockHashes(hashes []BlockHash) {
	sort.Slice(hashes, func(i, j int) bool { return hashes[i].Less(hashes[j]) })
}

// ValidatorID is the opaque public key identifying a message's creator. The
// zero-length ValidatorID denotes a genesis-like message.
type ValidatorID string

// String implements fmt.Stringer for log lines.
func (v ValidatorID) String() string {
	if len(v) == 0 {
		return "<genesis>"
	}
	return hex.EncodeToString([]byte(v))
}

// IsGenesis reports whether v denotes the absence of a creating validator.
func (v ValidatorID) IsGenesis() bool {
	return len(v) == 0
}
