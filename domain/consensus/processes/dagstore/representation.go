package dagstore

import "github.com/casper-network/casper-node/domain/consensus/model/externalapi"

// Representation is the query surface §4.B hands back from GetRepresentation
// and Insert: "need not be strictly immutable but must be internally
// consistent for any single query it services." It is a thin read-only view
// over the Storage it was issued from; every method takes the read lock for
// the duration of that one query and releases it before returning, so two
// calls on the same Representation may observe different storage
// generations if an insert races between them — callers that need a single
// consistent multi-query snapshot must take their own higher-level lock.
type Representation struct {
	storage *Storage
}

// Contains reports whether hash has been inserted.
func (r *Representation) Contains(hash externalapi.BlockHash) bool {
	return r.storage.Contains(hash)
}

// Get returns the message for hash, if present.
func (r *Representation) Get(hash externalapi.BlockHash) (*externalapi.Message, bool) {
	return r.storage.Get(hash)
}

// Children returns the direct children of hash.
func (r *Representation) Children(hash externalapi.BlockHash) []externalapi.BlockHash {
	return r.storage.Children(hash)
}

// JustificationToBlocks returns every message justifying via hash.
func (r *Representation) JustificationToBlocks(hash externalapi.BlockHash) []externalapi.BlockHash {
	return r.storage.JustificationToBlocks(hash)
}

// Eras returns every era (key block hash) that has at least one latest
// message recorded.
func (r *Representation) Eras() []externalapi.BlockHash {
	return r.storage.Eras()
}

// LatestMessagesInEra returns, for era, the current latest message of each
// validator known to have a latest message there. A validator with more
// than one entry has equivocated in era (§4.D delegates to this).
func (r *Representation) LatestMessagesInEra(era externalapi.BlockHash) map[externalapi.ValidatorID][]*externalapi.Message {
	r.storage.mu.RLock()
	defer r.storage.mu.RUnlock()
	return r.storage.latestMessagesInEraLocked(era)
}

// MaxRank returns the highest rank of any inserted message.
func (r *Representation) MaxRank() (uint64, bool) {
	return r.storage.MaxRank()
}

// TopoSort streams BlockInfo groups, one rank at a time, for every rank in
// [startRank, endRank] inclusive that has at least one message. Within a
// rank, messages are ordered deterministically by hash. It does not
// materialize the whole range: the returned function produces one rank's
// group per call and reports false once the range is exhausted.
func (r *Representation) TopoSort(startRank, endRank uint64) func() ([]externalapi.BlockInfo, bool) {
	return r.storage.topoSort(startRank, endRank)
}

// TopoSortTail streams the last k non-empty ranks, oldest first, using the
// same per-call iterator shape as TopoSort.
func (r *Representation) TopoSortTail(k int) func() ([]externalapi.BlockInfo, bool) {
	return r.storage.topoSortTail(k)
}
