package dagstore

import "github.com/casper-network/casper-node/domain/consensus/model/externalapi"

// Contains reports whether hash is present in storage.
func (s *Storage) Contains(hash externalapi.BlockHash) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.messages[hash]
	return ok
}

// Get returns the message for hash, if present.
func (s *Storage) Get(hash externalapi.BlockHash) (*externalapi.Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.messages[hash]
	return m, ok
}

// Children returns the direct (first-hop) children of hash: every message
// listing hash among its Parents.
func (s *Storage) Children(hash externalapi.BlockHash) []externalapi.BlockHash {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]externalapi.BlockHash(nil), s.children[hash]...)
}

// JustificationToBlocks returns every message naming hash in its
// Justifications. It contains a child from Children(hash) only if that
// child also lists hash among its Justifications; Insert does not require
// a message's Parents to appear in its Justifications.
func (s *Storage) JustificationToBlocks(hash externalapi.BlockHash) []externalapi.BlockHash {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]externalapi.BlockHash(nil), s.justificationReverse[hash]...)
}

// MaxRank returns the highest rank of any inserted message, and whether any
// message has been inserted at all.
func (s *Storage) MaxRank() (uint64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.rank) == 0 {
		return 0, false
	}
	var max uint64
	first := true
	for r := range s.rank {
		if first || r > max {
			max = r
			first = false
		}
	}
	return max, true
}
