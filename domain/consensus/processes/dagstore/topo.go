package dagstore

import (
	"github.com/casper-network/casper-node/domain/consensus/model/externalapi"
	"github.com/casper-network/casper-node/domain/consensus/utils/sorters"
)

func (s *Storage) blockInfosAtRankLocked(rank uint64) []externalapi.BlockInfo {
	hashes := s.rank[rank]
	if len(hashes) == 0 {
		return nil
	}
	infos := make([]externalapi.BlockInfo, 0, len(hashes))
	for _, h := range hashes {
		m := s.messages[h]
		infos = append(infos, externalapi.BlockInfo{
			Hash:        m.Hash,
			ValidatorID: m.ValidatorID,
			Rank:        m.Rank,
			MessageType: m.MessageType,
			Parents:     append([]externalapi.BlockHash(nil), m.Parents...),
		})
	}
	sorters.SortBlockInfosByHash(infos)
	return infos
}

// topoSort returns a closure producing one rank's worth of BlockInfo at a
// time, in ascending rank order over [startRank, endRank], skipping ranks
// with no messages. The whole range is never materialized at once.
func (s *Storage) topoSort(startRank, endRank uint64) func() ([]externalapi.BlockInfo, bool) {
	next := startRank
	return func() ([]externalapi.BlockInfo, bool) {
		s.mu.RLock()
		defer s.mu.RUnlock()
		for next <= endRank {
			rank := next
			next++
			if infos := s.blockInfosAtRankLocked(rank); len(infos) > 0 {
				return infos, true
			}
		}
		return nil, false
	}
}

// topoSortTail streams the last k non-empty ranks, oldest first.
func (s *Storage) topoSortTail(k int) func() ([]externalapi.BlockInfo, bool) {
	s.mu.RLock()
	var ranks []uint64
	for r, hashes := range s.rank {
		if len(hashes) > 0 {
			ranks = append(ranks, r)
		}
	}
	s.mu.RUnlock()

	// ascending sort, keep the top k
	for i := 1; i < len(ranks); i++ {
		for j := i; j > 0 && ranks[j-1] > ranks[j]; j-- {
			ranks[j-1], ranks[j] = ranks[j], ranks[j-1]
		}
	}
	if len(ranks) > k {
		ranks = ranks[len(ranks)-k:]
	}

	idx := 0
	return func() ([]externalapi.BlockInfo, bool) {
		if idx >= len(ranks) {
			return nil, false
		}
		s.mu.RLock()
		infos := s.blockInfosAtRankLocked(ranks[idx])
		s.mu.RUnlock()
		idx++
		return infos, true
	}
}
