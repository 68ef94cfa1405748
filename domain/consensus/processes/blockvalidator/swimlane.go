package blockvalidator

import (
	"sync"

	"github.com/casper-network/casper-node/domain/consensus/model/externalapi"
	"github.com/casper-network/casper-node/domain/consensus/processes/behaviorclassifier"
)

// EquivocationIndex answers the swimlane check's "is creator a known
// equivocator, and what is minBaseRank" query, memoized per validator per
// §9's "Equivocation memoization" note. It is rebuilt from a fresh
// behaviorclassifier snapshot whenever the caller wants an up-to-date view;
// the cache inside one EquivocationIndex is never invalidated, so callers
// construct a new one per snapshot they want to validate against.
type EquivocationIndex struct {
	mu       sync.Mutex
	behavior *behaviorclassifier.EraObservedBehavior
	cache    map[externalapi.ValidatorID]equivocationInfo
}

type equivocationInfo struct {
	minRank       uint64
	isEquivocator bool
}

// NewEquivocationIndex wraps a classified snapshot. behavior is consulted
// across every era it knows about, matching the swimlane check's use of
// "the global view" of equivocation rather than a single era's.
func NewEquivocationIndex(behavior *behaviorclassifier.EraObservedBehavior) *EquivocationIndex {
	return &EquivocationIndex{
		behavior: behavior,
		cache:    make(map[externalapi.ValidatorID]equivocationInfo),
	}
}

// MinEquivocatingRank returns the smallest rank among creator's known
// equivocating latest messages across every era, and whether creator has
// equivocated anywhere at all.
func (idx *EquivocationIndex) MinEquivocatingRank(creator externalapi.ValidatorID) (uint64, bool) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if info, ok := idx.cache[creator]; ok {
		return info.minRank, info.isEquivocator
	}

	var info equivocationInfo
	for _, era := range idx.behavior.KeyBlockHashes() {
		latest := idx.behavior.LatestMessagesInEra(era)
		msgs, ok := latest[creator]
		if !ok || len(msgs) < 2 {
			continue
		}
		for _, m := range msgs {
			if !info.isEquivocator || m.Rank < info.minRank {
				info.minRank = m.Rank
				info.isEquivocator = true
			}
		}
	}
	idx.cache[creator] = info
	return info.minRank, info.isEquivocator
}
