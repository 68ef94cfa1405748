package sorters

import (
	"sort"

	"github.com/casper-network/casper-node/domain/consensus/model/externalapi"
)

// MessagesByHash implements sort.Interface over messages ordered by hash,
// giving the deterministic "pick by sorted hash" tie-break spec.md calls
// for when choosing Equivocated's two witnesses. topoSort rank groups use
// BlockInfosByHash below.
type MessagesByHash []*externalapi.Message

func (s MessagesByHash) Len() int           { return len(s) }
func (s MessagesByHash) Swap(i, j int)      { s[i], s[j] = s[j], s[i] }
func (s MessagesByHash) Less(i, j int) bool { return s[i].Hash.Less(s[j].Hash) }

// SortMessagesByHash sorts messages in place by ascending hash.
func SortMessagesByHash(messages []*externalapi.Message) {
	sort.Sort(MessagesByHash(messages))
}

// BlockInfosByHash orders BlockInfo records within a topoSort rank group.
type BlockInfosByHash []externalapi.BlockInfo

func (s BlockInfosByHash) Len() int           { return len(s) }
func (s BlockInfosByHash) Swap(i, j int)      { s[i], s[j] = s[j], s[i] }
func (s BlockInfosByHash) Less(i, j int) bool { return s[i].Hash.Less(s[j].Hash) }

// SortBlockInfosByHash sorts BlockInfo records in place by ascending hash.
func SortBlockInfosByHash(infos []externalapi.BlockInfo) {
	sort.Sort(BlockInfosByHash(infos))
}
