// Package tipmanager implements §4.C's two tip-representation flavors over
// a dagstore.Representation: a global view unioned across active eras, and
// a per-era view that is the only correct basis for equivocation detection.
// Both expose the same operation names on distinct types deliberately —
// callers must pick one explicitly rather than have the ambiguity silently
// resolved for them.
package tipmanager

import (
	"github.com/casper-network/casper-node/domain/consensus/model/externalapi"
)

// storageView is the subset of dagstore.Representation the tip views need;
// kept narrow so this package doesn't import dagstore directly and instead
// depends only on externalapi.
type storageView interface {
	Eras() []externalapi.BlockHash
	LatestMessagesInEra(era externalapi.BlockHash) map[externalapi.ValidatorID][]*externalapi.Message
}

// GlobalView is latestGlobal(): the union over all active eras of per-era
// latest messages. It deliberately has no Equivocators/Equivocations
// methods — a validator can legitimately have two or more latest messages
// across sibling eras without equivocating, and the absence of those
// methods on this type is what prevents a caller from making that mistake.
type GlobalView struct {
	storage storage
}

type storage = storageView

// EraView is latestInEra(keyBlockHash): restricted to one era, the only
// correct view for equivocation detection.
type EraView struct {
	storage storage
	era     externalapi.BlockHash
}

// NewGlobalView builds the latestGlobal() view. lifecycle decides which
// eras are active; storage itself treats all as active, so a nil lifecycle
// is equivalent to "every era is active".
func NewGlobalView(s storage, lifecycle externalapi.EraLifecycle) *GlobalView {
	return &GlobalView{storage: &filteredStorage{inner: s, lifecycle: lifecycle}}
}

// NewEraView builds the latestInEra(keyBlockHash) view.
func NewEraView(s storage, era externalapi.BlockHash) *EraView {
	return &EraView{storage: s, era: era}
}

// filteredStorage narrows storageView.Eras() to the active subset before
// GlobalView aggregates across them.
type filteredStorage struct {
	inner     storage
	lifecycle externalapi.EraLifecycle
}

func (f *filteredStorage) Eras() []externalapi.BlockHash {
	all := f.inner.Eras()
	if f.lifecycle == nil {
		return all
	}
	out := make([]externalapi.BlockHash, 0, len(all))
	for _, era := range all {
		if f.lifecycle.IsActive(era) {
			out = append(out, era)
		}
	}
	return out
}

func (f *filteredStorage) LatestMessagesInEra(era externalapi.BlockHash) map[externalapi.ValidatorID][]*externalapi.Message {
	return f.inner.LatestMessagesInEra(era)
}

// LatestMessageHashes returns, for every validator with at least one
// latest message across active eras, the set of those message hashes.
func (g *GlobalView) LatestMessageHashes() map[externalapi.ValidatorID][]externalapi.BlockHash {
	return hashesOf(g.LatestMessages())
}

// LatestMessages returns, for every validator with at least one latest
// message across active eras, that set of messages.
func (g *GlobalView) LatestMessages() map[externalapi.ValidatorID][]*externalapi.Message {
	union := make(map[externalapi.ValidatorID][]*externalapi.Message)
	for _, era := range g.storage.Eras() {
		for validator, msgs := range g.storage.LatestMessagesInEra(era) {
			union[validator] = append(union[validator], msgs...)
		}
	}
	return union
}

// LatestMessageHash returns the set of latest message hashes for a single
// validator across active eras.
func (g *GlobalView) LatestMessageHash(v externalapi.ValidatorID) []externalapi.BlockHash {
	return g.LatestMessageHashes()[v]
}

// LatestMessage returns the set of latest messages for a single validator
// across active eras.
func (g *GlobalView) LatestMessage(v externalapi.ValidatorID) []*externalapi.Message {
	return g.LatestMessages()[v]
}

// LatestMessageHashes returns, for every validator active in this era, the
// set of that validator's latest message hashes.
func (e *EraView) LatestMessageHashes() map[externalapi.ValidatorID][]externalapi.BlockHash {
	return hashesOf(e.LatestMessages())
}

// LatestMessages returns, for every validator active in this era, that
// validator's current latest-message set.
func (e *EraView) LatestMessages() map[externalapi.ValidatorID][]*externalapi.Message {
	return e.storage.LatestMessagesInEra(e.era)
}

// LatestMessageHash returns the latest message hashes of v in this era.
func (e *EraView) LatestMessageHash(v externalapi.ValidatorID) []externalapi.BlockHash {
	return e.LatestMessageHashes()[v]
}

// LatestMessage returns the latest messages of v in this era.
func (e *EraView) LatestMessage(v externalapi.ValidatorID) []*externalapi.Message {
	return e.LatestMessages()[v]
}

// Equivocators returns every validator with two or more latest messages in
// this era. It has no equivalent on GlobalView by design.
func (e *EraView) Equivocators() map[externalapi.ValidatorID]struct{} {
	out := make(map[externalapi.ValidatorID]struct{})
	for v, msgs := range e.LatestMessages() {
		if len(msgs) >= 2 {
			out[v] = struct{}{}
		}
	}
	return out
}

// Equivocations returns the equivocating validators together with their
// (≥2) latest messages in this era.
func (e *EraView) Equivocations() map[externalapi.ValidatorID][]*externalapi.Message {
	out := make(map[externalapi.ValidatorID][]*externalapi.Message)
	for v, msgs := range e.LatestMessages() {
		if len(msgs) >= 2 {
			out[v] = msgs
		}
	}
	return out
}

func hashesOf(byValidator map[externalapi.ValidatorID][]*externalapi.Message) map[externalapi.ValidatorID][]externalapi.BlockHash {
	out := make(map[externalapi.ValidatorID][]externalapi.BlockHash, len(byValidator))
	for v, msgs := range byValidator {
		hashes := make([]externalapi.BlockHash, len(msgs))
		for i, m := range msgs {
			hashes[i] = m.Hash
		}
		out[v] = hashes
	}
	return out
}
