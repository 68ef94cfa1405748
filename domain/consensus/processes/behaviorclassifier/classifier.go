// Package behaviorclassifier implements §4.D: collapsing the per-era latest
// message sets tracked by dagstore into a tagged ObservedValidatorBehavior
// per (era, validator), by cardinality.
package behaviorclassifier

import (
	"github.com/casper-network/casper-node/domain/consensus/model/externalapi"
	"github.com/casper-network/casper-node/domain/consensus/utils/sorters"
)

// EraObservedBehavior is the classifier's output: every (era, validator)
// pair it has seen, mapped to its tagged behavior.
type EraObservedBehavior struct {
	byEra map[externalapi.BlockHash]map[externalapi.ValidatorID]externalapi.ObservedValidatorBehavior[*externalapi.Message]
}

// Classify builds an EraObservedBehavior from the raw latest-message view:
// era -> validator -> set of that validator's current latest messages.
// Cardinality 0 is never present as an input key (a validator absent from
// the inner map has no observed behavior to classify) but is handled the
// same as any other query through the zero value of the lookup.
func Classify(latestByEra map[externalapi.BlockHash]map[externalapi.ValidatorID][]*externalapi.Message) *EraObservedBehavior {
	out := &EraObservedBehavior{
		byEra: make(map[externalapi.BlockHash]map[externalapi.ValidatorID]externalapi.ObservedValidatorBehavior[*externalapi.Message]),
	}
	for era, byValidator := range latestByEra {
		classified := make(map[externalapi.ValidatorID]externalapi.ObservedValidatorBehavior[*externalapi.Message], len(byValidator))
		for validator, msgs := range byValidator {
			classified[validator] = classifyOne(msgs)
		}
		out.byEra[era] = classified
	}
	return out
}

func classifyOne(msgs []*externalapi.Message) externalapi.ObservedValidatorBehavior[*externalapi.Message] {
	switch len(msgs) {
	case 0:
		return externalapi.Empty[*externalapi.Message]()
	case 1:
		return externalapi.Honest(msgs[0])
	default:
		sorted := append([]*externalapi.Message(nil), msgs...)
		sorters.SortMessagesByHash(sorted)
		return externalapi.Equivocated(sorted[0], sorted[1])
	}
}

// Behavior returns the classified behavior of validator in era, defaulting
// to Empty if the pair was never observed.
func (b *EraObservedBehavior) Behavior(era externalapi.BlockHash, validator externalapi.ValidatorID) externalapi.ObservedValidatorBehavior[*externalapi.Message] {
	byValidator, ok := b.byEra[era]
	if !ok {
		return externalapi.Empty[*externalapi.Message]()
	}
	behavior, ok := byValidator[validator]
	if !ok {
		return externalapi.Empty[*externalapi.Message]()
	}
	return behavior
}

// KeyBlockHashes returns every era the classifier has observed behavior for.
func (b *EraObservedBehavior) KeyBlockHashes() []externalapi.BlockHash {
	out := make([]externalapi.BlockHash, 0, len(b.byEra))
	for era := range b.byEra {
		out = append(out, era)
	}
	return out
}

// ValidatorsInEra returns every validator classified in era.
func (b *EraObservedBehavior) ValidatorsInEra(era externalapi.BlockHash) []externalapi.ValidatorID {
	byValidator, ok := b.byEra[era]
	if !ok {
		return nil
	}
	out := make([]externalapi.ValidatorID, 0, len(byValidator))
	for v := range byValidator {
		out = append(out, v)
	}
	return out
}

// EquivocatorsVisibleInEras returns the union of equivocating validators
// across every era named in eras.
func (b *EraObservedBehavior) EquivocatorsVisibleInEras(eras []externalapi.BlockHash) map[externalapi.ValidatorID]struct{} {
	out := make(map[externalapi.ValidatorID]struct{})
	for _, era := range eras {
		byValidator, ok := b.byEra[era]
		if !ok {
			continue
		}
		for v, behavior := range byValidator {
			if behavior.Kind() == externalapi.BehaviorEquivocated {
				out[v] = struct{}{}
			}
		}
	}
	return out
}

// LatestMessagesInEra reconstructs, for era, the set of latest messages per
// validator implied by the classified behavior (one message for Honest,
// the two witnesses for Equivocated, nothing for Empty).
func (b *EraObservedBehavior) LatestMessagesInEra(era externalapi.BlockHash) map[externalapi.ValidatorID][]*externalapi.Message {
	byValidator, ok := b.byEra[era]
	if !ok {
		return nil
	}
	out := make(map[externalapi.ValidatorID][]*externalapi.Message, len(byValidator))
	for v, behavior := range byValidator {
		switch behavior.Kind() {
		case externalapi.BehaviorHonest:
			m, _ := behavior.HonestMessage()
			out[v] = []*externalapi.Message{m}
		case externalapi.BehaviorEquivocated:
			m1, m2, _ := behavior.EquivocationWitnesses()
			out[v] = []*externalapi.Message{m1, m2}
		default:
			out[v] = nil
		}
	}
	return out
}
