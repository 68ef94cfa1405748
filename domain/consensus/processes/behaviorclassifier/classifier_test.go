package behaviorclassifier

import (
	"testing"

	"github.com/casper-network/casper-node/domain/consensus/model/externalapi"
)

func hashFor(b byte) externalapi.BlockHash {
	var h externalapi.BlockHash
	h[0] = b
	return h
}

func TestClassifyCardinality(t *testing.T) {
	era := hashFor(1)
	empty := externalapi.ValidatorID("empty")
	honest := externalapi.ValidatorID("honest")
	equivocator := externalapi.ValidatorID("equivocator")

	m1 := &externalapi.Message{Hash: hashFor(10)}
	m2 := &externalapi.Message{Hash: hashFor(11)}
	m3 := &externalapi.Message{Hash: hashFor(12)}

	input := map[externalapi.BlockHash]map[externalapi.ValidatorID][]*externalapi.Message{
		era: {
			honest:      {m1},
			equivocator: {m2, m3},
		},
	}
	classified := Classify(input)

	if behavior := classified.Behavior(era, empty); behavior.Kind() != externalapi.BehaviorEmpty {
		t.Fatalf("expected Empty for unseen validator, got kind %d", behavior.Kind())
	}

	behavior := classified.Behavior(era, honest)
	if behavior.Kind() != externalapi.BehaviorHonest {
		t.Fatalf("expected Honest, got kind %d", behavior.Kind())
	}
	if m, ok := behavior.HonestMessage(); !ok || m.Hash != m1.Hash {
		t.Fatalf("expected honest message %s, got %v (ok=%v)", m1.Hash, m, ok)
	}

	behavior = classified.Behavior(era, equivocator)
	if behavior.Kind() != externalapi.BehaviorEquivocated {
		t.Fatalf("expected Equivocated, got kind %d", behavior.Kind())
	}
	w1, w2, ok := behavior.EquivocationWitnesses()
	if !ok {
		t.Fatalf("expected equivocation witnesses to be present")
	}
	if !w1.Hash.Less(w2.Hash) {
		t.Fatalf("expected witnesses sorted by hash, got %s then %s", w1.Hash, w2.Hash)
	}
}

func TestEquivocatorsVisibleInErasUnion(t *testing.T) {
	eraA := hashFor(1)
	eraB := hashFor(2)
	v := externalapi.ValidatorID("validator-1")
	other := externalapi.ValidatorID("validator-2")

	input := map[externalapi.BlockHash]map[externalapi.ValidatorID][]*externalapi.Message{
		eraA: {v: {{Hash: hashFor(10)}, {Hash: hashFor(11)}}},
		eraB: {other: {{Hash: hashFor(20)}}},
	}
	classified := Classify(input)

	union := classified.EquivocatorsVisibleInEras([]externalapi.BlockHash{eraA, eraB})
	if _, ok := union[v]; !ok {
		t.Fatalf("expected %s in the union of equivocators", v)
	}
	if _, ok := union[other]; ok {
		t.Fatalf("did not expect %s (only Honest in eraB) in the union", other)
	}
}
