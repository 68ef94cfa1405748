package tipmanager

import (
	"testing"

	"github.com/casper-network/casper-node/domain/consensus/model/externalapi"
	"github.com/casper-network/casper-node/domain/consensus/processes/dagstore"
)

func hashFor(b byte) externalapi.BlockHash {
	var h externalapi.BlockHash
	h[0] = b
	return h
}

func newStorage(t *testing.T) *dagstore.Storage {
	t.Helper()
	s, err := dagstore.New("")
	if err != nil {
		t.Fatalf("failed to create storage: %s", err)
	}
	return s
}

func insert(t *testing.T, s *dagstore.Storage, m *externalapi.Message) {
	t.Helper()
	if _, err := s.Insert(m); err != nil {
		t.Fatalf("insert %s failed: %s", m.Hash, err)
	}
}

// S3 + S7 composed: a validator equivocates in era alpha and is also
// active, honestly, in sibling era beta. The era view must see the
// equivocation only in alpha; the global view must not expose equivocation
// at all.
func TestEraViewVsGlobalView(t *testing.T) {
	s := newStorage(t)

	alpha := &externalapi.Message{Hash: hashFor(1), KeyBlockHash: hashFor(1)}
	beta := &externalapi.Message{Hash: hashFor(2), KeyBlockHash: hashFor(2)}
	insert(t, s, alpha)
	insert(t, s, beta)

	v := externalapi.ValidatorID("validator-1")
	b1 := &externalapi.Message{
		Hash: hashFor(3), ValidatorID: v, Parents: []externalapi.BlockHash{alpha.Hash},
		Justifications: []externalapi.BlockHash{alpha.Hash}, Rank: 1, KeyBlockHash: alpha.Hash,
	}
	b2 := &externalapi.Message{
		Hash: hashFor(4), ValidatorID: v, Parents: []externalapi.BlockHash{alpha.Hash},
		Justifications: []externalapi.BlockHash{alpha.Hash}, Rank: 1, KeyBlockHash: alpha.Hash,
	}
	insert(t, s, b1)
	insert(t, s, b2)

	bBeta := &externalapi.Message{
		Hash: hashFor(5), ValidatorID: v, Parents: []externalapi.BlockHash{beta.Hash},
		Justifications: []externalapi.BlockHash{beta.Hash}, Rank: 1, SequenceNumber: 1,
		ValidatorPrevBlockHash: b1.Hash, HasValidatorPrevBlock: true, KeyBlockHash: beta.Hash,
	}
	insert(t, s, bBeta)

	repr := s.GetRepresentation()

	eraAlpha := NewEraView(repr, alpha.Hash)
	if _, ok := eraAlpha.Equivocators()[v]; !ok {
		t.Fatalf("expected %s to be an equivocator in era alpha", v)
	}

	eraBeta := NewEraView(repr, beta.Hash)
	if _, ok := eraBeta.Equivocators()[v]; ok {
		t.Fatalf("did not expect %s to be an equivocator in era beta", v)
	}

	global := NewGlobalView(repr, nil)
	if msgs := global.LatestMessage(v); len(msgs) != 3 {
		t.Fatalf("expected global view to see all 3 latest messages for %s, got %d", v, len(msgs))
	}
}

type onlyActive struct {
	active map[externalapi.BlockHash]bool
}

func (o onlyActive) IsActive(h externalapi.BlockHash) bool { return o.active[h] }

// The global view respects an injected era-lifecycle predicate: an inactive
// era's latest messages are excluded from the union.
func TestGlobalViewRespectsLifecycle(t *testing.T) {
	s := newStorage(t)

	alpha := &externalapi.Message{Hash: hashFor(1), KeyBlockHash: hashFor(1)}
	beta := &externalapi.Message{Hash: hashFor(2), KeyBlockHash: hashFor(2)}
	insert(t, s, alpha)
	insert(t, s, beta)

	v := externalapi.ValidatorID("validator-1")
	bAlpha := &externalapi.Message{
		Hash: hashFor(3), ValidatorID: v, Parents: []externalapi.BlockHash{alpha.Hash},
		Justifications: []externalapi.BlockHash{alpha.Hash}, Rank: 1, KeyBlockHash: alpha.Hash,
	}
	bBeta := &externalapi.Message{
		Hash: hashFor(4), ValidatorID: v, Parents: []externalapi.BlockHash{beta.Hash},
		Justifications: []externalapi.BlockHash{beta.Hash}, Rank: 1, KeyBlockHash: beta.Hash,
	}
	insert(t, s, bAlpha)
	insert(t, s, bBeta)

	repr := s.GetRepresentation()
	lifecycle := onlyActive{active: map[externalapi.BlockHash]bool{alpha.Hash: true}}
	global := NewGlobalView(repr, lifecycle)

	msgs := global.LatestMessage(v)
	if len(msgs) != 1 || msgs[0].Hash != bAlpha.Hash {
		t.Fatalf("expected only alpha's message to be visible, got %v", msgs)
	}
}
