package dagstore

import (
	"testing"

	"github.com/pkg/errors"

	"github.com/casper-network/casper-node/domain/consensus/model/externalapi"
	"github.com/casper-network/casper-node/domain/consensus/ruleerrors"
)

func hashFor(b byte) externalapi.BlockHash {
	var h externalapi.BlockHash
	h[0] = b
	return h
}

func genesisMessage(hash externalapi.BlockHash) *externalapi.Message {
	return &externalapi.Message{
		Hash:         hash,
		KeyBlockHash: hash,
	}
}

// childMessage builds a single-parent, single-justification message. prev
// and hasPrev carry the validatorPrevBlockHash linkage for seq > 0.
func childMessage(hash, parent, era externalapi.BlockHash, validator externalapi.ValidatorID, rank, seq uint64, prev externalapi.BlockHash, hasPrev bool) *externalapi.Message {
	return &externalapi.Message{
		Hash:                   hash,
		ValidatorID:            validator,
		Parents:                []externalapi.BlockHash{parent},
		Justifications:         []externalapi.BlockHash{parent},
		Rank:                   rank,
		SequenceNumber:         seq,
		ValidatorPrevBlockHash: prev,
		HasValidatorPrevBlock:  hasPrev,
		KeyBlockHash:           era,
	}
}

// S1: genesis accept, latestGlobal empty.
func TestGenesisAccept(t *testing.T) {
	s := newEmpty()
	g := genesisMessage(hashFor(1))
	if _, err := s.Insert(g); err != nil {
		t.Fatalf("genesis insert failed: %s", err)
	}
	repr := s.GetRepresentation()
	if latest := repr.LatestMessagesInEra(g.Hash); len(latest) != 0 {
		t.Fatalf("expected no latest messages for genesis-only era, got %v", latest)
	}
}

// S2: first child is the sole latest message, no equivocators.
func TestFirstChild(t *testing.T) {
	s := newEmpty()
	g := genesisMessage(hashFor(1))
	mustInsert(t, s, g)

	v := externalapi.ValidatorID("validator-1")
	b := childMessage(hashFor(2), g.Hash, g.Hash, v, 1, 0, externalapi.BlockHash{}, false)
	mustInsert(t, s, b)

	latest := s.GetRepresentation().LatestMessagesInEra(g.Hash)
	msgs := latest[v]
	if len(msgs) != 1 || msgs[0].Hash != b.Hash {
		t.Fatalf("expected latest[%s] == {%s}, got %v", v, b.Hash, msgs)
	}
}

// S3: two first-blocks by the same validator, both citing only genesis,
// both survive as latest: the validator is an equivocator in this era.
func TestEquivocationDetection(t *testing.T) {
	s := newEmpty()
	g := genesisMessage(hashFor(1))
	mustInsert(t, s, g)

	v := externalapi.ValidatorID("validator-1")
	b1 := childMessage(hashFor(2), g.Hash, g.Hash, v, 1, 0, externalapi.BlockHash{}, false)
	b2 := childMessage(hashFor(3), g.Hash, g.Hash, v, 1, 0, externalapi.BlockHash{}, false)
	mustInsert(t, s, b1)
	mustInsert(t, s, b2)

	latest := s.GetRepresentation().LatestMessagesInEra(g.Hash)
	if len(latest[v]) != 2 {
		t.Fatalf("expected validator %s to have 2 latest messages, got %d", v, len(latest[v]))
	}
}

// Invariant 4 via the update rule: a message citing both equivocating
// messages replaces them in the latest set rather than coexisting.
func TestLatestMessagesPrunedByJustification(t *testing.T) {
	s := newEmpty()
	g := genesisMessage(hashFor(1))
	mustInsert(t, s, g)

	v := externalapi.ValidatorID("validator-1")
	b1 := childMessage(hashFor(2), g.Hash, g.Hash, v, 1, 0, externalapi.BlockHash{}, false)
	b2 := childMessage(hashFor(3), g.Hash, g.Hash, v, 1, 0, externalapi.BlockHash{}, false)
	mustInsert(t, s, b1)
	mustInsert(t, s, b2)

	c := &externalapi.Message{
		Hash:                   hashFor(4),
		ValidatorID:            v,
		Parents:                []externalapi.BlockHash{b1.Hash},
		Justifications:         []externalapi.BlockHash{b1.Hash, b2.Hash},
		Rank:                   2,
		SequenceNumber:         1,
		ValidatorPrevBlockHash: b1.Hash,
		HasValidatorPrevBlock:  true,
		KeyBlockHash:           g.Hash,
	}
	mustInsert(t, s, c)

	latest := s.GetRepresentation().LatestMessagesInEra(g.Hash)
	msgs := latest[v]
	if len(msgs) != 1 || msgs[0].Hash != c.Hash {
		t.Fatalf("expected latest[%s] == {%s} after c cites both equivocating parents, got %v", v, c.Hash, msgs)
	}
}

// S5: rank mismatch is rejected with Corrupt. Storage refuses to let a bad
// rank corrupt the rank index regardless of how it got there.
func TestRankMismatchRejected(t *testing.T) {
	s := newEmpty()
	g := genesisMessage(hashFor(1))
	mustInsert(t, s, g)

	v := externalapi.ValidatorID("validator-1")
	bad := childMessage(hashFor(2), g.Hash, g.Hash, v, 5, 0, externalapi.BlockHash{}, false)
	_, err := s.Insert(bad)
	if !errors.Is(err, ruleerrors.ErrCorrupt) {
		t.Fatalf("expected ErrCorrupt for rank mismatch, got %v", err)
	}
}

// S7: a validator active in two sibling eras shows up in both without
// either era seeing the other's message, and neither era calls it an
// equivocator. The validator's sequence counter still runs globally across
// both eras' messages.
func TestCrossEraCoexistence(t *testing.T) {
	s := newEmpty()
	alpha := genesisMessage(hashFor(1))
	beta := genesisMessage(hashFor(2))
	mustInsert(t, s, alpha)
	mustInsert(t, s, beta)

	v := externalapi.ValidatorID("validator-1")
	bAlpha := childMessage(hashFor(3), alpha.Hash, alpha.Hash, v, 1, 0, externalapi.BlockHash{}, false)
	mustInsert(t, s, bAlpha)
	bBeta := childMessage(hashFor(4), beta.Hash, beta.Hash, v, 1, 1, bAlpha.Hash, true)
	mustInsert(t, s, bBeta)

	repr := s.GetRepresentation()
	if latest := repr.LatestMessagesInEra(alpha.Hash); len(latest[v]) != 1 {
		t.Fatalf("expected exactly one latest message for %s in era alpha, got %d", v, len(latest[v]))
	}
	if latest := repr.LatestMessagesInEra(beta.Hash); len(latest[v]) != 1 {
		t.Fatalf("expected exactly one latest message for %s in era beta, got %d", v, len(latest[v]))
	}
}

// Invariant 6 & 7: children is the first-hop parent set, contained in
// justificationToBlocks, which equals exactly the justification-reverse set.
// Here b names g as both parent and justification, so both sets are {b}.
func TestChildrenAndJustificationReverse(t *testing.T) {
	s := newEmpty()
	g := genesisMessage(hashFor(1))
	mustInsert(t, s, g)

	v := externalapi.ValidatorID("validator-1")
	b := childMessage(hashFor(2), g.Hash, g.Hash, v, 1, 0, externalapi.BlockHash{}, false)
	mustInsert(t, s, b)

	repr := s.GetRepresentation()
	children := repr.Children(g.Hash)
	if len(children) != 1 || children[0] != b.Hash {
		t.Fatalf("expected children(%s) == {%s}, got %v", g.Hash, b.Hash, children)
	}

	justified := repr.JustificationToBlocks(g.Hash)
	if len(justified) != 1 || justified[0] != b.Hash {
		t.Fatalf("expected justificationToBlocks(%s) == {%s}, got %v", g.Hash, b.Hash, justified)
	}
}

// Missing dependency is rejected rather than silently accepted.
func TestMissingDependencyRejected(t *testing.T) {
	s := newEmpty()
	v := externalapi.ValidatorID("validator-1")
	orphan := childMessage(hashFor(9), hashFor(1), hashFor(1), v, 1, 0, externalapi.BlockHash{}, false)
	_, err := s.Insert(orphan)
	if !errors.Is(err, ruleerrors.ErrMissingDependency) {
		t.Fatalf("expected ErrMissingDependency, got %v", err)
	}
}

// Repeated insert of an identical message is idempotent, not an error.
func TestIdempotentReinsert(t *testing.T) {
	s := newEmpty()
	g := genesisMessage(hashFor(1))
	mustInsert(t, s, g)
	if _, err := s.Insert(g); err != nil {
		t.Fatalf("expected idempotent reinsert to succeed, got %s", err)
	}
}

// A reinsert with the same hash but different content is Corrupt, never
// silently overwritten.
func TestConflictingReinsertRejected(t *testing.T) {
	s := newEmpty()
	g := genesisMessage(hashFor(1))
	mustInsert(t, s, g)

	conflicting := genesisMessage(hashFor(1))
	conflicting.KeyBlockHash = hashFor(99)
	_, err := s.Insert(conflicting)
	if !errors.Is(err, ruleerrors.ErrCorrupt) {
		t.Fatalf("expected ErrCorrupt for conflicting reinsert, got %v", err)
	}
}

// Invariant 5: topoSort yields each rank in [a,b] exactly once, in order.
func TestTopoSortRanksInOrder(t *testing.T) {
	s := newEmpty()
	g := genesisMessage(hashFor(1))
	mustInsert(t, s, g)

	v := externalapi.ValidatorID("validator-1")
	b1 := childMessage(hashFor(2), g.Hash, g.Hash, v, 1, 0, externalapi.BlockHash{}, false)
	mustInsert(t, s, b1)
	b2 := childMessage(hashFor(3), b1.Hash, g.Hash, v, 2, 1, b1.Hash, true)
	mustInsert(t, s, b2)

	next := s.GetRepresentation().TopoSort(0, 2)
	var gotRanks []uint64
	for {
		infos, ok := next()
		if !ok {
			break
		}
		if len(infos) == 0 {
			t.Fatalf("topoSort yielded an empty group")
		}
		gotRanks = append(gotRanks, infos[0].Rank)
	}
	want := []uint64{0, 1, 2}
	if len(gotRanks) != len(want) {
		t.Fatalf("expected ranks %v, got %v", want, gotRanks)
	}
	for i, r := range want {
		if gotRanks[i] != r {
			t.Fatalf("expected ranks %v, got %v", want, gotRanks)
		}
	}
}

func mustInsert(t *testing.T, s *Storage, m *externalapi.Message) {
	t.Helper()
	if _, err := s.Insert(m); err != nil {
		t.Fatalf("insert %s failed: %s", m.Hash, err)
	}
}
