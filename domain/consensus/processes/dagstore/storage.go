// Package dagstore is the append-only store of messages (§4.B): indexes
// for children, justification-reverse-lookup, topological rank ranges, and
// per-era latest messages. A single Storage is the sole shared mutable
// resource in this module (§5); inserts are serialized behind one mutex.
package dagstore

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/casper-network/casper-node/domain/consensus/model/externalapi"
	"github.com/casper-network/casper-node/domain/consensus/ruleerrors"
	"github.com/casper-network/casper-node/infrastructure/logger"
)

var log = logger.RegisterSubSystem("DAGS")

// Storage is the DAG storage described by §4.B.
type Storage struct {
	mu sync.RWMutex

	messages map[externalapi.BlockHash]*externalapi.Message

	// children maps a parent hash to the direct (first-hop) children that
	// name it among their Parents.
	children map[externalapi.BlockHash][]externalapi.BlockHash

	// justificationReverse maps a hash to every message naming it in its
	// Justifications.
	justificationReverse map[externalapi.BlockHash][]externalapi.BlockHash

	// latest maps era -> validator -> set of hashes of that validator's
	// latest messages in that era.
	latest map[externalapi.BlockHash]map[externalapi.ValidatorID]map[externalapi.BlockHash]struct{}

	// rank indexes every inserted message by rank, for topoSort.
	rank map[uint64][]externalapi.BlockHash

	durability *durabilityLayer
}

// New creates a Storage backed by a durable checkpoint at dbPath. Pass an
// empty dbPath for a purely in-memory store (used by tests and by clear()
// semantics that must never touch disk).
func New(dbPath string) (*Storage, error) {
	s := newEmpty()
	if dbPath != "" {
		d, err := openDurabilityLayer(dbPath)
		if err != nil {
			return nil, errors.Wrap(err, "failed to open durability layer")
		}
		s.durability = d
		if err := d.replayInto(s); err != nil {
			return nil, errors.Wrap(err, "failed to replay durable state")
		}
	}
	return s, nil
}

func newEmpty() *Storage {
	return &Storage{
		messages:              make(map[externalapi.BlockHash]*externalapi.Message),
		children:               make(map[externalapi.BlockHash][]externalapi.BlockHash),
		justificationReverse:   make(map[externalapi.BlockHash][]externalapi.BlockHash),
		latest:                 make(map[externalapi.BlockHash]map[externalapi.ValidatorID]map[externalapi.BlockHash]struct{}),
		rank:                   make(map[uint64][]externalapi.BlockHash),
	}
}

// Insert appends m to the DAG. It is atomic with respect to every index
// update and idempotent on repeated inserts of an identical message.
func (s *Storage) Insert(m *externalapi.Message) (*Representation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.messages[m.Hash]; ok {
		if !messagesEqual(existing, m) {
			return nil, errors.Wrapf(ruleerrors.ErrCorrupt,
				"hash %s already stored with different content", m.Hash)
		}
		log.Tracef("insert %s: already present, idempotent", m.Hash)
		return &Representation{storage: s}, nil
	}

	if !m.IsGenesis() {
		for _, dep := range append(append([]externalapi.BlockHash{}, m.Parents...), m.Justifications...) {
			if _, ok := s.messages[dep]; !ok {
				return nil, errors.Wrapf(ruleerrors.ErrMissingDependency,
					"message %s references unknown dependency %s", m.Hash, dep)
			}
		}

		expectedRank := s.maxDependencyRank(m) + 1
		if m.Rank != expectedRank {
			return nil, errors.Wrapf(ruleerrors.ErrCorrupt,
				"message %s has rank %d, expected %d", m.Hash, m.Rank, expectedRank)
		}

		if m.SequenceNumber > 0 {
			if !m.HasValidatorPrevBlock {
				return nil, errors.Wrapf(ruleerrors.ErrCorrupt,
					"message %s has sequence number %d but no validatorPrevBlockHash", m.Hash, m.SequenceNumber)
			}
			prev, ok := s.messages[m.ValidatorPrevBlockHash]
			if !ok {
				return nil, errors.Wrapf(ruleerrors.ErrMissingDependency,
					"message %s references unknown validatorPrevBlockHash %s", m.Hash, m.ValidatorPrevBlockHash)
			}
			if prev.ValidatorID != m.ValidatorID || prev.SequenceNumber != m.SequenceNumber-1 {
				return nil, errors.Wrapf(ruleerrors.ErrCorrupt,
					"message %s's validatorPrevBlockHash %s is not its creator's immediate predecessor", m.Hash, prev.Hash)
			}
		}
	} else if m.Rank != 0 {
		return nil, errors.Wrapf(ruleerrors.ErrCorrupt, "genesis message %s has non-zero rank %d", m.Hash, m.Rank)
	}

	s.messages[m.Hash] = m

	for _, p := range m.Parents {
		s.children[p] = append(s.children[p], m.Hash)
	}
	for _, j := range m.Justifications {
		s.justificationReverse[j] = append(s.justificationReverse[j], m.Hash)
	}

	s.rank[m.Rank] = append(s.rank[m.Rank], m.Hash)

	if !m.ValidatorID.IsGenesis() {
		s.updateLatestMessagesLocked(m)
	}

	if s.durability != nil {
		if err := s.durability.recordInsert(m); err != nil {
			log.Warnf("failed to stage durable record for %s: %s", m.Hash, err)
		}
	}

	log.Tracef("inserted %s rank=%d validator=%s era=%s", m.Hash, m.Rank, m.ValidatorID, m.KeyBlockHash)
	return &Representation{storage: s}, nil
}

func (s *Storage) maxDependencyRank(m *externalapi.Message) uint64 {
	var max uint64
	first := true
	for _, dep := range append(append([]externalapi.BlockHash{}, m.Parents...), m.Justifications...) {
		depMsg := s.messages[dep]
		if first || depMsg.Rank > max {
			max = depMsg.Rank
			first = false
		}
	}
	return max
}

func messagesEqual(a, b *externalapi.Message) bool {
	return a.Hash == b.Hash && a.ValidatorID == b.ValidatorID && a.Rank == b.Rank &&
		a.SequenceNumber == b.SequenceNumber && a.KeyBlockHash == b.KeyBlockHash
}

// GetRepresentation returns a snapshot-like handle: internally consistent
// for any single query it services, per §4.B.
func (s *Storage) GetRepresentation() *Representation {
	return &Representation{storage: s}
}

// Checkpoint is the durability barrier described in §4.B: after it
// succeeds, every prior successful insert survives a restart.
func (s *Storage) Checkpoint() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.durability == nil {
		return nil
	}
	return s.durability.flush()
}

// Clear removes all state. Test-only.
func (s *Storage) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	fresh := newEmpty()
	s.messages = fresh.messages
	s.children = fresh.children
	s.justificationReverse = fresh.justificationReverse
	s.latest = fresh.latest
	s.rank = fresh.rank
	if s.durability != nil {
		s.durability.clear()
	}
}

// Close releases the durable backing store, if any.
func (s *Storage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.durability == nil {
		return nil
	}
	return s.durability.close()
}
