package dagstore

import "github.com/casper-network/casper-node/domain/consensus/model/externalapi"

// updateLatestMessagesLocked implements the latest-messages update rule of
// §4.B: let L be the current latest set for (era, validator); remove from
// L every message transitively cited by m's justifications, then add m.
// Callers must hold s.mu.
func (s *Storage) updateLatestMessagesLocked(m *externalapi.Message) {
	era := m.KeyBlockHash
	validator := m.ValidatorID

	byValidator, ok := s.latest[era]
	if !ok {
		byValidator = make(map[externalapi.ValidatorID]map[externalapi.BlockHash]struct{})
		s.latest[era] = byValidator
	}
	current, ok := byValidator[validator]
	if !ok {
		current = make(map[externalapi.BlockHash]struct{})
		byValidator[validator] = current
	}

	if len(current) > 0 {
		ancestors := s.justificationAncestorsLocked(m.Hash)
		for existing := range current {
			if _, cited := ancestors[existing]; cited {
				delete(current, existing)
			}
		}
	}

	current[m.Hash] = struct{}{}
}

// justificationAncestorsLocked returns every hash transitively reachable
// by walking backward through Justifications (and Parents, which are
// always a subset of what the creator has seen) starting at h, not
// including h itself. Callers must hold s.mu (read or write).
func (s *Storage) justificationAncestorsLocked(h externalapi.BlockHash) map[externalapi.BlockHash]struct{} {
	visited := make(map[externalapi.BlockHash]struct{})
	stack := []externalapi.BlockHash{h}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		msg, ok := s.messages[cur]
		if !ok {
			continue
		}
		for _, j := range msg.Justifications {
			if _, seen := visited[j]; !seen {
				visited[j] = struct{}{}
				stack = append(stack, j)
			}
		}
		for _, p := range msg.Parents {
			if _, seen := visited[p]; !seen {
				visited[p] = struct{}{}
				stack = append(stack, p)
			}
		}
	}
	return visited
}

// latestMessagesInEraLocked returns a defensive copy of the latest messages
// for every validator in the given era. Callers must hold s.mu (read or
// write).
func (s *Storage) latestMessagesInEraLocked(era externalapi.BlockHash) map[externalapi.ValidatorID][]*externalapi.Message {
	out := make(map[externalapi.ValidatorID][]*externalapi.Message)
	for validator, hashes := range s.latest[era] {
		msgs := make([]*externalapi.Message, 0, len(hashes))
		for h := range hashes {
			msgs = append(msgs, s.messages[h])
		}
		out[validator] = msgs
	}
	return out
}

// Eras returns every keyBlockHash that has at least one latest message
// recorded.
func (s *Storage) Eras() []externalapi.BlockHash {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]externalapi.BlockHash, 0, len(s.latest))
	for era := range s.latest {
		out = append(out, era)
	}
	return out
}
