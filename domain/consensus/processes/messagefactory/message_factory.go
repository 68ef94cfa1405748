// Package messagefactory builds the immutable in-memory Message (§4.A)
// from a validated BlockSummary; the block body is not needed. It never mutates its input
// and never talks to storage: FromBlockSummary is a pure, fallible
// constructor.
package messagefactory

import (
	"github.com/pkg/errors"

	"github.com/casper-network/casper-node/domain/consensus/model/externalapi"
)

// FromBlockSummary constructs a Message from a BlockSummary, failing if the
// summary's shape violates §4.A's two structural rules: a non-genesis
// message must have at least one parent, and a Ballot must have exactly
// one parent.
func FromBlockSummary(summary *externalapi.BlockSummary) (*externalapi.Message, error) {
	header := summary.Header
	if header == nil {
		return nil, errors.New("block summary has no header")
	}

	if len(header.ParentHashes) == 0 && !summary.TreatAsGenesis {
		return nil, errors.New("non-genesis message has no parents")
	}

	if header.MessageType == externalapi.Ballot && len(header.ParentHashes) != 1 {
		return nil, errors.Errorf("ballot must have exactly one parent, got %d", len(header.ParentHashes))
	}

	return &externalapi.Message{
		Hash:                   summary.BlockHash,
		ValidatorID:            header.ValidatorID,
		Parents:                append([]externalapi.BlockHash(nil), header.ParentHashes...),
		Justifications:         dedupeHashes(header.Justifications),
		Rank:                   header.Rank,
		JRank:                  header.JRank,
		SequenceNumber:         header.SequenceNumber,
		ValidatorPrevBlockHash: header.ValidatorPrevBlockHash,
		HasValidatorPrevBlock:  header.HasValidatorPrevBlock,
		TimestampMillis:        header.TimestampMillis,
		KeyBlockHash:           header.KeyBlockHash,
		MessageType:            header.MessageType,
		BodyHash:               header.BodyHash,
		PostStateHash:          header.PostStateHash,
		ProtocolVersion:        header.ProtocolVersion,
		ChainName:              header.ChainName,
		SignatureAlgorithm:     summary.SignatureAlgorithm,
		Signature:              append([]byte(nil), summary.Signature...),
		Bonds:                  header.Bonds,
	}, nil
}

func dedupeHashes(hashes []externalapi.BlockHash) []externalapi.BlockHash {
	seen := make(map[externalapi.BlockHash]struct{}, len(hashes))
	out := make([]externalapi.BlockHash, 0, len(hashes))
	for _, h := range hashes {
		if _, ok := seen[h]; ok {
			continue
		}
		seen[h] = struct{}{}
		out = append(out, h)
	}
	return out
}
