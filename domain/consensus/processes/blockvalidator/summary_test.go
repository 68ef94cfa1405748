package blockvalidator

import (
	"testing"

	"github.com/pkg/errors"

	"github.com/casper-network/casper-node/domain/consensus/config"
	"github.com/casper-network/casper-node/domain/consensus/model/externalapi"
	"github.com/casper-network/casper-node/domain/consensus/ruleerrors"
	"github.com/casper-network/casper-node/domain/consensus/utils/hashing"
)

type fakeVerifier struct {
	ok  bool
	err error
}

func (f *fakeVerifier) Verify(data, signature, publicKey []byte, algorithm externalapi.SignatureAlgorithm) (bool, error) {
	return f.ok, f.err
}

func genesisSummary(chainName string) *externalapi.BlockSummary {
	header := &externalapi.BlockHeader{
		ChainName:       chainName,
		PostStateHash:   hashForV(9),
		BodyHash:        hashing.BodyHash(&externalapi.BlockBody{}),
		ProtocolVersion: 1,
	}
	return &externalapi.BlockSummary{
		BlockHash:      hashing.HeaderHash(header),
		Header:         header,
		TreatAsGenesis: true,
	}
}

func TestSummaryValidateAcceptsWellFormedGenesis(t *testing.T) {
	cfg := config.Default()
	cfg.ChainName = "test-chain"
	cfg.ProtocolVersions = []config.ProtocolVersionActivation{{ActivationRank: 0, Version: 1}}
	sv := NewSummaryValidator(cfg, &fakeVerifier{ok: true})

	summary := genesisSummary("test-chain")
	if err := sv.Validate(summary); err != nil {
		t.Fatalf("expected well-formed genesis summary to validate, got %s", err)
	}
}

func TestSummaryValidateRejectsWrongChainName(t *testing.T) {
	cfg := config.Default()
	cfg.ChainName = "test-chain"
	cfg.ProtocolVersions = []config.ProtocolVersionActivation{{ActivationRank: 0, Version: 1}}
	sv := NewSummaryValidator(cfg, &fakeVerifier{ok: true})

	summary := genesisSummary("other-chain")
	err := sv.Validate(summary)
	if !errors.Is(err, ruleerrors.ErrInvalidChainName) {
		t.Fatalf("expected ErrInvalidChainName, got %v", err)
	}
}

func TestSummaryValidateDropsUnsupportedAlgorithm(t *testing.T) {
	cfg := config.Default()
	cfg.ChainName = "test-chain"
	cfg.ProtocolVersions = []config.ProtocolVersionActivation{{ActivationRank: 0, Version: 1}}
	sv := NewSummaryValidator(cfg, &fakeVerifier{ok: true})

	header := &externalapi.BlockHeader{
		ChainName:       "test-chain",
		PostStateHash:   hashForV(9),
		BodyHash:        hashing.BodyHash(&externalapi.BlockBody{}),
		ProtocolVersion: 1,
	}
	summary := &externalapi.BlockSummary{
		BlockHash:          hashing.HeaderHash(header),
		Header:             header,
		TreatAsGenesis:     false,
		SignatureAlgorithm: "rot13",
		Signature:          []byte("sig"),
	}
	err := sv.Validate(summary)
	if !errors.Is(err, ruleerrors.ErrInvalidUnslashableBlock) {
		t.Fatalf("expected droppable ErrInvalidUnslashableBlock, got %v", err)
	}
}

func TestSummaryValidateRejectsBadSignature(t *testing.T) {
	cfg := config.Default()
	cfg.ChainName = "test-chain"
	cfg.ProtocolVersions = []config.ProtocolVersionActivation{{ActivationRank: 0, Version: 1}}
	sv := NewSummaryValidator(cfg, &fakeVerifier{ok: false})

	header := &externalapi.BlockHeader{
		ChainName:       "test-chain",
		PostStateHash:   hashForV(9),
		BodyHash:        hashing.BodyHash(&externalapi.BlockBody{}),
		ProtocolVersion: 1,
	}
	summary := &externalapi.BlockSummary{
		BlockHash:          hashing.HeaderHash(header),
		Header:             header,
		TreatAsGenesis:     false,
		SignatureAlgorithm: externalapi.AlgorithmED25519,
		Signature:          []byte("sig"),
	}
	err := sv.Validate(summary)
	if !errors.Is(err, ruleerrors.ErrInvalidUnslashableBlock) {
		t.Fatalf("expected droppable signature failure, got %v", err)
	}
}
