package blockvalidator

import (
	"github.com/pkg/errors"

	"github.com/casper-network/casper-node/domain/consensus/model/externalapi"
	"github.com/casper-network/casper-node/domain/consensus/ruleerrors"
	"github.com/casper-network/casper-node/domain/consensus/utils/hashing"
)

// Validate runs §4.E.1 in order, short-circuiting on the first failure.
// Steps 1-3 raise ErrInvalidUnslashableBlock (droppable) on failure; steps
// 4-6 raise their own specific kind.
func (v *SummaryValidator) Validate(summary *externalapi.BlockSummary) error {
	if err := v.checkFormatOfFields(summary); err != nil {
		return err
	}
	if err := v.checkProtocolVersion(summary); err != nil {
		return err
	}
	if err := v.checkSignature(summary); err != nil {
		return err
	}
	if err := v.checkSummaryHash(summary); err != nil {
		return err
	}
	if err := v.checkChainIdentifier(summary); err != nil {
		return err
	}
	if err := v.checkBallotShape(summary); err != nil {
		return err
	}
	return nil
}

func droppable(format string, args ...interface{}) error {
	err := errors.Wrapf(ruleerrors.ErrInvalidUnslashableBlock, format, args...)
	log.Debugf("dropping unslashable block: %s", err)
	return err
}

// checkFormatOfFields is §4.E.1 step 1.
func (v *SummaryValidator) checkFormatOfFields(summary *externalapi.BlockSummary) error {
	if summary.BlockHash.IsZero() {
		return droppable("summary has empty blockHash")
	}
	if summary.Header == nil {
		return droppable("summary has no header")
	}
	if summary.Header.ChainName == "" {
		return droppable("summary has empty chainName")
	}
	if summary.Header.PostStateHash.IsZero() {
		return droppable("summary has empty postStateHash")
	}
	if summary.Header.BodyHash.IsZero() {
		return droppable("summary has empty bodyHash")
	}
	hasSig := len(summary.Signature) > 0
	hasAlg := summary.SignatureAlgorithm != ""
	if summary.TreatAsGenesis {
		if hasSig || hasAlg {
			return droppable("genesis summary must have empty signature and algorithm")
		}
	} else {
		if !hasSig || !hasAlg {
			return droppable("non-genesis summary must have both signature and algorithm set")
		}
	}
	return nil
}

// checkProtocolVersion is §4.E.1 step 2.
func (v *SummaryValidator) checkProtocolVersion(summary *externalapi.BlockSummary) error {
	expected, ok := v.cfg.VersionAt(summary.Header.Rank)
	if !ok {
		return droppable("no protocol version activation covers rank %d", summary.Header.Rank)
	}
	if summary.Header.ProtocolVersion != expected {
		return droppable("summary protocol version %d does not match expected %d at rank %d",
			summary.Header.ProtocolVersion, expected, summary.Header.Rank)
	}
	return nil
}

// checkSignature is §4.E.1 step 3. Genesis summaries are skipped.
func (v *SummaryValidator) checkSignature(summary *externalapi.BlockSummary) error {
	if summary.TreatAsGenesis {
		return nil
	}
	switch summary.SignatureAlgorithm {
	case externalapi.AlgorithmSECP256K1, externalapi.AlgorithmED25519:
	default:
		return droppable("unsupported signature algorithm %q", summary.SignatureAlgorithm)
	}
	ok, err := v.verifier.Verify(summary.BlockHash[:], summary.Signature, []byte(summary.Header.ValidatorID), summary.SignatureAlgorithm)
	if err != nil {
		return droppable("signature verification errored: %s", err)
	}
	if !ok {
		return droppable("signature verification failed")
	}
	return nil
}

// checkSummaryHash is §4.E.1 step 4, not droppable.
func (v *SummaryValidator) checkSummaryHash(summary *externalapi.BlockSummary) error {
	expected := hashing.HeaderHash(summary.Header)
	if summary.BlockHash != expected {
		return errors.Wrapf(ruleerrors.ErrInvalidBlockHash,
			"summary blockHash %s does not match hash(header) %s", summary.BlockHash, expected)
	}
	return nil
}

// checkChainIdentifier is §4.E.1 step 5, not droppable.
func (v *SummaryValidator) checkChainIdentifier(summary *externalapi.BlockSummary) error {
	if summary.Header.ChainName != v.cfg.ChainName {
		return errors.Wrapf(ruleerrors.ErrInvalidChainName,
			"summary chainName %q does not match configured %q", summary.Header.ChainName, v.cfg.ChainName)
	}
	return nil
}

// checkBallotShape is §4.E.1 step 6, not droppable.
func (v *SummaryValidator) checkBallotShape(summary *externalapi.BlockSummary) error {
	if summary.Header.MessageType == externalapi.Ballot && len(summary.Header.ParentHashes) != 1 {
		return errors.Wrapf(ruleerrors.ErrInvalidParents,
			"ballot must have exactly one parent, got %d", len(summary.Header.ParentHashes))
	}
	return nil
}
