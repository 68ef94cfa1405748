package blockvalidator

import (
	"context"

	"github.com/pkg/errors"

	"github.com/casper-network/casper-node/domain/consensus/model/externalapi"
	"github.com/casper-network/casper-node/domain/consensus/ruleerrors"
	"github.com/casper-network/casper-node/domain/consensus/utils/hashing"
)

// FullBlockInput bundles the state full-block validation needs beyond the
// block itself. SenderBonds is the creator's stake at the block's parent
// state, for the bonded-sender check; it is distinct from the block's own
// declared Header.Bonds, which the transactions check expects the
// execution engine's commit to reproduce. Both pre-state values come from
// the execution engine's state at the block's parent, which this layer
// never materializes itself.
type FullBlockInput struct {
	Block            *externalapi.Block
	SenderBonds      externalapi.BondSet
	PreStateHash     externalapi.BlockHash
	ExecutionEffects externalapi.ExecutionEffects
	Now              uint64
}

// ValidateFullBlock runs §4.E.2 in order, short-circuiting on the first
// failure. Callers must have already run SummaryValidator.Validate against
// the block's summary.
func (v *BlockValidator) ValidateFullBlock(ctx context.Context, in *FullBlockInput) error {
	block := in.Block
	summary := block.Summary
	header := summary.Header

	if err := v.checkBodyPresent(block); err != nil {
		return err
	}
	if err := v.checkBondedSender(summary, in.SenderBonds); err != nil {
		return err
	}
	deps := append(append([]externalapi.BlockHash{}, header.ParentHashes...), header.Justifications...)
	if err := v.checkMissingBlocks(deps); err != nil {
		return err
	}
	if err := v.checkTimestamp(header, deps, in.Now); err != nil {
		return err
	}
	if err := v.checkBlockRank(header, deps); err != nil {
		return err
	}
	if err := v.checkValidatorPrevBlockHash(header); err != nil {
		return err
	}
	if err := v.checkSequenceNumber(header); err != nil {
		return err
	}
	if err := v.checkSwimlane(header); err != nil {
		return err
	}
	if err := v.checkBlockHash(summary, block.Body); err != nil {
		return err
	}
	if err := v.checkDeployCount(header, block.Body); err != nil {
		return err
	}
	if err := v.checkDeploys(header, block.Body); err != nil {
		return err
	}
	if err := v.checkParentsCanonicality(header); err != nil {
		return err
	}
	if err := v.checkTransactions(ctx, summary, in); err != nil {
		return err
	}
	return nil
}

func (v *BlockValidator) checkBodyPresent(block *externalapi.Block) error {
	if block.Body == nil {
		return errors.Wrapf(ruleerrors.ErrMissingBlocks, "block %s has no body", block.Summary.BlockHash)
	}
	return nil
}

func (v *BlockValidator) checkBondedSender(summary *externalapi.BlockSummary, bonds externalapi.BondSet) error {
	if summary.TreatAsGenesis {
		return nil
	}
	if bonds[string(summary.Header.ValidatorID)] == 0 {
		return errors.Wrapf(ruleerrors.ErrInvalidBondsCache,
			"validator %s has no stake at block %s's state", summary.Header.ValidatorID, summary.BlockHash)
	}
	return nil
}

func (v *BlockValidator) checkMissingBlocks(deps []externalapi.BlockHash) error {
	var missing []externalapi.BlockHash
	for _, h := range deps {
		present, err := v.blockStore.Contains(h)
		if err != nil {
			return errors.WithStack(err)
		}
		if !present {
			missing = append(missing, h)
		}
	}
	if len(missing) > 0 {
		return errors.Wrapf(ruleerrors.ErrMissingBlocks, "missing %d dependencies: %v", len(missing), missing)
	}
	return nil
}

func (v *BlockValidator) checkTimestamp(header *externalapi.BlockHeader, deps []externalapi.BlockHash, now uint64) error {
	var maxDepTimestamp uint64
	for _, h := range deps {
		dep, ok := v.store.Get(h)
		if !ok {
			continue
		}
		if dep.TimestampMillis > maxDepTimestamp {
			maxDepTimestamp = dep.TimestampMillis
		}
	}
	if header.TimestampMillis < maxDepTimestamp {
		return errors.Wrapf(ruleerrors.ErrInvalidBlockNumber,
			"block timestamp %d precedes its dependencies' max timestamp %d", header.TimestampMillis, maxDepTimestamp)
	}
	driftLimit := now + uint64(v.cfg.Drift.Milliseconds())
	if header.TimestampMillis > driftLimit {
		return errors.Wrapf(ruleerrors.ErrInvalidBlockNumber,
			"block timestamp %d is beyond the allowed drift limit %d", header.TimestampMillis, driftLimit)
	}
	return nil
}

func (v *BlockValidator) checkBlockRank(header *externalapi.BlockHeader, deps []externalapi.BlockHash) error {
	if len(deps) == 0 {
		if header.Rank != 0 {
			return errors.Wrapf(ruleerrors.ErrInvalidBlockNumber, "genesis-like block has non-zero rank %d", header.Rank)
		}
		return nil
	}
	var maxDepRank uint64
	found := false
	for _, h := range deps {
		dep, ok := v.store.Get(h)
		if !ok {
			continue
		}
		if !found || dep.Rank > maxDepRank {
			maxDepRank = dep.Rank
			found = true
		}
	}
	expected := maxDepRank + 1
	if header.Rank != expected {
		return errors.Wrapf(ruleerrors.ErrInvalidBlockNumber, "block rank %d does not match expected %d", header.Rank, expected)
	}
	return nil
}

func (v *BlockValidator) checkValidatorPrevBlockHash(header *externalapi.BlockHeader) error {
	if !header.HasValidatorPrevBlock {
		return nil
	}
	prev, ok := v.store.Get(header.ValidatorPrevBlockHash)
	if !ok {
		return errors.Wrapf(ruleerrors.ErrInvalidPrevBlockHash,
			"validatorPrevBlockHash %s is unknown", header.ValidatorPrevBlockHash)
	}
	if prev.ValidatorID != header.ValidatorID {
		return errors.Wrapf(ruleerrors.ErrInvalidPrevBlockHash,
			"validatorPrevBlockHash %s was not created by %s", header.ValidatorPrevBlockHash, header.ValidatorID)
	}

	descended, err := v.previousMessageInPastCone(header)
	if err != nil {
		return err
	}
	if descended != header.ValidatorPrevBlockHash {
		return errors.Wrapf(ruleerrors.ErrInvalidPrevBlockHash,
			"j-past-cone descent finds %s's previous message as %s, not the declared %s",
			header.ValidatorID, descended, header.ValidatorPrevBlockHash)
	}
	return nil
}

// previousMessageInPastCone walks header's j-past-cone (the transitive
// closure of its justifications) and returns the highest-rank message
// created by header.ValidatorID found there. Once a creator-authored
// message is found along a path, its own ancestors are dominated by it
// through the validatorPrevBlockHash chain, so that path is not descended
// further.
func (v *BlockValidator) previousMessageInPastCone(header *externalapi.BlockHeader) (externalapi.BlockHash, error) {
	visited := make(map[externalapi.BlockHash]struct{})
	stack := append([]externalapi.BlockHash{}, header.Justifications...)
	var best *externalapi.Message

	for len(stack) > 0 {
		h := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if _, seen := visited[h]; seen {
			continue
		}
		visited[h] = struct{}{}

		m, ok := v.store.Get(h)
		if !ok {
			continue
		}
		if m.ValidatorID == header.ValidatorID {
			if best == nil || m.Rank > best.Rank {
				best = m
			}
			continue
		}
		stack = append(stack, m.Justifications...)
	}

	if best == nil {
		return externalapi.BlockHash{}, errors.Wrapf(ruleerrors.ErrInvalidPrevBlockHash,
			"no message by %s found in the j-past-cone", header.ValidatorID)
	}
	return best.Hash, nil
}

func (v *BlockValidator) checkSequenceNumber(header *externalapi.BlockHeader) error {
	if !header.HasValidatorPrevBlock {
		if header.SequenceNumber != 0 {
			return errors.Wrapf(ruleerrors.ErrInvalidSequenceNumber,
				"block with no validatorPrevBlockHash has non-zero sequence number %d", header.SequenceNumber)
		}
		return nil
	}
	prev, ok := v.store.Get(header.ValidatorPrevBlockHash)
	if !ok {
		return errors.Wrapf(ruleerrors.ErrInvalidPrevBlockHash,
			"validatorPrevBlockHash %s is unknown", header.ValidatorPrevBlockHash)
	}
	if header.SequenceNumber != prev.SequenceNumber+1 {
		return errors.Wrapf(ruleerrors.ErrInvalidSequenceNumber,
			"sequence number %d does not follow validatorPrevBlockHash's %d", header.SequenceNumber, prev.SequenceNumber)
	}
	return nil
}

// checkSwimlane implements §4.E.2's swimlane-merge rule: if the creator is
// a known equivocator anywhere, the new block's j-past-cone must not cite
// more than one distinct prior message from the creator's swimlane at or
// above minBaseRank.
func (v *BlockValidator) checkSwimlane(header *externalapi.BlockHeader) error {
	if v.equivocation == nil {
		return nil
	}
	minBaseRank, isEquivocator := v.equivocation.MinEquivocatingRank(header.ValidatorID)
	if !isEquivocator {
		return nil
	}

	visited := make(map[externalapi.BlockHash]struct{})
	stack := append([]externalapi.BlockHash{}, header.Justifications...)
	creatorTips := make(map[externalapi.BlockHash]*externalapi.Message)

	for len(stack) > 0 {
		h := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if _, seen := visited[h]; seen {
			continue
		}
		visited[h] = struct{}{}

		m, ok := v.store.Get(h)
		if !ok || m.Rank < minBaseRank {
			continue
		}
		if m.ValidatorID == header.ValidatorID {
			creatorTips[m.Hash] = m
		}
		if m.Rank > minBaseRank {
			stack = append(stack, m.Justifications...)
		}
	}

	// A creator-authored message found above is not a "tip" of the
	// merged view if another found message's validatorPrevBlockHash
	// chain passes through it.
	for _, m := range creatorTips {
		cur := m
		for cur.HasValidatorPrevBlock {
			if ancestor, ok := creatorTips[cur.ValidatorPrevBlockHash]; ok {
				delete(creatorTips, ancestor.Hash)
				cur = ancestor
				continue
			}
			break
		}
	}

	if len(creatorTips) >= 2 {
		return errors.Wrapf(ruleerrors.ErrSwimlaneMerged,
			"block cites %d distinct prior swimlane tips for equivocator %s at or above rank %d",
			len(creatorTips), header.ValidatorID, minBaseRank)
	}
	return nil
}

func (v *BlockValidator) checkBlockHash(summary *externalapi.BlockSummary, body *externalapi.BlockBody) error {
	expectedHeaderHash := hashing.HeaderHash(summary.Header)
	if summary.BlockHash != expectedHeaderHash {
		return errors.Wrapf(ruleerrors.ErrInvalidBlockHash,
			"blockHash %s does not match hash(header) %s", summary.BlockHash, expectedHeaderHash)
	}
	expectedBodyHash := hashing.BodyHash(body)
	if summary.Header.BodyHash != expectedBodyHash {
		return errors.Wrapf(ruleerrors.ErrInvalidBlockHash,
			"bodyHash %s does not match hash(body) %s", summary.Header.BodyHash, expectedBodyHash)
	}
	return nil
}

func (v *BlockValidator) checkDeployCount(header *externalapi.BlockHeader, body *externalapi.BlockBody) error {
	if header.DeployCount != uint32(len(body.Deploys)) {
		return errors.Wrapf(ruleerrors.ErrInvalidDeployCount,
			"header.deployCount %d does not match |body.deploys| %d", header.DeployCount, len(body.Deploys))
	}
	return nil
}

func (v *BlockValidator) checkParentsCanonicality(header *externalapi.BlockHeader) error {
	if v.forkChoice == nil {
		return nil
	}
	justificationLatest := make(map[externalapi.ValidatorID][]externalapi.BlockHash)
	for _, h := range header.Justifications {
		m, ok := v.store.Get(h)
		if !ok {
			continue
		}
		justificationLatest[m.ValidatorID] = append(justificationLatest[m.ValidatorID], m.Hash)
	}
	expectedParents, err := v.forkChoice.ComputeParents(justificationLatest)
	if err != nil {
		return errors.WithStack(err)
	}
	if len(expectedParents) != len(header.ParentHashes) {
		return errors.Wrapf(ruleerrors.ErrInvalidParents,
			"block has %d parents, fork choice expected %d", len(header.ParentHashes), len(expectedParents))
	}
	for i, expected := range expectedParents {
		if header.ParentHashes[i] != expected {
			return errors.Wrapf(ruleerrors.ErrInvalidParents,
				"parent %d is %s, fork choice expected %s", i, header.ParentHashes[i], expected)
		}
	}
	return nil
}

func (v *BlockValidator) checkTransactions(ctx context.Context, summary *externalapi.BlockSummary, in *FullBlockInput) error {
	if v.engine == nil {
		return nil
	}
	postStateHash, bonds, err := v.engine.Commit(ctx, in.PreStateHash, in.ExecutionEffects, summary.Header.ProtocolVersion)
	if err != nil {
		return errors.Wrapf(ruleerrors.ErrInvalidTransaction, "execution engine commit failed: %s", err)
	}
	if postStateHash != summary.Header.PostStateHash {
		return errors.Wrapf(ruleerrors.ErrInvalidPostStateHash,
			"commit produced postStateHash %s, block declares %s", postStateHash, summary.Header.PostStateHash)
	}
	if !bonds.Equal(summary.Header.Bonds) {
		return errors.Wrapf(ruleerrors.ErrInvalidBondsCache, "commit produced a bond set that does not match the block's")
	}
	return nil
}
