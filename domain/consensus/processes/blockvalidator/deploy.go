package blockvalidator

import (
	"github.com/pkg/errors"

	"github.com/casper-network/casper-node/domain/consensus/model/externalapi"
	"github.com/casper-network/casper-node/domain/consensus/ruleerrors"
	"github.com/casper-network/casper-node/domain/consensus/utils/hashing"
)

// checkDeploys runs every per-deploy §4.E.2 check plus the block-wide
// deploy-uniqueness check. Deploys are checked in body order; the first
// failure aborts the rest, matching every other check in this package.
func (v *BlockValidator) checkDeploys(header *externalapi.BlockHeader, body *externalapi.BlockBody) error {
	seenInBlock := make(map[externalapi.BlockHash]struct{}, len(body.Deploys))

	for _, d := range body.Deploys {
		if err := v.checkDeployHash(d); err != nil {
			return err
		}
		if err := v.checkDeploySignatures(d); err != nil {
			return err
		}
		if err := v.checkDeployHeader(header, d.Header); err != nil {
			return err
		}
		if err := v.checkDeployDependenciesReachable(header, d.Header); err != nil {
			return err
		}
		if _, dup := seenInBlock[d.DeployHash]; dup {
			return errors.Wrapf(ruleerrors.ErrInvalidRepeatDeploy,
				"deploy %s appears twice in block", d.DeployHash)
		}
		seenInBlock[d.DeployHash] = struct{}{}
		if err := v.checkDeployNotInPastCone(header, d.DeployHash); err != nil {
			return err
		}
	}
	return nil
}

func (v *BlockValidator) checkDeployHash(d *externalapi.Deploy) error {
	expectedHeaderHash := hashing.DeployHeaderHash(d.Header)
	if d.DeployHash != expectedHeaderHash {
		return errors.Wrapf(ruleerrors.ErrInvalidDeployHash,
			"deployHash %s does not match hash(header) %s", d.DeployHash, expectedHeaderHash)
	}
	expectedBodyHash := hashing.DeployBodyHash(d.Body)
	if d.Header.BodyHash != expectedBodyHash {
		return errors.Wrapf(ruleerrors.ErrInvalidDeployHash,
			"deploy %s bodyHash %s does not match hash(body) %s", d.DeployHash, d.Header.BodyHash, expectedBodyHash)
	}
	return nil
}

func (v *BlockValidator) checkDeploySignatures(d *externalapi.Deploy) error {
	if len(d.Approvals) == 0 {
		return errors.Wrapf(ruleerrors.ErrInvalidDeploySignature, "deploy %s has no approvals", d.DeployHash)
	}
	if v.verifier == nil {
		return nil
	}
	for i, a := range d.Approvals {
		ok, err := v.verifier.Verify(d.DeployHash[:], a.Signature, a.SignerPublicKey, a.Algorithm)
		if err != nil {
			return errors.Wrapf(ruleerrors.ErrInvalidDeploySignature,
				"deploy %s approval %d: %s", d.DeployHash, i, err)
		}
		if !ok {
			return errors.Wrapf(ruleerrors.ErrInvalidDeploySignature,
				"deploy %s approval %d does not verify", d.DeployHash, i)
		}
	}
	return nil
}

const (
	minDeployTTLMillis = uint64(1 * 60 * 60 * 1000)
	maxDeployTTLMillis = uint64(24 * 60 * 60 * 1000)
	maxDeployDependencies = 10
)

func (v *BlockValidator) checkDeployHeader(blockHeader *externalapi.BlockHeader, dh *externalapi.DeployHeader) error {
	minTTL, maxTTL := minDeployTTLMillis, maxDeployTTLMillis
	if v.cfg != nil {
		minTTL = uint64(v.cfg.MinTTL.Milliseconds())
		maxTTL = uint64(v.cfg.MaxTTL.Milliseconds())
	}
	if dh.TTLMillis < minTTL || dh.TTLMillis > maxTTL {
		return errors.Wrapf(ruleerrors.ErrInvalidDeployHeader,
			"deploy ttl %dms outside [%d,%d]", dh.TTLMillis, minTTL, maxTTL)
	}

	maxDeps := maxDeployDependencies
	if v.cfg != nil {
		maxDeps = v.cfg.MaxDeployDependencies
	}
	if len(dh.Dependencies) > maxDeps {
		return errors.Wrapf(ruleerrors.ErrInvalidDeployHeader,
			"deploy has %d dependencies, max is %d", len(dh.Dependencies), maxDeps)
	}

	if dh.ChainName != "" && dh.ChainName != blockHeader.ChainName {
		return errors.Wrapf(ruleerrors.ErrInvalidChainName,
			"deploy chainName %q does not match block's %q", dh.ChainName, blockHeader.ChainName)
	}

	if blockHeader.TimestampMillis < dh.TimestampMillis {
		return errors.Wrapf(ruleerrors.ErrDeployFromFuture,
			"block timestamp %d precedes deploy timestamp %d", blockHeader.TimestampMillis, dh.TimestampMillis)
	}
	if blockHeader.TimestampMillis > dh.TimestampMillis+dh.TTLMillis {
		return errors.Wrapf(ruleerrors.ErrDeployExpired,
			"block timestamp %d exceeds deploy %d's ttl window", blockHeader.TimestampMillis, dh.TimestampMillis)
	}
	return nil
}

// checkDeployDependenciesReachable walks the block's p-past-cone (Parents
// edges only, matching §4.E.2's "through the block's parents") to confirm
// every dependency hash the deploy names was already accepted somewhere in
// that cone.
func (v *BlockValidator) checkDeployDependenciesReachable(blockHeader *externalapi.BlockHeader, dh *externalapi.DeployHeader) error {
	if len(dh.Dependencies) == 0 {
		return nil
	}
	reachable := v.pastConeHashes(blockHeader.ParentHashes)
	for _, dep := range dh.Dependencies {
		if _, ok := reachable[dep]; !ok {
			return errors.Wrapf(ruleerrors.ErrDeployDependencyNotMet,
				"dependency %s is not in the block's p-past-cone", dep)
		}
	}
	return nil
}

func (v *BlockValidator) pastConeHashes(roots []externalapi.BlockHash) map[externalapi.BlockHash]struct{} {
	visited := make(map[externalapi.BlockHash]struct{})
	stack := append([]externalapi.BlockHash{}, roots...)
	for len(stack) > 0 {
		h := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if _, ok := visited[h]; ok {
			continue
		}
		visited[h] = struct{}{}
		m, ok := v.store.Get(h)
		if !ok {
			continue
		}
		stack = append(stack, m.Parents...)
	}
	return visited
}

// checkDeployNotInPastCone enforces §4.E.2's block-wide deploy-uniqueness
// rule: deployHash must not already appear in any block in the p-past-cone.
// BlockStorage's deploy-hash index gives candidate blocks directly; ancestry
// against the current block's parents confirms each candidate is actually
// in the cone rather than an unrelated branch.
func (v *BlockValidator) checkDeployNotInPastCone(blockHeader *externalapi.BlockHeader, deployHash externalapi.BlockHash) error {
	if v.blockStore == nil {
		return nil
	}
	candidates, err := v.blockStore.FindBlockHashesWithDeployHash(deployHash)
	if err != nil {
		return errors.WithStack(err)
	}
	if len(candidates) == 0 {
		return nil
	}
	pastCone := v.pastConeHashes(blockHeader.ParentHashes)
	for _, c := range candidates {
		if _, ok := pastCone[c]; ok {
			return errors.Wrapf(ruleerrors.ErrInvalidRepeatDeploy,
				"deploy %s already appears in ancestor block %s", deployHash, c)
		}
	}
	return nil
}
