package hashing

import (
	"sort"

	"github.com/casper-network/casper-node/domain/consensus/model/externalapi"
)

// HeaderHash computes the canonical hash of a BlockHeader. blockHash must
// equal this value for every accepted block (§8 round-trip property).
func HeaderHash(header *externalapi.BlockHeader) externalapi.BlockHash {
	w := NewHeaderWriter()
	w.WriteString(string(header.ValidatorID))
	w.WriteUint32(uint32(len(header.ParentHashes)))
	for _, h := range header.ParentHashes {
		w.WriteHash(h)
	}
	w.WriteUint32(uint32(len(header.Justifications)))
	for _, h := range header.Justifications {
		w.WriteHash(h)
	}
	w.WriteUint64(header.Rank)
	w.WriteUint64(header.JRank)
	w.WriteUint64(header.SequenceNumber)
	if header.HasValidatorPrevBlock {
		w.WriteHash(header.ValidatorPrevBlockHash)
	}
	w.WriteUint64(header.TimestampMillis)
	w.WriteHash(header.KeyBlockHash)
	w.WriteUint32(uint32(header.MessageType))
	w.WriteHash(header.BodyHash)
	w.WriteHash(header.PostStateHash)
	w.WriteUint32(header.ProtocolVersion)
	w.WriteString(header.ChainName)
	w.WriteUint32(header.DeployCount)
	writeBondSet(w, header.Bonds)
	return w.Finalize()
}

// writeBondSet commits to a BondSet deterministically: validator ids
// sorted lexicographically before writing, since map iteration order is
// not stable.
func writeBondSet(w *Writer, bonds externalapi.BondSet) {
	validators := make([]string, 0, len(bonds))
	for id := range bonds {
		validators = append(validators, id)
	}
	sort.Strings(validators)
	w.WriteUint32(uint32(len(validators)))
	for _, id := range validators {
		w.WriteString(id)
		w.WriteUint64(bonds[id])
	}
}

// BodyHash computes the canonical hash of a block body from its deploy
// hashes, the only thing the header's bodyHash needs to commit to.
func BodyHash(body *externalapi.BlockBody) externalapi.BlockHash {
	w := NewBodyWriter()
	w.WriteUint32(uint32(len(body.Deploys)))
	for _, d := range body.Deploys {
		w.WriteHash(d.DeployHash)
	}
	return w.Finalize()
}

// DeployHeaderHash computes the canonical hash of a deploy header.
func DeployHeaderHash(h *externalapi.DeployHeader) externalapi.BlockHash {
	w := NewDeployWriter()
	w.Write(h.Account)
	w.WriteUint64(h.TimestampMillis)
	w.WriteUint64(h.TTLMillis)
	w.WriteUint64(h.GasPrice)
	w.WriteUint64(h.PaymentAmount)
	w.WriteString(h.ChainName)
	w.WriteUint32(uint32(len(h.Dependencies)))
	for _, d := range h.Dependencies {
		w.WriteHash(d)
	}
	w.WriteHash(h.BodyHash)
	return w.Finalize()
}

// DeployBodyHash computes the canonical hash of a deploy body.
func DeployBodyHash(b *externalapi.DeployBody) externalapi.BlockHash {
	w := NewBodyWriter()
	w.Write(b.PaymentCode)
	w.Write(b.SessionCode)
	return w.Finalize()
}
