package externalapi

// Approval is a single signature over a deploy's hash by an account key.
type Approval struct {
	SignerPublicKey []byte
	Signature       []byte
	Algorithm       SignatureAlgorithm
}

// DeployHeader carries the fields checked by summary-independent deploy
// validation (§4.E.2 "Deploy headers").
type DeployHeader struct {
	Account          []byte
	TimestampMillis  uint64
	TTLMillis        uint64
	GasPrice         uint64
	PaymentAmount    uint64
	ChainName        string
	Dependencies     []BlockHash
	BodyHash         BlockHash
}

// DeployBody is the payload a deploy executes; opaque to this layer beyond
// its hash.
type DeployBody struct {
	PaymentCode []byte
	SessionCode []byte
}

// Deploy is a single user transaction bundled into a block.
type Deploy struct {
	DeployHash BlockHash
	Header     *DeployHeader
	Body       *DeployBody
	Approvals  []Approval
}

// BlockBody holds the deploys referenced by a block's header.
type BlockBody struct {
	Deploys []*Deploy
}

// Block is a full message: header plus body, ready for full-block
// validation (§4.E.2).
type Block struct {
	Summary *BlockSummary
	Body    *BlockBody
}

// BondSet is the validator-id-to-stake map produced by committing a
// block's transactions through the execution engine.
type BondSet map[string]uint64

// Equal reports whether two bond sets contain the same validators mapped to
// the same stake.
func (b BondSet) Equal(other BondSet) bool {
	if len(b) != len(other) {
		return false
	}
	for k, v := range b {
		if ov, ok := other[k]; !ok || ov != v {
			return false
		}
	}
	return true
}

// ExecutionEffects is the opaque set of deploy effects handed to the
// execution engine's commit call; this layer never inspects it.
type ExecutionEffects []byte
