package externalapi

// SignatureAlgorithm is one of the closed set of signature schemes the
// validator knows how to verify.
type SignatureAlgorithm string

const (
	// AlgorithmSECP256K1 verifies signatures with go-secp256k1.
	AlgorithmSECP256K1 SignatureAlgorithm = "secp256k1"
	// AlgorithmED25519 verifies signatures with golang.org/x/crypto/ed25519.
	AlgorithmED25519 SignatureAlgorithm = "ed25519"
)

// BlockHeader is the canonically-encoded, hashable part of a block or
// ballot. BlockSummary.BlockHash must equal hash(header).
type BlockHeader struct {
	ValidatorID            ValidatorID
	ParentHashes           []BlockHash
	Justifications         []BlockHash
	Rank                   uint64
	JRank                  uint64
	SequenceNumber         uint64
	ValidatorPrevBlockHash BlockHash
	HasValidatorPrevBlock  bool
	TimestampMillis        uint64
	KeyBlockHash           BlockHash
	MessageType            MessageType
	BodyHash               BlockHash
	PostStateHash          BlockHash
	ProtocolVersion        uint32
	ChainName              string
	DeployCount            uint32

	// Bonds is the validator-id-to-stake map this block declares as the
	// result of committing its transactions; the "Transactions" check in
	// §4.E.2 verifies the execution engine reproduces it exactly.
	Bonds BondSet
}

// BlockSummary is what the initial synchronizer exchanges with peers:
// everything needed for summary validation (§4.E.1), before the body has
// been downloaded.
type BlockSummary struct {
	BlockHash          BlockHash
	Header             *BlockHeader
	SignatureAlgorithm SignatureAlgorithm
	Signature          []byte

	// TreatAsGenesis is true only for the era's key block / the chain's
	// genesis message, where signature fields are expected to be empty.
	TreatAsGenesis bool
}

// Rank is a convenience accessor mirroring Message.Rank.
func (s *BlockSummary) Rank() uint64 {
	if s.Header == nil {
		return 0
	}
	return s.Header.Rank
}
