// Package blockvalidator implements §4.E's two-entry-point validation
// pipeline: summary validation against headers only, and full-block
// validation once the body has been downloaded and the DAG is consulted.
// Each rule is its own method, one check per function, so a single failing
// rule is easy to locate and test in isolation.
package blockvalidator

import (
	"github.com/casper-network/casper-node/domain/consensus/config"
	"github.com/casper-network/casper-node/domain/consensus/model/externalapi"
	"github.com/casper-network/casper-node/infrastructure/logger"
)

var log = logger.RegisterSubSystem("BVAL")

// messageStore is the narrow slice of dagstore's query surface full-block
// validation needs: looking up already-accepted messages by hash. Kept as
// a local interface (not a dependency on the dagstore package) so this
// package only depends on model types, not on another process package's
// concrete implementation.
type messageStore interface {
	Get(hash externalapi.BlockHash) (*externalapi.Message, bool)
}

// SummaryValidator runs §4.E.1: pre-download checks against a BlockSummary.
type SummaryValidator struct {
	cfg      *config.Config
	verifier externalapi.SignatureVerifier
}

// NewSummaryValidator constructs a SummaryValidator.
func NewSummaryValidator(cfg *config.Config, verifier externalapi.SignatureVerifier) *SummaryValidator {
	return &SummaryValidator{cfg: cfg, verifier: verifier}
}

// BlockValidator runs §4.E.2: post-download, DAG-aware checks against a
// full Block.
type BlockValidator struct {
	cfg          *config.Config
	store        messageStore
	blockStore   externalapi.BlockStorage
	verifier     externalapi.SignatureVerifier
	engine       externalapi.ExecutionEngineClient
	forkChoice   externalapi.ForkChoice
	equivocation *EquivocationIndex
}

// NewBlockValidator constructs a BlockValidator. forkChoice and engine may
// be nil; the checks that need them are skipped, matching §4.E.2's
// "when a genesis hash is known" qualifier on parent canonicality and the
// fact that transaction commitment needs an execution-engine round trip
// this package never performs on its own.
func NewBlockValidator(cfg *config.Config, store messageStore, blockStore externalapi.BlockStorage,
	verifier externalapi.SignatureVerifier, engine externalapi.ExecutionEngineClient,
	forkChoice externalapi.ForkChoice, equivocation *EquivocationIndex) *BlockValidator {
	return &BlockValidator{
		cfg:          cfg,
		store:        store,
		blockStore:   blockStore,
		verifier:     verifier,
		engine:       engine,
		forkChoice:   forkChoice,
		equivocation: equivocation,
	}
}
