// Package blockdag wires §4.B-§4.F's components into the single facade the
// rest of a node talks to: a narrow interface for callers, a private
// struct holding every injected collaborator, and methods that mostly
// just delegate to the right one.
package blockdag

import (
	"context"

	"github.com/casper-network/casper-node/domain/consensus/config"
	"github.com/casper-network/casper-node/domain/consensus/model/externalapi"
	"github.com/casper-network/casper-node/domain/consensus/processes/behaviorclassifier"
	"github.com/casper-network/casper-node/domain/consensus/processes/blockvalidator"
	"github.com/casper-network/casper-node/domain/consensus/processes/dagstore"
	"github.com/casper-network/casper-node/domain/consensus/processes/initialsync"
	"github.com/casper-network/casper-node/domain/consensus/processes/messagefactory"
	"github.com/casper-network/casper-node/domain/consensus/processes/tipmanager"
	"github.com/casper-network/casper-node/infrastructure/logger"
	"github.com/casper-network/casper-node/util/mstime"
)

var log = logger.RegisterSubSystem("BDAG")

// BlockDAG is the block DAG layer's entry point: accepting summaries and
// full blocks, exposing tip views, classifying validator behavior, and
// driving initial sync.
type BlockDAG interface {
	// InsertSummary runs §4.E.1 and, on success, constructs and inserts the
	// resulting Message into the DAG.
	InsertSummary(summary *externalapi.BlockSummary) (*externalapi.Message, error)
	// ValidateFullBlock runs §4.E.2 against an already-inserted block's full
	// body.
	ValidateFullBlock(ctx context.Context, in *blockvalidator.FullBlockInput) error

	// GlobalTips returns the union tip view across every active era.
	GlobalTips(lifecycle externalapi.EraLifecycle) *tipmanager.GlobalView
	// EraTips returns the tip view restricted to a single era.
	EraTips(era externalapi.BlockHash) *tipmanager.EraView
	// ClassifyBehavior snapshots every era's latest messages and classifies
	// each validator's observed behavior (§4.D).
	ClassifyBehavior() *behaviorclassifier.EraObservedBehavior
	// Representation exposes the raw DAG query surface (§4.B).
	Representation() *dagstore.Representation

	// Synchronize runs the initial synchronizer (§4.F) starting at rank 0.
	Synchronize(ctx context.Context) error
}

type blockDAG struct {
	cfg *config.Config

	storage *dagstore.Storage

	verifier   externalapi.SignatureVerifier
	blockStore externalapi.BlockStorage
	engine     externalapi.ExecutionEngineClient
	forkChoice externalapi.ForkChoice

	summaryValidator *blockvalidator.SummaryValidator
	synchronizer     *initialsync.Synchronizer
}

// New wires every §4.B-§4.F collaborator together. dbPath is forwarded to
// dagstore.New; pass "" for a purely in-memory store.
func New(cfg *config.Config, dbPath string, verifier externalapi.SignatureVerifier,
	blockStore externalapi.BlockStorage, engine externalapi.ExecutionEngineClient, forkChoice externalapi.ForkChoice,
	discovery externalapi.PeerDiscovery, peerClient externalapi.PeerClient, downloader externalapi.BlockDownloader) (BlockDAG, error) {

	storage, err := dagstore.New(dbPath)
	if err != nil {
		return nil, err
	}

	summaryValidator := blockvalidator.NewSummaryValidator(cfg, verifier)
	synchronizer := initialsync.New(cfg, discovery, peerClient, downloader)

	return &blockDAG{
		cfg:              cfg,
		storage:          storage,
		verifier:         verifier,
		blockStore:       blockStore,
		engine:           engine,
		forkChoice:       forkChoice,
		summaryValidator: summaryValidator,
		synchronizer:     synchronizer,
	}, nil
}

func (b *blockDAG) InsertSummary(summary *externalapi.BlockSummary) (*externalapi.Message, error) {
	if err := b.summaryValidator.Validate(summary); err != nil {
		return nil, err
	}
	message, err := messagefactory.FromBlockSummary(summary)
	if err != nil {
		return nil, err
	}
	if _, err := b.storage.Insert(message); err != nil {
		return nil, err
	}
	log.Debugf("inserted summary %s from validator %s at rank %d", summary.BlockHash, message.ValidatorID, message.Rank)
	return message, nil
}

// ValidateFullBlock builds a fresh BlockValidator against a behavior
// snapshot taken at call time, rather than sharing one across calls: §5
// allows concurrent validation of distinct blocks, and an EquivocationIndex
// caches per snapshot, so each call gets its own.
func (b *blockDAG) ValidateFullBlock(ctx context.Context, in *blockvalidator.FullBlockInput) error {
	if in.Now == 0 {
		in.Now = uint64(mstime.TimeToUnixMilli(mstime.Now()))
	}
	equivocation := blockvalidator.NewEquivocationIndex(b.ClassifyBehavior())
	validator := blockvalidator.NewBlockValidator(b.cfg, b.storage, b.blockStore, b.verifier, b.engine, b.forkChoice, equivocation)
	return validator.ValidateFullBlock(ctx, in)
}

func (b *blockDAG) GlobalTips(lifecycle externalapi.EraLifecycle) *tipmanager.GlobalView {
	return tipmanager.NewGlobalView(b.storage.GetRepresentation(), lifecycle)
}

func (b *blockDAG) EraTips(era externalapi.BlockHash) *tipmanager.EraView {
	return tipmanager.NewEraView(b.storage.GetRepresentation(), era)
}

func (b *blockDAG) ClassifyBehavior() *behaviorclassifier.EraObservedBehavior {
	repr := b.storage.GetRepresentation()
	snapshot := make(map[externalapi.BlockHash]map[externalapi.ValidatorID][]*externalapi.Message)
	for _, era := range repr.Eras() {
		snapshot[era] = repr.LatestMessagesInEra(era)
	}
	return behaviorclassifier.Classify(snapshot)
}

func (b *blockDAG) Representation() *dagstore.Representation {
	return b.storage.GetRepresentation()
}

func (b *blockDAG) Synchronize(ctx context.Context) error {
	return b.synchronizer.Sync(ctx, 0)
}
