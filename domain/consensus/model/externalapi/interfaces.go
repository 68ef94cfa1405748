package externalapi

import "context"

// BlockStorage is the on-disk raw-block store consumed by this layer; its
// persistence implementation is an external collaborator (out of scope).
type BlockStorage interface {
	Contains(hash BlockHash) (bool, error)
	Get(hash BlockHash) (*Block, error)
	FindBlockHashesWithDeployHash(deployHash BlockHash) ([]BlockHash, error)
}

// SignatureVerifier is the cryptography collaborator used for §4.E.1 step 3.
type SignatureVerifier interface {
	Verify(data, signature, publicKey []byte, algorithm SignatureAlgorithm) (bool, error)
}

// Hasher computes the canonical 32-byte content hash used for blockHash,
// bodyHash, and deploy hashes.
type Hasher interface {
	Hash(data []byte) BlockHash
}

// ExecutionEngineClient is the RPC-style execution-engine collaborator used
// by the "Transactions" full-block check.
type ExecutionEngineClient interface {
	Commit(ctx context.Context, preStateHash BlockHash, effects ExecutionEffects,
		protocolVersion uint32) (postStateHash BlockHash, bonds BondSet, err error)
}

// Node is a single peer as reported by node discovery.
type Node struct {
	ID      string
	Address string
}

// PeerDiscovery is the node-discovery collaborator consumed by the initial
// synchronizer to pick candidate peers.
type PeerDiscovery interface {
	RecentlyAlivePeers() ([]Node, error)
}

// DagSliceRequest is the wire shape of a DAG slice request: a closed
// rank window, both bounds inclusive per §6.
type DagSliceRequest struct {
	StartRank uint64
	EndRank   uint64
}

// SummaryStream is a cursor over a peer's streamed BlockSummary response.
// Next returns (nil, false, nil) once the stream is exhausted cleanly.
type SummaryStream interface {
	Next(ctx context.Context) (summary *BlockSummary, ok bool, err error)
	Close() error
}

// PeerClient is the per-peer RPC collaborator the initial synchronizer
// fans out to; production implementations speak the DagSlice gRPC contract
// described in SPEC_FULL.md.
type PeerClient interface {
	RequestDagSlice(ctx context.Context, peer Node, req DagSliceRequest) (SummaryStream, error)
}

// BlockDownloader schedules a summary's dependencies (body + justified
// ancestors) for download once the initial synchronizer has accepted it
// into a rank window; downstream validation (§4.E) is what actually
// enforces the dependency graph.
type BlockDownloader interface {
	ScheduleDownload(ctx context.Context, summary *BlockSummary) error
	// Wait blocks until every summary scheduled so far has finished
	// downloading (successfully or not).
	Wait(ctx context.Context) error
}

// ForkChoice computes the expected parent list for a block from the
// latest-messages implied by its justifications. Fork choice itself is a
// Non-goal beyond this; full-block validation only needs its result to
// check parent canonicality.
type ForkChoice interface {
	ComputeParents(justificationLatestMessages map[ValidatorID][]BlockHash) ([]BlockHash, error)
}

// EraLifecycle tells the tip representation which eras are "active"; the
// storage layer itself treats all eras as active (§4.C).
type EraLifecycle interface {
	IsActive(keyBlockHash BlockHash) bool
}
