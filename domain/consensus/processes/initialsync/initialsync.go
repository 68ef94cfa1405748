// Package initialsync implements §4.F: pulling DAG slices (header summaries
// only) from peers in rank windows, scheduling each accepted summary for
// download, and looping rounds until enough peers report themselves fully
// synced. Every candidate peer is queried in parallel each round, rather
// than against a single selected peer, since completion depends on how
// many peers agree, not on any one of them.
package initialsync

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/casper-network/casper-node/domain/consensus/config"
	"github.com/casper-network/casper-node/domain/consensus/model/externalapi"
	"github.com/casper-network/casper-node/domain/consensus/ruleerrors"
	"github.com/casper-network/casper-node/infrastructure/logger"
)

var log = logger.RegisterSubSystem("ISYN")

// Synchronizer drives §4.F's round loop against a set of peer collaborators.
type Synchronizer struct {
	cfg        *config.Config
	discovery  externalapi.PeerDiscovery
	peerClient externalapi.PeerClient
	downloader externalapi.BlockDownloader

	memoizedCandidates []externalapi.Node
}

// New constructs a Synchronizer.
func New(cfg *config.Config, discovery externalapi.PeerDiscovery, peerClient externalapi.PeerClient,
	downloader externalapi.BlockDownloader) *Synchronizer {
	return &Synchronizer{
		cfg:        cfg,
		discovery:  discovery,
		peerClient: peerClient,
		downloader: downloader,
	}
}

// peerOutcome is one peer's contribution to a round.
type peerOutcome struct {
	peer         externalapi.Node
	maxRankSeen  uint64
	sawAnyRank   bool
	fullySynced  bool
	err          error
}

// Sync runs §4.F's round loop starting at rankStartFrom, until
// fullySyncedPeers reaches cfg.SyncMinSuccessful, and returns once every
// summary scheduled along the way has finished downloading.
func (s *Synchronizer) Sync(ctx context.Context, rankStartFrom uint64) error {
	r := rankStartFrom
	excluded := make(map[string]struct{})

	for {
		candidates, err := s.candidatesForRound(excluded)
		if err != nil {
			return err
		}
		if len(candidates) == 0 {
			return ruleerrors.NewSynchronizationError("", "no candidate peers remain before minSuccessful was reached")
		}

		step := s.cfg.SyncStep
		windowEnd := r + step

		outcomes := s.runRound(ctx, candidates, r, windowEnd)

		fullySyncedPeers := 0
		var maxRankAcrossSuccessful uint64
		sawSuccessfulPeer := false
		for _, o := range outcomes {
			if o.err != nil {
				log.Warnf("sync round [%d,%d]: peer %s failed: %s", r, windowEnd, o.peer.ID, o.err)
				if s.cfg.SyncSkipFailedNodesInNextRounds {
					excluded[o.peer.ID] = struct{}{}
				}
				continue
			}
			sawSuccessfulPeer = true
			if o.fullySynced {
				fullySyncedPeers++
			}
			if o.sawAnyRank && o.maxRankSeen > maxRankAcrossSuccessful {
				maxRankAcrossSuccessful = o.maxRankSeen
			}
		}

		if fullySyncedPeers >= s.cfg.SyncMinSuccessful {
			return s.downloader.Wait(ctx)
		}

		if !sawSuccessfulPeer {
			return ruleerrors.NewSynchronizationError("", "no peer completed this round successfully")
		}

		if maxRankAcrossSuccessful <= r {
			r = windowEnd
		} else {
			r = maxRankAcrossSuccessful
		}
	}
}

func (s *Synchronizer) candidatesForRound(excluded map[string]struct{}) ([]externalapi.Node, error) {
	if s.cfg.SyncMemoizeNodes && s.memoizedCandidates != nil {
		return filterExcluded(s.memoizedCandidates, excluded), nil
	}
	alive, err := s.discovery.RecentlyAlivePeers()
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if s.cfg.SyncMemoizeNodes {
		s.memoizedCandidates = alive
	}
	return filterExcluded(alive, excluded), nil
}

func filterExcluded(nodes []externalapi.Node, excluded map[string]struct{}) []externalapi.Node {
	if len(excluded) == 0 {
		return nodes
	}
	out := make([]externalapi.Node, 0, len(nodes))
	for _, n := range nodes {
		if _, skip := excluded[n.ID]; skip {
			continue
		}
		out = append(out, n)
	}
	return out
}

// runRound fans out to every candidate peer concurrently and waits for all
// of them, matching §5's "fans out across peers concurrently" model.
func (s *Synchronizer) runRound(ctx context.Context, candidates []externalapi.Node, startRank, endRank uint64) []peerOutcome {
	outcomes := make([]peerOutcome, len(candidates))
	var wg sync.WaitGroup
	wg.Add(len(candidates))
	for i, peer := range candidates {
		i, peer := i, peer
		go func() {
			defer wg.Done()
			outcomes[i] = s.syncFromPeer(ctx, peer, startRank, endRank)
		}()
	}
	wg.Wait()
	return outcomes
}

func (s *Synchronizer) syncFromPeer(ctx context.Context, peer externalapi.Node, startRank, endRank uint64) peerOutcome {
	outcome := peerOutcome{peer: peer}

	stream, err := s.peerClient.RequestDagSlice(ctx, peer, externalapi.DagSliceRequest{StartRank: startRank, EndRank: endRank})
	if err != nil {
		outcome.err = errors.WithStack(err)
		return outcome
	}
	defer stream.Close()

	seenInWindow := make(map[externalapi.BlockHash]struct{})
	outcome.fullySynced = true

	for {
		summary, ok, err := stream.Next(ctx)
		if err != nil {
			outcome.err = errors.WithStack(err)
			return outcome
		}
		if !ok {
			break
		}

		rank := summary.Rank()
		if rank < startRank || rank > endRank {
			outcome.err = ruleerrors.NewSynchronizationError(peer.ID,
				"summary rank outside requested window")
			return outcome
		}
		if _, dup := seenInWindow[summary.BlockHash]; dup {
			outcome.err = ruleerrors.NewSynchronizationError(peer.ID,
				"duplicate summary hash within window")
			return outcome
		}
		seenInWindow[summary.BlockHash] = struct{}{}

		if err := s.downloader.ScheduleDownload(ctx, summary); err != nil {
			outcome.err = errors.WithStack(err)
			return outcome
		}

		if !outcome.sawAnyRank || rank > outcome.maxRankSeen {
			outcome.maxRankSeen = rank
			outcome.sawAnyRank = true
		}
		if rank >= endRank {
			outcome.fullySynced = false
		}
	}

	return outcome
}
