package initialsync

import (
	"context"
	"testing"

	"github.com/pkg/errors"

	"github.com/casper-network/casper-node/domain/consensus/config"
	"github.com/casper-network/casper-node/domain/consensus/model/externalapi"
	"github.com/casper-network/casper-node/domain/consensus/ruleerrors"
)

type fakeDiscovery struct {
	nodes []externalapi.Node
}

func (f *fakeDiscovery) RecentlyAlivePeers() ([]externalapi.Node, error) {
	return f.nodes, nil
}

type fakeStream struct {
	summaries []*externalapi.BlockSummary
	i         int
}

func (s *fakeStream) Next(ctx context.Context) (*externalapi.BlockSummary, bool, error) {
	if s.i >= len(s.summaries) {
		return nil, false, nil
	}
	sum := s.summaries[s.i]
	s.i++
	return sum, true, nil
}

func (s *fakeStream) Close() error { return nil }

type fakePeerClient struct {
	perPeer map[string][]*externalapi.BlockSummary
}

func (f *fakePeerClient) RequestDagSlice(ctx context.Context, peer externalapi.Node, req externalapi.DagSliceRequest) (externalapi.SummaryStream, error) {
	return &fakeStream{summaries: f.perPeer[peer.ID]}, nil
}

type fakeDownloader struct {
	scheduled int
}

func (f *fakeDownloader) ScheduleDownload(ctx context.Context, summary *externalapi.BlockSummary) error {
	f.scheduled++
	return nil
}

func (f *fakeDownloader) Wait(ctx context.Context) error { return nil }

func summaryAt(hashByte byte, rank uint64) *externalapi.BlockSummary {
	var h externalapi.BlockHash
	h[0] = hashByte
	return &externalapi.BlockSummary{BlockHash: h, Header: &externalapi.BlockHeader{Rank: rank}}
}

// S8: two peers return identical well-formed slices over rank 0..10,
// minSuccessful=1: sync completes in one round.
func TestSyncCompletesInOneRound(t *testing.T) {
	peers := []externalapi.Node{{ID: "p1"}, {ID: "p2"}}
	slice := []*externalapi.BlockSummary{summaryAt(1, 0), summaryAt(2, 5)}

	client := &fakePeerClient{perPeer: map[string][]*externalapi.BlockSummary{
		"p1": slice,
		"p2": slice,
	}}
	downloader := &fakeDownloader{}

	cfg := config.Default()
	cfg.SyncStep = 10
	cfg.SyncMinSuccessful = 1

	s := New(cfg, &fakeDiscovery{nodes: peers}, client, downloader)
	if err := s.Sync(context.Background(), 0); err != nil {
		t.Fatalf("expected sync to complete, got %s", err)
	}
	if downloader.scheduled == 0 {
		t.Fatalf("expected summaries to be scheduled for download")
	}
}

// S9: a peer returns a summary with rank > endRank: SynchronizationError
// recorded against that peer, and sync still completes through the other
// peer, which is fully synced in the same round.
func TestSyncRetriesPastFailedPeer(t *testing.T) {
	peers := []externalapi.Node{{ID: "bad"}, {ID: "good"}}
	client := &fakePeerClient{perPeer: map[string][]*externalapi.BlockSummary{
		"bad":  {summaryAt(1, 50)},
		"good": {summaryAt(2, 0), summaryAt(3, 5)},
	}}
	downloader := &fakeDownloader{}

	cfg := config.Default()
	cfg.SyncStep = 10
	cfg.SyncMinSuccessful = 1
	cfg.SyncSkipFailedNodesInNextRounds = true

	s := New(cfg, &fakeDiscovery{nodes: peers}, client, downloader)
	if err := s.Sync(context.Background(), 0); err != nil {
		t.Fatalf("expected sync to complete despite one bad peer, got %s", err)
	}
}

// When every peer fails and no candidates remain, Sync raises a
// SynchronizationError rather than looping forever.
func TestSyncFailsWhenNoCandidatesRemain(t *testing.T) {
	peers := []externalapi.Node{{ID: "bad"}}
	client := &fakePeerClient{perPeer: map[string][]*externalapi.BlockSummary{
		"bad": {summaryAt(1, 50)},
	}}
	downloader := &fakeDownloader{}

	cfg := config.Default()
	cfg.SyncStep = 10
	cfg.SyncMinSuccessful = 1
	cfg.SyncSkipFailedNodesInNextRounds = true

	s := New(cfg, &fakeDiscovery{nodes: peers}, client, downloader)
	err := s.Sync(context.Background(), 0)
	var syncErr *ruleerrors.SynchronizationError
	if !errors.As(err, &syncErr) {
		t.Fatalf("expected a SynchronizationError, got %v", err)
	}
}
