// Package config carries the validation and synchronization tunables named
// throughout the block DAG layer: drift tolerance, deploy TTL bounds, the
// protocol-version activation schedule, and the initial synchronizer's
// fan-out parameters. Loading this from environment/CLI sources is chain
// configuration loading, an out-of-scope external collaborator; this
// package only defines the struct and an optional typed loader for callers
// who already have a viper.Viper populated by that collaborator.
package config

import "time"

// Config is the plain struct every validation and sync component is
// constructed with. Nothing in this package reaches out to the filesystem,
// environment, or flags on its own.
type Config struct {
	// ChainName is the expected chainName every summary/deploy is checked
	// against (§4.E.1 step 5, §4.E.2 deploy header check).
	ChainName string

	// Drift is the forward-clock tolerance for a block's timestamp
	// (§4.E.2 "Timestamp"): accepted up to now+Drift.
	Drift time.Duration

	// MinTTL and MaxTTL bound a deploy's declared time-to-live
	// (§4.E.2 "Deploy headers").
	MinTTL time.Duration
	MaxTTL time.Duration

	// MaxDeployDependencies bounds |deploy.dependencies| (§4.E.2).
	MaxDeployDependencies int

	// ProtocolVersions is the sorted activation schedule backing the
	// versionAt(rank) oracle (§4.E.1 step 2).
	ProtocolVersions []ProtocolVersionActivation

	// SyncStep is the rank-window width each initial-sync round requests
	// from a peer (§4.F).
	SyncStep uint64

	// SyncMinSuccessful is the minimum number of fully-synced peers
	// required to complete initial sync (§4.F step 4).
	SyncMinSuccessful int

	// SyncMemoizeNodes, when true, fixes the candidate peer list at the
	// first round rather than re-selecting alive peers every round
	// (§4.F step 1).
	SyncMemoizeNodes bool

	// SyncSkipFailedNodesInNextRounds, when true, excludes a peer that
	// raised an error from later rounds rather than retrying it
	// (§4.F step 5).
	SyncSkipFailedNodesInNextRounds bool
}

// ProtocolVersionActivation is one entry of the version oracle: the
// protocol version active from ActivationRank onward until the next
// entry's ActivationRank.
type ProtocolVersionActivation struct {
	ActivationRank uint64
	Version        uint32
}

// VersionAt resolves the versionAt(rank) oracle named in §4.E.1 step 2: the
// version of the last activation entry whose ActivationRank is <= rank.
// ProtocolVersions must be sorted ascending by ActivationRank; VersionAt
// does not sort defensively since the schedule is fixed chain
// configuration, not user input.
func (c *Config) VersionAt(rank uint64) (uint32, bool) {
	var version uint32
	found := false
	for _, activation := range c.ProtocolVersions {
		if activation.ActivationRank > rank {
			break
		}
		version = activation.Version
		found = true
	}
	return version, found
}

// Default returns a Config with the literal values named in §4.E.2 and
// §4.F, for tests and example wiring. Production chain configuration
// overrides every field from its own source.
func Default() *Config {
	return &Config{
		Drift:             15 * time.Second,
		MinTTL:            1 * time.Hour,
		MaxTTL:            24 * time.Hour,
		MaxDeployDependencies: 10,
		SyncStep:          100,
		SyncMinSuccessful: 1,
	}
}
