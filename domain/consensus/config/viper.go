package config

import (
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// LoadFromViper reads a populated *viper.Viper (chain configuration
// loading itself is an out-of-scope external collaborator; this just
// unmarshals the tunables this layer cares about) into a Config. It is
// grounded on the viper-based loader pattern used for exactly this shape
// of config struct in the rest of the example pack.
func LoadFromViper(v *viper.Viper) (*Config, error) {
	c := Default()

	if v.IsSet("chainName") {
		c.ChainName = v.GetString("chainName")
	}
	if v.IsSet("drift") {
		c.Drift = v.GetDuration("drift")
	}
	if v.IsSet("minTTL") {
		c.MinTTL = v.GetDuration("minTTL")
	}
	if v.IsSet("maxTTL") {
		c.MaxTTL = v.GetDuration("maxTTL")
	}
	if v.IsSet("maxDeployDependencies") {
		c.MaxDeployDependencies = v.GetInt("maxDeployDependencies")
	}
	if v.IsSet("syncStep") {
		c.SyncStep = uint64(v.GetInt64("syncStep"))
	}
	if v.IsSet("syncMinSuccessful") {
		c.SyncMinSuccessful = v.GetInt("syncMinSuccessful")
	}
	if v.IsSet("syncMemoizeNodes") {
		c.SyncMemoizeNodes = v.GetBool("syncMemoizeNodes")
	}
	if v.IsSet("syncSkipFailedNodesInNextRounds") {
		c.SyncSkipFailedNodesInNextRounds = v.GetBool("syncSkipFailedNodesInNextRounds")
	}

	if v.IsSet("protocolVersions") {
		var activations []struct {
			ActivationRank uint64
			Version        uint32
		}
		if err := v.UnmarshalKey("protocolVersions", &activations); err != nil {
			return nil, errors.Wrap(err, "failed to unmarshal protocolVersions")
		}
		c.ProtocolVersions = make([]ProtocolVersionActivation, len(activations))
		for i, a := range activations {
			c.ProtocolVersions[i] = ProtocolVersionActivation{ActivationRank: a.ActivationRank, Version: a.Version}
		}
	}

	if c.MinTTL <= 0 {
		return nil, errors.New("minTTL must be positive")
	}
	if c.MaxTTL < c.MinTTL {
		return nil, errors.New("maxTTL must be >= minTTL")
	}
	if c.Drift < 0 {
		return nil, errors.New("drift must not be negative")
	}

	return c, nil
}
