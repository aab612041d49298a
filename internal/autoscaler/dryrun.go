package autoscaler

import (
	"context"

	"github.com/rs/zerolog/log"
)

// DryRunCluster passes reads through and logs mutations instead of issuing them.
type DryRunCluster struct {
	ClusterAPI
}

func (d DryRunCluster) CreateNode(_ context.Context, clusterID, zone string) (Node, error) {
	log.Info().Str("cluster", clusterID).Str("zone", zone).Msg("DryRun: skipping node creation")
	return Node{ID: "dry-run", AvailabilityZone: zone, State: NodeCreateInProgress}, nil
}

func (d DryRunCluster) DeleteNode(_ context.Context, clusterID, nodeID string) (string, error) {
	log.Info().Str("cluster", clusterID).Str("node", nodeID).Msg("DryRun: skipping node deletion")
	return nodeID, nil
}

// DryRunRules logs rule toggles instead of issuing them.
type DryRunRules struct{}

func (DryRunRules) EnableRule(_ context.Context, name string) error {
	log.Info().Str("rule", name).Msg("DryRun: skipping rule enable")
	return nil
}

func (DryRunRules) DisableRule(_ context.Context, name string) error {
	log.Info().Str("rule", name).Msg("DryRun: skipping rule disable")
	return nil
}
