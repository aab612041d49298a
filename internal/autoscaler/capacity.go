package autoscaler

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/rs/zerolog/log"
)

// CapacityManager reads the live HSM inventory and resizes the cluster one
// node at a time. It holds no node state between calls.
type CapacityManager struct {
	API       ClusterAPI
	ClusterID string
	Zones     []string
	Protected map[string]struct{}
	Min       int
	Max       int

	// pick returns a value in [0, n). Overridden in tests.
	pick func(n int) int
}

// NewCapacityManager builds a CapacityManager from the cluster section of cfg.
func NewCapacityManager(api ClusterAPI, cfg *Config) *CapacityManager {
	protected := make(map[string]struct{}, len(cfg.ProtectedNodeIDs))
	for _, id := range cfg.ProtectedNodeIDs {
		protected[id] = struct{}{}
	}
	return &CapacityManager{
		API:       api,
		ClusterID: cfg.ClusterID,
		Zones:     cfg.AvailabilityZones,
		Protected: protected,
		Min:       cfg.MinNodes,
		Max:       cfg.MaxNodes,
		pick:      rand.Intn,
	}
}

// CurrentNodes returns every node of the cluster, in any state.
func (m *CapacityManager) CurrentNodes(ctx context.Context) ([]Node, error) {
	nodes, err := m.API.DescribeNodes(ctx, m.ClusterID)
	if err != nil {
		return nil, dependencyError("describe cluster nodes", err)
	}
	return nodes, nil
}

// ActiveNodes returns the nodes currently in the ACTIVE state.
func (m *CapacityManager) ActiveNodes(ctx context.Context) ([]Node, error) {
	nodes, err := m.CurrentNodes(ctx)
	if err != nil {
		return nil, err
	}
	return activeOnly(nodes), nil
}

// RemovableNodeIDs returns the active nodes that are not protected.
func (m *CapacityManager) RemovableNodeIDs(ctx context.Context) ([]string, error) {
	active, err := m.ActiveNodes(ctx)
	if err != nil {
		return nil, err
	}
	return m.removable(active), nil
}

// AddNode creates one node unless the total node count, transitional nodes
// included, has reached Max. It returns the new node id, or "" when at the bound.
func (m *CapacityManager) AddNode(ctx context.Context) (string, error) {
	nodes, err := m.CurrentNodes(ctx)
	if err != nil {
		return "", err
	}
	return m.addNode(ctx, nodes)
}

// addNode is AddNode over an inventory the caller has already read.
func (m *CapacityManager) addNode(ctx context.Context, nodes []Node) (string, error) {
	if len(nodes) >= m.Max {
		log.Info().Int("nodes", len(nodes)).Int("max", m.Max).Msg("Max node count reached, will not add node")
		return "", nil
	}
	if len(m.Zones) == 0 {
		return "", fmt.Errorf("no availability zones configured for cluster %s", m.ClusterID)
	}

	zone := m.Zones[m.pick(len(m.Zones))]
	log.Info().Str("zone", zone).Int("nodes", len(nodes)).Msg("Adding one node")
	node, err := m.API.CreateNode(ctx, m.ClusterID, zone)
	if err != nil {
		return "", dependencyError("create node", err)
	}
	log.Info().Str("node", node.ID).Str("zone", zone).Msg("Node creation requested")
	return node.ID, nil
}

// RemoveNode deletes one random unprotected active node unless the active
// count is already at or below Min. It returns the removed id, or "" when at the bound.
func (m *CapacityManager) RemoveNode(ctx context.Context) (string, error) {
	nodes, err := m.CurrentNodes(ctx)
	if err != nil {
		return "", err
	}
	return m.removeNode(ctx, nodes)
}

func (m *CapacityManager) removeNode(ctx context.Context, nodes []Node) (string, error) {
	active := activeOnly(nodes)
	if len(active) <= m.Min {
		log.Info().Int("active", len(active)).Int("min", m.Min).Msg("Min node count reached, will not remove node")
		return "", nil
	}

	candidates := m.removable(active)
	if len(candidates) == 0 {
		return "", fmt.Errorf("%w: %d active nodes are all protected (min %d)",
			ErrRemovableSetExhausted, len(active), m.Min)
	}

	target := candidates[m.pick(len(candidates))]
	log.Info().Str("node", target).Int("active", len(active)).Msg("Removing one node")
	removed, err := m.API.DeleteNode(ctx, m.ClusterID, target)
	if err != nil {
		return "", dependencyError("delete node", err)
	}
	log.Info().Str("node", removed).Msg("Node deletion requested")
	return removed, nil
}

func (m *CapacityManager) removable(active []Node) []string {
	ids := make([]string, 0, len(active))
	for _, n := range active {
		if _, ok := m.Protected[n.ID]; ok {
			continue
		}
		ids = append(ids, n.ID)
	}
	return ids
}

func activeOnly(nodes []Node) []Node {
	active := make([]Node, 0, len(nodes))
	for _, n := range nodes {
		if n.State == NodeActive {
			active = append(active, n)
		}
	}
	return active
}
