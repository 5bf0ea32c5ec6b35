package graph

import (
	"fmt"
	"time"

	"github.com/corpusgraph/backend/pkg/common"
	"github.com/corpusgraph/backend/pkg/logger"
)

// NetworkSchemaVersion is stamped into migration_info of migrated artifacts.
const NetworkSchemaVersion = 2

// MigrationStats is the audit record of a migration run. It is produced on
// every run, success or failure, so dropped data is always visible.
type MigrationStats struct {
	NodesIn                 int `json:"nodes_in"`
	NodesMigrated           int `json:"nodes_migrated"`
	NodesDeduped            int `json:"nodes_deduped"`
	NodesSkipped            int `json:"nodes_skipped"`
	InvalidEntitiesFiltered int `json:"invalid_entities_filtered"`

	EdgesIn       int `json:"edges_in"`
	EdgesMigrated int `json:"edges_migrated"`
	EdgesMerged   int `json:"edges_merged"`
	EdgesSkipped  int `json:"edges_skipped"`
	OrphanedEdges int `json:"orphaned_edges"`
}

// NodeSet is the finalized set of migrated node IDs. Edge migration requires
// one as input, which makes the nodes-before-edges ordering a property of
// the function signatures instead of an implicit convention.
type NodeSet struct {
	ids map[string]bool
}

// Contains reports whether id survived node migration.
func (s *NodeSet) Contains(id string) bool {
	return s != nil && s.ids[id]
}

// Len returns the number of finalized node IDs.
func (s *NodeSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.ids)
}

// endpointResolver resolves pre-migration identifiers (raw names or already
// migrated slugs) to entity IDs. An ID that appears as a mapping target maps
// to itself, which is what makes re-migrating an already ID-keyed graph a
// no-op.
type endpointResolver struct {
	nameToID map[string]string
	targets  map[string]bool
	invalid  map[string]bool
}

func newEndpointResolver(nameToID map[string]string, invalid map[string]bool) *endpointResolver {
	targets := make(map[string]bool, len(nameToID))
	for _, id := range nameToID {
		targets[id] = true
	}
	return &endpointResolver{nameToID: nameToID, targets: targets, invalid: invalid}
}

func (r *endpointResolver) resolve(id string) (string, string) {
	if r.invalid[id] {
		return "", "invalid_entity"
	}
	if mapped, ok := r.nameToID[id]; ok {
		return mapped, ""
	}
	if r.targets[id] {
		return id, ""
	}
	return "", "no_mapping"
}

// MigrateNodes rewrites name-keyed nodes to ID-keyed nodes. Nodes in the
// invalid set are filtered; nodes without a mapping are skipped with a
// logged reason; nodes whose aliases resolve to the same entity ID collapse
// into the first occurrence. Returns the migrated nodes and the finalized
// NodeSet that edge migration requires.
func (g *GraphClient) MigrateNodes(
	nodes []common.NetworkNode,
	nameToID map[string]string,
	invalidEntities map[string]bool,
	stats *MigrationStats,
) ([]common.NetworkNode, *NodeSet) {
	resolver := newEndpointResolver(nameToID, invalidEntities)
	stats.NodesIn = len(nodes)

	migrated := make([]common.NetworkNode, 0, len(nodes))
	seen := make(map[string]bool, len(nodes))

	for _, node := range nodes {
		id, dropReason := resolver.resolve(node.ID)
		if dropReason == "invalid_entity" {
			stats.InvalidEntitiesFiltered++
			stats.NodesSkipped++
			logger.Debug("[Migrate] Node filtered as invalid entity", "id", node.ID)
			continue
		}
		if dropReason != "" {
			stats.NodesSkipped++
			logger.Debug("[Migrate] Node skipped", "id", node.ID, "reason", dropReason)
			continue
		}
		if seen[id] {
			// A later alias of an entity already in the graph.
			stats.NodesDeduped++
			continue
		}
		seen[id] = true

		name := node.Name
		if name == "" {
			name = node.ID
		}
		migrated = append(migrated, common.NetworkNode{ID: id, Name: name})
	}

	stats.NodesMigrated = len(migrated)
	return migrated, &NodeSet{ids: seen}
}

// MigrateEdges rewrites edge endpoints to entity IDs against a finalized
// NodeSet. An edge is dropped and counted as orphaned when either endpoint
// cannot be resolved or does not survive node migration. Parallel edges
// produced by alias collapse are merged: weights sum, contexts union.
// Self-loops created by collapsing both endpoints into one entity are
// dropped.
func (g *GraphClient) MigrateEdges(
	edges []common.NetworkEdge,
	nameToID map[string]string,
	invalidEntities map[string]bool,
	nodeSet *NodeSet,
	stats *MigrationStats,
) []common.NetworkEdge {
	resolver := newEndpointResolver(nameToID, invalidEntities)
	stats.EdgesIn = len(edges)

	merged := make(map[string]*common.NetworkEdge)
	order := make([]string, 0, len(edges))

	for _, edge := range edges {
		source, sourceDrop := resolver.resolve(edge.Source)
		target, targetDrop := resolver.resolve(edge.Target)
		if sourceDrop != "" || targetDrop != "" {
			stats.OrphanedEdges++
			logger.Debug("[Migrate] Edge orphaned by unresolvable endpoint",
				"source", edge.Source, "target", edge.Target)
			continue
		}
		if !nodeSet.Contains(source) || !nodeSet.Contains(target) {
			// Endpoint mapped, but its node was dropped during the
			// node phase.
			stats.OrphanedEdges++
			logger.Debug("[Migrate] Edge orphaned by missing node",
				"source", source, "target", target)
			continue
		}
		if source == target {
			stats.EdgesSkipped++
			logger.Debug("[Migrate] Self-loop dropped after alias collapse", "id", source)
			continue
		}

		key := undirectedKey(source, target)
		if existing, ok := merged[key]; ok {
			existing.Weight += edge.Weight
			existing.Contexts = unionStrings(existing.Contexts, edge.Contexts)
			stats.EdgesMerged++
			continue
		}
		merged[key] = &common.NetworkEdge{
			Source:   source,
			Target:   target,
			Weight:   edge.Weight,
			Contexts: unionStrings(nil, edge.Contexts),
		}
		order = append(order, key)
	}

	result := make([]common.NetworkEdge, 0, len(order))
	for _, key := range order {
		result = append(result, *merged[key])
	}
	stats.EdgesMigrated = len(result)
	return result
}

func undirectedKey(a, b string) string {
	if a < b {
		return a + "|" + b
	}
	return b + "|" + a
}

// MigrateNetwork runs the full two-phase migration and validates the result
// before returning it. On any structural violation the migrated graph is
// discarded and a ValidationError carrying the full violation list is
// returned alongside the statistics; nothing is ever partially applied.
func (g *GraphClient) MigrateNetwork(
	network *common.NetworkGraph,
	nameToID map[string]string,
	invalidEntities map[string]bool,
) (*common.NetworkGraph, *MigrationStats, error) {
	stats := &MigrationStats{}

	nodes, nodeSet := g.MigrateNodes(network.Nodes, nameToID, invalidEntities, stats)
	edges := g.MigrateEdges(network.Edges, nameToID, invalidEntities, nodeSet, stats)

	migrated := &common.NetworkGraph{
		Nodes: nodes,
		Edges: edges,
		MigrationInfo: &common.MigrationInfo{
			MigratedAt:    time.Now().UTC().Format(time.RFC3339),
			SchemaVersion: NetworkSchemaVersion,
			NodesMigrated: stats.NodesMigrated,
			EdgesMigrated: stats.EdgesMigrated,
			NodesSkipped:  stats.NodesSkipped + stats.NodesDeduped,
			EdgesSkipped:  stats.EdgesSkipped,
			OrphanedEdges: stats.OrphanedEdges,
		},
	}

	if violations := ValidateMigration(network, migrated); len(violations) > 0 {
		logger.Error("[Migrate] Validation failed, result discarded",
			"violations", len(violations))
		return nil, stats, &ValidationError{Violations: violations}
	}

	logger.Info("[Migrate] Network migrated",
		"nodes", stats.NodesMigrated, "edges", stats.EdgesMigrated,
		"nodes_skipped", stats.NodesSkipped, "orphaned_edges", stats.OrphanedEdges,
	)
	return migrated, stats, nil
}

// ValidateMigration checks the structural invariants of a migrated graph
// against its input: counts may only shrink, every node ID matches the slug
// pattern and is unique, and no edge references a node outside the migrated
// set. It returns the full list of violations rather than stopping at the
// first, so a failed run is diagnosable in one pass.
func ValidateMigration(before, after *common.NetworkGraph) []string {
	var violations []string

	if len(after.Nodes) > len(before.Nodes) {
		violations = append(violations, fmt.Sprintf(
			"node count grew from %d to %d", len(before.Nodes), len(after.Nodes)))
	}
	if len(after.Edges) > len(before.Edges) {
		violations = append(violations, fmt.Sprintf(
			"edge count grew from %d to %d", len(before.Edges), len(after.Edges)))
	}

	ids := make(map[string]bool, len(after.Nodes))
	for _, node := range after.Nodes {
		if !slugPattern.MatchString(node.ID) {
			violations = append(violations, fmt.Sprintf("node id %q is not a valid slug", node.ID))
		}
		if ids[node.ID] {
			violations = append(violations, fmt.Sprintf("duplicate node id %q", node.ID))
		}
		ids[node.ID] = true
	}

	for _, edge := range after.Edges {
		if !ids[edge.Source] {
			violations = append(violations, fmt.Sprintf(
				"edge %s -> %s references missing source node", edge.Source, edge.Target))
		}
		if !ids[edge.Target] {
			violations = append(violations, fmt.Sprintf(
				"edge %s -> %s references missing target node", edge.Source, edge.Target))
		}
	}

	return violations
}
