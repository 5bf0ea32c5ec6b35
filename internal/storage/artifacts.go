package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/corpusgraph/backend/internal/util"
	"github.com/corpusgraph/backend/pkg/common"
	"github.com/corpusgraph/backend/pkg/logger"

	"github.com/go-playground/validator"
	"github.com/kaptinlin/jsonrepair"
)

var validate = validator.New()

// MappingMetadata summarizes an entity mapping artifact for human readers.
type MappingMetadata struct {
	TotalEntities int    `json:"total_entities"`
	UniqueIDs     int    `json:"unique_ids"`
	Collisions    int    `json:"collisions"`
	InvalidNames  int    `json:"invalid_names"`
	GeneratedAt   string `json:"generated_at"`
}

// EntityMappingFile is the persisted entity mapping artifact. IDToEntity
// carries the full record per assigned ID; NameToID maps every observed name
// variation (canonical or alias) to its ID.
type EntityMappingFile struct {
	Metadata   MappingMetadata                `json:"metadata"`
	IDToEntity map[string]common.EntityRecord `json:"id_to_entity"`
	NameToID   map[string]string              `json:"name_to_id"`
}

// CollisionMetadata summarizes a collision report artifact.
type CollisionMetadata struct {
	TotalCollisions int     `json:"total_collisions"`
	CollisionRate   float64 `json:"collision_rate"`
	GeneratedAt     string  `json:"generated_at"`
}

// CollisionReportFile is the persisted collision report artifact, the input
// for manual adjudication of slug collisions.
type CollisionReportFile struct {
	Metadata        CollisionMetadata        `json:"metadata"`
	Collisions      []common.CollisionRecord `json:"collisions"`
	Recommendations []CollisionAction        `json:"recommendations"`
}

// CollisionAction is the adjudication view of one collision: the competing
// names and the heuristic action, without the bookkeeping fields.
type CollisionAction struct {
	BaseSlug string   `json:"base_slug"`
	Entities []string `json:"entities"`
	Action   string   `json:"action"`
	Reason   string   `json:"reason"`
}

// SaveJSON writes v to path atomically: the payload goes to a temp file in
// the same directory and is renamed into place, and any existing file is
// kept as a timestamped backup first. A crashed run can therefore never
// leave a half-written artifact behind.
func SaveJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal artifact %s: %w", path, err)
	}
	data = append(data, '\n')

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create artifact directory: %w", err)
	}

	if _, statErr := os.Stat(path); statErr == nil {
		backup := fmt.Sprintf("%s.bak-%s", path, util.BackupSuffix(time.Now()))
		if err := copyFile(path, backup); err != nil {
			return fmt.Errorf("failed to back up %s: %w", path, err)
		}
		logger.Debug("[Storage] Backup written", "path", backup)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp artifact: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write temp artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp artifact: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace artifact %s: %w", path, err)
	}

	logger.Debug("[Storage] Artifact saved", "path", path, "bytes", len(data))
	return nil
}

// LoadJSON reads path and unmarshals it into out, with a repair pass for
// artifacts that were hand-edited into slightly invalid JSON.
func LoadJSON(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read artifact %s: %w", path, err)
	}

	if err := json.Unmarshal(data, out); err == nil {
		return nil
	}

	repaired, repairErr := jsonrepair.JSONRepair(string(data))
	if repairErr != nil {
		return fmt.Errorf("artifact %s is not valid JSON and could not be repaired: %w", path, repairErr)
	}
	if err := json.Unmarshal([]byte(repaired), out); err != nil {
		return fmt.Errorf("artifact %s is not valid JSON after repair: %w", path, err)
	}

	logger.Warn("[Storage] Artifact required JSON repair on load", "path", path)
	return nil
}

func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0o644)
}

// NewEntityMappingFile builds the mapping artifact from a resolved
// population and the registry's observed-name map.
func NewEntityMappingFile(
	entities []common.EntityRecord,
	nameToID map[string]string,
	collisions int,
	invalidNames int,
) *EntityMappingFile {
	idToEntity := make(map[string]common.EntityRecord, len(entities))
	for _, e := range entities {
		idToEntity[e.EntityID] = e
	}

	return &EntityMappingFile{
		Metadata: MappingMetadata{
			TotalEntities: len(entities),
			UniqueIDs:     len(idToEntity),
			Collisions:    collisions,
			InvalidNames:  invalidNames,
			GeneratedAt:   time.Now().UTC().Format(time.RFC3339),
		},
		IDToEntity: idToEntity,
		NameToID:   nameToID,
	}
}

// NewCollisionReportFile builds the collision report artifact. The rate is
// collisions per assigned ID; zero IDs yields a zero rate.
func NewCollisionReportFile(collisions []common.CollisionRecord, totalIDs int) *CollisionReportFile {
	rate := 0.0
	if totalIDs > 0 {
		rate = float64(len(collisions)) / float64(totalIDs)
	}
	recommendations := make([]CollisionAction, 0, len(collisions))
	for _, c := range collisions {
		recommendations = append(recommendations, CollisionAction{
			BaseSlug: c.BaseSlug,
			Entities: c.Names,
			Action:   c.Recommendation,
			Reason:   c.Reason,
		})
	}

	return &CollisionReportFile{
		Metadata: CollisionMetadata{
			TotalCollisions: len(collisions),
			CollisionRate:   rate,
			GeneratedAt:     time.Now().UTC().Format(time.RFC3339),
		},
		Collisions:      collisions,
		Recommendations: recommendations,
	}
}

// LoadEntityMapping loads and validates an entity mapping artifact.
func LoadEntityMapping(path string) (*EntityMappingFile, error) {
	var mapping EntityMappingFile
	if err := LoadJSON(path, &mapping); err != nil {
		return nil, err
	}
	for id, entity := range mapping.IDToEntity {
		if err := validate.Struct(entity); err != nil {
			return nil, fmt.Errorf("entity %s in %s failed validation: %w", id, path, err)
		}
	}
	return &mapping, nil
}

// LoadNetwork loads a network artifact, accepting both the current list
// shape and the legacy dict-of-dicts node collection.
func LoadNetwork(path string) (*common.NetworkGraph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read network artifact %s: %w", path, err)
	}

	network, err := decodeNetwork(data)
	if err != nil {
		repaired, repairErr := jsonrepair.JSONRepair(string(data))
		if repairErr != nil {
			return nil, fmt.Errorf("network artifact %s could not be decoded: %w", path, err)
		}
		network, err = decodeNetwork([]byte(repaired))
		if err != nil {
			return nil, fmt.Errorf("network artifact %s could not be decoded after repair: %w", path, err)
		}
		logger.Warn("[Storage] Network artifact required JSON repair on load", "path", path)
	}

	for i := range network.Nodes {
		if err := validate.Struct(network.Nodes[i]); err != nil {
			return nil, fmt.Errorf("node %d in %s failed validation: %w", i, path, err)
		}
	}
	for i := range network.Edges {
		if err := validate.Struct(network.Edges[i]); err != nil {
			return nil, fmt.Errorf("edge %d in %s failed validation: %w", i, path, err)
		}
	}

	return network, nil
}

// decodeNetwork probes the node collection shape before committing to a
// decode path. Legacy exports stored nodes as an object keyed by ID; current
// files store a list.
func decodeNetwork(data []byte) (*common.NetworkGraph, error) {
	var probe struct {
		Nodes json.RawMessage `json:"nodes"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, err
	}

	if len(probe.Nodes) > 0 && probe.Nodes[0] == '{' {
		return decodeLegacyNetwork(data)
	}

	var network common.NetworkGraph
	if err := json.Unmarshal(data, &network); err != nil {
		return nil, err
	}
	return &network, nil
}

// decodeLegacyNetwork handles the dict-of-dicts node shape:
//
//	{"nodes": {"Some Name": {"name": "Some Name"}}, "edges": [...]}
//
// Node IDs come from the object keys; a missing name falls back to the key.
func decodeLegacyNetwork(data []byte) (*common.NetworkGraph, error) {
	var legacy struct {
		Nodes map[string]struct {
			Name string `json:"name"`
		} `json:"nodes"`
		Edges         []common.NetworkEdge  `json:"edges"`
		MigrationInfo *common.MigrationInfo `json:"migration_info"`
	}
	if err := json.Unmarshal(data, &legacy); err != nil {
		return nil, err
	}

	nodes := make([]common.NetworkNode, 0, len(legacy.Nodes))
	for id, node := range legacy.Nodes {
		name := node.Name
		if name == "" {
			name = id
		}
		nodes = append(nodes, common.NetworkNode{ID: id, Name: name})
	}
	// Map iteration order is random; keep the adapted shape deterministic.
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID < nodes[j].ID })

	logger.Debug("[Storage] Legacy network shape adapted", "nodes", len(nodes))
	return &common.NetworkGraph{
		Nodes:         nodes,
		Edges:         legacy.Edges,
		MigrationInfo: legacy.MigrationInfo,
	}, nil
}

// SaveNetwork persists a network artifact with the standard atomic write.
func SaveNetwork(path string, network *common.NetworkGraph) error {
	return SaveJSON(path, network)
}
