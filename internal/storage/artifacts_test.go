package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/corpusgraph/backend/pkg/common"
)

func TestSaveJSON_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "entity_mapping.json")

	mapping := NewEntityMappingFile(
		[]common.EntityRecord{
			{RawName: "Jeffrey Epstein", CanonicalName: "Epstein, Jeffrey", EntityID: "epstein_jeffrey"},
		},
		map[string]string{"Jeffrey Epstein": "epstein_jeffrey"},
		0, 0,
	)
	if err := SaveJSON(path, mapping); err != nil {
		t.Fatalf("SaveJSON() error = %v", err)
	}

	loaded, err := LoadEntityMapping(path)
	if err != nil {
		t.Fatalf("LoadEntityMapping() error = %v", err)
	}
	if loaded.Metadata.TotalEntities != 1 {
		t.Fatalf("total entities = %d, want 1", loaded.Metadata.TotalEntities)
	}
	entity, ok := loaded.IDToEntity["epstein_jeffrey"]
	if !ok {
		t.Fatalf("id_to_entity missing key, got %v", loaded.IDToEntity)
	}
	if entity.CanonicalName != "Epstein, Jeffrey" {
		t.Fatalf("canonical name = %q, want %q", entity.CanonicalName, "Epstein, Jeffrey")
	}
	if loaded.NameToID["Jeffrey Epstein"] != "epstein_jeffrey" {
		t.Fatalf("name_to_id = %v", loaded.NameToID)
	}
}

func TestSaveJSON_BackupOnOverwrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "network.json")

	if err := SaveJSON(path, map[string]string{"version": "first"}); err != nil {
		t.Fatalf("first SaveJSON() error = %v", err)
	}
	if err := SaveJSON(path, map[string]string{"version": "second"}); err != nil {
		t.Fatalf("second SaveJSON() error = %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	backups := 0
	for _, e := range entries {
		if strings.Contains(e.Name(), ".bak-") {
			backups++
			data, err := os.ReadFile(filepath.Join(dir, e.Name()))
			if err != nil {
				t.Fatalf("read backup: %v", err)
			}
			if !strings.Contains(string(data), "first") {
				t.Fatalf("backup holds %q, want the pre-overwrite content", string(data))
			}
		}
	}
	if backups != 1 {
		t.Fatalf("backups = %d, want exactly 1", backups)
	}

	var current map[string]string
	if err := LoadJSON(path, &current); err != nil {
		t.Fatalf("LoadJSON() error = %v", err)
	}
	if current["version"] != "second" {
		t.Fatalf("current content = %v, want the new write", current)
	}
}

func TestLoadJSON_RepairsMalformedInput(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "edited.json")

	// Hand-edited artifact with a trailing comma.
	if err := os.WriteFile(path, []byte(`{"name": "Epstein, Jeffrey",}`), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	var out map[string]string
	if err := LoadJSON(path, &out); err != nil {
		t.Fatalf("LoadJSON() error = %v", err)
	}
	if out["name"] != "Epstein, Jeffrey" {
		t.Fatalf("loaded = %v, want repaired content", out)
	}
}

func TestLoadNetwork_ListShape(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "network.json")

	raw := `{
		"nodes": [
			{"id": "Jeffrey Epstein", "name": "Jeffrey Epstein"},
			{"id": "Ghislaine Maxwell", "name": "Ghislaine Maxwell"}
		],
		"edges": [
			{"source": "Jeffrey Epstein", "target": "Ghislaine Maxwell", "weight": 3}
		]
	}`
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	network, err := LoadNetwork(path)
	if err != nil {
		t.Fatalf("LoadNetwork() error = %v", err)
	}
	if len(network.Nodes) != 2 || len(network.Edges) != 1 {
		t.Fatalf("network = %d nodes, %d edges; want 2 and 1", len(network.Nodes), len(network.Edges))
	}
	if network.Edges[0].Weight != 3 {
		t.Fatalf("edge weight = %d, want 3", network.Edges[0].Weight)
	}
}

func TestLoadNetwork_LegacyDictShape(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "legacy.json")

	raw := `{
		"nodes": {
			"Jeffrey Epstein": {"name": "Jeffrey Epstein"},
			"Ghislaine Maxwell": {}
		},
		"edges": [
			{"source": "Jeffrey Epstein", "target": "Ghislaine Maxwell", "weight": 2}
		]
	}`
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	network, err := LoadNetwork(path)
	if err != nil {
		t.Fatalf("LoadNetwork() error = %v", err)
	}
	if len(network.Nodes) != 2 {
		t.Fatalf("nodes = %d, want 2", len(network.Nodes))
	}
	// Keys become IDs; a node without a name falls back to its key.
	byID := make(map[string]string)
	for _, n := range network.Nodes {
		byID[n.ID] = n.Name
	}
	if byID["Ghislaine Maxwell"] != "Ghislaine Maxwell" {
		t.Fatalf("legacy node name fallback = %q, want the key", byID["Ghislaine Maxwell"])
	}
	if len(network.Edges) != 1 {
		t.Fatalf("edges = %d, want 1", len(network.Edges))
	}
}

func TestLoadNetwork_SaveLoadMigrationInfo(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "migrated.json")

	network := &common.NetworkGraph{
		Nodes: []common.NetworkNode{{ID: "epstein_jeffrey", Name: "Epstein, Jeffrey"}},
		Edges: []common.NetworkEdge{},
		MigrationInfo: &common.MigrationInfo{
			MigratedAt:    "2026-01-01T00:00:00Z",
			SchemaVersion: 2,
			NodesMigrated: 1,
		},
	}
	if err := SaveNetwork(path, network); err != nil {
		t.Fatalf("SaveNetwork() error = %v", err)
	}

	loaded, err := LoadNetwork(path)
	if err != nil {
		t.Fatalf("LoadNetwork() error = %v", err)
	}
	if loaded.MigrationInfo == nil {
		t.Fatal("migration info lost in round trip")
	}
	if loaded.MigrationInfo.SchemaVersion != 2 {
		t.Fatalf("schema version = %d, want 2", loaded.MigrationInfo.SchemaVersion)
	}
}

func TestCollisionReport_Recommendations(t *testing.T) {
	report := NewCollisionReportFile([]common.CollisionRecord{
		{
			BaseSlug:       "smith",
			ResolvedSlug:   "smith_2",
			Names:          []string{"Smith", "Smith."},
			ManualReview:   true,
			Recommendation: common.RecommendMerge,
			Reason:         "names are identical after normalization",
		},
	}, 10)

	if report.Metadata.TotalCollisions != 1 {
		t.Fatalf("total collisions = %d, want 1", report.Metadata.TotalCollisions)
	}
	if report.Metadata.CollisionRate != 0.1 {
		t.Fatalf("collision rate = %f, want 0.1", report.Metadata.CollisionRate)
	}
	if len(report.Recommendations) != 1 {
		t.Fatalf("recommendations = %d, want 1", len(report.Recommendations))
	}
	rec := report.Recommendations[0]
	if rec.Action != common.RecommendMerge || rec.BaseSlug != "smith" {
		t.Fatalf("recommendation = %+v", rec)
	}
}
