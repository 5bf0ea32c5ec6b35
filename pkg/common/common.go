package common

// EntityRecord is the canonical record for a single resolved identity.
// A record is created the first time a name is observed in any source and
// is never deleted: duplicates are merged into a survivor and the absorbed
// record's identity is kept in MergedFrom for audit.
//
// EntityID is assigned exactly once by the identity registry and is stable
// across re-runs. CanonicalName is the preferred display form and, unlike
// EntityID, is not required to be unique.
type EntityRecord struct {
	RawName        string        `json:"raw_name" validate:"required"`
	CanonicalName  string        `json:"canonical_name" validate:"required"`
	EntityID       string        `json:"entity_id,omitempty"`
	NameVariations []string      `json:"name_variations,omitempty"`
	Sources        []string      `json:"sources,omitempty"`
	Categories     []string      `json:"categories,omitempty"`
	Organizations  []string      `json:"organizations,omitempty"`
	Metrics        EntityMetrics `json:"metrics"`
	Biography      string        `json:"biography,omitempty"`
	MergedFrom     []string      `json:"merged_from,omitempty"`
}

// EntityMetrics holds the countable aggregates attached to an entity.
// Each field is an accumulator; merge-time summation is the only path
// that combines values from two records.
type EntityMetrics struct {
	FlightCount     int `json:"flight_count"`
	ConnectionCount int `json:"connection_count"`
	DocumentCount   int `json:"document_count"`
}

// Mention is a single observation of a name in a source dataset. Mentions
// are the raw input of the resolution pipeline, produced upstream by OCR
// and extraction.
type Mention struct {
	Name    string        `json:"name"`
	Source  string        `json:"source"`
	Metrics EntityMetrics `json:"metrics"`
}

// NetworkNode is a node of the co-occurrence network. Before migration the
// ID field carries a raw name; after migration it carries an entity_id.
type NetworkNode struct {
	ID   string `json:"id" validate:"required"`
	Name string `json:"name"`
}

// NetworkEdge is a co-occurrence edge between two nodes. Source and Target
// reference node IDs within the same graph snapshot; an edge with a dangling
// reference is a structural violation.
type NetworkEdge struct {
	Source   string   `json:"source" validate:"required"`
	Target   string   `json:"target" validate:"required"`
	Weight   int      `json:"weight"`
	Contexts []string `json:"contexts,omitempty"`
}

// NetworkGraph is the persisted network artifact. Pre- and post-migration
// files share this schema; MigrationInfo is only present after migration.
type NetworkGraph struct {
	Nodes         []NetworkNode  `json:"nodes"`
	Edges         []NetworkEdge  `json:"edges"`
	MigrationInfo *MigrationInfo `json:"migration_info,omitempty"`
}

// MigrationInfo records what a migration run did to a network artifact.
type MigrationInfo struct {
	MigratedAt    string `json:"migrated_at"`
	SchemaVersion int    `json:"schema_version"`
	NodesMigrated int    `json:"nodes_migrated"`
	EdgesMigrated int    `json:"edges_migrated"`
	NodesSkipped  int    `json:"nodes_skipped"`
	EdgesSkipped  int    `json:"edges_skipped"`
	OrphanedEdges int    `json:"orphaned_edges"`
}

// CollisionRecord documents two different names resolving to the same base
// slug. Collisions are always resolved with a numeric suffix and recorded
// for human adjudication, never silently.
type CollisionRecord struct {
	BaseSlug       string   `json:"base_slug"`
	ResolvedSlug   string   `json:"resolved_slug"`
	Names          []string `json:"names"`
	ManualReview   bool     `json:"manual_review"`
	Recommendation string   `json:"recommendation"`
	Reason         string   `json:"reason"`
}

// Collision triage recommendations. Informational only: no recommendation
// triggers an automatic merge.
const (
	RecommendMerge        = "merge"
	RecommendInvestigate  = "investigate"
	RecommendKeepSeparate = "keep_separate"
)

// EntityRelationship is an enriched, typed relationship between two
// canonical entities, produced by the enrichment collaborators.
type EntityRelationship struct {
	SourceID    string `json:"source_id"`
	TargetID    string `json:"target_id"`
	Type        string `json:"type"`
	Description string `json:"description"`
}
