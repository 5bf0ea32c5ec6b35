package graph

import (
	"github.com/corpusgraph/backend/internal/util"
	"github.com/corpusgraph/backend/pkg/common"
	"github.com/corpusgraph/backend/pkg/logger"
)

// MergeStats summarizes what a merge pass did. It is reported with the run
// summary so operators can audit data movement.
type MergeStats struct {
	GroupsMerged     int `json:"groups_merged"`
	RecordsAbsorbed  int `json:"records_absorbed"`
	ScalarConflicts  int `json:"scalar_conflicts"`
	OrphanReferences int `json:"orphan_references"`
}

// MergeDuplicates combines each duplicate group into its first-seen member.
// Set-valued fields (sources, categories, organizations, name variations)
// are unioned, countable metrics are summed, and the absorbed identities are
// appended to merged_from so no record disappears without audit trail.
//
// Scalar fields present on an absorbed record but absent on the survivor are
// copied over. When both carry different values the survivor wins; the
// conflict is logged and counted rather than silently dropped.
//
// The pass is pure over its inputs and idempotent for a fixed group map:
// callers must compute groups from pre-merge state, never from an already
// merged population.
func (g *GraphClient) MergeDuplicates(
	entities []common.EntityRecord,
	groups map[string][]string,
) ([]common.EntityRecord, *MergeStats) {
	stats := &MergeStats{}
	if len(groups) == 0 {
		return entities, stats
	}

	index := make(map[string]int, len(entities))
	for i := range entities {
		index[recordKey(&entities[i])] = i
	}

	absorbed := make(map[string]bool)
	merged := make([]common.EntityRecord, len(entities))
	copy(merged, entities)

	for i := range merged {
		baseKey := recordKey(&merged[i])
		members, ok := groups[baseKey]
		if !ok {
			continue
		}

		survivor := &merged[i]
		groupSize := 0
		for _, memberKey := range members {
			idx, found := index[memberKey]
			if !found {
				stats.OrphanReferences++
				logger.Warn("[Merge] Group member not found in population",
					"group", baseKey, "member", memberKey)
				continue
			}
			absorbRecord(survivor, &merged[idx], stats)
			absorbed[memberKey] = true
			groupSize++
		}
		if groupSize > 0 {
			stats.GroupsMerged++
			stats.RecordsAbsorbed += groupSize
			logger.Debug("[Merge] Group merged",
				"survivor", survivor.CanonicalName, "absorbed", groupSize)
		}
	}

	result := make([]common.EntityRecord, 0, len(merged)-len(absorbed))
	for i := range merged {
		if absorbed[recordKey(&merged[i])] {
			continue
		}
		result = append(result, merged[i])
	}
	return result, stats
}

func absorbRecord(survivor, absorbed *common.EntityRecord, stats *MergeStats) {
	// Fresh slices throughout: the inputs may still back the caller's
	// pre-merge population and must not be scribbled on.
	survivor.Sources = unionStrings(survivor.Sources, absorbed.Sources)
	survivor.Categories = unionStrings(survivor.Categories, absorbed.Categories)
	survivor.Organizations = unionStrings(survivor.Organizations, absorbed.Organizations)

	variations := unionStrings(survivor.NameVariations, []string{absorbed.RawName, absorbed.CanonicalName})
	survivor.NameVariations = unionStrings(variations, absorbed.NameVariations)

	survivor.Metrics.FlightCount += absorbed.Metrics.FlightCount
	survivor.Metrics.ConnectionCount += absorbed.Metrics.ConnectionCount
	survivor.Metrics.DocumentCount += absorbed.Metrics.DocumentCount

	survivor.Biography = mergeScalar(
		survivor.Biography, absorbed.Biography,
		survivor.CanonicalName, "biography", stats,
	)

	lineage := make([]string, 0, len(survivor.MergedFrom)+len(absorbed.MergedFrom)+1)
	lineage = append(lineage, survivor.MergedFrom...)
	lineage = append(lineage, absorbed.MergedFrom...)
	survivor.MergedFrom = append(lineage, mergedIdentity(absorbed))
}

func unionStrings(a, b []string) []string {
	combined := make([]string, 0, len(a)+len(b))
	combined = append(combined, a...)
	combined = append(combined, b...)
	return util.UniqueStrings(combined)
}

// mergeScalar fills a missing scalar from the absorbed record and keeps the
// survivor's value on conflict. Conflicts are surfaced, not swallowed: two
// genuinely different facts colliding is worth an operator's attention.
func mergeScalar(survivorValue, absorbedValue, owner, field string, stats *MergeStats) string {
	if absorbedValue == "" {
		return survivorValue
	}
	if survivorValue == "" {
		return absorbedValue
	}
	if survivorValue != absorbedValue {
		stats.ScalarConflicts++
		logger.Warn("[Merge] Conflicting scalar kept survivor value",
			"entity", owner, "field", field)
	}
	return survivorValue
}

func mergedIdentity(e *common.EntityRecord) string {
	if e.EntityID != "" {
		return e.EntityID
	}
	return e.CanonicalName
}
