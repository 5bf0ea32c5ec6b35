package graph

import (
	"strings"

	"github.com/corpusgraph/backend/internal/util"
	"github.com/corpusgraph/backend/pkg/common"
	"github.com/corpusgraph/backend/pkg/logger"

	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"
)

// SimilarityFunc scores two strings in [0, 1]. Implementations must be
// symmetric and return 1.0 for identical inputs; any edit-distance ratio
// satisfies this.
type SimilarityFunc func(a, b string) float64

var levenshteinMetric = metrics.NewLevenshtein()

// LevenshteinSimilarity is the default scorer: a normalized Levenshtein
// ratio over case-folded input.
func LevenshteinSimilarity(a, b string) float64 {
	return strutil.Similarity(strings.ToLower(a), strings.ToLower(b), levenshteinMetric)
}

// FindDuplicateGroups scans the population pairwise and groups records that
// are likely the same identity. A pair qualifies only when the name
// similarity exceeds the configured threshold AND the records share at least
// the configured number of source tags: similar names with zero overlapping
// evidence are presumed to be distinct namesakes, trading recall for
// precision.
//
// The result maps the first-seen member of each group to the records it
// absorbs. Once grouped, a record is excluded from further comparison, so
// groups never overlap. The scan is O(n²), which is acceptable at the
// population sizes involved (low thousands).
func (g *GraphClient) FindDuplicateGroups(entities []common.EntityRecord) map[string][]string {
	groups := make(map[string][]string)
	processed := make(map[string]bool, len(entities))

	for i := range entities {
		baseKey := recordKey(&entities[i])
		if processed[baseKey] {
			continue
		}
		processed[baseKey] = true

		baseName := comparableName(&entities[i])
		var members []string

		for j := i + 1; j < len(entities); j++ {
			candidateKey := recordKey(&entities[j])
			if processed[candidateKey] {
				continue
			}

			// The threshold is exclusive: a pair scoring exactly at it
			// does not qualify.
			score := g.similarity(baseName, comparableName(&entities[j]))
			if score <= g.similarityThreshold {
				continue
			}
			if !sharesSources(&entities[i], &entities[j], g.minSharedSources) {
				logger.Debug("[Dedupe] Similar names rejected by source gate",
					"a", entities[i].CanonicalName,
					"b", entities[j].CanonicalName,
					"score", score,
				)
				continue
			}

			processed[candidateKey] = true
			members = append(members, candidateKey)
		}

		if len(members) > 0 {
			groups[baseKey] = members
		}
	}

	if len(groups) > 0 {
		logger.Info("[Dedupe] Duplicate groups found", "groups", len(groups))
	}
	return groups
}

// recordKey identifies a record within a run: the entity ID when assigned,
// otherwise the canonical name (pre-ID detection).
func recordKey(e *common.EntityRecord) string {
	if e.EntityID != "" {
		return e.EntityID
	}
	return e.CanonicalName
}

func comparableName(e *common.EntityRecord) string {
	return strings.ToLower(util.NormalizeWhitespace(e.CanonicalName))
}

func sharesSources(a, b *common.EntityRecord, minShared int) bool {
	if minShared <= 1 {
		return util.Intersects(a.Sources, b.Sources)
	}
	set := make(map[string]bool, len(a.Sources))
	for _, s := range a.Sources {
		set[s] = true
	}
	shared := 0
	for _, s := range b.Sources {
		if set[s] {
			shared++
			if shared >= minShared {
				return true
			}
		}
	}
	return false
}
