package graph

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/corpusgraph/backend/internal/util"
	"github.com/corpusgraph/backend/pkg/ai"
	"github.com/corpusgraph/backend/pkg/common"
	"github.com/corpusgraph/backend/pkg/logger"

	"golang.org/x/sync/errgroup"
)

// ResolutionStats summarizes a full resolution run. It is logged as the run
// summary regardless of outcome.
type ResolutionStats struct {
	MentionsIn       int `json:"mentions_in"`
	InvalidNames     int `json:"invalid_names"`
	EntitiesResolved int `json:"entities_resolved"`
	Collisions       int `json:"collisions"`
	EntitiesSkipped  int `json:"entities_skipped"`
	DuplicateGroups  int `json:"duplicate_groups"`
	RecordsAbsorbed  int `json:"records_absorbed"`
	ScalarConflicts  int `json:"scalar_conflicts"`
}

// ResolutionResult carries everything a resolution run produced: the merged
// entity population, the registry holding ID assignments and the alias map,
// and the audit statistics.
type ResolutionResult struct {
	Entities []common.EntityRecord
	Registry *Registry
	Stats    *ResolutionStats
}

// ResolveMentions runs the full resolution pipeline over raw mentions:
// normalization, grouping by canonical name, ID assignment, alias
// registration, duplicate detection and merging.
//
// Individual bad mentions never abort the run. Unparseable names and
// entities that exhaust the collision suffix range are counted, logged and
// skipped while the rest of the batch proceeds.
func (g *GraphClient) ResolveMentions(mentions []common.Mention) (*ResolutionResult, error) {
	stats := &ResolutionStats{MentionsIn: len(mentions)}
	registry := NewRegistry()

	type pending struct {
		canonical  string
		variations []string
		sources    []string
		metrics    common.EntityMetrics
	}

	// Group mentions by canonical display form, preserving first-seen
	// order so ID assignment is deterministic for a given input order.
	groups := make(map[string]*pending)
	order := make([]string, 0, len(mentions))

	for _, mention := range mentions {
		normalized, err := Normalize(mention.Name)
		if err != nil {
			stats.InvalidNames++
			logger.Warn("[Resolve] Mention skipped, name not normalizable",
				"name", mention.Name, "err", err)
			continue
		}

		group, ok := groups[normalized.Display]
		if !ok {
			group = &pending{canonical: normalized.Display}
			groups[normalized.Display] = group
			order = append(order, normalized.Display)
		}
		group.variations = append(group.variations, mention.Name)
		if mention.Source != "" {
			group.sources = append(group.sources, mention.Source)
		}
		group.metrics.FlightCount += mention.Metrics.FlightCount
		group.metrics.ConnectionCount += mention.Metrics.ConnectionCount
		group.metrics.DocumentCount += mention.Metrics.DocumentCount
	}

	entities := make([]common.EntityRecord, 0, len(order))
	for _, canonical := range order {
		group := groups[canonical]

		id, err := registry.Assign(canonical)
		if err != nil {
			var exhausted *CollisionExhaustedError
			if errors.As(err, &exhausted) {
				stats.EntitiesSkipped++
				logger.Error("[Resolve] Entity skipped, collision suffixes exhausted",
					"name", canonical, "base", exhausted.BaseSlug)
				continue
			}
			return nil, fmt.Errorf("id assignment for %q: %w", canonical, err)
		}

		for _, variation := range group.variations {
			if aliasErr := registry.RegisterAlias(variation, id); aliasErr != nil {
				logger.Warn("[Resolve] Alias not registered",
					"alias", variation, "id", id, "err", aliasErr)
			}
		}

		entities = append(entities, common.EntityRecord{
			RawName:        group.variations[0],
			CanonicalName:  canonical,
			EntityID:       id,
			NameVariations: util.UniqueStrings(group.variations),
			Sources:        util.UniqueStrings(group.sources),
			Metrics:        group.metrics,
		})
	}

	duplicates := g.FindDuplicateGroups(entities)
	merged, mergeStats := g.MergeDuplicates(entities, duplicates)

	// Absorbed identities must keep resolving to their survivor: the retired
	// ID and every name that pointed at it re-map to the surviving record, so
	// the persisted alias table never references an ID without an entity.
	for i := range merged {
		survivor := &merged[i]
		for _, former := range survivor.MergedFrom {
			if remapErr := registry.Remap(former, survivor.EntityID); remapErr != nil {
				logger.Warn("[Resolve] Absorbed identity not remapped",
					"from", former, "to", survivor.EntityID, "err", remapErr)
			}
		}
	}

	stats.EntitiesResolved = len(merged)
	stats.Collisions = len(registry.Collisions())
	stats.DuplicateGroups = mergeStats.GroupsMerged
	stats.RecordsAbsorbed = mergeStats.RecordsAbsorbed
	stats.ScalarConflicts = mergeStats.ScalarConflicts

	logger.Info("[Resolve] Run complete",
		"mentions", stats.MentionsIn,
		"entities", stats.EntitiesResolved,
		"invalid_names", stats.InvalidNames,
		"collisions", stats.Collisions,
		"duplicate_groups", stats.DuplicateGroups,
		"records_absorbed", stats.RecordsAbsorbed,
	)

	return &ResolutionResult{
		Entities: merged,
		Registry: registry,
		Stats:    stats,
	}, nil
}

// EnrichEntities generates biographies for resolved entities and extracts
// documented relationships between them. Biography calls run concurrently
// under the client's parallelism limit; a failed entity keeps its empty
// biography rather than failing the run.
func (g *GraphClient) EnrichEntities(
	ctx context.Context,
	entities []common.EntityRecord,
	client ai.EnrichAIClient,
) ([]common.EntityRelationship, error) {
	if client == nil {
		return nil, errors.New("enrichment requires an AI client")
	}

	failed := 0
	failedMu := sync.Mutex{}

	eg, gCtx := errgroup.WithContext(ctx)
	eg.SetLimit(g.parallelAiRequests)
	for i := range entities {
		entity := &entities[i]
		if entity.Biography != "" {
			continue
		}
		eg.Go(func() error {
			select {
			case <-gCtx.Done():
				return nil
			default:
				response, err := util.RetryWithContext(gCtx, g.maxRetries, func(ctx context.Context) (*ai.BiographyResponse, error) {
					return ai.CallBioAI(ctx, client, entity)
				})
				if err != nil {
					if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
						return err
					}
					failedMu.Lock()
					failed++
					failedMu.Unlock()
					logger.Warn("[Enrich] Biography skipped",
						"entity", entity.CanonicalName, "err", err)
					return nil
				}
				entity.Biography = response.Biography
				return nil
			}
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	relationships, err := util.RetryWithContext(ctx, g.maxRetries, func(ctx context.Context) ([]common.EntityRelationship, error) {
		return ai.CallRelationshipAI(ctx, client, entities)
	})
	if err != nil {
		return nil, fmt.Errorf("relationship extraction: %w", err)
	}

	metrics := client.GetMetrics()
	logger.Info("[Enrich] Enrichment complete",
		"entities", len(entities),
		"biographies_failed", failed,
		"relationships", len(relationships),
		"total_tokens", metrics.TotalTokens,
		"duration_ms", metrics.DurationMs,
	)
	return relationships, nil
}
