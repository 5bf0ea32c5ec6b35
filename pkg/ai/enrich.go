package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/corpusgraph/backend/pkg/common"
	"github.com/corpusgraph/backend/pkg/logger"
)

// relationshipTokenBudget caps how much entity context goes into a single
// relationship extraction call.
const relationshipTokenBudget = 6000

// BiographyResponse is the structured output of a biography call.
type BiographyResponse struct {
	Biography  string `json:"biography" jsonschema_description:"A 2-4 sentence factual biography of the entity"`
	Confidence string `json:"confidence" jsonschema_description:"Confidence in the identification: high, medium or low"`
}

// RelationshipsResponse is the structured output of a relationship
// extraction call.
type RelationshipsResponse struct {
	Relationships []RelationshipItem `json:"relationships" jsonschema_description:"Documented relationships between entities in the batch"`
}

// RelationshipItem is a single extracted relationship.
type RelationshipItem struct {
	SourceID    string `json:"source_id" jsonschema_description:"Entity ID of the relationship source"`
	TargetID    string `json:"target_id" jsonschema_description:"Entity ID of the relationship target"`
	Type        string `json:"type" jsonschema_description:"Relationship type, e.g. associate, employee, family"`
	Description string `json:"description" jsonschema_description:"One sentence describing the documented basis"`
}

// CallBioAI generates a biography for a single resolved entity from its
// accumulated context. Low-confidence answers are returned too; the caller
// decides whether to keep them.
func CallBioAI(
	ctx context.Context,
	client EnrichAIClient,
	entity *common.EntityRecord,
) (*BiographyResponse, error) {
	prompt := fmt.Sprintf(BiographyPrompt,
		entity.CanonicalName,
		strings.Join(entity.NameVariations, ", "),
		strings.Join(entity.Sources, ", "),
		strings.Join(entity.Organizations, ", "),
	)

	var response BiographyResponse
	err := client.GenerateCompletionWithFormat(
		ctx,
		"biography",
		"Short factual biography of a resolved entity",
		prompt,
		&response,
	)
	if err != nil {
		return nil, fmt.Errorf("biography generation for %s: %w", entity.CanonicalName, err)
	}

	logger.Debug("[Enrich] Biography generated",
		"entity", entity.CanonicalName, "confidence", response.Confidence)
	return &response, nil
}

// CallRelationshipAI extracts documented relationships among the given
// entities. The entity context is split into token-budget batches so large
// populations fit the model context; relationships across batch boundaries
// are not found, which is an accepted tradeoff.
func CallRelationshipAI(
	ctx context.Context,
	client EnrichAIClient,
	entities []common.EntityRecord,
) ([]common.EntityRelationship, error) {
	lines := make([]string, 0, len(entities))
	for i := range entities {
		lines = append(lines, entityContextLine(&entities[i]))
	}

	batches, err := BatchByTokenBudget(lines, relationshipTokenBudget)
	if err != nil {
		return nil, err
	}

	var relationships []common.EntityRelationship
	for i, batch := range batches {
		prompt := fmt.Sprintf(RelationshipPrompt, strings.Join(batch, "\n"))

		var response RelationshipsResponse
		err := client.GenerateCompletionWithFormat(
			ctx,
			"relationships",
			"Documented relationships between resolved entities",
			prompt,
			&response,
		)
		if err != nil {
			return nil, fmt.Errorf("relationship extraction batch %d/%d: %w", i+1, len(batches), err)
		}

		for _, item := range response.Relationships {
			relationships = append(relationships, common.EntityRelationship{
				SourceID:    item.SourceID,
				TargetID:    item.TargetID,
				Type:        item.Type,
				Description: item.Description,
			})
		}
	}

	logger.Debug("[Enrich] Relationships extracted",
		"entities", len(entities), "batches", len(batches), "relationships", len(relationships))
	return relationships, nil
}

func entityContextLine(e *common.EntityRecord) string {
	return fmt.Sprintf("- id=%s name=%q variations=[%s] sources=[%s] organizations=[%s]",
		e.EntityID,
		e.CanonicalName,
		strings.Join(e.NameVariations, ", "),
		strings.Join(e.Sources, ", "),
		strings.Join(e.Organizations, ", "),
	)
}
