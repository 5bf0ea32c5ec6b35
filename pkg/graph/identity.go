package graph

import (
	"fmt"
	"strings"

	"github.com/corpusgraph/backend/internal/util"
	"github.com/corpusgraph/backend/pkg/common"
	"github.com/corpusgraph/backend/pkg/logger"
)

// maxCollisionSuffix bounds the numeric suffixes tried when two different
// names slug to the same base. More collisions than this on one base signals
// corrupt input, not namesakes.
const maxCollisionSuffix = 100

// Registry owns the name-to-ID state accumulated across a resolution run.
// It is passed explicitly into every function that needs it; there is no
// process-wide singleton, so tests can use a fresh registry per case.
//
// A registry pre-populated from a previous run keeps existing assignments
// stable: re-running Assign with the same canonical name returns the same
// slug without creating a new one.
type Registry struct {
	idToName map[string]string
	nameToID map[string]string

	collisions []common.CollisionRecord
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		idToName: make(map[string]string),
		nameToID: make(map[string]string),
	}
}

// Assign returns the stable entity ID for a canonical name, registering it
// on first sight. When the base slug is already claimed by a different name,
// numeric suffixes _2.._100 are tried in order and the collision is recorded
// for manual review; resolution is never silent.
func (r *Registry) Assign(canonicalName string) (string, error) {
	if id, ok := r.nameToID[canonicalName]; ok {
		return id, nil
	}

	base, err := SlugCandidate(canonicalName)
	if err != nil {
		return "", err
	}

	owner, taken := r.idToName[base]
	if !taken {
		r.claim(base, canonicalName)
		return base, nil
	}

	for i := 2; i <= maxCollisionSuffix; i++ {
		candidate := fmt.Sprintf("%s_%d", base, i)
		if _, used := r.idToName[candidate]; used {
			continue
		}
		r.claim(candidate, canonicalName)
		recommendation, reason := triageCollision(owner, canonicalName)
		r.collisions = append(r.collisions, common.CollisionRecord{
			BaseSlug:       base,
			ResolvedSlug:   candidate,
			Names:          []string{owner, canonicalName},
			ManualReview:   true,
			Recommendation: recommendation,
			Reason:         reason,
		})
		logger.Warn("[Identity] Slug collision resolved",
			"base", base, "resolved", candidate,
			"existing", owner, "incoming", canonicalName,
			"recommendation", recommendation,
		)
		return candidate, nil
	}

	return "", &CollisionExhaustedError{
		BaseSlug: base,
		Name:     canonicalName,
		Attempts: maxCollisionSuffix,
	}
}

func (r *Registry) claim(id, canonicalName string) {
	r.idToName[id] = canonicalName
	r.nameToID[canonicalName] = id
}

// RegisterAlias maps an observed raw name onto an already-assigned entity
// ID, so later lookups by any variation resolve to the same entity.
func (r *Registry) RegisterAlias(rawName, id string) error {
	if _, ok := r.idToName[id]; !ok {
		return &OrphanReferenceError{Reference: id, Context: "alias " + rawName}
	}
	if existing, ok := r.nameToID[rawName]; ok && existing != id {
		return fmt.Errorf("alias %q already mapped to %q", rawName, existing)
	}
	r.nameToID[rawName] = id
	return nil
}

// Remap retires oldID in favor of newID: every registered name resolving to
// oldID is re-pointed at newID, and the retired slug itself becomes an alias
// of the survivor. Used when a merge absorbs a record, so none of the
// absorbed entity's observed names keeps resolving to an ID that no longer
// names a record.
func (r *Registry) Remap(oldID, newID string) error {
	if oldID == newID {
		return nil
	}
	if _, ok := r.idToName[newID]; !ok {
		return &OrphanReferenceError{Reference: newID, Context: "remap of " + oldID}
	}
	if _, ok := r.idToName[oldID]; !ok {
		return &OrphanReferenceError{Reference: oldID, Context: "remap to " + newID}
	}

	for name, id := range r.nameToID {
		if id == oldID {
			r.nameToID[name] = newID
		}
	}
	delete(r.idToName, oldID)
	r.nameToID[oldID] = newID
	return nil
}

// Lookup resolves any registered name (canonical or alias) to its entity ID.
func (r *Registry) Lookup(name string) (string, bool) {
	id, ok := r.nameToID[name]
	return id, ok
}

// NameToID returns a copy of the full observed-name-to-slug mapping, the
// shape persisted in the entity mapping artifact.
func (r *Registry) NameToID() map[string]string {
	out := make(map[string]string, len(r.nameToID))
	for name, id := range r.nameToID {
		out[name] = id
	}
	return out
}

// Collisions returns the collision records accumulated so far.
func (r *Registry) Collisions() []common.CollisionRecord {
	return r.collisions
}

// Size returns the number of assigned IDs.
func (r *Registry) Size() int {
	return len(r.idToName)
}

// triageCollision computes the heuristic recommendation attached to a
// collision record. Identical-after-normalization names are probably one
// entity; a substring relation deserves a closer look; anything else is
// presumed to be distinct namesakes. Informational only.
func triageCollision(existing, incoming string) (string, string) {
	a := strings.ToLower(util.NormalizeWhitespace(existing))
	b := strings.ToLower(util.NormalizeWhitespace(incoming))

	switch {
	case a == b:
		return common.RecommendMerge, "names are identical after normalization"
	case strings.Contains(a, b) || strings.Contains(b, a):
		return common.RecommendInvestigate, "one name is a substring of the other"
	default:
		return common.RecommendKeepSeparate, "names differ beyond normalization"
	}
}
