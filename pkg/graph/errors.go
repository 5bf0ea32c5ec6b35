package graph

import (
	"fmt"
	"strings"
)

// InvalidNameError reports an input string that cannot be normalized into a
// valid slug. The original string is carried so the caller can decide whether
// to skip, log, or queue it for a manual fix.
type InvalidNameError struct {
	Raw    string
	Reason string
}

func (e *InvalidNameError) Error() string {
	return fmt.Sprintf("invalid name %q: %s", e.Raw, e.Reason)
}

// CollisionExhaustedError reports more than the allowed number of collisions
// on a single base slug. This signals a systemic data-quality problem rather
// than legitimate namesakes and is fatal for the offending entity only.
type CollisionExhaustedError struct {
	BaseSlug string
	Name     string
	Attempts int
}

func (e *CollisionExhaustedError) Error() string {
	return fmt.Sprintf(
		"collision suffixes exhausted for slug %q after %d attempts (name %q)",
		e.BaseSlug, e.Attempts, e.Name,
	)
}

// OrphanReferenceError reports a reference to an entity that does not exist
// in the current population. Callers recover by dropping the reference and
// recording it in the run statistics.
type OrphanReferenceError struct {
	Reference string
	Context   string
}

func (e *OrphanReferenceError) Error() string {
	return fmt.Sprintf("orphan reference %q (%s)", e.Reference, e.Context)
}

// ValidationError aggregates the structural violations found by the
// post-migration check. When it is returned, nothing was persisted and the
// pre-migration artifact is intact.
type ValidationError struct {
	Violations []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf(
		"migration validation failed with %d violation(s): %s",
		len(e.Violations), strings.Join(e.Violations, "; "),
	)
}
