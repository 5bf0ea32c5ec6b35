package graph

// Default thresholds for duplicate detection. Both are starting points
// tuned on the corpus, not hard law; override them through
// NewGraphClientParams when the population changes.
const (
	DefaultSimilarityThreshold = 0.80
	DefaultMinSharedSources    = 1
)

// GraphClient runs the resolution pipeline: normalization, ID assignment,
// duplicate detection, merging, and network migration. It holds the tunable
// thresholds and the pluggable similarity scorer.
//
// A GraphClient should be created using NewGraphClient.
type GraphClient struct {
	similarityThreshold float64
	minSharedSources    int
	similarity          SimilarityFunc

	parallelAiRequests int
	maxRetries         int
}

// NewGraphClientParams defines the configuration parameters for creating a
// new GraphClient.
//
// SimilarityThreshold is the score a pair must exceed (strictly) to become
// a duplicate candidate. MinSharedSources is the number of provenance tags two
// records must share before they may be merged. Similarity replaces the
// default Levenshtein-ratio scorer.
// ParallelAiRequests and MaxRetries only affect enrichment calls.
type NewGraphClientParams struct {
	SimilarityThreshold float64
	MinSharedSources    int
	Similarity          SimilarityFunc

	ParallelAiRequests int
	MaxRetries         int
}

// NewGraphClient creates and returns a new GraphClient configured with the
// provided parameters. Zero values fall back to the corpus defaults.
func NewGraphClient(params NewGraphClientParams) (*GraphClient, error) {
	threshold := params.SimilarityThreshold
	if threshold <= 0 {
		threshold = DefaultSimilarityThreshold
	}
	minShared := params.MinSharedSources
	if minShared <= 0 {
		minShared = DefaultMinSharedSources
	}
	similarity := params.Similarity
	if similarity == nil {
		similarity = LevenshteinSimilarity
	}
	parallel := params.ParallelAiRequests
	if parallel <= 0 {
		parallel = 4
	}
	maxRetries := params.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}

	return &GraphClient{
		similarityThreshold: threshold,
		minSharedSources:    minShared,
		similarity:          similarity,
		parallelAiRequests:  parallel,
		maxRetries:          maxRetries,
	}, nil
}
