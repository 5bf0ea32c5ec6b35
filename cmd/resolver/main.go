package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/corpusgraph/backend/internal/storage"
	"github.com/corpusgraph/backend/internal/timing"
	"github.com/corpusgraph/backend/internal/util"

	"github.com/corpusgraph/backend/pkg/ai"
	oai "github.com/corpusgraph/backend/pkg/ai/ollama"
	gai "github.com/corpusgraph/backend/pkg/ai/openai"
	"github.com/corpusgraph/backend/pkg/common"
	"github.com/corpusgraph/backend/pkg/graph"
	"github.com/corpusgraph/backend/pkg/leaselock"
	"github.com/corpusgraph/backend/pkg/logger"
	"github.com/corpusgraph/backend/pkg/logger/console"
)

func main() {
	util.LoadEnv()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// logger
	debug := util.GetEnvBool("DEBUG", false)
	consoleLogger := console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug: debug,
	})
	logger.Init(consoleLogger)

	runID := util.NewRunID()
	logger.Info("Resolution run starting", "run_id", runID)

	mappingPath := util.GetEnvString("ENTITY_MAPPING_PATH", "data/entity_mapping.json")

	// One run at a time per artifact directory. A second resolver started
	// against the same data directory fails fast instead of interleaving
	// writes.
	lock := leaselock.New(filepath.Dir(mappingPath))
	err := lock.WithLease(ctx, "resolver", leaselock.Options{}, func(ctx context.Context) error {
		return run(ctx, runID, mappingPath)
	})
	if err != nil {
		if err == leaselock.ErrBusy {
			logger.Fatal("Another resolution run holds the artifact lock", "dir", filepath.Dir(mappingPath))
		}
		logger.Fatal("Resolution run failed", "run_id", runID, "err", err)
	}
}

func run(ctx context.Context, runID, mappingPath string) error {
	tracker := timing.NewTracker()

	mentionsPath := util.GetEnvString("MENTIONS_PATH", "data/mentions.json")
	collisionsPath := util.GetEnvString("COLLISION_REPORT_PATH", "data/collision_report.json")
	networkPath := util.GetEnv("NETWORK_PATH")
	invalidPath := util.GetEnv("INVALID_ENTITIES_PATH")

	client, err := graph.NewGraphClient(graph.NewGraphClientParams{
		SimilarityThreshold: util.GetEnvFloat("SIMILARITY_THRESHOLD", 0),
		MinSharedSources:    util.GetEnvInt("MIN_SHARED_SOURCES", 0),
		ParallelAiRequests:  util.GetEnvInt("AI_PARALLEL_REQUESTS", 0),
		MaxRetries:          util.GetEnvInt("AI_MAX_RETRIES", 0),
	})
	if err != nil {
		logger.Fatal("Could not create graph client", "err", err)
	}

	// Resolution
	tracker.Start("resolve")
	var mentions []common.Mention
	if err := storage.LoadJSON(mentionsPath, &mentions); err != nil {
		logger.Fatal("Could not load mentions", "path", mentionsPath, "err", err)
	}

	result, err := client.ResolveMentions(mentions)
	if err != nil {
		logger.Fatal("Resolution failed", "err", err)
	}
	tracker.Stop("resolve")

	// Enrichment is optional and additive; a failure here never discards
	// the resolved population.
	var relationships []common.EntityRelationship
	if util.GetEnvBool("ENRICH", false) {
		tracker.Start("enrich")
		aiClient := newEnrichClient()
		relationships, err = client.EnrichEntities(ctx, result.Entities, aiClient)
		if err != nil {
			logger.Error("Enrichment failed, continuing without it", "err", err)
			relationships = nil
		}
		tracker.Stop("enrich")
	}

	// Artifacts
	tracker.Start("persist")
	mapping := storage.NewEntityMappingFile(
		result.Entities,
		result.Registry.NameToID(),
		result.Stats.Collisions,
		result.Stats.InvalidNames,
	)
	if err := storage.SaveJSON(mappingPath, mapping); err != nil {
		logger.Fatal("Could not save entity mapping", "path", mappingPath, "err", err)
	}

	report := storage.NewCollisionReportFile(result.Registry.Collisions(), result.Registry.Size())
	if err := storage.SaveJSON(collisionsPath, report); err != nil {
		logger.Fatal("Could not save collision report", "path", collisionsPath, "err", err)
	}

	if len(relationships) > 0 {
		relPath := util.GetEnvString("RELATIONSHIPS_PATH", "data/relationships.json")
		if err := storage.SaveJSON(relPath, relationships); err != nil {
			logger.Error("Could not save relationships", "path", relPath, "err", err)
		}
	}
	tracker.Stop("persist")

	// Network migration
	if networkPath != "" {
		tracker.Start("migrate")
		migrateNetwork(client, result, networkPath, invalidPath)
		tracker.Stop("migrate")
	}

	// Off-host archival
	if util.GetEnv("AWS_BUCKET") != "" {
		tracker.Start("archive")
		s3Client := storage.NewS3Client(ctx)
		if s3Client == nil {
			logger.Error("Could not create S3 client, skipping archival")
		} else {
			paths := []string{mappingPath, collisionsPath}
			if networkPath != "" {
				paths = append(paths, networkPath)
			}
			for _, path := range paths {
				key, err := storage.ArchiveFile(ctx, s3Client, runID, path)
				if err != nil {
					logger.Error("Could not archive artifact", "path", path, "err", err)
					continue
				}
				logger.Debug("Artifact archived", "key", key)
			}
		}
		tracker.Stop("archive")
	}

	for _, phase := range tracker.Phases() {
		logger.Info("Phase complete", "phase", phase.Phase, "duration_ms", phase.DurationMs)
	}
	logger.Info("Resolution run finished", "run_id", runID,
		"entities", result.Stats.EntitiesResolved,
		"collisions", result.Stats.Collisions,
		"relationships", len(relationships),
	)
	return nil
}

func newEnrichClient() ai.EnrichAIClient {
	adapter := util.GetEnv("AI_ADAPTER")

	switch adapter {
	case "ollama":
		client, err := oai.NewEnrichOllamaClient(oai.NewEnrichOllamaClientParams{
			EnrichModel: util.GetEnv("AI_CHAT_MODEL"),

			BaseURL: util.GetEnv("AI_CHAT_URL"),
			ApiKey:  util.GetEnv("AI_CHAT_KEY"),

			MaxConcurrentRequests: int64(util.GetEnvInt("AI_PARALLEL_REQUESTS", 4)),
		})
		if err != nil {
			logger.Fatal("Could not create Ollama client", "err", err)
		}
		return client
	default:
		return gai.NewEnrichOpenAIClient(gai.NewEnrichOpenAIClientParams{
			EnrichModel: util.GetEnv("AI_CHAT_MODEL"),

			ChatURL: util.GetEnv("AI_CHAT_URL"),
			ChatKey: util.GetEnv("AI_CHAT_KEY"),
		})
	}
}

func migrateNetwork(client *graph.GraphClient, result *graph.ResolutionResult, networkPath, invalidPath string) {
	network, err := storage.LoadNetwork(networkPath)
	if err != nil {
		logger.Fatal("Could not load network", "path", networkPath, "err", err)
	}

	invalid := make(map[string]bool)
	if invalidPath != "" {
		var names []string
		if err := storage.LoadJSON(invalidPath, &names); err != nil {
			logger.Fatal("Could not load invalid entity list", "path", invalidPath, "err", err)
		}
		for _, name := range names {
			invalid[name] = true
		}
	}

	migrated, stats, err := client.MigrateNetwork(network, result.Registry.NameToID(), invalid)
	if err != nil {
		logger.Fatal("Network migration failed, original file untouched",
			"path", networkPath, "err", err,
			"nodes_in", stats.NodesIn, "edges_in", stats.EdgesIn,
		)
	}

	if err := storage.SaveNetwork(networkPath, migrated); err != nil {
		logger.Fatal("Could not save migrated network", "path", networkPath, "err", err)
	}
}
