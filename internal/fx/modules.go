package fx

import (
	"database/sql"

	"alliance-observatory/internal/classify"
	"alliance-observatory/internal/config"
	"alliance-observatory/internal/database"
	"alliance-observatory/internal/db"
	"alliance-observatory/internal/events"
	"alliance-observatory/internal/identity"
	"alliance-observatory/internal/ingest"
	"alliance-observatory/internal/logger"
	"alliance-observatory/internal/pipeline"
	"alliance-observatory/internal/repository"
	"alliance-observatory/internal/retention"
	"alliance-observatory/internal/server"
	"alliance-observatory/internal/store"
	"alliance-observatory/internal/textocr"
	"alliance-observatory/internal/timestamp"
	"alliance-observatory/internal/upsert"
	"alliance-observatory/internal/vision"
	"alliance-observatory/internal/worker"

	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

func ProvideQueries(sqlDB *sql.DB) *db.Queries {
	return db.New(sqlDB)
}

func ProvideResolver(cfg *config.Config, logger zerolog.Logger) *identity.Resolver {
	return identity.NewResolver(cfg.FuzzyThreshold, logger)
}

func ProvideLocator(cfg *config.Config, logger zerolog.Logger) *events.Locator {
	return events.NewLocator(cfg.BearWindow, logger)
}

func ProvideVisionClient(cfg *config.Config, logger zerolog.Logger) *vision.Client {
	return vision.NewClient(cfg, logger)
}

func ProvideExtractor(client *vision.Client, recorder store.OCRRecorder, logger zerolog.Logger) *vision.Extractor {
	return vision.NewExtractor(client, recorder, client.Model(), logger)
}

// ProvideDetector leaves the AI classifier out when AI extraction is off.
func ProvideDetector(cfg *config.Config, extractor *vision.Extractor, logger zerolog.Logger) *classify.Detector {
	var ai classify.AIClassifier
	if cfg.AIEnabled {
		ai = extractor
	}
	return classify.NewDetector(ai, cfg.AIConfidenceFloor, cfg.HeuristicCeiling, logger)
}

func ProvideTextEngine(cfg *config.Config, logger zerolog.Logger) textocr.Engine {
	return textocr.NewTesseract(cfg.TesseractBinary, logger)
}

func ProvideTimestamps(cfg *config.Config, logger zerolog.Logger) *timestamp.Resolver {
	return timestamp.NewResolver(cfg.Timezone, logger)
}

func ProvideOrchestrator(
	st store.Store,
	detector *classify.Detector,
	stamps *timestamp.Resolver,
	extractor *vision.Extractor,
	text textocr.Engine,
	upserter *upsert.Upserter,
	cfg *config.Config,
	logger zerolog.Logger,
) *ingest.Orchestrator {
	return ingest.NewOrchestrator(st, detector, stamps, extractor, text, upserter, cfg, logger)
}

func ProvideWorker(cfg *config.Config, runner *ingest.ManifestRunner, logger zerolog.Logger) *worker.Worker {
	return worker.New(cfg, runner, logger)
}

// ProvidePipeline uses tesseract when present and runs without text
// otherwise.
func ProvidePipeline(cfg *config.Config, logger zerolog.Logger) *pipeline.Pipeline {
	return pipeline.New(textocr.Default(cfg.TesseractBinary, logger), logger)
}

var Module = fx.Options(
	logger.Module,
	config.Module,
	fx.Provide(database.New),
	fx.Provide(ProvideQueries),
	// store
	fx.Provide(repository.NewStore),
	fx.Provide(func(s *repository.Store) store.Store { return s }),
	fx.Provide(func(s *repository.Store) store.OCRRecorder { return s }),
	// reconciliation core
	fx.Provide(ProvideResolver),
	fx.Provide(ProvideLocator),
	fx.Provide(upsert.NewUpserter),
	// backends
	fx.Provide(ProvideVisionClient),
	fx.Provide(ProvideExtractor),
	fx.Provide(ProvideDetector),
	fx.Provide(ProvideTextEngine),
	fx.Provide(ProvideTimestamps),
	// ingestion
	fx.Provide(ProvideOrchestrator),
	fx.Provide(ingest.NewManifestRunner),
	fx.Provide(ProvideWorker),
	fx.Provide(ProvidePipeline),
	fx.Provide(retention.NewCleaner),
	// server
	fx.Provide(server.NewControlServer),
)
