package ingest

import (
	"context"
	"fmt"

	"alliance-observatory/internal/manifest"
	"alliance-observatory/internal/worker"

	"github.com/rs/zerolog"
)

// ManifestRunner turns a worker job into a batch. A manifest type other
// than unknown is passed on as an override.
type ManifestRunner struct {
	orchestrator *Orchestrator
	logger       zerolog.Logger
}

func NewManifestRunner(o *Orchestrator, logger zerolog.Logger) *ManifestRunner {
	return &ManifestRunner{orchestrator: o, logger: logger}
}

func (m *ManifestRunner) Run(ctx context.Context, job worker.Job) (worker.Summary, error) {
	samples, err := manifest.Load(job.ManifestPath)
	if err != nil {
		return worker.Summary{}, err
	}
	if job.Limit > 0 && len(samples) > job.Limit {
		samples = samples[:job.Limit]
	}

	uploads := make([]Upload, 0, len(samples))
	for _, s := range samples {
		if s.RawType != "" {
			m.logger.Warn().
				Str("path", s.Path).
				Str("type", s.RawType).
				Msg("manifest type not recognized, detecting instead")
		}
		uploads = append(uploads, Upload{Path: s.Path, Type: s.Type, Note: s.Note})
	}

	batch, err := m.orchestrator.ProcessBatch(ctx, uploads)
	summary := worker.Summary{
		Files:     len(batch.Results),
		Succeeded: batch.Succeeded,
		Failed:    batch.Failed,
		Cancelled: batch.Cancelled,
	}
	if err != nil {
		return summary, fmt.Errorf("manifest %s: %w", job.ManifestPath, err)
	}
	return summary, nil
}
