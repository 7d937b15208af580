// Package retention removes source screenshots once they are older than the
// configured retention period.
package retention

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"alliance-observatory/internal/config"
	"alliance-observatory/internal/manifest"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

type Report struct {
	Scanned int      `json:"scanned"`
	Deleted []string `json:"deleted"`
	Failed  int      `json:"failed"`
}

type Cleaner struct {
	dir      string
	period   time.Duration
	schedule string
	now      func() time.Time
	logger   zerolog.Logger
}

func NewCleaner(cfg *config.Config, logger zerolog.Logger) *Cleaner {
	return &Cleaner{
		dir:      cfg.UploadDir,
		period:   cfg.RetentionPeriod,
		schedule: cfg.RetentionSchedule,
		now:      time.Now,
		logger:   logger.With().Str("component", "retention").Logger(),
	}
}

// Sweep deletes screenshots in the upload directory whose modification time
// is older than the retention period. A missing directory is not an error.
func (c *Cleaner) Sweep(ctx context.Context) (Report, error) {
	var report Report
	if c.period <= 0 {
		return report, nil
	}
	entries, err := os.ReadDir(c.dir)
	if errors.Is(err, os.ErrNotExist) {
		return report, nil
	}
	if err != nil {
		return report, fmt.Errorf("failed to read upload directory: %w", err)
	}

	cutoff := c.now().Add(-c.period)
	for _, e := range entries {
		if ctx.Err() != nil {
			return report, ctx.Err()
		}
		if !e.Type().IsRegular() || !manifest.IsImage(e.Name()) {
			continue
		}
		report.Scanned++
		info, err := e.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		path := filepath.Join(c.dir, e.Name())
		if err := os.Remove(path); err != nil {
			c.logger.Warn().Err(err).Str("filename", e.Name()).Msg("failed to delete expired screenshot")
			report.Failed++
			continue
		}
		report.Deleted = append(report.Deleted, e.Name())
	}

	c.logger.Info().
		Int("scanned", report.Scanned).
		Int("deleted", len(report.Deleted)).
		Int("failed", report.Failed).
		Dur("period", c.period).
		Msg("retention sweep finished")
	return report, nil
}

// Schedule registers the sweep on the configured cron schedule.
func (c *Cleaner) Schedule(cr *cron.Cron) (cron.EntryID, error) {
	id, err := cr.AddFunc(c.schedule, func() {
		if _, err := c.Sweep(context.Background()); err != nil {
			c.logger.Error().Err(err).Msg("retention sweep failed")
		}
	})
	if err != nil {
		return 0, fmt.Errorf("invalid retention schedule %q: %w", c.schedule, err)
	}
	c.logger.Info().Str("schedule", c.schedule).Msg("retention sweep scheduled")
	return id, nil
}
