package ingest

import (
	"context"
	"fmt"

	"alliance-observatory/internal/config"
	"alliance-observatory/internal/domain"
	"alliance-observatory/internal/store"
)

// EnsureAlliance makes sure the configured alliance row exists before any
// screenshot is written against it.
func EnsureAlliance(ctx context.Context, st store.Store, cfg *config.Config) error {
	sess, err := st.Begin(ctx)
	if err != nil {
		return err
	}
	defer sess.Rollback()

	if err := sess.EnsureAlliance(ctx, &domain.Alliance{
		ID:   cfg.AllianceID,
		Name: cfg.AllianceName,
		Tag:  cfg.AllianceTag,
	}); err != nil {
		return err
	}
	if err := sess.Commit(); err != nil {
		return fmt.Errorf("failed to commit alliance: %w", err)
	}
	return nil
}
