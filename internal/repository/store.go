package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"alliance-observatory/internal/db"
	"alliance-observatory/internal/domain"
	"alliance-observatory/internal/store"

	"github.com/rs/zerolog"
)

// Store is the SQLite store.Store. Each session is one transaction.
type Store struct {
	queries *db.Queries
	db      *sql.DB
	logger  zerolog.Logger
}

func NewStore(sqlDB *sql.DB, queries *db.Queries, logger zerolog.Logger) *Store {
	return &Store{
		queries: queries,
		db:      sqlDB,
		logger:  logger,
	}
}

func (r *Store) Begin(ctx context.Context) (store.Session, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to begin transaction")
		return nil, fmt.Errorf("failed to begin transaction: %w: %w", domain.ErrStoreUnavailable, err)
	}
	return &session{
		tx:      tx,
		queries: r.queries.WithTx(tx),
		logger:  r.logger,
	}, nil
}

// RecordOCRResult writes outside any ingestion session so the payload survives
// a rolled back file.
func (r *Store) RecordOCRResult(ctx context.Context, res *domain.OCRResult) error {
	err := r.queries.InsertOCRResult(ctx, db.InsertOCRResultParams{
		ID:             res.ID,
		ScreenshotPath: res.ScreenshotPath,
		ModelName:      res.ModelName,
		Kind:           res.Kind,
		CardCount:      nullInt(res.CardCount),
		Payload:        string(res.Payload),
		CreatedAt:      formatTime(res.CreatedAt),
	})
	if err != nil {
		r.logger.Error().Err(err).Str("id", res.ID).Msg("failed to record ocr result")
		return fmt.Errorf("failed to record ocr result: %w", err)
	}
	return nil
}

type session struct {
	tx      *sql.Tx
	queries *db.Queries
	logger  zerolog.Logger
}

func (s *session) Commit() error {
	if err := s.tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *session) Rollback() error {
	err := s.tx.Rollback()
	if err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("failed to roll back transaction: %w", err)
	}
	return nil
}

func (s *session) EnsureAlliance(ctx context.Context, a *domain.Alliance) error {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now()
	}
	if err := s.queries.UpsertAlliance(ctx, db.UpsertAllianceParams{
		ID:        a.ID,
		Name:      a.Name,
		Tag:       a.Tag,
		CreatedAt: formatTime(a.CreatedAt),
	}); err != nil {
		return fmt.Errorf("failed to ensure alliance %d: %w", a.ID, err)
	}
	return nil
}

// CountOCRResults reports how many vision replies have been recorded.
func (r *Store) CountOCRResults(ctx context.Context) (int64, error) {
	n, err := r.queries.CountOCRResults(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count ocr results: %w", err)
	}
	return n, nil
}
