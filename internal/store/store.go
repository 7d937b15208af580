// Package store declares the unit of work the reconciliation core writes
// through. A Session is owned by the caller that began it: the caller decides
// whether to Commit or Rollback, persistence routines never do.
package store

import (
	"context"
	"time"

	"alliance-observatory/internal/domain"
)

type Store interface {
	Begin(ctx context.Context) (Session, error)
}

type Session interface {
	AllianceStore
	PlayerStore
	BearStore
	FoundryStore
	ACStore
	SnapshotStore

	Commit() error
	Rollback() error
}

type AllianceStore interface {
	EnsureAlliance(ctx context.Context, a *domain.Alliance) error
}

type PlayerStore interface {
	// FindPlayer is an exact, case-sensitive name lookup.
	FindPlayer(ctx context.Context, allianceID int64, name string) (*domain.Player, error)
	GetPlayer(ctx context.Context, id int64) (*domain.Player, error)
	ListPlayers(ctx context.Context, allianceID int64) ([]domain.Player, error)
	CreatePlayer(ctx context.Context, p *domain.Player) error
	UpdatePlayer(ctx context.Context, p *domain.Player) error
	// DeletePlayer fails while rows still reference the player.
	DeletePlayer(ctx context.Context, id int64) error

	// MovePlayerRecords re-points every per-player row from fromID to toID.
	// A row colliding with one toID already has is folded per kind: history
	// and contribution rows keep toID's, bear scores keep the higher score
	// and the newest non-null rank, foundry rows keep the first recorded and
	// AC signups keep the higher power.
	MovePlayerRecords(ctx context.Context, fromID, toID int64) (domain.MergeCounts, error)

	// Insert* history methods return false when the unique key already exists.
	InsertPowerHistory(ctx context.Context, h *domain.PowerHistory) (bool, error)
	InsertFurnaceHistory(ctx context.Context, h *domain.FurnaceHistory) (bool, error)
}

type BearStore interface {
	// BearEventsBetween returns events whose started_at lies in [from, to],
	// most recent first.
	BearEventsBetween(ctx context.Context, allianceID int64, trapID int, from, to time.Time) ([]domain.BearEvent, error)
	ListBearEvents(ctx context.Context, allianceID int64, limit int) ([]domain.BearEvent, error)
	GetBearEvent(ctx context.Context, id int64) (*domain.BearEvent, error)
	CreateBearEvent(ctx context.Context, e *domain.BearEvent) error
	UpdateBearEvent(ctx context.Context, e *domain.BearEvent) error
	DeleteBearEvent(ctx context.Context, id int64) error

	GetBearScore(ctx context.Context, eventID, playerID int64) (*domain.BearScore, error)
	ListBearScores(ctx context.Context, eventID int64) ([]domain.BearScore, error)
	CreateBearScore(ctx context.Context, s *domain.BearScore) error
	UpdateBearScore(ctx context.Context, s *domain.BearScore) error
	DeleteBearScore(ctx context.Context, id int64) error
}

type FoundryStore interface {
	FindFoundryEvent(ctx context.Context, allianceID int64, legion int, eventDate time.Time) (*domain.FoundryEvent, error)
	CreateFoundryEvent(ctx context.Context, e *domain.FoundryEvent) error
	UpdateFoundryEvent(ctx context.Context, e *domain.FoundryEvent) error
	InsertFoundrySignup(ctx context.Context, s *domain.FoundrySignup) (bool, error)
	InsertFoundryResult(ctx context.Context, r *domain.FoundryResult) (bool, error)
}

type ACStore interface {
	FindACEvent(ctx context.Context, allianceID int64, weekStart time.Time) (*domain.ACEvent, error)
	CreateACEvent(ctx context.Context, e *domain.ACEvent) error
	UpdateACEvent(ctx context.Context, e *domain.ACEvent) error
	GetACSignup(ctx context.Context, eventID, playerID int64) (*domain.ACSignup, error)
	CreateACSignup(ctx context.Context, s *domain.ACSignup) error
	UpdateACSignup(ctx context.Context, s *domain.ACSignup) error
}

type SnapshotStore interface {
	InsertContribution(ctx context.Context, c *domain.ContributionSnapshot) (bool, error)
	InsertAlliancePower(ctx context.Context, a *domain.AlliancePowerSnapshot) error
}

// OCRRecorder keeps raw vision payloads. It writes outside any ingestion
// session.
type OCRRecorder interface {
	RecordOCRResult(ctx context.Context, r *domain.OCRResult) error
}
