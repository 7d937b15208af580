// Package events finds or creates the event a screenshot belongs to.
package events

import (
	"context"
	"errors"
	"fmt"
	"time"

	"alliance-observatory/internal/domain"
	"alliance-observatory/internal/store"

	"github.com/rs/zerolog"
)

const DefaultBearWindow = 24 * time.Hour

type BearStats struct {
	EndedAt     *time.Time
	RallyCount  *int64
	TotalDamage *int64
}

type FoundryStats struct {
	TotalTroopPower    *int64
	MaxParticipants    *int
	ActualParticipants *int
	TotalScore         *int64
}

type ACStats struct {
	TotalRegistered *int
	TotalPower      *int64
}

type Located[T any] struct {
	Event   T
	Created bool
}

type Locator struct {
	bearWindow time.Duration
	logger     zerolog.Logger
}

func NewLocator(bearWindow time.Duration, logger zerolog.Logger) *Locator {
	if bearWindow <= 0 {
		bearWindow = DefaultBearWindow
	}
	return &Locator{bearWindow: bearWindow, logger: logger}
}

func (l *Locator) BearWindow() time.Duration {
	return l.bearWindow
}

// LocateBear attaches an observation to the most recent bear event for the
// same alliance and trap whose start lies within the window on either side of
// observedAt. started_at only ever moves earlier; supplied header stats
// overwrite stored ones. Two genuine events closer together than the window
// merge into one; MergeBear and SplitBear exist to repair that by hand.
func (l *Locator) LocateBear(ctx context.Context, s store.BearStore, allianceID int64, trapID int, observedAt time.Time, stats BearStats) (Located[domain.BearEvent], error) {
	observedAt = observedAt.UTC()
	candidates, err := s.BearEventsBetween(ctx, allianceID, trapID, observedAt.Add(-l.bearWindow), observedAt.Add(l.bearWindow))
	if err != nil {
		return Located[domain.BearEvent]{}, fmt.Errorf("failed to search bear events: %w", err)
	}

	if len(candidates) == 0 {
		e := domain.BearEvent{
			AllianceID:  allianceID,
			TrapID:      trapID,
			StartedAt:   observedAt,
			EndedAt:     stats.EndedAt,
			RallyCount:  stats.RallyCount,
			TotalDamage: stats.TotalDamage,
		}
		if err := s.CreateBearEvent(ctx, &e); err != nil {
			return Located[domain.BearEvent]{}, fmt.Errorf("failed to create bear event: %w", err)
		}
		l.logger.Debug().
			Int64("event_id", e.ID).
			Int("trap_id", trapID).
			Time("started_at", e.StartedAt).
			Msg("bear event created")
		return Located[domain.BearEvent]{Event: e, Created: true}, nil
	}

	e := candidates[0]
	changed := false
	if observedAt.Before(e.StartedAt) {
		e.StartedAt = observedAt
		changed = true
	}
	if stats.EndedAt != nil {
		e.EndedAt, changed = stats.EndedAt, true
	}
	if stats.RallyCount != nil {
		e.RallyCount, changed = stats.RallyCount, true
	}
	if stats.TotalDamage != nil {
		e.TotalDamage, changed = stats.TotalDamage, true
	}
	if changed {
		if err := s.UpdateBearEvent(ctx, &e); err != nil {
			return Located[domain.BearEvent]{}, fmt.Errorf("failed to update bear event %d: %w", e.ID, err)
		}
	}
	return Located[domain.BearEvent]{Event: e}, nil
}

// LocateFoundry matches on (alliance, legion, event date) exactly.
func (l *Locator) LocateFoundry(ctx context.Context, s store.FoundryStore, allianceID int64, legion int, eventDate time.Time, stats FoundryStats) (Located[domain.FoundryEvent], error) {
	eventDate = MidnightUTC(eventDate)
	e, err := s.FindFoundryEvent(ctx, allianceID, legion, eventDate)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		created := domain.FoundryEvent{
			AllianceID:         allianceID,
			Legion:             legion,
			EventDate:          eventDate,
			TotalTroopPower:    stats.TotalTroopPower,
			MaxParticipants:    stats.MaxParticipants,
			ActualParticipants: stats.ActualParticipants,
			TotalScore:         stats.TotalScore,
		}
		if err := s.CreateFoundryEvent(ctx, &created); err != nil {
			return Located[domain.FoundryEvent]{}, fmt.Errorf("failed to create foundry event: %w", err)
		}
		return Located[domain.FoundryEvent]{Event: created, Created: true}, nil
	case err != nil:
		return Located[domain.FoundryEvent]{}, fmt.Errorf("failed to find foundry event: %w", err)
	}

	changed := false
	if stats.TotalTroopPower != nil {
		e.TotalTroopPower, changed = stats.TotalTroopPower, true
	}
	if stats.MaxParticipants != nil {
		e.MaxParticipants, changed = stats.MaxParticipants, true
	}
	if stats.ActualParticipants != nil {
		e.ActualParticipants, changed = stats.ActualParticipants, true
	}
	if stats.TotalScore != nil {
		e.TotalScore, changed = stats.TotalScore, true
	}
	if changed {
		if err := s.UpdateFoundryEvent(ctx, e); err != nil {
			return Located[domain.FoundryEvent]{}, fmt.Errorf("failed to update foundry event %d: %w", e.ID, err)
		}
	}
	return Located[domain.FoundryEvent]{Event: *e}, nil
}

// LocateAC matches on (alliance, week start) exactly.
func (l *Locator) LocateAC(ctx context.Context, s store.ACStore, allianceID int64, weekStart time.Time, stats ACStats) (Located[domain.ACEvent], error) {
	weekStart = MidnightUTC(weekStart)
	e, err := s.FindACEvent(ctx, allianceID, weekStart)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		created := domain.ACEvent{
			AllianceID:      allianceID,
			WeekStart:       weekStart,
			TotalRegistered: stats.TotalRegistered,
			TotalPower:      stats.TotalPower,
		}
		if err := s.CreateACEvent(ctx, &created); err != nil {
			return Located[domain.ACEvent]{}, fmt.Errorf("failed to create ac event: %w", err)
		}
		return Located[domain.ACEvent]{Event: created, Created: true}, nil
	case err != nil:
		return Located[domain.ACEvent]{}, fmt.Errorf("failed to find ac event: %w", err)
	}

	changed := false
	if stats.TotalRegistered != nil {
		e.TotalRegistered, changed = stats.TotalRegistered, true
	}
	if stats.TotalPower != nil {
		e.TotalPower, changed = stats.TotalPower, true
	}
	if changed {
		if err := s.UpdateACEvent(ctx, e); err != nil {
			return Located[domain.ACEvent]{}, fmt.Errorf("failed to update ac event %d: %w", e.ID, err)
		}
	}
	return Located[domain.ACEvent]{Event: *e}, nil
}

// ContributionWeek returns the exact key for a contribution snapshot: both
// dates truncated to midnight UTC.
func ContributionWeek(weekStart, snapshotDate time.Time) (time.Time, time.Time) {
	return MidnightUTC(weekStart), MidnightUTC(snapshotDate)
}
