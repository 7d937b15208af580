package upsert

import (
	"context"
	"errors"
	"fmt"

	"alliance-observatory/internal/domain"
	"alliance-observatory/internal/events"
	"alliance-observatory/internal/store"
)

func validTrap(trap *int) (int, error) {
	if trap == nil {
		return 0, fmt.Errorf("could not identify trap number: %w", domain.ErrValidation)
	}
	if *trap != 1 && *trap != 2 {
		return 0, fmt.Errorf("trap number %d out of range: %w", *trap, domain.ErrValidation)
	}
	return *trap, nil
}

// BearDamage records per-player damage against the bear event located
// around the capture time. A re-read of the same screen never lowers a score.
func (u *Upserter) BearDamage(ctx context.Context, s store.Session, c Capture, p domain.BearDamagePayload) (domain.RowCounts, error) {
	counts := domain.RowCounts{Invalid: p.Dropped}
	trap, err := validTrap(p.TrapID)
	if err != nil {
		return counts, err
	}
	if emptyPayload(len(p.Players), p.Dropped) {
		return counts, fmt.Errorf("no damage rows found: %w", domain.ErrValidation)
	}

	located, err := u.locator.LocateBear(ctx, s, c.AllianceID, trap, c.At, events.BearStats{})
	if err != nil {
		return counts, err
	}
	counts.EventID = located.Event.ID
	at := c.At.UTC()

	for _, row := range p.Players {
		if !u.usable(c, row.Name, row, &counts) {
			continue
		}
		player, err := u.resolve(ctx, s, c, row.Name, &counts)
		if err != nil {
			return counts, err
		}
		if player == nil {
			continue
		}

		existing, err := s.GetBearScore(ctx, located.Event.ID, player.ID)
		switch {
		case errors.Is(err, domain.ErrNotFound):
			score := domain.BearScore{
				EventID:    located.Event.ID,
				PlayerID:   player.ID,
				Score:      row.Damage,
				Rank:       row.Rank,
				RecordedAt: at,
			}
			if err := s.CreateBearScore(ctx, &score); err != nil {
				return counts, fmt.Errorf("failed to create bear score for %q: %w", player.Name, err)
			}
			counts.Created++
			continue
		case err != nil:
			return counts, fmt.Errorf("failed to load bear score for %q: %w", player.Name, err)
		}

		rankChanged := row.Rank != nil && (existing.Rank == nil || *existing.Rank != *row.Rank)
		if row.Damage <= existing.Score && !rankChanged {
			counts.Skipped++
			continue
		}
		if row.Damage > existing.Score {
			existing.Score = row.Damage
		}
		if row.Rank != nil {
			existing.Rank = row.Rank
		}
		if at.After(existing.RecordedAt) {
			existing.RecordedAt = at
		}
		if err := s.UpdateBearScore(ctx, existing); err != nil {
			return counts, fmt.Errorf("failed to update bear score for %q: %w", player.Name, err)
		}
		counts.Updated++
	}
	return counts, nil
}

// BearOverview applies the completion screen's header stats to the bear
// event. The capture time is taken as the end of the event.
func (u *Upserter) BearOverview(ctx context.Context, s store.Session, c Capture, p domain.BearOverview) (domain.RowCounts, error) {
	var counts domain.RowCounts
	trap, err := validTrap(p.TrapID)
	if err != nil {
		return counts, err
	}
	at := c.At.UTC()
	located, err := u.locator.LocateBear(ctx, s, c.AllianceID, trap, at, events.BearStats{
		EndedAt:     &at,
		RallyCount:  p.RallyCount,
		TotalDamage: p.TotalDamage,
	})
	if err != nil {
		return counts, err
	}
	counts.EventID = located.Event.ID
	if located.Created {
		counts.Created++
	} else {
		counts.Updated++
	}
	return counts, nil
}
