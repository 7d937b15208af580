package upsert

import (
	"context"
	"fmt"

	"alliance-observatory/internal/domain"
	"alliance-observatory/internal/events"
	"alliance-observatory/internal/store"
)

// Result screens do not show the legion, so it defaults to the first one.
const defaultLegion = 1

func legionOf(legion *int) (int, error) {
	if legion == nil {
		return defaultLegion, nil
	}
	if *legion != 1 && *legion != 2 {
		return 0, fmt.Errorf("legion number %d out of range: %w", *legion, domain.ErrValidation)
	}
	return *legion, nil
}

// FoundrySignup stores the players who joined the legion for the coming
// Sunday's event. Players dispatched to the other legion or not engaged are
// counted as ignored.
func (u *Upserter) FoundrySignup(ctx context.Context, s store.Session, c Capture, p domain.FoundrySignupPayload) (domain.RowCounts, error) {
	counts := domain.RowCounts{Invalid: p.Dropped}
	legion, err := legionOf(p.Legion)
	if err != nil {
		return counts, err
	}
	if emptyPayload(len(p.Players), p.Dropped) && p.TotalTroopPower == nil {
		return counts, fmt.Errorf("no foundry signup data found: %w", domain.ErrValidation)
	}

	located, err := u.locator.LocateFoundry(ctx, s, c.AllianceID, legion, events.NextSunday(c.At), events.FoundryStats{
		TotalTroopPower:    p.TotalTroopPower,
		MaxParticipants:    p.MaxParticipants,
		ActualParticipants: p.ActualParticipants,
	})
	if err != nil {
		return counts, err
	}
	counts.EventID = located.Event.ID
	at := c.At.UTC()

	for _, row := range p.Players {
		if !u.usable(c, row.Name, row, &counts) {
			continue
		}
		switch domain.ParseFoundryStatus(row.Status) {
		case domain.FoundryStatusJoin:
		case domain.FoundryStatusUnrecognized:
			u.logger.Warn().Str("name", row.Name).Str("status", row.Status).Msg("unrecognized foundry signup status")
			counts.Invalid++
			continue
		default:
			counts.Ignored++
			continue
		}

		player, err := u.resolve(ctx, s, c, row.Name, &counts)
		if err != nil {
			return counts, err
		}
		if player == nil {
			continue
		}
		inserted, err := s.InsertFoundrySignup(ctx, &domain.FoundrySignup{
			EventID:      located.Event.ID,
			PlayerID:     player.ID,
			FoundryPower: row.FoundryPower,
			Voted:        row.Voted,
			RecordedAt:   at,
		})
		if err != nil {
			return counts, fmt.Errorf("failed to insert foundry signup for %q: %w", player.Name, err)
		}
		if inserted {
			counts.Created++
		} else {
			counts.Skipped++
		}
	}
	return counts, nil
}

// FoundryResult stores arsenal points for the most recent Sunday's event.
func (u *Upserter) FoundryResult(ctx context.Context, s store.Session, c Capture, p domain.FoundryResultPayload) (domain.RowCounts, error) {
	counts := domain.RowCounts{Invalid: p.Dropped}
	legion, err := legionOf(p.Legion)
	if err != nil {
		return counts, err
	}
	if emptyPayload(len(p.Players), p.Dropped) {
		return counts, fmt.Errorf("no foundry result rows found: %w", domain.ErrValidation)
	}

	located, err := u.locator.LocateFoundry(ctx, s, c.AllianceID, legion, events.PreviousSunday(c.At), events.FoundryStats{})
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
		inserted, err := s.InsertFoundryResult(ctx, &domain.FoundryResult{
			EventID:    located.Event.ID,
			PlayerID:   player.ID,
			Score:      row.Score,
			Rank:       row.Rank,
			RecordedAt: at,
		})
		if err != nil {
			return counts, fmt.Errorf("failed to insert foundry result for %q: %w", player.Name, err)
		}
		if inserted {
			counts.Created++
		} else {
			counts.Skipped++
		}
	}
	return counts, nil
}
