package upsert

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"alliance-observatory/internal/domain"
	"alliance-observatory/internal/events"
	"alliance-observatory/internal/store"
)

// ACSignup records AC power per player for the capture week. A stored
// signup only changes when the new power is strictly higher.
func (u *Upserter) ACSignup(ctx context.Context, s store.Session, c Capture, p domain.ACSignupPayload) (domain.RowCounts, error) {
	counts := domain.RowCounts{Invalid: p.Dropped}
	if emptyPayload(len(p.Players), p.Dropped) && p.TotalPower == nil {
		return counts, fmt.Errorf("no ac signup data found: %w", domain.ErrValidation)
	}

	located, err := u.locator.LocateAC(ctx, s, c.AllianceID, events.WeekStart(c.At), events.ACStats{
		TotalRegistered: p.TotalRegistered,
		TotalPower:      p.TotalPower,
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
		player, err := u.resolve(ctx, s, c, row.Name, &counts)
		if err != nil {
			return counts, err
		}
		if player == nil {
			continue
		}

		existing, err := s.GetACSignup(ctx, located.Event.ID, player.ID)
		switch {
		case errors.Is(err, domain.ErrNotFound):
			if err := s.CreateACSignup(ctx, &domain.ACSignup{
				EventID:    located.Event.ID,
				PlayerID:   player.ID,
				ACPower:    row.ACPower,
				RecordedAt: at,
			}); err != nil {
				return counts, fmt.Errorf("failed to create ac signup for %q: %w", player.Name, err)
			}
			counts.Created++
			continue
		case err != nil:
			return counts, fmt.Errorf("failed to load ac signup for %q: %w", player.Name, err)
		}

		if row.ACPower <= existing.ACPower {
			counts.Skipped++
			continue
		}
		existing.ACPower = row.ACPower
		existing.RecordedAt = at
		if err := s.UpdateACSignup(ctx, existing); err != nil {
			return counts, fmt.Errorf("failed to update ac signup for %q: %w", player.Name, err)
		}
		counts.Updated++
	}
	return counts, nil
}

// Contribution stores one snapshot per player per capture day within the week.
func (u *Upserter) Contribution(ctx context.Context, s store.Session, c Capture, p domain.ContributionPayload) (domain.RowCounts, error) {
	counts := domain.RowCounts{Invalid: p.Dropped}
	if emptyPayload(len(p.Players), p.Dropped) {
		return counts, fmt.Errorf("no contribution rows found: %w", domain.ErrValidation)
	}
	week, day := events.ContributionWeek(events.WeekStart(c.At), c.At)

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
		inserted, err := s.InsertContribution(ctx, &domain.ContributionSnapshot{
			AllianceID:   c.AllianceID,
			PlayerID:     player.ID,
			Amount:       row.Amount,
			Rank:         row.Rank,
			WeekStart:    week,
			SnapshotDate: day,
		})
		if err != nil {
			return counts, fmt.Errorf("failed to insert contribution for %q: %w", player.Name, err)
		}
		if inserted {
			counts.Created++
		} else {
			counts.Skipped++
		}
	}
	return counts, nil
}

var allianceTag = regexp.MustCompile(`^\[([^\]]+)\]\s*(.*)$`)

// SplitAllianceTag turns "[KIL]ShadowWarriors" into ("KIL", "ShadowWarriors").
func SplitAllianceTag(nameWithTag string) (tag, name string) {
	s := strings.TrimSpace(nameWithTag)
	if m := allianceTag.FindStringSubmatch(s); m != nil {
		return strings.TrimSpace(m[1]), strings.TrimSpace(m[2])
	}
	return "", s
}

// AlliancePower appends a ranking snapshot. Every capture is kept.
func (u *Upserter) AlliancePower(ctx context.Context, s store.Session, c Capture, p domain.AlliancePowerPayload) (domain.RowCounts, error) {
	counts := domain.RowCounts{Invalid: p.Dropped}
	if emptyPayload(len(p.Alliances), p.Dropped) {
		return counts, fmt.Errorf("no alliance rows found: %w", domain.ErrValidation)
	}
	at := c.At.UTC()

	for _, row := range p.Alliances {
		if !u.usable(c, row.NameWithTag, row, &counts) {
			continue
		}
		tag, name := SplitAllianceTag(row.NameWithTag)
		if err := s.InsertAlliancePower(ctx, &domain.AlliancePowerSnapshot{
			AllianceID: c.AllianceID,
			Name:       name,
			Tag:        tag,
			TotalPower: row.TotalPower,
			Rank:       row.Rank,
			CapturedAt: at,
		}); err != nil {
			return counts, fmt.Errorf("failed to insert alliance power for %q: %w", row.NameWithTag, err)
		}
		counts.Created++
	}
	return counts, nil
}
