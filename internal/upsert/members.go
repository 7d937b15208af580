package upsert

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"alliance-observatory/internal/domain"
	"alliance-observatory/internal/identity"
	"alliance-observatory/internal/store"
)

// AllianceMembers refreshes the roster from a members screen. Players are
// matched by exact name and created when missing; power and furnace history
// rows are insert-once per capture time.
func (u *Upserter) AllianceMembers(ctx context.Context, s store.Session, c Capture, p domain.MembersPayload) (domain.RowCounts, error) {
	counts := domain.RowCounts{Invalid: p.Dropped}
	if emptyPayload(len(p.Players), p.Dropped) {
		return counts, fmt.Errorf("no member cards found: %w", domain.ErrValidation)
	}
	if p.CardCount != nil && *p.CardCount != len(p.Players) {
		u.logger.Warn().
			Int("card_count", *p.CardCount).
			Int("players", len(p.Players)).
			Str("source", c.Source).
			Msg("member card count mismatch")
	}
	at := c.At.UTC()

	for _, row := range p.Players {
		if !u.usable(c, row.Name, row, &counts) {
			continue
		}
		name := identity.StripTag(row.Name)
		power := MemberPower(row)
		furnaceLabel, furnaceLevel, furnaceOK := ParseFurnace(row.Furnace)
		if row.Furnace != nil && !furnaceOK {
			u.logger.Warn().Str("name", name).Str("furnace", *row.Furnace).Msg("unparseable furnace level")
		}

		player, err := s.FindPlayer(ctx, c.AllianceID, name)
		switch {
		case errors.Is(err, domain.ErrNotFound):
			player = &domain.Player{
				AllianceID:   c.AllianceID,
				Name:         name,
				Status:       domain.PlayerActive,
				CurrentPower: power,
				CreatedAt:    at,
				UpdatedAt:    at,
			}
			if furnaceOK {
				player.CurrentFurnace = &furnaceLabel
			}
			if err := s.CreatePlayer(ctx, player); err != nil {
				return counts, fmt.Errorf("failed to create player %q: %w", name, err)
			}
			counts.Created++
		case err != nil:
			return counts, fmt.Errorf("failed to look up player %q: %w", name, err)
		default:
			changed := false
			if power != nil && !int64PtrEqual(player.CurrentPower, power) {
				player.CurrentPower, changed = power, true
			}
			if furnaceOK && (player.CurrentFurnace == nil || *player.CurrentFurnace != furnaceLabel) {
				player.CurrentFurnace, changed = &furnaceLabel, true
			}
			if changed {
				player.UpdatedAt = at
				if err := s.UpdatePlayer(ctx, player); err != nil {
					return counts, fmt.Errorf("failed to update player %q: %w", name, err)
				}
				counts.Updated++
			} else {
				counts.Skipped++
			}
		}

		if power != nil {
			inserted, err := s.InsertPowerHistory(ctx, &domain.PowerHistory{
				PlayerID:   player.ID,
				Power:      *power,
				CapturedAt: at,
				Source:     c.Source,
			})
			if err != nil {
				return counts, fmt.Errorf("failed to insert power history for %q: %w", name, err)
			}
			countHistory(&counts, inserted)
		}
		if furnaceOK {
			inserted, err := s.InsertFurnaceHistory(ctx, &domain.FurnaceHistory{
				PlayerID:     player.ID,
				FurnaceLevel: furnaceLevel,
				FurnaceLabel: furnaceLabel,
				CapturedAt:   at,
				Source:       c.Source,
			})
			if err != nil {
				return counts, fmt.Errorf("failed to insert furnace history for %q: %w", name, err)
			}
			countHistory(&counts, inserted)
		}
	}
	return counts, nil
}

func countHistory(counts *domain.RowCounts, inserted bool) {
	if inserted {
		counts.HistoryCreated++
	} else {
		counts.HistorySkipped++
	}
}

// MemberPower prefers the absolute power and falls back to millions.
func MemberPower(row domain.MemberRow) *int64 {
	if row.Power != nil {
		v := *row.Power
		return &v
	}
	if row.PowerMillions != nil {
		v := int64(math.Round(*row.PowerMillions * 1_000_000))
		return &v
	}
	return nil
}

// ParseFurnace accepts "FC4", "fc 4" and plain "27". The label is the
// normalised display form.
func ParseFurnace(raw *string) (string, int, bool) {
	if raw == nil {
		return "", 0, false
	}
	s := strings.ToUpper(strings.TrimSpace(*raw))
	fc := strings.HasPrefix(s, "FC")
	digits := strings.TrimSpace(strings.TrimPrefix(s, "FC"))
	level, err := strconv.Atoi(digits)
	if err != nil || level <= 0 {
		return "", 0, false
	}
	if fc {
		return "FC" + strconv.Itoa(level), level, true
	}
	return strconv.Itoa(level), level, true
}

func int64PtrEqual(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
