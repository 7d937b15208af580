package events

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"alliance-observatory/internal/domain"
	"alliance-observatory/internal/store"
)

type AdminReport struct {
	EventID       int64   `json:"event_id"`
	ScoresMoved   int     `json:"scores_moved"`
	ScoresMerged  int     `json:"scores_merged"`
	EventsDeleted []int64 `json:"events_deleted,omitempty"`
	EventCreated  int64   `json:"event_created,omitempty"`
}

// MergeBear folds duplicate bear events into primary. For a player present in
// both, the higher score and the newest non-null rank survive.
func (l *Locator) MergeBear(ctx context.Context, s store.BearStore, primaryID int64, duplicateIDs []int64) (AdminReport, error) {
	report := AdminReport{EventID: primaryID}
	primary, err := s.GetBearEvent(ctx, primaryID)
	if err != nil {
		return report, fmt.Errorf("failed to load primary bear event %d: %w", primaryID, err)
	}

	for _, dupID := range duplicateIDs {
		if dupID == primaryID {
			continue
		}
		dup, err := s.GetBearEvent(ctx, dupID)
		if err != nil {
			return report, fmt.Errorf("failed to load bear event %d: %w", dupID, err)
		}
		if dup.AllianceID != primary.AllianceID || dup.TrapID != primary.TrapID {
			return report, fmt.Errorf("bear event %d is not the same alliance and trap as %d: %w", dupID, primaryID, domain.ErrValidation)
		}

		scores, err := s.ListBearScores(ctx, dupID)
		if err != nil {
			return report, fmt.Errorf("failed to list scores of bear event %d: %w", dupID, err)
		}
		for _, sc := range scores {
			existing, err := s.GetBearScore(ctx, primaryID, sc.PlayerID)
			switch {
			case errors.Is(err, domain.ErrNotFound):
				sc.EventID = primaryID
				if err := s.UpdateBearScore(ctx, &sc); err != nil {
					return report, fmt.Errorf("failed to move bear score %d: %w", sc.ID, err)
				}
				report.ScoresMoved++
				continue
			case err != nil:
				return report, fmt.Errorf("failed to load bear score: %w", err)
			}

			merged := mergeScores(*existing, sc)
			if err := s.UpdateBearScore(ctx, &merged); err != nil {
				return report, fmt.Errorf("failed to merge bear score %d: %w", existing.ID, err)
			}
			if err := s.DeleteBearScore(ctx, sc.ID); err != nil {
				return report, fmt.Errorf("failed to delete bear score %d: %w", sc.ID, err)
			}
			report.ScoresMerged++
		}

		if dup.StartedAt.Before(primary.StartedAt) {
			primary.StartedAt = dup.StartedAt
		}
		if primary.EndedAt == nil {
			primary.EndedAt = dup.EndedAt
		}
		if primary.RallyCount == nil {
			primary.RallyCount = dup.RallyCount
		}
		if primary.TotalDamage == nil {
			primary.TotalDamage = dup.TotalDamage
		}
		if err := s.DeleteBearEvent(ctx, dupID); err != nil {
			return report, fmt.Errorf("failed to delete bear event %d: %w", dupID, err)
		}
		report.EventsDeleted = append(report.EventsDeleted, dupID)
	}

	if err := s.UpdateBearEvent(ctx, primary); err != nil {
		return report, fmt.Errorf("failed to update primary bear event %d: %w", primaryID, err)
	}
	l.logger.Info().
		Int64("event_id", primaryID).
		Int("scores_moved", report.ScoresMoved).
		Int("scores_merged", report.ScoresMerged).
		Int("events_deleted", len(report.EventsDeleted)).
		Msg("bear events merged")
	return report, nil
}

func mergeScores(kept, other domain.BearScore) domain.BearScore {
	newer, older := other, kept
	if kept.RecordedAt.After(other.RecordedAt) {
		newer, older = kept, other
	}
	if other.Score > kept.Score {
		kept.Score = other.Score
	}
	kept.Rank = older.Rank
	if newer.Rank != nil {
		kept.Rank = newer.Rank
	}
	kept.RecordedAt = newer.RecordedAt
	return kept
}

// SplitBear moves every score recorded at or after `at` into a new event of the
// same alliance and trap. The new event starts at the earliest moved score.
func (l *Locator) SplitBear(ctx context.Context, s store.BearStore, eventID int64, at time.Time) (AdminReport, error) {
	report := AdminReport{EventID: eventID}
	at = at.UTC()
	source, err := s.GetBearEvent(ctx, eventID)
	if err != nil {
		return report, fmt.Errorf("failed to load bear event %d: %w", eventID, err)
	}

	scores, err := s.ListBearScores(ctx, eventID)
	if err != nil {
		return report, fmt.Errorf("failed to list scores of bear event %d: %w", eventID, err)
	}
	var moving []domain.BearScore
	for _, sc := range scores {
		if !sc.RecordedAt.Before(at) {
			moving = append(moving, sc)
		}
	}
	if len(moving) == 0 {
		return report, fmt.Errorf("no scores of bear event %d recorded at or after %s: %w", eventID, at.Format(time.RFC3339), domain.ErrValidation)
	}
	if len(moving) == len(scores) {
		return report, fmt.Errorf("split point would move every score of bear event %d: %w", eventID, domain.ErrValidation)
	}
	sort.Slice(moving, func(i, j int) bool { return moving[i].RecordedAt.Before(moving[j].RecordedAt) })

	split := domain.BearEvent{
		AllianceID: source.AllianceID,
		TrapID:     source.TrapID,
		StartedAt:  moving[0].RecordedAt,
	}
	if err := s.CreateBearEvent(ctx, &split); err != nil {
		return report, fmt.Errorf("failed to create split bear event: %w", err)
	}
	for _, sc := range moving {
		sc.EventID = split.ID
		if err := s.UpdateBearScore(ctx, &sc); err != nil {
			return report, fmt.Errorf("failed to move bear score %d: %w", sc.ID, err)
		}
		report.ScoresMoved++
	}
	report.EventCreated = split.ID

	l.logger.Info().
		Int64("event_id", eventID).
		Int64("split_event_id", split.ID).
		Int("scores_moved", report.ScoresMoved).
		Msg("bear event split")
	return report, nil
}
