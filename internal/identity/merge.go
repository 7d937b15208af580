package identity

import (
	"context"
	"fmt"

	"alliance-observatory/internal/domain"
	"alliance-observatory/internal/store"
)

type MergeReport struct {
	Kept   domain.Player      `json:"kept"`
	Merged []domain.Player    `json:"merged"`
	Rows   domain.MergeCounts `json:"rows"`
}

// MergePlayers folds duplicate roster entries into keepID and deletes them.
// Every history, score, signup and contribution row moves to the kept player;
// collisions are resolved the way ingestion resolves a repeated write. The
// kept player adopts current power and furnace only where it has none.
func MergePlayers(ctx context.Context, s store.PlayerStore, keepID int64, mergeIDs []int64) (MergeReport, error) {
	var report MergeReport
	if len(mergeIDs) == 0 {
		return report, fmt.Errorf("no players to merge into %d: %w", keepID, domain.ErrValidation)
	}
	kept, err := s.GetPlayer(ctx, keepID)
	if err != nil {
		return report, fmt.Errorf("failed to load player %d: %w", keepID, err)
	}

	seen := map[int64]bool{keepID: true}
	adopted := false
	for _, id := range mergeIDs {
		if seen[id] {
			return report, fmt.Errorf("player %d listed twice or merged into itself: %w", id, domain.ErrValidation)
		}
		seen[id] = true

		dup, err := s.GetPlayer(ctx, id)
		if err != nil {
			return report, fmt.Errorf("failed to load player %d: %w", id, err)
		}
		if dup.AllianceID != kept.AllianceID {
			return report, fmt.Errorf("player %d is not in the same alliance as %d: %w", id, keepID, domain.ErrValidation)
		}

		counts, err := s.MovePlayerRecords(ctx, id, keepID)
		if err != nil {
			return report, err
		}
		if err := s.DeletePlayer(ctx, id); err != nil {
			return report, fmt.Errorf("failed to delete player %d: %w", id, err)
		}
		report.Rows.Moved += counts.Moved
		report.Rows.Folded += counts.Folded
		report.Merged = append(report.Merged, *dup)

		if kept.CurrentPower == nil && dup.CurrentPower != nil {
			kept.CurrentPower = dup.CurrentPower
			adopted = true
		}
		if kept.CurrentFurnace == nil && dup.CurrentFurnace != nil {
			kept.CurrentFurnace = dup.CurrentFurnace
			adopted = true
		}
	}

	if adopted {
		if err := s.UpdatePlayer(ctx, kept); err != nil {
			return report, fmt.Errorf("failed to update player %d: %w", keepID, err)
		}
	}
	report.Kept = *kept
	return report, nil
}
