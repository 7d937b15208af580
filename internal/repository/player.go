package repository

import (
	"context"
	"database/sql"
	"fmt"

	"alliance-observatory/internal/db"
	"alliance-observatory/internal/domain"
)

func toPlayer(p db.Player) domain.Player {
	return domain.Player{
		ID:             p.ID,
		AllianceID:     p.AllianceID,
		Name:           p.Name,
		Status:         domain.PlayerStatus(p.Status),
		CurrentPower:   int64Ptr(p.CurrentPower),
		CurrentFurnace: stringPtr(p.CurrentFurnace),
		CreatedAt:      parseTime(p.CreatedAt),
		UpdatedAt:      parseTime(p.UpdatedAt),
	}
}

func (s *session) FindPlayer(ctx context.Context, allianceID int64, name string) (*domain.Player, error) {
	row, err := s.queries.GetPlayerByName(ctx, allianceID, name)
	if err != nil {
		return nil, notFound(err, fmt.Sprintf("player %q", name))
	}
	p := toPlayer(row)
	return &p, nil
}

func (s *session) ListPlayers(ctx context.Context, allianceID int64) ([]domain.Player, error) {
	rows, err := s.queries.ListPlayers(ctx, allianceID)
	if err != nil {
		s.logger.Error().Err(err).Int64("alliance_id", allianceID).Msg("failed to list players")
		return nil, fmt.Errorf("failed to list players: %w", err)
	}
	players := make([]domain.Player, len(rows))
	for i, row := range rows {
		players[i] = toPlayer(row)
	}
	return players, nil
}

func (s *session) CreatePlayer(ctx context.Context, p *domain.Player) error {
	if p.Status == "" {
		p.Status = domain.PlayerActive
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now()
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = p.CreatedAt
	}
	id, err := s.queries.InsertPlayer(ctx, db.InsertPlayerParams{
		AllianceID:     p.AllianceID,
		Name:           p.Name,
		Status:         string(p.Status),
		CurrentPower:   nullInt(p.CurrentPower),
		CurrentFurnace: nullString(p.CurrentFurnace),
		CreatedAt:      formatTime(p.CreatedAt),
		UpdatedAt:      formatTime(p.UpdatedAt),
	})
	if err != nil {
		s.logger.Error().Err(err).Str("name", p.Name).Msg("failed to create player")
		return fmt.Errorf("failed to create player %q: %w", p.Name, err)
	}
	p.ID = id
	return nil
}

func (s *session) UpdatePlayer(ctx context.Context, p *domain.Player) error {
	p.UpdatedAt = now()
	res, err := s.queries.UpdatePlayer(ctx, db.UpdatePlayerParams{
		Name:           p.Name,
		Status:         string(p.Status),
		CurrentPower:   nullInt(p.CurrentPower),
		CurrentFurnace: nullString(p.CurrentFurnace),
		UpdatedAt:      formatTime(p.UpdatedAt),
		ID:             p.ID,
	})
	return affected(res, err, fmt.Sprintf("player %d", p.ID))
}

func (s *session) InsertPowerHistory(ctx context.Context, h *domain.PowerHistory) (bool, error) {
	ok, err := inserted(s.queries.InsertPowerHistory(ctx, db.InsertPowerHistoryParams{
		PlayerID:   h.PlayerID,
		Power:      h.Power,
		CapturedAt: formatTime(h.CapturedAt),
		Source:     h.Source,
	}))
	if err != nil {
		return false, fmt.Errorf("failed to insert power history for player %d: %w", h.PlayerID, err)
	}
	return ok, nil
}

func (s *session) InsertFurnaceHistory(ctx context.Context, h *domain.FurnaceHistory) (bool, error) {
	ok, err := inserted(s.queries.InsertFurnaceHistory(ctx, db.InsertFurnaceHistoryParams{
		PlayerID:     h.PlayerID,
		FurnaceLevel: int64(h.FurnaceLevel),
		FurnaceLabel: h.FurnaceLabel,
		CapturedAt:   formatTime(h.CapturedAt),
		Source:       h.Source,
	}))
	if err != nil {
		return false, fmt.Errorf("failed to insert furnace history for player %d: %w", h.PlayerID, err)
	}
	return ok, nil
}

func (s *session) GetPlayer(ctx context.Context, id int64) (*domain.Player, error) {
	row, err := s.queries.GetPlayer(ctx, id)
	if err != nil {
		return nil, notFound(err, fmt.Sprintf("player %d", id))
	}
	p := toPlayer(row)
	return &p, nil
}

func (s *session) DeletePlayer(ctx context.Context, id int64) error {
	res, err := s.queries.DeletePlayer(ctx, id)
	return affected(res, err, fmt.Sprintf("player %d", id))
}

func (s *session) MovePlayerRecords(ctx context.Context, fromID, toID int64) (domain.MergeCounts, error) {
	var counts domain.MergeCounts
	folds := []func(context.Context, int64, int64) (sql.Result, error){
		s.queries.FoldBearScores,
		s.queries.FoldFoundrySignups,
		s.queries.FoldFoundryResults,
		s.queries.FoldACSignups,
	}
	for _, fold := range folds {
		if _, err := fold(ctx, toID, fromID); err != nil {
			return counts, fmt.Errorf("failed to fold rows of player %d into %d: %w", fromID, toID, err)
		}
	}

	for _, table := range db.PlayerTables {
		moved, err := rowsAffected(s.queries.ReassignPlayerRows(ctx, table, toID, fromID))
		if err != nil {
			return counts, fmt.Errorf("failed to move %s rows of player %d: %w", table, fromID, err)
		}
		folded, err := rowsAffected(s.queries.DeletePlayerRows(ctx, table, fromID))
		if err != nil {
			return counts, fmt.Errorf("failed to drop %s rows of player %d: %w", table, fromID, err)
		}
		counts.Moved += moved
		counts.Folded += folded
		s.logger.Debug().
			Str("table", table).
			Int64("from_player_id", fromID).
			Int64("to_player_id", toID).
			Int("moved", moved).
			Int("folded", folded).
			Msg("player rows merged")
	}
	return counts, nil
}
