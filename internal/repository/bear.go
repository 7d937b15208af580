package repository

import (
	"context"
	"fmt"
	"time"

	"alliance-observatory/internal/db"
	"alliance-observatory/internal/domain"
)

func toBearEvent(e db.BearEvent) domain.BearEvent {
	return domain.BearEvent{
		ID:          e.ID,
		AllianceID:  e.AllianceID,
		TrapID:      int(e.TrapID),
		StartedAt:   parseTime(e.StartedAt),
		EndedAt:     timePtr(e.EndedAt),
		RallyCount:  int64Ptr(e.RallyCount),
		TotalDamage: int64Ptr(e.TotalDamage),
	}
}

func toBearEvents(rows []db.BearEvent) []domain.BearEvent {
	events := make([]domain.BearEvent, len(rows))
	for i, row := range rows {
		events[i] = toBearEvent(row)
	}
	return events
}

func toBearScore(s db.BearScore) domain.BearScore {
	return domain.BearScore{
		ID:         s.ID,
		EventID:    s.BearEventID,
		PlayerID:   s.PlayerID,
		Score:      s.Score,
		Rank:       intPtr(s.Rank),
		RecordedAt: parseTime(s.RecordedAt),
	}
}

func (s *session) BearEventsBetween(ctx context.Context, allianceID int64, trapID int, from, to time.Time) ([]domain.BearEvent, error) {
	rows, err := s.queries.ListBearEventsBetween(ctx, db.ListBearEventsBetweenParams{
		AllianceID: allianceID,
		TrapID:     int64(trapID),
		From:       formatTime(from),
		To:         formatTime(to),
	})
	if err != nil {
		s.logger.Error().
			Err(err).
			Int64("alliance_id", allianceID).
			Int("trap_id", trapID).
			Msg("failed to query bear events")
		return nil, fmt.Errorf("failed to query bear events: %w", err)
	}
	return toBearEvents(rows), nil
}

func (s *session) ListBearEvents(ctx context.Context, allianceID int64, limit int) ([]domain.BearEvent, error) {
	rows, err := s.queries.ListBearEvents(ctx, allianceID, int64(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to list bear events: %w", err)
	}
	return toBearEvents(rows), nil
}

func (s *session) GetBearEvent(ctx context.Context, id int64) (*domain.BearEvent, error) {
	row, err := s.queries.GetBearEvent(ctx, id)
	if err != nil {
		return nil, notFound(err, fmt.Sprintf("bear event %d", id))
	}
	e := toBearEvent(row)
	return &e, nil
}

func (s *session) CreateBearEvent(ctx context.Context, e *domain.BearEvent) error {
	id, err := s.queries.InsertBearEvent(ctx, db.InsertBearEventParams{
		AllianceID:  e.AllianceID,
		TrapID:      int64(e.TrapID),
		StartedAt:   formatTime(e.StartedAt),
		EndedAt:     nullTime(e.EndedAt),
		RallyCount:  nullInt(e.RallyCount),
		TotalDamage: nullInt(e.TotalDamage),
	})
	if err != nil {
		return fmt.Errorf("failed to create bear event: %w", err)
	}
	e.ID = id
	return nil
}

func (s *session) UpdateBearEvent(ctx context.Context, e *domain.BearEvent) error {
	res, err := s.queries.UpdateBearEvent(ctx, db.UpdateBearEventParams{
		StartedAt:   formatTime(e.StartedAt),
		EndedAt:     nullTime(e.EndedAt),
		RallyCount:  nullInt(e.RallyCount),
		TotalDamage: nullInt(e.TotalDamage),
		ID:          e.ID,
	})
	return affected(res, err, fmt.Sprintf("bear event %d", e.ID))
}

func (s *session) DeleteBearEvent(ctx context.Context, id int64) error {
	res, err := s.queries.DeleteBearEvent(ctx, id)
	return affected(res, err, fmt.Sprintf("bear event %d", id))
}

func (s *session) GetBearScore(ctx context.Context, eventID, playerID int64) (*domain.BearScore, error) {
	row, err := s.queries.GetBearScore(ctx, eventID, playerID)
	if err != nil {
		return nil, notFound(err, fmt.Sprintf("bear score of player %d in event %d", playerID, eventID))
	}
	sc := toBearScore(row)
	return &sc, nil
}

func (s *session) ListBearScores(ctx context.Context, eventID int64) ([]domain.BearScore, error) {
	rows, err := s.queries.ListBearScores(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to list bear scores: %w", err)
	}
	scores := make([]domain.BearScore, len(rows))
	for i, row := range rows {
		scores[i] = toBearScore(row)
	}
	return scores, nil
}

func (s *session) CreateBearScore(ctx context.Context, sc *domain.BearScore) error {
	id, err := s.queries.InsertBearScore(ctx, db.InsertBearScoreParams{
		BearEventID: sc.EventID,
		PlayerID:    sc.PlayerID,
		Score:       sc.Score,
		Rank:        nullInt(sc.Rank),
		RecordedAt:  formatTime(sc.RecordedAt),
	})
	if err != nil {
		return fmt.Errorf("failed to create bear score: %w", err)
	}
	sc.ID = id
	return nil
}

func (s *session) UpdateBearScore(ctx context.Context, sc *domain.BearScore) error {
	res, err := s.queries.UpdateBearScore(ctx, db.UpdateBearScoreParams{
		BearEventID: sc.EventID,
		Score:       sc.Score,
		Rank:        nullInt(sc.Rank),
		RecordedAt:  formatTime(sc.RecordedAt),
		ID:          sc.ID,
	})
	return affected(res, err, fmt.Sprintf("bear score %d", sc.ID))
}

func (s *session) DeleteBearScore(ctx context.Context, id int64) error {
	res, err := s.queries.DeleteBearScore(ctx, id)
	return affected(res, err, fmt.Sprintf("bear score %d", id))
}
