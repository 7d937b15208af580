package repository

import (
	"context"
	"fmt"
	"time"

	"alliance-observatory/internal/db"
	"alliance-observatory/internal/domain"
)

func (s *session) FindFoundryEvent(ctx context.Context, allianceID int64, legion int, eventDate time.Time) (*domain.FoundryEvent, error) {
	row, err := s.queries.GetFoundryEvent(ctx, db.GetFoundryEventParams{
		AllianceID:   allianceID,
		LegionNumber: int64(legion),
		EventDate:    formatTime(eventDate),
	})
	if err != nil {
		return nil, notFound(err, fmt.Sprintf("foundry event legion %d on %s", legion, eventDate.Format(time.DateOnly)))
	}
	return &domain.FoundryEvent{
		ID:                 row.ID,
		AllianceID:         row.AllianceID,
		Legion:             int(row.LegionNumber),
		EventDate:          parseTime(row.EventDate),
		TotalTroopPower:    int64Ptr(row.TotalTroopPower),
		MaxParticipants:    intPtr(row.MaxParticipants),
		ActualParticipants: intPtr(row.ActualParticipants),
		TotalScore:         int64Ptr(row.TotalScore),
	}, nil
}

func (s *session) CreateFoundryEvent(ctx context.Context, e *domain.FoundryEvent) error {
	id, err := s.queries.InsertFoundryEvent(ctx, db.InsertFoundryEventParams{
		AllianceID:         e.AllianceID,
		LegionNumber:       int64(e.Legion),
		EventDate:          formatTime(e.EventDate),
		TotalTroopPower:    nullInt(e.TotalTroopPower),
		MaxParticipants:    nullInt(e.MaxParticipants),
		ActualParticipants: nullInt(e.ActualParticipants),
		TotalScore:         nullInt(e.TotalScore),
	})
	if err != nil {
		return fmt.Errorf("failed to create foundry event: %w", err)
	}
	e.ID = id
	return nil
}

func (s *session) UpdateFoundryEvent(ctx context.Context, e *domain.FoundryEvent) error {
	res, err := s.queries.UpdateFoundryEvent(ctx, db.UpdateFoundryEventParams{
		TotalTroopPower:    nullInt(e.TotalTroopPower),
		MaxParticipants:    nullInt(e.MaxParticipants),
		ActualParticipants: nullInt(e.ActualParticipants),
		TotalScore:         nullInt(e.TotalScore),
		ID:                 e.ID,
	})
	return affected(res, err, fmt.Sprintf("foundry event %d", e.ID))
}

func (s *session) InsertFoundrySignup(ctx context.Context, fs *domain.FoundrySignup) (bool, error) {
	ok, err := inserted(s.queries.InsertFoundrySignup(ctx, db.InsertFoundrySignupParams{
		FoundryEventID: fs.EventID,
		PlayerID:       fs.PlayerID,
		FoundryPower:   fs.FoundryPower,
		Voted:          fs.Voted,
		RecordedAt:     formatTime(fs.RecordedAt),
	}))
	if err != nil {
		return false, fmt.Errorf("failed to insert foundry signup: %w", err)
	}
	return ok, nil
}

func (s *session) InsertFoundryResult(ctx context.Context, r *domain.FoundryResult) (bool, error) {
	ok, err := inserted(s.queries.InsertFoundryResult(ctx, db.InsertFoundryResultParams{
		FoundryEventID: r.EventID,
		PlayerID:       r.PlayerID,
		Score:          r.Score,
		Rank:           nullInt(r.Rank),
		RecordedAt:     formatTime(r.RecordedAt),
	}))
	if err != nil {
		return false, fmt.Errorf("failed to insert foundry result: %w", err)
	}
	return ok, nil
}

func (s *session) FindACEvent(ctx context.Context, allianceID int64, weekStart time.Time) (*domain.ACEvent, error) {
	row, err := s.queries.GetAcEvent(ctx, allianceID, formatTime(weekStart))
	if err != nil {
		return nil, notFound(err, fmt.Sprintf("ac event of week %s", weekStart.Format(time.DateOnly)))
	}
	return &domain.ACEvent{
		ID:              row.ID,
		AllianceID:      row.AllianceID,
		WeekStart:       parseTime(row.WeekStartDate),
		TotalRegistered: intPtr(row.TotalRegistered),
		TotalPower:      int64Ptr(row.TotalPower),
	}, nil
}

func (s *session) CreateACEvent(ctx context.Context, e *domain.ACEvent) error {
	id, err := s.queries.InsertAcEvent(ctx, db.InsertAcEventParams{
		AllianceID:      e.AllianceID,
		WeekStartDate:   formatTime(e.WeekStart),
		TotalRegistered: nullInt(e.TotalRegistered),
		TotalPower:      nullInt(e.TotalPower),
	})
	if err != nil {
		return fmt.Errorf("failed to create ac event: %w", err)
	}
	e.ID = id
	return nil
}

func (s *session) UpdateACEvent(ctx context.Context, e *domain.ACEvent) error {
	res, err := s.queries.UpdateAcEvent(ctx, db.UpdateAcEventParams{
		TotalRegistered: nullInt(e.TotalRegistered),
		TotalPower:      nullInt(e.TotalPower),
		ID:              e.ID,
	})
	return affected(res, err, fmt.Sprintf("ac event %d", e.ID))
}

func (s *session) GetACSignup(ctx context.Context, eventID, playerID int64) (*domain.ACSignup, error) {
	row, err := s.queries.GetAcSignup(ctx, eventID, playerID)
	if err != nil {
		return nil, notFound(err, fmt.Sprintf("ac signup of player %d in event %d", playerID, eventID))
	}
	return &domain.ACSignup{
		ID:         row.ID,
		EventID:    row.AcEventID,
		PlayerID:   row.PlayerID,
		ACPower:    row.AcPower,
		RecordedAt: parseTime(row.RecordedAt),
	}, nil
}

func (s *session) CreateACSignup(ctx context.Context, sg *domain.ACSignup) error {
	id, err := s.queries.InsertAcSignup(ctx, db.InsertAcSignupParams{
		AcEventID:  sg.EventID,
		PlayerID:   sg.PlayerID,
		AcPower:    sg.ACPower,
		RecordedAt: formatTime(sg.RecordedAt),
	})
	if err != nil {
		return fmt.Errorf("failed to create ac signup: %w", err)
	}
	sg.ID = id
	return nil
}

func (s *session) UpdateACSignup(ctx context.Context, sg *domain.ACSignup) error {
	res, err := s.queries.UpdateAcSignup(ctx, db.UpdateAcSignupParams{
		AcPower:    sg.ACPower,
		RecordedAt: formatTime(sg.RecordedAt),
		ID:         sg.ID,
	})
	return affected(res, err, fmt.Sprintf("ac signup %d", sg.ID))
}

func (s *session) InsertContribution(ctx context.Context, c *domain.ContributionSnapshot) (bool, error) {
	ok, err := inserted(s.queries.InsertContributionSnapshot(ctx, db.InsertContributionSnapshotParams{
		AllianceID:         c.AllianceID,
		PlayerID:           c.PlayerID,
		ContributionAmount: c.Amount,
		Rank:               nullInt(c.Rank),
		WeekStartDate:      formatTime(c.WeekStart),
		SnapshotDate:       formatTime(c.SnapshotDate),
	}))
	if err != nil {
		return false, fmt.Errorf("failed to insert contribution snapshot: %w", err)
	}
	return ok, nil
}

func (s *session) InsertAlliancePower(ctx context.Context, a *domain.AlliancePowerSnapshot) error {
	id, err := s.queries.InsertAlliancePowerSnapshot(ctx, db.InsertAlliancePowerSnapshotParams{
		AllianceID: a.AllianceID,
		Name:       a.Name,
		Tag:        a.Tag,
		TotalPower: a.TotalPower,
		Rank:       nullInt(a.Rank),
		CapturedAt: formatTime(a.CapturedAt),
	})
	if err != nil {
		return fmt.Errorf("failed to insert alliance power snapshot: %w", err)
	}
	a.ID = id
	return nil
}
