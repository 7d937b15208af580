package db

import (
	"context"
	"database/sql"
)

const foundryEventColumns = `id, alliance_id, legion_number, event_date, total_troop_power, max_participants, actual_participants, total_score`

const getFoundryEvent = `-- name: GetFoundryEvent :one
SELECT ` + foundryEventColumns + ` FROM foundry_events
WHERE alliance_id = ? AND legion_number = ? AND event_date = ?
`

type GetFoundryEventParams struct {
	AllianceID   int64
	LegionNumber int64
	EventDate    string
}

func (q *Queries) GetFoundryEvent(ctx context.Context, arg GetFoundryEventParams) (FoundryEvent, error) {
	row := q.db.QueryRowContext(ctx, getFoundryEvent, arg.AllianceID, arg.LegionNumber, arg.EventDate)
	var e FoundryEvent
	err := row.Scan(
		&e.ID,
		&e.AllianceID,
		&e.LegionNumber,
		&e.EventDate,
		&e.TotalTroopPower,
		&e.MaxParticipants,
		&e.ActualParticipants,
		&e.TotalScore,
	)
	return e, err
}

const insertFoundryEvent = `-- name: InsertFoundryEvent :one
INSERT INTO foundry_events (alliance_id, legion_number, event_date, total_troop_power, max_participants, actual_participants, total_score)
VALUES (?, ?, ?, ?, ?, ?, ?)
RETURNING id
`

type InsertFoundryEventParams struct {
	AllianceID         int64
	LegionNumber       int64
	EventDate          string
	TotalTroopPower    sql.NullInt64
	MaxParticipants    sql.NullInt64
	ActualParticipants sql.NullInt64
	TotalScore         sql.NullInt64
}

func (q *Queries) InsertFoundryEvent(ctx context.Context, arg InsertFoundryEventParams) (int64, error) {
	row := q.db.QueryRowContext(ctx, insertFoundryEvent,
		arg.AllianceID,
		arg.LegionNumber,
		arg.EventDate,
		arg.TotalTroopPower,
		arg.MaxParticipants,
		arg.ActualParticipants,
		arg.TotalScore,
	)
	var id int64
	err := row.Scan(&id)
	return id, err
}

const updateFoundryEvent = `-- name: UpdateFoundryEvent :execresult
UPDATE foundry_events
SET total_troop_power = ?, max_participants = ?, actual_participants = ?, total_score = ?
WHERE id = ?
`

type UpdateFoundryEventParams struct {
	TotalTroopPower    sql.NullInt64
	MaxParticipants    sql.NullInt64
	ActualParticipants sql.NullInt64
	TotalScore         sql.NullInt64
	ID                 int64
}

func (q *Queries) UpdateFoundryEvent(ctx context.Context, arg UpdateFoundryEventParams) (sql.Result, error) {
	return q.db.ExecContext(ctx, updateFoundryEvent,
		arg.TotalTroopPower,
		arg.MaxParticipants,
		arg.ActualParticipants,
		arg.TotalScore,
		arg.ID,
	)
}

const insertFoundrySignup = `-- name: InsertFoundrySignup :execresult
INSERT INTO foundry_signups (foundry_event_id, player_id, foundry_power, voted, recorded_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT (foundry_event_id, player_id) DO NOTHING
`

type InsertFoundrySignupParams struct {
	FoundryEventID int64
	PlayerID       int64
	FoundryPower   int64
	Voted          bool
	RecordedAt     string
}

func (q *Queries) InsertFoundrySignup(ctx context.Context, arg InsertFoundrySignupParams) (sql.Result, error) {
	return q.db.ExecContext(ctx, insertFoundrySignup,
		arg.FoundryEventID,
		arg.PlayerID,
		arg.FoundryPower,
		arg.Voted,
		arg.RecordedAt,
	)
}

const insertFoundryResult = `-- name: InsertFoundryResult :execresult
INSERT INTO foundry_results (foundry_event_id, player_id, score, rank, recorded_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT (foundry_event_id, player_id) DO NOTHING
`

type InsertFoundryResultParams struct {
	FoundryEventID int64
	PlayerID       int64
	Score          int64
	Rank           sql.NullInt64
	RecordedAt     string
}

func (q *Queries) InsertFoundryResult(ctx context.Context, arg InsertFoundryResultParams) (sql.Result, error) {
	return q.db.ExecContext(ctx, insertFoundryResult,
		arg.FoundryEventID,
		arg.PlayerID,
		arg.Score,
		arg.Rank,
		arg.RecordedAt,
	)
}

const getAcEvent = `-- name: GetAcEvent :one
SELECT id, alliance_id, week_start_date, total_registered, total_power FROM ac_events
WHERE alliance_id = ? AND week_start_date = ?
`

func (q *Queries) GetAcEvent(ctx context.Context, allianceID int64, weekStartDate string) (AcEvent, error) {
	row := q.db.QueryRowContext(ctx, getAcEvent, allianceID, weekStartDate)
	var e AcEvent
	err := row.Scan(
		&e.ID,
		&e.AllianceID,
		&e.WeekStartDate,
		&e.TotalRegistered,
		&e.TotalPower,
	)
	return e, err
}

const insertAcEvent = `-- name: InsertAcEvent :one
INSERT INTO ac_events (alliance_id, week_start_date, total_registered, total_power)
VALUES (?, ?, ?, ?)
RETURNING id
`

type InsertAcEventParams struct {
	AllianceID      int64
	WeekStartDate   string
	TotalRegistered sql.NullInt64
	TotalPower      sql.NullInt64
}

func (q *Queries) InsertAcEvent(ctx context.Context, arg InsertAcEventParams) (int64, error) {
	row := q.db.QueryRowContext(ctx, insertAcEvent,
		arg.AllianceID,
		arg.WeekStartDate,
		arg.TotalRegistered,
		arg.TotalPower,
	)
	var id int64
	err := row.Scan(&id)
	return id, err
}

const updateAcEvent = `-- name: UpdateAcEvent :execresult
UPDATE ac_events SET total_registered = ?, total_power = ? WHERE id = ?
`

type UpdateAcEventParams struct {
	TotalRegistered sql.NullInt64
	TotalPower      sql.NullInt64
	ID              int64
}

func (q *Queries) UpdateAcEvent(ctx context.Context, arg UpdateAcEventParams) (sql.Result, error) {
	return q.db.ExecContext(ctx, updateAcEvent, arg.TotalRegistered, arg.TotalPower, arg.ID)
}

const getAcSignup = `-- name: GetAcSignup :one
SELECT id, ac_event_id, player_id, ac_power, recorded_at FROM ac_signups
WHERE ac_event_id = ? AND player_id = ?
`

func (q *Queries) GetAcSignup(ctx context.Context, eventID, playerID int64) (AcSignup, error) {
	row := q.db.QueryRowContext(ctx, getAcSignup, eventID, playerID)
	var s AcSignup
	err := row.Scan(
		&s.ID,
		&s.AcEventID,
		&s.PlayerID,
		&s.AcPower,
		&s.RecordedAt,
	)
	return s, err
}

const insertAcSignup = `-- name: InsertAcSignup :one
INSERT INTO ac_signups (ac_event_id, player_id, ac_power, recorded_at)
VALUES (?, ?, ?, ?)
RETURNING id
`

type InsertAcSignupParams struct {
	AcEventID  int64
	PlayerID   int64
	AcPower    int64
	RecordedAt string
}

func (q *Queries) InsertAcSignup(ctx context.Context, arg InsertAcSignupParams) (int64, error) {
	row := q.db.QueryRowContext(ctx, insertAcSignup, arg.AcEventID, arg.PlayerID, arg.AcPower, arg.RecordedAt)
	var id int64
	err := row.Scan(&id)
	return id, err
}

const updateAcSignup = `-- name: UpdateAcSignup :execresult
UPDATE ac_signups SET ac_power = ?, recorded_at = ? WHERE id = ?
`

type UpdateAcSignupParams struct {
	AcPower    int64
	RecordedAt string
	ID         int64
}

func (q *Queries) UpdateAcSignup(ctx context.Context, arg UpdateAcSignupParams) (sql.Result, error) {
	return q.db.ExecContext(ctx, updateAcSignup, arg.AcPower, arg.RecordedAt, arg.ID)
}
