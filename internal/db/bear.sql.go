package db

import (
	"context"
	"database/sql"
)

const bearEventColumns = `id, alliance_id, trap_id, started_at, ended_at, rally_count, total_damage`

func scanBearEvent(row interface{ Scan(...interface{}) error }) (BearEvent, error) {
	var e BearEvent
	err := row.Scan(
		&e.ID,
		&e.AllianceID,
		&e.TrapID,
		&e.StartedAt,
		&e.EndedAt,
		&e.RallyCount,
		&e.TotalDamage,
	)
	return e, err
}

func collectBearEvents(rows *sql.Rows, err error) ([]BearEvent, error) {
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []BearEvent
	for rows.Next() {
		e, err := scanBearEvent(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listBearEventsBetween = `-- name: ListBearEventsBetween :many
SELECT ` + bearEventColumns + ` FROM bear_events
WHERE alliance_id = ? AND trap_id = ? AND started_at BETWEEN ? AND ?
ORDER BY started_at DESC, id DESC
`

type ListBearEventsBetweenParams struct {
	AllianceID int64
	TrapID     int64
	From       string
	To         string
}

func (q *Queries) ListBearEventsBetween(ctx context.Context, arg ListBearEventsBetweenParams) ([]BearEvent, error) {
	return collectBearEvents(q.db.QueryContext(ctx, listBearEventsBetween, arg.AllianceID, arg.TrapID, arg.From, arg.To))
}

const listBearEvents = `-- name: ListBearEvents :many
SELECT ` + bearEventColumns + ` FROM bear_events
WHERE alliance_id = ?
ORDER BY started_at DESC, id DESC
LIMIT ?
`

func (q *Queries) ListBearEvents(ctx context.Context, allianceID int64, limit int64) ([]BearEvent, error) {
	return collectBearEvents(q.db.QueryContext(ctx, listBearEvents, allianceID, limit))
}

const getBearEvent = `-- name: GetBearEvent :one
SELECT ` + bearEventColumns + ` FROM bear_events WHERE id = ?
`

func (q *Queries) GetBearEvent(ctx context.Context, id int64) (BearEvent, error) {
	return scanBearEvent(q.db.QueryRowContext(ctx, getBearEvent, id))
}

const insertBearEvent = `-- name: InsertBearEvent :one
INSERT INTO bear_events (alliance_id, trap_id, started_at, ended_at, rally_count, total_damage)
VALUES (?, ?, ?, ?, ?, ?)
RETURNING id
`

type InsertBearEventParams struct {
	AllianceID  int64
	TrapID      int64
	StartedAt   string
	EndedAt     sql.NullString
	RallyCount  sql.NullInt64
	TotalDamage sql.NullInt64
}

func (q *Queries) InsertBearEvent(ctx context.Context, arg InsertBearEventParams) (int64, error) {
	row := q.db.QueryRowContext(ctx, insertBearEvent,
		arg.AllianceID,
		arg.TrapID,
		arg.StartedAt,
		arg.EndedAt,
		arg.RallyCount,
		arg.TotalDamage,
	)
	var id int64
	err := row.Scan(&id)
	return id, err
}

const updateBearEvent = `-- name: UpdateBearEvent :execresult
UPDATE bear_events
SET started_at = ?, ended_at = ?, rally_count = ?, total_damage = ?
WHERE id = ?
`

type UpdateBearEventParams struct {
	StartedAt   string
	EndedAt     sql.NullString
	RallyCount  sql.NullInt64
	TotalDamage sql.NullInt64
	ID          int64
}

func (q *Queries) UpdateBearEvent(ctx context.Context, arg UpdateBearEventParams) (sql.Result, error) {
	return q.db.ExecContext(ctx, updateBearEvent,
		arg.StartedAt,
		arg.EndedAt,
		arg.RallyCount,
		arg.TotalDamage,
		arg.ID,
	)
}

const deleteBearEvent = `-- name: DeleteBearEvent :execresult
DELETE FROM bear_events WHERE id = ?
`

func (q *Queries) DeleteBearEvent(ctx context.Context, id int64) (sql.Result, error) {
	return q.db.ExecContext(ctx, deleteBearEvent, id)
}

const bearScoreColumns = `id, bear_event_id, player_id, score, rank, recorded_at`

func scanBearScore(row interface{ Scan(...interface{}) error }) (BearScore, error) {
	var s BearScore
	err := row.Scan(
		&s.ID,
		&s.BearEventID,
		&s.PlayerID,
		&s.Score,
		&s.Rank,
		&s.RecordedAt,
	)
	return s, err
}

const getBearScore = `-- name: GetBearScore :one
SELECT ` + bearScoreColumns + ` FROM bear_scores
WHERE bear_event_id = ? AND player_id = ?
`

func (q *Queries) GetBearScore(ctx context.Context, eventID, playerID int64) (BearScore, error) {
	return scanBearScore(q.db.QueryRowContext(ctx, getBearScore, eventID, playerID))
}

const listBearScores = `-- name: ListBearScores :many
SELECT ` + bearScoreColumns + ` FROM bear_scores
WHERE bear_event_id = ?
ORDER BY id
`

func (q *Queries) ListBearScores(ctx context.Context, eventID int64) ([]BearScore, error) {
	rows, err := q.db.QueryContext(ctx, listBearScores, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []BearScore
	for rows.Next() {
		s, err := scanBearScore(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const insertBearScore = `-- name: InsertBearScore :one
INSERT INTO bear_scores (bear_event_id, player_id, score, rank, recorded_at)
VALUES (?, ?, ?, ?, ?)
RETURNING id
`

type InsertBearScoreParams struct {
	BearEventID int64
	PlayerID    int64
	Score       int64
	Rank        sql.NullInt64
	RecordedAt  string
}

func (q *Queries) InsertBearScore(ctx context.Context, arg InsertBearScoreParams) (int64, error) {
	row := q.db.QueryRowContext(ctx, insertBearScore,
		arg.BearEventID,
		arg.PlayerID,
		arg.Score,
		arg.Rank,
		arg.RecordedAt,
	)
	var id int64
	err := row.Scan(&id)
	return id, err
}

const updateBearScore = `-- name: UpdateBearScore :execresult
UPDATE bear_scores
SET bear_event_id = ?, score = ?, rank = ?, recorded_at = ?
WHERE id = ?
`

type UpdateBearScoreParams struct {
	BearEventID int64
	Score       int64
	Rank        sql.NullInt64
	RecordedAt  string
	ID          int64
}

func (q *Queries) UpdateBearScore(ctx context.Context, arg UpdateBearScoreParams) (sql.Result, error) {
	return q.db.ExecContext(ctx, updateBearScore,
		arg.BearEventID,
		arg.Score,
		arg.Rank,
		arg.RecordedAt,
		arg.ID,
	)
}

const deleteBearScore = `-- name: DeleteBearScore :execresult
DELETE FROM bear_scores WHERE id = ?
`

func (q *Queries) DeleteBearScore(ctx context.Context, id int64) (sql.Result, error) {
	return q.db.ExecContext(ctx, deleteBearScore, id)
}
