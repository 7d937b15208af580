package db

import (
	"context"
	"database/sql"
)

const upsertAlliance = `-- name: UpsertAlliance :exec
INSERT INTO alliances (id, name, tag, created_at)
VALUES (?, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET name = excluded.name, tag = excluded.tag
`

type UpsertAllianceParams struct {
	ID        int64
	Name      string
	Tag       string
	CreatedAt string
}

func (q *Queries) UpsertAlliance(ctx context.Context, arg UpsertAllianceParams) error {
	_, err := q.db.ExecContext(ctx, upsertAlliance, arg.ID, arg.Name, arg.Tag, arg.CreatedAt)
	return err
}

const playerColumns = `id, alliance_id, name, status, current_power, current_furnace, created_at, updated_at`

func scanPlayer(row interface{ Scan(...interface{}) error }) (Player, error) {
	var p Player
	err := row.Scan(
		&p.ID,
		&p.AllianceID,
		&p.Name,
		&p.Status,
		&p.CurrentPower,
		&p.CurrentFurnace,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	return p, err
}

const getPlayerByName = `-- name: GetPlayerByName :one
SELECT ` + playerColumns + ` FROM players
WHERE alliance_id = ? AND name = ?
`

func (q *Queries) GetPlayerByName(ctx context.Context, allianceID int64, name string) (Player, error) {
	return scanPlayer(q.db.QueryRowContext(ctx, getPlayerByName, allianceID, name))
}

const getPlayer = `-- name: GetPlayer :one
SELECT ` + playerColumns + ` FROM players
WHERE id = ?
`

func (q *Queries) GetPlayer(ctx context.Context, id int64) (Player, error) {
	return scanPlayer(q.db.QueryRowContext(ctx, getPlayer, id))
}

const listPlayers = `-- name: ListPlayers :many
SELECT ` + playerColumns + ` FROM players
WHERE alliance_id = ?
ORDER BY id
`

func (q *Queries) ListPlayers(ctx context.Context, allianceID int64) ([]Player, error) {
	rows, err := q.db.QueryContext(ctx, listPlayers, allianceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Player
	for rows.Next() {
		p, err := scanPlayer(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const insertPlayer = `-- name: InsertPlayer :one
INSERT INTO players (alliance_id, name, status, current_power, current_furnace, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
RETURNING id
`

type InsertPlayerParams struct {
	AllianceID     int64
	Name           string
	Status         string
	CurrentPower   sql.NullInt64
	CurrentFurnace sql.NullString
	CreatedAt      string
	UpdatedAt      string
}

func (q *Queries) InsertPlayer(ctx context.Context, arg InsertPlayerParams) (int64, error) {
	row := q.db.QueryRowContext(ctx, insertPlayer,
		arg.AllianceID,
		arg.Name,
		arg.Status,
		arg.CurrentPower,
		arg.CurrentFurnace,
		arg.CreatedAt,
		arg.UpdatedAt,
	)
	var id int64
	err := row.Scan(&id)
	return id, err
}

const updatePlayer = `-- name: UpdatePlayer :execresult
UPDATE players
SET name = ?, status = ?, current_power = ?, current_furnace = ?, updated_at = ?
WHERE id = ?
`

type UpdatePlayerParams struct {
	Name           string
	Status         string
	CurrentPower   sql.NullInt64
	CurrentFurnace sql.NullString
	UpdatedAt      string
	ID             int64
}

func (q *Queries) UpdatePlayer(ctx context.Context, arg UpdatePlayerParams) (sql.Result, error) {
	return q.db.ExecContext(ctx, updatePlayer,
		arg.Name,
		arg.Status,
		arg.CurrentPower,
		arg.CurrentFurnace,
		arg.UpdatedAt,
		arg.ID,
	)
}

const deletePlayer = `-- name: DeletePlayer :execresult
DELETE FROM players WHERE id = ?
`

func (q *Queries) DeletePlayer(ctx context.Context, id int64) (sql.Result, error) {
	return q.db.ExecContext(ctx, deletePlayer, id)
}

const insertPowerHistory = `-- name: InsertPowerHistory :execresult
INSERT INTO player_power_history (player_id, power, captured_at, source)
VALUES (?, ?, ?, ?)
ON CONFLICT (player_id, captured_at) DO NOTHING
`

type InsertPowerHistoryParams struct {
	PlayerID   int64
	Power      int64
	CapturedAt string
	Source     string
}

func (q *Queries) InsertPowerHistory(ctx context.Context, arg InsertPowerHistoryParams) (sql.Result, error) {
	return q.db.ExecContext(ctx, insertPowerHistory, arg.PlayerID, arg.Power, arg.CapturedAt, arg.Source)
}

const insertFurnaceHistory = `-- name: InsertFurnaceHistory :execresult
INSERT INTO player_furnace_history (player_id, furnace_level, furnace_label, captured_at, source)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT (player_id, captured_at) DO NOTHING
`

type InsertFurnaceHistoryParams struct {
	PlayerID     int64
	FurnaceLevel int64
	FurnaceLabel string
	CapturedAt   string
	Source       string
}

func (q *Queries) InsertFurnaceHistory(ctx context.Context, arg InsertFurnaceHistoryParams) (sql.Result, error) {
	return q.db.ExecContext(ctx, insertFurnaceHistory,
		arg.PlayerID,
		arg.FurnaceLevel,
		arg.FurnaceLabel,
		arg.CapturedAt,
		arg.Source,
	)
}
