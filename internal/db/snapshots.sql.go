package db

import (
	"context"
	"database/sql"
)

const insertContributionSnapshot = `-- name: InsertContributionSnapshot :execresult
INSERT INTO contribution_snapshots (alliance_id, player_id, contribution_amount, rank, week_start_date, snapshot_date)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT (alliance_id, player_id, week_start_date, snapshot_date) DO NOTHING
`

type InsertContributionSnapshotParams struct {
	AllianceID         int64
	PlayerID           int64
	ContributionAmount int64
	Rank               sql.NullInt64
	WeekStartDate      string
	SnapshotDate       string
}

func (q *Queries) InsertContributionSnapshot(ctx context.Context, arg InsertContributionSnapshotParams) (sql.Result, error) {
	return q.db.ExecContext(ctx, insertContributionSnapshot,
		arg.AllianceID,
		arg.PlayerID,
		arg.ContributionAmount,
		arg.Rank,
		arg.WeekStartDate,
		arg.SnapshotDate,
	)
}

const insertAlliancePowerSnapshot = `-- name: InsertAlliancePowerSnapshot :one
INSERT INTO alliance_power_snapshots (alliance_id, name, tag, total_power, rank, captured_at)
VALUES (?, ?, ?, ?, ?, ?)
RETURNING id
`

type InsertAlliancePowerSnapshotParams struct {
	AllianceID int64
	Name       string
	Tag        string
	TotalPower int64
	Rank       sql.NullInt64
	CapturedAt string
}

func (q *Queries) InsertAlliancePowerSnapshot(ctx context.Context, arg InsertAlliancePowerSnapshotParams) (int64, error) {
	row := q.db.QueryRowContext(ctx, insertAlliancePowerSnapshot,
		arg.AllianceID,
		arg.Name,
		arg.Tag,
		arg.TotalPower,
		arg.Rank,
		arg.CapturedAt,
	)
	var id int64
	err := row.Scan(&id)
	return id, err
}

const insertOCRResult = `-- name: InsertOCRResult :exec
INSERT INTO ai_ocr_results (id, screenshot_path, model_name, kind, card_count, payload, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
`

type InsertOCRResultParams struct {
	ID             string
	ScreenshotPath string
	ModelName      string
	Kind           string
	CardCount      sql.NullInt64
	Payload        string
	CreatedAt      string
}

func (q *Queries) InsertOCRResult(ctx context.Context, arg InsertOCRResultParams) error {
	_, err := q.db.ExecContext(ctx, insertOCRResult,
		arg.ID,
		arg.ScreenshotPath,
		arg.ModelName,
		arg.Kind,
		arg.CardCount,
		arg.Payload,
		arg.CreatedAt,
	)
	return err
}

const countOCRResults = `-- name: CountOCRResults :one
SELECT COUNT(*) FROM ai_ocr_results
`

func (q *Queries) CountOCRResults(ctx context.Context) (int64, error) {
	row := q.db.QueryRowContext(ctx, countOCRResults)
	var n int64
	err := row.Scan(&n)
	return n, err
}
