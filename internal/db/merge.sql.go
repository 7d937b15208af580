package db

import (
	"context"
	"database/sql"
)

// The fold queries update the kept player's rows (k) from the colliding rows
// of the merged player (d). Both take the kept id first.

const foldBearScores = `-- name: FoldBearScores :execresult
UPDATE bear_scores AS k
SET score = MAX(k.score, d.score),
    rank = CASE
        WHEN k.recorded_at > d.recorded_at THEN COALESCE(k.rank, d.rank)
        ELSE COALESCE(d.rank, k.rank)
    END,
    recorded_at = MAX(k.recorded_at, d.recorded_at)
FROM bear_scores AS d
WHERE k.player_id = ? AND d.player_id = ? AND d.bear_event_id = k.bear_event_id
`

func (q *Queries) FoldBearScores(ctx context.Context, keepID, fromID int64) (sql.Result, error) {
	return q.db.ExecContext(ctx, foldBearScores, keepID, fromID)
}

const foldFoundrySignups = `-- name: FoldFoundrySignups :execresult
UPDATE foundry_signups AS k
SET foundry_power = d.foundry_power, voted = d.voted, recorded_at = d.recorded_at
FROM foundry_signups AS d
WHERE k.player_id = ? AND d.player_id = ? AND d.foundry_event_id = k.foundry_event_id
  AND d.recorded_at < k.recorded_at
`

func (q *Queries) FoldFoundrySignups(ctx context.Context, keepID, fromID int64) (sql.Result, error) {
	return q.db.ExecContext(ctx, foldFoundrySignups, keepID, fromID)
}

const foldFoundryResults = `-- name: FoldFoundryResults :execresult
UPDATE foundry_results AS k
SET score = d.score, rank = d.rank, recorded_at = d.recorded_at
FROM foundry_results AS d
WHERE k.player_id = ? AND d.player_id = ? AND d.foundry_event_id = k.foundry_event_id
  AND d.recorded_at < k.recorded_at
`

func (q *Queries) FoldFoundryResults(ctx context.Context, keepID, fromID int64) (sql.Result, error) {
	return q.db.ExecContext(ctx, foldFoundryResults, keepID, fromID)
}

const foldACSignups = `-- name: FoldACSignups :execresult
UPDATE ac_signups AS k
SET ac_power = d.ac_power, recorded_at = MAX(k.recorded_at, d.recorded_at)
FROM ac_signups AS d
WHERE k.player_id = ? AND d.player_id = ? AND d.ac_event_id = k.ac_event_id
  AND d.ac_power > k.ac_power
`

func (q *Queries) FoldACSignups(ctx context.Context, keepID, fromID int64) (sql.Result, error) {
	return q.db.ExecContext(ctx, foldACSignups, keepID, fromID)
}

// PlayerTables holds every table with a player_id column.
var PlayerTables = []string{
	"player_power_history",
	"player_furnace_history",
	"bear_scores",
	"foundry_signups",
	"foundry_results",
	"ac_signups",
	"contribution_snapshots",
}

// ReassignPlayerRows re-points rows that do not collide on a unique key;
// colliding rows are left on fromID.
func (q *Queries) ReassignPlayerRows(ctx context.Context, table string, keepID, fromID int64) (sql.Result, error) {
	return q.db.ExecContext(ctx, `UPDATE OR IGNORE `+table+` SET player_id = ? WHERE player_id = ?`, keepID, fromID)
}

func (q *Queries) DeletePlayerRows(ctx context.Context, table string, playerID int64) (sql.Result, error) {
	return q.db.ExecContext(ctx, `DELETE FROM `+table+` WHERE player_id = ?`, playerID)
}
