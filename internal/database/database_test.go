package database

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenCreatesDirectoryAndMigrates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "observatory.db")

	db, err := Open(path, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	assert.FileExists(t, path)

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name IN ('players', 'bear_events', 'ai_ocr_results')`).Scan(&n))
	assert.Equal(t, 3, n)

	var fk int
	require.NoError(t, db.QueryRow(`PRAGMA foreign_keys`).Scan(&fk))
	assert.Equal(t, 1, fk)
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "observatory.db")

	db, err := Open(path, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db, err = Open(path, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, db.Close())
}

func TestPragmasSurviveConnectionRecycling(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "observatory.db"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	// No idle connections: every statement below runs on a fresh one.
	db.SetMaxIdleConns(0)
	db.SetConnMaxLifetime(time.Millisecond)

	for i := 0; i < 3; i++ {
		var fk int
		require.NoError(t, db.QueryRow(`PRAGMA foreign_keys`).Scan(&fk))
		assert.Equal(t, 1, fk, "round %d", i)

		var mode string
		require.NoError(t, db.QueryRow(`PRAGMA journal_mode`).Scan(&mode))
		assert.Equal(t, "wal", mode)
	}

	_, err = db.Exec(`INSERT INTO players (alliance_id, name, status, created_at, updated_at)
		VALUES (999, 'Ghost', 'active', '2025-01-01 00:00:00', '2025-01-01 00:00:00')`)
	require.Error(t, err, "orphan player must be rejected on a recycled connection")

	assert.Positive(t, db.Stats().MaxIdleClosed)
}
