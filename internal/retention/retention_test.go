package retention

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"alliance-observatory/internal/config"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCleaner(t *testing.T, dir string, period time.Duration, now time.Time) *Cleaner {
	t.Helper()
	c := NewCleaner(&config.Config{
		UploadDir:         dir,
		RetentionPeriod:   period,
		RetentionSchedule: "@hourly",
	}, zerolog.Nop())
	c.now = func() time.Time { return now }
	return c
}

func touch(t *testing.T, path string, mtime time.Time) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	require.NoError(t, os.Chtimes(path, mtime, mtime))
}

func TestSweep(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2025, 3, 12, 12, 0, 0, 0, time.UTC)
	touch(t, filepath.Join(dir, "old.png"), now.Add(-48*time.Hour))
	touch(t, filepath.Join(dir, "fresh.png"), now.Add(-time.Hour))
	touch(t, filepath.Join(dir, "old.txt"), now.Add(-48*time.Hour))

	report, err := newCleaner(t, dir, 24*time.Hour, now).Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, report.Scanned)
	assert.Equal(t, []string{"old.png"}, report.Deleted)
	assert.Zero(t, report.Failed)

	assert.NoFileExists(t, filepath.Join(dir, "old.png"))
	assert.FileExists(t, filepath.Join(dir, "fresh.png"))
	assert.FileExists(t, filepath.Join(dir, "old.txt"))
}

func TestSweepDisabledOrMissing(t *testing.T) {
	dir := t.TempDir()
	now := time.Now()
	touch(t, filepath.Join(dir, "old.png"), now.Add(-48*time.Hour))

	report, err := newCleaner(t, dir, 0, now).Sweep(context.Background())
	require.NoError(t, err)
	assert.Empty(t, report.Deleted)
	assert.FileExists(t, filepath.Join(dir, "old.png"))

	report, err = newCleaner(t, filepath.Join(dir, "missing"), time.Hour, now).Sweep(context.Background())
	require.NoError(t, err)
	assert.Zero(t, report.Scanned)
}

func TestSweepCancelled(t *testing.T) {
	dir := t.TempDir()
	now := time.Now()
	touch(t, filepath.Join(dir, "old.png"), now.Add(-48*time.Hour))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newCleaner(t, dir, time.Hour, now).Sweep(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.FileExists(t, filepath.Join(dir, "old.png"))
}

func TestSchedule(t *testing.T) {
	cr := cron.New()
	c := newCleaner(t, t.TempDir(), time.Hour, time.Now())
	id, err := c.Schedule(cr)
	require.NoError(t, err)
	assert.NotZero(t, id)
	assert.Len(t, cr.Entries(), 1)

	c.schedule = "not a schedule"
	_, err = c.Schedule(cr)
	assert.Error(t, err)
}
