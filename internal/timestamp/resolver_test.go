package timestamp

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromFilename(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skip("tzdata not available")
	}
	r := NewResolver(ny, zerolog.Nop())

	got, ok := r.FromFilename("Screenshot_20251112_114640_Game.jpg")
	require.True(t, ok)
	assert.Equal(t, time.Date(2025, 11, 12, 16, 46, 40, 0, time.UTC), got)
	assert.Equal(t, time.UTC, got.Location())

	_, ok = r.FromFilename("IMG_0001.jpg")
	assert.False(t, ok)

	_, ok = r.FromFilename("Screenshot_20251345_114640.jpg")
	assert.False(t, ok)
}

func TestResolveFallsBackToProcessingTime(t *testing.T) {
	fixed := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	r := NewResolver(nil, zerolog.Nop(), WithClock(func() time.Time { return fixed }))

	path := filepath.Join(t.TempDir(), "plain.png")
	require.NoError(t, os.WriteFile(path, []byte("not an image"), 0o644))

	got, src := r.Resolve(path)
	assert.Equal(t, fixed, got)
	assert.Equal(t, SourceProcessingTime, src)

	got, src = r.Resolve(filepath.Join(t.TempDir(), "missing.png"))
	assert.Equal(t, fixed, got)
	assert.Equal(t, SourceProcessingTime, src)
}

func TestResolvePrefersFilename(t *testing.T) {
	r := NewResolver(time.UTC, zerolog.Nop())
	got, src := r.Resolve("/uploads/Screenshot_20250301_080000.png")
	assert.Equal(t, SourceFilename, src)
	assert.Equal(t, time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC), got)
}

func TestParseEXIF(t *testing.T) {
	r := NewResolver(time.UTC, zerolog.Nop())
	got, err := r.parseEXIF("2025:03:01 08:00:00\x00")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC), got)

	_, err = r.parseEXIF("yesterday")
	assert.Error(t, err)
}
