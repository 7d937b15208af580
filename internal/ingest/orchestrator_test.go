package ingest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"alliance-observatory/internal/classify"
	"alliance-observatory/internal/config"
	"alliance-observatory/internal/domain"
	"alliance-observatory/internal/events"
	"alliance-observatory/internal/identity"
	"alliance-observatory/internal/memstore"
	"alliance-observatory/internal/store"
	"alliance-observatory/internal/textocr"
	"alliance-observatory/internal/timestamp"
	"alliance-observatory/internal/upsert"
	"alliance-observatory/internal/vision"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var processedAt = time.Date(2025, 3, 12, 15, 0, 0, 0, time.UTC)

// membersCompleter replies with one member named after the image content.
// A few contents trigger failure modes instead.
type membersCompleter struct{}

func (membersCompleter) Complete(_ context.Context, _ string, image []byte) ([]byte, error) {
	switch content := string(image); content {
	case "panic":
		panic("boom")
	case "empty":
		return []byte(`{"players": []}`), nil
	case "down":
		return nil, &vision.APIError{StatusCode: 503}
	default:
		return []byte(fmt.Sprintf(`{"card_count": 1, "players": [{"name": %q, "power": 100}]}`, content)), nil
	}
}

type stubText struct {
	text string
	err  error
}

func (s stubText) ExtractText(context.Context, string) (string, error) {
	return s.text, s.err
}

type fixture struct {
	dir       string
	store     *memstore.Store
	cfg       *config.Config
	completer vision.Completer
}

func newFixture(t *testing.T) *fixture {
	return &fixture{
		dir:   t.TempDir(),
		store: memstore.New(),
		cfg: &config.Config{
			AllianceID:    1,
			AIEnabled:     true,
			MaxImageBytes: 1 << 20,
		},
		completer: membersCompleter{},
	}
}

func (f *fixture) orchestrator(st store.Store, text textocr.Engine, opts ...Option) *Orchestrator {
	nop := zerolog.Nop()
	return NewOrchestrator(
		st,
		classify.NewDetector(nil, classify.DefaultAIFloor, classify.DefaultHeuristicCeiling, nop),
		timestamp.NewResolver(time.UTC, nop, timestamp.WithClock(func() time.Time { return processedAt })),
		vision.NewExtractor(f.completer, f.store, "test-model", nop),
		text,
		upsert.NewUpserter(identity.NewResolver(0.85, nop), events.NewLocator(24*time.Hour, nop), nop),
		f.cfg,
		nop,
		opts...,
	)
}

func (f *fixture) shot(t *testing.T, name, content string, typ domain.ScreenshotType) Upload {
	t.Helper()
	path := filepath.Join(f.dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return Upload{Path: path, Type: typ}
}

func TestProcessBatchIsolatesPanics(t *testing.T) {
	f := newFixture(t)
	o := f.orchestrator(f.store, nil)

	batch, err := o.ProcessBatch(context.Background(), []Upload{
		f.shot(t, "a.png", "Alice", domain.ScreenshotAllianceMembers),
		f.shot(t, "b.png", "panic", domain.ScreenshotAllianceMembers),
		f.shot(t, "c.png", "Carol", domain.ScreenshotAllianceMembers),
	})
	require.NoError(t, err)
	require.Len(t, batch.Results, 3)
	assert.Equal(t, 2, batch.Succeeded)
	assert.Equal(t, 1, batch.Failed)

	first := batch.Results[0]
	assert.True(t, first.Success)
	assert.Equal(t, StatePersisted, first.State)
	assert.Equal(t, classify.MethodOverride, first.Method)
	assert.Equal(t, timestamp.SourceProcessingTime, first.TimestampSource)
	assert.Equal(t, "Saved 1 alliance member(s)", first.Message)
	assert.True(t, first.UsedVision)

	failed := batch.Results[1]
	assert.False(t, failed.Success)
	assert.Equal(t, "panic", failed.ErrorType)
	assert.Equal(t, StateTimestampResolved, failed.State)
	assert.Equal(t, StateExtracted, failed.FailedAt)
	assert.Error(t, failed.Err())

	assert.True(t, batch.Results[2].Success)
	assert.Equal(t, 2, f.store.Tally().Players)
	assert.Equal(t, 2, batch.Counts.Created)
	assert.Len(t, f.store.OCRResults(), 2)
}

func TestProcessBatchDelaysOnlyAfterVisionFiles(t *testing.T) {
	f := newFixture(t)
	f.cfg.RateLimitDelay = time.Second
	var waits []time.Duration
	sleeper := func(_ context.Context, d time.Duration) error {
		waits = append(waits, d)
		return nil
	}
	o := f.orchestrator(f.store, stubText{text: "[Hunting Trap 1]\nRallies: 3\nTotal Alliance Damage: 1,000"}, WithSleeper(sleeper))

	batch, err := o.ProcessBatch(context.Background(), []Upload{
		f.shot(t, "a.png", "Alice", domain.ScreenshotAllianceMembers),
		f.shot(t, "b.png", "overview", domain.ScreenshotBearOverview),
		f.shot(t, "c.png", "Bob", domain.ScreenshotAllianceMembers),
		f.shot(t, "d.png", "Carol", domain.ScreenshotAllianceMembers),
	})
	require.NoError(t, err)
	assert.Equal(t, 4, batch.Succeeded)
	assert.Equal(t, []time.Duration{time.Second, time.Second}, waits)
	assert.False(t, batch.Results[1].UsedVision)
	assert.Equal(t, "Saved 1 bear overview record(s)", batch.Results[1].Message)
	assert.Equal(t, 1, f.store.Tally().BearEvents)
}

func TestProcessBatchCancellation(t *testing.T) {
	f := newFixture(t)
	f.cfg.RateLimitDelay = time.Second
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sleeper := func(ctx context.Context, _ time.Duration) error {
		cancel()
		return ctx.Err()
	}
	o := f.orchestrator(f.store, nil, WithSleeper(sleeper))

	batch, err := o.ProcessBatch(ctx, []Upload{
		f.shot(t, "a.png", "Alice", domain.ScreenshotAllianceMembers),
		f.shot(t, "b.png", "Bob", domain.ScreenshotAllianceMembers),
		f.shot(t, "c.png", "Carol", domain.ScreenshotAllianceMembers),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, batch.Succeeded)
	assert.Equal(t, 2, batch.Cancelled)
	for _, r := range batch.Results[1:] {
		assert.Equal(t, CategoryCancelled, r.Category)
		assert.ErrorIs(t, r.Err(), context.Canceled)
	}
	assert.Equal(t, 1, f.store.Tally().Players)
}

type downStore struct{}

func (downStore) Begin(context.Context) (store.Session, error) {
	return nil, fmt.Errorf("database is locked: %w", domain.ErrStoreUnavailable)
}

func TestProcessBatchAbortsWhenStoreIsDown(t *testing.T) {
	f := newFixture(t)
	o := f.orchestrator(downStore{}, nil)

	batch, err := o.ProcessBatch(context.Background(), []Upload{
		f.shot(t, "a.png", "Alice", domain.ScreenshotAllianceMembers),
		f.shot(t, "b.png", "Bob", domain.ScreenshotAllianceMembers),
	})
	require.ErrorIs(t, err, domain.ErrStoreUnavailable)
	require.Len(t, batch.Results, 2)
	assert.Equal(t, CategoryExternal, batch.Results[0].Category)
	assert.Contains(t, batch.Results[0].Message, "Database error")
	assert.Equal(t, StatePersisted, batch.Results[0].FailedAt)
	assert.Equal(t, CategoryCancelled, batch.Results[1].Category)
}

func TestProcessFileFailures(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		typ      domain.ScreenshotType
		mutate   func(*config.Config)
		text     textocr.Engine
		category ErrorCategory
		failedAt State
		message  string
	}{
		{
			name:     "unknown type",
			content:  "Alice",
			category: CategoryUnsupported,
			failedAt: StateTimestampResolved,
			message:  "Unknown or unsupported screenshot type",
		},
		{
			name:     "no rows",
			content:  "empty",
			typ:      domain.ScreenshotAllianceMembers,
			category: CategoryValidation,
			failedAt: StatePersisted,
			message:  "Data extraction failed: no member cards found",
		},
		{
			name:     "too large",
			content:  "Alice",
			typ:      domain.ScreenshotAllianceMembers,
			mutate:   func(c *config.Config) { c.MaxImageBytes = 4 },
			category: CategoryValidation,
			failedAt: StateTypeDetected,
			message:  "Screenshot may be cropped or unclear.",
		},
		{
			name:     "ai disabled",
			content:  "Alice",
			typ:      domain.ScreenshotContribution,
			mutate:   func(c *config.Config) { c.AIEnabled = false },
			category: CategoryDependency,
			failedAt: StateExtracted,
			message:  "System error: missing required component",
		},
		{
			name:     "tesseract missing",
			content:  "overview",
			typ:      domain.ScreenshotBearOverview,
			text:     stubText{err: textocr.ErrEngineUnavailable},
			category: CategoryDependency,
			failedAt: StateExtracted,
			message:  "System error: missing required component",
		},
		{
			name:     "overview without trap",
			content:  "overview",
			typ:      domain.ScreenshotBearOverview,
			text:     stubText{text: "Hunt successful"},
			category: CategoryValidation,
			failedAt: StatePersisted,
			message:  "could not identify trap number",
		},
		{
			name:     "vision down",
			content:  "down",
			typ:      domain.ScreenshotAllianceMembers,
			category: CategoryExternal,
			failedAt: StateExtracted,
			message:  "OCR service temporarily unavailable",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			if tt.mutate != nil {
				tt.mutate(f.cfg)
			}
			o := f.orchestrator(f.store, tt.text)

			res := o.ProcessFile(context.Background(), f.shot(t, "img.png", tt.content, tt.typ))
			assert.False(t, res.Success)
			assert.Equal(t, tt.category, res.Category)
			assert.Equal(t, tt.failedAt, res.FailedAt)
			assert.Contains(t, res.Message, tt.message)
			assert.NotEmpty(t, res.ErrorType)
			assert.Equal(t, memstore.Tally{}, f.store.Tally())
		})
	}
}

func TestProcessFileDeletesOnlyAfterSuccess(t *testing.T) {
	f := newFixture(t)
	f.cfg.DeleteProcessed = true
	o := f.orchestrator(f.store, nil)

	ok := f.shot(t, "ok.png", "Alice", domain.ScreenshotAllianceMembers)
	bad := f.shot(t, "bad.png", "empty", domain.ScreenshotAllianceMembers)

	res := o.ProcessFile(context.Background(), ok)
	require.True(t, res.Success)
	assert.True(t, res.Deleted)
	_, err := os.Stat(ok.Path)
	assert.True(t, errors.Is(err, os.ErrNotExist))

	res = o.ProcessFile(context.Background(), bad)
	require.False(t, res.Success)
	assert.False(t, res.Deleted)
	_, err = os.Stat(bad.Path)
	assert.NoError(t, err)
}

func TestProcessFileMissingFile(t *testing.T) {
	f := newFixture(t)
	o := f.orchestrator(f.store, nil)
	res := o.ProcessFile(context.Background(), Upload{Path: filepath.Join(f.dir, "nope.png")})
	assert.False(t, res.Success)
	assert.Equal(t, StateTypeDetected, res.FailedAt)
	assert.Equal(t, "nope.png", res.Filename)
}
