package events

import (
	"context"
	"testing"
	"time"

	"alliance-observatory/internal/domain"
	"alliance-observatory/internal/memstore"
	"alliance-observatory/internal/store"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func openSession(t *testing.T) store.Session {
	t.Helper()
	s, err := memstore.New().Begin(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Rollback() })
	return s
}

func TestLocateBearWindow(t *testing.T) {
	ctx := context.Background()
	s := openSession(t)
	l := NewLocator(24*time.Hour, zerolog.Nop())
	base := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	first, err := l.LocateBear(ctx, s, 1, 1, base, BearStats{})
	require.NoError(t, err)
	assert.True(t, first.Created)

	within, err := l.LocateBear(ctx, s, 1, 1, base.Add(23*time.Hour), BearStats{})
	require.NoError(t, err)
	assert.False(t, within.Created)
	assert.Equal(t, first.Event.ID, within.Event.ID)

	otherTrap, err := l.LocateBear(ctx, s, 1, 2, base, BearStats{})
	require.NoError(t, err)
	assert.True(t, otherTrap.Created)

	outside, err := l.LocateBear(ctx, s, 1, 1, base.Add(49*time.Hour), BearStats{})
	require.NoError(t, err)
	assert.True(t, outside.Created)
	assert.NotEqual(t, first.Event.ID, outside.Event.ID)
}

func TestLocateBearMovesStartEarlierOnly(t *testing.T) {
	ctx := context.Background()
	s := openSession(t)
	l := NewLocator(0, zerolog.Nop())
	assert.Equal(t, DefaultBearWindow, l.BearWindow())
	base := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	created, err := l.LocateBear(ctx, s, 1, 1, base, BearStats{})
	require.NoError(t, err)

	earlier, err := l.LocateBear(ctx, s, 1, 1, base.Add(-2*time.Hour), BearStats{TotalDamage: ptr(int64(900))})
	require.NoError(t, err)
	assert.Equal(t, created.Event.ID, earlier.Event.ID)
	assert.Equal(t, base.Add(-2*time.Hour), earlier.Event.StartedAt)

	later, err := l.LocateBear(ctx, s, 1, 1, base.Add(3*time.Hour), BearStats{RallyCount: ptr(int64(4))})
	require.NoError(t, err)

	stored, err := s.GetBearEvent(ctx, later.Event.ID)
	require.NoError(t, err)
	assert.Equal(t, base.Add(-2*time.Hour), stored.StartedAt)
	assert.Equal(t, int64(900), *stored.TotalDamage)
	assert.Equal(t, int64(4), *stored.RallyCount)
}

func TestLocateFoundryAndAC(t *testing.T) {
	ctx := context.Background()
	s := openSession(t)
	l := NewLocator(time.Hour, zerolog.Nop())
	sunday := time.Date(2025, 3, 16, 18, 0, 0, 0, time.UTC)

	a, err := l.LocateFoundry(ctx, s, 1, 1, sunday, FoundryStats{})
	require.NoError(t, err)
	assert.True(t, a.Created)
	assert.Equal(t, day(2025, 3, 16), a.Event.EventDate)

	b, err := l.LocateFoundry(ctx, s, 1, 1, sunday.Add(-time.Hour), FoundryStats{TotalScore: ptr(int64(50))})
	require.NoError(t, err)
	assert.False(t, b.Created)
	assert.Equal(t, a.Event.ID, b.Event.ID)
	assert.Equal(t, int64(50), *b.Event.TotalScore)

	legion2, err := l.LocateFoundry(ctx, s, 1, 2, sunday, FoundryStats{})
	require.NoError(t, err)
	assert.True(t, legion2.Created)

	ac, err := l.LocateAC(ctx, s, 1, day(2025, 3, 10), ACStats{})
	require.NoError(t, err)
	assert.True(t, ac.Created)
	again, err := l.LocateAC(ctx, s, 1, time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC), ACStats{TotalRegistered: ptr(30)})
	require.NoError(t, err)
	assert.Equal(t, ac.Event.ID, again.Event.ID)
	assert.Equal(t, 30, *again.Event.TotalRegistered)
}

func TestMergeBear(t *testing.T) {
	ctx := context.Background()
	s := openSession(t)
	l := NewLocator(time.Hour, zerolog.Nop())
	t0 := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	primary := domain.BearEvent{AllianceID: 1, TrapID: 1, StartedAt: t0}
	dup := domain.BearEvent{AllianceID: 1, TrapID: 1, StartedAt: t0.Add(-time.Hour), TotalDamage: ptr(int64(500))}
	require.NoError(t, s.CreateBearEvent(ctx, &primary))
	require.NoError(t, s.CreateBearEvent(ctx, &dup))

	require.NoError(t, s.CreateBearScore(ctx, &domain.BearScore{EventID: primary.ID, PlayerID: 10, Score: 100, Rank: ptr(2), RecordedAt: t0}))
	require.NoError(t, s.CreateBearScore(ctx, &domain.BearScore{EventID: dup.ID, PlayerID: 10, Score: 150, RecordedAt: t0.Add(time.Minute)}))
	require.NoError(t, s.CreateBearScore(ctx, &domain.BearScore{EventID: dup.ID, PlayerID: 11, Score: 70, RecordedAt: t0}))

	report, err := l.MergeBear(ctx, s, primary.ID, []int64{dup.ID})
	require.NoError(t, err)
	assert.Equal(t, 1, report.ScoresMoved)
	assert.Equal(t, 1, report.ScoresMerged)
	assert.Equal(t, []int64{dup.ID}, report.EventsDeleted)

	_, err = s.GetBearEvent(ctx, dup.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	merged, err := s.GetBearEvent(ctx, primary.ID)
	require.NoError(t, err)
	assert.Equal(t, t0.Add(-time.Hour), merged.StartedAt)
	assert.Equal(t, int64(500), *merged.TotalDamage)

	scores, err := s.ListBearScores(ctx, primary.ID)
	require.NoError(t, err)
	require.Len(t, scores, 2)
	sc, err := s.GetBearScore(ctx, primary.ID, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(150), sc.Score)
	require.NotNil(t, sc.Rank)
	assert.Equal(t, 2, *sc.Rank)
}

func TestMergeBearRejectsOtherTrap(t *testing.T) {
	ctx := context.Background()
	s := openSession(t)
	l := NewLocator(time.Hour, zerolog.Nop())
	t0 := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	a := domain.BearEvent{AllianceID: 1, TrapID: 1, StartedAt: t0}
	b := domain.BearEvent{AllianceID: 1, TrapID: 2, StartedAt: t0}
	require.NoError(t, s.CreateBearEvent(ctx, &a))
	require.NoError(t, s.CreateBearEvent(ctx, &b))

	_, err := l.MergeBear(ctx, s, a.ID, []int64{b.ID})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestSplitBear(t *testing.T) {
	ctx := context.Background()
	s := openSession(t)
	l := NewLocator(24*time.Hour, zerolog.Nop())
	t0 := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	e := domain.BearEvent{AllianceID: 1, TrapID: 1, StartedAt: t0}
	require.NoError(t, s.CreateBearEvent(ctx, &e))
	require.NoError(t, s.CreateBearScore(ctx, &domain.BearScore{EventID: e.ID, PlayerID: 1, Score: 10, RecordedAt: t0}))
	require.NoError(t, s.CreateBearScore(ctx, &domain.BearScore{EventID: e.ID, PlayerID: 2, Score: 20, RecordedAt: t0.Add(20 * time.Hour)}))
	require.NoError(t, s.CreateBearScore(ctx, &domain.BearScore{EventID: e.ID, PlayerID: 3, Score: 30, RecordedAt: t0.Add(21 * time.Hour)}))

	report, err := l.SplitBear(ctx, s, e.ID, t0.Add(20*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 2, report.ScoresMoved)
	require.NotZero(t, report.EventCreated)

	split, err := s.GetBearEvent(ctx, report.EventCreated)
	require.NoError(t, err)
	assert.Equal(t, t0.Add(20*time.Hour), split.StartedAt)
	assert.Equal(t, 1, split.TrapID)

	left, err := s.ListBearScores(ctx, e.ID)
	require.NoError(t, err)
	assert.Len(t, left, 1)

	_, err = l.SplitBear(ctx, s, e.ID, t0.Add(-time.Hour))
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = l.SplitBear(ctx, s, e.ID, t0.Add(48*time.Hour))
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestLocateBearJustOutsideWindow(t *testing.T) {
	ctx := context.Background()
	s := openSession(t)
	l := NewLocator(24*time.Hour, zerolog.Nop())
	base := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	first, err := l.LocateBear(ctx, s, 1, 1, base, BearStats{})
	require.NoError(t, err)
	second, err := l.LocateBear(ctx, s, 1, 1, base.Add(25*time.Hour), BearStats{})
	require.NoError(t, err)

	assert.True(t, second.Created)
	assert.NotEqual(t, first.Event.ID, second.Event.ID)
	list, err := s.ListBearEvents(ctx, 1, 10)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}
