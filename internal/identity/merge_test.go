package identity

import (
	"context"
	"testing"
	"time"

	"alliance-observatory/internal/domain"
	"alliance-observatory/internal/memstore"
	"alliance-observatory/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

type mergeFixture struct {
	keep, dup, stranger domain.Player
	sharedBear, dupBear domain.BearEvent
	ac                  domain.ACEvent
}

func seedMerge(t *testing.T, ctx context.Context, s store.Session) *mergeFixture {
	t.Helper()
	t0 := time.Date(2025, 3, 12, 15, 0, 0, 0, time.UTC)
	t1 := t0.Add(time.Minute)
	week := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	f := &mergeFixture{
		keep:     domain.Player{AllianceID: 1, Name: "Alice", Status: domain.PlayerActive, CreatedAt: t0, UpdatedAt: t0},
		dup:      domain.Player{AllianceID: 1, Name: "A1ice", Status: domain.PlayerActive, CurrentPower: ptr(int64(500)), CurrentFurnace: ptr("FC3"), CreatedAt: t0, UpdatedAt: t0},
		stranger: domain.Player{AllianceID: 2, Name: "Zed", Status: domain.PlayerActive, CreatedAt: t0, UpdatedAt: t0},
	}
	for _, p := range []*domain.Player{&f.keep, &f.dup, &f.stranger} {
		require.NoError(t, s.CreatePlayer(ctx, p))
	}

	f.sharedBear = domain.BearEvent{AllianceID: 1, TrapID: 1, StartedAt: t0}
	f.dupBear = domain.BearEvent{AllianceID: 1, TrapID: 2, StartedAt: t0}
	require.NoError(t, s.CreateBearEvent(ctx, &f.sharedBear))
	require.NoError(t, s.CreateBearEvent(ctx, &f.dupBear))
	require.NoError(t, s.CreateBearScore(ctx, &domain.BearScore{EventID: f.sharedBear.ID, PlayerID: f.keep.ID, Score: 100, Rank: ptr(5), RecordedAt: t0}))
	require.NoError(t, s.CreateBearScore(ctx, &domain.BearScore{EventID: f.sharedBear.ID, PlayerID: f.dup.ID, Score: 150, RecordedAt: t1}))
	require.NoError(t, s.CreateBearScore(ctx, &domain.BearScore{EventID: f.dupBear.ID, PlayerID: f.dup.ID, Score: 70, Rank: ptr(3), RecordedAt: t0}))

	for _, h := range []domain.PowerHistory{
		{PlayerID: f.keep.ID, Power: 10, CapturedAt: t0},
		{PlayerID: f.dup.ID, Power: 20, CapturedAt: t0},
		{PlayerID: f.dup.ID, Power: 30, CapturedAt: t1},
	} {
		_, err := s.InsertPowerHistory(ctx, &h)
		require.NoError(t, err)
	}

	foundry := domain.FoundryEvent{AllianceID: 1, Legion: 1, EventDate: week}
	require.NoError(t, s.CreateFoundryEvent(ctx, &foundry))
	for _, sg := range []domain.FoundrySignup{
		{EventID: foundry.ID, PlayerID: f.keep.ID, FoundryPower: 1000, RecordedAt: t1},
		{EventID: foundry.ID, PlayerID: f.dup.ID, FoundryPower: 900, RecordedAt: t0},
	} {
		_, err := s.InsertFoundrySignup(ctx, &sg)
		require.NoError(t, err)
	}

	f.ac = domain.ACEvent{AllianceID: 1, WeekStart: week}
	require.NoError(t, s.CreateACEvent(ctx, &f.ac))
	require.NoError(t, s.CreateACSignup(ctx, &domain.ACSignup{EventID: f.ac.ID, PlayerID: f.keep.ID, ACPower: 2000, RecordedAt: t0}))
	require.NoError(t, s.CreateACSignup(ctx, &domain.ACSignup{EventID: f.ac.ID, PlayerID: f.dup.ID, ACPower: 2500, RecordedAt: t1}))

	for _, c := range []domain.ContributionSnapshot{
		{AllianceID: 1, PlayerID: f.keep.ID, Amount: 40, WeekStart: week, SnapshotDate: week},
		{AllianceID: 1, PlayerID: f.dup.ID, Amount: 90, WeekStart: week, SnapshotDate: week},
	} {
		_, err := s.InsertContribution(ctx, &c)
		require.NoError(t, err)
	}
	return f
}

func TestMergePlayers(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	s, err := st.Begin(ctx)
	require.NoError(t, err)
	f := seedMerge(t, ctx, s)

	report, err := MergePlayers(ctx, s, f.keep.ID, []int64{f.dup.ID})
	require.NoError(t, err)
	assert.Equal(t, domain.MergeCounts{Moved: 2, Folded: 5}, report.Rows)
	require.Len(t, report.Merged, 1)
	assert.Equal(t, "A1ice", report.Merged[0].Name)
	assert.Equal(t, int64(500), *report.Kept.CurrentPower)
	assert.Equal(t, "FC3", *report.Kept.CurrentFurnace)

	_, err = s.GetPlayer(ctx, f.dup.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	shared, err := s.GetBearScore(ctx, f.sharedBear.ID, f.keep.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(150), shared.Score)
	require.NotNil(t, shared.Rank, "the newer score had no rank, so the older one survives")
	assert.Equal(t, 5, *shared.Rank)

	moved, err := s.GetBearScore(ctx, f.dupBear.ID, f.keep.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(70), moved.Score)

	ac, err := s.GetACSignup(ctx, f.ac.ID, f.keep.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2500), ac.ACPower)
	require.NoError(t, s.Commit())

	tally := st.Tally()
	assert.Equal(t, 2, tally.Players)
	assert.Equal(t, 2, tally.PowerHistory)
	assert.Equal(t, 2, tally.BearScores)
	assert.Equal(t, 1, tally.FoundrySignups)
	assert.Equal(t, 1, tally.ACSignups)
	assert.Equal(t, 1, tally.Contributions)
}

func TestMergePlayersRejects(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name string
		ids  func(f *mergeFixture) (int64, []int64)
		want error
	}{
		{"nothing to merge", func(f *mergeFixture) (int64, []int64) { return f.keep.ID, nil }, domain.ErrValidation},
		{"itself", func(f *mergeFixture) (int64, []int64) { return f.keep.ID, []int64{f.keep.ID} }, domain.ErrValidation},
		{"listed twice", func(f *mergeFixture) (int64, []int64) { return f.keep.ID, []int64{f.dup.ID, f.dup.ID} }, domain.ErrValidation},
		{"other alliance", func(f *mergeFixture) (int64, []int64) { return f.keep.ID, []int64{f.stranger.ID} }, domain.ErrValidation},
		{"unknown duplicate", func(f *mergeFixture) (int64, []int64) { return f.keep.ID, []int64{9999} }, domain.ErrNotFound},
		{"unknown keeper", func(f *mergeFixture) (int64, []int64) { return 9999, []int64{f.dup.ID} }, domain.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := memstore.New().Begin(ctx)
			require.NoError(t, err)
			defer s.Rollback()
			f := seedMerge(t, ctx, s)

			keep, ids := tt.ids(f)
			_, err = MergePlayers(ctx, s, keep, ids)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}
