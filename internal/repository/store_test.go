package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"alliance-observatory/internal/database"
	"alliance-observatory/internal/db"
	"alliance-observatory/internal/domain"
	"alliance-observatory/internal/events"
	"alliance-observatory/internal/identity"
	"alliance-observatory/internal/store"
	"alliance-observatory/internal/upsert"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

var at = time.Date(2025, 3, 12, 15, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	sqlDB, err := database.Open(filepath.Join(t.TempDir(), "test.db"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	st := NewStore(sqlDB, db.New(sqlDB), zerolog.Nop())
	s, err := st.Begin(context.Background())
	require.NoError(t, err)
	require.NoError(t, s.EnsureAlliance(context.Background(), &domain.Alliance{ID: 1, Name: "Heirs", Tag: "HEI"}))
	require.NoError(t, s.Commit())
	return st
}

func inSession(t *testing.T, st *Store, fn func(s store.Session)) {
	t.Helper()
	s, err := st.Begin(context.Background())
	require.NoError(t, err)
	fn(s)
	require.NoError(t, s.Commit())
}

func TestPlayers(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	inSession(t, st, func(s store.Session) {
		p := &domain.Player{AllianceID: 1, Name: "Alice", CurrentPower: ptr(int64(100)), CreatedAt: at, UpdatedAt: at}
		require.NoError(t, s.CreatePlayer(ctx, p))
		assert.NotZero(t, p.ID)

		assert.Error(t, s.CreatePlayer(ctx, &domain.Player{AllianceID: 1, Name: "Alice"}))
	})

	inSession(t, st, func(s store.Session) {
		p, err := s.FindPlayer(ctx, 1, "Alice")
		require.NoError(t, err)
		assert.Equal(t, domain.PlayerActive, p.Status)
		assert.Equal(t, int64(100), *p.CurrentPower)
		assert.Nil(t, p.CurrentFurnace)
		assert.Equal(t, at, p.CreatedAt)

		_, err = s.FindPlayer(ctx, 1, "alice")
		assert.ErrorIs(t, err, domain.ErrNotFound)

		p.CurrentFurnace = ptr("FC2")
		require.NoError(t, s.UpdatePlayer(ctx, p))
		assert.ErrorIs(t, s.UpdatePlayer(ctx, &domain.Player{ID: 999, Name: "Ghost"}), domain.ErrNotFound)

		ok, err := s.InsertPowerHistory(ctx, &domain.PowerHistory{PlayerID: p.ID, Power: 100, CapturedAt: at})
		require.NoError(t, err)
		assert.True(t, ok)
		ok, err = s.InsertPowerHistory(ctx, &domain.PowerHistory{PlayerID: p.ID, Power: 200, CapturedAt: at})
		require.NoError(t, err)
		assert.False(t, ok)

		roster, err := s.ListPlayers(ctx, 1)
		require.NoError(t, err)
		require.Len(t, roster, 1)
		assert.Equal(t, "FC2", *roster[0].CurrentFurnace)
	})
}

func TestRollbackDiscardsWrites(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	s, err := st.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, s.CreatePlayer(ctx, &domain.Player{AllianceID: 1, Name: "Temp"}))
	require.NoError(t, s.Rollback())
	require.NoError(t, s.Rollback())

	inSession(t, st, func(s store.Session) {
		_, err := s.FindPlayer(ctx, 1, "Temp")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestBearEvents(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	inSession(t, st, func(s store.Session) {
		player := &domain.Player{AllianceID: 1, Name: "Alice"}
		require.NoError(t, s.CreatePlayer(ctx, player))

		older := &domain.BearEvent{AllianceID: 1, TrapID: 1, StartedAt: at.Add(-48 * time.Hour)}
		newer := &domain.BearEvent{AllianceID: 1, TrapID: 1, StartedAt: at, TotalDamage: ptr(int64(5))}
		require.NoError(t, s.CreateBearEvent(ctx, older))
		require.NoError(t, s.CreateBearEvent(ctx, newer))
		assert.Error(t, s.CreateBearEvent(ctx, &domain.BearEvent{AllianceID: 1, TrapID: 3, StartedAt: at}))

		found, err := s.BearEventsBetween(ctx, 1, 1, at.Add(-time.Hour), at.Add(time.Hour))
		require.NoError(t, err)
		require.Len(t, found, 1)
		assert.Equal(t, newer.ID, found[0].ID)
		assert.Equal(t, int64(5), *found[0].TotalDamage)

		list, err := s.ListBearEvents(ctx, 1, 10)
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, newer.ID, list[0].ID)

		sc := &domain.BearScore{EventID: newer.ID, PlayerID: player.ID, Score: 10, Rank: ptr(3), RecordedAt: at}
		require.NoError(t, s.CreateBearScore(ctx, sc))
		got, err := s.GetBearScore(ctx, newer.ID, player.ID)
		require.NoError(t, err)
		assert.Equal(t, 3, *got.Rank)

		got.EventID = older.ID
		require.NoError(t, s.UpdateBearScore(ctx, got))
		_, err = s.GetBearScore(ctx, newer.ID, player.ID)
		assert.ErrorIs(t, err, domain.ErrNotFound)

		require.NoError(t, s.DeleteBearEvent(ctx, newer.ID))
		_, err = s.GetBearEvent(ctx, newer.ID)
		assert.ErrorIs(t, err, domain.ErrNotFound)
		assert.ErrorIs(t, s.DeleteBearEvent(ctx, newer.ID), domain.ErrNotFound)
	})
}

func TestUpserterAgainstSQLite(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	u := upsert.NewUpserter(identity.NewResolver(0.85, zerolog.Nop()), events.NewLocator(24*time.Hour, zerolog.Nop()), zerolog.Nop())
	c := upsert.Capture{AllianceID: 1, At: at, Source: "test.png"}

	members := domain.MembersPayload{Players: []domain.MemberRow{
		{Name: "Alice", Power: ptr(int64(100)), Furnace: ptr("FC3")},
		{Name: "Bob", Power: ptr(int64(90))},
	}}
	damage := domain.BearDamagePayload{TrapID: ptr(1), Players: []domain.BearScoreRow{
		{Name: "Alice", Damage: 1000, Rank: ptr(1)},
		{Name: "Bob", Damage: 900, Rank: ptr(2)},
	}}
	contribution := domain.ContributionPayload{Players: []domain.ContributionRow{{Name: "Alice", Amount: 5}}}
	signup := domain.FoundrySignupPayload{Players: []domain.FoundrySignupRow{{Name: "Bob", FoundryPower: 10, Status: "join"}}}
	ac := domain.ACSignupPayload{Players: []domain.ACSignupRow{{Name: "Alice", ACPower: 50}}}

	for round := 0; round < 2; round++ {
		inSession(t, st, func(s store.Session) {
			counts, err := u.AllianceMembers(ctx, s, c, members)
			require.NoError(t, err)
			if round == 1 {
				assert.Equal(t, 3, counts.HistorySkipped)
			}

			counts, err = u.BearDamage(ctx, s, c, damage)
			require.NoError(t, err)
			if round == 0 {
				assert.Equal(t, 2, counts.Created)
			} else {
				assert.Equal(t, 2, counts.Skipped)
			}

			counts, err = u.Contribution(ctx, s, c, contribution)
			require.NoError(t, err)
			assert.Equal(t, 1-round, counts.Created)

			counts, err = u.FoundrySignup(ctx, s, c, signup)
			require.NoError(t, err)
			assert.Equal(t, 1-round, counts.Created)

			counts, err = u.ACSignup(ctx, s, c, ac)
			require.NoError(t, err)
			assert.Equal(t, 1-round, counts.Created)
		})
	}

	inSession(t, st, func(s store.Session) {
		list, err := s.ListBearEvents(ctx, 1, 10)
		require.NoError(t, err)
		require.Len(t, list, 1)
		scores, err := s.ListBearScores(ctx, list[0].ID)
		require.NoError(t, err)
		assert.Len(t, scores, 2)
	})
}

func TestRecordOCRResult(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, st.RecordOCRResult(ctx, &domain.OCRResult{
		ID:             "abc",
		ScreenshotPath: "a.png",
		ModelName:      "m",
		Kind:           "alliance_members",
		CardCount:      ptr(3),
		Payload:        []byte(`{}`),
		CreatedAt:      at,
	}))
	n, err := st.CountOCRResults(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
