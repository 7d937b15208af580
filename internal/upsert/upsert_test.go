package upsert

import (
	"context"
	"testing"
	"time"

	"alliance-observatory/internal/domain"
	"alliance-observatory/internal/events"
	"alliance-observatory/internal/identity"
	"alliance-observatory/internal/memstore"
	"alliance-observatory/internal/store"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

// 2025-03-12 is a Wednesday.
var captured = time.Date(2025, 3, 12, 15, 0, 0, 0, time.UTC)

func newUpserter() *Upserter {
	return NewUpserter(identity.NewResolver(0.85, zerolog.Nop()), events.NewLocator(24*time.Hour, zerolog.Nop()), zerolog.Nop())
}

func capture(at time.Time) Capture {
	return Capture{AllianceID: 1, At: at, Source: "test.png"}
}

// apply runs fn in its own committed session, the way ingestion does.
func apply(t *testing.T, st *memstore.Store, fn func(s store.Session) (domain.RowCounts, error)) (domain.RowCounts, error) {
	t.Helper()
	s, err := st.Begin(context.Background())
	require.NoError(t, err)
	counts, err := fn(s)
	if err != nil {
		require.NoError(t, s.Rollback())
		return counts, err
	}
	require.NoError(t, s.Commit())
	return counts, nil
}

func seed(t *testing.T, names ...string) *memstore.Store {
	t.Helper()
	st := memstore.New()
	_, err := apply(t, st, func(s store.Session) (domain.RowCounts, error) {
		for _, n := range names {
			if err := s.CreatePlayer(context.Background(), &domain.Player{AllianceID: 1, Name: n, Status: domain.PlayerActive}); err != nil {
				return domain.RowCounts{}, err
			}
		}
		return domain.RowCounts{}, nil
	})
	require.NoError(t, err)
	return st
}

func TestAllianceMembersIdempotent(t *testing.T) {
	st := memstore.New()
	u := newUpserter()
	payload := domain.MembersPayload{Players: []domain.MemberRow{
		{Name: "[HEI]Alice", Power: ptr(int64(1_500_000)), Furnace: ptr("fc 4")},
		{Name: "Bob", PowerMillions: ptr(2.25)},
	}}
	run := func() (domain.RowCounts, error) {
		return apply(t, st, func(s store.Session) (domain.RowCounts, error) {
			return u.AllianceMembers(context.Background(), s, capture(captured), payload)
		})
	}

	first, err := run()
	require.NoError(t, err)
	assert.Equal(t, 2, first.Created)
	assert.Equal(t, 3, first.HistoryCreated)

	second, err := run()
	require.NoError(t, err)
	assert.Equal(t, 0, second.Created)
	assert.Equal(t, 0, second.Updated)
	assert.Equal(t, 2, second.Skipped)
	assert.Equal(t, 3, second.HistorySkipped)

	tally := st.Tally()
	assert.Equal(t, 2, tally.Players)
	assert.Equal(t, 2, tally.PowerHistory)
	assert.Equal(t, 1, tally.FurnaceHistory)

	s, err := st.Begin(context.Background())
	require.NoError(t, err)
	defer s.Rollback()
	alice, err := s.FindPlayer(context.Background(), 1, "Alice")
	require.NoError(t, err)
	assert.Equal(t, int64(1_500_000), *alice.CurrentPower)
	assert.Equal(t, "FC4", *alice.CurrentFurnace)
	bob, err := s.FindPlayer(context.Background(), 1, "Bob")
	require.NoError(t, err)
	assert.Equal(t, int64(2_250_000), *bob.CurrentPower)
}

func TestAllianceMembersUpdatesPower(t *testing.T) {
	st := memstore.New()
	u := newUpserter()
	members := func(power int64, at time.Time) (domain.RowCounts, error) {
		return apply(t, st, func(s store.Session) (domain.RowCounts, error) {
			return u.AllianceMembers(context.Background(), s, capture(at), domain.MembersPayload{
				Players: []domain.MemberRow{{Name: "Alice", Power: ptr(power)}},
			})
		})
	}
	_, err := members(100, captured)
	require.NoError(t, err)
	counts, err := members(200, captured.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, counts.Updated)
	assert.Equal(t, 1, counts.HistoryCreated)
	assert.Equal(t, 2, st.Tally().PowerHistory)
}

func TestAllianceMembersDropsInvalidRows(t *testing.T) {
	st := memstore.New()
	counts, err := apply(t, st, func(s store.Session) (domain.RowCounts, error) {
		return newUpserter().AllianceMembers(context.Background(), s, capture(captured), domain.MembersPayload{
			Players: []domain.MemberRow{{Name: "null"}, {Name: "  "}, {Name: "Eve", Power: ptr(int64(-5))}, {Name: "Carol"}},
			Dropped: 1,
		})
	})
	require.NoError(t, err)
	assert.Equal(t, 4, counts.Invalid)
	assert.Equal(t, 1, counts.Created)
}

func TestEmptyPayloadsFail(t *testing.T) {
	st := memstore.New()
	u := newUpserter()
	ctx := context.Background()
	tests := []struct {
		name string
		fn   func(s store.Session) (domain.RowCounts, error)
	}{
		{"members", func(s store.Session) (domain.RowCounts, error) {
			return u.AllianceMembers(ctx, s, capture(captured), domain.MembersPayload{})
		}},
		{"bear damage", func(s store.Session) (domain.RowCounts, error) {
			return u.BearDamage(ctx, s, capture(captured), domain.BearDamagePayload{TrapID: ptr(1)})
		}},
		{"bear trap missing", func(s store.Session) (domain.RowCounts, error) {
			return u.BearDamage(ctx, s, capture(captured), domain.BearDamagePayload{Players: []domain.BearScoreRow{{Name: "A", Damage: 1}}})
		}},
		{"bear trap out of range", func(s store.Session) (domain.RowCounts, error) {
			return u.BearOverview(ctx, s, capture(captured), domain.BearOverview{TrapID: ptr(3)})
		}},
		{"foundry legion out of range", func(s store.Session) (domain.RowCounts, error) {
			return u.FoundryResult(ctx, s, capture(captured), domain.FoundryResultPayload{Legion: ptr(3), Players: []domain.FoundryResultRow{{Name: "A"}}})
		}},
		{"foundry result", func(s store.Session) (domain.RowCounts, error) {
			return u.FoundryResult(ctx, s, capture(captured), domain.FoundryResultPayload{})
		}},
		{"ac signup", func(s store.Session) (domain.RowCounts, error) {
			return u.ACSignup(ctx, s, capture(captured), domain.ACSignupPayload{})
		}},
		{"contribution", func(s store.Session) (domain.RowCounts, error) {
			return u.Contribution(ctx, s, capture(captured), domain.ContributionPayload{})
		}},
		{"alliance power", func(s store.Session) (domain.RowCounts, error) {
			return u.AlliancePower(ctx, s, capture(captured), domain.AlliancePowerPayload{})
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := apply(t, st, tt.fn)
			assert.ErrorIs(t, err, domain.ErrValidation)
		})
	}
	assert.Equal(t, memstore.Tally{}, st.Tally())
}

func TestBearDamageNeverLowersScore(t *testing.T) {
	st := seed(t, "Alice", "Bob")
	u := newUpserter()
	damage := func(at time.Time, rows ...domain.BearScoreRow) (domain.RowCounts, error) {
		return apply(t, st, func(s store.Session) (domain.RowCounts, error) {
			return u.BearDamage(context.Background(), s, capture(at), domain.BearDamagePayload{TrapID: ptr(1), Players: rows})
		})
	}

	first, err := damage(captured,
		domain.BearScoreRow{Name: "Alice", Damage: 1000, Rank: ptr(1)},
		domain.BearScoreRow{Name: "Bob", Damage: 500, Rank: ptr(2)},
		domain.BearScoreRow{Name: "Mallory", Damage: 10},
	)
	require.NoError(t, err)
	assert.Equal(t, 2, first.Created)
	assert.Equal(t, 1, first.Unresolved)

	again, err := damage(captured,
		domain.BearScoreRow{Name: "Alice", Damage: 1000, Rank: ptr(1)},
		domain.BearScoreRow{Name: "Bob", Damage: 500, Rank: ptr(2)},
	)
	require.NoError(t, err)
	assert.Equal(t, 2, again.Skipped)
	assert.Equal(t, first.EventID, again.EventID)

	later, err := damage(captured.Add(time.Hour),
		domain.BearScoreRow{Name: "Alice", Damage: 800, Rank: ptr(1)},
		domain.BearScoreRow{Name: "Bob", Damage: 900, Rank: ptr(1)},
	)
	require.NoError(t, err)
	assert.Equal(t, 1, later.Skipped)
	assert.Equal(t, 1, later.Updated)

	s, err := st.Begin(context.Background())
	require.NoError(t, err)
	defer s.Rollback()
	scores, err := s.ListBearScores(context.Background(), first.EventID)
	require.NoError(t, err)
	require.Len(t, scores, 2)
	assert.Equal(t, int64(1000), scores[0].Score)
	assert.Equal(t, int64(900), scores[1].Score)
	assert.Equal(t, 1, *scores[1].Rank)
}

func TestBearOverviewSetsStats(t *testing.T) {
	st := seed(t, "Alice")
	u := newUpserter()

	damage, err := apply(t, st, func(s store.Session) (domain.RowCounts, error) {
		return u.BearDamage(context.Background(), s, capture(captured), domain.BearDamagePayload{
			TrapID: ptr(2), Players: []domain.BearScoreRow{{Name: "Alice", Damage: 10}},
		})
	})
	require.NoError(t, err)

	end := captured.Add(30 * time.Minute)
	overview, err := apply(t, st, func(s store.Session) (domain.RowCounts, error) {
		return u.BearOverview(context.Background(), s, capture(end), domain.BearOverview{
			TrapID: ptr(2), RallyCount: ptr(int64(12)), TotalDamage: ptr(int64(5_000_000)),
		})
	})
	require.NoError(t, err)
	assert.Equal(t, 1, overview.Updated)
	assert.Equal(t, damage.EventID, overview.EventID)

	s, err := st.Begin(context.Background())
	require.NoError(t, err)
	defer s.Rollback()
	e, err := s.GetBearEvent(context.Background(), overview.EventID)
	require.NoError(t, err)
	assert.Equal(t, captured, e.StartedAt)
	assert.Equal(t, end, *e.EndedAt)
	assert.Equal(t, int64(12), *e.RallyCount)
	assert.Equal(t, int64(5_000_000), *e.TotalDamage)
}

func TestFoundrySignupStatuses(t *testing.T) {
	st := seed(t, "Alice", "Bob", "Carol")
	u := newUpserter()
	payload := domain.FoundrySignupPayload{
		Legion:          ptr(2),
		TotalTroopPower: ptr(int64(90_000)),
		Players: []domain.FoundrySignupRow{
			{Name: "Alice", FoundryPower: 100, Status: "join", Voted: true},
			{Name: "Bob", FoundryPower: 90, Status: "legion_1_dispatched"},
			{Name: "Carol", FoundryPower: 80, Status: "no_engagements"},
			{Name: "Dave", FoundryPower: 70, Status: "maybe"},
		},
	}
	signup := func() (domain.RowCounts, error) {
		return apply(t, st, func(s store.Session) (domain.RowCounts, error) {
			return u.FoundrySignup(context.Background(), s, capture(captured), payload)
		})
	}

	counts, err := signup()
	require.NoError(t, err)
	assert.Equal(t, 1, counts.Created)
	assert.Equal(t, 2, counts.Ignored)
	assert.Equal(t, 1, counts.Invalid)

	again, err := signup()
	require.NoError(t, err)
	assert.Equal(t, 1, again.Skipped)
	assert.Equal(t, counts.EventID, again.EventID)

	s, err := st.Begin(context.Background())
	require.NoError(t, err)
	defer s.Rollback()
	e, err := s.FindFoundryEvent(context.Background(), 1, 2, time.Date(2025, 3, 16, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, int64(90_000), *e.TotalTroopPower)
}

func TestFoundryResultUsesPreviousSunday(t *testing.T) {
	st := seed(t, "Alice")
	u := newUpserter()
	counts, err := apply(t, st, func(s store.Session) (domain.RowCounts, error) {
		return u.FoundryResult(context.Background(), s, capture(captured), domain.FoundryResultPayload{
			Players: []domain.FoundryResultRow{{Name: "Alice", Score: 1200, Rank: ptr(1)}},
		})
	})
	require.NoError(t, err)
	assert.Equal(t, 1, counts.Created)

	s, err := st.Begin(context.Background())
	require.NoError(t, err)
	defer s.Rollback()
	e, err := s.FindFoundryEvent(context.Background(), 1, 1, time.Date(2025, 3, 9, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, counts.EventID, e.ID)
}

func TestACSignupOnlyRaisesPower(t *testing.T) {
	st := seed(t, "Alice")
	u := newUpserter()
	ac := func(power int64) (domain.RowCounts, error) {
		return apply(t, st, func(s store.Session) (domain.RowCounts, error) {
			return u.ACSignup(context.Background(), s, capture(captured), domain.ACSignupPayload{
				Players: []domain.ACSignupRow{{Name: "Alice", ACPower: power}},
			})
		})
	}

	c, err := ac(500)
	require.NoError(t, err)
	assert.Equal(t, 1, c.Created)
	c, err = ac(400)
	require.NoError(t, err)
	assert.Equal(t, 1, c.Skipped)
	c, err = ac(500)
	require.NoError(t, err)
	assert.Equal(t, 1, c.Skipped)
	c, err = ac(600)
	require.NoError(t, err)
	assert.Equal(t, 1, c.Updated)
	assert.Equal(t, 1, st.Tally().ACSignups)
}

func TestContributionOnePerDay(t *testing.T) {
	st := seed(t, "Alice")
	u := newUpserter()
	contribute := func(at time.Time, amount int64) (domain.RowCounts, error) {
		return apply(t, st, func(s store.Session) (domain.RowCounts, error) {
			return u.Contribution(context.Background(), s, capture(at), domain.ContributionPayload{
				Players: []domain.ContributionRow{{Name: "Alice", Amount: amount}},
			})
		})
	}

	c, err := contribute(captured, 100)
	require.NoError(t, err)
	assert.Equal(t, 1, c.Created)
	c, err = contribute(captured.Add(2*time.Hour), 150)
	require.NoError(t, err)
	assert.Equal(t, 1, c.Skipped)
	c, err = contribute(captured.Add(24*time.Hour), 200)
	require.NoError(t, err)
	assert.Equal(t, 1, c.Created)
	assert.Equal(t, 2, st.Tally().Contributions)
}

func TestAlliancePowerAppends(t *testing.T) {
	st := memstore.New()
	u := newUpserter()
	payload := domain.AlliancePowerPayload{Alliances: []domain.AlliancePowerRow{
		{NameWithTag: "[KIL]ShadowWarriors", TotalPower: 900, Rank: ptr(1)},
		{NameWithTag: "Lonely", TotalPower: 100, Rank: ptr(2)},
	}}
	for i := 0; i < 2; i++ {
		c, err := apply(t, st, func(s store.Session) (domain.RowCounts, error) {
			return u.AlliancePower(context.Background(), s, capture(captured), payload)
		})
		require.NoError(t, err)
		assert.Equal(t, 2, c.Created)
	}
	assert.Equal(t, 4, st.Tally().AlliancePower)
}

func TestParseFurnace(t *testing.T) {
	tests := []struct {
		raw   string
		label string
		level int
		ok    bool
	}{
		{"FC4", "FC4", 4, true},
		{"fc 4", "FC4", 4, true},
		{"27", "27", 27, true},
		{"FC", "", 0, false},
		{"abc", "", 0, false},
		{"0", "", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			label, level, ok := ParseFurnace(&tt.raw)
			assert.Equal(t, tt.label, label)
			assert.Equal(t, tt.level, level)
			assert.Equal(t, tt.ok, ok)
		})
	}
	_, _, ok := ParseFurnace(nil)
	assert.False(t, ok)
}

func TestSplitAllianceTag(t *testing.T) {
	tag, name := SplitAllianceTag("[KIL]ShadowWarriors")
	assert.Equal(t, "KIL", tag)
	assert.Equal(t, "ShadowWarriors", name)

	tag, name = SplitAllianceTag(" Lonely ")
	assert.Empty(t, tag)
	assert.Equal(t, "Lonely", name)
}

func TestBearScoreImprovesOnWrite(t *testing.T) {
	st := seed(t, "Alice")
	u := newUpserter()
	damage := func(score int64) domain.RowCounts {
		c, err := apply(t, st, func(s store.Session) (domain.RowCounts, error) {
			return u.BearDamage(context.Background(), s, capture(captured), domain.BearDamagePayload{
				TrapID:  ptr(2),
				Players: []domain.BearScoreRow{{Name: "Alice", Damage: score}},
			})
		})
		require.NoError(t, err)
		return c
	}
	stored := func(eventID int64) int64 {
		s, err := st.Begin(context.Background())
		require.NoError(t, err)
		defer s.Rollback()
		scores, err := s.ListBearScores(context.Background(), eventID)
		require.NoError(t, err)
		require.Len(t, scores, 1)
		return scores[0].Score
	}

	first := damage(100)
	assert.Equal(t, 1, damage(50).Skipped)
	assert.Equal(t, int64(100), stored(first.EventID))
	assert.Equal(t, 1, damage(150).Updated)
	assert.Equal(t, int64(150), stored(first.EventID))
}

func TestContributionSameDayNormalisesToOneKey(t *testing.T) {
	st := seed(t, "Alice")
	u := newUpserter()
	contribute := func(at time.Time) domain.RowCounts {
		c, err := apply(t, st, func(s store.Session) (domain.RowCounts, error) {
			return u.Contribution(context.Background(), s, capture(at), domain.ContributionPayload{
				Players: []domain.ContributionRow{{Name: "Alice", Amount: 10}},
			})
		})
		require.NoError(t, err)
		return c
	}

	assert.Equal(t, 1, contribute(time.Date(2025, 11, 17, 8, 0, 0, 0, time.UTC)).Created)
	assert.Equal(t, 1, contribute(time.Date(2025, 11, 17, 23, 0, 0, 0, time.UTC)).Skipped)
	assert.Equal(t, 1, st.Tally().Contributions)
}
