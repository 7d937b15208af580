package memstore

import (
	"context"
	"testing"
	"time"

	"alliance-observatory/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommitPublishesAndRollbackDiscards(t *testing.T) {
	ctx := context.Background()
	st := New()

	s, err := st.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, s.CreatePlayer(ctx, &domain.Player{AllianceID: 1, Name: "Alice"}))
	require.NoError(t, s.Commit())
	assert.ErrorIs(t, s.Commit(), errSessionDone)

	s, err = st.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, s.CreatePlayer(ctx, &domain.Player{AllianceID: 1, Name: "Bob"}))
	assert.Error(t, s.CreatePlayer(ctx, &domain.Player{AllianceID: 1, Name: "Alice"}))
	require.NoError(t, s.Rollback())
	require.NoError(t, s.Rollback())

	assert.Equal(t, 1, st.Tally().Players)
}

func TestSessionsAreSerialised(t *testing.T) {
	ctx := context.Background()
	st := New()

	first, err := st.Begin(ctx)
	require.NoError(t, err)

	started := make(chan struct{})
	go func() {
		s, err := st.Begin(ctx)
		if err == nil {
			_ = s.Rollback()
		}
		close(started)
	}()

	select {
	case <-started:
		t.Fatal("second session began while the first was open")
	case <-time.After(20 * time.Millisecond):
	}
	require.NoError(t, first.Rollback())
	<-started
}

func TestBeginHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New().Begin(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestHistoryIsInsertOnce(t *testing.T) {
	ctx := context.Background()
	st := New()
	at := time.Date(2025, 3, 12, 15, 0, 0, 0, time.UTC)

	s, err := st.Begin(ctx)
	require.NoError(t, err)
	ok, err := s.InsertPowerHistory(ctx, &domain.PowerHistory{PlayerID: 1, Power: 10, CapturedAt: at})
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = s.InsertPowerHistory(ctx, &domain.PowerHistory{PlayerID: 1, Power: 20, CapturedAt: at})
	require.NoError(t, err)
	assert.False(t, ok)
	require.NoError(t, s.Commit())

	require.NoError(t, st.RecordOCRResult(ctx, &domain.OCRResult{ID: "x"}))
	assert.Len(t, st.OCRResults(), 1)
	assert.Equal(t, 1, st.Tally().PowerHistory)
}

func TestHistoryKeysUseWholeSeconds(t *testing.T) {
	ctx := context.Background()
	st := New()
	at := time.Date(2025, 3, 12, 15, 0, 0, 0, time.UTC)
	berlin := time.FixedZone("CET", 3600)

	s, err := st.Begin(ctx)
	require.NoError(t, err)

	ok, err := s.InsertPowerHistory(ctx, &domain.PowerHistory{PlayerID: 1, Power: 10, CapturedAt: at.Add(100 * time.Millisecond)})
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = s.InsertPowerHistory(ctx, &domain.PowerHistory{PlayerID: 1, Power: 20, CapturedAt: at.Add(700 * time.Millisecond)})
	require.NoError(t, err)
	assert.False(t, ok, "same second")
	ok, err = s.InsertPowerHistory(ctx, &domain.PowerHistory{PlayerID: 1, Power: 30, CapturedAt: at.Add(time.Second)})
	require.NoError(t, err)
	assert.True(t, ok, "next second")

	ok, err = s.InsertFurnaceHistory(ctx, &domain.FurnaceHistory{PlayerID: 1, FurnaceLevel: 30, CapturedAt: at})
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = s.InsertFurnaceHistory(ctx, &domain.FurnaceHistory{PlayerID: 1, FurnaceLevel: 31, CapturedAt: at.In(berlin).Add(999 * time.Millisecond)})
	require.NoError(t, err)
	assert.False(t, ok, "same instant in another zone")
	require.NoError(t, s.Commit())

	tally := st.Tally()
	assert.Equal(t, 2, tally.PowerHistory)
	assert.Equal(t, 1, tally.FurnaceHistory)
}
