package giveaway

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testGiveaway(id string) *Giveaway {
	return &Giveaway{
		ID:           id,
		Name:         "Test " + id,
		Description:  "desc",
		WinnerCount:  1,
		EndTime:      testNow.Add(time.Hour).UnixMilli(),
		Participants: []snowflake.ID{},
		CreatedBy:    snowflake.ID(1),
		CreatedAt:    testNow,
		GuildID:      snowflake.ID(2),
		ChannelID:    snowflake.ID(3),
	}
}

func TestRepository_ListActive_EmptyStore(t *testing.T) {
	repo := NewRepository(newMemStore())

	giveaways, err := repo.ListActive(context.Background())
	require.NoError(t, err)
	assert.Empty(t, giveaways)
}

func TestRepository_CreateAndFind(t *testing.T) {
	repo := NewRepository(newMemStore())
	ctx := context.Background()

	require.NoError(t, repo.CreateActive(ctx, testGiveaway("AAAA1111")))
	require.NoError(t, repo.CreateActive(ctx, testGiveaway("BBBB2222")))

	g, err := repo.FindActive(ctx, "BBBB2222")
	require.NoError(t, err)
	assert.Equal(t, "Test BBBB2222", g.Name)

	_, err = repo.FindActive(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	giveaways, err := repo.ListActive(ctx)
	require.NoError(t, err)
	assert.Len(t, giveaways, 2)
}

func TestRepository_UpdateActive(t *testing.T) {
	store := newMemStore()
	repo := NewRepository(store)
	ctx := context.Background()

	require.NoError(t, repo.CreateActive(ctx, testGiveaway("AAAA1111")))

	g, err := repo.UpdateActive(ctx, "AAAA1111", func(g *Giveaway) error {
		g.Participants = append(g.Participants, snowflake.ID(42))
		return nil
	})
	require.NoError(t, err)
	assert.Len(t, g.Participants, 1)

	// The mutation must reach the store, not just the in-memory copy.
	g, err = repo.FindActive(ctx, "AAAA1111")
	require.NoError(t, err)
	assert.True(t, g.HasParticipant(snowflake.ID(42)))
}

func TestRepository_UpdateActive_MutateErrorAbortsSave(t *testing.T) {
	store := newMemStore()
	repo := NewRepository(store)
	ctx := context.Background()

	require.NoError(t, repo.CreateActive(ctx, testGiveaway("AAAA1111")))
	savesBefore := store.saves(ActiveKey)

	boom := errors.New("boom")
	_, err := repo.UpdateActive(ctx, "AAAA1111", func(g *Giveaway) error {
		g.Participants = append(g.Participants, snowflake.ID(42))
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, savesBefore, store.saves(ActiveKey))

	g, err := repo.FindActive(ctx, "AAAA1111")
	require.NoError(t, err)
	assert.Empty(t, g.Participants)
}

func TestRepository_Archive(t *testing.T) {
	repo := NewRepository(newMemStore())
	ctx := context.Background()

	require.NoError(t, repo.CreateActive(ctx, testGiveaway("AAAA1111")))

	rec, err := repo.Archive(ctx, "AAAA1111", func(g *Giveaway) (*HistoryRecord, error) {
		return &HistoryRecord{
			Giveaway: *g,
			EndedAt:  testNow,
			Winners:  []snowflake.ID{},
			Outcome:  OutcomeEndedNoWinners,
		}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, OutcomeEndedNoWinners, rec.Outcome)

	_, err = repo.FindActive(ctx, "AAAA1111")
	assert.ErrorIs(t, err, ErrNotFound)

	history, err := repo.History(ctx)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "AAAA1111", history[0].ID)

	_, err = repo.Archive(ctx, "AAAA1111", func(g *Giveaway) (*HistoryRecord, error) {
		t.Fatal("build must not run for a gone giveaway")
		return nil, nil
	})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRepository_Archive_BuildVetoWritesNothing(t *testing.T) {
	store := newMemStore()
	repo := NewRepository(store)
	ctx := context.Background()

	require.NoError(t, repo.CreateActive(ctx, testGiveaway("AAAA1111")))
	savesBefore := store.saves(ActiveKey)

	_, err := repo.Archive(ctx, "AAAA1111", func(g *Giveaway) (*HistoryRecord, error) {
		return nil, ErrNoParticipants
	})
	assert.ErrorIs(t, err, ErrNoParticipants)
	assert.Equal(t, savesBefore, store.saves(ActiveKey))
	assert.Zero(t, store.saves(HistoryKey))

	_, err = repo.FindActive(ctx, "AAAA1111")
	assert.NoError(t, err)
}

func TestRepository_Archive_RollsBackHistoryOnActiveSaveFailure(t *testing.T) {
	store := newMemStore()
	repo := NewRepository(store)
	ctx := context.Background()

	require.NoError(t, repo.CreateActive(ctx, testGiveaway("AAAA1111")))
	store.failSavesOf(ActiveKey, errors.New("store down"))

	_, err := repo.Archive(ctx, "AAAA1111", func(g *Giveaway) (*HistoryRecord, error) {
		return &HistoryRecord{
			Giveaway: *g,
			EndedAt:  testNow,
			Winners:  []snowflake.ID{},
			Outcome:  OutcomeEndedNoWinners,
		}, nil
	})
	require.Error(t, err)
	var perr *PersistenceError
	assert.ErrorAs(t, err, &perr)

	// The failed closure must leave the giveaway active and keep
	// history free of the half-written record.
	store.failSavesOf(ActiveKey, nil)
	_, err = repo.FindActive(ctx, "AAAA1111")
	assert.NoError(t, err)

	history, err := repo.History(ctx)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestRepository_HistoryOrder(t *testing.T) {
	repo := NewRepository(newMemStore())
	ctx := context.Background()

	for _, id := range []string{"AAAA1111", "BBBB2222", "CCCC3333"} {
		require.NoError(t, repo.AppendHistory(ctx, &HistoryRecord{
			Giveaway: *testGiveaway(id),
			EndedAt:  testNow,
			Winners:  []snowflake.ID{},
			Outcome:  OutcomeAutoEnded,
		}))
	}

	history, err := repo.History(ctx)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, "AAAA1111", history[0].ID)
	assert.Equal(t, "CCCC3333", history[2].ID)
}
