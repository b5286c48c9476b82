package ingest

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/flor3z/lol-live-tracker/internal/riot"
	"github.com/flor3z/lol-live-tracker/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pageCall struct {
	start, count int
}

// fakeAPI serves a newest-first history and match details from memory.
type fakeAPI struct {
	mu       sync.Mutex
	history  []string
	matches  map[string]*riot.Match
	failures map[string]error
	calls    []pageCall
	accounts map[string]*riot.Account
}

func (f *fakeAPI) GetMatchIDs(_ context.Context, _ string, start, count int) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, pageCall{start, count})
	if start >= len(f.history) {
		return []string{}, nil
	}
	end := min(start+count, len(f.history))
	return f.history[start:end], nil
}

func (f *fakeAPI) GetMatch(_ context.Context, matchID string) (*riot.Match, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.failures[matchID]; ok {
		return nil, err
	}
	m, ok := f.matches[matchID]
	if !ok {
		return nil, fmt.Errorf("failed to get match %s: %w", matchID, riot.ErrNotFound)
	}
	return m, nil
}

func (f *fakeAPI) GetAccountByPUUID(_ context.Context, puuid string) (*riot.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.accounts[puuid]
	if !ok {
		return nil, fmt.Errorf("failed to get account by PUUID: %w", riot.ErrNotFound)
	}
	return a, nil
}

func historyOf(n int) []string {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("EUW1_%d", 10_000-i)
	}
	return ids
}

func matchFor(id string, puuids ...string) *riot.Match {
	m := &riot.Match{
		Metadata: riot.MatchMetadata{MatchID: id, DataVersion: "2", Participants: puuids},
		Info: riot.MatchInfo{
			GameMode:     "CLASSIC",
			GameType:     "MATCHED_GAME",
			QueueID:      420,
			PlatformID:   "EUW1",
			GameDuration: 1800,
		},
	}
	for i, puuid := range puuids {
		m.Info.Participants = append(m.Info.Participants, riot.Participant{
			PUUID:          puuid,
			RiotIdGameName: "Player" + puuid,
			RiotIdTagline:  "EUW",
			ChampionName:   "Ahri",
			TeamID:         100 + 100*(i%2),
			Kills:          i,
		})
	}
	return m
}

func newTestStore(t *testing.T) *storage.Repository {
	t.Helper()
	repo, err := storage.NewRepository(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestDiscoverNewMatchIDs(t *testing.T) {
	tests := []struct {
		name      string
		history   int
		stored    int // newest entries already ingested
		wantIDs   int
		wantCalls []pageCall
	}{
		{
			name:      "short last page ends history",
			history:   250,
			wantIDs:   250,
			wantCalls: []pageCall{{0, 100}, {100, 100}, {200, 100}},
		},
		{
			name:      "empty history",
			history:   0,
			wantIDs:   0,
			wantCalls: []pageCall{{0, 100}},
		},
		{
			name:      "exact page multiple needs an empty page",
			history:   200,
			wantIDs:   200,
			wantCalls: []pageCall{{0, 100}, {100, 100}, {200, 100}},
		},
		{
			name:      "known full page stops paging",
			history:   500,
			stored:    500,
			wantIDs:   0,
			wantCalls: []pageCall{{0, 100}},
		},
		{
			name:      "partially known page continues",
			history:   250,
			stored:    50,
			wantIDs:   200,
			wantCalls: []pageCall{{0, 100}, {100, 100}, {200, 100}},
		},
		{
			name:      "capped at max matches",
			history:   1500,
			wantIDs:   MaxMatches,
			wantCalls: []pageCall{{0, 100}, {100, 100}, {200, 100}, {300, 100}, {400, 100}, {500, 100}, {600, 100}, {700, 100}, {800, 100}, {900, 100}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			store := newTestStore(t)
			api := &fakeAPI{history: historyOf(tt.history)}

			for _, id := range api.history[:tt.stored] {
				record, participants := Convert(matchFor(id, "p1"))
				require.NoError(t, store.UpsertMatch(ctx, record, participants))
			}

			ids, err := New(api, store).DiscoverNewMatchIDs(ctx, "p1")
			require.NoError(t, err)
			assert.Len(t, ids, tt.wantIDs)
			assert.Equal(t, tt.wantCalls, api.calls)
		})
	}
}

func TestDiscoverNewMatchIDs_ListingError(t *testing.T) {
	store := newTestStore(t)
	api := &failingLister{}

	ids, err := New(api, store).DiscoverNewMatchIDs(context.Background(), "p1")
	assert.Error(t, err)
	assert.Empty(t, ids)
}

type failingLister struct{ fakeAPI }

func (f *failingLister) GetMatchIDs(context.Context, string, int, int) ([]string, error) {
	return nil, &riot.APIError{Kind: riot.KindTransient, StatusCode: 503}
}

func TestIngestMatch(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	api := &fakeAPI{
		matches: map[string]*riot.Match{"EUW1_1": matchFor("EUW1_1", "p1", "p2", "p3")},
		failures: map[string]error{
			"EUW1_3": &riot.APIError{Kind: riot.KindFatal, StatusCode: 403},
		},
	}
	p := New(api, store)

	t.Run("stores match and participants", func(t *testing.T) {
		ok, err := p.IngestMatch(ctx, "EUW1_1")
		require.NoError(t, err)
		assert.True(t, ok)

		rows, err := store.GetParticipants(ctx, "EUW1_1")
		require.NoError(t, err)
		assert.Len(t, rows, 3)
	})

	t.Run("second ingest changes nothing", func(t *testing.T) {
		before, err := store.GetMatch(ctx, "EUW1_1")
		require.NoError(t, err)

		ok, err := p.IngestMatch(ctx, "EUW1_1")
		require.NoError(t, err)
		assert.True(t, ok)

		after, err := store.GetMatch(ctx, "EUW1_1")
		require.NoError(t, err)
		assert.Equal(t, before, after)

		rows, err := store.GetParticipants(ctx, "EUW1_1")
		require.NoError(t, err)
		assert.Len(t, rows, 3)

		count, err := store.CountMatches(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, count)
	})

	t.Run("not found is not an error", func(t *testing.T) {
		ok, err := p.IngestMatch(ctx, "EUW1_2")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("other failures are returned", func(t *testing.T) {
		ok, err := p.IngestMatch(ctx, "EUW1_3")
		assert.False(t, ok)
		require.Error(t, err)
		assert.Equal(t, riot.KindFatal, riot.KindOf(err))
	})
}

func TestSyncPlayer(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	api := &fakeAPI{
		history: []string{"EUW1_3", "EUW1_2", "EUW1_1"},
		matches: map[string]*riot.Match{
			"EUW1_3": matchFor("EUW1_3", "p1"),
			"EUW1_1": matchFor("EUW1_1", "p1"),
		},
		failures: map[string]error{
			"EUW1_2": &riot.APIError{Kind: riot.KindTransient, StatusCode: 500},
		},
	}
	p := New(api, store)

	n, err := p.SyncPlayer(ctx, "p1")
	assert.Error(t, err)
	assert.Equal(t, 2, n)

	// the failed match is retried on the next sync
	delete(api.failures, "EUW1_2")
	api.matches["EUW1_2"] = matchFor("EUW1_2", "p1")
	n, err = p.SyncPlayer(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	ids, err := store.StoredMatchIDs(ctx, "p1")
	require.NoError(t, err)
	assert.Len(t, ids, 3)
}

func TestSyncAll(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	require.NoError(t, store.AddPlayer(ctx, &storage.Player{PUUID: "p1", GameName: "Alpha", TagLine: "EUW", GuildID: "g1"}))
	require.NoError(t, store.AddPlayer(ctx, &storage.Player{PUUID: "p2", GameName: "Bravo", TagLine: "EUW", GuildID: "g1"}))

	api := &fakeAPI{
		history: []string{"EUW1_1"},
		matches: map[string]*riot.Match{"EUW1_1": matchFor("EUW1_1", "p1", "p2")},
	}

	n, err := New(api, store).SyncAll(ctx)
	require.NoError(t, err)
	// p2 already knows the match once p1 ingests it
	assert.Equal(t, 1, n)
}

func TestSyncAll_ContinuesAfterFailure(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	require.NoError(t, store.AddPlayer(ctx, &storage.Player{PUUID: "p1", GameName: "Alpha", TagLine: "EUW", GuildID: "g1"}))
	require.NoError(t, store.AddPlayer(ctx, &storage.Player{PUUID: "p2", GameName: "Bravo", TagLine: "EUW", GuildID: "g1"}))

	api := &fakeAPI{
		history:  []string{"EUW1_1"},
		failures: map[string]error{"EUW1_1": errors.New("boom")},
	}

	n, err := New(api, store).SyncAll(ctx)
	assert.Error(t, err)
	assert.Equal(t, 0, n)
	assert.Len(t, api.calls, 2)
}

func TestSyncAll_RefreshesRenamedPlayers(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	require.NoError(t, store.AddPlayer(ctx, &storage.Player{PUUID: "p1", GameName: "Alpha", TagLine: "EUW", GuildID: "g1"}))
	require.NoError(t, store.AddPlayer(ctx, &storage.Player{PUUID: "p2", GameName: "Bravo", TagLine: "EUW", GuildID: "g2"}))
	_, err := store.AdvanceWatermark(ctx, "p1", "900")
	require.NoError(t, err)

	api := &fakeAPI{
		accounts: map[string]*riot.Account{
			"p1": {PUUID: "p1", GameName: "Omega", TagLine: "EUNE"},
		},
	}

	_, err = New(api, store).SyncAll(ctx)
	require.NoError(t, err)

	renamed, err := store.GetPlayer(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "Omega#EUNE", renamed.RiotID())
	assert.Equal(t, "g1", renamed.GuildID)
	assert.Equal(t, "900", renamed.LastGameID)

	// a failed lookup leaves the stored handle alone
	unchanged, err := store.GetPlayer(ctx, "p2")
	require.NoError(t, err)
	assert.Equal(t, "Bravo#EUW", unchanged.RiotID())
	assert.Equal(t, "g2", unchanged.GuildID)
}

func TestConvert(t *testing.T) {
	m := matchFor("EUW1_7", "p1", "p2")
	m.Info.Participants[0].VisionWardsBought = 4
	m.Info.GameEndTimestamp = 1_700_000_000_000

	record, participants := Convert(m)
	assert.Equal(t, "EUW1_7", record.MatchID)
	assert.Equal(t, int64(1_700_000_000_000), record.GameEnd)
	require.Len(t, participants, 2)
	assert.Equal(t, "EUW1_7", participants[0].MatchID)
	assert.Equal(t, "Playerp1", participants[0].GameName)
	assert.Equal(t, 4, participants[0].VisionWardsBought)
	assert.Equal(t, 200, participants[1].TeamID)
}
