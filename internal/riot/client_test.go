package riot

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestClient points a client at srv and records backoff waits instead of
// sleeping.
func newTestClient(t *testing.T, srv *httptest.Server) (*Client, *[]time.Duration) {
	t.Helper()

	var waits []time.Duration
	c := NewClient("RGAPI-test", "euw1", "europe", WithBaseURLs(srv.URL, srv.URL, srv.URL))
	c.sleep = func(_ context.Context, d time.Duration) error {
		waits = append(waits, d)
		return nil
	}
	return c, &waits
}

// sequence answers each request with the next status in order, repeating the
// last one.
func sequence(calls *int32, statuses []int, headers map[int]http.Header, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		n := int(atomic.AddInt32(calls, 1)) - 1
		if n >= len(statuses) {
			n = len(statuses) - 1
		}
		status := statuses[n]
		for k, v := range headers[n] {
			w.Header()[k] = v
		}
		w.WriteHeader(status)
		if status == http.StatusOK {
			w.Write([]byte(body))
		}
	}
}

const matchBody = `{
	"metadata": {"matchId": "EUW1_1", "participants": ["p1", "p2"]},
	"info": {
		"gameDuration": 1500, "gameMode": "ARAM", "queueId": 450, "platformId": "EUW1",
		"participants": [
			{"puuid": "p1", "championName": "Ahri", "kills": 10, "deaths": 2, "assists": 7, "win": true},
			{"puuid": "p2", "championName": "Garen", "kills": 1, "deaths": 9, "assists": 3}
		]
	}
}`

func TestClient_StatusHandling(t *testing.T) {
	tests := []struct {
		name      string
		statuses  []int
		headers   map[int]http.Header
		body      string
		wantCalls int32
		wantWaits []time.Duration
		wantErr   bool
		notFound  bool
		wantKind  ErrorKind
	}{
		{
			name:      "ok",
			statuses:  []int{200},
			body:      matchBody,
			wantCalls: 1,
		},
		{
			name:      "not found is not retried",
			statuses:  []int{404},
			wantCalls: 1,
			wantErr:   true,
			notFound:  true,
		},
		{
			name:      "429 honours Retry-After",
			statuses:  []int{429, 200},
			headers:   map[int]http.Header{0: {"Retry-After": {"2"}}},
			body:      matchBody,
			wantCalls: 2,
			wantWaits: []time.Duration{2 * time.Second},
		},
		{
			name:      "429 without header waits default",
			statuses:  []int{429, 200},
			body:      matchBody,
			wantCalls: 2,
			wantWaits: []time.Duration{5 * time.Second},
		},
		{
			name:      "429 exhausted",
			statuses:  []int{429},
			wantCalls: int32(defaultMaxRateLimitRetries + 1),
			wantWaits: []time.Duration{5 * time.Second, 5 * time.Second, 5 * time.Second, 5 * time.Second, 5 * time.Second},
			wantErr:   true,
			wantKind:  KindRateLimited,
		},
		{
			name:      "5xx recovers",
			statuses:  []int{503, 200},
			body:      matchBody,
			wantCalls: 2,
			wantWaits: []time.Duration{time.Second},
		},
		{
			name:      "5xx exhausted",
			statuses:  []int{500, 504, 503},
			wantCalls: 3,
			wantWaits: []time.Duration{time.Second, 2 * time.Second},
			wantErr:   true,
			wantKind:  KindTransient,
		},
		{
			name:      "forbidden is fatal",
			statuses:  []int{403},
			wantCalls: 1,
			wantErr:   true,
			wantKind:  KindFatal,
		},
		{
			name:      "malformed body is fatal",
			statuses:  []int{200},
			body:      `{"metadata":`,
			wantCalls: 1,
			wantErr:   true,
			wantKind:  KindFatal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls int32
			srv := httptest.NewServer(sequence(&calls, tt.statuses, tt.headers, tt.body))
			defer srv.Close()

			c, waits := newTestClient(t, srv)
			match, err := c.GetMatch(context.Background(), "EUW1_1")

			assert.Equal(t, tt.wantCalls, atomic.LoadInt32(&calls))
			assert.Equal(t, tt.wantWaits, *waits)

			if !tt.wantErr {
				require.NoError(t, err)
				assert.Equal(t, "EUW1_1", match.Metadata.MatchID)
				require.Len(t, match.Info.Participants, 2)
				assert.Equal(t, "Ahri", match.Info.Participants[0].ChampionName)
				return
			}

			require.Error(t, err)
			assert.Equal(t, tt.notFound, IsNotFound(err))
			if !tt.notFound {
				assert.Equal(t, tt.wantKind, KindOf(err))
			}
		})
	}
}

func TestClient_SendsTokenAndPagination(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "RGAPI-test", r.Header.Get("X-Riot-Token"))
		assert.Equal(t, "/lol/match/v5/matches/by-puuid/p1/ids", r.URL.Path)
		assert.Equal(t, "200", r.URL.Query().Get("start"))
		assert.Equal(t, "100", r.URL.Query().Get("count"))
		w.Write([]byte(`["EUW1_3","EUW1_2"]`))
	}))
	defer srv.Close()

	c, _ := newTestClient(t, srv)
	ids, err := c.GetMatchIDs(context.Background(), "p1", 200, 100)
	require.NoError(t, err)
	assert.Equal(t, []string{"EUW1_3", "EUW1_2"}, ids)
}

func TestClient_GetCurrentGame(t *testing.T) {
	var inGame atomic.Bool
	inGame.Store(true)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !inGame.Load() {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte(`{"gameId": 7012345678, "gameMode": "CLASSIC", "gameType": "MATCHED_GAME", "platformId": "EUW1",
			"participants": [{"puuid": "p1", "championId": 103, "teamId": 100}]}`))
	}))
	defer srv.Close()

	c, _ := newTestClient(t, srv)

	game, err := c.GetCurrentGame(context.Background(), "p1")
	require.NoError(t, err)
	require.NotNil(t, game)
	assert.Equal(t, "7012345678", game.GameIDString())
	assert.Equal(t, "EUW1_7012345678", game.MatchID())
	require.Len(t, game.Participants, 1)

	inGame.Store(false)
	game, err = c.GetCurrentGame(context.Background(), "p1")
	require.NoError(t, err)
	assert.Nil(t, game)
}

func TestClient_NetworkFailureIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	c, waits := newTestClient(t, srv)
	_, err := c.GetVersions(context.Background())
	require.Error(t, err)
	assert.Equal(t, KindTransient, KindOf(err))
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, *waits)
}

func TestClient_GetAccountByPUUID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/riot/account/v1/accounts/by-puuid/p1", r.URL.Path)
		w.Write([]byte(`{"puuid": "p1", "gameName": "Renamed", "tagLine": "EUW"}`))
	}))
	defer srv.Close()

	c, _ := newTestClient(t, srv)
	account, err := c.GetAccountByPUUID(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, "Renamed#EUW", account.RiotID())
}

func TestChampionNames(t *testing.T) {
	var loads int32
	var failing atomic.Bool
	failing.Store(true)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/versions.json":
			w.Write([]byte(`["14.20.1","14.19.1"]`))
		case "/cdn/14.20.1/data/en_US/champion.json":
			atomic.AddInt32(&loads, 1)
			if failing.Load() {
				w.WriteHeader(http.StatusForbidden)
				return
			}
			w.Write([]byte(`{"data": {"Ahri": {"key": "103", "name": "Ahri"}, "MonkeyKing": {"key": "62", "name": "Wukong"}}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c, _ := newTestClient(t, srv)
	names := NewChampionNames(c)
	ctx := context.Background()

	// a failed load is not cached
	assert.Empty(t, names.ChampionName(ctx, 103))

	failing.Store(false)
	assert.Equal(t, "Ahri", names.ChampionName(ctx, 103))
	assert.Equal(t, "Wukong", names.ChampionName(ctx, 62))
	assert.Empty(t, names.ChampionName(ctx, 999))
	assert.Equal(t, int32(2), atomic.LoadInt32(&loads))
}

func TestParseRiotID(t *testing.T) {
	tests := []struct {
		input   string
		name    string
		tag     string
		wantErr bool
	}{
		{input: "Faker#KR1", name: "Faker", tag: "KR1"},
		{input: " Hide on bush # KR1 ", name: "Hide on bush", tag: "KR1"},
		{input: "Faker", wantErr: true},
		{input: "#KR1", wantErr: true},
		{input: "a#b#c", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			name, tag, err := ParseRiotID(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.name, name)
			assert.Equal(t, tt.tag, tag)
		})
	}
}
