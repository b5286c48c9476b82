package poller

import (
	"context"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/flor3z/lol-live-tracker/internal/game"
	"github.com/flor3z/lol-live-tracker/internal/notify"
	"github.com/flor3z/lol-live-tracker/internal/riot"
	"github.com/flor3z/lol-live-tracker/internal/storage"
	"github.com/google/uuid"
)

// CurrentGameFetcher looks up the game a player is in right now
type CurrentGameFetcher interface {
	GetCurrentGame(ctx context.Context, puuid string) (*riot.CurrentGame, error)
}

// Roster is the tracked player list
type Roster interface {
	ListActivePlayers(ctx context.Context) ([]*storage.Player, error)
	AdvanceWatermark(ctx context.Context, puuid, gameID string) (bool, error)
}

// Ingestor stores finished matches
type Ingestor interface {
	IngestMatch(ctx context.Context, matchID string) (bool, error)
	SyncPlayer(ctx context.Context, puuid string) (int, error)
}

// Notifier renders game lifecycle events
type Notifier interface {
	PostLive(ctx context.Context, g notify.LiveGame) (notify.MessageRef, error)
	UpdateToEnded(ctx context.Context, ref notify.MessageRef) error
	PostFinalResult(ctx context.Context, ref notify.MessageRef, guildID, matchID string) error
	PostFailure(ctx context.Context, ref notify.MessageRef, guildID, matchID string, attempts int) error
}

// PendingQueue holds matches that were not retrievable when their game ended
type PendingQueue interface {
	EnqueuePending(ctx context.Context, e *storage.PendingMatch) error
	DrainDue(ctx context.Context, minAge time.Duration) ([]storage.PendingMatch, error)
	RecordAttempt(ctx context.Context, matchID string) (int, error)
	RemovePending(ctx context.Context, matchID string) (bool, error)
	PurgePendingOlderThan(ctx context.Context, maxAge time.Duration) (int64, error)
}

// session is one live game with at least one tracked player in it
type session struct {
	gameID    string
	matchID   string
	mode      game.Mode
	guildID   string
	players   map[string]string // puuid -> Riot ID
	champions map[string]int    // puuid -> champion id
	message   notify.MessageRef
	startedAt time.Time
	announced bool
	uncertain int // consecutive ticks spent unobserved with a failed lookup
}

// SessionInfo is a read-only view of a live session
type SessionInfo struct {
	GameID    string            `json:"gameId"`
	MatchID   string            `json:"matchId"`
	Mode      string            `json:"mode"`
	Category  game.Category     `json:"category"`
	GuildID   string            `json:"guildId"`
	Players   []string          `json:"players"`
	Message   notify.MessageRef `json:"message"`
	StartedAt time.Time         `json:"startedAt"`
	Announced bool              `json:"announced"`
}

// finishedRetention is how long an ended game id is remembered so a stale
// current-game response cannot start it again.
const finishedRetention = 6 * time.Hour

// maxUncertainTicks bounds how long failed lookups can hold a session open.
const maxUncertainTicks = 3

// Tracker polls tracked players for live games and drives each game from
// live to ended
type Tracker struct {
	api      CurrentGameFetcher
	roster   Roster
	ingest   Ingestor
	notifier Notifier
	pending  PendingQueue
	platform string
	interval time.Duration

	mu       sync.RWMutex
	sessions map[string]*session
	finished map[string]time.Time // ended game id -> when it ended

	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewTracker creates a Tracker
func NewTracker(api CurrentGameFetcher, roster Roster, ingest Ingestor, notifier Notifier, pending PendingQueue, platform string, interval time.Duration) *Tracker {
	return &Tracker{
		api:      api,
		roster:   roster,
		ingest:   ingest,
		notifier: notifier,
		pending:  pending,
		platform: strings.ToUpper(platform),
		interval: interval,
		sessions: make(map[string]*session),
		finished: make(map[string]time.Time),
		stopChan: make(chan struct{}),
	}
}

// Start runs the polling loop in the background
func (t *Tracker) Start(ctx context.Context) {
	slog.Info("Starting live game tracker", "interval", t.interval)

	t.wg.Add(1)
	go t.run(ctx)
}

// Stop signals the tracker to stop and waits for the current tick
func (t *Tracker) Stop() {
	t.stopOnce.Do(func() { close(t.stopChan) })
	t.wg.Wait()
}

func (t *Tracker) run(ctx context.Context) {
	defer t.wg.Done()

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	// Initial poll
	t.Tick(ctx)

	for {
		select {
		case <-ctx.Done():
			slog.Info("Live game tracker stopped (context cancelled)")
			return
		case <-t.stopChan:
			slog.Info("Live game tracker stopped")
			return
		case <-ticker.C:
			t.Tick(ctx)
		}
	}
}

// Tick runs one poll over the active roster. A tick that has started runs to
// completion even if ctx is cancelled.
func (t *Tracker) Tick(ctx context.Context) {
	ctx = context.WithoutCancel(ctx)
	log := slog.With("tick", uuid.NewString())

	defer func() {
		if r := recover(); r != nil {
			log.Error("Tracker tick panicked", "panic", r)
		}
	}()

	players, err := t.roster.ListActivePlayers(ctx)
	if err != nil {
		log.Error("Failed to list players", "error", err)
		return
	}

	polled := &tickState{
		tracked:  make(map[string]*storage.Player, len(players)),
		done:     make(map[string]bool, len(players)),
		unknown:  make(map[string]bool),
		located:  make(map[string]bool),
		observed: make(map[string]bool),
	}
	for _, p := range players {
		polled.tracked[p.PUUID] = p
	}

	log.Debug("Polling players", "count", len(players))

	for _, p := range players {
		if polled.done[p.PUUID] {
			continue
		}
		polled.done[p.PUUID] = true
		t.guard(log, "player", p.RiotID(), func() {
			t.checkPlayer(ctx, log, polled, p)
		})
	}

	for _, s := range t.endedSessions(polled) {
		t.guard(log, "game", s.gameID, func() {
			t.endSession(ctx, log, s)
		})
	}
}

// tickState is what one tick has learned so far
type tickState struct {
	tracked  map[string]*storage.Player
	done     map[string]bool // polled directly or seen in a polled game
	unknown  map[string]bool // lookup failed with a retryable error
	located  map[string]bool // known to be in no game or in a specific one
	observed map[string]bool // live game ids
}

func (t *Tracker) guard(log *slog.Logger, kind, id string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("Recovered from panic", kind, id, "panic", r)
		}
	}()
	fn()
}

func (t *Tracker) checkPlayer(ctx context.Context, log *slog.Logger, polled *tickState, p *storage.Player) {
	current, err := t.api.GetCurrentGame(ctx, p.PUUID)
	if err != nil {
		kind := riot.KindOf(err)
		if kind == riot.KindTransient || kind == riot.KindRateLimited {
			polled.unknown[p.PUUID] = true
		}
		log.Warn("Failed to get current game", "player", p.RiotID(), "kind", kind, "error", err)
		return
	}
	polled.located[p.PUUID] = true
	if current == nil {
		return
	}

	gameID := current.GameIDString()
	if t.isFinished(gameID) {
		log.Debug("Ignoring finished game", "player", p.RiotID(), "gameID", gameID)
		return
	}
	polled.observed[gameID] = true

	members := []*storage.Player{p}
	champions := make(map[string]int, len(current.Participants))
	for _, participant := range current.Participants {
		other, ok := polled.tracked[participant.PUUID]
		if !ok {
			continue
		}
		champions[other.PUUID] = participant.ChampionID
		if other.PUUID == p.PUUID {
			continue
		}
		members = append(members, other)
		polled.done[other.PUUID] = true
		polled.located[other.PUUID] = true
	}

	t.mu.Lock()
	s, exists := t.sessions[gameID]
	if !exists {
		s = &session{
			gameID:    gameID,
			matchID:   t.matchID(current),
			mode:      game.Classify(current.GameMode, current.GameType),
			guildID:   p.GuildID,
			players:   make(map[string]string, len(members)),
			champions: make(map[string]int, len(members)),
			startedAt: startTime(current),
		}
		t.sessions[gameID] = s
	}
	fresh := false
	for _, m := range members {
		s.players[m.PUUID] = m.RiotID()
		if id, ok := champions[m.PUUID]; ok {
			s.champions[m.PUUID] = id
		}
		if m.LastGameID != gameID {
			fresh = true
		}
	}
	t.mu.Unlock()

	// watermarks move before anything is posted so a failed post is never retried
	for _, m := range members {
		if m.LastGameID == gameID {
			continue
		}
		if _, err := t.roster.AdvanceWatermark(ctx, m.PUUID, gameID); err != nil {
			log.Error("Failed to advance watermark", "player", m.RiotID(), "gameID", gameID, "error", err)
		}
		m.LastGameID = gameID
	}

	switch {
	case exists:
		return
	case !fresh:
		log.Info("Resumed live game", "gameID", gameID, "mode", s.mode.Name)
		return
	}

	live := notify.LiveGame{
		GameID:    gameID,
		MatchID:   s.matchID,
		Mode:      s.mode,
		GuildID:   s.guildID,
		Players:   livePlayers(s),
		StartedAt: s.startedAt,
	}

	log.Info("Live game detected", "gameID", gameID, "mode", s.mode.Name, "players", len(live.Players))

	ref, err := t.notifier.PostLive(ctx, live)
	if err != nil {
		log.Error("Failed to post live game", "gameID", gameID, "error", err)
	}

	t.mu.Lock()
	s.message = ref
	s.announced = err == nil
	t.mu.Unlock()
}

// endedSessions removes and returns the sessions whose game was not seen this
// tick. A session is kept while its only unpolled members failed with a
// retryable error, for at most maxUncertainTicks ticks in a row.
func (t *Tracker) endedSessions(polled *tickState) []*session {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := time.Now()
	for id, at := range t.finished {
		if now.Sub(at) > finishedRetention {
			delete(t.finished, id)
		}
	}

	var ended []*session
	for id, s := range t.sessions {
		if polled.observed[id] {
			s.uncertain = 0
			continue
		}
		uncertain, gone := false, false
		for puuid := range s.players {
			uncertain = uncertain || polled.unknown[puuid]
			gone = gone || polled.located[puuid]
		}
		if uncertain && !gone {
			s.uncertain++
			if s.uncertain < maxUncertainTicks {
				continue
			}
		}
		delete(t.sessions, id)
		t.finished[id] = now
		ended = append(ended, s)
	}
	return ended
}

func (t *Tracker) endSession(ctx context.Context, log *slog.Logger, s *session) {
	log = log.With("gameID", s.gameID, "matchID", s.matchID)
	log.Info("Game ended", "mode", s.mode.Name)

	if !s.message.IsZero() {
		if err := t.notifier.UpdateToEnded(ctx, s.message); err != nil {
			log.Warn("Failed to update live message", "error", err)
		}
	}

	if s.mode.SkipsIngestion() {
		log.Info("Skipping ingestion", "category", s.mode.Category)
		return
	}

	ok, err := t.ingest.IngestMatch(ctx, s.matchID)
	if err != nil || !ok {
		if err != nil {
			log.Warn("Failed to ingest ended game", "error", err)
		}
		t.enqueue(ctx, log, s)
		return
	}

	if err := t.notifier.PostFinalResult(ctx, s.message, s.guildID, s.matchID); err != nil {
		log.Error("Failed to post match result", "error", err)
	}

	for puuid, name := range s.players {
		if _, err := t.ingest.SyncPlayer(ctx, puuid); err != nil {
			log.Warn("Failed to sync player history", "player", name, "error", err)
		}
	}
}

func (t *Tracker) enqueue(ctx context.Context, log *slog.Logger, s *session) {
	entry := &storage.PendingMatch{
		MatchID:   s.matchID,
		GameMode:  s.mode.Name,
		GuildID:   s.guildID,
		ChannelID: s.message.ChannelID,
		MessageID: s.message.MessageID,
	}
	if err := t.pending.EnqueuePending(ctx, entry); err != nil {
		log.Error("Failed to queue match for retry", "error", err)
		return
	}
	log.Info("Queued match for retry")
}

// Sessions returns a snapshot of the live sessions, oldest first
func (t *Tracker) Sessions() []SessionInfo {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]SessionInfo, 0, len(t.sessions))
	for _, s := range t.sessions {
		out = append(out, SessionInfo{
			GameID:    s.gameID,
			MatchID:   s.matchID,
			Mode:      s.mode.Name,
			Category:  s.mode.Category,
			GuildID:   s.guildID,
			Players:   sortedNames(s.players),
			Message:   s.message,
			StartedAt: s.startedAt,
			Announced: s.announced,
		})
	}
	slices.SortFunc(out, func(a, b SessionInfo) int {
		if c := a.StartedAt.Compare(b.StartedAt); c != 0 {
			return c
		}
		return strings.Compare(a.GameID, b.GameID)
	})
	return out
}

// LiveCount returns the number of live sessions
func (t *Tracker) LiveCount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.sessions)
}

func (t *Tracker) isFinished(gameID string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.finished[gameID]
	return ok
}

func (t *Tracker) matchID(g *riot.CurrentGame) string {
	if g.PlatformID != "" {
		return g.MatchID()
	}
	return riot.MatchIDFor(t.platform, g.GameID)
}

func startTime(g *riot.CurrentGame) time.Time {
	if g.GameStartTime <= 0 {
		return time.Time{}
	}
	return time.UnixMilli(g.GameStartTime)
}

func livePlayers(s *session) []notify.LivePlayer {
	out := make([]notify.LivePlayer, 0, len(s.players))
	for puuid, name := range s.players {
		out = append(out, notify.LivePlayer{RiotID: name, ChampionID: s.champions[puuid]})
	}
	slices.SortFunc(out, func(a, b notify.LivePlayer) int {
		return strings.Compare(a.RiotID, b.RiotID)
	})
	return out
}

func sortedNames(players map[string]string) []string {
	names := make([]string, 0, len(players))
	for _, name := range players {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
