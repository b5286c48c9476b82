package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/flor3z/lol-live-tracker/internal/riot"
	"github.com/flor3z/lol-live-tracker/internal/storage"
)

// MaxMatches is the deepest a player's history is ever paged.
const MaxMatches = 1000

// MatchAPI is the part of the Riot client the pipeline needs
type MatchAPI interface {
	GetMatchIDs(ctx context.Context, puuid string, start, count int) ([]string, error)
	GetMatch(ctx context.Context, matchID string) (*riot.Match, error)
	GetAccountByPUUID(ctx context.Context, puuid string) (*riot.Account, error)
}

// MatchStore is where ingested matches are kept
type MatchStore interface {
	StoredMatchIDs(ctx context.Context, puuid string) (map[string]struct{}, error)
	UpsertMatch(ctx context.Context, m *storage.MatchRecord, participants []storage.ParticipantRecord) error
	ListActivePlayers(ctx context.Context) ([]*storage.Player, error)
	RenamePlayer(ctx context.Context, puuid, gameName, tagLine string) error
}

// Pipeline discovers and stores finished matches
type Pipeline struct {
	api      MatchAPI
	store    MatchStore
	pageSize int
}

// New creates a Pipeline
func New(api MatchAPI, store MatchStore) *Pipeline {
	return &Pipeline{
		api:      api,
		store:    store,
		pageSize: riot.MaxMatchIDsPerPage,
	}
}

// DiscoverNewMatchIDs pages through a player's history, newest first, and
// returns the ids not stored yet. Paging ends on an empty or short page, on a
// full page with nothing new, or at MaxMatches.
func (p *Pipeline) DiscoverNewMatchIDs(ctx context.Context, puuid string) ([]string, error) {
	known, err := p.store.StoredMatchIDs(ctx, puuid)
	if err != nil {
		return nil, fmt.Errorf("failed to load stored matches: %w", err)
	}

	var fresh []string
	for start := 0; start < MaxMatches; start += p.pageSize {
		count := min(p.pageSize, MaxMatches-start)
		ids, err := p.api.GetMatchIDs(ctx, puuid, start, count)
		if err != nil {
			return fresh, fmt.Errorf("failed to list matches at %d: %w", start, err)
		}

		added := 0
		for _, id := range ids {
			if _, ok := known[id]; ok {
				continue
			}
			known[id] = struct{}{}
			fresh = append(fresh, id)
			added++
		}

		if len(ids) < count || added == 0 {
			break
		}
	}

	return fresh, nil
}

// IngestMatch fetches a match and stores it with every participant. It
// returns false when the match is not available upstream yet.
func (p *Pipeline) IngestMatch(ctx context.Context, matchID string) (bool, error) {
	match, err := p.api.GetMatch(ctx, matchID)
	if riot.IsNotFound(err) {
		slog.Debug("Match not available yet", "matchID", matchID)
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to fetch match %s: %w", matchID, err)
	}

	record, participants := Convert(match)
	if record.MatchID == "" {
		record.MatchID = matchID
	}
	if err := p.store.UpsertMatch(ctx, record, participants); err != nil {
		return false, fmt.Errorf("failed to store match %s: %w", matchID, err)
	}

	slog.Debug("Ingested match", "matchID", matchID, "participants", len(participants))
	return true, nil
}

// SyncPlayer ingests every match of a player that is not stored yet and
// returns how many were stored. A failing match does not stop the rest.
func (p *Pipeline) SyncPlayer(ctx context.Context, puuid string) (int, error) {
	ids, err := p.DiscoverNewMatchIDs(ctx, puuid)
	if err != nil && len(ids) == 0 {
		return 0, err
	}
	errs := []error{err}

	stored := 0
	// oldest first
	for i := len(ids) - 1; i >= 0; i-- {
		ok, err := p.IngestMatch(ctx, ids[i])
		if err != nil {
			errs = append(errs, err)
			if ctx.Err() != nil {
				break
			}
			continue
		}
		if ok {
			stored++
		}
	}

	if stored > 0 {
		slog.Info("Synced player matches", "puuid", puuid, "stored", stored)
	}
	return stored, errors.Join(errs...)
}

// SyncAll runs SyncPlayer for every active player
func (p *Pipeline) SyncAll(ctx context.Context) (int, error) {
	players, err := p.store.ListActivePlayers(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list players: %w", err)
	}

	total := 0
	var errs []error
	for _, player := range players {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		p.refreshRiotID(ctx, player)
		n, err := p.SyncPlayer(ctx, player.PUUID)
		total += n
		if err != nil {
			slog.Error("Failed to sync player", "player", player.RiotID(), "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", player.RiotID(), err))
		}
	}

	slog.Info("Resync finished", "players", len(players), "stored", total)
	return total, errors.Join(errs...)
}

// refreshRiotID stores the player's current handle if it was changed on Riot's side
func (p *Pipeline) refreshRiotID(ctx context.Context, player *storage.Player) {
	account, err := p.api.GetAccountByPUUID(ctx, player.PUUID)
	if err != nil {
		slog.Warn("Failed to refresh Riot ID", "player", player.RiotID(), "error", err)
		return
	}
	if account.GameName == "" || account.TagLine == "" {
		return
	}
	if account.GameName == player.GameName && account.TagLine == player.TagLine {
		return
	}

	if err := p.store.RenamePlayer(ctx, player.PUUID, account.GameName, account.TagLine); err != nil {
		slog.Error("Failed to store renamed player", "player", player.RiotID(), "error", err)
		return
	}
	slog.Info("Player renamed", "from", player.RiotID(), "to", account.RiotID())
	player.GameName, player.TagLine = account.GameName, account.TagLine
}
