package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// ErrPlayerNotFound is returned when updating a player that is not tracked.
var ErrPlayerNotFound = errors.New("player not found")

const playerColumns = `puuid, game_name, tag_line, guild_id, active, last_game_id, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPlayer(row rowScanner) (*Player, error) {
	p := &Player{}
	var lastGame sql.NullString
	if err := row.Scan(&p.PUUID, &p.GameName, &p.TagLine, &p.GuildID, &p.Active, &lastGame, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.LastGameID = lastGame.String
	return p, nil
}

// AddPlayer starts tracking a player. Adding a player that already exists
// refreshes its handle and owning guild, re-activates it and keeps its
// watermark.
func (r *Repository) AddPlayer(ctx context.Context, p *Player) error {
	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO players (puuid, game_name, tag_line, guild_id, active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, 1, ?, ?)
		 ON CONFLICT(puuid) DO UPDATE SET
		 	game_name = excluded.game_name,
		 	tag_line = excluded.tag_line,
		 	guild_id = excluded.guild_id,
		 	active = 1,
		 	updated_at = excluded.updated_at`,
		p.PUUID, p.GameName, p.TagLine, p.GuildID, now, now,
	)
	if err != nil {
		return err
	}
	p.Active = true
	return nil
}

// GetPlayer finds a player by PUUID, or nil if not tracked
func (r *Repository) GetPlayer(ctx context.Context, puuid string) (*Player, error) {
	p, err := scanPlayer(r.db.QueryRowContext(ctx,
		`SELECT `+playerColumns+` FROM players WHERE puuid = ?`, puuid))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return p, err
}

// GetPlayerByRiotID finds a player by handle, ignoring case
func (r *Repository) GetPlayerByRiotID(ctx context.Context, gameName, tagLine string) (*Player, error) {
	p, err := scanPlayer(r.db.QueryRowContext(ctx,
		`SELECT `+playerColumns+` FROM players
		 WHERE game_name = ? COLLATE NOCASE AND tag_line = ? COLLATE NOCASE`,
		gameName, tagLine))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return p, err
}

// ListPlayers returns tracked players, optionally only active ones
func (r *Repository) ListPlayers(ctx context.Context, activeOnly bool) ([]*Player, error) {
	query := `SELECT ` + playerColumns + ` FROM players`
	if activeOnly {
		query += ` WHERE active = 1`
	}
	query += ` ORDER BY game_name`
	return r.queryPlayers(ctx, query)
}

// ListActivePlayers returns players the live tracker should poll
func (r *Repository) ListActivePlayers(ctx context.Context) ([]*Player, error) {
	return r.ListPlayers(ctx, true)
}

// ListPlayersByGuild returns all players owned by a guild
func (r *Repository) ListPlayersByGuild(ctx context.Context, guildID string) ([]*Player, error) {
	return r.queryPlayers(ctx,
		`SELECT `+playerColumns+` FROM players WHERE guild_id = ? ORDER BY game_name`, guildID)
}

func (r *Repository) queryPlayers(ctx context.Context, query string, args ...any) ([]*Player, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var players []*Player
	for rows.Next() {
		p, err := scanPlayer(rows)
		if err != nil {
			return nil, err
		}
		players = append(players, p)
	}
	return players, rows.Err()
}

// SetActive toggles whether a player is polled. Players are never deleted.
func (r *Repository) SetActive(ctx context.Context, puuid string, active bool) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE players SET active = ?, updated_at = ? WHERE puuid = ?`,
		active, time.Now().UTC(), puuid)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrPlayerNotFound
	}
	return nil
}

// RenamePlayer updates a player's Riot ID and leaves everything else alone
func (r *Repository) RenamePlayer(ctx context.Context, puuid, gameName, tagLine string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE players SET game_name = ?, tag_line = ?, updated_at = ? WHERE puuid = ?`,
		gameName, tagLine, time.Now().UTC(), puuid)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrPlayerNotFound
	}
	return nil
}

// AdvanceWatermark records gameID as the player's last announced game. It
// only writes when the value changes and reports whether it did.
func (r *Repository) AdvanceWatermark(ctx context.Context, puuid, gameID string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE players SET last_game_id = ?, updated_at = ?
		 WHERE puuid = ? AND (last_game_id IS NULL OR last_game_id <> ?)`,
		gameID, time.Now().UTC(), puuid, gameID)
	if err != nil {
		return false, err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}
