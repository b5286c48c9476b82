package storage

import (
	"context"
	"time"
)

const pendingColumns = `match_id, game_mode, guild_id, channel_id, message_id, attempts, created_at, last_attempt_at`

// EnqueuePending queues a match for retry. Queuing a match that is already
// pending is a no-op, so its attempt counter is never reset.
func (r *Repository) EnqueuePending(ctx context.Context, e *PendingMatch) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO pending_matches (match_id, game_mode, guild_id, channel_id, message_id, attempts, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(match_id) DO NOTHING`,
		e.MatchID, e.GameMode, e.GuildID, e.ChannelID, e.MessageID, e.Attempts, unixMilli(e.CreatedAt),
	)
	return err
}

// DrainDue returns pending matches queued at least minAge ago, oldest first.
func (r *Repository) DrainDue(ctx context.Context, minAge time.Duration) ([]PendingMatch, error) {
	cutoff := time.Now().Add(-minAge)
	return r.queryPending(ctx,
		`SELECT `+pendingColumns+` FROM pending_matches WHERE created_at <= ? ORDER BY created_at`,
		unixMilli(cutoff))
}

// ListPending returns every pending match, oldest first.
func (r *Repository) ListPending(ctx context.Context) ([]PendingMatch, error) {
	return r.queryPending(ctx, `SELECT `+pendingColumns+` FROM pending_matches ORDER BY created_at`)
}

// GetPending returns one pending match, or nil.
func (r *Repository) GetPending(ctx context.Context, matchID string) (*PendingMatch, error) {
	entries, err := r.queryPending(ctx,
		`SELECT `+pendingColumns+` FROM pending_matches WHERE match_id = ?`, matchID)
	if err != nil || len(entries) == 0 {
		return nil, err
	}
	return &entries[0], nil
}

// RecordAttempt increments a pending match's attempt counter and returns the
// new value. It returns 0 if the match is no longer pending.
func (r *Repository) RecordAttempt(ctx context.Context, matchID string) (int, error) {
	var attempts int
	err := r.db.QueryRowContext(ctx,
		`UPDATE pending_matches SET attempts = attempts + 1, last_attempt_at = ?
		 WHERE match_id = ? RETURNING attempts`,
		unixMilli(time.Now()), matchID,
	).Scan(&attempts)
	if err != nil {
		if isNoRows(err) {
			return 0, nil
		}
		return 0, err
	}
	return attempts, nil
}

// RemovePending deletes a pending match and reports whether it was present.
func (r *Repository) RemovePending(ctx context.Context, matchID string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM pending_matches WHERE match_id = ?`, matchID)
	if err != nil {
		return false, err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

// PurgePendingOlderThan deletes pending matches queued more than maxAge ago,
// whatever their attempt count.
func (r *Repository) PurgePendingOlderThan(ctx context.Context, maxAge time.Duration) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM pending_matches WHERE created_at < ?`, unixMilli(time.Now().Add(-maxAge)))
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (r *Repository) queryPending(ctx context.Context, query string, args ...any) ([]PendingMatch, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PendingMatch
	for rows.Next() {
		var (
			e           PendingMatch
			created     int64
			lastAttempt *int64
		)
		var mode, guild, channel, message *string
		if err := rows.Scan(&e.MatchID, &mode, &guild, &channel, &message, &e.Attempts, &created, &lastAttempt); err != nil {
			return nil, err
		}
		e.GameMode = deref(mode)
		e.GuildID = deref(guild)
		e.ChannelID = deref(channel)
		e.MessageID = deref(message)
		e.CreatedAt = fromUnixMilli(created)
		if lastAttempt != nil {
			e.LastAttemptAt = fromUnixMilli(*lastAttempt)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
