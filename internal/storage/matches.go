package storage

import (
	"context"
	"database/sql"
	"fmt"
)

// UpsertMatch stores a match and its participants in one transaction.
// Re-ingesting a match overwrites the existing rows, so repeated calls with
// the same data leave the store unchanged.
func (r *Repository) UpsertMatch(ctx context.Context, m *MatchRecord, participants []ParticipantRecord) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO matches (match_id, data_version, game_version, game_mode, game_type, queue_id,
			platform_id, game_duration, game_creation, game_end, end_of_game_result)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(match_id) DO UPDATE SET
		 	data_version = excluded.data_version,
		 	game_version = excluded.game_version,
		 	game_mode = excluded.game_mode,
		 	game_type = excluded.game_type,
		 	queue_id = excluded.queue_id,
		 	platform_id = excluded.platform_id,
		 	game_duration = excluded.game_duration,
		 	game_creation = excluded.game_creation,
		 	game_end = excluded.game_end,
		 	end_of_game_result = excluded.end_of_game_result`,
		m.MatchID, m.DataVersion, m.GameVersion, m.GameMode, m.GameType, m.QueueID,
		m.PlatformID, m.GameDuration, m.GameCreation, m.GameEnd, m.EndOfGameResult,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert match %s: %w", m.MatchID, err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR REPLACE INTO participants (match_id, puuid, game_name, tag_line, champion_name, champion_id,
			champ_level, team_id, team_position, win, placement,
			kills, deaths, assists, largest_multi_kill, penta_kills,
			total_damage_dealt, total_damage_to_champions, total_damage_taken,
			gold_earned, gold_spent, total_minions_killed, neutral_minions_killed,
			vision_score, wards_placed, wards_killed, vision_wards_bought, time_played, total_time_spent_dead)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare participant insert: %w", err)
	}
	defer stmt.Close()

	for _, p := range participants {
		_, err := stmt.ExecContext(ctx,
			m.MatchID, p.PUUID, p.GameName, p.TagLine, p.ChampionName, p.ChampionID,
			p.ChampLevel, p.TeamID, p.TeamPosition, p.Win, p.Placement,
			p.Kills, p.Deaths, p.Assists, p.LargestMultiKill, p.PentaKills,
			p.TotalDamageDealt, p.TotalDamageDealtToChampions, p.TotalDamageTaken,
			p.GoldEarned, p.GoldSpent, p.TotalMinionsKilled, p.NeutralMinionsKilled,
			p.VisionScore, p.WardsPlaced, p.WardsKilled, p.VisionWardsBought, p.TimePlayed, p.TotalTimeSpentDead,
		)
		if err != nil {
			return fmt.Errorf("failed to upsert participant %s in %s: %w", p.PUUID, m.MatchID, err)
		}
	}

	return tx.Commit()
}

// StoredMatchIDs returns the ids already ingested for a player. Matches stored
// with zero duration count as known for every player.
func (r *Repository) StoredMatchIDs(ctx context.Context, puuid string) (map[string]struct{}, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT match_id FROM participants WHERE puuid = ?
		 UNION
		 SELECT match_id FROM matches WHERE game_duration = 0`, puuid)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids[id] = struct{}{}
	}
	return ids, rows.Err()
}

// GetMatch returns a stored match, or nil if it was never ingested
func (r *Repository) GetMatch(ctx context.Context, matchID string) (*MatchRecord, error) {
	m := &MatchRecord{}
	err := r.db.QueryRowContext(ctx,
		`SELECT match_id, data_version, game_version, game_mode, game_type, queue_id,
			platform_id, game_duration, game_creation, game_end, end_of_game_result
		 FROM matches WHERE match_id = ?`, matchID,
	).Scan(&m.MatchID, &m.DataVersion, &m.GameVersion, &m.GameMode, &m.GameType, &m.QueueID,
		&m.PlatformID, &m.GameDuration, &m.GameCreation, &m.GameEnd, &m.EndOfGameResult)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

// GetParticipants returns every participant row of a match
func (r *Repository) GetParticipants(ctx context.Context, matchID string) ([]ParticipantRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT match_id, puuid, game_name, tag_line, champion_name, champion_id,
			champ_level, team_id, team_position, win, placement,
			kills, deaths, assists, largest_multi_kill, penta_kills,
			total_damage_dealt, total_damage_to_champions, total_damage_taken,
			gold_earned, gold_spent, total_minions_killed, neutral_minions_killed,
			vision_score, wards_placed, wards_killed, vision_wards_bought, time_played, total_time_spent_dead
		 FROM participants WHERE match_id = ? ORDER BY team_id, puuid`, matchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ParticipantRecord
	for rows.Next() {
		var p ParticipantRecord
		if err := rows.Scan(&p.MatchID, &p.PUUID, &p.GameName, &p.TagLine, &p.ChampionName, &p.ChampionID,
			&p.ChampLevel, &p.TeamID, &p.TeamPosition, &p.Win, &p.Placement,
			&p.Kills, &p.Deaths, &p.Assists, &p.LargestMultiKill, &p.PentaKills,
			&p.TotalDamageDealt, &p.TotalDamageDealtToChampions, &p.TotalDamageTaken,
			&p.GoldEarned, &p.GoldSpent, &p.TotalMinionsKilled, &p.NeutralMinionsKilled,
			&p.VisionScore, &p.WardsPlaced, &p.WardsKilled, &p.VisionWardsBought, &p.TimePlayed, &p.TotalTimeSpentDead,
		); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// CountMatches returns the number of stored matches
func (r *Repository) CountMatches(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM matches`).Scan(&n)
	return n, err
}
