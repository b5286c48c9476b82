package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Repository handles all database operations
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new repository with SQLite
func NewRepository(dbPath string) (*Repository, error) {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Test connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	repo := &Repository{db: db}

	// Run migrations
	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return repo, nil
}

// Close closes the database connection
func (r *Repository) Close() error {
	return r.db.Close()
}

// migrate creates the database schema
func (r *Repository) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS players (
			puuid VARCHAR(100) PRIMARY KEY,
			game_name VARCHAR(50) NOT NULL,
			tag_line VARCHAR(10) NOT NULL,
			guild_id VARCHAR(20) NOT NULL,
			active INTEGER NOT NULL DEFAULT 1,
			last_game_id VARCHAR(30),
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS guild_settings (
			guild_id VARCHAR(20) PRIMARY KEY,
			notification_channel_id VARCHAR(20),
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS matches (
			match_id VARCHAR(30) PRIMARY KEY,
			data_version TEXT,
			game_version TEXT,
			game_mode TEXT,
			game_type TEXT,
			queue_id INTEGER,
			platform_id TEXT,
			game_duration INTEGER,
			game_creation INTEGER,
			game_end INTEGER,
			end_of_game_result TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS participants (
			match_id VARCHAR(30) NOT NULL REFERENCES matches(match_id),
			puuid VARCHAR(100) NOT NULL,
			game_name TEXT,
			tag_line TEXT,
			champion_name TEXT,
			champion_id INTEGER,
			champ_level INTEGER,
			team_id INTEGER,
			team_position TEXT,
			win INTEGER,
			placement INTEGER,
			kills INTEGER,
			deaths INTEGER,
			assists INTEGER,
			largest_multi_kill INTEGER,
			penta_kills INTEGER,
			total_damage_dealt INTEGER,
			total_damage_to_champions INTEGER,
			total_damage_taken INTEGER,
			gold_earned INTEGER,
			gold_spent INTEGER,
			total_minions_killed INTEGER,
			neutral_minions_killed INTEGER,
			vision_score INTEGER,
			wards_placed INTEGER,
			wards_killed INTEGER,
			vision_wards_bought INTEGER,
			time_played INTEGER,
			total_time_spent_dead INTEGER,
			PRIMARY KEY (match_id, puuid)
		)`,
		`CREATE TABLE IF NOT EXISTS pending_matches (
			match_id VARCHAR(30) PRIMARY KEY,
			game_mode TEXT,
			guild_id VARCHAR(20),
			channel_id VARCHAR(20),
			message_id VARCHAR(20),
			attempts INTEGER NOT NULL DEFAULT 0,
			created_at INTEGER NOT NULL,
			last_attempt_at INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_participants_puuid ON participants(puuid)`,
		`CREATE INDEX IF NOT EXISTS idx_players_guild ON players(guild_id)`,
		`CREATE INDEX IF NOT EXISTS idx_pending_created ON pending_matches(created_at)`,
	}

	for _, migration := range migrations {
		if _, err := r.db.Exec(migration); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}

	return nil
}

// Guild settings operations

// UpsertGuildSettings creates or updates guild settings
func (r *Repository) UpsertGuildSettings(ctx context.Context, settings *GuildSettings) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO guild_settings (guild_id, notification_channel_id) VALUES (?, ?)
		 ON CONFLICT(guild_id) DO UPDATE SET notification_channel_id = excluded.notification_channel_id`,
		settings.GuildID, settings.NotificationChannelID,
	)
	return err
}

// GetGuildSettings retrieves guild settings, or nil if the guild has none
func (r *Repository) GetGuildSettings(ctx context.Context, guildID string) (*GuildSettings, error) {
	settings := &GuildSettings{}
	err := r.db.QueryRowContext(ctx,
		`SELECT guild_id, notification_channel_id, created_at FROM guild_settings WHERE guild_id = ?`,
		guildID,
	).Scan(&settings.GuildID, &settings.NotificationChannelID, &settings.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return settings, nil
}

func unixMilli(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func fromUnixMilli(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
