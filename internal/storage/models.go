package storage

import "time"

// Player represents a tracked League of Legends player
type Player struct {
	PUUID      string
	GameName   string
	TagLine    string
	GuildID    string // owning Discord guild
	Active     bool
	LastGameID string // last announced live game id, empty if none yet
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// RiotID returns the player's handle as GameName#TagLine.
func (p *Player) RiotID() string {
	return p.GameName + "#" + p.TagLine
}

// GuildSettings stores per-server configuration
type GuildSettings struct {
	GuildID               string
	NotificationChannelID string
	CreatedAt             time.Time
}

// MatchRecord is one finalized match.
type MatchRecord struct {
	MatchID         string
	DataVersion     string
	GameVersion     string
	GameMode        string
	GameType        string
	QueueID         int
	PlatformID      string
	GameDuration    int64 // seconds
	GameCreation    int64 // Unix ms
	GameEnd         int64 // Unix ms
	EndOfGameResult string
}

// ParticipantRecord is one player's statistics in one match.
type ParticipantRecord struct {
	MatchID      string
	PUUID        string
	GameName     string
	TagLine      string
	ChampionName string
	ChampionID   int
	ChampLevel   int
	TeamID       int
	TeamPosition string
	Win          bool
	Placement    int

	Kills            int
	Deaths           int
	Assists          int
	LargestMultiKill int
	PentaKills       int

	TotalDamageDealt            int
	TotalDamageDealtToChampions int
	TotalDamageTaken            int

	GoldEarned           int
	GoldSpent            int
	TotalMinionsKilled   int
	NeutralMinionsKilled int

	VisionScore        int
	WardsPlaced        int
	WardsKilled        int
	VisionWardsBought  int
	TimePlayed         int
	TotalTimeSpentDead int
}

// KDA returns (kills+assists)/max(deaths,1).
func (p *ParticipantRecord) KDA() float64 {
	return float64(p.Kills+p.Assists) / float64(max(p.Deaths, 1))
}

// CS returns lane plus jungle minions.
func (p *ParticipantRecord) CS() int {
	return p.TotalMinionsKilled + p.NeutralMinionsKilled
}

// PendingMatch is a match that was not retrievable when its game ended.
type PendingMatch struct {
	MatchID       string
	GameMode      string
	GuildID       string
	ChannelID     string // channel of the live message, may be empty
	MessageID     string // live message to update, may be empty
	Attempts      int
	CreatedAt     time.Time
	LastAttemptAt time.Time // zero until the first retry
}
