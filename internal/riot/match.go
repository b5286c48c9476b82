package riot

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
)

// MaxMatchIDsPerPage is the largest count the match listing accepts.
const MaxMatchIDsPerPage = 100

// Match represents match data from the Match-V5 API
type Match struct {
	Metadata MatchMetadata `json:"metadata"`
	Info     MatchInfo     `json:"info"`
}

// MatchMetadata contains match metadata
type MatchMetadata struct {
	DataVersion  string   `json:"dataVersion"`
	MatchID      string   `json:"matchId"`
	Participants []string `json:"participants"` // PUUIDs
}

// MatchInfo contains detailed match information
type MatchInfo struct {
	EndOfGameResult  string        `json:"endOfGameResult"`
	GameCreation     int64         `json:"gameCreation"` // Unix timestamp in ms
	GameDuration     int64         `json:"gameDuration"` // in seconds
	GameEndTimestamp int64         `json:"gameEndTimestamp"`
	GameID           int64         `json:"gameId"`
	GameMode         string        `json:"gameMode"`
	GameType         string        `json:"gameType"`
	GameVersion      string        `json:"gameVersion"`
	MapID            int           `json:"mapId"`
	PlatformID       string        `json:"platformId"`
	QueueID          int           `json:"queueId"`
	Participants     []Participant `json:"participants"`
}

// Participant represents a player in the match
type Participant struct {
	PUUID          string `json:"puuid"`
	RiotIdGameName string `json:"riotIdGameName"`
	RiotIdTagline  string `json:"riotIdTagline"`
	ChampionName   string `json:"championName"`
	ChampionID     int    `json:"championId"`
	ChampLevel     int    `json:"champLevel"`
	TeamID         int    `json:"teamId"`
	TeamPosition   string `json:"teamPosition"`
	Win            bool   `json:"win"`
	Placement      int    `json:"placement"` // Arena only

	Kills            int `json:"kills"`
	Deaths           int `json:"deaths"`
	Assists          int `json:"assists"`
	LargestMultiKill int `json:"largestMultiKill"`
	PentaKills       int `json:"pentaKills"`

	TotalDamageDealt            int `json:"totalDamageDealt"`
	TotalDamageDealtToChampions int `json:"totalDamageDealtToChampions"`
	TotalDamageTaken            int `json:"totalDamageTaken"`

	GoldEarned           int `json:"goldEarned"`
	GoldSpent            int `json:"goldSpent"`
	TotalMinionsKilled   int `json:"totalMinionsKilled"`
	NeutralMinionsKilled int `json:"neutralMinionsKilled"`

	VisionScore        int `json:"visionScore"`
	WardsPlaced        int `json:"wardsPlaced"`
	WardsKilled        int `json:"wardsKilled"`
	VisionWardsBought  int `json:"visionWardsBoughtInGame"`
	TimePlayed         int `json:"timePlayed"`
	TotalTimeSpentDead int `json:"totalTimeSpentDead"`
}

// GetMatchIDs retrieves one page of match IDs for a player, newest first.
func (c *Client) GetMatchIDs(ctx context.Context, puuid string, start, count int) ([]string, error) {
	if count <= 0 || count > MaxMatchIDsPerPage {
		count = MaxMatchIDsPerPage
	}

	endpoint := fmt.Sprintf("%s/lol/match/v5/matches/by-puuid/%s/ids",
		c.regionalBaseURL, url.PathEscape(puuid))
	params := url.Values{
		"start": {strconv.Itoa(start)},
		"count": {strconv.Itoa(count)},
	}

	var matchIDs []string
	if err := c.get(ctx, endpoint, params, &matchIDs); err != nil {
		return nil, fmt.Errorf("failed to get match IDs: %w", err)
	}

	return matchIDs, nil
}

// GetMatch retrieves detailed match information. It returns ErrNotFound
// while the match is still being processed upstream.
func (c *Client) GetMatch(ctx context.Context, matchID string) (*Match, error) {
	endpoint := fmt.Sprintf("%s/lol/match/v5/matches/%s", c.regionalBaseURL, url.PathEscape(matchID))

	var match Match
	if err := c.get(ctx, endpoint, nil, &match); err != nil {
		return nil, fmt.Errorf("failed to get match %s: %w", matchID, err)
	}

	return &match, nil
}

// GetQueueName returns a human-readable queue name
func GetQueueName(queueID int) string {
	queueNames := map[int]string{
		420:  "Ranked Solo/Duo",
		440:  "Ranked Flex",
		400:  "Normal Draft",
		430:  "Normal Blind",
		490:  "Quickplay",
		450:  "ARAM",
		900:  "URF",
		1020: "One for All",
		1300: "Nexus Blitz",
		1400: "Ultimate Spellbook",
		1700: "Arena",
		1710: "Arena",
	}

	if name, ok := queueNames[queueID]; ok {
		return name
	}
	return "Custom Game"
}
