package riot

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
)

// CurrentGame is a game in progress from the Spectator-V5 API.
type CurrentGame struct {
	GameID            int64                    `json:"gameId"`
	GameMode          string                   `json:"gameMode"`
	GameType          string                   `json:"gameType"`
	GameQueueConfigID int                      `json:"gameQueueConfigId"`
	GameStartTime     int64                    `json:"gameStartTime"`
	GameLength        int64                    `json:"gameLength"`
	PlatformID        string                   `json:"platformId"`
	Participants      []CurrentGameParticipant `json:"participants"`
}

// CurrentGameParticipant is one player in a live game.
type CurrentGameParticipant struct {
	PUUID      string `json:"puuid"`
	RiotID     string `json:"riotId"`
	ChampionID int    `json:"championId"`
	TeamID     int    `json:"teamId"`
}

// GameIDString returns the game id as used by watermarks and session keys.
func (g *CurrentGame) GameIDString() string {
	return strconv.FormatInt(g.GameID, 10)
}

// MatchID returns the Match-V5 id the game will have once it is processed.
func (g *CurrentGame) MatchID() string {
	return MatchIDFor(g.PlatformID, g.GameID)
}

// MatchIDFor builds a Match-V5 id such as EUW1_7012345678.
func MatchIDFor(platformID string, gameID int64) string {
	return fmt.Sprintf("%s_%d", platformID, gameID)
}

// GetCurrentGame returns the game the player is in, or nil when the player is
// not in a game.
func (c *Client) GetCurrentGame(ctx context.Context, puuid string) (*CurrentGame, error) {
	endpoint := fmt.Sprintf("%s/lol/spectator/v5/active-games/by-summoner/%s",
		c.platformBaseURL, url.PathEscape(puuid))

	var game CurrentGame
	if err := c.get(ctx, endpoint, nil, &game); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get current game: %w", err)
	}
	if game.GameID == 0 {
		return nil, nil
	}

	return &game, nil
}
