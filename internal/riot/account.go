package riot

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

// Account represents a Riot account from the Account-V1 API
type Account struct {
	PUUID    string `json:"puuid"`
	GameName string `json:"gameName"`
	TagLine  string `json:"tagLine"`
}

// RiotID returns the account handle as GameName#TagLine.
func (a *Account) RiotID() string {
	return a.GameName + "#" + a.TagLine
}

// ParseRiotID splits a GameName#TagLine handle.
func ParseRiotID(input string) (gameName, tagLine string, err error) {
	parts := strings.Split(input, "#")
	if len(parts) != 2 {
		return "", "", fmt.Errorf("invalid format: must be GameName#TagLine (e.g., Faker#KR1)")
	}

	gameName = strings.TrimSpace(parts[0])
	tagLine = strings.TrimSpace(parts[1])
	if gameName == "" || tagLine == "" {
		return "", "", fmt.Errorf("game name and tag line cannot be empty")
	}
	return gameName, tagLine, nil
}

// GetAccountByRiotID retrieves account information by Riot ID
func (c *Client) GetAccountByRiotID(ctx context.Context, gameName, tagLine string) (*Account, error) {
	endpoint := fmt.Sprintf("%s/riot/account/v1/accounts/by-riot-id/%s/%s",
		c.regionalBaseURL, url.PathEscape(gameName), url.PathEscape(tagLine))

	var account Account
	if err := c.get(ctx, endpoint, nil, &account); err != nil {
		return nil, fmt.Errorf("failed to get account by Riot ID: %w", err)
	}

	return &account, nil
}

// GetAccountByPUUID retrieves account information by PUUID
func (c *Client) GetAccountByPUUID(ctx context.Context, puuid string) (*Account, error) {
	endpoint := fmt.Sprintf("%s/riot/account/v1/accounts/by-puuid/%s",
		c.regionalBaseURL, url.PathEscape(puuid))

	var account Account
	if err := c.get(ctx, endpoint, nil, &account); err != nil {
		return nil, fmt.Errorf("failed to get account by PUUID: %w", err)
	}

	return &account, nil
}
