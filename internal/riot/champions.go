package riot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
)

type championList struct {
	Data map[string]struct {
		Key  string `json:"key"`
		Name string `json:"name"`
	} `json:"data"`
}

// GetChampions returns champion display names by numeric id for a Data Dragon version.
func (c *Client) GetChampions(ctx context.Context, version string) (map[int]string, error) {
	endpoint := fmt.Sprintf("%s/cdn/%s/data/en_US/champion.json", c.dataDragonBaseURL, version)

	var list championList
	if err := c.get(ctx, endpoint, nil, &list); err != nil {
		return nil, fmt.Errorf("failed to get champions: %w", err)
	}

	names := make(map[int]string, len(list.Data))
	for _, ch := range list.Data {
		id, err := strconv.Atoi(ch.Key)
		if err != nil {
			continue
		}
		names[id] = ch.Name
	}
	return names, nil
}

// ChampionNames lazily loads the latest champion list and caches it.
// A failed load is retried on the next lookup.
type ChampionNames struct {
	client *Client

	mu    sync.Mutex
	names map[int]string
}

// NewChampionNames creates a champion name cache backed by c
func NewChampionNames(c *Client) *ChampionNames {
	return &ChampionNames{client: c}
}

// ChampionName returns the display name for id, or "" if it is unknown.
func (n *ChampionNames) ChampionName(ctx context.Context, id int) string {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.names == nil {
		version, err := n.client.LatestVersion(ctx)
		if err == nil && version == "" {
			err = errors.New("no versions published")
		}
		if err != nil {
			slog.Warn("Failed to resolve champion version", "error", err)
			return ""
		}
		names, err := n.client.GetChampions(ctx, version)
		if err != nil {
			slog.Warn("Failed to load champions", "version", version, "error", err)
			return ""
		}
		n.names = names
	}
	return n.names[id]
}
