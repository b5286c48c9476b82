package riot

import (
	"context"
	"fmt"
)

// GetVersions returns the Data Dragon game versions, newest first.
func (c *Client) GetVersions(ctx context.Context) ([]string, error) {
	var versions []string
	if err := c.get(ctx, c.dataDragonBaseURL+"/api/versions.json", nil, &versions); err != nil {
		return nil, fmt.Errorf("failed to get versions: %w", err)
	}
	return versions, nil
}

// LatestVersion returns the current patch, or "" if the list is empty.
func (c *Client) LatestVersion(ctx context.Context) (string, error) {
	versions, err := c.GetVersions(ctx)
	if err != nil {
		return "", err
	}
	if len(versions) == 0 {
		return "", nil
	}
	return versions[0], nil
}
