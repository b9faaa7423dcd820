package thunderstore

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"thunder-mod-manager/config"
)

const defaultTimeout = 30 * time.Second

// Client handles communication with the Thunderstore API.
type Client struct {
	BaseURL    string
	UserAgent  string
	HTTPClient *http.Client
}

// NewClient creates a new Thunderstore API client using the provided configuration.
func NewClient(cfg config.Config) (*Client, error) {
	if cfg.UserAgent == "" {
		// Should be handled by LoadConfig default, but double-check
		return nil, fmt.Errorf("USERAGENT is not configured")
	}

	return &Client{
		BaseURL:   cfg.ThunderstoreURL,
		UserAgent: cfg.UserAgent,
		HTTPClient: &http.Client{
			Timeout: defaultTimeout,
		},
	}, nil
}

func (c *Client) makeRequest(method, path string, target interface{}) error {
	req, err := http.NewRequest(method, c.BaseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", c.UserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("api request failed: status %d, body: %s", resp.StatusCode, string(bodyBytes))
	}

	if target != nil {
		if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
			return fmt.Errorf("failed to decode json response: %w", err)
		}
	}

	return nil
}

// GetCommunityPackages fetches the full package listing for a community.
func (c *Client) GetCommunityPackages(community string) ([]PackageListing, error) {
	var listings []PackageListing
	path := fmt.Sprintf("/c/%s/api/v1/package/", community)
	if err := c.makeRequest("GET", path, &listings); err != nil {
		return nil, fmt.Errorf("failed to get packages for community %s: %w", community, err)
	}
	return listings, nil
}
