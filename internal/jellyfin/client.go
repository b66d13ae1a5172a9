package jellyfin

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Client talks to a Jellyfin-compatible media server. Authentication is a
// token header; all calls honor the caller's context.
type Client struct {
	baseURL string
	token   string
	userID  string
	client  *http.Client
}

func NewClient(baseURL, token, userID string) *Client {
	return &Client{
		baseURL: trimTrailingSlash(baseURL),
		token:   token,
		userID:  userID,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func trimTrailingSlash(s string) string {
	for len(s) > 0 && s[len(s)-1] == '/' {
		s = s[:len(s)-1]
	}
	return s
}

func (c *Client) do(ctx context.Context, path string, query url.Values, dst interface{}) error {
	reqURL := c.baseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("X-Emby-Token", c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("jellyfin %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("jellyfin %s: status %d", path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("jellyfin %s: decode: %w", path, err)
	}
	return nil
}

// ListLibraries returns the user's media views.
func (c *Client) ListLibraries(ctx context.Context) ([]Library, error) {
	var page struct {
		Items []Library `json:"Items"`
	}
	if err := c.do(ctx, fmt.Sprintf("/Users/%s/Views", c.userID), nil, &page); err != nil {
		return nil, err
	}
	return page.Items, nil
}

// ListItems pages through one library's items.
func (c *Client) ListItems(ctx context.Context, libraryID string, limit int) ([]Item, error) {
	q := url.Values{}
	q.Set("ParentId", libraryID)
	q.Set("Recursive", "true")
	q.Set("IncludeItemTypes", "Movie,Series")
	q.Set("Fields", itemFields)
	if limit > 0 {
		q.Set("Limit", strconv.Itoa(limit))
	}
	var page itemsPage
	if err := c.do(ctx, fmt.Sprintf("/Users/%s/Items", c.userID), q, &page); err != nil {
		return nil, err
	}
	return page.Items, nil
}

// GetItem fetches one item with provider ids and media streams.
func (c *Client) GetItem(ctx context.Context, itemID string) (*Item, error) {
	q := url.Values{}
	q.Set("Fields", itemFields)
	var item Item
	if err := c.do(ctx, fmt.Sprintf("/Users/%s/Items/%s", c.userID, itemID), q, &item); err != nil {
		return nil, err
	}
	if item.ID == "" {
		return nil, fmt.Errorf("jellyfin: item %s not found", itemID)
	}
	return &item, nil
}

// GetMediaStreams returns the stream listing of one item.
func (c *Client) GetMediaStreams(ctx context.Context, itemID string) (*Item, error) {
	return c.GetItem(ctx, itemID)
}

// GetEpisodes lists a series' episodes in air order, capped at limit.
func (c *Client) GetEpisodes(ctx context.Context, seriesID string, limit int) ([]Item, error) {
	q := url.Values{}
	q.Set("UserId", c.userID)
	q.Set("Fields", itemFields)
	if limit > 0 {
		q.Set("Limit", strconv.Itoa(limit))
	}
	var page itemsPage
	if err := c.do(ctx, fmt.Sprintf("/Shows/%s/Episodes", seriesID), q, &page); err != nil {
		return nil, err
	}
	return page.Items, nil
}

// DownloadPoster fetches the item's primary image bytes.
func (c *Client) DownloadPoster(ctx context.Context, itemID string) ([]byte, error) {
	reqURL := fmt.Sprintf("%s/Items/%s/Images/Primary", c.baseURL, itemID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("X-Emby-Token", c.token)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("jellyfin poster %s: %w", itemID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("jellyfin poster %s: status %d", itemID, resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("jellyfin poster %s: read: %w", itemID, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("jellyfin poster %s: empty body", itemID)
	}
	return data, nil
}
