// Package twitter is the bundled twitter pack: a content provider, an
// action, a notifier and a trigger built on the Twitter API v2, referenced
// from pack manifests through their implementation keys.
package twitter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/manthysbr/llmsender/internal/confmap"
)

// tweet is the slice of the v2 tweet object the pack cares about.
type tweet struct {
	ID            string `json:"id"`
	Text          string `json:"text"`
	CreatedAt     string `json:"created_at"`
	PublicMetrics struct {
		LikeCount    int `json:"like_count"`
		RetweetCount int `json:"retweet_count"`
	} `json:"public_metrics"`
}

// apiClient is the shared Twitter API v2 client. Read endpoints use the
// app bearer token; posting uses an OAuth2 user token.
type apiClient struct {
	http    *http.Client
	baseURL string
	bearer  string
}

func newAPIClient(config map[string]any) *apiClient {
	bearer := confmap.String(config, "bearer_token", "")
	if bearer == "" {
		bearer = os.Getenv("TWITTER_BEARER_TOKEN")
	}
	return &apiClient{
		http:    &http.Client{Timeout: 30 * time.Second},
		baseURL: confmap.String(config, "base_url", "https://api.twitter.com"),
		bearer:  bearer,
	}
}

func (c *apiClient) get(ctx context.Context, path string, query url.Values, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, "GET", u, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.bearer)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call twitter API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("twitter API returned status %d: %s", resp.StatusCode, string(body))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode twitter response: %w", err)
	}
	return nil
}

// userID resolves a handle to its numeric user ID.
func (c *apiClient) userID(ctx context.Context, username string) (string, error) {
	var result struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := c.get(ctx, "/2/users/by/username/"+url.PathEscape(username), nil, &result); err != nil {
		return "", err
	}
	if result.Data.ID == "" {
		return "", fmt.Errorf("twitter user %q not found", username)
	}
	return result.Data.ID, nil
}

// recentTweets returns the user's latest tweets, newest first. sinceID may
// be empty.
func (c *apiClient) recentTweets(ctx context.Context, userID, sinceID string, max int) ([]tweet, error) {
	q := url.Values{}
	if max < 5 {
		max = 5 // API minimum for max_results
	}
	q.Set("max_results", fmt.Sprintf("%d", max))
	q.Set("tweet.fields", "created_at,public_metrics")
	if sinceID != "" {
		q.Set("since_id", sinceID)
	}
	var result struct {
		Data []tweet `json:"data"`
	}
	if err := c.get(ctx, "/2/users/"+userID+"/tweets", q, &result); err != nil {
		return nil, err
	}
	return result.Data, nil
}
