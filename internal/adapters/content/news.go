package content

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/manthysbr/llmsender/internal/confmap"
)

const newsPrompt = "Summarize the following news headlines into a concise briefing. Group related stories and keep it under ten sentences."

// NewsProvider fetches headlines from NewsAPI. With a query it searches
// /v2/everything; otherwise it pulls /v2/top-headlines for the configured
// country and category.
type NewsProvider struct {
	client   *http.Client
	baseURL  string
	apiKey   string
	query    string
	country  string
	category string
	pageSize int
	prompt   string
}

// NewNews builds a news provider from a plugin configuration map.
// Recognized keys: api_key, base_url, query, country, category, page_size,
// prompt.
func NewNews(config map[string]any) (any, error) {
	apiKey := confmap.String(config, "api_key", "")
	if apiKey == "" {
		apiKey = os.Getenv("NEWSAPI_API_KEY")
	}
	return &NewsProvider{
		client:   &http.Client{Timeout: 30 * time.Second},
		baseURL:  confmap.String(config, "base_url", "https://newsapi.org/v2"),
		apiKey:   apiKey,
		query:    confmap.String(config, "query", ""),
		country:  confmap.String(config, "country", "us"),
		category: confmap.String(config, "category", ""),
		pageSize: confmap.Int(config, "page_size", 10),
		prompt:   confmap.String(config, "prompt", newsPrompt),
	}, nil
}

func (p *NewsProvider) Prompt() string { return p.prompt }

func (p *NewsProvider) Fetch(ctx context.Context) (string, error) {
	q := url.Values{}
	q.Set("pageSize", fmt.Sprintf("%d", p.pageSize))

	endpoint := "top-headlines"
	if p.query != "" {
		endpoint = "everything"
		q.Set("q", p.query)
		q.Set("sortBy", "publishedAt")
	} else {
		q.Set("country", p.country)
		if p.category != "" {
			q.Set("category", p.category)
		}
	}

	req, err := http.NewRequestWithContext(ctx, "GET", fmt.Sprintf("%s/%s?%s", p.baseURL, endpoint, q.Encode()), nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("X-Api-Key", p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to call news API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("news API returned status %d: %s", resp.StatusCode, string(body))
	}

	var result struct {
		Status   string `json:"status"`
		Articles []struct {
			Title       string `json:"title"`
			Description string `json:"description"`
			Source      struct {
				Name string `json:"name"`
			} `json:"source"`
		} `json:"articles"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to decode news response: %w", err)
	}
	if result.Status != "ok" {
		return "", fmt.Errorf("news API reported status %q", result.Status)
	}
	if len(result.Articles) == 0 {
		return "", fmt.Errorf("no articles in response")
	}

	var b strings.Builder
	for i, a := range result.Articles {
		fmt.Fprintf(&b, "%d. %s (%s)\n", i+1, a.Title, a.Source.Name)
		if a.Description != "" {
			fmt.Fprintf(&b, "   %s\n", a.Description)
		}
	}
	return b.String(), nil
}
