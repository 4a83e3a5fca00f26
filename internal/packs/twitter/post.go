package twitter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/manthysbr/llmsender/internal/confmap"
)

const maxTweetLength = 280

// PostTweet is the pack's notifier: it publishes the summary as a tweet.
// The title becomes a leading line, configured hashtags are appended, and
// the text is truncated to the platform limit with an ellipsis.
type PostTweet struct {
	api       *apiClient
	hashtags  []string
	maxLength int
}

// NewPostTweet builds the notifier from a plugin configuration map.
// Recognized keys: hashtags, max_length, bearer_token, base_url. The bearer
// token must be an OAuth2 user token with tweet.write scope.
func NewPostTweet(config map[string]any) (any, error) {
	maxLength := confmap.Int(config, "max_length", maxTweetLength)
	if maxLength > maxTweetLength {
		maxLength = maxTweetLength
	}
	return &PostTweet{
		api:       newAPIClient(config),
		hashtags:  confmap.Strings(config, "hashtags"),
		maxLength: maxLength,
	}, nil
}

func (p *PostTweet) Send(ctx context.Context, message, title string) error {
	text := p.compose(message, title)

	payload := map[string]any{"text": text}
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", p.api.baseURL+"/2/tweets", bytes.NewReader(payloadBytes))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.api.bearer)

	resp, err := p.api.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call twitter API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 201 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("twitter API returned status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}

func (p *PostTweet) compose(message, title string) string {
	var parts []string
	if title != "" {
		parts = append(parts, title)
	}
	parts = append(parts, strings.TrimSpace(message))

	var tags []string
	for _, tag := range p.hashtags {
		tags = append(tags, "#"+strings.TrimPrefix(tag, "#"))
	}
	suffix := ""
	if len(tags) > 0 {
		suffix = "\n" + strings.Join(tags, " ")
	}

	text := strings.Join(parts, "\n")
	budget := p.maxLength - len([]rune(suffix))
	if budget < 2 {
		budget = 2
	}
	runes := []rune(text)
	if len(runes) > budget {
		runes = append(runes[:budget-1], '…')
	}
	return string(runes) + suffix
}
