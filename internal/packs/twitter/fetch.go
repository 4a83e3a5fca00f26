package twitter

import (
	"context"
	"fmt"
	"strings"

	"github.com/manthysbr/llmsender/internal/confmap"
)

const fetchPrompt = "Summarize the following tweets into a short digest. Keep the author's voice and call out anything unusual."

// FetchTweets is the pack's content provider: the latest tweets of one
// account, rendered one per line with their engagement counts so downstream
// actions can filter on them.
type FetchTweets struct {
	api      *apiClient
	username string
	max      int
	prompt   string
}

// NewFetchTweets builds the provider from a plugin configuration map.
// Recognized keys: username, max_tweets, bearer_token, base_url, prompt.
func NewFetchTweets(config map[string]any) (any, error) {
	username := confmap.String(config, "username", "")
	if username == "" {
		return nil, fmt.Errorf("fetch_tweets requires a username")
	}
	return &FetchTweets{
		api:      newAPIClient(config),
		username: username,
		max:      confmap.Int(config, "max_tweets", 10),
		prompt:   confmap.String(config, "prompt", fetchPrompt),
	}, nil
}

func (f *FetchTweets) Prompt() string { return f.prompt }

func (f *FetchTweets) Fetch(ctx context.Context) (string, error) {
	userID, err := f.api.userID(ctx, f.username)
	if err != nil {
		return "", err
	}
	tweets, err := f.api.recentTweets(ctx, userID, "", f.max)
	if err != nil {
		return "", err
	}
	if len(tweets) == 0 {
		return "", fmt.Errorf("no recent tweets for @%s", f.username)
	}
	return renderTweets(f.username, tweets), nil
}

// renderTweets formats tweets one per line as
// "@user | likes=N retweets=N | text"; FilterTweets parses this layout.
func renderTweets(username string, tweets []tweet) string {
	var b strings.Builder
	for _, t := range tweets {
		text := strings.ReplaceAll(t.Text, "\n", " ")
		fmt.Fprintf(&b, "@%s | likes=%d retweets=%d | %s\n",
			username, t.PublicMetrics.LikeCount, t.PublicMetrics.RetweetCount, text)
	}
	return b.String()
}
