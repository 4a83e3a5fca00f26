package twitter

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/manthysbr/llmsender/internal/confmap"
)

// NewTweetTrigger fires a task when the watched account posts. It is the
// pack's one stateful component: it remembers the newest tweet ID it has
// seen across polls.
type NewTweetTrigger struct {
	api      *apiClient
	username string
	interval time.Duration

	mu     sync.Mutex
	userID string
	lastID string
}

// NewNewTweetTrigger builds the trigger from a plugin configuration map.
// Recognized keys: username, poll_minutes, bearer_token, base_url.
func NewNewTweetTrigger(config map[string]any) (any, error) {
	username := confmap.String(config, "username", "")
	if username == "" {
		return nil, fmt.Errorf("new_tweet trigger requires a username")
	}
	minutes := confmap.Int(config, "poll_minutes", 5)
	if minutes <= 0 {
		minutes = 5
	}
	return &NewTweetTrigger{
		api:      newAPIClient(config),
		username: username,
		interval: time.Duration(minutes) * time.Minute,
	}, nil
}

func (t *NewTweetTrigger) Interval() time.Duration { return t.interval }

// Setup records the account's current newest tweet so startup never replays
// old tweets as firings.
func (t *NewTweetTrigger) Setup(ctx context.Context) error {
	userID, err := t.api.userID(ctx, t.username)
	if err != nil {
		return err
	}
	tweets, err := t.api.recentTweets(ctx, userID, "", 5)
	if err != nil {
		return err
	}
	t.mu.Lock()
	t.userID = userID
	if len(tweets) > 0 {
		t.lastID = tweets[0].ID
	}
	t.mu.Unlock()
	return nil
}

// Check polls for tweets newer than the last seen ID. When it fires, the
// rendered tweets ride along in the trigger data under "tweets".
func (t *NewTweetTrigger) Check(ctx context.Context) (bool, map[string]any, error) {
	t.mu.Lock()
	userID := t.userID
	lastID := t.lastID
	t.mu.Unlock()

	if userID == "" {
		// Setup failed at startup; resolve lazily.
		var err error
		userID, err = t.api.userID(ctx, t.username)
		if err != nil {
			return false, nil, err
		}
		t.mu.Lock()
		t.userID = userID
		t.mu.Unlock()
	}

	tweets, err := t.api.recentTweets(ctx, userID, lastID, 10)
	if err != nil {
		return false, nil, err
	}
	if len(tweets) == 0 {
		return false, nil, nil
	}

	t.mu.Lock()
	t.lastID = tweets[0].ID
	t.mu.Unlock()

	return true, map[string]any{
		"username":    t.username,
		"tweet_count": len(tweets),
		"tweets":      renderTweets(t.username, tweets),
	}, nil
}
