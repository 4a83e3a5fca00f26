package twitter

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manthysbr/llmsender/internal/core/ports"
)

func tweetAPI(t *testing.T, tweets []map[string]any) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/2/users/by/username/"):
			json.NewEncoder(w).Encode(map[string]any{"data": map[string]any{"id": "99"}})
		case strings.HasSuffix(r.URL.Path, "/tweets"):
			json.NewEncoder(w).Encode(map[string]any{"data": tweets})
		default:
			http.NotFound(w, r)
		}
	}))
}

func TestFetchTweets_RendersOnePerLine(t *testing.T) {
	srv := tweetAPI(t, []map[string]any{
		{"id": "2", "text": "multi\nline tweet", "public_metrics": map[string]any{"like_count": 12, "retweet_count": 3}},
		{"id": "1", "text": "older", "public_metrics": map[string]any{"like_count": 1}},
	})
	defer srv.Close()

	inst, err := NewFetchTweets(map[string]any{
		"base_url": srv.URL, "bearer_token": "tok", "username": "golang",
	})
	require.NoError(t, err)
	p := inst.(ports.ContentProvider)

	content, err := p.Fetch(context.Background())
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(content, "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "@golang | likes=12 retweets=3 | multi line tweet", lines[0])
	assert.Contains(t, lines[1], "likes=1")
}

func TestFetchTweets_RequiresUsername(t *testing.T) {
	_, err := NewFetchTweets(map[string]any{"bearer_token": "tok"})
	require.Error(t, err)
}

func TestFilterTweets_DropsLowEngagement(t *testing.T) {
	inst, err := NewFilterTweets(map[string]any{"min_likes": 10})
	require.NoError(t, err)
	a := inst.(ports.Action)

	side := map[string]any{
		"content": "@go | likes=50 retweets=1 | popular tweet\n@go | likes=2 retweets=0 | quiet tweet\n",
	}
	res, err := a.Process(context.Background(), "summary", side)
	require.NoError(t, err)

	assert.True(t, res.Continue)
	assert.Equal(t, 1, res.Metadata["kept"])
	assert.Equal(t, 1, res.Metadata["dropped"])
	assert.Contains(t, side["content"], "popular tweet")
	assert.NotContains(t, side["content"], "quiet tweet")
}

func TestFilterTweets_VetoesWhenNothingMatches(t *testing.T) {
	inst, err := NewFilterTweets(map[string]any{"keywords": []any{"release"}})
	require.NoError(t, err)
	a := inst.(ports.Action)

	side := map[string]any{"content": "@go | likes=5 retweets=0 | unrelated chatter\n"}
	res, err := a.Process(context.Background(), "summary", side)
	require.NoError(t, err)

	assert.False(t, res.Continue)
	assert.Equal(t, "no tweets matched the filter", res.Metadata["reason"])
}

func TestPostTweet_ComposeTruncatesWithHashtags(t *testing.T) {
	inst, err := NewPostTweet(map[string]any{
		"bearer_token": "tok",
		"hashtags":     []any{"golang", "#news"},
		"max_length":   60,
	})
	require.NoError(t, err)
	p := inst.(*PostTweet)

	text := p.compose(strings.Repeat("x", 200), "Title")

	assert.LessOrEqual(t, len([]rune(text)), 60)
	assert.True(t, strings.HasPrefix(text, "Title\n"))
	assert.True(t, strings.HasSuffix(text, "\n#golang #news"))
	assert.Contains(t, text, "…")
}

func TestPostTweet_Send(t *testing.T) {
	var gotPayload map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/2/tweets", r.URL.Path)
		require.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotPayload))
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]any{"data": map[string]any{"id": "1"}})
	}))
	defer srv.Close()

	inst, err := NewPostTweet(map[string]any{"base_url": srv.URL, "bearer_token": "tok"})
	require.NoError(t, err)
	n := inst.(ports.Notifier)

	require.NoError(t, n.Send(context.Background(), "hello world", ""))
	assert.Equal(t, "hello world", gotPayload["text"])
}

func TestNewTweetTrigger_FiresOnNewTweets(t *testing.T) {
	var tweets []map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/2/users/by/username/"):
			json.NewEncoder(w).Encode(map[string]any{"data": map[string]any{"id": "99"}})
		case strings.HasSuffix(r.URL.Path, "/tweets"):
			since := r.URL.Query().Get("since_id")
			var out []map[string]any
			for _, tw := range tweets {
				if since == "" || tw["id"].(string) > since {
					out = append(out, tw)
				}
			}
			json.NewEncoder(w).Encode(map[string]any{"data": out})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	inst, err := NewNewTweetTrigger(map[string]any{
		"base_url": srv.URL, "bearer_token": "tok", "username": "golang", "poll_minutes": 1,
	})
	require.NoError(t, err)
	trigger := inst.(ports.Trigger)

	tweets = []map[string]any{{"id": "5", "text": "existing"}}
	require.NoError(t, trigger.Setup(context.Background()))

	// nothing new yet
	fired, _, err := trigger.Check(context.Background())
	require.NoError(t, err)
	assert.False(t, fired)

	// a new tweet appears
	tweets = append([]map[string]any{{"id": "6", "text": "fresh"}}, tweets...)
	fired, data, err := trigger.Check(context.Background())
	require.NoError(t, err)
	require.True(t, fired)
	assert.Equal(t, 1, data["tweet_count"])
	assert.Contains(t, data["tweets"], "fresh")

	// and is not replayed on the next poll
	fired, _, err = trigger.Check(context.Background())
	require.NoError(t, err)
	assert.False(t, fired)
}
