package twitter

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/manthysbr/llmsender/internal/confmap"
	"github.com/manthysbr/llmsender/internal/core/ports"
)

var likesPattern = regexp.MustCompile(`\blikes=(\d+)\b`)

// FilterTweets drops tweet lines from the fetched content that fall below
// the configured engagement or length thresholds. It rewrites the raw
// content in the side map rather than the summary, so it belongs before the
// summarizer's output matters; when every tweet is dropped it vetoes the
// notification.
type FilterTweets struct {
	minLikes  int
	minLength int
	keywords  []string
}

// NewFilterTweets builds the action from a plugin configuration map.
// Recognized keys: min_likes, min_length, keywords.
func NewFilterTweets(config map[string]any) (any, error) {
	return &FilterTweets{
		minLikes:  confmap.Int(config, "min_likes", 0),
		minLength: confmap.Int(config, "min_length", 0),
		keywords:  confmap.Strings(config, "keywords"),
	}, nil
}

func (a *FilterTweets) Process(ctx context.Context, summary string, side map[string]any) (ports.ActionResult, error) {
	content, _ := side["content"].(string)
	lines := strings.Split(strings.TrimRight(content, "\n"), "\n")

	var kept []string
	for _, line := range lines {
		if a.matches(line) {
			kept = append(kept, line)
		}
	}

	if len(kept) == 0 {
		return ports.ActionResult{
			Output:   summary,
			Continue: false,
			Metadata: map[string]any{"reason": "no tweets matched the filter"},
		}, nil
	}

	side["content"] = strings.Join(kept, "\n") + "\n"
	return ports.ActionResult{
		Output:   summary,
		Continue: true,
		Metadata: map[string]any{"kept": len(kept), "dropped": len(lines) - len(kept)},
	}, nil
}

func (a *FilterTweets) matches(line string) bool {
	if a.minLikes > 0 {
		m := likesPattern.FindStringSubmatch(line)
		if m == nil {
			return false
		}
		likes, err := strconv.Atoi(m[1])
		if err != nil || likes < a.minLikes {
			return false
		}
	}

	text := line
	if idx := strings.LastIndex(line, "| "); idx >= 0 {
		text = line[idx+2:]
	}
	if a.minLength > 0 && len(text) < a.minLength {
		return false
	}
	if len(a.keywords) > 0 {
		lower := strings.ToLower(text)
		found := false
		for _, kw := range a.keywords {
			if strings.Contains(lower, strings.ToLower(kw)) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
