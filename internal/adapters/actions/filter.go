// Package actions implements the built-in post-processing actions. Actions
// run in a chain between summarization and notification; any action can veto
// the notification by returning a stop signal, which is not an error.
package actions

import (
	"context"
	"fmt"
	"strings"

	"github.com/manthysbr/llmsender/internal/confmap"
	"github.com/manthysbr/llmsender/internal/core/ports"
)

// FilterAction vetoes notifications whose summary is too short or does not
// match the configured keyword rules. Intended as the first link of a chain
// so later actions never see vetoed content.
type FilterAction struct {
	minLength       int
	requireKeywords []string
	blockKeywords   []string
}

// NewFilter builds a filter action from a plugin configuration map.
// Recognized keys: min_length, require_keywords, block_keywords.
func NewFilter(config map[string]any) (any, error) {
	return &FilterAction{
		minLength:       confmap.Int(config, "min_length", 0),
		requireKeywords: confmap.Strings(config, "require_keywords"),
		blockKeywords:   confmap.Strings(config, "block_keywords"),
	}, nil
}

func (a *FilterAction) Process(ctx context.Context, summary string, side map[string]any) (ports.ActionResult, error) {
	stop := func(reason string) (ports.ActionResult, error) {
		return ports.ActionResult{
			Output:   summary,
			Continue: false,
			Metadata: map[string]any{"filtered": true, "reason": reason},
		}, nil
	}

	trimmed := strings.TrimSpace(summary)
	if a.minLength > 0 && len(trimmed) < a.minLength {
		return stop(fmt.Sprintf("content too short after filtering (%d < %d)", len(trimmed), a.minLength))
	}

	lower := strings.ToLower(trimmed)
	for _, kw := range a.requireKeywords {
		if !strings.Contains(lower, strings.ToLower(kw)) {
			return stop(fmt.Sprintf("required keyword %q not found", kw))
		}
	}
	for _, kw := range a.blockKeywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			return stop(fmt.Sprintf("blocked keyword %q found", kw))
		}
	}

	return ports.ActionResult{Output: summary, Continue: true}, nil
}
