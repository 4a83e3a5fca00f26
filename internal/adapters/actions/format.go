package actions

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/manthysbr/llmsender/internal/confmap"
	"github.com/manthysbr/llmsender/internal/core/ports"
)

// FormatAction rewrites the summary into its final presentation form.
// Styles: plain (default), markdown, html, json.
type FormatAction struct {
	style        string
	prefix       string
	suffix       string
	addTimestamp bool
	now          func() time.Time
}

// NewFormat builds a format action from a plugin configuration map.
// Recognized keys: style, prefix, suffix, add_timestamp.
func NewFormat(config map[string]any) (any, error) {
	style := confmap.String(config, "style", "plain")
	switch style {
	case "plain", "markdown", "html", "json":
	default:
		return nil, fmt.Errorf("unknown format style %q", style)
	}
	return &FormatAction{
		style:        style,
		prefix:       confmap.String(config, "prefix", ""),
		suffix:       confmap.String(config, "suffix", ""),
		addTimestamp: confmap.Bool(config, "add_timestamp", false),
		now:          time.Now,
	}, nil
}

func (a *FormatAction) Process(ctx context.Context, summary string, side map[string]any) (ports.ActionResult, error) {
	out := strings.TrimSpace(summary)
	stamp := a.now().Format(time.RFC3339)

	switch a.style {
	case "markdown":
		if a.addTimestamp {
			out = out + "\n\n_" + stamp + "_"
		}
	case "html":
		if a.addTimestamp {
			out = out + "\n<i>" + stamp + "</i>"
		}
	case "json":
		doc := map[string]any{"summary": out}
		if name, ok := side["task_name"].(string); ok {
			doc["task"] = name
		}
		if a.addTimestamp {
			doc["generated_at"] = stamp
		}
		encoded, err := json.Marshal(doc)
		if err != nil {
			return ports.ActionResult{}, fmt.Errorf("failed to encode summary: %w", err)
		}
		out = string(encoded)
	default:
		if a.addTimestamp {
			out = out + "\n\n" + stamp
		}
	}

	if a.prefix != "" {
		out = a.prefix + out
	}
	if a.suffix != "" {
		out = out + a.suffix
	}
	return ports.ActionResult{Output: out, Continue: true}, nil
}
