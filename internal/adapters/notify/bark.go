package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/manthysbr/llmsender/internal/confmap"
)

// BarkNotifier pushes to iOS devices through a Bark server's JSON push
// endpoint.
type BarkNotifier struct {
	client    *http.Client
	serverURL string
	deviceKey string
	group     string
	sound     string
	icon      string
	clickURL  string
	level     string
}

// NewBark builds a Bark notifier from a plugin configuration map.
// Recognized keys: device_key, server_url, group, sound, icon, url, level.
func NewBark(config map[string]any) (any, error) {
	key := confmap.String(config, "device_key", "")
	if key == "" {
		key = os.Getenv("BARK_DEVICE_KEY")
	}
	return &BarkNotifier{
		client:    &http.Client{Timeout: 30 * time.Second},
		serverURL: confmap.String(config, "server_url", "https://api.day.app"),
		deviceKey: key,
		group:     confmap.String(config, "group", ""),
		sound:     confmap.String(config, "sound", ""),
		icon:      confmap.String(config, "icon", ""),
		clickURL:  confmap.String(config, "url", ""),
		level:     confmap.String(config, "level", ""),
	}, nil
}

func (n *BarkNotifier) Send(ctx context.Context, message, title string) error {
	payload := map[string]any{
		"device_key": n.deviceKey,
		"title":      title,
		"body":       message,
	}
	if n.group != "" {
		payload["group"] = n.group
	}
	if n.sound != "" {
		payload["sound"] = n.sound
	}
	if n.icon != "" {
		payload["icon"] = n.icon
	}
	if n.clickURL != "" {
		payload["url"] = n.clickURL
	}
	if n.level != "" {
		payload["level"] = n.level
	}

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", n.serverURL+"/push", bytes.NewReader(payloadBytes))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call bark server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("bark server returned status %d: %s", resp.StatusCode, string(body))
	}

	var result struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("failed to decode bark response: %w", err)
	}
	if result.Code != 200 {
		return fmt.Errorf("bark server rejected push: %s", result.Message)
	}
	return nil
}
