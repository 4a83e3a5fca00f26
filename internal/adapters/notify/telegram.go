// Package notify implements the built-in notifiers. Each notifier delivers
// the final summary over one transport; a notifier's failure never prevents
// other notifiers of the same task from being attempted.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/manthysbr/llmsender/internal/confmap"
)

// TelegramNotifier sends messages through the Telegram Bot API using HTML
// parse mode; the summary is escaped so model output cannot break markup.
type TelegramNotifier struct {
	client   *http.Client
	baseURL  string
	botToken string
	chatID   string
}

// NewTelegram builds a Telegram notifier from a plugin configuration map.
// Recognized keys: bot_token, chat_id, base_url.
func NewTelegram(config map[string]any) (any, error) {
	token := confmap.String(config, "bot_token", "")
	if token == "" {
		token = os.Getenv("TELEGRAM_BOT_TOKEN")
	}
	chatID := confmap.String(config, "chat_id", "")
	if chatID == "" {
		return nil, fmt.Errorf("telegram notifier requires a chat_id")
	}
	return &TelegramNotifier{
		client:   &http.Client{Timeout: 30 * time.Second},
		baseURL:  confmap.String(config, "base_url", "https://api.telegram.org"),
		botToken: token,
		chatID:   chatID,
	}, nil
}

func (n *TelegramNotifier) Send(ctx context.Context, message, title string) error {
	text := html.EscapeString(message)
	if title != "" {
		text = "<b>" + html.EscapeString(title) + "</b>\n\n" + text
	}

	payload := map[string]any{
		"chat_id":    n.chatID,
		"text":       text,
		"parse_mode": "HTML",
	}
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", n.baseURL, n.botToken)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(payloadBytes))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call telegram API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("telegram API returned status %d: %s", resp.StatusCode, string(body))
	}

	var result struct {
		OK          bool   `json:"ok"`
		Description string `json:"description"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("failed to decode telegram response: %w", err)
	}
	if !result.OK {
		return fmt.Errorf("telegram API rejected message: %s", result.Description)
	}
	return nil
}
