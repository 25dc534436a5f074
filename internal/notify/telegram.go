package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// TelegramNotifier delivers events to a Telegram chat via the bot API.
// A notifier with an empty token is disabled and drops events silently.
type TelegramNotifier struct {
	token   string
	chatID  string
	client  *http.Client
	enabled bool
}

// NewTelegramNotifier creates a notifier for the given bot token and chat.
func NewTelegramNotifier(token, chatID string) *TelegramNotifier {
	return &TelegramNotifier{
		token:   token,
		chatID:  chatID,
		client:  &http.Client{Timeout: 10 * time.Second},
		enabled: token != "" && chatID != "",
	}
}

// Notify posts the event text to the Telegram sendMessage endpoint.
// Failures are logged and swallowed.
func (t *TelegramNotifier) Notify(ctx context.Context, ev Event) {
	if !t.enabled {
		return
	}

	payload := map[string]string{
		"chat_id": t.chatID,
		"text":    fmt.Sprintf("[%s] %s\n%s", ev.Severity, ev.Title, ev.Message),
	}
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Error("telegram payload marshal failed", slog.Any("error", err))
		return
	}

	url := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", t.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		slog.Error("telegram request build failed", slog.Any("error", err))
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		slog.Error("telegram delivery failed", slog.Any("error", err))
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		slog.Error("telegram delivery rejected", slog.Int("status", resp.StatusCode))
	}
}

// Compile-time interface check.
var _ Notifier = (*TelegramNotifier)(nil)
