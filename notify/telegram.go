package notify

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultTelegramTimeout = 5 * time.Second

// TelegramSink posts staff alerts to a Telegram chat via the bot API.
// Influencer messages are relayed to the same chat prefixed with the
// influencer identity; staff forward them on the influencer's own channel.
type TelegramSink struct {
	botToken string
	chatID   string
	client   *http.Client
	baseURL  string
}

// NewTelegramSink creates a sink posting to api.telegram.org with a bounded
// request timeout.
func NewTelegramSink(botToken, chatID string) *TelegramSink {
	return &TelegramSink{
		botToken: botToken,
		chatID:   chatID,
		client:   &http.Client{Timeout: defaultTelegramTimeout},
		baseURL:  "https://api.telegram.org",
	}
}

func (s *TelegramSink) SendStaffAlert(ctx context.Context, message, ruleID string) error {
	return s.send(ctx, fmt.Sprintf("[%s] %s", ruleID, message))
}

func (s *TelegramSink) SendInfluencerMessage(ctx context.Context, influencerID, message, ruleID string) error {
	return s.send(ctx, fmt.Sprintf("[%s → %s] %s", ruleID, influencerID, message))
}

func (s *TelegramSink) send(ctx context.Context, text string) error {
	if s.botToken == "" || s.chatID == "" {
		return fmt.Errorf("telegram sink is not configured (missing bot token or chat ID)")
	}

	form := url.Values{}
	form.Set("chat_id", s.chatID)
	form.Set("text", text)

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", s.baseURL, s.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to build telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("telegram send failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("telegram send failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}
