package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/alliancehq/alliance-manager/internal/datastore/v2/entities"
)

// DefaultTelegramAPI is the Bot API base URL.
const DefaultTelegramAPI = "https://api.telegram.org"

type telegramPayload struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

type telegramError struct {
	OK          bool   `json:"ok"`
	ErrorCode   int    `json:"error_code"`
	Description string `json:"description"`
}

// TelegramSender calls sendMessage with Markdown text.
type TelegramSender struct {
	client  *http.Client
	baseURL string
	token   string
	chatID  string
}

// NewTelegramSender creates a sender. An empty baseURL means DefaultTelegramAPI.
func NewTelegramSender(client *http.Client, baseURL, token, chatID string) *TelegramSender {
	if baseURL == "" {
		baseURL = DefaultTelegramAPI
	}
	return &TelegramSender{
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		chatID:  chatID,
	}
}

// FormatTelegramText builds the Markdown body: bold title, message, italic severity.
func FormatTelegramText(msg Message) string {
	return fmt.Sprintf("*🚨 %s*\n\n%s\n\n_Sévérité: %s_", msg.Title, msg.Body, msg.Severity)
}

func (s *TelegramSender) Send(ctx context.Context, msg Message) error {
	url := fmt.Sprintf("%s/bot%s/sendMessage", s.baseURL, s.token)
	payload := telegramPayload{
		ChatID:    s.chatID,
		Text:      FormatTelegramText(msg),
		ParseMode: "Markdown",
	}

	resp, err := postJSON(ctx, s.client, url, payload)
	if err != nil {
		// The request URL embeds the bot token; keep it out of the error.
		return deliveryError(entities.ChannelTelegram, fmt.Errorf("telegram request failed: %w", redactToken(err, s.token)))
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body := readErrorBody(resp)
		var apiErr telegramError
		if json.Unmarshal([]byte(body), &apiErr) == nil && apiErr.Description != "" {
			return deliveryError(entities.ChannelTelegram,
				fmt.Errorf("telegram API error %d: %s", apiErr.ErrorCode, apiErr.Description))
		}
		return deliveryError(entities.ChannelTelegram,
			fmt.Errorf("telegram API returned status %d: %s", resp.StatusCode, body))
	}
	return nil
}

func redactToken(err error, token string) error {
	if token == "" {
		return err
	}
	return fmt.Errorf("%s", strings.ReplaceAll(err.Error(), token, "<redacted>"))
}
