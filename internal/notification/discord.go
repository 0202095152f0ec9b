package notification

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/alliancehq/alliance-manager/internal/datastore/v2/entities"
)

// Embed colors by severity.
const (
	colorLow      = 0x00ff00
	colorMedium   = 0xffff00
	colorHigh     = 0xff8800
	colorCritical = 0xff0000
	colorUnknown  = 0x808080
)

// SeverityColor maps a severity to the Discord embed color.
func SeverityColor(s entities.Severity) int {
	switch s {
	case entities.SeverityLow:
		return colorLow
	case entities.SeverityMedium:
		return colorMedium
	case entities.SeverityHigh:
		return colorHigh
	case entities.SeverityCritical:
		return colorCritical
	default:
		return colorUnknown
	}
}

type discordPayload struct {
	Embeds []discordEmbed `json:"embeds"`
}

type discordEmbed struct {
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Color       int           `json:"color"`
	Timestamp   string        `json:"timestamp"`
	Footer      discordFooter `json:"footer"`
}

type discordFooter struct {
	Text string `json:"text"`
}

// DiscordSender posts a single embed to a webhook.
type DiscordSender struct {
	client     *http.Client
	webhookURL string
}

func NewDiscordSender(client *http.Client, webhookURL string) *DiscordSender {
	return &DiscordSender{client: client, webhookURL: webhookURL}
}

func (s *DiscordSender) Send(ctx context.Context, msg Message) error {
	ts := msg.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	payload := discordPayload{Embeds: []discordEmbed{{
		Title:       "🚨 " + msg.Title,
		Description: msg.Body,
		Color:       SeverityColor(msg.Severity),
		Timestamp:   ts.UTC().Format(time.RFC3339Nano),
		Footer:      discordFooter{Text: "Sévérité: " + string(msg.Severity)},
	}}}

	resp, err := postJSON(ctx, s.client, s.webhookURL, payload)
	if err != nil {
		return deliveryError(entities.ChannelDiscord, fmt.Errorf("discord webhook request failed: %w", err))
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return deliveryError(entities.ChannelDiscord,
			fmt.Errorf("discord webhook returned status %d: %s", resp.StatusCode, readErrorBody(resp)))
	}
	return nil
}
