package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/alliancehq/alliance-manager/internal/datastore/v2/entities"
	"github.com/alliancehq/alliance-manager/internal/errors"
)

// ErrChannelNotConfigured is returned when no enabled destination exists for a channel.
var ErrChannelNotConfigured = errors.NewStd("notification channel not configured")

// ConfigLister is the subset of the notification config repository the
// directory needs.
type ConfigLister interface {
	ListEnabled(ctx context.Context) ([]entities.NotificationConfig, error)
}

// Options tunes sender construction.
type Options struct {
	HTTPClient  *http.Client
	TelegramAPI string
	ShoutrrrFn  SendFunc
}

// Directory holds the enabled destination of each channel. It is loaded
// explicitly and only changes on the next Load.
type Directory struct {
	opts Options

	mu           sync.RWMutex
	destinations map[entities.Channel]entities.NotificationConfig
}

// NewDirectory creates an empty directory.
func NewDirectory(opts Options) *Directory {
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	return &Directory{
		opts:         opts,
		destinations: make(map[entities.Channel]entities.NotificationConfig),
	}
}

// Load replaces the destinations with the enabled configs from lister. When
// a channel has several enabled configs the first one in ID order wins.
func (d *Directory) Load(ctx context.Context, lister ConfigLister) error {
	cfgs, err := lister.ListEnabled(ctx)
	if err != nil {
		return fmt.Errorf("failed to load notification configs: %w", err)
	}

	destinations := make(map[entities.Channel]entities.NotificationConfig, len(cfgs))
	for _, cfg := range cfgs {
		if _, seen := destinations[cfg.Channel]; seen {
			continue
		}
		destinations[cfg.Channel] = cfg
	}

	d.mu.Lock()
	d.destinations = destinations
	d.mu.Unlock()
	return nil
}

// Configured reports whether channel has an enabled destination.
func (d *Directory) Configured(channel entities.Channel) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.destinations[channel]
	return ok
}

// Channels returns the channels with a destination.
func (d *Directory) Channels() []entities.Channel {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]entities.Channel, 0, len(d.destinations))
	for ch := range d.destinations {
		out = append(out, ch)
	}
	return out
}

// SenderFor returns the sender for the channel's enabled destination.
func (d *Directory) SenderFor(channel entities.Channel) (Sender, error) {
	d.mu.RLock()
	cfg, ok := d.destinations[channel]
	d.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrChannelNotConfigured, channel)
	}
	return d.Build(cfg)
}

type discordConfig struct {
	WebhookURL string `json:"webhookUrl"`
}

type telegramConfig struct {
	BotToken string     `json:"botToken"`
	ChatID   flexString `json:"chatId"`
}

type shoutrrrConfig struct {
	URL string `json:"url"`
}

// Build creates a sender from a config row regardless of its enabled flag,
// so that a config can be tested before it is enabled.
func (d *Directory) Build(cfg entities.NotificationConfig) (Sender, error) {
	switch cfg.Channel {
	case entities.ChannelDiscord:
		var c discordConfig
		if err := decodeConfig(cfg, &c); err != nil {
			return nil, err
		}
		if strings.TrimSpace(c.WebhookURL) == "" {
			return nil, invalidConfig(cfg.Channel, "webhookUrl is required")
		}
		return NewDiscordSender(d.opts.HTTPClient, c.WebhookURL), nil
	case entities.ChannelTelegram:
		var c telegramConfig
		if err := decodeConfig(cfg, &c); err != nil {
			return nil, err
		}
		if c.BotToken == "" || c.ChatID == "" {
			return nil, invalidConfig(cfg.Channel, "botToken and chatId are required")
		}
		return NewTelegramSender(d.opts.HTTPClient, d.opts.TelegramAPI, c.BotToken, string(c.ChatID)), nil
	case entities.ChannelEmail:
		var c shoutrrrConfig
		if err := decodeConfig(cfg, &c); err != nil {
			return nil, err
		}
		if c.URL == "" {
			return nil, invalidConfig(cfg.Channel, "url is required")
		}
		return NewShoutrrrSender(c.URL, d.opts.ShoutrrrFn), nil
	default:
		return nil, invalidConfig(cfg.Channel, "channel has no external sender")
	}
}

// ValidateConfig checks a config row without sending anything.
func (d *Directory) ValidateConfig(cfg entities.NotificationConfig) error {
	_, err := d.Build(cfg)
	return err
}

func decodeConfig(cfg entities.NotificationConfig, v any) error {
	if len(cfg.Config) == 0 {
		return invalidConfig(cfg.Channel, "config is empty")
	}
	if err := json.Unmarshal(cfg.Config, v); err != nil {
		return invalidConfig(cfg.Channel, fmt.Sprintf("config is not valid JSON: %v", err))
	}
	return nil
}

func invalidConfig(channel entities.Channel, reason string) error {
	return errors.Newf("invalid %s config: %s", channel, reason).
		Component("notification").
		Category(errors.CategoryValidation).
		Context("channel", string(channel)).
		Build()
}
