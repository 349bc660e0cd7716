// Package hub wires enabled platform adapters to the message feed and routes
// sends and webhooks to them by platform key.
package hub

import (
	"context"

	"github.com/rs/zerolog/log"
	slacklib "github.com/slack-go/slack"

	"github.com/gosuda/courier/internal/adapter"
	"github.com/gosuda/courier/internal/adapter/facebook"
	"github.com/gosuda/courier/internal/adapter/graph"
	"github.com/gosuda/courier/internal/adapter/instagram"
	"github.com/gosuda/courier/internal/adapter/slack"
	"github.com/gosuda/courier/internal/adapter/telegram"
	"github.com/gosuda/courier/internal/adapter/twitter"
	"github.com/gosuda/courier/internal/adapter/whatsapp"
	"github.com/gosuda/courier/internal/bus"
	"github.com/gosuda/courier/internal/config"
	"github.com/gosuda/courier/internal/domain"
)

// ErrPlatformNotSupported is the user-facing message returned when a send
// targets a platform with no enabled adapter.
const ErrPlatformNotSupported = "Platform not supported"

// Manager owns the enabled platform adapters. Adapters are built once at
// startup from static configuration; registration order is fixed so that
// EnabledPlatforms always lists platforms in the same order.
type Manager struct {
	adapters map[domain.Platform]adapter.Adapter
	order    []domain.Platform
}

// New builds a Manager from configuration, constructing an adapter for every
// enabled platform. Inbound messages from all adapters are appended to feed.
func New(cfg *config.Config, feed *bus.Bus) *Manager {
	m := &Manager{adapters: make(map[domain.Platform]adapter.Adapter)}
	emit := feed.Add

	if cfg.Platforms.Facebook.Enabled {
		client := graph.NewClient(cfg.Platforms.Facebook.APIVersion)
		m.register(domain.PlatformFacebook, facebook.New(client, cfg.Platforms.Facebook.PageAccessToken, emit))
	}

	if cfg.Platforms.Instagram.Enabled {
		client := graph.NewClient(cfg.Platforms.Instagram.APIVersion)
		m.register(domain.PlatformInstagram, instagram.New(
			client, cfg.Platforms.Instagram.AccessToken, cfg.Platforms.Instagram.BusinessAccountID, emit))
	}

	if cfg.Platforms.Telegram.Enabled {
		m.register(domain.PlatformTelegram, telegram.New(telegram.NewBotAPI(cfg.Platforms.Telegram.BotToken), emit))
	}

	if cfg.Platforms.WhatsApp.Enabled {
		client := graph.NewClient(cfg.Platforms.WhatsApp.APIVersion).WithBearer(cfg.Platforms.WhatsApp.AccessToken)
		m.register(domain.PlatformWhatsApp, whatsapp.New(client, cfg.Platforms.WhatsApp.PhoneNumberID, emit))
	}

	if cfg.Platforms.Slack.Enabled {
		m.register(domain.PlatformSlack, slack.New(slacklib.New(cfg.Platforms.Slack.BotToken), emit))
	}

	if cfg.Platforms.Twitter.Enabled {
		m.register(domain.PlatformTwitter, twitter.New(emit))
	}

	log.Info().Int("platforms", len(m.order)).Msg("platform adapters initialized")

	return m
}

func (m *Manager) register(platform domain.Platform, a adapter.Adapter) {
	m.adapters[platform] = a
	m.order = append(m.order, platform)

	log.Info().Str("platform", string(platform)).Msg("platform adapter registered")
}

// Send routes an outbound message to the named platform's adapter.
func (m *Manager) Send(ctx context.Context, platform domain.Platform, recipient, text string) adapter.SendResult {
	a, ok := m.adapters[platform]
	if !ok {
		log.Error().Str("platform", string(platform)).Msg("send to unsupported platform")
		return adapter.SendResult{Success: false, Error: ErrPlatformNotSupported}
	}

	return a.SendMessage(ctx, recipient, text)
}

// HandleWebhook routes an inbound webhook body to the named platform's
// adapter. Payloads for unknown or disabled platforms are dropped.
func (m *Manager) HandleWebhook(platform domain.Platform, payload []byte) {
	a, ok := m.adapters[platform]
	if !ok {
		log.Warn().Str("platform", string(platform)).Msg("webhook for unsupported platform dropped")
		return
	}

	a.HandleWebhook(payload)
}

// EnabledPlatforms lists enabled platforms in registration order.
func (m *Manager) EnabledPlatforms() []domain.Platform {
	out := make([]domain.Platform, len(m.order))
	copy(out, m.order)

	return out
}

// Adapter returns the adapter for a platform, if enabled.
func (m *Manager) Adapter(platform domain.Platform) (adapter.Adapter, bool) {
	a, ok := m.adapters[platform]
	return a, ok
}
