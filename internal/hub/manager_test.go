package hub

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gosuda/courier/internal/bus"
	"github.com/gosuda/courier/internal/config"
	"github.com/gosuda/courier/internal/domain"
)

func enabled() config.PlatformConfig {
	return config.PlatformConfig{Enabled: true}
}

func allEnabledConfig() *config.Config {
	return &config.Config{
		Platforms: config.PlatformsConfig{
			Facebook:  config.FacebookConfig{PlatformConfig: enabled(), APIVersion: "v18.0"},
			Instagram: config.InstagramConfig{PlatformConfig: enabled(), APIVersion: "v18.0"},
			Telegram:  config.TelegramConfig{PlatformConfig: enabled(), BotToken: "tg-token"},
			WhatsApp:  config.WhatsAppConfig{PlatformConfig: enabled(), PhoneNumberID: "1555", APIVersion: "v18.0"},
			Slack:     config.SlackConfig{PlatformConfig: enabled(), BotToken: "xoxb-test"},
			Twitter:   config.TwitterConfig{PlatformConfig: enabled()},
		},
	}
}

func TestEnabledPlatforms_Order(t *testing.T) {
	t.Parallel()

	m := New(allEnabledConfig(), bus.New(10))

	assert.Equal(t, []domain.Platform{
		domain.PlatformFacebook,
		domain.PlatformInstagram,
		domain.PlatformTelegram,
		domain.PlatformWhatsApp,
		domain.PlatformSlack,
		domain.PlatformTwitter,
	}, m.EnabledPlatforms())
}

func TestEnabledPlatforms_Subset(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{
		Platforms: config.PlatformsConfig{
			Telegram: config.TelegramConfig{PlatformConfig: enabled(), BotToken: "tg-token"},
			Twitter:  config.TwitterConfig{PlatformConfig: enabled()},
		},
	}

	m := New(cfg, bus.New(10))

	assert.Equal(t, []domain.Platform{domain.PlatformTelegram, domain.PlatformTwitter}, m.EnabledPlatforms())

	_, ok := m.Adapter(domain.PlatformSlack)
	assert.False(t, ok)
}

func TestSend_UnsupportedPlatform(t *testing.T) {
	t.Parallel()

	m := New(&config.Config{}, bus.New(10))

	res := m.Send(context.Background(), domain.PlatformSlack, "C123", "hi")
	assert.False(t, res.Success)
	assert.Equal(t, "Platform not supported", res.Error)
}

func TestHandleWebhook_RoutesToFeed(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{
		Platforms: config.PlatformsConfig{
			Telegram: config.TelegramConfig{PlatformConfig: enabled(), BotToken: "tg-token"},
		},
	}

	feed := bus.New(10)
	m := New(cfg, feed)

	m.HandleWebhook(domain.PlatformTelegram, []byte(`{
		"message":{"message_id":7,"date":1700000000,"text":"hello",
			"from":{"id":42},"chat":{"id":42}}
	}`))

	got := feed.Recent(10)
	require.Len(t, got, 1)
	assert.Equal(t, domain.PlatformTelegram, got[0].Platform)
	assert.Equal(t, "hello", got[0].Text)
}

func TestHandleWebhook_UnsupportedPlatformDropped(t *testing.T) {
	t.Parallel()

	feed := bus.New(10)
	m := New(&config.Config{}, feed)

	m.HandleWebhook(domain.PlatformSlack, []byte(`{"event":{"type":"message","text":"x"}}`))

	assert.Empty(t, feed.Recent(10))
}
