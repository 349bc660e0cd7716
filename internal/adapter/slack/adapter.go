package slack

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/rs/zerolog/log"
	slacklib "github.com/slack-go/slack"

	"github.com/gosuda/courier/internal/adapter"
	"github.com/gosuda/courier/internal/domain"
)

// SlackAPI abstracts the subset of the Slack client used by the adapter.
// This allows testing without real HTTP calls.
type SlackAPI interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slacklib.MsgOption) (string, string, error)
}

// Adapter implements adapter.Adapter for Slack.
type Adapter struct {
	api  SlackAPI
	emit adapter.EmitFunc
}

// Compile-time interface check.
var _ adapter.Adapter = (*Adapter)(nil) //nolint:gochecknoglobals // compile-time check

// New creates a Slack adapter with the given API client and emit sink.
func New(api SlackAPI, emit adapter.EmitFunc) *Adapter {
	return &Adapter{api: api, emit: emit}
}

// SendMessage posts a text message to a Slack channel.
func (a *Adapter) SendMessage(ctx context.Context, recipient, text string) adapter.SendResult {
	channel, ts, err := a.api.PostMessageContext(ctx, recipient, slacklib.MsgOptionText(text, false))
	if err != nil {
		log.Error().Err(err).Str("channel", recipient).Msg("slack send failed")
		return adapter.Fail(err)
	}

	log.Info().Str("channel", recipient).Msg("slack message sent")

	return adapter.OK(map[string]string{"channel": channel, "ts": ts})
}

// eventEnvelope is the Events API callback shape the adapter cares about.
type eventEnvelope struct {
	Type  string `json:"type"`
	Event struct {
		Type        string `json:"type"`
		User        string `json:"user"`
		BotID       string `json:"bot_id"`
		Channel     string `json:"channel"`
		Text        string `json:"text"`
		TS          string `json:"ts"`
		ClientMsgID string `json:"client_msg_id"`
	} `json:"event"`
}

// HandleWebhook parses an Events API payload and emits a canonical message
// for user-authored message events. Bot messages and other event types are
// ignored.
func (a *Adapter) HandleWebhook(payload []byte) {
	var env eventEnvelope
	if err := json.Unmarshal(payload, &env); err != nil {
		log.Trace().Err(err).Msg("slack webhook: unparseable payload")
		return
	}

	ev := env.Event
	if ev.Type != "message" || ev.BotID != "" || ev.Text == "" {
		return
	}

	// Slack timestamps are fractional seconds ("1712345678.000200").
	ts, err := strconv.ParseFloat(ev.TS, 64)
	if err != nil {
		return
	}

	messageID := ev.ClientMsgID
	if messageID == "" {
		messageID = ev.TS
	}

	a.emit(domain.Message{
		Platform:  domain.PlatformSlack,
		SenderID:  ev.User,
		ChannelID: ev.Channel,
		Text:      ev.Text,
		Timestamp: int64(ts * 1000),
		MessageID: messageID,
	})
}
