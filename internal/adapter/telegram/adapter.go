package telegram

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/courier/internal/adapter"
	"github.com/gosuda/courier/internal/domain"
)

// BotAPI abstracts the subset of the Telegram Bot API client used by the
// adapter. This allows testing without real HTTP calls.
type BotAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Adapter implements adapter.Adapter for Telegram.
type Adapter struct {
	api  BotAPI
	emit adapter.EmitFunc
}

// Compile-time interface check.
var _ adapter.Adapter = (*Adapter)(nil) //nolint:gochecknoglobals // compile-time check

// New creates a Telegram adapter with the given API client and emit sink.
func New(api BotAPI, emit adapter.EmitFunc) *Adapter {
	return &Adapter{api: api, emit: emit}
}

// NewBotAPI builds a Bot API client without the getMe probe that
// tgbotapi.NewBotAPI performs, so construction never touches the network.
func NewBotAPI(botToken string) *tgbotapi.BotAPI {
	api := &tgbotapi.BotAPI{
		Token:  botToken,
		Client: &http.Client{Timeout: 15 * time.Second},
		Buffer: 100,
	}
	api.SetAPIEndpoint(tgbotapi.APIEndpoint)

	return api
}

// SendMessage posts a text message to a Telegram chat. The recipient is the
// numeric chat ID.
func (a *Adapter) SendMessage(_ context.Context, recipient, text string) adapter.SendResult {
	chatID, err := strconv.ParseInt(recipient, 10, 64)
	if err != nil {
		return adapter.Fail(err)
	}

	sent, err := a.api.Send(tgbotapi.NewMessage(chatID, text))
	if err != nil {
		log.Error().Err(err).Str("chat_id", recipient).Msg("telegram send failed")
		return adapter.Fail(err)
	}

	log.Info().Str("chat_id", recipient).Msg("telegram message sent")

	return adapter.OK(sent)
}

// HandleWebhook parses a Telegram update and emits a canonical message for
// text updates. Anything else is ignored.
func (a *Adapter) HandleWebhook(payload []byte) {
	var update tgbotapi.Update
	if err := json.Unmarshal(payload, &update); err != nil {
		log.Trace().Err(err).Msg("telegram webhook: unparseable payload")
		return
	}

	msg := update.Message
	if msg == nil || msg.Text == "" || msg.From == nil || msg.Chat == nil {
		return
	}

	out := domain.Message{
		Platform:  domain.PlatformTelegram,
		SenderID:  strconv.FormatInt(msg.From.ID, 10),
		ChatID:    strconv.FormatInt(msg.Chat.ID, 10),
		Text:      msg.Text,
		Timestamp: int64(msg.Date) * 1000,
		MessageID: strconv.Itoa(msg.MessageID),
		Username:  msg.From.UserName,
		HasMedia:  len(msg.Photo) > 0 || msg.Document != nil || msg.Video != nil || msg.Voice != nil,
	}

	if fwd := msg.ForwardFrom; fwd != nil {
		if fwd.UserName != "" {
			out.ForwardedFrom = fwd.UserName
		} else {
			out.ForwardedFrom = strconv.FormatInt(fwd.ID, 10)
		}
	}

	a.emit(out)
}

// SetWebhook registers webhookURL/webhook/telegram as the bot's webhook
// endpoint. Exposed through Manager.Adapter for operational setup; it is not
// part of the common adapter contract.
func (a *Adapter) SetWebhook(_ context.Context, webhookURL string) adapter.SendResult {
	wh, err := tgbotapi.NewWebhook(webhookURL + "/webhook/telegram")
	if err != nil {
		return adapter.Fail(err)
	}

	if _, err := a.api.Request(wh); err != nil {
		log.Error().Err(err).Str("url", webhookURL).Msg("telegram webhook setup failed")
		return adapter.Fail(err)
	}

	log.Info().Str("url", webhookURL).Msg("telegram webhook set")

	return adapter.OK(nil)
}
