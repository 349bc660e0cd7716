package whatsapp

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/gosuda/courier/internal/adapter"
	"github.com/gosuda/courier/internal/adapter/graph"
	"github.com/gosuda/courier/internal/domain"
)

// Adapter implements adapter.Adapter for the WhatsApp Cloud API.
type Adapter struct {
	client        *graph.Client
	phoneNumberID string
	emit          adapter.EmitFunc
}

// Compile-time interface check.
var _ adapter.Adapter = (*Adapter)(nil) //nolint:gochecknoglobals // compile-time check

// New creates a WhatsApp adapter. The client must carry the Cloud API bearer
// token (graph.Client.WithBearer).
func New(client *graph.Client, phoneNumberID string, emit adapter.EmitFunc) *Adapter {
	return &Adapter{client: client, phoneNumberID: phoneNumberID, emit: emit}
}

// SendMessage posts a text message to a phone number.
func (a *Adapter) SendMessage(ctx context.Context, recipient, text string) adapter.SendResult {
	body := map[string]any{
		"messaging_product": "whatsapp",
		"to":                recipient,
		"text":              map[string]string{"body": text},
	}

	data, err := a.client.PostJSON(ctx, "/"+a.phoneNumberID+"/messages", nil, body)
	if err != nil {
		log.Error().Err(err).Str("recipient", recipient).Msg("whatsapp send failed")
		return adapter.Fail(err)
	}

	log.Info().Str("recipient", recipient).Msg("whatsapp message sent")

	return adapter.OK(data)
}

type webhookPayload struct {
	Entry []struct {
		Changes []struct {
			Field string `json:"field"`
			Value struct {
				Messages []struct {
					From      string `json:"from"`
					ID        string `json:"id"`
					Timestamp string `json:"timestamp"` // unix seconds
					Type      string `json:"type"`
					Text      struct {
						Body string `json:"body"`
					} `json:"text"`
				} `json:"messages"`
			} `json:"value"`
		} `json:"changes"`
	} `json:"entry"`
}

// HandleWebhook emits one canonical message per inbound text message in a
// Cloud API webhook payload. Status updates and non-text messages are
// ignored.
func (a *Adapter) HandleWebhook(payload []byte) {
	var p webhookPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		log.Trace().Err(err).Msg("whatsapp webhook: unparseable payload")
		return
	}

	for _, entry := range p.Entry {
		for _, change := range entry.Changes {
			if change.Field != "messages" {
				continue
			}

			for _, msg := range change.Value.Messages {
				if msg.Type != "text" {
					continue
				}

				seconds, err := strconv.ParseInt(msg.Timestamp, 10, 64)
				if err != nil {
					continue
				}

				a.emit(domain.Message{
					Platform:  domain.PlatformWhatsApp,
					SenderID:  msg.From,
					Text:      msg.Text.Body,
					Timestamp: seconds * 1000,
					MessageID: msg.ID,
				})
			}
		}
	}
}
