package facebook

import (
	"context"
	"encoding/json"
	"net/url"

	"github.com/rs/zerolog/log"

	"github.com/gosuda/courier/internal/adapter"
	"github.com/gosuda/courier/internal/adapter/graph"
	"github.com/gosuda/courier/internal/domain"
)

// Adapter implements adapter.Adapter for Facebook Messenger.
type Adapter struct {
	client          *graph.Client
	pageAccessToken string
	emit            adapter.EmitFunc
}

// Compile-time interface check.
var _ adapter.Adapter = (*Adapter)(nil) //nolint:gochecknoglobals // compile-time check

// New creates a Facebook Messenger adapter.
func New(client *graph.Client, pageAccessToken string, emit adapter.EmitFunc) *Adapter {
	return &Adapter{client: client, pageAccessToken: pageAccessToken, emit: emit}
}

// SendMessage posts a text message to a Messenger recipient (a PSID).
func (a *Adapter) SendMessage(ctx context.Context, recipient, text string) adapter.SendResult {
	query := url.Values{"access_token": {a.pageAccessToken}}
	body := map[string]any{
		"recipient": map[string]string{"id": recipient},
		"message":   map[string]string{"text": text},
	}

	data, err := a.client.PostJSON(ctx, "/me/messages", query, body)
	if err != nil {
		log.Error().Err(err).Str("recipient", recipient).Msg("facebook send failed")
		return adapter.Fail(err)
	}

	log.Info().Str("recipient", recipient).Msg("facebook message sent")

	return adapter.OK(data)
}

// webhookPayload is the Messenger Platform webhook envelope.
type webhookPayload struct {
	Object string `json:"object"`
	Entry  []struct {
		Messaging []struct {
			Sender struct {
				ID string `json:"id"`
			} `json:"sender"`
			Timestamp int64 `json:"timestamp"`
			Message   *struct {
				MID         string            `json:"mid"`
				Text        string            `json:"text"`
				Attachments []json.RawMessage `json:"attachments"`
			} `json:"message"`
		} `json:"messaging"`
	} `json:"entry"`
}

// HandleWebhook parses a page webhook payload and emits one canonical
// message per text messaging event. Non-page objects and events without a
// text message are ignored.
func (a *Adapter) HandleWebhook(payload []byte) {
	var p webhookPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		log.Trace().Err(err).Msg("facebook webhook: unparseable payload")
		return
	}

	if p.Object != "page" {
		return
	}

	for _, entry := range p.Entry {
		for _, event := range entry.Messaging {
			if event.Message == nil || event.Message.Text == "" {
				continue
			}

			a.emit(domain.Message{
				Platform:  domain.PlatformFacebook,
				SenderID:  event.Sender.ID,
				Text:      event.Message.Text,
				Timestamp: event.Timestamp,
				MessageID: event.Message.MID,
				HasMedia:  len(event.Message.Attachments) > 0,
			})
		}
	}
}
