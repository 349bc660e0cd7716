package instagram

import (
	"context"
	"encoding/json"
	"net/url"

	"github.com/rs/zerolog/log"

	"github.com/gosuda/courier/internal/adapter"
	"github.com/gosuda/courier/internal/adapter/graph"
	"github.com/gosuda/courier/internal/domain"
)

// Adapter implements adapter.Adapter for Instagram Messaging. The webhook
// envelope mirrors Messenger's, keyed by object "instagram".
type Adapter struct {
	client            *graph.Client
	accessToken       string
	businessAccountID string
	emit              adapter.EmitFunc
}

// Compile-time interface check.
var _ adapter.Adapter = (*Adapter)(nil) //nolint:gochecknoglobals // compile-time check

// New creates an Instagram adapter. When businessAccountID is empty, sends
// go out through the /me edge of the access token instead.
func New(client *graph.Client, accessToken, businessAccountID string, emit adapter.EmitFunc) *Adapter {
	return &Adapter{
		client:            client,
		accessToken:       accessToken,
		businessAccountID: businessAccountID,
		emit:              emit,
	}
}

// SendMessage posts a text message to an Instagram-scoped user ID.
func (a *Adapter) SendMessage(ctx context.Context, recipient, text string) adapter.SendResult {
	query := url.Values{"access_token": {a.accessToken}}
	body := map[string]any{
		"recipient": map[string]string{"id": recipient},
		"message":   map[string]string{"text": text},
	}

	sender := "me"
	if a.businessAccountID != "" {
		sender = a.businessAccountID
	}

	data, err := a.client.PostJSON(ctx, "/"+sender+"/messages", query, body)
	if err != nil {
		log.Error().Err(err).Str("recipient", recipient).Msg("instagram send failed")
		return adapter.Fail(err)
	}

	log.Info().Str("recipient", recipient).Msg("instagram message sent")

	return adapter.OK(data)
}

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

// HandleWebhook emits one canonical message per text messaging event in an
// "instagram" webhook payload.
func (a *Adapter) HandleWebhook(payload []byte) {
	var p webhookPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		log.Trace().Err(err).Msg("instagram webhook: unparseable payload")
		return
	}

	if p.Object != "instagram" {
		return
	}

	for _, entry := range p.Entry {
		for _, event := range entry.Messaging {
			if event.Message == nil || event.Message.Text == "" {
				continue
			}

			a.emit(domain.Message{
				Platform:  domain.PlatformInstagram,
				SenderID:  event.Sender.ID,
				Text:      event.Message.Text,
				Timestamp: event.Timestamp,
				MessageID: event.Message.MID,
				HasMedia:  len(event.Message.Attachments) > 0,
			})
		}
	}
}
