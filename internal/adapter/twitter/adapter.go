package twitter

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/gosuda/courier/internal/adapter"
	"github.com/gosuda/courier/internal/domain"
)

// Adapter implements adapter.Adapter for Twitter direct messages. Sending is
// not implemented: the DM API requires OAuth 1.0a request signing, which is
// out of scope until a signing client is wired in. Inbound webhook parsing
// works normally.
type Adapter struct {
	emit adapter.EmitFunc
}

// Compile-time interface check.
var _ adapter.Adapter = (*Adapter)(nil) //nolint:gochecknoglobals // compile-time check

// New creates a Twitter adapter.
func New(emit adapter.EmitFunc) *Adapter {
	return &Adapter{emit: emit}
}

// SendMessage always fails: see the type comment.
func (a *Adapter) SendMessage(_ context.Context, _, _ string) adapter.SendResult {
	log.Warn().Msg("twitter DM send not implemented")
	return adapter.SendResult{Success: false, Error: "Twitter DM API requires OAuth 1.0a request signing"}
}

type webhookPayload struct {
	DirectMessageEvents []struct {
		Type             string `json:"type"`
		ID               string `json:"id"`
		CreatedTimestamp string `json:"created_timestamp"` // milliseconds
		MessageCreate    struct {
			SenderID    string `json:"sender_id"`
			MessageData struct {
				Text string `json:"text"`
			} `json:"message_data"`
		} `json:"message_create"`
	} `json:"direct_message_events"`
}

// HandleWebhook emits one canonical message per message_create event in an
// Account Activity payload.
func (a *Adapter) HandleWebhook(payload []byte) {
	var p webhookPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		log.Trace().Err(err).Msg("twitter webhook: unparseable payload")
		return
	}

	for _, event := range p.DirectMessageEvents {
		if event.Type != "message_create" || event.MessageCreate.MessageData.Text == "" {
			continue
		}

		ts, err := strconv.ParseInt(event.CreatedTimestamp, 10, 64)
		if err != nil {
			continue
		}

		a.emit(domain.Message{
			Platform:  domain.PlatformTwitter,
			SenderID:  event.MessageCreate.SenderID,
			Text:      event.MessageCreate.MessageData.Text,
			Timestamp: ts,
			MessageID: event.ID,
		})
	}
}
