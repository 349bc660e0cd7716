package twitter

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gosuda/courier/internal/domain"
)

func TestSendMessage_NotImplemented(t *testing.T) {
	t.Parallel()

	a := New(func(domain.Message) {})

	res := a.SendMessage(context.Background(), "12345", "hello")
	assert.False(t, res.Success)
	assert.Equal(t, "Twitter DM API requires OAuth 1.0a request signing", res.Error)
}

func TestHandleWebhook_DirectMessages(t *testing.T) {
	t.Parallel()

	var got []domain.Message
	a := New(func(m domain.Message) { got = append(got, m) })

	a.HandleWebhook([]byte(`{
		"direct_message_events":[
			{"type":"message_create","id":"dm1","created_timestamp":"1700000000123",
			 "message_create":{"sender_id":"tw42","message_data":{"text":"dm text"}}},
			{"type":"message_delete","id":"dm2","created_timestamp":"1700000000456"}
		]
	}`))

	require.Len(t, got, 1)
	assert.Equal(t, domain.Message{
		Platform:  domain.PlatformTwitter,
		SenderID:  "tw42",
		Text:      "dm text",
		Timestamp: 1700000000123,
		MessageID: "dm1",
	}, got[0])
}

func TestHandleWebhook_Ignored(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		payload string
	}{
		{name: "not json", payload: `~`},
		{name: "no dm events", payload: `{"tweet_create_events":[{}]}`},
		{name: "bad timestamp", payload: `{"direct_message_events":[{"type":"message_create","id":"x","created_timestamp":"soon","message_create":{"sender_id":"1","message_data":{"text":"t"}}}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var got []domain.Message
			a := New(func(m domain.Message) { got = append(got, m) })

			a.HandleWebhook([]byte(tt.payload))
			assert.Empty(t, got)
		})
	}
}
