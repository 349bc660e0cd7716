package telegram

import (
	"context"
	"errors"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gosuda/courier/internal/domain"
)

type fakeBotAPI struct {
	sent    []tgbotapi.Chattable
	sendErr error
	reqs    []tgbotapi.Chattable
	reqErr  error
}

func (f *fakeBotAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.sent = append(f.sent, c)
	if f.sendErr != nil {
		return tgbotapi.Message{}, f.sendErr
	}
	return tgbotapi.Message{MessageID: 123}, nil
}

func (f *fakeBotAPI) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.reqs = append(f.reqs, c)
	if f.reqErr != nil {
		return nil, f.reqErr
	}
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func capture(msgs *[]domain.Message) func(domain.Message) {
	return func(m domain.Message) { *msgs = append(*msgs, m) }
}

func TestSendMessage(t *testing.T) {
	t.Parallel()

	api := &fakeBotAPI{}
	a := New(api, func(domain.Message) {})

	res := a.SendMessage(context.Background(), "42", "hello")
	require.True(t, res.Success)
	require.Len(t, api.sent, 1)

	msg, ok := api.sent[0].(tgbotapi.MessageConfig)
	require.True(t, ok)
	assert.Equal(t, int64(42), msg.ChatID)
	assert.Equal(t, "hello", msg.Text)
}

func TestSendMessage_Failures(t *testing.T) {
	t.Parallel()

	t.Run("api error", func(t *testing.T) {
		t.Parallel()

		api := &fakeBotAPI{sendErr: errors.New("Bad Request: chat not found")}
		a := New(api, func(domain.Message) {})

		res := a.SendMessage(context.Background(), "42", "hello")
		assert.False(t, res.Success)
		assert.Equal(t, "Bad Request: chat not found", res.Error)
	})

	t.Run("non-numeric chat id", func(t *testing.T) {
		t.Parallel()

		a := New(&fakeBotAPI{}, func(domain.Message) {})

		res := a.SendMessage(context.Background(), "not-a-chat", "hello")
		assert.False(t, res.Success)
		assert.NotEmpty(t, res.Error)
	})
}

func TestHandleWebhook_TextMessage(t *testing.T) {
	t.Parallel()

	var got []domain.Message
	a := New(&fakeBotAPI{}, capture(&got))

	a.HandleWebhook([]byte(`{"message":{"text":"hi","from":{"id":42},"chat":{"id":7},"message_id":99,"date":1000}}`))

	require.Len(t, got, 1)
	assert.Equal(t, domain.Message{
		Platform:  domain.PlatformTelegram,
		SenderID:  "42",
		ChatID:    "7",
		Text:      "hi",
		Timestamp: 1000000,
		MessageID: "99",
	}, got[0])
}

func TestHandleWebhook_ExtensionFields(t *testing.T) {
	t.Parallel()

	var got []domain.Message
	a := New(&fakeBotAPI{}, capture(&got))

	a.HandleWebhook([]byte(`{
		"message":{
			"text":"fwd","from":{"id":1,"username":"alice"},"chat":{"id":2},
			"message_id":3,"date":50,
			"forward_from":{"id":9,"username":"bob"},
			"document":{"file_id":"doc1"}
		}
	}`))

	require.Len(t, got, 1)
	assert.Equal(t, "alice", got[0].Username)
	assert.Equal(t, "bob", got[0].ForwardedFrom)
	assert.True(t, got[0].HasMedia)
}

func TestHandleWebhook_Ignored(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		payload string
	}{
		{name: "not json", payload: `{{{`},
		{name: "empty object", payload: `{}`},
		{name: "no text", payload: `{"message":{"from":{"id":1},"chat":{"id":2},"message_id":3,"date":4}}`},
		{name: "edited message only", payload: `{"edited_message":{"text":"x","from":{"id":1},"chat":{"id":2},"message_id":3,"date":4}}`},
		{name: "callback query", payload: `{"callback_query":{"id":"abc"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var got []domain.Message
			a := New(&fakeBotAPI{}, capture(&got))

			a.HandleWebhook([]byte(tt.payload))
			assert.Empty(t, got)
		})
	}
}

func TestSetWebhook(t *testing.T) {
	t.Parallel()

	api := &fakeBotAPI{}
	a := New(api, func(domain.Message) {})

	res := a.SetWebhook(context.Background(), "https://hub.example.com")
	assert.True(t, res.Success)
	require.Len(t, api.reqs, 1)

	wh, ok := api.reqs[0].(tgbotapi.WebhookConfig)
	require.True(t, ok)
	assert.Equal(t, "https://hub.example.com/webhook/telegram", wh.URL.String())
}

func TestNewBotAPI_NoNetworkProbe(t *testing.T) {
	t.Parallel()

	api := NewBotAPI("123:abc")
	assert.Equal(t, "123:abc", api.Token)
	assert.NotNil(t, api.Client)
}
