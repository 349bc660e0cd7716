// Package v1 implements the management API surface with huma.
package v1

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/gosuda/courier/internal/adapter"
	"github.com/gosuda/courier/internal/domain"
	"github.com/gosuda/courier/internal/hub"
)

type SendMessageInput struct {
	Body struct {
		Platform  domain.Platform `json:"platform" doc:"Target platform key" example:"telegram"`
		Recipient string          `json:"recipient" minLength:"1" doc:"Platform-specific recipient ID"`
		Message   string          `json:"message" minLength:"1" doc:"Message text"`
	}
}

type SendMessageOutput struct {
	Body adapter.SendResult
}

type ListMessagesInput struct {
	Limit    int             `query:"limit" default:"50" minimum:"1" maximum:"1000" doc:"Maximum number of messages"`
	Platform domain.Platform `query:"platform" doc:"Filter by platform key"`
}

type ListMessagesOutput struct {
	Body struct {
		Messages []domain.Message `json:"messages"`
		Count    int              `json:"count"`
	}
}

type ClearMessagesOutput struct {
	Body struct {
		Status string `json:"status"`
	}
}

type ListPlatformsOutput struct {
	Body struct {
		Platforms []domain.Platform `json:"platforms"`
	}
}

func RegisterMessageRoutes(api huma.API, messenger Messenger, feed Feed) {
	huma.Register(api, huma.Operation{
		OperationID: "send-message",
		Method:      http.MethodPost,
		Path:        "/messages/send",
		Summary:     "Send a message through a platform adapter",
		Tags:        []string{"Messages"},
	}, func(ctx context.Context, input *SendMessageInput) (*SendMessageOutput, error) {
		res := messenger.Send(ctx, input.Body.Platform, input.Body.Recipient, input.Body.Message)
		if !res.Success && res.Error == hub.ErrPlatformNotSupported {
			return nil, huma.Error400BadRequest(res.Error)
		}

		return &SendMessageOutput{Body: res}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-messages",
		Method:      http.MethodGet,
		Path:        "/messages",
		Summary:     "List recent inbound messages",
		Tags:        []string{"Messages"},
	}, func(_ context.Context, input *ListMessagesInput) (*ListMessagesOutput, error) {
		var messages []domain.Message
		if input.Platform != "" {
			messages = feed.RecentByPlatform(input.Platform, input.Limit)
		} else {
			messages = feed.Recent(input.Limit)
		}

		if messages == nil {
			messages = []domain.Message{}
		}

		out := &ListMessagesOutput{}
		out.Body.Messages = messages
		out.Body.Count = len(messages)

		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "clear-messages",
		Method:      http.MethodDelete,
		Path:        "/messages",
		Summary:     "Clear the message feed",
		Tags:        []string{"Messages"},
	}, func(_ context.Context, _ *struct{}) (*ClearMessagesOutput, error) {
		feed.Clear()

		out := &ClearMessagesOutput{}
		out.Body.Status = "cleared"

		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-platforms",
		Method:      http.MethodGet,
		Path:        "/platforms",
		Summary:     "List enabled platforms",
		Tags:        []string{"Messages"},
	}, func(_ context.Context, _ *struct{}) (*ListPlatformsOutput, error) {
		platforms := messenger.EnabledPlatforms()
		if platforms == nil {
			platforms = []domain.Platform{}
		}

		out := &ListPlatformsOutput{}
		out.Body.Platforms = platforms

		return out, nil
	})
}
