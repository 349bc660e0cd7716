package v1

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/gosuda/courier/internal/domain"
)

type ListConnectionsInput struct {
	ClientID string `path:"clientID" doc:"Client ID"`
}

type ListConnectionsOutput struct {
	Body struct {
		Connections []*domain.Connection `json:"connections"`
	}
}

type ConnectionInput struct {
	ClientID string          `path:"clientID" doc:"Client ID"`
	Platform domain.Platform `path:"platform" doc:"Platform key"`
}

type RefreshConnectionOutput struct {
	Body *domain.Connection
}

type DisconnectOutput struct {
	Body struct {
		Status string `json:"status"`
	}
}

func RegisterConnectionRoutes(api huma.API, creds CredentialService, refresher CredentialRefresher) {
	huma.Register(api, huma.Operation{
		OperationID: "list-connections",
		Method:      http.MethodGet,
		Path:        "/clients/{clientID}/connections",
		Summary:     "List a client's platform connections",
		Tags:        []string{"Connections"},
	}, func(ctx context.Context, input *ListConnectionsInput) (*ListConnectionsOutput, error) {
		conns, err := creds.Connections(ctx, input.ClientID)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to list connections", err)
		}

		if conns == nil {
			conns = []*domain.Connection{}
		}

		out := &ListConnectionsOutput{}
		out.Body.Connections = conns

		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "refresh-connection",
		Method:      http.MethodPost,
		Path:        "/clients/{clientID}/connections/{platform}/refresh",
		Summary:     "Refresh a connection's credential now",
		Tags:        []string{"Connections"},
	}, func(ctx context.Context, input *ConnectionInput) (*RefreshConnectionOutput, error) {
		conn, err := refresher.Refresh(ctx, input.ClientID, input.Platform)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, huma.Error404NotFound("connection not found")
			}
			return nil, huma.Error502BadGateway("token refresh failed", err)
		}

		return &RefreshConnectionOutput{Body: conn}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "disconnect",
		Method:      http.MethodDelete,
		Path:        "/clients/{clientID}/connections/{platform}",
		Summary:     "Disconnect a platform, destroying its stored credential",
		Tags:        []string{"Connections"},
	}, func(ctx context.Context, input *ConnectionInput) (*DisconnectOutput, error) {
		err := creds.Delete(ctx, input.ClientID, input.Platform)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, huma.Error404NotFound("connection not found")
			}
			return nil, huma.Error500InternalServerError("failed to disconnect", err)
		}

		out := &DisconnectOutput{}
		out.Body.Status = "disconnected"

		return out, nil
	})
}
