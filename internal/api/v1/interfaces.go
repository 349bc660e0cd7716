package v1

import (
	"context"

	"github.com/gosuda/courier/internal/adapter"
	"github.com/gosuda/courier/internal/domain"
)

// Messenger abstracts outbound delivery for handler testing.
// *hub.Manager satisfies this interface.
type Messenger interface {
	Send(ctx context.Context, platform domain.Platform, recipient, text string) adapter.SendResult
	EnabledPlatforms() []domain.Platform
}

// Feed abstracts the in-memory message feed for handler testing.
// *bus.Bus satisfies this interface.
type Feed interface {
	Recent(limit int) []domain.Message
	RecentByPlatform(platform domain.Platform, limit int) []domain.Message
	Clear()
}

// CredentialService abstracts credential reads and deletion for handler
// testing. *tokens.Store satisfies this interface.
type CredentialService interface {
	Connections(ctx context.Context, clientID string) ([]*domain.Connection, error)
	Delete(ctx context.Context, clientID string, platform domain.Platform) error
}

// CredentialRefresher abstracts on-demand token refresh for handler testing.
// *tokens.Refresher satisfies this interface.
type CredentialRefresher interface {
	Refresh(ctx context.Context, clientID string, platform domain.Platform) (*domain.Connection, error)
}
