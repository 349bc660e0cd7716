package v1_test

import (
	"context"

	"github.com/gosuda/courier/internal/adapter"
	"github.com/gosuda/courier/internal/domain"
)

// ---------------------------------------------------------------------------
// Mock Messenger
// ---------------------------------------------------------------------------

type mockMessenger struct {
	sendFunc  func(ctx context.Context, platform domain.Platform, recipient, text string) adapter.SendResult
	platforms []domain.Platform
}

func (m *mockMessenger) Send(ctx context.Context, platform domain.Platform, recipient, text string) adapter.SendResult {
	return m.sendFunc(ctx, platform, recipient, text)
}

func (m *mockMessenger) EnabledPlatforms() []domain.Platform {
	return m.platforms
}

// ---------------------------------------------------------------------------
// Mock Feed
// ---------------------------------------------------------------------------

type mockFeed struct {
	messages []domain.Message
	cleared  bool
}

func (m *mockFeed) Recent(limit int) []domain.Message {
	if len(m.messages) > limit {
		return m.messages[len(m.messages)-limit:]
	}
	return m.messages
}

func (m *mockFeed) RecentByPlatform(platform domain.Platform, limit int) []domain.Message {
	var out []domain.Message
	for _, msg := range m.messages {
		if msg.Platform == platform {
			out = append(out, msg)
		}
	}
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out
}

func (m *mockFeed) Clear() {
	m.cleared = true
	m.messages = nil
}

// ---------------------------------------------------------------------------
// Mock CredentialService
// ---------------------------------------------------------------------------

type mockCredentialService struct {
	connectionsFunc func(ctx context.Context, clientID string) ([]*domain.Connection, error)
	deleteFunc      func(ctx context.Context, clientID string, platform domain.Platform) error
}

func (m *mockCredentialService) Connections(ctx context.Context, clientID string) ([]*domain.Connection, error) {
	return m.connectionsFunc(ctx, clientID)
}

func (m *mockCredentialService) Delete(ctx context.Context, clientID string, platform domain.Platform) error {
	return m.deleteFunc(ctx, clientID, platform)
}

// ---------------------------------------------------------------------------
// Mock CredentialRefresher
// ---------------------------------------------------------------------------

type mockRefresher struct {
	refreshFunc func(ctx context.Context, clientID string, platform domain.Platform) (*domain.Connection, error)
}

func (m *mockRefresher) Refresh(ctx context.Context, clientID string, platform domain.Platform) (*domain.Connection, error) {
	return m.refreshFunc(ctx, clientID, platform)
}
