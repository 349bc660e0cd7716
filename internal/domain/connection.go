package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ConnectionStatus is the lifecycle state of a client-platform connection.
type ConnectionStatus string

const (
	StatusConnected    ConnectionStatus = "CONNECTED"
	StatusDisconnected ConnectionStatus = "DISCONNECTED"
)

// RedactionMarker is stored in place of plaintext secrets on the connection
// row. Real token material lives only inside the encrypted blob.
const RedactionMarker = "***"

// Client owns platform connections. Clients are auto-provisioned on the
// first successful credential save.
type Client struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Connection is one client's link to one platform. (ClientID, Platform) is
// unique: at most one connection per client per platform. The row survives
// token deletion for audit continuity; only the status and token fields
// change.
type Connection struct {
	ID       uuid.UUID        `json:"id"`
	ClientID string           `json:"client_id"`
	Platform Platform         `json:"platform"`
	Status   ConnectionStatus `json:"status"`

	// AccessToken and RefreshToken hold RedactionMarker (or are empty),
	// never plaintext secrets.
	AccessToken  string `json:"access_token,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`

	TokenType         string     `json:"token_type,omitempty"`
	ExpiresAt         *time.Time `json:"expires_at,omitempty"`
	ExternalAccountID string     `json:"external_account_id,omitempty"`
	ExternalName      string     `json:"external_name,omitempty"`
	ExternalHandle    string     `json:"external_handle,omitempty"`
	ScopesGranted     string     `json:"scopes_granted,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// EncryptedToken is the at-rest form of a connection's credential payload,
// 1:1 with its connection.
type EncryptedToken struct {
	ConnectionID uuid.UUID
	Ciphertext   string
	Nonce        string
	AuthTag      string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// RefreshLogEntry records one token refresh attempt, success or failure.
// Entries are append-only and never mutated.
type RefreshLogEntry struct {
	ID           uuid.UUID
	ConnectionID uuid.UUID
	Platform     Platform
	Success      bool
	ErrorMessage string
	OldExpiresAt *time.Time
	NewExpiresAt *time.Time
	CreatedAt    time.Time
}

// CredentialRepository persists clients, connections, encrypted tokens and
// the refresh log. *postgres.CredentialRepo satisfies this interface.
type CredentialRepository interface {
	// SaveConnection ensures the owning client exists, then upserts the
	// connection and its encrypted token as one atomic unit. A partial
	// write (connection without token, or vice versa) is never observable.
	SaveConnection(ctx context.Context, client *Client, conn *Connection, token *EncryptedToken) error

	// GetConnection returns the connection and its encrypted token, or
	// ErrNotFound when either is absent.
	GetConnection(ctx context.Context, clientID string, platform Platform) (*Connection, *EncryptedToken, error)

	// ListConnections returns all of a client's connections.
	ListConnections(ctx context.Context, clientID string) ([]*Connection, error)

	// ListExpiring returns CONNECTED connections holding a refresh token
	// whose expiry falls within [now, now+window].
	ListExpiring(ctx context.Context, window time.Duration) ([]*Connection, error)

	// Disconnect deletes the encrypted token and flips the connection to
	// DISCONNECTED with token fields cleared, keeping the row for audit.
	Disconnect(ctx context.Context, clientID string, platform Platform) error

	// AppendRefreshLog records one refresh attempt.
	AppendRefreshLog(ctx context.Context, entry *RefreshLogEntry) error
}
