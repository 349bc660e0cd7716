// Package tokens implements the OAuth credential lifecycle: encrypted
// persistence, retrieval, validity checks and proactive refresh.
package tokens

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/courier/internal/domain"
	"github.com/gosuda/courier/internal/secrets"
)

// TokenData is the plaintext credential payload sealed into the vault. The
// Extra map preserves provider fields the hub does not interpret.
type TokenData struct {
	AccessToken  string            `json:"access_token"`
	RefreshToken string            `json:"refresh_token,omitempty"`
	IDToken      string            `json:"id_token,omitempty"`
	TokenType    string            `json:"token_type,omitempty"`
	Scope        string            `json:"scope,omitempty"`
	ExpiresAt    *time.Time        `json:"expires_at,omitempty"`
	Extra        map[string]string `json:"extra,omitempty"`
}

// Expired reports whether the credential has an expiry in the past.
func (d *TokenData) Expired(now time.Time) bool {
	return d.ExpiresAt != nil && d.ExpiresAt.Before(now)
}

// SaveParams carries everything needed to persist one platform credential.
type SaveParams struct {
	ClientID string
	Platform domain.Platform

	AccessToken  string
	RefreshToken string
	IDToken      string
	TokenType    string
	// ExpiresIn is the provider-reported lifetime in seconds; zero means no
	// known expiry.
	ExpiresIn int
	Scope     string

	ExternalAccountID string
	ExternalName      string
	ExternalHandle    string

	Extra map[string]string
}

// Store persists credentials through the vault. Plaintext token material only
// ever exists in memory; the repository sees ciphertext and redaction
// markers.
type Store struct {
	repo  domain.CredentialRepository
	vault *secrets.Vault
	now   func() time.Time
}

// NewStore creates a credential store.
func NewStore(repo domain.CredentialRepository, vault *secrets.Vault) *Store {
	return &Store{repo: repo, vault: vault, now: time.Now}
}

// Save encrypts the credential payload and atomically upserts the client,
// connection and encrypted token.
func (s *Store) Save(ctx context.Context, params SaveParams) (*domain.Connection, error) {
	if params.ClientID == "" || params.Platform == "" || params.AccessToken == "" {
		return nil, fmt.Errorf("tokens.Store.Save: client id, platform and access token are required")
	}

	now := s.now().UTC()

	var expiresAt *time.Time
	if params.ExpiresIn > 0 {
		t := now.Add(time.Duration(params.ExpiresIn) * time.Second)
		expiresAt = &t
	}

	data := TokenData{
		AccessToken:  params.AccessToken,
		RefreshToken: params.RefreshToken,
		IDToken:      params.IDToken,
		TokenType:    params.TokenType,
		Scope:        params.Scope,
		ExpiresAt:    expiresAt,
		Extra:        params.Extra,
	}

	plaintext, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("tokens.Store.Save: marshal payload: %w", err)
	}

	sealed, err := s.vault.Encrypt(plaintext)
	if err != nil {
		return nil, fmt.Errorf("tokens.Store.Save: %w", err)
	}

	conn := &domain.Connection{
		ID:          uuid.New(),
		ClientID:    params.ClientID,
		Platform:    params.Platform,
		Status:      domain.StatusConnected,
		AccessToken: domain.RedactionMarker,
		TokenType:   params.TokenType,
		ExpiresAt:   expiresAt,

		ExternalAccountID: params.ExternalAccountID,
		ExternalName:      params.ExternalName,
		ExternalHandle:    params.ExternalHandle,
		ScopesGranted:     params.Scope,

		CreatedAt: now,
		UpdatedAt: now,
	}
	if params.RefreshToken != "" {
		conn.RefreshToken = domain.RedactionMarker
	}

	client := &domain.Client{
		ID:        params.ClientID,
		Name:      clientName(params),
		CreatedAt: now,
	}

	token := &domain.EncryptedToken{
		ConnectionID: conn.ID,
		Ciphertext:   sealed.Ciphertext,
		Nonce:        sealed.Nonce,
		AuthTag:      sealed.AuthTag,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.SaveConnection(ctx, client, conn, token); err != nil {
		return nil, fmt.Errorf("tokens.Store.Save: %w", err)
	}

	log.Info().
		Str("client_id", params.ClientID).
		Str("platform", string(params.Platform)).
		Msg("credential saved")

	return conn, nil
}

// clientName picks a display name for an auto-provisioned client.
func clientName(params SaveParams) string {
	if params.ExternalName != "" {
		return params.ExternalName
	}

	id := params.ClientID
	if len(id) > 8 {
		id = id[:8]
	}

	return "Client " + id
}

// Get returns the decrypted credential for a client-platform pair. An
// expired credential is still returned, with a warning; callers decide
// whether to refresh or reject.
func (s *Store) Get(ctx context.Context, clientID string, platform domain.Platform) (*TokenData, error) {
	_, token, err := s.repo.GetConnection(ctx, clientID, platform)
	if err != nil {
		return nil, fmt.Errorf("tokens.Store.Get: %w", err)
	}

	plaintext, err := s.vault.Decrypt(&secrets.EncryptedPayload{
		Ciphertext: token.Ciphertext,
		Nonce:      token.Nonce,
		AuthTag:    token.AuthTag,
	})
	if err != nil {
		return nil, fmt.Errorf("tokens.Store.Get: %w", err)
	}

	var data TokenData
	if err := json.Unmarshal(plaintext, &data); err != nil {
		return nil, fmt.Errorf("tokens.Store.Get: unmarshal payload: %w", err)
	}

	if data.Expired(s.now()) {
		log.Warn().
			Str("client_id", clientID).
			Str("platform", string(platform)).
			Time("expired_at", *data.ExpiresAt).
			Msg("returning expired credential")
	}

	return &data, nil
}

// IsValid reports whether a stored credential exists, decrypts and is not
// expired. Absence is not an error.
func (s *Store) IsValid(ctx context.Context, clientID string, platform domain.Platform) (bool, error) {
	data, err := s.Get(ctx, clientID, platform)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) || errors.Is(err, secrets.ErrDecryptFailed) {
			return false, nil
		}
		return false, err
	}

	return !data.Expired(s.now()), nil
}

// Delete disconnects a client-platform pair, destroying the encrypted token.
func (s *Store) Delete(ctx context.Context, clientID string, platform domain.Platform) error {
	if err := s.repo.Disconnect(ctx, clientID, platform); err != nil {
		return fmt.Errorf("tokens.Store.Delete: %w", err)
	}

	log.Info().
		Str("client_id", clientID).
		Str("platform", string(platform)).
		Msg("credential deleted")

	return nil
}

// Connections lists a client's connections. Token fields on the returned
// rows are redacted by construction.
func (s *Store) Connections(ctx context.Context, clientID string) ([]*domain.Connection, error) {
	conns, err := s.repo.ListConnections(ctx, clientID)
	if err != nil {
		return nil, fmt.Errorf("tokens.Store.Connections: %w", err)
	}

	return conns, nil
}

// Expiring lists connected credentials whose expiry falls within the window.
func (s *Store) Expiring(ctx context.Context, window time.Duration) ([]*domain.Connection, error) {
	conns, err := s.repo.ListExpiring(ctx, window)
	if err != nil {
		return nil, fmt.Errorf("tokens.Store.Expiring: %w", err)
	}

	return conns, nil
}
