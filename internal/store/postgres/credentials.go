package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gosuda/courier/internal/domain"
)

// CredentialRepo implements domain.CredentialRepository using PostgreSQL.
type CredentialRepo struct {
	pool *pgxpool.Pool
}

// Compile-time interface check.
var _ domain.CredentialRepository = (*CredentialRepo)(nil) //nolint:gochecknoglobals // compile-time check

// NewCredentialRepo creates a new CredentialRepo.
func NewCredentialRepo(pool *pgxpool.Pool) *CredentialRepo {
	return &CredentialRepo{pool: pool}
}

// SaveConnection runs the client ensure, connection upsert and token upsert
// in a single transaction. On upsert the existing connection ID is kept and
// written back into conn and token.
func (r *CredentialRepo) SaveConnection(ctx context.Context, client *domain.Client, conn *domain.Connection, token *domain.EncryptedToken) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("credentialRepo.SaveConnection: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx,
		`INSERT INTO clients (id, name, created_at)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (id) DO NOTHING`,
		client.ID, client.Name, client.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("credentialRepo.SaveConnection: ensure client: %w", err)
	}

	err = tx.QueryRow(ctx,
		`INSERT INTO connections
		   (id, client_id, platform, status, access_token, refresh_token, token_type,
		    expires_at, external_account_id, external_name, external_handle, scopes_granted,
		    created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		 ON CONFLICT (client_id, platform) DO UPDATE SET
		   status = EXCLUDED.status,
		   access_token = EXCLUDED.access_token,
		   refresh_token = EXCLUDED.refresh_token,
		   token_type = EXCLUDED.token_type,
		   expires_at = EXCLUDED.expires_at,
		   external_account_id = EXCLUDED.external_account_id,
		   external_name = EXCLUDED.external_name,
		   external_handle = EXCLUDED.external_handle,
		   scopes_granted = EXCLUDED.scopes_granted,
		   updated_at = EXCLUDED.updated_at
		 RETURNING id, created_at`,
		conn.ID, conn.ClientID, conn.Platform, conn.Status, conn.AccessToken, conn.RefreshToken,
		conn.TokenType, conn.ExpiresAt, conn.ExternalAccountID, conn.ExternalName,
		conn.ExternalHandle, conn.ScopesGranted, conn.CreatedAt, conn.UpdatedAt,
	).Scan(&conn.ID, &conn.CreatedAt)
	if err != nil {
		return fmt.Errorf("credentialRepo.SaveConnection: upsert connection: %w", err)
	}

	token.ConnectionID = conn.ID

	_, err = tx.Exec(ctx,
		`INSERT INTO encrypted_tokens (connection_id, ciphertext, nonce, auth_tag, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (connection_id) DO UPDATE SET
		   ciphertext = EXCLUDED.ciphertext,
		   nonce = EXCLUDED.nonce,
		   auth_tag = EXCLUDED.auth_tag,
		   updated_at = EXCLUDED.updated_at`,
		token.ConnectionID, token.Ciphertext, token.Nonce, token.AuthTag,
		token.CreatedAt, token.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("credentialRepo.SaveConnection: upsert token: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("credentialRepo.SaveConnection: commit: %w", err)
	}

	return nil
}

const connectionColumns = `id, client_id, platform, status, access_token, refresh_token, token_type,
	expires_at, external_account_id, external_name, external_handle, scopes_granted,
	created_at, updated_at`

func scanConnection(row pgx.Row) (*domain.Connection, error) {
	var c domain.Connection

	err := row.Scan(
		&c.ID, &c.ClientID, &c.Platform, &c.Status, &c.AccessToken, &c.RefreshToken,
		&c.TokenType, &c.ExpiresAt, &c.ExternalAccountID, &c.ExternalName,
		&c.ExternalHandle, &c.ScopesGranted, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &c, nil
}

// GetConnection retrieves a connection and its encrypted token.
func (r *CredentialRepo) GetConnection(ctx context.Context, clientID string, platform domain.Platform) (*domain.Connection, *domain.EncryptedToken, error) {
	conn, err := scanConnection(r.pool.QueryRow(ctx,
		`SELECT `+connectionColumns+` FROM connections
		 WHERE client_id = $1 AND platform = $2`,
		clientID, platform,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil, fmt.Errorf("credentialRepo.GetConnection: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("credentialRepo.GetConnection: %w", err)
	}

	var t domain.EncryptedToken

	err = r.pool.QueryRow(ctx,
		`SELECT connection_id, ciphertext, nonce, auth_tag, created_at, updated_at
		 FROM encrypted_tokens WHERE connection_id = $1`,
		conn.ID,
	).Scan(&t.ConnectionID, &t.Ciphertext, &t.Nonce, &t.AuthTag, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil, fmt.Errorf("credentialRepo.GetConnection: token: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("credentialRepo.GetConnection: token: %w", err)
	}

	return conn, &t, nil
}

// ListConnections returns all of a client's connections, newest first.
func (r *CredentialRepo) ListConnections(ctx context.Context, clientID string) ([]*domain.Connection, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+connectionColumns+` FROM connections
		 WHERE client_id = $1 ORDER BY created_at DESC`,
		clientID,
	)
	if err != nil {
		return nil, fmt.Errorf("credentialRepo.ListConnections: %w", err)
	}
	defer rows.Close()

	var list []*domain.Connection
	for rows.Next() {
		c, scanErr := scanConnection(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("credentialRepo.ListConnections: scan: %w", scanErr)
		}

		list = append(list, c)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, fmt.Errorf("credentialRepo.ListConnections: rows: %w", rowsErr)
	}

	return list, nil
}

// ListExpiring returns connected credentials with a refresh token whose
// expiry falls within [now, now+window].
func (r *CredentialRepo) ListExpiring(ctx context.Context, window time.Duration) ([]*domain.Connection, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+connectionColumns+` FROM connections
		 WHERE status = $1
		   AND refresh_token <> ''
		   AND expires_at IS NOT NULL
		   AND expires_at BETWEEN now() AND now() + $2
		 ORDER BY expires_at`,
		domain.StatusConnected, window,
	)
	if err != nil {
		return nil, fmt.Errorf("credentialRepo.ListExpiring: %w", err)
	}
	defer rows.Close()

	var list []*domain.Connection
	for rows.Next() {
		c, scanErr := scanConnection(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("credentialRepo.ListExpiring: scan: %w", scanErr)
		}

		list = append(list, c)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, fmt.Errorf("credentialRepo.ListExpiring: rows: %w", rowsErr)
	}

	return list, nil
}

// Disconnect deletes the encrypted token and marks the connection
// DISCONNECTED, clearing token metadata. The row itself is kept.
func (r *CredentialRepo) Disconnect(ctx context.Context, clientID string, platform domain.Platform) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("credentialRepo.Disconnect: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx,
		`UPDATE connections SET
		   status = $1,
		   access_token = '',
		   refresh_token = '',
		   token_type = '',
		   expires_at = NULL,
		   updated_at = now()
		 WHERE client_id = $2 AND platform = $3`,
		domain.StatusDisconnected, clientID, platform,
	)
	if err != nil {
		return fmt.Errorf("credentialRepo.Disconnect: update connection: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("credentialRepo.Disconnect: %w", domain.ErrNotFound)
	}

	_, err = tx.Exec(ctx,
		`DELETE FROM encrypted_tokens
		 WHERE connection_id = (SELECT id FROM connections WHERE client_id = $1 AND platform = $2)`,
		clientID, platform,
	)
	if err != nil {
		return fmt.Errorf("credentialRepo.Disconnect: delete token: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("credentialRepo.Disconnect: commit: %w", err)
	}

	return nil
}

// AppendRefreshLog records one refresh attempt.
func (r *CredentialRepo) AppendRefreshLog(ctx context.Context, entry *domain.RefreshLogEntry) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO token_refresh_log
		   (id, connection_id, platform, success, error_message, old_expires_at, new_expires_at, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		entry.ID, entry.ConnectionID, entry.Platform, entry.Success, entry.ErrorMessage,
		entry.OldExpiresAt, entry.NewExpiresAt, entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("credentialRepo.AppendRefreshLog: %w", err)
	}

	return nil
}
