package tokens

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"

	"github.com/gosuda/courier/internal/domain"
)

// DefaultGoogleTokenURL is Google's OAuth2 token endpoint.
const DefaultGoogleTokenURL = "https://oauth2.googleapis.com/token" //nolint:gosec // G101: endpoint URL, not a credential

// DefaultMetaExchangeURL is the Graph API endpoint for long-lived token
// exchange.
const DefaultMetaExchangeURL = "https://graph.facebook.com/v18.0/oauth/access_token" //nolint:gosec // G101: endpoint URL, not a credential

// RefresherConfig holds the OAuth app credentials used to mint fresh tokens.
// The endpoint URLs are overridable for tests.
type RefresherConfig struct {
	GoogleClientID     string
	GoogleClientSecret string
	MetaAppID          string
	MetaAppSecret      string

	GoogleTokenURL  string
	MetaExchangeURL string

	// Window is how far ahead of expiry the sweep reaches.
	Window time.Duration
}

// Refresher renews expiring credentials. YouTube tokens go through Google's
// refresh_token grant; Facebook and Instagram tokens through the Graph API
// long-lived exchange. Every attempt, pass or fail, lands in the refresh log.
type Refresher struct {
	store      *Store
	cfg        RefresherConfig
	httpClient *http.Client
	now        func() time.Time
}

// NewRefresher creates a Refresher on top of a credential store.
func NewRefresher(store *Store, cfg RefresherConfig) *Refresher {
	if cfg.GoogleTokenURL == "" {
		cfg.GoogleTokenURL = DefaultGoogleTokenURL
	}
	if cfg.MetaExchangeURL == "" {
		cfg.MetaExchangeURL = DefaultMetaExchangeURL
	}
	if cfg.Window <= 0 {
		cfg.Window = 30 * time.Minute
	}

	return &Refresher{
		store:      store,
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		now:        time.Now,
	}
}

// Refresh renews one credential and persists the result. It returns the
// renewed connection on success. The attempt is logged either way.
func (r *Refresher) Refresh(ctx context.Context, clientID string, platform domain.Platform) (*domain.Connection, error) {
	conn, _, err := r.store.repo.GetConnection(ctx, clientID, platform)
	if err != nil {
		return nil, fmt.Errorf("tokens.Refresher.Refresh: %w", err)
	}

	data, err := r.store.Get(ctx, clientID, platform)
	if err != nil {
		return nil, fmt.Errorf("tokens.Refresher.Refresh: %w", err)
	}

	renewed, refreshErr := r.renew(ctx, platform, data)

	entry := &domain.RefreshLogEntry{
		ID:           uuid.New(),
		ConnectionID: conn.ID,
		Platform:     platform,
		Success:      refreshErr == nil,
		OldExpiresAt: conn.ExpiresAt,
		CreatedAt:    r.now().UTC(),
	}

	if refreshErr != nil {
		entry.ErrorMessage = refreshErr.Error()
		r.appendLog(ctx, entry)

		return nil, fmt.Errorf("tokens.Refresher.Refresh: %w", refreshErr)
	}

	// Providers may omit the refresh token on renewal; keep the old one.
	if renewed.RefreshToken == "" {
		renewed.RefreshToken = data.RefreshToken
	}

	expiresIn := 0
	if renewed.ExpiresAt != nil {
		expiresIn = int(renewed.ExpiresAt.Sub(r.now()).Seconds())
	}

	saved, err := r.store.Save(ctx, SaveParams{
		ClientID:     clientID,
		Platform:     platform,
		AccessToken:  renewed.AccessToken,
		RefreshToken: renewed.RefreshToken,
		IDToken:      renewed.IDToken,
		TokenType:    renewed.TokenType,
		ExpiresIn:    expiresIn,
		Scope:        renewed.Scope,

		ExternalAccountID: conn.ExternalAccountID,
		ExternalName:      conn.ExternalName,
		ExternalHandle:    conn.ExternalHandle,

		Extra: renewed.Extra,
	})
	if err != nil {
		entry.Success = false
		entry.ErrorMessage = err.Error()
		r.appendLog(ctx, entry)

		return nil, fmt.Errorf("tokens.Refresher.Refresh: %w", err)
	}

	entry.NewExpiresAt = saved.ExpiresAt
	r.appendLog(ctx, entry)

	log.Info().
		Str("client_id", clientID).
		Str("platform", string(platform)).
		Msg("credential refreshed")

	return saved, nil
}

func (r *Refresher) appendLog(ctx context.Context, entry *domain.RefreshLogEntry) {
	if err := r.store.repo.AppendRefreshLog(ctx, entry); err != nil {
		log.Error().Err(err).
			Str("connection_id", entry.ConnectionID.String()).
			Msg("refresh log append failed")
	}
}

// renew performs the provider-specific token renewal.
func (r *Refresher) renew(ctx context.Context, platform domain.Platform, data *TokenData) (*TokenData, error) {
	switch platform {
	case domain.PlatformYouTube:
		return r.renewGoogle(ctx, data)
	case domain.PlatformFacebook, domain.PlatformInstagram:
		return r.renewMeta(ctx, data)
	default:
		return nil, fmt.Errorf("refresh not supported for platform %q", platform)
	}
}

// renewGoogle exchanges a Google refresh token for a fresh access token.
func (r *Refresher) renewGoogle(ctx context.Context, data *TokenData) (*TokenData, error) {
	if data.RefreshToken == "" {
		return nil, fmt.Errorf("google renewal requires a refresh token")
	}
	if r.cfg.GoogleClientID == "" || r.cfg.GoogleClientSecret == "" {
		return nil, fmt.Errorf("google OAuth app credentials not configured")
	}

	conf := &oauth2.Config{
		ClientID:     r.cfg.GoogleClientID,
		ClientSecret: r.cfg.GoogleClientSecret,
		Endpoint:     oauth2.Endpoint{TokenURL: r.cfg.GoogleTokenURL},
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, r.httpClient)

	token, err := conf.TokenSource(ctx, &oauth2.Token{RefreshToken: data.RefreshToken}).Token()
	if err != nil {
		return nil, fmt.Errorf("google token refresh: %w", err)
	}

	renewed := &TokenData{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		TokenType:    token.TokenType,
		Scope:        data.Scope,
	}

	if !token.Expiry.IsZero() {
		expiry := token.Expiry.UTC()
		renewed.ExpiresAt = &expiry
	}

	if idToken, ok := token.Extra("id_token").(string); ok {
		renewed.IDToken = idToken
	}

	return renewed, nil
}

type metaExchangeResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// renewMeta exchanges a short-lived Meta token for a long-lived one via the
// fb_exchange_token grant.
func (r *Refresher) renewMeta(ctx context.Context, data *TokenData) (*TokenData, error) {
	if r.cfg.MetaAppID == "" || r.cfg.MetaAppSecret == "" {
		return nil, fmt.Errorf("meta OAuth app credentials not configured")
	}

	query := url.Values{
		"grant_type":        {"fb_exchange_token"},
		"client_id":         {r.cfg.MetaAppID},
		"client_secret":     {r.cfg.MetaAppSecret},
		"fb_exchange_token": {data.AccessToken},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.cfg.MetaExchangeURL+"?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("meta token exchange: %w", err)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("meta token exchange: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("meta token exchange: status %d", resp.StatusCode)
	}

	var body metaExchangeResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("meta token exchange: decode response: %w", err)
	}
	if body.AccessToken == "" {
		return nil, fmt.Errorf("meta token exchange: empty access token in response")
	}

	renewed := &TokenData{
		AccessToken: body.AccessToken,
		TokenType:   body.TokenType,
		Scope:       data.Scope,
	}

	if body.ExpiresIn > 0 {
		expiry := r.now().UTC().Add(time.Duration(body.ExpiresIn) * time.Second)
		renewed.ExpiresAt = &expiry
	}

	return renewed, nil
}

// RefreshExpiring sweeps credentials expiring within the window and renews
// each in turn. One failing credential never stops the sweep.
func (r *Refresher) RefreshExpiring(ctx context.Context) (refreshed, failed int) {
	conns, err := r.store.Expiring(ctx, r.cfg.Window)
	if err != nil {
		log.Error().Err(err).Msg("refresh sweep: listing expiring credentials failed")
		return 0, 0
	}

	if len(conns) == 0 {
		log.Debug().Msg("refresh sweep: nothing expiring")
		return 0, 0
	}

	log.Info().Int("count", len(conns)).Msg("refresh sweep started")

	for _, conn := range conns {
		if _, err := r.Refresh(ctx, conn.ClientID, conn.Platform); err != nil {
			failed++
			log.Error().Err(err).
				Str("client_id", conn.ClientID).
				Str("platform", string(conn.Platform)).
				Msg("refresh sweep: credential refresh failed")

			continue
		}

		refreshed++
	}

	log.Info().Int("refreshed", refreshed).Int("failed", failed).Msg("refresh sweep finished")

	return refreshed, failed
}
