package tokens

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gosuda/courier/internal/domain"
)

func newTestRefresher(t *testing.T, cfg RefresherConfig) (*Refresher, *Store, *fakeRepo) {
	t.Helper()

	store, repo := newTestStore(t)

	return NewRefresher(store, cfg), store, repo
}

func TestRefresh_Google(t *testing.T) {
	t.Parallel()

	var gotGrant, gotRefreshToken string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		gotGrant = r.FormValue("grant_type")
		gotRefreshToken = r.FormValue("refresh_token")

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"ya29.fresh","token_type":"Bearer","expires_in":3599}`))
	}))
	defer srv.Close()

	r, store, repo := newTestRefresher(t, RefresherConfig{
		GoogleClientID:     "gid",
		GoogleClientSecret: "gsecret",
		GoogleTokenURL:     srv.URL,
	})

	ctx := context.Background()
	_, err := store.Save(ctx, SaveParams{
		ClientID: "client-1", Platform: domain.PlatformYouTube,
		AccessToken: "ya29.stale", RefreshToken: "1//refresh", ExpiresIn: 60,
		Scope: "youtube.readonly",
	})
	require.NoError(t, err)

	conn, err := r.Refresh(ctx, "client-1", domain.PlatformYouTube)
	require.NoError(t, err)

	assert.Equal(t, "refresh_token", gotGrant)
	assert.Equal(t, "1//refresh", gotRefreshToken)
	require.NotNil(t, conn.ExpiresAt)
	assert.True(t, conn.ExpiresAt.After(time.Now().Add(30*time.Minute)))

	data, err := store.Get(ctx, "client-1", domain.PlatformYouTube)
	require.NoError(t, err)
	assert.Equal(t, "ya29.fresh", data.AccessToken)
	// Google omits the refresh token on renewal; the old one is kept.
	assert.Equal(t, "1//refresh", data.RefreshToken)
	assert.Equal(t, "youtube.readonly", data.Scope)

	require.Len(t, repo.logs, 1)
	assert.True(t, repo.logs[0].Success)
	assert.NotNil(t, repo.logs[0].NewExpiresAt)
}

func TestRefresh_MetaExchange(t *testing.T) {
	t.Parallel()

	var gotQuery map[string]string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		gotQuery = map[string]string{
			"grant_type":        q.Get("grant_type"),
			"client_id":         q.Get("client_id"),
			"client_secret":     q.Get("client_secret"),
			"fb_exchange_token": q.Get("fb_exchange_token"),
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"EAAB-long-lived","token_type":"bearer","expires_in":5183944}`))
	}))
	defer srv.Close()

	r, store, repo := newTestRefresher(t, RefresherConfig{
		MetaAppID:       "app-id",
		MetaAppSecret:   "app-secret",
		MetaExchangeURL: srv.URL,
	})

	ctx := context.Background()
	_, err := store.Save(ctx, SaveParams{
		ClientID: "client-1", Platform: domain.PlatformFacebook,
		AccessToken: "EAAB-short", ExpiresIn: 600,
	})
	require.NoError(t, err)

	_, err = r.Refresh(ctx, "client-1", domain.PlatformFacebook)
	require.NoError(t, err)

	assert.Equal(t, map[string]string{
		"grant_type":        "fb_exchange_token",
		"client_id":         "app-id",
		"client_secret":     "app-secret",
		"fb_exchange_token": "EAAB-short",
	}, gotQuery)

	data, err := store.Get(ctx, "client-1", domain.PlatformFacebook)
	require.NoError(t, err)
	assert.Equal(t, "EAAB-long-lived", data.AccessToken)

	require.Len(t, repo.logs, 1)
	assert.True(t, repo.logs[0].Success)
}

func TestRefresh_UnsupportedPlatform(t *testing.T) {
	t.Parallel()

	r, store, repo := newTestRefresher(t, RefresherConfig{})

	ctx := context.Background()
	_, err := store.Save(ctx, SaveParams{
		ClientID: "client-1", Platform: domain.PlatformSlack, AccessToken: "xoxb",
	})
	require.NoError(t, err)

	_, err = r.Refresh(ctx, "client-1", domain.PlatformSlack)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "refresh not supported")

	// The failed attempt still lands in the log.
	require.Len(t, repo.logs, 1)
	assert.False(t, repo.logs[0].Success)
	assert.Contains(t, repo.logs[0].ErrorMessage, "refresh not supported")
}

func TestRefresh_ProviderErrorLogged(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
	}))
	defer srv.Close()

	r, store, repo := newTestRefresher(t, RefresherConfig{
		MetaAppID: "app-id", MetaAppSecret: "app-secret", MetaExchangeURL: srv.URL,
	})

	ctx := context.Background()
	_, err := store.Save(ctx, SaveParams{
		ClientID: "client-1", Platform: domain.PlatformFacebook, AccessToken: "EAAB",
	})
	require.NoError(t, err)

	_, err = r.Refresh(ctx, "client-1", domain.PlatformFacebook)
	require.Error(t, err)

	require.Len(t, repo.logs, 1)
	assert.False(t, repo.logs[0].Success)
	assert.NotEmpty(t, repo.logs[0].ErrorMessage)

	// The stored credential is untouched after a failed refresh.
	data, err := store.Get(ctx, "client-1", domain.PlatformFacebook)
	require.NoError(t, err)
	assert.Equal(t, "EAAB", data.AccessToken)
}

func TestRefreshExpiring_IsolatesFailures(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"ya29.fresh","token_type":"Bearer","expires_in":3600}`))
	}))
	defer srv.Close()

	r, store, repo := newTestRefresher(t, RefresherConfig{
		GoogleClientID: "gid", GoogleClientSecret: "gsecret",
		GoogleTokenURL: srv.URL,
		Window:         30 * time.Minute,
	})

	ctx := context.Background()

	// Expires inside the window, refreshable.
	_, err := store.Save(ctx, SaveParams{
		ClientID: "ok-client", Platform: domain.PlatformYouTube,
		AccessToken: "stale", RefreshToken: "1//r", ExpiresIn: 600,
	})
	require.NoError(t, err)

	// Expires inside the window but unsupported platform, fails.
	_, err = store.Save(ctx, SaveParams{
		ClientID: "bad-client", Platform: domain.PlatformTelegram,
		AccessToken: "tok", RefreshToken: "rt", ExpiresIn: 600,
	})
	require.NoError(t, err)

	// Outside the window, untouched.
	_, err = store.Save(ctx, SaveParams{
		ClientID: "later-client", Platform: domain.PlatformYouTube,
		AccessToken: "fine", RefreshToken: "1//r2", ExpiresIn: 86400,
	})
	require.NoError(t, err)

	refreshed, failed := r.RefreshExpiring(ctx)
	assert.Equal(t, 1, refreshed)
	assert.Equal(t, 1, failed)

	data, err := store.Get(ctx, "ok-client", domain.PlatformYouTube)
	require.NoError(t, err)
	assert.Equal(t, "ya29.fresh", data.AccessToken)

	data, err = store.Get(ctx, "later-client", domain.PlatformYouTube)
	require.NoError(t, err)
	assert.Equal(t, "fine", data.AccessToken)

	require.Len(t, repo.logs, 2)
}

func TestRefreshExpiring_EmptyWindow(t *testing.T) {
	t.Parallel()

	r, _, repo := newTestRefresher(t, RefresherConfig{Window: time.Minute})

	refreshed, failed := r.RefreshExpiring(context.Background())
	assert.Zero(t, refreshed)
	assert.Zero(t, failed)
	assert.Empty(t, repo.logs)
}
