package server

import (
	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"

	v1 "github.com/gosuda/courier/internal/api/v1"
	"github.com/gosuda/courier/internal/api/ws"
)

// APIDeps carries the credential services the management API depends on.
// *tokens.Store and *tokens.Refresher satisfy the interfaces.
type APIDeps struct {
	Credentials v1.CredentialService
	Refresher   v1.CredentialRefresher

	// FeedSource, when set, switches /ws/feed from the local in-memory
	// feed to the Redis mirror channel. *redis.PubSub satisfies it.
	FeedSource ws.Source
}

func (s *Server) registerAPIRoutes(r chi.Router, deps APIDeps) {
	apiConfig := huma.DefaultConfig("Courier API", "1.0.0")
	apiConfig.Servers = []*huma.Server{
		{URL: "/api/v1"},
	}

	api := humachi.New(r, apiConfig)
	v1.RegisterMessageRoutes(api, s.manager, s.feed)
	v1.RegisterConnectionRoutes(api, deps.Credentials, deps.Refresher)
}
