package server

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
	slacklib "github.com/slack-go/slack"

	"github.com/gosuda/courier/internal/domain"
)

// maxWebhookBody caps inbound webhook payloads at 1 MiB.
const maxWebhookBody = 1 << 20

func (s *Server) registerWebhookRoutes(r chi.Router) {
	r.Post("/{platform}", s.handleWebhook)

	// Meta-family platforms verify the endpoint with a GET handshake before
	// delivering events.
	r.Get("/facebook", verifyHandler(s.cfg.Platforms.Facebook.VerifyToken))
	r.Get("/instagram", verifyHandler(s.cfg.Platforms.Instagram.VerifyToken))
	r.Get("/whatsapp", verifyHandler(s.cfg.Platforms.WhatsApp.VerifyToken))

	// Twitter's Account Activity API issues a CRC challenge instead.
	r.Get("/twitter", crcHandler(s.cfg.Platforms.Twitter.ConsumerSecret))
}

// handleWebhook hands the raw payload to the platform's adapter and answers
// 200 regardless of the outcome. Returning an error status would make the
// platform redeliver payloads the hub has already decided to drop. The one
// exception is a Slack payload failing its signature check, which is
// rejected before dispatch.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	platform := domain.Platform(chi.URLParam(r, "platform"))

	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		log.Warn().Err(err).Str("platform", string(platform)).Msg("webhook body read failed")
	} else {
		if platform == domain.PlatformSlack {
			if secret := s.cfg.Platforms.Slack.SigningSecret; secret != "" {
				if sigErr := verifySlackSignature(r.Header, secret, payload); sigErr != nil {
					log.Warn().Err(sigErr).Msg("slack webhook signature rejected")
					http.Error(w, "invalid signature", http.StatusUnauthorized)
					return
				}
			}
		}

		s.manager.HandleWebhook(platform, payload)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

// verifySlackSignature checks the v0 HMAC signature Slack attaches to every
// Events API delivery.
func verifySlackSignature(header http.Header, secret string, body []byte) error {
	sv, err := slacklib.NewSecretsVerifier(header, secret)
	if err != nil {
		return fmt.Errorf("server.verifySlackSignature: %w", err)
	}

	if _, err := sv.Write(body); err != nil {
		return fmt.Errorf("server.verifySlackSignature: %w", err)
	}

	if err := sv.Ensure(); err != nil {
		return fmt.Errorf("server.verifySlackSignature: %w", err)
	}

	return nil
}

// verifyHandler answers the hub.challenge handshake when the caller presents
// the configured verify token. An empty configured token rejects everything.
func verifyHandler(verifyToken string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		mode := q.Get("hub.mode")
		token := q.Get("hub.verify_token")
		challenge := q.Get("hub.challenge")

		if mode == "subscribe" && verifyToken != "" && token == verifyToken {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(challenge))
			return
		}

		log.Warn().Str("mode", mode).Msg("webhook verification rejected")
		http.Error(w, "Forbidden", http.StatusForbidden)
	}
}

// crcHandler answers Twitter's CRC challenge by signing crc_token with the
// app's consumer secret. An empty configured secret rejects everything.
func crcHandler(consumerSecret string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := r.URL.Query().Get("crc_token")
		if consumerSecret == "" || token == "" {
			log.Warn().Msg("twitter CRC challenge rejected")
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}

		mac := hmac.New(sha256.New, []byte(consumerSecret))
		mac.Write([]byte(token))
		response := "sha256=" + base64.StdEncoding.EncodeToString(mac.Sum(nil))

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = fmt.Fprintf(w, `{"response_token":%q}`, response)
	}
}
