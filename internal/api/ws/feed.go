// Package ws streams the live message feed over WebSocket.
package ws

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/coder/websocket"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/courier/internal/bus"
)

// Source provides a raw payload stream for a named pub/sub channel. The
// redis PubSub satisfies it.
type Source interface {
	Subscribe(ctx context.Context, channel string) (<-chan []byte, func(), error)
}

// Hub serves WebSocket connections fed by the message bus, or by the bus's
// mirror channel when a Source is configured.
type Hub struct {
	feed   *bus.Bus
	source Source
}

// NewHub creates a WebSocket hub streaming from the local in-memory feed.
func NewHub(feed *bus.Bus) *Hub {
	return &Hub{feed: feed}
}

// NewMirrorHub creates a WebSocket hub streaming from the mirror channel
// instead of the local feed. With multiple hub instances publishing to the
// same Redis, clients then see messages from every instance.
func NewMirrorHub(source Source) *Hub {
	return &Hub{source: source}
}

// ServeFeed streams every message appended to the feed, as JSON, until the
// client disconnects. History is not replayed; subscribers see only messages
// that arrive after they connect.
func (h *Hub) ServeFeed(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("websocket accept")
		return
	}
	defer conn.CloseNow()

	if h.source != nil {
		h.serveFromMirror(r.Context(), conn)
		return
	}

	h.serveFromFeed(r.Context(), conn)
}

func (h *Hub) serveFromFeed(ctx context.Context, conn *websocket.Conn) {
	messages, cancel := h.feed.Subscribe()
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			_ = conn.Close(websocket.StatusNormalClosure, "connection closed")
			return
		case msg, msgOK := <-messages:
			if !msgOK {
				_ = conn.Close(websocket.StatusNormalClosure, "feed closed")
				return
			}

			payload, marshalErr := json.Marshal(msg)
			if marshalErr != nil {
				log.Warn().Err(marshalErr).Msg("websocket marshal")
				continue
			}

			if writeErr := conn.Write(ctx, websocket.MessageText, payload); writeErr != nil {
				log.Debug().Err(writeErr).Msg("websocket write")
				return
			}
		}
	}
}

// serveFromMirror relays mirror-channel payloads verbatim; the bus already
// published them as marshaled messages.
func (h *Hub) serveFromMirror(ctx context.Context, conn *websocket.Conn) {
	messages, cleanup, err := h.source.Subscribe(ctx, bus.MirrorChannel)
	if err != nil {
		log.Error().Err(err).Msg("websocket subscribe")
		_ = conn.Close(websocket.StatusInternalError, "subscribe failed")
		return
	}
	defer cleanup()

	for {
		select {
		case <-ctx.Done():
			_ = conn.Close(websocket.StatusNormalClosure, "connection closed")
			return
		case payload, msgOK := <-messages:
			if !msgOK {
				_ = conn.Close(websocket.StatusNormalClosure, "channel closed")
				return
			}

			if writeErr := conn.Write(ctx, websocket.MessageText, payload); writeErr != nil {
				log.Debug().Err(writeErr).Msg("websocket write")
				return
			}
		}
	}
}
