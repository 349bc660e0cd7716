// Package bus holds the bounded in-memory feed of canonical messages and
// fans them out to live subscribers.
package bus

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/gosuda/courier/internal/domain"
)

// DefaultLimit is used when a read is requested with a non-positive limit.
const DefaultLimit = 50

// MirrorChannel is the pub/sub channel mirrored appends are published to.
const MirrorChannel = "feed:messages"

// subscriberBuffer bounds each subscriber channel. A subscriber that falls
// this far behind starts losing messages rather than blocking appends.
const subscriberBuffer = 64

// Publisher mirrors appended messages to an external channel. This is the
// durability seam: the in-memory feed itself is lost on restart.
type Publisher interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}

// Option configures a Bus.
type Option func(*Bus)

// WithMirror publishes every appended message to p on MirrorChannel.
func WithMirror(p Publisher) Option {
	return func(b *Bus) { b.mirror = p }
}

// Bus is a bounded, append-only feed. When full it evicts from the front,
// keeping the most recent messages: plain FIFO, no access-based promotion.
// Appends are serialized with a mutex to keep eviction ordering correct
// under concurrent webhook handling.
type Bus struct {
	mu          sync.Mutex
	capacity    int
	messages    []domain.Message
	subscribers map[uint64]chan domain.Message
	nextSubID   uint64
	mirror      Publisher
}

// New creates a Bus holding at most capacity messages.
func New(capacity int, opts ...Option) *Bus {
	b := &Bus{
		capacity:    capacity,
		subscribers: make(map[uint64]chan domain.Message),
	}

	for _, opt := range opts {
		opt(b)
	}

	return b
}

// Add appends a message, evicting the oldest entries beyond capacity, then
// broadcasts it to current subscribers. Subscribers registered afterwards do
// not receive it.
func (b *Bus) Add(msg domain.Message) {
	b.mu.Lock()

	b.messages = append(b.messages, msg)
	if len(b.messages) > b.capacity {
		overflow := len(b.messages) - b.capacity
		// Copy down instead of re-slicing so evicted entries do not pin
		// the backing array.
		b.messages = append(b.messages[:0:0], b.messages[overflow:]...)
	}

	subs := make([]chan domain.Message, 0, len(b.subscribers))
	for _, ch := range b.subscribers {
		subs = append(subs, ch)
	}

	b.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- msg:
		default:
			log.Debug().Str("platform", string(msg.Platform)).Msg("bus: dropping message for slow subscriber")
		}
	}

	if b.mirror != nil {
		b.publishMirror(msg)
	}

	log.Info().
		Str("platform", string(msg.Platform)).
		Str("message_id", msg.MessageID).
		Msg("message received")
}

func (b *Bus) publishMirror(msg domain.Message) {
	payload, err := json.Marshal(msg)
	if err != nil {
		log.Warn().Err(err).Msg("bus: mirror marshal failed")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := b.mirror.Publish(ctx, MirrorChannel, payload); err != nil {
		log.Warn().Err(err).Msg("bus: mirror publish failed")
	}
}

// Recent returns the most recent limit messages in insertion order (oldest
// of the returned slice first). A non-positive limit means DefaultLimit.
func (b *Bus) Recent(limit int) []domain.Message {
	if limit <= 0 {
		limit = DefaultLimit
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	start := len(b.messages) - limit
	if start < 0 {
		start = 0
	}

	out := make([]domain.Message, len(b.messages)-start)
	copy(out, b.messages[start:])

	return out
}

// RecentByPlatform returns the most recent limit messages for one platform,
// in insertion order. A plain filter over the feed, recomputed per call.
func (b *Bus) RecentByPlatform(platform domain.Platform, limit int) []domain.Message {
	if limit <= 0 {
		limit = DefaultLimit
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	var filtered []domain.Message
	for _, m := range b.messages {
		if m.Platform == platform {
			filtered = append(filtered, m)
		}
	}

	if len(filtered) > limit {
		filtered = filtered[len(filtered)-limit:]
	}

	return filtered
}

// Len reports how many messages are currently retained.
func (b *Bus) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return len(b.messages)
}

// Clear discards all retained history. Live subscriptions are unaffected.
func (b *Bus) Clear() {
	b.mu.Lock()
	b.messages = nil
	b.mu.Unlock()

	log.Info().Msg("message feed cleared")
}

// Subscribe registers a live feed subscriber. The returned cancel function
// must be called to release the subscription; the channel is closed by it.
func (b *Bus) Subscribe() (<-chan domain.Message, func()) {
	ch := make(chan domain.Message, subscriberBuffer)

	b.mu.Lock()
	id := b.nextSubID
	b.nextSubID++
	b.subscribers[id] = ch
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subscribers, id)
			b.mu.Unlock()
			close(ch)
		})
	}

	return ch, cancel
}
