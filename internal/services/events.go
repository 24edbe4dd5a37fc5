package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/adoteiftm/adote-backend/internal/logging"
	"github.com/adoteiftm/adote-backend/internal/models"
)

// PostEventsChannel is the Redis channel that carries post events between instances.
const PostEventsChannel = "posts:events"

type PostEventType string

const (
	PostCreated     PostEventType = "created"
	PostUpdated     PostEventType = "updated"
	PostDeleted     PostEventType = "deleted"
	PostAdopted     PostEventType = "adopted"
	PostReactivated PostEventType = "reactivated"
)

// PostEvent is broadcast to live-feed subscribers after a listing changes.
type PostEvent struct {
	Type      PostEventType `json:"type"`
	PostID    string        `json:"post_id"`
	Post      *models.Post  `json:"post,omitempty"`
	Actor     string        `json:"actor,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
}

// Subscription receives events until Close is called.
type Subscription struct {
	C    <-chan PostEvent
	ch   chan PostEvent
	hub  *EventHub
	once sync.Once
}

func (s *Subscription) Close() {
	s.once.Do(func() {
		s.hub.mu.Lock()
		delete(s.hub.subs, s)
		s.hub.mu.Unlock()
		close(s.ch)
	})
}

// EventHub fans post events out to local subscribers. With a Redis client
// events go through PostEventsChannel so every instance sees them; Run must
// then be running to deliver anything locally.
type EventHub struct {
	mu   sync.RWMutex
	subs map[*Subscription]struct{}
	rdb  *redis.Client
	log  logging.Logger
}

// NewEventHub returns a hub; rdb may be nil for a single instance.
func NewEventHub(rdb *redis.Client, log logging.Logger) *EventHub {
	if log == nil {
		log = logging.Discard()
	}
	return &EventHub{
		subs: make(map[*Subscription]struct{}),
		rdb:  rdb,
		log:  log,
	}
}

// Subscribe registers a subscriber with the given channel buffer. Events are
// dropped for a subscriber whose buffer is full.
func (h *EventHub) Subscribe(buffer int) *Subscription {
	if buffer <= 0 {
		buffer = 16
	}
	ch := make(chan PostEvent, buffer)
	sub := &Subscription{C: ch, ch: ch, hub: h}

	h.mu.Lock()
	h.subs[sub] = struct{}{}
	h.mu.Unlock()
	return sub
}

func (h *EventHub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Publish delivers ev to every subscriber. If Redis rejects the message the
// event is still delivered to this instance and the error is returned.
func (h *EventHub) Publish(ctx context.Context, ev PostEvent) error {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}
	if h.rdb == nil {
		h.fanOut(ev)
		return nil
	}

	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal post event: %w", err)
	}
	if err := h.rdb.Publish(ctx, PostEventsChannel, data).Err(); err != nil {
		h.fanOut(ev)
		return fmt.Errorf("publish post event: %w", err)
	}
	return nil
}

func (h *EventHub) fanOut(ev PostEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for sub := range h.subs {
		select {
		case sub.ch <- ev:
		default:
		}
	}
}

// Run relays events from Redis to local subscribers until ctx is done,
// reconnecting with exponential backoff capped at 30s. Without Redis it
// returns immediately.
func (h *EventHub) Run(ctx context.Context) {
	if h.rdb == nil {
		return
	}

	backoff := time.Second
	for ctx.Err() == nil {
		err := h.relay(ctx, func() { backoff = time.Second })
		if ctx.Err() != nil {
			return
		}

		h.log.Warn(ctx, "post event subscriber disconnected", "error", err, "retry_in", backoff.String())
		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > 30*time.Second {
			backoff = 30 * time.Second
		}
	}
}

func (h *EventHub) relay(ctx context.Context, onMessage func()) error {
	pubsub := h.rdb.Subscribe(ctx, PostEventsChannel)
	defer pubsub.Close()

	// Wait for the subscription to be confirmed before reporting it.
	if _, err := pubsub.Receive(ctx); err != nil {
		return err
	}
	h.log.Info(ctx, "post event subscriber started", "channel", PostEventsChannel)

	for {
		msg, err := pubsub.ReceiveMessage(ctx)
		if err != nil {
			return err
		}
		onMessage()

		var ev PostEvent
		if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
			h.log.Warn(ctx, "dropping malformed post event", "error", err)
			continue
		}
		h.fanOut(ev)
	}
}

// newPostEvent strips the inline image so events stay small.
func newPostEvent(typ PostEventType, post *models.Post, actor string) PostEvent {
	ev := PostEvent{Type: typ, PostID: post.ID.Hex(), Actor: actor}
	if typ != PostDeleted {
		cp := *post
		cp.Image = ""
		ev.Post = &cp
	}
	return ev
}
