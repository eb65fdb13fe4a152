// Package eventfeed streams pipeline events to websocket subscribers:
// transcript updates, translation updates, and playback start/stop.
// Front ends subscribe to render the live interpretation state.
package eventfeed

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
)

// Type names a pipeline event.
type Type string

const (
	TypeSystemStart    Type = "system_start"
	TypeSystemStop     Type = "system_stop"
	TypeSourceText     Type = "source_text_update"
	TypeTranslatedText Type = "translated_text_update"
	TypeTTSPlay        Type = "tts_play"
	TypeTTSStop        Type = "tts_stop"
	TypeLog            Type = "log"
)

// Event is one message on the feed.
type Event struct {
	Type      Type      `json:"type"`
	Data      any       `json:"data,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// subscriber buffers outbound events for one websocket connection.
// A full buffer drops the subscriber rather than stalling publishers.
type subscriber struct {
	events chan []byte
	cancel context.CancelFunc
}

// Hub fans pipeline events out to websocket subscribers. Publish never
// blocks; slow consumers are disconnected.
type Hub struct {
	log *slog.Logger
	now func() time.Time

	mu     sync.Mutex
	subs   map[*subscriber]struct{}
	closed bool
}

type Option func(*Hub)

func WithLogger(l *slog.Logger) Option {
	return func(h *Hub) { h.log = l }
}

func WithClock(now func() time.Time) Option {
	return func(h *Hub) { h.now = now }
}

func NewHub(o ...Option) *Hub {
	h := &Hub{
		log:  slog.Default(),
		now:  time.Now,
		subs: make(map[*subscriber]struct{}),
	}
	for _, fn := range o {
		fn(h)
	}
	return h
}

// Publish sends an event to every subscriber. The timestamp is filled
// in if unset.
func (h *Hub) Publish(ev Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = h.now()
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		h.log.Warn("event marshal failed", "type", ev.Type, "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.subs {
		select {
		case sub.events <- payload:
		default:
			h.log.Warn("dropping slow event subscriber")
			delete(h.subs, sub)
			sub.cancel()
		}
	}
}

// ServeHTTP upgrades the request to a websocket and streams events
// until the client disconnects or the hub closes.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		h.log.Warn("event feed accept failed", "error", err)
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	sub := &subscriber{
		events: make(chan []byte, 64),
		cancel: cancel,
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		conn.Close(websocket.StatusGoingAway, "shutting down")
		cancel()
		return
	}
	h.subs[sub] = struct{}{}
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.subs, sub)
		h.mu.Unlock()
		cancel()
		conn.Close(websocket.StatusNormalClosure, "")
	}()

	// Readers are not expected to send anything; a read loop is still
	// needed to notice disconnects.
	go func() {
		for {
			if _, _, err := conn.Read(ctx); err != nil {
				cancel()
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case payload := <-sub.events:
			writeCtx, writeCancel := context.WithTimeout(ctx, 5*time.Second)
			err := conn.Write(writeCtx, websocket.MessageText, payload)
			writeCancel()
			if err != nil {
				return
			}
		}
	}
}

// SubscriberCount reports how many clients are connected.
func (h *Hub) SubscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Close disconnects all subscribers and rejects new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for sub := range h.subs {
		delete(h.subs, sub)
		sub.cancel()
	}
}
