// Package notify provides NotificationSink implementations: an in-process
// hub with replayable history, a logging sink and simple combinators.
package notify

import (
	"context"
	"sync"
	"time"

	"github.com/goliatone/go-wallet/core"
)

const (
	DefaultHistoryLimit   = core.DefaultNotificationHistory
	DefaultCoalesceWindow = 2 * time.Second

	subscriberBufferSize = 64
)

// Event is one retained notification. Repeats counts how many identical
// notifications were folded into it.
type Event struct {
	Seq          int64
	Notification core.Notification
	Repeats      int
}

type HubOption func(*Hub)

// WithCoalesceWindow sets how close together two identical notifications
// must be to fold into one history entry. Zero disables coalescing.
func WithCoalesceWindow(window time.Duration) HubOption {
	return func(h *Hub) {
		if window >= 0 {
			h.window = window
		}
	}
}

func WithHubClock(now func() time.Time) HubOption {
	return func(h *Hub) {
		if now != nil {
			h.now = now
		}
	}
}

// Hub keeps the latest notifications for the wallet UI. A notification equal
// to the newest retained one (same severity, message, operation and code)
// within the coalesce window replaces it with a bumped Repeats count instead
// of growing the history, so a user hammering "mint" during a cooldown sees
// one entry. Every publish is still fanned out to subscribers; a subscriber
// whose buffer is full is closed and dropped so Notify never blocks.
type Hub struct {
	mu      sync.Mutex
	nextSeq int64
	limit   int
	window  time.Duration
	now     func() time.Time
	history []Event
	subs    map[int]chan Event
	nextSub int
}

func NewHub(limit int, opts ...HubOption) *Hub {
	h := &Hub{
		limit:  max(limit, 1),
		window: DefaultCoalesceWindow,
		now:    time.Now,
		subs:   make(map[int]chan Event),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h
}

func (h *Hub) Notify(_ context.Context, notification core.Notification) {
	h.Publish(notification)
}

func (h *Hub) Publish(notification core.Notification) Event {
	h.mu.Lock()
	defer h.mu.Unlock()

	if notification.At.IsZero() {
		notification.At = h.now()
	}
	h.nextSeq++
	event := Event{Seq: h.nextSeq, Notification: notification, Repeats: 1}

	if last := len(h.history) - 1; last >= 0 && h.coalesces(h.history[last].Notification, notification) {
		event.Repeats = h.history[last].Repeats + 1
		h.history[last] = event
	} else {
		h.history = append(h.history, event)
		h.trimLocked()
	}

	for id, ch := range h.subs {
		select {
		case ch <- event:
		default:
			close(ch)
			delete(h.subs, id)
		}
	}
	return event
}

func (h *Hub) coalesces(prev core.Notification, next core.Notification) bool {
	if h.window <= 0 {
		return false
	}
	if prev.Severity != next.Severity || prev.Message != next.Message ||
		prev.Operation != next.Operation || prev.Code != next.Code {
		return false
	}
	gap := next.At.Sub(prev.At)
	return gap >= 0 && gap <= h.window
}

// SetLimit changes how many events are retained, dropping the oldest when
// the history shrinks. Values below one fall back to DefaultHistoryLimit.
func (h *Hub) SetLimit(limit int) {
	if limit < 1 {
		limit = DefaultHistoryLimit
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.limit = limit
	h.trimLocked()
}

func (h *Hub) Limit() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.limit
}

func (h *Hub) trimLocked() {
	if len(h.history) > h.limit {
		h.history = append([]Event(nil), h.history[len(h.history)-h.limit:]...)
	}
}

// Subscribe returns the retained events newer than fromSeq, a channel for new
// events and a cancel func.
func (h *Hub) Subscribe(fromSeq int64) ([]Event, <-chan Event, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	replay := h.afterLocked(fromSeq)
	id := h.nextSub
	h.nextSub++
	ch := make(chan Event, subscriberBufferSize)
	h.subs[id] = ch

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if sub, ok := h.subs[id]; ok {
			close(sub)
			delete(h.subs, id)
		}
	}
	return replay, ch, cancel
}

func (h *Hub) afterLocked(fromSeq int64) []Event {
	out := make([]Event, 0, len(h.history))
	for _, event := range h.history {
		if event.Seq > fromSeq {
			out = append(out, event)
		}
	}
	return out
}

func (h *Hub) History() []Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.afterLocked(0)
}

func (h *Hub) BacklogSize() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.history)
}
