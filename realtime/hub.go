// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package realtime

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"
)

const defaultSubscriberCapacity = 64

// Event is one message published to observers of an assembly.
type Event struct {
	Type       string          `json:"type"`
	AssemblyID string          `json:"assembly_id"`
	SentAt     time.Time       `json:"sent_at"`
	Payload    json.RawMessage `json:"payload"`
}

// ChannelKey scopes a channel to one tenant and one assembly so observers of
// one tenant never see another tenant's events.
func ChannelKey(tenantID, assemblyID string) string {
	return "tenant:" + tenantID + ":assembly:" + assemblyID
}

// Hub fans events out to per-channel subscribers. Delivery is best-effort: a
// subscriber whose buffer is full misses the event.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]map[*subscriber]struct{}
	capacity    int
}

// Subscription is an active channel subscription.
type Subscription struct {
	Events <-chan Event
	cancel func()
}

// Close terminates the subscription.
func (s Subscription) Close() {
	if s.cancel != nil {
		s.cancel()
	}
}

func NewHub() *Hub {
	return &Hub{
		subscribers: map[string]map[*subscriber]struct{}{},
		capacity:    defaultSubscriberCapacity,
	}
}

// Subscribe registers for events on a channel key built by ChannelKey.
func (h *Hub) Subscribe(key string) Subscription {
	sub := &subscriber{ch: make(chan Event, h.capacity)}
	h.mu.Lock()
	if h.subscribers[key] == nil {
		h.subscribers[key] = map[*subscriber]struct{}{}
	}
	h.subscribers[key][sub] = struct{}{}
	h.mu.Unlock()

	return Subscription{
		Events: sub.ch,
		cancel: func() { h.remove(key, sub) },
	}
}

// Broadcast publishes payload to every observer of the assembly. It never
// fails; marshalling errors and dropped deliveries are logged.
func (h *Hub) Broadcast(tenantID, assemblyID, eventType string, payload any) {
	raw, err := json.Marshal(payload)
	if err != nil {
		slog.Warn("broadcast payload not encodable", "assembly_id", assemblyID, "type", eventType, "error", err)
		return
	}
	event := Event{
		Type:       eventType,
		AssemblyID: assemblyID,
		SentAt:     time.Now().UTC(),
		Payload:    raw,
	}

	key := ChannelKey(tenantID, assemblyID)
	h.mu.RLock()
	subs := make([]*subscriber, 0, len(h.subscribers[key]))
	for sub := range h.subscribers[key] {
		subs = append(subs, sub)
	}
	h.mu.RUnlock()

	for _, sub := range subs {
		if !sub.deliver(event) {
			slog.Warn("broadcast dropped for slow subscriber", "assembly_id", assemblyID, "type", eventType)
		}
	}
}

// SubscriberCount reports how many observers a channel has.
func (h *Hub) SubscriberCount(key string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers[key])
}

func (h *Hub) remove(key string, sub *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if subs := h.subscribers[key]; subs != nil {
		delete(subs, sub)
		if len(subs) == 0 {
			delete(h.subscribers, key)
		}
	}
	sub.close()
}

type subscriber struct {
	ch     chan Event
	mu     sync.Mutex
	closed bool
}

func (s *subscriber) deliver(event Event) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return true
	}
	select {
	case s.ch <- event:
		return true
	default:
		return false
	}
}

func (s *subscriber) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.ch)
	}
}
