// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package realtime

import (
	"encoding/json"
	"testing"
	"time"
)

func TestBroadcastReachesSubscriber(t *testing.T) {
	hub := NewHub()
	sub := hub.Subscribe(ChannelKey("tenant-a", "asm-1"))
	defer sub.Close()

	hub.Broadcast("tenant-a", "asm-1", "vote_update", map[string]string{"agenda_item_id": "item-1"})

	select {
	case ev := <-sub.Events:
		if ev.Type != "vote_update" || ev.AssemblyID != "asm-1" {
			t.Errorf("unexpected event %+v", ev)
		}
		var payload map[string]string
		if err := json.Unmarshal(ev.Payload, &payload); err != nil {
			t.Fatalf("payload not JSON: %v", err)
		}
		if payload["agenda_item_id"] != "item-1" {
			t.Errorf("payload = %v", payload)
		}
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}
}

func TestBroadcastIsTenantScoped(t *testing.T) {
	hub := NewHub()
	other := hub.Subscribe(ChannelKey("tenant-b", "asm-1"))
	defer other.Close()

	hub.Broadcast("tenant-a", "asm-1", "item_update", struct{}{})

	select {
	case ev := <-other.Events:
		t.Fatalf("cross-tenant event leaked: %+v", ev)
	default:
	}
}

func TestBroadcastDropsWhenSubscriberFull(t *testing.T) {
	hub := NewHub()
	hub.capacity = 1
	sub := hub.Subscribe(ChannelKey("t", "a"))
	defer sub.Close()

	// Must not block even though nobody reads.
	for i := 0; i < 5; i++ {
		hub.Broadcast("t", "a", "vote_update", i)
	}

	if got := len(sub.Events); got != 1 {
		t.Errorf("expected 1 buffered event, got %d", got)
	}
}

func TestCloseRemovesSubscriber(t *testing.T) {
	hub := NewHub()
	key := ChannelKey("t", "a")
	sub := hub.Subscribe(key)
	if hub.SubscriberCount(key) != 1 {
		t.Fatalf("expected 1 subscriber")
	}

	sub.Close()
	sub.Close() // idempotent

	if hub.SubscriberCount(key) != 0 {
		t.Errorf("expected 0 subscribers after close")
	}
	if _, ok := <-sub.Events; ok {
		t.Error("expected closed channel")
	}

	// Broadcasting to an empty channel is a no-op.
	hub.Broadcast("t", "a", "vote_update", nil)
}

func TestBroadcastUnencodablePayload(t *testing.T) {
	hub := NewHub()
	sub := hub.Subscribe(ChannelKey("t", "a"))
	defer sub.Close()

	hub.Broadcast("t", "a", "vote_update", make(chan int))

	if len(sub.Events) != 0 {
		t.Error("unencodable payload should not be delivered")
	}
}
