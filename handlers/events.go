// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/danielhkuo/hoa-assembly/assembly"
	"github.com/danielhkuo/hoa-assembly/realtime"
)

const heartbeatInterval = 25 * time.Second

type EventsHandler struct {
	svc *assembly.Service
	hub *realtime.Hub
}

func NewEventsHandler(svc *assembly.Service, hub *realtime.Hub) *EventsHandler {
	return &EventsHandler{svc: svc, hub: hub}
}

// Stream handles GET /assemblies/{id}/events
// Server-Sent Events on the assembly's channel of the caller's tenant.
func (h *EventsHandler) Stream(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorOrReject(w, r)
	if !ok {
		return
	}
	a, err := h.svc.Authorize(r.Context(), actor, r.PathValue("id"), false)
	if err != nil {
		writeError(w, r, err)
		return
	}

	rc := http.NewResponseController(w)
	// Streams outlive the server's write timeout.
	_ = rc.SetWriteDeadline(time.Time{})

	sub := h.hub.Subscribe(realtime.ChannelKey(a.TenantID, a.ID))
	defer sub.Close()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, ": subscribed to %s\n\n", a.ID)
	if err := rc.Flush(); err != nil {
		slog.Error("event stream cannot flush", "assembly_id", a.ID, "error", err)
		return
	}

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			fmt.Fprint(w, ": ping\n\n")
		case ev, open := <-sub.Events:
			if !open {
				return
			}
			data, err := json.Marshal(ev)
			if err != nil {
				slog.Warn("failed to encode event", "assembly_id", a.ID, "type", ev.Type, "error", err)
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, data)
		}
		if err := rc.Flush(); err != nil {
			return
		}
	}
}
