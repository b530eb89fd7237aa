// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"

	"github.com/danielhkuo/hoa-assembly/assembly"
	"github.com/danielhkuo/hoa-assembly/middleware"
	"github.com/danielhkuo/hoa-assembly/models"
)

type AttendeeHandler struct {
	svc *assembly.Service
}

func NewAttendeeHandler(svc *assembly.Service) *AttendeeHandler {
	return &AttendeeHandler{svc: svc}
}

// ListAttendees handles GET /assemblies/{id}/attendees
func (h *AttendeeHandler) ListAttendees(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorOrReject(w, r)
	if !ok {
		return
	}
	list, err := h.svc.ListAttendees(r.Context(), actor, r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, list)
}

// CheckIn handles POST /attendees/{id}/check-in
func (h *AttendeeHandler) CheckIn(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorOrReject(w, r)
	if !ok {
		return
	}
	var req models.CheckInRequest
	if !decodeOptional(w, r, &req) {
		return
	}
	att, err := h.svc.CheckIn(r.Context(), actor, r.PathValue("id"), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, att)
}

// CheckOut handles POST /attendees/{id}/check-out
func (h *AttendeeHandler) CheckOut(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorOrReject(w, r)
	if !ok {
		return
	}
	att, err := h.svc.CheckOut(r.Context(), actor, r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, att)
}

// RSVP handles POST /attendees/{id}/rsvp
func (h *AttendeeHandler) RSVP(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorOrReject(w, r)
	if !ok {
		return
	}
	var req models.RSVPRequest
	if !decode(w, r, &req) {
		return
	}
	att, err := h.svc.RSVP(r.Context(), actor, r.PathValue("id"), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, att)
}
