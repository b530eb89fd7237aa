// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"net/http"

	"github.com/danielhkuo/hoa-assembly/assembly"
	"github.com/danielhkuo/hoa-assembly/auth"
	"github.com/danielhkuo/hoa-assembly/middleware"
	"github.com/danielhkuo/hoa-assembly/models"
)

type AssemblyHandler struct {
	svc *assembly.Service
}

func NewAssemblyHandler(svc *assembly.Service) *AssemblyHandler {
	return &AssemblyHandler{svc: svc}
}

// CreateAssembly handles POST /assemblies
func (h *AssemblyHandler) CreateAssembly(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorOrReject(w, r)
	if !ok {
		return
	}
	var req models.CreateAssemblyRequest
	if !decode(w, r, &req) {
		return
	}

	detail, err := h.svc.CreateAssembly(r.Context(), actor, req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	middleware.JSONResponse(w, http.StatusCreated, detail)
}

// ListAssemblies handles GET /assemblies
// An optional building_id query parameter narrows the list.
func (h *AssemblyHandler) ListAssemblies(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorOrReject(w, r)
	if !ok {
		return
	}
	list, err := h.svc.ListAssemblies(r.Context(), actor, r.URL.Query().Get("building_id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if list == nil {
		list = []models.Assembly{}
	}
	middleware.JSONResponse(w, http.StatusOK, list)
}

// GetAssembly handles GET /assemblies/{id}
func (h *AssemblyHandler) GetAssembly(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorOrReject(w, r)
	if !ok {
		return
	}
	detail, err := h.svc.GetAssembly(r.Context(), actor, r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, detail)
}

type transition func(ctx context.Context, actor auth.Actor, id string) (models.Assembly, error)

func (h *AssemblyHandler) transition(fn transition) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := actorOrReject(w, r)
		if !ok {
			return
		}
		a, err := fn(r.Context(), actor, r.PathValue("id"))
		if err != nil {
			writeError(w, r, err)
			return
		}
		middleware.JSONResponse(w, http.StatusOK, a)
	}
}

// ScheduleAssembly handles POST /assemblies/{id}/schedule
func (h *AssemblyHandler) ScheduleAssembly(w http.ResponseWriter, r *http.Request) {
	h.transition(h.svc.ScheduleAssembly)(w, r)
}

// SendInvitation handles POST /assemblies/{id}/send-invitation
func (h *AssemblyHandler) SendInvitation(w http.ResponseWriter, r *http.Request) {
	h.transition(h.svc.SendInvitation)(w, r)
}

// StartAssembly handles POST /assemblies/{id}/start
func (h *AssemblyHandler) StartAssembly(w http.ResponseWriter, r *http.Request) {
	h.transition(h.svc.StartAssembly)(w, r)
}

// EndAssembly handles POST /assemblies/{id}/end
func (h *AssemblyHandler) EndAssembly(w http.ResponseWriter, r *http.Request) {
	h.transition(h.svc.EndAssembly)(w, r)
}

// CancelAssembly handles POST /assemblies/{id}/cancel
func (h *AssemblyHandler) CancelAssembly(w http.ResponseWriter, r *http.Request) {
	h.transition(h.svc.CancelAssembly)(w, r)
}

// AdjournAssembly handles POST /assemblies/{id}/adjourn
// The body may name a continuation date; without one no continuation is created.
func (h *AssemblyHandler) AdjournAssembly(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorOrReject(w, r)
	if !ok {
		return
	}
	var req models.AdjournRequest
	if !decodeOptional(w, r, &req) {
		return
	}

	resp, err := h.svc.AdjournAssembly(r.Context(), actor, r.PathValue("id"), req.ContinuationDate)
	if err != nil {
		writeError(w, r, err)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, resp)
}

// SyncAttendees handles POST /assemblies/{id}/attendees/sync
func (h *AssemblyHandler) SyncAttendees(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorOrReject(w, r)
	if !ok {
		return
	}
	list, err := h.svc.SyncAttendees(r.Context(), actor, r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, list)
}

// GetQuorum handles GET /assemblies/{id}/quorum
func (h *AssemblyHandler) GetQuorum(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorOrReject(w, r)
	if !ok {
		return
	}
	status, err := h.svc.GetQuorumStatus(r.Context(), actor, r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, status)
}

// UpdateMinutes handles PUT /assemblies/{id}/minutes
func (h *AssemblyHandler) UpdateMinutes(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorOrReject(w, r)
	if !ok {
		return
	}
	var req models.MinutesRequest
	if !decode(w, r, &req) {
		return
	}
	a, err := h.svc.UpdateMinutes(r.Context(), actor, r.PathValue("id"), req.Text)
	if err != nil {
		writeError(w, r, err)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, a)
}

// ApproveMinutes handles POST /assemblies/{id}/minutes/approve
func (h *AssemblyHandler) ApproveMinutes(w http.ResponseWriter, r *http.Request) {
	h.transition(h.svc.ApproveMinutes)(w, r)
}

// GetMinutes handles GET /assemblies/{id}/minutes
// Returns the minutes rendered as HTML.
func (h *AssemblyHandler) GetMinutes(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorOrReject(w, r)
	if !ok {
		return
	}
	html, err := h.svc.RenderMinutes(r.Context(), actor, r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(html))
}
