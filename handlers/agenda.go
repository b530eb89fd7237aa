// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"

	"github.com/danielhkuo/hoa-assembly/assembly"
	"github.com/danielhkuo/hoa-assembly/middleware"
	"github.com/danielhkuo/hoa-assembly/models"
)

type AgendaHandler struct {
	svc *assembly.Service
}

func NewAgendaHandler(svc *assembly.Service) *AgendaHandler {
	return &AgendaHandler{svc: svc}
}

// AddAgendaItem handles POST /assemblies/{id}/agenda-items
func (h *AgendaHandler) AddAgendaItem(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorOrReject(w, r)
	if !ok {
		return
	}
	var req models.AgendaItemRequest
	if !decode(w, r, &req) {
		return
	}

	item, err := h.svc.AddAgendaItem(r.Context(), actor, r.PathValue("id"), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	middleware.JSONResponse(w, http.StatusCreated, item)
}

// ListAgendaItems handles GET /assemblies/{id}/agenda-items
func (h *AgendaHandler) ListAgendaItems(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorOrReject(w, r)
	if !ok {
		return
	}
	items, err := h.svc.ListAgendaItems(r.Context(), actor, r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, items)
}

// StartItem handles POST /agenda-items/{id}/start
func (h *AgendaHandler) StartItem(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorOrReject(w, r)
	if !ok {
		return
	}
	item, err := h.svc.StartItem(r.Context(), actor, r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, item)
}

// EndItem handles POST /agenda-items/{id}/end
func (h *AgendaHandler) EndItem(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorOrReject(w, r)
	if !ok {
		return
	}
	var req models.EndItemRequest
	if !decodeOptional(w, r, &req) {
		return
	}
	item, err := h.svc.EndItem(r.Context(), actor, r.PathValue("id"), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, item)
}

// DeferItem handles POST /agenda-items/{id}/defer
func (h *AgendaHandler) DeferItem(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorOrReject(w, r)
	if !ok {
		return
	}
	var req models.DeferItemRequest
	if !decodeOptional(w, r, &req) {
		return
	}
	item, err := h.svc.DeferItem(r.Context(), actor, r.PathValue("id"), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, item)
}
