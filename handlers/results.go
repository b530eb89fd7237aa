// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"

	"github.com/danielhkuo/hoa-assembly/assembly"
	"github.com/danielhkuo/hoa-assembly/middleware"
)

type ResultsHandler struct {
	svc *assembly.Service
}

func NewResultsHandler(svc *assembly.Service) *ResultsHandler {
	return &ResultsHandler{svc: svc}
}

// GetResults handles GET /agenda-items/{id}/results
// Items linked to a shared vote pull in outside submissions before tallying.
func (h *ResultsHandler) GetResults(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorOrReject(w, r)
	if !ok {
		return
	}
	results, err := h.svc.GetVoteResults(r.Context(), actor, r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, results)
}

// ListBallots handles GET /agenda-items/{id}/votes
func (h *ResultsHandler) ListBallots(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorOrReject(w, r)
	if !ok {
		return
	}
	ballots, err := h.svc.ListBallots(r.Context(), actor, r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, ballots)
}
