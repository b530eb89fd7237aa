// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"log/slog"
	"net/http"

	"github.com/danielhkuo/hoa-assembly/assembly"
	"github.com/danielhkuo/hoa-assembly/auth"
	"github.com/danielhkuo/hoa-assembly/cliparse"
	"github.com/danielhkuo/hoa-assembly/middleware"
	"github.com/danielhkuo/hoa-assembly/models"
)

type VotingHandler struct {
	svc *assembly.Service
	cfg cliparse.Config
}

func NewVotingHandler(svc *assembly.Service, cfg cliparse.Config) *VotingHandler {
	return &VotingHandler{svc: svc, cfg: cfg}
}

// CastVote handles POST /assemblies/{id}/votes
// Residents vote for their own apartments; staff may vote for any attendee
// and override a ballot while the assembly is in progress.
func (h *VotingHandler) CastVote(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorOrReject(w, r)
	if !ok {
		return
	}
	var req models.CastVoteRequest
	if !decode(w, r, &req) {
		return
	}

	ballot, err := h.svc.CastVote(r.Context(), actor, r.PathValue("id"), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	middleware.JSONResponse(w, http.StatusCreated, ballot)
}

// CastEmailVote handles POST /email-votes
// The token comes from a reminder email and names the assembly, attendee and
// agenda item; no bearer token is needed.
func (h *VotingHandler) CastEmailVote(w http.ResponseWriter, r *http.Request) {
	var req models.EmailVoteRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Token == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "token is required")
		return
	}

	link, err := auth.ParseVoteLinkToken(req.Token, h.cfg.TokenSecret)
	if err != nil {
		slog.Warn("rejected vote link", "error", err)
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Invalid or expired vote link")
		return
	}

	ballot, err := h.svc.CastLinkedVote(r.Context(), link, req.Choice, req.Notes)
	if err != nil {
		writeError(w, r, err)
		return
	}
	middleware.JSONResponse(w, http.StatusCreated, ballot)
}
