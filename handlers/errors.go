// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/danielhkuo/hoa-assembly/assembly"
	"github.com/danielhkuo/hoa-assembly/auth"
	"github.com/danielhkuo/hoa-assembly/middleware"
)

// StatusFor maps a service error to its HTTP status code.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, assembly.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, assembly.ErrValidation), errors.Is(err, assembly.ErrInvalidState):
		return http.StatusBadRequest
	case errors.Is(err, assembly.ErrNotPermitted), errors.Is(err, assembly.ErrVotingNotOpen):
		return http.StatusForbidden
	case errors.Is(err, assembly.ErrDuplicateVote), errors.Is(err, assembly.ErrInvalidStateTransition):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusFor(err)
	if status == http.StatusInternalServerError {
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		middleware.ErrorResponse(w, status, "Internal error")
		return
	}
	middleware.KindErrorResponse(w, status, err.Error(), assembly.Kind(err))
}

// actorOrReject returns the authenticated actor, answering 401 when the
// route was registered without RequireActor.
func actorOrReject(w http.ResponseWriter, r *http.Request) (auth.Actor, bool) {
	actor, ok := middleware.ActorFrom(r.Context())
	if !ok {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Authentication required")
	}
	return actor, ok
}

func decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := middleware.ParseJSONBody(r, v); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return false
	}
	return true
}

// decodeOptional accepts an empty body, leaving v untouched.
func decodeOptional(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	err := middleware.ParseJSONBody(r, v)
	if err != nil && !errors.Is(err, io.EOF) {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return false
	}
	return true
}
