// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package middleware provides HTTP middleware and helper functions.

# Request Logging

Wrap handlers with request logging:

	mux.HandleFunc("GET /health", middleware.WithLogging(handler))

Logs request start (method, path, remote, request_id) and completion
(status, duration_ms). The request ID comes from chi's RequestID middleware.

# Actor Authentication

RequireActor verifies a bearer token and stores the actor in the context:

	mux.HandleFunc("GET /assemblies", middleware.RequireActor(secret, h.ListAssemblies))

	actor, ok := middleware.ActorFrom(r.Context())

Browsers using EventSource cannot set headers, so an access_token query
parameter is accepted as well.

# CORS Middleware

	server := http.Server{
		Handler: middleware.CORS(mux),
	}

Allows methods GET, POST, PUT, DELETE, OPTIONS with headers
Content-Type and Authorization.

# JSON Helpers

	middleware.JSONResponse(w, http.StatusOK, data)
	middleware.ErrorResponse(w, http.StatusBadRequest, "message")
	middleware.KindErrorResponse(w, http.StatusConflict, "message", "DuplicateVote")

	var req models.RSVPRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

# Client IP Extraction

	ip := middleware.GetClientIP(r)
*/
package middleware
