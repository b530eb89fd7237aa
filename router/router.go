// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package router

import (
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/danielhkuo/hoa-assembly/assembly"
	"github.com/danielhkuo/hoa-assembly/cliparse"
	"github.com/danielhkuo/hoa-assembly/handlers"
	"github.com/danielhkuo/hoa-assembly/middleware"
	"github.com/danielhkuo/hoa-assembly/realtime"
	"github.com/danielhkuo/hoa-assembly/reminders"
)

// Deps are the services the routes dispatch to.
type Deps struct {
	Service    *assembly.Service
	Scheduler  *reminders.Scheduler
	Dispatcher *reminders.Dispatcher
	Hub        *realtime.Hub
	Config     cliparse.Config
}

func NewRouter(deps Deps) http.Handler {
	mux := http.NewServeMux()
	cfg := deps.Config

	// Initialize handlers
	assemblyHandler := handlers.NewAssemblyHandler(deps.Service)
	agendaHandler := handlers.NewAgendaHandler(deps.Service)
	attendeeHandler := handlers.NewAttendeeHandler(deps.Service)
	votingHandler := handlers.NewVotingHandler(deps.Service, cfg)
	resultsHandler := handlers.NewResultsHandler(deps.Service)
	reminderHandler := handlers.NewReminderHandler(deps.Service, deps.Scheduler, deps.Dispatcher)
	eventsHandler := handlers.NewEventsHandler(deps.Service, deps.Hub)

	authed := func(h http.HandlerFunc) http.HandlerFunc {
		return middleware.WithLogging(middleware.RequireActor(cfg.TokenSecret, h))
	}

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Assembly lifecycle
	mux.HandleFunc("POST /assemblies", authed(assemblyHandler.CreateAssembly))
	mux.HandleFunc("GET /assemblies", authed(assemblyHandler.ListAssemblies))
	mux.HandleFunc("GET /assemblies/{id}", authed(assemblyHandler.GetAssembly))
	mux.HandleFunc("POST /assemblies/{id}/schedule", authed(assemblyHandler.ScheduleAssembly))
	mux.HandleFunc("POST /assemblies/{id}/send-invitation", authed(assemblyHandler.SendInvitation))
	mux.HandleFunc("POST /assemblies/{id}/start", authed(assemblyHandler.StartAssembly))
	mux.HandleFunc("POST /assemblies/{id}/end", authed(assemblyHandler.EndAssembly))
	mux.HandleFunc("POST /assemblies/{id}/adjourn", authed(assemblyHandler.AdjournAssembly))
	mux.HandleFunc("POST /assemblies/{id}/cancel", authed(assemblyHandler.CancelAssembly))
	mux.HandleFunc("GET /assemblies/{id}/quorum", authed(assemblyHandler.GetQuorum))
	mux.HandleFunc("POST /assemblies/{id}/attendees/sync", authed(assemblyHandler.SyncAttendees))

	// Minutes
	mux.HandleFunc("PUT /assemblies/{id}/minutes", authed(assemblyHandler.UpdateMinutes))
	mux.HandleFunc("POST /assemblies/{id}/minutes/approve", authed(assemblyHandler.ApproveMinutes))
	mux.HandleFunc("GET /assemblies/{id}/minutes", authed(assemblyHandler.GetMinutes))

	// Agenda
	mux.HandleFunc("POST /assemblies/{id}/agenda-items", authed(agendaHandler.AddAgendaItem))
	mux.HandleFunc("GET /assemblies/{id}/agenda-items", authed(agendaHandler.ListAgendaItems))
	mux.HandleFunc("POST /agenda-items/{id}/start", authed(agendaHandler.StartItem))
	mux.HandleFunc("POST /agenda-items/{id}/end", authed(agendaHandler.EndItem))
	mux.HandleFunc("POST /agenda-items/{id}/defer", authed(agendaHandler.DeferItem))

	// Attendance
	mux.HandleFunc("GET /assemblies/{id}/attendees", authed(attendeeHandler.ListAttendees))
	mux.HandleFunc("POST /attendees/{id}/check-in", authed(attendeeHandler.CheckIn))
	mux.HandleFunc("POST /attendees/{id}/check-out", authed(attendeeHandler.CheckOut))
	mux.HandleFunc("POST /attendees/{id}/rsvp", authed(attendeeHandler.RSVP))

	// Voting
	mux.HandleFunc("POST /assemblies/{id}/votes", authed(votingHandler.CastVote))
	mux.HandleFunc("POST /email-votes", middleware.WithLogging(votingHandler.CastEmailVote))
	mux.HandleFunc("GET /agenda-items/{id}/results", authed(resultsHandler.GetResults))
	mux.HandleFunc("GET /agenda-items/{id}/votes", authed(resultsHandler.ListBallots))

	// Reminders
	mux.HandleFunc("POST /assemblies/{id}/reminders/schedule", authed(reminderHandler.ScheduleReminders))
	mux.HandleFunc("GET /assemblies/{id}/reminders", authed(reminderHandler.ListBatches))

	// Live updates
	mux.HandleFunc("GET /assemblies/{id}/events", authed(eventsHandler.Stream))

	// Root endpoint
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("hoa-assembly API v1"))
	})

	return chimw.RequestID(chimw.Recoverer(mux))
}
