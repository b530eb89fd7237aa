// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"

	"github.com/danielhkuo/hoa-assembly/assembly"
	"github.com/danielhkuo/hoa-assembly/middleware"
	"github.com/danielhkuo/hoa-assembly/models"
	"github.com/danielhkuo/hoa-assembly/reminders"
)

type ReminderHandler struct {
	svc        *assembly.Service
	scheduler  *reminders.Scheduler
	dispatcher *reminders.Dispatcher
}

func NewReminderHandler(svc *assembly.Service, scheduler *reminders.Scheduler, dispatcher *reminders.Dispatcher) *ReminderHandler {
	return &ReminderHandler{svc: svc, scheduler: scheduler, dispatcher: dispatcher}
}

// ScheduleReminders handles POST /assemblies/{id}/reminders/schedule
// Enqueues any reminder of the series not already pending.
func (h *ReminderHandler) ScheduleReminders(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorOrReject(w, r)
	if !ok {
		return
	}
	n, err := h.scheduler.ScheduleSeriesByID(r.Context(), actor, r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, models.ScheduleRemindersResponse{Enqueued: n})
}

// ListBatches handles GET /assemblies/{id}/reminders
// Returns delivery statistics per reminder run.
func (h *ReminderHandler) ListBatches(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorOrReject(w, r)
	if !ok {
		return
	}
	id := r.PathValue("id")
	if _, err := h.svc.Authorize(r.Context(), actor, id, true); err != nil {
		writeError(w, r, err)
		return
	}

	batches, err := h.dispatcher.ListBatches(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, batches)
}
