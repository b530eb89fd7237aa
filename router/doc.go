// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package router defines HTTP routes for the HOA assembly API.

# Route Registration

NewRouter builds a Go 1.22+ http.ServeMux from its dependencies and wraps
it with request IDs and panic recovery:

	handler := router.NewRouter(router.Deps{Service: svc, Hub: hub, ...})

# Endpoints

Public:

	GET  /health
	GET  /
	POST /email-votes - Cast a ballot from an emailed link

Assemblies (bearer token):

	POST /assemblies                        - Create with agenda
	GET  /assemblies                        - List (?building_id=)
	GET  /assemblies/{id}                   - Detail
	POST /assemblies/{id}/schedule          - draft → scheduled
	POST /assemblies/{id}/send-invitation   - scheduled → convened
	POST /assemblies/{id}/start             - scheduled or convened → in_progress
	POST /assemblies/{id}/end               - in_progress → completed
	POST /assemblies/{id}/adjourn           - Adjourn with reason
	POST /assemblies/{id}/cancel            - Cancel
	GET  /assemblies/{id}/quorum            - Quorum by mills
	POST /assemblies/{id}/attendees/sync    - Add missing apartments
	GET  /assemblies/{id}/attendees         - Roster
	POST /assemblies/{id}/agenda-items      - Add item
	GET  /assemblies/{id}/agenda-items      - List items
	POST /assemblies/{id}/votes             - Cast ballot
	POST /assemblies/{id}/reminders/schedule - Enqueue reminders
	GET  /assemblies/{id}/reminders         - Reminder batches
	PUT  /assemblies/{id}/minutes           - Edit minutes
	GET  /assemblies/{id}/minutes           - Rendered minutes (HTML)
	POST /assemblies/{id}/minutes/approve   - Approve minutes
	GET  /assemblies/{id}/events            - Server-sent events

Agenda items and attendees (bearer token):

	POST /agenda-items/{id}/start
	POST /agenda-items/{id}/end
	POST /agenda-items/{id}/defer
	GET  /agenda-items/{id}/results
	GET  /agenda-items/{id}/votes
	POST /attendees/{id}/check-in
	POST /attendees/{id}/check-out
	POST /attendees/{id}/rsvp
*/
package router
