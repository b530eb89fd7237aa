// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package router

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/danielhkuo/hoa-assembly/assembly"
	"github.com/danielhkuo/hoa-assembly/db"
	"github.com/danielhkuo/hoa-assembly/models"
	"github.com/danielhkuo/hoa-assembly/notify"
	"github.com/danielhkuo/hoa-assembly/realtime"
	"github.com/danielhkuo/hoa-assembly/reminders"
	"github.com/danielhkuo/hoa-assembly/testutil"
)

func newTestRouter(t *testing.T) (http.Handler, testutil.Fixture) {
	t.Helper()

	conn := testutil.SetupTestDB(t)
	cfg := testutil.GetTestConfig()
	fx := testutil.CreateTestBuilding(t, conn, 1000, testutil.EvenUnits(2, 1000)...)
	hub := realtime.NewHub()
	scheduler := reminders.NewScheduler(conn, db.DialectSQLite, cfg.Location())
	svc := assembly.NewService(conn, db.DialectSQLite,
		assembly.WithBroadcaster(hub),
		assembly.WithReminderScheduler(scheduler),
	)

	return NewRouter(Deps{
		Service:    svc,
		Scheduler:  scheduler,
		Dispatcher: reminders.NewDispatcher(conn, db.DialectSQLite, notify.LogSender{}, cfg),
		Hub:        hub,
		Config:     cfg,
	}), fx
}

func TestHealthEndpoint(t *testing.T) {
	mux, _ := newTestRouter(t)

	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()

	mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
	if w.Body.String() != "OK" {
		t.Errorf("Expected body 'OK', got '%s'", w.Body.String())
	}
}

func TestRootEndpoint(t *testing.T) {
	mux, _ := newTestRouter(t)

	req := httptest.NewRequest("GET", "/", nil)
	w := httptest.NewRecorder()

	mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
	expected := "hoa-assembly API v1"
	if w.Body.String() != expected {
		t.Errorf("Expected body '%s', got '%s'", expected, w.Body.String())
	}
}

func TestRouteExistence(t *testing.T) {
	mux, _ := newTestRouter(t)

	testCases := []struct {
		method string
		path   string
	}{
		{"POST", "/assemblies"},
		{"GET", "/assemblies"},
		{"GET", "/assemblies/a1"},
		{"POST", "/assemblies/a1/schedule"},
		{"POST", "/assemblies/a1/send-invitation"},
		{"POST", "/assemblies/a1/start"},
		{"POST", "/assemblies/a1/end"},
		{"POST", "/assemblies/a1/adjourn"},
		{"POST", "/assemblies/a1/cancel"},
		{"GET", "/assemblies/a1/quorum"},
		{"POST", "/assemblies/a1/attendees/sync"},
		{"GET", "/assemblies/a1/attendees"},
		{"POST", "/assemblies/a1/agenda-items"},
		{"GET", "/assemblies/a1/agenda-items"},
		{"POST", "/assemblies/a1/votes"},
		{"POST", "/assemblies/a1/reminders/schedule"},
		{"GET", "/assemblies/a1/reminders"},
		{"PUT", "/assemblies/a1/minutes"},
		{"POST", "/assemblies/a1/minutes/approve"},
		{"GET", "/assemblies/a1/minutes"},
		{"GET", "/assemblies/a1/events"},
		{"POST", "/agenda-items/i1/start"},
		{"POST", "/agenda-items/i1/end"},
		{"POST", "/agenda-items/i1/defer"},
		{"GET", "/agenda-items/i1/results"},
		{"GET", "/agenda-items/i1/votes"},
		{"POST", "/attendees/x1/check-in"},
		{"POST", "/attendees/x1/check-out"},
		{"POST", "/attendees/x1/rsvp"},
	}

	for _, tc := range testCases {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, tc.path, nil)
			w := httptest.NewRecorder()

			mux.ServeHTTP(w, req)

			// Authenticated routes answer 401 without a token once matched.
			if w.Code != http.StatusUnauthorized {
				t.Errorf("Route %s %s returned %d, expected 401 from the handler chain", tc.method, tc.path, w.Code)
			}
		})
	}
}

func TestEmailVoteRouteIsPublic(t *testing.T) {
	mux, _ := newTestRouter(t)

	req := testutil.MakeRequest("POST", "/email-votes", models.EmailVoteRequest{Token: "garbage", Choice: "approve"}, nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	// Rejected by the link check, not by bearer authentication.
	testutil.AssertStatus(t, w, http.StatusUnauthorized)
	var resp models.ErrorResponse
	testutil.AssertJSON(t, w, &resp)
	if resp.Message != "Invalid or expired vote link" {
		t.Errorf("Unexpected message %q", resp.Message)
	}
}

func TestSpecificMethodRouting(t *testing.T) {
	mux, _ := newTestRouter(t)

	testCases := []struct {
		name           string
		method         string
		path           string
		expectedStatus int
	}{
		{"POST to health endpoint", "POST", "/health", http.StatusMethodNotAllowed},
		{"DELETE an assembly", "DELETE", "/assemblies/a1", http.StatusMethodNotAllowed},
		{"GET start", "GET", "/assemblies/a1/start", http.StatusMethodNotAllowed},
		{"unknown path", "GET", "/polls", http.StatusNotFound},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, tc.path, nil)
			w := httptest.NewRecorder()

			mux.ServeHTTP(w, req)

			if w.Code != tc.expectedStatus {
				t.Errorf("Expected %d for %s %s, got %d", tc.expectedStatus, tc.method, tc.path, w.Code)
			}
		})
	}
}

func TestEndToEndAssembly(t *testing.T) {
	mux, fx := newTestRouter(t)
	manager := testutil.BearerHeader(t, testutil.Manager())

	req := testutil.MakeRequest("POST", "/assemblies", models.CreateAssemblyRequest{
		BuildingID:  fx.BuildingID,
		Title:       "Spring meeting",
		ScheduledAt: time.Now().Add(10 * 24 * time.Hour).UTC(),
		Status:      models.StatusScheduled,
		AgendaItems: []models.AgendaItemRequest{
			{Title: "Budget", ItemType: models.ItemTypeVoting},
		},
	}, manager)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	testutil.AssertStatus(t, w, http.StatusCreated)

	var d models.AssemblyDetail
	testutil.AssertJSON(t, w, &d)
	base := "/assemblies/" + d.Assembly.ID

	for _, step := range []string{"/send-invitation", "/start"} {
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, testutil.MakeRequest("POST", base+step, nil, manager))
		testutil.AssertStatus(t, w, http.StatusOK)
	}

	w = httptest.NewRecorder()
	mux.ServeHTTP(w, testutil.MakeRequest("POST", base+"/votes", models.CastVoteRequest{
		AttendeeID:   d.Attendees[0].ID,
		AgendaItemID: d.AgendaItems[0].ID,
		Choice:       models.ChoiceApprove,
	}, manager))
	testutil.AssertStatus(t, w, http.StatusCreated)

	w = httptest.NewRecorder()
	mux.ServeHTTP(w, testutil.MakeRequest("GET", "/agenda-items/"+d.AgendaItems[0].ID+"/results", nil, manager))
	testutil.AssertStatus(t, w, http.StatusOK)

	var res models.VoteResults
	testutil.AssertJSON(t, w, &res)
	if res.Approve.Count != 1 || res.Approve.Mills != 500 {
		t.Errorf("Unexpected results %+v", res)
	}

	w = httptest.NewRecorder()
	mux.ServeHTTP(w, testutil.MakeRequest("GET", base+"/reminders", nil, manager))
	testutil.AssertStatus(t, w, http.StatusOK)
}
