// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/danielhkuo/hoa-assembly/auth"
	"github.com/danielhkuo/hoa-assembly/middleware"
	"github.com/danielhkuo/hoa-assembly/models"
	"github.com/danielhkuo/hoa-assembly/testutil"
)

func TestCreateAssembly(t *testing.T) {
	e := setupEnv(t)
	h := NewAssemblyHandler(e.svc)
	resident := testutil.Resident("someone")

	valid := models.CreateAssemblyRequest{
		BuildingID:  e.fx.BuildingID,
		Title:       "Extraordinary meeting",
		ScheduledAt: meeting,
		AgendaItems: []models.AgendaItemRequest{
			{Title: "Facade", ItemType: models.ItemTypeVoting},
		},
	}
	untitled := valid
	untitled.Title = "  "

	tests := []struct {
		name           string
		body           interface{}
		actor          *auth.Actor
		expectedStatus int
		expectedKind   string
		checkResponse  func(t *testing.T, d models.AssemblyDetail)
	}{
		{
			name:           "manager creates draft",
			body:           valid,
			actor:          managerPtr(),
			expectedStatus: http.StatusCreated,
			checkResponse: func(t *testing.T, d models.AssemblyDetail) {
				if d.Assembly.Status != models.StatusDraft {
					t.Errorf("Expected draft, got %s", d.Assembly.Status)
				}
				if len(d.AgendaItems) != 1 {
					t.Errorf("Expected 1 agenda item, got %d", len(d.AgendaItems))
				}
				if len(d.Attendees) != 4 {
					t.Errorf("Expected 4 attendees, got %d", len(d.Attendees))
				}
			},
		},
		{
			name:           "resident is refused",
			body:           valid,
			actor:          &resident,
			expectedStatus: http.StatusForbidden,
			expectedKind:   "NotPermitted",
		},
		{
			name:           "missing title",
			body:           untitled,
			actor:          managerPtr(),
			expectedStatus: http.StatusBadRequest,
			expectedKind:   "Validation",
		},
		{
			name:           "no bearer token",
			body:           valid,
			expectedStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := e.call(t, h.CreateAssembly, "POST", "", tt.body, tt.actor)
			testutil.AssertStatus(t, w, tt.expectedStatus)

			if tt.expectedKind != "" {
				assertKind(t, w, tt.expectedKind)
			}
			if tt.checkResponse != nil && w.Code == tt.expectedStatus {
				var d models.AssemblyDetail
				testutil.AssertJSON(t, w, &d)
				tt.checkResponse(t, d)
			}
		})
	}
}

func TestCreateAssembly_InvalidJSON(t *testing.T) {
	e := setupEnv(t)
	h := NewAssemblyHandler(e.svc)

	req := httptest.NewRequest("POST", "/assemblies", strings.NewReader("{not json"))
	for k, v := range testutil.BearerHeader(t, testutil.Manager()) {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	middleware.RequireActor(e.cfg.TokenSecret, h.CreateAssembly)(w, req)

	testutil.AssertStatus(t, w, http.StatusBadRequest)
}

func TestAssemblyLifecycleHandlers(t *testing.T) {
	e := setupEnv(t)
	h := NewAssemblyHandler(e.svc)
	id := e.create(t, models.StatusDraft).Assembly.ID

	steps := []struct {
		name           string
		handler        http.HandlerFunc
		expectedStatus int
		expectedState  string
		expectedKind   string
	}{
		{"start from draft is illegal", h.StartAssembly, http.StatusConflict, "", "InvalidStateTransition"},
		{"schedule", h.ScheduleAssembly, http.StatusOK, models.StatusScheduled, ""},
		{"send invitation", h.SendInvitation, http.StatusOK, models.StatusConvened, ""},
		{"start", h.StartAssembly, http.StatusOK, models.StatusInProgress, ""},
		{"start twice", h.StartAssembly, http.StatusConflict, "", "InvalidStateTransition"},
		{"end", h.EndAssembly, http.StatusOK, models.StatusCompleted, ""},
		{"cancel after completion", h.CancelAssembly, http.StatusConflict, "", "InvalidStateTransition"},
	}

	for _, step := range steps {
		w := e.call(t, step.handler, "POST", id, nil, managerPtr())
		if w.Code != step.expectedStatus {
			t.Fatalf("%s: expected status %d, got %d. Body: %s", step.name, step.expectedStatus, w.Code, w.Body.String())
		}
		if step.expectedKind != "" {
			assertKind(t, w, step.expectedKind)
			continue
		}
		var a models.Assembly
		testutil.AssertJSON(t, w, &a)
		if a.Status != step.expectedState {
			t.Errorf("%s: expected status %s, got %s", step.name, step.expectedState, a.Status)
		}
	}
}

func TestGetAssembly(t *testing.T) {
	e := setupEnv(t)
	h := NewAssemblyHandler(e.svc)
	id := e.create(t, models.StatusScheduled).Assembly.ID

	t.Run("same tenant", func(t *testing.T) {
		w := e.call(t, h.GetAssembly, "GET", id, nil, managerPtr())
		testutil.AssertStatus(t, w, http.StatusOK)

		var d models.AssemblyDetail
		testutil.AssertJSON(t, w, &d)
		if d.Assembly.ID != id {
			t.Errorf("Expected assembly %s, got %s", id, d.Assembly.ID)
		}
	})

	t.Run("other tenant sees nothing", func(t *testing.T) {
		stranger := auth.Actor{UserID: "m2", Role: auth.RoleManager, TenantID: "tenant-2"}
		w := e.call(t, h.GetAssembly, "GET", id, nil, &stranger)
		testutil.AssertStatus(t, w, http.StatusNotFound)
		assertKind(t, w, "NotFound")
	})

	t.Run("unknown id", func(t *testing.T) {
		w := e.call(t, h.GetAssembly, "GET", "missing", nil, managerPtr())
		testutil.AssertStatus(t, w, http.StatusNotFound)
	})
}

func TestListAssemblies(t *testing.T) {
	e := setupEnv(t)
	h := NewAssemblyHandler(e.svc)
	e.create(t, models.StatusDraft)
	e.create(t, models.StatusScheduled)

	w := e.call(t, h.ListAssemblies, "GET", "", nil, managerPtr())
	testutil.AssertStatus(t, w, http.StatusOK)

	var list []models.Assembly
	testutil.AssertJSON(t, w, &list)
	if len(list) != 2 {
		t.Errorf("Expected 2 assemblies, got %d", len(list))
	}
}

func TestAdjournAssemblyHandler(t *testing.T) {
	e := setupEnv(t)
	h := NewAssemblyHandler(e.svc)

	t.Run("with continuation", func(t *testing.T) {
		id := e.started(t).Assembly.ID
		when := e.clock.T.AddDate(0, 0, 14)

		w := e.call(t, h.AdjournAssembly, "POST", id, models.AdjournRequest{ContinuationDate: &when}, managerPtr())
		testutil.AssertStatus(t, w, http.StatusOK)

		var resp models.AdjournResponse
		testutil.AssertJSON(t, w, &resp)
		if resp.Assembly.Status != models.StatusAdjourned {
			t.Errorf("Expected adjourned, got %s", resp.Assembly.Status)
		}
		if resp.Continuation == nil {
			t.Fatal("Expected a continuation assembly")
		}
		if !resp.Continuation.ScheduledAt.Equal(when) {
			t.Errorf("Expected continuation at %s, got %s", when, resp.Continuation.ScheduledAt)
		}
	})

	t.Run("without body", func(t *testing.T) {
		id := e.started(t).Assembly.ID

		w := e.call(t, h.AdjournAssembly, "POST", id, nil, managerPtr())
		testutil.AssertStatus(t, w, http.StatusOK)

		var resp models.AdjournResponse
		testutil.AssertJSON(t, w, &resp)
		if resp.Continuation != nil {
			t.Error("Expected no continuation")
		}
	})
}

func TestQuorumHandler(t *testing.T) {
	e := setupEnv(t)
	h := NewAssemblyHandler(e.svc)
	attendees := NewAttendeeHandler(e.svc)
	d := e.started(t)

	for _, att := range d.Attendees[:2] {
		w := e.call(t, attendees.CheckIn, "POST", att.ID, models.CheckInRequest{}, managerPtr())
		testutil.AssertStatus(t, w, http.StatusOK)
	}

	w := e.call(t, h.GetQuorum, "GET", d.Assembly.ID, nil, ownerOf(d.Attendees[0]))
	testutil.AssertStatus(t, w, http.StatusOK)

	var q models.QuorumStatus
	testutil.AssertJSON(t, w, &q)
	if q.PresentMills != 500 {
		t.Errorf("Expected 500 present mills, got %d", q.PresentMills)
	}
	if !q.Achieved {
		t.Error("Expected quorum achieved at exactly the 50% threshold")
	}
	if q.PresentCount != 2 {
		t.Errorf("Expected 2 present, got %d", q.PresentCount)
	}
}

func TestMinutesHandlers(t *testing.T) {
	e := setupEnv(t)
	h := NewAssemblyHandler(e.svc)
	id := e.started(t).Assembly.ID

	w := e.call(t, h.UpdateMinutes, "PUT", id, models.MinutesRequest{Text: "# Minutes\n\nRoof repair **approved**"}, managerPtr())
	testutil.AssertStatus(t, w, http.StatusOK)

	w = e.call(t, h.ApproveMinutes, "POST", id, nil, managerPtr())
	testutil.AssertStatus(t, w, http.StatusConflict)

	w = e.call(t, h.EndAssembly, "POST", id, nil, managerPtr())
	testutil.AssertStatus(t, w, http.StatusOK)

	w = e.call(t, h.ApproveMinutes, "POST", id, nil, managerPtr())
	testutil.AssertStatus(t, w, http.StatusOK)

	w = e.call(t, h.GetMinutes, "GET", id, nil, managerPtr())
	testutil.AssertStatus(t, w, http.StatusOK)
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Expected HTML, got %q", ct)
	}
	if !strings.Contains(w.Body.String(), "<strong>approved</strong>") {
		t.Errorf("Unexpected minutes body %q", w.Body.String())
	}
}

func TestSyncAttendeesHandler(t *testing.T) {
	e := setupEnv(t)
	h := NewAssemblyHandler(e.svc)
	id := e.create(t, models.StatusScheduled).Assembly.ID

	lateOwner := testutil.CreateTestAccount(t, e.conn, "late@example.com", "Late Owner", "resident")
	_, err := e.conn.Exec(`
		INSERT INTO apartment (id, building_id, number, mills, owner_user_id)
		VALUES ($1, $2, '999', 0, $3)
	`, auth.NewID(), e.fx.BuildingID, lateOwner)
	if err != nil {
		t.Fatalf("Failed to add apartment: %v", err)
	}

	w := e.call(t, h.SyncAttendees, "POST", id, nil, managerPtr())
	testutil.AssertStatus(t, w, http.StatusOK)

	var list []models.Attendee
	testutil.AssertJSON(t, w, &list)
	if len(list) != 5 {
		t.Errorf("Expected 5 attendees after sync, got %d", len(list))
	}
}
