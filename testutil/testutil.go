// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package testutil

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/danielhkuo/hoa-assembly/auth"
	"github.com/danielhkuo/hoa-assembly/cliparse"
	"github.com/danielhkuo/hoa-assembly/db"
)

// TestSecret signs actor and vote-link tokens in tests.
const TestSecret = "test-token-secret"

// TestTenant is the tenant every seeded building belongs to.
const TestTenant = "tenant-1"

// SetupTestDB opens a fresh in-memory SQLite database with the full schema.
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	conn, _, err := db.Open(string(db.DialectSQLite), ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	if err := db.CreateSchema(conn); err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}
	return conn
}

// GetTestConfig returns a standard test configuration
func GetTestConfig() cliparse.Config {
	return cliparse.Config{
		Port:           3318,
		DatabaseURL:    ":memory:",
		DatabaseType:   string(db.DialectSQLite),
		TokenSecret:    TestSecret,
		BaseURL:        "https://hoa.test",
		Timezone:       "UTC",
		SweepInterval:  time.Hour,
		WorkerInterval: time.Second,
	}
}

// Fixture is a seeded building with its apartments and owners.
type Fixture struct {
	BuildingID string
	// Apartments and Owners are indexed alike; an owner id is empty when the
	// apartment has no account.
	Apartments []string
	Owners     []string
}

// Unit describes one apartment to seed. An empty Email leaves the apartment
// without an owner account.
type Unit struct {
	Number string
	Mills  int64
	Email  string
}

// CreateTestBuilding seeds a building of the test tenant with the given
// apartments.
func CreateTestBuilding(t *testing.T, conn *sql.DB, totalMills int64, units ...Unit) Fixture {
	t.Helper()

	f := Fixture{BuildingID: auth.NewID()}
	_, err := conn.Exec(`
		INSERT INTO building (id, tenant_id, name, total_mills)
		VALUES ($1, $2, 'Test Building', $3)
	`, f.BuildingID, TestTenant, totalMills)
	if err != nil {
		t.Fatalf("Failed to create test building: %v", err)
	}

	for _, u := range units {
		var owner *string
		ownerID := ""
		if u.Email != "" {
			ownerID = CreateTestAccount(t, conn, u.Email, "Owner "+u.Number, "resident")
			owner = &ownerID
		}
		aptID := auth.NewID()
		_, err := conn.Exec(`
			INSERT INTO apartment (id, building_id, number, mills, owner_user_id)
			VALUES ($1, $2, $3, $4, $5)
		`, aptID, f.BuildingID, u.Number, u.Mills, owner)
		if err != nil {
			t.Fatalf("Failed to create test apartment: %v", err)
		}
		f.Apartments = append(f.Apartments, aptID)
		f.Owners = append(f.Owners, ownerID)
	}
	return f
}

// EvenUnits returns n apartments sharing total mills equally, each with an
// owner account.
func EvenUnits(n int, total int64) []Unit {
	units := make([]Unit, n)
	for i := range units {
		units[i] = Unit{
			Number: fmt.Sprintf("%d", 101+i),
			Mills:  total / int64(n),
			Email:  fmt.Sprintf("owner%d@example.com", 101+i),
		}
	}
	return units
}

// CreateTestAccount inserts a user account and returns its id.
func CreateTestAccount(t *testing.T, conn *sql.DB, email, name, role string) string {
	t.Helper()

	id := auth.NewID()
	_, err := conn.Exec(`
		INSERT INTO account (id, email, full_name, role)
		VALUES ($1, $2, $3, $4)
	`, id, email, name, role)
	if err != nil {
		t.Fatalf("Failed to create test account: %v", err)
	}
	return id
}

// CreateTestProject inserts a construction project for a building.
func CreateTestProject(t *testing.T, conn *sql.DB, buildingID, title string) string {
	t.Helper()

	id := auth.NewID()
	_, err := conn.Exec(`INSERT INTO project (id, building_id, title) VALUES ($1, $2, $3)`, id, buildingID, title)
	if err != nil {
		t.Fatalf("Failed to create test project: %v", err)
	}
	return id
}

// Manager returns a manager of the test tenant.
func Manager() auth.Actor {
	return auth.Actor{UserID: "manager-1", Role: auth.RoleManager, TenantID: TestTenant}
}

// Resident returns a resident of the test tenant.
func Resident(userID string) auth.Actor {
	return auth.Actor{UserID: userID, Role: auth.RoleResident, TenantID: TestTenant}
}

// BearerHeader returns an Authorization header carrying a token for actor.
func BearerHeader(t *testing.T, actor auth.Actor) map[string]string {
	t.Helper()

	token, err := auth.IssueActorToken(actor, TestSecret, time.Hour)
	if err != nil {
		t.Fatalf("Failed to issue actor token: %v", err)
	}
	return map[string]string{"Authorization": "Bearer " + token}
}

// Clock is a settable time source.
type Clock struct {
	T time.Time
}

func (c *Clock) Now() time.Time { return c.T }

// Advance moves the clock forward.
func (c *Clock) Advance(d time.Duration) { c.T = c.T.Add(d) }

// MakeRequest creates an HTTP test request
func MakeRequest(method, path string, body interface{}, headers map[string]string) *http.Request {
	var req *http.Request
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		req = httptest.NewRequest(method, path, bytes.NewReader(jsonBody))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return req
}

// AssertStatus checks that the response has the expected status code
func AssertStatus(t *testing.T, w *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if w.Code != expected {
		t.Errorf("Expected status %d, got %d. Body: %s", expected, w.Code, w.Body.String())
	}
}

// AssertJSON decodes the response body into the provided struct
func AssertJSON(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("Failed to decode JSON response: %v", err)
	}
}
