package web

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	_ "github.com/lib/pq"

	"deathpool-service/config"
	"deathpool-service/services"
	"deathpool-service/timezone"
)

// testServer wires a full router without touching the database: sql.Open
// is lazy, so handlers that fail validation before their first query run
// fine without a server behind them.
func testServer(t *testing.T) *Server {
	t.Helper()

	db, err := sql.Open("postgres", "postgres://localhost:5432/unused?sslmode=disable")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	clock, err := timezone.NewClock("UTC")
	if err != nil {
		t.Fatalf("clock: %v", err)
	}

	cfg := &config.Config{
		Port:       "0",
		AdminToken: "secret-token",
	}
	return NewServer(cfg, db, NewHub(), clock, services.NewInMemoryBroker(16))
}

func doRequest(t *testing.T, s *Server, method, path, body, adminToken string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if adminToken != "" {
		req.Header.Set("X-Admin-Token", adminToken)
	}
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoint(t *testing.T) {
	s := testServer(t)
	rec := doRequest(t, s, "GET", "/api/health", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestCurrentTimeEndpoint(t *testing.T) {
	s := testServer(t)
	rec := doRequest(t, s, "GET", "/api/current_time", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var body map[string]int
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	for _, key := range []string{"hour", "minute", "second"} {
		if _, ok := body[key]; !ok {
			t.Errorf("missing %q in response", key)
		}
	}
}

func TestAdminRoutesRequireToken(t *testing.T) {
	s := testServer(t)

	paths := []struct {
		method, path string
	}{
		{"POST", "/api/admin/shows"},
		{"POST", "/api/admin/shows/1/start"},
		{"POST", "/api/admin/shows/1/start_vote"},
		{"DELETE", "/api/admin/shows/1"},
		{"GET", "/api/admin/players"},
	}
	for _, p := range paths {
		rec := doRequest(t, s, p.method, p.path, "", "")
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s %s without token: expected 401, got %d", p.method, p.path, rec.Code)
		}
		rec = doRequest(t, s, p.method, p.path, "", "wrong-token")
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s %s with bad token: expected 401, got %d", p.method, p.path, rec.Code)
		}
	}
}

func TestEmptyAdminTokenNeverMatches(t *testing.T) {
	s := testServer(t)
	s.config.AdminToken = ""

	rec := doRequest(t, s, "GET", "/api/admin/players", "", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 with unset admin token, got %d", rec.Code)
	}
}

func TestCreateShowValidation(t *testing.T) {
	s := testServer(t)

	cases := []struct {
		name string
		body string
	}{
		{"garbage body", "{not json"},
		{"bad scheduled format", `{"scheduled": "tomorrow", "length": 60, "player_ids": [1]}`},
		{"interval outside length", `{"scheduled": "2026-09-01 20:00", "length": 60, "player_ids": [1], "intervals": [75]}`},
		{"negative interval", `{"scheduled": "2026-09-01 20:00", "length": 60, "player_ids": [1], "intervals": [-5]}`},
	}
	for _, tc := range cases {
		rec := doRequest(t, s, "POST", "/api/admin/shows", tc.body, "secret-token")
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", tc.name, rec.Code)
		}
	}
}

func TestLiveVoteRejectsBadBody(t *testing.T) {
	s := testServer(t)
	rec := doRequest(t, s, "POST", "/api/live_vote", "{not json", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestStartVoteRequiresVoteType(t *testing.T) {
	s := testServer(t)
	rec := doRequest(t, s, "POST", "/api/admin/shows/1/start_vote", `{}`, "secret-token")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestSuggestionListRequiresPool(t *testing.T) {
	s := testServer(t)
	rec := doRequest(t, s, "GET", "/api/suggestions", "", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}
