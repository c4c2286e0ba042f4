package health

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

type stubPoll struct {
	last   time.Time
	status string
}

func (s stubPoll) Status() (time.Time, string) { return s.last, s.status }

type stubBudget struct{ today, remaining int }

func (s stubBudget) CallsToday() int { return s.today }
func (s stubBudget) Remaining() int  { return s.remaining }

type stubCreds struct{ total, usable, cooling int }

func (s stubCreds) Status() (int, int, int) { return s.total, s.usable, s.cooling }

func testServer() *Server {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewServer(0,
		stubPoll{last: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC), status: "success"},
		stubBudget{today: 120, remaining: 4380},
		stubCreds{total: 3, usable: 2, cooling: 1},
		log)
}

func TestHealthResponse(t *testing.T) {
	s := testServer()
	rec := httptest.NewRecorder()
	s.handleHealth(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp healthResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Status != "healthy" {
		t.Errorf("status = %q", resp.Status)
	}
	if resp.LastPollStatus != "success" {
		t.Errorf("lastPollStatus = %q", resp.LastPollStatus)
	}
	if resp.LastPoll != "2026-03-01T12:00:00Z" {
		t.Errorf("lastPoll = %q", resp.LastPoll)
	}
	if resp.APICallsToday != 120 || resp.APICallsRemaining != 4380 {
		t.Errorf("budget = %d/%d", resp.APICallsToday, resp.APICallsRemaining)
	}
	if resp.CredentialsTotal != 3 || resp.CredentialsUsable != 2 || resp.CredentialsCooling != 1 {
		t.Errorf("credentials = %d/%d/%d", resp.CredentialsTotal, resp.CredentialsUsable, resp.CredentialsCooling)
	}
	if resp.Timestamp == "" || resp.Uptime == "" {
		t.Error("timestamp or uptime missing")
	}
}

func TestShutdownFlipsStatus(t *testing.T) {
	s := testServer()
	if err := s.Shutdown(context.Background()); err != nil {
		t.Fatal(err)
	}
	rec := httptest.NewRecorder()
	s.handleHealth(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	var resp healthResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Status != "shutting_down" {
		t.Fatalf("status = %q, want shutting_down", resp.Status)
	}
}

func TestHealthRejectsNonGet(t *testing.T) {
	s := testServer()
	rec := httptest.NewRecorder()
	s.handleHealth(rec, httptest.NewRequest(http.MethodPost, "/health", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d", rec.Code)
	}
}
