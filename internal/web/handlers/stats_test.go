package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kozaktomas/argus/internal/store"
)

func newStatsHandler(env *testEnv) *StatsHandler {
	h := NewStatsHandler(env.ledger, env.employees, env.punches)
	h.now = func() time.Time { return testNow }
	return h
}

func TestStatsCountsToday(t *testing.T) {
	env := newTestEnv(t, nil)
	seedEmployee(env, "EMP001", "Ada Lovelace", []float64{1, 0, 0})
	seedEmployee(env, "EMP002", "Grace Hopper", []float64{0, 1, 0})
	seedEmployee(env, "EMP003", "Alan Turing", []float64{0, 0, 1})

	// EMP001 on time and still in, EMP002 late and already out.
	env.punches.Add(store.PunchRecord{
		EmployeeID: "EMP001", Date: "2024-01-05",
		PunchIn: timePtr(timeAt(8, 55, 0)),
		Status:  store.StatusPresent,
	})
	env.punches.Add(store.PunchRecord{
		EmployeeID: "EMP002", Date: "2024-01-05",
		PunchIn: timePtr(timeAt(9, 20, 0)), PunchOut: timePtr(timeAt(10, 0, 0)),
		Status: store.StatusCompleted,
	})

	handler := newStatsHandler(env)
	rec := httptest.NewRecorder()
	handler.Get(rec, httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := decodeResponse(t, rec)

	expect := map[string]float64{
		"total_employees": 3,
		"present_today":   2,
		"active_now":      1,
		"completed_today": 1,
		"late_today":      1,
		"absent_today":    1,
	}
	for key, want := range expect {
		if body[key] != want {
			t.Errorf("%s: expected %v, got %v", key, want, body[key])
		}
	}
}

func TestStatsServedFromCache(t *testing.T) {
	env := newTestEnv(t, nil)
	seedEmployee(env, "EMP001", "Ada Lovelace", []float64{1, 0, 0})

	handler := newStatsHandler(env)
	rec := httptest.NewRecorder()
	handler.Get(rec, httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	// A change within the TTL is not visible yet.
	seedEmployee(env, "EMP002", "Grace Hopper", []float64{0, 1, 0})
	rec = httptest.NewRecorder()
	handler.Get(rec, httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil))
	body := decodeResponse(t, rec)
	if body["total_employees"] != 1.0 {
		t.Errorf("expected cached total 1, got %v", body["total_employees"])
	}
}

func TestStatsStoreError(t *testing.T) {
	env := newTestEnv(t, nil)
	env.punches.FindError = errTest
	handler := newStatsHandler(env)

	rec := httptest.NewRecorder()
	handler.Get(rec, httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500 on store error, got %d", rec.Code)
	}
}
