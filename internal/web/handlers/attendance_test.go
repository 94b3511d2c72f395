package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kozaktomas/argus/internal/store"
)

func TestAttendanceListExcludesHistorical(t *testing.T) {
	env := newTestEnv(t, nil)
	env.punches.Add(store.PunchRecord{
		EmployeeID: "EMP001", Date: "2024-01-05",
		PunchIn: timePtr(timeAt(9, 0, 0)), PunchOut: timePtr(timeAt(17, 0, 0)),
		Status: store.StatusCompleted,
	})
	env.punches.Add(store.PunchRecord{
		EmployeeID: "EMP001", Date: "2024-01-04",
		PunchIn: timePtr(timeAt(9, 0, 0)),
		Status:  store.StatusHistorical,
	})
	handler := NewAttendanceHandler(env.ledger, env.employees, env.punches)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/attendance", nil)
	rec := httptest.NewRecorder()
	handler.List(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := decodeResponse(t, rec)
	if body["total"] != 1.0 {
		t.Errorf("expected historical records excluded, total %v", body["total"])
	}
}

func TestAttendanceListRejectsHistoricalFilter(t *testing.T) {
	env := newTestEnv(t, nil)
	handler := NewAttendanceHandler(env.ledger, env.employees, env.punches)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/attendance?status=Historical", nil)
	rec := httptest.NewRecorder()
	handler.List(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for historical status filter, got %d", rec.Code)
	}
}

func TestAttendanceListFilters(t *testing.T) {
	env := newTestEnv(t, nil)
	env.punches.Add(store.PunchRecord{
		EmployeeID: "EMP001", Date: "2024-01-03",
		PunchIn: timePtr(timeAt(9, 0, 0)), Status: store.StatusPresent,
	})
	env.punches.Add(store.PunchRecord{
		EmployeeID: "EMP002", Date: "2024-01-05",
		PunchIn: timePtr(timeAt(9, 0, 0)), Status: store.StatusPresent,
	})
	handler := NewAttendanceHandler(env.ledger, env.employees, env.punches)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/attendance?emp_id=EMP002&start_date=2024-01-04", nil)
	rec := httptest.NewRecorder()
	handler.List(rec, req)

	body := decodeResponse(t, rec)
	if body["total"] != 1.0 {
		t.Errorf("expected one filtered record, got %v", body["total"])
	}
}

func TestHistoryUnknownEmployee(t *testing.T) {
	env := newTestEnv(t, nil)
	handler := NewAttendanceHandler(env.ledger, env.employees, env.punches)

	req := requestWithChiParams(
		httptest.NewRequest(http.MethodGet, "/api/v1/employees/EMP404/attendance", nil),
		map[string]string{"id": "EMP404"},
	)
	rec := httptest.NewRecorder()
	handler.History(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestHistoryReturnsDaySummaries(t *testing.T) {
	env := newTestEnv(t, nil)
	seedEmployee(env, "EMP001", "Ada Lovelace", []float64{1, 0, 0})
	env.punches.Add(store.PunchRecord{
		EmployeeID: "EMP001", Date: "2024-01-05",
		PunchIn: timePtr(timeAt(8, 30, 0)), PunchOut: timePtr(timeAt(17, 0, 0)),
		Status: store.StatusCompleted,
	})
	handler := NewAttendanceHandler(env.ledger, env.employees, env.punches)

	req := requestWithChiParams(
		httptest.NewRequest(http.MethodGet, "/api/v1/employees/EMP001/attendance", nil),
		map[string]string{"id": "EMP001"},
	)
	rec := httptest.NewRecorder()
	handler.History(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := decodeResponse(t, rec)
	days, ok := body["days"].([]any)
	if !ok || len(days) != 1 {
		t.Fatalf("expected one day summary, got %v", body["days"])
	}
	day := days[0].(map[string]any)
	if day["work_hours"] != "08:30" {
		t.Errorf("expected work hours 08:30, got %v", day["work_hours"])
	}
	if day["status"] != "Present" {
		t.Errorf("expected Present status for on-time day, got %v", day["status"])
	}
}

func TestTodayReportsPunchedIn(t *testing.T) {
	env := newTestEnv(t, nil)
	seedEmployee(env, "EMP001", "Ada Lovelace", []float64{1, 0, 0})

	// TodaySessions keys on the real wall clock day.
	now := time.Now()
	env.punches.Add(store.PunchRecord{
		EmployeeID: "EMP001",
		Date:       now.Format(store.DateFormat),
		PunchIn:    timePtr(now.Add(-time.Hour)),
		Status:     store.StatusPresent,
	})
	handler := NewAttendanceHandler(env.ledger, env.employees, env.punches)

	req := requestWithChiParams(
		httptest.NewRequest(http.MethodGet, "/api/v1/employees/EMP001/attendance/today", nil),
		map[string]string{"id": "EMP001"},
	)
	rec := httptest.NewRecorder()
	handler.Today(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := decodeResponse(t, rec)
	if body["punched_in"] != true {
		t.Errorf("expected punched_in true, got %v", body["punched_in"])
	}
}

func TestQueryInt(t *testing.T) {
	if got := queryInt("", 50); got != 50 {
		t.Errorf("expected default 50, got %d", got)
	}
	if got := queryInt("3", 50); got != 3 {
		t.Errorf("expected 3, got %d", got)
	}
	if got := queryInt("-1", 50); got != 50 {
		t.Errorf("expected default for negative value, got %d", got)
	}
	if got := queryInt("abc", 50); got != 50 {
		t.Errorf("expected default for junk, got %d", got)
	}
}
