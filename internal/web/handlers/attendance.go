package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/argus/internal/ledger"
	"github.com/kozaktomas/argus/internal/store"
)

const defaultPerPage = 50

// AttendanceHandler handles attendance listing and history endpoints.
type AttendanceHandler struct {
	ledger    *ledger.Ledger
	employees store.EmployeeStore
	punches   store.PunchStore
}

// NewAttendanceHandler creates a new attendance handler.
func NewAttendanceHandler(led *ledger.Ledger, employees store.EmployeeStore, punches store.PunchStore) *AttendanceHandler {
	return &AttendanceHandler{ledger: led, employees: employees, punches: punches}
}

// List handles GET /api/v1/attendance, the admin view over raw punch
// records. Historical records are never included.
func (h *AttendanceHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if store.Status(q.Get("status")) == store.StatusHistorical {
		respondError(w, http.StatusBadRequest, "historical records cannot be listed")
		return
	}
	filter := store.ListFilter{
		StartDate:  q.Get("start_date"),
		EndDate:    q.Get("end_date"),
		EmployeeID: q.Get("emp_id"),
		Status:     store.Status(q.Get("status")),
		SortBy:     q.Get("sort_by"),
		SortAsc:    q.Get("order") == "asc",
		Page:       queryInt(q.Get("page"), 1),
		PerPage:    queryInt(q.Get("per_page"), defaultPerPage),
	}

	records, total, err := h.punches.List(r.Context(), filter)
	if err != nil {
		log.Printf("listing attendance failed: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to list attendance")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"records":  records,
		"total":    total,
		"page":     filter.Page,
		"per_page": filter.PerPage,
	})
}

// History handles GET /api/v1/employees/{id}/attendance, the per-day
// summary of one employee's attendance, newest day first.
func (h *AttendanceHandler) History(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := h.employees.Get(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondError(w, http.StatusNotFound, "employee not found")
			return
		}
		log.Printf("loading employee %s failed: %v", sanitizeForLog(id), err)
		respondError(w, http.StatusInternalServerError, "failed to load employee")
		return
	}

	days, err := h.ledger.History(r.Context(), id)
	if err != nil {
		log.Printf("loading history for %s failed: %v", sanitizeForLog(id), err)
		respondError(w, http.StatusInternalServerError, "failed to load attendance history")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"emp_id": id,
		"days":   days,
	})
}

// Today handles GET /api/v1/employees/{id}/attendance/today: the raw
// punch sessions of the current day plus the punched-in flag the kiosk
// uses to label its button.
func (h *AttendanceHandler) Today(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	sessions, punchedIn, err := h.ledger.TodaySessions(r.Context(), id)
	if err != nil {
		log.Printf("loading today for %s failed: %v", sanitizeForLog(id), err)
		respondError(w, http.StatusInternalServerError, "failed to load today's sessions")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"emp_id":     id,
		"sessions":   sessions,
		"punched_in": punchedIn,
	})
}

// queryInt parses a positive integer query parameter with a default.
func queryInt(s string, defaultVal int) int {
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}
