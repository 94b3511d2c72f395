package handlers

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/argus/internal/ledger"
	"github.com/kozaktomas/argus/internal/store"
)

// RegularizeHandler handles attendance correction endpoints.
type RegularizeHandler struct {
	ledger    *ledger.Ledger
	employees store.EmployeeStore
	punches   store.PunchStore
}

// NewRegularizeHandler creates a new regularization handler.
func NewRegularizeHandler(led *ledger.Ledger, employees store.EmployeeStore, punches store.PunchStore) *RegularizeHandler {
	return &RegularizeHandler{ledger: led, employees: employees, punches: punches}
}

type regularizeRecord struct {
	Date     string `json:"date"`                // YYYY-MM-DD
	PunchIn  string `json:"punch_in,omitempty"`  // HH:MM, local time
	PunchOut string `json:"punch_out,omitempty"` // HH:MM, local time
	Reason   string `json:"reason"`
	Comments string `json:"comments,omitempty"`
}

type regularizeBatch struct {
	Records []regularizeRecord `json:"records"`
}

// Create handles POST /api/v1/employees/{id}/regularize. Each correction
// supersedes the day's records with a new one; times not supplied keep
// the originals. The whole batch is validated before any day is touched.
func (h *RegularizeHandler) Create(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req regularizeBatch
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	if len(req.Records) == 0 {
		respondError(w, http.StatusBadRequest, "records are required")
		return
	}
	if _, err := h.employees.Get(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondError(w, http.StatusNotFound, "employee not found")
			return
		}
		log.Printf("loading employee %s failed: %v", sanitizeForLog(id), err)
		respondError(w, http.StatusInternalServerError, "failed to load employee")
		return
	}

	corrections := make([]ledger.RegularizationRequest, 0, len(req.Records))
	for _, rec := range req.Records {
		if rec.Date == "" {
			respondError(w, http.StatusBadRequest, "date is required for every record")
			return
		}
		if rec.Reason == "" {
			respondError(w, http.StatusBadRequest, "reason is required for every record")
			return
		}
		punchIn, err := parseDayTime(rec.Date, rec.PunchIn)
		if err != nil {
			respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid punch_in for %s: %v", rec.Date, err))
			return
		}
		punchOut, err := parseDayTime(rec.Date, rec.PunchOut)
		if err != nil {
			respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid punch_out for %s: %v", rec.Date, err))
			return
		}
		corrections = append(corrections, ledger.RegularizationRequest{
			Date:     rec.Date,
			PunchIn:  punchIn,
			PunchOut: punchOut,
			Reason:   rec.Reason,
			Comments: rec.Comments,
		})
	}

	created := make([]*store.PunchRecord, 0, len(corrections))
	for _, correction := range corrections {
		rec, err := h.ledger.Regularize(r.Context(), id, correction)
		if err != nil {
			switch {
			case errors.Is(err, ledger.ErrMissingReason), errors.Is(err, ledger.ErrInvalidDate):
				respondError(w, http.StatusBadRequest, err.Error())
			default:
				log.Printf("regularization for %s failed: %v", sanitizeForLog(id), err)
				respondError(w, http.StatusInternalServerError, "regularization failed")
			}
			return
		}
		created = append(created, rec)
	}
	respondJSON(w, http.StatusCreated, map[string]any{
		"regularized": created,
		"count":       len(created),
	})
}

// List handles GET /api/v1/regularizations, the audit view joining each
// correction with the punch times it replaced.
func (h *RegularizeHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.RegularizationFilter{
		EmployeeID: q.Get("emp_id"),
		StartDate:  q.Get("start_date"),
		EndDate:    q.Get("end_date"),
		Page:       queryInt(q.Get("page"), 1),
		PerPage:    queryInt(q.Get("per_page"), defaultPerPage),
	}

	entries, total, err := h.punches.Regularizations(r.Context(), filter)
	if err != nil {
		log.Printf("listing regularizations failed: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to list regularizations")
		return
	}

	type entry struct {
		store.PunchRecord
		OriginalPunchIn  *time.Time `json:"original_punch_in,omitempty"`
		OriginalPunchOut *time.Time `json:"original_punch_out,omitempty"`
	}
	out := make([]entry, 0, len(entries))
	for _, e := range entries {
		out = append(out, entry{
			PunchRecord:      e.Record,
			OriginalPunchIn:  e.OriginalPunchIn,
			OriginalPunchOut: e.OriginalPunchOut,
		})
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"regularizations": out,
		"total":           total,
		"page":            filter.Page,
		"per_page":        filter.PerPage,
	})
}

// parseDayTime combines a date and an "HH:MM" wall clock time in local
// time. An empty time string yields nil.
func parseDayTime(date, clock string) (*time.Time, error) {
	if clock == "" {
		return nil, nil
	}
	ts, err := time.ParseInLocation("2006-01-02 15:04", date+" "+clock, time.Local)
	if err != nil {
		return nil, fmt.Errorf("expected HH:MM, got %q", clock)
	}
	return &ts, nil
}
