package handlers

import (
	"context"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/kozaktomas/argus/internal/ledger"
	"github.com/kozaktomas/argus/internal/store"
)

const statsCacheTTL = time.Minute

// statsCache holds cached dashboard stats with expiry. Punches arrive
// every few seconds on busy mornings; the dashboard does not need to
// recount on every poll.
type statsCache struct {
	mu        sync.RWMutex
	data      *StatsResponse
	expiresAt time.Time
}

func (c *statsCache) get() (*StatsResponse, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.data == nil || time.Now().After(c.expiresAt) {
		return nil, false
	}
	return c.data, true
}

func (c *statsCache) set(data *StatsResponse) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = data
	c.expiresAt = time.Now().Add(statsCacheTTL)
}

// StatsResponse is the dashboard summary for the current day.
type StatsResponse struct {
	Date            string `json:"date"`
	TotalEmployees  int    `json:"total_employees"`
	PresentToday    int    `json:"present_today"`
	ActiveNow       int    `json:"active_now"`
	CompletedToday  int    `json:"completed_today"`
	LateToday       int    `json:"late_today"`
	AbsentToday     int    `json:"absent_today"`
	Regularizations int    `json:"regularizations"`
}

// StatsHandler handles the dashboard statistics endpoint.
type StatsHandler struct {
	ledger    *ledger.Ledger
	employees store.EmployeeStore
	punches   store.PunchStore
	cache     statsCache
	now       func() time.Time
}

// NewStatsHandler creates a new stats handler.
func NewStatsHandler(led *ledger.Ledger, employees store.EmployeeStore, punches store.PunchStore) *StatsHandler {
	return &StatsHandler{
		ledger:    led,
		employees: employees,
		punches:   punches,
		now:       time.Now,
	}
}

// Get handles GET /api/v1/stats.
func (h *StatsHandler) Get(w http.ResponseWriter, r *http.Request) {
	if cached, ok := h.cache.get(); ok {
		respondJSON(w, http.StatusOK, cached)
		return
	}

	stats, err := h.compute(r.Context())
	if err != nil {
		log.Printf("computing stats failed: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to compute stats")
		return
	}
	h.cache.set(stats)
	respondJSON(w, http.StatusOK, stats)
}

func (h *StatsHandler) compute(ctx context.Context) (*StatsResponse, error) {
	today := h.now().Format(store.DateFormat)

	total, err := h.employees.Count(ctx)
	if err != nil {
		return nil, err
	}

	firsts, err := h.punches.FirstPunches(ctx, today)
	if err != nil {
		return nil, err
	}
	late := 0
	for _, f := range firsts {
		if h.ledger.Late(f.PunchIn) {
			late++
		}
	}

	_, active, err := h.punches.List(ctx, store.ListFilter{
		StartDate: today, EndDate: today, Status: store.StatusPresent,
	})
	if err != nil {
		return nil, err
	}
	_, completed, err := h.punches.List(ctx, store.ListFilter{
		StartDate: today, EndDate: today, Status: store.StatusCompleted,
	})
	if err != nil {
		return nil, err
	}

	regularized, err := h.punches.CountByStatus(ctx, store.StatusRegularized)
	if err != nil {
		return nil, err
	}

	absent := total - len(firsts)
	if absent < 0 {
		absent = 0
	}

	return &StatsResponse{
		Date:            today,
		TotalEmployees:  total,
		PresentToday:    len(firsts),
		ActiveNow:       active,
		CompletedToday:  completed,
		LateToday:       late,
		AbsentToday:     absent,
		Regularizations: regularized,
	}, nil
}
