// Package mock provides in-memory implementations of the store interfaces
// for testing.
package mock

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kozaktomas/argus/internal/facematch"
	"github.com/kozaktomas/argus/internal/store"
)

// EmployeeStore is an in-memory implementation of store.EmployeeStore.
type EmployeeStore struct {
	mu        sync.RWMutex
	employees map[string]store.Employee
	order     []string

	// Error injection
	GetError    error
	ListError   error
	InsertError error
	UpdateError error
	DeleteError error
}

// NewEmployeeStore creates an empty in-memory employee store.
func NewEmployeeStore() *EmployeeStore {
	return &EmployeeStore{employees: make(map[string]store.Employee)}
}

// Add seeds an employee without duplicate checks.
func (m *EmployeeStore) Add(emp store.Employee) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.employees[emp.EmployeeID]; !ok {
		m.order = append(m.order, emp.EmployeeID)
	}
	m.employees[emp.EmployeeID] = emp
}

// Get retrieves an employee by employee_id.
func (m *EmployeeStore) Get(ctx context.Context, employeeID string) (*store.Employee, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	emp, ok := m.employees[employeeID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &emp, nil
}

// List returns employees matching the search term.
func (m *EmployeeStore) List(ctx context.Context, search string) ([]store.Employee, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	needle := facematch.NormalizeName(search)
	var result []store.Employee
	for _, id := range m.order {
		emp := m.employees[id]
		if needle == "" || emp.EmployeeID == search ||
			strings.Contains(facematch.NormalizeName(emp.FullName), needle) {
			result = append(result, emp)
		}
	}
	return result, nil
}

// ListEnrolled returns all employees with a face descriptor.
func (m *EmployeeStore) ListEnrolled(ctx context.Context) ([]store.Employee, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []store.Employee
	for _, id := range m.order {
		if emp := m.employees[id]; emp.Enrolled() {
			result = append(result, emp)
		}
	}
	return result, nil
}

// Insert creates a new employee, rejecting duplicate ids.
func (m *EmployeeStore) Insert(ctx context.Context, emp store.Employee) error {
	if m.InsertError != nil {
		return m.InsertError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.employees[emp.EmployeeID]; ok {
		return store.ErrDuplicateEmployee
	}
	m.employees[emp.EmployeeID] = emp
	m.order = append(m.order, emp.EmployeeID)
	return nil
}

// UpdateDescriptor replaces the employee's descriptor and image path.
func (m *EmployeeStore) UpdateDescriptor(ctx context.Context, employeeID string, descriptor []float64, imagePath string) error {
	if m.UpdateError != nil {
		return m.UpdateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	emp, ok := m.employees[employeeID]
	if !ok {
		return store.ErrNotFound
	}
	emp.Descriptor = descriptor
	emp.ImagePath = imagePath
	m.employees[employeeID] = emp
	return nil
}

// Delete removes the employee.
func (m *EmployeeStore) Delete(ctx context.Context, employeeID string) error {
	if m.DeleteError != nil {
		return m.DeleteError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.employees[employeeID]; !ok {
		return store.ErrNotFound
	}
	delete(m.employees, employeeID)
	for i, id := range m.order {
		if id == employeeID {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

// Count returns the number of employees.
func (m *EmployeeStore) Count(ctx context.Context) (int, error) {
	if m.ListError != nil {
		return 0, m.ListError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.employees), nil
}

// PunchStore is an in-memory implementation of store.PunchStore. Writes are
// serialized with a mutex, so the single-open-punch invariant holds under
// concurrent use just as the conditional insert does in MongoDB.
type PunchStore struct {
	mu      sync.RWMutex
	records []store.PunchRecord

	// Error injection
	FindError   error
	InsertError error
	UpdateError error
	DeleteError error
}

// NewPunchStore creates an empty in-memory punch store.
func NewPunchStore() *PunchStore {
	return &PunchStore{}
}

// Add seeds a record, assigning an id if it has none.
func (m *PunchStore) Add(rec store.PunchRecord) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	m.records = append(m.records, rec)
	return rec.ID
}

// All returns a copy of every stored record, for test assertions.
func (m *PunchStore) All() []store.PunchRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]store.PunchRecord, len(m.records))
	copy(out, m.records)
	return out
}

// FindOpen returns the most recent open punch for the employee and day.
func (m *PunchStore) FindOpen(ctx context.Context, employeeID, date string) (*store.PunchRecord, error) {
	if m.FindError != nil {
		return nil, m.FindError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.findOpenLocked(employeeID, date)
}

func (m *PunchStore) findOpenLocked(employeeID, date string) (*store.PunchRecord, error) {
	var latest *store.PunchRecord
	for i := range m.records {
		rec := &m.records[i]
		if rec.EmployeeID != employeeID || rec.Date != date || !rec.Open() {
			continue
		}
		if latest == nil || (rec.PunchIn != nil && latest.PunchIn != nil && rec.PunchIn.After(*latest.PunchIn)) {
			latest = rec
		}
	}
	if latest == nil {
		return nil, store.ErrNotFound
	}
	out := *latest
	return &out, nil
}

// InsertOpen inserts an open punch unless one already exists for the day.
func (m *PunchStore) InsertOpen(ctx context.Context, rec store.PunchRecord) (string, error) {
	if m.InsertError != nil {
		return "", m.InsertError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, err := m.findOpenLocked(rec.EmployeeID, rec.Date); err == nil {
		return "", store.ErrOpenPunchExists
	}
	rec.ID = uuid.NewString()
	m.records = append(m.records, rec)
	return rec.ID, nil
}

// ClosePunch records the punch-out on the record with the given id.
func (m *PunchStore) ClosePunch(ctx context.Context, id string, out time.Time, lat, lon *float64, address string) error {
	if m.UpdateError != nil {
		return m.UpdateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.records {
		if m.records[i].ID != id {
			continue
		}
		t := out
		m.records[i].PunchOut = &t
		m.records[i].OutLatitude = lat
		m.records[i].OutLongitude = lon
		m.records[i].OutAddress = address
		m.records[i].Status = store.StatusCompleted
		return nil
	}
	return store.ErrNotFound
}

// Insert stores a record unconditionally.
func (m *PunchStore) Insert(ctx context.Context, rec store.PunchRecord) (string, error) {
	if m.InsertError != nil {
		return "", m.InsertError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	rec.ID = uuid.NewString()
	m.records = append(m.records, rec)
	return rec.ID, nil
}

// FindCurrentByDay returns non-historical records for the employee and day.
func (m *PunchStore) FindCurrentByDay(ctx context.Context, employeeID, date string) ([]store.PunchRecord, error) {
	if m.FindError != nil {
		return nil, m.FindError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []store.PunchRecord
	for i := range m.records {
		rec := m.records[i]
		if rec.EmployeeID == employeeID && rec.Date == date && rec.Status != store.StatusHistorical {
			result = append(result, rec)
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		return earlier(result[i].PunchIn, result[j].PunchIn)
	})
	return result, nil
}

// FindByEmployee returns every record for the employee, newest date first.
func (m *PunchStore) FindByEmployee(ctx context.Context, employeeID string) ([]store.PunchRecord, error) {
	if m.FindError != nil {
		return nil, m.FindError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []store.PunchRecord
	for i := range m.records {
		if m.records[i].EmployeeID == employeeID {
			result = append(result, m.records[i])
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		if result[i].Date != result[j].Date {
			return result[i].Date > result[j].Date
		}
		return earlier(result[i].PunchIn, result[j].PunchIn)
	})
	return result, nil
}

// MarkHistorical relabels the day's non-historical records.
func (m *PunchStore) MarkHistorical(ctx context.Context, employeeID, date string) (int, error) {
	if m.UpdateError != nil {
		return 0, m.UpdateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	count := 0
	for i := range m.records {
		rec := &m.records[i]
		if rec.EmployeeID == employeeID && rec.Date == date && rec.Status != store.StatusHistorical {
			rec.Status = store.StatusHistorical
			count++
		}
	}
	return count, nil
}

// DeleteByEmployee removes every record for the employee.
func (m *PunchStore) DeleteByEmployee(ctx context.Context, employeeID string) error {
	if m.DeleteError != nil {
		return m.DeleteError
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.records[:0]
	for i := range m.records {
		if m.records[i].EmployeeID != employeeID {
			kept = append(kept, m.records[i])
		}
	}
	m.records = kept
	return nil
}

// List returns non-historical records matching the filter.
func (m *PunchStore) List(ctx context.Context, filter store.ListFilter) ([]store.PunchRecord, int, error) {
	if m.FindError != nil {
		return nil, 0, m.FindError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var matched []store.PunchRecord
	for i := range m.records {
		rec := m.records[i]
		if rec.Status == store.StatusHistorical {
			continue
		}
		if filter.StartDate != "" && rec.Date < filter.StartDate {
			continue
		}
		if filter.EndDate != "" && rec.Date > filter.EndDate {
			continue
		}
		if filter.EmployeeID != "" && rec.EmployeeID != filter.EmployeeID {
			continue
		}
		if filter.Status != "" && rec.Status != filter.Status {
			continue
		}
		matched = append(matched, rec)
	}

	sort.SliceStable(matched, func(i, j int) bool {
		var less bool
		switch filter.SortBy {
		case "punch_in":
			less = earlier(matched[i].PunchIn, matched[j].PunchIn)
		case "punch_out":
			less = earlier(matched[i].PunchOut, matched[j].PunchOut)
		default:
			less = matched[i].Date < matched[j].Date
		}
		if filter.SortAsc {
			return less
		}
		return !less
	})

	total := len(matched)
	return paginate(matched, filter.Page, filter.PerPage), total, nil
}

// Regularizations returns regularized records joined with their originals.
func (m *PunchStore) Regularizations(ctx context.Context, filter store.RegularizationFilter) ([]store.RegularizationEntry, int, error) {
	if m.FindError != nil {
		return nil, 0, m.FindError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var entries []store.RegularizationEntry
	for i := range m.records {
		rec := m.records[i]
		if rec.Status != store.StatusRegularized {
			continue
		}
		if filter.EmployeeID != "" && rec.EmployeeID != filter.EmployeeID {
			continue
		}
		if filter.StartDate != "" && rec.Date < filter.StartDate {
			continue
		}
		if filter.EndDate != "" && rec.Date > filter.EndDate {
			continue
		}
		entry := store.RegularizationEntry{Record: rec}
		if orig := m.earliestHistoricalLocked(rec.EmployeeID, rec.Date); orig != nil {
			entry.OriginalPunchIn = orig.PunchIn
			entry.OriginalPunchOut = orig.PunchOut
		}
		entries = append(entries, entry)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Record.Date != entries[j].Record.Date {
			return entries[i].Record.Date > entries[j].Record.Date
		}
		return !earlier(entries[i].Record.RegularizedAt, entries[j].Record.RegularizedAt)
	})

	total := len(entries)
	return paginate(entries, filter.Page, filter.PerPage), total, nil
}

func (m *PunchStore) earliestHistoricalLocked(employeeID, date string) *store.PunchRecord {
	var earliest *store.PunchRecord
	for i := range m.records {
		rec := &m.records[i]
		if rec.EmployeeID != employeeID || rec.Date != date || rec.Status != store.StatusHistorical {
			continue
		}
		if earliest == nil || earlier(rec.PunchIn, earliest.PunchIn) {
			earliest = rec
		}
	}
	return earliest
}

// CountByStatus counts records with the given status.
func (m *PunchStore) CountByStatus(ctx context.Context, status store.Status) (int, error) {
	if m.FindError != nil {
		return 0, m.FindError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	count := 0
	for i := range m.records {
		if m.records[i].Status == status {
			count++
		}
	}
	return count, nil
}

// FirstPunches returns each employee's earliest punch-in on the day.
func (m *PunchStore) FirstPunches(ctx context.Context, date string) ([]store.FirstPunch, error) {
	if m.FindError != nil {
		return nil, m.FindError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	first := make(map[string]time.Time)
	var order []string
	for i := range m.records {
		rec := &m.records[i]
		if rec.Date != date || rec.Status == store.StatusHistorical || rec.PunchIn == nil {
			continue
		}
		existing, ok := first[rec.EmployeeID]
		if !ok {
			order = append(order, rec.EmployeeID)
			first[rec.EmployeeID] = *rec.PunchIn
		} else if rec.PunchIn.Before(existing) {
			first[rec.EmployeeID] = *rec.PunchIn
		}
	}

	result := make([]store.FirstPunch, 0, len(order))
	for _, id := range order {
		result = append(result, store.FirstPunch{EmployeeID: id, PunchIn: first[id]})
	}
	return result, nil
}

// FindMissingAddress returns records with coordinates but no address.
func (m *PunchStore) FindMissingAddress(ctx context.Context) ([]store.PunchRecord, error) {
	if m.FindError != nil {
		return nil, m.FindError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []store.PunchRecord
	for i := range m.records {
		rec := m.records[i]
		if rec.Latitude != nil && rec.Longitude != nil && rec.Address == "" {
			result = append(result, rec)
		}
	}
	return result, nil
}

// UpdateAddress sets the punch-in address on the record.
func (m *PunchStore) UpdateAddress(ctx context.Context, id string, address string) error {
	if m.UpdateError != nil {
		return m.UpdateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.records {
		if m.records[i].ID == id {
			m.records[i].Address = address
			return nil
		}
	}
	return store.ErrNotFound
}

// earlier orders possibly-nil timestamps; nil sorts first.
func earlier(a, b *time.Time) bool {
	if a == nil {
		return b != nil
	}
	if b == nil {
		return false
	}
	return a.Before(*b)
}

func paginate[T any](items []T, page, perPage int) []T {
	if perPage <= 0 {
		return items
	}
	if page < 1 {
		page = 1
	}
	start := (page - 1) * perPage
	if start >= len(items) {
		return nil
	}
	end := start + perPage
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}
