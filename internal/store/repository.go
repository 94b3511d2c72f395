package store

import (
	"context"
	"time"
)

// EmployeeStore provides access to the employees collection.
type EmployeeStore interface {
	// Get retrieves an employee by employee_id. Returns ErrNotFound if
	// no such employee exists.
	Get(ctx context.Context, employeeID string) (*Employee, error)
	// List returns employees matching the search term (diacritic-folded
	// name substring or exact employee_id). An empty term returns all.
	List(ctx context.Context, search string) ([]Employee, error)
	// ListEnrolled returns all employees with a face descriptor on file.
	// This is the population snapshot for matching; it is re-fetched per
	// request so enrollments take effect immediately.
	ListEnrolled(ctx context.Context) ([]Employee, error)
	// Insert creates a new employee. Returns ErrDuplicateEmployee when
	// the employee_id is taken.
	Insert(ctx context.Context, emp Employee) error
	// UpdateDescriptor replaces the employee's face descriptor and
	// enrollment image path.
	UpdateDescriptor(ctx context.Context, employeeID string, descriptor []float64, imagePath string) error
	// Delete removes the employee. Attendance cascade is the caller's
	// responsibility via PunchStore.DeleteByEmployee.
	Delete(ctx context.Context, employeeID string) error
	// Count returns the total number of employees.
	Count(ctx context.Context) (int, error)
}

// PunchStore provides access to the attendance collection.
type PunchStore interface {
	// FindOpen returns the most recent open punch for the employee and
	// day, or ErrNotFound when none exists.
	FindOpen(ctx context.Context, employeeID, date string) (*PunchRecord, error)
	// InsertOpen inserts a new open punch record, failing with
	// ErrOpenPunchExists if the employee already has an open punch for
	// the day. The existence check and insert are one isolated operation.
	InsertOpen(ctx context.Context, rec PunchRecord) (string, error)
	// ClosePunch sets the punch-out time, location and Completed status
	// on the record with the given id.
	ClosePunch(ctx context.Context, id string, out time.Time, lat, lon *float64, address string) error
	// Insert stores a record unconditionally (used for regularized
	// overlays, never for open punches).
	Insert(ctx context.Context, rec PunchRecord) (string, error)
	// FindCurrentByDay returns all non-historical records for the
	// employee and day, earliest punch-in first.
	FindCurrentByDay(ctx context.Context, employeeID, date string) ([]PunchRecord, error)
	// FindByEmployee returns every record for the employee, including
	// historical ones, newest date first.
	FindByEmployee(ctx context.Context, employeeID string) ([]PunchRecord, error)
	// MarkHistorical relabels every non-historical record for the
	// employee and day as Historical, returning how many were relabeled.
	MarkHistorical(ctx context.Context, employeeID, date string) (int, error)
	// DeleteByEmployee removes all records for the employee (admin
	// delete cascade).
	DeleteByEmployee(ctx context.Context, employeeID string) error
	// List returns non-historical records matching the filter plus the
	// total count before pagination.
	List(ctx context.Context, filter ListFilter) ([]PunchRecord, int, error)
	// Regularizations returns regularized records joined with their
	// historical originals, newest first, plus the total count.
	Regularizations(ctx context.Context, filter RegularizationFilter) ([]RegularizationEntry, int, error)
	// CountByStatus counts records with the given status.
	CountByStatus(ctx context.Context, status Status) (int, error)
	// FirstPunches returns each employee's earliest punch-in on the
	// given day, from non-historical records.
	FirstPunches(ctx context.Context, date string) ([]FirstPunch, error)
	// FindMissingAddress returns records that carry coordinates but no
	// resolved address (location backfill).
	FindMissingAddress(ctx context.Context) ([]PunchRecord, error)
	// UpdateAddress sets the punch-in address on the record with the
	// given id.
	UpdateAddress(ctx context.Context, id string, address string) error
}
