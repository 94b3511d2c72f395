// Package store defines the document types and repository interfaces for
// the attendance data. Implementations live in the mongo and mock
// subpackages.
package store

import (
	"errors"
	"time"
)

// Sentinel errors returned by repository implementations.
var (
	// ErrNotFound is returned when a requested document does not exist.
	ErrNotFound = errors.New("document not found")

	// ErrDuplicateEmployee is returned when inserting an employee whose
	// employee_id is already taken.
	ErrDuplicateEmployee = errors.New("employee ID already exists")

	// ErrOpenPunchExists is returned by InsertOpen when the employee
	// already has an open punch for the day. The check and the insert are
	// a single operation so concurrent punch-ins cannot both succeed.
	ErrOpenPunchExists = errors.New("open punch already exists")
)

// Status is the stored lifecycle state of a punch record. Display-only
// states (Active, Late, Absent) are derived by the ledger, never stored.
type Status string

const (
	// StatusPresent marks a freshly created punch-in with no punch-out yet.
	StatusPresent Status = "Present"
	// StatusCompleted marks a record whose punch-out has been recorded.
	StatusCompleted Status = "Completed"
	// StatusRegularized marks the authoritative record inserted by a
	// regularization request.
	StatusRegularized Status = "Regularized"
	// StatusHistorical marks a superseded record retained for audit.
	// Historical records are excluded from every "current" query.
	StatusHistorical Status = "Historical"
)

// DateFormat is the calendar-day key format used across the attendance
// collection (local time, ISO form).
const DateFormat = "2006-01-02"

// Employee is one enrolled (or pending-enrollment) identity.
type Employee struct {
	EmployeeID string    `bson:"emp_id" json:"emp_id"`
	FullName   string    `bson:"full_name" json:"full_name"`
	Descriptor []float64 `bson:"face_descriptor,omitempty" json:"-"`
	ImagePath  string    `bson:"image_path,omitempty" json:"image_path,omitempty"`
	Department string    `bson:"department,omitempty" json:"department,omitempty"`
	Position   string    `bson:"position,omitempty" json:"position,omitempty"`
	CreatedAt  time.Time `bson:"created_at" json:"created_at"`
}

// Enrolled reports whether the employee has a face descriptor on file.
func (e *Employee) Enrolled() bool {
	return len(e.Descriptor) > 0
}

// PunchRecord is one punch session document. A record with PunchIn set and
// PunchOut nil whose status is not Historical is an "open" punch; at most
// one open record may exist per (employee, date).
type PunchRecord struct {
	ID         string     `bson:"_id,omitempty" json:"id"`
	EmployeeID string     `bson:"emp_id" json:"emp_id"`
	Date       string     `bson:"date" json:"date"`
	PunchIn    *time.Time `bson:"punch_in" json:"punch_in,omitempty"`
	PunchOut   *time.Time `bson:"punch_out" json:"punch_out,omitempty"`

	Latitude  *float64 `bson:"latitude,omitempty" json:"latitude,omitempty"`
	Longitude *float64 `bson:"longitude,omitempty" json:"longitude,omitempty"`
	Address   string   `bson:"address,omitempty" json:"address,omitempty"`

	OutLatitude  *float64 `bson:"punch_out_latitude,omitempty" json:"punch_out_latitude,omitempty"`
	OutLongitude *float64 `bson:"punch_out_longitude,omitempty" json:"punch_out_longitude,omitempty"`
	OutAddress   string   `bson:"punch_out_address,omitempty" json:"punch_out_address,omitempty"`

	Status Status `bson:"status" json:"status"`

	RegularizedReason   string     `bson:"regularized_reason,omitempty" json:"regularized_reason,omitempty"`
	RegularizedComments string     `bson:"regularized_comments,omitempty" json:"regularized_comments,omitempty"`
	RegularizedAt       *time.Time `bson:"regularized_at,omitempty" json:"regularized_at,omitempty"`
}

// Open reports whether the record is an open punch session.
func (r *PunchRecord) Open() bool {
	return r.PunchIn != nil && r.PunchOut == nil && r.Status != StatusHistorical
}

// ListFilter selects punch records for the admin attendance view.
// Historical records are always excluded.
type ListFilter struct {
	StartDate  string // inclusive, DateFormat
	EndDate    string // inclusive, DateFormat
	EmployeeID string
	Status     Status
	SortBy     string // "date", "punch_in" or "punch_out"; default "date"
	SortAsc    bool
	Page       int // 1-based
	PerPage    int
}

// RegularizationFilter selects regularized records for the audit view.
type RegularizationFilter struct {
	EmployeeID string
	StartDate  string
	EndDate    string
	Page       int
	PerPage    int
}

// RegularizationEntry is a regularized record joined with the original
// punch times recovered from the earliest historical record of the same
// (employee, date).
type RegularizationEntry struct {
	Record           PunchRecord
	OriginalPunchIn  *time.Time
	OriginalPunchOut *time.Time
}

// FirstPunch is the earliest punch-in of one employee on one day, used for
// dashboard late counting.
type FirstPunch struct {
	EmployeeID string
	PunchIn    time.Time
}
