// Package ledger implements the punch state machine. All status mutations
// of attendance records go through this package; handlers and services
// never write status values directly.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kozaktomas/argus/internal/store"
)

// Domain conflict and validation errors. These are expected business
// states surfaced to the caller, not system failures.
var (
	// ErrAlreadyOpen is returned by PunchIn when the employee already has
	// an open punch for the day.
	ErrAlreadyOpen = errors.New("already punched in, punch out first")

	// ErrNoOpenPunch is returned by PunchOut when there is no open punch
	// to close.
	ErrNoOpenPunch = errors.New("no active punch in found for today")

	// ErrMissingReason is returned by Regularize when no reason is given.
	ErrMissingReason = errors.New("reason is required for regularization")

	// ErrInvalidDate is returned by Regularize when the date cannot be
	// parsed.
	ErrInvalidDate = errors.New("invalid date")
)

// Location is an optional punch location: raw coordinates plus the
// best-effort resolved address.
type Location struct {
	Latitude  *float64
	Longitude *float64
	Address   string
}

// Ledger owns punch-record transitions for all employees. It is safe for
// concurrent use; the single-open-punch invariant is enforced by the
// store's conditional insert, not by in-process locking.
type Ledger struct {
	punches    store.PunchStore
	shiftStart string // "HH:MM", nominal shift start for late detection
	shiftEnd   string
	now        func() time.Time
}

// New creates a Ledger over the given punch store. Shift times are "HH:MM".
func New(punches store.PunchStore, shiftStart, shiftEnd string) *Ledger {
	return &Ledger{
		punches:    punches,
		shiftStart: shiftStart,
		shiftEnd:   shiftEnd,
		now:        time.Now,
	}
}

// PunchIn opens a new punch session for the employee at ts. Fails with
// ErrAlreadyOpen when an open session already exists for that day.
func (l *Ledger) PunchIn(ctx context.Context, employeeID string, ts time.Time, loc Location) (*store.PunchRecord, error) {
	in := ts
	rec := store.PunchRecord{
		EmployeeID: employeeID,
		Date:       ts.Format(store.DateFormat),
		PunchIn:    &in,
		Latitude:   loc.Latitude,
		Longitude:  loc.Longitude,
		Address:    loc.Address,
		Status:     store.StatusPresent,
	}

	id, err := l.punches.InsertOpen(ctx, rec)
	if err != nil {
		if errors.Is(err, store.ErrOpenPunchExists) {
			return nil, ErrAlreadyOpen
		}
		return nil, fmt.Errorf("inserting punch-in: %w", err)
	}
	rec.ID = id
	return &rec, nil
}

// PunchOut closes the employee's open punch session for the day of ts.
// Fails with ErrNoOpenPunch when there is nothing to close.
func (l *Ledger) PunchOut(ctx context.Context, employeeID string, ts time.Time, loc Location) (*store.PunchRecord, error) {
	date := ts.Format(store.DateFormat)

	open, err := l.punches.FindOpen(ctx, employeeID, date)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNoOpenPunch
		}
		return nil, fmt.Errorf("looking up open punch: %w", err)
	}

	if err := l.punches.ClosePunch(ctx, open.ID, ts, loc.Latitude, loc.Longitude, loc.Address); err != nil {
		return nil, fmt.Errorf("closing punch: %w", err)
	}

	out := ts
	open.PunchOut = &out
	open.OutLatitude = loc.Latitude
	open.OutLongitude = loc.Longitude
	open.OutAddress = loc.Address
	open.Status = store.StatusCompleted
	return open, nil
}

// RegularizationRequest is one correction of a day's punch times. Times not
// supplied fall back to the originals reconstructed from the day's current
// records.
type RegularizationRequest struct {
	Date     string // store.DateFormat
	PunchIn  *time.Time
	PunchOut *time.Time
	Reason   string
	Comments string
}

// Regularize supersedes the day's current records with a single
// authoritative Regularized record. Every current non-historical record for
// the day is relabeled Historical first; the new record carries the
// earliest original punch-in and latest original punch-out for any time not
// supplied, plus the location of the earliest punch-in. Re-running
// regularization for the same day chains a fresh overlay on top of the
// previous one; it supersedes, it does not merge.
//
// Historicize-then-insert is two writes. A crash in between loses the
// overlay but can never leave two current records for the day.
func (l *Ledger) Regularize(ctx context.Context, employeeID string, req RegularizationRequest) (*store.PunchRecord, error) {
	if req.Reason == "" {
		return nil, ErrMissingReason
	}
	if _, err := time.Parse(store.DateFormat, req.Date); err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidDate, req.Date)
	}

	current, err := l.punches.FindCurrentByDay(ctx, employeeID, req.Date)
	if err != nil {
		return nil, fmt.Errorf("loading current records: %w", err)
	}

	origIn, origOut, origLoc := originalTimes(current)

	if len(current) > 0 {
		if _, err := l.punches.MarkHistorical(ctx, employeeID, req.Date); err != nil {
			return nil, fmt.Errorf("historicizing records: %w", err)
		}
	}

	now := l.now()
	rec := store.PunchRecord{
		EmployeeID:          employeeID,
		Date:                req.Date,
		PunchIn:             coalesceTime(req.PunchIn, origIn),
		PunchOut:            coalesceTime(req.PunchOut, origOut),
		Latitude:            origLoc.Latitude,
		Longitude:           origLoc.Longitude,
		Address:             origLoc.Address,
		Status:              store.StatusRegularized,
		RegularizedReason:   req.Reason,
		RegularizedComments: req.Comments,
		RegularizedAt:       &now,
	}

	id, err := l.punches.Insert(ctx, rec)
	if err != nil {
		return nil, fmt.Errorf("inserting regularized record: %w", err)
	}
	rec.ID = id
	return &rec, nil
}

// originalTimes reconstructs the day's earliest punch-in, latest punch-out
// and the location tied to the earliest punch-in from its current records.
func originalTimes(records []store.PunchRecord) (*time.Time, *time.Time, Location) {
	var (
		earliest *time.Time
		latest   *time.Time
		loc      Location
	)
	for i := range records {
		rec := &records[i]
		if rec.PunchIn != nil && (earliest == nil || rec.PunchIn.Before(*earliest)) {
			earliest = rec.PunchIn
			loc = Location{Latitude: rec.Latitude, Longitude: rec.Longitude, Address: rec.Address}
		}
		if rec.PunchOut != nil && (latest == nil || rec.PunchOut.After(*latest)) {
			latest = rec.PunchOut
		}
	}
	return earliest, latest, loc
}

func coalesceTime(preferred, fallback *time.Time) *time.Time {
	if preferred != nil {
		return preferred
	}
	return fallback
}
