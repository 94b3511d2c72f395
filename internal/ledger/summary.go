package ledger

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/kozaktomas/argus/internal/store"
)

// DayStatus is the derived display status of one calendar day. Regularized
// is the only one that is also a stored record status; the rest exist only
// in summaries.
type DayStatus string

const (
	DayAbsent      DayStatus = "Absent"
	DayActive      DayStatus = "Active"
	DayPresent     DayStatus = "Present"
	DayLate        DayStatus = "Late"
	DayRegularized DayStatus = "Regularized"
)

// DaySummary is one day of an employee's attendance, reduced from its
// current punch records.
type DaySummary struct {
	Date      string     `json:"date"`
	ShiftIn   string     `json:"shift_in"`
	ShiftOut  string     `json:"shift_out"`
	ActualIn  *time.Time `json:"actual_in,omitempty"`
	ActualOut *time.Time `json:"actual_out,omitempty"`
	WorkHours string     `json:"work_hours,omitempty"`
	Status    DayStatus  `json:"status"`
	Address   string     `json:"address,omitempty"`
}

// History reduces all of the employee's punch records to per-day summaries,
// newest day first. A Regularized record overrides the day entirely;
// otherwise the day shows the earliest punch-in and latest punch-out of its
// non-historical records. Historical records never contribute.
func (l *Ledger) History(ctx context.Context, employeeID string) ([]DaySummary, error) {
	records, err := l.punches.FindByEmployee(ctx, employeeID)
	if err != nil {
		return nil, fmt.Errorf("loading punch records: %w", err)
	}

	days := make(map[string]*DaySummary)
	regularized := make(map[string]bool)

	for i := range records {
		rec := &records[i]
		if rec.Status == store.StatusHistorical {
			continue
		}

		day, ok := days[rec.Date]
		if !ok {
			day = &DaySummary{
				Date:     rec.Date,
				ShiftIn:  l.shiftStart,
				ShiftOut: l.shiftEnd,
				Status:   DayAbsent,
			}
			days[rec.Date] = day
		}

		if rec.Status == store.StatusRegularized {
			day.ActualIn = rec.PunchIn
			day.ActualOut = rec.PunchOut
			day.Status = DayRegularized
			if rec.Address != "" {
				day.Address = rec.Address
			}
			regularized[rec.Date] = true
			continue
		}
		if regularized[rec.Date] {
			// A regularized overlay owns the day.
			continue
		}

		if rec.PunchIn != nil && (day.ActualIn == nil || rec.PunchIn.Before(*day.ActualIn)) {
			day.ActualIn = rec.PunchIn
		}
		if rec.PunchOut != nil && (day.ActualOut == nil || rec.PunchOut.After(*day.ActualOut)) {
			day.ActualOut = rec.PunchOut
		}
		if rec.Address != "" {
			day.Address = rec.Address
		}

		switch {
		case day.ActualIn != nil && day.ActualOut != nil:
			day.Status = DayPresent
		case day.ActualIn != nil:
			day.Status = DayActive
		}
	}

	summaries := make([]DaySummary, 0, len(days))
	for _, day := range days {
		day.WorkHours = WorkHours(day.ActualIn, day.ActualOut)
		if day.Status == DayPresent && isLate(*day.ActualIn, l.shiftStart) {
			day.Status = DayLate
		}
		summaries = append(summaries, *day)
	}

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].Date > summaries[j].Date
	})
	return summaries, nil
}

// TodaySessions returns today's raw non-historical punch sessions for the
// employee plus whether they are currently punched in.
func (l *Ledger) TodaySessions(ctx context.Context, employeeID string) ([]store.PunchRecord, bool, error) {
	today := l.now().Format(store.DateFormat)
	records, err := l.punches.FindCurrentByDay(ctx, employeeID, today)
	if err != nil {
		return nil, false, fmt.Errorf("loading today's records: %w", err)
	}

	punchedIn := false
	for i := range records {
		if records[i].Open() {
			punchedIn = true
			break
		}
	}
	return records, punchedIn, nil
}

// WorkHours formats the worked duration as "HH:MM". The duration is
// truncated to whole seconds before conversion; it is empty when either
// timestamp is missing.
func WorkHours(in, out *time.Time) string {
	if in == nil || out == nil {
		return ""
	}
	seconds := int(out.Sub(*in).Truncate(time.Second).Seconds())
	if seconds < 0 {
		return ""
	}
	return fmt.Sprintf("%02d:%02d", seconds/3600, (seconds%3600)/60)
}

// Late reports whether a punch-in at ts counts as late for the shift.
func (l *Ledger) Late(ts time.Time) bool {
	return isLate(ts, l.shiftStart)
}

// Shift returns the nominal shift start and end ("HH:MM").
func (l *Ledger) Shift() (string, string) {
	return l.shiftStart, l.shiftEnd
}

// isLate reports whether the punch-in time of day is strictly after the
// nominal shift start ("HH:MM"). Punching in at the exact shift start is
// on time.
func isLate(in time.Time, shiftStart string) bool {
	var h, m int
	if _, err := fmt.Sscanf(shiftStart, "%d:%d", &h, &m); err != nil {
		return false
	}
	shiftSeconds := h*3600 + m*60
	inSeconds := in.Hour()*3600 + in.Minute()*60 + in.Second()
	return inSeconds > shiftSeconds
}
