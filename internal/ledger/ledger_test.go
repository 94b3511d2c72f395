package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kozaktomas/argus/internal/store"
	"github.com/kozaktomas/argus/internal/store/mock"
)

func testLedger(punches store.PunchStore) *Ledger {
	l := New(punches, "09:00", "17:00")
	l.now = func() time.Time {
		return time.Date(2024, 1, 5, 12, 0, 0, 0, time.Local)
	}
	return l
}

func ts(hour, minute, second int) time.Time {
	return time.Date(2024, 1, 5, hour, minute, second, 0, time.Local)
}

func TestPunchIn_CreatesOpenRecord(t *testing.T) {
	punches := mock.NewPunchStore()
	l := testLedger(punches)

	rec, err := l.PunchIn(context.Background(), "EMP001", ts(9, 15, 0), Location{Address: "Office"})
	if err != nil {
		t.Fatalf("punch in failed: %v", err)
	}
	if rec.Status != store.StatusPresent {
		t.Errorf("expected status Present, got %s", rec.Status)
	}
	if rec.Date != "2024-01-05" {
		t.Errorf("expected date 2024-01-05, got %s", rec.Date)
	}
	if rec.PunchOut != nil {
		t.Error("fresh punch-in should have no punch-out")
	}
	if rec.ID == "" {
		t.Error("expected record id to be assigned")
	}
}

func TestPunchIn_FailsWhenAlreadyOpen(t *testing.T) {
	punches := mock.NewPunchStore()
	l := testLedger(punches)
	ctx := context.Background()

	if _, err := l.PunchIn(ctx, "EMP001", ts(9, 0, 0), Location{}); err != nil {
		t.Fatalf("first punch in failed: %v", err)
	}

	_, err := l.PunchIn(ctx, "EMP001", ts(10, 0, 0), Location{})
	if !errors.Is(err, ErrAlreadyOpen) {
		t.Errorf("expected ErrAlreadyOpen, got %v", err)
	}
}

func TestPunchIn_OtherEmployeeUnaffected(t *testing.T) {
	punches := mock.NewPunchStore()
	l := testLedger(punches)
	ctx := context.Background()

	if _, err := l.PunchIn(ctx, "EMP001", ts(9, 0, 0), Location{}); err != nil {
		t.Fatalf("punch in failed: %v", err)
	}
	if _, err := l.PunchIn(ctx, "EMP002", ts(9, 5, 0), Location{}); err != nil {
		t.Errorf("different employee should punch in independently, got %v", err)
	}
}

func TestPunchOut_ClosesOpenRecord(t *testing.T) {
	punches := mock.NewPunchStore()
	l := testLedger(punches)
	ctx := context.Background()

	if _, err := l.PunchIn(ctx, "EMP001", ts(9, 0, 0), Location{}); err != nil {
		t.Fatalf("punch in failed: %v", err)
	}

	rec, err := l.PunchOut(ctx, "EMP001", ts(17, 30, 0), Location{Address: "Office"})
	if err != nil {
		t.Fatalf("punch out failed: %v", err)
	}
	if rec.Status != store.StatusCompleted {
		t.Errorf("expected status Completed, got %s", rec.Status)
	}
	if rec.PunchOut == nil || !rec.PunchOut.Equal(ts(17, 30, 0)) {
		t.Errorf("unexpected punch-out time: %v", rec.PunchOut)
	}
	if rec.OutAddress != "Office" {
		t.Errorf("expected punch-out address Office, got %q", rec.OutAddress)
	}
}

func TestPunchOut_FailsWithoutOpenRecord(t *testing.T) {
	punches := mock.NewPunchStore()
	l := testLedger(punches)

	_, err := l.PunchOut(context.Background(), "EMP001", ts(17, 0, 0), Location{})
	if !errors.Is(err, ErrNoOpenPunch) {
		t.Errorf("expected ErrNoOpenPunch, got %v", err)
	}
}

func TestPunchCycle_AtMostOneOpenRecord(t *testing.T) {
	punches := mock.NewPunchStore()
	l := testLedger(punches)
	ctx := context.Background()

	// in / out / in again on the same day: two sessions, one open.
	if _, err := l.PunchIn(ctx, "EMP001", ts(9, 0, 0), Location{}); err != nil {
		t.Fatalf("punch in failed: %v", err)
	}
	if _, err := l.PunchOut(ctx, "EMP001", ts(12, 0, 0), Location{}); err != nil {
		t.Fatalf("punch out failed: %v", err)
	}
	if _, err := l.PunchIn(ctx, "EMP001", ts(13, 0, 0), Location{}); err != nil {
		t.Fatalf("second punch in failed: %v", err)
	}

	open := 0
	for _, rec := range punches.All() {
		if rec.Open() {
			open++
		}
	}
	if open != 1 {
		t.Errorf("expected exactly one open record, got %d", open)
	}
}

func TestRegularize_RequiresReason(t *testing.T) {
	l := testLedger(mock.NewPunchStore())

	_, err := l.Regularize(context.Background(), "EMP001", RegularizationRequest{Date: "2024-01-05"})
	if !errors.Is(err, ErrMissingReason) {
		t.Errorf("expected ErrMissingReason, got %v", err)
	}
}

func TestRegularize_RejectsBadDate(t *testing.T) {
	l := testLedger(mock.NewPunchStore())

	_, err := l.Regularize(context.Background(), "EMP001", RegularizationRequest{
		Date:   "05 Jan 2024",
		Reason: "forgot",
	})
	if !errors.Is(err, ErrInvalidDate) {
		t.Errorf("expected ErrInvalidDate, got %v", err)
	}
}

func TestRegularize_SupersedesOpenRecord(t *testing.T) {
	punches := mock.NewPunchStore()
	l := testLedger(punches)
	ctx := context.Background()

	// Open record: 09:15 in, no out, punched in at the office.
	orig, err := l.PunchIn(ctx, "EMP001", ts(9, 15, 0), Location{Address: "Office"})
	if err != nil {
		t.Fatalf("punch in failed: %v", err)
	}

	newOut := ts(17, 30, 0)
	rec, err := l.Regularize(ctx, "EMP001", RegularizationRequest{
		Date:     "2024-01-05",
		PunchOut: &newOut,
		Reason:   "forgot",
	})
	if err != nil {
		t.Fatalf("regularize failed: %v", err)
	}

	if rec.Status != store.StatusRegularized {
		t.Errorf("expected status Regularized, got %s", rec.Status)
	}
	// Punch-in carried from the original, punch-out from the request.
	if rec.PunchIn == nil || !rec.PunchIn.Equal(ts(9, 15, 0)) {
		t.Errorf("expected carried punch-in 09:15, got %v", rec.PunchIn)
	}
	if rec.PunchOut == nil || !rec.PunchOut.Equal(newOut) {
		t.Errorf("expected new punch-out 17:30, got %v", rec.PunchOut)
	}
	if rec.Address != "Office" {
		t.Errorf("expected carried address Office, got %q", rec.Address)
	}

	// Original became Historical; current queries see only the overlay.
	for _, stored := range punches.All() {
		if stored.ID == orig.ID && stored.Status != store.StatusHistorical {
			t.Errorf("original record should be Historical, got %s", stored.Status)
		}
	}
	current, err := punches.FindCurrentByDay(ctx, "EMP001", "2024-01-05")
	if err != nil {
		t.Fatalf("find current failed: %v", err)
	}
	if len(current) != 1 || current[0].Status != store.StatusRegularized {
		t.Errorf("expected exactly the regularized record to be current, got %+v", current)
	}
}

func TestPunchIn_FailsWhenRegularizedRecordStillOpen(t *testing.T) {
	punches := mock.NewPunchStore()
	l := testLedger(punches)
	ctx := context.Background()

	// A correction that supplies only the punch-in leaves the overlay
	// open: Regularized status, no punch-out.
	newIn := ts(9, 0, 0)
	rec, err := l.Regularize(ctx, "EMP001", RegularizationRequest{
		Date:    "2024-01-05",
		PunchIn: &newIn,
		Reason:  "kiosk was offline",
	})
	if err != nil {
		t.Fatalf("regularize failed: %v", err)
	}
	if !rec.Open() {
		t.Fatalf("expected open overlay, got %+v", rec)
	}

	_, err = l.PunchIn(ctx, "EMP001", ts(10, 0, 0), Location{})
	if !errors.Is(err, ErrAlreadyOpen) {
		t.Errorf("expected ErrAlreadyOpen for open regularized record, got %v", err)
	}
}

func TestRegularize_ChainsOnRepeat(t *testing.T) {
	punches := mock.NewPunchStore()
	l := testLedger(punches)
	ctx := context.Background()

	in := ts(9, 0, 0)
	out1 := ts(17, 0, 0)
	if _, err := l.Regularize(ctx, "EMP001", RegularizationRequest{
		Date: "2024-01-05", PunchIn: &in, PunchOut: &out1, Reason: "missed badge",
	}); err != nil {
		t.Fatalf("first regularize failed: %v", err)
	}

	out2 := ts(18, 0, 0)
	if _, err := l.Regularize(ctx, "EMP001", RegularizationRequest{
		Date: "2024-01-05", PunchOut: &out2, Reason: "correction",
	}); err != nil {
		t.Fatalf("second regularize failed: %v", err)
	}

	current, err := punches.FindCurrentByDay(ctx, "EMP001", "2024-01-05")
	if err != nil {
		t.Fatalf("find current failed: %v", err)
	}
	if len(current) != 1 {
		t.Fatalf("expected one current record, got %d", len(current))
	}
	// The second overlay carries the first overlay's punch-in.
	if current[0].PunchIn == nil || !current[0].PunchIn.Equal(in) {
		t.Errorf("expected punch-in carried through the chain, got %v", current[0].PunchIn)
	}
	if current[0].PunchOut == nil || !current[0].PunchOut.Equal(out2) {
		t.Errorf("expected updated punch-out, got %v", current[0].PunchOut)
	}
}

func TestRegularize_AbsentDayCreatesRecordFromRequestOnly(t *testing.T) {
	punches := mock.NewPunchStore()
	l := testLedger(punches)

	in := ts(9, 0, 0)
	out := ts(17, 0, 0)
	rec, err := l.Regularize(context.Background(), "EMP001", RegularizationRequest{
		Date: "2024-01-05", PunchIn: &in, PunchOut: &out, Reason: "was on site",
	})
	if err != nil {
		t.Fatalf("regularize failed: %v", err)
	}
	if rec.PunchIn == nil || rec.PunchOut == nil {
		t.Error("expected both times set from the request")
	}
}
