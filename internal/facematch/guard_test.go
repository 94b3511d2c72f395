package facematch

import (
	"errors"
	"testing"
)

func TestCheckEnrollment_EmptyPopulation(t *testing.T) {
	if err := CheckEnrollment([]float64{0.1, 0.2}, "EMP001", nil); err != nil {
		t.Errorf("empty population should accept any descriptor, got %v", err)
	}
}

func TestCheckEnrollment_RejectsDuplicate(t *testing.T) {
	enrolled := []Candidate{
		{EmployeeID: "EMP001", Descriptor: []float64{0.1, 0.2, 0.3}},
	}
	// Within tolerance of EMP001's descriptor.
	err := CheckEnrollment([]float64{0.1, 0.2, 0.31}, "EMP002", enrolled)
	if err == nil {
		t.Fatal("expected duplicate rejection")
	}

	var dup *DuplicateFaceError
	if !errors.As(err, &dup) {
		t.Fatalf("expected DuplicateFaceError, got %T", err)
	}
	if dup.ConflictingEmployeeID != "EMP001" {
		t.Errorf("expected conflict with EMP001, got %s", dup.ConflictingEmployeeID)
	}
}

func TestCheckEnrollment_AllowsReEnrollmentForSameEmployee(t *testing.T) {
	descriptor := []float64{0.1, 0.2, 0.3}
	enrolled := []Candidate{
		{EmployeeID: "EMP001", Descriptor: descriptor},
	}
	// Same face, same employee: this is a photo update, not a duplicate.
	if err := CheckEnrollment(descriptor, "EMP001", enrolled); err != nil {
		t.Errorf("re-enrollment for the same employee should succeed, got %v", err)
	}
}

func TestCheckEnrollment_AllowsDistinctFace(t *testing.T) {
	enrolled := []Candidate{
		{EmployeeID: "EMP001", Descriptor: []float64{0, 0, 0}},
	}
	if err := CheckEnrollment([]float64{1, 1, 1}, "EMP002", enrolled); err != nil {
		t.Errorf("distinct face should be accepted, got %v", err)
	}
}

func TestCheckEnrollment_ReportsFirstConflict(t *testing.T) {
	descriptor := []float64{0.5, 0.5}
	enrolled := []Candidate{
		{EmployeeID: "EMP001", Descriptor: descriptor},
		{EmployeeID: "EMP002", Descriptor: descriptor},
	}

	err := CheckEnrollment(descriptor, "EMP003", enrolled)
	var dup *DuplicateFaceError
	if !errors.As(err, &dup) {
		t.Fatalf("expected DuplicateFaceError, got %v", err)
	}
	if dup.ConflictingEmployeeID != "EMP001" {
		t.Errorf("expected first conflict (EMP001) to be reported, got %s", dup.ConflictingEmployeeID)
	}
}
