package facematch

import "fmt"

// DuplicateFaceError reports that a submitted descriptor is already enrolled
// under another employee.
type DuplicateFaceError struct {
	ConflictingEmployeeID string
}

func (e *DuplicateFaceError) Error() string {
	return fmt.Sprintf("face already registered with employee ID %s", e.ConflictingEmployeeID)
}

// CheckEnrollment scans the enrolled population for a descriptor within
// RecognitionTolerance of the new one. Entries belonging to employeeID are
// skipped so an employee can update their own photo. The first conflicting
// candidate found wins; iteration order decides which conflict is reported
// when several exist.
//
// The guard only signals rejection. The caller owns the captured image and
// must discard it when an error is returned.
func CheckEnrollment(descriptor []float64, employeeID string, population []Candidate) error {
	for _, c := range population {
		if c.EmployeeID == employeeID {
			continue
		}
		if IsMatch(c.Descriptor, descriptor) {
			return &DuplicateFaceError{ConflictingEmployeeID: c.EmployeeID}
		}
	}
	return nil
}
