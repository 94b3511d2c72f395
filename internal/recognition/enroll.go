package recognition

import (
	"context"
	"errors"
	"fmt"

	"github.com/kozaktomas/argus/internal/artifact"
	"github.com/kozaktomas/argus/internal/facematch"
	"github.com/kozaktomas/argus/internal/store"
)

// ErrInvalidEmployeeID rejects enrollments with an employee id shorter
// than three characters.
var ErrInvalidEmployeeID = errors.New("employee id must be at least 3 characters")

// EnrollRequest registers a new employee with a face capture.
type EnrollRequest struct {
	EmployeeID string
	FullName   string
	Department string
	Position   string
	Image      string // base64 capture
}

// Enroll validates the capture against every enrolled face and registers
// the employee. A face already belonging to another employee rejects the
// enrollment with facematch.DuplicateFaceError; an enrollment that fails
// after the photo was stored removes the photo again.
func (s *Service) Enroll(ctx context.Context, req EnrollRequest) (*store.Employee, error) {
	if len(req.EmployeeID) < 3 {
		return nil, ErrInvalidEmployeeID
	}

	descriptor, data, err := s.extractDescriptor(ctx, req.Image)
	if err != nil {
		return nil, err
	}

	if err := s.guardDuplicate(ctx, descriptor, req.EmployeeID); err != nil {
		return nil, err
	}

	imagePath, err := s.artifacts.SaveFace(req.EmployeeID, data)
	if err != nil {
		return nil, fmt.Errorf("saving enrollment photo: %w", err)
	}

	emp := store.Employee{
		EmployeeID: req.EmployeeID,
		FullName:   req.FullName,
		Descriptor: descriptor,
		ImagePath:  imagePath,
		Department: req.Department,
		Position:   req.Position,
		CreatedAt:  s.now().UTC(),
	}
	if err := s.employees.Insert(ctx, emp); err != nil {
		_ = s.artifacts.Remove(imagePath)
		return nil, err
	}
	return &emp, nil
}

// ReEnroll replaces an existing employee's face descriptor. The new face
// must not belong to any other employee; matching the employee's own
// previous face is fine.
func (s *Service) ReEnroll(ctx context.Context, employeeID, image string) (*store.Employee, error) {
	emp, err := s.employees.Get(ctx, employeeID)
	if err != nil {
		return nil, err
	}

	descriptor, data, err := s.extractDescriptor(ctx, image)
	if err != nil {
		return nil, err
	}

	if err := s.guardDuplicate(ctx, descriptor, employeeID); err != nil {
		return nil, err
	}

	imagePath, err := s.artifacts.SaveFace(employeeID, data)
	if err != nil {
		return nil, fmt.Errorf("saving enrollment photo: %w", err)
	}

	if err := s.employees.UpdateDescriptor(ctx, employeeID, descriptor, imagePath); err != nil {
		_ = s.artifacts.Remove(imagePath)
		return nil, err
	}

	if emp.ImagePath != "" && emp.ImagePath != imagePath {
		_ = s.artifacts.Remove(emp.ImagePath)
	}

	emp.Descriptor = descriptor
	emp.ImagePath = imagePath
	return emp, nil
}

// DeleteEmployee removes the employee, their attendance records and their
// enrollment photo.
func (s *Service) DeleteEmployee(ctx context.Context, punches store.PunchStore, employeeID string) error {
	emp, err := s.employees.Get(ctx, employeeID)
	if err != nil {
		return err
	}
	if err := s.employees.Delete(ctx, employeeID); err != nil {
		return err
	}
	if err := punches.DeleteByEmployee(ctx, employeeID); err != nil {
		return fmt.Errorf("deleting attendance records: %w", err)
	}
	if emp.ImagePath != "" {
		_ = s.artifacts.Remove(emp.ImagePath)
	}
	return nil
}

func (s *Service) extractDescriptor(ctx context.Context, image string) ([]float64, []byte, error) {
	data, err := artifact.DecodeBase64(image)
	if err != nil {
		return nil, nil, err
	}
	descriptor, err := s.extractor.Extract(ctx, data)
	if err != nil {
		return nil, nil, err
	}
	return descriptor, data, nil
}

func (s *Service) guardDuplicate(ctx context.Context, descriptor []float64, employeeID string) error {
	enrolled, err := s.employees.ListEnrolled(ctx)
	if err != nil {
		return fmt.Errorf("loading enrolled employees: %w", err)
	}
	population := make([]facematch.Candidate, 0, len(enrolled))
	for i := range enrolled {
		population = append(population, facematch.Candidate{
			EmployeeID: enrolled[i].EmployeeID,
			Descriptor: enrolled[i].Descriptor,
		})
	}
	return facematch.CheckEnrollment(descriptor, employeeID, population)
}
