package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/argus/internal/extractor"
	"github.com/kozaktomas/argus/internal/facematch"
	"github.com/kozaktomas/argus/internal/recognition"
	"github.com/kozaktomas/argus/internal/store"
)

// EmployeesHandler handles employee roster and enrollment endpoints.
type EmployeesHandler struct {
	service   *recognition.Service
	employees store.EmployeeStore
	punches   store.PunchStore
}

// NewEmployeesHandler creates a new employees handler.
func NewEmployeesHandler(service *recognition.Service, employees store.EmployeeStore, punches store.PunchStore) *EmployeesHandler {
	return &EmployeesHandler{service: service, employees: employees, punches: punches}
}

type enrollRequest struct {
	EmployeeID string `json:"emp_id"`
	FullName   string `json:"full_name"`
	Department string `json:"department,omitempty"`
	Position   string `json:"position,omitempty"`
	Image      string `json:"image"`
}

// Enroll handles POST /api/v1/employees.
func (h *EmployeesHandler) Enroll(w http.ResponseWriter, r *http.Request) {
	var req enrollRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	if req.EmployeeID == "" || req.FullName == "" || req.Image == "" {
		respondError(w, http.StatusBadRequest, "emp_id, full_name and image are required")
		return
	}

	emp, err := h.service.Enroll(r.Context(), recognition.EnrollRequest{
		EmployeeID: req.EmployeeID,
		FullName:   req.FullName,
		Department: req.Department,
		Position:   req.Position,
		Image:      req.Image,
	})
	if err != nil {
		h.respondEnrollError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, emp)
}

// List handles GET /api/v1/employees. The optional search parameter
// matches names ignoring case and diacritics, or an exact employee id.
func (h *EmployeesHandler) List(w http.ResponseWriter, r *http.Request) {
	employees, err := h.employees.List(r.Context(), r.URL.Query().Get("search"))
	if err != nil {
		log.Printf("listing employees failed: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to list employees")
		return
	}

	type entry struct {
		store.Employee
		Enrolled bool `json:"enrolled"`
	}
	entries := make([]entry, 0, len(employees))
	for i := range employees {
		entries = append(entries, entry{Employee: employees[i], Enrolled: employees[i].Enrolled()})
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"employees": entries,
		"total":     len(entries),
	})
}

// Get handles GET /api/v1/employees/{id}.
func (h *EmployeesHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	emp, err := h.employees.Get(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		respondError(w, http.StatusNotFound, "employee not found")
		return
	}
	if err != nil {
		log.Printf("loading employee %s failed: %v", sanitizeForLog(id), err)
		respondError(w, http.StatusInternalServerError, "failed to load employee")
		return
	}
	respondJSON(w, http.StatusOK, emp)
}

type reEnrollRequest struct {
	Image string `json:"image"`
}

// UpdateFace handles PUT /api/v1/employees/{id}/face.
func (h *EmployeesHandler) UpdateFace(w http.ResponseWriter, r *http.Request) {
	var req reEnrollRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	if req.Image == "" {
		respondError(w, http.StatusBadRequest, "image is required")
		return
	}

	emp, err := h.service.ReEnroll(r.Context(), chi.URLParam(r, "id"), req.Image)
	if err != nil {
		h.respondEnrollError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, emp)
}

// Delete handles DELETE /api/v1/employees/{id}. Attendance records and
// the enrollment photo are removed with the employee.
func (h *EmployeesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	err := h.service.DeleteEmployee(r.Context(), h.punches, id)
	if errors.Is(err, store.ErrNotFound) {
		respondError(w, http.StatusNotFound, "employee not found")
		return
	}
	if err != nil {
		log.Printf("deleting employee %s failed: %v", sanitizeForLog(id), err)
		respondError(w, http.StatusInternalServerError, "failed to delete employee")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *EmployeesHandler) respondEnrollError(w http.ResponseWriter, err error) {
	var dup *facematch.DuplicateFaceError
	switch {
	case errors.As(err, &dup):
		respondJSON(w, http.StatusConflict, map[string]string{
			"error":                "face already enrolled for another employee",
			"conflicting_employee": dup.ConflictingEmployeeID,
		})
	case errors.Is(err, recognition.ErrInvalidEmployeeID):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, store.ErrDuplicateEmployee):
		respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, store.ErrNotFound):
		respondError(w, http.StatusNotFound, "employee not found")
	case errors.Is(err, extractor.ErrNoFaceDetected):
		respondError(w, http.StatusBadRequest, "no face detected in the image")
	default:
		log.Printf("enrollment failed: %v", err)
		respondError(w, http.StatusInternalServerError, "enrollment failed")
	}
}
