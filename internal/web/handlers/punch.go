package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/kozaktomas/argus/internal/extractor"
	"github.com/kozaktomas/argus/internal/ledger"
	"github.com/kozaktomas/argus/internal/recognition"
)

// PunchHandler handles kiosk punch attempts.
type PunchHandler struct {
	service *recognition.Service
}

// NewPunchHandler creates a new punch handler.
func NewPunchHandler(service *recognition.Service) *PunchHandler {
	return &PunchHandler{service: service}
}

type punchRequest struct {
	Image     string   `json:"image"`
	Action    string   `json:"action"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
}

// Punch handles POST /api/v1/punch. The kiosk sends a base64 capture and
// the requested action; the response identifies the employee or explains
// the rejection.
func (h *PunchHandler) Punch(w http.ResponseWriter, r *http.Request) {
	var req punchRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	if req.Image == "" {
		respondError(w, http.StatusBadRequest, "image is required")
		return
	}

	result, err := h.service.Punch(r.Context(), recognition.Request{
		Image:     req.Image,
		Action:    req.Action,
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
	})
	if err != nil {
		h.respondPunchError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"action":     result.Action,
		"employee":   result.Employee,
		"record":     result.Record,
		"confidence": result.Confidence,
	})
}

func (h *PunchHandler) respondPunchError(w http.ResponseWriter, err error) {
	var unrec *recognition.UnrecognizedFaceError
	switch {
	case errors.Is(err, recognition.ErrUnknownAction):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, extractor.ErrNoFaceDetected):
		respondError(w, http.StatusBadRequest, "no face detected in the image")
	case errors.As(err, &unrec):
		respondJSON(w, http.StatusNotFound, map[string]any{
			"error":            "face not recognized",
			"best_match_score": unrec.BestScore,
		})
	case errors.Is(err, ledger.ErrAlreadyOpen), errors.Is(err, ledger.ErrNoOpenPunch):
		respondError(w, http.StatusConflict, err.Error())
	default:
		log.Printf("punch attempt failed: %v", err)
		respondError(w, http.StatusInternalServerError, "punch attempt failed")
	}
}
