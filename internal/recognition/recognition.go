// Package recognition orchestrates a kiosk punch attempt: capture,
// descriptor extraction, identity matching, location resolution and the
// ledger transition.
package recognition

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/kozaktomas/argus/internal/artifact"
	"github.com/kozaktomas/argus/internal/extractor"
	"github.com/kozaktomas/argus/internal/facematch"
	"github.com/kozaktomas/argus/internal/geocode"
	"github.com/kozaktomas/argus/internal/ledger"
	"github.com/kozaktomas/argus/internal/store"
)

// Punch actions accepted from the kiosk.
const (
	ActionPunchIn  = "punch_in"
	ActionPunchOut = "punch_out"
)

// ErrUnknownAction is returned for any action other than punch_in or
// punch_out, before the capture is processed.
var ErrUnknownAction = errors.New("invalid action")

// UnrecognizedFaceError reports that no enrolled employee matched the
// capture. BestScore is the highest confidence seen across the
// population, including sub-threshold candidates, for kiosk diagnostics.
type UnrecognizedFaceError struct {
	BestScore float64
}

func (e *UnrecognizedFaceError) Error() string {
	return fmt.Sprintf("face not recognized (best match score %.2f)", e.BestScore)
}

// Request is one kiosk punch attempt.
type Request struct {
	Image     string // base64 capture, data URI prefix allowed
	Action    string
	Latitude  *float64
	Longitude *float64
}

// Result is a successful punch attempt.
type Result struct {
	Employee   *store.Employee    `json:"employee"`
	Record     *store.PunchRecord `json:"record"`
	Action     string             `json:"action"`
	Confidence float64            `json:"confidence"` // rounded to 2 decimals
}

// Service runs kiosk punch attempts.
type Service struct {
	employees store.EmployeeStore
	extractor extractor.Extractor
	ledger    *ledger.Ledger
	artifacts *artifact.Store
	geocoder  geocode.Resolver
	now       func() time.Time
}

// New creates a recognition service.
func New(employees store.EmployeeStore, ext extractor.Extractor, led *ledger.Ledger, artifacts *artifact.Store, geocoder geocode.Resolver) *Service {
	return &Service{
		employees: employees,
		extractor: ext,
		ledger:    led,
		artifacts: artifacts,
		geocoder:  geocoder,
		now:       time.Now,
	}
}

// Punch identifies the captured face against the enrolled population and
// applies the requested ledger transition. The temporary capture file is
// removed before returning, on success and on every failure.
func (s *Service) Punch(ctx context.Context, req Request) (*Result, error) {
	if req.Action != ActionPunchIn && req.Action != ActionPunchOut {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, req.Action)
	}

	data, err := artifact.DecodeBase64(req.Image)
	if err != nil {
		return nil, err
	}

	capture, err := s.artifacts.SaveTemp(data)
	if err != nil {
		return nil, fmt.Errorf("saving capture: %w", err)
	}
	defer func() {
		_ = s.artifacts.Remove(capture)
	}()

	descriptor, err := s.extractor.Extract(ctx, data)
	if err != nil {
		return nil, err
	}

	enrolled, err := s.employees.ListEnrolled(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading enrolled employees: %w", err)
	}

	population := make([]facematch.Candidate, 0, len(enrolled))
	byID := make(map[string]*store.Employee, len(enrolled))
	for i := range enrolled {
		emp := &enrolled[i]
		population = append(population, facematch.Candidate{
			EmployeeID: emp.EmployeeID,
			Descriptor: emp.Descriptor,
		})
		byID[emp.EmployeeID] = emp
	}

	match, bestSeen, found := facematch.BestMatch(descriptor, population)
	if !found {
		// An empty population has no score to report.
		if math.IsInf(bestSeen, -1) {
			bestSeen = 0
		}
		return nil, &UnrecognizedFaceError{BestScore: round2(bestSeen)}
	}
	emp := byID[match.EmployeeID]

	loc := ledger.Location{
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
		Address:   geocode.Describe(ctx, s.geocoder, req.Latitude, req.Longitude),
	}

	var rec *store.PunchRecord
	switch req.Action {
	case ActionPunchIn:
		rec, err = s.ledger.PunchIn(ctx, emp.EmployeeID, s.now(), loc)
	case ActionPunchOut:
		rec, err = s.ledger.PunchOut(ctx, emp.EmployeeID, s.now(), loc)
	}
	if err != nil {
		return nil, err
	}

	return &Result{
		Employee:   emp,
		Record:     rec,
		Action:     req.Action,
		Confidence: round2(match.Confidence),
	}, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
