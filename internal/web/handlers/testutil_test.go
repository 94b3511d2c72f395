package handlers

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/argus/internal/artifact"
	"github.com/kozaktomas/argus/internal/extractor"
	"github.com/kozaktomas/argus/internal/geocode"
	"github.com/kozaktomas/argus/internal/ledger"
	"github.com/kozaktomas/argus/internal/recognition"
	"github.com/kozaktomas/argus/internal/store"
	"github.com/kozaktomas/argus/internal/store/mock"
)

// testNow is the pinned wall clock for handler tests.
var testNow = time.Date(2024, 1, 5, 10, 30, 0, 0, time.Local)

// errTest is an injected store failure.
var errTest = errors.New("store exploded")

type testEnv struct {
	employees *mock.EmployeeStore
	punches   *mock.PunchStore
	ledger    *ledger.Ledger
	service   *recognition.Service
}

// newTestEnv builds the service stack on in-memory stores. The extractor
// maps capture payloads to descriptors so tests pick faces by payload.
func newTestEnv(t *testing.T, descriptors map[string][]float64) *testEnv {
	t.Helper()

	employees := mock.NewEmployeeStore()
	punches := mock.NewPunchStore()

	ext := extractor.Func(func(ctx context.Context, imageData []byte) ([]float64, error) {
		d, ok := descriptors[string(imageData)]
		if !ok {
			return nil, extractor.ErrNoFaceDetected
		}
		return d, nil
	})
	resolver := geocode.Func(func(ctx context.Context, lat, lon float64) string {
		return "Test Address"
	})

	led := ledger.New(punches, "09:00", "17:00")
	service := recognition.New(employees, ext, led, artifact.NewStore(t.TempDir()), resolver)

	return &testEnv{
		employees: employees,
		punches:   punches,
		ledger:    led,
		service:   service,
	}
}

func capture(payload string) string {
	return base64.StdEncoding.EncodeToString([]byte(payload))
}

// jsonRequest builds a request with a JSON body.
func jsonRequest(t *testing.T, method, path string, body any) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// requestWithChiParams creates a request with chi URL parameters.
func requestWithChiParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// decodeResponse parses a JSON response body into a generic map.
func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response body: %v", err)
	}
	return body
}

func seedEmployee(env *testEnv, id, name string, descriptor []float64) {
	env.employees.Add(store.Employee{
		EmployeeID: id,
		FullName:   name,
		Descriptor: descriptor,
		CreatedAt:  testNow,
	})
}

func timeAt(h, m, s int) time.Time {
	return time.Date(2024, 1, 5, h, m, s, 0, time.Local)
}

func timePtr(t time.Time) *time.Time { return &t }
