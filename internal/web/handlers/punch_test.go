package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestPunchInSuccess(t *testing.T) {
	env := newTestEnv(t, map[string][]float64{"ada-face": {1, 0, 0}})
	seedEmployee(env, "EMP001", "Ada Lovelace", []float64{1, 0, 0})
	handler := NewPunchHandler(env.service)

	req := jsonRequest(t, http.MethodPost, "/api/v1/punch", map[string]any{
		"image":  capture("ada-face"),
		"action": "punch_in",
	})
	rec := httptest.NewRecorder()
	handler.Punch(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	body := decodeResponse(t, rec)
	if body["success"] != true {
		t.Errorf("expected success true, got %v", body["success"])
	}
	if body["confidence"] != 1.0 {
		t.Errorf("expected confidence 1.0, got %v", body["confidence"])
	}
	emp, ok := body["employee"].(map[string]any)
	if !ok || emp["emp_id"] != "EMP001" {
		t.Errorf("expected EMP001 in response, got %v", body["employee"])
	}
}

func TestPunchMissingImage(t *testing.T) {
	env := newTestEnv(t, nil)
	handler := NewPunchHandler(env.service)

	req := jsonRequest(t, http.MethodPost, "/api/v1/punch", map[string]any{
		"action": "punch_in",
	})
	rec := httptest.NewRecorder()
	handler.Punch(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestPunchInvalidAction(t *testing.T) {
	env := newTestEnv(t, map[string][]float64{"ada-face": {1, 0, 0}})
	seedEmployee(env, "EMP001", "Ada Lovelace", []float64{1, 0, 0})
	handler := NewPunchHandler(env.service)

	req := jsonRequest(t, http.MethodPost, "/api/v1/punch", map[string]any{
		"image":  capture("ada-face"),
		"action": "coffee_break",
	})
	rec := httptest.NewRecorder()
	handler.Punch(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for unknown action, got %d", rec.Code)
	}
}

func TestPunchNoFaceDetected(t *testing.T) {
	env := newTestEnv(t, map[string][]float64{})
	handler := NewPunchHandler(env.service)

	req := jsonRequest(t, http.MethodPost, "/api/v1/punch", map[string]any{
		"image":  capture("blurry"),
		"action": "punch_in",
	})
	rec := httptest.NewRecorder()
	handler.Punch(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for missing face, got %d", rec.Code)
	}
}

func TestPunchUnrecognizedFaceReportsScore(t *testing.T) {
	env := newTestEnv(t, map[string][]float64{"stranger": {0, 0, 1}})
	seedEmployee(env, "EMP001", "Ada Lovelace", []float64{1, 0, 0})
	handler := NewPunchHandler(env.service)

	req := jsonRequest(t, http.MethodPost, "/api/v1/punch", map[string]any{
		"image":  capture("stranger"),
		"action": "punch_in",
	})
	rec := httptest.NewRecorder()
	handler.Punch(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unrecognized face, got %d", rec.Code)
	}
	body := decodeResponse(t, rec)
	if _, ok := body["best_match_score"]; !ok {
		t.Errorf("expected best_match_score in response, got %v", body)
	}
}

func TestPunchDoubleInConflict(t *testing.T) {
	env := newTestEnv(t, map[string][]float64{"ada-face": {1, 0, 0}})
	seedEmployee(env, "EMP001", "Ada Lovelace", []float64{1, 0, 0})
	handler := NewPunchHandler(env.service)

	body := map[string]any{"image": capture("ada-face"), "action": "punch_in"}

	rec := httptest.NewRecorder()
	handler.Punch(rec, jsonRequest(t, http.MethodPost, "/api/v1/punch", body))
	if rec.Code != http.StatusOK {
		t.Fatalf("first punch failed: %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	handler.Punch(rec, jsonRequest(t, http.MethodPost, "/api/v1/punch", body))
	if rec.Code != http.StatusConflict {
		t.Errorf("expected 409 for double punch-in, got %d", rec.Code)
	}
}

func TestPunchOutWithoutOpenSession(t *testing.T) {
	env := newTestEnv(t, map[string][]float64{"ada-face": {1, 0, 0}})
	seedEmployee(env, "EMP001", "Ada Lovelace", []float64{1, 0, 0})
	handler := NewPunchHandler(env.service)

	req := jsonRequest(t, http.MethodPost, "/api/v1/punch", map[string]any{
		"image":  capture("ada-face"),
		"action": "punch_out",
	})
	rec := httptest.NewRecorder()
	handler.Punch(rec, req)

	if rec.Code != http.StatusConflict {
		t.Errorf("expected 409 for punch-out without session, got %d", rec.Code)
	}
}
