package geocode

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestReverseShortAddress(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/reverse" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if r.Header.Get("User-Agent") == "" {
			t.Errorf("missing User-Agent header")
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"display_name": "1, Main Street, Springfield, Oregon, United States",
			"address": {
				"road": "Main Street",
				"city": "Springfield",
				"state": "Oregon",
				"country": "United States"
			}
		}`))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	got := client.Reverse(context.Background(), 44.05, -123.02)
	want := "Main Street, Springfield, Oregon, United States"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestReverseFallsBackToDisplayName(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"display_name": "Middle of Nowhere", "address": {}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	got := client.Reverse(context.Background(), 0, 0)
	if got != "Middle of Nowhere" {
		t.Errorf("expected display name fallback, got %q", got)
	}
}

func TestReverseDegradesToCoordinates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	got := client.Reverse(context.Background(), 12.345678, 98.765432)
	want := "Location at 12.345678, 98.765432"
	if got != want {
		t.Errorf("expected coordinate fallback %q, got %q", want, got)
	}
}

func TestReverseUnreachableServer(t *testing.T) {
	client := NewClient("http://127.0.0.1:1")
	got := client.Reverse(context.Background(), 1.5, 2.5)
	if got != "Location at 1.500000, 2.500000" {
		t.Errorf("expected coordinate fallback, got %q", got)
	}
}

func TestDescribe(t *testing.T) {
	resolver := Func(func(ctx context.Context, lat, lon float64) string {
		return "Resolved Address"
	})

	lat, lon := 1.0, 2.0
	if got := Describe(context.Background(), resolver, &lat, &lon); got != "Resolved Address" {
		t.Errorf("expected resolver result, got %q", got)
	}
	if got := Describe(context.Background(), resolver, nil, nil); got != "Location not recorded" {
		t.Errorf("expected missing-location message, got %q", got)
	}
	if got := Describe(context.Background(), resolver, &lat, nil); got != "Location not recorded" {
		t.Errorf("expected missing-location message for partial coordinates, got %q", got)
	}
}
