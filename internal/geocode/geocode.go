// Package geocode resolves punch coordinates to human readable addresses
// using the OpenStreetMap Nominatim API. Resolution is best effort; any
// failure degrades to a coordinate string so a punch never fails because
// the geocoder is down.
package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultBaseURL = "https://nominatim.openstreetmap.org"

// userAgent identifies the service to Nominatim, which rejects anonymous
// clients.
const userAgent = "argus-attendance/1.0"

// Resolver turns coordinates into an address string.
type Resolver interface {
	Reverse(ctx context.Context, lat, lon float64) string
}

// Func adapts a plain function to the Resolver interface.
type Func func(ctx context.Context, lat, lon float64) string

func (f Func) Reverse(ctx context.Context, lat, lon float64) string {
	return f(ctx, lat, lon)
}

// Client is a Nominatim reverse geocoding client.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a geocoding client. An empty baseURL selects the
// public Nominatim instance.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

type reverseResponse struct {
	DisplayName string `json:"display_name"`
	Address     struct {
		Road          string `json:"road"`
		Neighbourhood string `json:"neighbourhood"`
		Suburb        string `json:"suburb"`
		City          string `json:"city"`
		Town          string `json:"town"`
		Village       string `json:"village"`
		State         string `json:"state"`
		Postcode      string `json:"postcode"`
		Country       string `json:"country"`
	} `json:"address"`
}

// Reverse resolves coordinates into a short address. It never fails:
// on any error it falls back to the coordinate string.
func (c *Client) Reverse(ctx context.Context, lat, lon float64) string {
	fallback := CoordinateString(lat, lon)

	q := url.Values{}
	q.Set("format", "json")
	q.Set("lat", fmt.Sprintf("%f", lat))
	q.Set("lon", fmt.Sprintf("%f", lon))
	q.Set("zoom", "18")
	q.Set("addressdetails", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/reverse?"+q.Encode(), nil)
	if err != nil {
		return fallback
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return fallback
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fallback
	}

	var parsed reverseResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return fallback
	}

	if short := shortAddress(parsed); short != "" {
		return short
	}
	if parsed.DisplayName != "" {
		return parsed.DisplayName
	}
	return fallback
}

// shortAddress assembles the most specific available parts, preferring
// street level detail over administrative regions.
func shortAddress(r reverseResponse) string {
	a := r.Address
	locality := firstNonEmpty(a.City, a.Town, a.Village)
	parts := make([]string, 0, 4)
	for _, p := range []string{firstNonEmpty(a.Road, a.Neighbourhood, a.Suburb), locality, a.State, a.Country} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// CoordinateString formats raw coordinates as a location of last resort.
func CoordinateString(lat, lon float64) string {
	return fmt.Sprintf("Location at %.6f, %.6f", lat, lon)
}

// Describe resolves an optional coordinate pair. Missing coordinates
// yield "Location not recorded".
func Describe(ctx context.Context, r Resolver, lat, lon *float64) string {
	if lat == nil || lon == nil {
		return "Location not recorded"
	}
	return r.Reverse(ctx, *lat, *lon)
}
