// Package extractor talks to the external face-descriptor service. The
// service maps an image to a fixed-length real-valued vector; the model
// behind it is not part of this codebase.
package extractor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"
)

const defaultBaseURL = "http://localhost:8000"

// ErrNoFaceDetected is returned when the service finds no face in the
// submitted image. This is an expected user-facing condition, not an
// infrastructure failure.
var ErrNoFaceDetected = errors.New("no face detected in the captured photo")

// Extractor maps an image to a face descriptor.
type Extractor interface {
	Extract(ctx context.Context, imageData []byte) ([]float64, error)
}

// Func adapts a function to the Extractor interface, mainly for tests.
type Func func(ctx context.Context, imageData []byte) ([]float64, error)

// Extract calls f.
func (f Func) Extract(ctx context.Context, imageData []byte) ([]float64, error) {
	return f(ctx, imageData)
}

// Client is an HTTP client for the descriptor service.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a descriptor service client.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// descriptorResponse is the service's JSON response shape.
type descriptorResponse struct {
	Descriptor []float64 `json:"descriptor"`
	Dim        int       `json:"dim"`
	Model      string    `json:"model"`
}

// Extract posts the image to the descriptor service. Images are downscaled
// before upload; the service does not need full resolution to find a face.
// Returns ErrNoFaceDetected when the service reports no face (422) or an
// empty descriptor.
func (c *Client) Extract(ctx context.Context, imageData []byte) ([]float64, error) {
	resized, err := resizeImage(imageData, maxUploadSize)
	if err != nil {
		// Send the original if it cannot be decoded locally; the
		// service has its own decoders.
		resized = imageData
	}

	body, status, err := c.postMultipartImage(ctx, "/descriptor", resized)
	if err != nil {
		return nil, err
	}
	if status == http.StatusUnprocessableEntity {
		return nil, ErrNoFaceDetected
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("descriptor service error (status %d): %s", status, string(body))
	}

	var resp descriptorResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parsing descriptor response: %w", err)
	}
	if len(resp.Descriptor) == 0 {
		return nil, ErrNoFaceDetected
	}
	return resp.Descriptor, nil
}

// postMultipartImage builds a multipart form around the image bytes and
// posts it. The part carries an explicit Content-Type from magic-byte
// detection so the service does not have to sniff.
func (c *Client) postMultipartImage(ctx context.Context, endpoint string, imageData []byte) ([]byte, int, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="capture.jpg"`)
	h.Set("Content-Type", detectMIMEType(imageData))
	part, err := writer.CreatePart(h)
	if err != nil {
		return nil, 0, fmt.Errorf("creating form part: %w", err)
	}
	if _, err := part.Write(imageData); err != nil {
		return nil, 0, fmt.Errorf("writing image data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, 0, fmt.Errorf("closing multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, &buf)
	if err != nil {
		return nil, 0, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("descriptor request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("reading response: %w", err)
	}
	return body, resp.StatusCode, nil
}

// detectMIMEType detects the image MIME type from magic bytes.
func detectMIMEType(data []byte) string {
	if len(data) < 8 {
		return "application/octet-stream"
	}
	// JPEG: FF D8 FF
	if data[0] == 0xFF && data[1] == 0xD8 && data[2] == 0xFF {
		return "image/jpeg"
	}
	// PNG: 89 50 4E 47
	if data[0] == 0x89 && data[1] == 0x50 && data[2] == 0x4E && data[3] == 0x47 {
		return "image/png"
	}
	// WebP: RIFF....WEBP
	if len(data) >= 12 && data[0] == 0x52 && data[1] == 0x49 && data[2] == 0x46 && data[3] == 0x46 &&
		data[8] == 0x57 && data[9] == 0x45 && data[10] == 0x42 && data[11] == 0x50 {
		return "image/webp"
	}
	return "application/octet-stream"
}
