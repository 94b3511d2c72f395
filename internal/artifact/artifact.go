// Package artifact stores captured face images on disk. Enrollment photos
// are kept; kiosk recognition captures are temporary and must be removed
// after every attempt regardless of outcome.
package artifact

import (
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Store writes image artifacts below a base directory.
type Store struct {
	dir string
}

// NewStore creates an artifact store rooted at dir.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// DecodeBase64 decodes a base64 image payload, tolerating a data URI
// prefix ("data:image/jpeg;base64,...") as browsers send it.
func DecodeBase64(data string) ([]byte, error) {
	if idx := strings.Index(data, "base64,"); idx >= 0 {
		data = data[idx+len("base64,"):]
	}
	decoded, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, fmt.Errorf("decoding image data: %w", err)
	}
	if len(decoded) == 0 {
		return nil, fmt.Errorf("empty image data")
	}
	return decoded, nil
}

// SaveFace persists an enrollment photo for the employee and returns its
// path. The caller removes it again if enrollment is rejected.
func (s *Store) SaveFace(employeeID string, data []byte) (string, error) {
	name := fmt.Sprintf("%s_%s.jpg", employeeID, time.Now().Format("20060102150405"))
	return s.write(filepath.Join("faces", name), data)
}

// SaveTemp writes a transient recognition capture and returns its path.
func (s *Store) SaveTemp(data []byte) (string, error) {
	name := fmt.Sprintf("capture_%s.jpg", uuid.NewString())
	return s.write(filepath.Join("tmp", name), data)
}

// Remove deletes an artifact. Removing a path that is already gone is not
// an error; cleanup runs on every exit path and may race its own retries.
func (s *Store) Remove(path string) error {
	if path == "" {
		return nil
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing artifact %s: %w", path, err)
	}
	return nil
}

func (s *Store) write(rel string, data []byte) (string, error) {
	path := filepath.Join(s.dir, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("creating artifact directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing artifact: %w", err)
	}
	return path, nil
}
