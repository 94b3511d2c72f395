package config

import (
	_ "embed"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

//go:embed shifts.yaml
var shiftsYAML []byte

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Extractor ExtractorConfig
	Geocode   GeocodeConfig
	Artifacts ArtifactConfig
	Shift     ShiftConfig
	Shifts    ShiftsConfig
}

type ServerConfig struct {
	Port int // HTTP listen port (default 8080)
}

type DatabaseConfig struct {
	URI  string // MongoDB connection URI
	Name string // database name (default "argus")
}

type ExtractorConfig struct {
	URL string // face descriptor service URL, defaults to http://localhost:8000
}

type GeocodeConfig struct {
	URL string // Nominatim base URL; empty selects the public instance
}

type ArtifactConfig struct {
	Dir string // base directory for captured images (default "uploads")
}

// ShiftConfig is the shift applied to all employees, selected from the
// embedded shift table by SHIFT_NAME and overridable per field via
// SHIFT_START / SHIFT_END.
type ShiftConfig struct {
	Start string // HH:MM
	End   string // HH:MM
}

type ShiftsConfig struct {
	Shifts map[string]ShiftTimes `yaml:"shifts"`
}

type ShiftTimes struct {
	Start string `yaml:"start"`
	End   string `yaml:"end"`
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

func envString(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

func Load() *Config {
	var shifts ShiftsConfig
	if err := yaml.Unmarshal(shiftsYAML, &shifts); err != nil {
		// This is an embedded file so this error should never happen in practice
		panic("failed to unmarshal embedded shifts.yaml: " + err.Error())
	}

	return &Config{
		Server: ServerConfig{
			Port: envInt("PORT", 8080),
		},
		Database: DatabaseConfig{
			URI:  envString("MONGODB_URI", "mongodb://localhost:27017"),
			Name: envString("DATABASE_NAME", "argus"),
		},
		Extractor: ExtractorConfig{
			URL: os.Getenv("EXTRACTOR_URL"),
		},
		Geocode: GeocodeConfig{
			URL: os.Getenv("NOMINATIM_URL"),
		},
		Artifacts: ArtifactConfig{
			Dir: envString("UPLOAD_DIR", "uploads"),
		},
		Shift:  resolveShift(shifts),
		Shifts: shifts,
	}
}

// resolveShift picks the named shift from the embedded table and applies
// env overrides on top.
func resolveShift(shifts ShiftsConfig) ShiftConfig {
	shift := ShiftConfig{Start: "09:00", End: "17:00"}
	if times, ok := shifts.Shifts[envString("SHIFT_NAME", "standard")]; ok {
		shift.Start = times.Start
		shift.End = times.End
	}
	if s := os.Getenv("SHIFT_START"); s != "" {
		shift.Start = s
	}
	if s := os.Getenv("SHIFT_END"); s != "" {
		shift.End = s
	}
	return shift
}
