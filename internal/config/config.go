package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config represents the main configuration for coursesync.
type Config struct {
	LogDir    string          `toml:"log_dir"`
	Database  DatabaseConfig  `toml:"database"`
	Drive     DriveConfig     `toml:"drive"`
	MimeTypes MimeTypesConfig `toml:"mime_types"`
	Policy    PolicyConfig    `toml:"policy"`
	Seed      SeedConfig      `toml:"seed"`
}

// DatabaseConfig represents configuration for the membership database.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type DatabaseConfig struct {
	Type string `toml:"type"`           // "sqlite" or "memory"
	Path string `toml:"path,omitempty"` // only used for type=sqlite
}

// DriveConfig represents configuration for the remote storage backend.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type DriveConfig struct {
	Type string `toml:"type"` // "google" or "memory"

	// Google-specific fields (only used when Type == "google")
	CredentialsPath string   `toml:"credentials_path,omitempty"`
	Scopes          []string `toml:"scopes,omitempty"`
	ServiceName     string   `toml:"service_name,omitempty"`
	ServiceVersion  string   `toml:"service_version,omitempty"`

	// CopyRestriction is the file-attribute payload applied to
	// presentation files by the restrict-copy operation.
	CopyRestriction map[string]any `toml:"copy_restriction,omitempty"`
}

// MimeTypesConfig maps logical content-type names to the storage
// service's native type-query fragments.
type MimeTypesConfig struct {
	Folder       string `toml:"folder"`
	Presentation string `toml:"presentation"`
	Docs         string `toml:"docs"`
	Sheet        string `toml:"sheet"`
	Image        string `toml:"image"`
	Other        string `toml:"other"`
	Unknown      string `toml:"unknown"`
}

// SecondaryQueries returns the type queries classifying secondary course
// files, in a fixed order so listings are deterministic.
func (m MimeTypesConfig) SecondaryQueries() []string {
	return []string{m.Docs, m.Sheet, m.Image, m.Other, m.Unknown}
}

// PolicyConfig holds behavior switches for ambiguities in the legacy data
// model.
type PolicyConfig struct {
	// CourseKeyIncludesSubCategory widens the course dedup key to
	// (Category, SubCategory, Course). Off by default: the legacy key is
	// (Category, Course), even though path resolution uses the
	// sub-category.
	CourseKeyIncludesSubCategory bool `toml:"course_key_includes_subcategory"`

	// MissingFolder is "fail" (a course path segment missing from the
	// remote tree aborts the run; default) or "skip" (the course is
	// skipped with a logged warning).
	MissingFolder string `toml:"missing_folder,omitempty"`
}

// SeedConfig points at the JSON mock-data file used by db seed.
type SeedConfig struct {
	DataPath string `toml:"data_path,omitempty"`
}

// NewConfig creates a Config with defaults rooted in baseDir.
func NewConfig(baseDir string) *Config {
	return &Config{
		LogDir: filepath.Join(baseDir, "log"),
		Database: DatabaseConfig{
			Type: "sqlite",
			Path: filepath.Join(baseDir, "courses.db"),
		},
		Drive: DriveConfig{
			Type:            "google",
			CredentialsPath: filepath.Join(baseDir, "credentials.json"),
			Scopes:          []string{"https://www.googleapis.com/auth/drive"},
			ServiceName:     "drive",
			ServiceVersion:  "v3",
			CopyRestriction: map[string]any{"copyRequiresWriterPermission": true},
		},
		MimeTypes: MimeTypesConfig{
			Folder:       "mimeType='application/vnd.google-apps.folder'",
			Presentation: "mimeType='application/vnd.google-apps.presentation'",
			Docs:         "mimeType='application/vnd.google-apps.document'",
			Sheet:        "mimeType='application/vnd.google-apps.spreadsheet'",
			Image:        "mimeType contains 'image/'",
			Other:        "mimeType='application/pdf'",
			Unknown:      "mimeType='application/octet-stream'",
		},
		Policy: PolicyConfig{
			MissingFolder: "fail",
		},
		Seed: SeedConfig{
			DataPath: filepath.Join(baseDir, "mock_data.json"),
		},
	}
}

// Validate reports the first missing or inconsistent required setting.
// Called once at startup so a bad config fails loudly before any mutation.
func (c *Config) Validate() error {
	switch c.Database.Type {
	case "sqlite":
		if c.Database.Path == "" {
			return fmt.Errorf("database.path is required for sqlite")
		}
	case "memory":
	default:
		return fmt.Errorf("unknown database.type: %q", c.Database.Type)
	}

	switch c.Drive.Type {
	case "google":
		if c.Drive.CredentialsPath == "" {
			return fmt.Errorf("drive.credentials_path is required")
		}
		if len(c.Drive.Scopes) == 0 {
			return fmt.Errorf("drive.scopes is required")
		}
		if c.Drive.ServiceName != "" && c.Drive.ServiceName != "drive" {
			return fmt.Errorf("drive.service_name must be \"drive\", got %q", c.Drive.ServiceName)
		}
		if c.Drive.ServiceVersion != "" && c.Drive.ServiceVersion != "v3" {
			return fmt.Errorf("drive.service_version must be \"v3\", got %q", c.Drive.ServiceVersion)
		}
	case "memory":
	default:
		return fmt.Errorf("unknown drive.type: %q", c.Drive.Type)
	}

	required := []struct{ key, value string }{
		{"mime_types.folder", c.MimeTypes.Folder},
		{"mime_types.presentation", c.MimeTypes.Presentation},
		{"mime_types.docs", c.MimeTypes.Docs},
		{"mime_types.sheet", c.MimeTypes.Sheet},
		{"mime_types.image", c.MimeTypes.Image},
		{"mime_types.other", c.MimeTypes.Other},
		{"mime_types.unknown", c.MimeTypes.Unknown},
	}
	for _, r := range required {
		if r.value == "" {
			return fmt.Errorf("%s is required", r.key)
		}
	}

	switch c.Policy.MissingFolder {
	case "", "fail", "skip":
	default:
		return fmt.Errorf("policy.missing_folder must be \"fail\" or \"skip\", got %q", c.Policy.MissingFolder)
	}

	return nil
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads a Config from the specified file path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return cfg, nil
}

// writeToFile writes a Config to the specified file path.
// This is an internal helper and should not be exported.
func writeToFile(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init initializes a new config file at the specified path with the provided Config.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}
