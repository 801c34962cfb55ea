package internal

import (
	"fmt"
	"log/slog"
	"regexp"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/asteria/internal/layout"
	"github.com/starford/asteria/internal/source"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

var endpointRe = regexp.MustCompile(`^https?://[^\s/]+`)

// Source kinds.
const (
	SourceKindHTTP = "http"
	SourceKindFile = "file"
)

// Config represents the application configuration.
type Config struct {
	App     ApplicationConfig `yaml:"app"`
	Source  SourceConfig      `yaml:"source"`
	Layout  layout.Options    `yaml:"layout"`
	SQLite  SQLiteConfig      `yaml:"sqlite"`
	Storage StorageConfig     `yaml:"storage"`
	Auth    AuthConfig        `yaml:"auth"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Source.Validate(); err != nil {
		return err
	}
	if err := validateLayout(&c.Layout); err != nil {
		return err
	}
	if err := c.SQLite.Validate(); err != nil {
		return err
	}
	if err := c.Storage.Validate(); err != nil {
		return err
	}
	return c.Auth.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// SourceConfig describes where the project tree is fetched from.
//
// Kind "http" requests <Endpoint>/<ProjectID>; kind "file" reads
// <Dir>/<ProjectID>.json (or .yaml/.yml) and, with Watch set, reloads on change.
type SourceConfig struct {
	Kind        string        `yaml:"kind"`
	Endpoint    string        `yaml:"endpoint"`
	Dir         string        `yaml:"dir"`
	ProjectID   int64         `yaml:"project_id"`
	Timeout     time.Duration `yaml:"timeout"`
	SanitizeIDs bool          `yaml:"sanitize_ids"`
	// SanitizeSeed keys the id remapping. Changing it orphans locally added models.
	SanitizeSeed uint64 `yaml:"sanitize_seed"`
	Watch        bool   `yaml:"watch"`
}

func (c *SourceConfig) sanitizer() source.Sanitizer {
	return source.Sanitizer{Enabled: c.SanitizeIDs, Seed: c.SanitizeSeed}
}

// Validate validates the source configuration.
func (c *SourceConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Kind, validation.Required, validation.In(SourceKindHTTP, SourceKindFile)),
		validation.Field(&c.Endpoint,
			validation.When(c.Kind == SourceKindHTTP, validation.Required, validation.Match(endpointRe)),
		),
		validation.Field(&c.Dir, validation.When(c.Kind == SourceKindFile, validation.Required)),
		validation.Field(&c.ProjectID, validation.Min(int64(0))),
		validation.Field(&c.Timeout, validation.Required, validation.Min(time.Millisecond)),
	)
}

func validateLayout(o *layout.Options) error {
	if err := validation.ValidateStruct(o,
		validation.Field(&o.RowSpacing, validation.Required, validation.Min(float64(1))),
	); err != nil {
		return fmt.Errorf("layout: %w", err)
	}
	if o.ModelColumn <= o.ChallengeColumn || o.ChallengeColumn <= o.ProjectColumn {
		return fmt.Errorf("layout: columns must increase left to right")
	}
	return nil
}

// SQLiteConfig holds SQLite database configuration.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// StorageConfig holds the directory that receives diagram exports.
type StorageConfig struct {
	ExportPath string `yaml:"export_path"`
}

// Validate validates the storage configuration.
func (c *StorageConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.ExportPath, validation.Required),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local dev.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Source: SourceConfig{
			Kind:      SourceKindHTTP,
			Endpoint:  "http://localhost:3000/projects",
			Dir:       "./projects",
			ProjectID: 1,
			Timeout:   10 * time.Second,
		},
		Layout: layout.DefaultOptions(),
		SQLite: SQLiteConfig{
			Path: "./asteria.db",
		},
		Storage: StorageConfig{
			ExportPath: "./data",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}
