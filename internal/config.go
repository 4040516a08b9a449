package internal

import (
	"fmt"
	"log/slog"
	"regexp"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/coleus/internal/library"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

var (
	bookNameRe = regexp.MustCompile(`^[^/\\]+$`)
	corpusIDRe = regexp.MustCompile(`^[^:\s]+$`)
)

// Config represents the application configuration.
type Config struct {
	App    ApplicationConfig `yaml:"app" toml:"app"`
	Book   BookConfig        `yaml:"book" toml:"book"`
	Build  BuildConfig       `yaml:"build" toml:"build"`
	SQLite SQLiteConfig      `yaml:"sqlite" toml:"sqlite"`
	Auth   AuthConfig        `yaml:"auth" toml:"auth"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Book.Validate(); err != nil {
		return fmt.Errorf("book: %w", err)
	}
	if err := c.Build.Validate(); err != nil {
		return fmt.Errorf("build: %w", err)
	}
	if err := c.SQLite.Validate(); err != nil {
		return err
	}
	return c.Auth.Validate()
}

// Library returns the build settings of the configured book.
func (c *Config) Library() library.Config {
	return library.Config{
		Name:         c.Book.Name,
		CorpusID:     c.Book.ID,
		SourceRoot:   c.Book.Path,
		WorkDir:      c.Build.WorkDir,
		Strict:       c.Build.Strict,
		TitleHeading: c.Build.TitleHeading,
		Workers:      c.Build.Workers,
	}
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level" toml:"log_level"`
	HTTP     HTTPConfig `yaml:"http" toml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port" toml:"port"`
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

// BookConfig names the book and where its sources live.
//
// Sources are read from <path>/categories/<name> and <path>/entries/<name>.
// ID is the corpus id used in cross-references (^<id>:<doc>).
type BookConfig struct {
	Name     string `yaml:"name" toml:"name"`
	ID       string `yaml:"id" toml:"id"`
	Path     string `yaml:"path" toml:"path"`
	LangPath string `yaml:"lang_path" toml:"lang_path"`
}

// Validate validates the book configuration.
func (c *BookConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Name, validation.Required, validation.Match(bookNameRe).Error("must not contain path separators")),
		validation.Field(&c.ID, validation.Required, validation.Match(corpusIDRe).Error("must not contain ':' or spaces")),
		validation.Field(&c.Path, validation.Required),
	)
}

// BuildConfig controls the build pipeline.
type BuildConfig struct {
	WorkDir      string `yaml:"work_dir" toml:"work_dir"`
	Strict       bool   `yaml:"strict" toml:"strict"`
	TitleHeading bool   `yaml:"title_heading" toml:"title_heading"`
	Workers      int    `yaml:"workers" toml:"workers"`
}

// Validate validates the build configuration.
func (c *BuildConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.WorkDir, validation.Required),
		validation.Field(&c.Workers, validation.Min(0)),
	)
}

// SQLiteConfig holds SQLite database configuration.
type SQLiteConfig struct {
	Path string `yaml:"path" toml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local preview.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode" toml:"mode"`
	Token string `yaml:"token" toml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	// Normalise empty mode to "disabled".
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
		Book: BookConfig{
			Path: "./content",
		},
		Build: BuildConfig{
			WorkDir:      "./build",
			TitleHeading: true,
		},
		SQLite: SQLiteConfig{
			Path: "./build/coleus.db",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}
