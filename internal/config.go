package internal

import (
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/luhmann/internal/luhmann"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App     ApplicationConfig `yaml:"app"`
	Vault   VaultConfig       `yaml:"vault"`
	SQLite  SQLiteConfig      `yaml:"sqlite"`
	Auth    AuthConfig        `yaml:"auth"`
	Notes   NotesConfig       `yaml:"notes"`
	Luhmann luhmann.Config    `yaml:"luhmann"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Vault.Validate(); err != nil {
		return err
	}
	if err := c.SQLite.Validate(); err != nil {
		return err
	}
	if err := c.Auth.Validate(); err != nil {
		return err
	}
	if err := c.Notes.Validate(); err != nil {
		return err
	}
	if err := c.Luhmann.Validate(); err != nil {
		return err
	}
	// The grammar also checks the characters against the primary ID pattern.
	if _, err := c.Grammar(); err != nil {
		return err
	}
	return nil
}

// Grammar builds the Luhmann ID grammar for the configured naming scheme.
func (c *Config) Grammar() (*luhmann.Grammar, error) {
	return luhmann.NewGrammar(c.Luhmann, c.Notes.IDPattern)
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

// VaultConfig holds the path to the Markdown vault directory.
type VaultConfig struct {
	Path      string `yaml:"path"`
	// Recursive makes the index include notes in subdirectories.
	Recursive bool   `yaml:"recursive"`
}

// Validate validates the vault configuration.
func (c *VaultConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
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

// NotesConfig describes how note files are named.
type NotesConfig struct {
	// IDPattern is the regular expression matching a primary ID.
	IDPattern string `yaml:"id_pattern"`
	// IDFormat is the time layout new primary IDs are formatted with.
	IDFormat  string `yaml:"id_format"`
	Extension string `yaml:"extension"`
}

// Validate validates the notes configuration.
func (c *NotesConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.IDPattern, validation.Required, validation.By(compiles)),
		validation.Field(&c.IDFormat, validation.Required, validation.By(c.matchesPattern)),
		validation.Field(&c.Extension, validation.Required, validation.By(isExtension)),
	)
}

// matchesPattern checks that IDs formatted with the layout satisfy IDPattern.
func (c *NotesConfig) matchesPattern(value interface{}) error {
	layout, _ := value.(string)
	re, err := regexp.Compile("^(?:" + c.IDPattern + ")$")
	if err != nil {
		return nil
	}
	sample := time.Date(2020, 12, 9, 11, 30, 0, 0, time.UTC).Format(layout)
	if !re.MatchString(sample) {
		return fmt.Errorf("formats %q, which id_pattern does not match", sample)
	}
	return nil
}

func compiles(value interface{}) error {
	s, _ := value.(string)
	if _, err := regexp.Compile(s); err != nil {
		return errors.New("must be a valid regular expression")
	}
	return nil
}

func isExtension(value interface{}) error {
	s, _ := value.(string)
	if !strings.HasPrefix(s, ".") || strings.ContainsAny(s, "/\\ ") {
		return errors.New(`must start with "." and contain no separators`)
	}
	return nil
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
	// Normalise empty mode to "disabled" for backward compatibility.
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
		Vault: VaultConfig{
			Path: "./vault",
		},
		SQLite: SQLiteConfig{
			Path: "./luhmann.db",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
		Notes: NotesConfig{
			IDPattern: "[0-9]{12}",
			IDFormat:  "200601021504",
			Extension: ".md",
		},
		Luhmann: luhmann.DefaultConfig(),
	}
}
