package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/ont/internal/collection"
	"github.com/starford/ont/internal/weave"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App        ApplicationConfig `yaml:"app"`
	Collection CollectionConfig  `yaml:"collection"`
	SQLite     SQLiteConfig      `yaml:"sqlite"`
	Auth       AuthConfig        `yaml:"auth"`
	Weave      WeaveConfig       `yaml:"weave"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Collection.Validate(); err != nil {
		return err
	}
	if err := c.SQLite.Validate(); err != nil {
		return err
	}
	if err := c.Weave.Validate(); err != nil {
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

// CollectionConfig locates the outline collection and says how its file
// names map to headlines.
type CollectionConfig struct {
	Path            string `yaml:"path"`
	Extension       string `yaml:"extension"`
	ExtensionPolicy string `yaml:"extension_policy"`
}

// Validate validates the collection configuration.
func (c *CollectionConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
		validation.Field(&c.ExtensionPolicy, validation.In("", "conventional", "all")),
	); err != nil {
		return err
	}
	_, err := collection.ParseExtensionPolicy(c.ExtensionPolicy)
	return err
}

// Options returns the collection options the configuration asks for.
func (c *CollectionConfig) Options(logger *slog.Logger) []collection.Option {
	policy, err := collection.ParseExtensionPolicy(c.ExtensionPolicy)
	if err != nil {
		policy = collection.StripConventional
	}
	return []collection.Option{
		collection.WithExtension(c.Extension),
		collection.WithExtensionPolicy(policy),
		collection.WithLogger(logger),
	}
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

// WeaveConfig controls script execution.
type WeaveConfig struct {
	Shell   string        `yaml:"shell"`
	Timeout time.Duration `yaml:"timeout"`
}

// Validate validates the weave configuration.
func (c *WeaveConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Timeout, validation.Min(time.Duration(0))),
	)
}

// Options returns the weave options for the configuration.
func (c *WeaveConfig) Options(logger *slog.Logger) weave.Options {
	return weave.Options{Shell: c.Shell, Timeout: c.Timeout, Logger: logger}
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local use.
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
		Collection: CollectionConfig{
			Path:            ".",
			Extension:       collection.DefaultExtension,
			ExtensionPolicy: "conventional",
		},
		SQLite: SQLiteConfig{
			Path: "./.ont.db",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
		Weave: WeaveConfig{
			Shell: weave.DefaultShell,
		},
	}
}
