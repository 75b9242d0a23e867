package internal

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App     ApplicationConfig `yaml:"app"`
	Storage StorageConfig     `yaml:"storage"`
	Auth    AuthConfig        `yaml:"auth"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
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
	// ChangeThrottle is the minimum gap between tiles.changed events.
	ChangeThrottle time.Duration `yaml:"change_throttle"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
		validation.Field(&c.ChangeThrottle, validation.Min(time.Duration(0))),
	)
}

// StorageConfig holds the storage tiers and the on-disk mirror settings.
//
// LocalDB and SyncedDB are resolved against DataDir when relative.
// Directory, when set, is used as the on-disk mirror unless the user has
// already chosen one.
type StorageConfig struct {
	DataDir       string        `yaml:"data_dir"`
	LocalDB       string        `yaml:"local_db"`
	SyncedDB      string        `yaml:"synced_db"`
	Directory     string        `yaml:"directory"`
	AutoSync      bool          `yaml:"auto_sync"`
	Debounce      time.Duration `yaml:"debounce"`
	BookmarksFile string        `yaml:"bookmarks_file"`
}

// Validate validates the storage configuration.
func (c *StorageConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.DataDir, validation.Required),
		validation.Field(&c.LocalDB, validation.Required),
		validation.Field(&c.SyncedDB, validation.Required, validation.By(func(any) error {
			if c.LocalPath() == c.SyncedPath() {
				return fmt.Errorf("must differ from local_db")
			}
			return nil
		})),
		validation.Field(&c.Debounce, validation.Required, validation.Min(10*time.Millisecond)),
	)
}

// LocalPath is the fast tier database file.
func (c *StorageConfig) LocalPath() string {
	return c.resolve(c.LocalDB)
}

// SyncedPath is the synced tier database file.
func (c *StorageConfig) SyncedPath() string {
	return c.resolve(c.SyncedDB)
}

func (c *StorageConfig) resolve(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.DataDir, p)
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
				Port:           8080,
				ChangeThrottle: 100 * time.Millisecond,
			},
		},
		Storage: StorageConfig{
			DataDir:  "./data",
			LocalDB:  "local.db",
			SyncedDB: "synced.db",
			AutoSync: true,
			Debounce: 300 * time.Millisecond,
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}
