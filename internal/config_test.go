package internal

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	pkgconfig "github.com/starford/tablero/pkg/config"
)

func TestAuthConfig_DisabledMode(t *testing.T) {
	cfg := AuthConfig{Mode: "disabled", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled mode should pass: %v", err)
	}
	if cfg.AuthEnabled() {
		t.Error("disabled mode should not be enabled")
	}
}

func TestAuthConfig_EmptyModeDefaultsDisabled(t *testing.T) {
	cfg := AuthConfig{Mode: "", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty mode should default to disabled: %v", err)
	}
	if cfg.Mode != AuthModeDisabled {
		t.Errorf("mode = %q, want %q", cfg.Mode, AuthModeDisabled)
	}
}

func TestAuthConfig_TokenModeEmptyToken(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: ""}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("token mode with empty token should fail")
	}
	if !strings.Contains(err.Error(), "token is empty") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestAuthConfig_InvalidMode(t *testing.T) {
	cfg := AuthConfig{Mode: "magic", Token: "x"}
	if err := cfg.Validate(); err == nil {
		t.Fatal("invalid mode should fail validation")
	}
}

func TestDefaultConfigIsValid(t *testing.T) {
	if err := NewDefaultConfig().Validate(); err != nil {
		t.Fatalf("default config: %v", err)
	}
}

func TestStorageConfig_Paths(t *testing.T) {
	cfg := StorageConfig{DataDir: "/var/lib/tablero", LocalDB: "local.db", SyncedDB: "/mnt/sync/synced.db", Debounce: time.Second}
	if got := cfg.LocalPath(); got != filepath.Join("/var/lib/tablero", "local.db") {
		t.Errorf("local = %s", got)
	}
	if got := cfg.SyncedPath(); got != "/mnt/sync/synced.db" {
		t.Errorf("synced = %s", got)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("valid storage config: %v", err)
	}
}

func TestStorageConfig_SameTierFiles(t *testing.T) {
	cfg := NewDefaultConfig().Storage
	cfg.SyncedDB = cfg.LocalDB
	if err := cfg.Validate(); err == nil {
		t.Fatal("identical tier files should fail validation")
	}
}

func TestStorageConfig_DebounceTooShort(t *testing.T) {
	cfg := NewDefaultConfig().Storage
	cfg.Debounce = time.Millisecond
	if err := cfg.Validate(); err == nil {
		t.Fatal("1ms debounce should fail validation")
	}
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	t.Setenv("TABLERO_TEST_TOKEN", "s3cret")
	yaml := `
app:
  log_level: debug
  http:
    port: 9090
storage:
  data_dir: /tmp/tablero
  local_db: local.db
  synced_db: synced.db
  directory: /tmp/tablero/mirror
  auto_sync: false
  debounce: 500ms
auth:
  mode: token
  token: ${TABLERO_TEST_TOKEN}
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := NewDefaultConfig()
	loaded, err := pkgconfig.LoadOptional(path, cfg)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !loaded {
		t.Fatal("expected file to be loaded")
	}
	if cfg.App.HTTP.Port != 9090 || cfg.Storage.Debounce != 500*time.Millisecond || cfg.Storage.AutoSync {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.Auth.Token != "s3cret" {
		t.Errorf("token = %q, want env expansion", cfg.Auth.Token)
	}
	if cfg.App.HTTP.ChangeThrottle != 100*time.Millisecond {
		t.Errorf("unset field lost its default: %v", cfg.App.HTTP.ChangeThrottle)
	}
}

func TestFullConfig_AuthValidationCalled(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Auth.Mode = "token"
	cfg.Auth.Token = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("full config validate should catch auth error")
	}
}
