package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

type sample struct {
	Name  string `yaml:"name"`
	Count int    `yaml:"count"`
}

func (s *sample) Validate() error {
	if s.Count < 0 {
		return errors.New("count must be non-negative")
	}
	return nil
}

func TestLoadOptional_MissingFileKeepsDefaults(t *testing.T) {
	s := &sample{Name: "default", Count: 1}
	loaded, err := LoadOptional(filepath.Join(t.TempDir(), "absent.yaml"), s)
	if err != nil {
		t.Fatalf("LoadOptional: %v", err)
	}
	if loaded {
		t.Error("missing file reported as loaded")
	}
	if s.Name != "default" || s.Count != 1 {
		t.Errorf("defaults changed: %+v", s)
	}
}

func TestLoadOptional_ValidatesDefaults(t *testing.T) {
	s := &sample{Count: -1}
	if _, err := LoadOptional(filepath.Join(t.TempDir(), "absent.yaml"), s); err == nil {
		t.Fatal("invalid defaults should fail")
	}
}

func TestLoad_ParseError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("name: [unterminated"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadOptional(path, &sample{}); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestLoad_ExpandsEnv(t *testing.T) {
	t.Setenv("SAMPLE_NAME", "from-env")
	path := filepath.Join(t.TempDir(), "ok.yaml")
	if err := os.WriteFile(path, []byte("name: ${SAMPLE_NAME}\ncount: 3\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	s := &sample{}
	if err := Load(path, s); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.Name != "from-env" || s.Count != 3 {
		t.Errorf("got %+v", s)
	}
}
