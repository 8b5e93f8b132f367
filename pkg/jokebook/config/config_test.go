package config

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cognicore/jokebook/pkg/jokebook/internalerr"
)

func TestDefaultIsValid(t *testing.T) {
	if err := Validate(Default()); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestLoadFromReaderOverridesDefaults(t *testing.T) {
	cfg, err := LoadFromReader(strings.NewReader(`
log_level: debug
storage:
  driver: memory
thresholds:
  auto_organize: 0.6
organize:
  workers: 8
`))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}
	if cfg.LogLevel != LogDebug || cfg.LogLevel.Level() != slog.LevelDebug {
		t.Errorf("log level = %q", cfg.LogLevel)
	}
	if cfg.Storage.Driver != DriverMemory {
		t.Errorf("driver = %q", cfg.Storage.Driver)
	}
	if cfg.Thresholds.AutoOrganize != 0.6 {
		t.Errorf("auto_organize = %v", cfg.Thresholds.AutoOrganize)
	}
	// untouched keys keep their defaults
	if cfg.Thresholds.Suggestion != 0.25 || cfg.Duplicates.PrefixLength != 100 {
		t.Errorf("defaults lost: %+v", cfg)
	}
	if cfg.Organize.Workers != 8 {
		t.Errorf("workers = %d", cfg.Organize.Workers)
	}
}

func TestLoadFromReaderEmpty(t *testing.T) {
	cfg, err := LoadFromReader(strings.NewReader(""))
	if err != nil {
		t.Fatalf("empty config should yield defaults: %v", err)
	}
	if cfg.Storage.Driver != DriverSQLite {
		t.Errorf("driver = %q", cfg.Storage.Driver)
	}
}

func TestLoadFromReaderRejectsUnknownFields(t *testing.T) {
	_, err := LoadFromReader(strings.NewReader("thresholds:\n  suggestoin: 0.3\n"))
	if !errors.Is(err, internalerr.ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig for typo, got %v", err)
	}
}

func TestValidateCollectsAllProblems(t *testing.T) {
	cfg := Default()
	cfg.LogLevel = "verbose"
	cfg.Storage.Driver = "postgres"
	cfg.Thresholds.Suggestion = 1.5
	cfg.Duplicates.PrefixLength = 0
	cfg.Organize.Workers = 0

	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected validation errors")
	}
	if !errors.Is(err, internalerr.ErrInvalidConfig) {
		t.Errorf("errors should wrap ErrInvalidConfig: %v", err)
	}
	for _, want := range []string{"log_level", "storage.driver", "thresholds.suggestion", "duplicates.prefix_length", "organize.workers"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("missing %q in %v", want, err)
		}
	}
}

func TestValidateThresholdOrdering(t *testing.T) {
	cfg := Default()
	cfg.Thresholds.AutoOrganize = 0.1
	if err := Validate(cfg); err == nil || !strings.Contains(err.Error(), "auto_organize") {
		t.Errorf("expected auto_organize ordering error, got %v", err)
	}
}

func TestValidateSQLiteNeedsPath(t *testing.T) {
	cfg := Default()
	cfg.Storage.Path = ""
	if err := Validate(cfg); err == nil {
		t.Error("sqlite without a path should fail")
	}
	cfg.Storage.Driver = DriverMemory
	if err := Validate(cfg); err != nil {
		t.Errorf("memory driver needs no path: %v", err)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jokebook.yaml")
	if err := os.WriteFile(path, []byte("log_level: warn\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LogLevel.Level() != slog.LevelWarn {
		t.Errorf("level = %v", cfg.LogLevel.Level())
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("missing file should fail")
	}
}
