package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/cognicore/jokebook/pkg/jokebook/internalerr"
)

// LogLevel controls log verbosity.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Level converts l to a slog level. Unknown values map to Info.
func (l LogLevel) Level() slog.Level {
	switch l {
	case LogDebug:
		return slog.LevelDebug
	case LogWarn:
		return slog.LevelWarn
	case LogError:
		return slog.LevelError
	}
	return slog.LevelInfo
}

// Storage drivers.
const (
	DriverSQLite = "sqlite"
	DriverMemory = "memory"
)

// Config is the application configuration.
type Config struct {
	LogLevel    LogLevel   `yaml:"log_level"`
	Storage     Storage    `yaml:"storage"`
	LexiconPath string     `yaml:"lexicon_path"`
	Thresholds  Thresholds `yaml:"thresholds"`
	Duplicates  Duplicates `yaml:"duplicates"`
	Organize    Organize   `yaml:"organize"`
}

// Storage selects the joke store backend.
type Storage struct {
	Driver string `yaml:"driver"`
	Path   string `yaml:"path"`
}

// Thresholds mirrors classify.Thresholds.
type Thresholds struct {
	Suggestion    float64 `yaml:"suggestion"`
	AutoOrganize  float64 `yaml:"auto_organize"`
	MultiCategory float64 `yaml:"multi_category"`
	OtherFloor    float64 `yaml:"other_floor"`
}

// Duplicates configures the duplicate detector.
type Duplicates struct {
	PrefixLength int     `yaml:"prefix_length"`
	Similarity   float64 `yaml:"similarity"` // 0 disables fuzzy matching
}

// Organize configures the auto-organizer.
type Organize struct {
	Workers int `yaml:"workers"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		LogLevel: LogInfo,
		Storage:  Storage{Driver: DriverSQLite, Path: "jokebook.db"},
		Thresholds: Thresholds{
			Suggestion:    0.25,
			AutoOrganize:  0.55,
			MultiCategory: 0.35,
			OtherFloor:    0.15,
		},
		Duplicates: Duplicates{PrefixLength: 100},
		Organize:   Organize{Workers: 4},
	}
}

// Load reads the YAML configuration file at path and returns a validated Config.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes YAML from r on top of Default and validates the
// result. Unknown keys are rejected.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w: %v", internalerr.ErrInvalidConfig, err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error
	bad := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: %s", internalerr.ErrInvalidConfig, fmt.Sprintf(format, args...)))
	}

	if cfg.LogLevel != "" && !cfg.LogLevel.IsValid() {
		bad("log_level %q is invalid; valid values: debug, info, warn, error", cfg.LogLevel)
	}

	switch cfg.Storage.Driver {
	case DriverMemory:
	case DriverSQLite:
		if cfg.Storage.Path == "" {
			bad("storage.path is required when storage.driver is sqlite")
		}
	default:
		bad("storage.driver %q is invalid; valid values: sqlite, memory", cfg.Storage.Driver)
	}

	th := cfg.Thresholds
	for _, f := range []struct {
		name string
		v    float64
	}{
		{"thresholds.suggestion", th.Suggestion},
		{"thresholds.auto_organize", th.AutoOrganize},
		{"thresholds.multi_category", th.MultiCategory},
		{"thresholds.other_floor", th.OtherFloor},
	} {
		if f.v < 0 || f.v > 1 {
			bad("%s %.2f is out of range [0, 1]", f.name, f.v)
		}
	}
	if th.AutoOrganize < th.Suggestion {
		bad("thresholds.auto_organize %.2f is below thresholds.suggestion %.2f", th.AutoOrganize, th.Suggestion)
	}

	if cfg.Duplicates.PrefixLength <= 0 {
		bad("duplicates.prefix_length must be positive, got %d", cfg.Duplicates.PrefixLength)
	}
	if cfg.Duplicates.Similarity < 0 || cfg.Duplicates.Similarity > 1 {
		bad("duplicates.similarity %.2f is out of range [0, 1]", cfg.Duplicates.Similarity)
	}

	if cfg.Organize.Workers < 1 {
		bad("organize.workers must be at least 1, got %d", cfg.Organize.Workers)
	}

	return errors.Join(errs...)
}
