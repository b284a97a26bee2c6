package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/factorykiosk/attendance/pkg/core/reconcile"
	"github.com/factorykiosk/attendance/pkg/db"
)

const configFileName = "kiosk_config.yaml"

// ShiftConfig is the global shift policy in wall-clock terms
type ShiftConfig struct {
	Start        string `yaml:"start" validate:"required"`
	GraceMinutes int    `yaml:"graceMinutes" validate:"min=1"`
	End          string `yaml:"end" validate:"required"`
}

// AdminConfig configures the PIN gate and the idle auto-lock
type AdminConfig struct {
	PINHash         string `yaml:"pinHash" validate:"required,len=64,hexadecimal"`
	MaxAttempts     int    `yaml:"maxAttempts" validate:"min=1"`
	LockoutMinutes  int    `yaml:"lockoutMinutes" validate:"min=1"`
	AutoLockSeconds int    `yaml:"autoLockSeconds" validate:"min=1"`
}

// BatteryConfig configures the low-battery alert collaborator
type BatteryConfig struct {
	AlertThresholdPercent int `yaml:"alertThresholdPercent" validate:"min=1,max=100"`
	CooldownMinutes       int `yaml:"cooldownMinutes" validate:"min=1"`
}

// RosterEntry is one pre-seeded worker
type RosterEntry struct {
	ID      int64  `yaml:"id" validate:"min=1"`
	Code    string `yaml:"code" validate:"required"`
	Name    string `yaml:"name" validate:"required"`
	CardUID string `yaml:"cardUid" validate:"required"`
}

// Config represents the application configuration
type Config struct {
	DatabasePath    string        `yaml:"databasePath" validate:"required"`
	PhotoDir        string        `yaml:"photoDir" validate:"required"`
	ExportDir       string        `yaml:"exportDir" validate:"required"`
	Timezone        string        `yaml:"timezone,omitempty"`
	CooldownSeconds int           `yaml:"cooldownSeconds" validate:"min=1"`
	Shift           ShiftConfig   `yaml:"shift"`
	Admin           AdminConfig   `yaml:"admin"`
	Battery         BatteryConfig `yaml:"battery"`
	Roster          []RosterEntry `yaml:"roster,omitempty" validate:"dive"`
}

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Load loads and validates the configuration from kiosk_config.yaml
// It looks for the config file in the current directory first, then in the user's home directory
func Load() (*Config, error) {
	configPath, err := findConfigFile()
	if err != nil {
		return nil, fmt.Errorf("failed to find config file: %w", err)
	}

	return LoadFromPath(configPath)
}

// LoadFromPath loads and validates the configuration from a specific path
func LoadFromPath(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate validates the configuration struct, the shift window invariant
// and the timezone
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	policy, err := cfg.Policy()
	if err != nil {
		return err
	}
	if err := policy.Validate(); err != nil {
		return fmt.Errorf("invalid shift policy: %w", err)
	}

	if _, err := cfg.Location(); err != nil {
		return err
	}

	return nil
}

// Policy converts the wall-clock shift configuration into engine minutes
func (c *Config) Policy() (reconcile.Policy, error) {
	start, err := parseMinutes(c.Shift.Start)
	if err != nil {
		return reconcile.Policy{}, fmt.Errorf("invalid shift start: %w", err)
	}
	end, err := parseMinutes(c.Shift.End)
	if err != nil {
		return reconcile.Policy{}, fmt.Errorf("invalid shift end: %w", err)
	}

	return reconcile.Policy{
		ShiftStartMinutes: start,
		LateGraceMinutes:  c.Shift.GraceMinutes,
		ShiftEndMinutes:   end,
	}, nil
}

// Location resolves the configured timezone, defaulting to the system local
// zone when unset
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// Cooldown returns the debounce window between accepted punches
func (c *Config) Cooldown() time.Duration {
	return time.Duration(c.CooldownSeconds) * time.Second
}

// Seeds converts the roster into storage seed records
func (c *Config) Seeds() []db.WorkerSeed {
	seeds := make([]db.WorkerSeed, 0, len(c.Roster))
	for _, r := range c.Roster {
		seeds = append(seeds, db.WorkerSeed{ID: r.ID, Code: r.Code, Name: r.Name, CardUID: r.CardUID})
	}
	return seeds
}

func parseMinutes(clock string) (int, error) {
	t, err := time.Parse("15:04", clock)
	if err != nil {
		return 0, fmt.Errorf("expected HH:MM, got %q: %w", clock, err)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// findConfigFile searches for kiosk_config.yaml in current directory and home directory
func findConfigFile() (string, error) {
	if _, err := os.Stat(configFileName); err == nil {
		return configFileName, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	homeConfigPath := filepath.Join(homeDir, configFileName)
	if _, err := os.Stat(homeConfigPath); err == nil {
		return homeConfigPath, nil
	}

	return "", fmt.Errorf("config file not found in current directory or home directory")
}
