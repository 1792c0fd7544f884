// Package settings persists the add-on's user settings as a flat JSON
// document with fixed defaults. Invalid values are clamped or replaced on
// save, never rejected.
package settings

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/viper"
)

// DefaultPath is where the add-on stores its settings.
const DefaultPath = "/data/config.json"

// ErrLoad indicates a failure to read or parse the settings file.
var ErrLoad = errors.New("settings load failed")

// ErrSave indicates a failure to persist the settings file.
var ErrSave = errors.New("settings save failed")

// Valid backup schedules.
var validSchedules = map[string]struct{}{
	"hourly":  {},
	"daily":   {},
	"weekly":  {},
	"monthly": {},
}

// Retention bounds in days.
const (
	minRetention     = 1
	maxRetention     = 365
	defaultRetention = 7
	defaultSchedule  = "daily"
)

// Settings is the typed settings bag.
type Settings struct {
	AutoBackup            bool   `json:"auto_backup"             mapstructure:"auto_backup"`
	BackupSchedule        string `json:"backup_schedule"         mapstructure:"backup_schedule"`
	BackupRetention       int    `json:"backup_retention"        mapstructure:"backup_retention"`
	NotificationsEnabled  bool   `json:"notifications_enabled"   mapstructure:"notifications_enabled"`
	DebugMode             bool   `json:"debug_mode"              mapstructure:"debug_mode"`
	ValidateBeforeRestore bool   `json:"validate_before_restore" mapstructure:"validate_before_restore"`
	CompressionEnabled    bool   `json:"compression_enabled"     mapstructure:"compression_enabled"`
}

// Defaults returns the settings every installation starts with.
func Defaults() Settings {
	return Settings{
		AutoBackup:            true,
		BackupSchedule:        defaultSchedule,
		BackupRetention:       defaultRetention,
		NotificationsEnabled:  true,
		DebugMode:             false,
		ValidateBeforeRestore: true,
		CompressionEnabled:    true,
	}
}

// sanitize clamps out-of-range values back onto their defaults.
func (s Settings) sanitize() Settings {
	if _, ok := validSchedules[s.BackupSchedule]; !ok {
		s.BackupSchedule = defaultSchedule
	}
	if s.BackupRetention < minRetention {
		s.BackupRetention = minRetention
	}
	if s.BackupRetention > maxRetention {
		s.BackupRetention = maxRetention
	}
	return s
}

// Store loads and persists the settings file.
type Store struct {
	path string

	mu      sync.RWMutex
	current Settings
}

// NewStore reads the settings at path, falling back to defaults field-wise
// for missing or broken content. A missing file is created with defaults.
func NewStore(path string) (*Store, error) {
	s := &Store{path: path}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		s.current = Defaults()
		if err := s.persist(); err != nil {
			return nil, err
		}
		return s, nil
	case err != nil:
		return nil, fmt.Errorf("%w: read %s: %v", ErrLoad, path, err)
	}

	loaded, err := decode(data)
	if err != nil {
		// Unreadable settings degrade to defaults rather than blocking
		// startup; the next save rewrites the file.
		loaded = Defaults()
	}
	s.current = loaded.sanitize()
	return s, nil
}

// decode reads the JSON document through viper so every missing key falls
// back to its declared default.
func decode(data []byte) (Settings, error) {
	v := viper.New()
	v.SetConfigType("json")

	defaults := Defaults()
	v.SetDefault("auto_backup", defaults.AutoBackup)
	v.SetDefault("backup_schedule", defaults.BackupSchedule)
	v.SetDefault("backup_retention", defaults.BackupRetention)
	v.SetDefault("notifications_enabled", defaults.NotificationsEnabled)
	v.SetDefault("debug_mode", defaults.DebugMode)
	v.SetDefault("validate_before_restore", defaults.ValidateBeforeRestore)
	v.SetDefault("compression_enabled", defaults.CompressionEnabled)

	if err := v.ReadConfig(bytes.NewReader(data)); err != nil {
		return Settings{}, fmt.Errorf("%w: %v", ErrLoad, err)
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return Settings{}, fmt.Errorf("%w: unmarshal: %v", ErrLoad, err)
	}
	return s, nil
}

// Get returns the current settings.
func (s *Store) Get() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Save sanitizes and persists new settings.
func (s *Store) Save(newSettings Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = newSettings.sanitize()
	return s.persist()
}

// Reset restores and persists the defaults.
func (s *Store) Reset() error {
	return s.Save(Defaults())
}

// Export returns the current settings as an indented JSON string.
func (s *Store) Export() (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, err := json.MarshalIndent(s.current, "", "  ")
	if err != nil {
		return "", fmt.Errorf("%w: encode: %v", ErrSave, err)
	}
	return string(data), nil
}

// Import replaces the settings from a JSON document. Unknown keys are
// ignored, missing keys fall back to defaults, invalid values are clamped.
func (s *Store) Import(configJSON string) error {
	loaded, err := decode([]byte(configJSON))
	if err != nil {
		return err
	}
	return s.Save(loaded)
}

// persist rewrites the settings file atomically. Callers hold the write
// lock.
func (s *Store) persist() error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: ensure directory %q: %v", ErrSave, dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".config-*.json")
	if err != nil {
		return fmt.Errorf("%w: create temp file: %v", ErrSave, err)
	}
	defer os.Remove(tmp.Name())

	encoder := json.NewEncoder(tmp)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(s.current); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: encode settings: %v", ErrSave, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: close temp file: %v", ErrSave, err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("%w: replace %s: %v", ErrSave, s.path, err)
	}
	return nil
}
