// Package manager composes the supervisor client, backup analyzer and
// breaking change store into the add-on's backup operations.
package manager

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/kebairia/habackup/internal/changes"
	"github.com/kebairia/habackup/internal/logger"
	"github.com/kebairia/habackup/internal/settings"
	"github.com/kebairia/habackup/internal/supervisor"
)

// SupervisorClient is the slice of the supervisor API the manager needs.
// *supervisor.Client implements it; tests substitute fakes.
type SupervisorClient interface {
	ListBackups(ctx context.Context) ([]supervisor.BackupInfo, error)
	GetBackupInfo(ctx context.Context, id string) (*supervisor.BackupInfo, error)
	DownloadBackup(ctx context.Context, id string) ([]byte, error)
	CreateBackup(ctx context.Context, name, password string) (string, error)
	CreatePartialBackup(ctx context.Context, name string, addons, folders []string, password string) (string, error)
	RestoreBackup(ctx context.Context, id, password string) error
	RestorePartialBackup(ctx context.Context, id string, homeassistant bool, addons, folders []string, password string) error
	DeleteBackup(ctx context.Context, id string) error
	GetCurrentVersion(ctx context.Context) (string, error)
}

// Manager wires the backup operations together. One instance serves all
// requests; it holds no per-call state.
type Manager struct {
	api      SupervisorClient
	store    *changes.Store
	settings *settings.Store
	fetcher  changes.Fetcher
	log      logger.Logger
}

// New creates a Manager.
func New(api SupervisorClient, store *changes.Store, cfg *settings.Store, fetcher changes.Fetcher, log logger.Logger) *Manager {
	return &Manager{
		api:      api,
		store:    store,
		settings: cfg,
		fetcher:  fetcher,
		log:      log,
	}
}

// BackupListEntry is one row of the backup listing, with a display size.
type BackupListEntry struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Date       string  `json:"date"`
	Size       string  `json:"size"`
	SizeBytes  float64 `json:"size_bytes"`
	Type       string  `json:"type"`
	Protected  bool    `json:"protected"`
	Compressed bool    `json:"compressed"`
}

// ListBackups returns all backups, newest first.
func (m *Manager) ListBackups(ctx context.Context) ([]BackupListEntry, error) {
	backups, err := m.api.ListBackups(ctx)
	if err != nil {
		return nil, fmt.Errorf("list backups: %w", err)
	}

	entries := make([]BackupListEntry, 0, len(backups))
	for _, b := range backups {
		entries = append(entries, BackupListEntry{
			ID:         b.Slug,
			Name:       b.Name,
			Date:       b.Date,
			Size:       FormatSize(b.Size),
			SizeBytes:  b.Size,
			Type:       b.Type,
			Protected:  b.Protected,
			Compressed: b.Compressed,
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Date > entries[j].Date
	})
	return entries, nil
}

// BackupDetails is the full record for one backup.
type BackupDetails struct {
	BackupListEntry
	HomeAssistant string                 `json:"homeassistant,omitempty"`
	Addons        []supervisor.AddonInfo `json:"addons"`
	Folders       []string               `json:"folders"`
	Repositories  []string               `json:"repositories"`
}

// GetBackupDetails returns detailed information about one backup, or nil
// when the id is unknown.
func (m *Manager) GetBackupDetails(ctx context.Context, id string) (*BackupDetails, error) {
	info, err := m.api.GetBackupInfo(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get backup details: %w", err)
	}
	if info == nil {
		return nil, nil
	}

	return &BackupDetails{
		BackupListEntry: BackupListEntry{
			ID:         info.Slug,
			Name:       info.Name,
			Date:       info.Date,
			Size:       FormatSize(info.Size),
			SizeBytes:  info.Size,
			Type:       info.Type,
			Protected:  info.Protected,
			Compressed: info.Compressed,
		},
		HomeAssistant: info.HomeAssistant,
		Addons:        emptyAddonsIfNil(info.Addons),
		Folders:       emptyIfNil(info.Folders),
		Repositories:  emptyIfNil(info.Repositories),
	}, nil
}

// CreateResult reports a successful backup creation.
type CreateResult struct {
	BackupID  string `json:"backup_id"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// CreateBackup starts a full backup.
func (m *Manager) CreateBackup(ctx context.Context, name, password string) (*CreateResult, error) {
	m.log.Info("creating backup", "name", name)
	slug, err := m.api.CreateBackup(ctx, name, password)
	if err != nil {
		return nil, fmt.Errorf("create backup: %w", err)
	}
	return &CreateResult{
		BackupID:  slug,
		Message:   "Backup created successfully",
		Timestamp: now(),
	}, nil
}

// CreatePartialBackup starts a backup limited to the given add-ons and
// folders.
func (m *Manager) CreatePartialBackup(ctx context.Context, name string, addons, folders []string, password string) (*CreateResult, error) {
	m.log.Info("creating partial backup", "name", name, "addons", len(addons), "folders", len(folders))
	slug, err := m.api.CreatePartialBackup(ctx, name, addons, folders, password)
	if err != nil {
		return nil, fmt.Errorf("create partial backup: %w", err)
	}
	return &CreateResult{
		BackupID:  slug,
		Message:   "Backup created successfully",
		Timestamp: now(),
	}, nil
}

// RestoreResult reports an initiated restore, including the validation
// verdict the restore was checked against.
type RestoreResult struct {
	BackupID   string            `json:"backup_id"`
	Message    string            `json:"message"`
	Validation *ValidationReport `json:"validation,omitempty"`
	Timestamp  string            `json:"timestamp"`
}

// RestoreBackup validates the backup first (unless disabled in settings)
// and then starts the restore. An incompatible verdict is logged but does
// not block the restore; the user's request wins.
func (m *Manager) RestoreBackup(ctx context.Context, id, password string) (*RestoreResult, error) {
	m.log.Info("restoring backup", "backup_id", id)

	validation := m.preRestoreValidation(ctx, id)
	if err := m.api.RestoreBackup(ctx, id, password); err != nil {
		return nil, fmt.Errorf("restore backup: %w", err)
	}
	return &RestoreResult{
		BackupID:   id,
		Message:    "Backup restore initiated",
		Validation: validation,
		Timestamp:  now(),
	}, nil
}

// RestorePartialBackup restores the core plus only the given add-ons and
// folders, with the same validate-first behavior as RestoreBackup.
func (m *Manager) RestorePartialBackup(ctx context.Context, id string, addons, folders []string, password string) (*RestoreResult, error) {
	m.log.Info("restoring partial backup", "backup_id", id, "addons", len(addons), "folders", len(folders))

	validation := m.preRestoreValidation(ctx, id)
	if err := m.api.RestorePartialBackup(ctx, id, true, addons, folders, password); err != nil {
		return nil, fmt.Errorf("restore partial backup: %w", err)
	}
	return &RestoreResult{
		BackupID:   id,
		Message:    "Backup restore initiated",
		Validation: validation,
		Timestamp:  now(),
	}, nil
}

// preRestoreValidation runs the validation pipeline unless disabled in
// settings. Returns nil when skipped.
func (m *Manager) preRestoreValidation(ctx context.Context, id string) *ValidationReport {
	if m.settings != nil && !m.settings.Get().ValidateBeforeRestore {
		return nil
	}
	validation := m.ValidateBackup(ctx, id)
	if validation.Status == StatusIncompatible {
		m.log.Warn("restoring incompatible backup", "backup_id", id)
	}
	return validation
}

// DeleteBackup removes a backup.
func (m *Manager) DeleteBackup(ctx context.Context, id string) error {
	m.log.Info("deleting backup", "backup_id", id)
	if err := m.api.DeleteBackup(ctx, id); err != nil {
		return fmt.Errorf("delete backup: %w", err)
	}
	return nil
}

// UpdateBreakingChanges runs a store update with the configured fetcher
// and reports whether new records arrived.
func (m *Manager) UpdateBreakingChanges() (bool, error) {
	return m.store.Update(m.fetcher)
}

// FormatSize renders a byte count as a human-readable string.
func FormatSize(sizeBytes float64) string {
	for _, unit := range []string{"B", "KB", "MB", "GB", "TB"} {
		if sizeBytes < 1024.0 {
			return fmt.Sprintf("%.1f %s", sizeBytes, unit)
		}
		sizeBytes /= 1024.0
	}
	return fmt.Sprintf("%.1f PB", sizeBytes)
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}

func emptyIfNil(list []string) []string {
	if list == nil {
		return []string{}
	}
	return list
}

func emptyAddonsIfNil(list []supervisor.AddonInfo) []supervisor.AddonInfo {
	if list == nil {
		return []supervisor.AddonInfo{}
	}
	return list
}
