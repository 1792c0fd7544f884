package manager

import (
	"archive/tar"
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kebairia/habackup/internal/changes"
	"github.com/kebairia/habackup/internal/logger"
	"github.com/kebairia/habackup/internal/settings"
	"github.com/kebairia/habackup/internal/supervisor"
)

// fakeSupervisor implements SupervisorClient for tests.
type fakeSupervisor struct {
	backups        []supervisor.BackupInfo
	archives       map[string][]byte
	currentVersion string

	downloadErr error
	versionErr  error
	restored    []string
	deleted     []string

	partialAddons  []string
	partialFolders []string
}

func (f *fakeSupervisor) ListBackups(ctx context.Context) ([]supervisor.BackupInfo, error) {
	return f.backups, nil
}

func (f *fakeSupervisor) GetBackupInfo(ctx context.Context, id string) (*supervisor.BackupInfo, error) {
	for i := range f.backups {
		if f.backups[i].Slug == id {
			return &f.backups[i], nil
		}
	}
	return nil, nil
}

func (f *fakeSupervisor) DownloadBackup(ctx context.Context, id string) ([]byte, error) {
	if f.downloadErr != nil {
		return nil, f.downloadErr
	}
	archive, ok := f.archives[id]
	if !ok {
		return nil, errors.New("no such backup")
	}
	return archive, nil
}

func (f *fakeSupervisor) CreateBackup(ctx context.Context, name, password string) (string, error) {
	return "newslug1", nil
}

func (f *fakeSupervisor) CreatePartialBackup(ctx context.Context, name string, addons, folders []string, password string) (string, error) {
	f.partialAddons = addons
	f.partialFolders = folders
	return "partslug", nil
}

func (f *fakeSupervisor) RestoreBackup(ctx context.Context, id, password string) error {
	f.restored = append(f.restored, id)
	return nil
}

func (f *fakeSupervisor) RestorePartialBackup(ctx context.Context, id string, homeassistant bool, addons, folders []string, password string) error {
	f.restored = append(f.restored, id)
	f.partialAddons = addons
	f.partialFolders = folders
	return nil
}

func (f *fakeSupervisor) DeleteBackup(ctx context.Context, id string) error {
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeSupervisor) GetCurrentVersion(ctx context.Context) (string, error) {
	if f.versionErr != nil {
		return "", f.versionErr
	}
	return f.currentVersion, nil
}

func archiveWithManifest(t *testing.T, content string) []byte {
	t.Helper()
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	hdr := &tar.Header{Name: "manifest.json", Mode: 0o644, Size: int64(len(content))}
	require.NoError(t, tw.WriteHeader(hdr))
	_, err := tw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, tw.Close())
	return buf.Bytes()
}

func newTestManager(t *testing.T, fake *fakeSupervisor) *Manager {
	t.Helper()
	dir := t.TempDir()

	store, err := changes.NewStore(filepath.Join(dir, "breaking_changes.json"), logger.Nop())
	require.NoError(t, err)
	_, err = store.Update(changes.SeedFetcher{})
	require.NoError(t, err)

	cfg, err := settings.NewStore(filepath.Join(dir, "config.json"))
	require.NoError(t, err)

	return New(fake, store, cfg, changes.SeedFetcher{}, logger.Nop())
}

func TestValidateBackupInferredIntegrations(t *testing.T) {
	archive := archiveWithManifest(t, `{
		"homeassistant": "2024.5.0",
		"name": "nightly",
		"date": "2024-05-20",
		"type": "full",
		"size": 1024,
		"addons": [{"name": "Zigbee2MQTT", "slug": "zigbee2mqtt", "version": "1.36.0"}]
	}`)
	fake := &fakeSupervisor{
		archives:       map[string][]byte{"b1": archive},
		currentVersion: "2024.10.1",
	}
	m := newTestManager(t, fake)

	report := m.ValidateBackup(context.Background(), "b1")

	assert.Contains(t, report.Integrations.List, "mqtt")
	// Only the mqtt change matches: zha/esphome are not installed and
	// nothing is tagged "all". One medium record scores 3.
	require.Equal(t, 1, report.BreakingChanges.Count)
	assert.Equal(t, "mqtt_2024_10", report.BreakingChanges.Changes[0].ID)
	assert.Equal(t, 3, report.BreakingChanges.RiskScore)
	assert.Equal(t, StatusWithWarnings, report.Status)
	assert.Equal(t, changes.RiskMedium, report.RiskLevel)
	assert.Empty(t, report.Issues)
	require.Len(t, report.Warnings, 1)
	assert.Equal(t, FindingBreakingChange, report.Warnings[0].Type)
	assert.True(t, report.VersionInfo.Compatible)
	assert.Equal(t, 5, report.VersionInfo.MonthsDifference)
}

func TestValidateBackupHighSeverityChangeIsIncompatible(t *testing.T) {
	archive := archiveWithManifest(t, `{
		"homeassistant": "2024.5.0",
		"name": "nightly",
		"type": "full",
		"homeassistant_data": {"integrations": ["mqtt", "zha"]},
		"addons": [{"name": "Zigbee2MQTT", "slug": "zigbee2mqtt", "version": "1.36.0"}]
	}`)
	fake := &fakeSupervisor{
		archives:       map[string][]byte{"b1": archive},
		currentVersion: "2024.10.1",
	}
	m := newTestManager(t, fake)

	report := m.ValidateBackup(context.Background(), "b1")

	// mqtt 2024.10 and zha 2024.9 are in (2024.5, 2024.10.1]; esphome
	// 2024.8 is in range but not installed.
	require.Equal(t, 2, report.BreakingChanges.Count)
	ids := []string{report.BreakingChanges.Changes[0].ID, report.BreakingChanges.Changes[1].ID}
	assert.ElementsMatch(t, []string{"mqtt_2024_10", "zha_2024_9"}, ids)

	// The high-severity zha record becomes an issue, forcing the verdict.
	assert.Equal(t, StatusIncompatible, report.Status)
	assert.Equal(t, changes.RiskHigh, report.RiskLevel)
	require.Len(t, report.Issues, 1)
	assert.Equal(t, "zha", report.Issues[0].Integration)
	assert.Contains(t, report.Recommendation, "not recommended")
}

func TestValidateBackupNewerThanCurrent(t *testing.T) {
	archive := archiveWithManifest(t, `{
		"homeassistant": "2025.1.0",
		"name": "future",
		"type": "full"
	}`)
	fake := &fakeSupervisor{
		archives:       map[string][]byte{"b1": archive},
		currentVersion: "2024.12.0",
	}
	m := newTestManager(t, fake)

	report := m.ValidateBackup(context.Background(), "b1")

	assert.Equal(t, StatusIncompatible, report.Status)
	assert.Equal(t, changes.RiskHigh, report.RiskLevel)
	require.NotEmpty(t, report.Issues)
	assert.Equal(t, FindingVersion, report.Issues[0].Type)
	assert.False(t, report.VersionInfo.Compatible)
}

func TestValidateBackupStaleWarning(t *testing.T) {
	archive := archiveWithManifest(t, `{
		"homeassistant": "2023.10.0",
		"name": "ancient",
		"type": "full"
	}`)
	fake := &fakeSupervisor{
		archives:       map[string][]byte{"b1": archive},
		currentVersion: "2024.10.1",
	}
	m := newTestManager(t, fake)

	report := m.ValidateBackup(context.Background(), "b1")

	// 12 approximate months apart: stale warning even though the backup
	// is older and therefore compatible.
	assert.Equal(t, StatusWithWarnings, report.Status)
	var versionWarnings []Finding
	for _, w := range report.Warnings {
		if w.Type == FindingVersion {
			versionWarnings = append(versionWarnings, w)
		}
	}
	require.Len(t, versionWarnings, 1)
	assert.True(t, report.VersionInfo.Compatible)
}

func TestValidateBackupCompatibleClean(t *testing.T) {
	archive := archiveWithManifest(t, `{
		"homeassistant": "2024.10.0",
		"name": "recent",
		"type": "full"
	}`)
	fake := &fakeSupervisor{
		archives:       map[string][]byte{"b1": archive},
		currentVersion: "2024.10.1",
	}
	m := newTestManager(t, fake)

	report := m.ValidateBackup(context.Background(), "b1")

	assert.Equal(t, StatusCompatible, report.Status)
	assert.Equal(t, changes.RiskLow, report.RiskLevel)
	assert.Empty(t, report.Issues)
	assert.Empty(t, report.Warnings)
	assert.Contains(t, report.Recommendation, "appears safe")
}

func TestValidateBackupDownloadFailure(t *testing.T) {
	fake := &fakeSupervisor{downloadErr: errors.New("connection refused")}
	m := newTestManager(t, fake)

	report := m.ValidateBackup(context.Background(), "b1")

	assert.Equal(t, StatusError, report.Status)
	assert.Equal(t, changes.RiskUnknown, report.RiskLevel)
	assert.Contains(t, report.Error, "connection refused")
}

func TestValidateBackupMissingManifest(t *testing.T) {
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	hdr := &tar.Header{Name: "data.tar.gz", Mode: 0o644, Size: 4}
	require.NoError(t, tw.WriteHeader(hdr))
	_, err := tw.Write([]byte("blob"))
	require.NoError(t, err)
	require.NoError(t, tw.Close())

	fake := &fakeSupervisor{archives: map[string][]byte{"b1": buf.Bytes()}}
	m := newTestManager(t, fake)

	report := m.ValidateBackup(context.Background(), "b1")
	assert.Equal(t, StatusError, report.Status)
	assert.Contains(t, report.Error, "manifest.json not found")
}

func TestRestoreBackupValidatesFirst(t *testing.T) {
	archive := archiveWithManifest(t, `{
		"homeassistant": "2025.1.0",
		"name": "future",
		"type": "full"
	}`)
	fake := &fakeSupervisor{
		archives:       map[string][]byte{"b1": archive},
		currentVersion: "2024.12.0",
	}
	m := newTestManager(t, fake)

	result, err := m.RestoreBackup(context.Background(), "b1", "")
	require.NoError(t, err)

	// Incompatible verdict is attached but does not block the restore.
	require.NotNil(t, result.Validation)
	assert.Equal(t, StatusIncompatible, result.Validation.Status)
	assert.Equal(t, []string{"b1"}, fake.restored)
}

func TestRestoreBackupSkipsValidationWhenDisabled(t *testing.T) {
	fake := &fakeSupervisor{}
	m := newTestManager(t, fake)

	cfg := m.settings.Get()
	cfg.ValidateBeforeRestore = false
	require.NoError(t, m.settings.Save(cfg))

	result, err := m.RestoreBackup(context.Background(), "b1", "")
	require.NoError(t, err)
	assert.Nil(t, result.Validation)
	assert.Equal(t, []string{"b1"}, fake.restored)
}

func TestCreatePartialBackupPassesScope(t *testing.T) {
	fake := &fakeSupervisor{}
	m := newTestManager(t, fake)

	result, err := m.CreatePartialBackup(context.Background(), "addons-only",
		[]string{"core_mosquitto"}, []string{"share"}, "")
	require.NoError(t, err)
	assert.Equal(t, "partslug", result.BackupID)
	assert.Equal(t, []string{"core_mosquitto"}, fake.partialAddons)
	assert.Equal(t, []string{"share"}, fake.partialFolders)
}

func TestRestorePartialBackupValidatesFirst(t *testing.T) {
	archive := archiveWithManifest(t, `{
		"homeassistant": "2024.10.0",
		"name": "recent",
		"type": "full"
	}`)
	fake := &fakeSupervisor{
		archives:       map[string][]byte{"b1": archive},
		currentVersion: "2024.10.1",
	}
	m := newTestManager(t, fake)

	result, err := m.RestorePartialBackup(context.Background(), "b1",
		[]string{"core_mosquitto"}, nil, "")
	require.NoError(t, err)

	require.NotNil(t, result.Validation)
	assert.Equal(t, StatusCompatible, result.Validation.Status)
	assert.Equal(t, []string{"b1"}, fake.restored)
	assert.Equal(t, []string{"core_mosquitto"}, fake.partialAddons)
}

func TestListBackupsSortedNewestFirst(t *testing.T) {
	fake := &fakeSupervisor{backups: []supervisor.BackupInfo{
		{Slug: "old", Name: "old", Date: "2024-01-01T00:00:00Z", Size: 512},
		{Slug: "new", Name: "new", Date: "2024-06-01T00:00:00Z", Size: 2048},
	}}
	m := newTestManager(t, fake)

	entries, err := m.ListBackups(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "new", entries[0].ID)
	assert.Equal(t, "2.0 KB", entries[0].Size)
}

func TestGetBackupDetailsAbsent(t *testing.T) {
	m := newTestManager(t, &fakeSupervisor{})
	details, err := m.GetBackupDetails(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, details)
}

func TestFormatSize(t *testing.T) {
	assert.Equal(t, "512.0 B", FormatSize(512))
	assert.Equal(t, "1.0 KB", FormatSize(1024))
	assert.Equal(t, "2.5 GB", FormatSize(2.5*1024*1024*1024))
}
