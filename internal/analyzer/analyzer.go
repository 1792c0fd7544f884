// Package analyzer builds a structured summary of a backup archive and
// compares platform versions for restore compatibility.
package analyzer

import (
	"fmt"
	"sort"

	"github.com/kebairia/habackup/internal/manifest"
	"github.com/kebairia/habackup/internal/version"
)

// addonIntegrations maps well-known add-on slugs to the integration domain
// they imply when the manifest carries no explicit integration list.
var addonIntegrations = map[string]string{
	"mosquitto":   "mqtt",
	"mariadb":     "mysql",
	"influxdb":    "influxdb",
	"grafana":     "grafana",
	"node-red":    "node_red",
	"esphome":     "esphome",
	"zigbee2mqtt": "mqtt",
}

// coreIntegrations are always present on a running system and therefore
// always part of the summary.
var coreIntegrations = []string{"homeassistant", "default_config", "system_health"}

// Summary describes the relevant contents of a backup.
type Summary struct {
	HomeAssistantVersion string           `json:"homeassistant_version"`
	SupervisorVersion    string           `json:"supervisor_version"`
	Name                 string           `json:"backup_name"`
	Date                 string           `json:"backup_date"`
	Type                 string           `json:"backup_type"`
	SizeBytes            float64          `json:"backup_size"`
	Addons               []manifest.Addon `json:"addons"`
	Folders              []string         `json:"folders"`
	Integrations         []string         `json:"integrations"`
}

// AddonCount returns the number of add-on records in the backup.
func (s *Summary) AddonCount() int { return len(s.Addons) }

// IntegrationCount returns the number of resolved integration domains.
func (s *Summary) IntegrationCount() int { return len(s.Integrations) }

// Analyze extracts the manifest from archiveData and derives a Summary.
// Extraction failures come back as errors wrapping the manifest sentinels;
// no partial summary is ever returned.
func Analyze(archiveData []byte) (*Summary, error) {
	m, err := manifest.Extract(archiveData)
	if err != nil {
		return nil, fmt.Errorf("analyze backup: %w", err)
	}

	s := &Summary{
		HomeAssistantVersion: orUnknown(m.HomeAssistant),
		SupervisorVersion:    orUnknown(m.Supervisor),
		Name:                 m.Name,
		Date:                 orUnknown(m.Date),
		Type:                 orUnknown(m.Type),
		SizeBytes:            m.Size,
		Addons:               m.Addons,
		Folders:              m.Folders,
		Integrations:         resolveIntegrations(m),
	}
	if s.Name == "" {
		s.Name = "Unknown"
	}
	return s, nil
}

// resolveIntegrations picks the explicit integration list when the manifest
// has one, otherwise infers domains from known add-on slugs. Core
// integrations are always unioned in; the result is deduplicated and
// sorted.
func resolveIntegrations(m *manifest.Manifest) []string {
	var integrations []string
	if data := m.HomeAssistantData; data != nil {
		if len(data.Integrations) > 0 {
			integrations = data.Integrations
		} else if len(data.Components) > 0 {
			integrations = data.Components
		}
	}

	if len(integrations) == 0 {
		for _, addon := range m.Addons {
			if domain, ok := addonIntegrations[addon.Slug]; ok {
				integrations = append(integrations, domain)
			}
		}
	}

	seen := make(map[string]struct{}, len(integrations)+len(coreIntegrations))
	result := make([]string, 0, len(integrations)+len(coreIntegrations))
	for _, domain := range integrations {
		if _, ok := seen[domain]; !ok {
			seen[domain] = struct{}{}
			result = append(result, domain)
		}
	}
	for _, domain := range coreIntegrations {
		if _, ok := seen[domain]; !ok {
			seen[domain] = struct{}{}
			result = append(result, domain)
		}
	}
	sort.Strings(result)
	return result
}

// Comparison is the outcome of comparing a backup's version against the
// running system's.
type Comparison struct {
	Compatible      bool   `json:"compatible"`
	Diff            string `json:"version_diff,omitempty"`
	Reason          string `json:"reason,omitempty"`
	BackupVersion   string `json:"backup_version"`
	CurrentVersion  string `json:"current_version"`
	YearDiff        int    `json:"year_diff"`
	MonthDiff       int    `json:"month_diff"`
	TotalMonthsDiff int    `json:"total_months_diff"`
}

// Diff values.
const (
	DiffOlder = "older"
	DiffNewer = "newer"
	DiffSame  = "same"
)

// CompareVersions parses both version strings and orders them. Backups
// from a newer release than the running system are never compatible.
// TotalMonthsDiff is the linear year*12+month distance; it intentionally
// ignores calendar carry when year and month differ together.
func CompareVersions(backupVersion, currentVersion string) Comparison {
	cmp := Comparison{
		BackupVersion:  backupVersion,
		CurrentVersion: currentVersion,
	}

	backup, err := version.Parse(backupVersion)
	if err != nil {
		cmp.Reason = "could not parse version numbers"
		return cmp
	}
	current, err := version.Parse(currentVersion)
	if err != nil {
		cmp.Reason = "could not parse version numbers"
		return cmp
	}

	switch backup.Compare(current) {
	case -1:
		cmp.Diff = DiffOlder
	case 1:
		cmp.Diff = DiffNewer
	default:
		cmp.Diff = DiffSame
	}
	cmp.Compatible = cmp.Diff == DiffSame || cmp.Diff == DiffOlder

	cmp.YearDiff = abs(current.Year - backup.Year)
	cmp.MonthDiff = abs(current.Month - backup.Month)
	cmp.TotalMonthsDiff = cmp.YearDiff*12 + cmp.MonthDiff
	return cmp
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
