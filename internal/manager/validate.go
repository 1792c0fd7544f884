package manager

import (
	"context"
	"fmt"

	"github.com/kebairia/habackup/internal/analyzer"
	"github.com/kebairia/habackup/internal/changes"
)

// Validation statuses.
const (
	StatusCompatible   = "compatible"
	StatusWithWarnings = "compatible_with_warnings"
	StatusIncompatible = "incompatible"
	StatusError        = "error"
)

// staleMonthsThreshold is how many (approximate) months of version
// distance earn a staleness warning.
const staleMonthsThreshold = 6

// displayLimits keep report payloads bounded for the UI.
const (
	maxListedIntegrations = 20
	maxListedAddons       = 10
)

// Finding is one issue or warning in a validation report.
type Finding struct {
	Type        string `json:"type"`
	Severity    string `json:"severity"`
	Integration string `json:"integration,omitempty"`
	Message     string `json:"message"`
	Description string `json:"description,omitempty"`
	URL         string `json:"url,omitempty"`
}

// Finding types.
const (
	FindingVersion        = "version"
	FindingBreakingChange = "breaking_change"
)

// ReportBackupInfo summarizes the backup under validation.
type ReportBackupInfo struct {
	Name string `json:"name"`
	Date string `json:"date"`
	Type string `json:"type"`
	Size string `json:"size"`
}

// ReportVersionInfo summarizes the version comparison.
type ReportVersionInfo struct {
	BackupVersion    string `json:"backup_version"`
	CurrentVersion   string `json:"current_version"`
	Compatible       bool   `json:"compatible"`
	VersionDiff      string `json:"version_diff,omitempty"`
	MonthsDifference int    `json:"months_difference"`
}

// ReportIntegrations lists the resolved integration domains.
type ReportIntegrations struct {
	Count int      `json:"count"`
	List  []string `json:"list"`
}

// ReportAddons lists the add-on names found in the backup.
type ReportAddons struct {
	Count int      `json:"count"`
	List  []string `json:"list"`
}

// ReportBreakingChanges carries the matched records and their risk score.
type ReportBreakingChanges struct {
	Count       int              `json:"count"`
	RiskScore   int              `json:"risk_score"`
	RiskMessage string           `json:"risk_message"`
	Changes     []changes.Record `json:"changes"`
}

// ValidationReport is the full verdict for one backup.
type ValidationReport struct {
	BackupID        string                 `json:"backup_id"`
	Status          string                 `json:"status"`
	RiskLevel       string                 `json:"risk_level"`
	Error           string                 `json:"error,omitempty"`
	BackupInfo      *ReportBackupInfo      `json:"backup_info,omitempty"`
	VersionInfo     *ReportVersionInfo     `json:"version_info,omitempty"`
	Integrations    *ReportIntegrations    `json:"integrations,omitempty"`
	Addons          *ReportAddons          `json:"addons,omitempty"`
	BreakingChanges *ReportBreakingChanges `json:"breaking_changes,omitempty"`
	Issues          []Finding              `json:"issues"`
	Warnings        []Finding              `json:"warnings"`
	Recommendation  string                 `json:"recommendation,omitempty"`
	Timestamp       string                 `json:"timestamp"`
}

// ValidateBackup runs the full validation pipeline: download, manifest
// analysis, version comparison, breaking change matching and risk
// assessment. It never returns an error; every failure folds into a
// report with status "error" and risk "unknown".
func (m *Manager) ValidateBackup(ctx context.Context, id string) *ValidationReport {
	m.log.Info("validating backup", "backup_id", id)

	archive, err := m.api.DownloadBackup(ctx, id)
	if err != nil {
		return errorReport(id, fmt.Errorf("download backup: %w", err))
	}

	summary, err := analyzer.Analyze(archive)
	if err != nil {
		return errorReport(id, err)
	}

	currentVersion, err := m.api.GetCurrentVersion(ctx)
	if err != nil {
		return errorReport(id, fmt.Errorf("get current version: %w", err))
	}
	backupVersion := summary.HomeAssistantVersion

	m.log.Debug("comparing versions",
		"backup", backupVersion, "current", currentVersion)
	comparison := analyzer.CompareVersions(backupVersion, currentVersion)

	matched := m.store.FindApplicable(backupVersion, currentVersion, summary.Integrations)
	assessment := changes.AssessRisk(matched)

	issues := []Finding{}
	warnings := []Finding{}

	if !comparison.Compatible && comparison.Diff == analyzer.DiffNewer {
		issues = append(issues, Finding{
			Type:     FindingVersion,
			Severity: changes.SeverityHigh,
			Message: fmt.Sprintf(
				"Backup is from a newer version (%s) than current (%s). Restoration not recommended.",
				backupVersion, currentVersion),
		})
	} else if comparison.TotalMonthsDiff > staleMonthsThreshold {
		warnings = append(warnings, Finding{
			Type:     FindingVersion,
			Severity: changes.SeverityMedium,
			Message: fmt.Sprintf(
				"Backup is %d months old. Significant changes may have occurred.",
				comparison.TotalMonthsDiff),
		})
	}

	for _, change := range matched {
		finding := Finding{
			Type:        FindingBreakingChange,
			Severity:    change.Severity,
			Integration: change.Integration,
			Message:     change.Title,
			Description: change.Description,
			URL:         change.URL,
		}
		if change.Severity == changes.SeverityHigh {
			issues = append(issues, finding)
		} else {
			warnings = append(warnings, finding)
		}
	}

	var status, riskLevel string
	switch {
	case len(issues) > 0:
		status = StatusIncompatible
		riskLevel = changes.RiskHigh
	case assessment.Level == changes.RiskHigh:
		status = StatusWithWarnings
		riskLevel = changes.RiskHigh
	case len(warnings) > 0 || assessment.Level == changes.RiskMedium:
		status = StatusWithWarnings
		riskLevel = changes.RiskMedium
	default:
		status = StatusCompatible
		riskLevel = changes.RiskLow
	}

	addonNames := make([]string, 0, len(summary.Addons))
	for _, addon := range summary.Addons {
		addonNames = append(addonNames, addon.Name)
	}

	report := &ValidationReport{
		BackupID:  id,
		Status:    status,
		RiskLevel: riskLevel,
		BackupInfo: &ReportBackupInfo{
			Name: summary.Name,
			Date: summary.Date,
			Type: summary.Type,
			Size: FormatSize(summary.SizeBytes),
		},
		VersionInfo: &ReportVersionInfo{
			BackupVersion:    backupVersion,
			CurrentVersion:   currentVersion,
			Compatible:       comparison.Compatible,
			VersionDiff:      comparison.Diff,
			MonthsDifference: comparison.TotalMonthsDiff,
		},
		Integrations: &ReportIntegrations{
			Count: summary.IntegrationCount(),
			List:  truncate(summary.Integrations, maxListedIntegrations),
		},
		Addons: &ReportAddons{
			Count: summary.AddonCount(),
			List:  truncate(addonNames, maxListedAddons),
		},
		BreakingChanges: &ReportBreakingChanges{
			Count:       len(matched),
			RiskScore:   assessment.Score,
			RiskMessage: assessment.Message,
			Changes:     emptyRecordsIfNil(matched),
		},
		Issues:         issues,
		Warnings:       warnings,
		Recommendation: recommendation(status, riskLevel),
		Timestamp:      now(),
	}

	m.log.Info("backup validated",
		"backup_id", id, "status", status, "risk_level", riskLevel,
		"issues", len(issues), "warnings", len(warnings))
	return report
}

// recommendation maps the verdict onto a fixed user-facing sentence.
func recommendation(status, riskLevel string) string {
	switch {
	case status == StatusIncompatible:
		return "Restoration not recommended. Critical compatibility issues detected. Please review the issues carefully before proceeding."
	case riskLevel == changes.RiskHigh:
		return "Proceed with caution. Significant breaking changes detected that may affect your system. Review all warnings before restoring."
	case riskLevel == changes.RiskMedium:
		return "Restoration should be safe, but some minor issues were detected. Review the warnings and be prepared to reconfigure affected integrations."
	default:
		return "Backup appears safe to restore. No significant compatibility issues detected."
	}
}

func errorReport(id string, err error) *ValidationReport {
	return &ValidationReport{
		BackupID:  id,
		Status:    StatusError,
		RiskLevel: changes.RiskUnknown,
		Error:     err.Error(),
		Issues:    []Finding{},
		Warnings:  []Finding{},
		Timestamp: now(),
	}
}

func truncate(list []string, limit int) []string {
	if list == nil {
		return []string{}
	}
	if len(list) > limit {
		return list[:limit]
	}
	return list
}

func emptyRecordsIfNil(records []changes.Record) []changes.Record {
	if records == nil {
		return []changes.Record{}
	}
	return records
}
