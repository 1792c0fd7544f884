package changes

// Severity values carried by breaking change records.
const (
	SeverityLow    = "low"
	SeverityMedium = "medium"
	SeverityHigh   = "high"
)

// Risk levels derived from a set of matched records.
const (
	RiskLow     = "low"
	RiskMedium  = "medium"
	RiskHigh    = "high"
	RiskUnknown = "unknown"
)

// severityWeights scores each record; unknown severities count as medium.
var severityWeights = map[string]int{
	SeverityLow:    1,
	SeverityMedium: 3,
	SeverityHigh:   5,
}

const defaultWeight = 3

// Assessment is the qualitative verdict over a set of breaking changes.
type Assessment struct {
	Level       string `json:"level"`
	Score       int    `json:"score"`
	Message     string `json:"message"`
	ChangeCount int    `json:"change_count"`
}

// AssessRisk sums the severity weights of records and maps the score onto
// a risk level: <=2 low, 3-6 medium, above that high.
func AssessRisk(records []Record) Assessment {
	if len(records) == 0 {
		return Assessment{
			Level:   RiskLow,
			Message: "No breaking changes detected",
		}
	}

	score := 0
	for _, r := range records {
		weight, ok := severityWeights[r.Severity]
		if !ok {
			weight = defaultWeight
		}
		score += weight
	}

	a := Assessment{Score: score, ChangeCount: len(records)}
	switch {
	case score <= 2:
		a.Level = RiskLow
		a.Message = "Minor changes detected. Restoration should be safe."
	case score <= 6:
		a.Level = RiskMedium
		a.Message = "Some breaking changes detected. Review before restoring."
	default:
		a.Level = RiskHigh
		a.Message = "Significant breaking changes detected. Restoration may cause issues."
	}
	return a
}
