package allure

// SeverityLevel is the value space of the severity label.
type SeverityLevel string

const (
	SeverityBlocker  SeverityLevel = "blocker"
	SeverityCritical SeverityLevel = "critical"
	SeverityNormal   SeverityLevel = "normal"
	SeverityMinor    SeverityLevel = "minor"
	SeverityTrivial  SeverityLevel = "trivial"
)

// DefaultSeverity is applied when a case declares no severity annotation.
const DefaultSeverity = SeverityNormal

// IsValid reports whether the level is one of the defined severities.
func (s SeverityLevel) IsValid() bool {
	switch s {
	case SeverityBlocker, SeverityCritical, SeverityNormal, SeverityMinor, SeverityTrivial:
		return true
	default:
		return false
	}
}

// NormalizeSeverity maps an annotation value to a severity level, falling
// back to the default for unknown values.
func NormalizeSeverity(value string) SeverityLevel {
	level := SeverityLevel(value)
	if level.IsValid() {
		return level
	}
	return DefaultSeverity
}
