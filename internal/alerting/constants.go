// Package alerting evaluates alliance alert rules on a schedule and delivers
// the resulting alerts to the configured channels.
package alerting

// AlertType identifies a rule's template and collector.
type AlertType string

const (
	TypeTrainCoverage    AlertType = "TRAIN_COVERAGE"
	TypeInactiveMembers  AlertType = "INACTIVE_MEMBERS"
	TypeMissingConductor AlertType = "MISSING_CONDUCTOR"
	TypeMemberThreshold  AlertType = "MEMBER_THRESHOLD"
	TypePowerThreshold   AlertType = "POWER_THRESHOLD"
	TypeEventReminder    AlertType = "EVENT_REMINDER"
	TypeTrainDeparture   AlertType = "TRAIN_DEPARTURE"
	TypeManualMessage    AlertType = "MANUAL_MESSAGE"

	// TypeSystemError marks the internal rule that owns engine failure alerts.
	// It has no template and is never evaluated.
	TypeSystemError AlertType = "SYSTEM_ERROR"
)

// Comparison is a condition operator.
type Comparison string

const (
	LessThan           Comparison = "less_than"
	GreaterThan        Comparison = "greater_than"
	Equals             Comparison = "equals"
	LessThanOrEqual    Comparison = "less_than_or_equal"
	GreaterThanOrEqual Comparison = "greater_than_or_equal"
)

// Valid reports whether c is a known operator.
func (c Comparison) Valid() bool {
	switch c {
	case LessThan, GreaterThan, Equals, LessThanOrEqual, GreaterThanOrEqual:
		return true
	}
	return false
}

const (
	// SystemErrorRuleName is the singleton rule that engine failures are filed under.
	SystemErrorRuleName = "Erreurs Système"

	// coverageWindowDays is how many days, today included, TRAIN_COVERAGE looks at.
	coverageWindowDays = 14

	// DefaultAllianceCapacity is the member cap used for the fill percentage.
	DefaultAllianceCapacity = 100

	// testTitlePrefix marks IN_APP alerts created by a test-send.
	testTitlePrefix = "[TEST] "
)
