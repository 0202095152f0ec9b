package alerting

import (
	"encoding/json"
	"fmt"

	"github.com/alliancehq/alliance-manager/internal/errors"
)

// Conditions is the typed condition set of a rule. Each alert type has its
// own shape; all of them embed Criteria.
type Conditions interface {
	AlertType() AlertType
	Base() Criteria
}

type TrainCoverageConditions struct {
	Criteria
}

type InactiveMembersConditions struct {
	Criteria
	Timeframe int `json:"timeframe"` // days
}

type MissingConductorConditions struct {
	Criteria
}

type MemberThresholdConditions struct {
	Criteria
}

type PowerThresholdConditions struct {
	Criteria
}

type EventReminderConditions struct {
	Criteria
	Timeframe int `json:"timeframe"` // hours
}

type TrainDepartureConditions struct {
	Criteria
	MinutesBefore int `json:"minutesBefore"`
}

type ManualMessageConditions struct {
	Criteria
	Title   string `json:"title"`
	Message string `json:"message"`
}

func (TrainCoverageConditions) AlertType() AlertType    { return TypeTrainCoverage }
func (InactiveMembersConditions) AlertType() AlertType  { return TypeInactiveMembers }
func (MissingConductorConditions) AlertType() AlertType { return TypeMissingConductor }
func (MemberThresholdConditions) AlertType() AlertType  { return TypeMemberThreshold }
func (PowerThresholdConditions) AlertType() AlertType   { return TypePowerThreshold }
func (EventReminderConditions) AlertType() AlertType    { return TypeEventReminder }
func (TrainDepartureConditions) AlertType() AlertType   { return TypeTrainDeparture }
func (ManualMessageConditions) AlertType() AlertType    { return TypeManualMessage }

// ErrUnknownAlertType is returned for a rule type without a template.
var ErrUnknownAlertType = errors.NewStd("unknown alert type")

func newConditions(t AlertType) (Conditions, bool) {
	switch t {
	case TypeTrainCoverage:
		return &TrainCoverageConditions{}, true
	case TypeInactiveMembers:
		return &InactiveMembersConditions{}, true
	case TypeMissingConductor:
		return &MissingConductorConditions{}, true
	case TypeMemberThreshold:
		return &MemberThresholdConditions{}, true
	case TypePowerThreshold:
		return &PowerThresholdConditions{}, true
	case TypeEventReminder:
		return &EventReminderConditions{}, true
	case TypeTrainDeparture:
		return &TrainDepartureConditions{}, true
	case TypeManualMessage:
		return &ManualMessageConditions{}, true
	}
	return nil, false
}

// DecodeConditions overlays the stored JSON conditions of a rule onto the
// defaults of its template. It returns the typed conditions together with
// the merged raw map, which message templates may reference.
func DecodeConditions(t AlertType, raw []byte) (Conditions, map[string]any, error) {
	tpl, ok := GetTemplate(t)
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", ErrUnknownAlertType, t)
	}
	merged := tpl.DefaultConditions

	if len(raw) > 0 && string(raw) != "null" {
		var overlay map[string]any
		if err := json.Unmarshal(raw, &overlay); err != nil {
			return nil, nil, errors.New(err).
				Component("alerting").
				Category(errors.CategoryValidation).
				Context("alert_type", string(t)).
				Build()
		}
		for k, v := range overlay {
			merged[k] = v
		}
	}

	cond, _ := newConditions(t)
	buf, err := json.Marshal(merged)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode conditions: %w", err)
	}
	if err := json.Unmarshal(buf, cond); err != nil {
		return nil, nil, errors.New(fmt.Errorf("invalid conditions for %s: %w", t, err)).
			Component("alerting").
			Category(errors.CategoryValidation).
			Build()
	}
	return cond, merged, nil
}

// ValidateConditions checks that raw decodes for t and uses an allowed operator.
func ValidateConditions(t AlertType, raw []byte) error {
	cond, _, err := DecodeConditions(t, raw)
	if err != nil {
		return err
	}
	tpl, _ := GetTemplate(t)
	op := cond.Base().Comparison
	for _, allowed := range tpl.AvailableComparisons {
		if allowed == op {
			return nil
		}
	}
	return errors.Newf("comparison %q is not available for %s", op, t).
		Component("alerting").
		Category(errors.CategoryValidation).
		Build()
}
