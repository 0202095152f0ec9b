package alerting

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Scalar is a collected value or a threshold: a number or a boolean.
type Scalar struct {
	num    float64
	flag   bool
	isBool bool
}

// Number returns a numeric Scalar.
func Number(f float64) Scalar { return Scalar{num: f} }

// Bool returns a boolean Scalar.
func Bool(b bool) Scalar { return Scalar{flag: b, isBool: true} }

func (s Scalar) IsBool() bool { return s.isBool }

// Float returns the numeric value; booleans are 1 or 0.
func (s Scalar) Float() float64 {
	if s.isBool {
		if s.flag {
			return 1
		}
		return 0
	}
	return s.num
}

// Any returns the value as float64 or bool.
func (s Scalar) Any() any {
	if s.isBool {
		return s.flag
	}
	return s.num
}

func (s Scalar) String() string {
	if s.isBool {
		return strconv.FormatBool(s.flag)
	}
	return strconv.FormatFloat(s.num, 'f', -1, 64)
}

func (s Scalar) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Any())
}

// UnmarshalJSON accepts a JSON number, a boolean, or a numeric string.
func (s *Scalar) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch value := v.(type) {
	case bool:
		*s = Bool(value)
	case float64:
		*s = Number(value)
	case string:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid threshold %q", value)
		}
		*s = Number(f)
	default:
		return fmt.Errorf("threshold must be a number or a boolean, got %s", string(b))
	}
	return nil
}

// Criteria is the threshold and operator shared by every condition shape.
type Criteria struct {
	Threshold  Scalar     `json:"threshold"`
	Comparison Comparison `json:"comparison"`
}

// Base returns the criteria. It is promoted to every typed condition.
func (c Criteria) Base() Criteria { return c }

// Evaluate applies the comparison between value and the threshold. Unknown
// operators never trigger. equals is strict: a boolean never equals a number.
// The ordering operators treat booleans as 1 and 0.
func Evaluate(value Scalar, c Criteria) bool {
	switch c.Comparison {
	case Equals:
		if value.isBool != c.Threshold.isBool {
			return false
		}
		if value.isBool {
			return value.flag == c.Threshold.flag
		}
		return value.num == c.Threshold.num
	case LessThan:
		return value.Float() < c.Threshold.Float()
	case GreaterThan:
		return value.Float() > c.Threshold.Float()
	case LessThanOrEqual:
		return value.Float() <= c.Threshold.Float()
	case GreaterThanOrEqual:
		return value.Float() >= c.Threshold.Float()
	default:
		return false
	}
}

// toFloat64 converts numeric variable values for formatting.
func toFloat64(val any) (float64, bool) {
	switch v := val.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint32:
		return float64(v), true
	case uint64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
