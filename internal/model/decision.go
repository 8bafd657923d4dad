package model

import (
	"encoding/json"
	"strconv"
	"strings"
)

// DecisionEvent is a strategy decision point. Fields carries the extra columns of
// the source row untouched.
type DecisionEvent struct {
	Timestamp uint64         `json:"timestamp"`
	Price     float64        `json:"price"`
	Fields    map[string]any `json:"fields,omitempty"`
}

// Bool returns the named field as a bool. Numbers are true when non-zero and
// strings are parsed with strconv.ParseBool.
func (e DecisionEvent) Bool(key string) (bool, bool) {
	v, ok := e.Fields[key]
	if !ok {
		return false, false
	}
	switch x := v.(type) {
	case bool:
		return x, true
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(x))
		return b, err == nil
	}
	f, ok := toFloat(v)
	return ok && f != 0, ok
}

// Float returns the named field as a float64.
func (e DecisionEvent) Float(key string) (float64, bool) {
	v, ok := e.Fields[key]
	if !ok {
		return 0, false
	}
	return toFloat(v)
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case uint64:
		return float64(x), true
	case json.Number:
		f, err := x.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		return f, err == nil
	case bool:
		if x {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}
