package ingest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"

	"rangeSim/internal/model"
)

const (
	timestampField = "timestamp"
	priceField     = "price"
)

// LoadDecisions reads decision events from a CSV or JSONL file. Every column
// other than timestamp and price is kept in Fields. Events are ordered by
// timestamp, keeping file order for equal timestamps.
func LoadDecisions(path string, window Window) ([]model.DecisionEvent, error) {
	var out []model.DecisionEvent
	err := openFile(path, func(r io.Reader) error {
		var err error
		if isCSV(path) {
			out, err = ReadDecisionsCSV(r, window)
		} else {
			out, err = ReadDecisionsJSONL(r, window)
		}
		return err
	})
	return out, err
}

func ReadDecisionsJSONL(r io.Reader, window Window) ([]model.DecisionEvent, error) {
	var out []model.DecisionEvent
	err := eachLine(r, func(_ int, line []byte) error {
		dec := json.NewDecoder(bytes.NewReader(line))
		dec.UseNumber()
		var fields map[string]any
		if err := dec.Decode(&fields); err != nil {
			return fmt.Errorf("parse decision: %w", err)
		}
		event, err := decisionFromFields(fields)
		if err != nil {
			return err
		}
		if window.Contains(event.Timestamp) {
			out = append(out, event)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sortDecisions(out), nil
}

// ReadDecisionsCSV keeps extra columns as strings. Columns with an empty
// header, such as a leading index column, are dropped.
func ReadDecisionsCSV(r io.Reader, window Window) ([]model.DecisionEvent, error) {
	rows, err := readCSV(r)
	if err != nil {
		return nil, err
	}

	var out []model.DecisionEvent
	for i, row := range rows {
		fields := make(map[string]any, len(row.header))
		for j, name := range row.header {
			name = strings.TrimSpace(name)
			if name == "" || j >= len(row.values) {
				continue
			}
			fields[name] = strings.TrimSpace(row.values[j])
		}
		event, err := decisionFromFields(fields)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		if window.Contains(event.Timestamp) {
			out = append(out, event)
		}
	}
	return sortDecisions(out), nil
}

func decisionFromFields(fields map[string]any) (model.DecisionEvent, error) {
	event := model.DecisionEvent{Fields: make(map[string]any, len(fields))}
	var haveTimestamp, havePrice bool
	for key, value := range fields {
		switch strings.ToLower(key) {
		case timestampField:
			ts, err := parseTimestamp(value)
			if err != nil {
				return model.DecisionEvent{}, err
			}
			event.Timestamp, haveTimestamp = ts, true
		case priceField:
			price, err := parseNumber(value)
			if err != nil {
				return model.DecisionEvent{}, fmt.Errorf("parse price: %w", err)
			}
			event.Price, havePrice = price, true
		default:
			event.Fields[key] = value
		}
	}
	if !haveTimestamp {
		return model.DecisionEvent{}, fmt.Errorf("%w %s", errMissingColumn, timestampField)
	}
	if !havePrice {
		return model.DecisionEvent{}, fmt.Errorf("%w %s", errMissingColumn, priceField)
	}
	return event, nil
}

func parseTimestamp(value any) (uint64, error) {
	if s, ok := value.(string); ok {
		if ts, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64); err == nil {
			return ts, nil
		}
	}
	f, err := parseNumber(value)
	if err != nil {
		return 0, fmt.Errorf("parse timestamp: %w", err)
	}
	if f < 0 || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, fmt.Errorf("parse timestamp: invalid value %v", value)
	}
	return uint64(f), nil
}

func parseNumber(value any) (float64, error) {
	switch v := value.(type) {
	case json.Number:
		return v.Float64()
	case float64:
		return v, nil
	case string:
		return strconv.ParseFloat(strings.TrimSpace(v), 64)
	}
	return 0, fmt.Errorf("unexpected type %T", value)
}

func sortDecisions(events []model.DecisionEvent) []model.DecisionEvent {
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Timestamp < events[j].Timestamp
	})
	return events
}
