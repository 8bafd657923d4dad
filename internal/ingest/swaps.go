package ingest

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"rangeSim/internal/dex"
	"rangeSim/internal/model"
)

const swapEventName = "Swap"

type swapLine struct {
	EventName string   `json:"event_name"`
	Topics    []string `json:"topics"`
}

type orderedSwap struct {
	event    model.SwapEvent
	logIndex uint64
}

// SwapReader reads swap events from indexer output.
type SwapReader struct {
	decoder *dex.SwapDecoder
	window  Window
}

func NewSwapReader(window Window) (*SwapReader, error) {
	decoder, err := dex.NewSwapDecoder()
	if err != nil {
		return nil, err
	}
	return &SwapReader{decoder: decoder, window: window}, nil
}

// LoadSwaps reads the swap events of path, which is a CSV file when its
// extension is .csv and JSONL otherwise.
func LoadSwaps(path string, window Window) ([]model.SwapEvent, error) {
	reader, err := NewSwapReader(window)
	if err != nil {
		return nil, err
	}
	var out []model.SwapEvent
	err = openFile(path, func(r io.Reader) error {
		var err error
		if isCSV(path) {
			out, err = reader.ReadCSV(r)
		} else {
			out, err = reader.ReadJSONL(r)
		}
		return err
	})
	return out, err
}

// ReadJSONL accepts both decoded-event records, of which only Swap events are
// kept, and raw log records, which are decoded with the pool ABI. The result is
// ordered by block and log index.
func (s *SwapReader) ReadJSONL(r io.Reader) ([]model.SwapEvent, error) {
	var swaps []orderedSwap
	err := eachLine(r, func(_ int, line []byte) error {
		var probe swapLine
		if err := json.Unmarshal(line, &probe); err != nil {
			return fmt.Errorf("parse record: %w", err)
		}

		if probe.EventName != "" {
			if probe.EventName != swapEventName {
				return nil
			}
			var record model.TypedEventRecord
			if err := json.Unmarshal(line, &record); err != nil {
				return fmt.Errorf("parse event record: %w", err)
			}
			var data model.SwapEventData
			if err := json.Unmarshal(record.Decoded, &data); err != nil {
				return fmt.Errorf("parse swap data: %w", err)
			}
			event, err := data.SwapEvent(record.BlockNumber, record.Timestamp)
			if err != nil {
				return err
			}
			swaps = s.add(swaps, event, record.LogIndex)
			return nil
		}

		var record model.LogRecord
		if err := json.Unmarshal(line, &record); err != nil {
			return fmt.Errorf("parse log record: %w", err)
		}
		if record.Removed || !s.decoder.IsSwap(record) {
			return nil
		}
		event, err := s.decoder.DecodeEvent(record)
		if err != nil {
			return err
		}
		swaps = s.add(swaps, event, record.LogIndex)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sortSwaps(swaps), nil
}

// ReadCSV reads rows with the columns blockNumber, timestamp, tick,
// sqrtPriceX96, liquidity, amount0 and amount1. Header names are matched
// case-insensitively and snake_case is accepted.
func (s *SwapReader) ReadCSV(r io.Reader) ([]model.SwapEvent, error) {
	rows, err := readCSV(r)
	if err != nil {
		return nil, err
	}

	var swaps []orderedSwap
	for i, row := range rows {
		blockNumber, err := row.unsigned("blocknumber")
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		timestamp, err := row.unsigned("timestamp")
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		tick, err := strconv.ParseInt(row.get("tick"), 10, 32)
		if err != nil {
			return nil, fmt.Errorf("row %d: parse tick: %w", i+1, err)
		}
		data := model.SwapEventData{
			SqrtPriceX96: row.get("sqrtpricex96"),
			Liquidity:    row.get("liquidity"),
			Amount0:      row.get("amount0"),
			Amount1:      row.get("amount1"),
			Tick:         int32(tick),
		}
		event, err := data.SwapEvent(blockNumber, timestamp)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		logIndex, _ := row.unsigned("logindex")
		swaps = s.add(swaps, event, logIndex)
	}
	return sortSwaps(swaps), nil
}

func (s *SwapReader) add(swaps []orderedSwap, event model.SwapEvent, logIndex uint64) []orderedSwap {
	if !s.window.Contains(event.Timestamp) {
		return swaps
	}
	return append(swaps, orderedSwap{event: event, logIndex: logIndex})
}

func sortSwaps(swaps []orderedSwap) []model.SwapEvent {
	sort.SliceStable(swaps, func(i, j int) bool {
		a, b := swaps[i], swaps[j]
		if a.event.BlockNumber != b.event.BlockNumber {
			return a.event.BlockNumber < b.event.BlockNumber
		}
		return a.logIndex < b.logIndex
	})
	out := make([]model.SwapEvent, len(swaps))
	for i, s := range swaps {
		out[i] = s.event
	}
	return out
}

type csvRow struct {
	index  map[string]int
	header []string
	values []string
}

func (r csvRow) get(key string) string {
	i, ok := r.index[key]
	if !ok || i >= len(r.values) {
		return ""
	}
	return strings.TrimSpace(r.values[i])
}

var errMissingColumn = errors.New("missing column")

func (r csvRow) unsigned(key string) (uint64, error) {
	v := r.get(key)
	if v == "" {
		return 0, fmt.Errorf("%w %s", errMissingColumn, key)
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return n, nil
}

func normalizeHeader(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), "_", "")
}

func readCSV(r io.Reader) ([]csvRow, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[normalizeHeader(name)] = i
	}

	var rows []csvRow
	for {
		values, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		rows = append(rows, csvRow{index: index, header: header, values: values})
	}
	return rows, nil
}
