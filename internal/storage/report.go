package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"rangeSim/internal/model"
	"rangeSim/internal/report"
)

// File names written by ReportWriter inside its directory.
const (
	RunFile           = "run.json"
	PositionsFile     = "positions.jsonl"
	TotalFile         = "total.jsonl"
	PlainPositionFile = "positions_plain.jsonl"
	PlainTotalFile    = "total_plain.jsonl"
)

// PositionLine is a position row tagged with its token id.
type PositionLine struct {
	TokenID uint64 `json:"token_id"`
	report.PositionRow
}

// PlainPositionLine is a plain position row tagged with its token id.
type PlainPositionLine struct {
	TokenID uint64 `json:"token_id"`
	report.PlainPositionRow
}

// ReportWriter writes the report of a run as JSONL files in Dir, replacing
// previous output.
type ReportWriter struct {
	Dir   string
	Plain bool
}

func NewReportWriter(dir string, plain bool) *ReportWriter {
	return &ReportWriter{Dir: dir, Plain: plain}
}

func (w *ReportWriter) SaveReport(_ context.Context, run model.RunInfo, sim *report.Simulation) error {
	if sim == nil {
		return fmt.Errorf("report is nil")
	}
	if err := os.MkdirAll(w.Dir, 0o755); err != nil {
		return fmt.Errorf("create report dir: %w", err)
	}

	var positions []PositionLine
	var plain []PlainPositionLine
	for _, series := range sim.Positions {
		for _, row := range series.Rows {
			positions = append(positions, PositionLine{TokenID: series.TokenID, PositionRow: row})
		}
		if w.Plain {
			for _, row := range sim.PlainPosition(series) {
				plain = append(plain, PlainPositionLine{TokenID: series.TokenID, PlainPositionRow: row})
			}
		}
	}

	if err := writeFile(w.Dir, RunFile, []model.RunInfo{run}); err != nil {
		return err
	}
	if err := writeFile(w.Dir, PositionsFile, positions); err != nil {
		return err
	}
	if err := writeFile(w.Dir, TotalFile, sim.Total()); err != nil {
		return err
	}
	if !w.Plain {
		return nil
	}
	if err := writeFile(w.Dir, PlainPositionFile, plain); err != nil {
		return err
	}
	return writeFile(w.Dir, PlainTotalFile, sim.PlainTotal())
}

func writeFile[T any](dir, name string, records []T) error {
	if err := writeLines(filepath.Join(dir, name), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, records); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}
