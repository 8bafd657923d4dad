// Package storage writes fetched logs and backtest reports.
package storage

import (
	"context"

	"rangeSim/internal/model"
	"rangeSim/internal/report"
)

// LogSink is a sink for raw log records.
type LogSink interface {
	PutLogBatch(logs []model.LogRecord) error
}

// ReportSink persists the report of one run.
type ReportSink interface {
	SaveReport(ctx context.Context, run model.RunInfo, sim *report.Simulation) error
}
