package model

import "time"

// RunInfo identifies one backtest run in persisted reports.
type RunInfo struct {
	ID        string    `json:"id"`
	Pool      string    `json:"pool"`
	Strategy  string    `json:"strategy"`
	FeeRate   uint32    `json:"fee_rate"`
	Decimal0  int       `json:"decimal0"`
	Decimal1  int       `json:"decimal1"`
	StartedAt time.Time `json:"started_at"`
}
