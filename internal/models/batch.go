package models

import "time"

// BatchSummary describes a finished generation cycle without its records.
type BatchSummary struct {
	ID          string    `json:"id"`
	Filename    string    `json:"filename"`
	Records     int       `json:"records"`
	GeneratedAt time.Time `json:"generated_at"`
	CSVPath     string    `json:"csv_path"`
	ExcelPath   string    `json:"excel_path,omitempty"`
}

// CycleOutcome is the result of the most recent cycle, successful or not.
type CycleOutcome struct {
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Batch      *BatchSummary `json:"batch,omitempty"`
	Error      string        `json:"error,omitempty"`
}
