package models

import "time"

type ReportKind string

const (
	ReportSummary        ReportKind = "summary"
	ReportClauseAnalysis ReportKind = "clauses"
	ReportComparison     ReportKind = "comparison"
)

// Report is a one-shot generated artifact. It is derived from its inputs and
// never persisted on its own.
type Report struct {
	Kind        ReportKind `json:"kind"`
	Language    Language   `json:"language"`
	Content     string     `json:"content"`
	Cached      bool       `json:"cached"`
	GeneratedAt time.Time  `json:"generated_at"`
}
