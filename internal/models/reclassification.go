package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ReclassificationDelta is the outcome of reclassifying one loan.
type ReclassificationDelta struct {
	LoanID   string           `json:"loanId"`
	Previous *LoanStateRecord `json:"previous,omitempty"`
	State    LoanState        `json:"state"`
	Recovery RecoveryMetrics  `json:"recovery"`
	Changed  bool             `json:"changed"`
}

// Record flattens the delta into its persisted form.
func (d ReclassificationDelta) Record() LoanStateRecord {
	return NewLoanStateRecord(d.LoanID, d.State, d.Recovery)
}

// LoanFailure describes a loan that could not be reclassified.
type LoanFailure struct {
	LoanID string `json:"loanId"`
	Error  string `json:"error"`
}

// ClassSummary aggregates loans in a single performance class.
type ClassSummary struct {
	Count   int             `json:"count"`
	Balance decimal.Decimal `json:"balance"`
}

// PortfolioSummary aggregates classified loans across the portfolio.
type PortfolioSummary struct {
	TotalLoans      int                               `json:"totalLoans"`
	TotalBalance    decimal.Decimal                   `json:"totalBalance"`
	ArrearsBalance  decimal.Decimal                   `json:"arrearsBalance"`
	PortfolioAtRisk decimal.Decimal                   `json:"portfolioAtRisk"`
	ByClass         map[PerformanceClass]ClassSummary `json:"byClass"`
}

// ReclassificationReport summarises one batch run.
type ReclassificationReport struct {
	RunID      string                  `json:"runId"`
	AsOf       time.Time               `json:"asOf"`
	StartedAt  time.Time               `json:"startedAt"`
	FinishedAt time.Time               `json:"finishedAt"`
	Total      int                     `json:"total"`
	Processed  int                     `json:"processed"`
	Changed    int                     `json:"changed"`
	Failed     int                     `json:"failed"`
	Incomplete bool                    `json:"incomplete"`
	Failures   []LoanFailure           `json:"failures,omitempty"`
	Deltas     []ReclassificationDelta `json:"deltas,omitempty"`
	Summary    PortfolioSummary        `json:"summary"`
}
