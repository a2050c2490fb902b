package engine

import (
	"github.com/shopspring/decimal"

	"github.com/noah-isme/mfi-loan-engine/internal/models"
)

// SummarizePortfolio aggregates classified states by performance class and
// computes the portfolio-at-risk ratio (balance in arrears over total
// balance, four decimal places).
func SummarizePortfolio(states []models.LoanState) models.PortfolioSummary {
	summary := models.PortfolioSummary{
		TotalBalance:    decimal.Zero,
		ArrearsBalance:  decimal.Zero,
		PortfolioAtRisk: decimal.Zero,
		ByClass:         make(map[models.PerformanceClass]models.ClassSummary, len(models.PerformanceClasses)),
	}
	for _, class := range models.PerformanceClasses {
		summary.ByClass[class] = models.ClassSummary{Balance: decimal.Zero}
	}

	for _, state := range states {
		summary.TotalLoans++
		summary.TotalBalance = summary.TotalBalance.Add(state.LoanBalance)
		if state.DaysInArrears > 0 {
			summary.ArrearsBalance = summary.ArrearsBalance.Add(state.LoanBalance)
		}
		class := state.PerformanceClass
		if !class.Valid() {
			class = models.ClassPerforming
		}
		bucket := summary.ByClass[class]
		bucket.Count++
		bucket.Balance = bucket.Balance.Add(state.LoanBalance)
		summary.ByClass[class] = bucket
	}

	if summary.TotalBalance.IsPositive() {
		summary.PortfolioAtRisk = summary.ArrearsBalance.Div(summary.TotalBalance).Round(4)
	}
	return summary
}
