package engine

import (
	"github.com/shopspring/decimal"

	"github.com/noah-isme/mfi-loan-engine/internal/models"
)

var (
	riskPerArrearsDay  = decimal.RequireFromString("0.3")
	riskExposureWeight = decimal.NewFromInt(50)
	maxRiskScore       = decimal.NewFromInt(100)
	penaltyRatePer30   = decimal.RequireFromString("0.05")

	urgentArrearsAmount = decimal.NewFromInt(1_000_000)
	highArrearsAmount   = decimal.NewFromInt(500_000)
	mediumArrearsAmount = decimal.NewFromInt(100_000)

	severityBonus = map[models.PerformanceClass]decimal.Decimal{
		models.ClassLoss:        decimal.NewFromInt(30),
		models.ClassDoubtful:    decimal.NewFromInt(20),
		models.ClassSubstandard: decimal.NewFromInt(10),
		models.ClassWatch:       decimal.NewFromInt(5),
		models.ClassPerforming:  decimal.Zero,
	}
)

// Score derives the risk score, recovery priority and estimated penalty from
// a classified loan state.
func Score(state models.LoanState) models.RecoveryMetrics {
	arrears := state.ArrearsAmount()
	days := decimal.NewFromInt(int64(state.DaysInArrears))

	exposure := decimal.Zero
	if state.DisbursedAmount.IsPositive() {
		exposure = arrears.Div(state.DisbursedAmount)
	}
	bonus, ok := severityBonus[state.PerformanceClass]
	if !ok {
		bonus = decimal.Zero
	}
	raw := days.Mul(riskPerArrearsDay).Add(exposure.Mul(riskExposureWeight)).Add(bonus)

	return models.RecoveryMetrics{
		RiskScore:        clampDecimal(raw, decimal.Zero, maxRiskScore).Round(2),
		RecoveryPriority: RecoveryPriorityFor(state.DaysInArrears, arrears),
		EstimatedPenalty: EstimatedPenalty(arrears, state.DaysInArrears),
		ArrearsAmount:    arrears,
	}
}

// RecoveryPriorityFor ranks a loan by arrears age and amount. The first
// matching tier wins.
func RecoveryPriorityFor(daysInArrears int, arrears decimal.Decimal) models.RecoveryPriority {
	switch {
	case daysInArrears > doubtfulMaxDays || arrears.GreaterThan(urgentArrearsAmount):
		return models.PriorityUrgent
	case daysInArrears > substandardMaxDays || arrears.GreaterThan(highArrearsAmount):
		return models.PriorityHigh
	case daysInArrears > watchMaxDays || arrears.GreaterThan(mediumArrearsAmount):
		return models.PriorityMedium
	default:
		return models.PriorityLow
	}
}

// EstimatedPenalty accrues 5% of the arrears per 30 days, linearly.
func EstimatedPenalty(arrears decimal.Decimal, daysInArrears int) decimal.Decimal {
	if daysInArrears <= 0 || !arrears.IsPositive() {
		return decimal.Zero
	}
	days := decimal.NewFromInt(int64(daysInArrears))
	return roundMoney(arrears.Mul(penaltyRatePer30).Mul(days).Div(thirty))
}
