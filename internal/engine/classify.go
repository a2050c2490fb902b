package engine

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/mfi-loan-engine/internal/models"
)

// Upper bounds (inclusive) of each arrears bucket in days.
const (
	watchMaxDays       = 30
	substandardMaxDays = 90
	doubtfulMaxDays    = 180
)

// ClassForDays maps days in arrears onto a performance class.
func ClassForDays(days int) models.PerformanceClass {
	switch {
	case days <= 0:
		return models.ClassPerforming
	case days <= watchMaxDays:
		return models.ClassWatch
	case days <= substandardMaxDays:
		return models.ClassSubstandard
	case days <= doubtfulMaxDays:
		return models.ClassDoubtful
	default:
		return models.ClassLoss
	}
}

// Classify adds arrears and the performance class to a balance state.
//
// Arrears are measured at loan level: a loan is in arrears only once its
// maturity date has passed with a balance outstanding. An ArrearsStartDate
// carried in by the caller is kept while the loan stays in arrears and
// cleared once it is cured. The input state is not modified.
func Classify(schedule *models.Schedule, state *models.LoanState, asOf time.Time) (*models.LoanState, error) {
	if schedule == nil || len(schedule.Entries) == 0 {
		return nil, invalidClassification("schedule", "has no installments")
	}
	if schedule.MaturityDate.IsZero() {
		return nil, invalidClassification("maturityDate", "is missing")
	}
	if state == nil {
		return nil, invalidClassification("state", "is required")
	}

	out := cloneState(state)
	asOfDay := DateOnly(asOf)
	maturity := DateOnly(schedule.MaturityDate)
	out.AsOf = asOfDay

	days := 0
	if out.LoanBalance.IsPositive() && asOfDay.After(maturity) {
		days = daysBetween(maturity, asOfDay)
	}
	out.DaysInArrears = days
	out.PerformanceClass = ClassForDays(days)

	if days > 0 {
		out.ArrearsPrincipal = out.PrincipalBalance
		out.ArrearsInterest = out.InterestBalance
		if out.ArrearsStartDate == nil {
			start := maturity.AddDate(0, 0, 1)
			out.ArrearsStartDate = &start
		}
	} else {
		out.ArrearsPrincipal = decimal.Zero
		out.ArrearsInterest = decimal.Zero
		out.ArrearsStartDate = nil
	}
	return out, nil
}

// Evaluate runs the balance tracker, the classifier and the recovery scorer
// in sequence. previousArrearsStart is the arrears start date persisted by an
// earlier evaluation, if any.
func Evaluate(schedule *models.Schedule, payments []models.PaymentEvent, asOf time.Time, previousArrearsStart *time.Time) (*models.LoanState, models.RecoveryMetrics, error) {
	balances, err := ApplyPayments(schedule, payments, asOf)
	if err != nil {
		return nil, models.RecoveryMetrics{}, err
	}
	if previousArrearsStart != nil {
		start := DateOnly(*previousArrearsStart)
		balances.ArrearsStartDate = &start
	}
	classified, err := Classify(schedule, balances, asOf)
	if err != nil {
		return nil, models.RecoveryMetrics{}, err
	}
	return classified, Score(*classified), nil
}

func cloneState(state *models.LoanState) *models.LoanState {
	out := *state
	if state.Installments != nil {
		out.Installments = make([]models.InstallmentState, len(state.Installments))
		copy(out.Installments, state.Installments)
	}
	if state.Warnings != nil {
		out.Warnings = make([]string, len(state.Warnings))
		copy(out.Warnings, state.Warnings)
	}
	if state.ArrearsStartDate != nil {
		start := *state.ArrearsStartDate
		out.ArrearsStartDate = &start
	}
	if state.Overpayment != nil {
		overpayment := *state.Overpayment
		out.Overpayment = &overpayment
	}
	if state.NextDueDate != nil {
		next := *state.NextDueDate
		out.NextDueDate = &next
	}
	return &out
}
