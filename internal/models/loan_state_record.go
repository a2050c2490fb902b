package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// LoanStateRecord is the persisted snapshot of the latest classification.
type LoanStateRecord struct {
	LoanID           string           `db:"loan_id" json:"loanId"`
	AsOf             time.Time        `db:"as_of" json:"asOf"`
	PrincipalBalance decimal.Decimal  `db:"principal_balance" json:"principalBalance"`
	InterestBalance  decimal.Decimal  `db:"interest_balance" json:"interestBalance"`
	LoanBalance      decimal.Decimal  `db:"loan_balance" json:"loanBalance"`
	ArrearsPrincipal decimal.Decimal  `db:"arrears_principal" json:"arrearsPrincipal"`
	ArrearsInterest  decimal.Decimal  `db:"arrears_interest" json:"arrearsInterest"`
	DaysInArrears    int              `db:"days_in_arrears" json:"daysInArrears"`
	PerformanceClass PerformanceClass `db:"performance_class" json:"performanceClass"`
	ArrearsStartDate *time.Time       `db:"arrears_start_date" json:"arrearsStartDate,omitempty"`
	RiskScore        decimal.Decimal  `db:"risk_score" json:"riskScore"`
	RecoveryPriority RecoveryPriority `db:"recovery_priority" json:"recoveryPriority"`
	EstimatedPenalty decimal.Decimal  `db:"estimated_penalty" json:"estimatedPenalty"`
	UpdatedAt        time.Time        `db:"updated_at" json:"updatedAt"`
}

// NewLoanStateRecord flattens a classified state and its recovery metrics.
func NewLoanStateRecord(loanID string, state LoanState, recovery RecoveryMetrics) LoanStateRecord {
	return LoanStateRecord{
		LoanID:           loanID,
		AsOf:             state.AsOf,
		PrincipalBalance: state.PrincipalBalance,
		InterestBalance:  state.InterestBalance,
		LoanBalance:      state.LoanBalance,
		ArrearsPrincipal: state.ArrearsPrincipal,
		ArrearsInterest:  state.ArrearsInterest,
		DaysInArrears:    state.DaysInArrears,
		PerformanceClass: state.PerformanceClass,
		ArrearsStartDate: state.ArrearsStartDate,
		RiskScore:        recovery.RiskScore,
		RecoveryPriority: recovery.RecoveryPriority,
		EstimatedPenalty: recovery.EstimatedPenalty,
	}
}

// SameClassification reports whether two records carry the same balances,
// arrears and classification. AsOf and UpdatedAt are ignored.
func (r LoanStateRecord) SameClassification(other LoanStateRecord) bool {
	return r.PrincipalBalance.Equal(other.PrincipalBalance) &&
		r.InterestBalance.Equal(other.InterestBalance) &&
		r.LoanBalance.Equal(other.LoanBalance) &&
		r.ArrearsPrincipal.Equal(other.ArrearsPrincipal) &&
		r.ArrearsInterest.Equal(other.ArrearsInterest) &&
		r.DaysInArrears == other.DaysInArrears &&
		r.PerformanceClass == other.PerformanceClass &&
		sameDate(r.ArrearsStartDate, other.ArrearsStartDate) &&
		r.RiskScore.Equal(other.RiskScore) &&
		r.RecoveryPriority == other.RecoveryPriority &&
		r.EstimatedPenalty.Equal(other.EstimatedPenalty)
}

func sameDate(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}
