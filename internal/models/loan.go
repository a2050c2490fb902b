package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// RepaymentFrequency enumerates installment cadences.
type RepaymentFrequency string

const (
	FrequencyDaily     RepaymentFrequency = "daily"
	FrequencyWeekly    RepaymentFrequency = "weekly"
	FrequencyBiWeekly  RepaymentFrequency = "bi_weekly"
	FrequencyMonthly   RepaymentFrequency = "monthly"
	FrequencyQuarterly RepaymentFrequency = "quarterly"
)

// Valid reports whether the frequency is supported.
func (f RepaymentFrequency) Valid() bool {
	switch f {
	case FrequencyDaily, FrequencyWeekly, FrequencyBiWeekly, FrequencyMonthly, FrequencyQuarterly:
		return true
	default:
		return false
	}
}

// InterestMethod enumerates interest computation methods.
type InterestMethod string

const (
	InterestFlat            InterestMethod = "flat"
	InterestReducingBalance InterestMethod = "reducing_balance"
)

// Valid reports whether the method is supported.
func (m InterestMethod) Valid() bool {
	return m == InterestFlat || m == InterestReducingBalance
}

// LoanTerms are the immutable inputs to schedule generation.
type LoanTerms struct {
	Principal          decimal.Decimal    `db:"principal" json:"principal"`
	AnnualInterestRate decimal.Decimal    `db:"annual_interest_rate" json:"annualInterestRate"`
	TermMonths         int                `db:"term_months" json:"termMonths"`
	RepaymentFrequency RepaymentFrequency `db:"repayment_frequency" json:"repaymentFrequency"`
	InterestMethod     InterestMethod     `db:"interest_method" json:"interestMethod"`
}

// LoanStatus captures the lifecycle of a persisted loan row.
type LoanStatus string

const (
	LoanStatusPending    LoanStatus = "pending"
	LoanStatusApproved   LoanStatus = "approved"
	LoanStatusDisbursed  LoanStatus = "disbursed"
	LoanStatusActive     LoanStatus = "active"
	LoanStatusClosed     LoanStatus = "closed"
	LoanStatusWrittenOff LoanStatus = "written_off"
)

// Loan is the persisted loan row consumed by the engine.
type Loan struct {
	ID          string     `db:"id" json:"id"`
	ClientID    string     `db:"client_id" json:"clientId"`
	Status      LoanStatus `db:"status" json:"status"`
	DisbursedAt time.Time  `db:"disbursed_at" json:"disbursedAt"`
	CreatedAt   time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updatedAt"`
	LoanTerms
}
