package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ScheduleEntry is a single installment row of an amortization schedule.
type ScheduleEntry struct {
	InstallmentNumber int             `json:"installmentNumber"`
	DueDate           time.Time       `json:"dueDate"`
	PrincipalDue      decimal.Decimal `json:"principalDue"`
	InterestDue       decimal.Decimal `json:"interestDue"`
	TotalDue          decimal.Decimal `json:"totalDue"`
	BalanceAfter      decimal.Decimal `json:"balanceAfter"`
}

// Schedule is the ordered installment plan with summary totals.
type Schedule struct {
	Terms             LoanTerms       `json:"terms"`
	StartDate         time.Time       `json:"startDate"`
	Entries           []ScheduleEntry `json:"entries"`
	TotalInstallments int             `json:"totalInstallments"`
	InstallmentAmount decimal.Decimal `json:"installmentAmount"`
	MaturityDate      time.Time       `json:"maturityDate"`
	TotalPrincipal    decimal.Decimal `json:"totalPrincipal"`
	TotalInterest     decimal.Decimal `json:"totalInterest"`
	TotalRepayable    decimal.Decimal `json:"totalRepayable"`
}

// PaymentEvent is a single repayment received from the borrower.
// Principal and Interest are optional; when both are nil the amount is
// allocated interest first.
type PaymentEvent struct {
	ID          string           `db:"id" json:"id"`
	LoanID      string           `db:"loan_id" json:"loanId"`
	PaymentDate time.Time        `db:"payment_date" json:"paymentDate"`
	Amount      decimal.Decimal  `db:"amount" json:"amount"`
	Principal   *decimal.Decimal `db:"principal_amount" json:"principal,omitempty"`
	Interest    *decimal.Decimal `db:"interest_amount" json:"interest,omitempty"`
}

// HasSplit reports whether the payment carries an explicit allocation.
func (p PaymentEvent) HasSplit() bool {
	return p.Principal != nil || p.Interest != nil
}
