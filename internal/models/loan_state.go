package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// InstallmentStatus tracks how much of an installment has been settled.
type InstallmentStatus string

const (
	InstallmentPending InstallmentStatus = "pending"
	InstallmentPartial InstallmentStatus = "partial"
	InstallmentPaid    InstallmentStatus = "paid"
)

// InstallmentState is the paid/outstanding view of one schedule entry.
type InstallmentState struct {
	InstallmentNumber int               `json:"installmentNumber"`
	DueDate           time.Time         `json:"dueDate"`
	PrincipalDue      decimal.Decimal   `json:"principalDue"`
	InterestDue       decimal.Decimal   `json:"interestDue"`
	PrincipalPaid     decimal.Decimal   `json:"principalPaid"`
	InterestPaid      decimal.Decimal   `json:"interestPaid"`
	TotalPaid         decimal.Decimal   `json:"totalPaid"`
	Status            InstallmentStatus `json:"status"`
}

// PrincipalOutstanding returns the unpaid principal of the installment.
func (i InstallmentState) PrincipalOutstanding() decimal.Decimal {
	return i.PrincipalDue.Sub(i.PrincipalPaid)
}

// InterestOutstanding returns the unpaid interest of the installment.
func (i InstallmentState) InterestOutstanding() decimal.Decimal {
	return i.InterestDue.Sub(i.InterestPaid)
}

// PerformanceClass is the delinquency bucket of a loan, ordered by severity.
type PerformanceClass string

const (
	ClassPerforming  PerformanceClass = "performing"
	ClassWatch       PerformanceClass = "watch"
	ClassSubstandard PerformanceClass = "substandard"
	ClassDoubtful    PerformanceClass = "doubtful"
	ClassLoss        PerformanceClass = "loss"
)

// PerformanceClasses lists every class from least to most severe.
var PerformanceClasses = []PerformanceClass{ClassPerforming, ClassWatch, ClassSubstandard, ClassDoubtful, ClassLoss}

// Severity returns the ordinal of the class; unknown classes rank -1.
func (c PerformanceClass) Severity() int {
	for i, class := range PerformanceClasses {
		if class == c {
			return i
		}
	}
	return -1
}

// Valid reports whether the class is known.
func (c PerformanceClass) Valid() bool {
	return c.Severity() >= 0
}

// LoanState is derived from a schedule, the payment history and an as-of date.
// It is recomputed on every evaluation and never edited by hand.
type LoanState struct {
	LoanID              string             `json:"loanId,omitempty"`
	AsOf                time.Time          `json:"asOf"`
	DisbursedAmount     decimal.Decimal    `json:"disbursedAmount"`
	PrincipalBalance    decimal.Decimal    `json:"principalBalance"`
	InterestBalance     decimal.Decimal    `json:"interestBalance"`
	LoanBalance         decimal.Decimal    `json:"loanBalance"`
	TotalPaid           decimal.Decimal    `json:"totalPaid"`
	CreditBalance       decimal.Decimal    `json:"creditBalance"`
	ArrearsPrincipal    decimal.Decimal    `json:"arrearsPrincipal"`
	ArrearsInterest     decimal.Decimal    `json:"arrearsInterest"`
	DaysInArrears       int                `json:"daysInArrears"`
	PerformanceClass    PerformanceClass   `json:"performanceClass"`
	ArrearsStartDate    *time.Time         `json:"arrearsStartDate,omitempty"`
	OverdueInstallments int                `json:"overdueInstallments"`
	NextDueDate         *time.Time         `json:"nextDueDate,omitempty"`
	Installments        []InstallmentState `json:"installments,omitempty"`
	Overpayment         *Overpayment       `json:"overpayment,omitempty"`
	Warnings            []string           `json:"warnings,omitempty"`
}

// Overpayment records cumulative payments above the total due. It satisfies
// error so callers can match it with errors.As.
type Overpayment struct {
	TotalDue  decimal.Decimal `json:"totalDue"`
	TotalPaid decimal.Decimal `json:"totalPaid"`
	Excess    decimal.Decimal `json:"excess"`
}

func (o *Overpayment) Error() string {
	return o.String()
}

func (o *Overpayment) String() string {
	return fmt.Sprintf("overpayment: paid %s against %s due, %s held as credit",
		o.TotalPaid.StringFixed(2), o.TotalDue.StringFixed(2), o.Excess.StringFixed(2))
}

// ArrearsAmount is the total amount currently in arrears.
func (s LoanState) ArrearsAmount() decimal.Decimal {
	return s.ArrearsPrincipal.Add(s.ArrearsInterest)
}

// RecoveryPriority ranks loans for collection action.
type RecoveryPriority string

const (
	PriorityUrgent RecoveryPriority = "urgent"
	PriorityHigh   RecoveryPriority = "high"
	PriorityMedium RecoveryPriority = "medium"
	PriorityLow    RecoveryPriority = "low"
)

// RecoveryMetrics are the collection signals derived from a classified state.
type RecoveryMetrics struct {
	RiskScore        decimal.Decimal  `json:"riskScore"`
	RecoveryPriority RecoveryPriority `json:"recoveryPriority"`
	EstimatedPenalty decimal.Decimal  `json:"estimatedPenalty"`
	ArrearsAmount    decimal.Decimal  `json:"arrearsAmount"`
}
