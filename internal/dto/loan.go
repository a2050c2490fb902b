package dto

import (
	"github.com/shopspring/decimal"

	"github.com/noah-isme/mfi-loan-engine/internal/models"
)

// DateLayout is the calendar date format accepted and returned by the API.
const DateLayout = "2006-01-02"

// SchedulePreviewRequest captures POST /loans/schedule/preview payload.
// Amount bounds are enforced by the engine, shape by the validator.
type SchedulePreviewRequest struct {
	Principal          decimal.Decimal           `json:"principal" swaggertype:"string" example:"100000"`
	AnnualInterestRate decimal.Decimal           `json:"annualInterestRate" swaggertype:"string" example:"12"`
	TermMonths         int                       `json:"termMonths" validate:"required,min=1,max=600"`
	RepaymentFrequency models.RepaymentFrequency `json:"repaymentFrequency" validate:"required,oneof=daily weekly bi_weekly monthly quarterly"`
	InterestMethod     models.InterestMethod     `json:"interestMethod" validate:"required,oneof=flat reducing_balance"`
	StartDate          string                    `json:"startDate" validate:"required,datetime=2006-01-02"`
}

// Terms converts the request into engine terms.
func (r SchedulePreviewRequest) Terms() models.LoanTerms {
	return models.LoanTerms{
		Principal:          r.Principal,
		AnnualInterestRate: r.AnnualInterestRate,
		TermMonths:         r.TermMonths,
		RepaymentFrequency: r.RepaymentFrequency,
		InterestMethod:     r.InterestMethod,
	}
}

// SchedulePreviewResponse returns the generated schedule.
type SchedulePreviewResponse struct {
	Schedule *models.Schedule `json:"schedule"`
	Cached   bool             `json:"cached"`
}

// LoanStateQuery carries the optional as-of date of GET /loans/:id/state.
type LoanStateQuery struct {
	AsOf string `form:"asOf" validate:"omitempty,datetime=2006-01-02"`
}

// LoanStateResponse is the on-demand evaluation of one loan.
type LoanStateResponse struct {
	Loan     models.Loan            `json:"loan"`
	State    *models.LoanState      `json:"state"`
	Recovery models.RecoveryMetrics `json:"recovery"`
}

// LoanStateListQuery filters GET /loans/states.
type LoanStateListQuery struct {
	Class    models.PerformanceClass `form:"class" validate:"omitempty,oneof=performing watch substandard doubtful loss"`
	Page     int                     `form:"page" validate:"omitempty,min=1"`
	PageSize int                     `form:"page_size" validate:"omitempty,min=1,max=200"`
}

// ReclassifyRequest captures POST /loans/reclassify payload.
type ReclassifyRequest struct {
	AsOf string `json:"asOf" validate:"omitempty,datetime=2006-01-02"`
	// IncludeDeltas returns per-loan deltas in the response body.
	IncludeDeltas bool `json:"includeDeltas"`
}
