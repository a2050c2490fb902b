package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/mfi-loan-engine/internal/dto"
	"github.com/noah-isme/mfi-loan-engine/internal/middleware"
	"github.com/noah-isme/mfi-loan-engine/internal/models"
	appErrors "github.com/noah-isme/mfi-loan-engine/pkg/errors"
	"github.com/noah-isme/mfi-loan-engine/pkg/response"
)

type loanService interface {
	PreviewSchedule(ctx context.Context, req dto.SchedulePreviewRequest) (*dto.SchedulePreviewResponse, error)
	LoanState(ctx context.Context, loanID string, query dto.LoanStateQuery) (*dto.LoanStateResponse, error)
	ListStates(ctx context.Context, query dto.LoanStateListQuery) ([]models.LoanStateRecord, *models.Pagination, error)
}

type reclassifier interface {
	Run(ctx context.Context, asOf time.Time) (*models.ReclassificationReport, error)
	LastReport(ctx context.Context) (*models.ReclassificationReport, error)
}

// LoanHandler exposes schedule, loan state and portfolio endpoints.
type LoanHandler struct {
	loans     loanService
	batch     reclassifier
	validator *validator.Validate
	now       func() time.Time
}

// NewLoanHandler builds a new handler.
func NewLoanHandler(loans loanService, batch reclassifier) *LoanHandler {
	return &LoanHandler{
		loans:     loans,
		batch:     batch,
		validator: validator.New(),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// PreviewSchedule godoc
// @Summary Preview an amortization schedule
// @Description Generates the installment schedule for prospective loan terms without persisting anything.
// @Tags Loans
// @Accept json
// @Produce json
// @Param payload body dto.SchedulePreviewRequest true "Loan terms"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /loans/schedule/preview [post]
func (h *LoanHandler) PreviewSchedule(c *gin.Context) {
	var req dto.SchedulePreviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid schedule payload"))
		return
	}
	resp, err := h.loans.PreviewSchedule(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, resp.Cached)
	response.JSON(c, http.StatusOK, resp, nil, middleware.ExtractMeta(c))
}

// LoanState godoc
// @Summary Evaluate a loan
// @Description Replays the payment history and classifies the loan as of the given date (default today).
// @Tags Loans
// @Produce json
// @Param id path string true "Loan ID"
// @Param asOf query string false "As-of date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /loans/{id}/state [get]
func (h *LoanHandler) LoanState(c *gin.Context) {
	var query dto.LoanStateQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid query parameters"))
		return
	}
	resp, err := h.loans.LoanState(c.Request.Context(), c.Param("id"), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, resp)
}

// ListStates godoc
// @Summary List stored loan classifications
// @Tags Loans
// @Produce json
// @Param class query string false "Performance class" Enums(performing, watch, substandard, doubtful, loss)
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /loans/states [get]
func (h *LoanHandler) ListStates(c *gin.Context) {
	var query dto.LoanStateListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid query parameters"))
		return
	}
	records, pagination, err := h.loans.ListStates(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, pagination)
}

// PortfolioSummary godoc
// @Summary Portfolio summary of the last reclassification
// @Description Loan counts and balances per performance class plus portfolio at risk.
// @Tags Portfolio
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /loans/portfolio/summary [get]
func (h *LoanHandler) PortfolioSummary(c *gin.Context) {
	report, err := h.batch.LastReport(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report.Summary, nil, map[string]interface{}{
		"runId":      report.RunID,
		"asOf":       report.AsOf.Format(dto.DateLayout),
		"finishedAt": report.FinishedAt,
		"incomplete": report.Incomplete,
	})
}

// Reclassify godoc
// @Summary Run portfolio reclassification
// @Description Reclassifies every active loan and persists changed classifications. Runs to completion even if the client disconnects.
// @Tags Portfolio
// @Accept json
// @Produce json
// @Param payload body dto.ReclassifyRequest false "Run options"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /loans/reclassify [post]
func (h *LoanHandler) Reclassify(c *gin.Context) {
	var req dto.ReclassifyRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid reclassify payload"))
			return
		}
	}
	if err := h.validator.Struct(req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "asOf must be YYYY-MM-DD"))
		return
	}
	asOf := h.now()
	if req.AsOf != "" {
		parsed, err := time.Parse(dto.DateLayout, req.AsOf)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "asOf must be YYYY-MM-DD"))
			return
		}
		asOf = parsed
	}

	report, err := h.batch.Run(context.WithoutCancel(c.Request.Context()), asOf)
	if err != nil && report == nil {
		response.Error(c, err)
		return
	}
	body := *report
	if !req.IncludeDeltas {
		body.Deltas = nil
	}
	if err != nil {
		c.Error(err) //nolint:errcheck
		response.JSON(c, http.StatusInternalServerError, body, nil, map[string]interface{}{"warning": appErrors.FromError(err).Message})
		return
	}
	response.OK(c, body)
}
