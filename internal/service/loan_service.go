package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/mfi-loan-engine/internal/dto"
	"github.com/noah-isme/mfi-loan-engine/internal/engine"
	"github.com/noah-isme/mfi-loan-engine/internal/models"
	"github.com/noah-isme/mfi-loan-engine/internal/repository"
	appErrors "github.com/noah-isme/mfi-loan-engine/pkg/errors"
)

type loanReader interface {
	FindByID(ctx context.Context, id string) (*models.Loan, error)
	ListPayments(ctx context.Context, loanID string) ([]models.PaymentEvent, error)
}

type loanStateReader interface {
	Get(ctx context.Context, loanID string) (*models.LoanStateRecord, error)
	ListStates(ctx context.Context, filter repository.LoanStateFilter) ([]models.LoanStateRecord, int, error)
}

// LoanService serves schedule previews and on-demand loan evaluations.
type LoanService struct {
	loans     loanReader
	states    loanStateReader
	cache     *CacheService
	metrics   *MetricsService
	cacheTTL  time.Duration
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewLoanService constructs the loan service.
func NewLoanService(loans loanReader, states loanStateReader, cache *CacheService, metrics *MetricsService, cacheTTL time.Duration, validate *validator.Validate, logger *zap.Logger) *LoanService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LoanService{
		loans:     loans,
		states:    states,
		cache:     cache,
		metrics:   metrics,
		cacheTTL:  cacheTTL,
		validator: validate,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// PreviewSchedule generates the installment schedule for prospective terms.
// Identical requests are answered from the cache when it is enabled.
func (s *LoanService) PreviewSchedule(ctx context.Context, req dto.SchedulePreviewRequest) (*dto.SchedulePreviewResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	start, err := time.Parse(dto.DateLayout, req.StartDate)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "startDate must be YYYY-MM-DD")
	}

	terms := req.Terms()
	key := previewCacheKey(terms, start)
	var cached models.Schedule
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return &dto.SchedulePreviewResponse{Schedule: &cached, Cached: true}, nil
	}

	schedule, err := engine.GenerateSchedule(terms, start)
	if err != nil {
		return nil, mapEngineError(err)
	}
	if err := s.cache.Set(ctx, key, schedule, s.cacheTTL); err != nil {
		s.logger.Debug("preview not cached", zap.String("key", key), zap.Error(err))
	}
	return &dto.SchedulePreviewResponse{Schedule: schedule}, nil
}

// LoanState evaluates a persisted loan from its terms and payment history.
// Nothing is written; the batch reclassifier owns persistence.
func (s *LoanService) LoanState(ctx context.Context, loanID string, query dto.LoanStateQuery) (*dto.LoanStateResponse, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "asOf must be YYYY-MM-DD")
	}
	asOf := s.now()
	if query.AsOf != "" {
		parsed, err := time.Parse(dto.DateLayout, query.AsOf)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "asOf must be YYYY-MM-DD")
		}
		asOf = parsed
	}

	start := time.Now()
	loan, err := s.loans.FindByID(ctx, loanID)
	s.metrics.ObserveDBQuery("loan_find", time.Since(start))
	if err != nil {
		return nil, asAppError(err, "failed to load loan")
	}
	start = time.Now()
	payments, err := s.loans.ListPayments(ctx, loanID)
	s.metrics.ObserveDBQuery("loan_payments", time.Since(start))
	if err != nil {
		return nil, asAppError(err, "failed to load payments")
	}

	var previousStart *time.Time
	start = time.Now()
	previous, err := s.states.Get(ctx, loanID)
	s.metrics.ObserveDBQuery("loan_state_get", time.Since(start))
	switch {
	case err == nil:
		previousStart = previous.ArrearsStartDate
	case !isNotFound(err):
		return nil, asAppError(err, "failed to load stored loan state")
	}

	schedule, err := engine.GenerateSchedule(loan.LoanTerms, loan.DisbursedAt)
	if err != nil {
		return nil, mapEngineError(err)
	}
	state, recovery, err := engine.Evaluate(schedule, payments, asOf, previousStart)
	if err != nil {
		return nil, mapEngineError(err)
	}
	state.LoanID = loan.ID
	for _, warning := range state.Warnings {
		s.logger.Info("loan evaluation warning", zap.String("loan_id", loan.ID), zap.String("warning", warning))
	}
	return &dto.LoanStateResponse{Loan: *loan, State: state, Recovery: recovery}, nil
}

// ListStates pages through persisted classifications.
func (s *LoanService) ListStates(ctx context.Context, query dto.LoanStateListQuery) ([]models.LoanStateRecord, *models.Pagination, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	filter := repository.LoanStateFilter{Class: query.Class, Page: query.Page, PageSize: query.PageSize}
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 50
	}
	start := time.Now()
	records, total, err := s.states.ListStates(ctx, filter)
	s.metrics.ObserveDBQuery("loan_state_list", time.Since(start))
	if err != nil {
		return nil, nil, asAppError(err, "failed to list loan states")
	}
	return records, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

func previewCacheKey(terms models.LoanTerms, start time.Time) string {
	return fmt.Sprintf("preview:%s:%s:%d:%s:%s:%s",
		terms.Principal.String(),
		terms.AnnualInterestRate.String(),
		terms.TermMonths,
		terms.RepaymentFrequency,
		terms.InterestMethod,
		start.Format(dto.DateLayout),
	)
}

// asAppError keeps typed errors and wraps everything else as internal.
func asAppError(err error, message string) error {
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}
