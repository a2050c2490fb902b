package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/mfi-loan-engine/internal/engine"
	"github.com/noah-isme/mfi-loan-engine/internal/models"
	appErrors "github.com/noah-isme/mfi-loan-engine/pkg/errors"
	"github.com/noah-isme/mfi-loan-engine/pkg/jobs"
)

const lastReportCacheKey = "reclassification:last"

type loanBook interface {
	ListActiveIDs(ctx context.Context) ([]string, error)
	FindByID(ctx context.Context, id string) (*models.Loan, error)
	ListPayments(ctx context.Context, loanID string) ([]models.PaymentEvent, error)
}

type loanStateStore interface {
	Get(ctx context.Context, loanID string) (*models.LoanStateRecord, error)
	BulkUpsert(ctx context.Context, records []models.LoanStateRecord) error
}

// ReclassifierConfig tunes the batch run.
type ReclassifierConfig struct {
	Workers    int
	MaxRetries int
	RetryDelay time.Duration
	Timeout    time.Duration
	Interval   time.Duration
}

// ReclassifierService re-runs the classifier over every active loan, persists
// the classifications that changed and keeps the report of the last run.
type ReclassifierService struct {
	loans   loanBook
	states  loanStateStore
	cache   *CacheService
	metrics *MetricsService
	logger  *zap.Logger
	cfg     ReclassifierConfig
	now     func() time.Time

	running atomic.Bool
	mu      sync.RWMutex
	last    *models.ReclassificationReport
}

// NewReclassifierService constructs the batch reclassifier.
func NewReclassifierService(loans loanBook, states loanStateStore, cache *CacheService, metrics *MetricsService, logger *zap.Logger, cfg ReclassifierConfig) *ReclassifierService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 2 * time.Second
	}
	return &ReclassifierService{
		loans:   loans,
		states:  states,
		cache:   cache,
		metrics: metrics,
		logger:  logger,
		cfg:     cfg,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Run reclassifies the portfolio as of asOf. Loans that fail are listed in
// the report and never stop the rest of the batch. When the timeout expires
// the report is marked incomplete; unprocessed loans wait for the next run.
func (s *ReclassifierService) Run(ctx context.Context, asOf time.Time) (*models.ReclassificationReport, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, appErrors.ErrBatchRunning
	}
	defer s.running.Store(false)

	runCtx := ctx
	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	report := &models.ReclassificationReport{
		RunID:     uuid.NewString(),
		AsOf:      engine.DateOnly(asOf),
		StartedAt: s.now(),
	}
	logger := s.logger.With(zap.String("run_id", report.RunID), zap.Time("as_of", report.AsOf))

	queryStart := time.Now()
	ids, err := s.loans.ListActiveIDs(runCtx)
	s.metrics.ObserveDBQuery("loan_active_ids", time.Since(queryStart))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list active loans")
	}
	report.Total = len(ids)
	logger.Info("reclassification started", zap.Int("loans", len(ids)))

	batch := newBatchRun(ids)
	queue := jobs.NewQueue("reclassifier", s.handler(report.AsOf, batch), jobs.QueueConfig{
		Workers:    s.cfg.Workers,
		MaxRetries: s.cfg.MaxRetries,
		RetryDelay: s.cfg.RetryDelay,
		Logger:     logger,
		OnExhausted: func(job jobs.Job, err error) {
			batch.fail(job.ID, err)
		},
	})
	queue.Start(runCtx)

	for _, id := range ids {
		if err := queue.Enqueue(jobs.Job{ID: id, Type: "reclassify"}); err != nil {
			logger.Warn("stopped enqueueing loans", zap.Error(err))
			break
		}
	}

	select {
	case <-batch.done:
	case <-runCtx.Done():
		report.Incomplete = true
	}
	queue.Stop()

	deltas, failures := batch.results()
	report.Deltas = deltas
	report.Failures = failures
	report.Processed = len(deltas)
	report.Failed = len(failures)
	if report.Processed+report.Failed < report.Total {
		report.Incomplete = true
	}

	states := make([]models.LoanState, 0, len(deltas))
	changed := make([]models.LoanStateRecord, 0)
	for _, delta := range deltas {
		states = append(states, delta.State)
		if delta.Changed {
			changed = append(changed, delta.Record())
		}
	}
	report.Changed = len(changed)
	report.Summary = engine.SummarizePortfolio(states)

	var persistErr error
	queryStart = time.Now()
	err = s.states.BulkUpsert(ctx, changed)
	s.metrics.ObserveDBQuery("loan_state_bulk_upsert", time.Since(queryStart))
	if err != nil {
		persistErr = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist loan states")
	}
	report.FinishedAt = s.now()

	s.remember(ctx, report)
	s.metrics.ObserveReclassification(report)
	for _, failure := range failures {
		logger.Warn("loan reclassification failed", zap.String("loan_id", failure.LoanID), zap.String("error", failure.Error))
	}
	logger.Info("reclassification finished",
		zap.Int("processed", report.Processed),
		zap.Int("changed", report.Changed),
		zap.Int("failed", report.Failed),
		zap.Bool("incomplete", report.Incomplete),
		zap.String("par", report.Summary.PortfolioAtRisk.String()),
	)

	if persistErr != nil {
		return report, persistErr
	}
	return report, nil
}

// LastReport returns the most recent run report, falling back to the cache
// after a restart.
func (s *ReclassifierService) LastReport(ctx context.Context) (*models.ReclassificationReport, error) {
	s.mu.RLock()
	last := s.last
	s.mu.RUnlock()
	if last != nil {
		return last, nil
	}

	var cached models.ReclassificationReport
	found, err := s.cache.Fetch(ctx, lastReportCacheKey, &cached)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load last reclassification")
	}
	if !found {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "no reclassification has run yet")
	}
	return &cached, nil
}

// Running reports whether a batch is in progress.
func (s *ReclassifierService) Running() bool {
	return s.running.Load()
}

// Start runs the batch on every interval tick until ctx is cancelled.
func (s *ReclassifierService) Start(ctx context.Context) {
	if s.cfg.Interval <= 0 {
		return
	}
	ticker := time.NewTicker(s.cfg.Interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := s.Run(ctx, s.now()); err != nil && !errors.Is(err, appErrors.ErrBatchRunning) {
					s.logger.Error("scheduled reclassification failed", zap.Error(err))
				}
			}
		}
	}()
}

func (s *ReclassifierService) remember(ctx context.Context, report *models.ReclassificationReport) {
	s.mu.Lock()
	s.last = report
	s.mu.Unlock()

	// Deltas can be large; the cached copy keeps the summary only.
	slim := *report
	slim.Deltas = nil
	_ = s.cache.Put(ctx, lastReportCacheKey, slim)
}

// handler evaluates one loan. Storage errors are returned so the queue
// retries them; engine errors are final.
func (s *ReclassifierService) handler(asOf time.Time, batch *batchRun) jobs.Handler {
	return func(ctx context.Context, job jobs.Job) error {
		start := time.Now()
		loan, err := s.loans.FindByID(ctx, job.ID)
		s.metrics.ObserveDBQuery("loan_find", time.Since(start))
		if err != nil {
			if isNotFound(err) {
				batch.fail(job.ID, err)
				return nil
			}
			return err
		}
		start = time.Now()
		payments, err := s.loans.ListPayments(ctx, job.ID)
		s.metrics.ObserveDBQuery("loan_payments", time.Since(start))
		if err != nil {
			return err
		}
		start = time.Now()
		previous, err := s.states.Get(ctx, job.ID)
		s.metrics.ObserveDBQuery("loan_state_get", time.Since(start))
		if err != nil {
			if !isNotFound(err) {
				return err
			}
			previous = nil
		}

		var previousStart *time.Time
		if previous != nil {
			previousStart = previous.ArrearsStartDate
		}
		schedule, err := engine.GenerateSchedule(loan.LoanTerms, loan.DisbursedAt)
		if err != nil {
			batch.fail(job.ID, err)
			return nil
		}
		state, recovery, err := engine.Evaluate(schedule, payments, asOf, previousStart)
		if err != nil {
			batch.fail(job.ID, err)
			return nil
		}
		state.LoanID = loan.ID

		delta := models.ReclassificationDelta{
			LoanID:   loan.ID,
			Previous: previous,
			State:    *state,
			Recovery: recovery,
		}
		delta.Changed = previous == nil || !previous.SameClassification(delta.Record())
		batch.succeed(delta)
		return nil
	}
}

// batchRun collects the terminal outcome of every loan in a run. Each loan
// settles exactly once; done closes when all have settled.
type batchRun struct {
	mu        sync.Mutex
	pending   map[string]struct{}
	deltas    []models.ReclassificationDelta
	failures  []models.LoanFailure
	done      chan struct{}
	closeOnce sync.Once
}

func newBatchRun(ids []string) *batchRun {
	b := &batchRun{
		pending: make(map[string]struct{}, len(ids)),
		done:    make(chan struct{}),
	}
	for _, id := range ids {
		b.pending[id] = struct{}{}
	}
	if len(b.pending) == 0 {
		b.closeOnce.Do(func() { close(b.done) })
	}
	return b
}

func (b *batchRun) succeed(delta models.ReclassificationDelta) {
	b.settle(delta.LoanID, func() { b.deltas = append(b.deltas, delta) })
}

func (b *batchRun) fail(loanID string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	b.settle(loanID, func() { b.failures = append(b.failures, models.LoanFailure{LoanID: loanID, Error: msg}) })
}

func (b *batchRun) settle(loanID string, record func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.pending[loanID]; !ok {
		return
	}
	delete(b.pending, loanID)
	record()
	if len(b.pending) == 0 {
		b.closeOnce.Do(func() { close(b.done) })
	}
}

// results returns settled outcomes ordered by loan ID.
func (b *batchRun) results() ([]models.ReclassificationDelta, []models.LoanFailure) {
	b.mu.Lock()
	defer b.mu.Unlock()
	deltas := make([]models.ReclassificationDelta, len(b.deltas))
	copy(deltas, b.deltas)
	failures := make([]models.LoanFailure, len(b.failures))
	copy(failures, b.failures)
	sort.Slice(deltas, func(i, j int) bool { return deltas[i].LoanID < deltas[j].LoanID })
	sort.Slice(failures, func(i, j int) bool { return failures[i].LoanID < failures[j].LoanID })
	return deltas, failures
}

func isNotFound(err error) bool {
	var appErr *appErrors.Error
	return errors.As(err, &appErr) && appErr.Code == appErrors.ErrNotFound.Code
}

// mapEngineError converts engine input errors into API errors.
func mapEngineError(err error) error {
	var inputErr *engine.InputError
	switch {
	case errors.As(err, &inputErr) && errors.Is(err, engine.ErrInvalidTerms):
		return appErrors.Wrap(err, appErrors.ErrInvalidTerms.Code, appErrors.ErrInvalidTerms.Status, fmt.Sprintf("%s %s", inputErr.Field, inputErr.Reason))
	case errors.As(err, &inputErr) && errors.Is(err, engine.ErrClassificationInput):
		return appErrors.Wrap(err, appErrors.ErrClassificationInput.Code, appErrors.ErrClassificationInput.Status, fmt.Sprintf("%s %s", inputErr.Field, inputErr.Reason))
	default:
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to evaluate loan")
	}
}
