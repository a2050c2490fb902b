package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/mfi-loan-engine/internal/models"
	"github.com/noah-isme/mfi-loan-engine/internal/repository"
	appErrors "github.com/noah-isme/mfi-loan-engine/pkg/errors"
)

var errDatabaseDown = errors.New("database unavailable")

func stubLoan(id string, disbursed time.Time, months int) models.Loan {
	return models.Loan{
		ID:          id,
		ClientID:    "client-" + id,
		Status:      models.LoanStatusActive,
		DisbursedAt: disbursed,
		LoanTerms: models.LoanTerms{
			Principal:          decimal.NewFromInt(100000),
			AnnualInterestRate: decimal.NewFromInt(12),
			TermMonths:         months,
			RepaymentFrequency: models.FrequencyMonthly,
			InterestMethod:     models.InterestReducingBalance,
		},
	}
}

type loanBookStub struct {
	mu        sync.Mutex
	loans     map[string]models.Loan
	payments  map[string][]models.PaymentEvent
	panicIDs  map[string]bool
	failTimes map[string]int
	listErr   error
	calls     map[string]int
}

func newLoanBookStub(loans ...models.Loan) *loanBookStub {
	stub := &loanBookStub{
		loans:     make(map[string]models.Loan),
		payments:  make(map[string][]models.PaymentEvent),
		panicIDs:  make(map[string]bool),
		failTimes: make(map[string]int),
		calls:     make(map[string]int),
	}
	for _, loan := range loans {
		stub.loans[loan.ID] = loan
	}
	return stub
}

func (s *loanBookStub) ListActiveIDs(ctx context.Context) ([]string, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.loans))
	for id := range s.loans {
		ids = append(ids, id)
	}
	return ids, nil
}

func (s *loanBookStub) FindByID(ctx context.Context, id string) (*models.Loan, error) {
	s.mu.Lock()
	s.calls[id]++
	calls := s.calls[id]
	loan, ok := s.loans[id]
	shouldPanic := s.panicIDs[id]
	failTimes := s.failTimes[id]
	s.mu.Unlock()

	if shouldPanic {
		panic("corrupt loan row " + id)
	}
	if failTimes < 0 || calls <= failTimes {
		return nil, errDatabaseDown
	}
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "loan not found")
	}
	return &loan, nil
}

func (s *loanBookStub) ListPayments(ctx context.Context, loanID string) ([]models.PaymentEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.payments[loanID], nil
}

func (s *loanBookStub) callCount(id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[id]
}

type loanStateStoreStub struct {
	mu        sync.Mutex
	records   map[string]models.LoanStateRecord
	upserts   [][]models.LoanStateRecord
	upsertErr error
}

func newLoanStateStoreStub() *loanStateStoreStub {
	return &loanStateStoreStub{records: make(map[string]models.LoanStateRecord)}
}

func (s *loanStateStoreStub) Get(ctx context.Context, loanID string) (*models.LoanStateRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[loanID]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "loan state not found")
	}
	return &record, nil
}

func (s *loanStateStoreStub) BulkUpsert(ctx context.Context, records []models.LoanStateRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upserts = append(s.upserts, records)
	if s.upsertErr != nil {
		return s.upsertErr
	}
	for _, record := range records {
		s.records[record.LoanID] = record
	}
	return nil
}

func (s *loanStateStoreStub) ListStates(ctx context.Context, filter repository.LoanStateFilter) ([]models.LoanStateRecord, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	result := []models.LoanStateRecord{}
	for _, record := range s.records {
		if filter.Class == "" || record.PerformanceClass == filter.Class {
			result = append(result, record)
		}
	}
	return result, len(result), nil
}

// memoryCacheRepo mimics the Redis repository with JSON round trips.
type memoryCacheRepo struct {
	mu    sync.Mutex
	items map[string][]byte
	sets  int
}

func newMemoryCacheRepo() *memoryCacheRepo {
	return &memoryCacheRepo{items: make(map[string][]byte)}
}

func (m *memoryCacheRepo) Get(ctx context.Context, key string, dest interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, ok := m.items[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memoryCacheRepo) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[key] = raw
	m.sets++
	return nil
}
