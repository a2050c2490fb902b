package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/mfi-loan-engine/internal/models"
	appErrors "github.com/noah-isme/mfi-loan-engine/pkg/errors"
)

const loanStateColumns = `loan_id, as_of, principal_balance, interest_balance, loan_balance, arrears_principal, arrears_interest, days_in_arrears, performance_class, arrears_start_date, risk_score, recovery_priority, estimated_penalty, updated_at`

const upsertLoanStateQuery = `INSERT INTO loan_states (` + loanStateColumns + `)
VALUES (:loan_id, :as_of, :principal_balance, :interest_balance, :loan_balance, :arrears_principal, :arrears_interest, :days_in_arrears, :performance_class, :arrears_start_date, :risk_score, :recovery_priority, :estimated_penalty, :updated_at)
ON CONFLICT (loan_id)
DO UPDATE SET as_of = EXCLUDED.as_of, principal_balance = EXCLUDED.principal_balance, interest_balance = EXCLUDED.interest_balance,
              loan_balance = EXCLUDED.loan_balance, arrears_principal = EXCLUDED.arrears_principal, arrears_interest = EXCLUDED.arrears_interest,
              days_in_arrears = EXCLUDED.days_in_arrears, performance_class = EXCLUDED.performance_class, arrears_start_date = EXCLUDED.arrears_start_date,
              risk_score = EXCLUDED.risk_score, recovery_priority = EXCLUDED.recovery_priority, estimated_penalty = EXCLUDED.estimated_penalty,
              updated_at = EXCLUDED.updated_at`

// LoanStateFilter narrows ListStates.
type LoanStateFilter struct {
	Class    models.PerformanceClass
	Page     int
	PageSize int
}

// LoanStateRepository persists the latest classification of each loan.
type LoanStateRepository struct {
	db *sqlx.DB
}

// NewLoanStateRepository constructs the repository.
func NewLoanStateRepository(db *sqlx.DB) *LoanStateRepository {
	return &LoanStateRepository{db: db}
}

// Get returns the stored state of a loan.
func (r *LoanStateRepository) Get(ctx context.Context, loanID string) (*models.LoanStateRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM loan_states WHERE loan_id = $1`, loanStateColumns)
	var record models.LoanStateRecord
	if err := r.db.GetContext(ctx, &record, query, loanID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "loan state not found")
		}
		return nil, fmt.Errorf("get loan state %s: %w", loanID, err)
	}
	return &record, nil
}

// BulkUpsert writes the records in one transaction, replacing any earlier
// classification of the same loans.
func (r *LoanStateRepository) BulkUpsert(ctx context.Context, records []models.LoanStateRecord) error {
	if len(records) == 0 {
		return nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin loan state tx: %w", err)
	}
	now := time.Now().UTC()
	for i := range records {
		records[i].UpdatedAt = now
		if _, err := tx.NamedExecContext(ctx, upsertLoanStateQuery, records[i]); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("bulk upsert loan state %s: %w", records[i].LoanID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit loan state tx: %w", err)
	}
	return nil
}

// ListStates returns stored states ordered by risk, optionally filtered by class.
func (r *LoanStateRepository) ListStates(ctx context.Context, filter LoanStateFilter) ([]models.LoanStateRecord, int, error) {
	page, size := filter.Page, filter.PageSize
	if page <= 0 {
		page = 1
	}
	if size <= 0 || size > 200 {
		size = 50
	}

	where := ""
	args := []interface{}{}
	if filter.Class != "" {
		where = " WHERE performance_class = $1"
		args = append(args, filter.Class)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM loan_states"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count loan states: %w", err)
	}

	query := fmt.Sprintf(`SELECT %s FROM loan_states%s ORDER BY risk_score DESC, loan_id ASC LIMIT $%d OFFSET $%d`,
		loanStateColumns, where, len(args)+1, len(args)+2)
	args = append(args, size, (page-1)*size)

	var records []models.LoanStateRecord
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list loan states: %w", err)
	}
	return records, total, nil
}
