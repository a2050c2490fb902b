package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/mfi-loan-engine/internal/models"
	appErrors "github.com/noah-isme/mfi-loan-engine/pkg/errors"
)

const loanColumns = `id, client_id, status, disbursed_at, principal, annual_interest_rate, term_months, repayment_frequency, interest_method, created_at, updated_at`

// LoanRepository reads loans and their payment history. The loan book is
// owned by the origination system, so this repository never writes.
type LoanRepository struct {
	db *sqlx.DB
}

// NewLoanRepository constructs the repository.
func NewLoanRepository(db *sqlx.DB) *LoanRepository {
	return &LoanRepository{db: db}
}

// ListActiveIDs returns the IDs of loans eligible for classification.
func (r *LoanRepository) ListActiveIDs(ctx context.Context) ([]string, error) {
	const query = `SELECT id FROM loans WHERE status IN ('disbursed', 'active') AND disbursed_at IS NOT NULL ORDER BY id ASC`
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query); err != nil {
		return nil, fmt.Errorf("list active loans: %w", err)
	}
	return ids, nil
}

// FindByID loads a single loan.
func (r *LoanRepository) FindByID(ctx context.Context, id string) (*models.Loan, error) {
	query := fmt.Sprintf(`SELECT %s FROM loans WHERE id = $1`, loanColumns)
	var loan models.Loan
	if err := r.db.GetContext(ctx, &loan, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "loan not found")
		}
		return nil, fmt.Errorf("get loan %s: %w", id, err)
	}
	return &loan, nil
}

// ListPayments returns the payment events of a loan ordered by payment date.
func (r *LoanRepository) ListPayments(ctx context.Context, loanID string) ([]models.PaymentEvent, error) {
	const query = `SELECT id, loan_id, payment_date, amount, principal_amount, interest_amount
FROM loan_payments WHERE loan_id = $1 ORDER BY payment_date ASC, id ASC`
	var payments []models.PaymentEvent
	if err := r.db.SelectContext(ctx, &payments, query, loanID); err != nil {
		return nil, fmt.Errorf("list payments for loan %s: %w", loanID, err)
	}
	return payments, nil
}
