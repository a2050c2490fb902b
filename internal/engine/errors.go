package engine

import (
	"errors"
	"fmt"

	"github.com/noah-isme/mfi-loan-engine/internal/models"
)

var (
	// ErrInvalidTerms is returned when loan terms cannot produce a schedule.
	ErrInvalidTerms = errors.New("invalid loan terms")
	// ErrClassificationInput is returned when a loan lacks the schedule data needed to classify it.
	ErrClassificationInput = errors.New("invalid classification input")
)

// InputError reports which input field was rejected. It unwraps to one of
// ErrInvalidTerms or ErrClassificationInput.
type InputError struct {
	Kind   error
	Field  string
	Reason string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("%v: %s %s", e.Kind, e.Field, e.Reason)
}

func (e *InputError) Unwrap() error {
	return e.Kind
}

func invalidTerms(field, reason string) error {
	return &InputError{Kind: ErrInvalidTerms, Field: field, Reason: reason}
}

func invalidClassification(field, reason string) error {
	return &InputError{Kind: ErrClassificationInput, Field: field, Reason: reason}
}

// OverpaymentWarning is raised when cumulative payments exceed the total
// amount due. It is informational; the surplus is kept as a credit and the
// warning is attached to LoanState.Overpayment.
type OverpaymentWarning = models.Overpayment
