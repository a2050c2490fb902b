package engine

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/mfi-loan-engine/internal/models"
)

func arrearsState(days int, principal, interest string) models.LoanState {
	return models.LoanState{
		DisbursedAmount:  dec("100000"),
		ArrearsPrincipal: dec(principal),
		ArrearsInterest:  dec(interest),
		DaysInArrears:    days,
		PerformanceClass: ClassForDays(days),
	}
}

func TestScorePerformingLoan(t *testing.T) {
	metrics := Score(arrearsState(0, "0", "0"))

	assert.True(t, metrics.RiskScore.IsZero())
	assert.Equal(t, models.PriorityLow, metrics.RecoveryPriority)
	assert.True(t, metrics.EstimatedPenalty.IsZero())
}

func TestScoreSubstandardLoan(t *testing.T) {
	metrics := Score(arrearsState(45, "48000", "2000"))

	// 45*0.3 + 50000/100000*50 + 10
	assert.Equal(t, "48.50", metrics.RiskScore.StringFixed(2))
	assert.Equal(t, models.PriorityMedium, metrics.RecoveryPriority)
	assert.Equal(t, "3750.00", metrics.EstimatedPenalty.StringFixed(2))
	assert.Equal(t, "50000.00", metrics.ArrearsAmount.StringFixed(2))
}

func TestScoreClampsAtHundred(t *testing.T) {
	metrics := Score(arrearsState(400, "90000", "10000"))

	assert.Equal(t, "100.00", metrics.RiskScore.StringFixed(2))
	assert.Equal(t, models.PriorityUrgent, metrics.RecoveryPriority)
}

func TestScoreWithoutDisbursedAmount(t *testing.T) {
	state := arrearsState(10, "500", "0")
	state.DisbursedAmount = decimal.Zero

	metrics := Score(state)
	assert.Equal(t, "8.00", metrics.RiskScore.StringFixed(2))
}

func TestRecoveryPriorityFor(t *testing.T) {
	cases := []struct {
		name    string
		days    int
		arrears string
		want    models.RecoveryPriority
	}{
		{"old arrears", 181, "10", models.PriorityUrgent},
		{"large arrears", 5, "1000000.01", models.PriorityUrgent},
		{"doubtful", 91, "10", models.PriorityHigh},
		{"high amount", 0, "500000.01", models.PriorityHigh},
		{"substandard", 31, "10", models.PriorityMedium},
		{"medium amount", 2, "100000.01", models.PriorityMedium},
		{"boundary amount", 30, "100000", models.PriorityLow},
		{"boundary days", 180, "0", models.PriorityHigh},
		{"clean", 0, "0", models.PriorityLow},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, RecoveryPriorityFor(tc.days, dec(tc.arrears)))
		})
	}
}

func TestEstimatedPenalty(t *testing.T) {
	assert.Equal(t, "14.40", EstimatedPenalty(dec("1234.56"), 7).StringFixed(2))
	assert.Equal(t, "500.00", EstimatedPenalty(dec("10000"), 30).StringFixed(2))
	assert.True(t, EstimatedPenalty(dec("10000"), 0).IsZero())
	assert.True(t, EstimatedPenalty(decimal.Zero, 90).IsZero())
}
