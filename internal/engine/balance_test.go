package engine

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/mfi-loan-engine/internal/models"
)

func reducingSchedule(t *testing.T) *models.Schedule {
	t.Helper()
	schedule, err := GenerateSchedule(terms("100000", "12", 12, models.FrequencyMonthly, models.InterestReducingBalance), scheduleStart)
	require.NoError(t, err)
	return schedule
}

func payment(id string, date time.Time, amount string) models.PaymentEvent {
	return models.PaymentEvent{ID: id, PaymentDate: date, Amount: dec(amount)}
}

func day(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 0, 0, 0, 0, time.UTC)
}

func TestApplyPaymentsWithoutPayments(t *testing.T) {
	schedule := reducingSchedule(t)

	state, err := ApplyPayments(schedule, nil, day(2024, time.May, 1))
	require.NoError(t, err)

	assert.True(t, state.PrincipalBalance.Equal(dec("100000")))
	assert.True(t, state.InterestBalance.Equal(schedule.TotalInterest))
	assert.True(t, state.LoanBalance.Equal(schedule.TotalRepayable))
	assert.True(t, state.DisbursedAmount.Equal(dec("100000")))
	assert.Equal(t, 3, state.OverdueInstallments)
	require.NotNil(t, state.NextDueDate)
	assert.Equal(t, schedule.Entries[0].DueDate, *state.NextDueDate)
	assert.Equal(t, models.ClassPerforming, state.PerformanceClass)
	assert.Len(t, state.Installments, 12)
	for _, inst := range state.Installments {
		assert.Equal(t, models.InstallmentPending, inst.Status)
	}
}

func TestApplyPaymentsSmallPaymentReducesInterestOnly(t *testing.T) {
	schedule := reducingSchedule(t)

	state, err := ApplyPayments(schedule, []models.PaymentEvent{payment("p1", day(2024, time.February, 10), "500")}, day(2024, time.February, 20))
	require.NoError(t, err)

	assert.True(t, state.PrincipalBalance.Equal(dec("100000")))
	assert.True(t, state.InterestBalance.Equal(schedule.TotalInterest.Sub(dec("500"))))
	first := state.Installments[0]
	assert.True(t, first.PrincipalPaid.IsZero())
	assert.True(t, first.InterestPaid.Equal(dec("500")))
	assert.True(t, first.PrincipalDue.Equal(schedule.Entries[0].PrincipalDue))
	assert.Equal(t, models.InstallmentPartial, first.Status)
}

func TestApplyPaymentsSettlesOldestInstallmentFirst(t *testing.T) {
	schedule := reducingSchedule(t)

	payments := []models.PaymentEvent{
		payment("p1", day(2024, time.February, 15), "8884.88"),
		payment("p2", day(2024, time.March, 15), "1000"),
	}
	state, err := ApplyPayments(schedule, payments, day(2024, time.March, 20))
	require.NoError(t, err)

	assert.Equal(t, models.InstallmentPaid, state.Installments[0].Status)
	second := state.Installments[1]
	assert.Equal(t, models.InstallmentPartial, second.Status)
	assert.True(t, second.InterestPaid.Equal(dec("921.15")))
	assert.True(t, second.PrincipalPaid.Equal(dec("78.85")))
	assert.Equal(t, models.InstallmentPending, state.Installments[2].Status)
	assert.True(t, state.PrincipalBalance.Equal(dec("100000").Sub(dec("7884.88")).Sub(dec("78.85"))))
	assert.True(t, state.TotalPaid.Equal(dec("9884.88")))
	assert.Equal(t, 1, state.OverdueInstallments)
	require.NotNil(t, state.NextDueDate)
	assert.Equal(t, schedule.Entries[1].DueDate, *state.NextDueDate)
}

func TestApplyPaymentsOrdersByPaymentDate(t *testing.T) {
	schedule := reducingSchedule(t)
	asOf := day(2024, time.June, 1)

	inOrder := []models.PaymentEvent{
		payment("a", day(2024, time.February, 1), "300"),
		payment("b", day(2024, time.March, 1), "9000"),
		payment("c", day(2024, time.April, 1), "50"),
	}
	reversed := []models.PaymentEvent{inOrder[2], inOrder[1], inOrder[0]}

	first, err := ApplyPayments(schedule, inOrder, asOf)
	require.NoError(t, err)
	second, err := ApplyPayments(schedule, reversed, asOf)
	require.NoError(t, err)
	firstJSON, err := json.Marshal(first)
	require.NoError(t, err)
	secondJSON, err := json.Marshal(second)
	require.NoError(t, err)
	assert.JSONEq(t, string(firstJSON), string(secondJSON))
	assert.Equal(t, "c", reversed[0].ID, "input slice must not be reordered")
}

func TestApplyPaymentsExplicitSplit(t *testing.T) {
	schedule := reducingSchedule(t)
	principal := dec("1000")
	zero := decimal.Zero

	state, err := ApplyPayments(schedule, []models.PaymentEvent{{
		ID:          "split",
		PaymentDate: day(2024, time.February, 1),
		Amount:      dec("1000"),
		Principal:   &principal,
		Interest:    &zero,
	}}, day(2024, time.February, 2))
	require.NoError(t, err)

	assert.True(t, state.PrincipalBalance.Equal(dec("99000")))
	assert.True(t, state.InterestBalance.Equal(schedule.TotalInterest))
	assert.True(t, state.Installments[0].PrincipalPaid.Equal(dec("1000")))
	assert.True(t, state.Installments[0].InterestPaid.IsZero())
}

func TestApplyPaymentsSplitExceedingAmountIsFlagged(t *testing.T) {
	schedule := reducingSchedule(t)
	principal := dec("600")
	interest := dec("600")

	state, err := ApplyPayments(schedule, []models.PaymentEvent{{
		ID:          "bad-split",
		PaymentDate: day(2024, time.February, 1),
		Amount:      dec("1000"),
		Principal:   &principal,
		Interest:    &interest,
	}}, day(2024, time.February, 2))
	require.NoError(t, err)
	require.NotEmpty(t, state.Warnings)
	assert.Contains(t, state.Warnings[0], "bad-split")
}

func TestApplyPaymentsOverpaymentKeepsCredit(t *testing.T) {
	schedule := reducingSchedule(t)
	total := schedule.TotalRepayable.Add(dec("100"))

	state, err := ApplyPayments(schedule, []models.PaymentEvent{{
		ID:          "payoff",
		PaymentDate: day(2024, time.March, 1),
		Amount:      total,
	}}, day(2024, time.March, 2))
	require.NoError(t, err)

	assert.True(t, state.LoanBalance.IsZero())
	assert.True(t, state.CreditBalance.Equal(dec("100")))
	require.Len(t, state.Warnings, 1)
	assert.Contains(t, state.Warnings[0], "overpayment")
	assert.Nil(t, state.NextDueDate)
	for _, inst := range state.Installments {
		assert.Equal(t, models.InstallmentPaid, inst.Status)
	}
}

func TestApplyPaymentsIgnoresFutureAndNonPositivePayments(t *testing.T) {
	schedule := reducingSchedule(t)

	state, err := ApplyPayments(schedule, []models.PaymentEvent{
		payment("future", day(2024, time.April, 1), "5000"),
		payment("zero", day(2024, time.February, 1), "0"),
	}, day(2024, time.March, 1))
	require.NoError(t, err)

	assert.True(t, state.TotalPaid.IsZero())
	assert.True(t, state.LoanBalance.Equal(schedule.TotalRepayable))
	require.Len(t, state.Warnings, 1)
	assert.Contains(t, state.Warnings[0], "zero")
}

func TestApplyPaymentsRequiresSchedule(t *testing.T) {
	_, err := ApplyPayments(nil, nil, day(2024, time.March, 1))
	assert.ErrorIs(t, err, ErrClassificationInput)

	_, err = ApplyPayments(&models.Schedule{}, nil, day(2024, time.March, 1))
	assert.ErrorIs(t, err, ErrClassificationInput)
}

func TestApplyPaymentsSplitSurplusSettlesPrincipal(t *testing.T) {
	schedule, err := GenerateSchedule(terms("1200", "12", 12, models.FrequencyMonthly, models.InterestFlat), scheduleStart)
	require.NoError(t, err)
	require.Equal(t, "144.00", schedule.TotalInterest.StringFixed(2))
	interest := dec("200")

	state, err := ApplyPayments(schedule, []models.PaymentEvent{{
		ID:          "interest-heavy",
		PaymentDate: day(2024, time.February, 1),
		Amount:      dec("200"),
		Interest:    &interest,
	}}, day(2024, time.February, 2))
	require.NoError(t, err)

	assert.Empty(t, state.Warnings)
	assert.Nil(t, state.Overpayment)
	assert.True(t, state.CreditBalance.IsZero())
	assert.True(t, state.InterestBalance.IsZero())
	assert.Equal(t, "1144.00", state.PrincipalBalance.StringFixed(2))
	assert.Equal(t, "56.00", state.Installments[0].PrincipalPaid.StringFixed(2))
}

func TestApplyPaymentsOverpaymentIsTyped(t *testing.T) {
	schedule := reducingSchedule(t)

	state, err := ApplyPayments(schedule, []models.PaymentEvent{
		payment("payoff", day(2024, time.March, 1), schedule.TotalRepayable.Add(dec("25")).String()),
	}, day(2024, time.March, 2))
	require.NoError(t, err)
	require.NotNil(t, state.Overpayment)

	var warning *OverpaymentWarning
	require.True(t, errors.As(state.Overpayment, &warning))
	assert.True(t, warning.Excess.Equal(dec("25")))
	assert.True(t, warning.TotalDue.Equal(schedule.TotalRepayable))

	classified, err := Classify(schedule, state, day(2024, time.March, 2))
	require.NoError(t, err)
	require.NotNil(t, classified.Overpayment)
	assert.NotSame(t, state.Overpayment, classified.Overpayment)
}
