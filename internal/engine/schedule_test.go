package engine

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/mfi-loan-engine/internal/models"
)

var scheduleStart = time.Date(2024, time.January, 15, 0, 0, 0, 0, time.UTC)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func terms(principal, rate string, months int, freq models.RepaymentFrequency, method models.InterestMethod) models.LoanTerms {
	return models.LoanTerms{
		Principal:          dec(principal),
		AnnualInterestRate: dec(rate),
		TermMonths:         months,
		RepaymentFrequency: freq,
		InterestMethod:     method,
	}
}

func TestInstallmentCount(t *testing.T) {
	cases := []struct {
		freq   models.RepaymentFrequency
		months int
		want   int
	}{
		{models.FrequencyDaily, 12, 360},
		{models.FrequencyWeekly, 12, 48},
		{models.FrequencyBiWeekly, 12, 24},
		{models.FrequencyMonthly, 12, 12},
		{models.FrequencyQuarterly, 12, 4},
		{models.FrequencyQuarterly, 7, 3},
		{models.FrequencyQuarterly, 1, 1},
	}
	for _, tc := range cases {
		got, err := InstallmentCount(tc.freq, tc.months)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got, "%s x %d", tc.freq, tc.months)
	}

	_, err := InstallmentCount("fortnightly", 12)
	assert.ErrorIs(t, err, ErrInvalidTerms)
}

func TestGenerateScheduleRejectsInvalidTerms(t *testing.T) {
	valid := terms("1000", "10", 6, models.FrequencyMonthly, models.InterestFlat)

	cases := map[string]func(*models.LoanTerms){
		"zero principal":     func(lt *models.LoanTerms) { lt.Principal = decimal.Zero },
		"negative principal": func(lt *models.LoanTerms) { lt.Principal = dec("-5") },
		"zero term":          func(lt *models.LoanTerms) { lt.TermMonths = 0 },
		"negative rate":      func(lt *models.LoanTerms) { lt.AnnualInterestRate = dec("-0.5") },
		"rate above 100":     func(lt *models.LoanTerms) { lt.AnnualInterestRate = dec("100.01") },
		"unknown frequency":  func(lt *models.LoanTerms) { lt.RepaymentFrequency = "yearly" },
		"unknown method":     func(lt *models.LoanTerms) { lt.InterestMethod = "compound" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			lt := valid
			mutate(&lt)
			schedule, err := GenerateSchedule(lt, scheduleStart)
			require.Error(t, err)
			assert.Nil(t, schedule)
			assert.True(t, errors.Is(err, ErrInvalidTerms))
			var inputErr *InputError
			require.ErrorAs(t, err, &inputErr)
			assert.NotEmpty(t, inputErr.Field)
		})
	}

	_, err := GenerateSchedule(valid, time.Time{})
	assert.ErrorIs(t, err, ErrInvalidTerms)
}

func TestGenerateScheduleCompletenessAndConservation(t *testing.T) {
	frequencies := []models.RepaymentFrequency{
		models.FrequencyDaily,
		models.FrequencyWeekly,
		models.FrequencyBiWeekly,
		models.FrequencyMonthly,
		models.FrequencyQuarterly,
	}
	methods := []models.InterestMethod{models.InterestFlat, models.InterestReducingBalance}
	inputs := []struct {
		principal string
		rate      string
		months    int
	}{
		{"100000", "12", 12},
		{"2500.50", "18.5", 7},
		{"750", "0", 5},
		{"1234567.89", "36", 24},
	}

	for _, in := range inputs {
		for _, freq := range frequencies {
			for _, method := range methods {
				name := fmt.Sprintf("%s/%s/%d/%s/%s", in.principal, in.rate, in.months, freq, method)
				t.Run(name, func(t *testing.T) {
					lt := terms(in.principal, in.rate, in.months, freq, method)
					schedule, err := GenerateSchedule(lt, scheduleStart)
					require.NoError(t, err)

					want, err := InstallmentCount(freq, in.months)
					require.NoError(t, err)
					require.Len(t, schedule.Entries, want)
					assert.Equal(t, want, schedule.TotalInstallments)

					sum := decimal.Zero
					for i, entry := range schedule.Entries {
						assert.Equal(t, i+1, entry.InstallmentNumber)
						assert.False(t, entry.BalanceAfter.IsNegative())
						assert.True(t, entry.TotalDue.Equal(entry.PrincipalDue.Add(entry.InterestDue)))
						if i > 0 {
							assert.True(t, entry.DueDate.After(schedule.Entries[i-1].DueDate))
						}
						sum = sum.Add(entry.PrincipalDue)
					}

					last := schedule.Entries[len(schedule.Entries)-1]
					assert.True(t, last.BalanceAfter.IsZero(), "final balance %s", last.BalanceAfter)
					assert.Equal(t, last.DueDate, schedule.MaturityDate)

					tolerance := dec("0.01").Mul(decimal.NewFromInt(int64(want)))
					assert.True(t, sum.Sub(lt.Principal).Abs().LessThanOrEqual(tolerance), "principal sum %s", sum)
					assert.True(t, schedule.TotalPrincipal.Equal(sum))
				})
			}
		}
	}
}

func TestGenerateScheduleReducingBalance(t *testing.T) {
	schedule, err := GenerateSchedule(terms("100000", "12", 12, models.FrequencyMonthly, models.InterestReducingBalance), scheduleStart)
	require.NoError(t, err)

	assert.Equal(t, "8884.88", schedule.InstallmentAmount.StringFixed(2))
	first := schedule.Entries[0]
	assert.Equal(t, "1000.00", first.InterestDue.StringFixed(2))
	assert.Equal(t, "7884.88", first.PrincipalDue.StringFixed(2))
	assert.Equal(t, "92115.12", first.BalanceAfter.StringFixed(2))

	for i := 1; i < len(schedule.Entries); i++ {
		prev, cur := schedule.Entries[i-1], schedule.Entries[i]
		assert.True(t, cur.InterestDue.LessThan(prev.InterestDue), "interest must fall at %d", cur.InstallmentNumber)
		assert.True(t, cur.PrincipalDue.GreaterThan(prev.PrincipalDue), "principal must rise at %d", cur.InstallmentNumber)
	}
	for _, entry := range schedule.Entries[:11] {
		assert.Equal(t, "8884.88", entry.TotalDue.StringFixed(2))
	}
	assert.Equal(t, time.Date(2024, time.February, 15, 0, 0, 0, 0, time.UTC), first.DueDate)
	assert.Equal(t, time.Date(2025, time.January, 15, 0, 0, 0, 0, time.UTC), schedule.MaturityDate)
}

func TestGenerateScheduleFlat(t *testing.T) {
	schedule, err := GenerateSchedule(terms("100000", "12", 12, models.FrequencyMonthly, models.InterestFlat), scheduleStart)
	require.NoError(t, err)

	assert.Equal(t, "12000.00", schedule.TotalInterest.StringFixed(2))
	assert.Equal(t, "112000.00", schedule.TotalRepayable.StringFixed(2))
	assert.Equal(t, "9333.33", schedule.InstallmentAmount.StringFixed(2))

	tolerance := dec("0.05")
	for _, entry := range schedule.Entries {
		assert.True(t, entry.PrincipalDue.Sub(dec("8333.33")).Abs().LessThanOrEqual(tolerance), "principal %s", entry.PrincipalDue)
		assert.Equal(t, "1000.00", entry.InterestDue.StringFixed(2))
	}
}

func TestGenerateScheduleZeroRateReducingBalance(t *testing.T) {
	schedule, err := GenerateSchedule(terms("5000", "0", 6, models.FrequencyMonthly, models.InterestReducingBalance), scheduleStart)
	require.NoError(t, err)

	assert.Equal(t, "833.33", schedule.InstallmentAmount.StringFixed(2))
	assert.True(t, schedule.TotalInterest.IsZero())
	assert.Equal(t, "833.35", schedule.Entries[5].PrincipalDue.StringFixed(2))
}

func TestGenerateScheduleQuarterlyReducingSettlesOnLastEntry(t *testing.T) {
	schedule, err := GenerateSchedule(terms("100000", "12", 12, models.FrequencyQuarterly, models.InterestReducingBalance), scheduleStart)
	require.NoError(t, err)

	require.Len(t, schedule.Entries, 4)
	assert.Equal(t, "76108.02", schedule.Entries[3].PrincipalDue.StringFixed(2))
	assert.True(t, schedule.Entries[3].BalanceAfter.IsZero())
	assert.Equal(t, time.Date(2024, time.May, 15, 0, 0, 0, 0, time.UTC), schedule.MaturityDate)
}

func TestAnnuityInstallment(t *testing.T) {
	assert.Equal(t, "8884.88", AnnuityInstallment(dec("100000"), dec("0.01"), 12).StringFixed(2))
	assert.Equal(t, "250.00", AnnuityInstallment(dec("1000"), decimal.Zero, 4).StringFixed(2))
	assert.True(t, AnnuityInstallment(dec("1000"), dec("0.01"), 0).IsZero())
}

func TestGenerateScheduleClampsMonthEnds(t *testing.T) {
	start := time.Date(2024, time.January, 31, 0, 0, 0, 0, time.UTC)
	schedule, err := GenerateSchedule(terms("3000", "12", 4, models.FrequencyMonthly, models.InterestFlat), start)
	require.NoError(t, err)

	want := []time.Time{
		time.Date(2024, time.February, 29, 0, 0, 0, 0, time.UTC),
		time.Date(2024, time.March, 31, 0, 0, 0, 0, time.UTC),
		time.Date(2024, time.April, 30, 0, 0, 0, 0, time.UTC),
		time.Date(2024, time.May, 31, 0, 0, 0, 0, time.UTC),
	}
	require.Len(t, schedule.Entries, len(want))
	for i, entry := range schedule.Entries {
		assert.Equal(t, want[i], entry.DueDate, "installment %d", entry.InstallmentNumber)
	}
	assert.Equal(t, want[3], schedule.MaturityDate)
}
