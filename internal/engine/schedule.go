// Package engine holds the loan amortization and performance classification
// rules. Every function is pure: inputs are plain values, nothing touches a
// database, clock or network.
package engine

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/mfi-loan-engine/internal/models"
)

const (
	daysPerMonth  = 30
	weeksPerMonth = 4
	// annuityPrecision bounds the digits kept while compounding (1+r)^n.
	annuityPrecision = 18
)

// InstallmentCount derives the number of installments from the repayment
// frequency. Months are approximated as 30 days and 4 weeks.
func InstallmentCount(frequency models.RepaymentFrequency, termMonths int) (int, error) {
	if termMonths < 1 {
		return 0, invalidTerms("termMonths", "must be at least 1")
	}
	switch frequency {
	case models.FrequencyDaily:
		return termMonths * daysPerMonth, nil
	case models.FrequencyWeekly:
		return termMonths * weeksPerMonth, nil
	case models.FrequencyBiWeekly:
		return termMonths * 2, nil
	case models.FrequencyMonthly:
		return termMonths, nil
	case models.FrequencyQuarterly:
		return (termMonths + 2) / 3, nil
	default:
		return 0, invalidTerms("repaymentFrequency", "is not supported")
	}
}

// ValidateTerms checks loan terms without generating a schedule.
func ValidateTerms(terms models.LoanTerms) error {
	if !terms.Principal.IsPositive() {
		return invalidTerms("principal", "must be greater than zero")
	}
	if terms.TermMonths < 1 {
		return invalidTerms("termMonths", "must be at least 1")
	}
	if terms.AnnualInterestRate.IsNegative() {
		return invalidTerms("annualInterestRate", "must not be negative")
	}
	if terms.AnnualInterestRate.GreaterThan(hundred) {
		return invalidTerms("annualInterestRate", "must not exceed 100")
	}
	if !terms.RepaymentFrequency.Valid() {
		return invalidTerms("repaymentFrequency", "is not supported")
	}
	if !terms.InterestMethod.Valid() {
		return invalidTerms("interestMethod", "is not supported")
	}
	return nil
}

// MonthlyRate converts an annual percentage rate into the periodic rate used
// for every frequency.
func MonthlyRate(annualRate decimal.Decimal) decimal.Decimal {
	return annualRate.Div(hundred).Div(twelve)
}

// AnnuityInstallment returns the level payment amortizing principal over n
// periods at the periodic rate r, rounded to cents.
func AnnuityInstallment(principal, rate decimal.Decimal, periods int) decimal.Decimal {
	if periods < 1 {
		return decimal.Zero
	}
	n := decimal.NewFromInt(int64(periods))
	if rate.IsZero() {
		return roundMoney(principal.Div(n))
	}
	growth := decimal.NewFromInt(1)
	onePlusRate := growth.Add(rate)
	for i := 0; i < periods; i++ {
		growth = growth.Mul(onePlusRate).Round(annuityPrecision)
	}
	return roundMoney(principal.Mul(rate).Mul(growth).Div(growth.Sub(decimal.NewFromInt(1))))
}

// GenerateSchedule builds the installment schedule for the given terms. Due
// dates step one calendar month per installment from startDate, clamped to
// the last day of shorter months.
func GenerateSchedule(terms models.LoanTerms, startDate time.Time) (*models.Schedule, error) {
	if err := ValidateTerms(terms); err != nil {
		return nil, err
	}
	if startDate.IsZero() {
		return nil, invalidTerms("startDate", "is required")
	}
	count, err := InstallmentCount(terms.RepaymentFrequency, terms.TermMonths)
	if err != nil {
		return nil, err
	}

	var (
		entries     []models.ScheduleEntry
		installment decimal.Decimal
	)
	switch terms.InterestMethod {
	case models.InterestReducingBalance:
		entries, installment = reducingBalanceEntries(terms, startDate, count)
	default:
		entries, installment = flatEntries(terms, startDate, count)
	}

	schedule := &models.Schedule{
		Terms:             terms,
		StartDate:         startDate,
		Entries:           entries,
		TotalInstallments: len(entries),
		InstallmentAmount: installment,
		MaturityDate:      entries[len(entries)-1].DueDate,
		TotalPrincipal:    decimal.Zero,
		TotalInterest:     decimal.Zero,
	}
	for _, entry := range entries {
		schedule.TotalPrincipal = schedule.TotalPrincipal.Add(entry.PrincipalDue)
		schedule.TotalInterest = schedule.TotalInterest.Add(entry.InterestDue)
	}
	schedule.TotalRepayable = schedule.TotalPrincipal.Add(schedule.TotalInterest)
	return schedule, nil
}

// reducingBalanceEntries amortizes with the annuity formula over TermMonths
// periods. The last entry settles whatever principal is left after rounding.
func reducingBalanceEntries(terms models.LoanTerms, start time.Time, count int) ([]models.ScheduleEntry, decimal.Decimal) {
	rate := MonthlyRate(terms.AnnualInterestRate)
	installment := AnnuityInstallment(terms.Principal, rate, terms.TermMonths)
	balance := roundMoney(terms.Principal)

	entries := make([]models.ScheduleEntry, 0, count)
	for i := 1; i <= count; i++ {
		interest := roundMoney(balance.Mul(rate))
		var principal decimal.Decimal
		if i == count {
			principal = balance
		} else {
			principal = roundMoney(installment.Sub(interest))
			if principal.IsNegative() {
				principal = decimal.Zero
			}
			principal = minDecimal(principal, balance)
		}
		balance = balance.Sub(principal)
		entries = append(entries, newEntry(i, start, principal, interest, balance))
	}
	return entries, installment
}

// flatEntries spreads principal and the up-front interest charge evenly
// over TermMonths periods. The last entry settles both residuals.
func flatEntries(terms models.LoanTerms, start time.Time, count int) ([]models.ScheduleEntry, decimal.Decimal) {
	months := decimal.NewFromInt(int64(terms.TermMonths))
	totalInterest := roundMoney(terms.Principal.Mul(terms.AnnualInterestRate.Div(hundred)).Mul(months).Div(twelve))
	principalShare := roundMoney(terms.Principal.Div(months))
	interestShare := roundMoney(totalInterest.Div(months))
	installment := roundMoney(terms.Principal.Add(totalInterest).Div(months))

	balance := roundMoney(terms.Principal)
	interestLeft := totalInterest

	entries := make([]models.ScheduleEntry, 0, count)
	for i := 1; i <= count; i++ {
		var principal, interest decimal.Decimal
		if i == count {
			principal, interest = balance, interestLeft
		} else {
			principal = minDecimal(principalShare, balance)
			interest = minDecimal(interestShare, interestLeft)
		}
		balance = balance.Sub(principal)
		interestLeft = interestLeft.Sub(interest)
		entries = append(entries, newEntry(i, start, principal, interest, balance))
	}
	return entries, installment
}

func newEntry(number int, start time.Time, principal, interest, balance decimal.Decimal) models.ScheduleEntry {
	if balance.IsNegative() {
		balance = decimal.Zero
	}
	return models.ScheduleEntry{
		InstallmentNumber: number,
		DueDate:           addMonths(start, number),
		PrincipalDue:      principal,
		InterestDue:       interest,
		TotalDue:          roundMoney(principal.Add(interest)),
		BalanceAfter:      balance,
	}
}

// addMonths moves t forward by n calendar months, keeping its day of month
// where the target month has it and using the month's last day otherwise.
func addMonths(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m+time.Month(n), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	if last := first.AddDate(0, 1, -1).Day(); d > last {
		d = last
	}
	return first.AddDate(0, 0, d-1)
}
