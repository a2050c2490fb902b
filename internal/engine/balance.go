package engine

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/mfi-loan-engine/internal/models"
)

// ApplyPayments replays the payment history against the schedule and returns
// the loan's balances as of asOf. Payments dated after asOf are ignored. The
// result carries no arrears data yet; pass it to Classify for that.
func ApplyPayments(schedule *models.Schedule, payments []models.PaymentEvent, asOf time.Time) (*models.LoanState, error) {
	if schedule == nil || len(schedule.Entries) == 0 {
		return nil, invalidClassification("schedule", "has no installments")
	}
	asOfDay := DateOnly(asOf)

	installments := make([]models.InstallmentState, len(schedule.Entries))
	for i, entry := range schedule.Entries {
		installments[i] = models.InstallmentState{
			InstallmentNumber: entry.InstallmentNumber,
			DueDate:           entry.DueDate,
			PrincipalDue:      entry.PrincipalDue,
			InterestDue:       entry.InterestDue,
			PrincipalPaid:     decimal.Zero,
			InterestPaid:      decimal.Zero,
			TotalPaid:         decimal.Zero,
			Status:            models.InstallmentPending,
		}
	}

	ordered := make([]models.PaymentEvent, len(payments))
	copy(ordered, payments)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].PaymentDate.Before(ordered[j].PaymentDate)
	})

	state := &models.LoanState{
		AsOf:            asOfDay,
		DisbursedAmount: schedule.TotalPrincipal,
		TotalPaid:       decimal.Zero,
		CreditBalance:   decimal.Zero,
	}

	for _, payment := range ordered {
		if DateOnly(payment.PaymentDate).After(asOfDay) {
			continue
		}
		if !payment.Amount.IsPositive() {
			state.Warnings = append(state.Warnings, "ignored non-positive payment "+payment.ID)
			continue
		}
		state.TotalPaid = state.TotalPaid.Add(payment.Amount)
		unallocated := allocatePayment(installments, payment, state)
		state.CreditBalance = state.CreditBalance.Add(unallocated)
	}

	summarizeBalances(state, installments, asOfDay)

	if state.CreditBalance.IsPositive() {
		warning := &OverpaymentWarning{
			TotalDue:  schedule.TotalRepayable,
			TotalPaid: state.TotalPaid,
			Excess:    state.CreditBalance,
		}
		state.Overpayment = warning
		state.Warnings = append(state.Warnings, warning.String())
	}
	return state, nil
}

// allocatePayment settles installments oldest first and returns whatever
// could not be placed.
func allocatePayment(installments []models.InstallmentState, payment models.PaymentEvent, state *models.LoanState) decimal.Decimal {
	if !payment.HasSplit() {
		return allocateInterestFirst(installments, payment.Amount)
	}

	interestPortion := decimal.Zero
	if payment.Interest != nil {
		interestPortion = *payment.Interest
	}
	principalPortion := decimal.Zero
	if payment.Principal != nil {
		principalPortion = *payment.Principal
	}
	remainder := payment.Amount.Sub(interestPortion).Sub(principalPortion)
	if remainder.IsNegative() {
		state.Warnings = append(state.Warnings, "payment "+payment.ID+" split exceeds its amount")
		remainder = decimal.Zero
	}

	// Whatever a bucket cannot place joins the remainder and settles the
	// rest of the loan; only a fully settled loan leaves credit behind.
	left := allocateBucket(installments, interestPortion, true)
	left = left.Add(allocateBucket(installments, principalPortion, false))
	return allocateInterestFirst(installments, left.Add(remainder))
}

func allocateInterestFirst(installments []models.InstallmentState, amount decimal.Decimal) decimal.Decimal {
	remaining := amount
	for i := range installments {
		if !remaining.IsPositive() {
			break
		}
		inst := &installments[i]
		remaining = payInterest(inst, remaining)
		remaining = payPrincipal(inst, remaining)
	}
	return remaining
}

func allocateBucket(installments []models.InstallmentState, amount decimal.Decimal, interest bool) decimal.Decimal {
	remaining := amount
	for i := range installments {
		if !remaining.IsPositive() {
			break
		}
		if interest {
			remaining = payInterest(&installments[i], remaining)
		} else {
			remaining = payPrincipal(&installments[i], remaining)
		}
	}
	return remaining
}

func payInterest(inst *models.InstallmentState, amount decimal.Decimal) decimal.Decimal {
	owed := inst.InterestOutstanding()
	if !owed.IsPositive() || !amount.IsPositive() {
		return amount
	}
	applied := minDecimal(owed, amount)
	inst.InterestPaid = inst.InterestPaid.Add(applied)
	inst.TotalPaid = inst.TotalPaid.Add(applied)
	refreshStatus(inst)
	return amount.Sub(applied)
}

func payPrincipal(inst *models.InstallmentState, amount decimal.Decimal) decimal.Decimal {
	owed := inst.PrincipalOutstanding()
	if !owed.IsPositive() || !amount.IsPositive() {
		return amount
	}
	applied := minDecimal(owed, amount)
	inst.PrincipalPaid = inst.PrincipalPaid.Add(applied)
	inst.TotalPaid = inst.TotalPaid.Add(applied)
	refreshStatus(inst)
	return amount.Sub(applied)
}

func refreshStatus(inst *models.InstallmentState) {
	switch {
	case !inst.PrincipalOutstanding().IsPositive() && !inst.InterestOutstanding().IsPositive():
		inst.Status = models.InstallmentPaid
	case inst.TotalPaid.IsPositive():
		inst.Status = models.InstallmentPartial
	default:
		inst.Status = models.InstallmentPending
	}
}

func summarizeBalances(state *models.LoanState, installments []models.InstallmentState, asOfDay time.Time) {
	principal := decimal.Zero
	interest := decimal.Zero
	for i := range installments {
		inst := &installments[i]
		refreshStatus(inst)
		principal = principal.Add(inst.PrincipalOutstanding())
		interest = interest.Add(inst.InterestOutstanding())
		if inst.Status == models.InstallmentPaid {
			continue
		}
		if DateOnly(inst.DueDate).Before(asOfDay) {
			state.OverdueInstallments++
		}
		if state.NextDueDate == nil {
			due := inst.DueDate
			state.NextDueDate = &due
		}
	}
	state.PrincipalBalance = principal
	state.InterestBalance = interest
	state.LoanBalance = principal.Add(interest)
	state.ArrearsPrincipal = decimal.Zero
	state.ArrearsInterest = decimal.Zero
	state.PerformanceClass = models.ClassPerforming
	state.Installments = installments
}
