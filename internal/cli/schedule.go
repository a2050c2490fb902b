package cli

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/noah-isme/mfi-loan-engine/internal/dto"
	"github.com/noah-isme/mfi-loan-engine/internal/engine"
	"github.com/noah-isme/mfi-loan-engine/internal/models"
)

func init() {
	rootCmd.AddCommand(scheduleCmd)

	scheduleCmd.Flags().String("principal", "", "Principal amount")
	scheduleCmd.Flags().String("rate", "0", "Annual interest rate in percent")
	scheduleCmd.Flags().Int("months", 12, "Term in months")
	scheduleCmd.Flags().String("frequency", string(models.FrequencyMonthly), "daily, weekly, bi_weekly, monthly or quarterly")
	scheduleCmd.Flags().String("method", string(models.InterestReducingBalance), "flat or reducing_balance")
	scheduleCmd.Flags().String("start", "", "Disbursement date (YYYY-MM-DD), default today")
	scheduleCmd.Flags().Bool("json", false, "Print the schedule as JSON")
	_ = scheduleCmd.MarkFlagRequired("principal")
}

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Print the amortization schedule for loan terms",
	Example: `  loanctl schedule --principal 100000 --rate 12 --months 12
  loanctl schedule --principal 5000 --rate 24 --months 6 --method flat --frequency weekly --json`,
	Args: cobra.NoArgs,
	RunE: runSchedule,
}

func runSchedule(cmd *cobra.Command, args []string) error {
	principalRaw, _ := cmd.Flags().GetString("principal")
	rateRaw, _ := cmd.Flags().GetString("rate")
	months, _ := cmd.Flags().GetInt("months")
	frequency, _ := cmd.Flags().GetString("frequency")
	method, _ := cmd.Flags().GetString("method")
	startRaw, _ := cmd.Flags().GetString("start")
	asJSON, _ := cmd.Flags().GetBool("json")

	principal, err := decimal.NewFromString(principalRaw)
	if err != nil {
		return fmt.Errorf("--principal: %w", err)
	}
	rate, err := decimal.NewFromString(rateRaw)
	if err != nil {
		return fmt.Errorf("--rate: %w", err)
	}
	start, err := parseDate("start", startRaw)
	if err != nil {
		return err
	}

	schedule, err := engine.GenerateSchedule(models.LoanTerms{
		Principal:          principal,
		AnnualInterestRate: rate,
		TermMonths:         months,
		RepaymentFrequency: models.RepaymentFrequency(frequency),
		InterestMethod:     models.InterestMethod(method),
	}, start)
	if err != nil {
		return err
	}

	if asJSON {
		enc := json.NewEncoder(out(cmd))
		enc.SetIndent("", "  ")
		return enc.Encode(schedule)
	}
	return printSchedule(cmd, schedule)
}

func printSchedule(cmd *cobra.Command, schedule *models.Schedule) error {
	w := tabwriter.NewWriter(out(cmd), 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, "#\tDue date\tPrincipal\tInterest\tTotal\tBalance\t")
	for _, entry := range schedule.Entries {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t\n",
			entry.InstallmentNumber,
			entry.DueDate.Format(dto.DateLayout),
			entry.PrincipalDue.StringFixed(2),
			entry.InterestDue.StringFixed(2),
			entry.TotalDue.StringFixed(2),
			entry.BalanceAfter.StringFixed(2),
		)
	}
	fmt.Fprintf(w, "\tTotal\t%s\t%s\t%s\t\t\n",
		schedule.TotalPrincipal.StringFixed(2),
		schedule.TotalInterest.StringFixed(2),
		schedule.TotalRepayable.StringFixed(2),
	)
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(out(cmd), "\n%d installments of %s, maturing %s\n",
		schedule.TotalInstallments,
		schedule.InstallmentAmount.StringFixed(2),
		schedule.MaturityDate.Format(dto.DateLayout),
	)
	return nil
}
