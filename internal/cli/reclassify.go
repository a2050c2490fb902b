package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/noah-isme/mfi-loan-engine/internal/dto"
	"github.com/noah-isme/mfi-loan-engine/internal/models"
	"github.com/noah-isme/mfi-loan-engine/internal/repository"
	"github.com/noah-isme/mfi-loan-engine/internal/service"
	"github.com/noah-isme/mfi-loan-engine/pkg/config"
	"github.com/noah-isme/mfi-loan-engine/pkg/database"
	"github.com/noah-isme/mfi-loan-engine/pkg/logger"
)

func init() {
	rootCmd.AddCommand(reclassifyCmd)
	reclassifyCmd.Flags().String("as-of", "", "Classification date (YYYY-MM-DD), default today")
	reclassifyCmd.Flags().Int("workers", 0, "Worker count, overrides RECLASSIFIER_WORKERS")
	reclassifyCmd.Flags().Bool("failures", false, "List loans that failed")
}

var reclassifyCmd = &cobra.Command{
	Use:   "reclassify",
	Short: "Reclassify every active loan once and persist the changes",
	Args:  cobra.NoArgs,
	RunE:  runReclassify,
}

func runReclassify(cmd *cobra.Command, args []string) error {
	asOfRaw, _ := cmd.Flags().GetString("as-of")
	workers, _ := cmd.Flags().GetInt("workers")
	showFailures, _ := cmd.Flags().GetBool("failures")

	asOf, err := parseDate("as-of", asOfRaw)
	if err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if workers > 0 {
		cfg.Reclassifier.Workers = workers
	}
	logr, err := logger.New(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx := cmd.Context()
	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	svc := service.NewReclassifierService(
		repository.NewLoanRepository(db),
		repository.NewLoanStateRepository(db),
		nil,
		nil,
		logr.Named("reclassifier"),
		service.ReclassifierConfig{
			Workers:    cfg.Reclassifier.Workers,
			MaxRetries: cfg.Reclassifier.MaxRetries,
			RetryDelay: cfg.Reclassifier.RetryDelay,
			Timeout:    cfg.Reclassifier.Timeout,
		},
	)
	report, err := svc.Run(ctx, asOf)
	if report != nil {
		printReport(cmd, report, showFailures)
	}
	if err != nil {
		logr.Error("reclassification failed", zap.Error(err))
		return err
	}
	return nil
}

func printReport(cmd *cobra.Command, report *models.ReclassificationReport, showFailures bool) {
	w := out(cmd)
	fmt.Fprintf(w, "run %s as of %s\n", report.RunID, report.AsOf.Format(dto.DateLayout))
	fmt.Fprintf(w, "loans %d  processed %d  changed %d  failed %d", report.Total, report.Processed, report.Changed, report.Failed)
	if report.Incomplete {
		fmt.Fprint(w, "  (incomplete)")
	}
	fmt.Fprintln(w)
	for _, class := range models.PerformanceClasses {
		bucket := report.Summary.ByClass[class]
		fmt.Fprintf(w, "  %-12s %6d  %s\n", class, bucket.Count, bucket.Balance.StringFixed(2))
	}
	fmt.Fprintf(w, "portfolio at risk %s%%\n", report.Summary.PortfolioAtRisk.Shift(2).StringFixed(2))
	if showFailures {
		for _, failure := range report.Failures {
			fmt.Fprintf(w, "  failed %s: %s\n", failure.LoanID, failure.Error)
		}
	}
}
