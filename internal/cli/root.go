// Package cli implements the loanctl command line tool.
package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/noah-isme/mfi-loan-engine/internal/dto"
)

var rootCmd = &cobra.Command{
	Use:   "loanctl",
	Short: "Loan schedule and portfolio classification tool",
	Long: `loanctl previews amortization schedules offline and runs the portfolio
reclassification against the loan book configured in .env.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// Root returns the root command, mainly for tests.
func Root() *cobra.Command {
	return rootCmd
}

func out(cmd *cobra.Command) io.Writer {
	return cmd.OutOrStdout()
}

func parseDate(flag, raw string) (time.Time, error) {
	if raw == "" {
		return time.Now().UTC(), nil
	}
	t, err := time.Parse(dto.DateLayout, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("--%s must be YYYY-MM-DD: %w", flag, err)
	}
	return t, nil
}
