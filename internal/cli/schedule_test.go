package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/mfi-loan-engine/internal/models"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	root := Root()
	root.SetOut(&buf)
	root.SetErr(&buf)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return buf.String(), err
}

func TestScheduleCommandJSON(t *testing.T) {
	output, err := runCLI(t, "schedule",
		"--principal", "100000", "--rate", "12", "--months", "12",
		"--frequency", "monthly", "--method", "reducing_balance",
		"--start", "2024-01-15", "--json")
	require.NoError(t, err)

	var schedule models.Schedule
	require.NoError(t, json.Unmarshal([]byte(output), &schedule))
	assert.Equal(t, 12, schedule.TotalInstallments)
	assert.Equal(t, "8884.88", schedule.InstallmentAmount.StringFixed(2))
}

func TestScheduleCommandTable(t *testing.T) {
	output, err := runCLI(t, "schedule",
		"--principal", "100000", "--rate", "12", "--months", "12",
		"--frequency", "monthly", "--method", "flat",
		"--start", "2024-01-15", "--json=false")
	require.NoError(t, err)

	assert.Contains(t, output, "Due date")
	assert.Contains(t, output, "2024-02-15")
	assert.Contains(t, output, "112000.00")
	assert.Contains(t, output, "12 installments of 9333.33, maturing 2025-01-15")
}

func TestScheduleCommandRejectsBadInput(t *testing.T) {
	_, err := runCLI(t, "schedule", "--principal", "abc", "--start", "2024-01-15", "--json=false")
	assert.Error(t, err)

	_, err = runCLI(t, "schedule", "--principal", "1000", "--rate", "12", "--months", "0",
		"--frequency", "monthly", "--method", "flat", "--start", "2024-01-15", "--json=false")
	assert.Error(t, err)

	_, err = runCLI(t, "schedule", "--principal", "1000", "--months", "6", "--start", "15/01/2024")
	assert.Error(t, err)
}
