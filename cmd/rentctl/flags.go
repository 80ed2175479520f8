package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"rentcore/internal/core"
)

// printResult writes v and reports non-blocking rule findings on stderr.
func printResult(cmd *cobra.Command, v any, res core.Result) error {
	for _, viol := range res.Violations {
		fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s (%s)\n", viol.Severity, viol.Message, viol.Rule)
	}
	return printJSON(cmd, v)
}

func parseDate(flag, value string) (time.Time, error) {
	t, err := time.Parse(time.DateOnly, strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, fmt.Errorf("--%s: want YYYY-MM-DD, got %q", flag, value)
	}
	return t, nil
}

// parseMonth accepts YYYY-MM or a full date within the month.
func parseMonth(flag, value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if t, err := time.Parse("2006-01", value); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.DateOnly, value); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("--%s: want YYYY-MM, got %q", flag, value)
}
