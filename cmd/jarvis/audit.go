package main

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/Lin-Jiong-HDU/jarvis/internal/core/audit"
	"github.com/Lin-Jiong-HDU/jarvis/internal/core/tui"
)

var (
	auditLimit int
	auditTUI   bool
)

var levelStyles = map[string]lipgloss.Style{
	"INFO":    lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
	"WARNING": lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
	"ERROR":   lipgloss.NewStyle().Foreground(lipgloss.Color("9")),
}

func getAuditCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Show the command audit log",
		Args:  cobra.NoArgs,
		RunE:  runAudit,
	}

	cmd.Flags().IntVarP(&auditLimit, "lines", "n", 20, "Number of most recent records to show (0 for all)")
	cmd.Flags().BoolVar(&auditTUI, "tui", false, "Browse the log interactively")

	return cmd
}

func runAudit(cmd *cobra.Command, args []string) error {
	path := appConfig.Security.AuditLog
	reload := func() ([]audit.Record, int, error) {
		return audit.ReadRecords(path)
	}

	records, skipped, err := reload()
	if err != nil {
		return err
	}

	if auditTUI {
		return tui.Run(records, skipped, reload)
	}

	printRecords(cmd.OutOrStdout(), records, skipped, auditLimit)
	return nil
}

func printRecords(w io.Writer, records []audit.Record, skipped, limit int) {
	if len(records) == 0 {
		fmt.Fprintln(w, "No audit records.")
	}

	if limit > 0 && len(records) > limit {
		records = records[len(records)-limit:]
	}

	for _, rec := range records {
		line := rec.Line()
		if style, ok := levelStyles[rec.Outcome.Level()]; ok {
			line = style.Render(line)
		}
		fmt.Fprintln(w, line)
	}

	if skipped > 0 {
		fmt.Fprintf(w, "(%d unreadable lines skipped)\n", skipped)
	}
}
