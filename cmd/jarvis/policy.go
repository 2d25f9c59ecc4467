package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Lin-Jiong-HDU/jarvis/internal/core/intent"
	"github.com/Lin-Jiong-HDU/jarvis/internal/core/security"
)

func getPolicyCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "policy",
		Short: "Show the loaded allowlist",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			policy := security.LoadAllowlist(appConfig.Security.AllowlistPath)
			printPolicy(cmd.OutOrStdout(), appConfig.Security.AllowlistPath, policy)
			return nil
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "check <program>",
		Short: "Show whether a program may run without confirmation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			policy := security.LoadAllowlist(appConfig.Security.AllowlistPath)
			printCheck(cmd.OutOrStdout(), policy, args[0])
			return nil
		},
	})

	return cmd
}

func printPolicy(w io.Writer, path string, policy *security.AllowlistPolicy) {
	fmt.Fprintf(w, "Allowlist: %s\n\n", path)

	fmt.Fprintln(w, "Programs:")
	if len(policy.Programs) == 0 {
		fmt.Fprintln(w, "  (none, every program asks for confirmation)")
	}
	for _, p := range policy.Programs {
		fmt.Fprintf(w, "  • %s\n", p)
	}

	fmt.Fprintf(w, "\nFile deletion without confirmation: %s\n", yesNo(policy.AllowDelete))

	if len(policy.DangerousKeywords) > 0 {
		fmt.Fprintf(w, "Dangerous keywords: %s\n", strings.Join(policy.DangerousKeywords, ", "))
	}
	fmt.Fprintln(w, "Shutdown and restart always ask for confirmation.")
}

func printCheck(w io.Writer, policy *security.AllowlistPolicy, program string) {
	d := security.Authorize(intent.RunProgram{Program: program}, policy)

	name := security.NormalizeProgram(program)
	switch d.Verdict {
	case security.Allowed:
		fmt.Fprintf(w, "✓ %s is allowed\n", name)
	default:
		fmt.Fprintf(w, "⚠ %s requires confirmation: %s\n", name, d.Reason)
	}

	if matches := security.NewKeywordChecker(policy).Match(program); len(matches) > 0 {
		fmt.Fprintf(w, "  matches dangerous keywords: %s\n", strings.Join(matches, ", "))
	}
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
