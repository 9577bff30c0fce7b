// Package cli implements the skillgate command line interface.
package cli

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	flagCapabilities string
	flagAuditLog     string
	flagApprovalsDir string
	flagHistoryDB    string
	flagAlerts       string
	flagCaller       string
)

var rootCmd = &cobra.Command{
	Use:   "skillgate",
	Short: "Validation and sandboxed-execution gateway for agent tool calls",
	Long:  "Screens agent tool calls through pattern scanning, capability validation,\nand optional LLM review, then runs approved calls in locked-down containers.\nEvery decision lands in a hash-chained audit log.",
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagCapabilities, "capabilities", "", "Path to capabilities YAML (default: ~/.skillgate/capabilities.yaml)")
	pf.StringVar(&flagAuditLog, "audit-log", "", "Path to audit log (default: ~/.skillgate/audit.jsonl)")
	pf.StringVar(&flagApprovalsDir, "approvals", "", "Approval store directory (default: ~/.skillgate/pending)")
	pf.StringVar(&flagHistoryDB, "history-db", "", "Path to history database (default: ~/.skillgate/history.db)")
	pf.StringVar(&flagAlerts, "alerts", "", "Path to webhook alerts YAML")
	pf.StringVar(&flagCaller, "caller", "local", "Caller identity for capability lookup")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
