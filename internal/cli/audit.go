package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/skillgate/internal/audit"
)

var (
	trailRequest string
	trailFrom    string
	trailTo      string
)

func init() {
	rootCmd.AddCommand(auditCmd)
	auditCmd.AddCommand(auditVerifyCmd)
	auditCmd.AddCommand(auditTrailCmd)
	auditTrailCmd.Flags().StringVar(&trailRequest, "request", "", "Filter by request id")
	auditTrailCmd.Flags().StringVar(&trailFrom, "from", "", "Lower time bound (RFC3339)")
	auditTrailCmd.Flags().StringVar(&trailTo, "to", "", "Upper time bound (RFC3339)")
}

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Audit log operations",
	Long:  "Commands for verifying and inspecting the hash-chained audit log.",
}

var auditVerifyCmd = &cobra.Command{
	Use:   "verify [path]",
	Short: "Verify hash chain integrity of an audit log",
	Long:  "Walks the JSONL audit log and validates that every entry's prev_hash\nmatches the SHA-256 of the previous line. Exits 0 if valid, 1 if tampered.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runAuditVerify,
}

var auditTrailCmd = &cobra.Command{
	Use:   "trail [path]",
	Short: "Show the decision trail of a request",
	Long:  "Reads the audit log, filters by request id and time range, and prints\nthe matching entries with a stage summary.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runAuditTrail,
}

func auditPathArg(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	if flagAuditLog != "" {
		return flagAuditLog
	}
	return skillgatePath("audit.jsonl")
}

func runAuditVerify(cmd *cobra.Command, args []string) error {
	result := audit.Verify(auditPathArg(args))
	if result.Valid {
		fmt.Printf("OK: %d entries verified (%d requests, %d rejected, %d executed)\n",
			result.Lines, result.Requests, result.Rejected, result.Executed)
		if result.TailHash != "" {
			fmt.Printf("tail %s\n", result.TailHash)
		}
		return nil
	}
	fmt.Fprintf(os.Stderr, "FAILED at line %d: %s\n", result.ErrorLine, result.Error)
	os.Exit(1)
	return nil
}

func runAuditTrail(cmd *cobra.Command, args []string) error {
	filter := audit.TrailFilter{RequestID: trailRequest}

	var err error
	if trailFrom != "" {
		filter.From, err = time.Parse(time.RFC3339, trailFrom)
		if err != nil {
			return fmt.Errorf("invalid --from: %w", err)
		}
	}
	if trailTo != "" {
		filter.To, err = time.Parse(time.RFC3339, trailTo)
		if err != nil {
			return fmt.Errorf("invalid --to: %w", err)
		}
	}

	result, err := audit.Trail(auditPathArg(args), filter)
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
