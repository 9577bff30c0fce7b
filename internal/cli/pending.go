package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(pendingCmd)
}

var pendingCmd = &cobra.Command{
	Use:   "pending",
	Short: "List requests waiting for approval",
	RunE:  runPending,
}

func runPending(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	e, err := buildEnv(ctx)
	if err != nil {
		return err
	}
	defer e.close()

	list, err := e.gw.Pending()
	if err != nil {
		return err
	}

	if len(list) == 0 {
		fmt.Println("No pending requests.")
		return nil
	}

	fmt.Printf("%-18s %-12s %-20s %-30s %s\n", "REQUEST", "CALLER", "TOOL", "REASON", "EXPIRES")
	for _, a := range list {
		fmt.Printf("%-18s %-12s %-20s %-30s %s\n",
			a.Key,
			a.Caller,
			truncate(a.Tool, 20),
			truncate(a.Reason, 30),
			a.ExpiresAt.Format("15:04:05"),
		)
	}
	return nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
