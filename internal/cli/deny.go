package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(denyCmd)
}

var denyCmd = &cobra.Command{
	Use:   "deny <request-id>",
	Short: "Deny a pending request",
	Long:  "Denies a parked request. Terminal: the request can never execute.",
	Args:  cobra.ExactArgs(1),
	RunE:  runDeny,
}

func runDeny(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	e, err := buildEnv(ctx)
	if err != nil {
		return err
	}
	defer e.close()

	if err := e.gw.Deny(args[0]); err != nil {
		return err
	}

	fmt.Printf("Denied %s\n", args[0])
	return nil
}
