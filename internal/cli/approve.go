package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(approveCmd)
}

var approveCmd = &cobra.Command{
	Use:   "approve <request-id>",
	Short: "Approve a pending request",
	Long:  "Approves a parked request and prints a single-use token.\nThe caller redeems the token with `skillgate redeem` to execute.",
	Args:  cobra.ExactArgs(1),
	RunE:  runApprove,
}

func runApprove(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	e, err := buildEnv(ctx)
	if err != nil {
		return err
	}
	defer e.close()

	token, err := e.gw.Approve(args[0])
	if err != nil {
		return err
	}

	fmt.Printf("Approved %s\n", args[0])
	fmt.Printf("Token (single use): %s\n", token)
	return nil
}
