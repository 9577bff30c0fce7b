package cli

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	redeemArgs    []string
	redeemJSON    string
	redeemRawText string
)

func init() {
	rootCmd.AddCommand(redeemCmd)
	redeemCmd.Flags().StringArrayVar(&redeemArgs, "arg", nil, "Tool argument as key=value (repeatable)")
	redeemCmd.Flags().StringVar(&redeemJSON, "json", "", "Tool arguments as a JSON object (overrides --arg)")
	redeemCmd.Flags().StringVar(&redeemRawText, "raw-text", "", "Raw request text for threat scanning")
}

var redeemCmd = &cobra.Command{
	Use:   "redeem <request-id> <token> <tool>",
	Short: "Execute an approved request",
	Long:  "Redeems a single-use approval token and executes the call. The tool and\narguments are re-stated so the gateway can re-validate before execution;\na call that no longer passes validation is rejected even when approved.",
	Args:  cobra.ExactArgs(3),
	RunE:  runRedeem,
}

func runRedeem(cmd *cobra.Command, args []string) error {
	req, err := buildActionRequest(args[2], redeemArgs, redeemJSON, redeemRawText)
	if err != nil {
		return err
	}
	req.RequestID = args[0]

	ctx, cancel := signalContext()
	defer cancel()

	e, err := buildEnv(ctx)
	if err != nil {
		return err
	}
	defer e.close()

	d, err := e.gw.Redeem(ctx, req, args[1])
	if err != nil {
		return err
	}
	if err := printDecision(d); err != nil {
		return err
	}
	if code := decisionExitCode(d); code != 0 {
		e.close()
		os.Exit(code)
	}
	return nil
}
