package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ppiankov/skillgate/internal/gateway"
)

var (
	checkArgs    []string
	checkJSON    string
	checkRawText string
)

func init() {
	rootCmd.AddCommand(checkCmd)
	checkCmd.Flags().StringArrayVar(&checkArgs, "arg", nil, "Tool argument as key=value (repeatable)")
	checkCmd.Flags().StringVar(&checkJSON, "json", "", "Tool arguments as a JSON object (overrides --arg)")
	checkCmd.Flags().StringVar(&checkRawText, "raw-text", "", "Raw request text for threat scanning")
}

var checkCmd = &cobra.Command{
	Use:   "check <tool>",
	Short: "Evaluate a tool call without executing it",
	Long:  "Runs the gating pipeline in dry-run mode: no approval is registered and\nnothing executes. Exit code 77 indicates the call would be rejected.",
	Args:  cobra.ExactArgs(1),
	RunE:  runCheck,
}

func runCheck(cmd *cobra.Command, args []string) error {
	req, err := buildActionRequest(args[0], checkArgs, checkJSON, checkRawText)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	e, err := buildEnv(ctx)
	if err != nil {
		return err
	}
	defer e.close()

	d, err := e.gw.Check(ctx, req)
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))

	if d.State == gateway.StateRejected {
		e.close()
		os.Exit(77)
	}
	return nil
}
