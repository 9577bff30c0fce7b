package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ppiankov/skillgate/internal/gateway"
	"github.com/ppiankov/skillgate/internal/model"
)

var (
	runArgs    []string
	runJSON    string
	runRawText string
)

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringArrayVar(&runArgs, "arg", nil, "Tool argument as key=value (repeatable)")
	runCmd.Flags().StringVar(&runJSON, "json", "", "Tool arguments as a JSON object (overrides --arg)")
	runCmd.Flags().StringVar(&runRawText, "raw-text", "", "Raw request text for threat scanning")
}

var runCmd = &cobra.Command{
	Use:   "run <tool>",
	Short: "Submit a tool call for gated execution",
	Long:  "Runs the call through the gating pipeline. Clean low-risk calls execute\nimmediately in a sandbox. Risky calls are parked and print a request id\nfor `skillgate approve`. Exit code 77 indicates a rejected call.",
	Args:  cobra.ExactArgs(1),
	RunE:  runRun,
}

func runRun(cmd *cobra.Command, args []string) error {
	req, err := buildActionRequest(args[0], runArgs, runJSON, runRawText)
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

	d, err := e.gw.Submit(ctx, req)
	if err != nil {
		return err
	}
	if err := printDecision(d); err != nil {
		return err
	}
	// Flush the audit log and release stores before a hard exit, since
	// os.Exit skips the deferred close.
	if code := decisionExitCode(d); code != 0 {
		e.close()
		os.Exit(code)
	}
	return nil
}

func buildActionRequest(tool string, kvArgs []string, jsonArgs, rawText string) (model.ActionRequest, error) {
	arguments := map[string]any{}
	if jsonArgs != "" {
		if err := json.Unmarshal([]byte(jsonArgs), &arguments); err != nil {
			return model.ActionRequest{}, fmt.Errorf("parse --json: %w", err)
		}
	} else {
		for _, kv := range kvArgs {
			key, val, ok := strings.Cut(kv, "=")
			if !ok || key == "" {
				return model.ActionRequest{}, fmt.Errorf("invalid --arg %q, want key=value", kv)
			}
			arguments[key] = coerceValue(val)
		}
	}

	return model.ActionRequest{
		Tool:      tool,
		Arguments: arguments,
		Origin:    model.CallerIdentity{Caller: flagCaller},
		RawText:   rawText,
	}, nil
}

// coerceValue interprets --arg values the way JSON would, so numeric and
// boolean params survive the string-typed command line.
func coerceValue(s string) any {
	if n, err := strconv.ParseFloat(s, 64); err == nil {
		return n
	}
	if b, err := strconv.ParseBool(s); err == nil {
		return b
	}
	return s
}

func printDecision(d *gateway.Decision) error {
	out, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))

	if d.State == gateway.StatePendingApproval {
		fmt.Fprintf(os.Stderr, "\nTo approve, run: skillgate approve %s\n", d.RequestID)
	}
	return nil
}

// decisionExitCode maps a decision to the process exit status: 77 for a
// rejected call, the sandbox convention of 1 for a command that ran and
// failed, 0 otherwise.
func decisionExitCode(d *gateway.Decision) int {
	if d.State == gateway.StateRejected {
		return 77
	}
	if d.Result != nil && d.Result.ExitStatus != 0 {
		return 1
	}
	return 0
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}
