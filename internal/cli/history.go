package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ppiankov/skillgate/internal/history"
)

var historyLimit int

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyRecentCmd)
	historyCmd.AddCommand(historyShowCmd)
	historyRecentCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Number of recent decisions to show")
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Decision history operations",
	Long:  "Commands for querying recorded gateway decisions and executions.",
}

var historyRecentCmd = &cobra.Command{
	Use:   "recent",
	Short: "Show recent gateway decisions",
	RunE:  runHistoryRecent,
}

var historyShowCmd = &cobra.Command{
	Use:   "show <request-id>",
	Short: "Show all decisions and executions for a request",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

func openHistory() (*history.Store, error) {
	path := flagHistoryDB
	if path == "" {
		path = history.DefaultPath()
	}
	return history.Open(path)
}

func runHistoryRecent(cmd *cobra.Command, args []string) error {
	hist, err := openHistory()
	if err != nil {
		return err
	}
	defer hist.Close()

	ctx, cancel := signalContext()
	defer cancel()

	decisions, err := hist.Recent(ctx, historyLimit)
	if err != nil {
		return err
	}

	if len(decisions) == 0 {
		fmt.Println("No recorded decisions.")
		return nil
	}

	fmt.Printf("%-18s %-12s %-20s %-18s %-10s %s\n", "REQUEST", "CALLER", "TOOL", "STATE", "VERDICT", "WHEN")
	for _, d := range decisions {
		fmt.Printf("%-18s %-12s %-20s %-18s %-10s %s\n",
			d.RequestID,
			d.Caller,
			truncate(d.Tool, 20),
			d.State,
			d.Verdict,
			d.CreatedAt.Format("2006-01-02 15:04:05"),
		)
	}
	return nil
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	hist, err := openHistory()
	if err != nil {
		return err
	}
	defer hist.Close()

	ctx, cancel := signalContext()
	defer cancel()

	decisions, executions, err := hist.ByRequest(ctx, args[0])
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(map[string]any{
		"request_id": args[0],
		"decisions":  decisions,
		"executions": executions,
	}, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
