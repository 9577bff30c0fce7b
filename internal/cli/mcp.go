package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/skillgate/internal/capability"
	skillmcp "github.com/ppiankov/skillgate/internal/mcp"
)

func init() {
	rootCmd.AddCommand(mcpCmd)
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP tool server for agent integration",
	Long:  "Runs skillgate as an MCP (Model Context Protocol) server over stdio.\nExposes gated tools: run, check, approve, deny, redeem, pending.\nThe capability file is hot-reloaded on change while the server runs.",
	RunE:  runMCP,
}

func runMCP(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	e, err := buildEnv(ctx)
	if err != nil {
		return err
	}
	defer e.close()

	// Hot-reload is best effort: a store serving built-in defaults has no
	// file to watch.
	if watcher, err := capability.NewWatcher(e.store); err == nil {
		go watcher.Run(ctx)
	}

	// Reap containers that outlived their deadline.
	go e.registry.Run(ctx, 30*time.Second)

	srv := skillmcp.New(e.gw, skillmcp.Config{Caller: flagCaller})

	fmt.Fprintf(os.Stderr, "skillgate MCP server running on stdio (caller=%s)\n", flagCaller)
	return srv.Run(ctx)
}
