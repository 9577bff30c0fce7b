package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/skillgate/internal/capability"
)

func init() {
	rootCmd.AddCommand(initCmd)
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate default capabilities.yaml",
	Long:  "Creates ~/.skillgate/capabilities.yaml with the built-in capability set.\nEdit this file to grant callers access to tools.",
	RunE:  runInit,
}

func runInit(cmd *cobra.Command, args []string) error {
	home, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("cannot determine home directory: %w", err)
	}

	dir := filepath.Join(home, ".skillgate")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("cannot create config directory: %w", err)
	}

	path := filepath.Join(dir, "capabilities.yaml")
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("capabilities.yaml already exists at %s", path)
	}

	content, err := yaml.Marshal(capability.DefaultConfig())
	if err != nil {
		return fmt.Errorf("marshal default config: %w", err)
	}
	if err := os.WriteFile(path, content, 0644); err != nil {
		return fmt.Errorf("failed to write capabilities.yaml: %w", err)
	}

	fmt.Printf("Created %s\n", path)
	return nil
}
