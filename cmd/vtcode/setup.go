package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vtcode/vtcode/internal/workspace"
)

// buildSetupCmd creates the "setup" command for initializing a workspace
// with its bootstrap files (AGENTS.md, SOUL.md, IDENTITY.md, etc.).
func buildSetupCmd() *cobra.Command {
	var (
		configPath   string
		workspaceDir string
		overwrite    bool
	)

	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Initialize a workspace with bootstrap files",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			dir := workspaceDir
			if dir == "" {
				dir = cfg.Workspace.Path
			}
			if dir == "" {
				dir = "."
			}

			files := workspace.BootstrapFilesForConfig(cfg)
			result, err := workspace.EnsureWorkspaceFiles(dir, files, overwrite)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, created := range result.Created {
				fmt.Fprintf(out, "created %s\n", created)
			}
			for _, skipped := range result.Skipped {
				fmt.Fprintf(out, "skipped %s (already exists)\n", skipped)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath(), "path to the vtcode YAML configuration file (optional)")
	cmd.Flags().StringVar(&workspaceDir, "workspace", "", "workspace directory to initialize (overrides config)")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "overwrite existing bootstrap files")

	return cmd
}
