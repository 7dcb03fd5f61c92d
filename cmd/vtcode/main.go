// Command vtcode is the terminal entry point for the vtcode coding agent.
//
// With no subcommand it drops into an interactive REPL. Supporting
// subcommands manage configuration migrations, MCP servers, skills, and
// workspace bootstrap files.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if err := buildRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func buildRootCmd() *cobra.Command {
	var configPath string
	var debug bool

	root := &cobra.Command{
		Use:   "vtcode",
		Short: "vtcode is a terminal coding agent",
		Long: `vtcode runs an autonomous coding agent loop backed by pluggable LLM
providers, a sandboxed tool registry, and a session store.

Run "vtcode" with no arguments to start the interactive REPL.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRepl(cmd, configPath, debug)
		},
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", defaultConfigPath(), "path to the vtcode YAML configuration file")
	root.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	root.AddCommand(
		buildDoctorCmd(),
		buildUpdateCmd(),
		buildMcpCmd(),
		buildSkillsCmd(),
		buildSetupCmd(),
	)

	return root
}
