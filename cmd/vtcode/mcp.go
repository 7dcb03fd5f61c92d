package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vtcode/vtcode/internal/config"
	"github.com/vtcode/vtcode/internal/mcp"
)

// buildMcpCmd creates the "mcp" command group for inspecting and exercising
// Model Context Protocol servers declared in the config file.
func buildMcpCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Manage and query MCP servers",
		Long:  `Inspect, connect to, and call tools/resources/prompts on MCP servers configured under mcp.servers.`,
	}
	cmd.AddCommand(
		buildMcpServersCmd(),
		buildMcpConnectCmd(),
		buildMcpToolsCmd(),
		buildMcpCallCmd(),
		buildMcpResourcesCmd(),
		buildMcpReadCmd(),
		buildMcpPromptsCmd(),
		buildMcpPromptCmd(),
	)
	return cmd
}

func buildMcpServersCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "servers",
		Short: "List configured MCP servers and their connection status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, mgr, err := loadMCPManager(configPath)
			if err != nil {
				return err
			}
			if cfg.MCP.Enabled {
				if err := mgr.Start(cmd.Context()); err != nil {
					return err
				}
			}
			defer stopMCPManager(mgr)

			out := cmd.OutOrStdout()
			statuses := mgr.Status()
			if len(statuses) == 0 {
				fmt.Fprintln(out, "No MCP servers configured.")
				return nil
			}
			for _, status := range statuses {
				state := "disconnected"
				if status.Connected {
					state = "connected"
				}
				fmt.Fprintf(out, "  %s (%s) - %s\n", status.ID, status.Name, state)
				if status.Connected {
					fmt.Fprintf(out, "    Tools: %d | Resources: %d | Prompts: %d\n", status.Tools, status.Resources, status.Prompts)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath(), "path to the vtcode YAML configuration file")
	return cmd
}

func buildMcpConnectCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "connect [server-id]",
		Short: "Connect to an MCP server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, mgr, err := loadMCPManager(configPath)
			if err != nil {
				return err
			}
			defer stopMCPManager(mgr)
			if err := mgr.Connect(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Connected to %s\n", args[0])
			return nil
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath(), "path to the vtcode YAML configuration file")
	return cmd
}

func buildMcpToolsCmd() *cobra.Command {
	var configPath, serverID string
	cmd := &cobra.Command{
		Use:   "tools",
		Short: "List tools exposed by connected MCP servers",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, mgr, err := loadMCPManager(configPath)
			if err != nil {
				return err
			}
			defer stopMCPManager(mgr)
			if err := connectOrStart(cmd, mgr, serverID); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for id, list := range mgr.AllTools() {
				if serverID != "" && id != serverID {
					continue
				}
				fmt.Fprintf(out, "Tools for %s:\n", id)
				for _, tool := range list {
					fmt.Fprintf(out, "  - %s: %s\n", tool.Name, tool.Description)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath(), "path to the vtcode YAML configuration file")
	cmd.Flags().StringVar(&serverID, "server", "", "restrict to a single server id")
	return cmd
}

func buildMcpCallCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "call [server-id.tool-name] [key=value ...]",
		Short: "Call a tool on an MCP server",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			serverID, toolName, err := parseMCPQualifiedName(args[0])
			if err != nil {
				return err
			}
			_, mgr, err := loadMCPManager(configPath)
			if err != nil {
				return err
			}
			defer stopMCPManager(mgr)
			if err := mgr.Connect(cmd.Context(), serverID); err != nil {
				return err
			}
			toolArgs, err := parseAnyArgs(args[1:])
			if err != nil {
				return err
			}
			result, err := mgr.CallTool(cmd.Context(), serverID, toolName, toolArgs)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if result == nil || len(result.Content) == 0 {
				fmt.Fprintln(out, "No result.")
				return nil
			}
			for _, item := range result.Content {
				if item.Type == "text" {
					fmt.Fprintln(out, item.Text)
					continue
				}
				payload, err := json.Marshal(item)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, string(payload))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath(), "path to the vtcode YAML configuration file")
	return cmd
}

func buildMcpResourcesCmd() *cobra.Command {
	var configPath, serverID string
	cmd := &cobra.Command{
		Use:   "resources",
		Short: "List resources exposed by connected MCP servers",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, mgr, err := loadMCPManager(configPath)
			if err != nil {
				return err
			}
			defer stopMCPManager(mgr)
			if err := connectOrStart(cmd, mgr, serverID); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for id, list := range mgr.AllResources() {
				if serverID != "" && id != serverID {
					continue
				}
				fmt.Fprintf(out, "Resources for %s:\n", id)
				for _, res := range list {
					fmt.Fprintf(out, "  - %s (%s)\n", res.URI, res.Name)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath(), "path to the vtcode YAML configuration file")
	cmd.Flags().StringVar(&serverID, "server", "", "restrict to a single server id")
	return cmd
}

func buildMcpReadCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "read [server-id] [uri]",
		Short: "Read an MCP resource by URI",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, mgr, err := loadMCPManager(configPath)
			if err != nil {
				return err
			}
			defer stopMCPManager(mgr)
			if err := mgr.Connect(cmd.Context(), args[0]); err != nil {
				return err
			}
			contents, err := mgr.ReadResource(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			payload, err := json.Marshal(contents)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(payload))
			return nil
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath(), "path to the vtcode YAML configuration file")
	return cmd
}

func buildMcpPromptsCmd() *cobra.Command {
	var configPath, serverID string
	cmd := &cobra.Command{
		Use:   "prompts",
		Short: "List prompts exposed by connected MCP servers",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, mgr, err := loadMCPManager(configPath)
			if err != nil {
				return err
			}
			defer stopMCPManager(mgr)
			if err := connectOrStart(cmd, mgr, serverID); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for id, list := range mgr.AllPrompts() {
				if serverID != "" && id != serverID {
					continue
				}
				fmt.Fprintf(out, "Prompts for %s:\n", id)
				for _, prompt := range list {
					fmt.Fprintf(out, "  - %s: %s\n", prompt.Name, prompt.Description)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath(), "path to the vtcode YAML configuration file")
	cmd.Flags().StringVar(&serverID, "server", "", "restrict to a single server id")
	return cmd
}

func buildMcpPromptCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "prompt [server-id.prompt-name] [key=value ...]",
		Short: "Resolve a prompt on an MCP server",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			serverID, promptName, err := parseMCPQualifiedName(args[0])
			if err != nil {
				return err
			}
			_, mgr, err := loadMCPManager(configPath)
			if err != nil {
				return err
			}
			defer stopMCPManager(mgr)
			if err := mgr.Connect(cmd.Context(), serverID); err != nil {
				return err
			}
			promptArgs, err := parseStringArgs(args[1:])
			if err != nil {
				return err
			}
			result, err := mgr.GetPrompt(cmd.Context(), serverID, promptName, promptArgs)
			if err != nil {
				return err
			}
			payload, err := json.Marshal(result)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(payload))
			return nil
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath(), "path to the vtcode YAML configuration file")
	return cmd
}

func connectOrStart(cmd *cobra.Command, mgr *mcp.Manager, serverID string) error {
	if serverID != "" {
		return mgr.Connect(cmd.Context(), serverID)
	}
	return mgr.Start(cmd.Context())
}

func loadMCPManager(configPath string) (*config.Config, *mcp.Manager, error) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return nil, nil, err
	}
	mgr := mcp.NewManager(&cfg.MCP, slog.Default())
	return cfg, mgr, nil
}

func stopMCPManager(mgr *mcp.Manager) {
	if mgr == nil {
		return
	}
	if err := mgr.Stop(); err != nil {
		slog.Warn("failed to stop MCP manager", "error", err)
	}
}

func parseMCPQualifiedName(value string) (string, string, error) {
	parts := strings.SplitN(value, ".", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("expected server-id.name, got %q", value)
	}
	return parts[0], parts[1], nil
}

func parseAnyArgs(items []string) (map[string]any, error) {
	result := map[string]any{}
	for _, item := range items {
		key, value, err := parseKeyValue(item)
		if err != nil {
			return nil, err
		}
		var decoded any
		if err := json.Unmarshal([]byte(value), &decoded); err == nil {
			result[key] = decoded
		} else {
			result[key] = value
		}
	}
	return result, nil
}

func parseStringArgs(items []string) (map[string]string, error) {
	result := map[string]string{}
	for _, item := range items {
		key, value, err := parseKeyValue(item)
		if err != nil {
			return nil, err
		}
		result[key] = value
	}
	return result, nil
}

func parseKeyValue(item string) (string, string, error) {
	parts := strings.SplitN(item, "=", 2)
	if len(parts) != 2 || parts[0] == "" {
		return "", "", fmt.Errorf("expected key=value, got %q", item)
	}
	return parts[0], parts[1], nil
}
