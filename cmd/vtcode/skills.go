package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vtcode/vtcode/internal/doctor"
	"github.com/vtcode/vtcode/internal/skills"
)

// buildSkillsCmd creates the "skills" command group.
func buildSkillsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "skills",
		Short: "Manage skills (SKILL.md-based)",
		Long: `Manage skills that extend agent capabilities.

Skills are discovered from:
  - <workspace>/skills/ (highest priority)
  - ~/.vtcode/skills/ (user skills)
  - Bundled skills (shipped with binary)
  - Extra directories (skills.load.extraDirs)

Each skill is a directory containing a SKILL.md file with YAML frontmatter.`,
	}
	cmd.AddCommand(
		buildSkillsListCmd(),
		buildSkillsShowCmd(),
		buildSkillsCheckCmd(),
		buildSkillsEnableCmd(),
		buildSkillsDisableCmd(),
	)
	return cmd
}

func buildSkillsListCmd() *cobra.Command {
	var configPath string
	var all bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List discovered skills",
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := loadSkillsManager(cmd, configPath)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			var list []*skills.SkillEntry
			if all {
				list = mgr.ListAll()
			} else {
				list = mgr.ListEligible()
			}
			if len(list) == 0 {
				fmt.Fprintln(out, "No skills found.")
				return nil
			}
			fmt.Fprintln(out, "Skills:")
			for _, skill := range list {
				emoji := ""
				if skill.Metadata != nil && skill.Metadata.Emoji != "" {
					emoji = skill.Metadata.Emoji + " "
				}
				fmt.Fprintf(out, "  %s%s (%s) - %s\n", emoji, skill.Name, skill.Source, skill.Description)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath(), "path to the vtcode YAML configuration file")
	cmd.Flags().BoolVarP(&all, "all", "a", false, "show all skills including ineligible ones")
	return cmd
}

func buildSkillsShowCmd() *cobra.Command {
	var configPath string
	var showContent bool
	cmd := &cobra.Command{
		Use:   "show [name]",
		Short: "Show skill details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := loadSkillsManager(cmd, configPath)
			if err != nil {
				return err
			}
			skill, ok := mgr.GetSkill(args[0])
			if !ok {
				return fmt.Errorf("skill not found: %s", args[0])
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Skill: %s\n", skill.Name)
			fmt.Fprintln(out, strings.Repeat("=", len(skill.Name)+7))
			if skill.Description != "" {
				fmt.Fprintf(out, "Description: %s\n", skill.Description)
			}
			if skill.Homepage != "" {
				fmt.Fprintf(out, "Homepage: %s\n", skill.Homepage)
			}
			fmt.Fprintf(out, "Path: %s\n", skill.Path)
			fmt.Fprintf(out, "Source: %s\n", skill.Source)
			if showContent {
				content, err := mgr.LoadContent(skill.Name)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, "\n---\n"+content)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath(), "path to the vtcode YAML configuration file")
	cmd.Flags().BoolVar(&showContent, "content", false, "show full skill content")
	return cmd
}

func buildSkillsCheckCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "check [name]",
		Short: "Check skill eligibility",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := loadSkillsManager(cmd, configPath)
			if err != nil {
				return err
			}
			result, err := mgr.CheckEligibility(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if result.Eligible {
				fmt.Fprintf(out, "Skill %q is eligible\n", args[0])
			} else {
				fmt.Fprintf(out, "Skill %q is NOT eligible: %s\n", args[0], result.Reason)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath(), "path to the vtcode YAML configuration file")
	return cmd
}

func buildSkillsEnableCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "enable [name]",
		Short: "Enable a skill",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return setSkillEnabledAndSave(cmd, configPath, args[0], true)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath(), "path to the vtcode YAML configuration file")
	return cmd
}

func buildSkillsDisableCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "disable [name]",
		Short: "Disable a skill",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return setSkillEnabledAndSave(cmd, configPath, args[0], false)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath(), "path to the vtcode YAML configuration file")
	return cmd
}

func loadSkillsManager(cmd *cobra.Command, configPath string) (*skills.Manager, error) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return nil, err
	}
	mgr, err := skills.NewManager(&cfg.Skills, cfg.Workspace.Path, nil)
	if err != nil {
		return nil, fmt.Errorf("create skill manager: %w", err)
	}
	if err := mgr.Discover(cmd.Context()); err != nil {
		return nil, fmt.Errorf("skill discovery: %w", err)
	}
	return mgr, nil
}

func setSkillEnabledAndSave(cmd *cobra.Command, configPath, name string, enabled bool) error {
	raw, err := doctor.LoadRawConfig(configPath)
	if err != nil {
		return err
	}
	setSkillEnabled(raw, name, enabled)
	if err := doctor.WriteRawConfig(configPath, raw); err != nil {
		return err
	}
	verb := "Enabled"
	if !enabled {
		verb = "Disabled"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s skill: %s\n", verb, name)
	return nil
}

func setSkillEnabled(raw map[string]any, name string, enabled bool) {
	if raw == nil {
		return
	}
	skillsSection, ok := raw["skills"].(map[string]any)
	if !ok {
		skillsSection = map[string]any{}
		raw["skills"] = skillsSection
	}
	entries, ok := skillsSection["entries"].(map[string]any)
	if !ok {
		entries = map[string]any{}
		skillsSection["entries"] = entries
	}
	entry, ok := entries[name].(map[string]any)
	if !ok {
		entry = map[string]any{}
		entries[name] = entry
	}
	entry["enabled"] = enabled
}
