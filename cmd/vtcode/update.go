package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"github.com/vtcode/vtcode/internal/config"
	"github.com/vtcode/vtcode/internal/doctor"
)

// buildUpdateCmd creates the "update" command group: check|install|config|
// backups|rollback|cleanup, all operating on the local config file rather
// than a remote release channel (vtcode has no update server of its own).
func buildUpdateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update",
		Short: "Manage the vtcode config file version and its backups",
	}
	cmd.AddCommand(
		buildUpdateCheckCmd(),
		buildUpdateInstallCmd(),
		buildUpdateConfigCmd(),
		buildUpdateBackupsCmd(),
		buildUpdateRollbackCmd(),
		buildUpdateCleanupCmd(),
	)
	return cmd
}

func buildUpdateCheckCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check whether the config file needs migration",
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := doctor.LoadRawConfig(configPath)
			if err != nil {
				return err
			}
			report, err := doctor.ApplyConfigMigrations(raw)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if report.FromVersion >= config.CurrentVersion {
				fmt.Fprintf(out, "config is up to date (version %d)\n", report.FromVersion)
				return nil
			}
			fmt.Fprintf(out, "config version %d is behind current version %d; run \"vtcode update install\"\n", report.FromVersion, config.CurrentVersion)
			return nil
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath(), "path to the vtcode YAML configuration file")
	return cmd
}

func buildUpdateInstallCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "install",
		Short: "Apply pending config migrations, backing up the original first",
		RunE: func(cmd *cobra.Command, args []string) error {
			backupPath, err := doctor.BackupConfig(configPath)
			if err != nil {
				return fmt.Errorf("backup config: %w", err)
			}
			raw, err := doctor.LoadRawConfig(configPath)
			if err != nil {
				return err
			}
			report, err := doctor.ApplyConfigMigrations(raw)
			if err != nil {
				return err
			}
			if err := doctor.WriteRawConfig(configPath, raw); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "backed up to %s\n", backupPath)
			if len(report.Applied) == 0 {
				fmt.Fprintln(out, "no migrations were needed")
				return nil
			}
			for _, applied := range report.Applied {
				fmt.Fprintf(out, "applied: %s\n", applied)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath(), "path to the vtcode YAML configuration file")
	return cmd
}

func buildUpdateConfigCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the resolved config path and current version",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "config path: %s\n", configPath)
			raw, err := doctor.LoadRawConfig(configPath)
			if err != nil {
				fmt.Fprintf(out, "status: no config file found (defaults will be used)\n")
				return nil
			}
			report, err := doctor.ApplyConfigMigrations(raw)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "version: %d (current: %d)\n", report.FromVersion, config.CurrentVersion)
			return nil
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath(), "path to the vtcode YAML configuration file")
	return cmd
}

func buildUpdateBackupsCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "backups",
		Short: "List config backups (<config>.bak-<timestamp>)",
		RunE: func(cmd *cobra.Command, args []string) error {
			matches, err := listBackups(configPath)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(matches) == 0 {
				fmt.Fprintln(out, "no backups found")
				return nil
			}
			for _, m := range matches {
				fmt.Fprintln(out, m)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath(), "path to the vtcode YAML configuration file")
	return cmd
}

func buildUpdateRollbackCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "rollback",
		Short: "Restore the most recent config backup",
		RunE: func(cmd *cobra.Command, args []string) error {
			matches, err := listBackups(configPath)
			if err != nil {
				return err
			}
			if len(matches) == 0 {
				return fmt.Errorf("no backups available for %s", configPath)
			}
			latest := matches[len(matches)-1]
			data, err := os.ReadFile(latest)
			if err != nil {
				return err
			}
			if err := os.WriteFile(configPath, data, 0o644); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "restored %s from %s\n", configPath, latest)
			return nil
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath(), "path to the vtcode YAML configuration file")
	return cmd
}

func buildUpdateCleanupCmd() *cobra.Command {
	var configPath string
	var keep int
	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Delete old config backups, keeping the most recent N",
		RunE: func(cmd *cobra.Command, args []string) error {
			matches, err := listBackups(configPath)
			if err != nil {
				return err
			}
			if keep < 0 {
				keep = 0
			}
			if len(matches) <= keep {
				fmt.Fprintln(cmd.OutOrStdout(), "nothing to clean up")
				return nil
			}
			out := cmd.OutOrStdout()
			for _, stale := range matches[:len(matches)-keep] {
				if err := os.Remove(stale); err != nil {
					return err
				}
				fmt.Fprintf(out, "removed %s\n", stale)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath(), "path to the vtcode YAML configuration file")
	cmd.Flags().IntVar(&keep, "keep", 5, "number of most recent backups to retain")
	return cmd
}

// listBackups returns backup file paths for configPath sorted oldest-first
// (the timestamp suffix sorts lexicographically in chronological order).
func listBackups(configPath string) ([]string, error) {
	matches, err := filepath.Glob(configPath + ".bak-*")
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)
	return matches, nil
}
