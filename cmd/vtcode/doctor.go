package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vtcode/vtcode/internal/doctor"
)

// buildDoctorCmd creates the "doctor" command: it reports (and optionally
// repairs) workspace bootstrap files, heartbeat liveness files, and runs a
// basic security audit over the config and workspace permissions.
func buildDoctorCmd() *cobra.Command {
	var configPath string
	var repair bool
	var audit bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Diagnose and repair the local vtcode workspace",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDoctor(cmd, configPath, repair, audit)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath(), "path to the vtcode YAML configuration file")
	cmd.Flags().BoolVar(&repair, "repair", false, "repair missing workspace bootstrap and heartbeat files")
	cmd.Flags().BoolVar(&audit, "audit", false, "run a security audit over config and workspace permissions")

	return cmd
}

func runDoctor(cmd *cobra.Command, configPath string, repair, audit bool) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	out := cmd.OutOrStdout()

	if repair {
		result, err := doctor.RepairWorkspace(cfg)
		if err != nil {
			return fmt.Errorf("repair workspace: %w", err)
		}
		for _, created := range result.Created {
			fmt.Fprintf(out, "created %s\n", created)
		}
		path, created, err := doctor.RepairHeartbeat(cfg, configPath)
		if err != nil {
			return fmt.Errorf("repair heartbeat: %w", err)
		}
		if created {
			fmt.Fprintf(out, "created %s\n", path)
		}
	}

	if audit {
		report := doctor.AuditSecurity(cfg, configPath)
		if len(report.Findings) == 0 {
			fmt.Fprintln(out, "no security findings")
		}
		for _, finding := range report.Findings {
			fmt.Fprintf(out, "[%s] %s\n", finding.Severity, finding.Message)
		}
	}

	if !repair && !audit {
		fmt.Fprintln(out, "vtcode doctor: workspace looks configured. Pass --repair to fix missing files or --audit to check permissions.")
	}

	return nil
}
