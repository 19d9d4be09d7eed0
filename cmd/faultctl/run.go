package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jhkimqd/faultd/pkg/config"
	"github.com/jhkimqd/faultd/pkg/logger"
	"github.com/jhkimqd/faultd/pkg/metrics"
	"github.com/jhkimqd/faultd/pkg/nsexec"
	"github.com/jhkimqd/faultd/pkg/scheduler"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Args:  cobra.NoArgs,
	Short: "Drive a single fault descriptor through the scheduler",
	Long:  `Loads a fault descriptor YAML file and runs it through the injection scheduler once, then logs its outcome and command count; the audit trail entries are logged at debug level (shown with --verbose).`,
	RunE:  runFault,
}

func init() {
	runCmd.Flags().String("fault", "", "path to a fault descriptor YAML file")
	runCmd.Flags().Bool("live", false, "actually execute commands instead of dry-run logging them")
}

func runFault(cmd *cobra.Command, args []string) error {
	faultPath, _ := cmd.Flags().GetString("fault")
	if faultPath == "" {
		return fmt.Errorf("--fault flag is required")
	}
	live, _ := cmd.Flags().GetBool("live")

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	level := logger.LevelInfo
	if verbose {
		level = logger.LevelDebug
	}
	log := logger.New(logger.Config{
		Level:  level,
		Format: logger.Format(cfg.Framework.LogFormat),
		Output: os.Stdout,
	})

	ff, err := loadFaultFile(faultPath)
	if err != nil {
		return fmt.Errorf("loading fault file: %w", err)
	}
	desc, err := ff.toDescriptor()
	if err != nil {
		return fmt.Errorf("building fault descriptor: %w", err)
	}

	log.Info("running fault", "tag", desc.Tag, "fault_type", string(desc.FaultType), "pattern", string(desc.FaultPattern))

	executor := &nsexec.Executor{
		Runner:    nsexec.ShellRunner{Shell: "sh"},
		Logger:    log,
		DryRun:    !live,
		WarnAfter: cfg.Defaults.CommandWarnAfter,
	}

	sched := &scheduler.Scheduler{Executor: executor, Metrics: metrics.New()}

	result := sched.Run(context.Background(), desc)

	log.Info("fault completed", "tag", result.Tag, "outcome", string(result.Outcome), "commands", len(result.Audit))
	for _, entry := range result.Audit {
		log.Debug("audit entry", "action", entry.Action, "command", entry.Command, "return_code", entry.ReturnCode)
	}

	return nil
}
