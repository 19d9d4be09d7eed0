// Command faultctl is a thin smoke-testing harness around the fault-injection engine, the way
// cmd/chaos-runner is a thin harness around jhkimqd/chaos-utils's orchestrator. It loads a
// single FaultDescriptor from a YAML file and drives it through the scheduler once. It is never
// imported by the core packages — the production surface is pkg/scheduler, pkg/synth, and
// pkg/nsexec consumed directly by whatever external harness declares faults and supplies
// process IDs.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	cfgFile string
	verbose bool
	version = "dev"
)

var rootCmd = &cobra.Command{
	Use:     "faultctl",
	Short:   "Manual driver for the faultd fault-injection engine",
	Long:    `faultctl loads one fault descriptor from a YAML file and drives it through the injection scheduler once, for manual smoke-testing against a real namespace.`,
	Version: version,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "engine config file (default faultd.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(runCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
