package cli

import (
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cloudstrap-io/cloudstrap/internal/config"
	"github.com/cloudstrap-io/cloudstrap/internal/logging"
)

var (
	configPath  string
	verbose     bool
	logFilePath string
)

var rootCmd = &cobra.Command{
	Use:   "cloudstrap",
	Short: "Provision a fixed cloud environment",
	Long: `Cloudstrap provisions one fixed AWS environment — a VPC with public and
private subnets, internet gateway, route table, security group, a single
EC2 instance, and an S3 bucket — records every created identifier in a
flat state file, and tears the whole thing down again in reverse order.

Re-running is safe: resources that still exist are detected and reused.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultPath, "Path to the configuration file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&logFilePath, "log-file", "", "Override the log file path")

	rootCmd.AddCommand(upCmd)
	rootCmd.AddCommand(downCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(stateCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig reads and validates the configuration record, then wires the
// logger for this session.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	level := "info"
	if verbose {
		level = "debug"
	}
	logPath := cfg.LogFile
	if logFilePath != "" {
		logPath = logFilePath
	}
	if err := logging.Init(level, logPath, logging.Session{
		Command: strings.Join(os.Args, " "),
		Region:  cfg.Region,
	}); err != nil {
		return nil, err
	}

	return cfg, nil
}
