package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cloudstrap-io/cloudstrap/internal/engine"
	"github.com/cloudstrap-io/cloudstrap/internal/state"
	"github.com/cloudstrap-io/cloudstrap/providers/aws"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Report the live state of recorded resources",
	Long: `Re-queries the provider for every identifier recorded in the state file
and reports whether each resource still exists. Never modifies anything.`,
	RunE: runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	provider, err := aws.New(ctx, cfg)
	if err != nil {
		return err
	}
	if err := provider.Preflight(ctx); err != nil {
		return err
	}

	store := state.NewStore(cfg.StateFile, false)
	eng := engine.New(provider, store, engine.Options{})

	report, err := eng.Status(ctx)
	if err != nil {
		return fmt.Errorf("status check failed: %w", err)
	}

	if len(report) == 0 {
		fmt.Println("Nothing recorded in state.")
		return nil
	}

	fmt.Printf("Resources recorded in %s:\n\n", cfg.StateFile)
	renderStatus(report)
	return nil
}
