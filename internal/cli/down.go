package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cloudstrap-io/cloudstrap/internal/engine"
	"github.com/cloudstrap-io/cloudstrap/internal/state"
	"github.com/cloudstrap-io/cloudstrap/providers/aws"
)

var (
	downDryRun      bool
	downAutoApprove bool
	downSkip        []string
	downOnly        string
)

var downCmd = &cobra.Command{
	Use:   "down",
	Short: "Tear down the environment",
	Long: `Deletes every recorded resource in reverse dependency order.

Teardown is best-effort: a failing deletion is reported but the remaining
steps still run. The state file is cleared only when everything was
deleted.`,
	RunE: runDown,
}

func init() {
	downCmd.Flags().BoolVar(&downDryRun, "dry-run", false, "Log intended deletions without deleting anything")
	downCmd.Flags().BoolVar(&downAutoApprove, "auto-approve", false, "Skip interactive approval before teardown")
	downCmd.Flags().StringArrayVar(&downSkip, "skip", nil, "Skip this step (repeatable)")
	downCmd.Flags().StringVar(&downOnly, "only", "", "Run only this step")
}

func runDown(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	opts, err := buildOptions(downDryRun, downSkip, downOnly)
	if err != nil {
		return err
	}

	provider, err := aws.New(ctx, cfg)
	if err != nil {
		return err
	}
	if err := provider.Preflight(ctx); err != nil {
		return err
	}

	store := state.NewStore(cfg.StateFile, downDryRun)
	eng := engine.New(provider, store, opts)

	entries, err := store.Snapshot()
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Println("Nothing recorded in state. Nothing to tear down.")
		return nil
	}

	fmt.Printf("%sThis will delete %d recorded resource(s).%s\n", colorRed, len(entries), colorReset)

	if !downAutoApprove && !downDryRun {
		if !confirm("\nDo you really want to destroy all resources? (y/n): ") {
			return fmt.Errorf("teardown cancelled")
		}
	}

	fmt.Println()
	if err := eng.Down(ctx); err != nil {
		return fmt.Errorf("teardown finished with errors: %w", err)
	}

	if downDryRun {
		fmt.Println("\nDry run complete. No resources were deleted.")
		return nil
	}

	fmt.Printf("\n%sTeardown complete.%s\n", colorGreen, colorReset)
	return nil
}
