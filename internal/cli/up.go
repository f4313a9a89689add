package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cloudstrap-io/cloudstrap/internal/engine"
	"github.com/cloudstrap-io/cloudstrap/internal/resource"
	"github.com/cloudstrap-io/cloudstrap/internal/state"
	"github.com/cloudstrap-io/cloudstrap/providers/aws"
)

var (
	upDryRun      bool
	upAutoApprove bool
	upSkip        []string
	upOnly        string
)

var upCmd = &cobra.Command{
	Use:   "up",
	Short: "Provision the environment",
	Long: `Creates every resource of the fixed environment in dependency order.

Resources recorded in the state file that still exist are reused; the rest
are created and recorded. The first failing step aborts the run, leaving
earlier resources intact.`,
	RunE: runUp,
}

func init() {
	upCmd.Flags().BoolVar(&upDryRun, "dry-run", false, "Log intended actions without creating anything")
	upCmd.Flags().BoolVar(&upAutoApprove, "auto-approve", false, "Skip interactive approval before provisioning")
	upCmd.Flags().StringArrayVar(&upSkip, "skip", nil, "Skip this step (repeatable)")
	upCmd.Flags().StringVar(&upOnly, "only", "", "Run only this step")
}

func runUp(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	opts, err := buildOptions(upDryRun, upSkip, upOnly)
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

	store := state.NewStore(cfg.StateFile, upDryRun)
	eng := engine.New(provider, store, opts)

	fmt.Println("Cloudstrap will perform the following steps:")
	renderPlannedSteps(opts)

	if !upAutoApprove && !upDryRun {
		if !confirm("\nDo you want to proceed? (y/n): ") {
			return fmt.Errorf("provisioning cancelled")
		}
	}

	fmt.Println()
	if err := eng.Up(ctx); err != nil {
		return fmt.Errorf("provisioning failed: %w", err)
	}

	if upDryRun {
		fmt.Println("\nDry run complete. No resources were created.")
		return nil
	}

	fmt.Printf("\n%sEnvironment ready.%s\n", colorGreen, colorReset)

	entries, err := store.Snapshot()
	if err != nil {
		return err
	}
	if len(entries) > 0 {
		fmt.Println("\nRecorded identifiers:")
		for _, e := range entries {
			fmt.Printf("  %-20s %s\n", e.Key, e.Value)
		}
	}
	return nil
}

// buildOptions parses the --skip/--only flag values into engine options.
func buildOptions(dryRun bool, skip []string, only string) (engine.Options, error) {
	opts := engine.Options{DryRun: dryRun}

	for _, s := range skip {
		kind, err := resource.Parse(s)
		if err != nil {
			return engine.Options{}, err
		}
		opts.Skip = append(opts.Skip, kind)
	}
	if only != "" {
		kind, err := resource.Parse(only)
		if err != nil {
			return engine.Options{}, err
		}
		opts.Only = kind
	}
	return opts, nil
}
