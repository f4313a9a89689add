package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cloudstrap-io/cloudstrap/internal/config"
	"github.com/cloudstrap-io/cloudstrap/internal/state"
)

var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Inspect and edit the state file",
}

var stateListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded identifiers",
	RunE:  runStateList,
}

var stateRmCmd = &cobra.Command{
	Use:   "rm <KEY>",
	Short: "Remove one key from state (does not delete the resource)",
	Long: `Removes a single recorded key. The resource itself is untouched; use this
to recover from a record that no longer matches reality, for example after
an interrupted run.`,
	Args: cobra.ExactArgs(1),
	RunE: runStateRm,
}

func init() {
	stateCmd.AddCommand(stateListCmd)
	stateCmd.AddCommand(stateRmCmd)
}

// stateStore opens the store without full config validation, so state can
// be inspected even with an incomplete configuration.
func stateStore() (*state.Store, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	return state.NewStore(cfg.StateFile, false), nil
}

func runStateList(cmd *cobra.Command, args []string) error {
	store, err := stateStore()
	if err != nil {
		return err
	}

	entries, err := store.Snapshot()
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Println("State is empty.")
		return nil
	}

	for _, e := range entries {
		fmt.Printf("%s=%s\n", e.Key, e.Value)
	}
	return nil
}

func runStateRm(cmd *cobra.Command, args []string) error {
	store, err := stateStore()
	if err != nil {
		return err
	}

	key := args[0]
	if _, err := store.Get(key); err != nil {
		return err
	}
	if err := store.Delete(key); err != nil {
		return err
	}

	fmt.Printf("Removed %s from state (resource was NOT deleted)\n", key)
	return nil
}
