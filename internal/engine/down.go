package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/cloudstrap-io/cloudstrap/internal/logging"
	"github.com/cloudstrap-io/cloudstrap/internal/resource"
	"github.com/cloudstrap-io/cloudstrap/internal/state"
)

// Down executes the teardown pipeline in reverse dependency order. Unlike
// Up, teardown is best-effort: a failing deletion is recorded and the run
// continues, with every failure aggregated into the returned error. The
// store is cleared only after a fully successful run.
func (e *Engine) Down(ctx context.Context) error {
	var errs []error

	for _, st := range teardownSteps() {
		if err := ctx.Err(); err != nil {
			errs = append(errs, fmt.Errorf("teardown cancelled: %w", err))
			break
		}

		if !e.selected(st.kind) {
			logging.Info("step skipped by filter", "kind", st.kind)
			continue
		}

		if err := e.teardownOne(ctx, st); err != nil {
			logging.Error("teardown step failed, continuing", "kind", st.kind, "error", err)
			errs = append(errs, fmt.Errorf("failed to delete %s: %w", st.kind, err))
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	// Everything above removed its own keys; Clear sweeps companions and
	// strays so a successful teardown always leaves an empty store.
	if e.filtered() {
		return nil
	}
	if e.opts.DryRun {
		logging.Info("would clear state")
		return nil
	}
	return e.store.Clear()
}

// teardownOne deletes a single kind's resource. An unrecorded key and a
// recorded-but-gone identifier are both trivially successful.
func (e *Engine) teardownOne(ctx context.Context, st step) error {
	id, err := e.store.Get(st.kind.Key())
	if errors.Is(err, state.ErrNotFound) {
		logging.Info("no recorded identifier, nothing to delete", "kind", st.kind)
		return nil
	}
	if err != nil {
		return err
	}

	exists, err := e.api.Exists(ctx, st.kind, id)
	if err != nil {
		return fmt.Errorf("existence check for %s failed: %w", id, err)
	}
	if !exists {
		logging.Info("resource already gone, removing record", "kind", st.kind, "id", id)
		return e.removeKeys(st.kind)
	}

	if e.opts.DryRun {
		logging.Info("would delete resource", "kind", st.kind, "id", id)
		return nil
	}

	logging.Info("deleting resource", "kind", st.kind, "id", id)
	if err := st.destroy(ctx, e, id); err != nil {
		return err
	}
	return e.removeKeys(st.kind)
}

// removeKeys deletes a kind's primary key and its companion keys after a
// confirmed deletion.
func (e *Engine) removeKeys(kind resource.Kind) error {
	if err := e.store.Delete(kind.Key()); err != nil {
		return err
	}
	for _, key := range kind.Companions() {
		if err := e.store.Delete(key); err != nil {
			return err
		}
	}
	return nil
}

// filtered reports whether this run covered less than the whole pipeline.
func (e *Engine) filtered() bool {
	return e.opts.Only != "" || len(e.opts.Skip) > 0
}
