package engine

import (
	"context"
	"fmt"

	"github.com/cloudstrap-io/cloudstrap/internal/logging"
)

// Up executes the creation pipeline in dependency order. The first failing
// step aborts the whole run; resources created by earlier steps stay in
// place and recorded. Re-running is safe: the idempotency guard skips every
// step whose resource still exists.
func (e *Engine) Up(ctx context.Context) error {
	for _, st := range creationSteps() {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("pipeline cancelled: %w", err)
		}

		if !e.selected(st.kind) {
			logging.Info("step skipped by filter", "kind", st.kind)
			continue
		}

		id, ok, err := e.satisfied(ctx, st.kind)
		if err != nil {
			return fmt.Errorf("step %s: %w", st.kind, err)
		}
		if ok {
			logging.Info("resource already exists, reusing", "kind", st.kind, "id", id)
			continue
		}

		if e.opts.DryRun {
			placeholder := fmt.Sprintf("dry-run-%s", st.kind)
			logging.Info("would create resource", "kind", st.kind, "id", placeholder)
			e.placeholders[st.kind.Key()] = placeholder
			continue
		}

		logging.Info("creating resource", "kind", st.kind)
		entries, err := st.create(ctx, e)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", st.kind, err)
		}

		for _, entry := range entries {
			if err := e.store.Put(entry.Key, entry.Value); err != nil {
				return fmt.Errorf("failed to record %s: %w", entry.Key, err)
			}
		}
		logging.Info("resource created", "kind", st.kind, "id", entries[0].Value)
	}

	return nil
}
