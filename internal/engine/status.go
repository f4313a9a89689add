package engine

import (
	"context"
	"errors"

	"github.com/cloudstrap-io/cloudstrap/internal/resource"
	"github.com/cloudstrap-io/cloudstrap/internal/state"
)

// KindStatus is one row of the existence report.
type KindStatus struct {
	Kind    resource.Kind
	ID      string
	Present bool
	// Status is the live provider-reported state, instances only.
	Status string
	// Address is the recorded public address, running instances only.
	Address string
}

// Status walks the recorded identifiers in creation order and re-queries the
// provider for each. It never mutates the store.
func (e *Engine) Status(ctx context.Context) ([]KindStatus, error) {
	var report []KindStatus

	for _, kind := range resource.CreationOrder() {
		id, err := e.store.Get(kind.Key())
		if errors.Is(err, state.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}

		row := KindStatus{Kind: kind, ID: id}

		exists, err := e.api.Exists(ctx, kind, id)
		if err != nil {
			return nil, err
		}
		row.Present = exists

		if kind == resource.Instance && exists {
			status, err := e.api.InstanceStatus(ctx, id)
			if err != nil {
				return nil, err
			}
			row.Status = status
			if status == "running" {
				if addr, err := e.store.Get(resource.KeyInstancePublicIP); err == nil {
					row.Address = addr
				}
			}
		}

		report = append(report, row)
	}

	return report, nil
}
