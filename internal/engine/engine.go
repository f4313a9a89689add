package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/cloudstrap-io/cloudstrap/internal/logging"
	"github.com/cloudstrap-io/cloudstrap/internal/resource"
	"github.com/cloudstrap-io/cloudstrap/internal/state"
)

// RouteTableResult carries the route table identifier together with the
// subnet association identifier that must be disassociated before deletion.
type RouteTableResult struct {
	ID            string
	AssociationID string
}

// InstanceInputs are the dependency identifiers an instance launch needs.
type InstanceInputs struct {
	KeyName         string
	SecurityGroupID string
	SubnetID        string
}

// InstanceResult is the launched instance's identifier and public address.
type InstanceResult struct {
	ID       string
	PublicIP string
}

// BucketResult is the created bucket's name and derived URL.
type BucketResult struct {
	Name string
	URL  string
}

// CloudAPI is the provider boundary. Every call is a synchronous
// request/response against the external provider, scoped to one region.
// Exists never consults the local state store.
type CloudAPI interface {
	Preflight(ctx context.Context) error
	Exists(ctx context.Context, kind resource.Kind, id string) (bool, error)
	InstanceStatus(ctx context.Context, id string) (string, error)

	CreateNetwork(ctx context.Context) (string, error)
	CreateGateway(ctx context.Context, networkID string) (string, error)
	CreateSubnet(ctx context.Context, networkID string, public bool) (string, error)
	CreateRouteTable(ctx context.Context, networkID, gatewayID, subnetID string) (RouteTableResult, error)
	CreateSecurityGroup(ctx context.Context, networkID string) (string, error)
	CreateKeyPair(ctx context.Context) (string, error)
	LaunchInstance(ctx context.Context, in InstanceInputs) (InstanceResult, error)
	CreateBucket(ctx context.Context) (BucketResult, error)

	DeleteNetwork(ctx context.Context, id string) error
	DeleteGateway(ctx context.Context, id, networkID string) error
	DeleteSubnet(ctx context.Context, id string) error
	DeleteRouteTable(ctx context.Context, id, associationID string) error
	DeleteSecurityGroup(ctx context.Context, id string) error
	DeleteKeyPair(ctx context.Context, name string) error
	TerminateInstance(ctx context.Context, id string) error
	DeleteBucket(ctx context.Context, name string) error
}

// Options control a single pipeline run.
type Options struct {
	// DryRun suppresses all mutating provider calls and state writes; steps
	// log intent and hand synthetic placeholder identifiers downstream.
	DryRun bool
	// Skip lists kinds whose steps are left out of the run.
	Skip []resource.Kind
	// Only, when set, restricts the run to that single kind's step.
	Only resource.Kind
}

// Engine executes the fixed pipeline against one provider and one store.
type Engine struct {
	api   CloudAPI
	store *state.Store
	opts  Options

	// placeholders holds the synthetic identifiers handed out during a
	// dry run so downstream dependency reads resolve without store writes.
	placeholders map[string]string
}

// New returns an engine for one pipeline run.
func New(api CloudAPI, store *state.Store, opts Options) *Engine {
	return &Engine{
		api:          api,
		store:        store,
		opts:         opts,
		placeholders: make(map[string]string),
	}
}

// instanceUsable lists the provider-reported instance states under which the
// idempotency guard accepts a recorded instance as present.
var instanceUsable = map[string]bool{
	"pending": true,
	"running": true,
	"stopped": true,
}

// satisfied is the idempotency guard: a step is satisfied when its key is
// recorded AND the provider confirms the identifier still exists (and, for
// the instance, reports a usable status). A recorded-but-gone identifier is
// a signal to recreate, not an error.
func (e *Engine) satisfied(ctx context.Context, kind resource.Kind) (string, bool, error) {
	id, err := e.store.Get(kind.Key())
	if errors.Is(err, state.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}

	exists, err := e.api.Exists(ctx, kind, id)
	if err != nil {
		return "", false, fmt.Errorf("existence check for %s %s failed: %w", kind, id, err)
	}
	if !exists {
		logging.Info("recorded identifier no longer exists, will recreate", "kind", kind, "id", id)
		return "", false, nil
	}

	if kind == resource.Instance {
		status, err := e.api.InstanceStatus(ctx, id)
		if err != nil {
			return "", false, fmt.Errorf("status check for instance %s failed: %w", id, err)
		}
		if !instanceUsable[status] {
			logging.Info("recorded instance is not usable, will recreate", "id", id, "status", status)
			return "", false, nil
		}
	}

	return id, true, nil
}

// dep resolves a dependency identifier: dry-run placeholders first, then the
// store. An absent dependency fails the step.
func (e *Engine) dep(kind resource.Kind) (string, error) {
	if id, ok := e.placeholders[kind.Key()]; ok {
		return id, nil
	}
	id, err := e.store.Get(kind.Key())
	if errors.Is(err, state.ErrNotFound) {
		return "", fmt.Errorf("missing dependency: %s has no recorded identifier (key %s)", kind, kind.Key())
	}
	if err != nil {
		return "", err
	}
	return id, nil
}

// selected reports whether a step participates in this run under the
// --skip/--only filters.
func (e *Engine) selected(kind resource.Kind) bool {
	if e.opts.Only != "" {
		return kind == e.opts.Only
	}
	for _, s := range e.opts.Skip {
		if s == kind {
			return false
		}
	}
	return true
}
