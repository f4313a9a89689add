package engine

import (
	"context"
	"errors"

	"github.com/cloudstrap-io/cloudstrap/internal/resource"
	"github.com/cloudstrap-io/cloudstrap/internal/state"
)

// step binds a resource kind to its creation and teardown actions. Creation
// returns every state entry the step records; the first entry is always the
// kind's primary identifier.
type step struct {
	kind    resource.Kind
	create  func(ctx context.Context, e *Engine) ([]state.Entry, error)
	destroy func(ctx context.Context, e *Engine, id string) error
}

// stepTable holds the per-kind actions. Ordering comes from the dependency
// graph, never from this map.
var stepTable = map[resource.Kind]step{
	resource.KeyPair: {
		kind: resource.KeyPair,
		create: func(ctx context.Context, e *Engine) ([]state.Entry, error) {
			name, err := e.api.CreateKeyPair(ctx)
			if err != nil {
				return nil, err
			}
			return []state.Entry{{Key: resource.KeyPair.Key(), Value: name}}, nil
		},
		destroy: func(ctx context.Context, e *Engine, id string) error {
			return e.api.DeleteKeyPair(ctx, id)
		},
	},
	resource.Network: {
		kind: resource.Network,
		create: func(ctx context.Context, e *Engine) ([]state.Entry, error) {
			id, err := e.api.CreateNetwork(ctx)
			if err != nil {
				return nil, err
			}
			return []state.Entry{{Key: resource.Network.Key(), Value: id}}, nil
		},
		destroy: func(ctx context.Context, e *Engine, id string) error {
			return e.api.DeleteNetwork(ctx, id)
		},
	},
	resource.Gateway: {
		kind: resource.Gateway,
		create: func(ctx context.Context, e *Engine) ([]state.Entry, error) {
			networkID, err := e.dep(resource.Network)
			if err != nil {
				return nil, err
			}
			id, err := e.api.CreateGateway(ctx, networkID)
			if err != nil {
				return nil, err
			}
			return []state.Entry{{Key: resource.Gateway.Key(), Value: id}}, nil
		},
		destroy: func(ctx context.Context, e *Engine, id string) error {
			// The attachment must be broken before deletion. The network key
			// is normally still recorded at this point (networks are torn
			// down later); without it the detach is skipped.
			networkID, err := e.store.Get(resource.Network.Key())
			if err != nil && !errors.Is(err, state.ErrNotFound) {
				return err
			}
			return e.api.DeleteGateway(ctx, id, networkID)
		},
	},
	resource.PublicSubnet: {
		kind: resource.PublicSubnet,
		create: func(ctx context.Context, e *Engine) ([]state.Entry, error) {
			networkID, err := e.dep(resource.Network)
			if err != nil {
				return nil, err
			}
			id, err := e.api.CreateSubnet(ctx, networkID, true)
			if err != nil {
				return nil, err
			}
			return []state.Entry{{Key: resource.PublicSubnet.Key(), Value: id}}, nil
		},
		destroy: func(ctx context.Context, e *Engine, id string) error {
			return e.api.DeleteSubnet(ctx, id)
		},
	},
	resource.PrivateSubnet: {
		kind: resource.PrivateSubnet,
		create: func(ctx context.Context, e *Engine) ([]state.Entry, error) {
			networkID, err := e.dep(resource.Network)
			if err != nil {
				return nil, err
			}
			id, err := e.api.CreateSubnet(ctx, networkID, false)
			if err != nil {
				return nil, err
			}
			return []state.Entry{{Key: resource.PrivateSubnet.Key(), Value: id}}, nil
		},
		destroy: func(ctx context.Context, e *Engine, id string) error {
			return e.api.DeleteSubnet(ctx, id)
		},
	},
	resource.RouteTable: {
		kind: resource.RouteTable,
		create: func(ctx context.Context, e *Engine) ([]state.Entry, error) {
			networkID, err := e.dep(resource.Network)
			if err != nil {
				return nil, err
			}
			gatewayID, err := e.dep(resource.Gateway)
			if err != nil {
				return nil, err
			}
			subnetID, err := e.dep(resource.PublicSubnet)
			if err != nil {
				return nil, err
			}
			rt, err := e.api.CreateRouteTable(ctx, networkID, gatewayID, subnetID)
			if err != nil {
				return nil, err
			}
			return []state.Entry{
				{Key: resource.RouteTable.Key(), Value: rt.ID},
				{Key: resource.RouteAssociation.Key(), Value: rt.AssociationID},
			}, nil
		},
		destroy: func(ctx context.Context, e *Engine, id string) error {
			associationID, err := e.store.Get(resource.RouteAssociation.Key())
			if err != nil && !errors.Is(err, state.ErrNotFound) {
				return err
			}
			return e.api.DeleteRouteTable(ctx, id, associationID)
		},
	},
	resource.SecurityGroup: {
		kind: resource.SecurityGroup,
		create: func(ctx context.Context, e *Engine) ([]state.Entry, error) {
			networkID, err := e.dep(resource.Network)
			if err != nil {
				return nil, err
			}
			id, err := e.api.CreateSecurityGroup(ctx, networkID)
			if err != nil {
				return nil, err
			}
			return []state.Entry{{Key: resource.SecurityGroup.Key(), Value: id}}, nil
		},
		destroy: func(ctx context.Context, e *Engine, id string) error {
			return e.api.DeleteSecurityGroup(ctx, id)
		},
	},
	resource.Instance: {
		kind: resource.Instance,
		create: func(ctx context.Context, e *Engine) ([]state.Entry, error) {
			keyName, err := e.dep(resource.KeyPair)
			if err != nil {
				return nil, err
			}
			groupID, err := e.dep(resource.SecurityGroup)
			if err != nil {
				return nil, err
			}
			subnetID, err := e.dep(resource.PublicSubnet)
			if err != nil {
				return nil, err
			}
			inst, err := e.api.LaunchInstance(ctx, InstanceInputs{
				KeyName:         keyName,
				SecurityGroupID: groupID,
				SubnetID:        subnetID,
			})
			if err != nil {
				return nil, err
			}
			return []state.Entry{
				{Key: resource.Instance.Key(), Value: inst.ID},
				{Key: resource.KeyInstancePublicIP, Value: inst.PublicIP},
			}, nil
		},
		destroy: func(ctx context.Context, e *Engine, id string) error {
			return e.api.TerminateInstance(ctx, id)
		},
	},
	resource.Bucket: {
		kind: resource.Bucket,
		create: func(ctx context.Context, e *Engine) ([]state.Entry, error) {
			b, err := e.api.CreateBucket(ctx)
			if err != nil {
				return nil, err
			}
			return []state.Entry{
				{Key: resource.Bucket.Key(), Value: b.Name},
				{Key: resource.KeyBucketURL, Value: b.URL},
			}, nil
		},
		destroy: func(ctx context.Context, e *Engine, id string) error {
			return e.api.DeleteBucket(ctx, id)
		},
	},
}

// creationSteps returns the step list in topological creation order.
func creationSteps() []step {
	kinds := resource.CreationOrder()
	steps := make([]step, 0, len(kinds))
	for _, k := range kinds {
		steps = append(steps, stepTable[k])
	}
	return steps
}

// teardownSteps returns the step list in reverse topological order.
func teardownSteps() []step {
	kinds := resource.TeardownOrder()
	steps := make([]step, 0, len(kinds))
	for _, k := range kinds {
		steps = append(steps, stepTable[k])
	}
	return steps
}
