package engine

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudstrap-io/cloudstrap/internal/resource"
	"github.com/cloudstrap-io/cloudstrap/internal/state"
)

// fakeAPI is an in-memory CloudAPI for exercising the orchestrator without
// a real provider.
type fakeAPI struct {
	nextID    int
	resources map[resource.Kind]map[string]bool
	statuses  map[string]string

	createCalls map[resource.Kind]int
	deleteCalls map[resource.Kind]int
	failCreate  map[resource.Kind]error
	failDelete  map[resource.Kind]error

	gatewayNetwork string
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		resources:   make(map[resource.Kind]map[string]bool),
		statuses:    make(map[string]string),
		createCalls: make(map[resource.Kind]int),
		deleteCalls: make(map[resource.Kind]int),
		failCreate:  make(map[resource.Kind]error),
		failDelete:  make(map[resource.Kind]error),
	}
}

func (f *fakeAPI) mint(kind resource.Kind, prefix string) (string, error) {
	f.createCalls[kind]++
	if err := f.failCreate[kind]; err != nil {
		return "", err
	}
	f.nextID++
	id := fmt.Sprintf("%s-%04d", prefix, f.nextID)
	if f.resources[kind] == nil {
		f.resources[kind] = make(map[string]bool)
	}
	f.resources[kind][id] = true
	return id, nil
}

func (f *fakeAPI) drop(kind resource.Kind, id string) error {
	f.deleteCalls[kind]++
	if err := f.failDelete[kind]; err != nil {
		return err
	}
	delete(f.resources[kind], id)
	return nil
}

func (f *fakeAPI) Preflight(context.Context) error { return nil }

func (f *fakeAPI) Exists(_ context.Context, kind resource.Kind, id string) (bool, error) {
	return f.resources[kind][id], nil
}

func (f *fakeAPI) InstanceStatus(_ context.Context, id string) (string, error) {
	if s, ok := f.statuses[id]; ok {
		return s, nil
	}
	return "running", nil
}

func (f *fakeAPI) CreateNetwork(ctx context.Context) (string, error) {
	return f.mint(resource.Network, "vpc")
}

func (f *fakeAPI) CreateGateway(ctx context.Context, networkID string) (string, error) {
	f.gatewayNetwork = networkID
	return f.mint(resource.Gateway, "igw")
}

func (f *fakeAPI) CreateSubnet(ctx context.Context, networkID string, public bool) (string, error) {
	kind := resource.PrivateSubnet
	if public {
		kind = resource.PublicSubnet
	}
	return f.mint(kind, "subnet")
}

func (f *fakeAPI) CreateRouteTable(ctx context.Context, networkID, gatewayID, subnetID string) (RouteTableResult, error) {
	id, err := f.mint(resource.RouteTable, "rtb")
	if err != nil {
		return RouteTableResult{}, err
	}
	return RouteTableResult{ID: id, AssociationID: "rtbassoc-" + id}, nil
}

func (f *fakeAPI) CreateSecurityGroup(ctx context.Context, networkID string) (string, error) {
	return f.mint(resource.SecurityGroup, "sg")
}

func (f *fakeAPI) CreateKeyPair(ctx context.Context) (string, error) {
	return f.mint(resource.KeyPair, "key")
}

func (f *fakeAPI) LaunchInstance(ctx context.Context, in InstanceInputs) (InstanceResult, error) {
	id, err := f.mint(resource.Instance, "i")
	if err != nil {
		return InstanceResult{}, err
	}
	return InstanceResult{ID: id, PublicIP: "203.0.113.10"}, nil
}

func (f *fakeAPI) CreateBucket(ctx context.Context) (BucketResult, error) {
	name, err := f.mint(resource.Bucket, "bucket")
	if err != nil {
		return BucketResult{}, err
	}
	return BucketResult{Name: name, URL: "https://" + name + ".example.com"}, nil
}

func (f *fakeAPI) DeleteNetwork(_ context.Context, id string) error {
	return f.drop(resource.Network, id)
}

func (f *fakeAPI) DeleteGateway(_ context.Context, id, networkID string) error {
	return f.drop(resource.Gateway, id)
}

func (f *fakeAPI) DeleteSubnet(_ context.Context, id string) error {
	for _, kind := range []resource.Kind{resource.PublicSubnet, resource.PrivateSubnet} {
		if f.resources[kind][id] {
			return f.drop(kind, id)
		}
	}
	return f.drop(resource.PublicSubnet, id)
}

func (f *fakeAPI) DeleteRouteTable(_ context.Context, id, associationID string) error {
	return f.drop(resource.RouteTable, id)
}

func (f *fakeAPI) DeleteSecurityGroup(_ context.Context, id string) error {
	return f.drop(resource.SecurityGroup, id)
}

func (f *fakeAPI) DeleteKeyPair(_ context.Context, name string) error {
	return f.drop(resource.KeyPair, name)
}

func (f *fakeAPI) TerminateInstance(_ context.Context, id string) error {
	return f.drop(resource.Instance, id)
}

func (f *fakeAPI) DeleteBucket(_ context.Context, name string) error {
	return f.drop(resource.Bucket, name)
}

func newTestStore(t *testing.T) *state.Store {
	t.Helper()
	return state.NewStore(filepath.Join(t.TempDir(), "state.env"), false)
}

func TestUp_FreshStore(t *testing.T) {
	ctx := context.Background()
	api := newFakeAPI()
	store := newTestStore(t)

	eng := New(api, store, Options{})
	require.NoError(t, eng.Up(ctx))

	for _, kind := range resource.All {
		id, err := store.Get(kind.Key())
		require.NoError(t, err, "expected %s to be recorded", kind)
		assert.NotEmpty(t, id)
	}

	// The gateway was attached to the recorded network.
	networkID, err := store.Get(resource.Network.Key())
	require.NoError(t, err)
	assert.Equal(t, networkID, api.gatewayNetwork)

	// Companion keys were recorded too.
	assoc, err := store.Get(resource.RouteAssociation.Key())
	require.NoError(t, err)
	assert.NotEmpty(t, assoc)

	ip, err := store.Get(resource.KeyInstancePublicIP)
	require.NoError(t, err)
	assert.Equal(t, "203.0.113.10", ip)
}

func TestUp_Idempotent(t *testing.T) {
	ctx := context.Background()
	api := newFakeAPI()
	store := newTestStore(t)

	require.NoError(t, New(api, store, Options{}).Up(ctx))

	first, err := store.Snapshot()
	require.NoError(t, err)

	require.NoError(t, New(api, store, Options{}).Up(ctx))

	second, err := store.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, first, second, "identifiers must not change on re-run")

	for _, kind := range resource.All {
		assert.Equal(t, 1, api.createCalls[kind], "expected exactly one creation call for %s", kind)
	}
}

func TestUp_StaleIdentifierIsRecreated(t *testing.T) {
	ctx := context.Background()
	api := newFakeAPI()
	store := newTestStore(t)

	require.NoError(t, New(api, store, Options{}).Up(ctx))

	// Simulate the instance vanishing out-of-band.
	staleID, err := store.Get(resource.Instance.Key())
	require.NoError(t, err)
	delete(api.resources[resource.Instance], staleID)

	require.NoError(t, New(api, store, Options{}).Up(ctx))

	newID, err := store.Get(resource.Instance.Key())
	require.NoError(t, err)
	assert.NotEqual(t, staleID, newID, "stale identifier must be overwritten")
	assert.Equal(t, 2, api.createCalls[resource.Instance])
}

func TestUp_StoredFakeInstanceIsReplaced(t *testing.T) {
	ctx := context.Background()
	api := newFakeAPI()
	store := newTestStore(t)

	require.NoError(t, store.Put(resource.Instance.Key(), "i-fake123"))

	require.NoError(t, New(api, store, Options{}).Up(ctx))

	id, err := store.Get(resource.Instance.Key())
	require.NoError(t, err)
	assert.NotEqual(t, "i-fake123", id)
}

func TestUp_StoppedInstanceIsReused(t *testing.T) {
	ctx := context.Background()
	api := newFakeAPI()
	store := newTestStore(t)

	require.NoError(t, New(api, store, Options{}).Up(ctx))

	id, err := store.Get(resource.Instance.Key())
	require.NoError(t, err)
	api.statuses[id] = "stopped"

	require.NoError(t, New(api, store, Options{}).Up(ctx))
	assert.Equal(t, 1, api.createCalls[resource.Instance])
}

func TestUp_FailFast(t *testing.T) {
	ctx := context.Background()
	api := newFakeAPI()
	store := newTestStore(t)

	api.failCreate[resource.SecurityGroup] = fmt.Errorf("simulated provider failure")

	err := New(api, store, Options{}).Up(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "security-group")

	// Steps before the failure kept their resources and records.
	for _, kind := range []resource.Kind{resource.KeyPair, resource.Network, resource.Gateway} {
		_, err := store.Get(kind.Key())
		assert.NoError(t, err, "expected %s to remain recorded", kind)
	}

	// Steps after the failure never ran.
	for _, kind := range []resource.Kind{resource.RouteTable, resource.Instance} {
		_, err := store.Get(kind.Key())
		assert.ErrorIs(t, err, state.ErrNotFound, "expected %s to be absent", kind)
		assert.Zero(t, api.createCalls[kind])
	}
}

func TestUp_DependencyMissing(t *testing.T) {
	ctx := context.Background()
	api := newFakeAPI()
	store := newTestStore(t)

	err := New(api, store, Options{Only: resource.Gateway}).Up(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing dependency")
	assert.Zero(t, api.createCalls[resource.Gateway])
}

func TestUp_DryRunWritesNothing(t *testing.T) {
	ctx := context.Background()
	api := newFakeAPI()
	store := newTestStore(t)

	require.NoError(t, New(api, store, Options{DryRun: true}).Up(ctx))

	entries, err := store.Snapshot()
	require.NoError(t, err)
	assert.Empty(t, entries, "dry run must not write state")

	for _, kind := range resource.All {
		assert.Zero(t, api.createCalls[kind], "dry run must not create %s", kind)
	}
}

func TestUp_SkipFilter(t *testing.T) {
	ctx := context.Background()
	api := newFakeAPI()
	store := newTestStore(t)

	opts := Options{Skip: []resource.Kind{resource.Bucket, resource.Instance}}
	require.NoError(t, New(api, store, opts).Up(ctx))

	assert.Zero(t, api.createCalls[resource.Bucket])
	assert.Zero(t, api.createCalls[resource.Instance])
	assert.Equal(t, 1, api.createCalls[resource.Network])
}

func TestDown_FullTeardown(t *testing.T) {
	ctx := context.Background()
	api := newFakeAPI()
	store := newTestStore(t)

	require.NoError(t, New(api, store, Options{}).Up(ctx))
	require.NoError(t, New(api, store, Options{}).Down(ctx))

	entries, err := store.Snapshot()
	require.NoError(t, err)
	assert.Empty(t, entries, "teardown must leave an empty store")

	for _, kind := range resource.All {
		assert.Empty(t, api.resources[kind], "expected all %s resources deleted", kind)
	}
}

func TestDown_EmptyStore(t *testing.T) {
	ctx := context.Background()
	api := newFakeAPI()
	store := newTestStore(t)

	require.NoError(t, New(api, store, Options{}).Down(ctx))

	for _, kind := range resource.All {
		assert.Zero(t, api.deleteCalls[kind])
	}
}

func TestDown_BestEffort(t *testing.T) {
	ctx := context.Background()
	api := newFakeAPI()
	store := newTestStore(t)

	require.NoError(t, New(api, store, Options{}).Up(ctx))

	api.failDelete[resource.Gateway] = fmt.Errorf("simulated deletion failure")

	err := New(api, store, Options{}).Down(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gateway")

	// Everything else was still torn down and unrecorded.
	entries, storeErr := store.Snapshot()
	require.NoError(t, storeErr)
	require.Len(t, entries, 1)
	assert.Equal(t, resource.Gateway.Key(), entries[0].Key)

	assert.Equal(t, 1, api.deleteCalls[resource.Network], "later steps must still run")
	assert.Equal(t, 1, api.deleteCalls[resource.KeyPair])
}

func TestDown_StaleKeyIsSweptWithoutDeletion(t *testing.T) {
	ctx := context.Background()
	api := newFakeAPI()
	store := newTestStore(t)

	require.NoError(t, store.Put(resource.Bucket.Key(), "gone-bucket"))

	require.NoError(t, New(api, store, Options{}).Down(ctx))

	assert.Zero(t, api.deleteCalls[resource.Bucket], "absent resource must not be deleted")
	entries, err := store.Snapshot()
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestDown_FilteredRunKeepsOtherRecords(t *testing.T) {
	ctx := context.Background()
	api := newFakeAPI()
	store := newTestStore(t)

	require.NoError(t, New(api, store, Options{}).Up(ctx))

	opts := Options{Only: resource.Bucket}
	require.NoError(t, New(api, store, opts).Down(ctx))

	_, err := store.Get(resource.Bucket.Key())
	assert.ErrorIs(t, err, state.ErrNotFound)

	// A filtered teardown never clears the store wholesale.
	_, err = store.Get(resource.Network.Key())
	assert.NoError(t, err)
	_, err = store.Get(resource.Instance.Key())
	assert.NoError(t, err)
}

func TestStatus_ReportsRecordedResources(t *testing.T) {
	ctx := context.Background()
	api := newFakeAPI()
	store := newTestStore(t)

	require.NoError(t, New(api, store, Options{}).Up(ctx))

	report, err := New(api, store, Options{}).Status(ctx)
	require.NoError(t, err)
	require.Len(t, report, len(resource.All))

	for _, row := range report {
		assert.True(t, row.Present, "%s should be present", row.Kind)
		if row.Kind == resource.Instance {
			assert.Equal(t, "running", row.Status)
			assert.Equal(t, "203.0.113.10", row.Address)
		} else {
			assert.Empty(t, row.Status)
		}
	}
}

func TestStatus_FlagsVanishedResource(t *testing.T) {
	ctx := context.Background()
	api := newFakeAPI()
	store := newTestStore(t)

	require.NoError(t, New(api, store, Options{}).Up(ctx))

	bucket, err := store.Get(resource.Bucket.Key())
	require.NoError(t, err)
	delete(api.resources[resource.Bucket], bucket)

	report, err := New(api, store, Options{}).Status(ctx)
	require.NoError(t, err)

	for _, row := range report {
		if row.Kind == resource.Bucket {
			assert.False(t, row.Present)
		} else {
			assert.True(t, row.Present, "%s should still be present", row.Kind)
		}
	}

	// Status never mutates the store.
	_, err = store.Get(resource.Bucket.Key())
	assert.NoError(t, err)
}

func TestStatus_StoppedInstanceHasNoAddress(t *testing.T) {
	ctx := context.Background()
	api := newFakeAPI()
	store := newTestStore(t)

	require.NoError(t, New(api, store, Options{}).Up(ctx))

	id, err := store.Get(resource.Instance.Key())
	require.NoError(t, err)
	api.statuses[id] = "stopped"

	report, err := New(api, store, Options{}).Status(ctx)
	require.NoError(t, err)

	for _, row := range report {
		if row.Kind == resource.Instance {
			assert.Equal(t, "stopped", row.Status)
			assert.Empty(t, row.Address)
		}
	}
}

func TestStatus_EmptyStore(t *testing.T) {
	ctx := context.Background()
	report, err := New(newFakeAPI(), newTestStore(t), Options{}).Status(ctx)
	require.NoError(t, err)
	assert.Empty(t, report)
}

func TestDown_DryRunDeletesNothing(t *testing.T) {
	ctx := context.Background()
	api := newFakeAPI()
	store := newTestStore(t)

	require.NoError(t, New(api, store, Options{}).Up(ctx))
	require.NoError(t, New(api, store, Options{DryRun: true}).Down(ctx))

	for _, kind := range resource.All {
		assert.Zero(t, api.deleteCalls[kind])
	}
	entries, err := store.Snapshot()
	require.NoError(t, err)
	assert.NotEmpty(t, entries, "dry run must keep the records")
}
