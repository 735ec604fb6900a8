package hub

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetware/hub/pkg/model"
	"github.com/fleetware/hub/pkg/storage"
	"github.com/fleetware/hub/pkg/storage/memory"
)

func newPolicyFixture(t *testing.T) (storage.Interface, *Resolver) {
	t.Helper()
	store := memory.NewStore()
	return store, NewResolver(store, "default")
}

func createGroup(t *testing.T, store storage.Interface, name string, members ...string) int32 {
	t.Helper()
	g := &model.Group{Namespace: "default", Name: name}
	require.NoError(t, store.Groups().Create(g))
	for _, id := range members {
		require.NoError(t, store.Groups().AddMember(g.ID, id))
	}
	return g.ID
}

func createGroupPolicy(t *testing.T, store storage.Interface, groupID int32, pkg string, typ model.PolicyType) {
	t.Helper()
	require.NoError(t, store.Policies().Create(&model.AppPolicy{
		Namespace:   "default",
		GroupID:     groupID,
		PackageName: pkg,
		Type:        typ,
	}))
}

func TestResolverUnionsGroupsAndIndividualEntries(t *testing.T) {
	store, resolver := newPolicyFixture(t)

	sales := createGroup(t, store, "sales", "dev-1")
	field := createGroup(t, store, "field", "dev-1")

	createGroupPolicy(t, store, sales, "com.crm.app", model.PolicyAllow)
	createGroupPolicy(t, store, field, "com.maps.app", model.PolicyAllow)
	createGroupPolicy(t, store, field, "com.game.app", model.PolicyBlock)

	require.NoError(t, store.Policies().Create(&model.AppPolicy{
		Namespace:   "default",
		EndpointID:  "dev-1",
		PackageName: "com.debug.tool",
		Type:        model.PolicyAllow,
	}))

	policy, err := resolver.Resolve("dev-1")
	require.NoError(t, err)

	// Group entries add to the individual ones, never remove them.
	assert.Equal(t, []string{"com.crm.app", "com.debug.tool", "com.maps.app"}, policy.Allowed)
	assert.Equal(t, []string{"com.game.app"}, policy.Blocked)
	assert.Empty(t, policy.Required)
}

func TestResolverMostRestrictiveTypeWins(t *testing.T) {
	store, resolver := newPolicyFixture(t)

	g1 := createGroup(t, store, "g1", "dev-1")
	g2 := createGroup(t, store, "g2", "dev-1")

	// The same package allowed by one group and blocked by another.
	createGroupPolicy(t, store, g1, "com.social.app", model.PolicyAllow)
	createGroupPolicy(t, store, g2, "com.social.app", model.PolicyBlock)

	// Require beats allow.
	createGroupPolicy(t, store, g1, "com.vpn.app", model.PolicyAllow)
	createGroupPolicy(t, store, g2, "com.vpn.app", model.PolicyRequire)

	policy, err := resolver.Resolve("dev-1")
	require.NoError(t, err)

	assert.Equal(t, []string{"com.social.app"}, policy.Blocked)
	assert.Equal(t, []string{"com.vpn.app"}, policy.Required)
	assert.Empty(t, policy.Allowed)
}

func TestResolverMergesRestrictions(t *testing.T) {
	store, resolver := newPolicyFixture(t)

	g1 := createGroup(t, store, "g1", "dev-1")
	g2 := createGroup(t, store, "g2", "dev-1")

	require.NoError(t, store.Policies().SetRestrictionsForGroup(g1, model.Restrictions{
		CameraDisabled: true,
	}))
	require.NoError(t, store.Policies().SetRestrictionsForGroup(g2, model.Restrictions{
		USBDisabled: true,
	}))
	require.NoError(t, store.Policies().SetRestrictionsForEndpoint("default", "dev-1", model.Restrictions{
		BluetoothDisabled: true,
	}))

	policy, err := resolver.Resolve("dev-1")
	require.NoError(t, err)

	// A feature disabled by any source stays disabled.
	assert.True(t, policy.Restrictions.CameraDisabled)
	assert.True(t, policy.Restrictions.USBDisabled)
	assert.True(t, policy.Restrictions.BluetoothDisabled)
	assert.False(t, policy.Restrictions.WifiDisabled)
	assert.False(t, policy.Restrictions.LocationDisabled)
}

func TestResolverEmptyForUnknownEndpoint(t *testing.T) {
	_, resolver := newPolicyFixture(t)

	policy, err := resolver.Resolve("dev-9")
	require.NoError(t, err)

	assert.Empty(t, policy.Allowed)
	assert.Empty(t, policy.Blocked)
	assert.Empty(t, policy.Required)
	assert.Equal(t, model.Restrictions{}, policy.Restrictions)
}
