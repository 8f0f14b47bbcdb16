package entitlements

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/skillgate/pkg/features"
)

func TestNewCachedStore_Disabled(t *testing.T) {
	mem := newMemStore()
	assert.Same(t, mem, NewCachedStore(mem, 0, time.Minute))
	assert.Same(t, mem, NewCachedStore(mem, 16, 0))
}

func TestCachedStore_CachesCatalog(t *testing.T) {
	ctx := context.Background()
	mem := newMemStore()
	cached := NewCachedStore(mem, 16, time.Minute).(*CachedStore)

	for i := 0; i < 3; i++ {
		pkg, err := cached.GetActivePackageByFeatureType(ctx, features.DPIA)
		require.NoError(t, err)
		assert.Nil(t, pkg)
	}
	assert.Equal(t, 1, mem.packageLookups)
	assert.Equal(t, 1, cached.Len())

	admin := NewAdmin(cached, testLogger(), WithAdminClock(newFixedClock(testNow)))
	_, err := admin.UpsertPackage(ctx, PackageRequest{SkillID: "com.privacy.dpia", Name: "DPIA", FeatureType: features.DPIA})
	require.NoError(t, err)
	assert.Equal(t, 0, cached.Len())

	pkg, err := cached.GetActivePackageByFeatureType(ctx, features.DPIA)
	require.NoError(t, err)
	require.NotNil(t, pkg)
	assert.Equal(t, 2, mem.packageLookups)
}

func TestCachedStore_EntitlementsBypassCache(t *testing.T) {
	ctx := context.Background()
	mem := newMemStore()
	cached := NewCachedStore(mem, 16, time.Minute)
	clock := newFixedClock(testNow)
	admin := NewAdmin(cached, testLogger(), WithAdminClock(clock))
	resolver := NewResolver(cached, testLogger(), WithResolverClock(clock))

	pkg, err := admin.UpsertPackage(ctx, PackageRequest{SkillID: "com.privacy.lia", Name: "LIA", FeatureType: features.LIA})
	require.NoError(t, err)
	c, err := admin.CreateCustomer(ctx, CustomerRequest{Name: "Acme", Email: "a@acme.test"})
	require.NoError(t, err)
	_, err = admin.LinkOrganization(ctx, LinkRequest{CustomerID: c.ID, OrganizationID: "org-1"})
	require.NoError(t, err)
	e, err := admin.Issue(ctx, IssueRequest{CustomerID: c.ID, PackageID: pkg.ID, LicenseType: "annual"})
	require.NoError(t, err)

	d, err := resolver.CheckEntitlement(ctx, "org-1", features.LIA)
	require.NoError(t, err)
	assert.True(t, d.Entitled)

	_, err = admin.Suspend(ctx, e.ID)
	require.NoError(t, err)

	d, err = resolver.CheckEntitlement(ctx, "org-1", features.LIA)
	require.NoError(t, err)
	assert.False(t, d.Entitled)
	assert.Equal(t, 2, mem.entitlementReads)
}

func TestCachedStore_ErrorsAreNotCached(t *testing.T) {
	ctx := context.Background()
	mem := newMemStore()
	cached := NewCachedStore(mem, 16, time.Minute).(*CachedStore)

	mem.failWith = errStoreDown
	_, err := cached.GetActivePackageByFeatureType(ctx, features.TIA)
	assert.ErrorIs(t, err, errStoreDown)
	assert.Equal(t, 0, cached.Len())

	mem.failWith = nil
	_, err = cached.GetActivePackageByFeatureType(ctx, features.TIA)
	require.NoError(t, err)
	assert.Equal(t, 1, cached.Len())
}
