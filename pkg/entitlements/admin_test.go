package entitlements

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/skillgate/pkg/features"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []Event
	err    error
}

func (p *recordingPublisher) Publish(ctx context.Context, event Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

func (p *recordingPublisher) types() []EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]EventType, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

func TestAdmin_IssueValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	pkg := f.addPackage(t, "com.privacy.dpia", features.DPIA)
	c := f.addLinkedCustomer(t, "org-1")

	tests := []struct {
		name    string
		req     IssueRequest
		wantErr error
	}{
		{name: "missing customer", req: IssueRequest{PackageID: pkg.ID, LicenseType: "annual"}, wantErr: ErrInvalidRequest},
		{name: "missing package", req: IssueRequest{CustomerID: c.ID, LicenseType: "annual"}, wantErr: ErrInvalidRequest},
		{name: "missing license type", req: IssueRequest{CustomerID: c.ID, PackageID: pkg.ID}, wantErr: ErrInvalidRequest},
		{name: "unknown package", req: IssueRequest{CustomerID: c.ID, PackageID: "nope", LicenseType: "annual"}, wantErr: ErrPackageNotFound},
		{name: "unknown customer", req: IssueRequest{CustomerID: "nope", PackageID: pkg.ID, LicenseType: "annual"}, wantErr: ErrCustomerNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.admin.Issue(ctx, tt.req)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestAdmin_IssueIsUpsert(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	pkg := f.addPackage(t, "com.privacy.dpia", features.DPIA)
	c := f.addLinkedCustomer(t, "org-1")

	past := testNow.Add(-time.Hour)
	first, err := f.admin.Issue(ctx, IssueRequest{CustomerID: c.ID, PackageID: pkg.ID, LicenseType: "trial", ExpiresAt: &past})
	require.NoError(t, err)

	_, err = f.admin.Suspend(ctx, first.ID)
	require.NoError(t, err)

	second, err := f.admin.Issue(ctx, IssueRequest{CustomerID: c.ID, PackageID: pkg.ID, LicenseType: "annual"})
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, StatusActive, second.Status)
	assert.Equal(t, "annual", second.LicenseType)
	assert.Nil(t, second.ExpiresAt)

	ents, err := f.admin.ListCustomerEntitlements(ctx, c.ID)
	require.NoError(t, err)
	assert.Len(t, ents, 1)
}

func TestAdmin_SuspendReactivate(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	pub := &recordingPublisher{}
	f.admin = NewAdmin(f.store, testLogger(), WithAdminClock(f.clock), WithPublisher(pub), WithAdminMetrics(f.metrics))

	pkg := f.addPackage(t, "com.privacy.dpia", features.DPIA)
	c := f.addLinkedCustomer(t, "org-1")
	issued, err := f.admin.Issue(ctx, IssueRequest{CustomerID: c.ID, PackageID: pkg.ID, LicenseType: "annual"})
	require.NoError(t, err)

	suspended, err := f.admin.Suspend(ctx, issued.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusSuspended, suspended.Status)
	assert.Equal(t, issued.ID, suspended.ID)

	d, err := f.resolver.CheckEntitlement(ctx, "org-1", features.DPIA)
	require.NoError(t, err)
	assert.False(t, d.Entitled)
	assert.Equal(t, ReasonNoActiveLicense, d.Reason)

	again, err := f.admin.Suspend(ctx, issued.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusSuspended, again.Status)

	reactivated, err := f.admin.Reactivate(ctx, issued.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusActive, reactivated.Status)
	assert.Equal(t, issued.ID, reactivated.ID)

	d, err = f.resolver.CheckEntitlement(ctx, "org-1", features.DPIA)
	require.NoError(t, err)
	assert.True(t, d.Entitled)

	assert.Equal(t, []EventType{EventIssued, EventSuspended, EventSuspended, EventReactivated}, pub.types())
	assert.Equal(t, float64(2), testutil.ToFloat64(f.metrics.TransitionsTotal.WithLabelValues("suspended")))
}

func TestAdmin_ReactivateKeepsExpiry(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	pkg := f.addPackage(t, "com.privacy.tia", features.TIA)
	c := f.addLinkedCustomer(t, "org-1")

	expires := testNow.Add(time.Hour)
	issued, err := f.admin.Issue(ctx, IssueRequest{CustomerID: c.ID, PackageID: pkg.ID, LicenseType: "trial", ExpiresAt: &expires})
	require.NoError(t, err)
	_, err = f.admin.Suspend(ctx, issued.ID)
	require.NoError(t, err)

	f.clock.Advance(2 * time.Hour)

	reactivated, err := f.admin.Reactivate(ctx, issued.ID)
	require.NoError(t, err)
	require.NotNil(t, reactivated.ExpiresAt)
	assert.True(t, expires.Equal(*reactivated.ExpiresAt))

	d, err := f.resolver.CheckEntitlement(ctx, "org-1", features.TIA)
	require.NoError(t, err)
	assert.False(t, d.Entitled)
}

func TestAdmin_UnknownEntitlement(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	_, err := f.admin.Suspend(ctx, "missing")
	assert.ErrorIs(t, err, ErrEntitlementNotFound)

	_, err = f.admin.Reactivate(ctx, "missing")
	assert.ErrorIs(t, err, ErrEntitlementNotFound)

	err = f.admin.Revoke(ctx, "missing")
	assert.ErrorIs(t, err, ErrEntitlementNotFound)
}

func TestAdmin_Revoke(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	pub := &recordingPublisher{err: errors.New("redis down")}
	f.admin = NewAdmin(f.store, testLogger(), WithAdminClock(f.clock), WithPublisher(pub))

	pkg := f.addPackage(t, "com.privacy.dpia", features.DPIA)
	c := f.addLinkedCustomer(t, "org-1")
	issued, err := f.admin.Issue(ctx, IssueRequest{CustomerID: c.ID, PackageID: pkg.ID, LicenseType: "annual"})
	require.NoError(t, err)

	require.NoError(t, f.admin.Revoke(ctx, issued.ID))

	_, err = f.admin.GetEntitlement(ctx, issued.ID)
	assert.ErrorIs(t, err, ErrEntitlementNotFound)

	d, err := f.resolver.CheckEntitlement(ctx, "org-1", features.DPIA)
	require.NoError(t, err)
	assert.Equal(t, ReasonNoActiveLicense, d.Reason)

	assert.Equal(t, []EventType{EventIssued, EventRevoked}, pub.types())
	assert.Equal(t, issued.CustomerID, pub.events[1].CustomerID)
}

func TestAdmin_CatalogOperations(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	_, err := f.admin.UpsertPackage(ctx, PackageRequest{Name: "x"})
	assert.ErrorIs(t, err, ErrInvalidRequest)
	_, err = f.admin.UpsertPackage(ctx, PackageRequest{SkillID: "com.privacy.x", Name: "x", FeatureType: "ROPA"})
	assert.ErrorIs(t, err, ErrInvalidRequest)

	pkg, err := f.admin.UpsertPackage(ctx, PackageRequest{SkillID: "com.privacy.dpia", Name: "DPIA", FeatureType: "dpia", Premium: true})
	require.NoError(t, err)
	assert.Equal(t, features.DPIA, pkg.FeatureType)
	assert.True(t, pkg.Active)

	updated, err := f.admin.UpsertPackage(ctx, PackageRequest{SkillID: "com.privacy.dpia", Name: "DPIA v2", FeatureType: features.DPIA, Premium: true})
	require.NoError(t, err)
	assert.Equal(t, pkg.ID, updated.ID)
	assert.Equal(t, "DPIA v2", updated.Name)

	pkgs, err := f.admin.ListPackages(ctx)
	require.NoError(t, err)
	assert.Len(t, pkgs, 1)

	_, err = f.admin.CreateCustomer(ctx, CustomerRequest{Name: "Acme", Email: "not-an-email"})
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = f.admin.LinkOrganization(ctx, LinkRequest{CustomerID: "missing", OrganizationID: "org-1"})
	assert.ErrorIs(t, err, ErrCustomerNotFound)

	c := f.addLinkedCustomer(t, "org-1")
	require.NoError(t, f.admin.UnlinkOrganization(ctx, c.ID, "org-1"))
	assert.ErrorIs(t, f.admin.UnlinkOrganization(ctx, c.ID, "org-1"), ErrLinkNotFound)
}
