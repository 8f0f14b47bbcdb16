package api

import (
	"context"
	"errors"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/skillgate/pkg/assessments"
	"github.com/platinummonkey/skillgate/pkg/entitlements"
	"github.com/platinummonkey/skillgate/pkg/features"
)

var errNotImplemented = errors.New("not implemented")

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

// mockAdmin implements EntitlementAdmin for testing
type mockAdmin struct {
	issueFunc              func(ctx context.Context, req entitlements.IssueRequest) (*entitlements.SkillEntitlement, error)
	suspendFunc            func(ctx context.Context, id string) (*entitlements.SkillEntitlement, error)
	reactivateFunc         func(ctx context.Context, id string) (*entitlements.SkillEntitlement, error)
	revokeFunc             func(ctx context.Context, id string) error
	getEntitlementFunc     func(ctx context.Context, id string) (*entitlements.SkillEntitlement, error)
	listCustomerFunc       func(ctx context.Context, customerID string) ([]*entitlements.SkillEntitlement, error)
	upsertPackageFunc      func(ctx context.Context, req entitlements.PackageRequest) (*entitlements.SkillPackage, error)
	listPackagesFunc       func(ctx context.Context) ([]*entitlements.SkillPackage, error)
	createCustomerFunc     func(ctx context.Context, req entitlements.CustomerRequest) (*entitlements.Customer, error)
	linkOrganizationFunc   func(ctx context.Context, req entitlements.LinkRequest) (*entitlements.CustomerOrganization, error)
	unlinkOrganizationFunc func(ctx context.Context, customerID, orgID string) error
}

func (m *mockAdmin) Issue(ctx context.Context, req entitlements.IssueRequest) (*entitlements.SkillEntitlement, error) {
	if m.issueFunc != nil {
		return m.issueFunc(ctx, req)
	}
	return nil, errNotImplemented
}

func (m *mockAdmin) Suspend(ctx context.Context, id string) (*entitlements.SkillEntitlement, error) {
	if m.suspendFunc != nil {
		return m.suspendFunc(ctx, id)
	}
	return nil, errNotImplemented
}

func (m *mockAdmin) Reactivate(ctx context.Context, id string) (*entitlements.SkillEntitlement, error) {
	if m.reactivateFunc != nil {
		return m.reactivateFunc(ctx, id)
	}
	return nil, errNotImplemented
}

func (m *mockAdmin) Revoke(ctx context.Context, id string) error {
	if m.revokeFunc != nil {
		return m.revokeFunc(ctx, id)
	}
	return errNotImplemented
}

func (m *mockAdmin) GetEntitlement(ctx context.Context, id string) (*entitlements.SkillEntitlement, error) {
	if m.getEntitlementFunc != nil {
		return m.getEntitlementFunc(ctx, id)
	}
	return nil, errNotImplemented
}

func (m *mockAdmin) ListCustomerEntitlements(ctx context.Context, customerID string) ([]*entitlements.SkillEntitlement, error) {
	if m.listCustomerFunc != nil {
		return m.listCustomerFunc(ctx, customerID)
	}
	return nil, errNotImplemented
}

func (m *mockAdmin) UpsertPackage(ctx context.Context, req entitlements.PackageRequest) (*entitlements.SkillPackage, error) {
	if m.upsertPackageFunc != nil {
		return m.upsertPackageFunc(ctx, req)
	}
	return nil, errNotImplemented
}

func (m *mockAdmin) ListPackages(ctx context.Context) ([]*entitlements.SkillPackage, error) {
	if m.listPackagesFunc != nil {
		return m.listPackagesFunc(ctx)
	}
	return nil, errNotImplemented
}

func (m *mockAdmin) CreateCustomer(ctx context.Context, req entitlements.CustomerRequest) (*entitlements.Customer, error) {
	if m.createCustomerFunc != nil {
		return m.createCustomerFunc(ctx, req)
	}
	return nil, errNotImplemented
}

func (m *mockAdmin) LinkOrganization(ctx context.Context, req entitlements.LinkRequest) (*entitlements.CustomerOrganization, error) {
	if m.linkOrganizationFunc != nil {
		return m.linkOrganizationFunc(ctx, req)
	}
	return nil, errNotImplemented
}

func (m *mockAdmin) UnlinkOrganization(ctx context.Context, customerID, orgID string) error {
	if m.unlinkOrganizationFunc != nil {
		return m.unlinkOrganizationFunc(ctx, customerID, orgID)
	}
	return errNotImplemented
}

// mockResolver implements EntitlementResolver for testing
type mockResolver struct {
	checkFunc         func(ctx context.Context, orgID string, ft features.Type) (entitlements.Decision, error)
	listEntitledFunc  func(ctx context.Context, orgID string) ([]features.Type, error)
	catalogAccessFunc func(ctx context.Context, orgID string) (bool, error)
}

func (m *mockResolver) CheckEntitlement(ctx context.Context, orgID string, ft features.Type) (entitlements.Decision, error) {
	if m.checkFunc != nil {
		return m.checkFunc(ctx, orgID, ft)
	}
	return entitlements.Decision{}, errNotImplemented
}

func (m *mockResolver) ListEntitledFeatureTypes(ctx context.Context, orgID string) ([]features.Type, error) {
	if m.listEntitledFunc != nil {
		return m.listEntitledFunc(ctx, orgID)
	}
	return nil, errNotImplemented
}

func (m *mockResolver) HasCatalogAccess(ctx context.Context, orgID string) (bool, error) {
	if m.catalogAccessFunc != nil {
		return m.catalogAccessFunc(ctx, orgID)
	}
	return false, errNotImplemented
}

// mockAssessments implements AssessmentService for testing
type mockAssessments struct {
	createFunc func(ctx context.Context, req assessments.CreateRequest) (*assessments.Assessment, error)
	getFunc    func(ctx context.Context, orgID, id string) (*assessments.Assessment, error)
	listFunc   func(ctx context.Context, orgID string) ([]*assessments.Assessment, error)
}

func (m *mockAssessments) Create(ctx context.Context, req assessments.CreateRequest) (*assessments.Assessment, error) {
	if m.createFunc != nil {
		return m.createFunc(ctx, req)
	}
	return nil, errNotImplemented
}

func (m *mockAssessments) Get(ctx context.Context, orgID, id string) (*assessments.Assessment, error) {
	if m.getFunc != nil {
		return m.getFunc(ctx, orgID, id)
	}
	return nil, errNotImplemented
}

func (m *mockAssessments) List(ctx context.Context, orgID string) ([]*assessments.Assessment, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx, orgID)
	}
	return nil, errNotImplemented
}

// mockLoader implements BundleLoader for testing
type mockLoader struct {
	loadFunc      func(ctx context.Context, name string) ([]string, error)
	unloadFunc    func(ctx context.Context, name string) error
	available     map[string]bool
	loadedBundles []string
}

func (m *mockLoader) LoadInstalledBundle(ctx context.Context, name string) ([]string, error) {
	if m.loadFunc != nil {
		return m.loadFunc(ctx, name)
	}
	return nil, errNotImplemented
}

func (m *mockLoader) IsBundleAvailable(ctx context.Context, name string) bool {
	return m.available[name]
}

func (m *mockLoader) ListLoadedBundles() []string {
	return m.loadedBundles
}

func (m *mockLoader) UnloadBundle(ctx context.Context, name string) error {
	if m.unloadFunc != nil {
		return m.unloadFunc(ctx, name)
	}
	return errNotImplemented
}
