package entitlements

import (
	"context"
	"time"

	"github.com/platinummonkey/skillgate/pkg/features"
)

// ResolverStore holds the reads needed to resolve an entitlement. Lookups
// that are part of resolution return (nil, nil) when nothing matches.
type ResolverStore interface {
	GetActivePackageByFeatureType(ctx context.Context, ft features.Type) (*SkillPackage, error)
	GetCustomerLinkForOrganization(ctx context.Context, orgID string) (*CustomerOrganization, error)
	ListEntitlements(ctx context.Context, customerID, packageID string) ([]*SkillEntitlement, error)
}

// Store is the persisted entitlement data model
type Store interface {
	ResolverStore

	GetPackage(ctx context.Context, id string) (*SkillPackage, error)
	ListPackages(ctx context.Context) ([]*SkillPackage, error)
	UpsertPackage(ctx context.Context, pkg *SkillPackage) (*SkillPackage, error)

	CreateCustomer(ctx context.Context, customer *Customer) (*Customer, error)
	GetCustomer(ctx context.Context, id string) (*Customer, error)
	LinkOrganization(ctx context.Context, link *CustomerOrganization) (*CustomerOrganization, error)
	UnlinkOrganization(ctx context.Context, customerID, orgID string) error

	GetEntitlement(ctx context.Context, id string) (*SkillEntitlement, error)
	ListCustomerEntitlements(ctx context.Context, customerID string) ([]*SkillEntitlement, error)
	UpsertEntitlement(ctx context.Context, e *SkillEntitlement) (*SkillEntitlement, error)
	SetEntitlementStatus(ctx context.Context, id string, status Status, updatedAt time.Time) (*SkillEntitlement, error)
	DeleteEntitlement(ctx context.Context, id string) (*SkillEntitlement, error)
}
