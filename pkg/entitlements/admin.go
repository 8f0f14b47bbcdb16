package entitlements

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/platinummonkey/skillgate/pkg/features"
	"github.com/platinummonkey/skillgate/pkg/observability"
)

// IssueRequest grants a customer a license for a package
type IssueRequest struct {
	CustomerID  string     `json:"customer_id"`
	PackageID   string     `json:"skill_package_id"`
	LicenseType string     `json:"license_type"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
}

// PackageRequest creates or updates a catalog package keyed by skill ID
type PackageRequest struct {
	SkillID     string        `json:"skill_id"`
	Name        string        `json:"name"`
	FeatureType features.Type `json:"feature_type,omitempty"`
	Premium     bool          `json:"premium"`
	Active      *bool         `json:"active,omitempty"`
}

// CustomerRequest creates a billing customer
type CustomerRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// LinkRequest links a customer to an organization
type LinkRequest struct {
	CustomerID     string `json:"customer_id"`
	OrganizationID string `json:"organization_id"`
	IsPrimary      bool   `json:"is_primary"`
}

// Admin performs administrative changes to licenses and the package
// catalog. Each entitlement transition is a single store write.
type Admin struct {
	store     Store
	clock     Clock
	publisher Publisher
	metrics   *Metrics
	log       *logrus.Logger
}

// AdminOption configures an Admin
type AdminOption func(*Admin)

// WithAdminClock overrides the clock used for timestamps
func WithAdminClock(c Clock) AdminOption {
	return func(a *Admin) {
		a.clock = c
	}
}

// WithPublisher sends change events to p
func WithPublisher(p Publisher) AdminOption {
	return func(a *Admin) {
		if p != nil {
			a.publisher = p
		}
	}
}

// WithAdminMetrics records transitions in m
func WithAdminMetrics(m *Metrics) AdminOption {
	return func(a *Admin) {
		a.metrics = m
	}
}

// NewAdmin creates an Admin over store
func NewAdmin(store Store, log *logrus.Logger, opts ...AdminOption) *Admin {
	if log == nil {
		log = logrus.New()
	}

	a := &Admin{
		store:     store,
		clock:     SystemClock{},
		publisher: NopPublisher{},
		log:       log,
	}
	for _, opt := range opts {
		opt(a)
	}

	return a
}

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidRequest, fmt.Sprintf(format, args...))
}

// Issue creates or renews the entitlement of a customer for a package. An
// existing entitlement is overwritten and forced back to ACTIVE.
func (a *Admin) Issue(ctx context.Context, req IssueRequest) (*SkillEntitlement, error) {
	ctx, span := tracer.Start(ctx, "Admin.Issue", trace.WithAttributes(
		attribute.String("customer_id", req.CustomerID),
		attribute.String("skill_package_id", req.PackageID),
	))
	defer span.End()

	switch {
	case strings.TrimSpace(req.CustomerID) == "":
		return nil, invalid("customer_id is required")
	case strings.TrimSpace(req.PackageID) == "":
		return nil, invalid("skill_package_id is required")
	case strings.TrimSpace(req.LicenseType) == "":
		return nil, invalid("license_type is required")
	}

	if _, err := a.store.GetPackage(ctx, req.PackageID); err != nil {
		return nil, err
	}
	if _, err := a.store.GetCustomer(ctx, req.CustomerID); err != nil {
		return nil, err
	}

	now := a.clock.Now()
	var expiresAt *time.Time
	if req.ExpiresAt != nil {
		t := req.ExpiresAt.UTC()
		expiresAt = &t
	}

	e, err := a.store.UpsertEntitlement(ctx, &SkillEntitlement{
		CustomerID:     req.CustomerID,
		SkillPackageID: req.PackageID,
		LicenseType:    req.LicenseType,
		Status:         StatusActive,
		ExpiresAt:      expiresAt,
		CreatedAt:      now,
		UpdatedAt:      now,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	a.changed(ctx, EventIssued, e, now)
	return e, nil
}

// Suspend sets an entitlement to SUSPENDED. Suspending an already suspended
// entitlement succeeds.
func (a *Admin) Suspend(ctx context.Context, id string) (*SkillEntitlement, error) {
	return a.transition(ctx, id, StatusSuspended, EventSuspended)
}

// Reactivate sets an entitlement to ACTIVE. Expiry is unchanged, so a
// reactivated but expired entitlement is still not usable.
func (a *Admin) Reactivate(ctx context.Context, id string) (*SkillEntitlement, error) {
	return a.transition(ctx, id, StatusActive, EventReactivated)
}

func (a *Admin) transition(ctx context.Context, id string, status Status, event EventType) (*SkillEntitlement, error) {
	ctx, span := tracer.Start(ctx, "Admin."+string(event), trace.WithAttributes(
		attribute.String("entitlement_id", id),
	))
	defer span.End()

	now := a.clock.Now()
	e, err := a.store.SetEntitlementStatus(ctx, id, status, now)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	a.changed(ctx, event, e, now)
	return e, nil
}

// Revoke deletes an entitlement
func (a *Admin) Revoke(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "Admin.revoked", trace.WithAttributes(
		attribute.String("entitlement_id", id),
	))
	defer span.End()

	e, err := a.store.DeleteEntitlement(ctx, id)
	if err != nil {
		span.RecordError(err)
		return err
	}

	a.changed(ctx, EventRevoked, e, a.clock.Now())
	return nil
}

// GetEntitlement retrieves an entitlement by ID
func (a *Admin) GetEntitlement(ctx context.Context, id string) (*SkillEntitlement, error) {
	return a.store.GetEntitlement(ctx, id)
}

// ListCustomerEntitlements returns every entitlement a customer holds
func (a *Admin) ListCustomerEntitlements(ctx context.Context, customerID string) ([]*SkillEntitlement, error) {
	return a.store.ListCustomerEntitlements(ctx, customerID)
}

// UpsertPackage creates or updates a catalog package. New packages are active
// unless req.Active says otherwise.
func (a *Admin) UpsertPackage(ctx context.Context, req PackageRequest) (*SkillPackage, error) {
	if strings.TrimSpace(req.SkillID) == "" {
		return nil, invalid("skill_id is required")
	}
	if strings.TrimSpace(req.Name) == "" {
		return nil, invalid("name is required")
	}
	if req.FeatureType != "" {
		ft, err := features.Parse(string(req.FeatureType))
		if err != nil {
			return nil, invalid("%v", err)
		}
		req.FeatureType = ft
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}

	now := a.clock.Now()
	pkg, err := a.store.UpsertPackage(ctx, &SkillPackage{
		SkillID:     req.SkillID,
		FeatureType: req.FeatureType,
		Premium:     req.Premium,
		Active:      active,
		Name:        req.Name,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		return nil, err
	}

	a.log.WithFields(logrus.Fields{
		"package_id":   pkg.ID,
		"skill_id":     pkg.SkillID,
		"feature_type": pkg.FeatureType,
		"active":       pkg.Active,
	}).Info("Skill package saved")
	return pkg, nil
}

// ListPackages returns the package catalog
func (a *Admin) ListPackages(ctx context.Context) ([]*SkillPackage, error) {
	return a.store.ListPackages(ctx)
}

// CreateCustomer creates a billing customer
func (a *Admin) CreateCustomer(ctx context.Context, req CustomerRequest) (*Customer, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, invalid("name is required")
	}
	if !strings.Contains(req.Email, "@") {
		return nil, invalid("a valid email is required")
	}

	now := a.clock.Now()
	return a.store.CreateCustomer(ctx, &Customer{
		Name:      req.Name,
		Email:     req.Email,
		CreatedAt: now,
		UpdatedAt: now,
	})
}

// LinkOrganization links a customer to an organization
func (a *Admin) LinkOrganization(ctx context.Context, req LinkRequest) (*CustomerOrganization, error) {
	if strings.TrimSpace(req.CustomerID) == "" {
		return nil, invalid("customer_id is required")
	}
	if strings.TrimSpace(req.OrganizationID) == "" {
		return nil, invalid("organization_id is required")
	}
	if _, err := a.store.GetCustomer(ctx, req.CustomerID); err != nil {
		return nil, err
	}

	return a.store.LinkOrganization(ctx, &CustomerOrganization{
		CustomerID:     req.CustomerID,
		OrganizationID: req.OrganizationID,
		IsPrimary:      req.IsPrimary,
		CreatedAt:      a.clock.Now(),
	})
}

// UnlinkOrganization removes a customer to organization link
func (a *Admin) UnlinkOrganization(ctx context.Context, customerID, orgID string) error {
	return a.store.UnlinkOrganization(ctx, customerID, orgID)
}

func (a *Admin) changed(ctx context.Context, t EventType, e *SkillEntitlement, at time.Time) {
	a.metrics.recordTransition(t)

	log := observability.WithTraceContext(ctx, a.log).WithFields(logrus.Fields{
		"entitlement_id":   e.ID,
		"customer_id":      e.CustomerID,
		"skill_package_id": e.SkillPackageID,
		"status":           e.Status,
	})
	log.Infof("Entitlement %s", t)

	if err := a.publisher.Publish(ctx, newEvent(t, e, at)); err != nil {
		log.WithError(err).Warn("Failed to publish entitlement event")
	}
}
