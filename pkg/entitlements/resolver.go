package entitlements

import (
	"context"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/platinummonkey/skillgate/pkg/features"
	"github.com/platinummonkey/skillgate/pkg/observability"
)

var tracer = otel.Tracer("github.com/platinummonkey/skillgate/pkg/entitlements")

// Resolver answers whether an organization may use a feature type. It only
// reads; every check consults the store and the current time.
type Resolver struct {
	store   ResolverStore
	clock   Clock
	metrics *Metrics
	log     *logrus.Logger
}

// ResolverOption configures a Resolver
type ResolverOption func(*Resolver)

// WithResolverClock overrides the clock used for expiry
func WithResolverClock(c Clock) ResolverOption {
	return func(r *Resolver) {
		r.clock = c
	}
}

// WithResolverMetrics records every decision in m
func WithResolverMetrics(m *Metrics) ResolverOption {
	return func(r *Resolver) {
		r.metrics = m
	}
}

// NewResolver creates a resolver over store
func NewResolver(store ResolverStore, log *logrus.Logger, opts ...ResolverOption) *Resolver {
	if log == nil {
		log = logrus.New()
	}

	r := &Resolver{
		store: store,
		clock: SystemClock{},
		log:   log,
	}
	for _, opt := range opts {
		opt(r)
	}

	return r
}

// CheckEntitlement decides whether orgID may use ft. A denial is a normal
// Decision; an error means the store could not be read.
func (r *Resolver) CheckEntitlement(ctx context.Context, orgID string, ft features.Type) (Decision, error) {
	ctx, span := tracer.Start(ctx, "Resolver.CheckEntitlement",
		trace.WithAttributes(
			attribute.String("organization_id", orgID),
			attribute.String("feature_type", string(ft)),
		),
	)
	defer span.End()

	d, err := r.check(ctx, orgID, ft)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Decision{}, err
	}

	span.SetAttributes(
		attribute.Bool("entitled", d.Entitled),
		attribute.String("reason", string(d.Reason)),
	)
	r.metrics.recordCheck(d)
	return d, nil
}

func (r *Resolver) check(ctx context.Context, orgID string, ft features.Type) (Decision, error) {
	if features.IsFree(ft) {
		return newDecision(ft, true, ReasonFreeFeature), nil
	}

	pkg, err := r.store.GetActivePackageByFeatureType(ctx, ft)
	if err != nil {
		return Decision{}, err
	}
	if pkg == nil {
		return newDecision(ft, false, ReasonNoPackage), nil
	}

	link, err := r.store.GetCustomerLinkForOrganization(ctx, orgID)
	if err != nil {
		return Decision{}, err
	}
	if link == nil {
		return newDecision(ft, false, ReasonNoCustomerLink), nil
	}

	ents, err := r.store.ListEntitlements(ctx, link.CustomerID, pkg.ID)
	if err != nil {
		return Decision{}, err
	}

	now := r.clock.Now()
	for _, e := range ents {
		if e.UsableAt(now) {
			d := newDecision(ft, true, ReasonLicensed)
			d.EntitlementID = e.ID
			d.LicenseType = e.LicenseType
			d.ExpiresAt = e.ExpiresAt
			return d, nil
		}
	}

	observability.WithTraceContext(ctx, r.log).WithFields(logrus.Fields{
		"organization_id": orgID,
		"feature_type":    ft,
		"customer_id":     link.CustomerID,
		"entitlements":    len(ents),
	}).Debug("No usable entitlement")

	return newDecision(ft, false, ReasonNoActiveLicense), nil
}

// ListEntitledFeatureTypes returns the free types plus every premium type
// orgID currently holds a usable license for.
func (r *Resolver) ListEntitledFeatureTypes(ctx context.Context, orgID string) ([]features.Type, error) {
	result := features.Free()
	for _, ft := range features.Premium() {
		d, err := r.CheckEntitlement(ctx, orgID, ft)
		if err != nil {
			return nil, err
		}
		if d.Entitled {
			result = append(result, ft)
		}
	}
	return result, nil
}

// HasCatalogAccess reports whether orgID is licensed for the vendor catalog
func (r *Resolver) HasCatalogAccess(ctx context.Context, orgID string) (bool, error) {
	d, err := r.CheckEntitlement(ctx, orgID, features.VendorCatalog)
	if err != nil {
		return false, err
	}
	return d.Entitled, nil
}

// IsPremiumFeatureType reports whether ft requires a license
func (r *Resolver) IsPremiumFeatureType(ft features.Type) bool {
	return features.IsPremium(ft)
}
