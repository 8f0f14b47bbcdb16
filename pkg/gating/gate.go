// Package gating enforces premium entitlements when new items are created.
//
// Only creation is gated. Existing items stay readable after a license lapses.
package gating

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/skillgate/pkg/entitlements"
	"github.com/platinummonkey/skillgate/pkg/features"
	"github.com/platinummonkey/skillgate/pkg/observability"
	"github.com/platinummonkey/skillgate/pkg/skills"
)

// Checker decides whether an organization may use a feature type
type Checker interface {
	CheckEntitlement(ctx context.Context, orgID string, ft features.Type) (entitlements.Decision, error)
}

// ForbiddenError is returned when an organization tries to create an item of
// a premium feature type it is not licensed for
type ForbiddenError struct {
	FeatureType features.Type
	FeatureName string
	Reason      entitlements.Reason
}

func (e *ForbiddenError) Error() string {
	if e.FeatureName == string(e.FeatureType) {
		return fmt.Sprintf("%s requires a license: %s", e.FeatureName, e.Reason.Message())
	}
	return fmt.Sprintf("%s (%s) requires a license: %s", e.FeatureName, e.FeatureType, e.Reason.Message())
}

// IsForbidden checks if an error is a ForbiddenError
func IsForbidden(err error) bool {
	var fe *ForbiddenError
	return errors.As(err, &fe)
}

// AsForbidden returns the ForbiddenError wrapped in err, if any
func AsForbidden(err error) (*ForbiddenError, bool) {
	var fe *ForbiddenError
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}

// Gate guards item creation
type Gate struct {
	checker  Checker
	registry *skills.Registry
	log      *logrus.Logger
}

// NewGate creates a Gate. registry is only used to name denied features and
// may be nil.
func NewGate(checker Checker, registry *skills.Registry, log *logrus.Logger) *Gate {
	if log == nil {
		log = logrus.New()
	}
	return &Gate{checker: checker, registry: registry, log: log}
}

// IsPremium reports whether creating items of ft requires a license. Only
// the fixed premium set is gated; a loaded skill flagged premium cannot widen
// it.
func (g *Gate) IsPremium(ft features.Type) bool {
	return features.IsPremium(ft)
}

// AuthorizeCreate returns nil when orgID may create an item of ft, a
// *ForbiddenError when it may not, or the underlying error when the check
// itself failed
func (g *Gate) AuthorizeCreate(ctx context.Context, orgID string, ft features.Type) error {
	if !g.IsPremium(ft) {
		return nil
	}

	decision, err := g.checker.CheckEntitlement(ctx, orgID, ft)
	if err != nil {
		return fmt.Errorf("failed to check entitlement: %w", err)
	}
	if decision.Entitled {
		return nil
	}

	observability.WithTraceContext(ctx, g.log).WithFields(logrus.Fields{
		"organization_id": orgID,
		"feature_type":    ft,
		"reason":          decision.Reason,
	}).Info("Creation blocked by missing entitlement")

	return &ForbiddenError{
		FeatureType: ft,
		FeatureName: g.featureName(ft),
		Reason:      decision.Reason,
	}
}

// featureName prefers the name of the loaded skill so upgrade prompts match
// what the bundle advertises.
func (g *Gate) featureName(ft features.Type) string {
	if g.registry != nil {
		if skill, ok := g.registry.GetByFeatureType(ft); ok && skill.Name != "" {
			return skill.Name
		}
	}
	return features.DisplayName(ft)
}
