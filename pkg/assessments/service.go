// Package assessments creates and reads privacy assessments. Creation is the
// single place premium entitlements are enforced.
package assessments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/skillgate/pkg/features"
	"github.com/platinummonkey/skillgate/pkg/skills"
)

var (
	// ErrNotFound is returned when an assessment does not exist in the organization
	ErrNotFound = errors.New("assessment not found")
	// ErrInvalidRequest is returned for malformed create requests
	ErrInvalidRequest = errors.New("invalid assessment request")
)

// Assessment is a single instance of a feature type created by an organization
type Assessment struct {
	ID             string        `json:"id"`
	OrganizationID string        `json:"organization_id"`
	FeatureType    features.Type `json:"feature_type"`
	Title          string        `json:"title"`
	TemplateID     string        `json:"template_id,omitempty"`
	SkillID        string        `json:"skill_id,omitempty"`
	CreatedBy      string        `json:"created_by,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
}

// CreateRequest describes a new assessment
type CreateRequest struct {
	OrganizationID string `json:"organization_id"`
	FeatureType    string `json:"feature_type"`
	Title          string `json:"title"`
	TemplateID     string `json:"template_id,omitempty"`
	CreatedBy      string `json:"created_by,omitempty"`
}

// Repository persists assessments
type Repository interface {
	Insert(ctx context.Context, a *Assessment) error
	Get(ctx context.Context, orgID, id string) (*Assessment, error)
	List(ctx context.Context, orgID string) ([]*Assessment, error)
}

// Authorizer decides whether an organization may create items of a feature type
type Authorizer interface {
	AuthorizeCreate(ctx context.Context, orgID string, ft features.Type) error
}

// Service creates and reads assessments
type Service struct {
	repo     Repository
	gate     Authorizer
	registry *skills.Registry
	now      func() time.Time
	log      *logrus.Logger
}

// NewService creates a Service. registry is used to resolve the skill and
// template backing a feature type and may be nil.
func NewService(repo Repository, gate Authorizer, registry *skills.Registry, log *logrus.Logger) *Service {
	if log == nil {
		log = logrus.New()
	}
	return &Service{
		repo:     repo,
		gate:     gate,
		registry: registry,
		now:      func() time.Time { return time.Now().UTC() },
		log:      log,
	}
}

// Create validates the request, checks the organization is entitled to the
// feature type and stores the assessment. A missing license surfaces as a
// *gating.ForbiddenError.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Assessment, error) {
	if strings.TrimSpace(req.OrganizationID) == "" {
		return nil, fmt.Errorf("%w: organization_id is required", ErrInvalidRequest)
	}
	if strings.TrimSpace(req.Title) == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidRequest)
	}
	ft, err := features.ParseItemType(req.FeatureType)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	skillID, err := s.resolveDefinition(ft, req.TemplateID)
	if err != nil {
		return nil, err
	}

	if err := s.gate.AuthorizeCreate(ctx, req.OrganizationID, ft); err != nil {
		return nil, err
	}

	a := &Assessment{
		ID:             uuid.NewString(),
		OrganizationID: req.OrganizationID,
		FeatureType:    ft,
		Title:          req.Title,
		TemplateID:     req.TemplateID,
		SkillID:        skillID,
		CreatedBy:      req.CreatedBy,
		CreatedAt:      s.now(),
	}
	if err := s.repo.Insert(ctx, a); err != nil {
		return nil, fmt.Errorf("failed to create assessment: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"assessment_id":   a.ID,
		"organization_id": a.OrganizationID,
		"feature_type":    a.FeatureType,
	}).Info("Assessment created")
	return a, nil
}

// resolveDefinition finds the skill serving ft and checks the requested
// template belongs to it
func (s *Service) resolveDefinition(ft features.Type, templateID string) (string, error) {
	if s.registry == nil {
		return "", nil
	}
	skill, ok := s.registry.GetByFeatureType(ft)
	if !ok {
		if templateID != "" {
			return "", fmt.Errorf("%w: no skill provides templates for %s", ErrInvalidRequest, ft)
		}
		return "", nil
	}
	if templateID == "" {
		return skill.ID, nil
	}
	for _, tmpl := range skill.Templates {
		if tmpl.ID == templateID {
			return skill.ID, nil
		}
	}
	return "", fmt.Errorf("%w: unknown template %q for %s", ErrInvalidRequest, templateID, ft)
}

// Get returns an assessment. Entitlement is not re-checked.
func (s *Service) Get(ctx context.Context, orgID, id string) (*Assessment, error) {
	return s.repo.Get(ctx, orgID, id)
}

// List returns the organization's assessments
func (s *Service) List(ctx context.Context, orgID string) ([]*Assessment, error) {
	return s.repo.List(ctx, orgID)
}
