package skills

import (
	"context"
	"fmt"

	"github.com/platinummonkey/skillgate/pkg/features"
)

// Skill is a unit of pluggable functionality that supplies extension handlers
// and templates for a feature type.
type Skill struct {
	ID          string        // Reverse-domain identifier (e.g., "com.privacy.dpia")
	Name        string        // Display name
	Version     string        // Informational only
	Description string        // Short description
	FeatureType features.Type // Empty for skills that are not tied to a work item type
	Premium     bool
	Extensions  map[ExtensionPoint]ExtensionHandler
	Templates   []Template

	// OnLoad runs once before the skill is registered by the loader.
	OnLoad func(ctx context.Context) error
	// OnUnload runs when the skill is removed from the registry.
	OnUnload func(ctx context.Context) error
}

// ExtensionPoint names a place in the UI or export pipeline a skill can hook.
type ExtensionPoint string

const (
	ExtensionNewItemForm    ExtensionPoint = "new-item-form"
	ExtensionDetailView     ExtensionPoint = "detail-view"
	ExtensionReportRenderer ExtensionPoint = "report-renderer"
	ExtensionExport         ExtensionPoint = "export"
)

var extensionPoints = []ExtensionPoint{
	ExtensionNewItemForm,
	ExtensionDetailView,
	ExtensionReportRenderer,
	ExtensionExport,
}

// ExtensionPoints returns every known extension point.
func ExtensionPoints() []ExtensionPoint {
	out := make([]ExtensionPoint, len(extensionPoints))
	copy(out, extensionPoints)
	return out
}

// ParseExtensionPoint validates s against the known extension points.
func ParseExtensionPoint(s string) (ExtensionPoint, error) {
	for _, p := range extensionPoints {
		if string(p) == s {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown extension point: %q", s)
}

// ExtensionRequest is the input handed to an extension handler.
type ExtensionRequest struct {
	OrganizationID string                 `json:"organization_id"`
	FeatureType    features.Type          `json:"feature_type"`
	Point          ExtensionPoint         `json:"point"`
	ItemID         string                 `json:"item_id,omitempty"`
	Payload        map[string]interface{} `json:"payload,omitempty"`
}

// ExtensionResponse is what an extension handler produces.
type ExtensionResponse struct {
	SkillID string                 `json:"skill_id,omitempty"`
	Kind    string                 `json:"kind"`
	Data    map[string]interface{} `json:"data,omitempty"`
}

// ExtensionHandler renders or computes the contribution of a skill at an extension point.
type ExtensionHandler interface {
	Handle(ctx context.Context, req *ExtensionRequest) (*ExtensionResponse, error)
}

// HandlerFunc adapts a function to ExtensionHandler.
type HandlerFunc func(ctx context.Context, req *ExtensionRequest) (*ExtensionResponse, error)

// Handle calls f(ctx, req).
func (f HandlerFunc) Handle(ctx context.Context, req *ExtensionRequest) (*ExtensionResponse, error) {
	return f(ctx, req)
}

// GenericHandler is used when no skill provides a handler for an extension point.
var GenericHandler ExtensionHandler = HandlerFunc(func(ctx context.Context, req *ExtensionRequest) (*ExtensionResponse, error) {
	return &ExtensionResponse{
		Kind: "generic",
		Data: map[string]interface{}{
			"feature_type": string(req.FeatureType),
			"point":        string(req.Point),
		},
	}, nil
})

// Template is a named starting document contributed by a skill.
type Template struct {
	ID          string                 `json:"id" yaml:"id"`
	Name        string                 `json:"name" yaml:"name"`
	Description string                 `json:"description,omitempty" yaml:"description"`
	Content     map[string]interface{} `json:"content,omitempty" yaml:"content"`
}

// TaggedTemplate is a Template annotated with the skill that owns it.
type TaggedTemplate struct {
	Template
	SkillID string `json:"skill_id"`
}

// Metadata is the serializable view of a registered skill.
type Metadata struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Version     string           `json:"version,omitempty"`
	Description string           `json:"description,omitempty"`
	FeatureType features.Type    `json:"feature_type,omitempty"`
	Premium     bool             `json:"premium"`
	Extensions  []ExtensionPoint `json:"extensions"`
	Templates   int              `json:"templates"`
}

// Metadata returns the serializable view of s.
func (s *Skill) Metadata() Metadata {
	m := Metadata{
		ID:          s.ID,
		Name:        s.Name,
		Version:     s.Version,
		Description: s.Description,
		FeatureType: s.FeatureType,
		Premium:     s.Premium,
		Extensions:  make([]ExtensionPoint, 0, len(s.Extensions)),
		Templates:   len(s.Templates),
	}
	for _, p := range extensionPoints {
		if _, ok := s.Extensions[p]; ok {
			m.Extensions = append(m.Extensions, p)
		}
	}
	return m
}

// ValidationError describes a problem with a skill or bundle definition.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}
