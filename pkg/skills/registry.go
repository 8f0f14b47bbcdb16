package skills

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/skillgate/pkg/features"
)

// Registry holds the skills known to the process. It is created once at
// startup and passed to the components that need it.
//
// Access to the underlying map is serialized, but concurrent Register and
// Unregister calls for the same ID are not ordered: the last write wins.
type Registry struct {
	mu     sync.RWMutex
	skills map[string]*Skill
	order  []string
	log    *logrus.Logger
}

// NewRegistry creates an empty registry
func NewRegistry(log *logrus.Logger) *Registry {
	if log == nil {
		log = logrus.New()
	}

	return &Registry{
		skills: make(map[string]*Skill),
		log:    log,
	}
}

// Register adds a skill. Registering an ID that is already present replaces
// the previous skill and logs a warning.
func (r *Registry) Register(skill *Skill) error {
	if skill == nil {
		return fmt.Errorf("cannot register nil skill")
	}
	if skill.ID == "" {
		return fmt.Errorf("skill ID is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.skills[skill.ID]; exists {
		r.log.WithField("skill_id", skill.ID).Warn("Skill already registered, replacing")
	} else {
		r.order = append(r.order, skill.ID)
	}

	r.skills[skill.ID] = skill
	return nil
}

// Unregister removes a skill, running its unload hook first. It reports
// whether the skill was present. If the hook fails the skill stays registered.
func (r *Registry) Unregister(ctx context.Context, id string) (bool, error) {
	r.mu.RLock()
	skill, exists := r.skills[id]
	r.mu.RUnlock()

	if !exists {
		return false, nil
	}

	if skill.OnUnload != nil {
		if err := skill.OnUnload(ctx); err != nil {
			return true, fmt.Errorf("failed to unload skill %s: %w", id, err)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.skills[id] == skill {
		delete(r.skills, id)
		r.removeFromOrder(id)
	}

	return true, nil
}

func (r *Registry) removeFromOrder(id string) {
	for i, existing := range r.order {
		if existing == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			return
		}
	}
}

// Get retrieves a skill by ID
func (r *Registry) Get(id string) (*Skill, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	skill, exists := r.skills[id]
	return skill, exists
}

// Has checks if a skill is registered
func (r *Registry) Has(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, exists := r.skills[id]
	return exists
}

// GetByFeatureType returns the first registered skill bound to ft.
func (r *Registry) GetByFeatureType(ft features.Type) (*Skill, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, id := range r.order {
		if skill := r.skills[id]; skill.FeatureType == ft {
			return skill, true
		}
	}

	return nil, false
}

// ListAll returns all skills in registration order
func (r *Registry) ListAll() []*Skill {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*Skill, 0, len(r.order))
	for _, id := range r.order {
		result = append(result, r.skills[id])
	}

	return result
}

// ListMetadata returns the serializable view of every skill
func (r *Registry) ListMetadata() []Metadata {
	all := r.ListAll()
	result := make([]Metadata, 0, len(all))
	for _, skill := range all {
		result = append(result, skill.Metadata())
	}
	return result
}

// ListByPremiumStatus returns the skills whose Premium flag equals premium
func (r *Registry) ListByPremiumStatus(premium bool) []*Skill {
	var result []*Skill
	for _, skill := range r.ListAll() {
		if skill.Premium == premium {
			result = append(result, skill)
		}
	}
	return result
}

// ListAllTemplates flattens the templates of every skill, tagging each with its owner
func (r *Registry) ListAllTemplates() []TaggedTemplate {
	var result []TaggedTemplate
	for _, skill := range r.ListAll() {
		for _, tmpl := range skill.Templates {
			result = append(result, TaggedTemplate{Template: tmpl, SkillID: skill.ID})
		}
	}
	return result
}

// GetExtensionHandler finds the handler the skill for ft provides at point.
func (r *Registry) GetExtensionHandler(ft features.Type, point ExtensionPoint) (ExtensionHandler, bool) {
	skill, ok := r.GetByFeatureType(ft)
	if !ok {
		return nil, false
	}

	handler, ok := skill.Extensions[point]
	if !ok || handler == nil {
		return nil, false
	}

	return handler, true
}

// ResolveExtension returns the handler for ft at point, or GenericHandler
// when no loaded skill provides one.
func (r *Registry) ResolveExtension(ft features.Type, point ExtensionPoint) ExtensionHandler {
	if handler, ok := r.GetExtensionHandler(ft, point); ok {
		return handler
	}
	return GenericHandler
}

// Count returns the number of registered skills
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.skills)
}
