package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/skillgate/pkg/features"
	"github.com/platinummonkey/skillgate/pkg/httputil"
	"github.com/platinummonkey/skillgate/pkg/skills"
)

// BundleLoader loads optional skill bundles on demand
type BundleLoader interface {
	LoadInstalledBundle(ctx context.Context, name string) ([]string, error)
	IsBundleAvailable(ctx context.Context, name string) bool
	ListLoadedBundles() []string
	UnloadBundle(ctx context.Context, name string) error
}

// SkillHandlers exposes the skill registry
type SkillHandlers struct {
	registry *skills.Registry
	loader   BundleLoader
	log      *logrus.Logger
}

// NewSkillHandlers creates a new SkillHandlers
func NewSkillHandlers(registry *skills.Registry, loader BundleLoader, log *logrus.Logger) *SkillHandlers {
	if log == nil {
		log = logrus.New()
	}
	return &SkillHandlers{
		registry: registry,
		loader:   loader,
		log:      log,
	}
}

// RegisterRoutes registers skill routes
func (h *SkillHandlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/skills", h.ListSkills).Methods("GET")
	router.HandleFunc("/skills/templates", h.ListTemplates).Methods("GET")
	router.HandleFunc("/skills/bundles", h.ListBundles).Methods("GET")
	router.HandleFunc("/skills/bundles/{name}/load", h.LoadBundle).Methods("POST")
	router.HandleFunc("/skills/bundles/{name}", h.UnloadBundle).Methods("DELETE")
	router.HandleFunc("/skills/extensions/{featureType}/{point}", h.InvokeExtension).Methods("POST")
}

// ListSkills returns registered skills, optionally filtered by ?premium=
func (h *SkillHandlers) ListSkills(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("premium") == "" {
		httputil.WriteSuccess(w, h.registry.ListMetadata())
		return
	}

	premium, err := httputil.ParseQueryBool(r, "premium", false)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	matched := h.registry.ListByPremiumStatus(premium)
	result := make([]skills.Metadata, 0, len(matched))
	for _, s := range matched {
		result = append(result, s.Metadata())
	}
	httputil.WriteSuccess(w, result)
}

// ListTemplates returns the templates of every registered skill
func (h *SkillHandlers) ListTemplates(w http.ResponseWriter, r *http.Request) {
	templates := h.registry.ListAllTemplates()
	if templates == nil {
		templates = []skills.TaggedTemplate{}
	}
	httputil.WriteSuccess(w, templates)
}

// BundlesResponse lists the bundles a load was attempted for
type BundlesResponse struct {
	Attempted   []string `json:"attempted"`
	SkillsCount int      `json:"skills_count"`
}

// ListBundles returns every bundle name a load was attempted for, including
// bundles that were absent or registered nothing
func (h *SkillHandlers) ListBundles(w http.ResponseWriter, r *http.Request) {
	httputil.WriteSuccess(w, BundlesResponse{
		Attempted:   h.loader.ListLoadedBundles(),
		SkillsCount: h.registry.Count(),
	})
}

// LoadBundleResponse reports the outcome of an on-demand load
type LoadBundleResponse struct {
	Bundle     string   `json:"bundle"`
	Registered []string `json:"registered"`
}

// LoadBundle loads a newly installed bundle
func (h *SkillHandlers) LoadBundle(w http.ResponseWriter, r *http.Request) {
	name, ok := httputil.ParsePathStringOrError(w, r, "name")
	if !ok {
		return
	}

	if !h.loader.IsBundleAvailable(r.Context(), name) {
		httputil.WriteDetailedError(w, http.StatusNotFound, "bundle_not_installed", "bundle not installed: "+name, map[string]string{"bundle": name})
		return
	}

	ids, err := h.loader.LoadInstalledBundle(r.Context(), name)
	if err != nil {
		h.log.WithError(err).WithField("bundle", name).Warn("Bundle load failed")
		httputil.WriteInternalError(w, err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	httputil.WriteSuccess(w, LoadBundleResponse{Bundle: name, Registered: ids})
}

// UnloadBundle unregisters the skills of a bundle so it can be reloaded
func (h *SkillHandlers) UnloadBundle(w http.ResponseWriter, r *http.Request) {
	name, ok := httputil.ParsePathStringOrError(w, r, "name")
	if !ok {
		return
	}

	if err := h.loader.UnloadBundle(r.Context(), name); err != nil {
		if errors.Is(err, skills.ErrBundleNotLoaded) {
			httputil.WriteDetailedError(w, http.StatusNotFound, "bundle_not_loaded", err.Error(), map[string]string{"bundle": name})
			return
		}
		h.log.WithError(err).WithField("bundle", name).Error("Failed to unload bundle")
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteNoContent(w)
}

// InvokeExtension runs the handler a skill provides for a feature type at
// an extension point, falling back to the generic handler
func (h *SkillHandlers) InvokeExtension(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	ft, err := features.ParseItemType(vars["featureType"])
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}
	point, err := skills.ParseExtensionPoint(vars["point"])
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	req := &skills.ExtensionRequest{}
	if r.ContentLength != 0 {
		if !httputil.ParseJSONOrError(w, r, req) {
			return
		}
	}
	req.FeatureType = ft
	req.Point = point

	resp, err := h.registry.ResolveExtension(ft, point).Handle(r.Context(), req)
	if err != nil {
		h.log.WithError(err).WithFields(logrus.Fields{
			"feature_type": ft,
			"point":        point,
		}).Error("Extension handler failed")
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteSuccess(w, resp)
}
