package api

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/skillgate/pkg/entitlements"
	"github.com/platinummonkey/skillgate/pkg/features"
	"github.com/platinummonkey/skillgate/pkg/httputil"
)

// EntitlementAdmin is the billing side of the entitlement engine
type EntitlementAdmin interface {
	Issue(ctx context.Context, req entitlements.IssueRequest) (*entitlements.SkillEntitlement, error)
	Suspend(ctx context.Context, id string) (*entitlements.SkillEntitlement, error)
	Reactivate(ctx context.Context, id string) (*entitlements.SkillEntitlement, error)
	Revoke(ctx context.Context, id string) error
	GetEntitlement(ctx context.Context, id string) (*entitlements.SkillEntitlement, error)
	ListCustomerEntitlements(ctx context.Context, customerID string) ([]*entitlements.SkillEntitlement, error)
	UpsertPackage(ctx context.Context, req entitlements.PackageRequest) (*entitlements.SkillPackage, error)
	ListPackages(ctx context.Context) ([]*entitlements.SkillPackage, error)
	CreateCustomer(ctx context.Context, req entitlements.CustomerRequest) (*entitlements.Customer, error)
	LinkOrganization(ctx context.Context, req entitlements.LinkRequest) (*entitlements.CustomerOrganization, error)
	UnlinkOrganization(ctx context.Context, customerID, orgID string) error
}

// EntitlementResolver is the read side used by presentation
type EntitlementResolver interface {
	CheckEntitlement(ctx context.Context, orgID string, ft features.Type) (entitlements.Decision, error)
	ListEntitledFeatureTypes(ctx context.Context, orgID string) ([]features.Type, error)
	HasCatalogAccess(ctx context.Context, orgID string) (bool, error)
}

// EntitlementHandlers handles license administration and entitlement queries
type EntitlementHandlers struct {
	admin    EntitlementAdmin
	resolver EntitlementResolver
	log      *logrus.Logger
}

// NewEntitlementHandlers creates a new EntitlementHandlers
func NewEntitlementHandlers(admin EntitlementAdmin, resolver EntitlementResolver, log *logrus.Logger) *EntitlementHandlers {
	if log == nil {
		log = logrus.New()
	}
	return &EntitlementHandlers{
		admin:    admin,
		resolver: resolver,
		log:      log,
	}
}

// RegisterRoutes registers entitlement routes
func (h *EntitlementHandlers) RegisterRoutes(router *mux.Router) {
	// Licenses
	router.HandleFunc("/entitlements", h.Issue).Methods("POST")
	router.HandleFunc("/entitlements/{id}", h.GetEntitlement).Methods("GET")
	router.HandleFunc("/entitlements/{id}", h.Revoke).Methods("DELETE")
	router.HandleFunc("/entitlements/{id}/suspend", h.Suspend).Methods("POST")
	router.HandleFunc("/entitlements/{id}/reactivate", h.Reactivate).Methods("POST")

	// Catalog
	router.HandleFunc("/packages", h.ListPackages).Methods("GET")
	router.HandleFunc("/packages", h.UpsertPackage).Methods("POST")
	router.HandleFunc("/customers", h.CreateCustomer).Methods("POST")
	router.HandleFunc("/customers/{customer}/entitlements", h.ListCustomerEntitlements).Methods("GET")
	router.HandleFunc("/customers/{customer}/organizations", h.LinkOrganization).Methods("POST")
	router.HandleFunc("/customers/{customer}/organizations/{org}", h.UnlinkOrganization).Methods("DELETE")

	// Organization queries
	router.HandleFunc("/orgs/{org}/entitlements", h.ListEntitledFeatureTypes).Methods("GET")
	router.HandleFunc("/orgs/{org}/entitlements/{featureType}", h.CheckEntitlement).Methods("GET")
	router.HandleFunc("/orgs/{org}/catalog-access", h.CatalogAccess).Methods("GET")
}

// Issue creates or renews a license
func (h *EntitlementHandlers) Issue(w http.ResponseWriter, r *http.Request) {
	var req entitlements.IssueRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	e, err := h.admin.Issue(r.Context(), req)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	httputil.WriteCreated(w, e)
}

// GetEntitlement returns a single license
func (h *EntitlementHandlers) GetEntitlement(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}

	e, err := h.admin.GetEntitlement(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	httputil.WriteSuccess(w, e)
}

// Suspend suspends a license
func (h *EntitlementHandlers) Suspend(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.admin.Suspend)
}

// Reactivate reactivates a suspended license
func (h *EntitlementHandlers) Reactivate(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.admin.Reactivate)
}

func (h *EntitlementHandlers) transition(w http.ResponseWriter, r *http.Request, fn func(context.Context, string) (*entitlements.SkillEntitlement, error)) {
	id, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}

	e, err := fn(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	httputil.WriteSuccess(w, e)
}

// Revoke deletes a license
func (h *EntitlementHandlers) Revoke(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}

	if err := h.admin.Revoke(r.Context(), id); err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	httputil.WriteNoContent(w)
}

// ListPackages returns every skill package
func (h *EntitlementHandlers) ListPackages(w http.ResponseWriter, r *http.Request) {
	pkgs, err := h.admin.ListPackages(r.Context())
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	httputil.WriteSuccess(w, pkgs)
}

// UpsertPackage creates or updates a skill package
func (h *EntitlementHandlers) UpsertPackage(w http.ResponseWriter, r *http.Request) {
	var req entitlements.PackageRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	pkg, err := h.admin.UpsertPackage(r.Context(), req)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	httputil.WriteSuccess(w, pkg)
}

// CreateCustomer creates a billing customer
func (h *EntitlementHandlers) CreateCustomer(w http.ResponseWriter, r *http.Request) {
	var req entitlements.CustomerRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	c, err := h.admin.CreateCustomer(r.Context(), req)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	httputil.WriteCreated(w, c)
}

// ListCustomerEntitlements returns the licenses held by a customer
func (h *EntitlementHandlers) ListCustomerEntitlements(w http.ResponseWriter, r *http.Request) {
	customerID, ok := httputil.ParsePathStringOrError(w, r, "customer")
	if !ok {
		return
	}

	ents, err := h.admin.ListCustomerEntitlements(r.Context(), customerID)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	httputil.WriteSuccess(w, ents)
}

// LinkOrganization links an organization to the customer in the path
func (h *EntitlementHandlers) LinkOrganization(w http.ResponseWriter, r *http.Request) {
	customerID, ok := httputil.ParsePathStringOrError(w, r, "customer")
	if !ok {
		return
	}

	var req entitlements.LinkRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	req.CustomerID = customerID

	link, err := h.admin.LinkOrganization(r.Context(), req)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	httputil.WriteCreated(w, link)
}

// UnlinkOrganization removes an organization link
func (h *EntitlementHandlers) UnlinkOrganization(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if err := h.admin.UnlinkOrganization(r.Context(), vars["customer"], vars["org"]); err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	httputil.WriteNoContent(w)
}

// CheckEntitlement answers whether an organization may use a feature type
func (h *EntitlementHandlers) CheckEntitlement(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	ft, err := features.Parse(vars["featureType"])
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	d, err := h.resolver.CheckEntitlement(r.Context(), vars["org"], ft)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	httputil.WriteSuccess(w, d)
}

// EntitledFeatureTypesResponse lists the feature types an organization may create
type EntitledFeatureTypesResponse struct {
	OrganizationID string          `json:"organization_id"`
	FeatureTypes   []features.Type `json:"feature_types"`
}

// ListEntitledFeatureTypes returns the free types plus licensed premium types
func (h *EntitlementHandlers) ListEntitledFeatureTypes(w http.ResponseWriter, r *http.Request) {
	orgID := mux.Vars(r)["org"]

	types, err := h.resolver.ListEntitledFeatureTypes(r.Context(), orgID)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	httputil.WriteSuccess(w, EntitledFeatureTypesResponse{OrganizationID: orgID, FeatureTypes: types})
}

// CatalogAccessResponse reports vendor catalog access
type CatalogAccessResponse struct {
	OrganizationID string `json:"organization_id"`
	HasAccess      bool   `json:"has_access"`
}

// CatalogAccess reports whether an organization may browse the vendor catalog
func (h *EntitlementHandlers) CatalogAccess(w http.ResponseWriter, r *http.Request) {
	orgID := mux.Vars(r)["org"]

	ok, err := h.resolver.HasCatalogAccess(r.Context(), orgID)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	httputil.WriteSuccess(w, CatalogAccessResponse{OrganizationID: orgID, HasAccess: ok})
}
