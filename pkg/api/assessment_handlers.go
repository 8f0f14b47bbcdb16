package api

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/skillgate/pkg/assessments"
	"github.com/platinummonkey/skillgate/pkg/httputil"
)

// AssessmentService creates and reads assessments
type AssessmentService interface {
	Create(ctx context.Context, req assessments.CreateRequest) (*assessments.Assessment, error)
	Get(ctx context.Context, orgID, id string) (*assessments.Assessment, error)
	List(ctx context.Context, orgID string) ([]*assessments.Assessment, error)
}

// AssessmentHandlers handles assessment requests
type AssessmentHandlers struct {
	service AssessmentService
	log     *logrus.Logger
}

// NewAssessmentHandlers creates a new AssessmentHandlers
func NewAssessmentHandlers(service AssessmentService, log *logrus.Logger) *AssessmentHandlers {
	if log == nil {
		log = logrus.New()
	}
	return &AssessmentHandlers{service: service, log: log}
}

// RegisterRoutes registers assessment routes
func (h *AssessmentHandlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/orgs/{org}/assessments", h.Create).Methods("POST")
	router.HandleFunc("/orgs/{org}/assessments", h.List).Methods("GET")
	router.HandleFunc("/orgs/{org}/assessments/{id}", h.Get).Methods("GET")
}

// Create creates an assessment in the organization from the path
func (h *AssessmentHandlers) Create(w http.ResponseWriter, r *http.Request) {
	orgID, ok := httputil.ParsePathStringOrError(w, r, "org")
	if !ok {
		return
	}

	var req assessments.CreateRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	req.OrganizationID = orgID

	a, err := h.service.Create(r.Context(), req)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	httputil.WriteCreated(w, a)
}

// Get returns one assessment. Reading never re-checks entitlements.
func (h *AssessmentHandlers) Get(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	a, err := h.service.Get(r.Context(), vars["org"], vars["id"])
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	httputil.WriteSuccess(w, a)
}

// List returns the assessments of an organization
func (h *AssessmentHandlers) List(w http.ResponseWriter, r *http.Request) {
	orgID := mux.Vars(r)["org"]
	list, err := h.service.List(r.Context(), orgID)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	if list == nil {
		list = []*assessments.Assessment{}
	}
	httputil.WriteSuccess(w, list)
}
