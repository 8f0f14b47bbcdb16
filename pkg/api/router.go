package api

import (
	"github.com/gorilla/mux"
)

// RouteRegistrar is implemented by every handler group
type RouteRegistrar interface {
	RegisterRoutes(router *mux.Router)
}

// NewRouter mounts the handler groups under /api/v1. Middleware installed
// with Use on the returned router sees the matched route template.
func NewRouter(groups ...RouteRegistrar) *mux.Router {
	router := mux.NewRouter()
	v1 := router.PathPrefix("/api/v1").Subrouter()
	for _, g := range groups {
		g.RegisterRoutes(v1)
	}
	return router
}
