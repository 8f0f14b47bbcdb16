// Package httputil provides HTTP utilities for standardized request/response handling.
//
// # Response Helpers
//
//	httputil.WriteSuccess(w, decision)
//	httputil.WriteCreated(w, entitlement)
//	httputil.WriteBadRequest(w, "customer_id is required")
//	httputil.WriteDetailedError(w, http.StatusForbidden, "upgrade_required", msg, nil)
//
// # Request Parsing
//
//	var req entitlements.IssueRequest
//	if !httputil.ParseJSONOrError(w, r, &req) {
//		return // Error response already written
//	}
//
//	orgID, ok := httputil.ParsePathStringOrError(w, r, "org")
//
// # Middleware
//
//	handler := httputil.Chain(
//		httputil.RequestIDMiddleware,
//		httputil.LoggingMiddleware(log),
//		httputil.RecoveryMiddleware(log),
//		httputil.MaxBytesMiddleware(1<<20),
//	)(router)
package httputil
