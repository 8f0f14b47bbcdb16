package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/skillgate/pkg/assessments"
	"github.com/platinummonkey/skillgate/pkg/entitlements"
	"github.com/platinummonkey/skillgate/pkg/gating"
	"github.com/platinummonkey/skillgate/pkg/httputil"
)

// UpgradeRequiredResponse is the body of a 403 for an unlicensed premium feature
type UpgradeRequiredResponse struct {
	Error       string `json:"error"`
	Feature     string `json:"feature"`
	FeatureType string `json:"feature_type"`
	Reason      string `json:"reason"`
	Message     string `json:"message"`
}

// writeServiceError maps domain errors to HTTP responses
func writeServiceError(w http.ResponseWriter, log *logrus.Logger, err error) {
	if fe, ok := gating.AsForbidden(err); ok {
		httputil.WriteJSON(w, http.StatusForbidden, UpgradeRequiredResponse{
			Error:       "upgrade_required",
			Feature:     fe.FeatureName,
			FeatureType: string(fe.FeatureType),
			Reason:      string(fe.Reason),
			Message:     fe.Error(),
		})
		return
	}

	switch {
	case errors.Is(err, entitlements.ErrInvalidRequest), errors.Is(err, assessments.ErrInvalidRequest):
		httputil.WriteBadRequest(w, err.Error())
	case entitlements.IsNotFound(err), errors.Is(err, assessments.ErrNotFound):
		httputil.WriteNotFoundError(w, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		log.WithError(err).Warn("Request timed out")
		httputil.WriteServiceUnavailable(w, "entitlement check timed out, retry later")
	default:
		log.WithError(err).Error("Request failed")
		httputil.WriteInternalError(w, err)
	}
}
