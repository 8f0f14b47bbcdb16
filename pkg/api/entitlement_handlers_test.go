package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/skillgate/pkg/entitlements"
	"github.com/platinummonkey/skillgate/pkg/features"
)

func serveEntitlements(admin EntitlementAdmin, resolver EntitlementResolver, method, path string, body interface{}) *httptest.ResponseRecorder {
	router := NewRouter(NewEntitlementHandlers(admin, resolver, testLogger()))

	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestEntitlementHandlers_Issue(t *testing.T) {
	expires := time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC)
	admin := &mockAdmin{
		issueFunc: func(ctx context.Context, req entitlements.IssueRequest) (*entitlements.SkillEntitlement, error) {
			assert.Equal(t, "cust-1", req.CustomerID)
			assert.Equal(t, "pkg-1", req.PackageID)
			require.NotNil(t, req.ExpiresAt)
			assert.True(t, expires.Equal(*req.ExpiresAt))
			return &entitlements.SkillEntitlement{
				ID: "ent-1", CustomerID: req.CustomerID, SkillPackageID: req.PackageID,
				LicenseType: req.LicenseType, Status: entitlements.StatusActive, ExpiresAt: req.ExpiresAt,
			}, nil
		},
	}

	rec := serveEntitlements(admin, &mockResolver{}, "POST", "/api/v1/entitlements", map[string]interface{}{
		"customer_id":      "cust-1",
		"skill_package_id": "pkg-1",
		"license_type":     "annual",
		"expires_at":       expires,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var e entitlements.SkillEntitlement
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &e))
	assert.Equal(t, "ent-1", e.ID)
	assert.Equal(t, entitlements.StatusActive, e.Status)
}

func TestEntitlementHandlers_IssueErrors(t *testing.T) {
	tests := []struct {
		name     string
		body     interface{}
		err      error
		wantCode int
	}{
		{
			name:     "unknown field",
			body:     map[string]string{"customer": "x"},
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "validation",
			body:     map[string]string{"customer_id": ""},
			err:      fmt.Errorf("%w: customer_id is required", entitlements.ErrInvalidRequest),
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "unknown package",
			body:     map[string]string{"customer_id": "c", "skill_package_id": "nope", "license_type": "trial"},
			err:      entitlements.ErrPackageNotFound,
			wantCode: http.StatusNotFound,
		},
		{
			name:     "store failure",
			body:     map[string]string{"customer_id": "c", "skill_package_id": "p", "license_type": "trial"},
			err:      errors.New("connection reset"),
			wantCode: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			admin := &mockAdmin{
				issueFunc: func(context.Context, entitlements.IssueRequest) (*entitlements.SkillEntitlement, error) {
					return nil, tt.err
				},
			}
			rec := serveEntitlements(admin, &mockResolver{}, "POST", "/api/v1/entitlements", tt.body)
			assert.Equal(t, tt.wantCode, rec.Code)
		})
	}
}

func TestEntitlementHandlers_Transitions(t *testing.T) {
	var calls []string
	admin := &mockAdmin{
		suspendFunc: func(ctx context.Context, id string) (*entitlements.SkillEntitlement, error) {
			calls = append(calls, "suspend:"+id)
			return &entitlements.SkillEntitlement{ID: id, Status: entitlements.StatusSuspended}, nil
		},
		reactivateFunc: func(ctx context.Context, id string) (*entitlements.SkillEntitlement, error) {
			calls = append(calls, "reactivate:"+id)
			if id == "missing" {
				return nil, entitlements.ErrEntitlementNotFound
			}
			return &entitlements.SkillEntitlement{ID: id, Status: entitlements.StatusActive}, nil
		},
		revokeFunc: func(ctx context.Context, id string) error {
			calls = append(calls, "revoke:"+id)
			return nil
		},
	}

	rec := serveEntitlements(admin, nil, "POST", "/api/v1/entitlements/ent-1/suspend", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"SUSPENDED"`)

	rec = serveEntitlements(admin, nil, "POST", "/api/v1/entitlements/ent-1/reactivate", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ACTIVE"`)

	rec = serveEntitlements(admin, nil, "POST", "/api/v1/entitlements/missing/reactivate", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = serveEntitlements(admin, nil, "DELETE", "/api/v1/entitlements/ent-1", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	assert.Equal(t, []string{"suspend:ent-1", "reactivate:ent-1", "reactivate:missing", "revoke:ent-1"}, calls)
}

func TestEntitlementHandlers_LinkOrganizationUsesPathCustomer(t *testing.T) {
	admin := &mockAdmin{
		linkOrganizationFunc: func(ctx context.Context, req entitlements.LinkRequest) (*entitlements.CustomerOrganization, error) {
			return &entitlements.CustomerOrganization{ID: "link-1", CustomerID: req.CustomerID, OrganizationID: req.OrganizationID, IsPrimary: req.IsPrimary}, nil
		},
		unlinkOrganizationFunc: func(ctx context.Context, customerID, orgID string) error {
			if customerID != "cust-1" || orgID != "org-1" {
				return entitlements.ErrLinkNotFound
			}
			return nil
		},
	}

	rec := serveEntitlements(admin, nil, "POST", "/api/v1/customers/cust-1/organizations", map[string]interface{}{
		"customer_id":     "ignored",
		"organization_id": "org-1",
		"is_primary":      true,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var link entitlements.CustomerOrganization
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &link))
	assert.Equal(t, "cust-1", link.CustomerID)
	assert.True(t, link.IsPrimary)

	rec = serveEntitlements(admin, nil, "DELETE", "/api/v1/customers/cust-1/organizations/org-1", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = serveEntitlements(admin, nil, "DELETE", "/api/v1/customers/cust-1/organizations/org-2", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestEntitlementHandlers_CheckEntitlement(t *testing.T) {
	resolver := &mockResolver{
		checkFunc: func(ctx context.Context, orgID string, ft features.Type) (entitlements.Decision, error) {
			assert.Equal(t, "org-1", orgID)
			if ft == features.DPIA {
				return entitlements.Decision{FeatureType: ft, Entitled: false, Reason: entitlements.ReasonNoActiveLicense, Message: "no active license"}, nil
			}
			return entitlements.Decision{FeatureType: ft, Entitled: true, Reason: entitlements.ReasonFreeFeature}, nil
		},
	}

	rec := serveEntitlements(nil, resolver, "GET", "/api/v1/orgs/org-1/entitlements/dpia", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var d entitlements.Decision
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &d))
	assert.False(t, d.Entitled)
	assert.Equal(t, entitlements.ReasonNoActiveLicense, d.Reason)

	rec = serveEntitlements(nil, resolver, "GET", "/api/v1/orgs/org-1/entitlements/PIA", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"entitled":true`)

	rec = serveEntitlements(nil, resolver, "GET", "/api/v1/orgs/org-1/entitlements/ROPA", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEntitlementHandlers_OrgQueries(t *testing.T) {
	resolver := &mockResolver{
		listEntitledFunc: func(ctx context.Context, orgID string) ([]features.Type, error) {
			return append(features.Free(), features.LIA), nil
		},
		catalogAccessFunc: func(ctx context.Context, orgID string) (bool, error) {
			if orgID == "broken" {
				return false, errors.New("db down")
			}
			return true, nil
		},
	}

	rec := serveEntitlements(nil, resolver, "GET", "/api/v1/orgs/org-1/entitlements", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list EntitledFeatureTypesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Equal(t, "org-1", list.OrganizationID)
	assert.Contains(t, list.FeatureTypes, features.PIA)
	assert.Contains(t, list.FeatureTypes, features.LIA)

	rec = serveEntitlements(nil, resolver, "GET", "/api/v1/orgs/org-1/catalog-access", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"organization_id":"org-1","has_access":true}`, rec.Body.String())

	rec = serveEntitlements(nil, resolver, "GET", "/api/v1/orgs/broken/catalog-access", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestEntitlementHandlers_Catalog(t *testing.T) {
	admin := &mockAdmin{
		upsertPackageFunc: func(ctx context.Context, req entitlements.PackageRequest) (*entitlements.SkillPackage, error) {
			return &entitlements.SkillPackage{ID: "pkg-1", SkillID: req.SkillID, FeatureType: req.FeatureType, Premium: req.Premium, Active: true, Name: req.Name}, nil
		},
		listPackagesFunc: func(ctx context.Context) ([]*entitlements.SkillPackage, error) {
			return []*entitlements.SkillPackage{{ID: "pkg-1", SkillID: "com.privacy.dpia"}}, nil
		},
		createCustomerFunc: func(ctx context.Context, req entitlements.CustomerRequest) (*entitlements.Customer, error) {
			return &entitlements.Customer{ID: "cust-1", Name: req.Name, Email: req.Email}, nil
		},
		listCustomerFunc: func(ctx context.Context, customerID string) ([]*entitlements.SkillEntitlement, error) {
			return nil, entitlements.ErrCustomerNotFound
		},
	}

	rec := serveEntitlements(admin, nil, "POST", "/api/v1/packages", map[string]interface{}{
		"skill_id": "com.privacy.dpia", "name": "DPIA", "feature_type": "DPIA", "premium": true,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"feature_type":"DPIA"`)

	rec = serveEntitlements(admin, nil, "GET", "/api/v1/packages", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "com.privacy.dpia")

	rec = serveEntitlements(admin, nil, "POST", "/api/v1/customers", map[string]string{"name": "Acme", "email": "billing@acme.test"})
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec = serveEntitlements(admin, nil, "GET", "/api/v1/customers/unknown/entitlements", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
