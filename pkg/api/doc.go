// Package api exposes the entitlement engine over HTTP.
//
// All routes live under /api/v1:
//
//	POST   /entitlements                              issue or renew a license
//	GET    /entitlements/{id}
//	POST   /entitlements/{id}/suspend
//	POST   /entitlements/{id}/reactivate
//	DELETE /entitlements/{id}                         revoke
//	GET    /packages, POST /packages
//	POST   /customers
//	GET    /customers/{customer}/entitlements
//	POST   /customers/{customer}/organizations
//	DELETE /customers/{customer}/organizations/{org}
//	GET    /orgs/{org}/entitlements
//	GET    /orgs/{org}/entitlements/{featureType}
//	GET    /orgs/{org}/catalog-access
//	GET    /orgs/{org}/assessments, POST /orgs/{org}/assessments
//	GET    /orgs/{org}/assessments/{id}
//	GET    /skills, GET /skills/templates, GET /skills/bundles
//	POST   /skills/bundles/{name}/load, DELETE /skills/bundles/{name}
//	POST   /skills/extensions/{featureType}/{point}
//
// Creating an assessment for a premium feature type without a license
// answers 403:
//
//	{"error":"upgrade_required","feature":"Data Protection Impact Assessment","reason":"no_active_license"}
package api
