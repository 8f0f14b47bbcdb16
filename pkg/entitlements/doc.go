// Package entitlements resolves and administers skill licenses.
//
// # Data Model
//
// A SkillPackage maps a stable skill ID to a feature type. A Customer is a
// billing entity linked to one or more organizations through
// CustomerOrganization. A SkillEntitlement grants a customer a package and
// carries an administrative Status (ACTIVE or SUSPENDED) and an optional
// expiry. Whether an entitlement is usable is computed on every check:
//
//	usable = status == ACTIVE && (expires_at == nil || expires_at >= now)
//
// # Resolution
//
// Resolver.CheckEntitlement walks a fixed chain and reports the first step
// that fails:
//
//	free feature type          -> entitled  (free_feature)
//	no active package          -> denied    (no_package)
//	organization not linked    -> denied    (no_customer_link)
//	no usable entitlement      -> denied    (no_active_license)
//	otherwise                  -> entitled  (licensed)
//
// When an organization is linked to several customers the primary link is
// used, then the oldest.
//
// # Administration
//
// Admin issues, suspends, reactivates and revokes entitlements. Issue is an
// upsert keyed by (customer, package) that always leaves the entitlement
// ACTIVE. Suspend and reactivate change only the status, and revoke deletes
// the row. Changes are published through a Publisher (Redis pub/sub in
// production).
//
// # Caching
//
// CachedStore keeps the package catalog in an expiring LRU. Customer links
// and entitlements are never cached.
package entitlements
