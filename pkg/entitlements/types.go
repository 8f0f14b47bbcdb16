package entitlements

import (
	"errors"
	"time"

	"github.com/platinummonkey/skillgate/pkg/features"
)

// Status is the administrative state of an entitlement. Expiry is never
// stored as a status; it is derived from ExpiresAt when the entitlement is used.
type Status string

const (
	StatusActive    Status = "ACTIVE"
	StatusSuspended Status = "SUSPENDED"
)

// Valid reports whether s is a known status
func (s Status) Valid() bool {
	return s == StatusActive || s == StatusSuspended
}

// SkillPackage is the persisted, purchasable catalog entry for a skill
type SkillPackage struct {
	ID          string        `json:"id"`
	SkillID     string        `json:"skill_id"`
	FeatureType features.Type `json:"feature_type,omitempty"`
	Premium     bool          `json:"premium"`
	Active      bool          `json:"active"`
	Name        string        `json:"name"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// Customer is a billing entity
type Customer struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CustomerOrganization links a billing customer to an organization
type CustomerOrganization struct {
	ID             string    `json:"id"`
	CustomerID     string    `json:"customer_id"`
	OrganizationID string    `json:"organization_id"`
	IsPrimary      bool      `json:"is_primary"`
	CreatedAt      time.Time `json:"created_at"`
}

// SkillEntitlement is a license granting a customer access to a skill package
type SkillEntitlement struct {
	ID             string     `json:"id"`
	CustomerID     string     `json:"customer_id"`
	SkillPackageID string     `json:"skill_package_id"`
	LicenseType    string     `json:"license_type"`
	Status         Status     `json:"status"`
	ExpiresAt      *time.Time `json:"expires_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// IsUsable reports whether an entitlement with the given status and expiry
// grants access at now. A nil expiry never expires; expiry is inclusive.
func IsUsable(status Status, expiresAt *time.Time, now time.Time) bool {
	if status != StatusActive {
		return false
	}
	return expiresAt == nil || !expiresAt.Before(now)
}

// UsableAt reports whether e grants access at now
func (e *SkillEntitlement) UsableAt(now time.Time) bool {
	return IsUsable(e.Status, e.ExpiresAt, now)
}

// Reason explains the outcome of an entitlement check
type Reason string

const (
	ReasonFreeFeature     Reason = "free_feature"
	ReasonNoPackage       Reason = "no_package"
	ReasonNoCustomerLink  Reason = "no_customer_link"
	ReasonNoActiveLicense Reason = "no_active_license"
	ReasonLicensed        Reason = "licensed"
)

var reasonMessages = map[Reason]string{
	ReasonFreeFeature:     "free feature type",
	ReasonNoPackage:       "no package configured for this feature type",
	ReasonNoCustomerLink:  "organization not linked to a billing customer",
	ReasonNoActiveLicense: "no active license",
	ReasonLicensed:        "licensed",
}

// Message returns the human readable explanation of r
func (r Reason) Message() string {
	if msg, ok := reasonMessages[r]; ok {
		return msg
	}
	return string(r)
}

// Decision is the result of resolving an organization against a feature type
type Decision struct {
	FeatureType   features.Type `json:"feature_type"`
	Entitled      bool          `json:"entitled"`
	Reason        Reason        `json:"reason"`
	Message       string        `json:"message"`
	EntitlementID string        `json:"entitlement_id,omitempty"`
	LicenseType   string        `json:"license_type,omitempty"`
	ExpiresAt     *time.Time    `json:"expires_at,omitempty"`
}

func newDecision(ft features.Type, entitled bool, reason Reason) Decision {
	return Decision{
		FeatureType: ft,
		Entitled:    entitled,
		Reason:      reason,
		Message:     reason.Message(),
	}
}

var (
	// ErrEntitlementNotFound is returned by transitions on an unknown entitlement ID
	ErrEntitlementNotFound = errors.New("entitlement not found")
	// ErrPackageNotFound is returned when a skill package ID does not exist
	ErrPackageNotFound = errors.New("skill package not found")
	// ErrCustomerNotFound is returned when a customer ID does not exist
	ErrCustomerNotFound = errors.New("customer not found")
	// ErrLinkNotFound is returned when unlinking an organization that is not linked
	ErrLinkNotFound = errors.New("customer organization link not found")
	// ErrInvalidRequest wraps request validation failures
	ErrInvalidRequest = errors.New("invalid request")
)

// IsNotFound reports whether err is one of the not found errors
func IsNotFound(err error) bool {
	return errors.Is(err, ErrEntitlementNotFound) ||
		errors.Is(err, ErrPackageNotFound) ||
		errors.Is(err, ErrCustomerNotFound) ||
		errors.Is(err, ErrLinkNotFound)
}

// Clock supplies the current time
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock
type SystemClock struct{}

// Now returns time.Now in UTC
func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}
