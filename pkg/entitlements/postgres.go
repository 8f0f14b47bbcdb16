package entitlements

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/platinummonkey/skillgate/pkg/features"
)

const (
	packageColumns     = "id, skill_id, feature_type, premium, active, name, created_at, updated_at"
	linkColumns        = "id, customer_id, organization_id, is_primary, created_at"
	entitlementColumns = "id, customer_id, skill_package_id, license_type, status, expires_at, created_at, updated_at"
)

// PostgresStore implements Store using PostgreSQL
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL-backed store
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPackage(row rowScanner) (*SkillPackage, error) {
	pkg := &SkillPackage{}
	var featureType sql.NullString
	if err := row.Scan(&pkg.ID, &pkg.SkillID, &featureType, &pkg.Premium, &pkg.Active,
		&pkg.Name, &pkg.CreatedAt, &pkg.UpdatedAt); err != nil {
		return nil, err
	}
	pkg.FeatureType = features.Type(featureType.String)
	return pkg, nil
}

func scanLink(row rowScanner) (*CustomerOrganization, error) {
	link := &CustomerOrganization{}
	if err := row.Scan(&link.ID, &link.CustomerID, &link.OrganizationID, &link.IsPrimary, &link.CreatedAt); err != nil {
		return nil, err
	}
	return link, nil
}

func scanEntitlement(row rowScanner) (*SkillEntitlement, error) {
	e := &SkillEntitlement{}
	var expiresAt, createdAt, updatedAt timestamp
	if err := row.Scan(&e.ID, &e.CustomerID, &e.SkillPackageID, &e.LicenseType, &e.Status,
		&expiresAt, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	if expiresAt.Valid {
		t := expiresAt.Time
		e.ExpiresAt = &t
	}
	e.CreatedAt = createdAt.Time
	e.UpdatedAt = updatedAt.Time
	return e, nil
}

// timestampLayouts are the text forms SQLite hands back when a column
// carries no declared type, as with RETURNING.
var timestampLayouts = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02T15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339Nano,
}

// timestamp scans a nullable time delivered either as time.Time or as text
type timestamp struct {
	Time  time.Time
	Valid bool
}

func (ts *timestamp) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		ts.Time, ts.Valid = time.Time{}, false
		return nil
	case time.Time:
		ts.Time, ts.Valid = v, true
		return nil
	case []byte:
		return ts.parse(string(v))
	case string:
		return ts.parse(v)
	}
	return fmt.Errorf("unsupported timestamp type %T", value)
}

func (ts *timestamp) parse(s string) error {
	s = strings.TrimSuffix(s, "Z")
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			ts.Time, ts.Valid = t.UTC(), true
			return nil
		}
	}
	return fmt.Errorf("invalid timestamp %q", s)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

// GetActivePackageByFeatureType returns the oldest active package mapped to ft
func (s *PostgresStore) GetActivePackageByFeatureType(ctx context.Context, ft features.Type) (*SkillPackage, error) {
	query := `
		SELECT ` + packageColumns + `
		FROM skill_packages
		WHERE feature_type = $1 AND active = $2
		ORDER BY created_at ASC, id ASC
		LIMIT 1
	`
	pkg, err := scanPackage(s.db.QueryRowContext(ctx, query, string(ft), true))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get package for feature type %s: %w", ft, err)
	}
	return pkg, nil
}

// GetPackage retrieves a package by ID
func (s *PostgresStore) GetPackage(ctx context.Context, id string) (*SkillPackage, error) {
	query := `SELECT ` + packageColumns + ` FROM skill_packages WHERE id = $1`
	pkg, err := scanPackage(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPackageNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get package: %w", err)
	}
	return pkg, nil
}

// ListPackages returns every package ordered by skill ID
func (s *PostgresStore) ListPackages(ctx context.Context) ([]*SkillPackage, error) {
	query := `SELECT ` + packageColumns + ` FROM skill_packages ORDER BY skill_id ASC`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list packages: %w", err)
	}
	defer rows.Close()

	var pkgs []*SkillPackage
	for rows.Next() {
		pkg, err := scanPackage(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan package: %w", err)
		}
		pkgs = append(pkgs, pkg)
	}
	return pkgs, rows.Err()
}

// UpsertPackage creates a package or updates the one with the same skill ID
func (s *PostgresStore) UpsertPackage(ctx context.Context, pkg *SkillPackage) (*SkillPackage, error) {
	if pkg.ID == "" {
		pkg.ID = uuid.NewString()
	}

	query := `
		INSERT INTO skill_packages (id, skill_id, feature_type, premium, active, name, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (skill_id) DO UPDATE SET
			feature_type = EXCLUDED.feature_type,
			premium = EXCLUDED.premium,
			active = EXCLUDED.active,
			name = EXCLUDED.name,
			updated_at = EXCLUDED.updated_at
	`
	if _, err := s.db.ExecContext(ctx, query,
		pkg.ID, pkg.SkillID, nullString(string(pkg.FeatureType)), pkg.Premium, pkg.Active,
		pkg.Name, pkg.CreatedAt, pkg.UpdatedAt,
	); err != nil {
		return nil, fmt.Errorf("failed to upsert package: %w", err)
	}

	saved, err := scanPackage(s.db.QueryRowContext(ctx,
		`SELECT `+packageColumns+` FROM skill_packages WHERE skill_id = $1`, pkg.SkillID))
	if err != nil {
		return nil, fmt.Errorf("failed to read upserted package: %w", err)
	}
	return saved, nil
}

// CreateCustomer inserts a customer
func (s *PostgresStore) CreateCustomer(ctx context.Context, customer *Customer) (*Customer, error) {
	if customer.ID == "" {
		customer.ID = uuid.NewString()
	}

	query := `
		INSERT INTO customers (id, name, email, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	if _, err := s.db.ExecContext(ctx, query,
		customer.ID, customer.Name, customer.Email, customer.CreatedAt, customer.UpdatedAt,
	); err != nil {
		return nil, fmt.Errorf("failed to create customer: %w", err)
	}
	return customer, nil
}

// GetCustomer retrieves a customer by ID
func (s *PostgresStore) GetCustomer(ctx context.Context, id string) (*Customer, error) {
	query := `SELECT id, name, email, created_at, updated_at FROM customers WHERE id = $1`
	c := &Customer{}
	err := s.db.QueryRowContext(ctx, query, id).Scan(&c.ID, &c.Name, &c.Email, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCustomerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get customer: %w", err)
	}
	return c, nil
}

// LinkOrganization links a customer to an organization, updating the
// primary flag if the link already exists
func (s *PostgresStore) LinkOrganization(ctx context.Context, link *CustomerOrganization) (*CustomerOrganization, error) {
	if link.ID == "" {
		link.ID = uuid.NewString()
	}

	query := `
		INSERT INTO customer_organizations (id, customer_id, organization_id, is_primary, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (customer_id, organization_id) DO UPDATE SET
			is_primary = EXCLUDED.is_primary
	`
	if _, err := s.db.ExecContext(ctx, query,
		link.ID, link.CustomerID, link.OrganizationID, link.IsPrimary, link.CreatedAt,
	); err != nil {
		return nil, fmt.Errorf("failed to link organization: %w", err)
	}

	saved, err := scanLink(s.db.QueryRowContext(ctx,
		`SELECT `+linkColumns+` FROM customer_organizations WHERE customer_id = $1 AND organization_id = $2`,
		link.CustomerID, link.OrganizationID))
	if err != nil {
		return nil, fmt.Errorf("failed to read organization link: %w", err)
	}
	return saved, nil
}

// UnlinkOrganization removes the link between a customer and an organization
func (s *PostgresStore) UnlinkOrganization(ctx context.Context, customerID, orgID string) error {
	query := `DELETE FROM customer_organizations WHERE customer_id = $1 AND organization_id = $2`
	result, err := s.db.ExecContext(ctx, query, customerID, orgID)
	if err != nil {
		return fmt.Errorf("failed to unlink organization: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return ErrLinkNotFound
	}
	return nil
}

// GetCustomerLinkForOrganization returns the link used to bill orgID. A
// primary link wins, then the oldest link.
func (s *PostgresStore) GetCustomerLinkForOrganization(ctx context.Context, orgID string) (*CustomerOrganization, error) {
	query := `
		SELECT ` + linkColumns + `
		FROM customer_organizations
		WHERE organization_id = $1
		ORDER BY is_primary DESC, created_at ASC, id ASC
		LIMIT 1
	`
	link, err := scanLink(s.db.QueryRowContext(ctx, query, orgID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get customer link: %w", err)
	}
	return link, nil
}

// ListEntitlements returns the customer's entitlements for a package
func (s *PostgresStore) ListEntitlements(ctx context.Context, customerID, packageID string) ([]*SkillEntitlement, error) {
	query := `
		SELECT ` + entitlementColumns + `
		FROM skill_entitlements
		WHERE customer_id = $1 AND skill_package_id = $2
		ORDER BY created_at ASC
	`
	return s.queryEntitlements(ctx, query, customerID, packageID)
}

// ListCustomerEntitlements returns every entitlement held by a customer
func (s *PostgresStore) ListCustomerEntitlements(ctx context.Context, customerID string) ([]*SkillEntitlement, error) {
	query := `
		SELECT ` + entitlementColumns + `
		FROM skill_entitlements
		WHERE customer_id = $1
		ORDER BY created_at ASC
	`
	return s.queryEntitlements(ctx, query, customerID)
}

func (s *PostgresStore) queryEntitlements(ctx context.Context, query string, args ...interface{}) ([]*SkillEntitlement, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list entitlements: %w", err)
	}
	defer rows.Close()

	var result []*SkillEntitlement
	for rows.Next() {
		e, err := scanEntitlement(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan entitlement: %w", err)
		}
		result = append(result, e)
	}
	return result, rows.Err()
}

// GetEntitlement retrieves an entitlement by ID
func (s *PostgresStore) GetEntitlement(ctx context.Context, id string) (*SkillEntitlement, error) {
	query := `SELECT ` + entitlementColumns + ` FROM skill_entitlements WHERE id = $1`
	e, err := scanEntitlement(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrEntitlementNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get entitlement: %w", err)
	}
	return e, nil
}

// UpsertEntitlement creates the entitlement for (customer, package) or
// overwrites the existing one's license type, status and expiry
func (s *PostgresStore) UpsertEntitlement(ctx context.Context, e *SkillEntitlement) (*SkillEntitlement, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}

	query := `
		INSERT INTO skill_entitlements (id, customer_id, skill_package_id, license_type, status, expires_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (customer_id, skill_package_id) DO UPDATE SET
			license_type = EXCLUDED.license_type,
			status = EXCLUDED.status,
			expires_at = EXCLUDED.expires_at,
			updated_at = EXCLUDED.updated_at
	`
	if _, err := s.db.ExecContext(ctx, query,
		e.ID, e.CustomerID, e.SkillPackageID, e.LicenseType, string(e.Status),
		nullTime(e.ExpiresAt), e.CreatedAt, e.UpdatedAt,
	); err != nil {
		return nil, fmt.Errorf("failed to upsert entitlement: %w", err)
	}

	saved, err := scanEntitlement(s.db.QueryRowContext(ctx,
		`SELECT `+entitlementColumns+` FROM skill_entitlements WHERE customer_id = $1 AND skill_package_id = $2`,
		e.CustomerID, e.SkillPackageID))
	if err != nil {
		return nil, fmt.Errorf("failed to read upserted entitlement: %w", err)
	}
	return saved, nil
}

// SetEntitlementStatus changes only the status of an entitlement
func (s *PostgresStore) SetEntitlementStatus(ctx context.Context, id string, status Status, updatedAt time.Time) (*SkillEntitlement, error) {
	query := `UPDATE skill_entitlements SET status = $1, updated_at = $2 WHERE id = $3`
	result, err := s.db.ExecContext(ctx, query, string(status), updatedAt, id)
	if err != nil {
		return nil, fmt.Errorf("failed to update entitlement status: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return nil, ErrEntitlementNotFound
	}

	return s.GetEntitlement(ctx, id)
}

// DeleteEntitlement hard-deletes an entitlement and returns the removed row
func (s *PostgresStore) DeleteEntitlement(ctx context.Context, id string) (*SkillEntitlement, error) {
	e, err := scanEntitlement(s.db.QueryRowContext(ctx,
		`DELETE FROM skill_entitlements WHERE id = $1 RETURNING `+entitlementColumns, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrEntitlementNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to delete entitlement: %w", err)
	}
	return e, nil
}
