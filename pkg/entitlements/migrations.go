package entitlements

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sirupsen/logrus"
)

// Migration represents a database migration
type Migration struct {
	Version     int
	Description string
	SQL         string
}

// GetMigrations returns the entitlement schema migrations. Timestamps are
// stored in UTC.
func GetMigrations() []Migration {
	return []Migration{
		{
			Version:     1,
			Description: "Create skill_packages table",
			SQL: `
				CREATE TABLE IF NOT EXISTS skill_packages (
					id VARCHAR(36) PRIMARY KEY,
					skill_id VARCHAR(255) NOT NULL UNIQUE,
					feature_type VARCHAR(64),
					premium BOOLEAN NOT NULL DEFAULT FALSE,
					active BOOLEAN NOT NULL DEFAULT TRUE,
					name VARCHAR(255) NOT NULL,
					created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
					updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
				);

				CREATE INDEX IF NOT EXISTS idx_skill_packages_feature_type ON skill_packages(feature_type, active);
			`,
		},
		{
			Version:     2,
			Description: "Create customers and customer_organizations tables",
			SQL: `
				CREATE TABLE IF NOT EXISTS customers (
					id VARCHAR(36) PRIMARY KEY,
					name VARCHAR(255) NOT NULL,
					email VARCHAR(255) NOT NULL,
					created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
					updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
				);

				CREATE TABLE IF NOT EXISTS customer_organizations (
					id VARCHAR(36) PRIMARY KEY,
					customer_id VARCHAR(36) NOT NULL REFERENCES customers(id) ON DELETE CASCADE,
					organization_id VARCHAR(255) NOT NULL,
					is_primary BOOLEAN NOT NULL DEFAULT FALSE,
					created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
					UNIQUE(customer_id, organization_id)
				);

				CREATE INDEX IF NOT EXISTS idx_customer_organizations_org ON customer_organizations(organization_id);
			`,
		},
		{
			Version:     3,
			Description: "Create skill_entitlements table",
			SQL: `
				CREATE TABLE IF NOT EXISTS skill_entitlements (
					id VARCHAR(36) PRIMARY KEY,
					customer_id VARCHAR(36) NOT NULL REFERENCES customers(id) ON DELETE CASCADE,
					skill_package_id VARCHAR(36) NOT NULL REFERENCES skill_packages(id) ON DELETE CASCADE,
					license_type VARCHAR(64) NOT NULL,
					status VARCHAR(16) NOT NULL DEFAULT 'ACTIVE' CHECK (status IN ('ACTIVE', 'SUSPENDED')),
					expires_at TIMESTAMP,
					created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
					updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
					UNIQUE(customer_id, skill_package_id)
				);

				CREATE INDEX IF NOT EXISTS idx_skill_entitlements_package ON skill_entitlements(skill_package_id);
			`,
		},
	}
}

// RunMigrations applies pending migrations, each in its own transaction
func RunMigrations(ctx context.Context, db *sql.DB, log *logrus.Logger) error {
	if log == nil {
		log = logrus.New()
	}

	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS skillgate_migrations (
			version INT PRIMARY KEY,
			description TEXT NOT NULL,
			applied_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	applied, err := appliedMigrations(ctx, db)
	if err != nil {
		return err
	}

	for _, m := range GetMigrations() {
		if applied[m.Version] {
			continue
		}

		log.Infof("Running migration %d: %s", m.Version, m.Description)

		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to start transaction: %w", err)
		}

		if _, err := tx.ExecContext(ctx, m.SQL); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to execute migration %d: %w", m.Version, err)
		}

		if _, err := tx.ExecContext(ctx,
			"INSERT INTO skillgate_migrations (version, description) VALUES ($1, $2)",
			m.Version, m.Description,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", m.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", m.Version, err)
		}
	}

	return nil
}

func appliedMigrations(ctx context.Context, db *sql.DB) (map[int]bool, error) {
	rows, err := db.QueryContext(ctx, "SELECT version FROM skillgate_migrations ORDER BY version")
	if err != nil {
		return nil, fmt.Errorf("failed to query migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[int]bool)
	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			return nil, fmt.Errorf("failed to scan migration version: %w", err)
		}
		applied[version] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read migrations: %w", err)
	}
	return applied, nil
}
