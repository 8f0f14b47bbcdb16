package assessments

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/platinummonkey/skillgate/pkg/features"
)

// Schema creates the assessments table
const Schema = `
	CREATE TABLE IF NOT EXISTS assessments (
		id VARCHAR(36) PRIMARY KEY,
		organization_id VARCHAR(255) NOT NULL,
		feature_type VARCHAR(64) NOT NULL,
		title VARCHAR(500) NOT NULL,
		template_id VARCHAR(255),
		skill_id VARCHAR(255),
		created_by VARCHAR(255),
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_assessments_org ON assessments(organization_id, created_at);
`

const assessmentColumns = "id, organization_id, feature_type, title, template_id, skill_id, created_by, created_at"

// PostgresRepository implements Repository using PostgreSQL
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository creates a new repository
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// EnsureSchema creates the assessments table if needed
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("failed to create assessments schema: %w", err)
	}
	return nil
}

// Insert stores a new assessment
func (r *PostgresRepository) Insert(ctx context.Context, a *Assessment) error {
	query := `
		INSERT INTO assessments (` + assessmentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.ExecContext(ctx, query,
		a.ID, a.OrganizationID, string(a.FeatureType), a.Title,
		nullString(a.TemplateID), nullString(a.SkillID), nullString(a.CreatedBy), a.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert assessment: %w", err)
	}
	return nil
}

// Get retrieves an assessment scoped to an organization
func (r *PostgresRepository) Get(ctx context.Context, orgID, id string) (*Assessment, error) {
	query := `SELECT ` + assessmentColumns + ` FROM assessments WHERE organization_id = $1 AND id = $2`
	a, err := scanAssessment(r.db.QueryRowContext(ctx, query, orgID, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get assessment: %w", err)
	}
	return a, nil
}

// List returns an organization's assessments, oldest first
func (r *PostgresRepository) List(ctx context.Context, orgID string) ([]*Assessment, error) {
	query := `SELECT ` + assessmentColumns + ` FROM assessments WHERE organization_id = $1 ORDER BY created_at ASC`
	rows, err := r.db.QueryContext(ctx, query, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list assessments: %w", err)
	}
	defer rows.Close()

	var result []*Assessment
	for rows.Next() {
		a, err := scanAssessment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan assessment: %w", err)
		}
		result = append(result, a)
	}
	return result, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAssessment(row rowScanner) (*Assessment, error) {
	a := &Assessment{}
	var ft string
	var templateID, skillID, createdBy sql.NullString
	if err := row.Scan(&a.ID, &a.OrganizationID, &ft, &a.Title, &templateID, &skillID, &createdBy, &a.CreatedAt); err != nil {
		return nil, err
	}
	a.FeatureType = features.Type(ft)
	a.TemplateID = templateID.String
	a.SkillID = skillID.String
	a.CreatedBy = createdBy.String
	return a, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
