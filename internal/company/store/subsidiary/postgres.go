package subsidiary

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"orgprofile/internal/company/models"
	"orgprofile/pkg/platform/tx"
)

// PostgresStore keeps edges in advance_company_subsidiary.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Create inserts the edge unless it already exists.
func (s *PostgresStore) Create(ctx context.Context, parent, child string) error {
	_, err := tx.ExecerFrom(ctx, s.db).ExecContext(ctx, `
		INSERT INTO advance_company_subsidiary (id, parent_organisation_code, child_organisation_code)
		VALUES ($1, $2, $3)
		ON CONFLICT (parent_organisation_code, child_organisation_code) DO NOTHING`,
		uuid.New(), parent, child)
	if err != nil {
		return fmt.Errorf("create subsidiary %s->%s: %w", parent, child, err)
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, parent, child string) error {
	_, err := tx.ExecerFrom(ctx, s.db).ExecContext(ctx, `
		DELETE FROM advance_company_subsidiary
		WHERE parent_organisation_code = $1 AND child_organisation_code = $2`, parent, child)
	if err != nil {
		return fmt.Errorf("delete subsidiary %s->%s: %w", parent, child, err)
	}
	return nil
}

func (s *PostgresStore) Exists(ctx context.Context, parent, child string) (bool, error) {
	var ok bool
	err := tx.ExecerFrom(ctx, s.db).QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM advance_company_subsidiary
			WHERE parent_organisation_code = $1 AND child_organisation_code = $2
		)`, parent, child).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("subsidiary exists %s->%s: %w", parent, child, err)
	}
	return ok, nil
}

func (s *PostgresStore) ChildrenOf(ctx context.Context, parent string) ([]string, error) {
	rows, err := tx.ExecerFrom(ctx, s.db).QueryContext(ctx, `
		SELECT child_organisation_code FROM advance_company_subsidiary
		WHERE parent_organisation_code = $1
		ORDER BY child_organisation_code`, parent)
	if err != nil {
		return nil, fmt.Errorf("children of %s: %w", parent, err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, fmt.Errorf("scan child code: %w", err)
		}
		out = append(out, code)
	}
	return out, rows.Err()
}

// Descendants returns every edge reachable from parent in one recursive query.
// UNION drops repeated edges, which bounds the recursion on cyclic data.
func (s *PostgresStore) Descendants(ctx context.Context, parent string) ([]models.SubsidiaryRelation, error) {
	rows, err := tx.ExecerFrom(ctx, s.db).QueryContext(ctx, `
		WITH RECURSIVE tree (parent_organisation_code, child_organisation_code) AS (
			SELECT parent_organisation_code, child_organisation_code
			FROM advance_company_subsidiary
			WHERE parent_organisation_code = $1
			UNION
			SELECT s.parent_organisation_code, s.child_organisation_code
			FROM advance_company_subsidiary s
			JOIN tree t ON s.parent_organisation_code = t.child_organisation_code
		)
		SELECT parent_organisation_code, child_organisation_code
		FROM tree
		ORDER BY parent_organisation_code, child_organisation_code`, parent)
	if err != nil {
		return nil, fmt.Errorf("descendants of %s: %w", parent, err)
	}
	defer rows.Close()
	var out []models.SubsidiaryRelation
	for rows.Next() {
		var rel models.SubsidiaryRelation
		if err := rows.Scan(&rel.ParentCode, &rel.ChildCode); err != nil {
			return nil, fmt.Errorf("scan subsidiary relation: %w", err)
		}
		out = append(out, rel)
	}
	return out, rows.Err()
}
