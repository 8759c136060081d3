package legacy

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"orgprofile/internal/company/models"
	"orgprofile/internal/company/store/primary"
	"orgprofile/pkg/platform/sentinel"
	"orgprofile/pkg/platform/tx"
)

// Companies are only visible once their COMPANY_ADDRESS document has arrived.
const selectLegacy = `
	SELECT c.code, c.data, c.created_time, c.updated_time, a.data, b.data
	FROM advance_company c
	JOIN advance_company_address a ON a.code = c.code AND a.address_type = 'COMPANY_ADDRESS'
	LEFT JOIN advance_company_address b ON b.code = c.code AND b.address_type = 'BILLING_ADDRESS'`

// PostgresStore reads and ingests legacy documents from the advance_company tables.
type PostgresStore struct {
	db    *sql.DB
	clock func() time.Time
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db, clock: time.Now}
}

// Insert stores or replaces the company document for rec.Code.
func (s *PostgresStore) Insert(ctx context.Context, rec models.LegacyRecord) error {
	_, err := tx.ExecerFrom(ctx, s.db).ExecContext(ctx, `
		INSERT INTO advance_company (code, name, data, created_time, updated_time)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (code) DO UPDATE SET
			name = EXCLUDED.name,
			data = EXCLUDED.data,
			updated_time = EXCLUDED.updated_time`,
		rec.Code, str(rec.Data, models.KeyName), rec.Data, rec.CreatedAt.UTC(), rec.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert legacy company %s: %w", rec.Code, err)
	}
	return nil
}

// InsertAddress stores or replaces the address document of one type.
func (s *PostgresStore) InsertAddress(ctx context.Context, addr models.LegacyAddress) error {
	a := toAddress(addr.Data)
	now := s.clock().UTC()
	_, err := tx.ExecerFrom(ctx, s.db).ExecContext(ctx, `
		INSERT INTO advance_company_address
			(code, address_type, address_line_1, address_line_2, city, country, post_code, data, created_time)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (code, address_type) DO UPDATE SET
			address_line_1 = EXCLUDED.address_line_1,
			address_line_2 = EXCLUDED.address_line_2,
			city = EXCLUDED.city,
			country = EXCLUDED.country,
			post_code = EXCLUDED.post_code,
			data = EXCLUDED.data,
			updated_time = EXCLUDED.created_time`,
		addr.Code, string(addr.Type), a.Line1, a.Line2, a.City, a.CountryCode, a.PostCode, addr.Data, now)
	if err != nil {
		return fmt.Errorf("insert legacy address %s/%s: %w", addr.Code, addr.Type, err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, code string) (*models.Company, error) {
	c, err := scanLegacy(tx.ExecerFrom(ctx, s.db).QueryRowContext(ctx, selectLegacy+` WHERE c.code = $1`, code))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get legacy company %s: %w", code, err)
	}
	return &c, nil
}

func (s *PostgresStore) GetMany(ctx context.Context, codes []string) ([]models.Company, error) {
	if len(codes) == 0 {
		return nil, nil
	}
	return s.query(ctx, selectLegacy+` WHERE c.code = ANY($1) ORDER BY c.code LIMIT $2`, pq.Array(codes), models.MaxResults)
}

func (s *PostgresStore) ExistsByCode(ctx context.Context, code string) (bool, error) {
	return s.exists(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM advance_company c
			JOIN advance_company_address a ON a.code = c.code AND a.address_type = 'COMPANY_ADDRESS'
			WHERE c.code = $1
		)`, code)
}

func (s *PostgresStore) ExistsByNameForOrg(ctx context.Context, name, excludeCode string) (bool, error) {
	return s.exists(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM advance_company
			WHERE lower(data->>'name') = lower($1) AND code <> $2
		)`, name, excludeCode)
}

func (s *PostgresStore) ExistsByAddress(ctx context.Context, a models.Address) (bool, error) {
	return s.exists(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM advance_company_address
			WHERE address_type = 'COMPANY_ADDRESS'
			  AND lower(address_line_1) = lower($1) AND lower(city) = lower($2)
			  AND lower(country) = lower($3) AND lower(post_code) = lower($4)
		)`, a.Line1, a.City, a.CountryCode, a.PostCode)
}

func (s *PostgresStore) FindActiveBySubscriptionType(ctx context.Context, tierCode string) ([]string, error) {
	rows, err := tx.ExecerFrom(ctx, s.db).QueryContext(ctx, `
		SELECT code FROM advance_company
		WHERE data->>'subscriptionType' = $1 AND data->>'membershipStatus' = $2
		ORDER BY code`, tierCode, string(models.MembershipActive))
	if err != nil {
		return nil, fmt.Errorf("find legacy companies by subscription type: %w", err)
	}
	defer rows.Close()
	var codes []string
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, fmt.Errorf("scan legacy company code: %w", err)
		}
		codes = append(codes, code)
	}
	return codes, rows.Err()
}

func (s *PostgresStore) FindByLocalName(ctx context.Context, name string) ([]models.Company, error) {
	return s.query(ctx, selectLegacy+` WHERE c.data->>'smdNameInLocalLanguage' = $1 ORDER BY c.code LIMIT $2`,
		name, models.MaxResults)
}

func (s *PostgresStore) FindByLocalNameStartingWith(ctx context.Context, prefix string) ([]models.Company, error) {
	return s.query(ctx, selectLegacy+` WHERE c.data->>'smdNameInLocalLanguage' LIKE $1 ORDER BY c.code LIMIT $2`,
		primary.EscapeLike(prefix)+"%", models.MaxResults)
}

func (s *PostgresStore) exists(ctx context.Context, query string, args ...any) (bool, error) {
	var ok bool
	if err := tx.ExecerFrom(ctx, s.db).QueryRowContext(ctx, query, args...).Scan(&ok); err != nil {
		return false, fmt.Errorf("legacy company exists: %w", err)
	}
	return ok, nil
}

func (s *PostgresStore) query(ctx context.Context, query string, args ...any) ([]models.Company, error) {
	rows, err := tx.ExecerFrom(ctx, s.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query legacy companies: %w", err)
	}
	defer rows.Close()
	var out []models.Company
	for rows.Next() {
		c, err := scanLegacy(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanLegacy(row scanner) (models.Company, error) {
	var (
		rec     models.LegacyRecord
		updated sql.NullTime
		address []byte
		billing []byte
	)
	if err := row.Scan(&rec.Code, &rec.Data, &rec.CreatedAt, &updated, &address, &billing); err != nil {
		return models.Company{}, err
	}
	if updated.Valid {
		rec.UpdatedAt = &updated.Time
	}
	return toCompany(rec, address, billing), nil
}
