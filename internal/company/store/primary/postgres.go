package primary

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/tidwall/gjson"

	"orgprofile/internal/company/models"
	"orgprofile/internal/company/reconcile"
	"orgprofile/pkg/platform/sentinel"
	"orgprofile/pkg/platform/tx"
)

const selectCompany = `
	SELECT code, name, address_line_1, address_line_2, city, country, post_code,
	       data, created_time, updated_time, company_size
	FROM company`

// PostgresStore persists companies in the company table. Typed columns back the
// lookups; the flattened field map is kept in the data document.
type PostgresStore struct {
	db    *sql.DB
	tx    *tx.Runner
	clock func() time.Time
}

// PostgresOption configures a PostgresStore.
type PostgresOption func(*PostgresStore)

// WithClock sets the write-time source.
func WithClock(clock func() time.Time) PostgresOption {
	return func(s *PostgresStore) {
		if clock != nil {
			s.clock = clock
		}
	}
}

func NewPostgres(db *sql.DB, opts ...PostgresOption) *PostgresStore {
	s := &PostgresStore{db: db, tx: tx.NewRunner(db, 0), clock: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *PostgresStore) Get(ctx context.Context, code string) (*models.Company, error) {
	c, err := scanCompany(tx.ExecerFrom(ctx, s.db).QueryRowContext(ctx, selectCompany+` WHERE code = $1`, code))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get company %s: %w", code, err)
	}
	return &c, nil
}

func (s *PostgresStore) GetMany(ctx context.Context, codes []string) ([]models.Company, error) {
	if len(codes) == 0 {
		return nil, nil
	}
	return s.query(ctx, selectCompany+` WHERE code = ANY($1) ORDER BY code LIMIT $2`, pq.Array(codes), models.MaxResults)
}

func (s *PostgresStore) Create(ctx context.Context, c models.Company) (models.Company, error) {
	now := s.clock().UTC()
	data, err := json.Marshal(models.Flatten(&c))
	if err != nil {
		return models.Company{}, fmt.Errorf("encode company %s: %w", c.Code, err)
	}
	res, err := tx.ExecerFrom(ctx, s.db).ExecContext(ctx, `
		INSERT INTO company (code, name, address_line_1, address_line_2, city, country, post_code, data, created_time, company_size)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (code) DO NOTHING`,
		c.Code, c.Name, c.Address.Line1, nullable(c.Address.Line2), c.Address.City, c.Address.CountryCode,
		c.Address.PostCode, data, now, sizeValue(c.CompanySize))
	if err != nil {
		return models.Company{}, fmt.Errorf("insert company %s: %w", c.Code, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return models.Company{}, sentinel.ErrConflict
	}
	c.CreatedAt, c.UpdatedAt = &now, nil
	return c, nil
}

// CreateOrUpdate inserts c, or unions it into the stored record under a row lock.
// An insert that loses a race with a concurrent insert of the same code falls back
// to the locked update.
func (s *PostgresStore) CreateOrUpdate(ctx context.Context, c models.Company) (models.Company, error) {
	var out models.Company
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		ex := tx.ExecerFrom(ctx, s.db)
		for attempt := 0; ; attempt++ {
			existing, err := scanCompany(ex.QueryRowContext(ctx, selectCompany+` WHERE code = $1 FOR UPDATE`, c.Code))
			if errors.Is(err, sql.ErrNoRows) {
				out, err = s.Create(ctx, c)
				if errors.Is(err, sentinel.ErrConflict) && attempt == 0 {
					continue
				}
				return err
			}
			if err != nil {
				return fmt.Errorf("lock company %s: %w", c.Code, err)
			}
			out, err = s.update(ctx, ex, existing, c)
			return err
		}
	})
	return out, err
}

func (s *PostgresStore) update(ctx context.Context, ex tx.Execer, existing, c models.Company) (models.Company, error) {
	merged := reconcile.Union(existing, c)
	now := s.clock().UTC()
	data, err := json.Marshal(models.Flatten(&merged))
	if err != nil {
		return models.Company{}, fmt.Errorf("encode company %s: %w", c.Code, err)
	}
	_, err = ex.ExecContext(ctx, `
		UPDATE company
		SET name = $2, address_line_1 = $3, address_line_2 = $4, city = $5, country = $6, post_code = $7,
		    data = $8, updated_time = $9, company_size = $10
		WHERE code = $1`,
		merged.Code, merged.Name, merged.Address.Line1, nullable(merged.Address.Line2), merged.Address.City,
		merged.Address.CountryCode, merged.Address.PostCode, data, now, sizeValue(merged.CompanySize))
	if err != nil {
		return models.Company{}, fmt.Errorf("update company %s: %w", c.Code, err)
	}
	merged.UpdatedAt = &now
	return merged, nil
}

func (s *PostgresStore) ExistsByCode(ctx context.Context, code string) (bool, error) {
	return s.exists(ctx, `SELECT EXISTS (SELECT 1 FROM company WHERE code = $1)`, code)
}

func (s *PostgresStore) ExistsByNameForOrg(ctx context.Context, name, excludeCode string) (bool, error) {
	return s.exists(ctx, `SELECT EXISTS (SELECT 1 FROM company WHERE lower(name) = lower($1) AND code <> $2)`, name, excludeCode)
}

func (s *PostgresStore) ExistsByAddress(ctx context.Context, a models.Address) (bool, error) {
	return s.exists(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM company
			WHERE lower(address_line_1) = lower($1) AND lower(city) = lower($2)
			  AND lower(country) = lower($3) AND lower(post_code) = lower($4)
		)`, a.Line1, a.City, a.CountryCode, a.PostCode)
}

func (s *PostgresStore) FindActiveBySubscriptionType(ctx context.Context, tierCode string) ([]string, error) {
	rows, err := tx.ExecerFrom(ctx, s.db).QueryContext(ctx, `
		SELECT code FROM company
		WHERE data->>'subscriptionType' = $1 AND data->>'membershipStatus' = $2
		ORDER BY code`, tierCode, string(models.MembershipActive))
	if err != nil {
		return nil, fmt.Errorf("find companies by subscription type: %w", err)
	}
	defer rows.Close()
	var codes []string
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, fmt.Errorf("scan company code: %w", err)
		}
		codes = append(codes, code)
	}
	return codes, rows.Err()
}

func (s *PostgresStore) FindByLocalName(ctx context.Context, name string) ([]models.Company, error) {
	return s.query(ctx, selectCompany+` WHERE data->>'smdNameInLocalLanguage' = $1 ORDER BY code LIMIT $2`, name, models.MaxResults)
}

func (s *PostgresStore) FindByLocalNameStartingWith(ctx context.Context, prefix string) ([]models.Company, error) {
	return s.query(ctx, selectCompany+` WHERE data->>'smdNameInLocalLanguage' LIKE $1 ORDER BY code LIMIT $2`,
		EscapeLike(prefix)+"%", models.MaxResults)
}

func (s *PostgresStore) StreamAll(ctx context.Context, visit func(models.Company) error) error {
	rows, err := tx.ExecerFrom(ctx, s.db).QueryContext(ctx, selectCompany+` ORDER BY code`)
	if err != nil {
		return fmt.Errorf("stream companies: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		c, err := scanCompany(rows)
		if err != nil {
			return err
		}
		if err := visit(c); err != nil {
			return err
		}
	}
	return rows.Err()
}

func (s *PostgresStore) exists(ctx context.Context, query string, args ...any) (bool, error) {
	var ok bool
	if err := tx.ExecerFrom(ctx, s.db).QueryRowContext(ctx, query, args...).Scan(&ok); err != nil {
		return false, fmt.Errorf("company exists: %w", err)
	}
	return ok, nil
}

func (s *PostgresStore) query(ctx context.Context, query string, args ...any) ([]models.Company, error) {
	rows, err := tx.ExecerFrom(ctx, s.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query companies: %w", err)
	}
	defer rows.Close()
	var out []models.Company
	for rows.Next() {
		c, err := scanCompany(rows)
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

func scanCompany(row scanner) (models.Company, error) {
	var (
		code                                      string
		name, line1, line2, city, country, postCd sql.NullString
		size                                      sql.NullString
		data                                      []byte
		created                                   time.Time
		updated                                   sql.NullTime
	)
	if err := row.Scan(&code, &name, &line1, &line2, &city, &country, &postCd, &data, &created, &updated, &size); err != nil {
		return models.Company{}, err
	}

	c := models.Unflatten(code, PayloadFields(data))
	c.Name = name.String
	c.Address.Line1 = line1.String
	c.Address.Line2 = line2.String
	c.Address.City = city.String
	c.Address.CountryCode = strings.TrimSpace(country.String)
	c.Address.PostCode = postCd.String
	c.CompanySize = nil
	if parsed, ok := models.ParseCompanySize(size.String); ok {
		c.CompanySize = &parsed
	}
	created = created.UTC()
	c.CreatedAt = &created
	if updated.Valid {
		u := updated.Time.UTC()
		c.UpdatedAt = &u
	}
	return c, nil
}

// PayloadFields reads a flat JSON object into a string map. Nulls read as empty.
func PayloadFields(data []byte) map[string]string {
	out := make(map[string]string)
	gjson.ParseBytes(data).ForEach(func(key, value gjson.Result) bool {
		out[key.String()] = value.String()
		return true
	})
	return out
}

// EscapeLike escapes LIKE wildcards so user input matches literally.
func EscapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func sizeValue(size *models.CompanySize) sql.NullString {
	if size == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: string(*size), Valid: true}
}
