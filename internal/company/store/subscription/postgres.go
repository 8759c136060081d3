package subscription

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"orgprofile/internal/company/models"
	"orgprofile/pkg/platform/sentinel"
	"orgprofile/pkg/platform/tx"
)

// LegacyPostgres keeps one row per organisation in advance_subscription.
type LegacyPostgres struct {
	db *sql.DB
}

func NewLegacyPostgres(db *sql.DB) *LegacyPostgres {
	return &LegacyPostgres{db: db}
}

func (s *LegacyPostgres) Upsert(ctx context.Context, sub models.Subscription) error {
	_, err := tx.ExecerFrom(ctx, s.db).ExecContext(ctx, `
		INSERT INTO advance_subscription
			(org_code, payment_code, nr_of_sites, requested_duration_in_years, high_tier, end_date, supplier_plus_available_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (org_code) DO UPDATE SET
			payment_code = EXCLUDED.payment_code,
			nr_of_sites = EXCLUDED.nr_of_sites,
			requested_duration_in_years = EXCLUDED.requested_duration_in_years,
			high_tier = EXCLUDED.high_tier,
			end_date = EXCLUDED.end_date,
			supplier_plus_available_date = EXCLUDED.supplier_plus_available_date,
			updated_time = now()`,
		sub.OrgCode, sub.PaymentCode, sub.NrOfSites, sub.RequestedDurationInYears, sub.HighTier,
		sub.EndDate, sub.SupplierPlusAvailableDate)
	if err != nil {
		return fmt.Errorf("upsert subscription %s: %w", sub.OrgCode, err)
	}
	return nil
}

func (s *LegacyPostgres) FindByOrgCode(ctx context.Context, orgCode string) (*models.Subscription, error) {
	var (
		sub     = models.Subscription{OrgCode: orgCode}
		payment sql.NullString
		sites   sql.NullInt32
		years   sql.NullInt32
		high    sql.NullBool
		end     sql.NullTime
		plus    sql.NullTime
	)
	err := tx.ExecerFrom(ctx, s.db).QueryRowContext(ctx, `
		SELECT payment_code, nr_of_sites, requested_duration_in_years, high_tier, end_date, supplier_plus_available_date
		FROM advance_subscription WHERE org_code = $1`, orgCode).
		Scan(&payment, &sites, &years, &high, &end, &plus)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find subscription %s: %w", orgCode, err)
	}
	fill(&sub, payment, sites, years, high, end, plus)
	return &sub, nil
}

// CurrentPostgres keeps one row per organisation and end date in advance_company_subscriptions.
type CurrentPostgres struct {
	db *sql.DB
	tx *tx.Runner
}

func NewCurrentPostgres(db *sql.DB) *CurrentPostgres {
	return &CurrentPostgres{db: db, tx: tx.NewRunner(db, 0)}
}

// CreateOrUpdate inserts sub, or replaces the row with the same end date when sub is
// strictly newer. A subscription without an end date is always inserted.
func (s *CurrentPostgres) CreateOrUpdate(ctx context.Context, sub models.Subscription) error {
	return s.tx.RunInTx(ctx, func(ctx context.Context) error {
		ex := tx.ExecerFrom(ctx, s.db)
		if sub.EndDate != nil {
			var (
				id        uuid.UUID
				timestamp sql.NullTime
			)
			err := ex.QueryRowContext(ctx, `
				SELECT id, timestamp FROM advance_company_subscriptions
				WHERE org_code = $1 AND end_date = $2
				LIMIT 1
				FOR UPDATE`, sub.OrgCode, sub.EndDate).Scan(&id, &timestamp)
			switch {
			case err == nil:
				current := models.Subscription{ID: id}
				if timestamp.Valid {
					current.Timestamp = &timestamp.Time
				}
				if !sub.NewerThan(&current) {
					return nil
				}
				return s.update(ctx, ex, id, sub)
			case !errors.Is(err, sql.ErrNoRows):
				return fmt.Errorf("find subscription %s by end date: %w", sub.OrgCode, err)
			}
		}
		_, err := ex.ExecContext(ctx, `
			INSERT INTO advance_company_subscriptions
				(id, org_code, payment_code, nr_of_sites, requested_duration_in_years, high_tier, end_date,
				 supplier_plus_available_date, timestamp)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			uuid.New(), sub.OrgCode, sub.PaymentCode, sub.NrOfSites, sub.RequestedDurationInYears, sub.HighTier,
			sub.EndDate, sub.SupplierPlusAvailableDate, sub.Timestamp)
		if err != nil {
			return fmt.Errorf("insert subscription %s: %w", sub.OrgCode, err)
		}
		return nil
	})
}

func (s *CurrentPostgres) update(ctx context.Context, ex tx.Execer, id uuid.UUID, sub models.Subscription) error {
	_, err := ex.ExecContext(ctx, `
		UPDATE advance_company_subscriptions SET
			payment_code = $2, nr_of_sites = $3, requested_duration_in_years = $4, high_tier = $5,
			end_date = $6, supplier_plus_available_date = $7, timestamp = $8, updated_time = $9
		WHERE id = $1`,
		id, sub.PaymentCode, sub.NrOfSites, sub.RequestedDurationInYears, sub.HighTier,
		sub.EndDate, sub.SupplierPlusAvailableDate, sub.Timestamp, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update subscription %s: %w", sub.OrgCode, err)
	}
	return nil
}

func (s *CurrentPostgres) FindByOrgCode(ctx context.Context, orgCode string) ([]models.Subscription, error) {
	rows, err := tx.ExecerFrom(ctx, s.db).QueryContext(ctx, `
		SELECT id, payment_code, nr_of_sites, requested_duration_in_years, high_tier, end_date,
		       supplier_plus_available_date, timestamp
		FROM advance_company_subscriptions
		WHERE org_code = $1
		ORDER BY end_date NULLS LAST`, orgCode)
	if err != nil {
		return nil, fmt.Errorf("find subscriptions %s: %w", orgCode, err)
	}
	defer rows.Close()
	var out []models.Subscription
	for rows.Next() {
		var (
			sub       = models.Subscription{OrgCode: orgCode}
			payment   sql.NullString
			sites     sql.NullInt32
			years     sql.NullInt32
			high      sql.NullBool
			end       sql.NullTime
			plus      sql.NullTime
			timestamp sql.NullTime
		)
		if err := rows.Scan(&sub.ID, &payment, &sites, &years, &high, &end, &plus, &timestamp); err != nil {
			return nil, fmt.Errorf("scan subscription: %w", err)
		}
		fill(&sub, payment, sites, years, high, end, plus)
		if timestamp.Valid {
			t := timestamp.Time.UTC()
			sub.Timestamp = &t
		}
		out = append(out, sub)
	}
	return out, rows.Err()
}

func fill(sub *models.Subscription, payment sql.NullString, sites, years sql.NullInt32, high sql.NullBool, end, plus sql.NullTime) {
	if payment.Valid {
		sub.PaymentCode = &payment.String
	}
	if sites.Valid {
		n := int(sites.Int32)
		sub.NrOfSites = &n
	}
	if years.Valid {
		n := int(years.Int32)
		sub.RequestedDurationInYears = &n
	}
	if high.Valid {
		sub.HighTier = &high.Bool
	}
	if end.Valid {
		t := end.Time.UTC()
		sub.EndDate = &t
	}
	if plus.Valid {
		t := plus.Time.UTC()
		sub.SupplierPlusAvailableDate = &t
	}
}
