package service

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"

	"orgprofile/internal/company/models"
	dErrors "orgprofile/pkg/domain-errors"
	"orgprofile/pkg/platform/sentinel"
)

// Create stores a new primary record for code. A legacy record for the same code
// does not block creation.
func (s *Service) Create(ctx context.Context, code string, c models.Company) (_ models.Company, err error) {
	ctx, done := s.start(ctx, "create", attribute.String("org_code", code))
	defer done(&err)

	c.Code = code
	created, err := s.primary.Create(ctx, c)
	if err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return models.Company{}, dErrors.New(dErrors.CodeConflict, "company "+code+" already exists")
		}
		return models.Company{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create company")
	}
	s.logger.InfoContext(ctx, "company created", "org_code", code)
	s.publish(ctx, created)
	return created, nil
}

// CreateOrUpdate writes c over the primary record for code. Fields c leaves empty
// keep their stored value.
func (s *Service) CreateOrUpdate(ctx context.Context, code string, c models.Company) (_ models.Company, err error) {
	ctx, done := s.start(ctx, "create_or_update", attribute.String("org_code", code))
	defer done(&err)

	return s.write(ctx, code, c)
}

// Update validates a full profile write and applies it.
func (s *Service) Update(ctx context.Context, code string, c models.Company) (_ models.Company, err error) {
	ctx, done := s.start(ctx, "update", attribute.String("org_code", code))
	defer done(&err)

	c.Code = code
	if err := s.validator.Check(&c); err != nil {
		return models.Company{}, err
	}
	return s.update(ctx, code, c)
}

// UpdateSubscription sets the membership status and tier on the reconciled record.
func (s *Service) UpdateSubscription(ctx context.Context, code string, status models.MembershipStatus, tier models.SubscriptionTier) (_ models.Company, err error) {
	ctx, done := s.start(ctx, "update_subscription", attribute.String("org_code", code))
	defer done(&err)

	tierCode := tier.Code()
	if tierCode == "" {
		return models.Company{}, dErrors.New(dErrors.CodeBadRequest, "unknown subscription type "+string(tier))
	}
	current, err := s.Get(ctx, code)
	if err != nil {
		return models.Company{}, err
	}
	current.MembershipStatus = &status
	current.SubscriptionType = &tierCode
	return s.update(ctx, code, current)
}

// UpdateCompanySize sets the size on the reconciled record.
func (s *Service) UpdateCompanySize(ctx context.Context, code string, size models.CompanySize) (_ models.Company, err error) {
	ctx, done := s.start(ctx, "update_company_size", attribute.String("org_code", code))
	defer done(&err)

	current, err := s.Get(ctx, code)
	if err != nil {
		return models.Company{}, err
	}
	current.CompanySize = &size
	return s.update(ctx, code, current)
}

// update fills missing membership fields from the reconciled record, forwards the
// result to the legacy system when enabled, then writes and notifies.
func (s *Service) update(ctx context.Context, code string, c models.Company) (models.Company, error) {
	c.Code = code
	if c.MembershipStatus == nil || c.SubscriptionType == nil {
		current, err := s.Get(ctx, code)
		switch {
		case err == nil:
			c.MembershipStatus = current.MembershipStatus
			c.SubscriptionType = current.SubscriptionType
		case !dErrors.HasCode(err, dErrors.CodeNotFound):
			return models.Company{}, err
		}
	}
	if err := s.pushToLegacy(ctx, code, c); err != nil {
		return models.Company{}, err
	}
	return s.write(ctx, code, c)
}

func (s *Service) pushToLegacy(ctx context.Context, code string, c models.Company) error {
	if s.pusher == nil {
		return nil
	}
	if err := s.validator.Check(&c); err != nil {
		return err
	}
	if err := s.pusher.Push(ctx, code, c); err != nil {
		s.logger.ErrorContext(ctx, "legacy push failed",
			"event", "legacy_push_failed",
			"log_type", "ops",
			"org_code", code,
			"error", err,
		)
		if s.metrics != nil {
			s.metrics.IncrementLegacyPushFailed()
		}
	}
	return nil
}

func (s *Service) write(ctx context.Context, code string, c models.Company) (models.Company, error) {
	c.Code = code
	saved, err := s.primary.CreateOrUpdate(ctx, c)
	if err != nil {
		return models.Company{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save company")
	}
	s.logger.InfoContext(ctx, "company saved", "org_code", code)
	s.publish(ctx, saved)
	return saved, nil
}
