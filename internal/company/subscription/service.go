// Package subscription records membership subscriptions and answers which one applies.
package subscription

import (
	"context"
	"errors"
	"log/slog"

	"orgprofile/internal/company/models"
	"orgprofile/internal/features"
	dErrors "orgprofile/pkg/domain-errors"
	"orgprofile/pkg/platform/sentinel"
)

// LegacyStore keeps one subscription per organisation.
type LegacyStore interface {
	Upsert(ctx context.Context, sub models.Subscription) error
	FindByOrgCode(ctx context.Context, orgCode string) (*models.Subscription, error)
}

// CurrentStore keeps one subscription per organisation and end date.
type CurrentStore interface {
	CreateOrUpdate(ctx context.Context, sub models.Subscription) error
	FindByOrgCode(ctx context.Context, orgCode string) ([]models.Subscription, error)
}

type Service struct {
	legacy  LegacyStore
	current CurrentStore
	flags   features.Flags
	logger  *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func New(legacy LegacyStore, current CurrentStore, flags features.Flags, opts ...Option) *Service {
	s := &Service{legacy: legacy, current: current, flags: flags, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) CreateOrUpdate(ctx context.Context, sub models.Subscription) error {
	if sub.OrgCode == "" {
		return dErrors.New(dErrors.CodeBadRequest, "org_code is required")
	}
	if err := s.legacy.Upsert(ctx, sub); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to store subscription")
	}
	return nil
}

// CreateNew records a subscription period. An existing period with the same end date
// is replaced only by a strictly newer write.
func (s *Service) CreateNew(ctx context.Context, sub models.Subscription) error {
	if sub.OrgCode == "" {
		return dErrors.New(dErrors.CodeBadRequest, "org_code is required")
	}
	if err := s.current.CreateOrUpdate(ctx, sub); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to store subscription")
	}
	return nil
}

// FindByOrgCode returns the subscription in force for orgCode, or nil when none is recorded.
func (s *Service) FindByOrgCode(ctx context.Context, orgCode string) (*models.Subscription, error) {
	useCurrent, err := s.flags.Enabled(ctx, features.UseNewCompanySubscription)
	if err != nil {
		s.logger.WarnContext(ctx, "feature flag unavailable, using legacy subscriptions",
			"flag", features.UseNewCompanySubscription,
			"error", err,
		)
		useCurrent = false
	}
	if useCurrent {
		return s.latestCurrent(ctx, orgCode)
	}

	sub, err := s.legacy.FindByOrgCode(ctx, orgCode)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load subscription")
	}
	return sub, nil
}

func (s *Service) latestCurrent(ctx context.Context, orgCode string) (*models.Subscription, error) {
	subs, err := s.current.FindByOrgCode(ctx, orgCode)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load subscriptions")
	}
	var latest *models.Subscription
	for i := range subs {
		sub := &subs[i]
		if sub.Timestamp == nil {
			continue
		}
		if latest == nil || sub.Timestamp.After(*latest.Timestamp) {
			latest = sub
		}
	}
	return latest, nil
}
