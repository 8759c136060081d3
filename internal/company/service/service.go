// Package service reconciles company profiles across the primary store and the legacy system.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"orgprofile/internal/company/legacypush"
	"orgprofile/internal/company/metrics"
	"orgprofile/internal/company/models"
	"orgprofile/internal/company/notify"
	"orgprofile/internal/company/validation"
	dErrors "orgprofile/pkg/domain-errors"
	"orgprofile/pkg/platform/sentinel"
	"orgprofile/pkg/requestcontext"
)

const tracerName = "orgprofile/company"

// Reader is the read surface both stores share.
type Reader interface {
	Get(ctx context.Context, code string) (*models.Company, error)
	GetMany(ctx context.Context, codes []string) ([]models.Company, error)
	ExistsByCode(ctx context.Context, code string) (bool, error)
	ExistsByNameForOrg(ctx context.Context, name, excludeCode string) (bool, error)
	ExistsByAddress(ctx context.Context, a models.Address) (bool, error)
	FindActiveBySubscriptionType(ctx context.Context, tierCode string) ([]string, error)
	FindByLocalName(ctx context.Context, name string) ([]models.Company, error)
	FindByLocalNameStartingWith(ctx context.Context, prefix string) ([]models.Company, error)
}

// PrimaryStore is the store this service writes to.
type PrimaryStore interface {
	Reader
	Create(ctx context.Context, c models.Company) (models.Company, error)
	CreateOrUpdate(ctx context.Context, c models.Company) (models.Company, error)
	StreamAll(ctx context.Context, visit func(models.Company) error) error
}

// LegacyStore is the legacy system's read-only view.
type LegacyStore interface {
	Reader
}

// SubscriptionFinder returns the subscription in force, or nil.
type SubscriptionFinder interface {
	FindByOrgCode(ctx context.Context, orgCode string) (*models.Subscription, error)
}

// Service owns the company read and write paths.
type Service struct {
	primary       PrimaryStore
	legacy        LegacyStore
	subscriptions SubscriptionFinder
	notifier      notify.Notifier
	pusher        legacypush.Pusher
	validator     *validation.Validator
	logger        *slog.Logger
	metrics       *metrics.Metrics
	tracer        trace.Tracer
	clock         func() time.Time
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithLegacyPush forwards every Update to the legacy system.
func WithLegacyPush(p legacypush.Pusher) Option {
	return func(s *Service) {
		s.pusher = p
	}
}

func WithClock(clock func() time.Time) Option {
	return func(s *Service) {
		s.clock = clock
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = t
	}
}

func New(primary PrimaryStore, legacy LegacyStore, subscriptions SubscriptionFinder, notifier notify.Notifier, opts ...Option) *Service {
	s := &Service{
		primary:       primary,
		legacy:        legacy,
		subscriptions: subscriptions,
		notifier:      notifier,
		validator:     validation.New(),
		logger:        slog.Default(),
		tracer:        otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) start(ctx context.Context, operation string, attrs ...attribute.KeyValue) (context.Context, func(*error)) {
	ctx, span := s.tracer.Start(ctx, "company."+operation, trace.WithAttributes(attrs...))
	began := time.Now()
	return ctx, func(errp *error) {
		if errp != nil && *errp != nil {
			span.RecordError(*errp)
			span.SetStatus(codes.Error, string(dErrors.CodeOf(*errp)))
		}
		span.End()
		if s.metrics != nil {
			s.metrics.ObserveOperation(operation, began)
		}
	}
}

// fetchOne loads code from store, mapping not-found to nil.
func fetchOne(ctx context.Context, store Reader, code string) (*models.Company, error) {
	c, err := store.Get(ctx, code)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, nil
	}
	return c, err
}

func (s *Service) publish(ctx context.Context, c models.Company) {
	err := s.notifier.Publish(ctx, c.Code, models.Flatten(&c), c.LastModifiedAt())
	if err != nil {
		s.logger.ErrorContext(ctx, "company notification failed",
			"event", "company_notification_failed",
			"log_type", "ops",
			"org_code", c.Code,
			"error", err,
		)
		if s.metrics != nil {
			s.metrics.IncrementNotificationFailed()
		}
		return
	}
	if s.metrics != nil {
		s.metrics.IncrementNotificationPublished()
	}
}

// now is the reference time for membership derivation: the injected clock, else the request time.
func (s *Service) now(ctx context.Context) time.Time {
	if s.clock != nil {
		return s.clock()
	}
	return requestcontext.Now(ctx)
}

func storeError(err error, msg string) error {
	if err == nil || dErrors.CodeOf(err) != dErrors.CodeInternal {
		return err
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, msg)
}
