package service

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"orgprofile/internal/company/models"
	"orgprofile/internal/company/reconcile"
	dErrors "orgprofile/pkg/domain-errors"
)

// Get returns the reconciled record for code, reading both stores concurrently.
func (s *Service) Get(ctx context.Context, code string) (_ models.Company, err error) {
	ctx, done := s.start(ctx, "get", attribute.String("org_code", code))
	defer done(&err)

	primary, legacy, err := s.fetchBoth(ctx, code)
	if err != nil {
		return models.Company{}, err
	}
	merged, src, err := reconcile.Latest(code, primary, legacy)
	if err != nil {
		return models.Company{}, err
	}
	if s.metrics != nil {
		s.metrics.IncrementReconcileWin(string(src))
	}
	return merged, nil
}

func (s *Service) fetchBoth(ctx context.Context, code string) (primary, legacy *models.Company, err error) {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		primary, err = fetchOne(gctx, s.primary, code)
		return storeError(err, "failed to load company")
	})
	g.Go(func() error {
		var err error
		legacy, err = fetchOne(gctx, s.legacy, code)
		return storeError(err, "failed to load legacy company")
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return primary, legacy, nil
}

// ReconcileMany reconciles every requested code. Codes found in neither store are
// dropped, unless strict is set, in which case the call fails naming exactly those codes.
func (s *Service) ReconcileMany(ctx context.Context, codes []string, strict bool) (_ []models.Company, err error) {
	ctx, done := s.start(ctx, "reconcile_many", attribute.Int("codes", len(codes)))
	defer done(&err)

	codes = distinct(codes)
	if len(codes) == 0 {
		return nil, dErrors.New(dErrors.CodeBadRequest, "at least one organisation code is required")
	}

	var primary, legacy []models.Company
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		primary, err = s.primary.GetMany(gctx, codes)
		return storeError(err, "failed to load companies")
	})
	g.Go(func() error {
		var err error
		legacy, err = s.legacy.GetMany(gctx, codes)
		return storeError(err, "failed to load legacy companies")
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := reconcile.Many(primary, legacy)
	if strict {
		if missing := reconcile.Missing(codes, merged); len(missing) > 0 {
			return nil, dErrors.NotFound(missing...)
		}
	}
	return merged, nil
}

// Summaries reconciles codes and keys the compact summaries by code.
func (s *Service) Summaries(ctx context.Context, codes []string, strict bool) (map[string]models.CompanySummary, error) {
	companies, err := s.ReconcileMany(ctx, codes, strict)
	if err != nil {
		return nil, err
	}
	out := make(map[string]models.CompanySummary, len(companies))
	for i := range companies {
		out[companies[i].Code] = companies[i].ToSummary()
	}
	return out, nil
}

func distinct(codes []string) []string {
	seen := make(map[string]struct{}, len(codes))
	out := codes[:0:0]
	for _, code := range codes {
		if code == "" {
			continue
		}
		if _, ok := seen[code]; ok {
			continue
		}
		seen[code] = struct{}{}
		out = append(out, code)
	}
	return out
}
