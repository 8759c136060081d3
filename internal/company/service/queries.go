package service

import (
	"context"
	"regexp"
	"sort"
	"sync/atomic"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"orgprofile/internal/company/models"
	"orgprofile/internal/company/reconcile"
	"orgprofile/internal/company/status"
	dErrors "orgprofile/pkg/domain-errors"
)

var orgCodePattern = regexp.MustCompile(`^ZC\d+$`)

// either runs check against both stores and reports whether either matched.
func (s *Service) either(ctx context.Context, check func(context.Context, Reader) (bool, error)) (bool, error) {
	var inPrimary, inLegacy bool
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		inPrimary, err = check(gctx, s.primary)
		return err
	})
	g.Go(func() error {
		var err error
		inLegacy, err = check(gctx, s.legacy)
		return err
	})
	if err := g.Wait(); err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check company existence")
	}
	return inPrimary || inLegacy, nil
}

func (s *Service) ExistsByCode(ctx context.Context, code string) (bool, error) {
	return s.either(ctx, func(ctx context.Context, r Reader) (bool, error) {
		return r.ExistsByCode(ctx, code)
	})
}

// ExistsByNameForOrg reports whether another organisation than excludeCode uses name.
func (s *Service) ExistsByNameForOrg(ctx context.Context, name, excludeCode string) (bool, error) {
	return s.either(ctx, func(ctx context.Context, r Reader) (bool, error) {
		return r.ExistsByNameForOrg(ctx, name, excludeCode)
	})
}

func (s *Service) ExistsByAddress(ctx context.Context, a models.Address) (bool, error) {
	return s.either(ctx, func(ctx context.Context, r Reader) (bool, error) {
		return r.ExistsByAddress(ctx, a)
	})
}

// Search treats terms shaped like an organisation code as a code lookup and anything
// else as a local-name search. Rows for the same code are reconciled first; the
// surviving record decides the group: exact matches first, then prefix matches,
// each group ordered by name.
func (s *Service) Search(ctx context.Context, term string) (_ []models.SearchResult, err error) {
	ctx, done := s.start(ctx, "search", attribute.String("term", term))
	defer done(&err)

	if orgCodePattern.MatchString(term) {
		rows, err := s.gather(ctx, func(ctx context.Context, r Reader) ([]models.Company, error) {
			return r.GetMany(ctx, []string{term})
		})
		if err != nil {
			return nil, err
		}
		return byName(reconcile.Many(rows.primary, rows.legacy)), nil
	}

	exact, err := s.gather(ctx, func(ctx context.Context, r Reader) ([]models.Company, error) {
		return r.FindByLocalName(ctx, term)
	})
	if err != nil {
		return nil, err
	}
	prefix, err := s.gather(ctx, func(ctx context.Context, r Reader) ([]models.Company, error) {
		return r.FindByLocalNameStartingWith(ctx, term)
	})
	if err != nil {
		return nil, err
	}

	var exactHits, prefixHits []models.Company
	for _, c := range reconcile.Many(append(exact.primary, prefix.primary...), append(exact.legacy, prefix.legacy...)) {
		if c.LocalName != nil && *c.LocalName == term {
			exactHits = append(exactHits, c)
		} else {
			prefixHits = append(prefixHits, c)
		}
	}
	return append(byName(exactHits), byName(prefixHits)...), nil
}

type sourceRows struct {
	primary, legacy []models.Company
}

// gather runs find against both stores concurrently.
func (s *Service) gather(ctx context.Context, find func(context.Context, Reader) ([]models.Company, error)) (sourceRows, error) {
	var out sourceRows
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		out.primary, err = find(gctx, s.primary)
		return err
	})
	g.Go(func() error {
		var err error
		out.legacy, err = find(gctx, s.legacy)
		return err
	})
	if err := g.Wait(); err != nil {
		return sourceRows{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to search companies")
	}
	return out, nil
}

func byName(cs []models.Company) []models.SearchResult {
	out := make([]models.SearchResult, len(cs))
	for i := range cs {
		out[i] = cs[i].ToSearchResult()
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// ProfileStatus is COMPLETE when either source holds a complete profile.
func (s *Service) ProfileStatus(ctx context.Context, code string) (_ models.ProfileStatus, err error) {
	ctx, done := s.start(ctx, "profile_status", attribute.String("org_code", code))
	defer done(&err)

	primary, legacy, err := s.fetchBoth(ctx, code)
	if err != nil {
		return "", err
	}
	if primary == nil && legacy == nil {
		return "", dErrors.NotFound(code)
	}
	return reconcile.CombineProfile(
		reconcile.ProfileStatus(primary, reconcile.SourcePrimary),
		reconcile.ProfileStatus(legacy, reconcile.SourceLegacy),
	), nil
}

// GetWithSubscription returns the reconciled record with its membership status
// re-derived against the subscription in force, and that subscription.
func (s *Service) GetWithSubscription(ctx context.Context, code string) (models.Company, *models.Subscription, error) {
	c, err := s.Get(ctx, code)
	if err != nil {
		return models.Company{}, nil, err
	}
	sub, err := s.subscriptions.FindByOrgCode(ctx, code)
	if err != nil {
		return models.Company{}, nil, storeError(err, "failed to load subscription")
	}
	return status.ForCompany(c, sub, s.now(ctx)), sub, nil
}

func (s *Service) MembershipSummary(ctx context.Context, code string) (models.MembershipSummary, error) {
	c, _, err := s.GetWithSubscription(ctx, code)
	if err != nil {
		return models.MembershipSummary{}, err
	}
	summary := models.MembershipSummary{
		MembershipStatus: c.MembershipStatus,
		MembershipCode:   c.SubscriptionType,
	}
	if c.SubscriptionType != nil {
		if tier, ok := models.TierFromCode(*c.SubscriptionType); ok {
			summary.MembershipType = models.Ptr(string(tier))
		}
	}
	if c.Address.CountryCode != "" {
		summary.CountryCode = models.Ptr(c.Address.CountryCode)
	}
	return summary, nil
}

// AuditCompanies lists the codes of active auditor companies in either store, sorted.
func (s *Service) AuditCompanies(ctx context.Context) ([]string, error) {
	var fromPrimary, fromLegacy []string
	tierCode := models.TierAuditor.Code()
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		fromPrimary, err = s.primary.FindActiveBySubscriptionType(gctx, tierCode)
		return err
	})
	g.Go(func() error {
		var err error
		fromLegacy, err = s.legacy.FindActiveBySubscriptionType(gctx, tierCode)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list audit companies")
	}

	set := make(map[string]struct{}, len(fromPrimary)+len(fromLegacy))
	for _, code := range append(fromPrimary, fromLegacy...) {
		set[code] = struct{}{}
	}
	out := make([]string, 0, len(set))
	for code := range set {
		out = append(out, code)
	}
	sort.Strings(out)
	return out, nil
}

// Reseed republishes every primary record and returns how many were sent.
func (s *Service) Reseed(ctx context.Context) (_ int64, err error) {
	ctx, done := s.start(ctx, "reseed")
	defer done(&err)

	var count atomic.Int64
	err = s.primary.StreamAll(ctx, func(c models.Company) error {
		s.publish(ctx, c)
		count.Add(1)
		return nil
	})
	if err != nil {
		return count.Load(), dErrors.Wrap(err, dErrors.CodeInternal, "failed to stream companies")
	}
	s.logger.InfoContext(ctx, "companies reseeded", "count", count.Load())
	return count.Load(), nil
}
