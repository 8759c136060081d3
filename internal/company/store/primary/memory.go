// Package primary persists companies written through this service.
package primary

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"orgprofile/internal/company/models"
	"orgprofile/internal/company/reconcile"
	"orgprofile/pkg/platform/sentinel"
)

// InMemory is a map-backed primary store for tests and local runs.
type InMemory struct {
	mu        sync.RWMutex
	companies map[string]models.Company
	clock     func() time.Time
}

func NewInMemory() *InMemory {
	return &InMemory{companies: make(map[string]models.Company), clock: time.Now}
}

// WithClock pins the store's write time.
func (s *InMemory) WithClock(clock func() time.Time) *InMemory {
	s.clock = clock
	return s
}

func (s *InMemory) Get(_ context.Context, code string) (*models.Company, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.companies[code]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &c, nil
}

func (s *InMemory) GetMany(_ context.Context, codes []string) ([]models.Company, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Company, 0, len(codes))
	seen := make(map[string]struct{}, len(codes))
	for _, code := range codes {
		if _, dup := seen[code]; dup {
			continue
		}
		seen[code] = struct{}{}
		if c, ok := s.companies[code]; ok {
			out = append(out, c)
		}
	}
	return limit(out), nil
}

func (s *InMemory) Create(_ context.Context, c models.Company) (models.Company, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.companies[c.Code]; exists {
		return models.Company{}, sentinel.ErrConflict
	}
	now := s.clock().UTC()
	c.CreatedAt, c.UpdatedAt = &now, nil
	s.companies[c.Code] = c
	return c, nil
}

func (s *InMemory) CreateOrUpdate(_ context.Context, c models.Company) (models.Company, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.clock().UTC()
	existing, ok := s.companies[c.Code]
	if !ok {
		c.CreatedAt, c.UpdatedAt = &now, nil
		s.companies[c.Code] = c
		return c, nil
	}
	merged := reconcile.Union(existing, c)
	merged.UpdatedAt = &now
	s.companies[c.Code] = merged
	return merged, nil
}

func (s *InMemory) ExistsByCode(_ context.Context, code string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.companies[code]
	return ok, nil
}

func (s *InMemory) ExistsByNameForOrg(_ context.Context, name, excludeCode string) (bool, error) {
	return s.any(func(c models.Company) bool {
		return c.Code != excludeCode && strings.EqualFold(c.Name, name)
	}), nil
}

func (s *InMemory) ExistsByAddress(_ context.Context, a models.Address) (bool, error) {
	return s.any(func(c models.Company) bool {
		return c.Address.SameLocation(a)
	}), nil
}

// FindActiveBySubscriptionType returns codes of ACTIVE companies on the given tier code.
func (s *InMemory) FindActiveBySubscriptionType(_ context.Context, tierCode string) ([]string, error) {
	var codes []string
	s.each(func(c models.Company) {
		if c.SubscriptionType != nil && *c.SubscriptionType == tierCode &&
			c.MembershipStatus != nil && *c.MembershipStatus == models.MembershipActive {
			codes = append(codes, c.Code)
		}
	})
	sort.Strings(codes)
	return codes, nil
}

func (s *InMemory) FindByLocalName(_ context.Context, name string) ([]models.Company, error) {
	return s.filter(func(c models.Company) bool {
		return c.LocalName != nil && *c.LocalName == name
	}), nil
}

func (s *InMemory) FindByLocalNameStartingWith(_ context.Context, prefix string) ([]models.Company, error) {
	return s.filter(func(c models.Company) bool {
		return c.LocalName != nil && strings.HasPrefix(*c.LocalName, prefix)
	}), nil
}

// StreamAll visits every company in code order. A visitor error stops the walk.
func (s *InMemory) StreamAll(ctx context.Context, visit func(models.Company) error) error {
	for _, c := range s.filter(func(models.Company) bool { return true }) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := visit(c); err != nil {
			return err
		}
	}
	return nil
}

func (s *InMemory) each(fn func(models.Company)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.companies {
		fn(c)
	}
}

func (s *InMemory) any(pred func(models.Company) bool) bool {
	found := false
	s.each(func(c models.Company) {
		if !found && pred(c) {
			found = true
		}
	})
	return found
}

func (s *InMemory) filter(pred func(models.Company) bool) []models.Company {
	var out []models.Company
	s.each(func(c models.Company) {
		if pred(c) {
			out = append(out, c)
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return limit(out)
}

func limit(cs []models.Company) []models.Company {
	if len(cs) > models.MaxResults {
		return cs[:models.MaxResults]
	}
	return cs
}
