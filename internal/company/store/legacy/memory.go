package legacy

import (
	"context"
	"sort"
	"strings"
	"sync"

	"orgprofile/internal/company/models"
	"orgprofile/pkg/platform/sentinel"
)

type addressKey struct {
	code string
	typ  models.AddressType
}

// InMemory keeps raw legacy documents in maps and parses them on read.
type InMemory struct {
	mu        sync.RWMutex
	records   map[string]models.LegacyRecord
	addresses map[addressKey][]byte
}

func NewInMemory() *InMemory {
	return &InMemory{
		records:   make(map[string]models.LegacyRecord),
		addresses: make(map[addressKey][]byte),
	}
}

// Insert stores or replaces the company document for rec.Code.
func (s *InMemory) Insert(_ context.Context, rec models.LegacyRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.Code] = rec
	return nil
}

// InsertAddress stores or replaces the address document of one type.
func (s *InMemory) InsertAddress(_ context.Context, addr models.LegacyAddress) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.addresses[addressKey{addr.Code, addr.Type}] = addr.Data
	return nil
}

func (s *InMemory) Get(_ context.Context, code string) (*models.Company, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.load(code)
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &c, nil
}

func (s *InMemory) GetMany(_ context.Context, codes []string) ([]models.Company, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Company
	seen := make(map[string]struct{}, len(codes))
	for _, code := range codes {
		if _, dup := seen[code]; dup {
			continue
		}
		seen[code] = struct{}{}
		if c, ok := s.load(code); ok {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *InMemory) ExistsByCode(_ context.Context, code string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.load(code)
	return ok, nil
}

func (s *InMemory) ExistsByNameForOrg(_ context.Context, name, excludeCode string) (bool, error) {
	return len(s.filter(func(c models.Company) bool {
		return c.Code != excludeCode && strings.EqualFold(c.Name, name)
	})) > 0, nil
}

func (s *InMemory) ExistsByAddress(_ context.Context, a models.Address) (bool, error) {
	return len(s.filter(func(c models.Company) bool {
		return c.Address.SameLocation(a)
	})) > 0, nil
}

func (s *InMemory) FindActiveBySubscriptionType(_ context.Context, tierCode string) ([]string, error) {
	var codes []string
	for _, c := range s.filter(func(c models.Company) bool {
		return c.SubscriptionType != nil && *c.SubscriptionType == tierCode &&
			c.MembershipStatus != nil && *c.MembershipStatus == models.MembershipActive
	}) {
		codes = append(codes, c.Code)
	}
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

// load must be called with the read lock held.
func (s *InMemory) load(code string) (models.Company, bool) {
	rec, ok := s.records[code]
	if !ok {
		return models.Company{}, false
	}
	address, ok := s.addresses[addressKey{code, models.AddressTypeCompany}]
	if !ok {
		return models.Company{}, false
	}
	return toCompany(rec, address, s.addresses[addressKey{code, models.AddressTypeBilling}]), true
}

func (s *InMemory) filter(pred func(models.Company) bool) []models.Company {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Company
	for code := range s.records {
		if c, ok := s.load(code); ok && pred(c) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	if len(out) > models.MaxResults {
		out = out[:models.MaxResults]
	}
	return out
}
