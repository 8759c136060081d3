// Package subscription stores membership subscriptions reported by the legacy system.
//
// Two generations coexist: the legacy table keeps one row per organisation, the
// current table keeps one row per organisation and end date.
package subscription

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"orgprofile/internal/company/models"
	"orgprofile/pkg/platform/sentinel"
)

// LegacyInMemory keeps one subscription per organisation.
type LegacyInMemory struct {
	mu   sync.RWMutex
	rows map[string]models.Subscription
}

func NewLegacyInMemory() *LegacyInMemory {
	return &LegacyInMemory{rows: make(map[string]models.Subscription)}
}

// Upsert replaces the organisation's subscription.
func (s *LegacyInMemory) Upsert(_ context.Context, sub models.Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[sub.OrgCode] = sub
	return nil
}

func (s *LegacyInMemory) FindByOrgCode(_ context.Context, orgCode string) (*models.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sub, ok := s.rows[orgCode]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &sub, nil
}

// CurrentInMemory keeps every subscription period of an organisation.
type CurrentInMemory struct {
	mu   sync.RWMutex
	rows map[string][]models.Subscription
}

func NewCurrentInMemory() *CurrentInMemory {
	return &CurrentInMemory{rows: make(map[string][]models.Subscription)}
}

// CreateOrUpdate inserts sub, or replaces the row with the same end date when sub is
// strictly newer. A subscription without an end date is always inserted.
func (s *CurrentInMemory) CreateOrUpdate(_ context.Context, sub models.Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows := s.rows[sub.OrgCode]
	if sub.EndDate != nil {
		for i, row := range rows {
			if row.EndDate == nil || !row.EndDate.Equal(*sub.EndDate) {
				continue
			}
			if sub.NewerThan(&row) {
				sub.ID = row.ID
				rows[i] = sub
			}
			return nil
		}
	}
	sub.ID = uuid.New()
	s.rows[sub.OrgCode] = append(rows, sub)
	return nil
}

func (s *CurrentInMemory) FindByOrgCode(_ context.Context, orgCode string) ([]models.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Subscription(nil), s.rows[orgCode]...), nil
}
