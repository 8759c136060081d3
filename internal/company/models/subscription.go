package models

import (
	"time"

	"github.com/google/uuid"
)

// Subscription is an organisation's paid membership as reported by the legacy system.
// Timestamp orders competing writes; a nil Timestamp never replaces a stored row.
type Subscription struct {
	ID                        uuid.UUID  `json:"id,omitempty"`
	OrgCode                   string     `json:"org_code"`
	PaymentCode               *string    `json:"payment_code,omitempty"`
	NrOfSites                 *int       `json:"nr_of_sites,omitempty"`
	RequestedDurationInYears  *int       `json:"requested_duration_in_years,omitempty"`
	HighTier                  *bool      `json:"high_tier,omitempty"`
	EndDate                   *time.Time `json:"end_date,omitempty"`
	SupplierPlusAvailableDate *time.Time `json:"supplier_plus_available_date,omitempty"`
	Timestamp                 *time.Time `json:"timestamp,omitempty"`
}

// NewerThan reports whether s should replace other. Both timestamps must be set.
func (s *Subscription) NewerThan(other *Subscription) bool {
	if s.Timestamp == nil || other.Timestamp == nil {
		return false
	}
	return s.Timestamp.After(*other.Timestamp)
}
