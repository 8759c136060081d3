// Package status derives membership state from subscription expiry.
package status

import (
	"time"

	"orgprofile/internal/company/models"
)

// gracePeriods is how long after expiry each tier keeps an ACTIVE membership.
var gracePeriods = map[models.SubscriptionTier]time.Duration{
	models.TierBuyer:         0,
	models.TierSupplier:      0,
	models.TierBuyerSupplier: 0,
	models.TierAuditor:       30 * 24 * time.Hour,
	models.TierSupplierPlus:  0,
}

// DeriveMembership returns the membership status in effect on the calendar date of now.
//
// A nil status stays nil. Only ACTIVE memberships lapse, and only once the date is past
// expiry plus the tier's grace period. Without an expiry, or for an unknown tier, the
// stored status is returned unchanged.
func DeriveMembership(current *models.MembershipStatus, now time.Time, expiry *time.Time, tier models.SubscriptionTier) *models.MembershipStatus {
	if current == nil {
		return nil
	}
	if *current != models.MembershipActive || expiry == nil {
		return current
	}
	grace, ok := gracePeriods[tier]
	if !ok {
		return current
	}
	lapsesAfter := dateOf(*expiry).Add(grace)
	if dateOf(now).After(lapsesAfter) {
		lapsed := models.MembershipLapsed
		return &lapsed
	}
	return current
}

// ForCompany re-derives c's membership status against an optional subscription.
// The tier is taken from c's subscription type code.
func ForCompany(c models.Company, sub *models.Subscription, now time.Time) models.Company {
	if c.MembershipStatus == nil || c.SubscriptionType == nil {
		return c
	}
	tier, ok := models.TierFromCode(*c.SubscriptionType)
	if !ok {
		return c
	}
	var expiry *time.Time
	if sub != nil {
		expiry = sub.EndDate
	}
	c.MembershipStatus = DeriveMembership(c.MembershipStatus, now, expiry, tier)
	return c
}

func dateOf(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
