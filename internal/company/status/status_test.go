package status

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orgprofile/internal/company/models"
)

var now = time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC)

func TestDeriveMembership(t *testing.T) {
	active := models.Ptr(models.MembershipActive)

	t.Run("absent status is never fabricated", func(t *testing.T) {
		assert.Nil(t, DeriveMembership(nil, now, nil, models.TierSupplier))
	})

	t.Run("no expiry never lapses", func(t *testing.T) {
		got := DeriveMembership(active, now, nil, models.TierSupplier)
		assert.Equal(t, models.MembershipActive, *got)
	})

	t.Run("past expiry lapses", func(t *testing.T) {
		expiry := time.UnixMilli(1577945440000)
		got := DeriveMembership(active, now, &expiry, models.TierSupplier)
		assert.Equal(t, models.MembershipLapsed, *got)
	})

	t.Run("expiry day itself is still active", func(t *testing.T) {
		expiry := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)
		got := DeriveMembership(active, now, &expiry, models.TierBuyer)
		assert.Equal(t, models.MembershipActive, *got)
	})

	t.Run("auditor keeps grace period", func(t *testing.T) {
		expiry := now.AddDate(0, 0, -20)
		got := DeriveMembership(active, now, &expiry, models.TierAuditor)
		assert.Equal(t, models.MembershipActive, *got)

		expiry = now.AddDate(0, 0, -31)
		got = DeriveMembership(active, now, &expiry, models.TierAuditor)
		assert.Equal(t, models.MembershipLapsed, *got)
	})

	t.Run("non active statuses are unchanged", func(t *testing.T) {
		expiry := now.AddDate(-1, 0, 0)
		got := DeriveMembership(models.Ptr(models.MembershipNew), now, &expiry, models.TierSupplier)
		assert.Equal(t, models.MembershipNew, *got)
	})

	t.Run("unknown tier is unchanged", func(t *testing.T) {
		expiry := now.AddDate(-1, 0, 0)
		got := DeriveMembership(active, now, &expiry, models.SubscriptionTier("Gold"))
		assert.Equal(t, models.MembershipActive, *got)
	})
}

func TestForCompany(t *testing.T) {
	end := time.UnixMilli(1577945440000)
	c := models.Company{
		Code:             "ZC1",
		MembershipStatus: models.Ptr(models.MembershipActive),
		SubscriptionType: models.Ptr("ST002"),
	}

	got := ForCompany(c, &models.Subscription{OrgCode: "ZC1", EndDate: &end}, now)
	require.NotNil(t, got.MembershipStatus)
	assert.Equal(t, models.MembershipLapsed, *got.MembershipStatus)
	assert.Equal(t, models.MembershipActive, *c.MembershipStatus, "input must not be mutated")

	got = ForCompany(c, nil, now)
	assert.Equal(t, models.MembershipActive, *got.MembershipStatus)
}
