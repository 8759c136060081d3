package models

// SubscriptionTier names a membership tier. Companies store the tier code.
type SubscriptionTier string

const (
	TierBuyer         SubscriptionTier = "Buyer"
	TierSupplier      SubscriptionTier = "Supplier"
	TierBuyerSupplier SubscriptionTier = "BuyerSupplier"
	TierAuditor       SubscriptionTier = "Auditor"
	TierSupplierPlus  SubscriptionTier = "SupplierPlus"
)

var tierCodes = map[SubscriptionTier]string{
	TierBuyer:         "ST001",
	TierSupplier:      "ST002",
	TierBuyerSupplier: "ST003",
	TierAuditor:       "ST004",
	TierSupplierPlus:  "ST005",
}

var tiersByCode = func() map[string]SubscriptionTier {
	m := make(map[string]SubscriptionTier, len(tierCodes))
	for tier, code := range tierCodes {
		m[code] = tier
	}
	return m
}()

// Code returns the stored tier code, or "" for an unknown tier.
func (t SubscriptionTier) Code() string {
	return tierCodes[t]
}

// TierFromCode resolves a stored tier code.
func TierFromCode(code string) (SubscriptionTier, bool) {
	t, ok := tiersByCode[code]
	return t, ok
}

// ParseTier accepts either a tier name or a tier code.
func ParseTier(s string) (SubscriptionTier, bool) {
	if _, ok := tierCodes[SubscriptionTier(s)]; ok {
		return SubscriptionTier(s), true
	}
	return TierFromCode(s)
}
