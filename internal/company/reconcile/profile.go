package reconcile

import (
	"strings"

	"orgprofile/internal/company/models"
)

// Profile completeness is judged on the flattened field names.
var profileRequiredKeys = []string{
	models.KeyName,
	models.KeyTelephone,
	models.KeyContact,
	models.KeyCity,
	models.KeyAddressLine1,
	models.KeyCountryCode,
	models.KeyPostCode,
	models.KeyCompanySize,
}

// ProfileStatus classifies one source's record. Legacy records are judged without
// company size, which the legacy profile form does not collect.
func ProfileStatus(c *models.Company, src Source) models.ProfileStatus {
	if c == nil {
		return models.ProfilePending
	}
	m := models.Flatten(c)
	for _, key := range profileRequiredKeys {
		if key == models.KeyCompanySize && src == SourceLegacy {
			continue
		}
		if m[key] == "" {
			return models.ProfilePending
		}
	}
	if strings.EqualFold(c.Telephone, models.TelephoneNotApplicable) {
		return models.ProfilePending
	}
	return models.ProfileComplete
}

// CombineProfile is COMPLETE when either source is complete.
func CombineProfile(primary, legacy models.ProfileStatus) models.ProfileStatus {
	if primary == models.ProfileComplete || legacy == models.ProfileComplete {
		return models.ProfileComplete
	}
	return models.ProfilePending
}
