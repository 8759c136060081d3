// Package legacy reads companies ingested from the legacy system.
//
// The legacy system hands over a semi-structured company document plus one document
// per address type. A company without a COMPANY_ADDRESS document is not yet usable and
// is treated as absent.
package legacy

import (
	"strings"

	"github.com/tidwall/gjson"

	"orgprofile/internal/company/models"
)

// value returns the string at key, or nil when it is missing, null or blank.
func value(doc []byte, key string) *string {
	r := gjson.GetBytes(doc, key)
	if !r.Exists() || r.Type == gjson.Null {
		return nil
	}
	s := r.String()
	if strings.TrimSpace(s) == "" || s == "null" {
		return nil
	}
	return &s
}

func str(doc []byte, key string) string {
	if v := value(doc, key); v != nil {
		return *v
	}
	return ""
}

// toCompany converts the raw documents into a company. billing may be nil.
func toCompany(rec models.LegacyRecord, address, billing []byte) models.Company {
	doc := rec.Data
	c := models.Company{
		Code:                        rec.Code,
		Name:                        str(doc, models.KeyName),
		LocalName:                   value(doc, models.KeyLocalName),
		BusinessLicenseNumber:       value(doc, models.KeyBusinessLicenseNumber),
		PrimaryClassificationCode:   value(doc, models.KeyPrimaryClassification),
		SecondaryClassificationCode: value(doc, models.KeySecondaryClassification),
		Address:                     toAddress(address),
		Telephone:                   str(doc, models.KeyTelephone),
		Email:                       str(doc, models.KeyContact),
		VATNumber:                   value(doc, models.KeyVATNumber),
		EnrollStatus:                value(doc, models.KeyEnrollStatus),
		SubscriptionType:            value(doc, models.KeySubscriptionType),
	}
	if c.Telephone == models.TelephoneNotApplicable {
		c.Telephone = ""
	}
	if billing != nil {
		b := toAddress(billing)
		c.BillingAddress = &b
	}
	if v := value(doc, models.KeyBusinessLicenseExpDate); v != nil {
		c.BusinessLicenseExpiration = models.ParseEpochDate(*v)
	}
	if v := value(doc, models.KeyMembershipStatus); v != nil {
		if st, ok := models.ParseMembershipStatus(*v); ok {
			c.MembershipStatus = &st
		}
	}
	if v := value(doc, models.KeyCompanySize); v != nil {
		if size, ok := models.ParseCompanySize(*v); ok {
			c.CompanySize = &size
		}
	}
	created := rec.CreatedAt.UTC()
	c.CreatedAt = &created
	if rec.UpdatedAt != nil {
		u := rec.UpdatedAt.UTC()
		c.UpdatedAt = &u
	}
	return c
}

func toAddress(doc []byte) models.Address {
	return models.Address{
		Line1:       str(doc, models.KeyAddressLine1),
		Line2:       str(doc, models.KeyAddressLine2),
		Line3:       str(doc, models.KeyAddressLine3),
		Line4:       str(doc, models.KeyAddressLine4),
		PostCode:    str(doc, models.KeyPostCode),
		City:        str(doc, models.KeyCity),
		CountryCode: str(doc, models.KeyCountryCode),
	}
}
