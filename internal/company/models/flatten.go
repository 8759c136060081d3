package models

import (
	"strconv"
	"strings"
	"time"
)

// Flattened field keys. These are the wire names used by the change feed and the
// stored payload document, shared with the legacy system.
const (
	KeyName                    = "name"
	KeyContact                 = "contact"
	KeyLocalName               = "smdNameInLocalLanguage"
	KeyBusinessLicenseNumber   = "smdBusinessLicenseNumber"
	KeyBusinessLicenseExpDate  = "smdBusinessLicenseExpDate"
	KeyPrimaryClassification   = "primaryIndustryClassificationCode"
	KeySecondaryClassification = "secondaryIndustryClassificationCode"
	KeyAddressLine1            = "addressLine1"
	KeyAddressLine2            = "addressLine2"
	KeyAddressLine3            = "addressLine3"
	KeyAddressLine4            = "addressLine4"
	KeyPostCode                = "postCode"
	KeyCity                    = "city"
	KeyCountryCode             = "countryCode"
	KeyTelephone               = "telephone"
	KeyVATNumber               = "vatNumber"
	KeyEnrollStatus            = "smdEnrollStatus"
	KeySubscriptionType        = "subscriptionType"
	KeyMembershipStatus        = "membershipStatus"
	KeyCompanySize             = "companySize"
	KeyUpdatedByPrimary        = "isUpdatedByConnect"

	billingPrefix = "billing_"
)

// TelephoneNotApplicable is the placeholder the legacy system stores for a missing phone.
const TelephoneNotApplicable = "N/A"

// Flatten renders c as the flat string map carried by change notifications.
// Absent values are rendered as empty strings so every key is always present.
func Flatten(c *Company) map[string]string {
	m := map[string]string{
		KeyName:                    c.Name,
		KeyContact:                 c.Email,
		KeyLocalName:               deref(c.LocalName),
		KeyBusinessLicenseNumber:   deref(c.BusinessLicenseNumber),
		KeyPrimaryClassification:   deref(c.PrimaryClassificationCode),
		KeySecondaryClassification: deref(c.SecondaryClassificationCode),
		KeyTelephone:               c.Telephone,
		KeyVATNumber:               deref(c.VATNumber),
		KeyBusinessLicenseExpDate:  "",
		KeyEnrollStatus:            deref(c.EnrollStatus),
		KeySubscriptionType:        deref(c.SubscriptionType),
		KeyMembershipStatus:        "",
		KeyCompanySize:             "",
		KeyUpdatedByPrimary:        strconv.FormatBool(c.LastWrittenByPrimary),
	}
	if c.BusinessLicenseExpiration != nil {
		m[KeyBusinessLicenseExpDate] = strconv.FormatInt(c.BusinessLicenseExpiration.UTC().UnixMilli(), 10)
	}
	if c.MembershipStatus != nil {
		m[KeyMembershipStatus] = string(*c.MembershipStatus)
	}
	if c.CompanySize != nil {
		m[KeyCompanySize] = string(*c.CompanySize)
	}
	putAddress(m, "", c.Address)
	billing := Address{}
	if c.BillingAddress != nil {
		billing = *c.BillingAddress
	}
	putAddress(m, billingPrefix, billing)
	return m
}

func putAddress(m map[string]string, prefix string, a Address) {
	m[prefix+KeyAddressLine1] = a.Line1
	m[prefix+KeyAddressLine2] = a.Line2
	m[prefix+KeyAddressLine3] = a.Line3
	m[prefix+KeyAddressLine4] = a.Line4
	m[prefix+KeyPostCode] = a.PostCode
	m[prefix+KeyCity] = a.City
	m[prefix+KeyCountryCode] = a.CountryCode
}

// Unflatten rebuilds the typed fields of a company from a flat map produced by Flatten.
// Blank values and the literal "null" are treated as absent. Provenance fields are left unset;
// KeyUpdatedByPrimary is read by the legacy side only.
func Unflatten(code string, m map[string]string) Company {
	get := func(key string) *string {
		v, ok := m[key]
		if !ok || strings.TrimSpace(v) == "" || v == "null" {
			return nil
		}
		return &v
	}
	c := Company{
		Code:                        code,
		Name:                        deref(get(KeyName)),
		Email:                       deref(get(KeyContact)),
		LocalName:                   get(KeyLocalName),
		BusinessLicenseNumber:       get(KeyBusinessLicenseNumber),
		PrimaryClassificationCode:   get(KeyPrimaryClassification),
		SecondaryClassificationCode: get(KeySecondaryClassification),
		Telephone:                   deref(get(KeyTelephone)),
		VATNumber:                   get(KeyVATNumber),
		EnrollStatus:                get(KeyEnrollStatus),
		SubscriptionType:            get(KeySubscriptionType),
		Address:                     addressFrom(get, ""),
	}
	if c.Telephone == TelephoneNotApplicable {
		c.Telephone = ""
	}
	if v := get(KeyBusinessLicenseExpDate); v != nil {
		c.BusinessLicenseExpiration = ParseEpochDate(*v)
	}
	if v := get(KeyMembershipStatus); v != nil {
		if st, ok := ParseMembershipStatus(*v); ok {
			c.MembershipStatus = &st
		}
	}
	if v := get(KeyCompanySize); v != nil {
		if size, ok := ParseCompanySize(*v); ok {
			c.CompanySize = &size
		}
	}
	if billing := addressFrom(get, billingPrefix); !billing.IsZero() {
		c.BillingAddress = &billing
	}
	return c
}

func addressFrom(get func(string) *string, prefix string) Address {
	return Address{
		Line1:       deref(get(prefix + KeyAddressLine1)),
		Line2:       deref(get(prefix + KeyAddressLine2)),
		Line3:       deref(get(prefix + KeyAddressLine3)),
		Line4:       deref(get(prefix + KeyAddressLine4)),
		PostCode:    deref(get(prefix + KeyPostCode)),
		City:        deref(get(prefix + KeyCity)),
		CountryCode: deref(get(prefix + KeyCountryCode)),
	}
}

// ParseEpochDate reads an epoch-millisecond string as a UTC calendar date.
// Unparseable input yields nil.
func ParseEpochDate(s string) *time.Time {
	ms, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return nil
	}
	t := time.UnixMilli(ms).UTC()
	d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return &d
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
