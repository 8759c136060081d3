package validation

import (
	"regexp"
	"strings"

	"orgprofile/internal/company/models"
)

// vatGrammars holds the national VAT number grammar of each EU member state,
// keyed by the VAT country prefix (Greece uses EL).
var vatGrammars = map[string]*regexp.Regexp{
	"AT": regexp.MustCompile(`^ATU[0-9]{8}$`),
	"BE": regexp.MustCompile(`^BE[01][0-9]{9}$`),
	"BG": regexp.MustCompile(`^BG[0-9]{9,10}$`),
	"CY": regexp.MustCompile(`^CY[0-9]{8}[A-Z]$`),
	"CZ": regexp.MustCompile(`^CZ[0-9]{8,10}$`),
	"DE": regexp.MustCompile(`^DE[0-9]{9}$`),
	"DK": regexp.MustCompile(`^DK[0-9]{8}$`),
	"EE": regexp.MustCompile(`^EE[0-9]{9}$`),
	"EL": regexp.MustCompile(`^EL[0-9]{9}$`),
	"ES": regexp.MustCompile(`^ES([A-Z][0-9]{8}|[0-9]{8}[A-Z]|[A-Z][0-9]{7}[A-Z])$`),
	"FI": regexp.MustCompile(`^FI[0-9]{8}$`),
	"FR": regexp.MustCompile(`^FR[0-9A-Z]{2}[0-9]{9}$`),
	"HR": regexp.MustCompile(`^HR[0-9]{11}$`),
	"HU": regexp.MustCompile(`^HU[0-9]{8}$`),
	"IE": regexp.MustCompile(`^IE([0-9]{7}[A-Z]{1,2}|[0-9][A-Z][0-9]{5}[A-Z])$`),
	"IT": regexp.MustCompile(`^IT[0-9]{11}$`),
	"LT": regexp.MustCompile(`^LT([0-9]{9}|[0-9]{12})$`),
	"LU": regexp.MustCompile(`^LU[0-9]{8}$`),
	"LV": regexp.MustCompile(`^LV[0-9]{11}$`),
	"MT": regexp.MustCompile(`^MT[0-9]{8}$`),
	"NL": regexp.MustCompile(`^NL[0-9]{9}B[0-9]{2}$`),
	"PL": regexp.MustCompile(`^PL[0-9]{10}$`),
	"PT": regexp.MustCompile(`^PT[0-9]{9}$`),
	"RO": regexp.MustCompile(`^RO[0-9]{2,10}$`),
	"SE": regexp.MustCompile(`^SE[0-9]{12}$`),
	"SI": regexp.MustCompile(`^SI[0-9]{8}$`),
	"SK": regexp.MustCompile(`^SK[0-9]{10}$`),
}

// Outside the EU any alphanumeric number with separators is accepted.
var permissiveVAT = regexp.MustCompile(`^[a-zA-Z0-9\-./\s]*$`)

// VAT prefixes that differ from the ISO country code.
var vatPrefixes = map[string]string{
	"GR": "EL",
}

// IsEUCountry reports whether the ISO country code belongs to one of the 27 EU member states.
func IsEUCountry(code string) bool {
	_, ok := vatGrammars[vatPrefix(code)]
	return ok
}

func vatPrefix(country string) string {
	if p, ok := vatPrefixes[country]; ok {
		return p
	}
	return country
}

// vatCountry is the VAT prefix of the billing country when set, else of the primary
// address country. An empty result means no country could be derived.
func vatCountry(c *models.Company) string {
	if c.BillingAddress != nil && c.BillingAddress.CountryCode != "" {
		return vatPrefix(c.BillingAddress.CountryCode)
	}
	return vatPrefix(c.Address.CountryCode)
}

// ValidVAT applies the VAT rule to a company. An absent VAT number is valid.
// Without a derivable country the permissive grammar applies.
func ValidVAT(c *models.Company) bool {
	if c.VATNumber == nil {
		return true
	}
	vat := *c.VATNumber
	if strings.TrimSpace(vat) == "" {
		return false
	}
	country := vatCountry(c)
	if country != "" && !strings.HasPrefix(vat, country) {
		return false
	}
	if grammar, ok := vatGrammars[country]; ok {
		return grammar.MatchString(vat)
	}
	return permissiveVAT.MatchString(vat)
}
