package models

import (
	"strings"
	"time"
)

// Company is the reconciled view of one organisation.
//
// Invariants:
//   - Code is immutable once assigned
//   - PrimaryClassificationCode and SecondaryClassificationCode are both nil or both set
//   - CompanySize, once set by either source, survives reconciliation
//
// Optional scalars are pointers so a partial write can be told apart from an explicit value.
type Company struct {
	Code                        string            `json:"code"`
	Name                        string            `json:"name"`
	LocalName                   *string           `json:"local_name,omitempty"`
	BusinessLicenseNumber       *string           `json:"business_license_number,omitempty"`
	BusinessLicenseExpiration   *time.Time        `json:"business_license_expiration,omitempty"`
	PrimaryClassificationCode   *string           `json:"primary_industry_classification_code,omitempty"`
	SecondaryClassificationCode *string           `json:"secondary_industry_classification_code,omitempty"`
	Address                     Address           `json:"address"`
	BillingAddress              *Address          `json:"billing_address,omitempty"`
	Telephone                   string            `json:"telephone"`
	Email                       string            `json:"email"`
	VATNumber                   *string           `json:"vat_number,omitempty"`
	EnrollStatus                *string           `json:"smd_enroll_status,omitempty"`
	MembershipStatus            *MembershipStatus `json:"membership_status,omitempty"`
	SubscriptionType            *string           `json:"subscription_type,omitempty"`
	CompanySize                 *CompanySize      `json:"company_size,omitempty"`
	CreatedAt                   *time.Time        `json:"created_at,omitempty"`
	UpdatedAt                   *time.Time        `json:"updated_at,omitempty"`
	LastWrittenByPrimary        bool              `json:"last_written_by_primary"`
}

// LastModifiedAt is the provenance timestamp used for latest-wins ordering:
// the update time when present, else the creation time.
func (c *Company) LastModifiedAt() *time.Time {
	if c.UpdatedAt != nil {
		return c.UpdatedAt
	}
	return c.CreatedAt
}

// Address is a free-text postal address. Lines three and four only come from the legacy system.
type Address struct {
	Line1       string `json:"line1"`
	Line2       string `json:"line2,omitempty"`
	Line3       string `json:"line3,omitempty"`
	Line4       string `json:"line4,omitempty"`
	City        string `json:"city"`
	PostCode    string `json:"post_code"`
	CountryCode string `json:"country_code"`
}

// SameLocation compares the identifying address fields case-insensitively.
func (a Address) SameLocation(b Address) bool {
	return strings.EqualFold(a.Line1, b.Line1) &&
		strings.EqualFold(a.City, b.City) &&
		strings.EqualFold(a.CountryCode, b.CountryCode) &&
		strings.EqualFold(a.PostCode, b.PostCode)
}

// IsZero reports whether no address field is populated.
func (a Address) IsZero() bool {
	return a == Address{}
}

// MembershipStatus is the lifecycle state of an organisation's membership.
type MembershipStatus string

const (
	MembershipNew       MembershipStatus = "NEW"
	MembershipActive    MembershipStatus = "ACTIVE"
	MembershipLapsed    MembershipStatus = "LAPSED"
	MembershipCancelled MembershipStatus = "CANCELLED"
	MembershipSuspended MembershipStatus = "SUSPENDED"
)

// ParseMembershipStatus accepts the canonical upper-case names.
func ParseMembershipStatus(s string) (MembershipStatus, bool) {
	switch st := MembershipStatus(strings.ToUpper(strings.TrimSpace(s))); st {
	case MembershipNew, MembershipActive, MembershipLapsed, MembershipCancelled, MembershipSuspended:
		return st, true
	}
	return "", false
}

// CompanySize is the headcount band reported by the organisation.
type CompanySize string

const (
	CompanySizeMicro  CompanySize = "MICRO"
	CompanySizeSmall  CompanySize = "SMALL"
	CompanySizeMedium CompanySize = "MEDIUM"
	CompanySizeLarge  CompanySize = "LARGE"
)

func ParseCompanySize(s string) (CompanySize, bool) {
	switch size := CompanySize(strings.ToUpper(strings.TrimSpace(s))); size {
	case CompanySizeMicro, CompanySizeSmall, CompanySizeMedium, CompanySizeLarge:
		return size, true
	}
	return "", false
}

// ProfileStatus reports whether an organisation has filled in its mandatory profile fields.
type ProfileStatus string

const (
	ProfilePending  ProfileStatus = "PENDING"
	ProfileComplete ProfileStatus = "COMPLETE"
)

// MaxResults caps every multi-row store read.
const MaxResults = 1000

// SearchResult is one row of a company search.
type SearchResult struct {
	Code             string            `json:"code"`
	Name             string            `json:"name"`
	SubscriptionType *string           `json:"subscription_type,omitempty"`
	MembershipStatus *MembershipStatus `json:"membership_status,omitempty"`
}

// ToSearchResult projects a company onto its search row.
func (c *Company) ToSearchResult() SearchResult {
	return SearchResult{
		Code:             c.Code,
		Name:             c.Name,
		SubscriptionType: c.SubscriptionType,
		MembershipStatus: c.MembershipStatus,
	}
}

// MembershipSummary is the self-service summary of an organisation's membership.
type MembershipSummary struct {
	MembershipStatus *MembershipStatus `json:"membership_status,omitempty"`
	MembershipType   *string           `json:"membership_type,omitempty"`
	MembershipCode   *string           `json:"membership_type_code,omitempty"`
	CountryCode      *string           `json:"country_code,omitempty"`
}

// CompanySummary is the compact view returned by batch summary lookups.
type CompanySummary struct {
	Code             string            `json:"code"`
	Name             string            `json:"name"`
	CountryCode      *string           `json:"country_code,omitempty"`
	MembershipStatus *MembershipStatus `json:"membership_status,omitempty"`
	SubscriptionType *string           `json:"subscription_type,omitempty"`
	SubscriberType   *SubscriptionTier `json:"subscriber_type,omitempty"`
}

func (c *Company) ToSummary() CompanySummary {
	out := CompanySummary{
		Code:             c.Code,
		Name:             c.Name,
		MembershipStatus: c.MembershipStatus,
		SubscriptionType: c.SubscriptionType,
	}
	if c.Address.CountryCode != "" {
		out.CountryCode = Ptr(c.Address.CountryCode)
	}
	if c.SubscriptionType != nil {
		if tier, ok := TierFromCode(*c.SubscriptionType); ok {
			out.SubscriberType = &tier
		}
	}
	return out
}

// Ptr returns a pointer to v. Handy for optional fields in literals.
func Ptr[T any](v T) *T {
	return &v
}
