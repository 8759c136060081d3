package handler

import (
	"strings"

	"orgprofile/internal/company/models"
	dErrors "orgprofile/pkg/domain-errors"
	platformstrings "orgprofile/pkg/platform/strings"
)

const maxBatchCodes = models.MaxResults

// CompanyRequest is the body of POST and PUT /companies/{code}.
type CompanyRequest struct {
	models.Company
}

// Validate trims the free-text fields. Field rules run in the service.
func (r *CompanyRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.Name = strings.TrimSpace(r.Name)
	r.Telephone = strings.TrimSpace(r.Telephone)
	r.Email = strings.TrimSpace(r.Email)
	return nil
}

// CodesRequest is the body of the batch lookups.
type CodesRequest struct {
	Codes []string `json:"codes"`
}

func (r *CodesRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if len(r.Codes) > maxBatchCodes {
		return dErrors.New(dErrors.CodeValidation, "too many codes requested")
	}
	r.Codes = platformstrings.DedupeAndTrim(r.Codes)
	return nil
}

// SubscriptionChangeRequest is the body of PUT /companies/{code}/subscription.
type SubscriptionChangeRequest struct {
	MembershipStatus string `json:"membership_status"`
	SubscriptionType string `json:"subscription_type"`

	status models.MembershipStatus
	tier   models.SubscriptionTier
}

func (r *SubscriptionChangeRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	status, ok := models.ParseMembershipStatus(r.MembershipStatus)
	if !ok {
		return dErrors.New(dErrors.CodeValidation, "membership_status is invalid")
	}
	tier, ok := models.ParseTier(strings.TrimSpace(r.SubscriptionType))
	if !ok {
		return dErrors.New(dErrors.CodeValidation, "subscription_type is invalid")
	}
	r.status, r.tier = status, tier
	return nil
}

// CompanySizeRequest is the body of PUT /companies/{code}/size.
type CompanySizeRequest struct {
	CompanySize string `json:"company_size"`

	size models.CompanySize
}

func (r *CompanySizeRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	size, ok := models.ParseCompanySize(r.CompanySize)
	if !ok {
		return dErrors.New(dErrors.CodeValidation, "company_size is invalid")
	}
	r.size = size
	return nil
}

// RelationRequest is the body of POST and DELETE /subsidiary.
type RelationRequest struct {
	ParentOrgCode string `json:"parent_org_code"`
	ChildOrgCode  string `json:"child_org_code"`
}

func (r *RelationRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.ParentOrgCode = strings.TrimSpace(r.ParentOrgCode)
	r.ChildOrgCode = strings.TrimSpace(r.ChildOrgCode)
	if r.ParentOrgCode == "" || r.ChildOrgCode == "" {
		return dErrors.New(dErrors.CodeValidation, "parent_org_code and child_org_code are required")
	}
	return nil
}

// SubscriptionRequest is the body of PUT /subscriptions.
type SubscriptionRequest struct {
	models.Subscription
}

func (r *SubscriptionRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.OrgCode = strings.TrimSpace(r.OrgCode)
	if r.OrgCode == "" {
		return dErrors.New(dErrors.CodeValidation, "org_code is required")
	}
	return nil
}
