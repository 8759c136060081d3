package handler

import "orgprofile/internal/company/models"

type existsResponse struct {
	Exists bool `json:"exists"`
}

type profileStatusResponse struct {
	Code   string               `json:"code"`
	Status models.ProfileStatus `json:"status"`
}

type withSubscriptionResponse struct {
	Company      models.Company       `json:"company"`
	Subscription *models.Subscription `json:"subscription"`
}

type auditCompaniesResponse struct {
	Codes []string `json:"codes"`
}

type reseedResponse struct {
	Published int64 `json:"published"`
}
