package jwttoken

import (
	"orgprofile/pkg/requestcontext"
)

func ToCaller(claims *Claims) requestcontext.Caller {
	return requestcontext.Caller{
		Subject: claims.Subject,
		OrgCode: claims.OrgCode,
		Roles:   claims.Roles,
	}
}

// JWTServiceAdapter exposes JWTService as the middleware's token validator.
type JWTServiceAdapter struct {
	service *JWTService
}

func NewJWTServiceAdapter(service *JWTService) *JWTServiceAdapter {
	return &JWTServiceAdapter{service: service}
}

func (a *JWTServiceAdapter) ValidateToken(tokenString string) (requestcontext.Caller, error) {
	claims, err := a.service.ValidateToken(tokenString)
	if err != nil {
		return requestcontext.Caller{}, err
	}
	return ToCaller(claims), nil
}
