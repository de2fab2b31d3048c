package jwttoken

import (
	authmw "docverify/pkg/platform/middleware/auth"
)

// MiddlewareValidator exposes JWTService as an authmw.JWTValidator.
type MiddlewareValidator struct {
	service *JWTService
}

func NewMiddlewareValidator(service *JWTService) *MiddlewareValidator {
	return &MiddlewareValidator{service: service}
}

// ValidateToken narrows validated claims to the submitter and session the
// verification routes need.
func (v *MiddlewareValidator) ValidateToken(raw string) (*authmw.JWTClaims, error) {
	claims, err := v.service.ValidateToken(raw)
	if err != nil {
		return nil, err
	}
	return toMiddlewareClaims(claims), nil
}

func toMiddlewareClaims(c *Claims) *authmw.JWTClaims {
	return &authmw.JWTClaims{SubmitterID: c.SubmitterID, SessionID: c.SessionID}
}
