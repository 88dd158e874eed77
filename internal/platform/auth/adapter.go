package auth

import (
	"notaria/internal/platform/middleware"
)

// ToMiddlewareClaims maps token claims onto what RequireActor consumes.
func ToMiddlewareClaims(claims *Claims) *middleware.JWTClaims {
	return &middleware.JWTClaims{
		ActorID:   claims.Subject,
		Role:      claims.Role,
		Name:      claims.Name,
		SessionID: claims.SessionID,
	}
}

type TokenServiceAdapter struct {
	service *TokenService
}

func NewTokenServiceAdapter(service *TokenService) *TokenServiceAdapter {
	return &TokenServiceAdapter{service: service}
}

func (a *TokenServiceAdapter) ValidateToken(tokenString string) (*middleware.JWTClaims, error) {
	claims, err := a.service.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	return ToMiddlewareClaims(claims), nil
}
