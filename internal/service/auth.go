package service

import (
	"context"
	"fmt"

	"github.com/rensmac/sqlgate/internal/domain"
	"github.com/rensmac/sqlgate/internal/security"
)

// AuthService exchanges configured API keys for access tokens
type AuthService struct {
	keyRing    *security.APIKeyRing
	jwtManager *security.JWTManager
}

// NewAuthService creates a new auth service
func NewAuthService(keyRing *security.APIKeyRing, jwtManager *security.JWTManager) *AuthService {
	return &AuthService{
		keyRing:    keyRing,
		jwtManager: jwtManager,
	}
}

// IssueToken verifies an API key against the configured ring and mints an
// access token for the owning principal
func (s *AuthService) IssueToken(ctx context.Context, apiKey string) (*domain.TokenResponse, error) {
	principal, err := s.keyRing.Verify(apiKey)
	if err != nil {
		return nil, err
	}

	token, err := s.jwtManager.GenerateAccessToken(principal)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	return &domain.TokenResponse{
		AccessToken: token,
		ExpiresIn:   int64(s.jwtManager.AccessTokenTTL().Seconds()),
	}, nil
}
