package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/rensmac/sqlgate/internal/api/response"
	"github.com/rensmac/sqlgate/internal/domain"
	"github.com/rensmac/sqlgate/internal/security"
	"github.com/rensmac/sqlgate/internal/service"
)

var validate = validator.New()

// AuthHandler handles token issuance
type AuthHandler struct {
	authService *service.AuthService
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// Token exchanges a configured API key for a short-lived access token
func (h *AuthHandler) Token(w http.ResponseWriter, r *http.Request) {
	var input domain.TokenRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	if err := validate.Struct(input); err != nil {
		response.BadRequest(w, "api_key is required")
		return
	}

	token, err := h.authService.IssueToken(r.Context(), input.APIKey)
	if err != nil {
		if errors.Is(err, security.ErrInvalidAPIKey) {
			response.Unauthorized(w, "invalid api key")
			return
		}
		response.InternalError(w, "failed to issue token")
		return
	}

	response.OK(w, token)
}
