package domain

// TokenRequest represents an API key exchange request
type TokenRequest struct {
	APIKey string `json:"api_key" validate:"required"`
}

// TokenResponse carries a minted access token
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}
