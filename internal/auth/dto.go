package auth

import (
	"time"

	"github.com/angelmondragon/pos-catalog-backend/internal/users"
)

// LoginRequest captures the credentials sent to the login endpoint.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse carries the access token issued for a successful login.
type LoginResponse struct {
	AccessToken string         `json:"access_token"`
	TokenType   string         `json:"token_type"`
	ExpiresAt   time.Time      `json:"expires_at"`
	User        *users.UserDTO `json:"user"`
}

// RegisterRequest creates a staff account. Username is optional.
type RegisterRequest struct {
	Username *string `json:"username" validate:"omitempty,max=80"`
	Email    string  `json:"email" validate:"required,email,max=254"`
	Password string  `json:"password" validate:"required"`
	Role     string  `json:"role" validate:"required,oneof=admin staff"`
}
