package auth

import (
	"github.com/angelmondragon/pos-catalog-backend/pkg/enums"
	"github.com/golang-jwt/jwt/v5"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	Subject string
	Role    enums.StaffRole
}

// AccessTokenClaims represents the typed JWT presented by clients. The
// subject identifies the operator.
type AccessTokenClaims struct {
	Role enums.StaffRole `json:"role"`
	jwt.RegisteredClaims
}
