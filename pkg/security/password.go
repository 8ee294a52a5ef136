package security

import (
	"errors"
	"fmt"

	"github.com/angelmondragon/pos-catalog-backend/pkg/config"
	"golang.org/x/crypto/bcrypt"
)

// MaxPasswordBytes is the longest input bcrypt accepts.
const MaxPasswordBytes = 72

// ErrInvalidHash signals a stored value that is not a bcrypt hash.
var ErrInvalidHash = errors.New("invalid bcrypt hash")

// HashPassword returns a bcrypt hash using the configured cost.
func HashPassword(password string, cfg config.PasswordConfig) (string, error) {
	if password == "" {
		return "", fmt.Errorf("password cannot be empty")
	}
	if len(password) > MaxPasswordBytes {
		return "", fmt.Errorf("password exceeds %d bytes", MaxPasswordBytes)
	}
	cost := cfg.BcryptCost
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// VerifyPassword reports whether password matches the encoded hash. A
// mismatch is not an error.
func VerifyPassword(password, encoded string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(encoded), []byte(password))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	case errors.Is(err, bcrypt.ErrHashTooShort):
		return false, ErrInvalidHash
	default:
		var version bcrypt.HashVersionTooNewError
		var prefix bcrypt.InvalidHashPrefixError
		if errors.As(err, &version) || errors.As(err, &prefix) {
			return false, ErrInvalidHash
		}
		return false, err
	}
}
