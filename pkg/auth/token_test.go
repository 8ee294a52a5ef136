package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/angelmondragon/pos-catalog-backend/pkg/config"
	"github.com/angelmondragon/pos-catalog-backend/pkg/enums"
	"github.com/golang-jwt/jwt/v5"
)

var testCfg = config.JWTConfig{Secret: "secret", Issuer: "pos-catalog"}

func TestMintAndParseAccessToken(t *testing.T) {
	now := time.Now().UTC()
	token, err := MintAccessToken(testCfg, now, 30*time.Minute, AccessTokenPayload{
		Subject: "cashier-7",
		Role:    enums.StaffRoleStaff,
	})
	if err != nil {
		t.Fatalf("mint access token: %v", err)
	}

	claims, err := ParseAccessToken(testCfg, token)
	if err != nil {
		t.Fatalf("parse access token: %v", err)
	}
	if claims.Subject != "cashier-7" {
		t.Fatalf("unexpected subject %q", claims.Subject)
	}
	if claims.Role != enums.StaffRoleStaff {
		t.Fatalf("unexpected role %s", claims.Role)
	}
	if claims.Issuer != "pos-catalog" {
		t.Fatalf("unexpected issuer %s", claims.Issuer)
	}
	if claims.ID == "" {
		t.Fatalf("expected jti")
	}
}

func TestParseAccessTokenRejectsExpired(t *testing.T) {
	token, err := MintAccessToken(testCfg, time.Now().Add(-2*time.Hour), time.Hour, AccessTokenPayload{
		Subject: "admin-1",
		Role:    enums.StaffRoleAdmin,
	})
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if _, err := ParseAccessToken(testCfg, token); err == nil {
		t.Fatalf("expected expired token to fail")
	}
}

func TestParseAccessTokenRejectsWrongSecretAndIssuer(t *testing.T) {
	token, err := MintAccessToken(testCfg, time.Now(), time.Hour, AccessTokenPayload{
		Subject: "admin-1",
		Role:    enums.StaffRoleAdmin,
	})
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if _, err := ParseAccessToken(config.JWTConfig{Secret: "other", Issuer: testCfg.Issuer}, token); err == nil {
		t.Fatalf("expected signature failure")
	}
	if _, err := ParseAccessToken(config.JWTConfig{Secret: testCfg.Secret, Issuer: "someone-else"}, token); err == nil {
		t.Fatalf("expected issuer failure")
	}
}

func TestParseAccessTokenRejectsOtherAlgorithms(t *testing.T) {
	claims := AccessTokenClaims{
		Role: enums.StaffRoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "admin-1",
			Issuer:    testCfg.Issuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte(testCfg.Secret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := ParseAccessToken(testCfg, token); err == nil || !strings.Contains(err.Error(), "signing method") {
		t.Fatalf("expected signing method error, got %v", err)
	}
}

func TestMintAccessTokenValidatesPayload(t *testing.T) {
	now := time.Now()
	if _, err := MintAccessToken(testCfg, now, time.Hour, AccessTokenPayload{Role: enums.StaffRoleAdmin}); err == nil {
		t.Fatalf("expected missing subject error")
	}
	if _, err := MintAccessToken(testCfg, now, time.Hour, AccessTokenPayload{Subject: "x", Role: "owner"}); err == nil {
		t.Fatalf("expected invalid role error")
	}
	if _, err := MintAccessToken(testCfg, now, 0, AccessTokenPayload{Subject: "x", Role: enums.StaffRoleAdmin}); err == nil {
		t.Fatalf("expected ttl error")
	}
}
