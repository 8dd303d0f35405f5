// Package auth mints and verifies the bearer tokens used to authenticate
// the administrative override endpoints (spec §6). End-user authentication
// is an out-of-scope external collaborator (spec §1); this package exists
// solely for the ADMIN-role surface.
package auth

import (
	"time"

	"github.com/eternalsentinel/sentinel/internal/apperrors"
	"github.com/golang-jwt/jwt/v5"
)

// RoleAdmin is the only role this package currently recognizes.
const RoleAdmin = "ADMIN"

// Claims carries the administrator's identity and role alongside the
// standard registered claims (expiry in particular).
type Claims struct {
	jwt.RegisteredClaims
	AdminID string
	Role    string
}

// GenerateAdminToken mints an HS256 JWT for adminID with the ADMIN role,
// valid for validityDuration.
func GenerateAdminToken(adminID string, secretKey []byte, validityDuration time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(validityDuration)),
		},
		AdminID: adminID,
		Role:    RoleAdmin,
	})

	return token.SignedString(secretKey)
}

// VerifyAdminToken parses and validates tokenString, returning the admin id
// if and only if the token is well-formed, unexpired, and carries the ADMIN
// role. Any other outcome is apperrors.ErrUnauthorized.
func VerifyAdminToken(tokenString string, secretKey []byte) (string, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secretKey, nil
	})
	if err != nil || !token.Valid {
		return "", apperrors.ErrUnauthorized
	}

	if claims.Role != RoleAdmin {
		return "", apperrors.ErrUnauthorized
	}

	return claims.AdminID, nil
}
