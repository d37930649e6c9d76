package models

import "github.com/golang-jwt/jwt/v5"

// JWTClaims carries the identity pointer embedded in access tokens. The role
// claim is informational only: gated handlers re-derive the authoritative
// role from the users table on every request.
type JWTClaims struct {
	UserID string `json:"uid"`
	Email  string `json:"email"`
	Name   string `json:"name"`
	Role   Role   `json:"role"`
	jwt.RegisteredClaims
}
