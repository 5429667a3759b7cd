package models

import "github.com/golang-jwt/jwt/v5"

// JWTClaims represents the access token payload issued by the identity
// collaborator. This service validates tokens; it never issues them.
type JWTClaims struct {
	UserID   string     `json:"user_id"`
	FamilyID string     `json:"family_id"`
	Email    string     `json:"email"`
	Role     ParentRole `json:"role"`
	jwt.RegisteredClaims
}
