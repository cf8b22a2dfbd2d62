package models

import "github.com/golang-jwt/jwt/v5"

// JWTClaims represents the JWT payload for access tokens.
type JWTClaims struct {
	UserID   string   `json:"user_id"`
	Role     UserRole `json:"role"`
	Email    string   `json:"email"`
	FullName string   `json:"full_name"`
	jwt.RegisteredClaims
}

// IsAdmin reports whether the caller holds the administrator role.
func (c *JWTClaims) IsAdmin() bool {
	return c != nil && c.Role == RoleAdmin
}

// IsStaff reports whether the caller may act on behalf of the shelter.
func (c *JWTClaims) IsStaff() bool {
	if c == nil {
		return false
	}
	switch c.Role {
	case RoleAdmin, RoleCoordinator, RoleVolunteer:
		return true
	}
	return false
}
