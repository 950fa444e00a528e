// Package auth derives the session identity from the backend-issued access
// token. The client only introspects claims; signature verification is the
// server's job, so tokens are parsed unverified here.
package auth

import (
	"errors"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

// Role enumerates the roles relevant to dashboard scoping.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleAgent Role = "agent"
	RoleUser  Role = "user"
)

// Identity is the session subject extracted from the access token.
type Identity struct {
	SubjectID string
	Name      string
	Role      Role
	ExpiresAt time.Time
}

// ErrNoToken indicates an empty session token.
var ErrNoToken = errors.New("no session token")

// IdentityFromToken extracts the identity claims from a JWT access token
// without verifying the signature.
func IdentityFromToken(token string) (*Identity, error) {
	if token == "" {
		return nil, ErrNoToken
	}

	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return nil, err
	}

	identity := &Identity{Role: RoleUser}
	if sub, err := claims.GetSubject(); err == nil {
		identity.SubjectID = sub
	}
	if identity.SubjectID == "" {
		if id, ok := claims["id"].(string); ok {
			identity.SubjectID = id
		}
	}
	if name, ok := claims["name"].(string); ok {
		identity.Name = name
	}
	if role, ok := claims["role"].(string); ok {
		switch Role(role) {
		case RoleAdmin, RoleAgent, RoleUser:
			identity.Role = Role(role)
		}
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		identity.ExpiresAt = exp.Time
	}

	if identity.SubjectID == "" {
		return nil, errors.New("token carries no subject")
	}
	return identity, nil
}

// Expired reports whether the session token has an expiry in the past.
func (i *Identity) Expired(now time.Time) bool {
	return !i.ExpiresAt.IsZero() && i.ExpiresAt.Before(now)
}

// DashboardScope returns the assignee filter for the role-scoped dashboard
// fetch: agents see their own queue, admins see everything.
func (i *Identity) DashboardScope() string {
	if i == nil || i.Role != RoleAgent {
		return ""
	}
	return i.SubjectID
}
