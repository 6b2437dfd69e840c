package auth

import (
	"context"

	"github.com/google/uuid"
	"github.com/straye-as/crm-api/internal/domain"
	"github.com/straye-as/crm-api/internal/policy"
)

// Method records how a principal was authenticated
type Method string

const (
	MethodJWT    Method = "jwt"
	MethodAPIKey Method = "api_key"
)

// SystemPrincipalID identifies automation calling with the API key
var SystemPrincipalID = uuid.Nil

// Principal is the authenticated staff member behind a request
type Principal struct {
	ID     uuid.UUID
	Name   string
	Role   domain.Role
	Method Method
}

type contextKey string

const principalKey contextKey = "principal"

// WithPrincipal adds the principal to the context
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// FromContext extracts the principal from the context
func FromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalKey).(*Principal)
	return p, ok && p != nil
}

// MustFromContext extracts the principal or panics
func MustFromContext(ctx context.Context) *Principal {
	p, ok := FromContext(ctx)
	if !ok {
		panic("principal not found in context")
	}
	return p
}

// Actor returns the identity the policy package decides on
func (p *Principal) Actor() policy.Actor {
	return policy.Actor{ID: p.ID, Role: p.Role}
}

// IsSystem reports whether the request came in with the API key
func (p *Principal) IsSystem() bool {
	return p.Method == MethodAPIKey
}

// UserID returns the id to record as author, nil for the system principal
func (p *Principal) UserID() *uuid.UUID {
	if p.IsSystem() {
		return nil
	}
	id := p.ID
	return &id
}

// HasAnyRole checks if the principal has any of the given roles
func (p *Principal) HasAnyRole(roles ...domain.Role) bool {
	for _, r := range roles {
		if p.Role == r {
			return true
		}
	}
	return false
}

func systemPrincipal() *Principal {
	return &Principal{
		ID:     SystemPrincipalID,
		Name:   "System",
		Role:   domain.RoleManagement,
		Method: MethodAPIKey,
	}
}
