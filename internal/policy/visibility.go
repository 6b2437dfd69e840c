package policy

import (
	"github.com/google/uuid"
	"github.com/straye-as/crm-api/internal/domain"
)

// VisibilityRule selects which records of an entity a role can read
type VisibilityRule int

const (
	VisibleNone VisibilityRule = iota
	VisibleAll
	// VisibleIfSalesContact keeps records whose sales contact is the actor
	VisibleIfSalesContact
	// VisibleIfSupportContact keeps events whose support contact is the actor
	VisibleIfSupportContact
	// VisibleIfSupportingEvent keeps clients with at least one event the actor supports
	VisibleIfSupportingEvent
	// VisibleIfContractOwner keeps documents of contracts the actor is sales contact of
	VisibleIfContractOwner
)

// PathScope carries the parent identifiers of a nested route
type PathScope struct {
	ClientID   *uuid.UUID
	ContractID *uuid.UUID
}

// Scope is a predicate over one entity table. Zero value means "everything".
// Repositories translate it into a query; see repository.ApplyScope.
type Scope struct {
	Entity Entity
	// None means the predicate matches nothing
	None                  bool
	ClientID              *uuid.UUID
	ContractID            *uuid.UUID
	SalesContactID        *uuid.UUID
	SupportContactID      *uuid.UUID
	EventSupportContactID *uuid.UUID
	ContractSalesID       *uuid.UUID
}

// IsEmpty reports whether the scope can never match a record
func (s Scope) IsEmpty() bool {
	return s.None
}

// Resolve computes the set of entity records the actor may read below path.
// Unknown roles see nothing.
func Resolve(actor Actor, entity Entity, path PathScope) Scope {
	scope := Scope{Entity: entity}

	switch entity {
	case EntityContract:
		scope.ClientID = path.ClientID
	case EntityEvent:
		scope.ClientID = path.ClientID
		scope.ContractID = path.ContractID
	case EntityDocument:
		scope.ContractID = path.ContractID
	}

	ep, ok := entityPolicy(actor.Role, entity)
	if !ok {
		scope.None = true
		return scope
	}

	id := actor.ID
	switch ep.Visibility {
	case VisibleAll:
	case VisibleIfSalesContact:
		scope.SalesContactID = &id
	case VisibleIfSupportContact:
		scope.SupportContactID = &id
	case VisibleIfSupportingEvent:
		scope.EventSupportContactID = &id
	case VisibleIfContractOwner:
		scope.ContractSalesID = &id
	default:
		scope.None = true
	}
	return scope
}

// Unscoped reports whether the role bypasses every visibility rule
func Unscoped(role domain.Role) bool {
	rp, ok := table[role]
	if !ok {
		return false
	}
	for _, ep := range rp.Entities {
		if ep.Visibility != VisibleAll {
			return false
		}
	}
	return true
}
