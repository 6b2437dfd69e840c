// Package policy holds the role strategy table of the CRM and the pure
// decisions derived from it: which operations a role may attempt, which
// records it can see, which fields it can write, which reassignments are
// legal and which response shape it receives.
package policy

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/straye-as/crm-api/internal/domain"
)

// Entity names a kind of record guarded by the policy
type Entity string

const (
	EntityUser     Entity = "user"
	EntityClient   Entity = "client"
	EntityContract Entity = "contract"
	EntityEvent    Entity = "event"
	EntityDocument Entity = "document"
)

// Operation is something a principal attempts on an entity
type Operation string

const (
	OpList     Operation = "list"
	OpRetrieve Operation = "retrieve"
	OpCreate   Operation = "create"
	OpUpdate   Operation = "update"
	OpReassign Operation = "reassign"
	OpDelete   Operation = "delete"
)

// Actor is the authenticated principal a decision is made for
type Actor struct {
	ID   uuid.UUID
	Role domain.Role
}

// AssignRule says how a role may set the ownership reference of an entity
// (sales contact for clients and contracts, support contact for events).
type AssignRule int

const (
	// AssignNone forbids setting the reference
	AssignNone AssignRule = iota
	// AssignSelf lets the actor only name itself
	AssignSelf
	// AssignAny lets the actor name any principal holding the right role
	AssignAny
)

// RelinkRule says how a role may move an entity to another parent
type RelinkRule int

const (
	RelinkNone RelinkRule = iota
	// RelinkOwned allows moving only to parents the actor owns
	RelinkOwned
	RelinkAny
)

// EntityPolicy is everything one role may do with one kind of entity
type EntityPolicy struct {
	Operations map[Operation]bool
	Writable   map[Operation]FieldSet
	Visibility VisibilityRule
	Shapes     map[Operation]Shape
	Assign     AssignRule
	Relink     RelinkRule
	// OwnsParent requires the actor to own the parent client on create
	OwnsParent bool
}

// RolePolicy is the full rule set of a role
type RolePolicy struct {
	Role     domain.Role
	Entities map[Entity]EntityPolicy
}

func ops(list ...Operation) map[Operation]bool {
	m := make(map[Operation]bool, len(list))
	for _, op := range list {
		m[op] = true
	}
	return m
}

var readOps = []Operation{OpList, OpRetrieve}

var salesPolicy = RolePolicy{
	Role: domain.RoleSales,
	Entities: map[Entity]EntityPolicy{
		EntityUser: {
			Operations: ops(readOps...),
			Visibility: VisibleAll,
			Shapes:     map[Operation]Shape{OpList: ShapeList},
		},
		EntityClient: {
			Operations: ops(OpList, OpRetrieve, OpCreate, OpUpdate, OpReassign),
			Writable: map[Operation]FieldSet{
				OpCreate:   clientProfileFields,
				OpUpdate:   clientProfileFields,
				OpReassign: clientOwnerFields,
			},
			Visibility: VisibleIfSalesContact,
			Shapes:     map[Operation]Shape{OpList: ShapeList},
			Assign:     AssignSelf,
		},
		EntityContract: {
			Operations: ops(OpList, OpRetrieve, OpCreate, OpUpdate, OpReassign),
			Writable: map[Operation]FieldSet{
				OpCreate:   contractTermFields,
				OpUpdate:   contractTermFields,
				OpReassign: contractLinkFields,
			},
			Visibility: VisibleIfSalesContact,
			Shapes:     map[Operation]Shape{OpList: ShapeList},
			Assign:     AssignNone,
			Relink:     RelinkOwned,
			OwnsParent: true,
		},
		EntityEvent: {
			Operations: ops(OpList, OpRetrieve, OpCreate, OpUpdate, OpReassign),
			Writable: map[Operation]FieldSet{
				OpCreate:   eventDetailFields,
				OpUpdate:   eventDetailFields,
				OpReassign: eventLinkFields,
			},
			Visibility: VisibleNone,
			Shapes:     map[Operation]Shape{OpList: ShapeList},
			Assign:     AssignNone,
			Relink:     RelinkNone,
			OwnsParent: true,
		},
		EntityDocument: {
			Operations: ops(OpList, OpRetrieve, OpCreate),
			Writable:   map[Operation]FieldSet{OpCreate: documentFields},
			Visibility: VisibleIfContractOwner,
		},
	},
}

var supportPolicy = RolePolicy{
	Role: domain.RoleSupport,
	Entities: map[Entity]EntityPolicy{
		EntityUser: {
			Operations: ops(readOps...),
			Visibility: VisibleAll,
			Shapes:     map[Operation]Shape{OpList: ShapeList},
		},
		EntityClient: {
			Operations: ops(OpList, OpRetrieve, OpUpdate, OpReassign),
			Writable: map[Operation]FieldSet{
				OpUpdate:   clientContactFields,
				OpReassign: clientOwnerFields,
			},
			Visibility: VisibleIfSupportingEvent,
			Shapes: map[Operation]Shape{
				OpList:     ShapeContact,
				OpRetrieve: ShapeContact,
				OpUpdate:   ShapeContact,
			},
			Assign: AssignNone,
		},
		EntityContract: {
			Operations: ops(readOps...),
			Visibility: VisibleNone,
			Shapes:     map[Operation]Shape{OpList: ShapeList},
		},
		EntityEvent: {
			Operations: ops(OpList, OpRetrieve, OpUpdate, OpReassign),
			Writable: map[Operation]FieldSet{
				OpUpdate:   eventDetailFields,
				OpReassign: eventLinkFields,
			},
			Visibility: VisibleIfSupportContact,
			Shapes:     map[Operation]Shape{OpList: ShapeList},
			Assign:     AssignNone,
			Relink:     RelinkNone,
		},
		EntityDocument: {
			Visibility: VisibleNone,
		},
	},
}

var managementPolicy = RolePolicy{
	Role: domain.RoleManagement,
	Entities: map[Entity]EntityPolicy{
		EntityUser: {
			Operations: ops(OpList, OpRetrieve, OpCreate, OpUpdate, OpDelete),
			Writable: map[Operation]FieldSet{
				OpCreate: userCreateFields,
				OpUpdate: userUpdateFields,
			},
			Visibility: VisibleAll,
			Shapes:     map[Operation]Shape{OpList: ShapeList},
		},
		EntityClient: {
			Operations: ops(OpList, OpRetrieve, OpCreate, OpUpdate, OpReassign, OpDelete),
			Writable: map[Operation]FieldSet{
				OpCreate:   clientProfileFields.union(FieldSalesContactID),
				OpUpdate:   clientProfileFields.union(FieldSalesContactID),
				OpReassign: clientOwnerFields,
			},
			Visibility: VisibleAll,
			Shapes:     map[Operation]Shape{OpList: ShapeList},
			Assign:     AssignAny,
		},
		EntityContract: {
			Operations: ops(OpList, OpRetrieve, OpUpdate, OpReassign, OpDelete),
			Writable: map[Operation]FieldSet{
				OpUpdate:   contractTermFields.union(contractLinkFields.Fields()...),
				OpReassign: contractLinkFields,
			},
			Visibility: VisibleAll,
			Shapes:     map[Operation]Shape{OpList: ShapeList},
			Assign:     AssignAny,
			Relink:     RelinkAny,
		},
		EntityEvent: {
			Operations: ops(OpList, OpRetrieve, OpCreate, OpUpdate, OpReassign, OpDelete),
			Writable: map[Operation]FieldSet{
				OpCreate:   eventDetailFields,
				OpUpdate:   eventDetailFields.union(eventLinkFields.Fields()...),
				OpReassign: eventLinkFields,
			},
			Visibility: VisibleAll,
			Shapes:     map[Operation]Shape{OpList: ShapeList},
			Assign:     AssignAny,
			Relink:     RelinkAny,
		},
		EntityDocument: {
			Operations: ops(OpList, OpRetrieve, OpCreate, OpDelete),
			Writable:   map[Operation]FieldSet{OpCreate: documentFields},
			Visibility: VisibleAll,
		},
	},
}

// table is the role strategy table. Every authorization decision starts here.
var table = map[domain.Role]RolePolicy{
	domain.RoleSales:      salesPolicy,
	domain.RoleSupport:    supportPolicy,
	domain.RoleManagement: managementPolicy,
}

// For returns the rule set of a role
func For(role domain.Role) (RolePolicy, bool) {
	rp, ok := table[role]
	return rp, ok
}

func entityPolicy(role domain.Role, entity Entity) (EntityPolicy, bool) {
	rp, ok := table[role]
	if !ok {
		return EntityPolicy{}, false
	}
	ep, ok := rp.Entities[entity]
	return ep, ok
}

// Can reports whether role may attempt op on entity at all
func Can(role domain.Role, entity Entity, op Operation) bool {
	ep, ok := entityPolicy(role, entity)
	if !ok {
		return false
	}
	return ep.Operations[op]
}

// Authorize returns a Forbidden error when the actor may not attempt op on entity
func Authorize(actor Actor, entity Entity, op Operation) error {
	if Can(actor.Role, entity, op) {
		return nil
	}
	return domain.Forbidden(fmt.Sprintf("%s staff may not %s %ss", roleLabel(actor.Role), op, entity))
}

func roleLabel(role domain.Role) string {
	if role == "" {
		return "unknown"
	}
	return string(role)
}
