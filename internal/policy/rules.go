package policy

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/straye-as/crm-api/internal/domain"
)

// Rule messages shared with callers and tests
const (
	MsgSalesContactForbidden = "you do not have permission to change the sales contact"
	MsgClaimOnly             = "you may only assign this client to yourself"
	MsgNotResponsible        = "you are not responsible for this client"
	MsgForeignClient         = "you cannot move the contract to a client you don't own"
	MsgContractNotSigned     = "the contract must be signed before an event can be created"
	MsgContractHasEvent      = "this contract already has an event"
	MsgEventLinksForbidden   = "you cannot change the contract, client or support contact"
	MsgUnsignedContract      = "this contract is not signed"
	MsgContractClientDiffers = "this contract is not attributed to this client"
	MsgCannotUnsign          = "a signed contract cannot be unsigned"
	MsgNegativeAmount        = "must not be negative"
	MsgRoleImmutable         = "role is immutable"
	MsgDeleteSelf            = "you cannot delete yourself"
)

func notSales(u *domain.User) *domain.RuleError {
	return domain.ValidationFailed(string(FieldSalesContactID), fmt.Sprintf("user %s is not a sales staff", u.ID))
}

func notSupport(u *domain.User) *domain.RuleError {
	return domain.ValidationFailed(string(FieldSupportContactID), fmt.Sprintf("user %s is not a support staff", u.ID))
}

func sameID(a *uuid.UUID, b uuid.UUID) bool {
	return a != nil && *a == b
}

// ClientOwnerOnCreate decides the sales contact of a new client. owner is
// the principal named in the request, nil when none was given.
func ClientOwnerOnCreate(actor Actor, owner *domain.User) (*uuid.UUID, error) {
	ep, _ := entityPolicy(actor.Role, EntityClient)
	switch ep.Assign {
	case AssignSelf:
		id := actor.ID
		return &id, nil
	case AssignAny:
		if owner == nil {
			return nil, nil
		}
		if owner.Role != domain.RoleSales {
			return nil, notSales(owner)
		}
		id := owner.ID
		return &id, nil
	default:
		return nil, domain.Forbidden(MsgSalesContactForbidden)
	}
}

// CheckClientReassign validates handing a client over to target
func CheckClientReassign(actor Actor, target *domain.User) error {
	if target.Role != domain.RoleSales {
		return notSales(target)
	}
	ep, _ := entityPolicy(actor.Role, EntityClient)
	switch ep.Assign {
	case AssignAny:
		return nil
	case AssignSelf:
		if target.ID != actor.ID {
			return domain.Forbidden(MsgClaimOnly)
		}
		return nil
	default:
		return domain.Forbidden(MsgSalesContactForbidden)
	}
}

// CheckContractCreate validates that actor may open a contract on client
func CheckContractCreate(actor Actor, client *domain.Client, amount decimal.Decimal) error {
	ep, _ := entityPolicy(actor.Role, EntityContract)
	if ep.OwnsParent && !sameID(client.SalesContactID, actor.ID) {
		return domain.Forbidden(MsgNotResponsible)
	}
	if amount.IsNegative() {
		return domain.ValidationFailed(string(FieldAmount), MsgNegativeAmount)
	}
	return nil
}

// CheckContractUpdate validates the term changes of a contract
func CheckContractUpdate(contract *domain.Contract, amount *decimal.Decimal, signed *bool) error {
	if amount != nil && amount.IsNegative() {
		return domain.ValidationFailed(string(FieldAmount), MsgNegativeAmount)
	}
	if signed != nil && contract.Signed && !*signed {
		return domain.ValidationFailed(string(FieldSigned), MsgCannotUnsign)
	}
	return nil
}

// CheckContractReassign validates moving a contract to target and/or
// client. Either may be nil when not part of the request.
func CheckContractReassign(actor Actor, target *domain.User, client *domain.Client) error {
	ep, _ := entityPolicy(actor.Role, EntityContract)

	if target != nil && ep.Assign == AssignNone {
		return domain.Forbidden(MsgSalesContactForbidden)
	}
	if client != nil {
		switch ep.Relink {
		case RelinkNone:
			return domain.Forbidden(MsgForeignClient)
		case RelinkOwned:
			if !sameID(client.SalesContactID, actor.ID) {
				return domain.Forbidden(MsgForeignClient)
			}
		}
	}
	if target != nil {
		if target.Role != domain.RoleSales {
			return notSales(target)
		}
		if ep.Assign == AssignSelf && target.ID != actor.ID {
			return domain.Forbidden(MsgSalesContactForbidden)
		}
	}
	return nil
}

// CheckEventCreate runs the event creation preconditions in order; the
// first failure wins. client is the contract's client.
func CheckEventCreate(actor Actor, contract *domain.Contract, client *domain.Client, hasEvent bool) error {
	ep, _ := entityPolicy(actor.Role, EntityEvent)
	if ep.OwnsParent && !sameID(client.SalesContactID, actor.ID) {
		return domain.Forbidden(MsgNotResponsible)
	}
	if !contract.Signed {
		return domain.ValidationFailed(string(FieldContractID), MsgContractNotSigned)
	}
	if hasEvent {
		return domain.ValidationFailed(string(FieldContractID), MsgContractHasEvent)
	}
	return nil
}

// EventChange is the resolved reassignment of an event. Nil members are
// not part of the request.
type EventChange struct {
	SupportContact *domain.User
	Contract       *domain.Contract
	Client         *domain.Client
	// CurrentContract is the contract the event references today
	CurrentContract *domain.Contract
	// ContractTaken is set when Contract already carries another event
	ContractTaken bool
}

func (c EventChange) empty() bool {
	return c.SupportContact == nil && c.Contract == nil && c.Client == nil
}

// CheckEventLinksAllowed rejects roles that may not touch the support
// contact, contract or client of an event once any of them is requested.
// Callers run it before resolving the referenced records.
func CheckEventLinksAllowed(actor Actor, requested bool) error {
	if !requested {
		return nil
	}
	ep, _ := entityPolicy(actor.Role, EntityEvent)
	if ep.Assign == AssignNone || ep.Relink == RelinkNone {
		return domain.Forbidden(MsgEventLinksForbidden)
	}
	return nil
}

// CheckEventReassign validates an event reassignment. Roles that may not
// touch the links are rejected as soon as any of them is present.
func CheckEventReassign(actor Actor, change EventChange) error {
	if change.empty() {
		return nil
	}
	if err := CheckEventLinksAllowed(actor, true); err != nil {
		return err
	}
	ep, _ := entityPolicy(actor.Role, EntityEvent)

	if u := change.SupportContact; u != nil {
		if u.Role != domain.RoleSupport {
			return notSupport(u)
		}
		if ep.Assign == AssignSelf && u.ID != actor.ID {
			return domain.Forbidden(MsgEventLinksForbidden)
		}
	}

	contract := change.Contract
	if contract != nil {
		if !contract.Signed {
			return domain.ValidationFailed(string(FieldContractID), MsgUnsignedContract)
		}
		if ep.Relink == RelinkOwned && !sameID(contract.SalesContactID, actor.ID) {
			return domain.Forbidden(MsgEventLinksForbidden)
		}
	} else {
		contract = change.CurrentContract
	}

	if change.Client != nil && contract != nil && contract.ClientID != change.Client.ID {
		return domain.ValidationFailed(string(FieldClientID), MsgContractClientDiffers)
	}

	if change.Contract != nil && change.ContractTaken {
		return domain.Conflict(MsgContractHasEvent)
	}
	return nil
}

// CheckRoleUnchanged rejects an attempt to give a principal another role
func CheckRoleUnchanged(user *domain.User, requested *domain.Role) error {
	if requested != nil && *requested != user.Role {
		return domain.ValidationFailed(string(FieldRole), MsgRoleImmutable)
	}
	return nil
}

// CheckUserDelete rejects a principal deleting itself
func CheckUserDelete(actor Actor, user *domain.User) error {
	if actor.ID == user.ID {
		return domain.ValidationFailed("id", MsgDeleteSelf)
	}
	return nil
}
