package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Response shapes. Which one a caller receives depends on its role and the
// operation, see policy.ShapeFor.

type UserDTO struct {
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Email     string    `json:"email,omitempty"`
	Role      Role      `json:"role"`
	CreatedAt string    `json:"createdAt,omitempty"`
	UpdatedAt string    `json:"updatedAt,omitempty"`
}

type PrincipalDTO struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
	Role Role      `json:"role"`
}

type ClientListDTO struct {
	ID             uuid.UUID  `json:"id"`
	FirstName      string     `json:"firstName"`
	LastName       string     `json:"lastName"`
	Email          string     `json:"email,omitempty"`
	Phone          string     `json:"phone,omitempty"`
	Mobile         string     `json:"mobile,omitempty"`
	CompanyName    string     `json:"companyName,omitempty"`
	SalesContactID *uuid.UUID `json:"salesContactId"`
}

type ClientDTO struct {
	ID             uuid.UUID         `json:"id"`
	FirstName      string            `json:"firstName"`
	LastName       string            `json:"lastName"`
	Email          string            `json:"email,omitempty"`
	Phone          string            `json:"phone,omitempty"`
	Mobile         string            `json:"mobile,omitempty"`
	CompanyName    string            `json:"companyName,omitempty"`
	SalesContactID *uuid.UUID        `json:"salesContactId"`
	Contracts      []ContractListDTO `json:"contracts"`
	CreatedAt      string            `json:"createdAt"`
	UpdatedAt      string            `json:"updatedAt"`
}

// ClientContactDTO is the client view for staff who coordinate events but
// have no say in ownership.
type ClientContactDTO struct {
	ID          uuid.UUID `json:"id"`
	FirstName   string    `json:"firstName"`
	LastName    string    `json:"lastName"`
	Email       string    `json:"email,omitempty"`
	Phone       string    `json:"phone,omitempty"`
	Mobile      string    `json:"mobile,omitempty"`
	CompanyName string    `json:"companyName,omitempty"`
}

type ContractListDTO struct {
	ID             uuid.UUID       `json:"id"`
	Amount         decimal.Decimal `json:"amount"`
	PaymentDue     *string         `json:"paymentDue"`
	Signed         bool            `json:"signed"`
	SalesContactID *uuid.UUID      `json:"salesContactId"`
	ClientID       uuid.UUID       `json:"clientId"`
}

type ContractDTO struct {
	ID             uuid.UUID       `json:"id"`
	Amount         decimal.Decimal `json:"amount"`
	PaymentDue     *string         `json:"paymentDue"`
	Signed         bool            `json:"signed"`
	SalesContactID *uuid.UUID      `json:"salesContactId"`
	ClientID       uuid.UUID       `json:"clientId"`
	EventID        *uuid.UUID      `json:"eventId"`
	CreatedAt      string          `json:"createdAt"`
	UpdatedAt      string          `json:"updatedAt"`
}

type EventListDTO struct {
	ID               uuid.UUID   `json:"id"`
	Title            string      `json:"title"`
	Attendees        int         `json:"attendees"`
	Status           EventStatus `json:"status"`
	EventDate        *string     `json:"eventDate"`
	SupportContactID *uuid.UUID  `json:"supportContactId"`
	ContractID       uuid.UUID   `json:"contractId"`
	ClientID         uuid.UUID   `json:"clientId"`
}

type EventDTO struct {
	ID               uuid.UUID   `json:"id"`
	Title            string      `json:"title"`
	Notes            string      `json:"notes"`
	Attendees        int         `json:"attendees"`
	Status           EventStatus `json:"status"`
	EventDate        *string     `json:"eventDate"`
	SupportContactID *uuid.UUID  `json:"supportContactId"`
	ContractID       uuid.UUID   `json:"contractId"`
	ClientID         uuid.UUID   `json:"clientId"`
	CreatedAt        string      `json:"createdAt"`
	UpdatedAt        string      `json:"updatedAt"`
}

type ContractDocumentDTO struct {
	ID           uuid.UUID  `json:"id"`
	ContractID   uuid.UUID  `json:"contractId"`
	Filename     string     `json:"filename"`
	ContentType  string     `json:"contentType"`
	Size         int64      `json:"size"`
	UploadedByID *uuid.UUID `json:"uploadedById"`
	CreatedAt    string     `json:"createdAt"`
}

type AuditLogDTO struct {
	ID            uuid.UUID   `json:"id"`
	PrincipalID   *uuid.UUID  `json:"principalId"`
	PrincipalRole Role        `json:"principalRole,omitempty"`
	PrincipalName string      `json:"principalName,omitempty"`
	Action        AuditAction `json:"action"`
	EntityType    string      `json:"entityType"`
	EntityID      *uuid.UUID  `json:"entityId"`
	RequestMethod string      `json:"requestMethod"`
	RequestPath   string      `json:"requestPath"`
	NewValues     string      `json:"newValues,omitempty"`
	IPAddress     string      `json:"ipAddress,omitempty"`
	RequestID     string      `json:"requestId,omitempty"`
	PerformedAt   string      `json:"performedAt"`
}

type PaginatedResponse struct {
	Data       interface{} `json:"data"`
	Total      int64       `json:"total"`
	Page       int         `json:"page"`
	PageSize   int         `json:"pageSize"`
	TotalPages int         `json:"totalPages"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code,omitempty"`
}

// Request payloads. Pointer fields on updates distinguish "absent" from
// "set to zero value". Strip drops every field the keep func rejects,
// keyed by JSON name.

type CreateUserRequest struct {
	Username  string `json:"username" validate:"required,alphanum,max=50"`
	FirstName string `json:"firstName" validate:"required,max=50"`
	LastName  string `json:"lastName" validate:"required,max=50"`
	Email     string `json:"email,omitempty" validate:"omitempty,email,max=255"`
	Role      Role   `json:"role" validate:"required,oneof=sales support management"`
}

type UpdateUserRequest struct {
	FirstName *string `json:"firstName,omitempty" validate:"omitempty,min=1,max=50"`
	LastName  *string `json:"lastName,omitempty" validate:"omitempty,min=1,max=50"`
	Email     *string `json:"email,omitempty" validate:"omitempty,email,max=255"`
	Role      *Role   `json:"role,omitempty"`
}

type CreateClientRequest struct {
	FirstName      string     `json:"firstName" validate:"required,max=50"`
	LastName       string     `json:"lastName" validate:"required,max=50"`
	Email          string     `json:"email,omitempty" validate:"omitempty,email,max=255"`
	Phone          string     `json:"phone,omitempty" validate:"max=20"`
	Mobile         string     `json:"mobile,omitempty" validate:"max=20"`
	CompanyName    string     `json:"companyName,omitempty" validate:"max=250"`
	SalesContactID *uuid.UUID `json:"salesContactId,omitempty"`
}

// Strip clears the fields keep rejects
func (r *CreateClientRequest) Strip(keep func(string) bool) {
	if !keep("email") {
		r.Email = ""
	}
	if !keep("phone") {
		r.Phone = ""
	}
	if !keep("mobile") {
		r.Mobile = ""
	}
	if !keep("companyName") {
		r.CompanyName = ""
	}
	if !keep("salesContactId") {
		r.SalesContactID = nil
	}
}

type UpdateClientRequest struct {
	FirstName      *string    `json:"firstName,omitempty" validate:"omitempty,min=1,max=50"`
	LastName       *string    `json:"lastName,omitempty" validate:"omitempty,min=1,max=50"`
	Email          *string    `json:"email,omitempty" validate:"omitempty,email,max=255"`
	Phone          *string    `json:"phone,omitempty" validate:"omitempty,max=20"`
	Mobile         *string    `json:"mobile,omitempty" validate:"omitempty,max=20"`
	CompanyName    *string    `json:"companyName,omitempty" validate:"omitempty,max=250"`
	SalesContactID *uuid.UUID `json:"salesContactId,omitempty"`
}

// Strip clears the fields keep rejects
func (r *UpdateClientRequest) Strip(keep func(string) bool) {
	if !keep("firstName") {
		r.FirstName = nil
	}
	if !keep("lastName") {
		r.LastName = nil
	}
	if !keep("email") {
		r.Email = nil
	}
	if !keep("phone") {
		r.Phone = nil
	}
	if !keep("mobile") {
		r.Mobile = nil
	}
	if !keep("companyName") {
		r.CompanyName = nil
	}
	if !keep("salesContactId") {
		r.SalesContactID = nil
	}
}

type ReassignClientRequest struct {
	SalesContactID *uuid.UUID `json:"salesContactId" validate:"required"`
}

type CreateContractRequest struct {
	Amount     decimal.Decimal `json:"amount"`
	PaymentDue *time.Time      `json:"paymentDue,omitempty"`
	Signed     bool            `json:"signed"`
}

// Strip clears the fields keep rejects
func (r *CreateContractRequest) Strip(keep func(string) bool) {
	if !keep("amount") {
		r.Amount = decimal.Zero
	}
	if !keep("paymentDue") {
		r.PaymentDue = nil
	}
	if !keep("signed") {
		r.Signed = false
	}
}

type UpdateContractRequest struct {
	Amount         *decimal.Decimal `json:"amount,omitempty"`
	PaymentDue     *time.Time       `json:"paymentDue,omitempty"`
	Signed         *bool            `json:"signed,omitempty"`
	SalesContactID *uuid.UUID       `json:"salesContactId,omitempty"`
	ClientID       *uuid.UUID       `json:"clientId,omitempty"`
}

// Strip clears the fields keep rejects
func (r *UpdateContractRequest) Strip(keep func(string) bool) {
	if !keep("amount") {
		r.Amount = nil
	}
	if !keep("paymentDue") {
		r.PaymentDue = nil
	}
	if !keep("signed") {
		r.Signed = nil
	}
	if !keep("salesContactId") {
		r.SalesContactID = nil
	}
	if !keep("clientId") {
		r.ClientID = nil
	}
}

// Reassignment returns the ownership part of the update
func (r *UpdateContractRequest) Reassignment() ReassignContractRequest {
	return ReassignContractRequest{SalesContactID: r.SalesContactID, ClientID: r.ClientID}
}

type ReassignContractRequest struct {
	SalesContactID *uuid.UUID `json:"salesContactId,omitempty"`
	ClientID       *uuid.UUID `json:"clientId,omitempty"`
}

// IsEmpty reports whether the request changes nothing
func (r ReassignContractRequest) IsEmpty() bool {
	return r.SalesContactID == nil && r.ClientID == nil
}

type CreateEventRequest struct {
	Title            string      `json:"title" validate:"required,max=50"`
	Notes            string      `json:"notes,omitempty" validate:"max=200"`
	Attendees        int         `json:"attendees" validate:"gte=0"`
	Status           EventStatus `json:"status,omitempty" validate:"omitempty,oneof=todo in_progress completed"`
	EventDate        *time.Time  `json:"eventDate,omitempty"`
	SupportContactID *uuid.UUID  `json:"supportContactId,omitempty"`
}

// Strip clears the fields keep rejects
func (r *CreateEventRequest) Strip(keep func(string) bool) {
	if !keep("notes") {
		r.Notes = ""
	}
	if !keep("attendees") {
		r.Attendees = 0
	}
	if !keep("status") {
		r.Status = ""
	}
	if !keep("eventDate") {
		r.EventDate = nil
	}
	if !keep("supportContactId") {
		r.SupportContactID = nil
	}
}

type UpdateEventRequest struct {
	Title            *string      `json:"title,omitempty" validate:"omitempty,min=1,max=50"`
	Notes            *string      `json:"notes,omitempty" validate:"omitempty,max=200"`
	Attendees        *int         `json:"attendees,omitempty" validate:"omitempty,gte=0"`
	Status           *EventStatus `json:"status,omitempty" validate:"omitempty,oneof=todo in_progress completed"`
	EventDate        *time.Time   `json:"eventDate,omitempty"`
	SupportContactID *uuid.UUID   `json:"supportContactId,omitempty"`
	ContractID       *uuid.UUID   `json:"contractId,omitempty"`
	ClientID         *uuid.UUID   `json:"clientId,omitempty"`
}

// Strip clears the fields keep rejects
func (r *UpdateEventRequest) Strip(keep func(string) bool) {
	if !keep("title") {
		r.Title = nil
	}
	if !keep("notes") {
		r.Notes = nil
	}
	if !keep("attendees") {
		r.Attendees = nil
	}
	if !keep("status") {
		r.Status = nil
	}
	if !keep("eventDate") {
		r.EventDate = nil
	}
	if !keep("supportContactId") {
		r.SupportContactID = nil
	}
	if !keep("contractId") {
		r.ContractID = nil
	}
	if !keep("clientId") {
		r.ClientID = nil
	}
}

// Reassignment returns the ownership part of the update
func (r *UpdateEventRequest) Reassignment() ReassignEventRequest {
	return ReassignEventRequest{
		SupportContactID: r.SupportContactID,
		ContractID:       r.ContractID,
		ClientID:         r.ClientID,
	}
}

type ReassignEventRequest struct {
	SupportContactID *uuid.UUID `json:"supportContactId,omitempty"`
	ContractID       *uuid.UUID `json:"contractId,omitempty"`
	ClientID         *uuid.UUID `json:"clientId,omitempty"`
}

// IsEmpty reports whether the request changes nothing
func (r ReassignEventRequest) IsEmpty() bool {
	return r.SupportContactID == nil && r.ContractID == nil && r.ClientID == nil
}

// Filters

type UserFilters struct {
	FirstName string
	LastName  string
	Role      Role
}

type ClientFilters struct {
	FirstName   string
	LastName    string
	CompanyName string
}

type ContractFilters struct {
	AmountGte     *decimal.Decimal
	AmountLte     *decimal.Decimal
	PaymentDueGte *time.Time
	PaymentDueLte *time.Time
	Signed        *bool
}

type EventFilters struct {
	Title        string
	Status       string
	EventDateGte *time.Time
	EventDateLte *time.Time
}

type AuditLogFilters struct {
	EntityType  string
	EntityID    *uuid.UUID
	PrincipalID *uuid.UUID
	Action      AuditAction
}
