package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Base model with common fields
type BaseModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// BeforeCreate assigns an id when the caller did not set one
func (m *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// Role is the staff role carried by every principal
type Role string

const (
	RoleSales      Role = "sales"
	RoleSupport    Role = "support"
	RoleManagement Role = "management"
)

// IsValid checks if the role is one of the known staff roles
func (r Role) IsValid() bool {
	switch r {
	case RoleSales, RoleSupport, RoleManagement:
		return true
	}
	return false
}

// EventStatus is the progress of an event, independent of its assignment
type EventStatus string

const (
	EventStatusTodo       EventStatus = "todo"
	EventStatusInProgress EventStatus = "in_progress"
	EventStatusCompleted  EventStatus = "completed"
)

// IsValid checks if the status is a known event status
func (s EventStatus) IsValid() bool {
	switch s {
	case EventStatusTodo, EventStatusInProgress, EventStatusCompleted:
		return true
	}
	return false
}

// User is a staff principal. Role never changes after creation.
type User struct {
	BaseModel
	Username  string `gorm:"type:varchar(50);not null;uniqueIndex"`
	FirstName string `gorm:"type:varchar(50);not null;column:first_name"`
	LastName  string `gorm:"type:varchar(50);not null;column:last_name"`
	Email     string `gorm:"type:varchar(255)"`
	Role      Role   `gorm:"type:varchar(20);not null;index"`
}

// FullName returns the display name of the user
func (u *User) FullName() string {
	if u.FirstName == "" {
		return u.LastName
	}
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

// Client is a customer company contact owned by at most one sales principal
type Client struct {
	BaseModel
	FirstName      string     `gorm:"type:varchar(50);not null;column:first_name"`
	LastName       string     `gorm:"type:varchar(50);not null;column:last_name"`
	Email          string     `gorm:"type:varchar(255)"`
	Phone          string     `gorm:"type:varchar(20)"`
	Mobile         string     `gorm:"type:varchar(20)"`
	CompanyName    string     `gorm:"type:varchar(250);column:company_name"`
	SalesContactID *uuid.UUID `gorm:"type:uuid;index;column:sales_contact_id"`
	SalesContact   *User      `gorm:"foreignKey:SalesContactID;constraint:OnDelete:SET NULL"`
	Contracts      []Contract `gorm:"foreignKey:ClientID;constraint:OnDelete:CASCADE"`
}

// Contract is an agreement with a client, signed out of band
type Contract struct {
	BaseModel
	Amount         decimal.Decimal    `gorm:"type:numeric(12,2);not null;default:0"`
	PaymentDue     *time.Time         `gorm:"column:payment_due"`
	Signed         bool               `gorm:"not null;default:false"`
	SalesContactID *uuid.UUID         `gorm:"type:uuid;index;column:sales_contact_id"`
	SalesContact   *User              `gorm:"foreignKey:SalesContactID;constraint:OnDelete:SET NULL"`
	ClientID       uuid.UUID          `gorm:"type:uuid;not null;index;column:client_id"`
	Client         *Client            `gorm:"foreignKey:ClientID"`
	Event          *Event             `gorm:"foreignKey:ContractID;constraint:OnDelete:CASCADE"`
	Documents      []ContractDocument `gorm:"foreignKey:ContractID;constraint:OnDelete:CASCADE"`
}

// Event is the single event organised for a signed contract
type Event struct {
	BaseModel
	Title            string      `gorm:"type:varchar(50);not null"`
	Notes            string      `gorm:"type:varchar(200)"`
	Attendees        int         `gorm:"not null;default:0"`
	Status           EventStatus `gorm:"type:varchar(20);not null;default:'todo'"`
	EventDate        *time.Time  `gorm:"column:event_date"`
	SupportContactID *uuid.UUID  `gorm:"type:uuid;index;column:support_contact_id"`
	SupportContact   *User       `gorm:"foreignKey:SupportContactID;constraint:OnDelete:SET NULL"`
	ClientID         uuid.UUID   `gorm:"type:uuid;not null;index;column:client_id"`
	Client           *Client     `gorm:"foreignKey:ClientID;constraint:OnDelete:CASCADE"`
	ContractID       uuid.UUID   `gorm:"type:uuid;not null;uniqueIndex;column:contract_id"`
}

// ContractDocument is a file attached to a contract, usually the signed copy
type ContractDocument struct {
	BaseModel
	ContractID   uuid.UUID  `gorm:"type:uuid;not null;index;column:contract_id"`
	Filename     string     `gorm:"type:varchar(255);not null"`
	ContentType  string     `gorm:"type:varchar(100);not null;column:content_type"`
	Size         int64      `gorm:"not null"`
	StoragePath  string     `gorm:"type:varchar(500);not null;column:storage_path"`
	UploadedByID *uuid.UUID `gorm:"type:uuid;column:uploaded_by_id"`
	UploadedBy   *User      `gorm:"foreignKey:UploadedByID;constraint:OnDelete:SET NULL"`
}

// AuditAction represents the type of audit action
type AuditAction string

const (
	AuditActionCreate   AuditAction = "create"
	AuditActionUpdate   AuditAction = "update"
	AuditActionReassign AuditAction = "reassign"
	AuditActionDelete   AuditAction = "delete"
)

// AuditLog represents an audit trail entry
type AuditLog struct {
	ID            uuid.UUID   `gorm:"type:uuid;primaryKey"`
	PrincipalID   *uuid.UUID  `gorm:"type:uuid;column:principal_id;index"`
	PrincipalRole Role        `gorm:"type:varchar(20);column:principal_role"`
	PrincipalName string      `gorm:"type:varchar(200);column:principal_name"`
	Action        AuditAction `gorm:"type:varchar(20);not null"`
	EntityType    string      `gorm:"type:varchar(50);not null;column:entity_type"`
	EntityID      *uuid.UUID  `gorm:"type:uuid;column:entity_id"`
	RequestMethod string      `gorm:"type:varchar(10);column:request_method"`
	RequestPath   string      `gorm:"type:varchar(500);column:request_path"`
	NewValues     string      `gorm:"type:text;column:new_values"`
	IPAddress     string      `gorm:"type:varchar(64);column:ip_address"`
	UserAgent     string      `gorm:"type:text;column:user_agent"`
	RequestID     string      `gorm:"type:varchar(100);column:request_id"`
	PerformedAt   time.Time   `gorm:"not null;index;column:performed_at"`
}

// BeforeCreate assigns an id and timestamp to new audit entries
func (a *AuditLog) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.PerformedAt.IsZero() {
		a.PerformedAt = time.Now().UTC()
	}
	return nil
}
