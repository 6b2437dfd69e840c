package mapper

import (
	"time"

	"github.com/straye-as/crm-api/internal/domain"
	"github.com/straye-as/crm-api/internal/policy"
)

const timeLayout = "2006-01-02T15:04:05Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatTime(*t)
	return &s
}

// ToUserDTO converts User to UserDTO
func ToUserDTO(user *domain.User) domain.UserDTO {
	return domain.UserDTO{
		ID:        user.ID,
		Username:  user.Username,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Email:     user.Email,
		Role:      user.Role,
		CreatedAt: formatTime(user.CreatedAt),
		UpdatedAt: formatTime(user.UpdatedAt),
	}
}

// ToClient renders a client in shape. contracts are only embedded in the
// detail shape and must already be narrowed to what the caller may see.
func ToClient(client *domain.Client, contracts []domain.Contract, shape policy.Shape) interface{} {
	switch shape {
	case policy.ShapeContact:
		return ToClientContactDTO(client)
	case policy.ShapeList:
		return ToClientListDTO(client)
	default:
		return ToClientDTO(client, contracts)
	}
}

// ToClients renders a page of clients in shape
func ToClients(clients []domain.Client, shape policy.Shape) []interface{} {
	out := make([]interface{}, len(clients))
	for i := range clients {
		if shape == policy.ShapeContact {
			out[i] = ToClientContactDTO(&clients[i])
		} else {
			out[i] = ToClientListDTO(&clients[i])
		}
	}
	return out
}

func ToClientListDTO(client *domain.Client) domain.ClientListDTO {
	return domain.ClientListDTO{
		ID:             client.ID,
		FirstName:      client.FirstName,
		LastName:       client.LastName,
		Email:          client.Email,
		Phone:          client.Phone,
		Mobile:         client.Mobile,
		CompanyName:    client.CompanyName,
		SalesContactID: client.SalesContactID,
	}
}

func ToClientDTO(client *domain.Client, contracts []domain.Contract) domain.ClientDTO {
	dto := domain.ClientDTO{
		ID:             client.ID,
		FirstName:      client.FirstName,
		LastName:       client.LastName,
		Email:          client.Email,
		Phone:          client.Phone,
		Mobile:         client.Mobile,
		CompanyName:    client.CompanyName,
		SalesContactID: client.SalesContactID,
		Contracts:      make([]domain.ContractListDTO, 0, len(contracts)),
		CreatedAt:      formatTime(client.CreatedAt),
		UpdatedAt:      formatTime(client.UpdatedAt),
	}
	for i := range contracts {
		dto.Contracts = append(dto.Contracts, ToContractListDTO(&contracts[i]))
	}
	return dto
}

// ToClientContactDTO drops ownership and bookkeeping fields
func ToClientContactDTO(client *domain.Client) domain.ClientContactDTO {
	return domain.ClientContactDTO{
		ID:          client.ID,
		FirstName:   client.FirstName,
		LastName:    client.LastName,
		Email:       client.Email,
		Phone:       client.Phone,
		Mobile:      client.Mobile,
		CompanyName: client.CompanyName,
	}
}

// ToContract renders a contract in shape. The contact shape has no meaning
// for contracts and falls back to the list shape.
func ToContract(contract *domain.Contract, shape policy.Shape) interface{} {
	if shape == policy.ShapeDetail {
		return ToContractDTO(contract)
	}
	return ToContractListDTO(contract)
}

func ToContractListDTO(contract *domain.Contract) domain.ContractListDTO {
	return domain.ContractListDTO{
		ID:             contract.ID,
		Amount:         contract.Amount,
		PaymentDue:     formatTimePtr(contract.PaymentDue),
		Signed:         contract.Signed,
		SalesContactID: contract.SalesContactID,
		ClientID:       contract.ClientID,
	}
}

// ToContractDTO expects contract.Event to be loaded when one exists
func ToContractDTO(contract *domain.Contract) domain.ContractDTO {
	dto := domain.ContractDTO{
		ID:             contract.ID,
		Amount:         contract.Amount,
		PaymentDue:     formatTimePtr(contract.PaymentDue),
		Signed:         contract.Signed,
		SalesContactID: contract.SalesContactID,
		ClientID:       contract.ClientID,
		CreatedAt:      formatTime(contract.CreatedAt),
		UpdatedAt:      formatTime(contract.UpdatedAt),
	}
	if contract.Event != nil {
		id := contract.Event.ID
		dto.EventID = &id
	}
	return dto
}

// ToEvent renders an event in shape, falling back to the list shape
func ToEvent(event *domain.Event, shape policy.Shape) interface{} {
	if shape == policy.ShapeDetail {
		return ToEventDTO(event)
	}
	return ToEventListDTO(event)
}

func ToEventListDTO(event *domain.Event) domain.EventListDTO {
	return domain.EventListDTO{
		ID:               event.ID,
		Title:            event.Title,
		Attendees:        event.Attendees,
		Status:           event.Status,
		EventDate:        formatTimePtr(event.EventDate),
		SupportContactID: event.SupportContactID,
		ContractID:       event.ContractID,
		ClientID:         event.ClientID,
	}
}

func ToEventDTO(event *domain.Event) domain.EventDTO {
	return domain.EventDTO{
		ID:               event.ID,
		Title:            event.Title,
		Notes:            event.Notes,
		Attendees:        event.Attendees,
		Status:           event.Status,
		EventDate:        formatTimePtr(event.EventDate),
		SupportContactID: event.SupportContactID,
		ContractID:       event.ContractID,
		ClientID:         event.ClientID,
		CreatedAt:        formatTime(event.CreatedAt),
		UpdatedAt:        formatTime(event.UpdatedAt),
	}
}

func ToDocumentDTO(doc *domain.ContractDocument) domain.ContractDocumentDTO {
	return domain.ContractDocumentDTO{
		ID:           doc.ID,
		ContractID:   doc.ContractID,
		Filename:     doc.Filename,
		ContentType:  doc.ContentType,
		Size:         doc.Size,
		UploadedByID: doc.UploadedByID,
		CreatedAt:    formatTime(doc.CreatedAt),
	}
}

func ToAuditLogDTO(log *domain.AuditLog) domain.AuditLogDTO {
	return domain.AuditLogDTO{
		ID:            log.ID,
		PrincipalID:   log.PrincipalID,
		PrincipalRole: log.PrincipalRole,
		PrincipalName: log.PrincipalName,
		Action:        log.Action,
		EntityType:    log.EntityType,
		EntityID:      log.EntityID,
		RequestMethod: log.RequestMethod,
		RequestPath:   log.RequestPath,
		NewValues:     log.NewValues,
		IPAddress:     log.IPAddress,
		RequestID:     log.RequestID,
		PerformedAt:   formatTime(log.PerformedAt),
	}
}
