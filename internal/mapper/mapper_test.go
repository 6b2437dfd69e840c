package mapper

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/straye-as/crm-api/internal/domain"
	"github.com/straye-as/crm-api/internal/policy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleClient() *domain.Client {
	owner := uuid.New()
	return &domain.Client{
		BaseModel:      domain.BaseModel{ID: uuid.New(), CreatedAt: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)},
		FirstName:      "Kevin",
		LastName:       "Casey",
		Email:          "kevin@startup.io",
		CompanyName:    "Cool Startup LLC",
		SalesContactID: &owner,
	}
}

func TestToClient_ShapeSelection(t *testing.T) {
	client := sampleClient()
	contract := domain.Contract{BaseModel: domain.BaseModel{ID: uuid.New()}, Amount: decimal.RequireFromString("999.99"), ClientID: client.ID}

	detail, ok := ToClient(client, []domain.Contract{contract}, policy.ShapeDetail).(domain.ClientDTO)
	require.True(t, ok)
	assert.Equal(t, client.SalesContactID, detail.SalesContactID)
	require.Len(t, detail.Contracts, 1)
	assert.Equal(t, "999.99", detail.Contracts[0].Amount.StringFixed(2))
	assert.Equal(t, "2024-03-01T09:00:00Z", detail.CreatedAt)

	_, ok = ToClient(client, nil, policy.ShapeList).(domain.ClientListDTO)
	assert.True(t, ok)

	contact, ok := ToClient(client, nil, policy.ShapeContact).(domain.ClientContactDTO)
	require.True(t, ok)
	assert.Equal(t, "kevin@startup.io", contact.Email)
}

func TestToClientDTO_EmptyContractsIsNotNil(t *testing.T) {
	dto := ToClientDTO(sampleClient(), nil)
	assert.NotNil(t, dto.Contracts)
	assert.Empty(t, dto.Contracts)
}

func TestToClients_ContactShapeForSupport(t *testing.T) {
	clients := []domain.Client{*sampleClient(), *sampleClient()}

	out := ToClients(clients, policy.ShapeContact)
	require.Len(t, out, 2)
	assert.IsType(t, domain.ClientContactDTO{}, out[0])

	out = ToClients(clients, policy.ShapeList)
	assert.IsType(t, domain.ClientListDTO{}, out[1])
}

func TestToContractDTO_EventAndDates(t *testing.T) {
	due := time.Date(2024, 12, 31, 0, 0, 0, 0, time.FixedZone("CET", 3600))
	contract := &domain.Contract{BaseModel: domain.BaseModel{ID: uuid.New()}, PaymentDue: &due}

	dto := ToContractDTO(contract)
	assert.Nil(t, dto.EventID)
	require.NotNil(t, dto.PaymentDue)
	assert.Equal(t, "2024-12-30T23:00:00Z", *dto.PaymentDue)

	contract.Event = &domain.Event{BaseModel: domain.BaseModel{ID: uuid.New()}}
	dto = ToContractDTO(contract)
	require.NotNil(t, dto.EventID)
	assert.Equal(t, contract.Event.ID, *dto.EventID)

	assert.IsType(t, domain.ContractListDTO{}, ToContract(contract, policy.ShapeList))
	assert.IsType(t, domain.ContractListDTO{}, ToContract(contract, policy.ShapeContact))
}

func TestToEvent_ListOmitsNotes(t *testing.T) {
	event := &domain.Event{BaseModel: domain.BaseModel{ID: uuid.New()}, Title: "Launch", Notes: "bring badges", Status: domain.EventStatusTodo}

	detail := ToEvent(event, policy.ShapeDetail).(domain.EventDTO)
	assert.Equal(t, "bring badges", detail.Notes)
	assert.Nil(t, detail.EventDate)

	list := ToEvent(event, policy.ShapeList).(domain.EventListDTO)
	assert.Equal(t, "Launch", list.Title)
}
