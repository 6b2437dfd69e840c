// Package testutil provides helpers shared by package tests.
package testutil

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/straye-as/crm-api/internal/database"
	"github.com/straye-as/crm-api/internal/domain"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SetupTestDB opens a fresh in-memory SQLite database with the full schema.
// A single connection keeps the in-memory database alive and shared, so code
// under test must route queries inside transactions through repository.GetDB.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), database.Options())
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.Exec("PRAGMA foreign_keys = ON").Error)
	require.NoError(t, database.AutoMigrate(db))

	t.Cleanup(func() {
		_ = sqlDB.Close()
	})
	return db
}

// CreateUser inserts a principal with the given role
func CreateUser(t *testing.T, db *gorm.DB, username string, role domain.Role) *domain.User {
	t.Helper()
	user := &domain.User{
		Username:  username,
		FirstName: username,
		LastName:  "Tester",
		Email:     username + "@example.com",
		Role:      role,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

// CreateClient inserts a client owned by owner (nil for none)
func CreateClient(t *testing.T, db *gorm.DB, company string, owner *domain.User) *domain.Client {
	t.Helper()
	client := &domain.Client{
		FirstName:   "Kate",
		LastName:    "Client",
		Email:       "kate@" + company + ".example",
		Phone:       "555-0100",
		CompanyName: company,
	}
	if owner != nil {
		id := owner.ID
		client.SalesContactID = &id
	}
	require.NoError(t, db.Omit(clause.Associations).Create(client).Error)
	return client
}

// CreateContract inserts a contract of client managed by owner
func CreateContract(t *testing.T, db *gorm.DB, client *domain.Client, owner *domain.User, signed bool) *domain.Contract {
	t.Helper()
	contract := &domain.Contract{
		Amount:   decimal.NewFromInt(1500),
		Signed:   signed,
		ClientID: client.ID,
	}
	if owner != nil {
		id := owner.ID
		contract.SalesContactID = &id
	}
	require.NoError(t, db.Omit(clause.Associations).Create(contract).Error)
	return contract
}

// CreateEvent inserts the event of contract, supported by support (nil for none)
func CreateEvent(t *testing.T, db *gorm.DB, contract *domain.Contract, support *domain.User) *domain.Event {
	t.Helper()
	event := &domain.Event{
		Title:      "Launch party",
		Attendees:  40,
		Status:     domain.EventStatusTodo,
		ClientID:   contract.ClientID,
		ContractID: contract.ID,
	}
	if support != nil {
		id := support.ID
		event.SupportContactID = &id
	}
	require.NoError(t, db.Omit(clause.Associations).Create(event).Error)
	return event
}

// IDPtr returns a pointer to a copy of id
func IDPtr(id uuid.UUID) *uuid.UUID {
	return &id
}
