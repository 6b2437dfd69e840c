package service_test

import (
	"context"
	"testing"

	"github.com/straye-as/crm-api/internal/domain"
	"github.com/straye-as/crm-api/internal/notify"
	"github.com/straye-as/crm-api/internal/policy"
	"github.com/straye-as/crm-api/internal/repository"
	"github.com/straye-as/crm-api/internal/service"
	"github.com/straye-as/crm-api/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientService_List(t *testing.T) {
	e := newEnv(t)

	t.Run("sales sees owned clients", func(t *testing.T) {
		page, err := e.clients.List(as(e.alice), domain.ClientFilters{}, repository.DefaultSortConfig(), 1, 20)
		require.NoError(t, err)
		assert.Equal(t, int64(1), page.Total)
		rows := page.Data.([]interface{})
		require.Len(t, rows, 1)
		assert.Equal(t, e.acme.ID, rows[0].(domain.ClientListDTO).ID)
	})

	t.Run("support gets contact rows of supported clients", func(t *testing.T) {
		page, err := e.clients.List(as(e.sam), domain.ClientFilters{}, repository.DefaultSortConfig(), 1, 20)
		require.NoError(t, err)
		rows := page.Data.([]interface{})
		require.Len(t, rows, 1)
		contact, ok := rows[0].(domain.ClientContactDTO)
		require.True(t, ok)
		assert.Equal(t, e.acme.ID, contact.ID)
	})

	t.Run("management sees all", func(t *testing.T) {
		page, err := e.clients.List(as(e.boss), domain.ClientFilters{}, repository.DefaultSortConfig(), 1, 20)
		require.NoError(t, err)
		assert.Equal(t, int64(3), page.Total)
		assert.Equal(t, 1, page.TotalPages)
	})

	t.Run("no principal", func(t *testing.T) {
		_, err := e.clients.List(context.Background(), domain.ClientFilters{}, repository.DefaultSortConfig(), 1, 20)
		assert.ErrorIs(t, err, service.ErrUnauthorized)
	})
}

func TestClientService_GetByID_ShapeDependsOnRole(t *testing.T) {
	e := newEnv(t)

	out, err := e.clients.GetByID(as(e.alice), e.acme.ID)
	require.NoError(t, err)
	detail, ok := out.(domain.ClientDTO)
	require.True(t, ok)
	require.Len(t, detail.Contracts, 1)
	assert.Equal(t, e.acmeDeal.ID, detail.Contracts[0].ID)

	out, err = e.clients.GetByID(as(e.sam), e.acme.ID)
	require.NoError(t, err)
	_, ok = out.(domain.ClientContactDTO)
	assert.True(t, ok)

	_, err = e.clients.GetByID(as(e.sue), e.acme.ID)
	assertRule(t, err, domain.KindNotFound, "")

	_, err = e.clients.GetByID(as(e.bob), e.acme.ID)
	assertRule(t, err, domain.KindNotFound, "")
}

func TestClientService_Create(t *testing.T) {
	t.Run("sales becomes owner whatever is supplied", func(t *testing.T) {
		e := newEnv(t)
		out, err := e.clients.Create(as(e.alice), &domain.CreateClientRequest{
			FirstName:      "Kevin",
			LastName:       "Casey",
			Email:          "kevin@startup.example",
			CompanyName:    "Cool Startup LLC",
			SalesContactID: testutil.IDPtr(e.bob.ID),
		})
		require.NoError(t, err)
		client := out.(domain.ClientDTO)
		require.NotNil(t, client.SalesContactID)
		assert.Equal(t, e.alice.ID, *client.SalesContactID)
		assert.Empty(t, client.Contracts)
		assert.Equal(t, []notify.Type{notify.ClientCreated}, e.pub.types())
	})

	t.Run("management may name a sales owner", func(t *testing.T) {
		e := newEnv(t)
		out, err := e.clients.Create(as(e.boss), &domain.CreateClientRequest{
			FirstName:      "Kevin",
			LastName:       "Casey",
			SalesContactID: testutil.IDPtr(e.bob.ID),
		})
		require.NoError(t, err)
		assert.Equal(t, e.bob.ID, *out.(domain.ClientDTO).SalesContactID)
	})

	t.Run("management may leave it empty", func(t *testing.T) {
		e := newEnv(t)
		out, err := e.clients.Create(as(e.boss), &domain.CreateClientRequest{FirstName: "Kevin", LastName: "Casey"})
		require.NoError(t, err)
		assert.Nil(t, out.(domain.ClientDTO).SalesContactID)
	})

	t.Run("management naming a non sales owner", func(t *testing.T) {
		e := newEnv(t)
		_, err := e.clients.Create(as(e.boss), &domain.CreateClientRequest{
			FirstName:      "Kevin",
			LastName:       "Casey",
			SalesContactID: testutil.IDPtr(e.sam.ID),
		})
		assertRule(t, err, domain.KindValidation, "")
		assert.Empty(t, e.pub.types())
	})

	t.Run("management naming an unknown owner", func(t *testing.T) {
		e := newEnv(t)
		_, err := e.clients.Create(as(e.boss), &domain.CreateClientRequest{
			FirstName:      "Kevin",
			LastName:       "Casey",
			SalesContactID: testutil.IDPtr(e.acme.ID),
		})
		assertRule(t, err, domain.KindNotFound, "")
	})

	t.Run("support may not create", func(t *testing.T) {
		e := newEnv(t)
		_, err := e.clients.Create(as(e.sam), &domain.CreateClientRequest{FirstName: "Kevin", LastName: "Casey"})
		assertRule(t, err, domain.KindForbidden, "")
	})
}

func TestClientService_Update_OwnerChangeFollowsReassignRules(t *testing.T) {
	e := newEnv(t)
	phone := "555-0199"

	_, err := e.clients.Update(as(e.alice), e.acme.ID, &domain.UpdateClientRequest{
		Phone:          &phone,
		SalesContactID: testutil.IDPtr(e.bob.ID),
	})
	assertRule(t, err, domain.KindForbidden, policy.MsgClaimOnly)

	_, err = e.clients.Update(as(e.sam), e.acme.ID, &domain.UpdateClientRequest{
		Phone:          &phone,
		SalesContactID: testutil.IDPtr(e.bob.ID),
	})
	assertRule(t, err, domain.KindForbidden, policy.MsgSalesContactForbidden)

	client := e.reloadClient(t, e.acme.ID)
	assert.NotEqual(t, phone, client.Phone)
	assert.Equal(t, e.alice.ID, *client.SalesContactID)
	assert.Empty(t, e.pub.types())

	// restating the current owner is not a change
	_, err = e.clients.Update(as(e.alice), e.acme.ID, &domain.UpdateClientRequest{
		Phone:          &phone,
		SalesContactID: testutil.IDPtr(e.alice.ID),
	})
	require.NoError(t, err)
	assert.Equal(t, phone, e.reloadClient(t, e.acme.ID).Phone)
}

func TestClientService_Update_SupportKeepsToContactFields(t *testing.T) {
	e := newEnv(t)
	first := "Renamed"
	mobile := "555-0200"
	out, err := e.clients.Update(as(e.sam), e.acme.ID, &domain.UpdateClientRequest{
		FirstName: &first,
		Mobile:    &mobile,
	})
	require.NoError(t, err)
	_, ok := out.(domain.ClientContactDTO)
	assert.True(t, ok)
	client := e.reloadClient(t, e.acme.ID)
	assert.Equal(t, "Kate", client.FirstName)
	assert.Equal(t, mobile, client.Mobile)
	assert.Empty(t, e.pub.types())
}

func TestClientService_Update_ManagementReassigns(t *testing.T) {
	e := newEnv(t)

	_, err := e.clients.Update(as(e.boss), e.acme.ID, &domain.UpdateClientRequest{SalesContactID: testutil.IDPtr(e.bob.ID)})
	require.NoError(t, err)
	assert.Equal(t, e.bob.ID, *e.reloadClient(t, e.acme.ID).SalesContactID)
	assert.Equal(t, []notify.Type{notify.ClientReassigned}, e.pub.types())

	_, err = e.clients.Update(as(e.boss), e.acme.ID, &domain.UpdateClientRequest{SalesContactID: testutil.IDPtr(e.sam.ID)})
	assertRule(t, err, domain.KindValidation, "")
	assert.Equal(t, e.bob.ID, *e.reloadClient(t, e.acme.ID).SalesContactID)
}

func TestClientService_Reassign_NonSalesTargetFailsForEveryRole(t *testing.T) {
	e := newEnv(t)

	for _, u := range []*domain.User{e.alice, e.sam, e.boss} {
		_, err := e.clients.Reassign(as(u), e.acme.ID, &domain.ReassignClientRequest{SalesContactID: testutil.IDPtr(e.sue.ID)})
		assertRule(t, err, domain.KindValidation, "")
	}
	assert.Equal(t, e.alice.ID, *e.reloadClient(t, e.acme.ID).SalesContactID)
}

func TestClientService_Reassign(t *testing.T) {
	t.Run("support is forbidden", func(t *testing.T) {
		e := newEnv(t)
		_, err := e.clients.Reassign(as(e.sam), e.acme.ID, &domain.ReassignClientRequest{SalesContactID: testutil.IDPtr(e.bob.ID)})
		assertRule(t, err, domain.KindForbidden, policy.MsgSalesContactForbidden)
	})

	t.Run("sales may only claim", func(t *testing.T) {
		e := newEnv(t)
		_, err := e.clients.Reassign(as(e.alice), e.acme.ID, &domain.ReassignClientRequest{SalesContactID: testutil.IDPtr(e.bob.ID)})
		assertRule(t, err, domain.KindForbidden, policy.MsgClaimOnly)

		out, err := e.clients.Reassign(as(e.alice), e.acme.ID, &domain.ReassignClientRequest{SalesContactID: testutil.IDPtr(e.alice.ID)})
		require.NoError(t, err)
		assert.Equal(t, e.alice.ID, *out.(domain.ClientDTO).SalesContactID)
	})

	t.Run("unknown target", func(t *testing.T) {
		e := newEnv(t)
		_, err := e.clients.Reassign(as(e.boss), e.acme.ID, &domain.ReassignClientRequest{SalesContactID: testutil.IDPtr(e.globex.ID)})
		assertRule(t, err, domain.KindNotFound, "")
	})

	t.Run("management hands over", func(t *testing.T) {
		e := newEnv(t)
		out, err := e.clients.Reassign(as(e.boss), e.initech.ID, &domain.ReassignClientRequest{SalesContactID: testutil.IDPtr(e.bob.ID)})
		require.NoError(t, err)
		assert.Equal(t, e.bob.ID, *out.(domain.ClientDTO).SalesContactID)
		assert.Equal(t, []notify.Type{notify.ClientReassigned}, e.pub.types())
	})
}

func TestClientService_Delete(t *testing.T) {
	e := newEnv(t)

	err := e.clients.Delete(as(e.alice), e.acme.ID)
	assertRule(t, err, domain.KindForbidden, "")

	require.NoError(t, e.clients.Delete(as(e.boss), e.acme.ID))
	_, err = e.clients.GetByID(as(e.boss), e.acme.ID)
	assertRule(t, err, domain.KindNotFound, "")

	err = e.clients.Delete(as(e.boss), e.acme.ID)
	assertRule(t, err, domain.KindNotFound, "")
}
