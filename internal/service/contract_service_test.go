package service_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/straye-as/crm-api/internal/domain"
	"github.com/straye-as/crm-api/internal/notify"
	"github.com/straye-as/crm-api/internal/policy"
	"github.com/straye-as/crm-api/internal/repository"
	"github.com/straye-as/crm-api/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContractService_ParentMustBeVisible(t *testing.T) {
	e := newEnv(t)

	_, err := e.contracts.List(as(e.alice), e.globex.ID, domain.ContractFilters{}, repository.DefaultSortConfig(), 1, 20)
	assertRule(t, err, domain.KindNotFound, "")

	_, err = e.contracts.List(as(e.alice), uuid.New(), domain.ContractFilters{}, repository.DefaultSortConfig(), 1, 20)
	assertRule(t, err, domain.KindNotFound, "")

	_, err = e.contracts.GetByID(as(e.alice), e.globex.ID, e.globexDeal.ID)
	assertRule(t, err, domain.KindNotFound, "")

	// contract exists but under another client
	_, err = e.contracts.GetByID(as(e.boss), e.globex.ID, e.acmeDeal.ID)
	assertRule(t, err, domain.KindNotFound, "")
}

func TestContractService_SupportSeesNoContracts(t *testing.T) {
	e := newEnv(t)

	page, err := e.contracts.List(as(e.sam), e.acme.ID, domain.ContractFilters{}, repository.DefaultSortConfig(), 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(0), page.Total)

	_, err = e.contracts.GetByID(as(e.sam), e.acme.ID, e.acmeDeal.ID)
	assertRule(t, err, domain.KindNotFound, "")
}

func TestContractService_GetByID_CarriesEvent(t *testing.T) {
	e := newEnv(t)

	out, err := e.contracts.GetByID(as(e.alice), e.acme.ID, e.acmeDeal.ID)
	require.NoError(t, err)
	dto := out.(domain.ContractDTO)
	require.NotNil(t, dto.EventID)
	assert.Equal(t, e.acmeEvent.ID, *dto.EventID)

	page, err := e.contracts.List(as(e.alice), e.acme.ID, domain.ContractFilters{}, repository.DefaultSortConfig(), 1, 20)
	require.NoError(t, err)
	rows := page.Data.([]interface{})
	require.Len(t, rows, 1)
	_, ok := rows[0].(domain.ContractListDTO)
	assert.True(t, ok)
}

func TestContractService_Create(t *testing.T) {
	t.Run("owner opens a contract", func(t *testing.T) {
		e := newEnv(t)
		out, err := e.contracts.Create(as(e.alice), e.acme.ID, &domain.CreateContractRequest{Amount: decimal.NewFromInt(5000)})
		require.NoError(t, err)
		dto := out.(domain.ContractDTO)
		assert.False(t, dto.Signed)
		assert.Equal(t, e.acme.ID, dto.ClientID)
		assert.Equal(t, e.alice.ID, *dto.SalesContactID)
		assert.Nil(t, dto.EventID)
		assert.Equal(t, []notify.Type{notify.ContractCreated}, e.pub.types())
	})

	t.Run("signed on creation also announces the signature", func(t *testing.T) {
		e := newEnv(t)
		_, err := e.contracts.Create(as(e.alice), e.acme.ID, &domain.CreateContractRequest{Amount: decimal.NewFromInt(10), Signed: true})
		require.NoError(t, err)
		assert.Equal(t, []notify.Type{notify.ContractCreated, notify.ContractSigned}, e.pub.types())
	})

	t.Run("other sales staff is not responsible", func(t *testing.T) {
		e := newEnv(t)
		_, err := e.contracts.Create(as(e.bob), e.acme.ID, &domain.CreateContractRequest{Amount: decimal.NewFromInt(10)})
		assertRule(t, err, domain.KindForbidden, policy.MsgNotResponsible)
	})

	t.Run("missing client comes first", func(t *testing.T) {
		e := newEnv(t)
		_, err := e.contracts.Create(as(e.bob), uuid.New(), &domain.CreateContractRequest{Amount: decimal.NewFromInt(-1)})
		assertRule(t, err, domain.KindNotFound, "")
	})

	t.Run("negative amount", func(t *testing.T) {
		e := newEnv(t)
		_, err := e.contracts.Create(as(e.alice), e.acme.ID, &domain.CreateContractRequest{Amount: decimal.NewFromInt(-1)})
		assertRule(t, err, domain.KindValidation, policy.MsgNegativeAmount)
	})

	t.Run("support and management do not open contracts", func(t *testing.T) {
		e := newEnv(t)
		for _, u := range []*domain.User{e.sam, e.boss} {
			_, err := e.contracts.Create(as(u), e.acme.ID, &domain.CreateContractRequest{Amount: decimal.NewFromInt(10)})
			assertRule(t, err, domain.KindForbidden, "")
		}
	})
}

func TestContractService_Update(t *testing.T) {
	t.Run("signing announces once", func(t *testing.T) {
		e := newEnv(t)
		draft := testutil.CreateContract(t, e.db, e.acme, e.alice, false)
		signed := true

		out, err := e.contracts.Update(as(e.alice), e.acme.ID, draft.ID, &domain.UpdateContractRequest{Signed: &signed})
		require.NoError(t, err)
		assert.True(t, out.(domain.ContractDTO).Signed)

		_, err = e.contracts.Update(as(e.alice), e.acme.ID, draft.ID, &domain.UpdateContractRequest{Signed: &signed})
		require.NoError(t, err)
		assert.Equal(t, []notify.Type{notify.ContractSigned}, e.pub.types())
	})

	t.Run("signed cannot revert", func(t *testing.T) {
		e := newEnv(t)
		unsigned := false
		_, err := e.contracts.Update(as(e.alice), e.acme.ID, e.acmeDeal.ID, &domain.UpdateContractRequest{Signed: &unsigned})
		assertRule(t, err, domain.KindValidation, policy.MsgCannotUnsign)
		assert.True(t, e.reloadContract(t, e.acmeDeal.ID).Signed)
	})

	t.Run("sales cannot move ownership through update", func(t *testing.T) {
		e := newEnv(t)
		amount := decimal.NewFromInt(2500)
		before := e.reloadContract(t, e.acmeDeal.ID)

		_, err := e.contracts.Update(as(e.alice), e.acme.ID, e.acmeDeal.ID, &domain.UpdateContractRequest{
			Amount:         &amount,
			SalesContactID: testutil.IDPtr(e.bob.ID),
			ClientID:       testutil.IDPtr(e.globex.ID),
		})
		assertRule(t, err, domain.KindForbidden, "")

		_, err = e.contracts.Update(as(e.alice), e.acme.ID, e.acmeDeal.ID, &domain.UpdateContractRequest{
			Amount:         &amount,
			SalesContactID: testutil.IDPtr(e.bob.ID),
		})
		assertRule(t, err, domain.KindForbidden, policy.MsgSalesContactForbidden)

		contract := e.reloadContract(t, e.acmeDeal.ID)
		assert.True(t, before.Amount.Equal(contract.Amount))
		assert.Equal(t, e.alice.ID, *contract.SalesContactID)
		assert.Equal(t, e.acme.ID, contract.ClientID)
	})

	t.Run("support may not update", func(t *testing.T) {
		e := newEnv(t)
		amount := decimal.NewFromInt(1)
		_, err := e.contracts.Update(as(e.sam), e.acme.ID, e.acmeDeal.ID, &domain.UpdateContractRequest{Amount: &amount})
		assertRule(t, err, domain.KindForbidden, "")
	})
}

func TestContractService_Reassign(t *testing.T) {
	t.Run("sales cannot change the sales contact", func(t *testing.T) {
		e := newEnv(t)
		_, err := e.contracts.Reassign(as(e.alice), e.acme.ID, e.acmeDeal.ID, &domain.ReassignContractRequest{SalesContactID: testutil.IDPtr(e.bob.ID)})
		assertRule(t, err, domain.KindForbidden, policy.MsgSalesContactForbidden)
	})

	t.Run("sales cannot move to a foreign client", func(t *testing.T) {
		e := newEnv(t)
		_, err := e.contracts.Reassign(as(e.alice), e.acme.ID, e.acmeDeal.ID, &domain.ReassignContractRequest{ClientID: testutil.IDPtr(e.globex.ID)})
		assertRule(t, err, domain.KindForbidden, policy.MsgForeignClient)
		assert.Equal(t, e.acme.ID, e.reloadContract(t, e.acmeDeal.ID).ClientID)
	})

	t.Run("sales moves to an owned client and the event follows", func(t *testing.T) {
		e := newEnv(t)
		other := testutil.CreateClient(t, e.db, "hooli", e.alice)
		out, err := e.contracts.Reassign(as(e.alice), e.acme.ID, e.acmeDeal.ID, &domain.ReassignContractRequest{ClientID: testutil.IDPtr(other.ID)})
		require.NoError(t, err)
		assert.Equal(t, other.ID, out.(domain.ContractDTO).ClientID)
		assert.Equal(t, other.ID, e.reloadEvent(t, e.acmeEvent.ID).ClientID)
		assert.Equal(t, []notify.Type{notify.ContractReassigned}, e.pub.types())
	})

	t.Run("management changes both in one write", func(t *testing.T) {
		e := newEnv(t)
		_, err := e.contracts.Reassign(as(e.boss), e.acme.ID, e.acmeDeal.ID, &domain.ReassignContractRequest{
			SalesContactID: testutil.IDPtr(e.bob.ID),
			ClientID:       testutil.IDPtr(e.initech.ID),
		})
		require.NoError(t, err)
		contract := e.reloadContract(t, e.acmeDeal.ID)
		assert.Equal(t, e.bob.ID, *contract.SalesContactID)
		assert.Equal(t, e.initech.ID, contract.ClientID)
		assert.Equal(t, e.initech.ID, e.reloadEvent(t, e.acmeEvent.ID).ClientID)
	})

	t.Run("non sales target", func(t *testing.T) {
		e := newEnv(t)
		_, err := e.contracts.Reassign(as(e.boss), e.acme.ID, e.acmeDeal.ID, &domain.ReassignContractRequest{SalesContactID: testutil.IDPtr(e.sam.ID)})
		assertRule(t, err, domain.KindValidation, "")
	})

	t.Run("unknown references", func(t *testing.T) {
		e := newEnv(t)
		_, err := e.contracts.Reassign(as(e.boss), e.acme.ID, e.acmeDeal.ID, &domain.ReassignContractRequest{ClientID: testutil.IDPtr(uuid.New())})
		assertRule(t, err, domain.KindNotFound, "")
		_, err = e.contracts.Reassign(as(e.boss), e.acme.ID, e.acmeDeal.ID, &domain.ReassignContractRequest{SalesContactID: testutil.IDPtr(uuid.New())})
		assertRule(t, err, domain.KindNotFound, "")
	})

	t.Run("empty request returns the contract unchanged", func(t *testing.T) {
		e := newEnv(t)
		out, err := e.contracts.Reassign(as(e.boss), e.acme.ID, e.acmeDeal.ID, &domain.ReassignContractRequest{})
		require.NoError(t, err)
		assert.Equal(t, e.acmeDeal.ID, out.(domain.ContractDTO).ID)
		assert.Empty(t, e.pub.types())
	})
}

func TestContractService_Delete(t *testing.T) {
	e := newEnv(t)

	err := e.contracts.Delete(as(e.alice), e.acme.ID, e.acmeDeal.ID)
	assertRule(t, err, domain.KindForbidden, "")

	require.NoError(t, e.contracts.Delete(as(e.boss), e.acme.ID, e.acmeDeal.ID))
	var count int64
	require.NoError(t, e.db.Model(&domain.Event{}).Where("contract_id = ?", e.acmeDeal.ID).Count(&count).Error)
	assert.Zero(t, count)
}
