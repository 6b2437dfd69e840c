package handler_test

import (
	"net/http"
	"testing"

	"github.com/straye-as/crm-api/internal/domain"
	"github.com/straye-as/crm-api/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func eventParams(e *env, contract *domain.Contract, event *domain.Event) []string {
	params := []string{"clientID", contract.ClientID.String(), "contractID", contract.ID.String()}
	if event != nil {
		params = append(params, "eventID", event.ID.String())
	}
	return params
}

func TestEventHandler_Create(t *testing.T) {
	e := newEnv(t)
	fresh := testutil.CreateContract(t, e.db, e.acme, e.alice, true)
	draft := testutil.CreateContract(t, e.db, e.acme, e.alice, false)
	body := map[string]interface{}{"title": "Gala", "attendees": 120, "supportContactId": e.sam.ID}

	t.Run("owner of an unsigned contract", func(t *testing.T) {
		rr := call(t, e.events.Create, e.alice, http.MethodPost, "/", body, eventParams(e, draft, nil)...)
		require.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Contains(t, apiError(t, rr).Errors, "contractId")
	})

	t.Run("another sales contact", func(t *testing.T) {
		rr := call(t, e.events.Create, e.bob, http.MethodPost, "/", body, eventParams(e, fresh, nil)...)
		assert.Equal(t, http.StatusForbidden, rr.Code)
	})

	t.Run("support may not create", func(t *testing.T) {
		rr := call(t, e.events.Create, e.sam, http.MethodPost, "/", body, eventParams(e, fresh, nil)...)
		assert.Equal(t, http.StatusForbidden, rr.Code)
	})

	t.Run("owner creates without a support contact", func(t *testing.T) {
		rr := call(t, e.events.Create, e.alice, http.MethodPost, "/", body, eventParams(e, fresh, nil)...)
		require.Equal(t, http.StatusCreated, rr.Code)
		var event domain.EventDTO
		decode(t, rr, &event)
		assert.Equal(t, "Gala", event.Title)
		assert.Equal(t, 120, event.Attendees)
		assert.Equal(t, domain.EventStatusTodo, event.Status)
		assert.Nil(t, event.SupportContactID)
		assert.Equal(t, fresh.ID, event.ContractID)
		assert.Equal(t, e.acme.ID, event.ClientID)
	})

	t.Run("second event on the same contract", func(t *testing.T) {
		rr := call(t, e.events.Create, e.alice, http.MethodPost, "/", body, eventParams(e, fresh, nil)...)
		require.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, "this contract already has an event", apiError(t, rr).Errors["contractId"])
	})

	t.Run("unknown status", func(t *testing.T) {
		rr := call(t, e.events.Create, e.boss, http.MethodPost, "/", map[string]interface{}{"title": "x", "status": "done"}, eventParams(e, fresh, nil)...)
		require.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Contains(t, apiError(t, rr).Errors, "status")
	})
}

func TestEventHandler_ReadVisibility(t *testing.T) {
	e := newEnv(t)
	params := eventParams(e, e.acmeDeal, e.acmeEvent)

	rr := call(t, e.events.GetByID, e.sam, http.MethodGet, "/", nil, params...)
	require.Equal(t, http.StatusOK, rr.Code)
	var event domain.EventDTO
	decode(t, rr, &event)
	assert.Equal(t, e.acmeEvent.ID, event.ID)

	// sales never see events, even on their own contracts
	rr = call(t, e.events.GetByID, e.alice, http.MethodGet, "/", nil, params...)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = call(t, e.events.List, e.sam, http.MethodGet, "/?status=todo", nil, eventParams(e, e.acmeDeal, nil)...)
	require.Equal(t, http.StatusOK, rr.Code)
	var page struct {
		Data []domain.EventListDTO `json:"data"`
	}
	decode(t, rr, &page)
	require.Len(t, page.Data, 1)
	assert.Equal(t, e.acmeEvent.ID, page.Data[0].ID)

	rr = call(t, e.events.List, e.sam, http.MethodGet, "/?eventDateGte=tomorrow", nil, eventParams(e, e.acmeDeal, nil)...)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestEventHandler_Update(t *testing.T) {
	e := newEnv(t)
	params := eventParams(e, e.acmeDeal, e.acmeEvent)

	rr := call(t, e.events.Update, e.sam, http.MethodPut, "/", map[string]interface{}{"notes": "bring chairs", "status": "in_progress"}, params...)
	require.Equal(t, http.StatusOK, rr.Code)
	var event domain.EventDTO
	decode(t, rr, &event)
	assert.Equal(t, "bring chairs", event.Notes)
	assert.Equal(t, domain.EventStatusInProgress, event.Status)

	// naming a link refuses the whole update, legal fields included
	sue := testutil.CreateUser(t, e.db, "sue", domain.RoleSupport)
	rr = call(t, e.events.Update, e.sam, http.MethodPut, "/", map[string]interface{}{"notes": "moved", "supportContactId": sue.ID}, params...)
	require.Equal(t, http.StatusForbidden, rr.Code)

	rr = call(t, e.events.GetByID, e.sam, http.MethodGet, "/", nil, params...)
	require.Equal(t, http.StatusOK, rr.Code)
	decode(t, rr, &event)
	assert.Equal(t, "bring chairs", event.Notes)
	assert.Equal(t, e.sam.ID, *event.SupportContactID)
}

func TestEventHandler_Reassign(t *testing.T) {
	e := newEnv(t)
	sue := testutil.CreateUser(t, e.db, "sue", domain.RoleSupport)
	params := eventParams(e, e.acmeDeal, e.acmeEvent)

	rr := call(t, e.events.Reassign, e.sam, http.MethodPut, "/", map[string]interface{}{"supportContactId": sue.ID}, params...)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = call(t, e.events.Reassign, e.boss, http.MethodPut, "/", map[string]interface{}{"supportContactId": e.alice.ID}, params...)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, apiError(t, rr).Errors, "supportContactId")

	rr = call(t, e.events.Reassign, e.boss, http.MethodPut, "/", map[string]interface{}{"supportContactId": sue.ID}, params...)
	require.Equal(t, http.StatusOK, rr.Code)
	var event domain.EventDTO
	decode(t, rr, &event)
	assert.Equal(t, sue.ID, *event.SupportContactID)

	// sam no longer supports the event
	rr = call(t, e.events.GetByID, e.sam, http.MethodGet, "/", nil, params...)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestEventHandler_Delete(t *testing.T) {
	e := newEnv(t)
	params := eventParams(e, e.acmeDeal, e.acmeEvent)

	rr := call(t, e.events.Delete, e.sam, http.MethodDelete, "/", nil, params...)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = call(t, e.events.Delete, e.boss, http.MethodDelete, "/", nil, params...)
	assert.Equal(t, http.StatusNoContent, rr.Code)
}
