package middleware_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/straye-as/crm-api/internal/domain"
	"github.com/straye-as/crm-api/internal/http/middleware"
	"github.com/straye-as/crm-api/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingAudit struct {
	entries chan service.LogEntry
}

func newRecordingAudit() *recordingAudit {
	return &recordingAudit{entries: make(chan service.LogEntry, 8)}
}

func (a *recordingAudit) Log(_ context.Context, _ *http.Request, entry service.LogEntry) error {
	a.entries <- entry
	return nil
}

func (a *recordingAudit) next(t *testing.T) service.LogEntry {
	t.Helper()
	select {
	case e := <-a.entries:
		return e
	case <-time.After(2 * time.Second):
		t.Fatal("no audit entry written")
		return service.LogEntry{}
	}
}

func auditedRouter(audit *recordingAudit, status int, body string) http.Handler {
	am := middleware.NewAuditMiddleware(audit, nil, zap.NewNop())
	reply := func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}

	r := chi.NewRouter()
	r.Use(am.Audit)
	r.Post("/api/v1/clients/{clientID}/contracts", reply)
	r.Patch("/api/v1/clients/{clientID}/contracts/{contractID}", reply)
	r.Put("/api/v1/clients/{clientID}/assignment", reply)
	r.Delete("/api/v1/users/{userID}", reply)
	r.Get("/api/v1/clients", reply)
	r.Post("/health", reply)
	return r
}

func TestAuditMiddleware_CreateTakesIDFromResponse(t *testing.T) {
	audit := newRecordingAudit()
	created := uuid.New()
	router := auditedRouter(audit, http.StatusCreated, `{"id":"`+created.String()+`"}`)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/clients/"+uuid.NewString()+"/contracts",
		strings.NewReader(`{"amount":"10","token":"secret"}`))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusCreated, rr.Code)

	entry := audit.next(t)
	assert.Equal(t, domain.AuditActionCreate, entry.Action)
	assert.Equal(t, "contract", entry.EntityType)
	require.NotNil(t, entry.EntityID)
	assert.Equal(t, created, *entry.EntityID)

	values, ok := entry.NewValues.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "10", values["amount"])
	assert.NotContains(t, values, "token")
}

func TestAuditMiddleware_UpdateUsesInnermostRecord(t *testing.T) {
	audit := newRecordingAudit()
	router := auditedRouter(audit, http.StatusOK, `{}`)
	contractID := uuid.New()

	req := httptest.NewRequest(http.MethodPatch, "/api/v1/clients/"+uuid.NewString()+"/contracts/"+contractID.String(),
		strings.NewReader(`{"signed":true}`))
	router.ServeHTTP(httptest.NewRecorder(), req)

	entry := audit.next(t)
	assert.Equal(t, domain.AuditActionUpdate, entry.Action)
	assert.Equal(t, "contract", entry.EntityType)
	require.NotNil(t, entry.EntityID)
	assert.Equal(t, contractID, *entry.EntityID)
}

func TestAuditMiddleware_AssignmentIsReassign(t *testing.T) {
	audit := newRecordingAudit()
	router := auditedRouter(audit, http.StatusOK, `{}`)
	clientID := uuid.New()

	req := httptest.NewRequest(http.MethodPut, "/api/v1/clients/"+clientID.String()+"/assignment",
		strings.NewReader(`{"salesContactId":"`+uuid.NewString()+`"}`))
	router.ServeHTTP(httptest.NewRecorder(), req)

	entry := audit.next(t)
	assert.Equal(t, domain.AuditActionReassign, entry.Action)
	assert.Equal(t, "client", entry.EntityType)
	assert.Equal(t, clientID, *entry.EntityID)
}

func TestAuditMiddleware_Delete(t *testing.T) {
	audit := newRecordingAudit()
	router := auditedRouter(audit, http.StatusNoContent, "")
	userID := uuid.New()

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodDelete, "/api/v1/users/"+userID.String(), nil))

	entry := audit.next(t)
	assert.Equal(t, domain.AuditActionDelete, entry.Action)
	assert.Equal(t, "user", entry.EntityType)
	assert.Equal(t, userID, *entry.EntityID)
	assert.Nil(t, entry.NewValues)
}

func TestAuditMiddleware_SkipsReadsFailuresAndHealth(t *testing.T) {
	audit := newRecordingAudit()

	auditedRouter(audit, http.StatusOK, `[]`).ServeHTTP(httptest.NewRecorder(),
		httptest.NewRequest(http.MethodGet, "/api/v1/clients", nil))
	auditedRouter(audit, http.StatusOK, "").ServeHTTP(httptest.NewRecorder(),
		httptest.NewRequest(http.MethodPost, "/health", nil))
	auditedRouter(audit, http.StatusForbidden, `{}`).ServeHTTP(httptest.NewRecorder(),
		httptest.NewRequest(http.MethodDelete, "/api/v1/users/"+uuid.NewString(), nil))

	// entries are only dispatched for audited successes, so nothing can be in flight
	assert.Len(t, audit.entries, 0)
}

func TestAuditMiddleware_PassesBodyThrough(t *testing.T) {
	am := middleware.NewAuditMiddleware(nil, nil, zap.NewNop())

	var seen string
	handler := am.Audit(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		buf := new(strings.Builder)
		_, _ = io.Copy(buf, r.Body)
		seen = buf.String()
		w.WriteHeader(http.StatusOK)
	}))

	handler.ServeHTTP(httptest.NewRecorder(),
		httptest.NewRequest(http.MethodPost, "/api/v1/clients", strings.NewReader(`{"firstName":"Ada"}`)))

	assert.Equal(t, `{"firstName":"Ada"}`, seen)
}
