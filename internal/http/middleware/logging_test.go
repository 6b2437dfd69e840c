package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/straye-as/crm-api/internal/auth"
	"github.com/straye-as/crm-api/internal/domain"
	"github.com/straye-as/crm-api/internal/http/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestLogging_RecordsRequestAndPropagatesID(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	var seenID string
	handler := middleware.Logging(zap.New(core))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenID = r.Header.Get("X-Request-ID")
		w.WriteHeader(http.StatusTeapot)
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/clients", nil))

	require.NotEmpty(t, seenID)
	assert.Equal(t, seenID, w.Header().Get("X-Request-ID"))

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, seenID, fields["request_id"])
	assert.Equal(t, int64(http.StatusTeapot), fields["status_code"])
	assert.Equal(t, "/api/v1/clients", fields["path"])
}

func TestLogging_IncludesPrincipalWhenKnown(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	handler := middleware.Logging(zap.New(core))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	p := &auth.Principal{ID: uuid.New(), Role: domain.RoleSupport}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	handler.ServeHTTP(httptest.NewRecorder(), req.WithContext(auth.WithPrincipal(req.Context(), p)))

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, p.ID.String(), fields["principal_id"])
	assert.Equal(t, "support", fields["role"])
}

func TestRecovery_AnswersInternalError(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	handler := middleware.Recovery(zap.New(core))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/clients", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), domain.ErrorTypeInternal)
	assert.Equal(t, 1, logs.FilterMessage("panic recovered").Len())
}
