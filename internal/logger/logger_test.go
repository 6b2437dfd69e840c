package logger

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/straye-as/crm-api/internal/config"
	"github.com/straye-as/crm-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewLogger_Level(t *testing.T) {
	log, err := NewLogger(&config.LoggingConfig{Level: "warn", Format: "json"}, &config.AppConfig{Name: "CRM API", Environment: "test"})
	require.NoError(t, err)

	assert.False(t, log.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, log.Core().Enabled(zapcore.WarnLevel))
}

func TestNewLogger_InvalidLevelFallsBackToInfo(t *testing.T) {
	log, err := NewLogger(&config.LoggingConfig{Level: "chatty"}, &config.AppConfig{Environment: "development"})
	require.NoError(t, err)

	assert.True(t, log.Core().Enabled(zapcore.InfoLevel))
	assert.False(t, log.Core().Enabled(zapcore.DebugLevel))
}

func TestWithRequestAndPrincipal(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	id := uuid.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/clients", nil)
	log := WithPrincipal(WithRequest(zap.New(core), req, "req-1"), id, domain.RoleSales)

	log.Info("listed")

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "GET", fields["method"])
	assert.Equal(t, "/api/v1/clients", fields["path"])
	assert.Equal(t, "req-1", fields["request_id"])
	assert.Equal(t, id.String(), fields["principal_id"])
	assert.Equal(t, "sales", fields["role"])
}
