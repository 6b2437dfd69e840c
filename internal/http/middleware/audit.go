package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/straye-as/crm-api/internal/domain"
	"github.com/straye-as/crm-api/internal/policy"
	"github.com/straye-as/crm-api/internal/service"
	"go.uber.org/zap"
)

// AuditConfig holds configuration for audit middleware
type AuditConfig struct {
	// SkipPaths contains paths that should not be audited
	SkipPaths []string
	// SkipMethods contains HTTP methods that should not be audited
	SkipMethods []string
}

// DefaultAuditConfig returns default audit configuration
func DefaultAuditConfig() *AuditConfig {
	return &AuditConfig{
		SkipPaths: []string{
			"/health",
			"/swagger",
		},
		SkipMethods: []string{
			http.MethodGet,
			http.MethodOptions,
			http.MethodHead,
		},
	}
}

// AuditLogger records a completed modification
type AuditLogger interface {
	Log(ctx context.Context, r *http.Request, entry service.LogEntry) error
}

// AuditMiddleware records every successful modification in the audit trail
type AuditMiddleware struct {
	auditLog AuditLogger
	config   *AuditConfig
	logger   *zap.Logger
}

// NewAuditMiddleware creates a new audit middleware
func NewAuditMiddleware(auditLog AuditLogger, config *AuditConfig, logger *zap.Logger) *AuditMiddleware {
	if config == nil {
		config = DefaultAuditConfig()
	}
	return &AuditMiddleware{
		auditLog: auditLog,
		config:   config,
		logger:   logger,
	}
}

// route segments and the parameter naming the record below them
var auditEntities = map[string]struct {
	entity policy.Entity
	param  string
}{
	"users":     {policy.EntityUser, "userID"},
	"clients":   {policy.EntityClient, "clientID"},
	"contracts": {policy.EntityContract, "contractID"},
	"events":    {policy.EntityEvent, "eventID"},
	"documents": {policy.EntityDocument, "documentID"},
}

var sensitiveFields = []string{"password", "secret", "token", "apiKey"}

// Audit returns middleware that logs modifications to the audit log. It
// must run after authentication.
func (m *AuditMiddleware) Audit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !m.shouldAudit(r) {
			next.ServeHTTP(w, r)
			return
		}

		// uploads are recorded without their content
		var requestBody []byte
		if r.Body != nil && !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
			requestBody, _ = io.ReadAll(r.Body)
			r.Body = io.NopCloser(bytes.NewBuffer(requestBody))
		}

		rw := &responseCapture{ResponseWriter: w, statusCode: http.StatusOK, keepBody: r.Method == http.MethodPost}
		next.ServeHTTP(rw, r)

		if rw.statusCode < 200 || rw.statusCode >= 300 {
			return
		}
		entry := m.buildEntry(r, requestBody, rw.body.Bytes())
		go m.write(context.WithoutCancel(r.Context()), r, entry)
	})
}

func (m *AuditMiddleware) shouldAudit(r *http.Request) bool {
	for _, method := range m.config.SkipMethods {
		if r.Method == method {
			return false
		}
	}
	for _, skipPath := range m.config.SkipPaths {
		if strings.HasPrefix(r.URL.Path, skipPath) {
			return false
		}
	}
	return true
}

func (m *AuditMiddleware) write(ctx context.Context, r *http.Request, entry service.LogEntry) {
	if m.auditLog == nil {
		return
	}
	if err := m.auditLog.Log(ctx, r, entry); err != nil {
		m.logger.Warn("failed to create audit log entry",
			zap.String("path", r.URL.Path),
			zap.String("method", r.Method),
			zap.Error(err))
	}
}

func (m *AuditMiddleware) buildEntry(r *http.Request, requestBody, responseBody []byte) service.LogEntry {
	pattern := r.URL.Path
	routeCtx := chi.RouteContext(r.Context())
	if routeCtx != nil && routeCtx.RoutePattern() != "" {
		pattern = routeCtx.RoutePattern()
	}

	entityType, entityID := entityFromRoute(pattern, func(name string) string {
		if routeCtx == nil {
			return ""
		}
		return routeCtx.URLParam(name)
	})
	if entityID == nil && len(responseBody) > 0 {
		entityID = createdID(responseBody)
	}

	entry := service.LogEntry{
		Action:     methodToAction(r.Method, pattern),
		EntityType: entityType,
		EntityID:   entityID,
	}
	if len(requestBody) > 0 {
		var parsed map[string]interface{}
		if json.Unmarshal(requestBody, &parsed) == nil {
			for _, f := range sensitiveFields {
				delete(parsed, f)
			}
			entry.NewValues = parsed
		}
	}
	return entry
}

// methodToAction converts the HTTP method to an audit action. Writes to an
// assignment sub-resource are reassignments.
func methodToAction(method, pattern string) domain.AuditAction {
	if strings.HasSuffix(strings.TrimSuffix(pattern, "/"), "/assignment") {
		return domain.AuditActionReassign
	}
	switch method {
	case http.MethodPost:
		return domain.AuditActionCreate
	case http.MethodDelete:
		return domain.AuditActionDelete
	default:
		return domain.AuditActionUpdate
	}
}

// entityFromRoute picks the innermost resource of a route pattern such as
// /clients/{clientID}/contracts/{contractID} and its ID parameter
func entityFromRoute(pattern string, param func(string) string) (string, *uuid.UUID) {
	entityType := "unknown"
	var entityID *uuid.UUID
	for _, part := range strings.Split(strings.Trim(pattern, "/"), "/") {
		e, ok := auditEntities[part]
		if !ok {
			continue
		}
		entityType = string(e.entity)
		entityID = nil
		if id, err := uuid.Parse(param(e.param)); err == nil {
			entityID = &id
		}
	}
	return entityType, entityID
}

func createdID(body []byte) *uuid.UUID {
	var created struct {
		ID uuid.UUID `json:"id"`
	}
	if json.Unmarshal(body, &created) != nil || created.ID == uuid.Nil {
		return nil
	}
	return &created.ID
}

// responseCapture wraps ResponseWriter to capture the status code and,
// for creations, the body carrying the new ID
type responseCapture struct {
	http.ResponseWriter
	statusCode int
	keepBody   bool
	body       bytes.Buffer
}

func (rw *responseCapture) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseCapture) Write(b []byte) (int, error) {
	if rw.keepBody {
		rw.body.Write(b)
	}
	return rw.ResponseWriter.Write(b)
}
