package service

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/straye-as/crm-api/internal/auth"
	"github.com/straye-as/crm-api/internal/domain"
	"github.com/straye-as/crm-api/internal/mapper"
	"github.com/straye-as/crm-api/internal/repository"
	"go.uber.org/zap"
)

// AuditLogService records and lists the audit trail of mutations
type AuditLogService struct {
	auditRepo *repository.AuditLogRepository
	logger    *zap.Logger
}

// NewAuditLogService creates a new audit log service
func NewAuditLogService(auditRepo *repository.AuditLogRepository, logger *zap.Logger) *AuditLogService {
	return &AuditLogService{
		auditRepo: auditRepo,
		logger:    logger,
	}
}

// LogEntry represents the input for creating an audit log entry
type LogEntry struct {
	Action     domain.AuditAction
	EntityType string
	EntityID   *uuid.UUID
	NewValues  interface{}
}

// Log creates an audit log entry from the principal in ctx and the request
func (s *AuditLogService) Log(ctx context.Context, r *http.Request, entry LogEntry) error {
	auditLog := &domain.AuditLog{
		Action:     entry.Action,
		EntityType: entry.EntityType,
		EntityID:   entry.EntityID,
	}

	if p, ok := auth.FromContext(ctx); ok {
		auditLog.PrincipalID = p.UserID()
		auditLog.PrincipalRole = p.Role
		auditLog.PrincipalName = p.Name
	}

	if r != nil {
		auditLog.RequestMethod = r.Method
		auditLog.RequestPath = r.URL.Path
		auditLog.IPAddress = clientIP(r)
		auditLog.UserAgent = r.UserAgent()
		auditLog.RequestID = r.Header.Get("X-Request-ID")
	}

	// "null" keeps the column valid for jsonb
	auditLog.NewValues = "null"
	if entry.NewValues != nil {
		if newJSON, err := json.Marshal(entry.NewValues); err == nil {
			auditLog.NewValues = string(newJSON)
		}
	}

	if err := s.auditRepo.Create(ctx, auditLog); err != nil {
		s.logger.Error("failed to create audit log",
			zap.String("action", string(entry.Action)),
			zap.String("entity_type", entry.EntityType),
			zap.Error(err))
		return err
	}
	return nil
}

// List returns the audit trail, newest first. Management only.
func (s *AuditLogService) List(ctx context.Context, filters domain.AuditLogFilters, page, pageSize int) (*domain.PaginatedResponse, error) {
	p, err := principalFrom(ctx)
	if err != nil {
		return nil, err
	}
	if !p.HasAnyRole(domain.RoleManagement) {
		return nil, domain.Forbidden("only management staff may read the audit trail")
	}

	page, pageSize = normalizePage(page, pageSize)
	logs, total, err := s.auditRepo.List(ctx, filters, page, pageSize)
	if err != nil {
		return nil, translate(err, "audit log", "list audit logs")
	}

	dtos := make([]domain.AuditLogDTO, len(logs))
	for i := range logs {
		dtos[i] = mapper.ToAuditLogDTO(&logs[i])
	}
	return paginated(dtos, total, page, pageSize), nil
}

// clientIP prefers proxy headers over the socket address
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if ip := strings.TrimSpace(strings.Split(xff, ",")[0]); ip != "" {
			return ip
		}
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
