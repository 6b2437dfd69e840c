package handler

import (
	"net/http"

	"github.com/straye-as/crm-api/internal/domain"
	"github.com/straye-as/crm-api/internal/service"
	"go.uber.org/zap"
)

// AuditHandler exposes the audit trail to management
type AuditHandler struct {
	auditService *service.AuditLogService
	logger       *zap.Logger
}

// NewAuditHandler creates a new audit handler
func NewAuditHandler(auditService *service.AuditLogService, logger *zap.Logger) *AuditHandler {
	return &AuditHandler{
		auditService: auditService,
		logger:       logger,
	}
}

// List godoc
// @Summary List audit logs
// @Description Returns a paginated list of audit log entries, newest first
// @Tags Audit
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Items per page (max 200)" default(20)
// @Param principalId query string false "Filter by acting principal"
// @Param action query string false "Filter by action" Enums(create, update, reassign, delete)
// @Param entityType query string false "Filter by entity type"
// @Param entityId query string false "Filter by entity ID"
// @Success 200 {object} domain.PaginatedResponse{data=[]domain.AuditLogDTO}
// @Failure 400 {object} domain.APIError
// @Failure 401 {object} domain.APIError
// @Failure 403 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /audit-logs [get]
func (h *AuditHandler) List(w http.ResponseWriter, r *http.Request) {
	q := &queryParser{r: r}
	filters := domain.AuditLogFilters{
		EntityType:  r.URL.Query().Get("entityType"),
		EntityID:    q.uuidParam("entityId"),
		PrincipalID: q.uuidParam("principalId"),
		Action:      domain.AuditAction(r.URL.Query().Get("action")),
	}
	if q.err != nil {
		respondWithError(w, r, http.StatusBadRequest, q.err.Error())
		return
	}

	page, pageSize := pagination(r)
	result, err := h.auditService.List(r.Context(), filters, page, pageSize)
	if err != nil {
		respondServiceError(w, r, h.logger, err, "list audit logs")
		return
	}
	respondJSON(w, r, http.StatusOK, result)
}
