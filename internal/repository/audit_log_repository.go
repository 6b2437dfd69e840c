package repository

import (
	"context"
	"time"

	"github.com/straye-as/crm-api/internal/domain"
	"gorm.io/gorm"
)

// AuditLogRepository handles audit log data access
type AuditLogRepository struct {
	db *gorm.DB
}

// NewAuditLogRepository creates a new audit log repository
func NewAuditLogRepository(db *gorm.DB) *AuditLogRepository {
	return &AuditLogRepository{db: db}
}

// Create inserts a new audit log entry (append-only - no updates allowed)
func (r *AuditLogRepository) Create(ctx context.Context, log *domain.AuditLog) error {
	return GetDB(ctx, r.db).Create(log).Error
}

// List retrieves audit logs with pagination and optional filters
func (r *AuditLogRepository) List(ctx context.Context, filters domain.AuditLogFilters, page, pageSize int) ([]domain.AuditLog, int64, error) {
	var logs []domain.AuditLog
	var total int64

	query := GetDB(ctx, r.db).Model(&domain.AuditLog{})

	if filters.EntityType != "" {
		query = query.Where("entity_type = ?", filters.EntityType)
	}
	if filters.EntityID != nil {
		query = query.Where("entity_id = ?", *filters.EntityID)
	}
	if filters.PrincipalID != nil {
		query = query.Where("principal_id = ?", *filters.PrincipalID)
	}
	if filters.Action != "" {
		query = query.Where("action = ?", filters.Action)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := paginate(query, page, pageSize).
		Order("performed_at DESC").
		Find(&logs).Error

	return logs, total, err
}

// DeleteOlderThan removes entries performed before cutoff and returns how many went
func (r *AuditLogRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result := GetDB(ctx, r.db).Where("performed_at < ?", cutoff).Delete(&domain.AuditLog{})
	return result.RowsAffected, result.Error
}
