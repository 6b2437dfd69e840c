package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/straye-as/crm-api/internal/auth"
	"github.com/straye-as/crm-api/internal/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	// ErrUnauthorized is returned when no principal is attached to the context
	ErrUnauthorized = errors.New("unauthorized")
)

const (
	defaultPageSize = 20
	maxPageSize     = 200
)

func principalFrom(ctx context.Context) (*auth.Principal, error) {
	p, ok := auth.FromContext(ctx)
	if !ok {
		return nil, ErrUnauthorized
	}
	return p, nil
}

// isDuplicate recognises unique violations from TranslateError and from
// drivers that bypass it
func isDuplicate(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "UNIQUE constraint")
}

// translate turns storage errors into rule errors. what names the record
// for NotFound, op is the failed action for wrapped infrastructure errors.
func translate(err error, what, op string) error {
	if err == nil {
		return nil
	}
	if _, ok := domain.AsRuleError(err); ok {
		return err
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.NotFound(what + " not found")
	}
	if isDuplicate(err) {
		return domain.Conflict(what + " already exists")
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}

func normalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return page, pageSize
}

func paginated(data interface{}, total int64, page, pageSize int) *domain.PaginatedResponse {
	totalPages := int(total) / pageSize
	if int(total)%pageSize > 0 {
		totalPages++
	}
	return &domain.PaginatedResponse{
		Data:       data,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}
}

// logRejection records refused requests at debug level. Infrastructure
// errors are left to the HTTP layer.
func logRejection(logger *zap.Logger, op string, p *auth.Principal, err error) {
	re, ok := domain.AsRuleError(err)
	if !ok {
		return
	}
	logger.Debug("request rejected",
		zap.String("op", op),
		zap.String("principal_id", p.ID.String()),
		zap.String("role", string(p.Role)),
		zap.String("kind", string(re.Kind)),
		zap.String("field", re.Field),
		zap.String("reason", re.Reason),
	)
}
