package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/straye-as/crm-api/internal/domain"
	"github.com/straye-as/crm-api/internal/policy"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var clientSortFields = map[string]string{
	"firstName":   "clients.first_name",
	"lastName":    "clients.last_name",
	"companyName": "clients.company_name",
	"createdAt":   "clients.created_at",
	"updatedAt":   "clients.updated_at",
}

type ClientRepository struct {
	db *gorm.DB
}

func NewClientRepository(db *gorm.DB) *ClientRepository {
	return &ClientRepository{db: db}
}

func (r *ClientRepository) Create(ctx context.Context, client *domain.Client) error {
	return GetDB(ctx, r.db).Omit(clause.Associations).Create(client).Error
}

// GetByID loads a client regardless of who asks
func (r *ClientRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Client, error) {
	var client domain.Client
	err := GetDB(ctx, r.db).First(&client, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &client, nil
}

// GetScoped loads a client only if scope matches it
func (r *ClientRepository) GetScoped(ctx context.Context, scope policy.Scope, id uuid.UUID) (*domain.Client, error) {
	var client domain.Client
	query := GetDB(ctx, r.db).Model(&domain.Client{}).Where("clients.id = ?", id)
	query = ApplyScope(query, scope)
	if err := query.First(&client).Error; err != nil {
		return nil, err
	}
	return &client, nil
}

// Update writes only the given columns
func (r *ClientRepository) Update(ctx context.Context, id uuid.UUID, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return nil
	}
	return GetDB(ctx, r.db).Model(&domain.Client{}).Where("id = ?", id).Updates(updates).Error
}

func (r *ClientRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Delete(&domain.Client{}, "id = ?", id).Error
}

func (r *ClientRepository) List(ctx context.Context, scope policy.Scope, filters domain.ClientFilters, sort SortConfig, page, pageSize int) ([]domain.Client, int64, error) {
	var clients []domain.Client
	var total int64

	query := ApplyScope(GetDB(ctx, r.db).Model(&domain.Client{}), scope)

	if filters.FirstName != "" {
		query = query.Where("LOWER(clients.first_name) LIKE ?", likePattern(filters.FirstName))
	}
	if filters.LastName != "" {
		query = query.Where("LOWER(clients.last_name) LIKE ?", likePattern(filters.LastName))
	}
	if filters.CompanyName != "" {
		query = query.Where("LOWER(clients.company_name) LIKE ?", likePattern(filters.CompanyName))
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := paginate(query, page, pageSize).
		Order(BuildOrderClause(sort, clientSortFields, "clients.created_at")).
		Find(&clients).Error

	return clients, total, err
}
