package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/straye-as/crm-api/internal/domain"
	"gorm.io/gorm"
)

var userSortFields = map[string]string{
	"username":  "username",
	"firstName": "first_name",
	"lastName":  "last_name",
	"role":      "role",
	"createdAt": "created_at",
}

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	return GetDB(ctx, r.db).Create(user).Error
}

func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	var user domain.User
	err := GetDB(ctx, r.db).First(&user, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// FindPrincipal loads the principal behind an authenticated subject
func (r *UserRepository) FindPrincipal(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return r.GetByID(ctx, id)
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	var user domain.User
	err := GetDB(ctx, r.db).First(&user, "username = ?", username).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Update writes only the given columns
func (r *UserRepository) Update(ctx context.Context, id uuid.UUID, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return nil
	}
	return GetDB(ctx, r.db).Model(&domain.User{}).Where("id = ?", id).Updates(updates).Error
}

func (r *UserRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Delete(&domain.User{}, "id = ?", id).Error
}

func (r *UserRepository) List(ctx context.Context, filters domain.UserFilters, sort SortConfig, page, pageSize int) ([]domain.User, int64, error) {
	var users []domain.User
	var total int64

	query := GetDB(ctx, r.db).Model(&domain.User{})

	if filters.FirstName != "" {
		query = query.Where("LOWER(first_name) LIKE ?", likePattern(filters.FirstName))
	}
	if filters.LastName != "" {
		query = query.Where("LOWER(last_name) LIKE ?", likePattern(filters.LastName))
	}
	if filters.Role != "" {
		query = query.Where("role = ?", filters.Role)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := paginate(query, page, pageSize).
		Order(BuildOrderClause(sort, userSortFields, "created_at")).
		Find(&users).Error

	return users, total, err
}
