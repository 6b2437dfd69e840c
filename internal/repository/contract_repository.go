package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/straye-as/crm-api/internal/domain"
	"github.com/straye-as/crm-api/internal/policy"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var contractSortFields = map[string]string{
	"amount":     "contracts.amount",
	"paymentDue": "contracts.payment_due",
	"signed":     "contracts.signed",
	"createdAt":  "contracts.created_at",
	"updatedAt":  "contracts.updated_at",
}

type ContractRepository struct {
	db *gorm.DB
}

func NewContractRepository(db *gorm.DB) *ContractRepository {
	return &ContractRepository{db: db}
}

func (r *ContractRepository) Create(ctx context.Context, contract *domain.Contract) error {
	return GetDB(ctx, r.db).Omit(clause.Associations).Create(contract).Error
}

// GetByID loads a contract regardless of who asks
func (r *ContractRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Contract, error) {
	var contract domain.Contract
	err := GetDB(ctx, r.db).First(&contract, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &contract, nil
}

// GetScoped loads a contract only if scope matches it
func (r *ContractRepository) GetScoped(ctx context.Context, scope policy.Scope, id uuid.UUID) (*domain.Contract, error) {
	var contract domain.Contract
	query := GetDB(ctx, r.db).Model(&domain.Contract{}).Where("contracts.id = ?", id)
	query = ApplyScope(query, scope)
	if err := query.First(&contract).Error; err != nil {
		return nil, err
	}
	return &contract, nil
}

// Update writes only the given columns
func (r *ContractRepository) Update(ctx context.Context, id uuid.UUID, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return nil
	}
	return GetDB(ctx, r.db).Model(&domain.Contract{}).Where("id = ?", id).Updates(updates).Error
}

func (r *ContractRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Delete(&domain.Contract{}, "id = ?", id).Error
}

// ListVisible returns every contract scope matches, newest first. Used to
// embed contracts in client details.
func (r *ContractRepository) ListVisible(ctx context.Context, scope policy.Scope) ([]domain.Contract, error) {
	var contracts []domain.Contract
	query := ApplyScope(GetDB(ctx, r.db).Model(&domain.Contract{}), scope)
	err := query.Order("contracts.created_at DESC").Find(&contracts).Error
	return contracts, err
}

func (r *ContractRepository) List(ctx context.Context, scope policy.Scope, filters domain.ContractFilters, sort SortConfig, page, pageSize int) ([]domain.Contract, int64, error) {
	var contracts []domain.Contract
	var total int64

	query := ApplyScope(GetDB(ctx, r.db).Model(&domain.Contract{}), scope)

	if filters.AmountGte != nil {
		query = query.Where("contracts.amount >= ?", *filters.AmountGte)
	}
	if filters.AmountLte != nil {
		query = query.Where("contracts.amount <= ?", *filters.AmountLte)
	}
	if filters.PaymentDueGte != nil {
		query = query.Where("contracts.payment_due >= ?", *filters.PaymentDueGte)
	}
	if filters.PaymentDueLte != nil {
		query = query.Where("contracts.payment_due <= ?", *filters.PaymentDueLte)
	}
	if filters.Signed != nil {
		query = query.Where("contracts.signed = ?", *filters.Signed)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := paginate(query, page, pageSize).
		Order(BuildOrderClause(sort, contractSortFields, "contracts.created_at")).
		Find(&contracts).Error

	return contracts, total, err
}
