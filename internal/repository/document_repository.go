package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/straye-as/crm-api/internal/domain"
	"github.com/straye-as/crm-api/internal/policy"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type DocumentRepository struct {
	db *gorm.DB
}

func NewDocumentRepository(db *gorm.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

func (r *DocumentRepository) Create(ctx context.Context, doc *domain.ContractDocument) error {
	return GetDB(ctx, r.db).Omit(clause.Associations).Create(doc).Error
}

// GetScoped loads a document only if scope matches it
func (r *DocumentRepository) GetScoped(ctx context.Context, scope policy.Scope, id uuid.UUID) (*domain.ContractDocument, error) {
	var doc domain.ContractDocument
	query := GetDB(ctx, r.db).Model(&domain.ContractDocument{}).Where("contract_documents.id = ?", id)
	query = ApplyScope(query, scope)
	if err := query.First(&doc).Error; err != nil {
		return nil, err
	}
	return &doc, nil
}

func (r *DocumentRepository) List(ctx context.Context, scope policy.Scope) ([]domain.ContractDocument, error) {
	var docs []domain.ContractDocument
	query := ApplyScope(GetDB(ctx, r.db).Model(&domain.ContractDocument{}), scope)
	err := query.Order("contract_documents.created_at DESC").Find(&docs).Error
	return docs, err
}

// StoragePathsForClient lists the blobs behind every document of a client,
// so they can be removed after the rows cascade away.
func (r *DocumentRepository) StoragePathsForClient(ctx context.Context, clientID uuid.UUID) ([]string, error) {
	var paths []string
	err := GetDB(ctx, r.db).Model(&domain.ContractDocument{}).
		Joins("JOIN contracts ON contracts.id = contract_documents.contract_id").
		Where("contracts.client_id = ?", clientID).
		Pluck("contract_documents.storage_path", &paths).Error
	return paths, err
}

// StoragePathsForContract lists the blobs behind every document of a contract
func (r *DocumentRepository) StoragePathsForContract(ctx context.Context, contractID uuid.UUID) ([]string, error) {
	var paths []string
	err := GetDB(ctx, r.db).Model(&domain.ContractDocument{}).
		Where("contract_id = ?", contractID).
		Pluck("storage_path", &paths).Error
	return paths, err
}

func (r *DocumentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Delete(&domain.ContractDocument{}, "id = ?", id).Error
}
