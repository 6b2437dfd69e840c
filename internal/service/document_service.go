package service

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/straye-as/crm-api/internal/auth"
	"github.com/straye-as/crm-api/internal/domain"
	"github.com/straye-as/crm-api/internal/mapper"
	"github.com/straye-as/crm-api/internal/policy"
	"github.com/straye-as/crm-api/internal/repository"
	"github.com/straye-as/crm-api/internal/storage"
	"go.uber.org/zap"
)

// DocumentService stores files attached to contracts, typically the signed copy
type DocumentService struct {
	documentRepo *repository.DocumentRepository
	parents      parents
	storage      storage.Storage
	maxSize      int64
	logger       *zap.Logger
}

// NewDocumentService creates a document service. maxSize is the upload
// limit in bytes, zero disables it.
func NewDocumentService(
	clientRepo *repository.ClientRepository,
	contractRepo *repository.ContractRepository,
	documentRepo *repository.DocumentRepository,
	store storage.Storage,
	maxSize int64,
	logger *zap.Logger,
) *DocumentService {
	return &DocumentService{
		documentRepo: documentRepo,
		parents:      parents{clients: clientRepo, contracts: contractRepo},
		storage:      store,
		maxSize:      maxSize,
		logger:       logger,
	}
}

func (s *DocumentService) contract(ctx context.Context, p *auth.Principal, clientID, contractID uuid.UUID) (*domain.Contract, error) {
	if _, err := s.parents.visibleClient(ctx, p.Actor(), clientID); err != nil {
		return nil, err
	}
	return s.parents.visibleContract(ctx, p.Actor(), clientID, contractID)
}

func (s *DocumentService) List(ctx context.Context, clientID, contractID uuid.UUID) ([]domain.ContractDocumentDTO, error) {
	p, err := principalFrom(ctx)
	if err != nil {
		return nil, err
	}
	if err := policy.Authorize(p.Actor(), policy.EntityDocument, policy.OpList); err != nil {
		return nil, err
	}
	if _, err := s.contract(ctx, p, clientID, contractID); err != nil {
		return nil, err
	}

	scope := policy.Resolve(p.Actor(), policy.EntityDocument, policy.PathScope{ClientID: &clientID, ContractID: &contractID})
	docs, err := s.documentRepo.List(ctx, scope)
	if err != nil {
		return nil, translate(err, "document", "list documents")
	}
	dtos := make([]domain.ContractDocumentDTO, len(docs))
	for i := range docs {
		dtos[i] = mapper.ToDocumentDTO(&docs[i])
	}
	return dtos, nil
}

func (s *DocumentService) get(ctx context.Context, p *auth.Principal, clientID, contractID, id uuid.UUID) (*domain.ContractDocument, error) {
	if _, err := s.contract(ctx, p, clientID, contractID); err != nil {
		return nil, err
	}
	scope := policy.Resolve(p.Actor(), policy.EntityDocument, policy.PathScope{ClientID: &clientID, ContractID: &contractID})
	doc, err := s.documentRepo.GetScoped(ctx, scope, id)
	if err != nil {
		return nil, translate(err, "document", "get document")
	}
	return doc, nil
}

// Download returns the document metadata and its content. The caller
// closes the reader.
func (s *DocumentService) Download(ctx context.Context, clientID, contractID, id uuid.UUID) (*domain.ContractDocument, io.ReadCloser, error) {
	p, err := principalFrom(ctx)
	if err != nil {
		return nil, nil, err
	}
	if err := policy.Authorize(p.Actor(), policy.EntityDocument, policy.OpRetrieve); err != nil {
		return nil, nil, err
	}
	doc, err := s.get(ctx, p, clientID, contractID, id)
	if err != nil {
		return nil, nil, err
	}

	reader, err := s.storage.Download(ctx, doc.StoragePath)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil, domain.NotFound("document content not found")
		}
		return nil, nil, fmt.Errorf("failed to download document: %w", err)
	}
	return doc, reader, nil
}

// Upload stores data and records it against the contract. size is the
// length announced by the client and is checked before anything is written.
func (s *DocumentService) Upload(ctx context.Context, clientID, contractID uuid.UUID, filename, contentType string, size int64, data io.Reader) (*domain.ContractDocumentDTO, error) {
	p, err := principalFrom(ctx)
	if err != nil {
		return nil, err
	}
	if err := policy.Authorize(p.Actor(), policy.EntityDocument, policy.OpCreate); err != nil {
		logRejection(s.logger, "document.upload", p, err)
		return nil, err
	}
	contract, err := s.contract(ctx, p, clientID, contractID)
	if err != nil {
		return nil, err
	}
	if filename == "" {
		return nil, domain.ValidationFailed(string(policy.FieldFile), "This field is required")
	}
	if s.maxSize > 0 && size > s.maxSize {
		return nil, domain.ValidationFailed(string(policy.FieldFile), fmt.Sprintf("file exceeds the maximum size of %d bytes", s.maxSize))
	}

	path, written, err := s.storage.Upload(ctx, contract.ID, filename, contentType, data)
	if err != nil {
		return nil, fmt.Errorf("failed to store document: %w", err)
	}

	doc := &domain.ContractDocument{
		ContractID:   contract.ID,
		Filename:     filename,
		ContentType:  contentType,
		Size:         written,
		StoragePath:  path,
		UploadedByID: p.UserID(),
	}
	if err := s.documentRepo.Create(ctx, doc); err != nil {
		removeBlobs(ctx, s.storage, s.logger, []string{path})
		return nil, translate(err, "document", "create document")
	}

	s.logger.Info("document uploaded",
		zap.String("document_id", doc.ID.String()),
		zap.String("contract_id", contract.ID.String()),
		zap.Int64("size", written),
		zap.String("by", p.ID.String()))

	dto := mapper.ToDocumentDTO(doc)
	return &dto, nil
}

func (s *DocumentService) Delete(ctx context.Context, clientID, contractID, id uuid.UUID) error {
	p, err := principalFrom(ctx)
	if err != nil {
		return err
	}
	if err := policy.Authorize(p.Actor(), policy.EntityDocument, policy.OpDelete); err != nil {
		logRejection(s.logger, "document.delete", p, err)
		return err
	}
	doc, err := s.get(ctx, p, clientID, contractID, id)
	if err != nil {
		return err
	}
	if err := s.documentRepo.Delete(ctx, doc.ID); err != nil {
		return translate(err, "document", "delete document")
	}

	s.logger.Info("document deleted", zap.String("document_id", doc.ID.String()), zap.String("by", p.ID.String()))
	removeBlobs(ctx, s.storage, s.logger, []string{doc.StoragePath})
	return nil
}
