package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/straye-as/crm-api/internal/auth"
	"github.com/straye-as/crm-api/internal/domain"
	"github.com/straye-as/crm-api/internal/mapper"
	"github.com/straye-as/crm-api/internal/notify"
	"github.com/straye-as/crm-api/internal/policy"
	"github.com/straye-as/crm-api/internal/repository"
	"github.com/straye-as/crm-api/internal/storage"
	"go.uber.org/zap"
)

// ClientService applies the client rules: who sees which clients, who owns
// them and which fields each role may write.
type ClientService struct {
	clientRepo   *repository.ClientRepository
	contractRepo *repository.ContractRepository
	userRepo     *repository.UserRepository
	documentRepo *repository.DocumentRepository
	txManager    repository.TransactionManager
	storage      storage.Storage
	notifier     notifier
	logger       *zap.Logger
}

func NewClientService(
	clientRepo *repository.ClientRepository,
	contractRepo *repository.ContractRepository,
	userRepo *repository.UserRepository,
	documentRepo *repository.DocumentRepository,
	txManager repository.TransactionManager,
	store storage.Storage,
	publisher notify.Publisher,
	logger *zap.Logger,
) *ClientService {
	return &ClientService{
		clientRepo:   clientRepo,
		contractRepo: contractRepo,
		userRepo:     userRepo,
		documentRepo: documentRepo,
		txManager:    txManager,
		storage:      store,
		notifier:     notifier{publisher: publisher, logger: logger},
		logger:       logger,
	}
}

func (s *ClientService) List(ctx context.Context, filters domain.ClientFilters, sort repository.SortConfig, page, pageSize int) (*domain.PaginatedResponse, error) {
	p, err := principalFrom(ctx)
	if err != nil {
		return nil, err
	}
	if err := policy.Authorize(p.Actor(), policy.EntityClient, policy.OpList); err != nil {
		return nil, err
	}

	page, pageSize = normalizePage(page, pageSize)
	scope := policy.Resolve(p.Actor(), policy.EntityClient, policy.PathScope{})
	clients, total, err := s.clientRepo.List(ctx, scope, filters, sort, page, pageSize)
	if err != nil {
		return nil, translate(err, "client", "list clients")
	}

	shape := policy.ShapeFor(p.Role, policy.EntityClient, policy.OpList)
	return paginated(mapper.ToClients(clients, shape), total, page, pageSize), nil
}

func (s *ClientService) GetByID(ctx context.Context, id uuid.UUID) (interface{}, error) {
	p, err := principalFrom(ctx)
	if err != nil {
		return nil, err
	}
	if err := policy.Authorize(p.Actor(), policy.EntityClient, policy.OpRetrieve); err != nil {
		return nil, err
	}

	client, err := s.clientRepo.GetScoped(ctx, policy.Resolve(p.Actor(), policy.EntityClient, policy.PathScope{}), id)
	if err != nil {
		return nil, translate(err, "client", "get client")
	}
	return s.render(ctx, p, client, policy.OpRetrieve)
}

// render shapes client for p, embedding the contracts p may see
func (s *ClientService) render(ctx context.Context, p *auth.Principal, client *domain.Client, op policy.Operation) (interface{}, error) {
	shape := policy.ShapeFor(p.Role, policy.EntityClient, op)
	var contracts []domain.Contract
	if shape == policy.ShapeDetail {
		scope := policy.Resolve(p.Actor(), policy.EntityContract, policy.PathScope{ClientID: &client.ID})
		var err error
		contracts, err = s.contractRepo.ListVisible(ctx, scope)
		if err != nil {
			return nil, translate(err, "contract", "list client contracts")
		}
	}
	return mapper.ToClient(client, contracts, shape), nil
}

// Create stores a new client. Sales staff always become the owner;
// management may name a sales owner or leave it empty.
func (s *ClientService) Create(ctx context.Context, req *domain.CreateClientRequest) (interface{}, error) {
	p, err := principalFrom(ctx)
	if err != nil {
		return nil, err
	}
	if err := policy.Authorize(p.Actor(), policy.EntityClient, policy.OpCreate); err != nil {
		logRejection(s.logger, "client.create", p, err)
		return nil, err
	}
	req.Strip(policy.Writable(p.Role, policy.EntityClient, policy.OpCreate).Allows)

	client := &domain.Client{
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Email:       req.Email,
		Phone:       req.Phone,
		Mobile:      req.Mobile,
		CompanyName: req.CompanyName,
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var owner *domain.User
		if req.SalesContactID != nil {
			u, err := s.userRepo.GetByID(txCtx, *req.SalesContactID)
			if err != nil {
				return translate(err, "user", "load sales contact")
			}
			owner = u
		}
		ownerID, err := policy.ClientOwnerOnCreate(p.Actor(), owner)
		if err != nil {
			return err
		}
		client.SalesContactID = ownerID
		return translate(s.clientRepo.Create(txCtx, client), "client", "create client")
	})
	if err != nil {
		logRejection(s.logger, "client.create", p, err)
		return nil, err
	}

	s.logger.Info("client created",
		zap.String("client_id", client.ID.String()),
		zap.String("by", p.ID.String()))
	s.notifier.send(notify.New(notify.ClientCreated, client.ID, client.ID, p.ID, ownerData(client.SalesContactID)))

	return s.render(ctx, p, client, policy.OpCreate)
}

// Update applies the profile fields the caller's role may write and drops
// the rest. A changed sales contact is checked like a reassignment, and a
// refusal fails the whole update.
func (s *ClientService) Update(ctx context.Context, id uuid.UUID, req *domain.UpdateClientRequest) (interface{}, error) {
	p, err := principalFrom(ctx)
	if err != nil {
		return nil, err
	}
	if err := policy.Authorize(p.Actor(), policy.EntityClient, policy.OpUpdate); err != nil {
		logRejection(s.logger, "client.update", p, err)
		return nil, err
	}
	// the owner goes through the reassignment checks, never the field filter
	owner := req.SalesContactID
	req.Strip(policy.Writable(p.Role, policy.EntityClient, policy.OpUpdate).Allows)
	req.SalesContactID = owner

	var client *domain.Client
	var reassigned bool
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		current, err := s.clientRepo.GetScoped(txCtx, policy.Resolve(p.Actor(), policy.EntityClient, policy.PathScope{}), id)
		if err != nil {
			return translate(err, "client", "get client")
		}

		updates := clientUpdates(req)
		if req.SalesContactID != nil && !sameOwner(current.SalesContactID, *req.SalesContactID) {
			if err := s.checkReassign(txCtx, p, *req.SalesContactID); err != nil {
				return err
			}
			updates["sales_contact_id"] = *req.SalesContactID
			reassigned = true
		}
		if err := s.clientRepo.Update(txCtx, id, updates); err != nil {
			return translate(err, "client", "update client")
		}

		client, err = s.clientRepo.GetByID(txCtx, id)
		return translate(err, "client", "reload client")
	})
	if err != nil {
		logRejection(s.logger, "client.update", p, err)
		return nil, err
	}

	s.logger.Info("client updated", zap.String("client_id", id.String()), zap.String("by", p.ID.String()))
	if reassigned {
		s.notifier.send(notify.New(notify.ClientReassigned, client.ID, client.ID, p.ID, ownerData(client.SalesContactID)))
	}
	return s.render(ctx, p, client, policy.OpUpdate)
}

// Reassign hands the client to another sales contact
func (s *ClientService) Reassign(ctx context.Context, id uuid.UUID, req *domain.ReassignClientRequest) (interface{}, error) {
	p, err := principalFrom(ctx)
	if err != nil {
		return nil, err
	}
	if err := policy.Authorize(p.Actor(), policy.EntityClient, policy.OpReassign); err != nil {
		logRejection(s.logger, "client.reassign", p, err)
		return nil, err
	}
	if req.SalesContactID == nil {
		return nil, domain.ValidationFailed(string(policy.FieldSalesContactID), "This field is required")
	}
	target := *req.SalesContactID

	var client *domain.Client
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if _, err := s.clientRepo.GetScoped(txCtx, policy.Resolve(p.Actor(), policy.EntityClient, policy.PathScope{}), id); err != nil {
			return translate(err, "client", "get client")
		}
		if err := s.checkReassign(txCtx, p, target); err != nil {
			return err
		}
		if err := s.clientRepo.Update(txCtx, id, map[string]interface{}{"sales_contact_id": target}); err != nil {
			return translate(err, "client", "reassign client")
		}
		var err error
		client, err = s.clientRepo.GetByID(txCtx, id)
		return translate(err, "client", "reload client")
	})
	if err != nil {
		logRejection(s.logger, "client.reassign", p, err)
		return nil, err
	}

	s.logger.Info("client reassigned",
		zap.String("client_id", id.String()),
		zap.String("sales_contact_id", target.String()),
		zap.String("by", p.ID.String()))
	s.notifier.send(notify.New(notify.ClientReassigned, client.ID, client.ID, p.ID, ownerData(client.SalesContactID)))

	return s.render(ctx, p, client, policy.OpReassign)
}

func (s *ClientService) checkReassign(ctx context.Context, p *auth.Principal, targetID uuid.UUID) error {
	target, err := s.userRepo.GetByID(ctx, targetID)
	if err != nil {
		return translate(err, "user", "load sales contact")
	}
	return policy.CheckClientReassign(p.Actor(), target)
}

// Delete removes the client with its contracts, events and documents
func (s *ClientService) Delete(ctx context.Context, id uuid.UUID) error {
	p, err := principalFrom(ctx)
	if err != nil {
		return err
	}
	if err := policy.Authorize(p.Actor(), policy.EntityClient, policy.OpDelete); err != nil {
		logRejection(s.logger, "client.delete", p, err)
		return err
	}

	var blobs []string
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if _, err := s.clientRepo.GetScoped(txCtx, policy.Resolve(p.Actor(), policy.EntityClient, policy.PathScope{}), id); err != nil {
			return translate(err, "client", "get client")
		}
		paths, err := s.documentRepo.StoragePathsForClient(txCtx, id)
		if err != nil {
			return translate(err, "document", "list client documents")
		}
		blobs = paths
		return translate(s.clientRepo.Delete(txCtx, id), "client", "delete client")
	})
	if err != nil {
		return err
	}

	s.logger.Info("client deleted", zap.String("client_id", id.String()), zap.String("by", p.ID.String()))
	removeBlobs(ctx, s.storage, s.logger, blobs)
	return nil
}

func clientUpdates(req *domain.UpdateClientRequest) map[string]interface{} {
	updates := map[string]interface{}{}
	if req.FirstName != nil {
		updates["first_name"] = *req.FirstName
	}
	if req.LastName != nil {
		updates["last_name"] = *req.LastName
	}
	if req.Email != nil {
		updates["email"] = *req.Email
	}
	if req.Phone != nil {
		updates["phone"] = *req.Phone
	}
	if req.Mobile != nil {
		updates["mobile"] = *req.Mobile
	}
	if req.CompanyName != nil {
		updates["company_name"] = *req.CompanyName
	}
	return updates
}

func sameOwner(current *uuid.UUID, next uuid.UUID) bool {
	return current != nil && *current == next
}

func ownerData(owner *uuid.UUID) map[string]interface{} {
	if owner == nil {
		return map[string]interface{}{"salesContactId": nil}
	}
	return map[string]interface{}{"salesContactId": owner.String()}
}

// removeBlobs deletes stored files after their rows are gone. Failures
// leave orphaned blobs behind and are only logged.
func removeBlobs(ctx context.Context, store storage.Storage, logger *zap.Logger, paths []string) {
	if store == nil {
		return
	}
	for _, path := range paths {
		if err := store.Delete(ctx, path); err != nil {
			logger.Warn("failed to delete stored document", zap.String("path", path), zap.Error(err))
		}
	}
}
