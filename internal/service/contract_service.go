package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/straye-as/crm-api/internal/auth"
	"github.com/straye-as/crm-api/internal/domain"
	"github.com/straye-as/crm-api/internal/mapper"
	"github.com/straye-as/crm-api/internal/notify"
	"github.com/straye-as/crm-api/internal/policy"
	"github.com/straye-as/crm-api/internal/repository"
	"github.com/straye-as/crm-api/internal/storage"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ContractService handles contracts nested below a client
type ContractService struct {
	contractRepo *repository.ContractRepository
	eventRepo    *repository.EventRepository
	userRepo     *repository.UserRepository
	documentRepo *repository.DocumentRepository
	parents      parents
	txManager    repository.TransactionManager
	storage      storage.Storage
	notifier     notifier
	logger       *zap.Logger
}

func NewContractService(
	clientRepo *repository.ClientRepository,
	contractRepo *repository.ContractRepository,
	eventRepo *repository.EventRepository,
	userRepo *repository.UserRepository,
	documentRepo *repository.DocumentRepository,
	txManager repository.TransactionManager,
	store storage.Storage,
	publisher notify.Publisher,
	logger *zap.Logger,
) *ContractService {
	return &ContractService{
		contractRepo: contractRepo,
		eventRepo:    eventRepo,
		userRepo:     userRepo,
		documentRepo: documentRepo,
		parents:      parents{clients: clientRepo, contracts: contractRepo},
		txManager:    txManager,
		storage:      store,
		notifier:     notifier{publisher: publisher, logger: logger},
		logger:       logger,
	}
}

func (s *ContractService) List(ctx context.Context, clientID uuid.UUID, filters domain.ContractFilters, sort repository.SortConfig, page, pageSize int) (*domain.PaginatedResponse, error) {
	p, err := principalFrom(ctx)
	if err != nil {
		return nil, err
	}
	if err := policy.Authorize(p.Actor(), policy.EntityContract, policy.OpList); err != nil {
		return nil, err
	}
	if _, err := s.parents.visibleClient(ctx, p.Actor(), clientID); err != nil {
		return nil, err
	}

	page, pageSize = normalizePage(page, pageSize)
	scope := policy.Resolve(p.Actor(), policy.EntityContract, policy.PathScope{ClientID: &clientID})
	contracts, total, err := s.contractRepo.List(ctx, scope, filters, sort, page, pageSize)
	if err != nil {
		return nil, translate(err, "contract", "list contracts")
	}

	shape := policy.ShapeFor(p.Role, policy.EntityContract, policy.OpList)
	data := make([]interface{}, len(contracts))
	for i := range contracts {
		data[i] = mapper.ToContract(&contracts[i], shape)
	}
	return paginated(data, total, page, pageSize), nil
}

func (s *ContractService) GetByID(ctx context.Context, clientID, id uuid.UUID) (interface{}, error) {
	p, err := principalFrom(ctx)
	if err != nil {
		return nil, err
	}
	if err := policy.Authorize(p.Actor(), policy.EntityContract, policy.OpRetrieve); err != nil {
		return nil, err
	}
	if _, err := s.parents.visibleClient(ctx, p.Actor(), clientID); err != nil {
		return nil, err
	}
	contract, err := s.parents.visibleContract(ctx, p.Actor(), clientID, id)
	if err != nil {
		return nil, err
	}
	return s.render(ctx, p, contract, policy.OpRetrieve)
}

func (s *ContractService) render(ctx context.Context, p *auth.Principal, contract *domain.Contract, op policy.Operation) (interface{}, error) {
	shape := policy.ShapeFor(p.Role, policy.EntityContract, op)
	if shape == policy.ShapeDetail {
		event, err := s.eventRepo.GetByContractID(ctx, contract.ID)
		switch {
		case err == nil:
			contract.Event = event
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return nil, translate(err, "event", "load contract event")
		}
	}
	return mapper.ToContract(contract, shape), nil
}

// Create opens a contract on the path client. Only the client's sales
// contact may do so and becomes the contract's sales contact.
func (s *ContractService) Create(ctx context.Context, clientID uuid.UUID, req *domain.CreateContractRequest) (interface{}, error) {
	p, err := principalFrom(ctx)
	if err != nil {
		return nil, err
	}
	if err := policy.Authorize(p.Actor(), policy.EntityContract, policy.OpCreate); err != nil {
		logRejection(s.logger, "contract.create", p, err)
		return nil, err
	}
	req.Strip(policy.Writable(p.Role, policy.EntityContract, policy.OpCreate).Allows)

	var contract *domain.Contract
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		client, err := s.parents.existingClient(txCtx, clientID)
		if err != nil {
			return err
		}
		if err := policy.CheckContractCreate(p.Actor(), client, req.Amount); err != nil {
			return err
		}

		contract = &domain.Contract{
			Amount:         req.Amount,
			PaymentDue:     req.PaymentDue,
			Signed:         req.Signed,
			SalesContactID: p.UserID(),
			ClientID:       client.ID,
		}
		return translate(s.contractRepo.Create(txCtx, contract), "contract", "create contract")
	})
	if err != nil {
		logRejection(s.logger, "contract.create", p, err)
		return nil, err
	}

	s.logger.Info("contract created",
		zap.String("contract_id", contract.ID.String()),
		zap.String("client_id", clientID.String()),
		zap.String("by", p.ID.String()))
	s.notifier.send(notify.New(notify.ContractCreated, contract.ID, contract.ClientID, p.ID,
		map[string]interface{}{"amount": contract.Amount.String(), "signed": contract.Signed}))
	if contract.Signed {
		s.notifier.send(notify.New(notify.ContractSigned, contract.ID, contract.ClientID, p.ID, nil))
	}

	return s.render(ctx, p, contract, policy.OpCreate)
}

// Update changes the contract terms. Link fields sent along are validated
// exactly as on the assignment endpoint; a refused link fails the whole
// update.
func (s *ContractService) Update(ctx context.Context, clientID, id uuid.UUID, req *domain.UpdateContractRequest) (interface{}, error) {
	p, err := principalFrom(ctx)
	if err != nil {
		return nil, err
	}
	if err := policy.Authorize(p.Actor(), policy.EntityContract, policy.OpUpdate); err != nil {
		logRejection(s.logger, "contract.update", p, err)
		return nil, err
	}
	links := req.Reassignment()
	req.Strip(policy.Writable(p.Role, policy.EntityContract, policy.OpUpdate).Allows)

	var contract *domain.Contract
	var signedNow, reassigned bool
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		current, err := s.loadForWrite(txCtx, p, clientID, id)
		if err != nil {
			return err
		}
		if err := policy.CheckContractUpdate(current, req.Amount, req.Signed); err != nil {
			return err
		}

		updates := map[string]interface{}{}
		if req.Amount != nil {
			updates["amount"] = *req.Amount
		}
		if req.PaymentDue != nil {
			updates["payment_due"] = *req.PaymentDue
		}
		if req.Signed != nil {
			updates["signed"] = *req.Signed
			signedNow = *req.Signed && !current.Signed
		}

		linkUpdates, movedTo, err := s.reassignment(txCtx, p, current, links)
		if err != nil {
			return err
		}
		for k, v := range linkUpdates {
			updates[k] = v
		}
		reassigned = len(linkUpdates) > 0

		if err := s.write(txCtx, id, updates, movedTo); err != nil {
			return err
		}
		contract, err = s.contractRepo.GetByID(txCtx, id)
		return translate(err, "contract", "reload contract")
	})
	if err != nil {
		logRejection(s.logger, "contract.update", p, err)
		return nil, err
	}

	s.logger.Info("contract updated", zap.String("contract_id", id.String()), zap.String("by", p.ID.String()))
	if signedNow {
		s.notifier.send(notify.New(notify.ContractSigned, contract.ID, contract.ClientID, p.ID, nil))
	}
	if reassigned {
		s.notifier.send(notify.New(notify.ContractReassigned, contract.ID, contract.ClientID, p.ID, contractLinkData(contract)))
	}
	return s.render(ctx, p, contract, policy.OpUpdate)
}

// Reassign moves the contract to another sales contact, another client, or
// both in one write. An empty request returns the contract unchanged.
func (s *ContractService) Reassign(ctx context.Context, clientID, id uuid.UUID, req *domain.ReassignContractRequest) (interface{}, error) {
	p, err := principalFrom(ctx)
	if err != nil {
		return nil, err
	}
	if err := policy.Authorize(p.Actor(), policy.EntityContract, policy.OpReassign); err != nil {
		logRejection(s.logger, "contract.reassign", p, err)
		return nil, err
	}

	var contract *domain.Contract
	var changed bool
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		current, err := s.loadForWrite(txCtx, p, clientID, id)
		if err != nil {
			return err
		}
		updates, movedTo, err := s.reassignment(txCtx, p, current, *req)
		if err != nil {
			return err
		}
		if len(updates) == 0 {
			contract = current
			return nil
		}
		if err := s.write(txCtx, id, updates, movedTo); err != nil {
			return err
		}
		changed = true
		contract, err = s.contractRepo.GetByID(txCtx, id)
		return translate(err, "contract", "reload contract")
	})
	if err != nil {
		logRejection(s.logger, "contract.reassign", p, err)
		return nil, err
	}

	if changed {
		s.logger.Info("contract reassigned",
			zap.String("contract_id", id.String()),
			zap.Stringp("sales_contact_id", uuidString(contract.SalesContactID)),
			zap.String("client_id", contract.ClientID.String()),
			zap.String("by", p.ID.String()))
		s.notifier.send(notify.New(notify.ContractReassigned, contract.ID, contract.ClientID, p.ID, contractLinkData(contract)))
	}
	return s.render(ctx, p, contract, policy.OpReassign)
}

func (s *ContractService) loadForWrite(ctx context.Context, p *auth.Principal, clientID, id uuid.UUID) (*domain.Contract, error) {
	if _, err := s.parents.visibleClient(ctx, p.Actor(), clientID); err != nil {
		return nil, err
	}
	return s.parents.visibleContract(ctx, p.Actor(), clientID, id)
}

// reassignment resolves and validates the link part of a request. It returns
// the columns to write and, when the client changes, the new client id.
func (s *ContractService) reassignment(ctx context.Context, p *auth.Principal, current *domain.Contract, req domain.ReassignContractRequest) (map[string]interface{}, *uuid.UUID, error) {
	updates := map[string]interface{}{}
	if req.IsEmpty() {
		return updates, nil, nil
	}

	var target *domain.User
	if req.SalesContactID != nil {
		u, err := s.userRepo.GetByID(ctx, *req.SalesContactID)
		if err != nil {
			return nil, nil, translate(err, "user", "load sales contact")
		}
		target = u
	}
	var client *domain.Client
	if req.ClientID != nil {
		c, err := s.parents.existingClient(ctx, *req.ClientID)
		if err != nil {
			return nil, nil, err
		}
		client = c
	}

	if err := policy.CheckContractReassign(p.Actor(), target, client); err != nil {
		return nil, nil, err
	}

	if target != nil && !sameOwner(current.SalesContactID, target.ID) {
		updates["sales_contact_id"] = target.ID
	}
	var movedTo *uuid.UUID
	if client != nil && client.ID != current.ClientID {
		updates["client_id"] = client.ID
		movedTo = &client.ID
	}
	return updates, movedTo, nil
}

// write applies updates and keeps the contract's event on the same client
func (s *ContractService) write(ctx context.Context, id uuid.UUID, updates map[string]interface{}, movedTo *uuid.UUID) error {
	if err := s.contractRepo.Update(ctx, id, updates); err != nil {
		return translate(err, "contract", "update contract")
	}
	if movedTo != nil {
		if err := s.eventRepo.MoveToClient(ctx, id, *movedTo); err != nil {
			return translate(err, "event", "move event")
		}
	}
	return nil
}

// Delete removes the contract with its event and documents
func (s *ContractService) Delete(ctx context.Context, clientID, id uuid.UUID) error {
	p, err := principalFrom(ctx)
	if err != nil {
		return err
	}
	if err := policy.Authorize(p.Actor(), policy.EntityContract, policy.OpDelete); err != nil {
		logRejection(s.logger, "contract.delete", p, err)
		return err
	}

	var blobs []string
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if _, err := s.loadForWrite(txCtx, p, clientID, id); err != nil {
			return err
		}
		paths, err := s.documentRepo.StoragePathsForContract(txCtx, id)
		if err != nil {
			return translate(err, "document", "list contract documents")
		}
		blobs = paths
		return translate(s.contractRepo.Delete(txCtx, id), "contract", "delete contract")
	})
	if err != nil {
		return err
	}

	s.logger.Info("contract deleted", zap.String("contract_id", id.String()), zap.String("by", p.ID.String()))
	removeBlobs(ctx, s.storage, s.logger, blobs)
	return nil
}

func contractLinkData(c *domain.Contract) map[string]interface{} {
	data := ownerData(c.SalesContactID)
	data["clientId"] = c.ClientID.String()
	return data
}

func uuidString(id *uuid.UUID) *string {
	if id == nil {
		return nil
	}
	s := id.String()
	return &s
}
