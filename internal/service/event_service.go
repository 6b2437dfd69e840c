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
	"go.uber.org/zap"
)

// EventService handles the single event of a signed contract
type EventService struct {
	eventRepo *repository.EventRepository
	userRepo  *repository.UserRepository
	parents   parents
	txManager repository.TransactionManager
	notifier  notifier
	logger    *zap.Logger
}

func NewEventService(
	clientRepo *repository.ClientRepository,
	contractRepo *repository.ContractRepository,
	eventRepo *repository.EventRepository,
	userRepo *repository.UserRepository,
	txManager repository.TransactionManager,
	publisher notify.Publisher,
	logger *zap.Logger,
) *EventService {
	return &EventService{
		eventRepo: eventRepo,
		userRepo:  userRepo,
		parents:   parents{clients: clientRepo, contracts: contractRepo},
		txManager: txManager,
		notifier:  notifier{publisher: publisher, logger: logger},
		logger:    logger,
	}
}

func (s *EventService) List(ctx context.Context, clientID, contractID uuid.UUID, filters domain.EventFilters, sort repository.SortConfig, page, pageSize int) (*domain.PaginatedResponse, error) {
	p, err := principalFrom(ctx)
	if err != nil {
		return nil, err
	}
	if err := policy.Authorize(p.Actor(), policy.EntityEvent, policy.OpList); err != nil {
		return nil, err
	}
	if err := s.checkPath(ctx, p, clientID, contractID); err != nil {
		return nil, err
	}

	page, pageSize = normalizePage(page, pageSize)
	scope := policy.Resolve(p.Actor(), policy.EntityEvent, policy.PathScope{ClientID: &clientID, ContractID: &contractID})
	events, total, err := s.eventRepo.List(ctx, scope, filters, sort, page, pageSize)
	if err != nil {
		return nil, translate(err, "event", "list events")
	}

	shape := policy.ShapeFor(p.Role, policy.EntityEvent, policy.OpList)
	data := make([]interface{}, len(events))
	for i := range events {
		data[i] = mapper.ToEvent(&events[i], shape)
	}
	return paginated(data, total, page, pageSize), nil
}

func (s *EventService) GetByID(ctx context.Context, clientID, contractID, id uuid.UUID) (interface{}, error) {
	p, err := principalFrom(ctx)
	if err != nil {
		return nil, err
	}
	if err := policy.Authorize(p.Actor(), policy.EntityEvent, policy.OpRetrieve); err != nil {
		return nil, err
	}
	event, err := s.load(ctx, p, clientID, contractID, id)
	if err != nil {
		return nil, err
	}
	return mapper.ToEvent(event, policy.ShapeFor(p.Role, policy.EntityEvent, policy.OpRetrieve)), nil
}

// checkPath requires a visible client and a contract that belongs to it
func (s *EventService) checkPath(ctx context.Context, p *auth.Principal, clientID, contractID uuid.UUID) error {
	if _, err := s.parents.visibleClient(ctx, p.Actor(), clientID); err != nil {
		return err
	}
	_, err := s.parents.contractUnder(ctx, clientID, contractID)
	return err
}

func (s *EventService) load(ctx context.Context, p *auth.Principal, clientID, contractID, id uuid.UUID) (*domain.Event, error) {
	if err := s.checkPath(ctx, p, clientID, contractID); err != nil {
		return nil, err
	}
	scope := policy.Resolve(p.Actor(), policy.EntityEvent, policy.PathScope{ClientID: &clientID, ContractID: &contractID})
	event, err := s.eventRepo.GetScoped(ctx, scope, id)
	if err != nil {
		return nil, translate(err, "event", "get event")
	}
	return event, nil
}

// Create opens the event of a contract. The checks run in a fixed order and
// the first failure is returned.
func (s *EventService) Create(ctx context.Context, clientID, contractID uuid.UUID, req *domain.CreateEventRequest) (interface{}, error) {
	p, err := principalFrom(ctx)
	if err != nil {
		return nil, err
	}
	if err := policy.Authorize(p.Actor(), policy.EntityEvent, policy.OpCreate); err != nil {
		logRejection(s.logger, "event.create", p, err)
		return nil, err
	}
	req.Strip(policy.Writable(p.Role, policy.EntityEvent, policy.OpCreate).Allows)

	var event *domain.Event
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		contract, err := s.parents.contractUnder(txCtx, clientID, contractID)
		if err != nil {
			return err
		}
		client, err := s.parents.existingClient(txCtx, contract.ClientID)
		if err != nil {
			return err
		}
		hasEvent, err := s.eventRepo.ExistsForContract(txCtx, contract.ID)
		if err != nil {
			return translate(err, "event", "check contract event")
		}
		if err := policy.CheckEventCreate(p.Actor(), contract, client, hasEvent); err != nil {
			return err
		}

		status := req.Status
		if status == "" {
			status = domain.EventStatusTodo
		}
		event = &domain.Event{
			Title:      req.Title,
			Notes:      req.Notes,
			Attendees:  req.Attendees,
			Status:     status,
			EventDate:  req.EventDate,
			ClientID:   contract.ClientID,
			ContractID: contract.ID,
		}
		if err := s.eventRepo.Create(txCtx, event); err != nil {
			if isDuplicate(err) {
				return domain.Conflict(policy.MsgContractHasEvent)
			}
			return translate(err, "event", "create event")
		}
		return nil
	})
	if err != nil {
		logRejection(s.logger, "event.create", p, err)
		return nil, err
	}

	s.logger.Info("event created",
		zap.String("event_id", event.ID.String()),
		zap.String("contract_id", contractID.String()),
		zap.String("by", p.ID.String()))
	s.notifier.send(notify.New(notify.EventCreated, event.ID, event.ClientID, p.ID,
		map[string]interface{}{"contractId": event.ContractID.String(), "title": event.Title}))

	return mapper.ToEvent(event, policy.ShapeFor(p.Role, policy.EntityEvent, policy.OpCreate)), nil
}

// Update changes the event details. A request that also names a support
// contact, contract or client is refused as a whole for roles that may not
// relink events.
func (s *EventService) Update(ctx context.Context, clientID, contractID, id uuid.UUID, req *domain.UpdateEventRequest) (interface{}, error) {
	p, err := principalFrom(ctx)
	if err != nil {
		return nil, err
	}
	if err := policy.Authorize(p.Actor(), policy.EntityEvent, policy.OpUpdate); err != nil {
		logRejection(s.logger, "event.update", p, err)
		return nil, err
	}
	links := req.Reassignment()
	req.Strip(policy.Writable(p.Role, policy.EntityEvent, policy.OpUpdate).Allows)
	if req.Status != nil && !req.Status.IsValid() {
		return nil, domain.ValidationFailed(string(policy.FieldStatus), "Must be one of the allowed values")
	}
	if req.Attendees != nil && *req.Attendees < 0 {
		return nil, domain.ValidationFailed(string(policy.FieldAttendees), "must not be negative")
	}

	var event *domain.Event
	var relinked bool
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		current, err := s.load(txCtx, p, clientID, contractID, id)
		if err != nil {
			return err
		}

		updates := eventUpdates(req)
		linkUpdates, err := s.reassignment(txCtx, p, current, links)
		if err != nil {
			return err
		}
		for k, v := range linkUpdates {
			updates[k] = v
		}
		relinked = len(linkUpdates) > 0

		if err := s.write(txCtx, id, updates); err != nil {
			return err
		}
		event, err = s.eventRepo.GetScoped(txCtx, policy.Scope{Entity: policy.EntityEvent}, id)
		return translate(err, "event", "reload event")
	})
	if err != nil {
		logRejection(s.logger, "event.update", p, err)
		return nil, err
	}

	s.logger.Info("event updated", zap.String("event_id", id.String()), zap.String("by", p.ID.String()))
	if relinked {
		s.notifier.send(notify.New(notify.EventAssigned, event.ID, event.ClientID, p.ID, eventLinkData(event)))
	}
	return mapper.ToEvent(event, policy.ShapeFor(p.Role, policy.EntityEvent, policy.OpUpdate)), nil
}

// Reassign changes the support contact, contract or client of an event.
// Roles that may not touch these links are refused before anything is
// looked up, even when legal fields come along.
func (s *EventService) Reassign(ctx context.Context, clientID, contractID, id uuid.UUID, req *domain.ReassignEventRequest) (interface{}, error) {
	p, err := principalFrom(ctx)
	if err != nil {
		return nil, err
	}
	if err := policy.Authorize(p.Actor(), policy.EntityEvent, policy.OpReassign); err != nil {
		logRejection(s.logger, "event.reassign", p, err)
		return nil, err
	}

	var event *domain.Event
	var changed bool
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		current, err := s.load(txCtx, p, clientID, contractID, id)
		if err != nil {
			return err
		}
		updates, err := s.reassignment(txCtx, p, current, *req)
		if err != nil {
			return err
		}
		if len(updates) == 0 {
			event = current
			return nil
		}
		if err := s.write(txCtx, id, updates); err != nil {
			return err
		}
		changed = true
		event, err = s.eventRepo.GetScoped(txCtx, policy.Scope{Entity: policy.EntityEvent}, id)
		return translate(err, "event", "reload event")
	})
	if err != nil {
		logRejection(s.logger, "event.reassign", p, err)
		return nil, err
	}

	if changed {
		s.logger.Info("event reassigned",
			zap.String("event_id", id.String()),
			zap.Stringp("support_contact_id", uuidString(event.SupportContactID)),
			zap.String("contract_id", event.ContractID.String()),
			zap.String("by", p.ID.String()))
		s.notifier.send(notify.New(notify.EventAssigned, event.ID, event.ClientID, p.ID, eventLinkData(event)))
	}
	return mapper.ToEvent(event, policy.ShapeFor(p.Role, policy.EntityEvent, policy.OpReassign)), nil
}

// reassignment resolves and validates the link part of a request and
// returns the columns to write
func (s *EventService) reassignment(ctx context.Context, p *auth.Principal, current *domain.Event, req domain.ReassignEventRequest) (map[string]interface{}, error) {
	updates := map[string]interface{}{}
	if err := policy.CheckEventLinksAllowed(p.Actor(), !req.IsEmpty()); err != nil {
		return nil, err
	}
	if req.IsEmpty() {
		return updates, nil
	}

	change := policy.EventChange{}
	if req.SupportContactID != nil {
		u, err := s.userRepo.GetByID(ctx, *req.SupportContactID)
		if err != nil {
			return nil, translate(err, "user", "load support contact")
		}
		change.SupportContact = u
	}
	if req.ContractID != nil {
		c, err := s.parents.contracts.GetByID(ctx, *req.ContractID)
		if err != nil {
			return nil, translate(err, "contract", "load contract")
		}
		change.Contract = c
		if c.ID != current.ContractID {
			taken, err := s.eventRepo.ExistsForContract(ctx, c.ID)
			if err != nil {
				return nil, translate(err, "event", "check contract event")
			}
			change.ContractTaken = taken
		}
	}
	if req.ClientID != nil {
		c, err := s.parents.existingClient(ctx, *req.ClientID)
		if err != nil {
			return nil, err
		}
		change.Client = c
	}
	currentContract, err := s.parents.contracts.GetByID(ctx, current.ContractID)
	if err != nil {
		return nil, translate(err, "contract", "load current contract")
	}
	change.CurrentContract = currentContract

	if err := policy.CheckEventReassign(p.Actor(), change); err != nil {
		return nil, err
	}

	if u := change.SupportContact; u != nil && !sameOwner(current.SupportContactID, u.ID) {
		updates["support_contact_id"] = u.ID
	}
	if c := change.Contract; c != nil && c.ID != current.ContractID {
		updates["contract_id"] = c.ID
		if c.ClientID != current.ClientID {
			updates["client_id"] = c.ClientID
		}
	}
	return updates, nil
}

func (s *EventService) write(ctx context.Context, id uuid.UUID, updates map[string]interface{}) error {
	if err := s.eventRepo.Update(ctx, id, updates); err != nil {
		if isDuplicate(err) {
			return domain.Conflict(policy.MsgContractHasEvent)
		}
		return translate(err, "event", "update event")
	}
	return nil
}

// Delete removes the event; its contract stays
func (s *EventService) Delete(ctx context.Context, clientID, contractID, id uuid.UUID) error {
	p, err := principalFrom(ctx)
	if err != nil {
		return err
	}
	if err := policy.Authorize(p.Actor(), policy.EntityEvent, policy.OpDelete); err != nil {
		logRejection(s.logger, "event.delete", p, err)
		return err
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if _, err := s.load(txCtx, p, clientID, contractID, id); err != nil {
			return err
		}
		return translate(s.eventRepo.Delete(txCtx, id), "event", "delete event")
	})
	if err != nil {
		return err
	}

	s.logger.Info("event deleted", zap.String("event_id", id.String()), zap.String("by", p.ID.String()))
	return nil
}

func eventUpdates(req *domain.UpdateEventRequest) map[string]interface{} {
	updates := map[string]interface{}{}
	if req.Title != nil {
		updates["title"] = *req.Title
	}
	if req.Notes != nil {
		updates["notes"] = *req.Notes
	}
	if req.Attendees != nil {
		updates["attendees"] = *req.Attendees
	}
	if req.Status != nil {
		updates["status"] = *req.Status
	}
	if req.EventDate != nil {
		updates["event_date"] = *req.EventDate
	}
	return updates
}

func eventLinkData(e *domain.Event) map[string]interface{} {
	return map[string]interface{}{
		"supportContactId": uuidString(e.SupportContactID),
		"contractId":       e.ContractID.String(),
	}
}
