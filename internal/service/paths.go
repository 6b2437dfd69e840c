package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/straye-as/crm-api/internal/domain"
	"github.com/straye-as/crm-api/internal/notify"
	"github.com/straye-as/crm-api/internal/policy"
	"github.com/straye-as/crm-api/internal/repository"
	"go.uber.org/zap"
)

// parents resolves the records named in a nested route. A parent that is
// missing or hidden from the actor is reported as NotFound.
type parents struct {
	clients   *repository.ClientRepository
	contracts *repository.ContractRepository
}

// visibleClient loads the path client if the actor can see it
func (p parents) visibleClient(ctx context.Context, actor policy.Actor, clientID uuid.UUID) (*domain.Client, error) {
	scope := policy.Resolve(actor, policy.EntityClient, policy.PathScope{})
	client, err := p.clients.GetScoped(ctx, scope, clientID)
	if err != nil {
		return nil, translate(err, "client", "load client")
	}
	return client, nil
}

// existingClient loads a client regardless of visibility
func (p parents) existingClient(ctx context.Context, clientID uuid.UUID) (*domain.Client, error) {
	client, err := p.clients.GetByID(ctx, clientID)
	if err != nil {
		return nil, translate(err, "client", "load client")
	}
	return client, nil
}

// contractUnder loads a contract of clientID regardless of visibility
func (p parents) contractUnder(ctx context.Context, clientID, contractID uuid.UUID) (*domain.Contract, error) {
	contract, err := p.contracts.GetByID(ctx, contractID)
	if err != nil {
		return nil, translate(err, "contract", "load contract")
	}
	if contract.ClientID != clientID {
		return nil, domain.NotFound("contract not found")
	}
	return contract, nil
}

// visibleContract loads a contract of clientID the actor can see
func (p parents) visibleContract(ctx context.Context, actor policy.Actor, clientID, contractID uuid.UUID) (*domain.Contract, error) {
	scope := policy.Resolve(actor, policy.EntityContract, policy.PathScope{ClientID: &clientID})
	contract, err := p.contracts.GetScoped(ctx, scope, contractID)
	if err != nil {
		return nil, translate(err, "contract", "load contract")
	}
	return contract, nil
}

// notifier publishes after commit and only logs failures
type notifier struct {
	publisher notify.Publisher
	logger    *zap.Logger
}

func (n notifier) send(e notify.Event) {
	if n.publisher == nil {
		return
	}
	if err := n.publisher.Publish(e); err != nil {
		n.logger.Warn("failed to publish notification",
			zap.String("type", string(e.Type)),
			zap.String("entity_id", e.EntityID.String()),
			zap.Error(err))
	}
}
