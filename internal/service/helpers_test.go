package service_test

import (
	"context"
	"sync"
	"testing"

	"github.com/straye-as/crm-api/internal/auth"
	"github.com/straye-as/crm-api/internal/domain"
	"github.com/straye-as/crm-api/internal/notify"
	"github.com/straye-as/crm-api/internal/repository"
	"github.com/straye-as/crm-api/internal/service"
	"github.com/straye-as/crm-api/internal/storage"
	"github.com/straye-as/crm-api/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const maxUpload = 1 << 20

type recordingPublisher struct {
	mu     sync.Mutex
	events []notify.Event
}

func (r *recordingPublisher) Publish(e notify.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recordingPublisher) Close() {}

func (r *recordingPublisher) types() []notify.Type {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]notify.Type, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}

func (r *recordingPublisher) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

// env wires every service against one in-memory database seeded with:
// alice owns acme, bob owns globex, initech has no owner; both owned
// clients have a signed contract; sam supports the acme event, the globex
// event has no support contact.
type env struct {
	db        *gorm.DB
	pub       *recordingPublisher
	store     storage.Storage
	users     *service.UserService
	clients   *service.ClientService
	contracts *service.ContractService
	events    *service.EventService
	documents *service.DocumentService
	audit     *service.AuditLogService

	alice, bob, sam, sue, boss *domain.User

	acme, globex, initech  *domain.Client
	acmeDeal, globexDeal   *domain.Contract
	acmeEvent, globexEvent *domain.Event
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db := testutil.SetupTestDB(t)
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	logger := zap.NewNop()
	pub := &recordingPublisher{}
	userRepo := repository.NewUserRepository(db)
	clientRepo := repository.NewClientRepository(db)
	contractRepo := repository.NewContractRepository(db)
	eventRepo := repository.NewEventRepository(db)
	documentRepo := repository.NewDocumentRepository(db)
	tx := repository.NewTransactionManager(db)

	e := &env{
		db:        db,
		pub:       pub,
		store:     store,
		users:     service.NewUserService(userRepo, logger),
		clients:   service.NewClientService(clientRepo, contractRepo, userRepo, documentRepo, tx, store, pub, logger),
		contracts: service.NewContractService(clientRepo, contractRepo, eventRepo, userRepo, documentRepo, tx, store, pub, logger),
		events:    service.NewEventService(clientRepo, contractRepo, eventRepo, userRepo, tx, pub, logger),
		documents: service.NewDocumentService(clientRepo, contractRepo, documentRepo, store, maxUpload, logger),
		audit:     service.NewAuditLogService(repository.NewAuditLogRepository(db), logger),
	}

	e.alice = testutil.CreateUser(t, db, "alice", domain.RoleSales)
	e.bob = testutil.CreateUser(t, db, "bob", domain.RoleSales)
	e.sam = testutil.CreateUser(t, db, "sam", domain.RoleSupport)
	e.sue = testutil.CreateUser(t, db, "sue", domain.RoleSupport)
	e.boss = testutil.CreateUser(t, db, "boss", domain.RoleManagement)

	e.acme = testutil.CreateClient(t, db, "acme", e.alice)
	e.globex = testutil.CreateClient(t, db, "globex", e.bob)
	e.initech = testutil.CreateClient(t, db, "initech", nil)

	e.acmeDeal = testutil.CreateContract(t, db, e.acme, e.alice, true)
	e.globexDeal = testutil.CreateContract(t, db, e.globex, e.bob, true)
	e.acmeEvent = testutil.CreateEvent(t, db, e.acmeDeal, e.sam)
	e.globexEvent = testutil.CreateEvent(t, db, e.globexDeal, nil)
	return e
}

func as(u *domain.User) context.Context {
	return auth.WithPrincipal(context.Background(), &auth.Principal{
		ID:     u.ID,
		Name:   u.FullName(),
		Role:   u.Role,
		Method: auth.MethodJWT,
	})
}

func (e *env) reloadEvent(t *testing.T, id interface{}) domain.Event {
	t.Helper()
	var event domain.Event
	require.NoError(t, e.db.First(&event, "id = ?", id).Error)
	return event
}

func (e *env) reloadClient(t *testing.T, id interface{}) domain.Client {
	t.Helper()
	var client domain.Client
	require.NoError(t, e.db.First(&client, "id = ?", id).Error)
	return client
}

func (e *env) reloadContract(t *testing.T, id interface{}) domain.Contract {
	t.Helper()
	var contract domain.Contract
	require.NoError(t, e.db.First(&contract, "id = ?", id).Error)
	return contract
}

// assertRule checks the kind and, when given, the reason of a rule error
func assertRule(t *testing.T, err error, kind domain.ErrorKind, reason string) {
	t.Helper()
	require.Error(t, err)
	re, ok := domain.AsRuleError(err)
	require.True(t, ok, "expected a rule error, got %v", err)
	assert.Equal(t, kind, re.Kind)
	if reason != "" {
		assert.Equal(t, reason, re.Reason)
	}
}
