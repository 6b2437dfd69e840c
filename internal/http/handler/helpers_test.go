package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/straye-as/crm-api/internal/auth"
	"github.com/straye-as/crm-api/internal/domain"
	"github.com/straye-as/crm-api/internal/http/handler"
	"github.com/straye-as/crm-api/internal/notify"
	"github.com/straye-as/crm-api/internal/repository"
	"github.com/straye-as/crm-api/internal/service"
	"github.com/straye-as/crm-api/internal/storage"
	"github.com/straye-as/crm-api/internal/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const maxUpload = 64 << 10

// env seeds the same small world for every handler test: alice owns acme,
// bob owns globex, both with a signed contract; sam supports the acme event.
type env struct {
	db *gorm.DB

	users     *handler.UserHandler
	clients   *handler.ClientHandler
	contracts *handler.ContractHandler
	events    *handler.EventHandler
	documents *handler.DocumentHandler
	audit     *handler.AuditHandler
	health    *handler.HealthHandler

	auditService *service.AuditLogService

	alice, bob, sam, boss *domain.User

	acme, globex         *domain.Client
	acmeDeal, globexDeal *domain.Contract
	acmeEvent            *domain.Event
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db := testutil.SetupTestDB(t)
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	logger := zap.NewNop()
	pub := notify.Noop{}
	userRepo := repository.NewUserRepository(db)
	clientRepo := repository.NewClientRepository(db)
	contractRepo := repository.NewContractRepository(db)
	eventRepo := repository.NewEventRepository(db)
	documentRepo := repository.NewDocumentRepository(db)
	tx := repository.NewTransactionManager(db)
	auditService := service.NewAuditLogService(repository.NewAuditLogRepository(db), logger)

	e := &env{
		db:           db,
		users:        handler.NewUserHandler(service.NewUserService(userRepo, logger), logger),
		clients:      handler.NewClientHandler(service.NewClientService(clientRepo, contractRepo, userRepo, documentRepo, tx, store, pub, logger), logger),
		contracts:    handler.NewContractHandler(service.NewContractService(clientRepo, contractRepo, eventRepo, userRepo, documentRepo, tx, store, pub, logger), logger),
		events:       handler.NewEventHandler(service.NewEventService(clientRepo, contractRepo, eventRepo, userRepo, tx, pub, logger), logger),
		documents:    handler.NewDocumentHandler(service.NewDocumentService(clientRepo, contractRepo, documentRepo, store, maxUpload, logger), maxUpload, logger),
		audit:        handler.NewAuditHandler(auditService, logger),
		health:       handler.NewHealthHandler(db, logger),
		auditService: auditService,
	}

	e.alice = testutil.CreateUser(t, db, "alice", domain.RoleSales)
	e.bob = testutil.CreateUser(t, db, "bob", domain.RoleSales)
	e.sam = testutil.CreateUser(t, db, "sam", domain.RoleSupport)
	e.boss = testutil.CreateUser(t, db, "boss", domain.RoleManagement)

	e.acme = testutil.CreateClient(t, db, "acme", e.alice)
	e.globex = testutil.CreateClient(t, db, "globex", e.bob)
	e.acmeDeal = testutil.CreateContract(t, db, e.acme, e.alice, true)
	e.globexDeal = testutil.CreateContract(t, db, e.globex, e.bob, true)
	e.acmeEvent = testutil.CreateEvent(t, db, e.acmeDeal, e.sam)
	return e
}

func principal(u *domain.User) *auth.Principal {
	return &auth.Principal{ID: u.ID, Name: u.FullName(), Role: u.Role, Method: auth.MethodJWT}
}

// call runs h as u. params are route parameter name/value pairs; body is
// JSON encoded unless it already is a reader.
func call(t *testing.T, h http.HandlerFunc, u *domain.User, method, target string, body interface{}, params ...string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case io.Reader:
		reader = b
	case string:
		reader = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, target, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return serve(h, u, req, params...)
}

// serve attaches the route parameters and u's principal to req and runs h
func serve(h http.HandlerFunc, u *domain.User, req *http.Request, params ...string) *httptest.ResponseRecorder {
	rctx := chi.NewRouteContext()
	for i := 0; i+1 < len(params); i += 2 {
		rctx.URLParams.Add(params[i], params[i+1])
	}
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, rctx)
	if u != nil {
		ctx = auth.WithPrincipal(ctx, principal(u))
	}

	rr := httptest.NewRecorder()
	h(rr, req.WithContext(ctx))
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), dst), rr.Body.String())
}

func apiError(t *testing.T, rr *httptest.ResponseRecorder) domain.APIError {
	t.Helper()
	var apiErr domain.APIError
	decode(t, rr, &apiErr)
	return apiErr
}
