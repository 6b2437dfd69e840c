package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/render"
	"github.com/google/uuid"
	"github.com/straye-as/crm-api/internal/config"
	"github.com/straye-as/crm-api/internal/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// PrincipalDirectory looks up the staff member a token belongs to. The
// stored role is authoritative, tokens carry no role.
type PrincipalDirectory interface {
	FindPrincipal(ctx context.Context, id uuid.UUID) (*domain.User, error)
}

// Middleware handles authentication for HTTP requests
type Middleware struct {
	jwtValidator *JWTValidator
	directory    PrincipalDirectory
	apiKey       string
	logger       *zap.Logger
}

// NewMiddleware creates a new authentication middleware
func NewMiddleware(cfg *config.AuthConfig, directory PrincipalDirectory, logger *zap.Logger) *Middleware {
	return &Middleware{
		jwtValidator: NewJWTValidator(cfg),
		directory:    directory,
		apiKey:       cfg.APIKey,
		logger:       logger,
	}
}

// Authenticate resolves the principal from X-API-Key or a bearer token
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		if apiKey := r.Header.Get("X-API-Key"); apiKey != "" {
			if !m.validateAPIKey(apiKey) {
				m.logger.Warn("invalid API key attempt",
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr),
				)
				unauthorized(w, r, "invalid API key")
				return
			}
			m.serve(next, w, r, systemPrincipal(), start)
			return
		}

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			unauthorized(w, r, "missing authorization header")
			return
		}
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			unauthorized(w, r, "invalid authorization header format")
			return
		}

		userID, err := m.jwtValidator.ValidateToken(parts[1])
		if err != nil {
			m.logger.Warn("token validation failed",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("remote_addr", r.RemoteAddr),
				zap.Error(err),
			)
			unauthorized(w, r, err.Error())
			return
		}

		user, err := m.directory.FindPrincipal(r.Context(), userID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				unauthorized(w, r, "unknown principal")
				return
			}
			m.logger.Error("failed to load principal", zap.String("user_id", userID.String()), zap.Error(err))
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, &domain.APIError{
				Type:   domain.ErrorTypeInternal,
				Title:  "Internal Server Error",
				Status: http.StatusInternalServerError,
			})
			return
		}

		m.serve(next, w, r, &Principal{
			ID:     user.ID,
			Name:   user.FullName(),
			Role:   user.Role,
			Method: MethodJWT,
		}, start)
	})
}

func (m *Middleware) serve(next http.Handler, w http.ResponseWriter, r *http.Request, p *Principal, start time.Time) {
	m.logger.Debug("request authenticated",
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.String("auth_type", string(p.Method)),
		zap.String("principal_id", p.ID.String()),
		zap.String("role", string(p.Role)),
		zap.Duration("auth_duration", time.Since(start)),
	)
	next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
}

// RequireRole lets only principals holding one of roles through
func (m *Middleware) RequireRole(roles ...domain.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := FromContext(r.Context())
			if !ok {
				unauthorized(w, r, "no principal")
				return
			}
			if !p.HasAnyRole(roles...) {
				render.Status(r, http.StatusForbidden)
				render.JSON(w, r, &domain.APIError{
					Type:   domain.ErrorTypeForbidden,
					Title:  "Forbidden",
					Status: http.StatusForbidden,
					Detail: "insufficient permissions",
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (m *Middleware) validateAPIKey(key string) bool {
	if m.apiKey == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(key), []byte(m.apiKey)) == 1
}

func unauthorized(w http.ResponseWriter, r *http.Request, detail string) {
	render.Status(r, http.StatusUnauthorized)
	render.JSON(w, r, &domain.APIError{
		Type:   domain.ErrorTypeUnauthorized,
		Title:  "Unauthorized",
		Status: http.StatusUnauthorized,
		Detail: detail,
	})
}
