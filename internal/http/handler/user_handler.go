package handler

import (
	"net/http"

	"github.com/straye-as/crm-api/internal/auth"
	"github.com/straye-as/crm-api/internal/domain"
	"github.com/straye-as/crm-api/internal/service"
	"go.uber.org/zap"
)

type UserHandler struct {
	userService *service.UserService
	logger      *zap.Logger
}

func NewUserHandler(userService *service.UserService, logger *zap.Logger) *UserHandler {
	return &UserHandler{
		userService: userService,
		logger:      logger,
	}
}

// Me godoc
// @Summary Current principal
// @Description Returns the authenticated staff member and its role
// @Tags Users
// @Produce json
// @Success 200 {object} domain.PrincipalDTO
// @Failure 401 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /me [get]
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	p, ok := auth.FromContext(r.Context())
	if !ok {
		respondWithError(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}
	respondJSON(w, r, http.StatusOK, domain.PrincipalDTO{ID: p.ID, Name: p.Name, Role: p.Role})
}

// List godoc
// @Summary List users
// @Tags Users
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Items per page (max 200)" default(20)
// @Param firstName query string false "Filter by first name (contains)"
// @Param lastName query string false "Filter by last name (contains)"
// @Param role query string false "Filter by role" Enums(sales, support, management)
// @Param sortBy query string false "Sort field" Enums(username, firstName, lastName, role, createdAt)
// @Param sortOrder query string false "Sort order" Enums(asc, desc)
// @Success 200 {object} domain.PaginatedResponse{data=[]domain.UserDTO}
// @Failure 401 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /users [get]
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	page, pageSize := pagination(r)
	q := r.URL.Query()
	filters := domain.UserFilters{
		FirstName: q.Get("firstName"),
		LastName:  q.Get("lastName"),
		Role:      domain.Role(q.Get("role")),
	}

	result, err := h.userService.List(r.Context(), filters, sortConfig(r), page, pageSize)
	if err != nil {
		respondServiceError(w, r, h.logger, err, "list users")
		return
	}
	respondJSON(w, r, http.StatusOK, result)
}

// GetByID godoc
// @Summary Get user
// @Tags Users
// @Produce json
// @Param userID path string true "User ID"
// @Success 200 {object} domain.UserDTO
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /users/{userID} [get]
func (h *UserHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "userID")
	if !ok {
		return
	}

	user, err := h.userService.GetByID(r.Context(), id)
	if err != nil {
		respondServiceError(w, r, h.logger, err, "get user")
		return
	}
	respondJSON(w, r, http.StatusOK, user)
}

// Create godoc
// @Summary Create user
// @Description Management only. Usernames are unique.
// @Tags Users
// @Accept json
// @Produce json
// @Param request body domain.CreateUserRequest true "User"
// @Success 201 {object} domain.UserDTO
// @Failure 400 {object} domain.APIError
// @Failure 403 {object} domain.APIError
// @Failure 409 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /users [post]
func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateUserRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	user, err := h.userService.Create(r.Context(), &req)
	if err != nil {
		respondServiceError(w, r, h.logger, err, "create user")
		return
	}
	respondJSON(w, r, http.StatusCreated, user)
}

// Update godoc
// @Summary Update user
// @Description Management only. The role cannot change.
// @Tags Users
// @Accept json
// @Produce json
// @Param userID path string true "User ID"
// @Param request body domain.UpdateUserRequest true "Changes"
// @Success 200 {object} domain.UserDTO
// @Failure 400 {object} domain.APIError
// @Failure 403 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /users/{userID} [patch]
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "userID")
	if !ok {
		return
	}
	var req domain.UpdateUserRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	user, err := h.userService.Update(r.Context(), id, &req)
	if err != nil {
		respondServiceError(w, r, h.logger, err, "update user")
		return
	}
	respondJSON(w, r, http.StatusOK, user)
}

// Delete godoc
// @Summary Delete user
// @Description Management only. Owned records keep existing without an owner.
// @Tags Users
// @Param userID path string true "User ID"
// @Success 204
// @Failure 400 {object} domain.APIError
// @Failure 403 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /users/{userID} [delete]
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "userID")
	if !ok {
		return
	}

	if err := h.userService.Delete(r.Context(), id); err != nil {
		respondServiceError(w, r, h.logger, err, "delete user")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
