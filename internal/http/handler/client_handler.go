package handler

import (
	"net/http"

	"github.com/straye-as/crm-api/internal/domain"
	"github.com/straye-as/crm-api/internal/service"
	"go.uber.org/zap"
)

type ClientHandler struct {
	clientService *service.ClientService
	logger        *zap.Logger
}

func NewClientHandler(clientService *service.ClientService, logger *zap.Logger) *ClientHandler {
	return &ClientHandler{
		clientService: clientService,
		logger:        logger,
	}
}

// List godoc
// @Summary List clients
// @Description Sales staff see the clients they own, support staff the clients of events they support
// @Tags Clients
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Items per page (max 200)" default(20)
// @Param firstName query string false "Filter by first name (contains)"
// @Param lastName query string false "Filter by last name (contains)"
// @Param companyName query string false "Filter by company name (contains)"
// @Param sortBy query string false "Sort field" Enums(firstName, lastName, companyName, createdAt, updatedAt)
// @Param sortOrder query string false "Sort order" Enums(asc, desc)
// @Success 200 {object} domain.PaginatedResponse{data=[]domain.ClientListDTO}
// @Failure 401 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /clients [get]
func (h *ClientHandler) List(w http.ResponseWriter, r *http.Request) {
	page, pageSize := pagination(r)
	q := r.URL.Query()
	filters := domain.ClientFilters{
		FirstName:   q.Get("firstName"),
		LastName:    q.Get("lastName"),
		CompanyName: q.Get("companyName"),
	}

	result, err := h.clientService.List(r.Context(), filters, sortConfig(r), page, pageSize)
	if err != nil {
		respondServiceError(w, r, h.logger, err, "list clients")
		return
	}
	respondJSON(w, r, http.StatusOK, result)
}

// GetByID godoc
// @Summary Get client
// @Description Includes the contracts the caller may see. Support staff get contact fields only.
// @Tags Clients
// @Produce json
// @Param clientID path string true "Client ID"
// @Success 200 {object} domain.ClientDTO
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /clients/{clientID} [get]
func (h *ClientHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "clientID")
	if !ok {
		return
	}

	client, err := h.clientService.GetByID(r.Context(), id)
	if err != nil {
		respondServiceError(w, r, h.logger, err, "get client")
		return
	}
	respondJSON(w, r, http.StatusOK, client)
}

// Create godoc
// @Summary Create client
// @Description Sales staff always become the sales contact; management may name one
// @Tags Clients
// @Accept json
// @Produce json
// @Param request body domain.CreateClientRequest true "Client"
// @Success 201 {object} domain.ClientDTO
// @Failure 400 {object} domain.APIError
// @Failure 403 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /clients [post]
func (h *ClientHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateClientRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	client, err := h.clientService.Create(r.Context(), &req)
	if err != nil {
		respondServiceError(w, r, h.logger, err, "create client")
		return
	}
	respondJSON(w, r, http.StatusCreated, client)
}

// Update godoc
// @Summary Update client
// @Description Fields the caller's role may not write are ignored
// @Tags Clients
// @Accept json
// @Produce json
// @Param clientID path string true "Client ID"
// @Param request body domain.UpdateClientRequest true "Changes"
// @Success 200 {object} domain.ClientDTO
// @Failure 400 {object} domain.APIError
// @Failure 403 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /clients/{clientID} [patch]
func (h *ClientHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "clientID")
	if !ok {
		return
	}
	var req domain.UpdateClientRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	client, err := h.clientService.Update(r.Context(), id, &req)
	if err != nil {
		respondServiceError(w, r, h.logger, err, "update client")
		return
	}
	respondJSON(w, r, http.StatusOK, client)
}

// Reassign godoc
// @Summary Reassign client
// @Description Hands the client to another sales contact. Sales staff may only claim a client.
// @Tags Clients
// @Accept json
// @Produce json
// @Param clientID path string true "Client ID"
// @Param request body domain.ReassignClientRequest true "New sales contact"
// @Success 200 {object} domain.ClientDTO
// @Failure 400 {object} domain.APIError
// @Failure 403 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /clients/{clientID}/assignment [put]
func (h *ClientHandler) Reassign(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "clientID")
	if !ok {
		return
	}
	var req domain.ReassignClientRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	client, err := h.clientService.Reassign(r.Context(), id, &req)
	if err != nil {
		respondServiceError(w, r, h.logger, err, "reassign client")
		return
	}
	respondJSON(w, r, http.StatusOK, client)
}

// Delete godoc
// @Summary Delete client
// @Description Management only. Removes contracts, events and documents with it.
// @Tags Clients
// @Param clientID path string true "Client ID"
// @Success 204
// @Failure 403 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /clients/{clientID} [delete]
func (h *ClientHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "clientID")
	if !ok {
		return
	}

	if err := h.clientService.Delete(r.Context(), id); err != nil {
		respondServiceError(w, r, h.logger, err, "delete client")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
