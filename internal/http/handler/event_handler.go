package handler

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/straye-as/crm-api/internal/domain"
	"github.com/straye-as/crm-api/internal/service"
	"go.uber.org/zap"
)

type EventHandler struct {
	eventService *service.EventService
	logger       *zap.Logger
}

func NewEventHandler(eventService *service.EventService, logger *zap.Logger) *EventHandler {
	return &EventHandler{
		eventService: eventService,
		logger:       logger,
	}
}

// parents reads the client and contract route parameters
func parents(w http.ResponseWriter, r *http.Request) (uuid.UUID, uuid.UUID, bool) {
	clientID, ok := pathID(w, r, "clientID")
	if !ok {
		return uuid.Nil, uuid.Nil, false
	}
	contractID, ok := pathID(w, r, "contractID")
	if !ok {
		return uuid.Nil, uuid.Nil, false
	}
	return clientID, contractID, true
}

// List godoc
// @Summary List events of a contract
// @Tags Events
// @Produce json
// @Param clientID path string true "Client ID"
// @Param contractID path string true "Contract ID"
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Items per page (max 200)" default(20)
// @Param title query string false "Filter by title (contains)"
// @Param status query string false "Filter by status" Enums(todo, in_progress, completed)
// @Param eventDateGte query string false "Event on or after (RFC 3339 or YYYY-MM-DD)"
// @Param eventDateLte query string false "Event on or before (RFC 3339 or YYYY-MM-DD)"
// @Param sortBy query string false "Sort field" Enums(title, eventDate, status, attendees, createdAt)
// @Param sortOrder query string false "Sort order" Enums(asc, desc)
// @Success 200 {object} domain.PaginatedResponse{data=[]domain.EventListDTO}
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /clients/{clientID}/contracts/{contractID}/events [get]
func (h *EventHandler) List(w http.ResponseWriter, r *http.Request) {
	clientID, contractID, ok := parents(w, r)
	if !ok {
		return
	}

	q := &queryParser{r: r}
	filters := domain.EventFilters{
		Title:        r.URL.Query().Get("title"),
		Status:       r.URL.Query().Get("status"),
		EventDateGte: q.timeParam("eventDateGte"),
		EventDateLte: q.timeParam("eventDateLte"),
	}
	if q.err != nil {
		respondWithError(w, r, http.StatusBadRequest, q.err.Error())
		return
	}

	page, pageSize := pagination(r)
	result, err := h.eventService.List(r.Context(), clientID, contractID, filters, sortConfig(r), page, pageSize)
	if err != nil {
		respondServiceError(w, r, h.logger, err, "list events")
		return
	}
	respondJSON(w, r, http.StatusOK, result)
}

// GetByID godoc
// @Summary Get event
// @Tags Events
// @Produce json
// @Param clientID path string true "Client ID"
// @Param contractID path string true "Contract ID"
// @Param eventID path string true "Event ID"
// @Success 200 {object} domain.EventDTO
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /clients/{clientID}/contracts/{contractID}/events/{eventID} [get]
func (h *EventHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	clientID, contractID, ok := parents(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "eventID")
	if !ok {
		return
	}

	event, err := h.eventService.GetByID(r.Context(), clientID, contractID, id)
	if err != nil {
		respondServiceError(w, r, h.logger, err, "get event")
		return
	}
	respondJSON(w, r, http.StatusOK, event)
}

// Create godoc
// @Summary Create event
// @Description Requires a signed contract without an event. New events start without a support contact.
// @Tags Events
// @Accept json
// @Produce json
// @Param clientID path string true "Client ID"
// @Param contractID path string true "Contract ID"
// @Param request body domain.CreateEventRequest true "Event"
// @Success 201 {object} domain.EventDTO
// @Failure 400 {object} domain.APIError
// @Failure 403 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Failure 409 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /clients/{clientID}/contracts/{contractID}/events [post]
func (h *EventHandler) Create(w http.ResponseWriter, r *http.Request) {
	clientID, contractID, ok := parents(w, r)
	if !ok {
		return
	}
	var req domain.CreateEventRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	event, err := h.eventService.Create(r.Context(), clientID, contractID, &req)
	if err != nil {
		respondServiceError(w, r, h.logger, err, "create event")
		return
	}
	respondJSON(w, r, http.StatusCreated, event)
}

// Update godoc
// @Summary Update event
// @Tags Events
// @Accept json
// @Produce json
// @Param clientID path string true "Client ID"
// @Param contractID path string true "Contract ID"
// @Param eventID path string true "Event ID"
// @Param request body domain.UpdateEventRequest true "Changes"
// @Success 200 {object} domain.EventDTO
// @Failure 400 {object} domain.APIError
// @Failure 403 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Failure 409 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /clients/{clientID}/contracts/{contractID}/events/{eventID} [patch]
func (h *EventHandler) Update(w http.ResponseWriter, r *http.Request) {
	clientID, contractID, ok := parents(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "eventID")
	if !ok {
		return
	}
	var req domain.UpdateEventRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	event, err := h.eventService.Update(r.Context(), clientID, contractID, id, &req)
	if err != nil {
		respondServiceError(w, r, h.logger, err, "update event")
		return
	}
	respondJSON(w, r, http.StatusOK, event)
}

// Reassign godoc
// @Summary Reassign event
// @Description Sets the support contact, contract or client of an event
// @Tags Events
// @Accept json
// @Produce json
// @Param clientID path string true "Client ID"
// @Param contractID path string true "Contract ID"
// @Param eventID path string true "Event ID"
// @Param request body domain.ReassignEventRequest true "New links"
// @Success 200 {object} domain.EventDTO
// @Failure 400 {object} domain.APIError
// @Failure 403 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Failure 409 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /clients/{clientID}/contracts/{contractID}/events/{eventID}/assignment [put]
func (h *EventHandler) Reassign(w http.ResponseWriter, r *http.Request) {
	clientID, contractID, ok := parents(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "eventID")
	if !ok {
		return
	}
	var req domain.ReassignEventRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	event, err := h.eventService.Reassign(r.Context(), clientID, contractID, id, &req)
	if err != nil {
		respondServiceError(w, r, h.logger, err, "reassign event")
		return
	}
	respondJSON(w, r, http.StatusOK, event)
}

// Delete godoc
// @Summary Delete event
// @Tags Events
// @Param clientID path string true "Client ID"
// @Param contractID path string true "Contract ID"
// @Param eventID path string true "Event ID"
// @Success 204
// @Failure 403 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /clients/{clientID}/contracts/{contractID}/events/{eventID} [delete]
func (h *EventHandler) Delete(w http.ResponseWriter, r *http.Request) {
	clientID, contractID, ok := parents(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "eventID")
	if !ok {
		return
	}

	if err := h.eventService.Delete(r.Context(), clientID, contractID, id); err != nil {
		respondServiceError(w, r, h.logger, err, "delete event")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
