package handler

import (
	"net/http"

	"github.com/straye-as/crm-api/internal/domain"
	"github.com/straye-as/crm-api/internal/service"
	"go.uber.org/zap"
)

type ContractHandler struct {
	contractService *service.ContractService
	logger          *zap.Logger
}

func NewContractHandler(contractService *service.ContractService, logger *zap.Logger) *ContractHandler {
	return &ContractHandler{
		contractService: contractService,
		logger:          logger,
	}
}

// List godoc
// @Summary List contracts of a client
// @Tags Contracts
// @Produce json
// @Param clientID path string true "Client ID"
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Items per page (max 200)" default(20)
// @Param amountGte query number false "Minimum amount"
// @Param amountLte query number false "Maximum amount"
// @Param paymentDueGte query string false "Payment due on or after (RFC 3339 or YYYY-MM-DD)"
// @Param paymentDueLte query string false "Payment due on or before (RFC 3339 or YYYY-MM-DD)"
// @Param signed query bool false "Filter by signature"
// @Param sortBy query string false "Sort field" Enums(amount, paymentDue, signed, createdAt, updatedAt)
// @Param sortOrder query string false "Sort order" Enums(asc, desc)
// @Success 200 {object} domain.PaginatedResponse{data=[]domain.ContractListDTO}
// @Failure 400 {object} domain.APIError
// @Failure 403 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /clients/{clientID}/contracts [get]
func (h *ContractHandler) List(w http.ResponseWriter, r *http.Request) {
	clientID, ok := pathID(w, r, "clientID")
	if !ok {
		return
	}

	q := &queryParser{r: r}
	filters := domain.ContractFilters{
		AmountGte:     q.decimalParam("amountGte"),
		AmountLte:     q.decimalParam("amountLte"),
		PaymentDueGte: q.timeParam("paymentDueGte"),
		PaymentDueLte: q.timeParam("paymentDueLte"),
		Signed:        q.boolParam("signed"),
	}
	if q.err != nil {
		respondWithError(w, r, http.StatusBadRequest, q.err.Error())
		return
	}

	page, pageSize := pagination(r)
	result, err := h.contractService.List(r.Context(), clientID, filters, sortConfig(r), page, pageSize)
	if err != nil {
		respondServiceError(w, r, h.logger, err, "list contracts")
		return
	}
	respondJSON(w, r, http.StatusOK, result)
}

// GetByID godoc
// @Summary Get contract
// @Tags Contracts
// @Produce json
// @Param clientID path string true "Client ID"
// @Param contractID path string true "Contract ID"
// @Success 200 {object} domain.ContractDTO
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /clients/{clientID}/contracts/{contractID} [get]
func (h *ContractHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	clientID, ok := pathID(w, r, "clientID")
	if !ok {
		return
	}
	id, ok := pathID(w, r, "contractID")
	if !ok {
		return
	}

	contract, err := h.contractService.GetByID(r.Context(), clientID, id)
	if err != nil {
		respondServiceError(w, r, h.logger, err, "get contract")
		return
	}
	respondJSON(w, r, http.StatusOK, contract)
}

// Create godoc
// @Summary Create contract
// @Description Sales staff only, on a client they own. The caller becomes the sales contact.
// @Tags Contracts
// @Accept json
// @Produce json
// @Param clientID path string true "Client ID"
// @Param request body domain.CreateContractRequest true "Contract"
// @Success 201 {object} domain.ContractDTO
// @Failure 400 {object} domain.APIError
// @Failure 403 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /clients/{clientID}/contracts [post]
func (h *ContractHandler) Create(w http.ResponseWriter, r *http.Request) {
	clientID, ok := pathID(w, r, "clientID")
	if !ok {
		return
	}
	var req domain.CreateContractRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	contract, err := h.contractService.Create(r.Context(), clientID, &req)
	if err != nil {
		respondServiceError(w, r, h.logger, err, "create contract")
		return
	}
	respondJSON(w, r, http.StatusCreated, contract)
}

// Update godoc
// @Summary Update contract
// @Description A signed contract stays signed. Ownership fields are honoured for management only.
// @Tags Contracts
// @Accept json
// @Produce json
// @Param clientID path string true "Client ID"
// @Param contractID path string true "Contract ID"
// @Param request body domain.UpdateContractRequest true "Changes"
// @Success 200 {object} domain.ContractDTO
// @Failure 400 {object} domain.APIError
// @Failure 403 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /clients/{clientID}/contracts/{contractID} [patch]
func (h *ContractHandler) Update(w http.ResponseWriter, r *http.Request) {
	clientID, ok := pathID(w, r, "clientID")
	if !ok {
		return
	}
	id, ok := pathID(w, r, "contractID")
	if !ok {
		return
	}
	var req domain.UpdateContractRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	contract, err := h.contractService.Update(r.Context(), clientID, id, &req)
	if err != nil {
		respondServiceError(w, r, h.logger, err, "update contract")
		return
	}
	respondJSON(w, r, http.StatusOK, contract)
}

// Reassign godoc
// @Summary Reassign contract
// @Description Changes the sales contact and/or moves the contract, with its event, to another client
// @Tags Contracts
// @Accept json
// @Produce json
// @Param clientID path string true "Client ID"
// @Param contractID path string true "Contract ID"
// @Param request body domain.ReassignContractRequest true "New links"
// @Success 200 {object} domain.ContractDTO
// @Failure 400 {object} domain.APIError
// @Failure 403 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /clients/{clientID}/contracts/{contractID}/assignment [put]
func (h *ContractHandler) Reassign(w http.ResponseWriter, r *http.Request) {
	clientID, ok := pathID(w, r, "clientID")
	if !ok {
		return
	}
	id, ok := pathID(w, r, "contractID")
	if !ok {
		return
	}
	var req domain.ReassignContractRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	contract, err := h.contractService.Reassign(r.Context(), clientID, id, &req)
	if err != nil {
		respondServiceError(w, r, h.logger, err, "reassign contract")
		return
	}
	respondJSON(w, r, http.StatusOK, contract)
}

// Delete godoc
// @Summary Delete contract
// @Description Management only
// @Tags Contracts
// @Param clientID path string true "Client ID"
// @Param contractID path string true "Contract ID"
// @Success 204
// @Failure 403 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /clients/{clientID}/contracts/{contractID} [delete]
func (h *ContractHandler) Delete(w http.ResponseWriter, r *http.Request) {
	clientID, ok := pathID(w, r, "clientID")
	if !ok {
		return
	}
	id, ok := pathID(w, r, "contractID")
	if !ok {
		return
	}

	if err := h.contractService.Delete(r.Context(), clientID, id); err != nil {
		respondServiceError(w, r, h.logger, err, "delete contract")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
