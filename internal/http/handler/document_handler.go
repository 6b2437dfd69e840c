package handler

import (
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/straye-as/crm-api/internal/service"
	"go.uber.org/zap"
)

// multipart framing on top of the file itself
const multipartOverhead = 1 << 20

type DocumentHandler struct {
	documentService *service.DocumentService
	maxUploadBytes  int64
	logger          *zap.Logger
}

func NewDocumentHandler(documentService *service.DocumentService, maxUploadBytes int64, logger *zap.Logger) *DocumentHandler {
	return &DocumentHandler{
		documentService: documentService,
		maxUploadBytes:  maxUploadBytes,
		logger:          logger,
	}
}

// List godoc
// @Summary List contract documents
// @Tags Documents
// @Produce json
// @Param clientID path string true "Client ID"
// @Param contractID path string true "Contract ID"
// @Success 200 {array} domain.ContractDocumentDTO
// @Failure 403 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /clients/{clientID}/contracts/{contractID}/documents [get]
func (h *DocumentHandler) List(w http.ResponseWriter, r *http.Request) {
	clientID, contractID, ok := parents(w, r)
	if !ok {
		return
	}

	docs, err := h.documentService.List(r.Context(), clientID, contractID)
	if err != nil {
		respondServiceError(w, r, h.logger, err, "list documents")
		return
	}
	respondJSON(w, r, http.StatusOK, docs)
}

// Upload godoc
// @Summary Upload contract document
// @Tags Documents
// @Accept multipart/form-data
// @Produce json
// @Param clientID path string true "Client ID"
// @Param contractID path string true "Contract ID"
// @Param file formData file true "Document"
// @Success 201 {object} domain.ContractDocumentDTO
// @Failure 400 {object} domain.APIError
// @Failure 403 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Failure 413 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /clients/{clientID}/contracts/{contractID}/documents [post]
func (h *DocumentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	clientID, contractID, ok := parents(w, r)
	if !ok {
		return
	}

	if h.maxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes+multipartOverhead)
	}
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		respondWithError(w, r, http.StatusRequestEntityTooLarge, fmt.Sprintf("File too large: maximum size is %d bytes", h.maxUploadBytes))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		respondWithError(w, r, http.StatusBadRequest, "Invalid file upload: file field is required")
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	doc, err := h.documentService.Upload(r.Context(), clientID, contractID, header.Filename, contentType, header.Size, file)
	if err != nil {
		respondServiceError(w, r, h.logger, err, "upload document")
		return
	}
	respondJSON(w, r, http.StatusCreated, doc)
}

// Download godoc
// @Summary Download contract document
// @Tags Documents
// @Produce application/octet-stream
// @Param clientID path string true "Client ID"
// @Param contractID path string true "Contract ID"
// @Param documentID path string true "Document ID"
// @Success 200
// @Failure 403 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /clients/{clientID}/contracts/{contractID}/documents/{documentID} [get]
func (h *DocumentHandler) Download(w http.ResponseWriter, r *http.Request) {
	clientID, contractID, ok := parents(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "documentID")
	if !ok {
		return
	}

	doc, reader, err := h.documentService.Download(r.Context(), clientID, contractID, id)
	if err != nil {
		respondServiceError(w, r, h.logger, err, "download document")
		return
	}
	defer reader.Close()

	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": doc.Filename}))
	w.Header().Set("Content-Type", doc.ContentType)
	w.Header().Set("Content-Length", strconv.FormatInt(doc.Size, 10))

	if _, err := io.Copy(w, reader); err != nil {
		h.logger.Warn("document download interrupted", zap.Error(err), zap.String("document_id", id.String()))
	}
}

// Delete godoc
// @Summary Delete contract document
// @Tags Documents
// @Param clientID path string true "Client ID"
// @Param contractID path string true "Contract ID"
// @Param documentID path string true "Document ID"
// @Success 204
// @Failure 403 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /clients/{clientID}/contracts/{contractID}/documents/{documentID} [delete]
func (h *DocumentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	clientID, contractID, ok := parents(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "documentID")
	if !ok {
		return
	}

	if err := h.documentService.Delete(r.Context(), clientID, contractID, id); err != nil {
		respondServiceError(w, r, h.logger, err, "delete document")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
