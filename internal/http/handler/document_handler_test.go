package handler_test

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/straye-as/crm-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func uploadRequest(t *testing.T, field, filename string, content []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if field != "" {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="`+field+`"; filename="`+filename+`"`)
		h.Set("Content-Type", "application/pdf")
		part, err := mw.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	} else {
		require.NoError(t, mw.WriteField("note", "no file here"))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/documents", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestDocumentHandler_UploadListDownload(t *testing.T) {
	e := newEnv(t)
	params := []string{"clientID", e.acme.ID.String(), "contractID", e.acmeDeal.ID.String()}
	content := []byte("%PDF-1.4 signed terms")

	rr := serve(e.documents.Upload, e.alice, uploadRequest(t, "file", "terms.pdf", content), params...)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var doc domain.ContractDocumentDTO
	decode(t, rr, &doc)
	assert.Equal(t, "terms.pdf", doc.Filename)
	assert.Equal(t, "application/pdf", doc.ContentType)
	assert.Equal(t, int64(len(content)), doc.Size)
	assert.Equal(t, e.acmeDeal.ID, doc.ContractID)
	require.NotNil(t, doc.UploadedByID)
	assert.Equal(t, e.alice.ID, *doc.UploadedByID)

	rr = call(t, e.documents.List, e.boss, http.MethodGet, "/documents", nil, params...)
	require.Equal(t, http.StatusOK, rr.Code)
	var docs []domain.ContractDocumentDTO
	decode(t, rr, &docs)
	require.Len(t, docs, 1)
	assert.Equal(t, doc.ID, docs[0].ID)

	rr = call(t, e.documents.Download, e.alice, http.MethodGet, "/documents/x", nil, append(params, "documentID", doc.ID.String())...)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/pdf", rr.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(rr.Header().Get("Content-Disposition"), "attachment"))
	assert.Contains(t, rr.Header().Get("Content-Disposition"), "terms.pdf")
	assert.Equal(t, content, rr.Body.Bytes())
}

func TestDocumentHandler_Access(t *testing.T) {
	e := newEnv(t)
	params := []string{"clientID", e.acme.ID.String(), "contractID", e.acmeDeal.ID.String()}

	rr := call(t, e.documents.List, e.sam, http.MethodGet, "/documents", nil, params...)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = serve(e.documents.Upload, e.sam, uploadRequest(t, "file", "x.pdf", []byte("x")), params...)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = call(t, e.documents.List, e.bob, http.MethodGet, "/documents", nil, params...)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestDocumentHandler_UploadValidation(t *testing.T) {
	e := newEnv(t)
	params := []string{"clientID", e.acme.ID.String(), "contractID", e.acmeDeal.ID.String()}

	rr := serve(e.documents.Upload, e.alice, uploadRequest(t, "", "", nil), params...)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	big := bytes.Repeat([]byte("a"), maxUpload+1)
	rr = serve(e.documents.Upload, e.alice, uploadRequest(t, "file", "big.bin", big), params...)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, apiError(t, rr).Errors, "file")
}

func TestDocumentHandler_Delete(t *testing.T) {
	e := newEnv(t)
	params := []string{"clientID", e.acme.ID.String(), "contractID", e.acmeDeal.ID.String()}

	rr := serve(e.documents.Upload, e.alice, uploadRequest(t, "file", "terms.pdf", []byte("terms")), params...)
	require.Equal(t, http.StatusCreated, rr.Code)
	var doc domain.ContractDocumentDTO
	decode(t, rr, &doc)
	docParams := append(params, "documentID", doc.ID.String())

	rr = call(t, e.documents.Delete, e.alice, http.MethodDelete, "/", nil, docParams...)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = call(t, e.documents.Delete, e.boss, http.MethodDelete, "/", nil, docParams...)
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = call(t, e.documents.Download, e.boss, http.MethodGet, "/", nil, docParams...)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}
