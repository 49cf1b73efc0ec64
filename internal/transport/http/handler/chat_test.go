package handler

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatpdf/internal/ai"
	"chatpdf/internal/app"
	"chatpdf/internal/model"
	"chatpdf/internal/transport/http/middleware"
	"chatpdf/internal/transport/http/response"
)

type stubSessionStore struct {
	sessions map[uint]model.ChatSession
}

func (s *stubSessionStore) Create(session *model.ChatSession) error { return nil }

func (s *stubSessionStore) GetByID(id uint) (*model.ChatSession, error) {
	session, ok := s.sessions[id]
	if !ok {
		return nil, nil
	}
	return &session, nil
}

func (s *stubSessionStore) ListByUserID(userID uint) ([]model.ChatSession, error) {
	return nil, nil
}

func (s *stubSessionStore) DeleteByID(id uint) error { return nil }

type stubTranscriptStore struct{}

func (stubTranscriptStore) ListBySessionID(sessionID uint, limit int) ([]model.Message, error) {
	return nil, nil
}

func (stubTranscriptStore) DeleteBySessionID(sessionID uint) error { return nil }

func newTestRouter(t *testing.T, userID uint) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := &stubSessionStore{sessions: map[uint]model.ChatSession{
		1: {ID: 1, UserID: 9, DocumentName: "theirs.pdf", NamespaceID: "user_9_aaaaaaaa"},
	}}
	service := app.NewChatService(
		store,
		stubTranscriptStore{},
		nil,
		nil,
		nil,
		ai.NewOpenAICompatibleClient(),
		ai.EmbeddingConfig{},
		ai.ChatConfig{},
	)
	chatHandler := NewChatHandler(service)

	router := gin.New()
	router.Use(func(c *gin.Context) {
		if userID != 0 {
			c.Set(middleware.ContextUserIDKey, userID)
		}
	})
	router.POST("/upload", chatHandler.UploadPDF)
	router.GET("/sessions/:id/history", chatHandler.GetHistory)
	router.DELETE("/sessions/:id", chatHandler.DeleteSession)
	return router
}

func multipartPDF(t *testing.T, field, name string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile(field, name)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) response.APIResponse {
	t.Helper()
	var resp response.APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestUploadPDFRequiresAuth(t *testing.T) {
	router := newTestRouter(t, 0)

	body, contentType := multipartPDF(t, "file", "doc.pdf", []byte("x"))
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestUploadPDFMissingFile(t *testing.T) {
	router := newTestRouter(t, 9)

	body, contentType := multipartPDF(t, "wrong_field", "doc.pdf", []byte("x"))
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUploadPDFRejectsNonPDFExtension(t *testing.T) {
	router := newTestRouter(t, 9)

	body, contentType := multipartPDF(t, "file", "notes.txt", []byte("plain text"))
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeResponse(t, rec)
	assert.Equal(t, response.CodeInvalidDocument, resp.Code)
}

func TestUploadPDFRejectsUnreadableFile(t *testing.T) {
	router := newTestRouter(t, 9)

	body, contentType := multipartPDF(t, "file", "broken.pdf", []byte("not a pdf at all"))
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeResponse(t, rec)
	assert.Equal(t, response.CodeInvalidDocument, resp.Code)
	assert.Equal(t, "file is not a readable PDF", resp.Message)
}

func TestGetHistoryUnknownSessionIs404(t *testing.T) {
	router := newTestRouter(t, 9)

	req := httptest.NewRequest(http.MethodGet, "/sessions/42/history", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	resp := decodeResponse(t, rec)
	assert.Equal(t, response.CodeSessionNotFound, resp.Code)
}

func TestGetHistoryForeignSessionIs403(t *testing.T) {
	router := newTestRouter(t, 3)

	req := httptest.NewRequest(http.MethodGet, "/sessions/1/history", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	resp := decodeResponse(t, rec)
	assert.Equal(t, response.CodeForbidden, resp.Code)
}

func TestDeleteSessionInvalidID(t *testing.T) {
	router := newTestRouter(t, 9)

	req := httptest.NewRequest(http.MethodDelete, "/sessions/abc", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeleteSessionForeignIs403(t *testing.T) {
	router := newTestRouter(t, 3)

	req := httptest.NewRequest(http.MethodDelete, "/sessions/1", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}
