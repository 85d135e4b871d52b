package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	logrustest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"book-keeper/internal/auth"
	"book-keeper/internal/catalog"
	"book-keeper/internal/domain"
	"book-keeper/internal/repository/sqlite"
	"book-keeper/internal/service"
)

func newTestRouter(t *testing.T) (*gin.Engine, *auth.TokenIssuer, *logrustest.Hook) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := sqlite.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo := sqlite.NewUserRepository(db)
	require.NoError(t, repo.Init(context.Background()))

	tokens := auth.NewTokenIssuer([]byte("test-secret"), 2*time.Hour)
	users := service.NewUserService(repo, tokens)

	logger, hook := logrustest.NewNullLogger()

	router := gin.New()
	handler := NewHandler(users, catalog.NewClient("http://127.0.0.1:1", time.Second), tokens, logger)
	handler.RegisterRoutes(router)
	return router, tokens, hook
}

func doJSON(t *testing.T, router *gin.Engine, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeAuth(t *testing.T, rec *httptest.ResponseRecorder) AuthResponse {
	t.Helper()
	var resp AuthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func decodeUser(t *testing.T, rec *httptest.ResponseRecorder) UserResponse {
	t.Helper()
	var resp UserResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func registerAlice(t *testing.T, router *gin.Engine) AuthResponse {
	t.Helper()
	rec := doJSON(t, router, http.MethodPost, "/api/users", "", gin.H{
		"username": "alice",
		"email":    "alice@x.com",
		"password": "pw123",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	return decodeAuth(t, rec)
}

func TestRegisterSaveRemoveFlow(t *testing.T) {
	router, _, _ := newTestRouter(t)

	registered := registerAlice(t, router)
	require.NotEmpty(t, registered.Token)
	assert.Equal(t, "alice", registered.User.Username)
	assert.Empty(t, registered.User.SavedBooks)

	rec := doJSON(t, router, http.MethodGet, "/api/users/me", registered.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	me := decodeUser(t, rec)
	assert.Equal(t, "alice", me.Username)
	assert.Empty(t, me.SavedBooks)

	rec = doJSON(t, router, http.MethodPost, "/api/users/me/books", registered.Token, gin.H{
		"bookId":  "B1",
		"title":   "Dune",
		"authors": []string{"Herbert"},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	saved := decodeUser(t, rec)
	require.Len(t, saved.SavedBooks, 1)
	assert.Equal(t, "B1", saved.SavedBooks[0].BookID)
	assert.Equal(t, 1, saved.BookCount)

	// saving the same book again does not duplicate it
	rec = doJSON(t, router, http.MethodPost, "/api/users/me/books", registered.Token, gin.H{
		"bookId":  "B1",
		"title":   "Dune",
		"authors": []string{"Herbert"},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeUser(t, rec).SavedBooks, 1)

	rec = doJSON(t, router, http.MethodDelete, "/api/users/me/books/B1", registered.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decodeUser(t, rec).SavedBooks)

	// removing an absent book is a no-op
	rec = doJSON(t, router, http.MethodDelete, "/api/users/me/books/nonexistent", registered.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decodeUser(t, rec).SavedBooks)
}

func TestRegisterDuplicate(t *testing.T) {
	router, _, _ := newTestRouter(t)

	registerAlice(t, router)

	rec := doJSON(t, router, http.MethodPost, "/api/users", "", gin.H{
		"username": "another-alice",
		"email":    "alice@x.com",
		"password": "pw123",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestRegisterMissingFields(t *testing.T) {
	router, _, _ := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/users", "", gin.H{
		"username": "alice",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLogin(t *testing.T) {
	router, tokens, _ := newTestRouter(t)

	registered := registerAlice(t, router)

	rec := doJSON(t, router, http.MethodPost, "/api/users/login", "", gin.H{
		"email":    "alice@x.com",
		"password": "pw123",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	logged := decodeAuth(t, rec)

	fromRegister, err := tokens.Verify(registered.Token)
	require.NoError(t, err)
	fromLogin, err := tokens.Verify(logged.Token)
	require.NoError(t, err)
	assert.Equal(t, fromRegister, fromLogin)
}

func TestLoginInvalidCredentials(t *testing.T) {
	router, _, hook := newTestRouter(t)

	registerAlice(t, router)
	hook.Reset()

	wrongPassword := doJSON(t, router, http.MethodPost, "/api/users/login", "", gin.H{
		"email":    "alice@x.com",
		"password": "wrong",
	})
	unknownEmail := doJSON(t, router, http.MethodPost, "/api/users/login", "", gin.H{
		"email":    "nobody@x.com",
		"password": "pw123",
	})

	assert.Equal(t, http.StatusUnauthorized, wrongPassword.Code)
	assert.Equal(t, http.StatusUnauthorized, unknownEmail.Code)
	// identical body for both failure causes
	assert.Equal(t, wrongPassword.Body.String(), unknownEmail.Body.String())

	// the distinct causes are still logged locally in full detail
	entries := hook.AllEntries()
	require.Len(t, entries, 2)
	first := entries[0].Data["error"]
	second := entries[1].Data["error"]
	require.NotNil(t, first)
	require.NotNil(t, second)
	assert.NotEqual(t, fmt.Sprint(first), fmt.Sprint(second))
}

func TestRegistrationConflictIsLogged(t *testing.T) {
	router, _, hook := newTestRouter(t)

	registerAlice(t, router)
	hook.Reset()

	rec := doJSON(t, router, http.MethodPost, "/api/users", "", gin.H{
		"username": "another-alice",
		"email":    "alice@x.com",
		"password": "pw123",
	})
	require.Equal(t, http.StatusConflict, rec.Code)
	require.NotEmpty(t, hook.AllEntries())
}

func TestProtectedRoutesRejectBadTokens(t *testing.T) {
	router, _, _ := newTestRouter(t)

	missing := doJSON(t, router, http.MethodGet, "/api/users/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, missing.Code)

	garbage := doJSON(t, router, http.MethodGet, "/api/users/me", "not.a.token", nil)
	assert.Equal(t, http.StatusUnauthorized, garbage.Code)

	registered := registerAlice(t, router)
	forged := auth.NewTokenIssuer([]byte("wrong-secret"), 2*time.Hour)
	token, err := forged.Issue(domain.Identity{
		ID:       registered.User.ID,
		Username: registered.User.Username,
		Email:    registered.User.Email,
	})
	require.NoError(t, err)
	rec := doJSON(t, router, http.MethodGet, "/api/users/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSaveBookRequiresFields(t *testing.T) {
	router, _, _ := newTestRouter(t)

	registered := registerAlice(t, router)

	rec := doJSON(t, router, http.MethodPost, "/api/users/me/books", registered.Token, gin.H{
		"title": "Dune",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
