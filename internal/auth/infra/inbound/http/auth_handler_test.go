package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/davicafu/criterialab/internal/auth/application"
	authMemory "github.com/davicafu/criterialab/internal/auth/infra/outbound/db/memory"
	sharedHttp "github.com/davicafu/criterialab/internal/shared/infra/inbound/http"
)

func setupRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	service := application.NewAuthService(
		authMemory.NewUserRepository(zap.NewNop()),
		authMemory.NewEmailVerificationRepository(zap.NewNop()),
		nil, zap.NewNop(), application.WithHashCost(bcrypt.MinCost))
	r := gin.New()
	RegisterAuthRoutes(r, NewAuthHandler(service, sharedHttp.Limits{Default: 10, Max: 50}, zap.NewNop()))
	return r
}

func post(r *gin.Engine, target string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	_ = json.NewEncoder(&buf).Encode(body)
	req := httptest.NewRequest(http.MethodPost, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

type registerResponse struct {
	User struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	} `json:"user"`
	Verification struct {
		Code string `json:"code"`
	} `json:"verification"`
}

func register(t *testing.T, r *gin.Engine, email, username string) registerResponse {
	t.Helper()
	w := post(r, "/auth/register", map[string]string{"email": email, "username": username, "password": "s3cretpass"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var res registerResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	return res
}

func TestRegisterVerifyLogin(t *testing.T) {
	r := setupRouter()
	reg := register(t, r, "ana@example.com", "ana")
	assert.Equal(t, "pending", reg.User.Status)

	w := post(r, "/auth/login", map[string]string{"email": "ana@example.com", "password": "s3cretpass"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = post(r, "/auth/verify", map[string]string{"userId": reg.User.ID, "code": "nope"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = post(r, "/auth/verify", map[string]string{"userId": reg.User.ID, "code": reg.Verification.Code})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"status":"active"`)

	w = post(r, "/auth/login", map[string]string{"email": "ana@example.com", "password": "wrong-pass"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = post(r, "/auth/login", map[string]string{"email": "ana@example.com", "password": "s3cretpass"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "PasswordHash")
	assert.NotContains(t, w.Body.String(), `"lastLoginAt":null`)
}

func TestRegister_Conflict(t *testing.T) {
	r := setupRouter()
	register(t, r, "ana@example.com", "ana")

	w := post(r, "/auth/register", map[string]string{"email": "other@example.com", "username": "ana", "password": "s3cretpass"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), `"field":"username"`)

	w = post(r, "/auth/register", map[string]string{"email": "x@example.com", "username": "x", "password": "short"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListUsers(t *testing.T) {
	r := setupRouter()
	for _, name := range []string{"cid", "ana", "bob"} {
		register(t, r, name+"@example.com", name)
	}

	req := httptest.NewRequest(http.MethodGet, "/auth/users?filter=status:equal:pending&sort=username&limit=2&cursor=", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var page struct {
		Data []struct {
			Username string `json:"username"`
		} `json:"data"`
		Pagination struct {
			HasNext bool   `json:"hasNext"`
			Cursor  string `json:"cursor"`
		} `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	require.Len(t, page.Data, 2)
	assert.Equal(t, "ana", page.Data[0].Username)
	assert.Equal(t, "bob", page.Data[1].Username)
	assert.True(t, page.Pagination.HasNext)
	assert.Equal(t, "bob", page.Pagination.Cursor)

	req = httptest.NewRequest(http.MethodGet, "/auth/users?filter=passwordHash:equal:x", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
