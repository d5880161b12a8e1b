package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	sharedHttp "github.com/davicafu/criterialab/internal/shared/infra/inbound/http"
	"github.com/davicafu/criterialab/internal/users/application"
	"github.com/davicafu/criterialab/internal/users/domain"
	userMemory "github.com/davicafu/criterialab/internal/users/infra/outbound/db/memory"
)

func setupRouter(t *testing.T) (*gin.Engine, *application.UserService) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	service := application.NewUserService(userMemory.NewUserRepository(zap.NewNop()), nil, nil, zap.NewNop())
	r := gin.New()
	RegisterUserRoutes(r, NewUserHandler(service, sharedHttp.Limits{Default: 10, Max: 100}, zap.NewNop()))
	return r, service
}

func do(r *gin.Engine, method, target string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

type listResponse struct {
	Data []struct {
		ID       uuid.UUID      `json:"id"`
		Username string         `json:"username"`
		Profile  domain.Profile `json:"profile"`
	} `json:"data"`
	Total      *int `json:"total"`
	Pagination *struct {
		HasNext bool   `json:"hasNext"`
		Cursor  string `json:"cursor"`
	} `json:"pagination"`
}

func decodeList(t *testing.T, w *httptest.ResponseRecorder) (listResponse, []string) {
	t.Helper()
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var res listResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	var names []string
	for _, u := range res.Data {
		names = append(names, u.Username)
	}
	return res, names
}

func seedHTTP(t *testing.T, service *application.UserService) {
	t.Helper()
	for _, name := range []string{"user2", "admin", "user4", "user1", "user3"} {
		role := domain.RoleUser
		if name == "admin" {
			role = domain.RoleAdmin
		}
		_, err := service.CreateUser(context.Background(), name+"@example.com", name, domain.Profile{FirstName: "F-" + name}, role)
		require.NoError(t, err)
	}
}

func TestCreateAndGetUser(t *testing.T) {
	r, _ := setupRouter(t)

	w := do(r, http.MethodPost, "/users", map[string]any{
		"email": "new@example.com", "username": "newbie",
		"profile": map[string]string{"firstName": "New", "lastName": "Bie"},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created struct {
		ID uuid.UUID `json:"id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	w = do(r, http.MethodGet, "/users/"+created.ID.String(), nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"username":"newbie"`)

	w = do(r, http.MethodPost, "/users", map[string]any{"email": "other@example.com", "username": "newbie"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), `"field":"username"`)

	w = do(r, http.MethodPost, "/users", map[string]any{"email": "bad", "username": "x"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetUser_Errors(t *testing.T) {
	r, _ := setupRouter(t)

	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodGet, "/users/not-a-uuid", nil).Code)

	w := do(r, http.MethodGet, "/users/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), `"code":"NOT_FOUND"`)
}

func TestListUsers_OffsetShape(t *testing.T) {
	r, service := setupRouter(t)
	seedHTTP(t, service)

	res, names := decodeList(t, do(r, http.MethodGet, "/users?filter=role:equal:user&sort=username&order=desc&limit=2&offset=1&with_total=true", nil))
	assert.Equal(t, []string{"user3", "user2"}, names)
	require.NotNil(t, res.Total)
	assert.Equal(t, 4, *res.Total)
	assert.Nil(t, res.Pagination)

	res, _ = decodeList(t, do(r, http.MethodGet, "/users?limit=1", nil))
	assert.Nil(t, res.Total)

	_, names = decodeList(t, do(r, http.MethodGet, "/users?filter=firstName:contains:ADM", nil))
	assert.Equal(t, []string{"admin"}, names)
}

func TestListUsers_CursorShape(t *testing.T) {
	r, service := setupRouter(t)
	seedHTTP(t, service)

	res, names := decodeList(t, do(r, http.MethodGet, "/users?sort=username&limit=2&cursor=", nil))
	assert.Equal(t, []string{"admin", "user1"}, names)
	require.NotNil(t, res.Pagination)
	assert.True(t, res.Pagination.HasNext)
	assert.Equal(t, "user1", res.Pagination.Cursor)
	assert.Nil(t, res.Total)

	res, names = decodeList(t, do(r, http.MethodGet, "/users?sort=username&limit=2&cursor=user1", nil))
	assert.Equal(t, []string{"user2", "user3"}, names)

	w := do(r, http.MethodGet, "/users?sort=username&limit=2&cursor="+res.Pagination.Cursor, nil)
	res, names = decodeList(t, w)
	assert.Equal(t, []string{"user4"}, names)
	assert.False(t, res.Pagination.HasNext)
	assert.NotContains(t, w.Body.String(), `"cursor"`)
}

func TestListUsers_InvalidCriteria(t *testing.T) {
	r, _ := setupRouter(t)

	w := do(r, http.MethodGet, "/users?filter=passwordHash:equal:x", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), `"code":"INVALID_CRITERIA"`)

	w = do(r, http.MethodGet, "/users?filter=createdAt:contains:2024", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdateProfileAndDelete(t *testing.T) {
	r, service := setupRouter(t)
	u, err := service.CreateUser(context.Background(), "up@example.com", "up", domain.Profile{}, domain.RoleUser)
	require.NoError(t, err)

	w := do(r, http.MethodPut, "/users/"+u.ID.String()+"/profile", map[string]string{"firstName": "Upd"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"firstName":"Upd"`)

	assert.Equal(t, http.StatusNoContent, do(r, http.MethodDelete, "/users/"+u.ID.String(), nil).Code)
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodGet, "/users/"+u.ID.String(), nil).Code)
}
