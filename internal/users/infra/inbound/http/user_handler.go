package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	sharedHttp "github.com/davicafu/criterialab/internal/shared/infra/inbound/http"
	"github.com/davicafu/criterialab/internal/users/application"
	"github.com/davicafu/criterialab/internal/users/domain"
	"github.com/davicafu/criterialab/pkg/utils"
)

// Nombres cortos aceptados en filter= y sort=.
var userAliases = sharedHttp.Aliases{
	"firstName": "profile.firstName",
	"lastName":  "profile.lastName",
}

// UserHandler encapsula los endpoints HTTP relacionados con User
type UserHandler struct {
	service *application.UserService
	limits  sharedHttp.Limits
	log     *zap.Logger
}

func NewUserHandler(service *application.UserService, limits sharedHttp.Limits, log *zap.Logger) *UserHandler {
	return &UserHandler{service: service, limits: limits, log: log}
}

// ---------------- Handlers ----------------

type profileRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// CreateUser endpoint POST /users
func (h *UserHandler) CreateUser(c *gin.Context) {
	var req struct {
		Email    string         `json:"email" binding:"required,email"`
		Username string         `json:"username" binding:"required"`
		Role     string         `json:"role" binding:"omitempty,oneof=admin user"`
		Profile  profileRequest `json:"profile"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendBadRequest(c, err.Error())
		return
	}

	user, err := h.service.CreateUser(c.Request.Context(), req.Email, req.Username,
		domain.Profile{FirstName: req.Profile.FirstName, LastName: req.Profile.LastName}, domain.Role(req.Role))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, user)
}

// GetUser endpoint GET /users/:id
func (h *UserHandler) GetUser(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}
	user, err := h.service.GetUser(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// ListUsers endpoint GET /users?filter=role:equal:admin&sort=username&cursor=
func (h *UserHandler) ListUsers(c *gin.Context) {
	cr, err := sharedHttp.ParseCriteria(c, domain.UserSchema, h.limits, userAliases)
	if err != nil {
		h.fail(c, err)
		return
	}
	page, err := h.service.SearchUsers(c.Request.Context(), cr)
	if err != nil {
		h.fail(c, err)
		return
	}
	utils.SendPage(c, cr, page)
}

// UpdateProfile endpoint PUT /users/:id/profile
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}
	var req profileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendBadRequest(c, err.Error())
		return
	}
	user, err := h.service.UpdateProfile(c.Request.Context(), id, domain.Profile{FirstName: req.FirstName, LastName: req.LastName})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// DeleteUser endpoint DELETE /users/:id
func (h *UserHandler) DeleteUser(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}
	if err := h.service.DeleteUser(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *UserHandler) parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.SendBadRequest(c, "invalid user id")
		return uuid.Nil, false
	}
	return id, true
}

func (h *UserHandler) fail(c *gin.Context, err error) {
	if errors.Is(err, domain.ErrInvalidUser) {
		utils.SendBadRequest(c, err.Error())
		return
	}
	if status := utils.SendDomainError(c, err); status >= http.StatusInternalServerError {
		h.log.Error("users request failed", zap.String("path", c.FullPath()), zap.Error(err))
	}
}
