package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/davicafu/criterialab/internal/channels/application"
	"github.com/davicafu/criterialab/internal/channels/domain"
	sharedHttp "github.com/davicafu/criterialab/internal/shared/infra/inbound/http"
	"github.com/davicafu/criterialab/pkg/utils"
)

// type se acepta como alias de channelType.
var channelAliases = sharedHttp.Aliases{"type": "channelType"}

type ChannelHandler struct {
	service *application.ChannelService
	limits  sharedHttp.Limits
	log     *zap.Logger
}

func NewChannelHandler(service *application.ChannelService, limits sharedHttp.Limits, log *zap.Logger) *ChannelHandler {
	return &ChannelHandler{service: service, limits: limits, log: log}
}

// CreateChannel endpoint POST /channels
func (h *ChannelHandler) CreateChannel(c *gin.Context) {
	var req struct {
		UserID           uuid.UUID         `json:"userId" binding:"required"`
		Type             string            `json:"channelType" binding:"required"`
		Name             string            `json:"name" binding:"required"`
		ConnectionConfig map[string]string `json:"connectionConfig"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendBadRequest(c, err.Error())
		return
	}
	t, err := domain.ParseChannelType(req.Type)
	if err != nil {
		h.fail(c, err)
		return
	}
	ch, err := h.service.CreateChannel(c.Request.Context(), req.UserID, t, req.Name, req.ConnectionConfig)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, ch)
}

// GetChannel endpoint GET /channels/:id
func (h *ChannelHandler) GetChannel(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}
	ch, err := h.service.GetChannel(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, ch)
}

// ListChannels endpoint GET /channels?filter=isActive:equal:true&sort=createdAt&order=desc
func (h *ChannelHandler) ListChannels(c *gin.Context) {
	cr, err := sharedHttp.ParseCriteria(c, domain.ChannelSchema, h.limits, channelAliases)
	if err != nil {
		h.fail(c, err)
		return
	}
	page, err := h.service.SearchChannels(c.Request.Context(), cr)
	if err != nil {
		h.fail(c, err)
		return
	}
	utils.SendPage(c, cr, page)
}

// SetActive endpoint PATCH /channels/:id  {"isActive": false}
func (h *ChannelHandler) SetActive(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}
	var req struct {
		IsActive *bool `json:"isActive" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendBadRequest(c, err.Error())
		return
	}
	ch, err := h.service.SetActive(c.Request.Context(), id, *req.IsActive)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, ch)
}

// DeleteChannel endpoint DELETE /channels/:id
func (h *ChannelHandler) DeleteChannel(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}
	if err := h.service.DeleteChannel(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *ChannelHandler) parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.SendBadRequest(c, "invalid channel id")
		return uuid.Nil, false
	}
	return id, true
}

func (h *ChannelHandler) fail(c *gin.Context, err error) {
	if errors.Is(err, domain.ErrInvalidChannel) {
		utils.SendBadRequest(c, err.Error())
		return
	}
	if status := utils.SendDomainError(c, err); status >= http.StatusInternalServerError {
		h.log.Error("channels request failed", zap.String("path", c.FullPath()), zap.Error(err))
	}
}
