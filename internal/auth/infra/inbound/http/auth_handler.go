package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/davicafu/criterialab/internal/auth/application"
	"github.com/davicafu/criterialab/internal/auth/domain"
	sharedDomain "github.com/davicafu/criterialab/internal/shared/domain"
	sharedHttp "github.com/davicafu/criterialab/internal/shared/infra/inbound/http"
	"github.com/davicafu/criterialab/pkg/utils"
)

// userResponse es la vista pública de domain.User (sin hash).
type userResponse struct {
	ID          uuid.UUID  `json:"id"`
	Email       string     `json:"email"`
	Username    string     `json:"username"`
	Role        string     `json:"role"`
	Status      string     `json:"status"`
	LastLoginAt *time.Time `json:"lastLoginAt"`
	CreatedAt   time.Time  `json:"createdAt"`
}

func toResponse(u *domain.User) userResponse {
	return userResponse{
		ID:          u.ID,
		Email:       u.Email,
		Username:    u.Username,
		Role:        string(u.Role),
		Status:      string(u.Status),
		LastLoginAt: u.LastLoginAt,
		CreatedAt:   u.CreatedAt,
	}
}

type AuthHandler struct {
	service *application.AuthService
	limits  sharedHttp.Limits
	log     *zap.Logger
}

func NewAuthHandler(service *application.AuthService, limits sharedHttp.Limits, log *zap.Logger) *AuthHandler {
	return &AuthHandler{service: service, limits: limits, log: log}
}

// Register endpoint POST /auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required"`
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendBadRequest(c, err.Error())
		return
	}
	u, v, err := h.service.Register(c.Request.Context(), req.Email, req.Username, req.Password)
	if err != nil {
		h.fail(c, err)
		return
	}
	// sin envío de emails: el código se devuelve para poder verificar
	c.JSON(http.StatusCreated, gin.H{
		"user":         toResponse(u),
		"verification": gin.H{"code": v.Code, "expiresAt": v.ExpiresAt},
	})
}

type verifyRequest struct {
	UserID uuid.UUID `json:"userId" binding:"required"`
	Code   string    `json:"code"`
}

// VerifyEmail endpoint POST /auth/verify
func (h *AuthHandler) VerifyEmail(c *gin.Context) {
	var req verifyRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Code == "" {
		utils.SendBadRequest(c, "userId and code are required")
		return
	}
	u, err := h.service.VerifyEmail(c.Request.Context(), req.UserID, req.Code)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toResponse(u))
}

// ResendVerification endpoint POST /auth/verify/resend
func (h *AuthHandler) ResendVerification(c *gin.Context) {
	var req verifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendBadRequest(c, err.Error())
		return
	}
	v, err := h.service.ResendVerification(c.Request.Context(), req.UserID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"code": v.Code, "expiresAt": v.ExpiresAt})
}

// Login endpoint POST /auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendBadRequest(c, err.Error())
		return
	}
	u, err := h.service.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toResponse(u))
}

// ListUsers endpoint GET /auth/users?filter=status:equal:active&sort=lastLoginAt&order=desc
func (h *AuthHandler) ListUsers(c *gin.Context) {
	cr, err := sharedHttp.ParseCriteria(c, domain.UserSchema, h.limits, nil)
	if err != nil {
		h.fail(c, err)
		return
	}
	page, err := h.service.SearchUsers(c.Request.Context(), cr)
	if err != nil {
		h.fail(c, err)
		return
	}
	views := make([]userResponse, len(page.Data))
	for i, u := range page.Data {
		views[i] = toResponse(u)
	}
	utils.SendPage(c, cr, sharedDomain.PaginatedResult[userResponse]{
		Data: views, Total: page.Total, Cursor: page.Cursor, HasNext: page.HasNext,
	})
}

func (h *AuthHandler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidUser), errors.Is(err, application.ErrWeakPassword),
		errors.Is(err, domain.ErrVerificationMismatch), errors.Is(err, domain.ErrVerificationExpired):
		utils.SendBadRequest(c, err.Error())
	case errors.Is(err, application.ErrInvalidCredentials):
		utils.SendErrorCode(c, http.StatusUnauthorized, "INVALID_CREDENTIALS", err.Error())
	case errors.Is(err, application.ErrEmailNotVerified), errors.Is(err, application.ErrUserBlocked):
		utils.SendErrorCode(c, http.StatusForbidden, "FORBIDDEN", err.Error())
	default:
		if status := utils.SendDomainError(c, err); status >= http.StatusInternalServerError {
			h.log.Error("auth request failed", zap.String("path", c.FullPath()), zap.Error(err))
		}
	}
}
