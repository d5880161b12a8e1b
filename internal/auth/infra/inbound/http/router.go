package http

import "github.com/gin-gonic/gin"

func RegisterAuthRoutes(r gin.IRouter, h *AuthHandler) {
	auth := r.Group("/auth")
	{
		auth.POST("/register", h.Register)
		auth.POST("/verify", h.VerifyEmail)
		auth.POST("/verify/resend", h.ResendVerification)
		auth.POST("/login", h.Login)
		auth.GET("/users", h.ListUsers)
	}
}
