package http

import "github.com/gin-gonic/gin"

func RegisterChannelRoutes(r gin.IRouter, h *ChannelHandler) {
	channels := r.Group("/channels")
	{
		channels.POST("", h.CreateChannel)
		channels.GET("", h.ListChannels)
		channels.GET("/:id", h.GetChannel)
		channels.PATCH("/:id", h.SetActive)
		channels.DELETE("/:id", h.DeleteChannel)
	}
}
