package http

import "github.com/gin-gonic/gin"

func (h *Handler) Register(rg *gin.RouterGroup) {
	rg.GET("", h.GetSession)
	rg.POST("", h.SignIn)
	rg.DELETE("", h.SignOut)
}
