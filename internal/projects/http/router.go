package http

import "github.com/gin-gonic/gin"

// Register attaches workspace and project routes to the given router group.
func (h *Handler) Register(rg *gin.RouterGroup) {
	ws := rg.Group("/workspace")
	ws.GET("", h.workspace)
	ws.PUT("/code", h.updateCode)
	ws.PUT("/libraries", h.replaceLibraries)
	ws.POST("/libraries", h.addLibrary)
	ws.DELETE("/libraries/:library_id", h.removeLibrary)
	ws.PUT("/settings", h.updateSettings)
	ws.POST("/save", h.save)

	projects := rg.Group("/projects")
	projects.GET("", h.list)
	projects.POST("", h.create)
	projects.PATCH("/:project_id", h.rename)
	projects.DELETE("/:project_id", h.delete)
	projects.POST("/:project_id/switch", h.switchTo)
	projects.POST("/:project_id/duplicate", h.duplicate)
}
