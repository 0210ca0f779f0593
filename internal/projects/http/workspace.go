package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/GoSim-25-26J-441/playground-sync/internal/projects/domain"
)

func (h *Handler) workspace(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true, "workspace": workspaceResp{
		Project:  h.coord.CurrentProject(),
		Projects: h.coord.ProjectList(),
		Status:   h.coord.Status(),
	}})
}

// updateCode takes any subset of the three buffers; missing ones keep
// their current content.
func (h *Handler) updateCode(c *gin.Context) {
	var req codeReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badBody(c)
		return
	}
	p, err := h.coord.UpdateProjectCodePartial(req.HTML, req.CSS, req.JavaScript)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "project": p})
}

func (h *Handler) replaceLibraries(c *gin.Context) {
	var req librariesReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badBody(c)
		return
	}
	if req.Libraries == nil {
		req.Libraries = []domain.ExternalLibrary{}
	}

	p, err := h.coord.UpdateExternalLibraries(req.Libraries)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "project": p})
}

func (h *Handler) addLibrary(c *gin.Context) {
	var req addLibraryReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badBody(c)
		return
	}

	p, err := h.coord.AddExternalLibrary(req.Name, req.URL, req.Type, req.Description)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"ok": true, "project": p})
}

func (h *Handler) removeLibrary(c *gin.Context) {
	p, err := h.coord.RemoveExternalLibrary(c.Param("library_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "project": p})
}

func (h *Handler) updateSettings(c *gin.Context) {
	var patch domain.SettingsPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		badBody(c)
		return
	}

	p, err := h.coord.UpdateSettings(patch)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "project": p})
}

// save persists the open project. A 200 means the device store has it;
// remote progress is reported separately in status.
func (h *Handler) save(c *gin.Context) {
	if err := h.coord.SaveCurrentProject(c.Request.Context()); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "project": h.coord.CurrentProject(), "status": h.coord.Status()})
}
