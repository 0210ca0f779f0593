package http

import (
	"github.com/GoSim-25-26J-441/playground-sync/internal/projects/domain"
	"github.com/GoSim-25-26J-441/playground-sync/internal/projects/service"
)

// Handler bundles the dependencies for workspace and projects endpoints.
type Handler struct {
	coord *service.Coordinator
}

func New(coord *service.Coordinator) *Handler {
	return &Handler{coord: coord}
}

type workspaceResp struct {
	Project  *domain.Project          `json:"project"`
	Projects []domain.ProjectMetadata `json:"projects"`
	Status   service.Status           `json:"status"`
}

type codeReq struct {
	HTML       *string `json:"html"`
	CSS        *string `json:"css"`
	JavaScript *string `json:"javascript"`
}

type librariesReq struct {
	Libraries []domain.ExternalLibrary `json:"libraries"`
}

type addLibraryReq struct {
	Name        string `json:"name"`
	URL         string `json:"url"`
	Type        string `json:"type"`
	Description string `json:"description"`
}

type createReq struct {
	Name string `json:"name"`
}

type renameReq struct {
	Name string `json:"name"`
}

type duplicateReq struct {
	Name string `json:"name"`
}
