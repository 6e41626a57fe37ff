package handler

import (
	"net/http"

	project "anoa.com/mentorconnect/internal/modules/project/service"
	"anoa.com/mentorconnect/pkg/response"
	"github.com/gin-gonic/gin"
)

type ProjectHandler struct {
	service project.ProjectService
}

func NewProjectHandler(service project.ProjectService) *ProjectHandler {
	return &ProjectHandler{service: service}
}

func (h *ProjectHandler) Join(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	projectID, err := response.ParamUUID(c, "project_id")
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	member, err := h.service.Join(c.Request.Context(), projectID, userID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": member})
}

func (h *ProjectHandler) ListMembers(c *gin.Context) {
	projectID, err := response.ParamUUID(c, "project_id")
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	members, err := h.service.ListMembers(c.Request.Context(), projectID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": members})
}
