package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yoockh/legalease/internal/models"
	"github.com/yoockh/legalease/internal/services"
	"github.com/yoockh/legalease/internal/utils"
)

type WorkspaceHandler struct {
	assistant services.AssistantService
}

func NewWorkspaceHandler(assistant services.AssistantService) *WorkspaceHandler {
	return &WorkspaceHandler{assistant: assistant}
}

type SetLanguageRequest struct {
	Language string `json:"language" binding:"required"`
}

func (h *WorkspaceHandler) Get(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, h.assistant.Workspace(userID))
}

func (h *WorkspaceHandler) SetLanguage(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var req SetLanguageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, "WorkspaceHandler.SetLanguage", "invalid request body", err))
		return
	}

	if err := h.assistant.OnLanguageChange(c.Request.Context(), userID, models.Language(req.Language)); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.assistant.Workspace(userID))
}

func (h *WorkspaceHandler) ResetChat(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	h.assistant.ResetChat(c.Request.Context(), userID)
	c.Status(http.StatusNoContent)
}
