package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yoockh/legalease/internal/models"
	"github.com/yoockh/legalease/internal/services"
)

type ReportHandler struct {
	assistant services.AssistantService
	maxBytes  int64
}

func NewReportHandler(assistant services.AssistantService, maxBytes int64) *ReportHandler {
	return &ReportHandler{assistant: assistant, maxBytes: maxBytes}
}

func (h *ReportHandler) Summary(c *gin.Context) {
	h.respond(c, func(userID string) (*models.Report, error) {
		return h.assistant.Summary(c.Request.Context(), userID)
	})
}

func (h *ReportHandler) Clauses(c *gin.Context) {
	h.respond(c, func(userID string) (*models.Report, error) {
		return h.assistant.ClauseAnalysis(c.Request.Context(), userID)
	})
}

// Comparison compares the workspace document with the uploaded "file".
func (h *ReportHandler) Comparison(c *gin.Context) {
	h.respond(c, func(userID string) (*models.Report, error) {
		up, err := readUpload(c, "ReportHandler.Comparison", "file", h.maxBytes)
		if err != nil {
			return nil, err
		}
		return h.assistant.Comparison(c.Request.Context(), userID, up)
	})
}

// Compare compares two uploads, "file_a" and "file_b".
func (h *ReportHandler) Compare(c *gin.Context) {
	h.respond(c, func(userID string) (*models.Report, error) {
		a, err := readUpload(c, "ReportHandler.Compare", "file_a", h.maxBytes)
		if err != nil {
			return nil, err
		}
		b, err := readUpload(c, "ReportHandler.Compare", "file_b", h.maxBytes)
		if err != nil {
			return nil, err
		}
		return h.assistant.CompareUploads(c.Request.Context(), userID, a, b)
	})
}

func (h *ReportHandler) respond(c *gin.Context, fn func(userID string) (*models.Report, error)) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	report, err := fn(userID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}
