package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yoockh/legalease/internal/models"
	"github.com/yoockh/legalease/internal/services"
)

type DocumentHandler struct {
	assistant services.AssistantService
	documents services.DocumentService
	maxBytes  int64
}

func NewDocumentHandler(assistant services.AssistantService, documents services.DocumentService, maxBytes int64) *DocumentHandler {
	return &DocumentHandler{assistant: assistant, documents: documents, maxBytes: maxBytes}
}

type UploadResponse struct {
	Document *models.Document `json:"document"`
	Preview  string           `json:"preview"`
	Language models.Language  `json:"language"`
}

func (h *DocumentHandler) Upload(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	up, err := readUpload(c, "DocumentHandler.Upload", "file", h.maxBytes)
	if err != nil {
		writeError(c, err)
		return
	}

	doc, err := h.assistant.OnUpload(c.Request.Context(), userID, up)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, UploadResponse{
		Document: doc,
		Preview:  doc.Preview(services.PreviewRunes),
		Language: h.assistant.Workspace(userID).Language,
	})
}

func (h *DocumentHandler) List(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	limit := 20
	if s := c.Query("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}

	rows, err := h.documents.ListByUser(c.Request.Context(), userID, limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"documents": rows})
}
