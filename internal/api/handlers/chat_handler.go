package handlers

import (
	"io"
	"net/http"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/yoockh/legalease/internal/models"
	"github.com/yoockh/legalease/internal/services"
	"github.com/yoockh/legalease/internal/utils"
)

const maxAudioBytes = 10 << 20

type ChatHandler struct {
	assistant services.AssistantService
}

func NewChatHandler(assistant services.AssistantService) *ChatHandler {
	return &ChatHandler{assistant: assistant}
}

type SendMessageRequest struct {
	Text string `json:"text" binding:"required"`
}

type ChatMessage struct {
	Role      models.Role `json:"role"`
	Content   string      `json:"content"`
	Audio     bool        `json:"audio,omitempty"`
	Failed    bool        `json:"failed,omitempty"`
	Timestamp string      `json:"timestamp"`
}

func toChatMessage(t models.Turn) ChatMessage {
	return ChatMessage{
		Role:      t.Role,
		Content:   t.DisplayText(),
		Audio:     t.IsAudio(),
		Failed:    t.Failed,
		Timestamp: t.Timestamp.Format("2006-01-02T15:04:05Z07:00"),
	}
}

// Send accepts a JSON {"text"} body or a multipart "audio" field. With
// Accept: text/event-stream the answer is streamed as "chunk" events followed
// by a final "answer" event.
func (h *ChatHandler) Send(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	q, err := questionFromRequest(c)
	if err != nil {
		writeError(c, err)
		return
	}

	h.answer(c, func(onChunk func(string)) (*services.ChatReply, error) {
		return h.assistant.OnUserMessage(c.Request.Context(), userID, q, onChunk)
	})
}

func (h *ChatHandler) Retry(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	h.answer(c, func(onChunk func(string)) (*services.ChatReply, error) {
		return h.assistant.RetryLastMessage(c.Request.Context(), userID, onChunk)
	})
}

func (h *ChatHandler) History(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	msgs := []ChatMessage{}
	for t := range h.assistant.VisibleHistory(userID) {
		msgs = append(msgs, toChatMessage(t))
	}
	c.JSON(http.StatusOK, gin.H{
		"session_id": h.assistant.Workspace(userID).SessionID,
		"messages":   msgs,
	})
}

func (h *ChatHandler) answer(c *gin.Context, fn func(onChunk func(string)) (*services.ChatReply, error)) {
	if !wantsStream(c) {
		reply, err := fn(nil)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, replyBody(reply))
		return
	}

	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	reply, err := fn(func(chunk string) {
		c.SSEvent("chunk", chunk)
		c.Writer.Flush()
	})
	if err != nil {
		_ = c.Error(err)
		c.SSEvent("error", toAPIError(err))
		return
	}
	c.SSEvent("answer", replyBody(reply))
}

func replyBody(r *services.ChatReply) gin.H {
	return gin.H{
		"session_id": r.SessionID,
		"question":   toChatMessage(r.Question),
		"answer":     r.Answer,
		"latency_ms": r.Latency.Milliseconds(),
	}
}

func wantsStream(c *gin.Context) bool {
	return slices.Contains(strings.Split(c.GetHeader("Accept"), ","), "text/event-stream")
}

func questionFromRequest(c *gin.Context) (models.Turn, error) {
	const op = "ChatHandler.Send"

	if strings.HasPrefix(c.ContentType(), "multipart/") {
		fh, err := c.FormFile("audio")
		if err != nil {
			if text := strings.TrimSpace(c.PostForm("text")); text != "" {
				return models.TextTurn(text), nil
			}
			return models.Turn{}, utils.E(utils.CodeInvalidArgument, op, "missing multipart field 'audio' or 'text'", err)
		}
		if fh.Size <= 0 || fh.Size > maxAudioBytes {
			return models.Turn{}, utils.E(utils.CodeInvalidArgument, op, "audio must be between 1 byte and 10MB", nil)
		}
		f, err := fh.Open()
		if err != nil {
			return models.Turn{}, utils.E(utils.CodeInternal, op, "failed to open audio", err)
		}
		defer f.Close()
		data, err := io.ReadAll(io.LimitReader(f, maxAudioBytes))
		if err != nil {
			return models.Turn{}, utils.E(utils.CodeInternal, op, "failed to read audio", err)
		}
		mt := fh.Header.Get("Content-Type")
		if !strings.HasPrefix(mt, "audio/") {
			mt = ""
		}
		return models.AudioTurn(data, mt), nil
	}

	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return models.Turn{}, utils.E(utils.CodeInvalidArgument, op, "invalid request body", err)
	}
	return models.TextTurn(req.Text), nil
}
