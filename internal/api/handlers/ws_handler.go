package handlers

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/yoockh/legalease/internal/models"
	"github.com/yoockh/legalease/internal/services"
	"github.com/yoockh/legalease/internal/utils"
)

type WSHandler struct {
	assistant services.AssistantService
	questions services.QuestionService
	redis     *redis.Client
	stream    string
	logger    *logrus.Logger
	upgrader  websocket.Upgrader
}

// NewWSHandler builds the /ws/chat handler. allowedOrigins empty accepts any
// origin.
func NewWSHandler(assistant services.AssistantService, questions services.QuestionService, rdb *redis.Client, stream string, allowedOrigins []string, logger *logrus.Logger) *WSHandler {
	if stream == "" {
		stream = "question:stream"
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &WSHandler{
		assistant: assistant,
		questions: questions,
		redis:     rdb,
		stream:    stream,
		logger:    logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: originChecker(allowedOrigins),
		},
	}
}

func originChecker(allowed []string) func(*http.Request) bool {
	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		set[strings.TrimRight(strings.TrimSpace(o), "/")] = struct{}{}
	}
	return func(r *http.Request) bool {
		_, ok := set[r.Header.Get("Origin")]
		return ok
	}
}

type wsClientMsg struct {
	Type        string `json:"type"` // text_question|audio_question|set_language|reset
	Text        string `json:"text"`
	AudioBase64 string `json:"audio_base64"`
	MIMEType    string `json:"mime_type"`
	Language    string `json:"language"`
}

type wsConn struct {
	c  *websocket.Conn
	mu sync.Mutex
}

func (w *wsConn) writeText(b []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	_ = w.c.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return w.c.WriteMessage(websocket.TextMessage, b)
}

func (w *wsConn) writeEvent(ev services.QuestionEvent) error {
	b, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return w.writeText(b)
}

func (w *wsConn) writeError(err error) {
	ae := toAPIError(err)
	_ = w.writeEvent(services.QuestionEvent{Type: "error", Code: string(ae.Code), Message: ae.Message})
}

// Chat queues questions received on the socket and relays the workers'
// events for this user back to it.
func (h *WSHandler) Chat(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// upgrade already wrote response in most cases
		return
	}
	defer conn.Close()

	wc := &wsConn{c: conn}
	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	pubsub := h.redis.Subscribe(ctx, services.ResponseChannel(userID))
	defer pubsub.Close()

	log := h.logger.WithField("user_id", userID)
	log.Debug("chat socket opened")

	// reader: WS -> Mongo + Redis stream
	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		conn.SetPongHandler(func(string) error {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			return nil
		})

		for {
			_, data, rerr := conn.ReadMessage()
			if rerr != nil {
				return
			}
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))

			var msg wsClientMsg
			if err := json.Unmarshal(data, &msg); err != nil {
				wc.writeError(utils.E(utils.CodeInvalidArgument, "WSHandler.Chat", "invalid json", err))
				continue
			}
			h.handleClientMsg(ctx, wc, log, userID, msg)
		}
	}()

	// keepalive
	go func() {
		t := time.NewTicker(30 * time.Second)
		defer t.Stop()
		for {
			select {
			case <-readDone:
				return
			case <-t.C:
				wc.mu.Lock()
				err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second))
				wc.mu.Unlock()
				if err != nil {
					return
				}
			}
		}
	}()

	// writer: Redis Pub/Sub -> WS
	msgs := pubsub.Channel()
	for {
		select {
		case <-readDone:
			log.Debug("chat socket closed")
			return
		case m, ok := <-msgs:
			if !ok {
				return
			}
			if werr := wc.writeText([]byte(m.Payload)); werr != nil {
				return
			}
		}
	}
}

func (h *WSHandler) handleClientMsg(ctx context.Context, wc *wsConn, log *logrus.Entry, userID string, msg wsClientMsg) {
	const op = "WSHandler.Chat"

	switch msg.Type {
	case "text_question":
		h.enqueue(ctx, wc, log, userID, models.TextTurn(msg.Text))

	case "audio_question":
		raw := msg.AudioBase64
		if i := strings.Index(raw, ","); i >= 0 {
			raw = raw[i+1:] // strip data:...;base64,
		}
		audio, err := base64.StdEncoding.DecodeString(raw)
		if err != nil || len(audio) == 0 {
			wc.writeError(utils.E(utils.CodeInvalidArgument, op, "invalid audio_base64", err))
			return
		}
		if len(audio) > maxAudioBytes {
			wc.writeError(utils.E(utils.CodeInvalidArgument, op, "audio too large", nil))
			return
		}
		h.enqueue(ctx, wc, log, userID, models.AudioTurn(audio, msg.MIMEType))

	case "set_language":
		if err := h.assistant.OnLanguageChange(ctx, userID, models.Language(msg.Language)); err != nil {
			wc.writeError(err)
			return
		}
		_ = wc.writeEvent(services.QuestionEvent{Type: "status", Status: "language_changed", Message: msg.Language})

	case "reset":
		h.assistant.ResetChat(ctx, userID)
		_ = wc.writeEvent(services.QuestionEvent{Type: "status", Status: "reset"})

	default:
		wc.writeError(utils.E(utils.CodeInvalidArgument, op, "unknown message type", nil))
	}
}

func (h *WSHandler) enqueue(ctx context.Context, wc *wsConn, log *logrus.Entry, userID string, q models.Turn) {
	queued, err := h.questions.Enqueue(ctx, userID, q)
	if err != nil {
		wc.writeError(err)
		return
	}

	err = h.redis.XAdd(ctx, &redis.XAddArgs{
		Stream: h.stream,
		Values: map[string]any{
			"question_id": queued.QuestionID,
			"user_id":     userID,
		},
	}).Err()
	if err != nil {
		log.WithError(err).Error("failed to enqueue question")
		wc.writeError(utils.E(utils.CodeUnavailable, "WSHandler.Chat", "failed to enqueue question", err))
		return
	}

	_ = wc.writeEvent(services.QuestionEvent{Type: "queued", QuestionID: queued.QuestionID, Status: models.StatusPending})
}
