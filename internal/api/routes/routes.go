package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/yoockh/legalease/internal/api/handlers"
	"github.com/yoockh/legalease/internal/api/middleware"
)

// Deps holds the handlers mounted by RegisterRoutes. Conversation and WS are
// optional and stay unmounted when their backing stores are disabled.
type Deps struct {
	Documents    *handlers.DocumentHandler
	Workspace    *handlers.WorkspaceHandler
	Reports      *handlers.ReportHandler
	Chat         *handlers.ChatHandler
	Conversation *handlers.ConversationHandler
	Session      *handlers.SessionHandler
	WS           *handlers.WSHandler

	Auth middleware.JWTConfig
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "pong"})
	})

	// Protected routes (JWT)
	auth := r.Group("/")
	auth.Use(middleware.JWTAuth(d.Auth))

	auth.POST("/documents", d.Documents.Upload)
	auth.GET("/documents", d.Documents.List)

	auth.GET("/workspace", d.Workspace.Get)
	auth.PUT("/workspace/language", d.Workspace.SetLanguage)
	auth.DELETE("/workspace/chat", d.Workspace.ResetChat)

	auth.GET("/reports/summary", d.Reports.Summary)
	auth.GET("/reports/clauses", d.Reports.Clauses)
	auth.POST("/reports/comparison", d.Reports.Comparison)
	auth.POST("/compare", d.Reports.Compare)

	auth.POST("/chat/messages", d.Chat.Send)
	auth.POST("/chat/retry", d.Chat.Retry)
	auth.GET("/chat/history", d.Chat.History)

	if d.Session != nil {
		auth.GET("/sessions", d.Session.List)
		admin := auth.Group("/admin")
		admin.Use(middleware.RequireAdmin())
		admin.GET("/sessions/:session_id", d.Session.Get)
	}

	if d.Conversation != nil {
		auth.GET("/conversation/:session_id", d.Conversation.ListBySession)
	}

	// WebSocket
	if d.WS != nil {
		auth.GET("/ws/chat", d.WS.Chat)
	}
}
