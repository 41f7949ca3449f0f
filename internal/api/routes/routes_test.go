package routes

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/yoockh/legalease/internal/api/handlers"
	"github.com/yoockh/legalease/internal/api/middleware"
)

func newRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	RegisterRoutes(r, Deps{
		Documents: handlers.NewDocumentHandler(nil, nil, 1<<20),
		Workspace: handlers.NewWorkspaceHandler(nil),
		Reports:   handlers.NewReportHandler(nil, 1<<20),
		Chat:      handlers.NewChatHandler(nil),
		Auth:      middleware.JWTConfig{Secret: "test-secret"},
	})
	return r
}

func TestPingIsPublic(t *testing.T) {
	w := httptest.NewRecorder()
	newRouter().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"pong"}`, w.Body.String())
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	r := newRouter()
	for _, tc := range []struct{ method, path string }{
		{http.MethodPost, "/documents"},
		{http.MethodGet, "/workspace"},
		{http.MethodPut, "/workspace/language"},
		{http.MethodGet, "/reports/summary"},
		{http.MethodPost, "/compare"},
		{http.MethodPost, "/chat/messages"},
		{http.MethodGet, "/chat/history"},
	} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(tc.method, tc.path, nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code, tc.path)
	}
}

func TestOptionalRoutesUnmounted(t *testing.T) {
	r := newRouter()
	for _, path := range []string{"/sessions", "/ws/chat", "/conversation/s1"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusNotFound, w.Code, path)
	}
}
