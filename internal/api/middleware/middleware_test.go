package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "super-secret-jwt-key"

func init() {
	gin.SetMode(gin.TestMode)
}

func sign(t *testing.T, method jwt.SigningMethod, key any, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return s
}

func validClaims() jwt.MapClaims {
	return jwt.MapClaims{
		"sub": "user-123",
		"iss": "https://example.supabase.co/auth/v1",
		"aud": "authenticated",
		"exp": time.Now().Add(time.Hour).Unix(),
	}
}

func newRouter(cfg JWTConfig, extra ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	handlers := append([]gin.HandlerFunc{JWTAuth(cfg)}, extra...)
	handlers = append(handlers, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": c.GetString("user_id"), "role": c.GetString("role")})
	})
	r.GET("/me", handlers...)
	r.POST("/me", handlers...)
	return r
}

func do(r http.Handler, method, target, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestJWTAuth(t *testing.T) {
	cfg := JWTConfig{Secret: testSecret, Issuer: "https://example.supabase.co/auth/v1", Audience: "authenticated"}
	r := newRouter(cfg)

	expired := validClaims()
	expired["exp"] = time.Now().Add(-time.Hour).Unix()
	wrongAud := validClaims()
	wrongAud["aud"] = "anon"
	noSub := validClaims()
	delete(noSub, "sub")

	tests := []struct {
		name   string
		token  string
		status int
	}{
		{"valid", sign(t, jwt.SigningMethodHS256, []byte(testSecret), validClaims()), http.StatusOK},
		{"missing", "", http.StatusUnauthorized},
		{"wrong secret", sign(t, jwt.SigningMethodHS256, []byte("other"), validClaims()), http.StatusUnauthorized},
		{"wrong alg", sign(t, jwt.SigningMethodHS512, []byte(testSecret), validClaims()), http.StatusUnauthorized},
		{"expired", sign(t, jwt.SigningMethodHS256, []byte(testSecret), expired), http.StatusUnauthorized},
		{"audience", sign(t, jwt.SigningMethodHS256, []byte(testSecret), wrongAud), http.StatusUnauthorized},
		{"subject", sign(t, jwt.SigningMethodHS256, []byte(testSecret), noSub), http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(r, http.MethodGet, "/me", tt.token)
			assert.Equal(t, tt.status, w.Code)
		})
	}
}

func TestJWTAuthSetsUserAndRole(t *testing.T) {
	r := newRouter(JWTConfig{Secret: testSecret})

	claims := validClaims()
	claims["app_metadata"] = map[string]any{"role": "admin"}
	w := do(r, http.MethodGet, "/me", sign(t, jwt.SigningMethodHS256, []byte(testSecret), claims))
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "user-123", body["user_id"])
	assert.Equal(t, "admin", body["role"])
}

func TestJWTAuthQueryTokenOnlyForGET(t *testing.T) {
	r := newRouter(JWTConfig{Secret: testSecret})
	tok := sign(t, jwt.SigningMethodHS256, []byte(testSecret), validClaims())

	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/me?access_token="+tok, "").Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, http.MethodPost, "/me?access_token="+tok, "").Code)
}

func TestJWTAuthWithoutSecret(t *testing.T) {
	r := newRouter(JWTConfig{})
	assert.Equal(t, http.StatusInternalServerError, do(r, http.MethodGet, "/me", "x").Code)
}

func TestRequireRole(t *testing.T) {
	r := newRouter(JWTConfig{Secret: testSecret}, RequireAdmin())

	user := do(r, http.MethodGet, "/me", sign(t, jwt.SigningMethodHS256, []byte(testSecret), validClaims()))
	assert.Equal(t, http.StatusForbidden, user.Code)

	claims := validClaims()
	claims["app_metadata"] = map[string]any{"role": "Admin"}
	admin := do(r, http.MethodGet, "/me", sign(t, jwt.SigningMethodHS256, []byte(testSecret), claims))
	assert.Equal(t, http.StatusOK, admin.Code)
}

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	l := logrus.New()
	l.SetOutput(&buf)
	l.SetFormatter(&logrus.JSONFormatter{})

	r := gin.New()
	r.Use(RequestLogger(l, "/ping"))
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/boom", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })

	w := do(r, http.MethodGet, "/ping", "")
	assert.NotEmpty(t, w.Header().Get("X-Request-Id"))
	assert.Empty(t, buf.String())

	do(r, http.MethodGet, "/boom", "")
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "error", entry["level"])
	assert.Equal(t, "/boom", entry["path"])
	assert.EqualValues(t, 500, entry["status"])
}
