package middleware

import (
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cppla/expertqa/config"
	"github.com/cppla/expertqa/utils"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	config.Set(config.AppConfig{JWTSecret: "test-secret", RedisDisabled: true, LogLevel: "error"})
	os.Exit(m.Run())
}

func identityRouter(mw gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.GET("/who", mw, func(c *gin.Context) {
		id, _ := c.Get(ContextUserIDKey)
		utils.Success(c, gin.H{"user_id": id})
	})
	return r
}

func get(r http.Handler, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/who", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthRequired(t *testing.T) {
	r := identityRouter(AuthRequired())
	token, _, err := utils.GenerateToken(7, "alice", time.Hour)
	require.NoError(t, err)

	cases := []struct {
		name   string
		header string
		status int
		code   string
	}{
		{"missing header", "", http.StatusUnauthorized, `"code":40101`},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized, `"code":40102`},
		{"empty token", "Bearer  ", http.StatusUnauthorized, `"code":40103`},
		{"garbage token", "Bearer not-a-jwt", http.StatusUnauthorized, `"code":40105`},
		{"valid", "Bearer " + token, http.StatusOK, `"user_id":7`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := get(r, tc.header)
			assert.Equal(t, tc.status, w.Code)
			assert.Contains(t, w.Body.String(), tc.code)
		})
	}
}

func TestAuthRequiredRejectsRevokedToken(t *testing.T) {
	r := identityRouter(AuthRequired())
	token, claims, err := utils.GenerateToken(8, "bob", time.Hour)
	require.NoError(t, err)

	utils.BlacklistToken(claims.ID, claims.ExpiresAt.Time)

	w := get(r, "Bearer "+token)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), `"code":40104`)
}

func TestOptionalAuth(t *testing.T) {
	r := identityRouter(OptionalAuth())
	token, _, err := utils.GenerateToken(9, "carol", time.Hour)
	require.NoError(t, err)

	w := get(r, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"user_id":null`)

	w = get(r, "Bearer broken")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"user_id":null`)

	w = get(r, "Bearer "+token)
	assert.Contains(t, w.Body.String(), `"user_id":9`)
}

func TestRateLimitPerMinute(t *testing.T) {
	r := gin.New()
	r.GET("/limited", RateLimitPerMinute(2), func(c *gin.Context) { utils.Success(c, nil) })

	statuses := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/limited", nil)
		req.RemoteAddr = "203.0.113.9:1234"
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		statuses = append(statuses, w.Code)
	}
	// burst of one, refill every 30s
	assert.Equal(t, []int{http.StatusOK, http.StatusTooManyRequests, http.StatusTooManyRequests}, statuses)
}
