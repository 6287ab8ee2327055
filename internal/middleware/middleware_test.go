package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var secret = []byte("test-secret")

func init() {
	gin.SetMode(gin.TestMode)
}

func signed(t *testing.T, claims jwt.MapClaims, key []byte) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
	require.NoError(t, err)
	return "Bearer " + s
}

func whoAmI(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"user_id": c.GetString("user_id"), "email": c.GetString("email")})
}

func do(r http.Handler, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestOptionalAuth(t *testing.T) {
	r := gin.New()
	r.GET("/", OptionalAuth(secret), whoAmI)

	w := do(r, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user_id": "", "email": ""}`, w.Body.String())

	w = do(r, signed(t, jwt.MapClaims{"user_id": "u1", "email": "a@b.c", "exp": time.Now().Add(time.Hour).Unix()}, secret))
	assert.JSONEq(t, `{"user_id": "u1", "email": "a@b.c"}`, w.Body.String())

	// token d'un autre secret : anonyme
	w = do(r, signed(t, jwt.MapClaims{"user_id": "u1"}, []byte("autre")))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user_id": "", "email": ""}`, w.Body.String())
}

func TestAuthRequired(t *testing.T) {
	r := gin.New()
	r.GET("/", AuthRequired(secret), whoAmI)

	assert.Equal(t, http.StatusUnauthorized, do(r, "").Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, "Token abc").Code)
	assert.Equal(t, http.StatusUnauthorized,
		do(r, signed(t, jwt.MapClaims{"user_id": "u1", "exp": time.Now().Add(-time.Hour).Unix()}, secret)).Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, signed(t, jwt.MapClaims{"email": "a@b.c"}, secret)).Code)

	w := do(r, signed(t, jwt.MapClaims{"user_id": "u1"}, secret))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCartSession_StableID(t *testing.T) {
	r := gin.New()
	r.GET("/", CartSession(NewSessionStore("session-secret", false)), func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(SessionIDKey))
	})

	first := httptest.NewRecorder()
	r.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, first.Code)
	sid := first.Body.String()
	require.NotEmpty(t, sid)

	cookies := first.Result().Cookies()
	require.NotEmpty(t, cookies)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	second := httptest.NewRecorder()
	r.ServeHTTP(second, req)
	assert.Equal(t, sid, second.Body.String())

	other := httptest.NewRecorder()
	r.ServeHTTP(other, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEqual(t, sid, other.Body.String())
}

func TestCartRateLimit(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	r := gin.New()
	r.Use(func(c *gin.Context) { c.Set(SessionIDKey, "sess-1"); c.Next() })
	r.GET("/", CartRateLimit(client), func(c *gin.Context) { c.Status(http.StatusOK) })

	for i := 0; i < CartMaxRequests; i++ {
		require.Equal(t, http.StatusOK, do(r, "").Code, "requête %d", i)
	}
	assert.Equal(t, http.StatusTooManyRequests, do(r, "").Code)

	mr.FastForward(RateWindow + time.Second)
	assert.Equal(t, http.StatusOK, do(r, "").Code)
}

func TestRateLimit_RedisDownLetsRequestsThrough(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer client.Close()
	mr.Close()

	r := gin.New()
	r.GET("/", APIRateLimit(client), func(c *gin.Context) { c.Status(http.StatusOK) })

	w := do(r, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "99", w.Header().Get("X-RateLimit-Remaining"))
}

func TestAPIRateLimit_Headers(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	r := gin.New()
	r.GET("/", APIRateLimit(client), func(c *gin.Context) { c.Status(http.StatusOK) })

	w := do(r, "")
	assert.Equal(t, "100", w.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "99", w.Header().Get("X-RateLimit-Remaining"))
}
