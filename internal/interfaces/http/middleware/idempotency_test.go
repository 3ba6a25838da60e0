package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	redisv9 "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	redispkg "pay-watch.backend/pkg/redis"
)

func startMiniRedis(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	srv, err := miniredis.Run()
	if err != nil {
		t.Skipf("skip: miniredis unavailable in this environment: %v", err)
	}
	t.Cleanup(srv.Close)

	cli := redisv9.NewClient(&redisv9.Options{Addr: srv.Addr()})
	redispkg.SetClient(cli)
	t.Cleanup(func() { _ = cli.Close() })
	return srv
}

func idempotentRouter(handler gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(IdempotencyMiddleware())
	r.POST("/requests", handler)
	return r
}

func postWithKey(r *gin.Engine, key string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/requests", nil)
	if key != "" {
		req.Header.Set(IdempotencyHeader, key)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestIdempotencyMiddleware_NoHeaderPassthrough(t *testing.T) {
	r := idempotentRouter(func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := postWithKey(r, "")
	require.Equal(t, http.StatusNoContent, w.Code)
}

func TestIdempotencyMiddleware_ReplaysStoredResponse(t *testing.T) {
	startMiniRedis(t)

	calls := 0
	r := idempotentRouter(func(c *gin.Context) {
		calls++
		c.String(http.StatusCreated, `{"id":1}`)
	})

	w := postWithKey(r, "key-1")
	require.Equal(t, http.StatusCreated, w.Code)

	w2 := postWithKey(r, "key-1")
	require.Equal(t, http.StatusCreated, w2.Code, "replay keeps the original status")
	require.Equal(t, "true", w2.Header().Get("X-Idempotency-Replay"))
	require.Equal(t, `{"id":1}`, w2.Body.String())
	require.Equal(t, 1, calls)
}

func TestIdempotencyMiddleware_ProcessingConflict(t *testing.T) {
	srv := startMiniRedis(t)
	require.NoError(t, srv.Set("idempotency::key-2", processingMarker))

	r := idempotentRouter(func(c *gin.Context) { c.Status(http.StatusCreated) })

	w := postWithKey(r, "key-2")
	require.Equal(t, http.StatusConflict, w.Code)
}

func TestIdempotencyMiddleware_FailureReleasesKey(t *testing.T) {
	startMiniRedis(t)

	calls := 0
	r := idempotentRouter(func(c *gin.Context) {
		calls++
		if calls == 1 {
			c.String(http.StatusInternalServerError, "boom")
			return
		}
		c.String(http.StatusCreated, `{"id":2}`)
	})

	w := postWithKey(r, "key-3")
	require.Equal(t, http.StatusInternalServerError, w.Code)

	_, err := redispkg.Get(context.Background(), "idempotency::key-3")
	require.Equal(t, redisv9.Nil, err, "failed attempts must not poison the key")

	w2 := postWithKey(r, "key-3")
	require.Equal(t, http.StatusCreated, w2.Code)
	require.Equal(t, 2, calls)
}

func TestIdempotencyMiddleware_ScopedByCaller(t *testing.T) {
	startMiniRedis(t)

	gin.SetMode(gin.TestMode)
	calls := 0
	r := gin.New()
	caller := "merchant-a"
	r.Use(func(c *gin.Context) { c.Set(CallerKey, caller); c.Next() })
	r.Use(IdempotencyMiddleware())
	r.POST("/requests", func(c *gin.Context) {
		calls++
		c.String(http.StatusCreated, `{}`)
	})

	postWithKey(r, "shared-key")
	caller = "merchant-b"
	postWithKey(r, "shared-key")

	require.Equal(t, 2, calls, "the same key from different callers is not a replay")
}

func TestIdempotencyMiddleware_RedisOutagePassthrough(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cli := redisv9.NewClient(&redisv9.Options{Addr: "127.0.0.1:0"})
	redispkg.SetClient(cli)
	t.Cleanup(func() { _ = cli.Close() })

	r := idempotentRouter(func(c *gin.Context) { c.Status(http.StatusAccepted) })

	w := postWithKey(r, "key-4")
	require.Equal(t, http.StatusAccepted, w.Code)
}
