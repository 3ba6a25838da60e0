package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// min cost keeps the suite fast; CheckAPIKey works at any cost
func testKeyHash(t *testing.T, key string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func authedRouter(hashes []string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(APIKeyAuthMiddleware(hashes))
	r.GET("/whoami", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(CallerKey))
	})
	return r
}

func TestAPIKeyAuth_MissingKey(t *testing.T) {
	r := authedRouter(nil)

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Contains(t, w.Body.String(), "API key is required")
}

func TestAPIKeyAuth_UnknownKey(t *testing.T) {
	r := authedRouter([]string{testKeyHash(t, "pw_configured")})

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set(APIKeyHeader, "pw_other")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Contains(t, w.Body.String(), "invalid API key")
}

func TestAPIKeyAuth_RejectsForeignPrefix(t *testing.T) {
	r := authedRouter([]string{testKeyHash(t, "sk_live_123")})

	// even a hash match is rejected when the key is not one of ours
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set(APIKeyHeader, "sk_live_123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAPIKeyAuth_AcceptsConfiguredKey(t *testing.T) {
	key := "pw_0123456789abcdef"
	r := authedRouter([]string{testKeyHash(t, "pw_some_other"), testKeyHash(t, key)})

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set(APIKeyHeader, key)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, w.Body.String(), 12, "caller id is a short fingerprint")
	require.NotContains(t, w.Body.String(), key)
}

func TestAPIKeyAuth_AcceptsBearerForm(t *testing.T) {
	key := "pw_0123456789abcdef"
	r := authedRouter([]string{testKeyHash(t, key)})

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set(AuthorizationHeader, BearerPrefix+key)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
}
