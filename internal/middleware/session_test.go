package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kundenportal/internal/pkg/jwt"
)

func sessionRouter(j *jwt.Service) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	g := router.Group("/angebot/:token", PortalSession(j))
	g.GET("/open", func(c *gin.Context) {
		if err := IssueSession(c, j, CookieOptions{SameSite: http.SameSiteLaxMode}, "sess-1", c.Param("token")); err != nil {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.String(http.StatusOK, SessionID(c))
	})
	g.GET("/me", RequireSession(), func(c *gin.Context) {
		c.String(http.StatusOK, SessionID(c))
	})
	return router
}

func issueCookie(t *testing.T, router *gin.Engine, token string) *http.Cookie {
	t.Helper()
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/angebot/"+token+"/open", nil))
	require.Equal(t, http.StatusOK, w.Code)
	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.True(t, cookies[0].HttpOnly)
	assert.Equal(t, CookieName(token), cookies[0].Name)
	return cookies[0]
}

func TestPortalSession_ValidCookie(t *testing.T) {
	j := jwt.New("test-secret-123", time.Hour)
	router := sessionRouter(j)
	cookie := issueCookie(t, router, "tok-a")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/angebot/tok-a/me", nil)
	req.AddCookie(cookie)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "sess-1", w.Body.String())
}

func TestPortalSession_CookieBoundToToken(t *testing.T) {
	j := jwt.New("test-secret-123", time.Hour)
	router := sessionRouter(j)
	cookie := issueCookie(t, router, "tok-a")

	// replay the cookie of token A under the name expected for token B
	cookie.Name = CookieName("tok-b")
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/angebot/tok-b/me", nil)
	req.AddCookie(cookie)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "SESSION_REQUIRED")
}

func TestPortalSession_ForeignSecret(t *testing.T) {
	router := sessionRouter(jwt.New("server-secret", time.Hour))
	forged, err := jwt.New("other-secret", time.Hour).GenerateToken("sess-x", "whatever")
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/angebot/tok-a/me", nil)
	req.AddCookie(&http.Cookie{Name: CookieName("tok-a"), Value: forged})
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestPortalSession_NoCookie(t *testing.T) {
	router := sessionRouter(jwt.New("secret", time.Hour))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/angebot/tok-a/me", nil))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
