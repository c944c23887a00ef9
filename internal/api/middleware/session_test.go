package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"ctchen222/Finger-Auth/internal/session"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newCodec(t *testing.T) *session.Codec {
	t.Helper()
	codec, err := session.NewCodec("test-secret", time.Hour, false)
	require.NoError(t, err)
	return codec
}

func TestSession_IssuesCookieOnce(t *testing.T) {
	codec := newCodec(t)
	r := gin.New()
	r.Use(Session(codec))
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, SessionID(c)) })

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	first := rec.Body.String()
	assert.NotEmpty(t, first)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookies[0])
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, first, rec.Body.String())
	assert.Empty(t, rec.Result().Cookies())
}

func TestSession_ReplacesForgedCookie(t *testing.T) {
	codec := newCodec(t)
	r := gin.New()
	r.Use(Session(codec))
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, SessionID(c)) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: session.CookieName, Value: "victim-session-id"})
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.NotEqual(t, "victim-session-id", rec.Body.String())
	assert.Len(t, rec.Result().Cookies(), 1)
}

func TestRequireAuthenticated(t *testing.T) {
	codec := newCodec(t)
	store := session.NewMemoryStore(time.Hour)
	r := gin.New()
	r.Use(Session(codec))
	r.GET("/private", RequireAuthenticated(store, "/"), func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	sid := "sid-1"
	token, err := codec.Sign(sid)
	require.NoError(t, err)
	request := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/private", nil)
		req.AddCookie(&http.Cookie{Name: session.CookieName, Value: token})
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		return rec
	}

	rec := request()
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))

	_, err = store.Update(context.Background(), sid, func(st *session.State) error {
		st.BeginPending(session.PendingAuth{UserID: "u", Username: "alice", Action: session.ActionLogin})
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusFound, request().Code)

	_, err = store.Update(context.Background(), sid, func(st *session.State) error {
		_, err := st.CompleteChallenge(true, time.Now())
		return err
	})
	require.NoError(t, err)
	rec = request()
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}
