package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/strv-go/newsletter-publisher/internal/session"
)

func testLogger() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}

func newTestSessionStore(t *testing.T) *session.Store {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return session.New(client)
}

func TestRequireSessionNoCookieRedirectsToLogin(t *testing.T) {
	store := newTestSessionStore(t)
	handler := RequireSession(store, testLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be called")
	}))

	req := httptest.NewRequest(http.MethodGet, "/admin/dashboard", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/login", rr.Header().Get("Location"))
}

func TestRequireSessionUnknownSessionRedirectsToLogin(t *testing.T) {
	store := newTestSessionStore(t)
	handler := RequireSession(store, testLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be called")
	}))

	req := httptest.NewRequest(http.MethodGet, "/admin/dashboard", nil)
	req.AddCookie(&http.Cookie{Name: session.CookieName, Value: "unknown-session-id"})
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/login", rr.Header().Get("Location"))
}

func TestRequireSessionValidSessionInjectsUserID(t *testing.T) {
	store := newTestSessionStore(t)
	sessionID, err := session.NewSessionID()
	require.NoError(t, err)
	require.NoError(t, store.SetUserID(t.Context(), sessionID, "user-123"))

	var sawUserID string
	handler := RequireSession(store, testLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sawUserID = UserIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/admin/dashboard", nil)
	req.AddCookie(&http.Cookie{Name: session.CookieName, Value: sessionID})
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "user-123", sawUserID)
}

func TestUserIDFromContextEmptyWhenAbsent(t *testing.T) {
	assert.Equal(t, "", UserIDFromContext(httptest.NewRequest(http.MethodGet, "/", nil).Context()))
}
