package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/set-night/shopassist/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureClientID(t *testing.T, req *http.Request) (string, *httptest.ResponseRecorder) {
	t.Helper()
	var got string
	h := Identity(false)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = ClientIDFromContext(r.Context())
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return got, rec
}

func TestIdentity_IssuesCookie(t *testing.T) {
	id, rec := captureClientID(t, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Regexp(t, `^client_[a-f0-9]{32}$`, id)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, config.ClientCookieName, cookies[0].Name)
	assert.Equal(t, id, cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)
}

func TestIdentity_KeepsValidCookie(t *testing.T) {
	const existing = "client_0123456789abcdef0123456789abcdef"
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: config.ClientCookieName, Value: existing})

	id, _ := captureClientID(t, req)
	assert.Equal(t, existing, id)
}

func TestIdentity_ReplacesMalformedCookie(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: config.ClientCookieName, Value: "../../etc"})

	id, _ := captureClientID(t, req)
	assert.NotEqual(t, "../../etc", id)
	assert.Regexp(t, `^client_[a-f0-9]{32}$`, id)
}

func TestRecover(t *testing.T) {
	h := Recover()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()

	assert.NotPanics(t, func() {
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
