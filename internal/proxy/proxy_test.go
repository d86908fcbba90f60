package proxy

import (
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProxyForwardsAndStripsConsoleCookies(t *testing.T) {
	var got *http.Request
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Clone(r.Context())
		w.Write([]byte("ok"))
	}))
	defer backend.Close()

	u, err := url.Parse(backend.URL)
	require.NoError(t, err)
	front := httptest.NewServer(New(u, "atlas_panel", "_gorilla_csrf"))
	defer front.Close()

	req, _ := http.NewRequest(http.MethodGet, front.URL+"/api/admin/vault/objects/x/download", nil)
	req.Header.Set("Cookie", "session=abc; atlas_panel=jwt; _gorilla_csrf=tok")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "ok", string(body))
	require.NotNil(t, got)
	assert.Equal(t, "/api/admin/vault/objects/x/download", got.URL.Path)
	assert.Equal(t, "session=abc", got.Header.Get("Cookie"))
	assert.NotEmpty(t, got.Header.Get("X-Forwarded-For"))
	assert.Equal(t, "http", got.Header.Get("X-Forwarded-Proto"))
	assert.Equal(t, strings.TrimPrefix(front.URL, "http://"), got.Header.Get("X-Forwarded-Host"))
}

func TestProxyBackendDown(t *testing.T) {
	backend := httptest.NewServer(http.NotFoundHandler())
	u, _ := url.Parse(backend.URL)
	backend.Close()

	rec := httptest.NewRecorder()
	New(u).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/auth/me", nil))

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.JSONEq(t, `{"detail":"backend unavailable"}`, rec.Body.String())
}

func TestRecovery(t *testing.T) {
	h := Recovery(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestLoggingKeepsStatus(t *testing.T) {
	h := Logging(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
}

func TestTrustedHosts(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) })

	tests := []struct {
		hosts []string
		host  string
		want  int
	}{
		{nil, "anything", http.StatusNoContent},
		{[]string{"admin.example.com"}, "admin.example.com:8080", http.StatusNoContent},
		{[]string{"admin.example.com"}, "ADMIN.example.com", http.StatusNoContent},
		{[]string{"admin.example.com"}, "evil.test", http.StatusBadRequest},
		{[]string{"*.example.com"}, "a.example.com", http.StatusNoContent},
		{[]string{"*.example.com"}, "example.org", http.StatusBadRequest},
		{[]string{"*"}, "x", http.StatusNoContent},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Host = tt.host
		rec := httptest.NewRecorder()
		TrustedHosts(tt.hosts)(ok).ServeHTTP(rec, req)
		assert.Equal(t, tt.want, rec.Code, "hosts=%v host=%s", tt.hosts, tt.host)
	}
}
