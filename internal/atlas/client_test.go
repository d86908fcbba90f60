package atlas

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/atlas/internal/model"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := NewClient(srv.URL, 0)
	require.NoError(t, err)
	return c
}

func TestNewClientRejectsBadScheme(t *testing.T) {
	_, err := NewClient("ftp://example.com", 0)
	require.Error(t, err)
}

func TestErrorDetailIsSurfaced(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		io.WriteString(w, `{"detail":"bad input"}`)
	})

	_, err := c.ListOwners(context.Background(), 50)
	require.Error(t, err)
	assert.Equal(t, "bad input", err.Error())

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
}

func TestErrorWithoutBodyFallsBackToStatus(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := c.ListAssets(context.Background(), 50)
	require.Error(t, err)
	assert.Equal(t, "HTTP 502", err.Error())
}

func TestErrorWithNonStringDetail(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		io.WriteString(w, `{"detail":[{"loc":["body"],"msg":"field required"}]}`)
	})

	_, err := c.ListAssets(context.Background(), 50)
	require.Error(t, err)
	assert.Equal(t, "HTTP 422", err.Error())
}

func TestIsUnauthorized(t *testing.T) {
	assert.True(t, IsUnauthorized(&APIError{Status: http.StatusUnauthorized}))
	assert.True(t, IsUnauthorized(&APIError{Status: http.StatusForbidden}))
	assert.False(t, IsUnauthorized(&APIError{Status: http.StatusNotFound}))
	assert.False(t, IsUnauthorized(io.EOF))
}

func TestCookiesAreForwarded(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		ck, err := r.Cookie("session")
		if err != nil || ck.Value != "abc" {
			w.WriteHeader(http.StatusUnauthorized)
			io.WriteString(w, `{"detail":"login required"}`)
			return
		}
		io.WriteString(w, `{"email":"admin@atlas.local","role":"admin"}`)
	})

	_, err := c.Me(context.Background())
	require.Error(t, err)
	assert.True(t, IsUnauthorized(err))

	ctx := WithCookies(context.Background(), []*http.Cookie{{Name: "session", Value: "abc"}})
	id, err := c.Me(ctx)
	require.NoError(t, err)
	assert.True(t, id.Authenticated())
	assert.Equal(t, "admin@atlas.local", id.Email)
}

func TestListOnboardingQuery(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/admin/onboarding", r.URL.Path)
		assert.Equal(t, "needs_more", r.URL.Query().Get("status"))
		assert.Equal(t, "50", r.URL.Query().Get("limit"))
		io.WriteString(w, `{"ok":true,"items":[{"id":"s1","status":"needs_more","owner_name":null,"extra":{"a":1}}]}`)
	})

	items, err := c.ListOnboarding(context.Background(), model.StatusNeedsMore, 50)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "s1", items[0].ID)
	assert.Equal(t, "", items[0].OwnerName)
	assert.Nil(t, items[0].IPAssetsCount)
	assert.Contains(t, items[0].Pretty(), `"extra"`)
}

func TestListEmptyItems(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"ok":true,"items":[]}`)
	})

	items, err := c.ListVaultObjects(context.Background(), model.SourceAll, 50)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestGetOnboardingEscapesID(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/admin/onboarding/a%2Fb", r.URL.EscapedPath())
		io.WriteString(w, `{"submission":{"id":"a/b","status":"submitted"}}`)
	})

	sub, err := c.GetOnboarding(context.Background(), "a/b")
	require.NoError(t, err)
	assert.Equal(t, "a/b", sub.ID)
}

func TestCreateAssetSendsNullOwner(t *testing.T) {
	var body map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		io.WriteString(w, `{"ok":true,"id":"a1"}`)
	})

	id, err := c.CreateAsset(context.Background(), model.AssetInput{Title: "Widget patent"})
	require.NoError(t, err)
	assert.Equal(t, "a1", id)

	v, present := body["owner_id"]
	assert.True(t, present)
	assert.Nil(t, v)
	assert.Equal(t, "Widget patent", body["title"])
}

func TestApproveOnboarding(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/admin/onboarding/s1/approve", r.URL.Path)
		io.WriteString(w, `{"user_email":"owner@example.com","temp_password":"t3mp!Pass"}`)
	})

	approval, err := c.ApproveOnboarding(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, "owner@example.com", approval.UserEmail)
	assert.Equal(t, "t3mp!Pass", approval.TempPassword)
}

func TestIngestMultipart(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "dossier", r.FormValue("source_key"))
		assert.Equal(t, "org-1", r.FormValue("org_id"))
		assert.Equal(t, "tenant-1", r.FormValue("tenant_id"))
		assert.Equal(t, "v2", r.FormValue("schema_version"))
		assert.Equal(t, `{"k":"v"}`, r.FormValue("manifest_json"))

		f, hdr, err := r.FormFile("bundle")
		require.NoError(t, err)
		defer f.Close()
		data, _ := io.ReadAll(f)
		assert.Equal(t, "export.zip", hdr.Filename)
		assert.Equal(t, "payload", string(data))

		io.WriteString(w, `{"ok":true,"object_id":"o1","sha256":"abc123","byte_size":7}`)
	})

	res, err := c.Ingest(context.Background(), model.IngestRequest{
		SourceKey:     "dossier",
		OrgID:         "org-1",
		TenantID:      "tenant-1",
		SchemaVersion: "v2",
		ManifestJSON:  `{"k":"v"}`,
		Filename:      "export.zip",
		Bundle:        strings.NewReader("payload"),
	})
	require.NoError(t, err)
	assert.Equal(t, "o1", res.ObjectID)
	assert.Equal(t, "abc123", res.SHA256)
	assert.EqualValues(t, 7, res.ByteSize)
}

func TestIngestWithoutBundle(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("unexpected request")
	})

	_, err := c.Ingest(context.Background(), model.IngestRequest{SourceKey: "dossier"})
	require.Error(t, err)
}

func TestLoginReturnsCookies(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "session", Value: "xyz", Path: "/"})
		io.WriteString(w, `{"ok":true,"email":"admin@atlas.local","role":"admin"}`)
	})

	cookies, id, err := c.Login(context.Background(), "admin@atlas.local", "pw")
	require.NoError(t, err)
	require.Len(t, cookies, 1)
	assert.Equal(t, "xyz", cookies[0].Value)
	assert.Equal(t, "admin", id.Role)
}

func TestDownloadPath(t *testing.T) {
	assert.Equal(t, "/api/admin/vault/objects/o1/download", DownloadPath("o1"))
}
