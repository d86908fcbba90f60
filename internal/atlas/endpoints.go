package atlas

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"

	"github.com/erazemk/atlas/internal/model"
)

type listResponse[T any] struct {
	Items []T `json:"items"`
}

type createdResponse struct {
	ID string `json:"id"`
}

func listQuery(key, value string, limit int) url.Values {
	q := url.Values{}
	if key != "" && value != "" {
		q.Set(key, value)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	return q
}

// Me returns the identity bound to the session cookies in ctx.
func (c *Client) Me(ctx context.Context) (*model.Identity, error) {
	var id model.Identity
	if err := c.getJSON(ctx, "/api/auth/me", nil, &id); err != nil {
		return nil, err
	}
	return &id, nil
}

// Login authenticates against the backend and returns the session cookies
// it issued.
func (c *Client) Login(ctx context.Context, email, password string) ([]*http.Cookie, *model.Identity, error) {
	var id model.Identity
	resp, err := c.postJSON(ctx, "/api/auth/login", map[string]string{
		"email":    email,
		"password": password,
	}, &id)
	if err != nil {
		return nil, nil, err
	}
	return resp.Cookies(), &id, nil
}

// Logout clears the backend session and returns the cookies the backend set
// while doing so.
func (c *Client) Logout(ctx context.Context) ([]*http.Cookie, error) {
	resp, err := c.postJSON(ctx, "/api/auth/logout", nil, nil)
	if err != nil {
		return nil, err
	}
	return resp.Cookies(), nil
}

// ListOnboarding lists submissions with the given status ("all" for every status).
func (c *Client) ListOnboarding(ctx context.Context, status string, limit int) ([]model.OnboardingSubmission, error) {
	var resp listResponse[model.OnboardingSubmission]
	if err := c.getJSON(ctx, "/api/admin/onboarding", listQuery("status", status, limit), &resp); err != nil {
		return nil, err
	}
	return resp.Items, nil
}

// GetOnboarding fetches one submission with all of its fields.
func (c *Client) GetOnboarding(ctx context.Context, id string) (*model.OnboardingSubmission, error) {
	var resp struct {
		Submission *model.OnboardingSubmission `json:"submission"`
	}
	if err := c.getJSON(ctx, "/api/admin/onboarding/"+url.PathEscape(id), nil, &resp); err != nil {
		return nil, err
	}
	if resp.Submission == nil {
		return nil, fmt.Errorf("onboarding %s: response has no submission", id)
	}
	return resp.Submission, nil
}

// SetOnboardingStatus assigns a status and notes to a submission.
func (c *Client) SetOnboardingStatus(ctx context.Context, id string, update model.StatusUpdate) error {
	_, err := c.postJSON(ctx, "/api/admin/onboarding/"+url.PathEscape(id)+"/status", update, nil)
	return err
}

// ApproveOnboarding approves a submission. The returned credential is only
// ever available in this response.
func (c *Client) ApproveOnboarding(ctx context.Context, id string) (*model.Approval, error) {
	var approval model.Approval
	if _, err := c.postJSON(ctx, "/api/admin/onboarding/"+url.PathEscape(id)+"/approve", nil, &approval); err != nil {
		return nil, err
	}
	return &approval, nil
}

// Ingest uploads a bundle to the vault. The multipart body is streamed.
func (c *Client) Ingest(ctx context.Context, in model.IngestRequest) (*model.IngestResult, error) {
	if in.Bundle == nil {
		return nil, fmt.Errorf("ingest: no bundle")
	}

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		pw.CloseWithError(writeIngestForm(mw, in))
	}()

	req, err := c.newRequest(ctx, http.MethodPost, "/api/vault/ingest", nil, pr)
	if err != nil {
		pr.Close()
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var result model.IngestResult
	_, err = c.do(req, &result)
	// Unblock the writer if the request ended before the body was consumed.
	pr.Close()
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func writeIngestForm(mw *multipart.Writer, in model.IngestRequest) error {
	fields := []struct{ name, value string }{
		{"source_key", in.SourceKey},
		{"org_id", in.OrgID},
		{"tenant_id", in.TenantID},
		{"schema_version", in.SchemaVersion},
		{"manifest_json", in.ManifestJSON},
	}
	for _, f := range fields {
		if err := mw.WriteField(f.name, f.value); err != nil {
			return fmt.Errorf("writing %s: %w", f.name, err)
		}
	}

	filename := in.Filename
	if filename == "" {
		filename = "bundle.bin"
	}
	part, err := mw.CreateFormFile("bundle", filename)
	if err != nil {
		return fmt.Errorf("creating bundle part: %w", err)
	}
	if _, err := io.Copy(part, in.Bundle); err != nil {
		return fmt.Errorf("copying bundle: %w", err)
	}
	return mw.Close()
}

// ListVaultObjects lists stored bundles for a source key ("all" for every source).
func (c *Client) ListVaultObjects(ctx context.Context, sourceKey string, limit int) ([]model.VaultObject, error) {
	var resp listResponse[model.VaultObject]
	if err := c.getJSON(ctx, "/api/admin/vault/objects", listQuery("source_key", sourceKey, limit), &resp); err != nil {
		return nil, err
	}
	return resp.Items, nil
}

// DownloadPath returns the path, relative to the console origin, at which a
// vault object can be downloaded through the proxy.
func DownloadPath(id string) string {
	return "/api/admin/vault/objects/" + url.PathEscape(id) + "/download"
}

// ListOwners lists owners, newest first.
func (c *Client) ListOwners(ctx context.Context, limit int) ([]model.Owner, error) {
	var resp listResponse[model.Owner]
	if err := c.getJSON(ctx, "/api/admin/owners", listQuery("", "", limit), &resp); err != nil {
		return nil, err
	}
	return resp.Items, nil
}

// CreateOwner creates an owner and returns its id.
func (c *Client) CreateOwner(ctx context.Context, in model.OwnerInput) (string, error) {
	var resp createdResponse
	if _, err := c.postJSON(ctx, "/api/admin/owners", in, &resp); err != nil {
		return "", err
	}
	return resp.ID, nil
}

// ListAssets lists assets, newest first.
func (c *Client) ListAssets(ctx context.Context, limit int) ([]model.Asset, error) {
	var resp listResponse[model.Asset]
	if err := c.getJSON(ctx, "/api/admin/assets", listQuery("", "", limit), &resp); err != nil {
		return nil, err
	}
	return resp.Items, nil
}

// CreateAsset creates an asset and returns its id.
func (c *Client) CreateAsset(ctx context.Context, in model.AssetInput) (string, error) {
	var resp createdResponse
	if _, err := c.postJSON(ctx, "/api/admin/assets", in, &resp); err != nil {
		return "", err
	}
	return resp.ID, nil
}
