package web

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/dustin/go-humanize"

	"github.com/erazemk/atlas/internal/model"
	"github.com/erazemk/atlas/internal/panel"
)

// multipartMemory is how much of an upload is buffered in memory; the rest
// spills to a temporary file.
const multipartMemory = 32 << 20

// IngestSubmit handles POST /vault/ingest.
func (s *Server) IngestSubmit(w http.ResponseWriter, r *http.Request) {
	p := s.checkedPanel(w, r)
	if p == nil {
		return
	}

	// Oversized bodies were turned away by uploadLimit.
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		p.Notify(panel.TabVault, panel.NoticeError, "Could not read the upload form.")
		slog.Warn("bad ingest form", "error", err)
		http.Redirect(w, r, "/view/vault", http.StatusSeeOther)
		return
	}
	in := model.IngestRequest{
		SourceKey:     r.PostFormValue("source_key"),
		OrgID:         r.PostFormValue("org_id"),
		TenantID:      r.PostFormValue("tenant_id"),
		SchemaVersion: r.PostFormValue("schema_version"),
		ManifestJSON:  r.PostFormValue("manifest_json"),
	}

	file, header, err := r.FormFile("bundle")
	switch {
	case err == nil:
		defer file.Close()
		in.Filename = header.Filename
		in.Bundle = file
	case errors.Is(err, http.ErrMissingFile):
		// The panel reports the missing file.
	default:
		slog.Warn("bad ingest file", "error", err)
	}

	err = p.Ingest(r.Context(), in)
	if errors.Is(err, panel.ErrNoFile) {
		err = nil
	}
	if s.actionFailed(w, r, "ingest", err) {
		return
	}
	http.Redirect(w, r, "/view/vault", http.StatusSeeOther)
}

// uploadLimit reads ingest uploads ahead of the CSRF check, which would
// otherwise fail on a body cut short by the size limit. An oversized upload
// is reported inline on the vault tab. Nothing reaches the backend here.
func (s *Server) uploadLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/vault/ingest" {
			next.ServeHTTP(w, r)
			return
		}

		err := r.ParseMultipartForm(multipartMemory)
		if r.MultipartForm != nil {
			defer r.MultipartForm.RemoveAll()
		}
		var tooLarge *http.MaxBytesError
		if !errors.As(err, &tooLarge) {
			next.ServeHTTP(w, r)
			return
		}

		slog.Warn("upload rejected", "limit", tooLarge.Limit)
		claims := s.sessionClaims(r)
		if claims == nil {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		if p, ok := s.Sessions.Lookup(claims.SessionID); ok {
			p.Notify(panel.TabVault, panel.NoticeError,
				fmt.Sprintf("Upload exceeds %s.", humanize.Bytes(uint64(tooLarge.Limit))))
		}
		http.Redirect(w, r, "/view/vault", http.StatusSeeOther)
	})
}
