package web

import (
	"database/sql"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/erazemk/atlas/internal/atlas"
	"github.com/erazemk/atlas/internal/model"
	"github.com/erazemk/atlas/internal/panel"
	webembed "github.com/erazemk/atlas/web"
)

// Templates holds parsed HTML templates.
type Templates struct {
	templates map[string]*template.Template
}

// FuncMap returns the template function map.
func FuncMap() template.FuncMap {
	return template.FuncMap{
		"statusName": func(status string) string {
			switch status {
			case model.StatusSubmitted:
				return "Submitted"
			case model.StatusNeedsMore:
				return "Needs more info"
			case model.StatusApproved:
				return "Approved"
			case model.StatusRejected:
				return "Rejected"
			default:
				return status
			}
		},
		"bytes": func(n int64) string {
			if n < 0 {
				return ""
			}
			return humanize.Bytes(uint64(n))
		},
	}
}

// LoadTemplates parses all page templates with the layout.
func LoadTemplates() (*Templates, error) {
	tfs := webembed.TemplatesFS()

	layoutBytes, err := fs.ReadFile(tfs, "layout.html")
	if err != nil {
		return nil, fmt.Errorf("reading layout template: %w", err)
	}

	pages := []string{
		"login.html",
		"dashboard.html",
		"approve.html",
	}

	ts := &Templates{templates: make(map[string]*template.Template)}

	for _, page := range pages {
		pageBytes, err := fs.ReadFile(tfs, page)
		if err != nil {
			return nil, fmt.Errorf("reading template %s: %w", page, err)
		}

		tmpl := template.New(page).Funcs(FuncMap())
		tmpl, err = tmpl.Parse(string(layoutBytes))
		if err != nil {
			return nil, fmt.Errorf("parsing layout for %s: %w", page, err)
		}
		tmpl, err = tmpl.Parse(string(pageBytes))
		if err != nil {
			return nil, fmt.Errorf("parsing template %s: %w", page, err)
		}

		ts.templates[page] = tmpl
	}

	return ts, nil
}

// Render renders a template with the given data. Console pages carry live
// backend data and one-time credentials, so they are never cached.
func (ts *Templates) Render(w http.ResponseWriter, name string, data any) {
	tmpl, ok := ts.templates[name]
	if !ok {
		http.Error(w, "template not found", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if err := tmpl.ExecuteTemplate(w, "layout", data); err != nil {
		slog.Error("failed to render template", "template", name, "error", err)
	}
}

// PageData is the base data passed to all templates.
type PageData struct {
	Title     string
	Email     string
	CSRFToken string
	Error     string
	Success   string
}

// Server holds all dependencies for page handlers.
type Server struct {
	DB            *sql.DB
	Templates     *Templates
	JWTSecret     string
	Client        *atlas.Client
	Sessions      *panel.Sessions
	SecureCookies bool
	SessionTTL    time.Duration
	MaxUpload     int64
}
