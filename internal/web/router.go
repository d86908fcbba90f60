package web

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/gorilla/csrf"

	"github.com/erazemk/atlas/internal/atlas"
	"github.com/erazemk/atlas/internal/panel"
	webembed "github.com/erazemk/atlas/web"
)

// Options configures NewRouter.
type Options struct {
	DB            *sql.DB
	JWTSecret     string
	CSRFKey       []byte
	Client        *atlas.Client
	Sessions      *panel.Sessions
	SecureCookies bool
	SessionTTL    time.Duration
	MaxUpload     int64
}

// NewRouter creates the console page router with all page routes registered.
func NewRouter(opts Options) (http.Handler, error) {
	templates, err := LoadTemplates()
	if err != nil {
		return nil, err
	}

	s := &Server{
		DB:            opts.DB,
		Templates:     templates,
		JWTSecret:     opts.JWTSecret,
		Client:        opts.Client,
		Sessions:      opts.Sessions,
		SecureCookies: opts.SecureCookies,
		SessionTTL:    opts.SessionTTL,
		MaxUpload:     opts.MaxUpload,
	}

	return s.routes(opts.CSRFKey), nil
}

func (s *Server) routes(csrfKey []byte) http.Handler {
	mux := http.NewServeMux()
	page := s.SessionMiddleware

	// Static assets and health.
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.FS(webembed.StaticFS()))))
	mux.HandleFunc("GET /healthz", s.Health)

	// Public routes.
	mux.Handle("GET /login", page(http.HandlerFunc(s.LoginPage)))
	mux.Handle("POST /login", page(http.HandlerFunc(s.LoginSubmit)))
	mux.Handle("POST /logout", page(http.HandlerFunc(s.Logout)))

	// Console routes. The session check runs on every full load of /.
	mux.Handle("GET /{$}", page(http.HandlerFunc(s.Dashboard)))
	mux.Handle("GET /tabs/{tab}", page(http.HandlerFunc(s.TabPage)))
	mux.Handle("GET /view/{tab}", page(http.HandlerFunc(s.ViewPage)))
	mux.Handle("GET /detail/close", page(http.HandlerFunc(s.CloseDetail)))

	mux.Handle("GET /onboarding/{id}", page(http.HandlerFunc(s.SubmissionPage)))
	mux.Handle("POST /onboarding/{id}/status", page(http.HandlerFunc(s.StatusSubmit)))
	mux.Handle("GET /onboarding/{id}/approve", page(http.HandlerFunc(s.ApprovePage)))
	mux.Handle("POST /onboarding/{id}/approve", page(http.HandlerFunc(s.ApproveSubmit)))

	mux.Handle("POST /vault/ingest", page(http.HandlerFunc(s.IngestSubmit)))
	mux.Handle("POST /owners", page(http.HandlerFunc(s.OwnerCreateSubmit)))
	mux.Handle("POST /assets", page(http.HandlerFunc(s.AssetCreateSubmit)))

	protect := csrf.Protect(csrfKey,
		csrf.CookieName(CSRFCookie),
		csrf.Path("/"),
		csrf.Secure(s.SecureCookies),
		csrf.SameSite(csrf.SameSiteLaxMode),
		csrf.ErrorHandler(http.HandlerFunc(csrfFailed)),
	)
	return s.limitBody(s.markPlaintext(s.uploadLimit(protect(mux))))
}

// markPlaintext tells the CSRF layer that requests arrive over plain HTTP,
// which disables its HTTPS-only Referer check. Deployments behind TLS set
// SecureCookies and keep the check.
func (s *Server) markPlaintext(next http.Handler) http.Handler {
	if s.SecureCookies {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, csrf.PlaintextHTTPRequest(r))
	})
}

// limitBody caps request bodies at the upload limit.
func (s *Server) limitBody(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.MaxUpload > 0 && r.Body != nil {
			r.Body = http.MaxBytesReader(w, r.Body, s.MaxUpload)
		}
		next.ServeHTTP(w, r)
	})
}

func csrfFailed(w http.ResponseWriter, r *http.Request) {
	http.Error(w, "Forbidden: the form has expired. Reload the page and try again.", http.StatusForbidden)
}
