package web

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gorilla/csrf"

	"github.com/erazemk/atlas/internal/atlas"
	"github.com/erazemk/atlas/internal/store"
)

type loginPage struct {
	PageData
	LoginEmail string
}

// LoginPage handles GET /login.
func (s *Server) LoginPage(w http.ResponseWriter, r *http.Request) {
	s.Templates.Render(w, "login.html", &loginPage{
		PageData: PageData{Title: "Sign in", CSRFToken: csrf.Token(r)},
	})
}

// LoginSubmit handles POST /login. The backend session cookie it receives is
// relayed to the browser so that proxied /api/ requests stay authenticated.
func (s *Server) LoginSubmit(w http.ResponseWriter, r *http.Request) {
	email := strings.TrimSpace(r.PostFormValue("email"))
	password := r.PostFormValue("password")

	fail := func(msg string) {
		s.Templates.Render(w, "login.html", &loginPage{
			PageData:   PageData{Title: "Sign in", CSRFToken: csrf.Token(r), Error: msg},
			LoginEmail: email,
		})
	}

	if email == "" || password == "" {
		fail("Enter your email and password.")
		return
	}

	cookies, id, err := s.Client.Login(r.Context(), email, password)
	if err != nil {
		var apiErr *atlas.APIError
		if errors.As(err, &apiErr) {
			slog.Warn("login rejected", "email", email, "status", apiErr.Status)
			fail(apiErr.Error())
			return
		}
		slog.Error("login failed", "email", email, "error", err)
		fail("The backend is unreachable. Try again later.")
		return
	}

	for _, c := range cookies {
		http.SetCookie(w, s.relayCookie(c))
	}

	// Start from a fresh panel bound to the new backend session.
	if old := GetWebClaims(r.Context()); old != nil {
		s.Sessions.Drop(old.SessionID)
	}
	if id != nil && id.Email != "" {
		email = id.Email
	}
	if _, err := s.issueSession(w, email); err != nil {
		slog.Error("failed to issue console session", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	slog.Info("operator signed in", "email", email)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// Logout handles POST /logout.
func (s *Server) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	cookies, err := s.Client.Logout(ctx)
	if err != nil {
		slog.Warn("backend logout failed", "error", err)
		for _, c := range backendCookies(r) {
			http.SetCookie(w, &http.Cookie{Name: c.Name, Value: "", Path: "/", MaxAge: -1})
		}
	}
	for _, c := range cookies {
		http.SetCookie(w, s.relayCookie(c))
	}

	if claims := GetWebClaims(ctx); claims != nil {
		s.Sessions.Drop(claims.SessionID)
		if claims.ExpiresAt != nil {
			if err := store.RevokeToken(ctx, s.DB, claims.ID, claims.ExpiresAt.Time); err != nil {
				slog.Error("failed to revoke console session", "error", err)
			}
		}
	}

	s.clearSessionCookie(w)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// relayCookie rewrites a backend cookie for the console origin.
func (s *Server) relayCookie(c *http.Cookie) *http.Cookie {
	return &http.Cookie{
		Name:     c.Name,
		Value:    c.Value,
		Path:     "/",
		Expires:  c.Expires,
		MaxAge:   c.MaxAge,
		HttpOnly: c.HttpOnly,
		Secure:   s.SecureCookies,
		SameSite: c.SameSite,
	}
}
